package store

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Atharvwavare/smart-safety-monitoring-system/pkg/models"
)

func alert(id string, sev models.Severity) models.Alert {
	return models.Alert{
		AlertID:   id,
		WorkerID:  "WORKER-1",
		SensorID:  "SENSOR-1",
		Severity:  sev,
		Timestamp: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
	}
}

func ids(alerts []models.Alert) []string {
	out := make([]string, len(alerts))
	for i, a := range alerts {
		out[i] = a.AlertID
	}
	return out
}

func TestMergeDeduplicatesFirstOccurrenceWins(t *testing.T) {
	s := NewAlertStore()

	first := alert("a1", models.SeverityLow)
	assert.True(t, s.Merge(first))
	assert.True(t, s.Merge(alert("a2", models.SeverityHigh)))

	replay := alert("a1", models.SeverityCritical)
	replay.Message = "changed"
	assert.False(t, s.Merge(replay))

	snap := s.Snapshot()
	assert.Equal(t, []string{"a2", "a1"}, ids(snap.Alerts))
	assert.Equal(t, first, snap.Alerts[1], "existing entry must not be overwritten")
}

func TestMergeIsIdempotent(t *testing.T) {
	once := NewAlertStore()
	twice := NewAlertStore()
	a := alert("a1", models.SeverityMedium)

	once.Merge(a)
	twice.Merge(a)
	twice.Merge(a)

	assert.Equal(t, once.Snapshot().Alerts, twice.Snapshot().Alerts)
}

func TestMergeOrdersByInsertionNotTimestamp(t *testing.T) {
	s := NewAlertStore()
	newer := alert("newer", models.SeverityLow)
	newer.Timestamp = time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	older := alert("older", models.SeverityLow)
	older.Timestamp = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

	s.Merge(newer)
	s.Merge(older)

	assert.Equal(t, []string{"older", "newer"}, ids(s.Snapshot().Alerts))
}

func TestSeedKeepsServerOrderAndMergeGoesInFront(t *testing.T) {
	s := NewAlertStore()
	s.Seed([]models.Alert{alert("a1", models.SeverityLow), alert("a2", models.SeverityLow), alert("a3", models.SeverityLow)})

	snap := s.Snapshot()
	assert.True(t, snap.Seeded)
	assert.Equal(t, []string{"a1", "a2", "a3"}, ids(snap.Alerts))

	require.True(t, s.Merge(alert("x", models.SeverityHigh)))
	assert.Equal(t, []string{"x", "a1", "a2", "a3"}, ids(s.Snapshot().Alerts))
}

func TestSeedAfterEarlyMergeKeepsStreamedAlerts(t *testing.T) {
	s := NewAlertStore()
	s.Merge(alert("live", models.SeverityCritical))

	inserted := s.Seed([]models.Alert{alert("live", models.SeverityCritical), alert("a1", models.SeverityLow), alert("a1", models.SeverityLow)})

	assert.Equal(t, 1, inserted)
	assert.Equal(t, []string{"live", "a1"}, ids(s.Snapshot().Alerts))
}

func TestInitializeCountsOnlyInsertedAlerts(t *testing.T) {
	s := NewAlertStore()
	s.Merge(alert("live", models.SeverityCritical))

	inserted := s.Initialize([]models.Alert{
		alert("a1", models.SeverityLow),
		alert("live", models.SeverityCritical),
		alert("a2", models.SeverityHigh),
		alert("a1", models.SeverityLow),
	}, models.SystemStatusSummary{TotalAlerts: 3})

	assert.Equal(t, 2, inserted)
	assert.Equal(t, []string{"live", "a1", "a2"}, ids(s.Snapshot().Alerts))
}

func TestReplaceStatusIsWholesale(t *testing.T) {
	s := NewAlertStore()
	assert.Nil(t, s.Snapshot().Status)

	s.ReplaceStatus(models.SystemStatusSummary{TotalWorkers: 3, TotalAlerts: 5, CriticalAlerts: 1, HighAlerts: 2, SystemStatus: "OPERATIONAL"})
	s.ReplaceStatus(models.SystemStatusSummary{TotalWorkers: 1, SystemStatus: "DEGRADED"})

	status := s.Snapshot().Status
	require.NotNil(t, status)
	assert.Equal(t, models.SystemStatusSummary{TotalWorkers: 1, SystemStatus: "DEGRADED"}, *status)
}

func TestInitializeSetsBoth(t *testing.T) {
	s := NewAlertStore()
	s.Initialize([]models.Alert{alert("a1", models.SeverityLow)}, models.SystemStatusSummary{TotalAlerts: 1, SystemStatus: "OPERATIONAL"})

	snap := s.Snapshot()
	assert.True(t, snap.Seeded)
	assert.Equal(t, []string{"a1"}, ids(snap.Alerts))
	require.NotNil(t, snap.Status)
	assert.True(t, snap.Status.Operational())
	assert.Equal(t, uint64(1), snap.Version)
}

func TestSnapshotIsIsolatedFromCallerMutation(t *testing.T) {
	s := NewAlertStore()
	s.Merge(alert("a1", models.SeverityLow))
	s.ReplaceStatus(models.SystemStatusSummary{TotalAlerts: 1})

	snap := s.Snapshot()
	snap.Alerts[0].AlertID = "mutated"
	snap.Status.TotalAlerts = 99

	fresh := s.Snapshot()
	assert.Equal(t, "a1", fresh.Alerts[0].AlertID)
	assert.Equal(t, 1, fresh.Status.TotalAlerts)
}

func TestSnapshotHelpers(t *testing.T) {
	s := NewAlertStore()
	other := alert("w2", models.SeverityCritical)
	other.WorkerID = "WORKER-2"
	s.Merge(alert("a1", models.SeverityHigh))
	s.Merge(other)
	s.Merge(alert("a2", models.SeverityHigh))

	snap := s.Snapshot()
	assert.Equal(t, []string{"a2", "a1"}, ids(snap.ByWorker("WORKER-1")))
	assert.Empty(t, snap.ByWorker("nobody"))

	counts := snap.CountBySeverity()
	assert.Equal(t, 2, counts[models.SeverityHigh])
	assert.Equal(t, 1, counts[models.SeverityCritical])
	assert.Equal(t, 0, counts[models.SeverityLow])
}

func TestConcurrentMergesNeverDuplicate(t *testing.T) {
	s := NewAlertStore()

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				s.Merge(alert(fmt.Sprintf("a%d", i), models.SeverityLow))
				_ = s.Snapshot()
			}
		}()
	}
	wg.Wait()

	snap := s.Snapshot()
	assert.Len(t, snap.Alerts, 100)
	seen := make(map[string]bool)
	for _, a := range snap.Alerts {
		assert.False(t, seen[a.AlertID], "duplicate %s", a.AlertID)
		seen[a.AlertID] = true
	}
}

func TestSubscribeCoalescesNotifications(t *testing.T) {
	s := NewAlertStore()
	changes, cancel := s.Subscribe()
	defer cancel()

	s.Merge(alert("a1", models.SeverityLow))
	s.Merge(alert("a2", models.SeverityLow))

	select {
	case <-changes:
	case <-time.After(time.Second):
		t.Fatal("expected a change notification")
	}
	select {
	case <-changes:
		t.Fatal("notifications should coalesce")
	default:
	}

	cancel()
	s.Merge(alert("a3", models.SeverityLow))
	select {
	case <-changes:
		t.Fatal("cancelled subscription must not be notified")
	default:
	}
}
