package store

import (
	"sync"
	"sync/atomic"

	"github.com/Atharvwavare/smart-safety-monitoring-system/pkg/models"
)

// Snapshot is a point-in-time read of the store. Alerts are newest first.
type Snapshot struct {
	Alerts  []models.Alert
	Status  *models.SystemStatusSummary
	Seeded  bool
	Version uint64
}

// ByWorker returns the alerts raised for the given worker, keeping display order
func (s Snapshot) ByWorker(workerID string) []models.Alert {
	out := make([]models.Alert, 0)
	for _, a := range s.Alerts {
		if a.WorkerID == workerID {
			out = append(out, a)
		}
	}
	return out
}

// CountBySeverity tallies the alerts in the snapshot per severity
func (s Snapshot) CountBySeverity() map[models.Severity]int {
	counts := make(map[models.Severity]int, len(models.Severities))
	for _, sev := range models.Severities {
		counts[sev] = 0
	}
	for _, a := range s.Alerts {
		counts[a.Severity]++
	}
	return counts
}

// state is never modified after it is published
type state struct {
	alerts  []models.Alert
	status  *models.SystemStatusSummary
	seeded  bool
	version uint64
}

// AlertStore is the single source of truth for the alert sequence and the
// system status summary. Writes are serialized; reads never wait on writers.
type AlertStore struct {
	mu      sync.Mutex
	current atomic.Pointer[state]
	ids     map[string]struct{}

	subMu       sync.Mutex
	subscribers map[int]chan struct{}
	nextSub     int
}

// NewAlertStore creates an empty store
func NewAlertStore() *AlertStore {
	s := &AlertStore{
		ids:         make(map[string]struct{}),
		subscribers: make(map[int]chan struct{}),
	}
	s.current.Store(&state{})
	return s
}

// Merge inserts alert at the front unless an alert with the same id is
// already present, in which case it has no effect. It reports whether the
// alert was inserted.
func (s *AlertStore) Merge(alert models.Alert) bool {
	s.mu.Lock()
	if _, exists := s.ids[alert.AlertID]; exists {
		s.mu.Unlock()
		return false
	}

	prev := s.current.Load()
	alerts := make([]models.Alert, 0, len(prev.alerts)+1)
	alerts = append(alerts, alert)
	alerts = append(alerts, prev.alerts...)

	s.ids[alert.AlertID] = struct{}{}
	s.publish(&state{
		alerts:  alerts,
		status:  prev.status,
		seeded:  prev.seeded,
		version: prev.version + 1,
	})
	s.mu.Unlock()

	s.notify()
	return true
}

// Seed installs the initial alert list in the order received. Alerts merged
// before seeding are newer than the snapshot, so they stay in front; seeded
// entries whose id is already present are dropped. It returns how many
// seeded entries were inserted.
func (s *AlertStore) Seed(alerts []models.Alert) int {
	s.mu.Lock()
	prev := s.current.Load()
	next, inserted := s.seedLocked(prev.alerts, alerts)
	s.publish(&state{
		alerts:  next,
		status:  prev.status,
		seeded:  true,
		version: prev.version + 1,
	})
	s.mu.Unlock()

	s.notify()
	return inserted
}

// ReplaceStatus overwrites the status summary
func (s *AlertStore) ReplaceStatus(summary models.SystemStatusSummary) {
	s.mu.Lock()
	prev := s.current.Load()
	s.publish(&state{
		alerts:  prev.alerts,
		status:  &summary,
		seeded:  prev.seeded,
		version: prev.version + 1,
	})
	s.mu.Unlock()

	s.notify()
}

// Initialize applies Seed and ReplaceStatus as one write, so no reader sees
// the alert list without its status summary or the other way round. It
// returns how many seeded entries were inserted.
func (s *AlertStore) Initialize(alerts []models.Alert, summary models.SystemStatusSummary) int {
	s.mu.Lock()
	prev := s.current.Load()
	next, inserted := s.seedLocked(prev.alerts, alerts)
	s.publish(&state{
		alerts:  next,
		status:  &summary,
		seeded:  true,
		version: prev.version + 1,
	})
	s.mu.Unlock()

	s.notify()
	return inserted
}

// Snapshot returns the current contents. It never blocks.
func (s *AlertStore) Snapshot() Snapshot {
	cur := s.current.Load()
	snap := Snapshot{
		Alerts:  make([]models.Alert, len(cur.alerts)),
		Seeded:  cur.seeded,
		Version: cur.version,
	}
	copy(snap.Alerts, cur.alerts)
	if cur.status != nil {
		status := *cur.status
		snap.Status = &status
	}
	return snap
}

// Len returns the number of alerts currently held
func (s *AlertStore) Len() int {
	return len(s.current.Load().alerts)
}

// Subscribe returns a channel that receives a value after every write.
// Notifications coalesce: a slow reader sees at most one pending signal and
// should take a fresh Snapshot when it wakes.
func (s *AlertStore) Subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subscribers[id] = ch
	s.subMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subscribers, id)
			s.subMu.Unlock()
		})
	}
}

// seedLocked must be called with s.mu held
func (s *AlertStore) seedLocked(existing, seed []models.Alert) ([]models.Alert, int) {
	alerts := make([]models.Alert, 0, len(existing)+len(seed))
	alerts = append(alerts, existing...)
	for _, a := range seed {
		if _, dup := s.ids[a.AlertID]; dup {
			continue
		}
		s.ids[a.AlertID] = struct{}{}
		alerts = append(alerts, a)
	}
	return alerts, len(alerts) - len(existing)
}

func (s *AlertStore) publish(next *state) {
	s.current.Store(next)
}

func (s *AlertStore) notify() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range s.subscribers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
