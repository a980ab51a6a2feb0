package services

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sourcegraph/conc/pool"

	"github.com/Atharvwavare/smart-safety-monitoring-system/pkg/client"
	"github.com/Atharvwavare/smart-safety-monitoring-system/pkg/errs"
	"github.com/Atharvwavare/smart-safety-monitoring-system/pkg/metrics"
	"github.com/Atharvwavare/smart-safety-monitoring-system/pkg/models"
	"github.com/Atharvwavare/smart-safety-monitoring-system/pkg/store"
)

// SnapshotLoader builds the initial view from the backend's request/response endpoints
type SnapshotLoader struct {
	client client.SafetyClient
	store  *store.AlertStore
}

// NewSnapshotLoader creates a new snapshot loader
func NewSnapshotLoader(c client.SafetyClient, s *store.AlertStore) *SnapshotLoader {
	return &SnapshotLoader{client: c, store: s}
}

// Load fetches the alert list and the status summary concurrently. The store
// is only touched if both succeed, and then both are installed in one write.
func (l *SnapshotLoader) Load(ctx context.Context) error {
	start := time.Now()

	var (
		alerts []models.Alert
		status models.SystemStatusSummary
	)

	p := pool.New().WithContext(ctx).WithCancelOnError()
	p.Go(func(ctx context.Context) error {
		fetched, err := l.client.FetchAlerts(ctx)
		if err != nil {
			return err
		}
		alerts = fetched
		return nil
	})
	p.Go(func(ctx context.Context) error {
		fetched, err := l.client.FetchStatus(ctx)
		if err != nil {
			return err
		}
		status = fetched
		return nil
	})

	err := p.Wait()
	metrics.ObserveSnapshotLoad(time.Since(start), err)
	if err != nil {
		kind := errs.KindOf(err)
		if kind == "" {
			kind = errs.KindTransport
		}
		logrus.Errorf("Failed to load dashboard snapshot: %v", err)
		return errs.New(kind, "load snapshot", "failed to fetch initial data", err)
	}

	inserted := l.store.Initialize(alerts, status)
	metrics.ObserveSeed(inserted)
	logrus.WithFields(logrus.Fields{
		"alerts":       len(alerts),
		"inserted":     inserted,
		"systemStatus": status.SystemStatus,
	}).Info("Dashboard snapshot loaded")
	return nil
}

// RefreshStatus re-fetches the status summary and replaces it wholesale
func (l *SnapshotLoader) RefreshStatus(ctx context.Context) error {
	status, err := l.client.FetchStatus(ctx)
	if err != nil {
		logrus.Warnf("Failed to refresh system status: %v", err)
		return err
	}
	l.store.ReplaceStatus(status)
	return nil
}
