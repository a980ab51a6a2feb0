package services

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/Atharvwavare/smart-safety-monitoring-system/pkg/client"
	"github.com/Atharvwavare/smart-safety-monitoring-system/pkg/config"
	"github.com/Atharvwavare/smart-safety-monitoring-system/pkg/store"
	"github.com/Atharvwavare/smart-safety-monitoring-system/pkg/stream"
)

// Engine wires the store to its three writers: the snapshot loader, the
// alert stream and the submission controller.
type Engine struct {
	Store       *store.AlertStore
	Loader      *SnapshotLoader
	Stream      *StreamSync
	Reconnector *Reconnector
	Submissions *SensorSubmissionController
}

// NewEngine builds an engine talking to the configured backend
func NewEngine(cfg *config.Config) *Engine {
	c := client.NewClient(&cfg.Backend)
	dialer := stream.NewWebSocketDialer(cfg.Backend.StreamURL, &cfg.Stream)
	return NewEngineWith(c, dialer, ReconnectPolicyFromConfig(cfg.Reconnect), cfg.Stream.EventBuffer)
}

// NewEngineWith builds an engine from explicit collaborators
func NewEngineWith(c client.SafetyClient, dialer stream.Dialer, policy ReconnectPolicy, eventBuffer int) *Engine {
	s := store.NewAlertStore()
	ss := NewStreamSync(s, dialer, eventBuffer)
	return &Engine{
		Store:       s,
		Loader:      NewSnapshotLoader(c, s),
		Stream:      ss,
		Reconnector: NewReconnector(ss, policy),
		Submissions: NewSensorSubmissionController(c, s),
	}
}

// Run loads the initial snapshot, opens the stream and supervises it until
// ctx is done. A failed load or connect is logged; the dashboard keeps
// running so the operator can retry.
func (e *Engine) Run(ctx context.Context) {
	if err := e.Loader.Load(ctx); err != nil {
		logrus.Errorf("Initial snapshot unavailable: %v", err)
	}

	if err := e.Stream.Start(ctx); err != nil {
		logrus.Errorf("Failed to open alert stream: %v", err)
		if e.Reconnector.Policy().Enabled && ctx.Err() == nil {
			if err := e.Reconnector.Reconnect(ctx); err != nil {
				logrus.Errorf("Alert stream unavailable: %v", err)
			}
		}
	}

	e.Reconnector.Run(ctx)
	e.Stream.Stop()
}
