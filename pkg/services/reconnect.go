package services

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"

	"github.com/Atharvwavare/smart-safety-monitoring-system/pkg/config"
	"github.com/Atharvwavare/smart-safety-monitoring-system/pkg/metrics"
)

// ReconnectPolicy controls what happens after an open stream is lost
type ReconnectPolicy struct {
	Enabled         bool
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
}

// ReconnectPolicyFromConfig converts the reconnect config section
func ReconnectPolicyFromConfig(cfg config.ReconnectConfig) ReconnectPolicy {
	return ReconnectPolicy{
		Enabled:         cfg.Enabled,
		MaxRetries:      cfg.MaxRetries,
		InitialInterval: cfg.InitialInterval,
		MaxInterval:     cfg.MaxInterval,
		Multiplier:      cfg.Multiplier,
	}
}

func (p ReconnectPolicy) backOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	if p.InitialInterval > 0 {
		b.InitialInterval = p.InitialInterval
	}
	if p.MaxInterval > 0 {
		b.MaxInterval = p.MaxInterval
	}
	if p.Multiplier >= 1 {
		b.Multiplier = p.Multiplier
	}
	b.MaxElapsedTime = 0

	attempts := p.MaxRetries
	if attempts < 1 {
		attempts = 1
	}
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(attempts-1)), ctx)
}

// Reconnector watches a StreamSync for lost connections and, when the policy
// allows it, reopens the stream with exponential backoff.
type Reconnector struct {
	stream *StreamSync
	policy ReconnectPolicy
}

// NewReconnector creates a reconnector for the given stream
func NewReconnector(stream *StreamSync, policy ReconnectPolicy) *Reconnector {
	return &Reconnector{stream: stream, policy: policy}
}

// Policy returns the configured policy
func (r *Reconnector) Policy() ReconnectPolicy {
	return r.policy
}

// Run blocks until ctx is done, handling every loss the stream reports
func (r *Reconnector) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case cause := <-r.stream.Lost():
			if !r.policy.Enabled {
				logrus.WithError(cause).Warn("Alert stream lost; reconnect policy disabled, staying disconnected")
				continue
			}
			if err := r.Reconnect(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logrus.WithError(err).Error("Giving up on alert stream reconnect")
			}
		}
	}
}

// Reconnect tries to reopen the stream up to MaxRetries times. It stops early
// if the stream was stopped explicitly or ctx ends, and does nothing if the
// stream is already open.
func (r *Reconnector) Reconnect(ctx context.Context) error {
	if r.stream.State() == StreamOpen {
		logrus.Debug("Alert stream already open; skipping reconnect")
		return nil
	}

	attempt := 0
	operation := func() error {
		attempt++
		metrics.ObserveReconnectAttempt()
		err := r.stream.Reconnect(ctx)
		if errors.Is(err, ErrStreamStopped) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		logrus.WithFields(logrus.Fields{
			"attempt": attempt,
			"wait":    wait,
		}).WithError(err).Warn("Alert stream reconnect failed")
	}

	if err := backoff.RetryNotify(operation, r.policy.backOff(ctx), notify); err != nil {
		return err
	}
	if r.stream.State() == StreamOpen {
		logrus.WithField("attempt", attempt).Info("Alert stream reconnected")
	}
	return nil
}
