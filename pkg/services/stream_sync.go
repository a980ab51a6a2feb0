package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/Atharvwavare/smart-safety-monitoring-system/pkg/errs"
	"github.com/Atharvwavare/smart-safety-monitoring-system/pkg/metrics"
	"github.com/Atharvwavare/smart-safety-monitoring-system/pkg/models"
	"github.com/Atharvwavare/smart-safety-monitoring-system/pkg/store"
	"github.com/Atharvwavare/smart-safety-monitoring-system/pkg/stream"
)

// StreamState represents the lifecycle state of the alert stream
type StreamState string

const (
	StreamIdle       StreamState = "IDLE"
	StreamConnecting StreamState = "CONNECTING"
	StreamOpen       StreamState = "OPEN"
	StreamClosed     StreamState = "CLOSED"
)

// ErrStreamStopped is returned when Stop interrupts a connection attempt or
// when a reconnect is attempted after an explicit Stop.
var ErrStreamStopped = errors.New("alert stream stopped")

const defaultEventBuffer = 64

type streamEventKind int

const (
	eventOpened streamEventKind = iota
	eventMessage
	eventClosed
)

// streamEvent is what the receive loop hands to the state machine
type streamEvent struct {
	kind streamEventKind
	data []byte
	err  error
}

// handshake carries the outcome of one session's connection attempt to
// every Start caller waiting on it
type handshake struct {
	done chan struct{}
	err  error
}

// StreamStats counts what the stream has delivered since creation
type StreamStats struct {
	Received     uint64 `json:"received"`
	Merged       uint64 `json:"merged"`
	Duplicates   uint64 `json:"duplicates"`
	DecodeErrors uint64 `json:"decodeErrors"`
}

// StreamSync keeps a push connection to the backend open and merges every
// alert it delivers into the store.
//
// A receive goroutine owns the connection and turns it into Opened, Message
// and Closed events; a second goroutine consumes those events and is the only
// place state transitions happen. Each Start creates a new session; Stop
// invalidates the current one so late events from it are ignored.
type StreamSync struct {
	store       *store.AlertStore
	dialer      stream.Dialer
	eventBuffer int

	// lifecycle serializes Start and Stop
	lifecycle sync.Mutex

	mu           sync.RWMutex
	state        StreamState
	connectivity models.ConnectivityState
	session      uint64
	handshake    *handshake
	cancel       context.CancelFunc
	done         chan struct{}
	stopped      bool
	lastErr      error

	lost chan error

	received     atomic.Uint64
	merged       atomic.Uint64
	duplicates   atomic.Uint64
	decodeErrors atomic.Uint64
}

// NewStreamSync creates an idle stream bound to the given store
func NewStreamSync(alertStore *store.AlertStore, dialer stream.Dialer, eventBuffer int) *StreamSync {
	if eventBuffer <= 0 {
		eventBuffer = defaultEventBuffer
	}
	metrics.SetConnectivity(string(models.ConnectivityDisconnected))
	return &StreamSync{
		store:        alertStore,
		dialer:       dialer,
		eventBuffer:  eventBuffer,
		state:        StreamIdle,
		connectivity: models.ConnectivityDisconnected,
		lost:         make(chan error, 1),
	}
}

// Start connects the stream and blocks until the handshake resolves. It
// returns nil once the stream is OPEN, or a TRANSPORT error once it is
// CLOSED. Calling Start while OPEN is a no-op; calling it while CONNECTING
// waits for the handshake already in progress and returns its result.
func (s *StreamSync) Start(ctx context.Context) error {
	s.lifecycle.Lock()
	s.mu.Lock()
	s.stopped = false
	s.mu.Unlock()
	return s.startLocked(ctx)
}

// Reconnect is Start for automated callers: it refuses to connect once an
// explicit Stop has been issued, so a reconnect policy never overrides an
// operator's disconnect.
func (s *StreamSync) Reconnect(ctx context.Context) error {
	s.lifecycle.Lock()
	s.mu.RLock()
	stopped := s.stopped
	s.mu.RUnlock()
	if stopped {
		s.lifecycle.Unlock()
		return ErrStreamStopped
	}
	return s.startLocked(ctx)
}

// startLocked must be called with s.lifecycle held; it releases it.
func (s *StreamSync) startLocked(ctx context.Context) error {
	s.mu.RLock()
	state, prevDone, current := s.state, s.done, s.handshake
	s.mu.RUnlock()

	switch state {
	case StreamOpen:
		s.lifecycle.Unlock()
		return nil
	case StreamConnecting:
		s.lifecycle.Unlock()
		return current.wait(ctx)
	}
	// The previous session has already reported CLOSED; wait for it to
	// release its connection before opening another.
	if prevDone != nil {
		<-prevDone
	}

	runCtx, cancel := context.WithCancel(context.Background())
	events := make(chan streamEvent, s.eventBuffer)
	hs := &handshake{done: make(chan struct{})}
	done := make(chan struct{})

	s.mu.Lock()
	s.session++
	id := s.session
	s.handshake = hs
	s.cancel = cancel
	s.done = done
	s.lastErr = nil
	s.setStateLocked(StreamConnecting, models.ConnectivityConnecting)
	s.mu.Unlock()
	s.lifecycle.Unlock()

	// The handshake is bounded by the caller's ctx and by Stop.
	dialCtx, cancelDial := context.WithCancel(ctx)
	stopDial := context.AfterFunc(runCtx, cancelDial)
	defer func() {
		stopDial()
		cancelDial()
	}()

	go s.receive(runCtx, dialCtx, events)
	go s.run(id, cancel, events, hs, done)

	<-hs.done
	return hs.err
}

// wait blocks until the handshake resolves or ctx ends
func (h *handshake) wait(ctx context.Context) error {
	select {
	case <-h.done:
		return h.err
	case <-ctx.Done():
		return errs.Transport("connect alert stream", ctx.Err())
	}
}

// Stop closes the connection from any state and waits until the transport is
// released. It always leaves connectivity DISCONNECTED and never fails.
func (s *StreamSync) Stop() {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel = nil
	s.stopped = true
	s.session++
	state := s.state
	if state == StreamConnecting || state == StreamOpen {
		state = StreamClosed
	}
	s.setStateLocked(state, models.ConnectivityDisconnected)
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
	logrus.Info("Alert stream stopped")
}

// State returns the current lifecycle state
func (s *StreamSync) State() StreamState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Connectivity returns the connectivity flag shown to operators
func (s *StreamSync) Connectivity() models.ConnectivityState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connectivity
}

// LastError returns why the most recent session closed, if it closed on its own
func (s *StreamSync) LastError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

// Lost delivers the cause whenever an OPEN stream closes without Stop being
// called. Only the most recent undelivered loss is kept.
func (s *StreamSync) Lost() <-chan error {
	return s.lost
}

// Stats returns delivery counters
func (s *StreamSync) Stats() StreamStats {
	return StreamStats{
		Received:     s.received.Load(),
		Merged:       s.merged.Load(),
		Duplicates:   s.duplicates.Load(),
		DecodeErrors: s.decodeErrors.Load(),
	}
}

// receive owns the connection for one session and reports everything that
// happens to it as events. It closes events when the connection is gone.
func (s *StreamSync) receive(runCtx, dialCtx context.Context, events chan<- streamEvent) {
	defer close(events)

	conn, err := s.dialer.Dial(dialCtx)
	if err != nil {
		events <- streamEvent{kind: eventClosed, err: err}
		return
	}
	stopClose := context.AfterFunc(runCtx, func() { conn.Close() })
	defer stopClose()
	defer conn.Close()

	events <- streamEvent{kind: eventOpened}
	for {
		data, err := conn.ReadMessage()
		if errors.Is(err, stream.ErrMessageTooLarge) {
			events <- streamEvent{kind: eventMessage, err: err}
			continue
		}
		if err != nil {
			events <- streamEvent{kind: eventClosed, err: err}
			return
		}
		events <- streamEvent{kind: eventMessage, data: data}
	}
}

// run is the state machine for one session
func (s *StreamSync) run(id uint64, cancel context.CancelFunc, events <-chan streamEvent, hs *handshake, done chan<- struct{}) {
	defer close(done)
	defer cancel()

	signalled := false
	signal := func(err error) {
		if !signalled {
			signalled = true
			hs.err = err
			close(hs.done)
		}
	}
	defer signal(ErrStreamStopped)

	for ev := range events {
		switch ev.kind {
		case eventOpened:
			if s.transition(id, StreamOpen, models.ConnectivityConnected, nil) {
				signal(nil)
			} else {
				signal(ErrStreamStopped)
			}

		case eventMessage:
			if s.isCurrent(id) {
				s.handleMessage(ev.data, ev.err)
			}

		case eventClosed:
			active := s.transition(id, StreamClosed, models.ConnectivityDisconnected, ev.err)
			if !signalled {
				if active {
					signal(errs.Transport("connect alert stream", ev.err))
				} else {
					signal(ErrStreamStopped)
				}
			} else if active {
				s.notifyLost(ev.err)
			}
		}
	}
}

// handleMessage decodes one pushed alert and merges it. Malformed or
// oversized messages are dropped without touching the connection or the store.
func (s *StreamSync) handleMessage(data []byte, readErr error) {
	s.received.Add(1)

	var alert models.Alert
	err := readErr
	if err == nil {
		alert, err = models.DecodeAlert(data)
	}
	if err != nil {
		s.decodeErrors.Add(1)
		metrics.ObserveDecodeError()
		logrus.WithError(errs.Decode("alert stream", err)).Warn("Dropping malformed alert stream message")
		return
	}

	if mergeAlert(s.store, metrics.SourceStream, alert) {
		s.merged.Add(1)
	} else {
		s.duplicates.Add(1)
	}
}

// transition applies a state change if session id is still current
func (s *StreamSync) transition(id uint64, state StreamState, connectivity models.ConnectivityState, cause error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session != id {
		return false
	}
	if state == StreamClosed {
		s.lastErr = cause
	}
	s.setStateLocked(state, connectivity)
	return true
}

func (s *StreamSync) isCurrent(id uint64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session == id
}

// setStateLocked must be called with s.mu held
func (s *StreamSync) setStateLocked(state StreamState, connectivity models.ConnectivityState) {
	if s.state != state {
		entry := logrus.WithFields(logrus.Fields{"from": s.state, "to": state})
		if state == StreamClosed && s.lastErr != nil {
			entry = entry.WithError(s.lastErr)
		}
		entry.Info("Alert stream state changed")
	}
	s.state = state
	s.connectivity = connectivity
	metrics.SetConnectivity(string(connectivity))
}

func (s *StreamSync) notifyLost(cause error) {
	if cause == nil {
		cause = errors.New("stream closed by remote")
	}
	logrus.WithError(cause).Warn("Alert stream lost")
	for {
		select {
		case s.lost <- cause:
			return
		default:
		}
		// Replace a stale undelivered loss with the newer one.
		select {
		case <-s.lost:
		default:
		}
	}
}
