package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/stretchr/testify/mock"

	"github.com/Atharvwavare/smart-safety-monitoring-system/pkg/client"
	"github.com/Atharvwavare/smart-safety-monitoring-system/pkg/models"
	"github.com/Atharvwavare/smart-safety-monitoring-system/pkg/stream"
)

// MockClient is a mock implementation of the SafetyClient interface
type MockClient struct {
	mock.Mock
}

var _ client.SafetyClient = (*MockClient)(nil)

func (m *MockClient) FetchAlerts(ctx context.Context) ([]models.Alert, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Alert), args.Error(1)
}

func (m *MockClient) FetchStatus(ctx context.Context) (models.SystemStatusSummary, error) {
	args := m.Called(ctx)
	return args.Get(0).(models.SystemStatusSummary), args.Error(1)
}

func (m *MockClient) SubmitSensorData(ctx context.Context, reading models.SensorReading) (models.SubmissionResponse, error) {
	args := m.Called(ctx, reading)
	return args.Get(0).(models.SubmissionResponse), args.Error(1)
}

var errConnClosed = errors.New("use of closed connection")

// fakeConn is an in-memory stream connection. Closing msgs simulates the
// backend closing the connection; a nil frame reads as one over the limit.
type fakeConn struct {
	msgs   chan []byte
	done   chan struct{}
	once   sync.Once
	closed atomic.Bool
}

func newFakeConn() *fakeConn {
	return &fakeConn{msgs: make(chan []byte, 16), done: make(chan struct{})}
}

func (c *fakeConn) ReadMessage() ([]byte, error) {
	select {
	case <-c.done:
		return nil, errConnClosed
	case data, ok := <-c.msgs:
		if !ok {
			return nil, errors.New("connection reset by peer")
		}
		if data == nil {
			return nil, stream.ErrMessageTooLarge
		}
		return data, nil
	}
}

func (c *fakeConn) Close() error {
	c.once.Do(func() {
		c.closed.Store(true)
		close(c.done)
	})
	return nil
}

func (c *fakeConn) send(frame string) {
	c.msgs <- []byte(frame)
}

func (c *fakeConn) sendOversized() {
	c.msgs <- nil
}

func (c *fakeConn) drop() {
	close(c.msgs)
}

type dialFunc func(ctx context.Context) (stream.Conn, error)

// fakeDialer hands out queued dial results in order; once the queue is empty
// every dial fails.
type fakeDialer struct {
	mu    sync.Mutex
	queue []dialFunc
	dials atomic.Int32
}

func (d *fakeDialer) Dial(ctx context.Context) (stream.Conn, error) {
	d.dials.Add(1)
	d.mu.Lock()
	if len(d.queue) == 0 {
		d.mu.Unlock()
		return nil, errors.New("connection refused")
	}
	next := d.queue[0]
	d.queue = d.queue[1:]
	d.mu.Unlock()
	return next(ctx)
}

func (d *fakeDialer) pushConn(c *fakeConn) {
	d.push(func(context.Context) (stream.Conn, error) { return c, nil })
}

func (d *fakeDialer) pushErr(err error) {
	d.push(func(context.Context) (stream.Conn, error) { return nil, err })
}

// pushBlocking queues a handshake that never completes until ctx ends
func (d *fakeDialer) pushBlocking(started chan<- struct{}) {
	d.push(func(ctx context.Context) (stream.Conn, error) {
		close(started)
		<-ctx.Done()
		return nil, ctx.Err()
	})
}

func (d *fakeDialer) push(f dialFunc) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.queue = append(d.queue, f)
}

func testAlert(id string, severity models.Severity) models.Alert {
	return models.Alert{
		AlertID:   id,
		WorkerID:  "WORKER-1",
		SensorID:  "SENSOR-1",
		AlertType: "GAS_ALERT",
		Severity:  severity,
		Message:   "Gas level exceeded",
	}
}

func alertIDs(alerts []models.Alert) []string {
	ids := make([]string, 0, len(alerts))
	for _, a := range alerts {
		ids = append(ids, a.AlertID)
	}
	return ids
}
