package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/Atharvwavare/smart-safety-monitoring-system/pkg/config"
)

const writeWait = 10 * time.Second

// ErrMessageTooLarge is returned by ReadMessage for a frame over the read
// limit. The frame is discarded and the connection stays usable.
var ErrMessageTooLarge = errors.New("stream message exceeds read limit")

// Conn is one established push connection
type Conn interface {
	// ReadMessage blocks until the next message arrives or the connection fails.
	// ErrMessageTooLarge means only that frame was dropped.
	ReadMessage() ([]byte, error)
	// Close releases the connection. It is safe to call more than once and
	// concurrently with ReadMessage.
	Close() error
}

// Dialer opens push connections
type Dialer interface {
	Dial(ctx context.Context) (Conn, error)
}

// WebSocketDialer dials the backend's alert stream endpoint
type WebSocketDialer struct {
	URL              string
	HandshakeTimeout time.Duration
	PingPeriod       time.Duration
	PongWait         time.Duration
	ReadLimit        int64
}

// NewWebSocketDialer builds a dialer from configuration
func NewWebSocketDialer(url string, cfg *config.StreamConfig) *WebSocketDialer {
	return &WebSocketDialer{
		URL:              url,
		HandshakeTimeout: cfg.HandshakeTimeout,
		PingPeriod:       cfg.PingPeriod,
		PongWait:         cfg.PongWait,
		ReadLimit:        cfg.ReadLimit,
	}
}

// Dial performs the WebSocket handshake
func (d *WebSocketDialer) Dial(ctx context.Context) (Conn, error) {
	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: d.HandshakeTimeout,
	}

	ws, resp, err := dialer.DialContext(ctx, d.URL, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: %w (HTTP %s)", d.URL, err, resp.Status)
		}
		return nil, fmt.Errorf("dial %s: %w", d.URL, err)
	}

	c := &wsConn{
		ws:        ws,
		pongWait:  d.PongWait,
		readLimit: d.ReadLimit,
		done:      make(chan struct{}),
	}
	if d.PongWait > 0 {
		ws.SetReadDeadline(time.Now().Add(d.PongWait))
		ws.SetPongHandler(func(string) error {
			ws.SetReadDeadline(time.Now().Add(d.PongWait))
			return nil
		})
	}
	if d.PingPeriod > 0 {
		go c.keepalive(d.PingPeriod)
	}

	logrus.Infof("Alert stream connected to %s", d.URL)
	return c, nil
}

type wsConn struct {
	ws        *websocket.Conn
	pongWait  time.Duration
	readLimit int64
	done      chan struct{}
	once      sync.Once
	closeErr  error
}

// ReadMessage enforces the read limit per frame itself instead of through
// SetReadLimit, which would close the connection on the first large frame.
func (c *wsConn) ReadMessage() ([]byte, error) {
	_, r, err := c.ws.NextReader()
	if err != nil {
		return nil, err
	}
	if c.pongWait > 0 {
		c.ws.SetReadDeadline(time.Now().Add(c.pongWait))
	}
	if c.readLimit <= 0 {
		return io.ReadAll(r)
	}

	data, err := io.ReadAll(io.LimitReader(r, c.readLimit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > c.readLimit {
		if _, err := io.Copy(io.Discard, r); err != nil {
			return nil, err
		}
		return nil, ErrMessageTooLarge
	}
	return data, nil
}

func (c *wsConn) Close() error {
	c.once.Do(func() {
		close(c.done)
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
		c.closeErr = c.ws.Close()
	})
	return c.closeErr
}

// keepalive pings the server so a silently dead peer surfaces as a read
// error once the pong deadline passes.
func (c *wsConn) keepalive(period time.Duration) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			if err := c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				logrus.Debugf("Alert stream ping failed: %v", err)
				return
			}
		}
	}
}
