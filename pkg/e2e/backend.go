// Package e2e contains an in-process safety backend that serves the REST and
// alert stream endpoints the dashboard consumes, plus end-to-end tests of the
// engine against it.
package e2e

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/Atharvwavare/smart-safety-monitoring-system/pkg/models"
)

// LocalDateTimeLayout is how the backend renders timestamps: no zone
const LocalDateTimeLayout = "2006-01-02T15:04:05.000000"

// wireAlert is an Alert as the backend serializes it
type wireAlert struct {
	AlertID      string  `json:"alertId"`
	WorkerID     string  `json:"workerId"`
	SensorID     string  `json:"sensorId"`
	Message      string  `json:"message"`
	Severity     string  `json:"severity"`
	AlertType    string  `json:"alertType"`
	TriggerValue float64 `json:"triggerValue"`
	Timestamp    string  `json:"timestamp"`
}

func toWire(a models.Alert) wireAlert {
	return wireAlert{
		AlertID:      a.AlertID,
		WorkerID:     a.WorkerID,
		SensorID:     a.SensorID,
		Message:      a.Message,
		Severity:     string(a.Severity),
		AlertType:    a.AlertType,
		TriggerValue: a.TriggerValue,
		Timestamp:    a.Timestamp.Format(LocalDateTimeLayout),
	}
}

// Backend is a fake safety monitoring backend
type Backend struct {
	mu      sync.RWMutex
	alerts  []models.Alert
	workers map[string]struct{}
	failing bool

	hub  *hub
	echo *echo.Echo
	now  func() time.Time
}

// NewBackend creates a backend with no alerts and no known workers
func NewBackend() *Backend {
	b := &Backend{
		workers: make(map[string]struct{}),
		hub:     newHub(),
		now:     time.Now,
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.GET("/api/alerts", b.getAlerts)
	e.GET("/api/alerts/worker/:workerId", b.getWorkerAlerts)
	e.GET("/api/status", b.getStatus)
	e.POST("/api/sensor-data", b.receiveSensorData)
	e.POST("/api/alerts/manual", b.createManualAlert)
	e.DELETE("/api/alerts/clear", b.clearAlerts)
	e.GET("/ws-alerts", b.streamAlerts)
	b.echo = e

	return b
}

// Handler returns the HTTP handler serving every backend endpoint
func (b *Backend) Handler() http.Handler {
	return b.echo
}

// Start serves the backend on address until Shutdown is called
func (b *Backend) Start(address string) error {
	return b.echo.Start(address)
}

// Echo exposes the router so callers can shut it down gracefully
func (b *Backend) Echo() *echo.Echo {
	return b.echo
}

// Publish records alert as the newest one and broadcasts it to subscribers
func (b *Backend) Publish(alert models.Alert) {
	b.mu.Lock()
	b.alerts = append([]models.Alert{alert}, b.alerts...)
	b.mu.Unlock()

	frame, err := json.Marshal(toWire(alert))
	if err != nil {
		logrus.Errorf("Error marshalling alert for broadcast: %v", err)
		return
	}
	b.hub.broadcast(frame)
}

// InjectFrame broadcasts an arbitrary text frame, well-formed or not
func (b *Backend) InjectFrame(frame string) {
	b.hub.broadcast([]byte(frame))
}

// DisconnectAll drops every stream subscriber from the server side
func (b *Backend) DisconnectAll() {
	b.hub.disconnectAll()
}

// Subscribers returns the number of connected stream subscribers
func (b *Backend) Subscribers() int {
	return b.hub.count()
}

// SetFailing makes every REST endpoint answer 500 until reset
func (b *Backend) SetFailing(failing bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failing = failing
}

// Alerts returns the backend's history, newest first
func (b *Backend) Alerts() []models.Alert {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]models.Alert(nil), b.alerts...)
}

func (b *Backend) isFailing() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.failing
}

func (b *Backend) getAlerts(c echo.Context) error {
	if b.isFailing() {
		return c.String(http.StatusInternalServerError, "Internal Server Error")
	}
	return c.JSON(http.StatusOK, b.wireAlerts(""))
}

func (b *Backend) getWorkerAlerts(c echo.Context) error {
	if b.isFailing() {
		return c.String(http.StatusInternalServerError, "Internal Server Error")
	}
	return c.JSON(http.StatusOK, b.wireAlerts(c.Param("workerId")))
}

func (b *Backend) wireAlerts(workerID string) []wireAlert {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]wireAlert, 0, len(b.alerts))
	for _, a := range b.alerts {
		if workerID == "" || a.WorkerID == workerID {
			out = append(out, toWire(a))
		}
	}
	return out
}

func (b *Backend) getStatus(c echo.Context) error {
	if b.isFailing() {
		return c.String(http.StatusInternalServerError, "Internal Server Error")
	}

	b.mu.RLock()
	status := models.SystemStatusSummary{
		TotalWorkers: len(b.workers),
		TotalAlerts:  len(b.alerts),
		SystemStatus: models.SystemStatusOperational,
	}
	for _, a := range b.alerts {
		switch a.Severity {
		case models.SeverityCritical:
			status.CriticalAlerts++
		case models.SeverityHigh:
			status.HighAlerts++
		}
	}
	b.mu.RUnlock()

	return c.JSON(http.StatusOK, status)
}

func (b *Backend) receiveSensorData(c echo.Context) error {
	var r Reading
	if err := c.Bind(&r); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"status": http.StatusBadRequest,
			"error":  "Bad Request",
			"path":   c.Request().URL.Path,
		})
	}
	if strings.TrimSpace(r.SensorID) == "" || strings.TrimSpace(r.WorkerID) == "" || strings.TrimSpace(r.MetricType) == "" {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"status": http.StatusBadRequest,
			"error":  "Bad Request",
			"path":   c.Request().URL.Path,
		})
	}
	if b.isFailing() {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"status":  models.SubmissionStatusError,
			"message": "Error processing sensor data: analysis unavailable",
		})
	}

	b.mu.Lock()
	b.workers[r.WorkerID] = struct{}{}
	b.mu.Unlock()

	alert := Analyze(r, b.now())
	if alert == nil {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"status":  "DATA_PROCESSED",
			"message": "Sensor data processed successfully - no alerts",
		})
	}

	b.Publish(*alert)
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":  "ALERT_GENERATED",
		"message": "Safety alert generated and broadcasted",
		"alert":   toWire(*alert),
	})
}

func (b *Backend) createManualAlert(c echo.Context) error {
	var a models.Alert
	if err := c.Bind(&a); err != nil || a.AlertID == "" {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"status":  models.SubmissionStatusError,
			"message": "Error creating manual alert: alertId is required",
		})
	}
	if a.Timestamp.IsZero() {
		a.Timestamp = b.now()
	}
	b.Publish(a)
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":  "SUCCESS",
		"message": "Manual alert created and broadcasted",
		"alert":   toWire(a),
	})
}

func (b *Backend) clearAlerts(c echo.Context) error {
	b.mu.Lock()
	b.alerts = nil
	b.mu.Unlock()
	return c.JSON(http.StatusOK, map[string]string{"status": "SUCCESS", "message": "All alerts cleared"})
}

func (b *Backend) streamAlerts(c echo.Context) error {
	if err := b.hub.serve(c.Response(), c.Request()); err != nil {
		logrus.Warnf("Alert stream upgrade failed: %v", err)
	}
	return nil
}
