package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/Atharvwavare/smart-safety-monitoring-system/pkg/errs"
	"github.com/Atharvwavare/smart-safety-monitoring-system/pkg/models"
	"github.com/Atharvwavare/smart-safety-monitoring-system/pkg/services"
)

// DashboardView is everything an operator screen renders
type DashboardView struct {
	Alerts           []models.Alert              `json:"alerts"`
	Status           *models.SystemStatusSummary `json:"status"`
	Connectivity     models.ConnectivityState    `json:"connectivity"`
	StreamState      services.StreamState        `json:"streamState"`
	SeverityCounts   map[models.Severity]int     `json:"severityCounts"`
	Seeded           bool                        `json:"seeded"`
	Version          uint64                      `json:"version"`
	StreamStats      services.StreamStats        `json:"streamStats"`
	ReconnectEnabled bool                        `json:"reconnectEnabled"`
}

// StreamView reports the stream after a connect or disconnect request
type StreamView struct {
	State        services.StreamState     `json:"state"`
	Connectivity models.ConnectivityState `json:"connectivity"`
	Error        string                   `json:"error,omitempty"`
}

// APIHandler serves the read-only dashboard surface over the engine
type APIHandler struct {
	engine *services.Engine
}

// NewAPIHandler creates a new API handler
func NewAPIHandler(engine *services.Engine) *APIHandler {
	return &APIHandler{engine: engine}
}

// GetDashboard returns the alerts, status and connectivity in one read
func (h *APIHandler) GetDashboard(c echo.Context) error {
	snap := h.engine.Store.Snapshot()
	return c.JSON(http.StatusOK, DashboardView{
		Alerts:           snap.Alerts,
		Status:           snap.Status,
		Connectivity:     h.engine.Stream.Connectivity(),
		StreamState:      h.engine.Stream.State(),
		SeverityCounts:   snap.CountBySeverity(),
		Seeded:           snap.Seeded,
		Version:          snap.Version,
		StreamStats:      h.engine.Stream.Stats(),
		ReconnectEnabled: h.engine.Reconnector.Policy().Enabled,
	})
}

// GetAlerts returns the alerts held locally, optionally for one worker
func (h *APIHandler) GetAlerts(c echo.Context) error {
	snap := h.engine.Store.Snapshot()
	if workerID := c.QueryParam("workerId"); workerID != "" {
		return c.JSON(http.StatusOK, snap.ByWorker(workerID))
	}
	return c.JSON(http.StatusOK, snap.Alerts)
}

// GetStatus returns the last loaded status summary
func (h *APIHandler) GetStatus(c echo.Context) error {
	snap := h.engine.Store.Snapshot()
	if snap.Status == nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "System status not loaded yet"})
	}
	return c.JSON(http.StatusOK, snap.Status)
}

// SubmitSensorData forwards an operator's reading to the backend
func (h *APIHandler) SubmitSensorData(c echo.Context) error {
	var in models.SensorReadingInput
	if err := c.Bind(&in); err != nil {
		logrus.Errorf("Error binding sensor data request: %v", err)
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request format"})
	}

	result, err := h.engine.Submissions.Submit(c.Request().Context(), in)
	if err != nil {
		return c.JSON(statusFor(err), result)
	}
	return c.JSON(http.StatusOK, result)
}

// ReloadSnapshot re-runs the initial load against the backend
func (h *APIHandler) ReloadSnapshot(c echo.Context) error {
	if err := h.engine.Loader.Load(c.Request().Context()); err != nil {
		return c.JSON(statusFor(err), map[string]string{"error": errs.Message(err), "kind": string(errs.KindOf(err))})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"message": "Snapshot reloaded",
		"alerts":  h.engine.Store.Len(),
	})
}

// ConnectStream opens the alert stream if it is not already open
func (h *APIHandler) ConnectStream(c echo.Context) error {
	err := h.engine.Stream.Start(c.Request().Context())
	view := h.streamView()
	if err != nil {
		view.Error = err.Error()
		return c.JSON(statusFor(err), view)
	}
	return c.JSON(http.StatusOK, view)
}

// DisconnectStream closes the alert stream
func (h *APIHandler) DisconnectStream(c echo.Context) error {
	h.engine.Stream.Stop()
	return c.JSON(http.StatusOK, h.streamView())
}

func (h *APIHandler) streamView() StreamView {
	return StreamView{
		State:        h.engine.Stream.State(),
		Connectivity: h.engine.Stream.Connectivity(),
	}
}

func statusFor(err error) int {
	if errors.Is(err, services.ErrStreamStopped) {
		return http.StatusConflict
	}
	switch errs.KindOf(err) {
	case errs.KindValidation:
		return http.StatusBadRequest
	case errs.KindServer:
		return http.StatusUnprocessableEntity
	case errs.KindTransport, errs.KindDecode:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// SetupRoutes sets up the API routes
func (h *APIHandler) SetupRoutes(e *echo.Echo) {
	e.GET("/api/dashboard", h.GetDashboard)
	e.GET("/api/alerts", h.GetAlerts)
	e.GET("/api/status", h.GetStatus)
	e.POST("/api/sensor-data", h.SubmitSensorData)

	e.POST("/api/snapshot/reload", h.ReloadSnapshot)
	e.POST("/api/stream/connect", h.ConnectStream)
	e.POST("/api/stream/disconnect", h.DisconnectStream)
}
