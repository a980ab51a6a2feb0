package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Atharvwavare/smart-safety-monitoring-system/pkg/errs"
	"github.com/Atharvwavare/smart-safety-monitoring-system/pkg/models"
	"github.com/Atharvwavare/smart-safety-monitoring-system/pkg/services"
	"github.com/Atharvwavare/smart-safety-monitoring-system/pkg/stream"
)

type mockClient struct {
	mock.Mock
}

func (m *mockClient) FetchAlerts(ctx context.Context) ([]models.Alert, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Alert), args.Error(1)
}

func (m *mockClient) FetchStatus(ctx context.Context) (models.SystemStatusSummary, error) {
	args := m.Called(ctx)
	return args.Get(0).(models.SystemStatusSummary), args.Error(1)
}

func (m *mockClient) SubmitSensorData(ctx context.Context, reading models.SensorReading) (models.SubmissionResponse, error) {
	args := m.Called(ctx, reading)
	return args.Get(0).(models.SubmissionResponse), args.Error(1)
}

type refusingDialer struct{}

func (refusingDialer) Dial(context.Context) (stream.Conn, error) {
	return nil, errors.New("connection refused")
}

// setupTestRouter creates a test router over an engine backed by client
func setupTestRouter(client *mockClient) (*echo.Echo, *services.Engine) {
	e := echo.New()
	engine := services.NewEngineWith(client, refusingDialer{}, services.ReconnectPolicy{}, 0)
	NewAPIHandler(engine).SetupRoutes(e)
	return e, engine
}

func serve(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func alert(id, worker string, severity models.Severity) models.Alert {
	return models.Alert{AlertID: id, WorkerID: worker, Severity: severity, AlertType: "TEMPERATURE_ALERT"}
}

func TestGetDashboard(t *testing.T) {
	router, engine := setupTestRouter(new(mockClient))
	engine.Store.Merge(alert("a1", "W1", models.SeverityHigh))
	engine.Store.Merge(alert("a2", "W2", models.SeverityCritical))

	rec := serve(router, http.MethodGet, "/api/dashboard", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var view DashboardView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	require.Len(t, view.Alerts, 2)
	assert.Equal(t, "a2", view.Alerts[0].AlertID)
	assert.Nil(t, view.Status)
	assert.Equal(t, models.ConnectivityDisconnected, view.Connectivity)
	assert.Equal(t, 1, view.SeverityCounts[models.SeverityCritical])
	assert.Equal(t, 0, view.SeverityCounts[models.SeverityLow])
	assert.False(t, view.Seeded)
}

func TestGetAlertsByWorker(t *testing.T) {
	router, engine := setupTestRouter(new(mockClient))
	engine.Store.Merge(alert("a1", "W1", models.SeverityHigh))
	engine.Store.Merge(alert("a2", "W2", models.SeverityLow))
	engine.Store.Merge(alert("a3", "W1", models.SeverityMedium))

	tests := []struct {
		name string
		path string
		want []string
	}{
		{"all alerts", "/api/alerts", []string{"a3", "a2", "a1"}},
		{"one worker", "/api/alerts?workerId=W1", []string{"a3", "a1"}},
		{"unknown worker", "/api/alerts?workerId=W9", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(router, http.MethodGet, tt.path, "")
			require.Equal(t, http.StatusOK, rec.Code)

			var alerts []models.Alert
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &alerts))
			ids := make([]string, 0, len(alerts))
			for _, a := range alerts {
				ids = append(ids, a.AlertID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestGetStatus(t *testing.T) {
	router, engine := setupTestRouter(new(mockClient))

	rec := serve(router, http.MethodGet, "/api/status", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	engine.Store.ReplaceStatus(models.SystemStatusSummary{TotalWorkers: 2, SystemStatus: models.SystemStatusOperational})
	rec = serve(router, http.MethodGet, "/api/status", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"totalWorkers":2,"totalAlerts":0,"criticalAlerts":0,"highAlerts":0,"systemStatus":"OPERATIONAL"}`, rec.Body.String())
}

func TestSubmitSensorData(t *testing.T) {
	generated := alert("a9", "WORKER-1", models.SeverityCritical)

	tests := []struct {
		name       string
		body       string
		resp       models.SubmissionResponse
		err        error
		called     bool
		wantStatus int
		wantAlerts int
	}{
		{
			name:       "alert generated",
			body:       `{"sensorId":"S1","workerId":"WORKER-1","metricType":"TEMPERATURE","metricValue":"60"}`,
			resp:       models.SubmissionResponse{Status: "ALERT_GENERATED", Alert: &generated},
			called:     true,
			wantStatus: http.StatusOK,
			wantAlerts: 1,
		},
		{
			name:       "invalid value",
			body:       `{"sensorId":"S1","workerId":"WORKER-1","metricType":"temperature","metricValue":"hot"}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "malformed body",
			body:       `{"sensorId":`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "backend rejects",
			body:       `{"sensorId":"S1","workerId":"WORKER-1","metricType":"gas","metricValue":"10"}`,
			err:        errs.Server("submit sensor data", "Error processing sensor data"),
			called:     true,
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name:       "backend unreachable",
			body:       `{"sensorId":"S1","workerId":"WORKER-1","metricType":"gas","metricValue":"10"}`,
			err:        errs.Transport("submit sensor data", errors.New("connection refused")),
			called:     true,
			wantStatus: http.StatusBadGateway,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := new(mockClient)
			client.On("SubmitSensorData", mock.Anything, mock.Anything).Return(tt.resp, tt.err)
			router, engine := setupTestRouter(client)

			rec := serve(router, http.MethodPost, "/api/sensor-data", tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantAlerts, engine.Store.Len())
			if tt.called {
				client.AssertNumberOfCalls(t, "SubmitSensorData", 1)
			} else {
				client.AssertNotCalled(t, "SubmitSensorData", mock.Anything, mock.Anything)
			}
		})
	}
}

func TestReloadSnapshot(t *testing.T) {
	client := new(mockClient)
	client.On("FetchAlerts", mock.Anything).Return([]models.Alert{alert("a1", "W1", models.SeverityLow)}, nil)
	client.On("FetchStatus", mock.Anything).Return(models.SystemStatusSummary{}, errs.Transport("fetch status", errors.New("timeout"))).Once()
	client.On("FetchStatus", mock.Anything).Return(models.SystemStatusSummary{TotalWorkers: 1, SystemStatus: "OPERATIONAL"}, nil)
	router, engine := setupTestRouter(client)

	rec := serve(router, http.MethodPost, "/api/snapshot/reload", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), `"kind":"TRANSPORT"`)
	assert.Zero(t, engine.Store.Len())

	rec = serve(router, http.MethodPost, "/api/snapshot/reload", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, engine.Store.Len())
}

func TestStreamConnectAndDisconnect(t *testing.T) {
	router, _ := setupTestRouter(new(mockClient))

	rec := serve(router, http.MethodPost, "/api/stream/connect", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	var view StreamView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, services.StreamClosed, view.State)
	assert.Equal(t, models.ConnectivityDisconnected, view.Connectivity)
	assert.NotEmpty(t, view.Error)

	rec = serve(router, http.MethodPost, "/api/stream/disconnect", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"state":"CLOSED","connectivity":"DISCONNECTED"}`, rec.Body.String())
}
