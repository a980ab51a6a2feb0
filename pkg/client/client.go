package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Atharvwavare/smart-safety-monitoring-system/pkg/config"
	"github.com/Atharvwavare/smart-safety-monitoring-system/pkg/errs"
	"github.com/Atharvwavare/smart-safety-monitoring-system/pkg/models"
)

// Backend paths, relative to the configured base URL
const (
	AlertsPath     = "/alerts"
	StatusPath     = "/status"
	SensorDataPath = "/sensor-data"
)

// RequestIDHeader carries a per-request id so backend logs can be correlated
const RequestIDHeader = "X-Request-ID"

// maxErrorBody bounds how much of an error response is read
const maxErrorBody = 64 * 1024

// Client talks to the safety backend's request/response endpoints
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new backend client
func NewClient(cfg *config.BackendConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	logrus.Infof("Using safety backend at %s", cfg.BaseURL)
	return NewClientWithHTTP(cfg.BaseURL, &http.Client{Timeout: timeout})
}

// NewClientWithHTTP creates a client that uses the supplied http.Client
func NewClientWithHTTP(baseURL string, httpClient *http.Client) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// FetchAlerts returns the backend's alert list, newest first
func (c *Client) FetchAlerts(ctx context.Context) ([]models.Alert, error) {
	const op = "fetch alerts"

	var alerts []models.Alert
	if err := c.getJSON(ctx, op, AlertsPath, &alerts); err != nil {
		return nil, err
	}
	if alerts == nil {
		alerts = []models.Alert{}
	}
	return alerts, nil
}

// FetchStatus returns the backend's system status summary
func (c *Client) FetchStatus(ctx context.Context) (models.SystemStatusSummary, error) {
	const op = "fetch status"

	var status models.SystemStatusSummary
	if err := c.getJSON(ctx, op, StatusPath, &status); err != nil {
		return models.SystemStatusSummary{}, err
	}
	return status, nil
}

// SubmitSensorData posts one reading. A response the backend marks as ERROR,
// or any non-2xx response with a readable message, is a SERVER error.
func (c *Client) SubmitSensorData(ctx context.Context, reading models.SensorReading) (models.SubmissionResponse, error) {
	const op = "submit sensor data"

	body, err := json.Marshal(reading)
	if err != nil {
		return models.SubmissionResponse{}, errs.New(errs.KindValidation, op, "unencodable reading", err)
	}

	resp, err := c.do(ctx, http.MethodPost, SensorDataPath, bytes.NewReader(body))
	if err != nil {
		return models.SubmissionResponse{}, errs.Transport(op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return models.SubmissionResponse{}, rejection(op, resp)
	}

	var out models.SubmissionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return models.SubmissionResponse{}, errs.Decode(op, err)
	}
	if out.Failed() {
		msg := out.Message
		if msg == "" {
			msg = "sensor data rejected"
		}
		return out, errs.Server(op, msg)
	}
	return out, nil
}

func (c *Client) getJSON(ctx context.Context, op, path string, out any) error {
	resp, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return errs.Transport(op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errs.Transport(op, fmt.Errorf("backend returned %s", resp.Status))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errs.Decode(op, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader) (*http.Response, error) {
	if c.baseURL == "" {
		return nil, fmt.Errorf("backend base URL not configured")
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	requestID := uuid.NewString()
	req.Header.Set(RequestIDHeader, requestID)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	logrus.WithFields(logrus.Fields{
		"method":    method,
		"path":      path,
		"requestId": requestID,
	}).Debug("Calling safety backend")

	return c.httpClient.Do(req)
}

// rejection turns a non-2xx submission response into an error. Bodies that
// carry a message are the backend speaking (SERVER); anything else is treated
// as a transport failure.
func rejection(op string, resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	var body map[string]any
	if err := json.Unmarshal(data, &body); err == nil {
		for _, key := range []string{"message", "error"} {
			if msg, ok := body[key].(string); ok && msg != "" {
				return errs.Server(op, msg)
			}
		}
		return errs.Server(op, fmt.Sprintf("sensor data rejected (%s)", resp.Status))
	}
	return errs.Transport(op, fmt.Errorf("backend returned %s", resp.Status))
}
