package client

import (
	"context"

	"github.com/Atharvwavare/smart-safety-monitoring-system/pkg/models"
)

// SafetyClient defines the request/response calls made to the safety backend.
// This allows us to mock the backend for testing.
type SafetyClient interface {
	FetchAlerts(ctx context.Context) ([]models.Alert, error)
	FetchStatus(ctx context.Context) (models.SystemStatusSummary, error)
	SubmitSensorData(ctx context.Context, reading models.SensorReading) (models.SubmissionResponse, error)
}

// Ensure Client implements SafetyClient
var _ SafetyClient = (*Client)(nil)
