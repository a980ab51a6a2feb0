package services

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/Atharvwavare/smart-safety-monitoring-system/pkg/client"
	"github.com/Atharvwavare/smart-safety-monitoring-system/pkg/errs"
	"github.com/Atharvwavare/smart-safety-monitoring-system/pkg/metrics"
	"github.com/Atharvwavare/smart-safety-monitoring-system/pkg/models"
	"github.com/Atharvwavare/smart-safety-monitoring-system/pkg/store"
)

// SubmissionOutcome tells the operator what became of a reading
type SubmissionOutcome string

const (
	OutcomeAlertGenerated SubmissionOutcome = "ALERT_GENERATED"
	OutcomeAccepted       SubmissionOutcome = "ACCEPTED"
	OutcomeError          SubmissionOutcome = "ERROR"
)

// SubmissionResult is returned for every Submit call. Merged is false when the
// generated alert had already arrived over the stream.
type SubmissionResult struct {
	Outcome SubmissionOutcome `json:"outcome"`
	Message string            `json:"message"`
	Alert   *models.Alert     `json:"alert,omitempty"`
	Merged  bool              `json:"merged"`
}

// SensorSubmissionController validates and sends sensor readings
type SensorSubmissionController struct {
	client client.SafetyClient
	store  *store.AlertStore
}

// NewSensorSubmissionController creates a new submission controller
func NewSensorSubmissionController(c client.SafetyClient, s *store.AlertStore) *SensorSubmissionController {
	return &SensorSubmissionController{client: c, store: s}
}

// Submit validates the input, sends it once and merges any alert the backend
// generated for it. Failures never touch the store and are not retried.
func (c *SensorSubmissionController) Submit(ctx context.Context, in models.SensorReadingInput) (SubmissionResult, error) {
	reading, err := models.ParseSensorReading(in)
	if err != nil {
		return c.fail(err)
	}

	resp, err := c.client.SubmitSensorData(ctx, reading)
	if err != nil {
		return c.fail(err)
	}

	if resp.Alert == nil {
		metrics.ObserveSubmission(metrics.OutcomeAccepted)
		msg := resp.Message
		if msg == "" {
			msg = "accepted, no alert"
		}
		return SubmissionResult{Outcome: OutcomeAccepted, Message: msg}, nil
	}
	if resp.Alert.AlertID == "" {
		return c.fail(errs.Decode("submit sensor data", errors.New("generated alert has no alertId")))
	}

	alert := *resp.Alert
	merged := mergeAlert(c.store, metrics.SourceSubmission, alert)
	metrics.ObserveSubmission(metrics.OutcomeAlert)

	msg := resp.Message
	if msg == "" {
		msg = "alert generated"
	}
	return SubmissionResult{
		Outcome: OutcomeAlertGenerated,
		Message: msg,
		Alert:   &alert,
		Merged:  merged,
	}, nil
}

func (c *SensorSubmissionController) fail(err error) (SubmissionResult, error) {
	metrics.ObserveSubmission(metrics.OutcomeError)
	logrus.WithField("kind", errs.KindOf(err)).Warnf("Sensor submission failed: %v", err)
	return SubmissionResult{Outcome: OutcomeError, Message: failureMessage(err)}, err
}

// failureMessage is what the operator sees for a failed submission. Transport
// failures carry their cause.
func failureMessage(err error) string {
	var e *errs.Error
	if errors.As(err, &e) && e.Kind == errs.KindTransport {
		if e.Err != nil {
			return "Failed to submit sensor data: " + e.Err.Error()
		}
		return "Failed to submit sensor data"
	}
	return errs.Message(err)
}
