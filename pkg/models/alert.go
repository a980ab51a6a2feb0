package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Severity represents the operator-visible urgency of an alert
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// Severities lists the known severities from least to most urgent
var Severities = []Severity{SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical}

// Rank orders severities by urgency. Unknown values rank below LOW.
func (s Severity) Rank() int {
	switch Severity(strings.ToUpper(string(s))) {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	case SeverityCritical:
		return 4
	default:
		return 0
	}
}

// Alert represents one safety event raised for a worker's sensor reading
type Alert struct {
	AlertID      string    `json:"alertId"`
	WorkerID     string    `json:"workerId,omitempty"`
	SensorID     string    `json:"sensorId,omitempty"`
	AlertType    string    `json:"alertType,omitempty"`
	Severity     Severity  `json:"severity"`
	Message      string    `json:"message,omitempty"`
	TriggerValue float64   `json:"triggerValue"`
	Timestamp    time.Time `json:"timestamp"`
}

// UnmarshalJSON accepts the timestamp formats the safety backend emits,
// including zone-less local date-times and epoch milliseconds.
func (a *Alert) UnmarshalJSON(data []byte) error {
	type alertAlias Alert
	var raw struct {
		alertAlias
		Timestamp json.RawMessage `json:"timestamp"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	ts, err := ParseTimestamp(raw.Timestamp)
	if err != nil {
		return fmt.Errorf("alert %s: %w", raw.AlertID, err)
	}

	*a = Alert(raw.alertAlias)
	a.Timestamp = ts
	return nil
}

// DecodeAlert decodes a single pushed alert. The payload must be a JSON object
// carrying a non-empty alertId, since the id is what merges deduplicate on.
func DecodeAlert(data []byte) (Alert, error) {
	var alert Alert
	if err := json.Unmarshal(data, &alert); err != nil {
		return Alert{}, fmt.Errorf("invalid alert payload: %w", err)
	}
	if strings.TrimSpace(alert.AlertID) == "" {
		return Alert{}, fmt.Errorf("invalid alert payload: missing alertId")
	}
	return alert, nil
}
