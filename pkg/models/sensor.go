package models

import (
	"math"
	"strconv"
	"strings"

	"github.com/Atharvwavare/smart-safety-monitoring-system/pkg/errs"
)

// MetricType identifies which physical quantity a sensor reading measures
type MetricType string

const (
	MetricTemperature MetricType = "temperature"
	MetricGas         MetricType = "gas"
	MetricNoise       MetricType = "noise"
	MetricHeartRate   MetricType = "heartrate"
	MetricOxygen      MetricType = "oxygen"
)

// MetricTypes lists the recognized metric categories
var MetricTypes = []MetricType{MetricTemperature, MetricGas, MetricNoise, MetricHeartRate, MetricOxygen}

// ParseMetricType normalizes s and reports whether it is a recognized category
func ParseMetricType(s string) (MetricType, bool) {
	mt := MetricType(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range MetricTypes {
		if mt == known {
			return mt, true
		}
	}
	return "", false
}

// SensorReadingInput is a reading as typed by an operator, before validation
type SensorReadingInput struct {
	SensorID    string `json:"sensorId"`
	WorkerID    string `json:"workerId"`
	MetricType  string `json:"metricType"`
	MetricValue string `json:"metricValue"`
}

// SensorReading is the validated outbound body of POST /sensor-data
type SensorReading struct {
	SensorID    string     `json:"sensorId"`
	WorkerID    string     `json:"workerId"`
	MetricType  MetricType `json:"metricType"`
	MetricValue float64    `json:"metricValue"`
}

// ParseSensorReading validates operator input. Every failure is a VALIDATION error.
func ParseSensorReading(in SensorReadingInput) (SensorReading, error) {
	const op = "parse sensor reading"

	sensorID := strings.TrimSpace(in.SensorID)
	if sensorID == "" {
		return SensorReading{}, errs.Validation(op, "sensorId is required")
	}
	workerID := strings.TrimSpace(in.WorkerID)
	if workerID == "" {
		return SensorReading{}, errs.Validation(op, "workerId is required")
	}

	metricType, ok := ParseMetricType(in.MetricType)
	if !ok {
		return SensorReading{}, errs.Validation(op, "unrecognized metricType "+strconv.Quote(in.MetricType))
	}

	value, err := strconv.ParseFloat(strings.TrimSpace(in.MetricValue), 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return SensorReading{}, errs.Validation(op, "metricValue must be a finite number")
	}

	return SensorReading{
		SensorID:    sensorID,
		WorkerID:    workerID,
		MetricType:  metricType,
		MetricValue: value,
	}, nil
}

// SubmissionStatusError is the response status the backend uses for failures
const SubmissionStatusError = "ERROR"

// SubmissionResponse is the body returned by POST /sensor-data
type SubmissionResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Alert   *Alert `json:"alert,omitempty"`
}

// Failed reports whether the backend rejected the reading. Any status other
// than ERROR counts as accepted.
func (r SubmissionResponse) Failed() bool {
	return strings.EqualFold(strings.TrimSpace(r.Status), SubmissionStatusError)
}
