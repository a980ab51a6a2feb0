package e2e

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Atharvwavare/smart-safety-monitoring-system/pkg/models"
)

// Thresholds used by the backend's safety analysis
const (
	TemperatureThreshold = 45.0
	GasThreshold         = 50.0
	NoiseThreshold       = 85.0
	HeartRateMin         = 60.0
	HeartRateMax         = 100.0
	OxygenMin            = 95.0
	genericThreshold     = 75.0
)

// Reading is the sensor-data body as the backend accepts it
type Reading struct {
	SensorID    string  `json:"sensorId"`
	WorkerID    string  `json:"workerId"`
	MetricType  string  `json:"metricType"`
	MetricValue float64 `json:"metricValue"`
}

// Analyze returns the alert a reading raises, or nil when it is within limits
func Analyze(r Reading, now time.Time) *models.Alert {
	v := r.MetricValue
	switch strings.ToLower(r.MetricType) {
	case string(models.MetricTemperature):
		if v > TemperatureThreshold {
			sev := models.SeverityHigh
			if v > TemperatureThreshold+10 {
				sev = models.SeverityCritical
			}
			return newAlert(r, now, sev, "TEMPERATURE_ALERT",
				fmt.Sprintf("High temperature detected: %.1f°C. Worker safety at risk!", v))
		}
	case string(models.MetricGas):
		if v > GasThreshold {
			sev := models.SeverityHigh
			if v > GasThreshold*2 {
				sev = models.SeverityCritical
			}
			return newAlert(r, now, sev, "GAS_ALERT",
				fmt.Sprintf("Dangerous gas level detected: %.1f PPM. Immediate evacuation required!", v))
		}
	case string(models.MetricNoise):
		if v > NoiseThreshold {
			sev := models.SeverityMedium
			if v > NoiseThreshold+15 {
				sev = models.SeverityHigh
			}
			return newAlert(r, now, sev, "NOISE_ALERT",
				fmt.Sprintf("Excessive noise level: %.1f dB. Hearing protection required!", v))
		}
	case string(models.MetricHeartRate):
		if v < HeartRateMin || v > HeartRateMax {
			sev := models.SeverityHigh
			if v < 50 || v > 120 {
				sev = models.SeverityCritical
			}
			msg := fmt.Sprintf("High heart rate detected: %.0f BPM. Worker may be in distress!", v)
			if v < HeartRateMin {
				msg = fmt.Sprintf("Low heart rate detected: %.0f BPM. Medical attention needed!", v)
			}
			return newAlert(r, now, sev, "HEALTH_ALERT", msg)
		}
	case string(models.MetricOxygen):
		if v < OxygenMin {
			sev := models.SeverityHigh
			if v < 90 {
				sev = models.SeverityCritical
			}
			return newAlert(r, now, sev, "HEALTH_ALERT",
				fmt.Sprintf("Low oxygen saturation: %.1f%%. Immediate medical attention required!", v))
		}
	default:
		if v > genericThreshold {
			sev := models.SeverityMedium
			if v > 90 {
				sev = models.SeverityHigh
			}
			return newAlert(r, now, sev, "GENERIC_ALERT",
				fmt.Sprintf("Safety threshold exceeded for %s: %.1f", r.MetricType, v))
		}
	}
	return nil
}

func newAlert(r Reading, now time.Time, severity models.Severity, alertType, message string) *models.Alert {
	return &models.Alert{
		AlertID:      uuid.NewString(),
		WorkerID:     r.WorkerID,
		SensorID:     r.SensorID,
		AlertType:    alertType,
		Severity:     severity,
		Message:      message,
		TriggerValue: r.MetricValue,
		Timestamp:    now,
	}
}
