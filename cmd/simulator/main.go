package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Atharvwavare/smart-safety-monitoring-system/pkg/client"
	"github.com/Atharvwavare/smart-safety-monitoring-system/pkg/config"
	"github.com/Atharvwavare/smart-safety-monitoring-system/pkg/models"
	"github.com/Atharvwavare/smart-safety-monitoring-system/pkg/services"
	"github.com/Atharvwavare/smart-safety-monitoring-system/pkg/store"
)

const (
	defaultWorkerCount = 5
	defaultIntervalMs  = 1000
)

// normalRange is where a healthy reading for a metric falls
type normalRange struct {
	min, max float64
}

var normalRanges = map[models.MetricType]normalRange{
	models.MetricTemperature: {22, 38},
	models.MetricGas:         {5, 40},
	models.MetricNoise:       {55, 80},
	models.MetricHeartRate:   {65, 95},
	models.MetricOxygen:      {96, 99.5},
}

var anomalyRanges = map[models.MetricType]normalRange{
	models.MetricTemperature: {46, 62},
	models.MetricGas:         {55, 140},
	models.MetricNoise:       {88, 115},
	models.MetricHeartRate:   {125, 150},
	models.MetricOxygen:      {84, 94},
}

func main() {
	config.SetupLogging(os.Getenv("LOG_LEVEL"))

	backendURL := getEnv("BACKEND_URL", "http://localhost:8080/api")
	workerCount, _ := strconv.Atoi(getEnv("WORKER_COUNT", fmt.Sprintf("%d", defaultWorkerCount)))
	intervalMs, _ := strconv.Atoi(getEnv("INTERVAL_MS", fmt.Sprintf("%d", defaultIntervalMs)))
	anomalyOdds, _ := strconv.Atoi(getEnv("ANOMALY_ODDS", "20"))
	if anomalyOdds < 1 {
		anomalyOdds = 1
	}

	c := client.NewClient(&config.BackendConfig{BaseURL: backendURL, Timeout: 10 * time.Second})
	alerts := store.NewAlertStore()
	controller := services.NewSensorSubmissionController(c, alerts)

	runID := uuid.NewString()[:8]
	logrus.Infof("Simulating %d workers against %s every %d ms (run %s)", workerCount, backendURL, intervalMs, runID)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ticker := time.NewTicker(time.Duration(intervalMs) * time.Millisecond)
	defer ticker.Stop()

	var sent, generated, failed int
	for {
		select {
		case <-ctx.Done():
			logrus.Infof("Simulator stopped: %d readings sent, %d alerts generated, %d failures", sent, generated, failed)
			return
		case <-ticker.C:
			for i := 1; i <= workerCount; i++ {
				in := generateReading(runID, i, rand.Intn(anomalyOdds) == 0)
				result, err := controller.Submit(ctx, in)
				sent++
				if err != nil {
					failed++
					logrus.Errorf("Error sending reading for %s: %v", in.WorkerID, err)
					continue
				}
				if result.Outcome == services.OutcomeAlertGenerated {
					generated++
					logrus.Warnf("Alert for %s: [%s] %s", in.WorkerID, result.Alert.Severity, result.Alert.Message)
				}
			}
			logrus.Debugf("Tracked alerts: %d", alerts.Len())
		}
	}
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// generateReading picks a random metric for the worker and a value that is
// either healthy or, when anomaly is set, past the backend's thresholds.
func generateReading(runID string, worker int, anomaly bool) models.SensorReadingInput {
	metric := models.MetricTypes[rand.Intn(len(models.MetricTypes))]
	r := normalRanges[metric]
	if anomaly {
		r = anomalyRanges[metric]
	}
	value := r.min + rand.Float64()*(r.max-r.min)

	return models.SensorReadingInput{
		SensorID:    fmt.Sprintf("SENSOR-%s-%d-%s", runID, worker, metric),
		WorkerID:    fmt.Sprintf("WORKER-%03d", worker),
		MetricType:  string(metric),
		MetricValue: strconv.FormatFloat(value, 'f', 1, 64),
	}
}
