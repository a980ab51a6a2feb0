package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/Atharvwavare/smart-safety-monitoring-system/pkg/client"
	"github.com/Atharvwavare/smart-safety-monitoring-system/pkg/config"
	"github.com/Atharvwavare/smart-safety-monitoring-system/pkg/models"
	"github.com/Atharvwavare/smart-safety-monitoring-system/pkg/services"
	"github.com/Atharvwavare/smart-safety-monitoring-system/pkg/store"
)

func main() {
	backendURL := flag.String("backend", "http://localhost:8080/api", "backend base URL")
	metric := flag.String("metric", "temperature", "metric type to send")
	value := flag.String("value", "58", "metric value to send")
	worker := flag.String("worker", "WORKER-002", "worker ID to use")
	sensor := flag.String("sensor", "", "sensor ID to use (defaults to one derived from worker and metric)")
	count := flag.Int("count", 1, "how many readings to send")
	flag.Parse()

	if *sensor == "" {
		*sensor = fmt.Sprintf("SENSOR-%s-%s", *worker, *metric)
	}
	fmt.Printf("Spike Generator - Sending %s=%s for %s\n", *metric, *value, *worker)

	c := client.NewClient(&config.BackendConfig{BaseURL: *backendURL, Timeout: 10 * time.Second})
	controller := services.NewSensorSubmissionController(c, store.NewAlertStore())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for i := 1; i <= *count; i++ {
		result, err := controller.Submit(ctx, models.SensorReadingInput{
			SensorID:    *sensor,
			WorkerID:    *worker,
			MetricType:  *metric,
			MetricValue: *value,
		})
		if err != nil {
			log.Fatalf("Reading %d rejected: %v", i, err)
		}

		line := fmt.Sprintf("Reading %s: %s - %s", strconv.Itoa(i), result.Outcome, result.Message)
		if result.Alert != nil {
			line += fmt.Sprintf(" [%s %s, id %s]", result.Alert.Severity, result.Alert.AlertType, result.Alert.AlertID)
		}
		fmt.Println(line)
	}
}
