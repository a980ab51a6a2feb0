package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Atharvwavare/smart-safety-monitoring-system/pkg/config"
	"github.com/Atharvwavare/smart-safety-monitoring-system/pkg/models"
	"github.com/Atharvwavare/smart-safety-monitoring-system/pkg/services"
)

// Follow the backend's alert stream and print every alert as it is merged,
// with a periodic report of stream health.

func main() {
	config.SetupLogging(os.Getenv("LOG_LEVEL"))

	configPath := flag.String("config", "", "path to config file")
	reportEvery := flag.Duration("report", 10*time.Second, "how often to print stream statistics")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	fmt.Println("Alert Stream Monitor")
	fmt.Printf("Backend: %s\nStream:  %s\n", cfg.Backend.BaseURL, cfg.Backend.StreamURL)

	engine := services.NewEngine(cfg)
	changes, unsubscribe := engine.Store.Subscribe()
	defer unsubscribe()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	engineDone := make(chan struct{})
	go func() {
		engine.Run(ctx)
		close(engineDone)
	}()

	ticker := time.NewTicker(*reportEvery)
	defer ticker.Stop()

	seen := make(map[string]struct{})
	lastAlert := time.Now()
	for {
		select {
		case <-ctx.Done():
			<-engineDone
			stats := engine.Stream.Stats()
			fmt.Printf("\nStopped. received=%d merged=%d duplicates=%d malformed=%d\n",
				stats.Received, stats.Merged, stats.Duplicates, stats.DecodeErrors)
			return

		case <-changes:
			snap := engine.Store.Snapshot()
			// Alerts are newest first; print the unseen ones oldest first.
			for i := len(snap.Alerts) - 1; i >= 0; i-- {
				a := snap.Alerts[i]
				if _, ok := seen[a.AlertID]; ok {
					continue
				}
				seen[a.AlertID] = struct{}{}
				printAlert(a)
				lastAlert = time.Now()
			}

		case <-ticker.C:
			stats := engine.Stream.Stats()
			fmt.Printf("[%s] %s: %d alerts tracked, %d received, %d malformed\n",
				time.Now().Format("15:04:05"), engine.Stream.Connectivity(), engine.Store.Len(), stats.Received, stats.DecodeErrors)
			if idle := time.Since(lastAlert); idle > 3*(*reportEvery) {
				fmt.Printf("No new alerts for %s\n", idle.Round(time.Second))
			}
		}
	}
}

func printAlert(a models.Alert) {
	ts := "unknown time"
	if !a.Timestamp.IsZero() {
		ts = a.Timestamp.Format(time.DateTime)
	}
	fmt.Printf("%-8s %-18s worker=%s sensor=%s value=%.1f at %s\n  %s\n",
		a.Severity, a.AlertType, a.WorkerID, a.SensorID, a.TriggerValue, ts, a.Message)
}
