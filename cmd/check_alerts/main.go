package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/Atharvwavare/smart-safety-monitoring-system/pkg/client"
	"github.com/Atharvwavare/smart-safety-monitoring-system/pkg/config"
	"github.com/Atharvwavare/smart-safety-monitoring-system/pkg/errs"
	"github.com/Atharvwavare/smart-safety-monitoring-system/pkg/services"
	"github.com/Atharvwavare/smart-safety-monitoring-system/pkg/store"
)

func main() {
	backendURL := flag.String("backend", "http://localhost:8080/api", "backend base URL")
	worker := flag.String("worker", "", "only show alerts for this worker")
	limit := flag.Int("limit", 10, "number of alerts to print")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	c := client.NewClient(&config.BackendConfig{BaseURL: *backendURL, Timeout: 10 * time.Second})
	alerts := store.NewAlertStore()

	fmt.Printf("Loading dashboard snapshot from %s...\n", *backendURL)
	if err := services.NewSnapshotLoader(c, alerts).Load(ctx); err != nil {
		log.Fatalf("Failed to load snapshot (%s): %v", errs.KindOf(err), err)
	}

	snap := alerts.Snapshot()
	fmt.Printf("System status: %s, %d workers, %d alerts (%d critical, %d high)\n",
		snap.Status.SystemStatus, snap.Status.TotalWorkers, snap.Status.TotalAlerts,
		snap.Status.CriticalAlerts, snap.Status.HighAlerts)

	list := snap.Alerts
	if *worker != "" {
		list = snap.ByWorker(*worker)
	}
	if len(list) == 0 {
		fmt.Println("No alerts found.")
		return
	}

	for i, a := range list {
		if i == *limit {
			fmt.Printf("... and %d more\n", len(list)-*limit)
			break
		}
		fmt.Printf("%s  %-8s %-18s %s  %s\n", a.Timestamp.Format(time.DateTime), a.Severity, a.AlertType, a.WorkerID, a.Message)
	}

	counts := snap.CountBySeverity()
	fmt.Printf("By severity: CRITICAL=%d HIGH=%d MEDIUM=%d LOW=%d\n",
		counts["CRITICAL"], counts["HIGH"], counts["MEDIUM"], counts["LOW"])
}
