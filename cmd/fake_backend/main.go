package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Atharvwavare/smart-safety-monitoring-system/pkg/config"
	"github.com/Atharvwavare/smart-safety-monitoring-system/pkg/e2e"
)

// Serves an in-memory safety backend for local runs of the dashboard,
// simulator and stream monitor.

func main() {
	config.SetupLogging(os.Getenv("LOG_LEVEL"))

	addr := flag.String("addr", ":8080", "listen address")
	flag.Parse()

	backend := e2e.NewBackend()

	go func() {
		logrus.Infof("Fake safety backend listening on %s", *addr)
		if err := backend.Start(*addr); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("Failed to start fake backend: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	backend.DisconnectAll()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := backend.Echo().Shutdown(ctx); err != nil {
		logrus.Errorf("Fake backend forced to shutdown: %v", err)
	}
	logrus.Info("Fake backend stopped")
}
