package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/Atharvwavare/smart-safety-monitoring-system/pkg/api"
	"github.com/Atharvwavare/smart-safety-monitoring-system/pkg/config"
	"github.com/Atharvwavare/smart-safety-monitoring-system/pkg/metrics"
	"github.com/Atharvwavare/smart-safety-monitoring-system/pkg/services"
)

// @title Safety Monitoring Dashboard API
// @version 1.0
// @description Live worker-safety alerts kept in sync with the monitoring backend
// @BasePath /api

func main() {
	config.SetupLogging(os.Getenv("LOG_LEVEL"))

	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Metrics.Enabled {
		if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
			logrus.Fatalf("Failed to register metrics: %v", err)
		}
	}

	engine := services.NewEngine(cfg)
	ctx, cancel := context.WithCancel(context.Background())
	engineDone := make(chan struct{})
	go func() {
		engine.Run(ctx)
		close(engineDone)
	}()
	logrus.WithFields(logrus.Fields{
		"backend": cfg.Backend.BaseURL,
		"stream":  cfg.Backend.StreamURL,
	}).Info("Dashboard sync engine started")

	e := echo.New()

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: strings.Split(cfg.Server.AllowedOrigins, ","),
	}))

	apiHandler := api.NewAPIHandler(engine)
	apiHandler.SetupRoutes(e)

	if cfg.Metrics.Enabled {
		e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	}

	e.GET("/swagger/*", echo.WrapHandler(httpSwagger.Handler()))

	// Use PORT environment variable if available, otherwise use config
	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.Server.Port
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", port),
		Handler:      e,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logrus.Infof("Starting dashboard on port %s", port)
		if err := e.StartServer(server); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("Shutting down dashboard...")

	cancel()
	<-engineDone
	logrus.Info("Sync engine stopped")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer shutdownCancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logrus.Fatalf("Server forced to shutdown: %v", err)
	}

	logrus.Info("Server exited properly")
}
