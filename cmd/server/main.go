// Package main is the entry point for the robotplane control-plane server.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"robotplane/internal/actuator"
	"robotplane/internal/config"
	"robotplane/internal/logger"
	"robotplane/internal/mission"
	"robotplane/internal/observability"
	"robotplane/internal/safety"
	"robotplane/internal/server"
	"robotplane/internal/server/handlers"
	"robotplane/internal/store/file"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	slogger := logger.New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Storage
	st, err := file.New(cfg.DataDir)
	if err != nil {
		log.Fatalf("Failed to open data dir: %v", err)
	}

	// Tracing
	shutdownTracer, err := observability.InitTracer(ctx, "robotplane-server", cfg.OTELEndpoint)
	if err != nil {
		log.Fatalf("Failed to init tracing: %v", err)
	}
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			log.Printf("Failed to shutdown tracer: %v", err)
		}
	}()

	// Metrics
	metricsHandler, shutdownMetrics, err := observability.InitMetrics()
	if err != nil {
		log.Fatalf("Failed to init metrics: %v", err)
	}
	defer func() {
		if err := shutdownMetrics(context.Background()); err != nil {
			log.Printf("Failed to shutdown metrics: %v", err)
		}
	}()

	// Robot actuator and execution engine
	robot := actuator.NewClient(cfg.RobotAPIURL, cfg.RobotAPISecret, slogger)
	gate := safety.New(robot, slogger)
	executor := mission.NewExecutor(robot, gate, slogger)
	executor.NudgeBeforeJackUp = cfg.JackNudge

	queue, err := mission.NewManager(ctx, st, executor, slogger, mission.ManagerConfig{
		RobotID:    cfg.RobotID,
		Interval:   cfg.QueueInterval,
		MaxRetries: cfg.StepMaxRetries,
	})
	if err != nil {
		log.Fatalf("Failed to load mission queue: %v", err)
	}

	// Observable gauge that reads the queue only when scraped.
	meter := otel.Meter("robotplane-server")
	_, err = meter.Int64ObservableGauge("robotplane.missions.active",
		metric.WithDescription("Current number of pending or in-progress missions"),
		metric.WithInt64Callback(func(ctx context.Context, obs metric.Int64Observer) error {
			obs.Observe(queue.ActiveCount())
			return nil
		}),
	)
	if err != nil {
		log.Printf("Failed to register active-missions metric: %v", err)
	}

	// Background mission processing; a restart resumes persisted work.
	go func() {
		if err := queue.Run(ctx); err != nil && err != context.Canceled {
			slogger.Error("mission queue stopped", "error", err)
		}
	}()

	h := handlers.New(queue, robot, st, slogger)
	srv := server.New(server.Config{
		Addr:           fmt.Sprintf(":%d", cfg.HTTPPort),
		OperatorToken:  cfg.OperatorToken,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
	}, h, metricsHandler)

	go func() {
		log.Printf("Robotplane control plane starting on :%d (robot %s)", cfg.HTTPPort, cfg.RobotID)
		if err := srv.Run(ctx); err != nil {
			log.Printf("Server stopped: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down control plane...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}
	log.Println("Server exited properly")
}
