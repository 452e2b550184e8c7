package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"spendsync/internal/interfaces/scheduler"
	"spendsync/internal/shared/config"
	"spendsync/internal/shared/logger"
	"spendsync/internal/shared/telemetry"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "application error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log := logger.New(cfg.Log.Level, cfg.Log.Format)

	if cfg.Telemetry.Enabled {
		shutdownTelemetry, err := telemetry.Init(context.Background(), telemetry.Config{
			ServiceName:  cfg.Telemetry.ServiceName,
			Environment:  cfg.Telemetry.Environment,
			OTLPEndpoint: cfg.Telemetry.OTLPEndpoint,
			MetricsPort:  cfg.Telemetry.MetricsPort,
		}, log)
		if err != nil {
			return fmt.Errorf("failed to initialize telemetry: %w", err)
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdownTelemetry(ctx); err != nil {
				log.Error().Err(err).Msg("telemetry shutdown failed")
			}
		}()
	}

	deps, err := NewDependencies(cfg, log)
	if err != nil {
		return err
	}
	defer deps.Close()

	if err := deps.DB.Migrate(context.Background()); err != nil {
		return err
	}

	sched, err := startScheduler(cfg, deps, log)
	if err != nil {
		return err
	}

	handler := SetupRoutes(deps, log, cfg.Telemetry.Enabled)
	srv, serverErr := StartServer(cfg.Server.Host+":"+cfg.Server.Port, handler, log)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
	case err := <-serverErr:
		if err != nil {
			log.Error().Err(err).Msg("HTTP server failed")
		}
	}

	GracefulShutdown(srv, sched, 30*time.Second, log)
	return nil
}

func startScheduler(cfg *config.Config, deps *Dependencies, log zerolog.Logger) (*scheduler.Scheduler, error) {
	if !cfg.Scheduler.Enabled {
		log.Info().Msg("scheduler is disabled")
		return nil, nil
	}

	sched, err := scheduler.New(scheduler.Config{
		Cron:         cfg.Scheduler.Cron,
		WorkerCount:  cfg.Scheduler.WorkerCount,
		JobDelay:     cfg.Scheduler.JobDelay,
		QueueSize:    cfg.Scheduler.QueueSize,
		RunOnStartup: cfg.Scheduler.RunOnStartup,
		JobProvider: scheduler.LinkedOwnerJobs(
			deps.OwnerRepo, deps.TransactionSyncService, deps.RecurringSyncService,
			log.With().Str("component", "sync_job").Logger(),
		),
	}, log)
	if err != nil {
		return nil, err
	}

	sched.Start()
	return sched, nil
}
