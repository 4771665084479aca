package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/cmlabs-hris/bio-attendance-go/internal/app"
	"github.com/cmlabs-hris/bio-attendance-go/internal/config"
	"github.com/cmlabs-hris/bio-attendance-go/internal/pkg/cron"
	"github.com/cmlabs-hris/bio-attendance-go/internal/worker"
	"github.com/hibiken/asynq"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		fmt.Println("Error loading config:", err)
		os.Exit(1)
	}
	app.SetupLogger(cfg.App)

	if !cfg.Redis.Enabled() {
		slog.Error("REDIS_ADDR is required to run the worker")
		os.Exit(1)
	}

	container, err := app.New(ctx, cfg)
	if err != nil {
		slog.Error("Failed to start", "error", err)
		os.Exit(1)
	}
	defer container.Close()

	scheduler := cron.NewScheduler()
	cron.NewImportJobs(container.Imports, container.Queue, cfg.Resolver.StaleImportAfter).RegisterJobs(scheduler)
	cron.NewAttendanceJobs(container.Processor, container.Location, cfg.Resolver.AbsenceSweepLagDays).RegisterJobs(scheduler)
	scheduler.Start(ctx)
	defer scheduler.Stop()

	server := asynq.NewServer(app.RedisOpt(cfg.Redis), asynq.Config{
		Concurrency: cfg.Resolver.Workers,
	})
	processor := worker.NewImportProcessor(container.Service)

	go func() {
		<-ctx.Done()
		server.Shutdown()
	}()

	slog.Info("Worker running", "redis", cfg.Redis.Addr)
	if err := server.Run(processor.Handler()); err != nil {
		slog.Error("Worker stopped", "error", err)
	}
}
