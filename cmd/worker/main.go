package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rezkam/mono/internal/config"
	"github.com/rezkam/mono/internal/invoker"
	"github.com/rezkam/mono/internal/manifest"
	"github.com/rezkam/mono/internal/scheduler"
	"github.com/rezkam/mono/internal/store"
	"github.com/rezkam/mono/internal/store/memory"
	"github.com/rezkam/mono/internal/store/postgres"
	"github.com/rezkam/mono/internal/store/sqlite"
	"github.com/rezkam/mono/internal/workerloop"
	"github.com/rezkam/mono/pkg/observability"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadWorkerConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load worker config: %v\n", err)
		os.Exit(1)
	}

	loggerProvider, logger, err := observability.InitLogger(ctx, cfg.Observability.ServiceName, cfg.Observability.OTelEnabled)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	slog.SetDefault(logger)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := loggerProvider.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "logger provider shutdown failed", "error", err)
		}
	}()

	tracerProvider, err := observability.InitTracerProvider(ctx, cfg.Observability.ServiceName, cfg.Observability.OTelEnabled)
	if err != nil {
		slog.ErrorContext(ctx, "init tracer provider failed", "error", err)
		os.Exit(1)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "tracer provider shutdown failed", "error", err)
		}
	}()

	meterProvider, err := observability.InitMeterProvider(ctx, cfg.Observability.ServiceName, cfg.Observability.OTelEnabled)
	if err != nil {
		slog.ErrorContext(ctx, "init meter provider failed", "error", err)
		os.Exit(1)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := meterProvider.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "meter provider shutdown failed", "error", err)
		}
	}()

	st, err := openStore(ctx, cfg.Store)
	if err != nil {
		slog.ErrorContext(ctx, "open store failed", "driver", cfg.Store.DriverOrDefault(), "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := st.Close(); err != nil {
			slog.ErrorContext(ctx, "store close failed", "error", err)
		}
	}()

	rt, err := scheduler.New(scheduler.Config{
		Store:           st,
		Invoker:         invoker.NewHTTPInvoker(30*time.Second, 2),
		ManifestFetcher: manifest.NewFetcher(10 * time.Second),
		LeaseMs:         cfg.LeaseMs,
	})
	if err != nil {
		slog.ErrorContext(ctx, "build scheduler runtime failed", "error", err)
		os.Exit(1)
	}

	loop := workerloop.New(rt, cfg.WorkerID,
		workerloop.WithTickInterval(cfg.TickInterval),
		workerloop.WithRecoveryInterval(cfg.RecoveryInterval),
		workerloop.WithConcurrency(cfg.Concurrency),
	)

	if locker, ok := st.(workerloop.ExclusiveRunLocker); ok {
		loop = workerloop.New(rt, cfg.WorkerID,
			workerloop.WithTickInterval(cfg.TickInterval),
			workerloop.WithRecoveryInterval(cfg.RecoveryInterval),
			workerloop.WithConcurrency(cfg.Concurrency),
			workerloop.WithExclusiveRunLocker(locker),
		)
	}

	slog.InfoContext(ctx, "worker starting",
		"worker_id", cfg.WorkerID, "store_driver", cfg.Store.DriverOrDefault())

	if err := loop.Start(ctx); err != nil && ctx.Err() == nil {
		slog.ErrorContext(ctx, "worker loop exited with error", "error", err)
		os.Exit(1)
	}

	slog.InfoContext(context.Background(), "worker stopped")
}

func openStore(ctx context.Context, cfg config.StoreConfig) (store.Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.DriverOrDefault() {
	case "memory":
		return memory.New(), nil
	case "sqlite":
		return sqlite.New(cfg.Path)
	case "postgres":
		return postgres.New(ctx, cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported store driver: %s", cfg.Driver)
	}
}
