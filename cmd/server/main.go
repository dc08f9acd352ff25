package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rezkam/mono/internal/config"
	"github.com/rezkam/mono/internal/httpapi"
	"github.com/rezkam/mono/internal/invoker"
	"github.com/rezkam/mono/internal/manifest"
	"github.com/rezkam/mono/internal/scheduler"
	"github.com/rezkam/mono/internal/store"
	"github.com/rezkam/mono/internal/store/memory"
	"github.com/rezkam/mono/internal/store/postgres"
	"github.com/rezkam/mono/internal/store/sqlite"
	"github.com/rezkam/mono/pkg/observability"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to run: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadServerConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	lp, logger, err := observability.InitLogger(ctx, cfg.Observability.ServiceName, cfg.Observability.OTelEnabled)
	if err != nil {
		return fmt.Errorf("failed to init logger: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := lp.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "failed to shutdown logger provider", "error", err)
		}
	}()
	slog.SetDefault(logger)

	tp, err := observability.InitTracerProvider(ctx, cfg.Observability.ServiceName, cfg.Observability.OTelEnabled)
	if err != nil {
		return fmt.Errorf("failed to init tracer provider: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "failed to shutdown tracer provider", "error", err)
		}
	}()

	mp, err := observability.InitMeterProvider(ctx, cfg.Observability.ServiceName, cfg.Observability.OTelEnabled)
	if err != nil {
		return fmt.Errorf("failed to init meter provider: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := mp.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "failed to shutdown meter provider", "error", err)
		}
	}()

	slog.InfoContext(ctx, "starting agent scheduler server", "store_driver", cfg.Store.DriverOrDefault())

	st, err := openStore(ctx, cfg.Store)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			slog.ErrorContext(ctx, "failed to close store", "error", err)
		}
	}()

	rt, err := scheduler.New(scheduler.Config{
		Store:           st,
		Invoker:         invoker.NewHTTPInvoker(30*time.Second, 2),
		ManifestFetcher: manifest.NewFetcher(10 * time.Second),
	})
	if err != nil {
		return fmt.Errorf("failed to build scheduler runtime: %w", err)
	}

	router := httpapi.NewRouter(rt, 0)
	srv := &http.Server{
		Addr:              cfg.HTTP.Host + ":" + cfg.HTTP.PortOrDefault(),
		Handler:           router,
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
		IdleTimeout:       cfg.HTTP.IdleTimeout,
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
		MaxHeaderBytes:    cfg.HTTP.MaxHeaderBytes,
	}

	errResult := make(chan error, 1)
	go func() {
		slog.InfoContext(ctx, "http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errResult <- fmt.Errorf("failed to serve http: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		slog.InfoContext(ctx, "shutting down")

		shutdownTimeout := cfg.ShutdownTimeout
		if shutdownTimeout <= 0 {
			shutdownTimeout = 10 * time.Second
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.WarnContext(shutdownCtx, "http server shutdown timed out, forcing close", "error", err)
			return srv.Close()
		}
		slog.InfoContext(shutdownCtx, "http server shutdown complete")
		return nil
	case err := <-errResult:
		return err
	}
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
