package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/dnscache"

	"github.com/VL13N/FullStackNexus-sub002/internal/cache"
	"github.com/VL13N/FullStackNexus-sub002/internal/config"
	"github.com/VL13N/FullStackNexus-sub002/internal/fetch"
	"github.com/VL13N/FullStackNexus-sub002/internal/server"
	"github.com/VL13N/FullStackNexus-sub002/internal/storage/sqlite"
	"github.com/VL13N/FullStackNexus-sub002/internal/telemetry"
	"github.com/VL13N/FullStackNexus-sub002/internal/worker"
)

func run(configPath string) error {
	// Load config
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	slog.Info("starting nexuscache", "version", version, "addr", cfg.Server.Addr)

	// Open snapshot database
	store, err := sqlite.New(cfg.Database.DSN)
	if err != nil {
		return err
	}
	defer store.Close()

	// Build the cache and warm it from the latest snapshot
	c, err := cache.New(cfg.CacheOptions())
	if err != nil {
		return err
	}
	defer c.Destroy()

	ctx := context.Background()
	restored, err := worker.Restore(ctx, c, store)
	if err != nil {
		return err
	}
	if restored > 0 {
		slog.Info("cache restored from snapshot", "entries", restored)
	}

	// Telemetry
	var (
		metrics  *telemetry.Metrics
		registry *prometheus.Registry
	)
	if cfg.Telemetry.Metrics.Enabled {
		registry = prometheus.NewRegistry()
		metrics = telemetry.NewMetrics(registry)
	}
	if cfg.Telemetry.Tracing.Enabled {
		shutdown, err := telemetry.SetupTracing(ctx, cfg.Telemetry.Tracing.Endpoint, cfg.Telemetry.Tracing.SampleRate)
		if err != nil {
			return err
		}
		defer shutdown(context.Background())
	}

	// Provider clients on a shared DNS-cached transport
	providers, err := fetch.NewRegistry(cfg.Providers, &dnscache.Resolver{})
	if err != nil {
		return err
	}
	fetcher := fetch.NewFetcher(c, metrics)

	// Background maintenance
	workers := []worker.Worker{worker.NewSweepWorker(c, metrics, cfg.Cache.CleanupInterval)}
	if cfg.Cache.SnapshotInterval > 0 {
		workers = append(workers, worker.NewSnapshotWorker(c, store, metrics, cfg.Cache.SnapshotInterval, cfg.Database.KeepSnapshots))
	}
	runner := worker.NewRunner(workers...)

	workerCtx, stopWorkers := context.WithCancel(ctx)
	workerErr := make(chan error, 1)
	go func() { workerErr <- runner.Run(workerCtx) }()

	// Create HTTP server
	handler := server.New(server.Deps{
		Cache:      c,
		Fetcher:    fetcher,
		Providers:  providers,
		Store:      store,
		ReadyCheck: store.Ping,
		Metrics:    metrics,
		Registry:   registry,
		AdminToken: cfg.Server.AdminToken,
	})

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Graceful shutdown
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	slog.Info("nexuscache ready", "addr", cfg.Server.Addr)

	// Wait for signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	select {
	case sig := <-sigCh:
		slog.Info("shutting down", "signal", sig)
	case err := <-errCh:
		stopWorkers()
		<-workerErr
		return err
	}

	// Shutdown: stop accepting traffic first, then let the workers take
	// their final snapshot before the cache is destroyed.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		stopWorkers()
		<-workerErr
		return err
	}

	stopWorkers()
	if err := <-workerErr; err != nil {
		return err
	}

	slog.Info("nexuscache stopped")
	return nil
}
