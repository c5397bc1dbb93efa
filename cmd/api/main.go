package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/toolshop/storefront/api/routes"
	"github.com/toolshop/storefront/internal/catalog"
	"github.com/toolshop/storefront/internal/checkout"
	"github.com/toolshop/storefront/internal/storefront"
	"github.com/toolshop/storefront/pkg/config"
	"github.com/toolshop/storefront/pkg/instance"
	"github.com/toolshop/storefront/pkg/logger"
	"github.com/toolshop/storefront/pkg/metrics"
)

const (
	sweepJob        = "session_sweep"
	shutdownTimeout = 10 * time.Second
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logg); err != nil {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "api server shut down gracefully")
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) (err error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	storefrontMetrics := metrics.NewStorefront(registry)
	jobMetrics := metrics.NewJobMetrics(registry)

	var cat *catalog.Catalog
	if cfg.Catalog.Path != "" {
		cat, err = catalog.Load(cfg.Catalog.Path)
	} else {
		cat, err = catalog.Default()
	}
	if err != nil {
		return err
	}

	stack, err := openStorage(ctx, cfg, logg, storefrontMetrics)
	if err != nil {
		return err
	}
	defer func() {
		for _, c := range stack.closers {
			err = multierr.Append(err, c.Close())
		}
	}()

	sessions, err := storefront.NewRegistry(storefront.RegistryParams{
		Backend:         stack.backend,
		Namespace:       cfg.Storage.Namespace,
		Catalog:         cat,
		Gateway:         checkout.NewSimulatedGateway(cfg.Checkout.PaymentFailureRate),
		Logger:          logg,
		Metrics:         storefrontMetrics,
		ShippingFee:     cfg.Checkout.ShippingFee,
		ProcessingDelay: cfg.Checkout.ProcessingDelay,
		IdleTTL:         cfg.Sessions.IdleTTL,
		InboxSize:       cfg.Sessions.InboxSize,
	})
	if err != nil {
		return err
	}

	addr := ":" + cfg.App.Port
	if port := os.Getenv("PORT"); port != "" {
		addr = ":" + port
	}
	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(cfg, logg, registry, cat, sessions, stack.readiness...),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"storage":  cfg.Storage.Driver,
		"instance": instance.GetID(),
		"catalog":  cat.Len(),
	})
	logg.Info(ctx, "starting api server")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		sweep(gctx, cfg, logg, sessions, stack.purger, jobMetrics)
		return nil
	})

	return g.Wait()
}

// sweep evicts idle sessions and purges stale SQL entries on every tick.
func sweep(ctx context.Context, cfg *config.Config, logg *logger.Logger, sessions *storefront.Registry, p purger, jm *metrics.JobMetrics) {
	if cfg.Sessions.SweepInterval <= 0 {
		return
	}
	ticker := time.NewTicker(cfg.Sessions.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			start := time.Now()
			sessions.EvictIdle(ctx, now)
			if p != nil && cfg.DB.EntryRetention > 0 {
				purged, err := p.PurgeBefore(ctx, now.Add(-cfg.DB.EntryRetention))
				if err != nil {
					jm.IncFailure(sweepJob)
					logg.Error(ctx, "purge stale session entries", err)
					continue
				}
				if purged > 0 {
					logg.Info(logg.WithField(ctx, "purged", purged), "stale session entries purged")
				}
			}
			jm.ObserveDuration(sweepJob, time.Since(start))
			jm.IncSuccess(sweepJob)
		}
	}
}
