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

	"github.com/angelmondragon/storefront-cart/api/controllers"
	"github.com/angelmondragon/storefront-cart/api/routes"
	"github.com/angelmondragon/storefront-cart/internal/cart"
	"github.com/angelmondragon/storefront-cart/internal/session"
	"github.com/angelmondragon/storefront-cart/internal/snapshot"
	"github.com/angelmondragon/storefront-cart/pkg/config"
	"github.com/angelmondragon/storefront-cart/pkg/enums"
	"github.com/angelmondragon/storefront-cart/pkg/logger"
	"github.com/angelmondragon/storefront-cart/pkg/metrics"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "cart-api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "cart-api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	backend, err := openSnapshotBackend(ctx, cfg, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap snapshot storage", err)
		os.Exit(1)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	cartMetrics := metrics.NewCartMetrics(reg)

	registry, err := session.NewRegistry(backend.storage, cart.Options{
		Logger:      logg,
		Metrics:     cartMetrics,
		SyncWrites:  cfg.Snapshot.SyncWrites,
		SaveTimeout: cfg.Snapshot.SaveTimeout,
	}, cartMetrics)
	if err != nil {
		logg.Error(ctx, "failed to create session registry", err)
		os.Exit(1)
	}

	waitHousekeeping, err := startHousekeeping(ctx, cfg, logg, backend, registry, reg)
	if err != nil {
		logg.Error(ctx, "failed to start housekeeping", err)
		os.Exit(1)
	}

	readiness := map[string]controllers.Pinger{}
	if p, ok := backend.storage.(snapshot.Pinger); ok {
		readiness["snapshot"] = p
	}
	if backend.redis != nil && cfg.Snapshot.Backend != enums.SnapshotBackendRedis {
		readiness["redis"] = backend.redis
	}

	pricing := cart.Pricing{
		Currency:     cfg.Pricing.Currency,
		TaxRate:      cfg.Pricing.TaxRate,
		FlatShipping: cfg.Pricing.FlatShipping,
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx = logg.WithFields(ctx, map[string]any{
		"env":              cfg.App.Env,
		"addr":             addr,
		"snapshot_backend": cfg.Snapshot.Backend.String(),
	})

	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(cfg, logg, registry, pricing, readiness, metrics.NewHTTPMetrics(reg), reg),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logg.Info(ctx, "starting cart api server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	exitCode := 0
	select {
	case <-ctx.Done():
		logg.Info(ctx, "shutdown signal received")
	case err := <-errCh:
		logg.Error(ctx, "api server stopped unexpectedly", err)
		exitCode = 1
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.App.ShutdownTimeout)
	defer cancel()

	// stop accepting requests first so no mutation races the final flush
	errs := server.Shutdown(shutdownCtx)
	stop()
	waitHousekeeping()
	errs = multierr.Append(errs, registry.Close(shutdownCtx))
	errs = multierr.Append(errs, backend.Close())
	if errs != nil {
		logg.Error(shutdownCtx, "graceful shutdown incomplete", errs)
		exitCode = 1
	} else {
		logg.Info(shutdownCtx, "cart api stopped")
	}

	cancel()
	os.Exit(exitCode)
}
