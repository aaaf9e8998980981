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
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/offerpay-backend/api/routes"
	"github.com/angelmondragon/offerpay-backend/internal/catalog"
	"github.com/angelmondragon/offerpay-backend/internal/currency"
	"github.com/angelmondragon/offerpay-backend/internal/dispatch"
	"github.com/angelmondragon/offerpay-backend/internal/ingress"
	"github.com/angelmondragon/offerpay-backend/internal/sales"
	"github.com/angelmondragon/offerpay-backend/internal/settlement"
	"github.com/angelmondragon/offerpay-backend/pkg/config"
	"github.com/angelmondragon/offerpay-backend/pkg/db"
	"github.com/angelmondragon/offerpay-backend/pkg/env"
	"github.com/angelmondragon/offerpay-backend/pkg/instance"
	"github.com/angelmondragon/offerpay-backend/pkg/logger"
	"github.com/angelmondragon/offerpay-backend/pkg/metrics"
	"github.com/angelmondragon/offerpay-backend/pkg/migrate"
	"github.com/angelmondragon/offerpay-backend/pkg/outbox"
	"github.com/angelmondragon/offerpay-backend/pkg/redis"
	"github.com/angelmondragon/offerpay-backend/pkg/stripe"
)

const shutdownTimeout = 20 * time.Second

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
		Format:      cfg.App.LogFormat,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	settlementMetrics := metrics.NewSettlementMetrics(registry)
	dispatchMetrics := metrics.NewDispatchMetrics(registry)

	rateSource, err := currency.NewStaticSource(cfg.FX.Rates)
	if err != nil {
		logg.Error(ctx, "failed to parse fx rates", err)
		os.Exit(1)
	}
	rates, err := currency.NewCachedProvider(rateSource, redisClient, cfg.FX.TTL, logg)
	if err != nil {
		logg.Error(ctx, "failed to create rate provider", err)
		os.Exit(1)
	}

	dispatcher, err := dispatch.NewDispatcher(logg,
		dispatch.WithUserAgent(cfg.Settlement.DispatchUserAgent),
		dispatch.WithMetrics(dispatchMetrics),
	)
	if err != nil {
		logg.Error(ctx, "failed to create dispatcher", err)
		os.Exit(1)
	}
	fanOut, err := dispatch.NewFanOut(dispatcher, cfg.Settlement.DispatchTimeout, logg, dispatchMetrics,
		dispatch.NewAttributionTarget(cfg.Settlement.PlatformName, rates, cfg.FX.ReportingCurrency),
		dispatch.NewAdConversionTarget(cfg.AdConversion),
		dispatch.NewAccessTarget(),
	)
	if err != nil {
		logg.Error(ctx, "failed to create dispatch fan-out", err)
		os.Exit(1)
	}

	settlementService, err := settlement.NewService(settlement.ServiceParams{
		Tx:         dbClient,
		Sales:      sales.NewRepository(dbClient.DB()),
		Offers:     catalog.NewRepository(dbClient.DB()),
		Outbox:     outbox.NewService(outbox.NewRepository(dbClient.DB()), logg),
		Dispatcher: fanOut,
		Metrics:    settlementMetrics,
		Logger:     logg,
		FeeBps:     cfg.Settlement.PlatformFeeBps,
	})
	if err != nil {
		logg.Error(ctx, "failed to create settlement service", err)
		os.Exit(1)
	}

	guard, err := ingress.NewSettledGuard(redisClient, cfg.Settlement.SettledMarkerTTL, logg)
	if err != nil {
		logg.Error(ctx, "failed to create settled guard", err)
		os.Exit(1)
	}
	ingressService, err := ingress.NewService(ingress.ServiceParams{
		Settlement: settlementService,
		Guard:      guard,
		Logger:     logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to create ingress service", err)
		os.Exit(1)
	}

	var stripeVerifier *stripe.Verifier
	if cfg.Stripe.Secret != "" {
		stripeVerifier, err = stripe.NewVerifier(cfg.Stripe)
		if err != nil {
			logg.Error(ctx, "failed to create stripe verifier", err)
			os.Exit(1)
		}
	}

	addr := ":" + env.Get("PORT", cfg.App.Port)
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instance.GetID(),
		"fee_bps":  cfg.Settlement.PlatformFeeBps,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
			ingressService,
			stripeVerifier,
		),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
	}

	logg.Info(ctx, "shutting down api server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logg.Error(shutdownCtx, "api server shutdown failed", err)
	}
	if err := fanOut.Wait(shutdownCtx); err != nil {
		logg.Error(shutdownCtx, "pending dispatches abandoned at shutdown", err)
	}
}
