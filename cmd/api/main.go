package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/vinocave/vinocave-backend/api/routes"
	"github.com/vinocave/vinocave-backend/internal/cellar"
	"github.com/vinocave/vinocave-backend/internal/earnings"
	listing "github.com/vinocave/vinocave-backend/internal/listings"
	reservation "github.com/vinocave/vinocave-backend/internal/reservations"
	"github.com/vinocave/vinocave-backend/internal/sales"
	"github.com/vinocave/vinocave-backend/pkg/config"
	"github.com/vinocave/vinocave-backend/pkg/db"
	"github.com/vinocave/vinocave-backend/pkg/logger"
	"github.com/vinocave/vinocave-backend/pkg/metrics"
	"github.com/vinocave/vinocave-backend/pkg/migrate"
	"github.com/vinocave/vinocave-backend/pkg/outbox"
	"github.com/vinocave/vinocave-backend/pkg/redis"
)

const shutdownGrace = 15 * time.Second

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

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	marketMetrics := metrics.NewMarketplaceMetrics(prometheus.DefaultRegisterer)
	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	cellarService, err := cellar.NewService(cellar.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create cellar service", err)
		os.Exit(1)
	}

	listingService, err := listing.NewService(listing.NewRepository(dbClient.DB()), dbClient, cellarService, outboxService)
	if err != nil {
		logg.Error(context.Background(), "failed to create listing service", err)
		os.Exit(1)
	}

	reservationService, err := reservation.NewService(reservation.NewRepository(dbClient.DB()), dbClient, outboxService, logg, marketMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create reservation service", err)
		os.Exit(1)
	}

	feePolicy, err := sales.NewFeePolicy(cfg.Fees.PolicyVersion, cfg.Fees.RateBps)
	if err != nil {
		logg.Error(context.Background(), "invalid fee policy config", err)
		os.Exit(1)
	}

	salesService, err := sales.NewService(sales.NewRepository(dbClient.DB()), dbClient, outboxService, feePolicy, logg, marketMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create sales service", err)
		os.Exit(1)
	}

	earningsService, err := earnings.NewService(earnings.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create earnings service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Config:       cfg,
			Logger:       logg,
			DB:           dbClient,
			Redis:        redisClient,
			Gatherer:     prometheus.DefaultGatherer,
			Cellar:       cellarService,
			Listings:     listingService,
			Reservations: reservationService,
			Sales:        salesService,
			Earnings:     earningsService,
		}),
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "api server shutdown error", err)
		}
		logg.Info(ctx, "api server shut down gracefully")
	}
}
