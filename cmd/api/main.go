package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/vendimia/forecast-backend/api/routes"
	"github.com/vendimia/forecast-backend/internal/modelcache"
	"github.com/vendimia/forecast-backend/internal/predictions"
	"github.com/vendimia/forecast-backend/internal/sales"
	"github.com/vendimia/forecast-backend/pkg/config"
	"github.com/vendimia/forecast-backend/pkg/db"
	"github.com/vendimia/forecast-backend/pkg/logger"
	"github.com/vendimia/forecast-backend/pkg/metrics"
	"github.com/vendimia/forecast-backend/pkg/migrate"
	"github.com/vendimia/forecast-backend/pkg/modelstore"
	"github.com/vendimia/forecast-backend/pkg/redis"
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

	// The prediction response cache is optional; without redis every predict
	// request recomputes.
	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		redisClient, err = redis.New(context.Background(), cfg.Redis, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap redis", err)
			os.Exit(1)
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing redis", err)
			}
		}()
	}

	registry := prometheus.NewRegistry()
	forecastMetrics := metrics.NewForecastMetrics(registry)

	store, err := modelstore.New(cfg.Models.Dir)
	if err != nil {
		logg.Error(context.Background(), "failed to open model store", err)
		os.Exit(1)
	}

	extractor, err := sales.NewExtractor(sales.NewRepository(dbClient.DB()), logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create sales extractor", err)
		os.Exit(1)
	}

	modelCache, err := modelcache.New(store, logg, forecastMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create model cache", err)
		os.Exit(1)
	}

	serviceOpts := []predictions.Option{}
	if redisClient != nil {
		serviceOpts = append(serviceOpts, predictions.WithResponseCache(redisClient))
	}
	forecastService, err := predictions.NewService(extractor, modelCache, cfg.Forecast, logg, forecastMetrics, serviceOpts...)
	if err != nil {
		logg.Error(context.Background(), "failed to create forecast service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":        cfg.App.Env,
		"addr":       addr,
		"models_dir": cfg.Models.Dir,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient, forecastService, registry),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
