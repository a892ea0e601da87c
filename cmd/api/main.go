package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/retailops/erpbridge/api/routes"
	"github.com/retailops/erpbridge/internal/catalog"
	"github.com/retailops/erpbridge/internal/reconcile"
	"github.com/retailops/erpbridge/internal/references"
	"github.com/retailops/erpbridge/pkg/config"
	"github.com/retailops/erpbridge/pkg/db"
	"github.com/retailops/erpbridge/pkg/erp"
	"github.com/retailops/erpbridge/pkg/logger"
	"github.com/retailops/erpbridge/pkg/metrics"
	"github.com/retailops/erpbridge/pkg/migrate"
	"github.com/retailops/erpbridge/pkg/redis"
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

	erpClient, err := erp.NewClient(context.Background(), cfg.ERP, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap erp client", err)
		os.Exit(1)
	}

	referenceStore, err := references.NewStore(references.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create reference store", err)
		os.Exit(1)
	}

	reconciler, err := reconcile.NewReconciler(reconcile.ReconcilerParams{
		References: referenceStore,
		Catalog:    erpClient,
		Records:    erpClient,
		Logger:     logg,
		Metrics:    metrics.NewReconcileMetrics(prometheus.DefaultRegisterer),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create reconciler", err)
		os.Exit(1)
	}

	catalogService, err := catalog.NewService(erpClient, referenceStore, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create catalog service", err)
		os.Exit(1)
	}

	guard, err := reconcile.NewEventGuard(redisClient, cfg.Eventing.IngressDedupeTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create event guard", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":         cfg.App.Env,
		"addr":        addr,
		"erp_account": erpClient.Account(),
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient, reconciler, catalogService, guard),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
