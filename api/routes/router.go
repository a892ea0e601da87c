package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/retailops/erpbridge/api/controllers"
	"github.com/retailops/erpbridge/api/middleware"
	"github.com/retailops/erpbridge/internal/catalog"
	"github.com/retailops/erpbridge/internal/reconcile"
	"github.com/retailops/erpbridge/pkg/config"
	"github.com/retailops/erpbridge/pkg/db"
	"github.com/retailops/erpbridge/pkg/logger"
)

type cachePinger interface {
	Ping(ctx context.Context) error
}

type eventGuard interface {
	CheckAndMark(ctx context.Context, flow, eventID string) (bool, error)
	Release(ctx context.Context, flow, eventID string) error
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	cache cachePinger,
	reconciler reconcile.Reconciler,
	catalogService catalog.Service,
	guard eventGuard,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, cache))
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/adjustments", controllers.SubmitAdjustment(reconciler, guard, logg))
		r.Post("/products/sync", controllers.SyncProducts(catalogService, logg))
	})

	return r
}
