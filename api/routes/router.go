package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vendimia/forecast-backend/api/controllers"
	forecastcontrollers "github.com/vendimia/forecast-backend/api/controllers/forecast"
	"github.com/vendimia/forecast-backend/api/middleware"
	"github.com/vendimia/forecast-backend/internal/predictions"
	"github.com/vendimia/forecast-backend/pkg/config"
	"github.com/vendimia/forecast-backend/pkg/db"
	"github.com/vendimia/forecast-backend/pkg/logger"
	"github.com/vendimia/forecast-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	forecastService predictions.Service,
	gatherer prometheus.Gatherer,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, readyPinger(redisClient)))
	})

	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/api/v1/forecast/{tenantId}", func(r chi.Router) {
		r.Post("/general/train", forecastcontrollers.GeneralTrain(forecastService, logg))
		r.Get("/general/predict", forecastcontrollers.GeneralPredict(forecastService, logg))
		r.Post("/products/train", forecastcontrollers.ProductTrain(forecastService, logg))
		r.Get("/products/predict", forecastcontrollers.ProductPredict(forecastService, logg))
		r.Post("/products/predict", forecastcontrollers.ProductPredict(forecastService, logg))
		r.Get("/sales/recent", forecastcontrollers.RecentSales(forecastService, logg))
		r.Get("/summary", forecastcontrollers.Summary(forecastService, logg))
		r.Get("/trend-alert", forecastcontrollers.TrendAlert(forecastService, logg))
	})

	return r
}

// readyPinger keeps a nil *redis.Client from reaching the readiness check as
// a non-nil interface.
func readyPinger(client *redis.Client) redis.Pinger {
	if client == nil {
		return nil
	}
	return client
}
