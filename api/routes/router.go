package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/shopkit/api/controllers"
	"github.com/angelmondragon/shopkit/api/middleware"
	"github.com/angelmondragon/shopkit/internal/remote"
	"github.com/angelmondragon/shopkit/pkg/config"
	"github.com/angelmondragon/shopkit/pkg/logger"
)

// NewRouter wires the admin dashboard API: health endpoints, Prometheus
// exposition, and the analytics endpoints the dashboard charts read.
func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	store *remote.Client,
	registry *prometheus.Registry,
) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.CORS),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, store))
	})

	if registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/analytics", func(r chi.Router) {
		r.Get("/series", controllers.AnalyticsSeries(store, logg))
		r.Get("/summary", controllers.AnalyticsSummary(store, logg))
		r.Get("/top-products", controllers.AnalyticsTopProducts(store, logg, cfg.Analytics.TopProductsLimit))
	})

	return r
}
