package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/webloom/storefront-backend/api/controllers"
	checkoutcontrollers "github.com/webloom/storefront-backend/api/controllers/checkout"
	ordercontrollers "github.com/webloom/storefront-backend/api/controllers/orders"
	"github.com/webloom/storefront-backend/api/middleware"
	checkoutflow "github.com/webloom/storefront-backend/internal/checkout"
	"github.com/webloom/storefront-backend/internal/orders"
	"github.com/webloom/storefront-backend/pkg/config"
	"github.com/webloom/storefront-backend/pkg/db"
	"github.com/webloom/storefront-backend/pkg/logger"
	"github.com/webloom/storefront-backend/pkg/metrics"
	"github.com/webloom/storefront-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	idemStore redis.IdempotencyStore,
	registry *prometheus.Registry,
	httpMetrics *metrics.HTTPMetrics,
	ordersSvc orders.Service,
	checkout *checkoutflow.Flow,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.CORS.AllowedOrigins),
		middleware.Metrics(httpMetrics),
	)

	pingers := []controllers.Pinger{dbP}
	if redisClient != nil {
		pingers = append(pingers, redisClient)
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, pingers...))
	})

	if registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		if idemStore != nil {
			r.Use(middleware.Idempotency(idemStore, logg))
		}

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", ordercontrollers.Create(ordersSvc, logg))
			r.Get("/", ordercontrollers.List(ordersSvc, logg))
			r.Get("/user/{userId}", ordercontrollers.ListByUser(ordersSvc, logg))
			r.Patch("/{orderId}", ordercontrollers.Patch(ordersSvc, logg))

			r.Route("/gateway", func(r chi.Router) {
				r.Post("/create", ordercontrollers.CreateGatewayOrder(ordersSvc, logg))
				r.Post("/verify", ordercontrollers.VerifyGatewayPayment(ordersSvc, logg))
			})
		})

		r.Route("/checkout", func(r chi.Router) {
			r.Post("/begin", checkoutcontrollers.Begin(checkout, logg))
			r.Post("/submit", checkoutcontrollers.Submit(checkout, logg))
			r.Post("/complete", checkoutcontrollers.Complete(checkout, logg))
			r.Post("/cancel", checkoutcontrollers.Cancel(checkout, logg))
			r.Get("/{userId}", checkoutcontrollers.Current(checkout, logg))
		})
	})

	return r
}
