package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/retailerp-backend/api/controllers"
	catalogcontrollers "github.com/angelmondragon/retailerp-backend/api/controllers/catalog"
	formcontrollers "github.com/angelmondragon/retailerp-backend/api/controllers/forms"
	ordercontrollers "github.com/angelmondragon/retailerp-backend/api/controllers/orders"
	streamcontrollers "github.com/angelmondragon/retailerp-backend/api/controllers/streams"
	totalscontrollers "github.com/angelmondragon/retailerp-backend/api/controllers/totals"
	"github.com/angelmondragon/retailerp-backend/api/middleware"
	"github.com/angelmondragon/retailerp-backend/internal/catalog"
	"github.com/angelmondragon/retailerp-backend/internal/forms"
	"github.com/angelmondragon/retailerp-backend/internal/livesync"
	"github.com/angelmondragon/retailerp-backend/internal/orders"
	"github.com/angelmondragon/retailerp-backend/pkg/config"
	"github.com/angelmondragon/retailerp-backend/pkg/enums"
	"github.com/angelmondragon/retailerp-backend/pkg/logger"
	"github.com/angelmondragon/retailerp-backend/pkg/metrics"
)

type redisClient interface {
	middleware.ResponseStore
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

type streamHub interface {
	Subscribe(collection enums.Collection) *livesync.Subscription
}

// Dependencies are the services the API routes dispatch to. Pingers feed the
// readiness probe; Gatherer backs /metrics.
type Dependencies struct {
	Catalog      catalog.Service
	Forms        forms.Service
	Orders       orders.Service
	Hub          streamHub
	Redis        redisClient
	OrderMetrics *metrics.OrderMetrics
	HTTPMetrics  *metrics.HTTPMetrics
	Gatherer     prometheus.Gatherer
	Pingers      map[string]controllers.Pinger
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
		middleware.Metrics(deps.HTTPMetrics),
	)

	submitPolicy := middleware.NewRateLimitPolicy(
		"submit",
		cfg.RateLimit.SubmitWindow,
		cfg.RateLimit.SubmitLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.Pingers))
	})

	if deps.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Idempotency(deps.Redis, logg))

		r.Post("/totals/quote", totalscontrollers.Quote(cfg.Totals.AdvisoryTTL, deps.OrderMetrics, logg))

		r.Route("/catalog/products", func(r chi.Router) {
			r.Get("/", catalogcontrollers.SearchProducts(deps.Catalog, logg))
			r.Get("/{productId}", catalogcontrollers.GetProduct(deps.Catalog, logg))
		})

		r.Route("/forms", func(r chi.Router) {
			r.Post("/", formcontrollers.Open(deps.Forms, logg))
			r.Route("/{formId}", func(r chi.Router) {
				r.Get("/", formcontrollers.Get(deps.Forms, logg))
				r.Delete("/", formcontrollers.Discard(deps.Forms, logg))
				r.Put("/adjustments", formcontrollers.SetAdjustments(deps.Forms, logg))
				r.Post("/rows", formcontrollers.AddRow(deps.Forms, logg))
				r.Patch("/rows/{rowId}", formcontrollers.UpdateRow(deps.Forms, logg))
				r.Delete("/rows/{rowId}", formcontrollers.RemoveRow(deps.Forms, logg))
			})
		})

		r.Route("/orders", func(r chi.Router) {
			r.With(middleware.RateLimit(submitPolicy, deps.Redis, logg)).
				Post("/", ordercontrollers.Submit(deps.Orders, logg))
			r.Get("/", ordercontrollers.List(deps.Orders, logg))
			r.Get("/{orderId}", ordercontrollers.Get(deps.Orders, logg))
		})

		r.Get("/streams/{collection}", streamcontrollers.Stream(deps.Hub, cfg.Streams.Heartbeat, logg))
	})

	return r
}
