package router

import (
	"net/http"

	"storefront/internal/config"
	"storefront/internal/handler"
	"storefront/internal/metrics"
	"storefront/internal/middleware"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Handlers groups the HTTP handlers mounted by the router.
type Handlers struct {
	Product *handler.ProductHandler
	Cart    *handler.CartHandler
	Order   *handler.OrderHandler
	Payment *handler.PaymentHandler
}

// Options configures the router.
type Options struct {
	Auth config.AuthConfig
	// Gatherer backs GET /metrics. Nil disables the endpoint.
	Gatherer    prometheus.Gatherer
	HTTPMetrics *metrics.HTTPMetrics
	// UploadsDir is served under /uploads when non-empty.
	UploadsDir string
}

// New creates a new HTTP router with all routes and middleware configured.
func New(h Handlers, opts Options, logger zerolog.Logger) http.Handler {
	r := chi.NewRouter()

	// Recovery -> RequestID -> Logging -> Metrics -> CORS
	r.Use(middleware.Recovery(logger))
	r.Use(chimw.RequestID)
	r.Use(middleware.Logging(logger))
	r.Use(middleware.Metrics(opts.HTTPMetrics))
	r.Use(middleware.CORS)

	// Health check endpoint (no authentication required)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "healthy"}`))
	})

	if opts.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	}

	if opts.UploadsDir != "" {
		r.Handle("/uploads/*", http.StripPrefix("/uploads/", http.FileServer(http.Dir(opts.UploadsDir))))
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Authenticate(opts.Auth, logger))

		r.Get("/products/{id}", h.Product.GetByID)

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", h.Cart.Get)
			r.Post("/items", h.Cart.AddItem)
			r.Put("/items/{id}", h.Cart.UpdateItem)
			r.Delete("/items/{id}", h.Cart.RemoveItem)
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", h.Order.ListMine)
			r.Post("/checkout", h.Order.Checkout)
			r.Get("/{id}", h.Order.GetByID)
			r.Post("/{id}/cancel", h.Order.Cancel)
			r.With(middleware.RequireAdmin(logger)).Put("/{id}/status", h.Order.UpdateStatus)
		})

		r.Route("/payments", func(r chi.Router) {
			r.Post("/upload", h.Payment.Upload)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAdmin(logger))
				r.Put("/{id}/verify", h.Payment.Verify)
				r.Put("/{id}/reject", h.Payment.Reject)
			})
		})

		r.With(middleware.RequireAdmin(logger)).Get("/admin/orders", h.Order.ListByStatus)
	})

	return r
}
