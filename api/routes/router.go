package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/toolshop/storefront/api/controllers"
	"github.com/toolshop/storefront/api/middleware"
	"github.com/toolshop/storefront/pkg/config"
	"github.com/toolshop/storefront/pkg/logger"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	gatherer prometheus.Gatherer,
	catalog controllers.Catalog,
	sessions middleware.SessionResolver,
	readiness ...controllers.ReadinessCheck,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.CORS.AllowedOrigins, cfg.Sessions.Header),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readiness...))
	})
	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/products", controllers.ProductList(catalog, logg))
		r.Get("/products/{productId}", controllers.ProductDetail(catalog, logg))
		r.Get("/categories", controllers.CategoryList(catalog))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Session(sessions, cfg.Sessions.Header, logg))

			r.Get("/badges", controllers.Badges(logg))
			r.Get("/notifications", controllers.NotificationsDrain(logg))

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", controllers.CartGet(logg))
				r.Post("/items", controllers.CartAddItem(logg))
				r.Patch("/items/{productId}", controllers.CartAdjustItem(logg))
				r.Delete("/items/{productId}", controllers.CartRemoveItem(logg))
			})

			r.Route("/wishlist", func(r chi.Router) {
				r.Get("/", controllers.WishlistGet(logg))
				r.Post("/{productId}/toggle", controllers.WishlistToggle(logg))
				r.Post("/{productId}/cart", controllers.WishlistMoveToCart(logg))
			})

			r.Route("/comparison", func(r chi.Router) {
				r.Get("/", controllers.ComparisonGet(logg))
				r.Delete("/", controllers.ComparisonClear(logg))
				r.Post("/{productId}/toggle", controllers.ComparisonToggle(logg))
			})

			r.Route("/checkout", func(r chi.Router) {
				r.Get("/", controllers.CheckoutGet(logg))
				r.Post("/open", controllers.CheckoutOpen(logg))
				r.Post("/proceed", controllers.CheckoutProceed(logg))
				r.Post("/method", controllers.CheckoutSelectMethod(logg))
				r.Post("/details", controllers.CheckoutDetails(logg))
				r.Post("/confirm", controllers.CheckoutConfirm(logg))
				r.Post("/retry", controllers.CheckoutRetry(logg))
				r.Post("/close", controllers.CheckoutClose(logg))
			})

			r.Route("/orders", func(r chi.Router) {
				r.Get("/", controllers.OrderList(logg))
				r.Get("/{orderId}", controllers.OrderDetail(logg))
			})

			r.Route("/preferences/theme", func(r chi.Router) {
				r.Get("/", controllers.ThemeGet(logg))
				r.Put("/", controllers.ThemeSet(logg))
				r.Post("/toggle", controllers.ThemeToggle(logg))
			})
		})
	})

	return r
}
