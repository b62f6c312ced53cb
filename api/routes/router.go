package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/secretoheladeria/heladeria-backend/api/controllers"
	"github.com/secretoheladeria/heladeria-backend/api/middleware"
	"github.com/secretoheladeria/heladeria-backend/internal/access"
	"github.com/secretoheladeria/heladeria-backend/internal/auth"
	"github.com/secretoheladeria/heladeria-backend/internal/cart"
	"github.com/secretoheladeria/heladeria-backend/internal/catalog"
	"github.com/secretoheladeria/heladeria-backend/internal/checkout"
	"github.com/secretoheladeria/heladeria-backend/internal/promotions"
	"github.com/secretoheladeria/heladeria-backend/internal/reports"
	"github.com/secretoheladeria/heladeria-backend/pkg/auth/session"
	"github.com/secretoheladeria/heladeria-backend/pkg/config"
	"github.com/secretoheladeria/heladeria-backend/pkg/logger"
	pkgredis "github.com/secretoheladeria/heladeria-backend/pkg/redis"
)

// Deps gathers everything the HTTP surface is built from. Nil stores disable
// the middleware that depends on them.
type Deps struct {
	Config   *config.Config
	Logger   *logger.Logger
	Gatherer prometheus.Gatherer

	DB    controllers.Pinger
	Redis controllers.Pinger

	Sessions    session.AccessSessionChecker
	Idempotency pkgredis.IdempotencyStore
	RateLimiter middleware.RateLimiter

	Auth       auth.Service
	Catalog    catalog.Service
	Cart       cart.Service
	Checkout   checkout.Service
	Orders     controllers.OrderHistory
	Promotions promotions.Service
	Reports    reports.Service
}

func NewRouter(d Deps) http.Handler {
	cfg, logg := d.Config, d.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, map[string]controllers.Pinger{"db": d.DB, "redis": d.Redis}, logg))
	})
	if d.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}

	idempotent := middleware.Idempotency(d.Idempotency, logg)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.With(middleware.AuthRateLimit(loginPolicy, d.RateLimiter, logg)).Post("/login", controllers.AuthLogin(d.Auth, logg))
			r.With(middleware.AuthRateLimit(registerPolicy, d.RateLimiter, logg), idempotent).Post("/register", controllers.AuthRegister(d.Auth, logg))
			r.Post("/refresh", controllers.AuthRefresh(d.Auth, logg))
			r.Post("/logout", controllers.AuthLogout(d.Auth, logg))
		})

		r.Route("/catalog", func(r chi.Router) {
			r.Get("/products", controllers.CatalogProducts(d.Catalog, logg))
			r.Get("/products/{productId}", controllers.CatalogProduct(d.Catalog, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, d.Sessions, logg))
			r.Use(idempotent)

			r.Route("/cart", func(r chi.Router) {
				r.Use(middleware.RequireCapability(access.ManageCart, logg))
				r.Get("/", controllers.CartView(d.Cart, logg))
				r.Post("/items", controllers.CartAddItem(d.Cart, logg))
				r.Delete("/items/{productId}", controllers.CartRemoveItem(d.Cart, logg))
			})

			r.With(middleware.RequireCapability(access.Checkout, logg)).
				Post("/checkout", controllers.CheckoutFinalize(d.Checkout, logg))

			r.With(middleware.RequireCapability(access.ViewHistory, logg)).
				Get("/orders", controllers.OrdersList(d.Orders, logg))

			r.Route("/marketing", func(r chi.Router) {
				r.With(middleware.RequireCapability(access.ViewDashboard, logg)).
					Get("/dashboard", controllers.MarketingDashboard(d.Reports, logg))
				r.Route("/promotions", func(r chi.Router) {
					r.Use(middleware.RequireCapability(access.ManagePromotions, logg))
					r.Get("/", controllers.PromotionsList(d.Promotions, logg))
					r.Post("/", controllers.PromotionsCreate(d.Promotions, logg))
					r.Patch("/{promotionId}/active", controllers.PromotionsSetActive(d.Promotions, logg))
				})
			})

			r.Route("/admin", func(r chi.Router) {
				r.With(middleware.RequireCapability(access.ViewCustomerReport, logg)).
					Get("/customers", controllers.AdminCustomers(d.Reports, logg))

				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireCapability(access.ManageCatalog, logg))
					r.Get("/catalog/alerts", controllers.AdminCatalogAlerts(d.Reports, logg))
					r.Get("/categories", controllers.AdminListCategories(d.Catalog, logg))
					r.Post("/categories", controllers.AdminCreateCategory(d.Catalog, logg))
					r.Post("/products", controllers.AdminCreateProduct(d.Catalog, logg))
					r.Patch("/products/{productId}", controllers.AdminUpdateProduct(d.Catalog, logg))
					r.Delete("/products/{productId}", controllers.AdminDeleteProduct(d.Catalog, logg))
				})
			})
		})
	})

	return r
}
