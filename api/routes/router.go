package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/fashionplace-backend/api/controllers"
	"github.com/angelmondragon/fashionplace-backend/api/middleware"
	authsvc "github.com/angelmondragon/fashionplace-backend/internal/auth"
	"github.com/angelmondragon/fashionplace-backend/internal/cart"
	"github.com/angelmondragon/fashionplace-backend/internal/catalog"
	"github.com/angelmondragon/fashionplace-backend/internal/customers"
	"github.com/angelmondragon/fashionplace-backend/internal/orders"
	"github.com/angelmondragon/fashionplace-backend/internal/payment"
	"github.com/angelmondragon/fashionplace-backend/pkg/config"
	"github.com/angelmondragon/fashionplace-backend/pkg/db"
	"github.com/angelmondragon/fashionplace-backend/pkg/db/models"
	"github.com/angelmondragon/fashionplace-backend/pkg/logger"
	"github.com/angelmondragon/fashionplace-backend/pkg/metrics"
	"github.com/angelmondragon/fashionplace-backend/pkg/redis"
)

// GuestSessionManager mints and validates anonymous cart session tokens.
type GuestSessionManager interface {
	Mint(ctx context.Context) (string, error)
	Validate(ctx context.Context, token string) (bool, error)
}

// CustomerDirectory maps authenticated users to their customer rows.
type CustomerDirectory interface {
	FindByUserID(ctx context.Context, userID uuid.UUID) (*models.Customer, error)
}

// RouterParams bundles everything the HTTP surface needs.
type RouterParams struct {
	Config   *config.Config
	Logger   *logger.Logger
	DB       db.Pinger
	Redis    *redis.Client
	Registry *prometheus.Registry
	Metrics  *metrics.HTTPMetrics

	GuestSessions GuestSessionManager
	Customers     CustomerDirectory

	Auth     authsvc.Service
	Catalog  catalog.Service
	Cart     cart.Service
	Orders   orders.Service
	Payment  payment.Service
	Profiles customers.ProfileService
}

func NewRouter(p RouterParams) http.Handler {
	cfg := p.Config
	logg := p.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
		middleware.Metrics(p.Metrics),
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

	r.Get("/healthz", controllers.HealthLive(cfg))
	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, p.DB, p.Redis))
	})
	if p.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(p.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.With(middleware.AuthRateLimit(registerPolicy, p.Redis, logg)).
				Post("/register", controllers.AuthRegister(p.Auth, logg))
			r.With(middleware.AuthRateLimit(loginPolicy, p.Redis, logg)).
				Post("/login", controllers.AuthLogin(p.Auth, logg))
		})

		r.Get("/categories", controllers.CategoryList(p.Catalog, logg))
		r.Route("/products", func(r chi.Router) {
			r.Get("/", controllers.ProductList(p.Catalog, logg))
			r.Get("/featured", controllers.ProductFeatured(p.Catalog, logg))
			r.Get("/{productId}", controllers.ProductDetail(p.Catalog, logg))
		})

		// Carts and payment serve both guests and signed-in customers.
		r.Group(func(r chi.Router) {
			r.Use(middleware.OptionalAuth(cfg.JWT, logg))
			r.Use(middleware.GuestSession(p.GuestSessions, logg))

			r.Route("/carts", func(r chi.Router) {
				r.Post("/", controllers.CartCreate(p.Cart, p.Customers, p.GuestSessions, logg))
				r.Route("/{cartId}", func(r chi.Router) {
					r.Get("/", controllers.CartFetch(p.Cart, logg))
					r.Delete("/", controllers.CartDelete(p.Cart, logg))
					r.Route("/items", func(r chi.Router) {
						r.Get("/", controllers.CartItemList(p.Cart, logg))
						r.Post("/", controllers.CartItemAdd(p.Cart, logg))
						r.Patch("/{itemId}", controllers.CartItemUpdate(p.Cart, logg))
						r.Delete("/{itemId}", controllers.CartItemRemove(p.Cart, logg))
					})
				})
			})

			r.Post("/payment/{cartId}", controllers.PaymentCapture(p.Payment, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, logg))

			r.Route("/orders", func(r chi.Router) {
				r.Get("/", controllers.OrderList(p.Orders, logg))
				r.Post("/", controllers.OrderCreate(p.Orders, p.Customers, logg))
				r.Route("/{orderId}", func(r chi.Router) {
					r.Get("/", controllers.OrderDetail(p.Orders, logg))
					r.Patch("/", controllers.OrderUpdateStatus(p.Orders, logg))
					r.Delete("/", controllers.OrderDelete(p.Orders, logg))
				})
			})

			r.Route("/profiles", func(r chi.Router) {
				r.Get("/", controllers.ProfileList(p.Profiles, logg))
				r.Post("/", controllers.ProfileCreate(p.Profiles, logg))
				r.Route("/{profileId}", func(r chi.Router) {
					r.Get("/", controllers.ProfileDetail(p.Profiles, logg))
					r.Put("/", controllers.ProfileUpdate(p.Profiles, logg))
					r.Delete("/", controllers.ProfileDelete(p.Profiles, logg))
				})
			})
		})
	})

	return r
}
