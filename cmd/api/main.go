package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/angelmondragon/fashionplace-backend/api/routes"
	authsvc "github.com/angelmondragon/fashionplace-backend/internal/auth"
	"github.com/angelmondragon/fashionplace-backend/internal/cart"
	"github.com/angelmondragon/fashionplace-backend/internal/catalog"
	"github.com/angelmondragon/fashionplace-backend/internal/customers"
	"github.com/angelmondragon/fashionplace-backend/internal/orders"
	"github.com/angelmondragon/fashionplace-backend/internal/payment"
	"github.com/angelmondragon/fashionplace-backend/internal/users"
	"github.com/angelmondragon/fashionplace-backend/pkg/auth/session"
	"github.com/angelmondragon/fashionplace-backend/pkg/config"
	"github.com/angelmondragon/fashionplace-backend/pkg/db"
	"github.com/angelmondragon/fashionplace-backend/pkg/logger"
	"github.com/angelmondragon/fashionplace-backend/pkg/metrics"
	"github.com/angelmondragon/fashionplace-backend/pkg/migrate"
	"github.com/angelmondragon/fashionplace-backend/pkg/redis"
	pkgstripe "github.com/angelmondragon/fashionplace-backend/pkg/stripe"
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

	guestSessions, err := session.NewGuestManager(redisClient, cfg.Session)
	if err != nil {
		logg.Error(context.Background(), "failed to create guest session manager", err)
		os.Exit(1)
	}

	conn := dbClient.DB()
	usersRepo := users.NewRepository(conn)
	customersRepo := customers.NewRepository(conn)
	profilesRepo := customers.NewProfileRepository(conn)
	catalogRepo := catalog.NewRepository(conn)
	cartRepo := cart.NewRepository(conn)
	cartItemRepo := cart.NewItemRepository(conn)
	ordersRepo := orders.NewRepository(conn)

	mergeLocker, err := cart.NewRedisMergeLocker(redisClient, cfg.Session.MergeLockTTL())
	if err != nil {
		logg.Error(context.Background(), "failed to create merge locker", err)
		os.Exit(1)
	}

	catalogService, err := catalog.NewService(catalogRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create catalog service", err)
		os.Exit(1)
	}

	cartService, err := cart.NewService(cart.ServiceParams{
		CartRepo:    cartRepo,
		ItemRepo:    cartItemRepo,
		Products:    catalogRepo,
		Sessions:    guestSessions,
		MergeLocker: mergeLocker,
		Transactor:  dbClient,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cart service", err)
		os.Exit(1)
	}

	authService, err := authsvc.NewService(authsvc.ServiceParams{
		Users:          usersRepo,
		Customers:      customersRepo,
		Carts:          cartService,
		Transactor:     dbClient,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
		Logger:         logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
		os.Exit(1)
	}

	ordersService, err := orders.NewService(orders.ServiceParams{
		Repo:       ordersRepo,
		Carts:      cartRepo,
		Customers:  customersRepo,
		Transactor: dbClient,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	stripeClient, err := pkgstripe.NewClient(context.Background(), cfg.Stripe, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create stripe client", err)
		os.Exit(1)
	}
	gateway, err := payment.NewStripeGateway(stripeClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create stripe gateway", err)
		os.Exit(1)
	}
	paymentService, err := payment.NewService(payment.ServiceParams{
		Carts:   cartRepo,
		Gateway: gateway,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create payment service", err)
		os.Exit(1)
	}

	profileService, err := customers.NewProfileService(customers.ProfileServiceParams{
		Profiles:   profilesRepo,
		Customers:  customersRepo,
		Users:      usersRepo,
		Orders:     ordersRepo,
		Carts:      cartRepo,
		Transactor: dbClient,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create profile service", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	httpMetrics := metrics.NewHTTPMetrics(registry)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := os.Getenv("DYNO")
	if id == "" {
		id = "local"
	}
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.RouterParams{
			Config:        cfg,
			Logger:        logg,
			DB:            dbClient,
			Redis:         redisClient,
			Registry:      registry,
			Metrics:       httpMetrics,
			GuestSessions: guestSessions,
			Customers:     customersRepo,
			Auth:          authService,
			Catalog:       catalogService,
			Cart:          cartService,
			Orders:        ordersService,
			Payment:       paymentService,
			Profiles:      profileService,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
