package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"

	"github.com/secretoheladeria/heladeria-backend/api/routes"
	"github.com/secretoheladeria/heladeria-backend/internal/auth"
	"github.com/secretoheladeria/heladeria-backend/internal/cart"
	"github.com/secretoheladeria/heladeria-backend/internal/catalog"
	"github.com/secretoheladeria/heladeria-backend/internal/checkout"
	"github.com/secretoheladeria/heladeria-backend/internal/customers"
	"github.com/secretoheladeria/heladeria-backend/internal/promotions"
	"github.com/secretoheladeria/heladeria-backend/internal/reports"
	"github.com/secretoheladeria/heladeria-backend/internal/sales"
	"github.com/secretoheladeria/heladeria-backend/internal/users"
	"github.com/secretoheladeria/heladeria-backend/pkg/auth/session"
	"github.com/secretoheladeria/heladeria-backend/pkg/config"
	"github.com/secretoheladeria/heladeria-backend/pkg/dates"
	"github.com/secretoheladeria/heladeria-backend/pkg/db"
	"github.com/secretoheladeria/heladeria-backend/pkg/instance"
	"github.com/secretoheladeria/heladeria-backend/pkg/logger"
	"github.com/secretoheladeria/heladeria-backend/pkg/metrics"
	"github.com/secretoheladeria/heladeria-backend/pkg/migrate"
	"github.com/secretoheladeria/heladeria-backend/pkg/redis"
	"github.com/secretoheladeria/heladeria-backend/pkg/security"
)

const shutdownTimeout = 15 * time.Second

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
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})

	if err := run(cfg, logg); err != nil {
		logg.Error(context.Background(), "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logg *logger.Logger) (err error) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, dbClient.Close())
	}()

	if err := migrate.AutoRun(ctx, cfg, logg, dbClient); err != nil {
		return err
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, redisClient.Close())
	}()

	loc, err := cfg.App.Location()
	if err != nil {
		return err
	}
	calendar := dates.NewCalendar(loc)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	checkoutMetrics := metrics.NewCheckoutMetrics(registry)

	deps, err := buildDeps(cfg, logg, dbClient, redisClient, calendar, checkoutMetrics)
	if err != nil {
		return err
	}
	deps.Gatherer = registry

	addr := ":" + cfg.App.Port
	logCtx := logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instance.ID(),
		"timezone": loc.String(),
	})
	logg.Info(logCtx, "starting api server")

	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logg.Info(logCtx, "shutting down api server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func buildDeps(
	cfg *config.Config,
	logg *logger.Logger,
	dbClient *db.Client,
	redisClient *redis.Client,
	calendar *dates.Calendar,
	checkoutMetrics *metrics.CheckoutMetrics,
) (routes.Deps, error) {
	conn := dbClient.DB()

	userRepo := users.NewRepository(conn)
	customerRepo := customers.NewRepository(conn)
	catalogRepo := catalog.NewRepository(conn)
	promotionRepo := promotions.NewRepository(conn)
	salesRepo := sales.NewRepository(conn)
	resolver := promotions.NewResolver(promotionRepo)

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		return routes.Deps{}, err
	}

	customerService, err := customers.NewService(customerRepo, calendar)
	if err != nil {
		return routes.Deps{}, err
	}

	authService, err := auth.NewService(auth.ServiceParams{
		Tx:             dbClient,
		Users:          userRepo,
		Customers:      customerRepo,
		CustomerSvc:    customerService,
		SessionManager: sessionManager,
		Hasher:         security.NewHasher(cfg.Password),
		JWTConfig:      cfg.JWT,
	})
	if err != nil {
		return routes.Deps{}, err
	}

	catalogService, err := catalog.NewService(catalog.ServiceParams{
		Repo:        catalogRepo,
		Tx:          dbClient,
		Resolver:    resolver,
		Calendar:    calendar,
		HorizonDays: cfg.Reports.CatalogExpiryDays,
	})
	if err != nil {
		return routes.Deps{}, err
	}

	promotionService, err := promotions.NewService(promotionRepo, dbClient)
	if err != nil {
		return routes.Deps{}, err
	}

	cartStore, err := cart.NewRedisStore(redisClient, cfg.Cart.TTL)
	if err != nil {
		return routes.Deps{}, err
	}
	cartService, err := cart.NewService(cartStore, catalogRepo, cart.ParseMergePolicy(cfg.Cart.MergePolicy))
	if err != nil {
		return routes.Deps{}, err
	}

	finalizer, err := sales.NewFinalizer(dbClient, salesRepo, customerRepo, resolver, calendar)
	if err != nil {
		return routes.Deps{}, err
	}
	checkoutService, err := checkout.NewService(cartService, customerRepo, finalizer, checkoutMetrics, logg)
	if err != nil {
		return routes.Deps{}, err
	}

	history, err := sales.NewHistory(salesRepo, customerRepo)
	if err != nil {
		return routes.Deps{}, err
	}

	reportService, err := reports.NewService(reports.Params{
		Catalog:    catalogRepo,
		Promotions: promotionRepo,
		Sales:      salesRepo,
		Customers:  customerRepo,
		Calendar:   calendar,
		Config:     cfg.Reports,
	})
	if err != nil {
		return routes.Deps{}, err
	}

	return routes.Deps{
		Config:      cfg,
		Logger:      logg,
		DB:          dbClient,
		Redis:       redisClient,
		Sessions:    sessionManager,
		Idempotency: redisClient,
		RateLimiter: redisClient,
		Auth:        authService,
		Catalog:     catalogService,
		Cart:        cartService,
		Checkout:    checkoutService,
		Orders:      history,
		Promotions:  promotionService,
		Reports:     reportService,
	}, nil
}
