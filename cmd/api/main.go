package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/noah-isme/tokobaju-api/internal/activity"
	"github.com/noah-isme/tokobaju-api/internal/analytics"
	"github.com/noah-isme/tokobaju-api/internal/app"
	"github.com/noah-isme/tokobaju-api/internal/auth"
	"github.com/noah-isme/tokobaju-api/internal/catalog"
	"github.com/noah-isme/tokobaju-api/internal/common"
	"github.com/noah-isme/tokobaju-api/internal/config"
	"github.com/noah-isme/tokobaju-api/internal/events"
	"github.com/noah-isme/tokobaju-api/internal/health"
	"github.com/noah-isme/tokobaju-api/internal/lock"
	"github.com/noah-isme/tokobaju-api/internal/obs"
	"github.com/noah-isme/tokobaju-api/internal/order"
	"github.com/noah-isme/tokobaju-api/internal/promo"
	"github.com/noah-isme/tokobaju-api/internal/store"
	"github.com/noah-isme/tokobaju-api/internal/user"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	logger := obs.NewLogger(cfg.LogFormat, cfg.LogLevel).With().Str("env", cfg.AppEnv).Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing := app.Observability(ctx, cfg, "tokobaju-api", logger)
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Error().Err(err).Msg("shutdown tracer")
		}
	}()

	if cfg.MigrateOnStart {
		if err := store.MigrateUp(cfg.DatabaseURL); err != nil {
			logger.Fatal().Err(err).Msg("run migrations")
		}
		logger.Info().Msg("migrations applied")
	}

	connectCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	pool, err := app.OpenPostgres(connectCtx, cfg.DatabaseURL, "tokobaju-api")
	if err != nil {
		logger.Fatal().Err(err).Msg("open database")
	}
	defer pool.Close()

	redisClient, err := app.OpenRedis(connectCtx, cfg.RedisURL, cfg.MetricsEnabled, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("open redis")
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close redis")
		}
	}()

	queueConn, err := app.QueueConn(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("queue connection")
	}
	taskClient := asynq.NewClient(queueConn)
	defer taskClient.Close()

	limiterBackend, err := app.RateLimitBackend(cfg.RateLimitBackend, redisClient)
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise rate limiter")
	}

	queries := store.New(pool)

	activitySvc := &activity.Service{Store: queries}
	recorder := activity.Enqueuer{
		Client:   taskClient,
		Fallback: activitySvc,
		Logger:   logger.With().Str("component", "activity").Logger(),
	}

	authSvc, err := auth.NewService(auth.Config{
		Queries:        queries,
		Secret:         cfg.JWTSecret,
		AccessTokenTTL: cfg.AccessTokenTTL,
		Activity:       recorder,
		Logger:         logger.With().Str("component", "auth").Logger(),
		Admin:          auth.Credentials{Email: cfg.AdminSeedEmail, Password: cfg.AdminSeedPassword},
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise auth service")
	}

	catalogSvc, err := catalog.NewService(catalog.ServiceConfig{
		Queries:      queries,
		Cache:        catalog.NewCache(redisClient, cfg.CatalogCacheTTL),
		Logger:       logger.With().Str("component", "catalog").Logger(),
		DefaultLimit: cfg.CatalogDefaultLimit,
		MaxLimit:     cfg.CatalogMaxLimit,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise catalog service")
	}

	promoSvc := &promo.Service{Q: queries, Logger: logger.With().Str("component", "promo").Logger()}
	analyticsSvc := &analytics.Service{
		Q:      queries,
		R:      redisClient,
		TTL:    cfg.AnalyticsCacheTTL,
		Logger: logger.With().Str("component", "analytics").Logger(),
	}

	instruments, err := order.NewInstruments(app.Meter("tokobaju/order"))
	if err != nil {
		logger.Error().Err(err).Msg("order instruments")
	}
	orderSvc := &order.Service{
		Q:        queries,
		Tx:       order.PgTx(pool, store.DefaultTxOptions()),
		Promos:   promoSvc,
		Shipping: cfg.ShippingCost,
		TaxRate:  cfg.TaxRate,
		Locker:   lock.Locker{R: redisClient, RetryBackoff: 50 * time.Millisecond, MaxWait: 2 * time.Second},
		LockTTL:  cfg.CheckoutLockTTL,
		Events: &events.Bus{
			Store:     queries,
			Notifiers: []events.Notifier{activity.StatusNotifier(recorder)},
		},
		Activity: recorder,
		Stats:    analyticsSvc,
		Metrics:  instruments,
		Logger:   logger.With().Str("component", "order").Logger(),
	}

	userSvc := &user.Service{
		Q:        queries,
		Tx:       user.PgTx(pool, store.DefaultTxOptions()),
		Hash:     authSvc.HashPassword,
		Activity: recorder,
		Logger:   logger.With().Str("component", "user").Logger(),
	}

	healthHandler := &health.Handler{Probes: []health.Probe{
		health.PingProbe("db", pool, cfg.ProbeTimeout),
		{Name: "redis", Timeout: cfg.ProbeTimeout, Check: func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }},
	}}

	router := newRouter(cfg, logger, routes{
		auth:      &auth.Handler{Service: authSvc},
		authMW:    auth.Middleware{Service: authSvc},
		catalog:   catalog.NewHandler(catalog.HandlerConfig{Service: catalogSvc}),
		promos:    promo.Handler{Svc: promoSvc},
		orders:    order.Handler{Svc: orderSvc},
		users:     &user.Handler{Service: userSvc},
		activity:  activity.Handler{Svc: activitySvc},
		analytics: &analytics.Handler{Svc: analyticsSvc},
		health:    healthHandler,
		idem:      common.Idem{R: redisClient, TTL: cfg.IdempotencyTTL},
		limiter:   limiterBackend,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server exited unexpectedly")
		}
	}()

	<-ctx.Done()
	shutdown(srv, healthHandler, cfg.ShutdownTimeout, logger)
}

func shutdown(srv *http.Server, h *health.Handler, timeout time.Duration, logger zerolog.Logger) {
	logger.Info().Msg("draining")
	h.Drain()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("server shutdown")
		return
	}
	logger.Info().Msg("server stopped")
}
