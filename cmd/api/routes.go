package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/noah-isme/tokobaju-api/internal/activity"
	"github.com/noah-isme/tokobaju-api/internal/analytics"
	"github.com/noah-isme/tokobaju-api/internal/auth"
	"github.com/noah-isme/tokobaju-api/internal/catalog"
	"github.com/noah-isme/tokobaju-api/internal/common"
	"github.com/noah-isme/tokobaju-api/internal/config"
	"github.com/noah-isme/tokobaju-api/internal/health"
	"github.com/noah-isme/tokobaju-api/internal/obs"
	"github.com/noah-isme/tokobaju-api/internal/order"
	"github.com/noah-isme/tokobaju-api/internal/promo"
	"github.com/noah-isme/tokobaju-api/internal/ratelimit"
	"github.com/noah-isme/tokobaju-api/internal/security"
	"github.com/noah-isme/tokobaju-api/internal/user"
)

type routes struct {
	auth      *auth.Handler
	authMW    auth.Middleware
	catalog   *catalog.Handler
	promos    promo.Handler
	orders    order.Handler
	users     *user.Handler
	activity  activity.Handler
	analytics *analytics.Handler
	health    *health.Handler
	idem      common.Idem
	limiter   ratelimit.Backend
}

func newRouter(cfg *config.Config, logger zerolog.Logger, h routes) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if cfg.TracingEnabled {
		r.Use(obs.TracingMiddleware)
	}
	if cfg.MetricsEnabled {
		r.Use(obs.HTTPObs{Metrics: obs.NewHTTPMetrics(cfg.MetricsNamespace, cfg.MetricsBuckets, nil)}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	r.Use(security.Headers{EnableHSTS: cfg.AppEnv == "production"}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(cfg),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key"},
		ExposedHeaders:   []string{"X-Total-Count", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if cfg.MetricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}
	if h.health != nil {
		r.Get("/health/live", h.health.Live)
		r.Get("/health/ready", h.health.Ready)
	}

	limit := ratelimit.Handler{
		Limiter: h.limiter,
		Config:  ratelimit.Config{Key: ratelimit.ByUser("api"), Window: cfg.RateLimitWindow, Max: cfg.RateLimitMax},
		OnError: func(err error) { logger.Warn().Err(err).Msg("rate limiter unavailable") },
	}
	adminOnly := chi.Chain(h.authMW.RequireAuth, auth.RequireRole(common.RoleAdmin))

	r.Route("/api", func(api chi.Router) {
		api.Use(security.BodyLimit{Max: cfg.BodyLimitBytes}.Middleware)
		api.Use(h.authMW.Authenticate)
		api.Use(limit.Middleware)

		api.Route("/auth", func(a chi.Router) {
			a.Post("/register", h.auth.Register)
			a.Post("/login", h.auth.Login)
			a.Post("/seed-admin", h.auth.SeedAdmin)
			a.With(h.authMW.RequireAuth).Get("/me", h.auth.Me)
		})

		api.Route("/products", func(p chi.Router) {
			p.Get("/", h.catalog.Products)
			p.Get("/{id}", h.catalog.Product)
			p.With(adminOnly...).Post("/", h.catalog.CreateProduct)
			p.With(adminOnly...).Put("/{id}", h.catalog.UpdateProduct)
			p.With(adminOnly...).Delete("/{id}", h.catalog.DeleteProduct)
		})

		api.Route("/categories", func(c chi.Router) {
			c.Get("/", h.catalog.Categories)
			c.Get("/{id}", h.catalog.Category)
			c.With(adminOnly...).Post("/", h.catalog.CreateCategory)
			c.With(adminOnly...).Put("/{id}", h.catalog.UpdateCategory)
			c.With(adminOnly...).Delete("/{id}", h.catalog.DeleteCategory)
		})

		api.Route("/promos", func(p chi.Router) {
			p.Post("/validate", h.promos.Validate)
			p.Group(func(admin chi.Router) {
				admin.Use(adminOnly...)
				admin.Get("/", h.promos.List)
				admin.Post("/", h.promos.Create)
				admin.Get("/{id}", h.promos.Get)
				admin.Put("/{id}", h.promos.Update)
				admin.Delete("/{id}", h.promos.Delete)
			})
		})

		api.Route("/orders", func(o chi.Router) {
			o.With(h.idem.Middleware).Post("/", h.orders.Create)
			o.Get("/{id}", h.orders.Get)
			o.With(h.authMW.RequireAuth).Get("/user/{userId}", h.orders.ListByUser)
			o.Group(func(admin chi.Router) {
				admin.Use(adminOnly...)
				admin.Get("/", h.orders.List)
				admin.Get("/stats", h.analytics.Sales)
				admin.Put("/{id}/status", h.orders.UpdateStatus)
			})
		})

		api.Route("/users", func(u chi.Router) {
			u.Use(h.authMW.RequireAuth)
			u.With(auth.RequireRole(common.RoleAdmin)).Get("/", h.users.List)
			u.Get("/{id}", h.users.Get)
			u.Put("/{id}", h.users.Update)
			u.Post("/{id}/wallet/topup", h.users.TopUp)
			u.Get("/{id}/addresses", h.users.Addresses)
			u.Post("/{id}/addresses", h.users.AddAddress)
			u.Delete("/{id}/addresses/{addressId}", h.users.DeleteAddress)
		})

		api.Route("/activity-logs", func(a chi.Router) {
			a.Use(h.authMW.RequireAuth)
			a.With(auth.RequireRole(common.RoleAdmin)).Get("/", h.activity.List)
			a.Get("/user/{userId}", h.activity.ListByUser)
		})
	})

	return r
}

func allowedOrigins(cfg *config.Config) []string {
	if len(cfg.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return cfg.CORSAllowedOrigins
}
