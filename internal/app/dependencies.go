// Package app builds the shared infrastructure the binaries wire together.
package app

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	limiter "github.com/ulule/limiter/v3"
	limiterredis "github.com/ulule/limiter/v3/drivers/store/redis"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/noah-isme/tokobaju-api/internal/config"
	"github.com/noah-isme/tokobaju-api/internal/obs"
	"github.com/noah-isme/tokobaju-api/internal/ratelimit"
)

// Observability initialises metrics and tracing from cfg and returns a
// shutdown hook. Tracing failures are logged and leave tracing disabled.
func Observability(ctx context.Context, cfg *config.Config, service string, logger zerolog.Logger) func(context.Context) error {
	if cfg.MetricsEnabled {
		obs.MustRegisterDomainMetrics(cfg.MetricsNamespace, nil)
	}
	noop := func(context.Context) error { return nil }
	if !cfg.TracingEnabled {
		return noop
	}
	shutdown, err := obs.InitTracer(ctx, obs.TracingConfig{
		ServiceName:   service,
		Endpoint:      cfg.TracingEndpoint,
		SamplingRatio: cfg.TracingSampling,
		Environment:   cfg.AppEnv,
	})
	if err != nil {
		logger.Error().Err(err).Msg("initialise tracing")
		cfg.TracingEnabled = false
		return noop
	}
	return shutdown
}

// OpenPostgres connects a pool with query tracing and checks it is reachable.
func OpenPostgres(ctx context.Context, databaseURL, appName string) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}
	poolCfg.ConnConfig.Tracer = obs.PGXTracer{}
	if poolCfg.ConnConfig.RuntimeParams == nil {
		poolCfg.ConnConfig.RuntimeParams = map[string]string{}
	}
	poolCfg.ConnConfig.RuntimeParams["application_name"] = appName

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// OpenRedis connects a client instrumented with redisotel. Instrumentation
// errors are logged, connection errors are returned.
func OpenRedis(ctx context.Context, redisURL string, withMetrics bool, logger zerolog.Logger) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := redisotel.InstrumentTracing(client); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if withMetrics {
		if err := redisotel.InstrumentMetrics(client); err != nil {
			logger.Error().Err(err).Msg("instrument redis metrics")
		}
	}
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// QueueConn returns asynq connection options for the same Redis instance.
func QueueConn(redisURL string) (asynq.RedisConnOpt, error) {
	opt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse queue redis url: %w", err)
	}
	return opt, nil
}

// NewLimiterStore wires a ulule limiter store backed by Redis.
func NewLimiterStore(rdb *redis.Client) (limiter.Store, error) {
	return limiterredis.NewStoreWithOptions(rdb, limiter.StoreOptions{Prefix: "ratelimit"})
}

// RateLimitBackend selects the limiter named by backend: "ulule" for fixed
// windows, anything else for the sorted-set sliding window.
func RateLimitBackend(backend string, rdb *redis.Client) (ratelimit.Backend, error) {
	if backend == "ulule" {
		st, err := NewLimiterStore(rdb)
		if err != nil {
			return nil, fmt.Errorf("limiter store: %w", err)
		}
		return ratelimit.Fixed{Store: st}, nil
	}
	return ratelimit.SlidingWindow{Client: rdb, Prefix: "rl:"}, nil
}

// Meter returns a meter from the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}
