package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/noah-isme/tokobaju-api/internal/activity"
	"github.com/noah-isme/tokobaju-api/internal/app"
	"github.com/noah-isme/tokobaju-api/internal/config"
	"github.com/noah-isme/tokobaju-api/internal/obs"
	"github.com/noah-isme/tokobaju-api/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	logger := obs.NewLogger(cfg.LogFormat, cfg.LogLevel).With().Str("component", "worker").Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing := app.Observability(ctx, cfg, "tokobaju-worker", logger)
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Error().Err(err).Msg("shutdown tracer")
		}
	}()

	connectCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	pool, err := app.OpenPostgres(connectCtx, cfg.DatabaseURL, "tokobaju-worker")
	if err != nil {
		logger.Fatal().Err(err).Msg("open database")
	}
	defer pool.Close()

	queueConn, err := app.QueueConn(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("queue connection")
	}

	srv := asynq.NewServer(queueConn, asynq.Config{
		Concurrency:     cfg.QueueConcurrency,
		ShutdownTimeout: cfg.ShutdownTimeout,
		Logger:          queueLogger{logger},
		ErrorHandler: asynq.ErrorHandlerFunc(func(_ context.Context, task *asynq.Task, err error) {
			logger.Error().Err(err).Str("task", task.Type()).Msg("task failed")
		}),
	})

	mux := asynq.NewServeMux()
	mux.Handle(activity.TypeRecord, activity.TaskHandler{Recorder: &activity.Service{Store: store.New(pool)}})

	if err := srv.Start(mux); err != nil {
		logger.Fatal().Err(err).Msg("start worker")
	}
	logger.Info().Int("concurrency", cfg.QueueConcurrency).Msg("worker started")

	<-ctx.Done()
	srv.Shutdown()
	logger.Info().Msg("worker shutdown complete")
}

// queueLogger routes asynq's internal logging through zerolog.
type queueLogger struct {
	log zerolog.Logger
}

func (l queueLogger) Debug(args ...any) { l.log.Debug().Msg(fmt.Sprint(args...)) }
func (l queueLogger) Info(args ...any)  { l.log.Info().Msg(fmt.Sprint(args...)) }
func (l queueLogger) Warn(args ...any)  { l.log.Warn().Msg(fmt.Sprint(args...)) }
func (l queueLogger) Error(args ...any) { l.log.Error().Msg(fmt.Sprint(args...)) }
func (l queueLogger) Fatal(args ...any) { l.log.Fatal().Msg(fmt.Sprint(args...)) }
