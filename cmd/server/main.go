package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"staffdesk/internal/config"
	"staffdesk/internal/infra"
	"staffdesk/internal/metrics"
	"staffdesk/internal/router"
	"staffdesk/internal/worker"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	// Structured logger: dev pretty, prod JSON
	if cfg.IsProduction() {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	} else {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}
	if cfg.UsingFallbackSecret {
		log.Warn().Msg("JWT_SECRET not set: signing tokens with the insecure development secret")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := infra.OpenStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.StoreDriver).Msg("failed to open store")
	}

	rdb, err := infra.NewRedis(ctx, cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}

	// Redis-backed queue when available, otherwise jobs live in process memory.
	var queue worker.Queue = worker.NewMemoryQueue()
	if rdb != nil {
		queue = worker.NewRedisQueue(rdb)
	} else {
		log.Warn().Msg("REDIS_URL not set: using in-memory job queue and rate limiter")
	}

	m := metrics.New()
	mailer := infra.NewMailer(cfg)
	breaker := infra.NewCircuitBreaker("smtp", infra.DefaultBreakerOptions())

	// Worker handlers are wired here (composition root) so that the pool
	// has access to the mail infrastructure.
	bgCtx, cancelBackground := context.WithCancel(context.Background())
	pool := worker.NewPool(queue, worker.PoolOptions{Queues: []string{worker.QueueEmail}, Metrics: m})
	pool.Handle(worker.JobWelcomeEmail, worker.NewEmailWorker(mailer, breaker).HandleWelcome)
	pool.Start(bgCtx, cfg.WorkerPoolSize)

	r, err := router.New(bgCtx, router.Deps{
		Config:   cfg,
		Store:    store,
		Redis:    rdb,
		Notifier: worker.NewDispatcher(queue),
		Breaker:  breaker,
		Metrics:  m,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build router")
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().
			Str("store", store.Driver).
			Str("registration_policy", cfg.RegistrationPolicy).
			Msgf("staffdesk listening on :%d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()

	log.Info().Msg("shutting down server")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}

	cancelBackground()
	pool.Wait()

	if err := store.Close(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("store close")
	}
	if rdb != nil {
		_ = rdb.Close()
	}
	log.Info().Msg("server exited")
}
