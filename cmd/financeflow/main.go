package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"

	"financeflow/internal/amqp"
	"financeflow/internal/auth"
	"financeflow/internal/cache"
	"financeflow/internal/cli"
	apphttp "financeflow/internal/http"
	"financeflow/internal/ledger"
	"financeflow/internal/log"
	"financeflow/internal/metrics"
	"financeflow/internal/middleware/ratelimit"
	"financeflow/internal/session"
)

// sweepFunc adapts a function to cache.Cleaner.
type sweepFunc func() int

func (f sweepFunc) CleanExpired() int { return f() }

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger)

	res := cli.InitBackend(context.Background(), logger, cfg)

	var m *metrics.Metrics
	if cfg.MetricsEnabled {
		m = metrics.New()
	}

	// source tags this instance's events so its own sessions ignore them.
	source := "server-" + uuid.NewString()[:8]
	opts := []ledger.Option{ledger.WithLogger(logger), ledger.WithSource(source)}
	if m != nil {
		opts = append(opts, ledger.WithRecorder(m))
	}

	// Events are best effort: a broker that is down at start-up only
	// disables publishing.
	var (
		amqpClient *amqp.Client
		subscriber *amqp.Client
		broker     apphttp.HealthChecker
	)
	if cfg.AMQPEnabled() {
		c, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Warn("AMQP unavailable, ledger events will not be published", log.FieldError, err)
		} else {
			amqpClient = c
			broker = c
			var pub ledger.Publisher = c
			if m != nil {
				pub = m.Publisher(pub)
			}
			opts = append(opts, ledger.WithPublisher(pub))
			logger.Info("AMQP publisher initialized", "exchange", cfg.AMQPExchange)
		}

		// Changes made by the worker, ledgerctl or other instances evict the
		// cached session so the next request reloads from the store.
		sub, err := amqp.NewSubscriber(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue+".sessions."+source, logger, ledger.MutationEvents()...)
		if err != nil {
			logger.Warn("AMQP subscriber unavailable, sessions will not see external changes", log.FieldError, err)
		} else {
			subscriber = sub
		}
	}

	st := res.Backend
	registry := session.NewRegistry(func(owner string) *ledger.Manager {
		return ledger.New(owner, st, opts...)
	}, cfg.SessionCacheSize, cfg.SessionTTL, logger)

	authSvc := auth.NewService(res.Backend, auth.Config{
		Secret:     cfg.JWTSecret,
		TTL:        cfg.JWTTTL,
		BcryptCost: cfg.BcryptCost,
	}, logger)
	authSvc.Subscribe(registry.HandleAuthEvent)
	if n, err := authSvc.LoadRevocations(context.Background()); err != nil {
		logger.Error("Failed to load revoked sessions", log.FieldError, err)
		os.Exit(1)
	} else if n > 0 {
		logger.Info("Restored revoked sessions", "count", n)
	}

	caches := cache.NewManager()
	caches.Register(sweepFunc(func() int {
		removed := registry.Cleaner().CleanExpired()
		if m != nil {
			m.ActiveSessions.Set(float64(registry.Size()))
		}
		return removed
	}))
	caches.Register(authSvc.Revoked())
	if m != nil {
		caches.OnSweep(func(removed int) {
			m.CacheEvictions.Add(float64(removed))
		})
	}
	caches.StartCleanup(cfg.CacheSweepInterval)

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Auth:      authSvc,
		Sessions:  registry,
		Backend:   res.Backend,
		Broker:    broker,
		Metrics:   m,
		Logger:    logger,
		RateLimit: ratelimit.Config{RequestsPerMinute: cfg.RateLimitRPM},
	})

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		caches.Stop()
		if subscriber != nil {
			if err := subscriber.Close(); err != nil {
				logger.Warn("AMQP subscriber close error", log.FieldError, err)
			}
		}
		if amqpClient != nil {
			if err := amqpClient.Close(); err != nil {
				logger.Warn("AMQP close error", log.FieldError, err)
			}
		}
		if res.Cleanup != nil {
			if err := res.Cleanup(); err != nil {
				logger.Error("Backend cleanup error", log.FieldError, err)
			}
		}
	})

	if subscriber != nil {
		go func() {
			if err := subscriber.Consume(ctx, registry.HandleLedgerEvent(source)); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Session invalidation consumer stopped", log.FieldError, err)
			}
		}()
	}

	go func() {
		logger.Info("Starting financeflow server",
			"port", cfg.Port,
			"backend", cfg.DataBackend,
			"metrics", m != nil,
			"events", amqpClient != nil,
			"source", source)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
			os.Exit(1)
		}
	}()

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
