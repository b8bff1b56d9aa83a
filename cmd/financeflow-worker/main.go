package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"financeflow/internal/amqp"
	"financeflow/internal/cli"
	"financeflow/internal/ledger"
	"financeflow/internal/log"
	"financeflow/internal/metrics"
	"financeflow/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL")).WithComponent(log.ComponentWorker)
	logger.Info("Starting financeflow-worker")

	cfg := cli.LoadAndValidateConfig(logger)
	if !cfg.AMQPEnabled() {
		logger.Error("AMQP_URL is required to consume reconcile requests")
		os.Exit(1)
	}
	if cfg.DataBackend != "sqlite" {
		logger.Warn("Worker is not sharing a store with the server", "backend", cfg.DataBackend)
	}

	res := cli.InitBackend(context.Background(), logger, cfg)

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}

	var (
		recorder   ledger.Recorder
		publisher  ledger.Publisher = amqpClient
		metricsSrv *http.Server
	)
	if cfg.MetricsEnabled && cfg.WorkerMetricsAddr != "" {
		m := metrics.New()
		recorder = m
		publisher = m.Publisher(publisher)
		mux := http.NewServeMux()
		mux.Handle("/metrics", m.Handler())
		metricsSrv = &http.Server{Addr: cfg.WorkerMetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("Metrics server error", log.FieldError, err, "addr", cfg.WorkerMetricsAddr)
			}
		}()
	}

	reconciler := worker.NewReconcileWorker(res.Backend, recorder, logger).WithPublisher(publisher)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if metricsSrv != nil {
			_ = metricsSrv.Shutdown(ctx)
		}
		if err := amqpClient.Close(); err != nil {
			logger.Warn("AMQP close error", log.FieldError, err)
		}
		if res.Cleanup != nil {
			if err := res.Cleanup(); err != nil {
				logger.Error("Backend cleanup error", log.FieldError, err)
			}
		}
	})

	// Requests published while the worker was down are gone; a full pass
	// catches what they would have fixed.
	logger.Info("Performing startup reconcile check...")
	if err := reconciler.StartupCheck(ctx); err != nil {
		logger.Error("Startup reconcile check failed", log.FieldError, err)
	}

	go func() {
		ticker := time.NewTicker(cfg.ReconcileInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := reconciler.StartupCheck(ctx); err != nil {
					logger.Error("Periodic reconcile failed", log.FieldError, err)
				}
			}
		}
	}()

	logger.Info("Consuming reconcile requests", "queue", cfg.AMQPQueue)
	if err := amqpClient.Consume(ctx, reconciler.HandleEvent); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", log.FieldError, err)
		_ = amqpClient.Close()
		if res.Cleanup != nil {
			_ = res.Cleanup()
		}
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped gracefully")
}
