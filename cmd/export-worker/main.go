package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"trainingclub/internal/amqp"
	"trainingclub/internal/backend"
	"trainingclub/internal/cli"
	clublog "trainingclub/internal/log"
	"trainingclub/internal/metrics"
	"trainingclub/internal/worker"
)

// metricsAddr serves the worker's Prometheus endpoint.
const metricsAddr = ":9091"

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger(slog.LevelInfo, clublog.ComponentWorker)
	cfg := cli.LoadAndValidateConfig(logger)
	logger = cli.SetupLogger(cfg.SlogLevel(), clublog.ComponentWorker)
	loc := cli.ClubLocation(logger, cfg)

	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the export worker")
		os.Exit(1)
	}

	ctx, stop := cli.SignalContext(clublog.NewContext(context.Background(), logger))
	defer stop()

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath, loc)
	defer repo.Close()

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid export backend configuration", "error", err)
		os.Exit(1)
	}
	appender, err := backend.Create(ctx, bcfg, logger.Logger)
	if err != nil {
		logger.Error("Failed to initialize export backend", "error", err, "backend", cfg.ExportBackend)
		os.Exit(1)
	}
	logger.Info("Export backend ready", "backend", cfg.ExportBackend)

	client, err := amqp.ConnectWithRetry(ctx, cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, 10)
	if err != nil {
		logger.Error("Failed to connect to AMQP", "error", err)
		os.Exit(1)
	}
	defer client.Close()

	m := metrics.New()
	exporter := worker.NewExportWorker(repo, appender, m)

	metricsSrv := &http.Server{
		Addr:              metricsAddr,
		Handler:           m.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting export worker", "queue", cfg.AMQPQueue, "exchange", cfg.AMQPExchange)
		return client.ConsumeEvents(gctx, exporter.HandleEvent)
	})
	g.Go(func() error {
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return metricsSrv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Export worker stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("Export worker stopped gracefully")
}
