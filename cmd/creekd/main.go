package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/couchcryptid/creek-quality-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/creek-quality-service/internal/adapter/kafka"
	"github.com/couchcryptid/creek-quality-service/internal/app"
	"github.com/couchcryptid/creek-quality-service/internal/config"
	"github.com/couchcryptid/creek-quality-service/internal/nearest"
	"github.com/couchcryptid/creek-quality-service/internal/observability"
	"github.com/couchcryptid/creek-quality-service/internal/pipeline"
	"github.com/couchcryptid/creek-quality-service/internal/query"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	source, closeSource, err := app.OpenSource(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open feed source", "error", err)
		os.Exit(1)
	}

	svc := query.NewService(cfg.Thresholds)
	router := app.NewRouter(cfg, metrics, logger)
	finder := nearest.NewFinder(router, svc, app.NearestOptions(cfg), logger, metrics)

	var (
		publisher pipeline.SummaryPublisher
		writer    *kafkaadapter.Writer
	)
	if cfg.KafkaEnabled {
		writer = kafkaadapter.NewWriter(cfg, logger)
		publisher = writer
		logger.Info("summary publication enabled", "topic", cfg.KafkaSummaryTopic, "brokers", cfg.KafkaBrokers)
	}

	refresher := pipeline.New(source, source, svc, publisher, pipeline.Options{
		Interval: cfg.RefreshInterval,
		Anchor:   cfg.WeekAnchor,
	}, logger, metrics)

	api := httpadapter.NewAPI(svc, finder, logger)
	srv := httpadapter.NewServer(cfg.HTTPAddr, svc, api, logger)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start refresher.
	refresherDone := make(chan struct{})
	go func() {
		defer close(refresherDone)
		if err := refresher.Run(ctx); err != nil {
			logger.Error("refresher error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	// The refresher may still hold the source and writer mid-refresh.
	select {
	case <-refresherDone:
	case <-shutdownCtx.Done():
		logger.Warn("refresher did not stop before shutdown timeout")
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}
	if err := closeSource(); err != nil {
		logger.Error("feed source close error", "error", err)
	}

	logger.Info("shutdown complete")
}
