package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/covid-trends-service/internal/adapter/httpadapter"
	kafkaadapter "github.com/couchcryptid/covid-trends-service/internal/adapter/kafka"
	"github.com/couchcryptid/covid-trends-service/internal/chart"
	"github.com/couchcryptid/covid-trends-service/internal/config"
	"github.com/couchcryptid/covid-trends-service/internal/domain"
	"github.com/couchcryptid/covid-trends-service/internal/observability"
	"github.com/couchcryptid/covid-trends-service/internal/pipeline"
	"github.com/couchcryptid/covid-trends-service/internal/session"
	"github.com/couchcryptid/covid-trends-service/internal/source"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	fetcher := source.NewFetcher(cfg, metrics, logger)
	transformer := pipeline.NewTransformer(domain.DefaultLookupTables(), logger)
	sess := session.New(chart.NewCache(cfg.ChartCacheSize), metrics, logger)

	// Region summaries are published only when KAFKA_ENABLED is set.
	var summaries pipeline.SummaryLoader
	var writer *kafkaadapter.SummaryWriter
	if cfg.KafkaEnabled {
		writer = kafkaadapter.NewSummaryWriter(cfg, logger)
		summaries = writer
		logger.Info("kafka summaries enabled", "topic", cfg.KafkaSummaryTopic, "brokers", cfg.KafkaBrokers)
	} else {
		logger.Info("kafka summaries disabled")
	}

	p := pipeline.New(fetcher, transformer, sess, summaries, logger, metrics)

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, sess, p, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Load the dataset, retrying until the first load succeeds.
	go func() {
		if err := p.Run(ctx); err != nil {
			logger.Error("pipeline error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
