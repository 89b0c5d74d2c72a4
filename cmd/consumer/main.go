package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/segmentio/kafka-go"

	"example.com/extracurricular/internal/config"
	"example.com/extracurricular/internal/consumer"
	"example.com/extracurricular/internal/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", slog.Any("err", err))
		os.Exit(1)
	}

	logger := logging.New(logging.Config{
		Service: "mergington-signup-audit",
		Version: cfg.ServiceVersion,
		Env:     logging.ParseEnv(cfg.AppEnv),
		Level:   logging.ParseLevel(cfg.LogLevel),
		Backend: logging.Backend(cfg.LogBackend),
	})
	slog.SetDefault(logger)

	if !cfg.EventsEnabled() {
		logger.Error("KAFKA_BROKERS is required for the audit consumer")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.PostgresURL)
	if err != nil {
		logger.Error("connect to postgres", slog.Any("err", err))
		os.Exit(1)
	}
	defer pool.Close()

	metricsSrv := &http.Server{
		Addr:              cfg.MetricsAddress,
		Handler:           promhttp.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("consumer metrics listening", slog.String("addr", cfg.MetricsAddress))
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server error", slog.Any("err", err))
		}
	}()

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:         cfg.KafkaBrokers,
		GroupID:         cfg.ConsumerGroupID,
		Topic:           cfg.SignupTopic,
		MinBytes:        1e3,
		MaxBytes:        10e6,
		CommitInterval:  time.Second,
		RetentionTime:   24 * time.Hour,
		ReadLagInterval: -1,
	})
	defer func() {
		if err := reader.Close(); err != nil {
			logger.Warn("close kafka reader", slog.Any("err", err))
		}
	}()

	proc := consumer.NewProcessor(reader, consumer.NewAuditHandler(pool),
		consumer.WithLogger(logger.With(slog.String("topic", cfg.SignupTopic))))

	logger.Info("consumer started", slog.String("topic", cfg.SignupTopic), slog.String("group", cfg.ConsumerGroupID))
	if err := proc.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("consumer stopped with error", slog.Any("err", err))
	}
	logger.Info("consumer shutdown requested")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics server shutdown error", slog.Any("err", err))
	}
}
