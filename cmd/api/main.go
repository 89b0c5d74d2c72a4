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

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"example.com/extracurricular/internal/api"
	"example.com/extracurricular/internal/auth"
	"example.com/extracurricular/internal/config"
	"example.com/extracurricular/internal/domain"
	"example.com/extracurricular/internal/logging"
	"example.com/extracurricular/internal/outbox"
	"example.com/extracurricular/internal/registry"
	httptransport "example.com/extracurricular/internal/transport/http"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", slog.Any("err", err))
		os.Exit(1)
	}

	logger := logging.New(logging.Config{
		Service: "mergington-registry-api",
		Version: cfg.ServiceVersion,
		Env:     logging.ParseEnv(cfg.AppEnv),
		Level:   logging.ParseLevel(cfg.LogLevel),
		Backend: logging.Backend(cfg.LogBackend),
	})
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	seed, err := registry.LoadSeed(cfg.SeedPath)
	if err != nil {
		logger.Error("load seed", slog.String("path", cfg.SeedPath), slog.Any("err", err))
		os.Exit(1)
	}
	repo, err := registry.NewInMemoryRepository(seed)
	if err != nil {
		logger.Error("build registry", slog.Any("err", err))
		os.Exit(1)
	}

	opts := []domain.Option{
		domain.WithEmailDomain(cfg.EmailDomain),
		domain.WithLogger(logger),
	}
	if cfg.EventsEnabled() {
		producer := outbox.NewKafkaProducer(cfg.KafkaBrokers)
		defer func() {
			if err := producer.Close(); err != nil {
				logger.Warn("close kafka producer", slog.Any("err", err))
			}
		}()

		pubCfg := outbox.PublisherConfig{Topic: cfg.SignupTopic}
		var publisher *outbox.Publisher
		if cfg.SchemaRegistryURL != "" {
			publisher = outbox.NewPublisher(producer, outbox.NewSchemaRegistryClient(cfg.SchemaRegistryURL, 5*time.Second), pubCfg)
		} else {
			publisher = outbox.NewPublisher(producer, nil, pubCfg)
		}
		opts = append(opts, domain.WithPublisher(publisher))
		logger.Info("signup events enabled", slog.Any("brokers", cfg.KafkaBrokers), slog.String("topic", cfg.SignupTopic))
	}
	service := domain.NewService(repo, opts...)

	handlerOpts := []api.Option{api.WithLogger(logger)}
	if cfg.AuthRequired {
		mw := auth.NewMiddleware(auth.Config{Secret: cfg.JWTSecret, Issuer: cfg.JWTIssuer}, api.UnauthorizedHandler)
		handlerOpts = append(handlerOpts, api.WithAuth(mw))
	}
	handler := api.NewHandler(service, handlerOpts...)

	router := chi.NewRouter()
	router.Use(httptransport.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)
	router.Use(httptransport.RequestLogger(logger))
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", httptransport.HeaderRequestID},
		ExposedHeaders: []string{httptransport.HeaderRequestID},
		MaxAge:         300,
	}))

	handler.RegisterRoutes(router)
	if info, err := os.Stat(cfg.StaticDir); err == nil && info.IsDir() {
		api.RegisterStatic(router, cfg.StaticDir)
	} else {
		logger.Warn("static directory unavailable, front-end disabled", slog.String("dir", cfg.StaticDir))
	}
	router.Handle("/metrics", promhttp.Handler())

	server := httptransport.NewServer(httptransport.ServerConfig{
		Address:      cfg.HTTPAddress,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}, router)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("registry api listening",
			slog.String("addr", cfg.HTTPAddress),
			slog.Int("activities", repo.Len()),
			slog.Bool("auth_required", cfg.AuthRequired),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown requested")
	case err := <-errCh:
		if err != nil {
			logger.Error("server error", slog.Any("err", err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", slog.Any("err", err))
	}
}
