package main

import (
	"context"
	"crypto/tls"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/mediconnect/platform/internal/api/router"
	"github.com/mediconnect/platform/internal/appointments"
	appconfig "github.com/mediconnect/platform/internal/config"
	"github.com/mediconnect/platform/internal/diagnosis"
	"github.com/mediconnect/platform/internal/directory"
	"github.com/mediconnect/platform/internal/notify"
	"github.com/mediconnect/platform/internal/observability/metrics"
	"github.com/mediconnect/platform/internal/transport"
	"github.com/mediconnect/platform/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting mediconnect API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	redisOpts := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOpts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	redisClient := redis.NewClient(redisOpts)

	// Metrics
	registry := prometheus.NewRegistry()
	apptMetrics := metrics.NewAppointmentMetrics(registry)
	diagMetrics := metrics.NewDiagnosisMetrics(registry)
	notifyMetrics := metrics.NewNotifyMetrics(registry)

	// Directory and auth
	userRepo, err := directory.NewInMemoryRepository()
	if err != nil {
		logger.Error("failed to load seed users", "error", err)
		os.Exit(1)
	}
	authService := directory.NewAuthService(userRepo, cfg.AuthJWTSecret, cfg.SessionTTL, logger)

	// Appointment lifecycle manager
	simulated := transport.NewSimulatedWithSeed(apptMetrics, time.Now().UnixNano())
	store := appointments.NewRedisStore(redisClient)
	manager := appointments.NewManager(store, directory.NewResolver(userRepo), simulated, apptMetrics, logger)
	manager.SetProfiles(
		transport.Profile{FailureRate: cfg.SimFailureRate, MinDelay: cfg.SimMinDelay, MaxDelay: cfg.SimMaxDelay},
		transport.Profile{FailureRate: cfg.SimAdminFailureRate, MinDelay: cfg.SimMinDelay, MaxDelay: cfg.SimMaxDelay},
	)

	loadCtx, cancelLoad := context.WithTimeout(context.Background(), 10*time.Second)
	if err := manager.Load(loadCtx); err != nil {
		cancelLoad()
		logger.Error("failed to load appointment collection", "error", err)
		os.Exit(1)
	}
	cancelLoad()

	// Notifications
	dispatcher := notify.NewDispatcher(notifyMetrics, logger, notify.NewLogSink(logger))

	// Symptom checker chat
	diagClient := diagnosis.NewClient(cfg.DiagnosisAPIBaseURL, cfg.DiagnosisAPIKey, cfg.DiagnosisAPITimeout, diagMetrics, logger)
	transcripts := diagnosis.NewTranscriptStore(redisClient)

	// Handlers
	directoryHandler := directory.NewHandler(userRepo, authService, logger)
	appointmentHandler := appointments.NewHandler(manager, dispatcher, logger)
	chatHandler := diagnosis.NewHandler(diagClient, transcripts, logger)

	// Setup router
	r := router.New(&router.Config{
		Logger:             logger,
		Auth:               authService,
		DirectoryHandler:   directoryHandler,
		AppointmentHandler: appointmentHandler,
		ChatHandler:        chatHandler,
		MetricsHandler:     promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
