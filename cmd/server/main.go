package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	config "github.com/fruitytales/questsite/configs"
	"github.com/fruitytales/questsite/internal/application/services"
	"github.com/fruitytales/questsite/internal/core/ports"
	"github.com/fruitytales/questsite/internal/infrastructure/db"
	"github.com/fruitytales/questsite/internal/infrastructure/health"
	"github.com/fruitytales/questsite/internal/infrastructure/httpserver"
	"github.com/fruitytales/questsite/internal/infrastructure/mailing"
	"github.com/fruitytales/questsite/internal/infrastructure/redis"
	"github.com/fruitytales/questsite/internal/infrastructure/repositories"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	// Setup logger
	logger := logrus.New()
	if cfg.Log.Format == "text" {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		logger.SetLevel(logrus.InfoLevel)
	} else {
		logger.SetLevel(level)
	}

	logger.Info("Starting Fruity Tales signup service...")

	// The store handle lives for the whole process and is shared by every request.
	database, err := db.NewDatabaseWithConfig(&cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database:", err)
	}
	defer database.Close()

	logger.Info("Connected to database successfully")

	if err := database.Migrate(cfg.Database.MigrationsPath); err != nil {
		logger.Fatal("Failed to run migrations:", err)
	}

	hcSlice := []ports.HealthChecker{health.NewDBHealthChecker(database)}

	var rateLimiterService ports.RateLimiterService
	if cfg.Redis.Enabled {
		redisClient, err := redis.NewRedisClient(&cfg.Redis)
		if err != nil {
			logger.Fatal("Failed to connect to Redis:", err)
		}
		defer redisClient.Close()
		logger.Info("Connected to Redis successfully")

		rateLimiterService = services.NewRateLimiterService(
			repositories.NewRateLimitRedisRepository(redisClient),
			&services.RateLimiterConfig{
				RequestsPerMinute: cfg.RateLimit.DefaultRequestsPerMinute,
				BurstMultiplier:   cfg.RateLimit.BurstMultiplier,
				Window:            cfg.RateLimit.Window,
				KeyPrefix:         cfg.RateLimit.KeyPrefix,
			},
			logger,
		)
		hcSlice = append(hcSlice, health.NewRedisHealthChecker(redisClient))
	} else {
		logger.Info("Redis disabled; per-IP rate limiting is off")
	}

	provider, err := mailing.NewProvider(&cfg.Mailing, logger)
	if err != nil {
		logger.Fatal("Failed to initialize mailing provider:", err)
	}

	var notifier ports.MailingListNotifier
	var mailingNotifier *services.MailingListNotifier
	if provider != nil {
		mailingNotifier = services.NewMailingListNotifier(provider, cfg.Mailing.Timeout, logger, httpserver.GetMailingNotificationsTotal())
		notifier = mailingNotifier
		logger.WithField("provider", provider.Name()).Info("Mailing list fan-out enabled")
	} else {
		logger.Info("No mailing provider key configured; fan-out disabled")
	}

	subscriberRepo := repositories.NewSubscriberRepository(database, logger)
	subscriptionService := services.NewSubscriptionService(subscriberRepo, notifier, logger)

	serverConfig := &httpserver.ServerConfig{
		Host:           cfg.Server.Host,
		Port:           cfg.Server.Port,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		TLSCertFile:    cfg.Server.TLSCertFile,
		TLSKeyFile:     cfg.Server.TLSKeyFile,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		TrustedProxies: cfg.Server.TrustedProxies,
		Environment:    cfg.Server.Environment,
	}

	server := httpserver.NewServer(serverConfig, logger, httpserver.ServerDeps{
		SubscriptionService: subscriptionService,
		RateLimiterService:  rateLimiterService,
		HealthCheckers:      hcSlice,
	})

	// Start server in a goroutine
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server:", err)
		}
	}()

	logger.Infof("Server started on %s:%s", cfg.Server.Host, cfg.Server.Port)

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown:", err)
	}

	// Pending mailing-list dispatches get the rest of the shutdown budget.
	if mailingNotifier != nil {
		if err := mailingNotifier.Close(ctx); err != nil {
			logger.WithError(err).Warn("Mailing list dispatches still in flight at shutdown")
		}
	}

	logger.Info("Server exited")
}
