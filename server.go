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

	"github.com/isdelr/bizops-api/internal/api"
	"github.com/isdelr/bizops-api/internal/api/handlers"
	"github.com/isdelr/bizops-api/internal/auth"
	"github.com/isdelr/bizops-api/internal/broker"
	"github.com/isdelr/bizops-api/internal/cache"
	"github.com/isdelr/bizops-api/internal/database"
	"github.com/isdelr/bizops-api/internal/models"
	"github.com/isdelr/bizops-api/internal/monitoring"
	"github.com/isdelr/bizops-api/internal/ratelimit"
	"github.com/isdelr/bizops-api/internal/resources"
	"github.com/isdelr/bizops-api/internal/services"
	"github.com/isdelr/bizops-api/internal/telemetry"
	"github.com/isdelr/bizops-api/internal/websocket"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func runServe(cmd *cobra.Command, args []string) error {
	cfg, db, err := bootstrap()
	if err != nil {
		return err
	}
	defer database.Close(db)

	if err := database.Migrate(db); err != nil {
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}
	if err := resources.Check(); err != nil {
		return err
	}

	// Shared state lives in redis when configured, in process memory otherwise.
	var (
		revocations auth.RevocationStore = auth.NewMemoryRevocationStore()
		limiter     ratelimit.Limiter
		checks      = []handlers.Check{{Name: "database", Probe: func(ctx context.Context) error {
			return database.Ping(db.WithContext(ctx))
		}}}
	)
	if cfg.RedisAddr != "" {
		redisClient, err := cache.NewClient(cfg.RedisAddr)
		if err != nil {
			return err
		}
		defer redisClient.Close()
		revocations = redisClient
		checks = append(checks, handlers.Check{Name: "redis", Probe: redisClient.Ping})
		if cfg.RateLimit > 0 {
			limiter = ratelimit.NewRedisLimiter(redisClient, cfg.RateLimit, cfg.RateLimitWindow)
		}
	} else if cfg.RateLimit > 0 {
		limiter = ratelimit.NewMemoryLimiter(cfg.RateLimit, cfg.RateLimitWindow)
	}

	// Set up WebSocket Hub
	hub := websocket.NewHub()
	go hub.Run()

	publishers := []services.EventPublisher{hub, telemetry.EventCounter{}}
	var kafka *broker.KafkaPublisher
	if len(cfg.KafkaBrokers) > 0 {
		kafka = broker.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		publishers = append(publishers, kafka)
		log.Info().Strs("brokers", cfg.KafkaBrokers).Str("topic", cfg.KafkaTopic).Msg("Publishing events to kafka")
	}

	// Set up services
	eventService := services.NewEventService(db, publishers...)
	userService := services.NewUserService(db)
	maintenanceService := services.NewMaintenanceService(db, eventService)

	users := services.NewResourceService(db, resources.Users(), eventService)
	products := services.NewResourceService(db, resources.Products(), eventService)
	estimates := services.NewResourceService(db, resources.Estimates(), eventService)
	resourceRoutes := []handlers.ResourceRoutes{
		handlers.NewResourceHandler[models.User, resources.UserPayload](users),
		handlers.NewResourceHandler[models.Product, resources.ProductPayload](products),
		handlers.NewResourceHandler[models.Estimate, resources.EstimatePayload](estimates),
	}
	topics := make([]string, 0, len(resourceRoutes))
	for _, r := range resourceRoutes {
		topics = append(topics, r.Name())
	}

	// Set up and run the background stats updater
	statUpdater := monitoring.NewStatUpdater(eventService)
	go statUpdater.Run()

	// Set up and run the background scheduler
	scheduler, err := monitoring.NewScheduler(maintenanceService, cfg.MaintenanceCron, time.Duration(cfg.RetentionDays)*24*time.Hour)
	if err != nil {
		return err
	}
	go scheduler.Run()

	tokens := auth.NewManager(cfg.JWTSecret, cfg.TokenTTL, revocations)
	router := api.NewRouter(api.Dependencies{
		CORSOrigins: cfg.CORSOrigins,
		Auth:        tokens.Middleware(),
		Limiter:     limiter,
		Users:       handlers.NewUserHandler(userService, tokens, cfg.IsProduction()),
		Events:      handlers.NewEventHandler(eventService),
		Health:      handlers.NewHealthHandler(statUpdater, checks...),
		WebSocket:   handlers.NewWebSocketHandler(hub, topics, cfg.CORSOrigins),
		Resources:   resourceRoutes,
	})

	// Set up server
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	serverErr := make(chan error, 1)
	go func() {
		log.Info().Int("port", cfg.ServerPort).Str("env", cfg.AppEnv).Msg("Server starting")
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-serverErr:
		log.Error().Err(err).Msg("Server failed")
	}
	log.Info().Msg("Shutting down server...")

	statUpdater.Stop()
	scheduler.Stop()
	hub.Stop()
	if kafka != nil {
		if err := kafka.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to flush kafka writer")
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info().Msg("Server exiting")
	return nil
}
