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

	"github.com/Priya8975/address-monitor-registry/internal/api"
	"github.com/Priya8975/address-monitor-registry/internal/config"
	"github.com/Priya8975/address-monitor-registry/internal/engine"
	"github.com/Priya8975/address-monitor-registry/internal/registry"
	"github.com/Priya8975/address-monitor-registry/internal/store"
	ws "github.com/Priya8975/address-monitor-registry/internal/websocket"
	"github.com/Priya8975/address-monitor-registry/internal/worker"
	"github.com/redis/go-redis/v9"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Redis backs the event queue and the rate limiter whenever it is
	// configured, independent of the store backend.
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Error("failed to parse redis URL", "error", err)
			os.Exit(1)
		}
		redisClient = redis.NewClient(opts)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		defer redisClient.Close()
		logger.Info("connected to Redis")
	}

	var st registry.Store
	switch cfg.StoreBackend {
	case config.BackendPostgres:
		pgStore, err := store.NewPostgres(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			logger.Error("failed to connect to postgres", "error", err)
			os.Exit(1)
		}
		defer pgStore.Close()
		logger.Info("connected to PostgreSQL")

		if err := pgStore.RunMigrations(ctx, cfg.MigrationsDir); err != nil {
			logger.Error("failed to run migrations", "error", err)
			os.Exit(1)
		}
		logger.Info("database migrations applied")
		st = pgStore
	case config.BackendRedis:
		st = store.NewRedisWithClient(redisClient, logger)
	default:
		st = store.NewMemory()
	}
	logger.Info("registry store ready", "backend", cfg.StoreBackend)

	clock := registry.NewBlockClock(cfg.GenesisHeight, cfg.GenesisTime, cfg.BlockInterval)

	hub := ws.NewHub(logger, cfg.AllowedOrigins...)
	go hub.Run(ctx)

	notifiers := []registry.Notifier{hub}
	var events api.EventSource
	var limiter api.RateLimiter
	if redisClient != nil {
		publisher := engine.NewPublisher(redisClient, logger)
		notifiers = append(notifiers, publisher)
		events = publisher
		limiter = engine.NewRateLimiter(redisClient, logger)
		go worker.NewRetention(publisher, cfg.EventRetention, time.Minute, logger).Start(ctx)
	}

	genesis, err := cfg.Balances()
	if err != nil {
		logger.Error("invalid genesis balances", "error", err)
		os.Exit(1)
	}

	reg := registry.New(st, clock, logger, notifiers...)
	settings, err := reg.Bootstrap(ctx, cfg.Settings(), genesis...)
	if err != nil {
		logger.Error("failed to bootstrap registry", "error", err)
		os.Exit(1)
	}
	logger.Info("registry bootstrapped",
		"owner", settings.Owner,
		"duration", settings.Duration,
		"fee", settings.Fee,
	)

	router := api.NewRouter(api.Deps{
		Registry:       reg,
		Clock:          clock,
		Events:         events,
		Hub:            hub,
		Limiter:        limiter,
		RateLimit:      cfg.RateLimitPerSecond,
		JWTSecret:      []byte(cfg.JWTSecret),
		AllowedOrigins: cfg.AllowedOrigins,
		Logger:         logger,
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
