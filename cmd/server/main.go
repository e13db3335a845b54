package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"loralinka/internal/config"
	"loralinka/internal/database"
	"loralinka/internal/logger"
	"loralinka/internal/ratelimit"
	"loralinka/internal/routes"

	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()
	logr := logger.New(cfg)
	defer logr.Sync()

	if err := cfg.Validate(); err != nil {
		logr.Fatal("invalid configuration", zap.Error(err))
	}

	db, err := database.Open(cfg)
	if err != nil {
		logr.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if cfg.AutoMigrate {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err := database.Migrate(ctx, db)
		cancel()
		if err != nil {
			logr.Fatal("failed to migrate database", zap.Error(err))
		}
		logr.Info("database schema ready")
	}

	store, closeStore := rateLimitStore(cfg, logr)
	defer closeStore()
	limiter := ratelimit.New(store,
		ratelimit.PerMinute(cfg.RateLimitPerMinute),
		ratelimit.PerHour(cfg.RateLimitPerHour))

	r := routes.NewRouter(db, cfg, logr, limiter)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logr.Info("server started", zap.String("port", cfg.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logr.Info("shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logr.Fatal("server forced to shutdown", zap.Error(err))
	}

	logr.Info("server exited gracefully")
}

// rateLimitStore uses Redis when REDIS_URL is set and reachable, and process memory otherwise.
func rateLimitStore(cfg *config.Config, logr *logger.Logger) (ratelimit.Store, func()) {
	if cfg.RedisURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		client, err := ratelimit.NewRedisClient(ctx, cfg.RedisURL)
		if err == nil {
			logr.Info("rate limiting with redis")
			return ratelimit.NewRedisStore(client), func() { _ = client.Close() }
		}
		logr.Warn("redis unavailable, falling back to in-memory rate limiting", zap.Error(err))
	} else {
		logr.Warn("REDIS_URL not set, using in-memory rate limiting")
	}

	mem := ratelimit.NewMemoryStore(5 * time.Minute)
	return mem, func() { _ = mem.Close() }
}
