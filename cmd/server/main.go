package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SwipeSavdev/camp-card-sub001/internal/config"
	"github.com/SwipeSavdev/camp-card-sub001/internal/handler"
	appMiddleware "github.com/SwipeSavdev/camp-card-sub001/internal/middleware"
	"github.com/SwipeSavdev/camp-card-sub001/internal/repository"
	"github.com/SwipeSavdev/camp-card-sub001/internal/scheduler"
	"github.com/SwipeSavdev/camp-card-sub001/internal/server"
	"github.com/SwipeSavdev/camp-card-sub001/internal/service"
	"github.com/SwipeSavdev/camp-card-sub001/internal/ws"
	"github.com/SwipeSavdev/camp-card-sub001/pkg/crypto"
	"github.com/SwipeSavdev/camp-card-sub001/pkg/payment"
	"github.com/redis/go-redis/v9"
)

func main() {
	// Load .env file if present (for local development)
	config.LoadDotEnv()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config error", "error", err)
		os.Exit(1)
	}
	logger := newLogger(cfg.LogFormat)
	slog.SetDefault(logger)

	ctx := context.Background()

	// Initialize database
	db, err := repository.NewDB(ctx, cfg.DatabaseURL)
	if err != nil {
		fatal("database error", err)
	}
	defer db.Close()

	if err := repository.RunMigrations(ctx, db); err != nil {
		fatal("migration error", err)
	}
	if err := repository.SeedPlans(ctx, db); err != nil {
		fatal("plan seed error", err)
	}
	slog.Info("database connected and migrated")

	enc, err := crypto.NewEncryptor(cfg.EncryptionKey)
	if err != nil {
		fatal("encryption error", err)
	}

	// Shared rate limiting is optional; without Redis limits are per process.
	var sharedLimits *appMiddleware.RedisWindow
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			fatal("invalid REDIS_URL", err)
		}
		redisClient := redis.NewClient(opts)
		defer redisClient.Close()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			slog.Warn("redis unavailable, falling back to local rate limits", "error", err)
		} else {
			perMinute := int(cfg.RateLimitRPS * 60)
			sharedLimits = appMiddleware.NewRedisWindow(redisClient, "campcard:rate_limit", perMinute, time.Minute)
			slog.Info("redis rate limiting enabled")
		}
	}

	// Repositories
	userRepo := repository.NewUserRepository(db)
	troopRepo := repository.NewTroopRepository(db)
	planRepo := repository.NewPlanRepository(db)
	subRepo := repository.NewSubscriptionRepository(db)
	referralRepo := repository.NewReferralRepository(db)
	qrRepo := repository.NewQRRepository(db)
	locationRepo := repository.NewLocationRepository(db)
	cacheRepo := repository.NewCacheRepository(db)

	// Services
	authSvc := service.NewAuthService(cfg.JWTSecret, cfg.AdminEmail, cfg.AdminPassword, userRepo)
	if err := authSvc.SeedAdmin(ctx); err != nil {
		fatal("admin seed error", err)
	}

	hub := ws.NewHub()
	referralSvc := service.NewReferralService(referralRepo, userRepo, cfg.ReferralRewardCents, cfg.PublicBaseURL)
	subSvc := service.NewSubscriptionService(subRepo, planRepo, payment.NewMockGateway(), enc, referralSvc)
	troopSvc := service.NewTroopService(troopRepo)
	userSvc := service.NewUserService(userRepo, troopRepo)
	qrSvc := service.NewQRCodeService(qrRepo, userRepo, cfg.PublicBaseURL, cfg.QRCodeTTL, cfg.OfferLinkTTL)
	locationSvc := service.NewLocationService(locationRepo, cacheRepo, hub)

	// Background jobs
	jobs := scheduler.New(subSvc, troopSvc, scheduler.Schedules{
		SubscriptionSweep: cfg.SubscriptionSweepSchedule,
		TroopStats:        cfg.TroopStatsSchedule,
	}, logger)
	if err := jobs.Start(); err != nil {
		fatal("scheduler error", err)
	}

	router := server.NewRouter(server.Handlers{
		Health:        handler.NewHealthHandler(db),
		Auth:          handler.NewAuthHandler(authSvc, userSvc),
		Subscriptions: handler.NewSubscriptionHandler(subSvc),
		CampCards:     handler.NewCampCardHandler(subSvc),
		Troops:        handler.NewTroopHandler(troopSvc),
		Users:         handler.NewUserHandler(userSvc),
		Referrals:     handler.NewReferralHandler(referralSvc),
		QRCodes:       handler.NewQRCodeHandler(qrSvc),
		Location:      handler.NewLocationHandler(locationSvc),
		Positions:     ws.NewPositionStream(hub, authSvc),
	}, authSvc, server.Options{
		CORSOrigins:    cfg.CORSOrigins,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
		SharedLimits:   sharedLimits,
	})

	addr := fmt.Sprintf("0.0.0.0:%d", cfg.Port)
	srv := &http.Server{
		Addr:        addr,
		Handler:     router,
		ReadTimeout: 30 * time.Second,
		// WriteTimeout must be 0 for WebSocket connections (they are long-lived)
		IdleTimeout: 120 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			slog.Error("server shutdown failed", "error", err)
		}
		select {
		case <-jobs.Stop().Done():
		case <-ctx.Done():
		}
	}()

	slog.Info("camp card API listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		fatal("server error", err)
	}
}

func newLogger(format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if format == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

func fatal(msg string, err error) {
	slog.Error(msg, "error", err)
	os.Exit(1)
}
