package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/BuzzLyutic/taskflow-api/internal/auth"
	"github.com/BuzzLyutic/taskflow-api/internal/cache"
	"github.com/BuzzLyutic/taskflow-api/internal/config"
	"github.com/BuzzLyutic/taskflow-api/internal/handler"
	"github.com/BuzzLyutic/taskflow-api/internal/middleware"
	"github.com/BuzzLyutic/taskflow-api/internal/repo"
	"github.com/BuzzLyutic/taskflow-api/internal/service"
	"github.com/BuzzLyutic/taskflow-api/internal/worker"
	"github.com/BuzzLyutic/taskflow-api/migrations"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// The logger depends on APP_ENV, so config errors go to stderr directly.
		zap.NewExample().Fatal("Failed to load configuration", zap.Error(err))
	}

	logger := newLogger(cfg.App)
	defer logger.Sync()

	ctx := context.Background()

	if err := migrations.Up(ctx, cfg.DB.URL); err != nil {
		logger.Fatal("Failed to apply migrations", zap.Error(err))
	}

	pool, err := pgxpool.New(ctx, cfg.DB.URL)
	if err != nil {
		logger.Fatal("Failed to connect to Database", zap.Error(err))
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		logger.Fatal("Failed to ping the Database", zap.Error(err))
	}
	logger.Info("Successfully connected to the Database")

	var statsCache service.StatsCache
	if cfg.Redis.URL != "" {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			logger.Fatal("Invalid REDIS_URL", zap.Error(err))
		}
		rdb := redis.NewClient(opts)
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn("Redis unreachable, stats will be read from the Database", zap.Error(err))
		}
		statsCache = cache.NewStatsCache(rdb, cfg.Redis.StatsTTL.Std())
	}

	codec := auth.NewTokenCodec(auth.TokenConfig{
		Secret:   cfg.JWT.Secret,
		Lifetime: cfg.JWT.ExpiresIn.Std(),
		Issuer:   cfg.JWT.Issuer,
	})
	hasher := auth.NewPasswordHasher(auth.DefaultBcryptCost)

	userRepo := repo.NewUserRepo(pool)
	taskRepo := repo.NewTaskRepo(pool, cfg.Idempotency.KeyTTL.Std())

	janitor := worker.NewJanitor(taskRepo, logger, cfg.Idempotency.PruneInterval.Std(), cfg.Idempotency.KeyTTL.Std())
	janitor.Start(ctx)
	defer janitor.Stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	router := handler.Router{
		Config: handler.RouterConfig{
			CORSOrigin:    cfg.HTTP.CORSOrigin,
			MaxBodyBytes:  cfg.HTTP.MaxBodyBytes,
			RateLimit:     cfg.RateLimit.Requests,
			AuthRateLimit: cfg.RateLimit.AuthRequests,
			RateWindow:    cfg.RateLimit.Window.Std(),
		},
		Auth:    handler.NewAuthHandler(service.NewUserService(userRepo, hasher, codec), logger),
		Tasks:   handler.NewTaskHandler(service.NewTaskService(taskRepo, statsCache, logger), logger),
		Profile: handler.NewProfileHandler(service.NewProfileService(userRepo, taskRepo, hasher, statsCache, logger), logger),
		Gate:    auth.NewGate(codec, userRepo, logger),
		Metrics: middleware.NewMetrics(reg),
		Logger:  logger,
	}

	srv := http.Server{
		Addr:         ":" + cfg.HTTP.Port,
		Handler:      router.Handler(),
		ReadTimeout:  cfg.HTTP.ReadTimeout.Std(),
		WriteTimeout: cfg.HTTP.WriteTimeout.Std(),
		IdleTimeout:  cfg.HTTP.IdleTimeout.Std(),
	}

	go func() {
		logger.Info("Server started", zap.String("addr", srv.Addr), zap.String("env", cfg.App.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)
	<-quit

	logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown error", zap.Error(err))
		return
	}
	logger.Info("Server stopped successfully")
}

func newLogger(app config.AppConfig) *zap.Logger {
	var (
		logger *zap.Logger
		err    error
	)
	if app.Dev() {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return zap.NewNop()
	}
	return logger
}
