package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/miniapp-shop/internal/carrier"
	"github.com/noah-isme/miniapp-shop/internal/config"
	"github.com/noah-isme/miniapp-shop/internal/lock"
	"github.com/noah-isme/miniapp-shop/internal/obs"
	"github.com/noah-isme/miniapp-shop/internal/repo"
	"github.com/noah-isme/miniapp-shop/internal/shipment"
)

const taskTrackingRefresh = "tracking:refresh"

func main() {
	cfg := config.MustLoad()

	logFormat := envOrDefault("OBS_LOG_FORMAT", "json")
	logLevel := envOrDefault("OBS_LOG_LEVEL", "info")
	logger := obs.NewLogger(logFormat, logLevel).With().Str("component", "worker").Logger()

	obs.MustRegisterDomainMetrics(envOrDefault("OBS_METRICS_NAMESPACE", "miniapp_shop"), nil)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool := mustInitDatabase(ctx, cfg, logger)
	defer pool.Close()

	redisClient := mustInitRedis(ctx, cfg, logger)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close redis")
		}
	}()

	orderStore := &repo.OrderPG{Pool: pool}
	jne := carrier.NewJNE(carrier.JNEConfig{
		AppKey:          cfg.CarrierAppKey,
		AppSecret:       cfg.CarrierAppSecret,
		BaseURL:         cfg.CarrierBaseURL,
		TrackPath:       cfg.CarrierTrackPath,
		Timeout:         cfg.CarrierTimeout,
		DisableFallback: cfg.CarrierDisableFallback,
		Logger:          logger,
	})
	router := carrier.NewRouter(jne)
	shipSvc := &shipment.Service{
		Store:  orderStore,
		Router: router,
		Logger: logger,
	}
	refresher := &shipment.Refresher{Svc: shipSvc, Logger: logger}
	locker := &lock.Locker{Client: redisClient}

	redisOpt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis uri for asynq")
	}

	scheduler := asynq.NewScheduler(redisOpt, &asynq.SchedulerOpts{})
	interval := fmt.Sprintf("@every %s", cfg.TrackingRefreshInterval)
	if _, err := scheduler.Register(interval, asynq.NewTask(taskTrackingRefresh, nil)); err != nil {
		logger.Fatal().Err(err).Msg("register tracking refresh schedule")
	}

	server := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: 2,
	})
	mux := asynq.NewServeMux()
	mux.HandleFunc(taskTrackingRefresh, func(taskCtx context.Context, _ *asynq.Task) error {
		// Single-flight across worker replicas; a crashed holder's lock
		// expires with the refresh interval.
		release, ok, err := locker.Acquire(taskCtx, taskTrackingRefresh, cfg.TrackingRefreshInterval)
		if err != nil {
			return err
		}
		if !ok {
			logger.Debug().Msg("tracking refresh already running elsewhere")
			return nil
		}
		defer release()
		return refresher.RefreshOnce(taskCtx)
	})

	go func() {
		if err := scheduler.Run(); err != nil {
			logger.Error().Err(err).Msg("scheduler stopped")
		}
	}()

	logger.Info().Str("interval", cfg.TrackingRefreshInterval.String()).Msg("worker starting")
	if err := server.Start(mux); err != nil {
		logger.Fatal().Err(err).Msg("start task server")
	}

	<-ctx.Done()
	scheduler.Shutdown()
	server.Shutdown()
	logger.Info().Msg("worker shutdown complete")
}

func mustInitDatabase(ctx context.Context, cfg *config.Config, logger zerolog.Logger) *pgxpool.Pool {
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse database config")
	}
	poolConfig.ConnConfig.Tracer = obs.PGXTracer{}
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	if err := pool.Ping(ctx); err != nil {
		logger.Fatal().Err(err).Msg("ping database")
	}
	return pool
}

func mustInitRedis(ctx context.Context, cfg *config.Config, logger zerolog.Logger) *redis.Client {
	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	redisClient := redis.NewClient(redisOpts)
	if err := redisotel.InstrumentTracing(redisClient); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("ping redis")
	}
	return redisClient
}

func envOrDefault(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		trimmed := strings.TrimSpace(val)
		if trimmed != "" {
			return trimmed
		}
	}
	return fallback
}
