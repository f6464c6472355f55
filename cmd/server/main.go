package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fathima-sithara/chat-backend/internal/config"
	"github.com/fathima-sithara/chat-backend/internal/database"
	"github.com/fathima-sithara/chat-backend/internal/discovery"
	"github.com/fathima-sithara/chat-backend/internal/events"
	"github.com/fathima-sithara/chat-backend/internal/metrics"
	"github.com/fathima-sithara/chat-backend/internal/middleware"
	"github.com/fathima-sithara/chat-backend/internal/repository"
	"github.com/fathima-sithara/chat-backend/internal/repository/memory"
	"github.com/fathima-sithara/chat-backend/internal/server"
	"github.com/fathima-sithara/chat-backend/internal/storage"
	"github.com/fathima-sithara/chat-backend/internal/utils"
	"go.uber.org/zap"
)

// memoryURI selects the in-process store instead of MongoDB, for local runs without a database.
const memoryURI = "memory://"

func main() {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config/config.yaml"
	}
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := utils.NewLogger(cfg.App.Env)
	defer func() { _ = logger.Sync() }()
	logger.Info("starting chat backend", zap.String("env", cfg.App.Env), zap.String("addr", cfg.App.Addr()))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var cleanup []func(context.Context)

	store, health, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("store init failed", zap.Error(err))
	}
	cleanup = append(cleanup, closeStore)

	files, err := storage.New(ctx, cfg.Uploads)
	if err != nil {
		logger.Fatal("file store init failed", zap.Error(err))
	}

	tokens, err := utils.NewJWTManager(cfg.JWT)
	if err != nil {
		logger.Fatal("jwt init failed", zap.Error(err))
	}

	var publisher events.Publisher = events.Noop{}
	if len(cfg.Kafka.Brokers) > 0 {
		kp := events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, logger)
		publisher = kp
		cleanup = append(cleanup, func(context.Context) {
			if err := kp.Close(); err != nil {
				logger.Error("kafka writer close error", zap.Error(err))
			}
		})
		logger.Info("publishing events to kafka", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.Topic))
	}

	var limiter middleware.Limiter
	if cfg.Redis.Addr != "" {
		rdb, err := database.ConnectRedis(ctx, cfg.Redis, logger)
		if err != nil {
			logger.Fatal("redis init failed", zap.Error(err))
		}
		limiter = middleware.NewRedisLimiter(rdb, "ratelimit", cfg.RateLimit.PerMinute, time.Minute)
		cleanup = append(cleanup, func(context.Context) {
			if err := rdb.Close(); err != nil {
				logger.Error("redis client close error", zap.Error(err))
			}
		})
	} else if cfg.RateLimit.PerMinute > 0 {
		ml := middleware.NewMemoryLimiter(cfg.RateLimit.PerMinute, cfg.RateLimit.Burst)
		go ml.RunCleanup(ctx)
		limiter = ml
	}

	app := server.New(cfg, server.Deps{
		Store:     store,
		Files:     files,
		Tokens:    tokens,
		Publisher: publisher,
		Limiter:   limiter,
		Metrics:   metrics.New(),
		Logger:    logger,
		Health:    health,
	})

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("addr", cfg.App.Addr()))
		errCh <- app.Listen(cfg.App.Addr())
	}()

	reg, err := discovery.Register(cfg.Consul, cfg.App.Port, logger)
	if err != nil {
		logger.Warn("consul registration failed", zap.Error(err))
	}

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			logger.Error("server stopped", zap.Error(err))
		}
	}

	reg.Deregister()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error("fiber shutdown error", zap.Error(err))
	}
	for i := len(cleanup) - 1; i >= 0; i-- {
		cleanup[i](shutdownCtx)
	}
	logger.Info("graceful shutdown complete")
}

func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*repository.Store, func(context.Context) error, func(context.Context), error) {
	if strings.HasPrefix(cfg.Mongo.URI, memoryURI) {
		logger.Warn("using in-memory store, data is lost on restart")
		return memory.NewStore().Repositories(), nil, func(context.Context) {}, nil
	}

	connectCtx, cancel := context.WithTimeout(ctx, cfg.Mongo.ConnectTimeout+5*time.Second)
	defer cancel()
	db, client, err := database.ConnectMongo(connectCtx, cfg.Mongo, logger)
	if err != nil {
		return nil, nil, nil, err
	}
	store, err := repository.NewMongoStore(connectCtx, db, cfg.Mongo.QueryTimeout)
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, nil, fmt.Errorf("prepare collections: %w", err)
	}

	health := func(ctx context.Context) error { return client.Ping(ctx, nil) }
	closeFn := func(ctx context.Context) {
		if err := client.Disconnect(ctx); err != nil {
			logger.Error("MongoDB disconnect error", zap.Error(err))
		}
	}
	return store, health, closeFn, nil
}
