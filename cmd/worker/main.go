// Package main runs the background worker: the promotion sweep tick and the job consumer.
package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/teamhuddle/backend/config"
	"github.com/teamhuddle/backend/internal/notifications"
	"github.com/teamhuddle/backend/internal/polls"
	"github.com/teamhuddle/backend/internal/realtime"
	"github.com/teamhuddle/backend/internal/worker"
	"github.com/teamhuddle/backend/pkg/database"
	"github.com/teamhuddle/backend/pkg/queue"
	"github.com/teamhuddle/backend/pkg/redis"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	// The worker is the notification consumer, so it writes its own rows directly.
	notificationRepo := notifications.NewRepository(pool)
	changes := realtime.NewRedisPubSub(rdb.Client, logger)
	pollSvc := polls.NewService(polls.NewRepository(pool), notifications.NewDirectDispatcher(notificationRepo), changes, logger,
		polls.WithLocation(cfg.Polls.Location()))

	sweep := worker.NewGuardedSweep(pollSvc, rdb.NewLock(worker.SweepLockKey), cfg.Polls.PromotionLockTTL, logger)
	scheduler := worker.NewScheduler(sweep, cfg.Polls.PromotionInterval, logger)
	processor := worker.NewProcessor(sweep, notificationRepo, queue.NewQueue(rdb.Client, logger), logger)

	workerCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		scheduler.Run(workerCtx)
	}()
	go func() {
		defer wg.Done()
		processor.Run(workerCtx)
	}()
	logger.Info("worker started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	cancel()
	wg.Wait()
	logger.Info("worker stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
