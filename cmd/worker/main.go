package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"qrattend/internal/attendance"
	"qrattend/internal/config"
	"qrattend/internal/metrics"
	"qrattend/internal/notify"
	"qrattend/internal/queue"
	"qrattend/internal/store"
	"qrattend/internal/worker"
)

// Worker sweeps a shared store for new check-ins and notifies admins.
func main() {
	cfg, logger, err := config.Bootstrap()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if !cfg.StandaloneWorker() {
		logger.Fatal("worker needs QUEUE_BACKEND=redis and a shared store; otherwise the API sweeps itself",
			zap.String("store", cfg.StoreBackend), zap.String("queue", cfg.QueueBackend))
	}

	policy, err := attendance.ParseDedupPolicy(cfg.DedupPolicy)
	if err != nil {
		logger.Fatal("invalid dedup policy", zap.Error(err))
	}

	redisClient := store.NewRedis(cfg.RedisAddr)
	defer redisClient.Close()
	if !store.Healthy(ctx, redisClient) {
		logger.Warn("redis not reachable, notifications will only be logged", zap.String("addr", cfg.RedisAddr))
	}

	base, closeStore, err := store.Open(ctx, store.Options{
		Backend:      cfg.StoreBackend,
		DatabaseURL:  cfg.DatabaseURL,
		Redis:        redisClient,
		Namespace:    cfg.RedisNamespace,
		PollInterval: cfg.StorePoll,
	})
	if err != nil {
		logger.Fatal("store open failed", zap.Error(err))
	}
	defer closeStore()

	m := metrics.New(prometheus.DefaultRegisterer)
	ledger := attendance.New(m.InstrumentStore(base),
		attendance.WithPolicy(policy),
		attendance.WithLogger(logger.Named("ledger")),
	)

	notifiers := notify.Multi{notify.NewRedis(redisClient, notify.Channel(cfg.RedisNamespace))}
	if cfg.NotifyLog {
		notifiers = append(notifiers, notify.NewLog(logger.Named("notify")))
	}
	if err := notifiers.RequestPermission(ctx); err != nil {
		logger.Warn("notification permission not granted", zap.Error(err))
	}

	q := queue.NewRedisQueue(redisClient, cfg.RedisNamespace+":checkins")

	sweeper := attendance.NewSweeper(ledger, notifiers, attendance.DefaultEntryLimit)
	if err := worker.New(ledger, sweeper, q, cfg.SweepInterval, m, logger.Named("worker")).Run(ctx); err != nil {
		logger.Fatal("worker failed", zap.Error(err))
	}
}
