package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"qrattend/internal/attendance"
	"qrattend/internal/cloudinary"
	"qrattend/internal/config"
	"qrattend/internal/handler"
	"qrattend/internal/httpmiddleware"
	"qrattend/internal/metrics"
	"qrattend/internal/notify"
	"qrattend/internal/queue"
	"qrattend/internal/store"
	"qrattend/internal/worker"
)

func main() {
	cfg, logger, err := config.Bootstrap()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg, logger); err != nil {
		logger.Fatal("http server failed", zap.Error(err))
	}
}

func runHTTP(cfg config.App, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	policy, err := attendance.ParseDedupPolicy(cfg.DedupPolicy)
	if err != nil {
		return err
	}

	var redisClient *redis.Client
	if cfg.StoreBackend == "redis" || cfg.QueueBackend == "redis" {
		redisClient = store.NewRedis(cfg.RedisAddr)
		defer redisClient.Close()
	}

	m := metrics.New(prometheus.DefaultRegisterer)

	base, closeStore, err := store.Open(ctx, store.Options{
		Backend:      cfg.StoreBackend,
		SQLitePath:   cfg.SQLitePath,
		DatabaseURL:  cfg.DatabaseURL,
		Redis:        redisClient,
		Namespace:    cfg.RedisNamespace,
		PollInterval: cfg.StorePoll,
	})
	if err != nil {
		return err
	}
	defer closeStore()
	logger.Info("store ready", zap.String("backend", cfg.StoreBackend), zap.Bool("shared", store.Shared(cfg.StoreBackend)))

	ledger := attendance.New(m.InstrumentStore(base),
		attendance.WithPolicy(policy),
		attendance.WithLogger(logger.Named("ledger")),
	)

	hub := notify.NewHub(logger.Named("feed"))
	go hub.Run(ctx)
	go relaySessions(ctx, ledger, hub, logger)

	var q queue.Queue = queue.NewInMemory(64)
	if cfg.QueueBackend == "redis" {
		q = queue.NewRedisQueue(redisClient, cfg.RedisNamespace+":checkins")
	}
	if cfg.StandaloneWorker() {
		// cmd/worker sweeps; its notifications arrive over redis
		go func() {
			if err := notify.Relay(ctx, redisClient, notify.Channel(cfg.RedisNamespace), hub, logger); err != nil {
				logger.Error("notification relay stopped", zap.Error(err))
			}
		}()
	} else {
		if cfg.QueueBackend == "redis" {
			logger.Warn("store is local to this process, sweeping here instead of in cmd/worker",
				zap.String("store", cfg.StoreBackend))
		}
		notifiers := notify.Multi{hub}
		if cfg.NotifyLog {
			notifiers = append(notifiers, notify.NewLog(logger.Named("notify")))
		}
		sweeper := attendance.NewSweeper(ledger, notifiers, attendance.DefaultEntryLimit)
		w := worker.New(ledger, sweeper, q, cfg.SweepInterval, m, logger.Named("worker"))
		go func() { _ = w.Run(ctx) }()
	}

	cdn := cloudinary.New(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret, cfg.CloudinaryFolder)
	if cdn == nil {
		logger.Info("cloudinary not configured, QR publishing disabled")
	}

	h := handler.New(handler.Deps{
		Ledger:     ledger,
		Queue:      q,
		Hub:        hub,
		CDN:        cdn,
		Metrics:    m,
		PublicBase: cfg.PublicBaseURL,
		Location:   cfg.Location(),
		Logger:     logger,
		Health: func(ctx context.Context) map[string]bool {
			checks := map[string]bool{}
			_, _, err := ledger.ActiveSession(ctx)
			checks["store"] = err == nil
			if redisClient != nil {
				checks["redis"] = store.Healthy(ctx, redisClient)
			}
			return checks
		},
	})

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(httpmiddleware.RequestID())
	r.Use(httpmiddleware.AccessLog(logger.Named("http"), "/healthz", "/metrics"))
	r.Use(httpmiddleware.CORS())
	r.Use(httpmiddleware.SecurityHeaders())
	r.Use(httpmiddleware.NewIPRateLimiter(cfg.RateLimitPerMin).Middleware())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	h.Register(r)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", zap.String("port", cfg.HTTPPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	logger.Info("shutting down server")

	// give outstanding requests 10 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("server forced shutdown", zap.Error(err))
	}
	hub.Wait()
	logger.Info("server exited")
	return nil
}

// relaySessions pushes a fresh session list to the feed after every change.
func relaySessions(ctx context.Context, l *attendance.Ledger, hub *notify.Hub, logger *zap.Logger) {
	snapshots, err := l.WatchSessions(ctx)
	if err != nil {
		logger.Warn("session watch unavailable", zap.Error(err))
		return
	}
	for s := range snapshots {
		if err := hub.Publish(ctx, "sessions", s); err != nil {
			return
		}
	}
}
