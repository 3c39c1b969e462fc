// Package worker runs the notification sweep whenever attendance may have changed.
package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"qrattend/internal/attendance"
	"qrattend/internal/metrics"
	"qrattend/internal/queue"
)

// Worker sweeps on queue messages, store change events and a fallback ticker.
type Worker struct {
	ledger   *attendance.Ledger
	sweeper  *attendance.Sweeper
	queue    queue.Queue
	interval time.Duration
	metrics  *metrics.Metrics
	log      *zap.Logger
}

// New creates a worker. q may be nil; interval <= 0 disables the ticker.
func New(l *attendance.Ledger, s *attendance.Sweeper, q queue.Queue, interval time.Duration, m *metrics.Metrics, log *zap.Logger) *Worker {
	return &Worker{ledger: l, sweeper: s, queue: q, interval: interval, metrics: m, log: log}
}

// Run blocks until ctx ends.
func (w *Worker) Run(ctx context.Context) error {
	var msgs <-chan queue.Message
	if w.queue != nil {
		ch, err := w.queue.Consume(ctx)
		if err != nil {
			return err
		}
		msgs = ch
	}
	changes, err := w.ledger.WatchRecords(ctx)
	if err != nil {
		// queue and ticker still drive the sweep
		w.log.Warn("record watch unavailable", zap.Error(err))
	}
	var tick <-chan time.Time
	if w.interval > 0 {
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	w.log.Info("worker started", zap.Duration("interval", w.interval))
	w.sweep(ctx, "startup")
	for {
		select {
		case <-ctx.Done():
			w.log.Info("worker stopped")
			return nil
		case msg, ok := <-msgs:
			if !ok {
				msgs = nil
				continue
			}
			if c, err := msg.Checkin(); err == nil {
				w.log.Debug("checkin queued", zap.String("record", c.RecordKey))
				w.sweep(ctx, "queue")
			}
		case _, ok := <-changes:
			if !ok {
				changes = nil
				continue
			}
			w.sweep(ctx, "watch")
		case <-tick:
			w.sweep(ctx, "tick")
		}
	}
}

func (w *Worker) sweep(ctx context.Context, trigger string) {
	n, err := w.sweeper.Sweep(ctx)
	if n > 0 {
		w.metrics.Notifications.WithLabelValues("sent").Add(float64(n))
		w.log.Info("notifications sent", zap.Int("count", n), zap.String("trigger", trigger))
	}
	if err != nil && ctx.Err() == nil {
		w.metrics.Notifications.WithLabelValues("error").Inc()
		w.log.Warn("sweep failed", zap.String("trigger", trigger), zap.Error(err))
	}
}
