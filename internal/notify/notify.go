// Package notify delivers check-in notifications to admins.
package notify

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

// Notifier is fire-and-forget; nothing acknowledges delivery.
type Notifier interface {
	RequestPermission(ctx context.Context) error
	Notify(ctx context.Context, title, body string) error
}

// Log writes notifications to the process log.
type Log struct {
	log *zap.Logger
}

// NewLog creates a log notifier.
func NewLog(log *zap.Logger) *Log { return &Log{log: log} }

func (l *Log) RequestPermission(context.Context) error { return nil }

func (l *Log) Notify(_ context.Context, title, body string) error {
	l.log.Info("notification", zap.String("title", title), zap.String("body", body))
	return nil
}

// Multi fans out to every notifier and joins their errors.
type Multi []Notifier

func (m Multi) RequestPermission(ctx context.Context) error {
	var errs []error
	for _, n := range m {
		errs = append(errs, n.RequestPermission(ctx))
	}
	return errors.Join(errs...)
}

func (m Multi) Notify(ctx context.Context, title, body string) error {
	var errs []error
	for _, n := range m {
		errs = append(errs, n.Notify(ctx, title, body))
	}
	return errors.Join(errs...)
}
