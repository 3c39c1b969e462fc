// Package metrics exposes prometheus collectors for the attendance ledger.
package metrics

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"qrattend/internal/attendance"
	"qrattend/internal/store"
)

// Metrics groups the collectors. Register them once per registry.
type Metrics struct {
	Submissions   *prometheus.CounterVec
	Sessions      *prometheus.CounterVec
	Notifications *prometheus.CounterVec
	StoreLatency  *prometheus.HistogramVec
}

// New creates and registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "qrattend",
			Name:      "submissions_total",
			Help:      "Check-in submissions by outcome.",
		}, []string{"outcome"}),
		Sessions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "qrattend",
			Name:      "session_events_total",
			Help:      "Sessions created and ended.",
		}, []string{"event"}),
		Notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "qrattend",
			Name:      "notifications_total",
			Help:      "Notifications fired by the sweeper.",
		}, []string{"result"}),
		StoreLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "qrattend",
			Name:      "store_op_duration_seconds",
			Help:      "Latency of store operations.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op", "result"}),
	}
	reg.MustRegister(m.Submissions, m.Sessions, m.Notifications, m.StoreLatency)
	return m
}

// Outcome maps a Submit result to a label value.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "accepted"
	case errors.Is(err, attendance.ErrValidation):
		return "invalid"
	case errors.Is(err, attendance.ErrStaleSession):
		return "stale"
	case errors.Is(err, attendance.ErrDuplicate):
		return "duplicate"
	default:
		return "error"
	}
}

// ObserveSubmit counts one submission.
func (m *Metrics) ObserveSubmit(err error) {
	m.Submissions.WithLabelValues(Outcome(err)).Inc()
}

// InstrumentStore times every operation on s.
func (m *Metrics) InstrumentStore(s store.Store) store.Store {
	return &instrumented{next: s, hist: m.StoreLatency}
}

type instrumented struct {
	next store.Store
	hist *prometheus.HistogramVec
}

func (s *instrumented) observe(op string, start time.Time, err error) {
	result := "ok"
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		result = "error"
	}
	s.hist.WithLabelValues(op, result).Observe(time.Since(start).Seconds())
}

func (s *instrumented) Get(ctx context.Context, path string) ([]byte, error) {
	start := time.Now()
	v, err := s.next.Get(ctx, path)
	s.observe("get", start, err)
	return v, err
}

func (s *instrumented) Set(ctx context.Context, path string, value []byte) error {
	start := time.Now()
	err := s.next.Set(ctx, path, value)
	s.observe("set", start, err)
	return err
}

func (s *instrumented) Update(ctx context.Context, path string, value []byte) error {
	start := time.Now()
	err := s.next.Update(ctx, path, value)
	s.observe("update", start, err)
	return err
}

func (s *instrumented) Remove(ctx context.Context, path string) error {
	start := time.Now()
	err := s.next.Remove(ctx, path)
	s.observe("remove", start, err)
	return err
}

func (s *instrumented) List(ctx context.Context, prefix string) ([]store.Entry, error) {
	start := time.Now()
	entries, err := s.next.List(ctx, prefix)
	s.observe("list", start, err)
	return entries, err
}

func (s *instrumented) CreateChild(ctx context.Context, prefix string) (string, error) {
	start := time.Now()
	key, err := s.next.CreateChild(ctx, prefix)
	s.observe("create_child", start, err)
	return key, err
}

// Subscribe is passed through; a subscription has no meaningful latency.
func (s *instrumented) Subscribe(ctx context.Context, prefix string) (<-chan store.ChangeEvent, error) {
	return s.next.Subscribe(ctx, prefix)
}
