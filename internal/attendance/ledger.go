package attendance

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"qrattend/internal/store"
)

// Ledger owns session and attendance state for one client of the store.
// Several ledgers may share a store; nothing here is process-global.
type Ledger struct {
	store  store.Store
	policy DedupPolicy
	now    func() time.Time
	newID  func(time.Time) string
	log    *zap.Logger
}

// Option customizes a Ledger.
type Option func(*Ledger)

// WithPolicy sets the duplicate identity key.
func WithPolicy(p DedupPolicy) Option { return func(l *Ledger) { l.policy = p } }

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option { return func(l *Ledger) { l.now = now } }

// WithIDGenerator replaces NewSessionID.
func WithIDGenerator(gen func(time.Time) string) Option { return func(l *Ledger) { l.newID = gen } }

// WithLogger sets the logger; the global zap logger is used otherwise.
func WithLogger(log *zap.Logger) Option { return func(l *Ledger) { l.log = log } }

// New creates a ledger over s.
func New(s store.Store, opts ...Option) *Ledger {
	l := &Ledger{
		store:  s,
		policy: PolicyEmployee,
		now:    func() time.Time { return time.Now().UTC() },
		newID:  NewSessionID,
		log:    zap.L(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Policy reports the configured dedup policy.
func (l *Ledger) Policy() DedupPolicy { return l.policy }

func (l *Ledger) put(ctx context.Context, path string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return l.store.Set(ctx, path, b)
}

// update rewrites an existing value; it returns store.ErrNotFound when path is gone.
func (l *Ledger) update(ctx context.Context, path string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return l.store.Update(ctx, path, b)
}

// records returns every stored record; undecodable entries are logged and skipped.
func (l *Ledger) records(ctx context.Context) ([]Record, error) {
	entries, err := l.store.List(ctx, recordsPath)
	if err != nil {
		return nil, err
	}
	out := make([]Record, 0, len(entries))
	for _, e := range entries {
		var r Record
		if err := json.Unmarshal(e.Value, &r); err != nil {
			l.log.Warn("skip undecodable record", zap.String("path", e.Path), zap.Error(err))
			continue
		}
		if r.Key == "" {
			r.Key = e.Key
		}
		if r.CheckType == "" {
			r.CheckType = CheckIn
		}
		out = append(out, r)
	}
	return out, nil
}
