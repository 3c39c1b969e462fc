package attendance

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"qrattend/internal/store"
)

// stepClock advances one second per call.
type stepClock struct {
	mu  sync.Mutex
	cur time.Time
}

func newStepClock() *stepClock {
	return &stepClock{cur: time.Date(2024, 3, 5, 5, 0, 0, 0, time.UTC)}
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cur = c.cur.Add(time.Second)
	return c.cur
}

func seqIDs() func(time.Time) string {
	n := 0
	return func(time.Time) string {
		n++
		return fmt.Sprintf("s%d", n)
	}
}

func newTestLedger(t *testing.T, opts ...Option) (*Ledger, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	base := []Option{WithClock(newStepClock().Now), WithIDGenerator(seqIDs())}
	return New(mem, append(base, opts...)...), mem
}

var errBoom = errors.New("boom")

// failingStore fails the operations named in failOn and delegates the rest.
type failingStore struct {
	store.Store
	failOn map[string]bool
}

func (f *failingStore) Get(ctx context.Context, p string) ([]byte, error) {
	if f.failOn["get"] {
		return nil, errBoom
	}
	return f.Store.Get(ctx, p)
}

func (f *failingStore) Set(ctx context.Context, p string, v []byte) error {
	if f.failOn["set"] {
		return errBoom
	}
	return f.Store.Set(ctx, p, v)
}

func (f *failingStore) Update(ctx context.Context, p string, v []byte) error {
	if f.failOn["update"] {
		return errBoom
	}
	return f.Store.Update(ctx, p, v)
}

func (f *failingStore) List(ctx context.Context, p string) ([]store.Entry, error) {
	if f.failOn["list"] {
		return nil, errBoom
	}
	return f.Store.List(ctx, p)
}

func (f *failingStore) CreateChild(ctx context.Context, p string) (string, error) {
	if f.failOn["child"] {
		return "", errBoom
	}
	return f.Store.CreateChild(ctx, p)
}

type recordingNotifier struct {
	mu     sync.Mutex
	bodies []string
	err    error
}

func (n *recordingNotifier) Notify(_ context.Context, _, body string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.bodies = append(n.bodies, body)
	return nil
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.bodies)
}
