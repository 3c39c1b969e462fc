package attendance

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"qrattend/internal/store"
)

// Notifier delivers one notification. Delivery is fire-and-forget.
type Notifier interface {
	Notify(ctx context.Context, title, body string) error
}

// DefaultEntryLimit is how many on-screen entries a Sweeper retains.
const DefaultEntryLimit = 10

// Entry is one notification kept for display.
type Entry struct {
	Key   string    `json:"key"`
	Title string    `json:"title"`
	Body  string    `json:"body"`
	At    time.Time `json:"at"`
}

// Sweeper notifies once per newly observed record that still carries the isNew flag,
// then clears the flag in the store. Observing the same state twice notifies nothing.
type Sweeper struct {
	ledger   *Ledger
	notifier Notifier
	limit    int

	mu      sync.Mutex
	seen    map[string]struct{}
	entries []Entry
}

// NewSweeper creates a sweeper retaining at most limit entries.
func NewSweeper(l *Ledger, n Notifier, limit int) *Sweeper {
	if limit <= 0 {
		limit = DefaultEntryLimit
	}
	return &Sweeper{ledger: l, notifier: n, limit: limit, seen: make(map[string]struct{})}
}

// Sweep reads the current records and observes them.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	records, err := s.ledger.records(ctx)
	if err != nil {
		return 0, storeErr("list records", err)
	}
	return s.Observe(ctx, records)
}

// Observe compares records, the full current record list, with what was seen before
// and returns how many notifications fired. Keys no longer listed are forgotten.
func (s *Sweeper) Observe(ctx context.Context, records []Record) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	present := make(map[string]struct{}, len(records))
	for _, r := range records {
		present[r.Key] = struct{}{}
	}
	for k := range s.seen {
		if _, ok := present[k]; !ok {
			delete(s.seen, k)
		}
	}

	fresh := make([]Record, 0)
	for _, r := range records {
		if _, ok := s.seen[r.Key]; ok {
			continue
		}
		if !r.IsNew {
			s.seen[r.Key] = struct{}{}
			continue
		}
		fresh = append(fresh, r)
	}
	if len(fresh) == 0 {
		return 0, nil
	}
	sort.SliceStable(fresh, func(i, j int) bool { return fresh[i].Timestamp.Before(fresh[j].Timestamp) })

	names, err := s.ledger.sessionNames(ctx)
	if err != nil {
		// names are cosmetic
		names = map[string]string{}
	}

	sent := 0
	for _, r := range fresh {
		s.seen[r.Key] = struct{}{}
		session, ok := names[r.SessionID]
		if !ok {
			session = UnknownSessionName
		}
		title := "새 출석 체크"
		body := fmt.Sprintf("%s님이 %s에 %s했습니다.", r.Name, session, r.CheckType.Label())

		if err := s.notifier.Notify(ctx, title, body); err != nil {
			s.ledger.log.Warn("notify failed", zap.String("record", r.Key), zap.Error(err))
		} else {
			sent++
		}
		s.push(Entry{Key: r.Key, Title: title, Body: body, At: r.Timestamp})

		// a record removed since it was listed must stay removed
		r.IsNew = false
		err := s.ledger.update(ctx, store.Join(recordsPath, r.Key), r)
		if store.IsNotFound(err) {
			continue
		}
		if err != nil {
			return sent, storeErr("clear new flag", err)
		}
	}
	return sent, nil
}

// push appends e, evicting the oldest entries past the limit.
func (s *Sweeper) push(e Entry) {
	s.entries = append(s.entries, e)
	if over := len(s.entries) - s.limit; over > 0 {
		s.entries = append([]Entry(nil), s.entries[over:]...)
	}
}

// Entries returns the retained entries, oldest first.
func (s *Sweeper) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Entry(nil), s.entries...)
}
