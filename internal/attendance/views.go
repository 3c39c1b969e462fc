package attendance

import (
	"context"
	"sort"

	"qrattend/internal/store"
)

// Filter narrows ListRecords. An empty SessionID or "all" selects everything.
type Filter struct {
	SessionID string
}

func (f Filter) all() bool { return f.SessionID == "" || f.SessionID == "all" }

// RecordView is a record with its session name resolved.
type RecordView struct {
	Record
	SessionName string `json:"sessionName"`
}

// ListRecords returns matching records, newest first.
func (l *Ledger) ListRecords(ctx context.Context, f Filter) ([]RecordView, error) {
	records, err := l.records(ctx)
	if err != nil {
		return nil, storeErr("list records", err)
	}
	names, err := l.sessionNames(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]RecordView, 0, len(records))
	for _, r := range records {
		if !f.all() && r.SessionID != f.SessionID {
			continue
		}
		name, ok := names[r.SessionID]
		if !ok {
			name = UnknownSessionName
		}
		out = append(out, RecordView{Record: r, SessionName: name})
	}
	sortNewestFirst(out)
	return out, nil
}

func (l *Ledger) sessionNames(ctx context.Context) (map[string]string, error) {
	sessions, err := l.ListSessions(ctx)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(sessions))
	for _, s := range sessions {
		names[s.ID] = s.Name
	}
	return names, nil
}

func sortNewestFirst(v []RecordView) {
	sort.SliceStable(v, func(i, j int) bool {
		if v[i].Timestamp.Equal(v[j].Timestamp) {
			return v[i].Key > v[j].Key
		}
		return v[i].Timestamp.After(v[j].Timestamp)
	})
}

// WatchRecords signals every change below the record list. Events carry no data;
// callers re-read with ListRecords or a Sweeper.
func (l *Ledger) WatchRecords(ctx context.Context) (<-chan store.ChangeEvent, error) {
	ch, err := l.store.Subscribe(ctx, recordsPath)
	if err != nil {
		return nil, storeErr("watch records", err)
	}
	return ch, nil
}
