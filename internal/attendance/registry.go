package attendance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"qrattend/internal/store"
)

// CreateSession starts and advertises a new session. When another session is already
// advertised the caller must pass replace; the previous session is left as it is.
func (l *Ledger) CreateSession(ctx context.Context, name string, replace bool) (Session, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Session{}, fmt.Errorf("%w: session name", ErrValidation)
	}
	prev, ok, err := l.ActiveSession(ctx)
	if err != nil {
		return Session{}, err
	}
	if ok && !replace {
		return Session{}, fmt.Errorf("%w: %s", ErrConfirmationRequired, prev.Name)
	}

	now := l.now()
	s := Session{ID: l.newID(now), Name: name, StartTime: now, Active: true}
	if err := l.put(ctx, store.Join(sessionsPath, s.ID), s); err != nil {
		return Session{}, storeErr("save session", err)
	}
	if err := l.store.Set(ctx, currentSession, []byte(s.ID)); err != nil {
		return Session{}, storeErr("advertise session", err)
	}
	if ok {
		l.log.Info("session replaced", zap.String("previous", prev.ID), zap.String("session", s.ID))
	}
	return s, nil
}

// EndSession closes the advertised session. An empty id ends whatever is advertised.
func (l *Ledger) EndSession(ctx context.Context, id string) (Session, error) {
	s, ok, err := l.ActiveSession(ctx)
	if err != nil {
		return Session{}, err
	}
	if !ok || (id != "" && id != s.ID) {
		return Session{}, ErrNotFound
	}
	end := l.now()
	s.Active = false
	s.EndTime = &end
	if err := l.put(ctx, store.Join(sessionsPath, s.ID), s); err != nil {
		return Session{}, storeErr("save session", err)
	}
	if err := l.store.Remove(ctx, currentSession); err != nil {
		return Session{}, storeErr("withdraw session", err)
	}
	return s, nil
}

// ActiveSession resolves the advertised session. A pointer to a missing or ended
// session counts as no active session.
func (l *Ledger) ActiveSession(ctx context.Context) (Session, bool, error) {
	raw, err := l.store.Get(ctx, currentSession)
	if store.IsNotFound(err) {
		return Session{}, false, nil
	}
	if err != nil {
		return Session{}, false, storeErr("read current session", err)
	}
	s, err := l.GetSession(ctx, string(raw))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Session{}, false, nil
		}
		return Session{}, false, err
	}
	if !s.Active {
		return Session{}, false, nil
	}
	return s, true, nil
}

// GetSession reads one session by id.
func (l *Ledger) GetSession(ctx context.Context, id string) (Session, error) {
	if id == "" || strings.Contains(id, "/") {
		return Session{}, ErrNotFound
	}
	raw, err := l.store.Get(ctx, store.Join(sessionsPath, id))
	if store.IsNotFound(err) {
		return Session{}, ErrNotFound
	}
	if err != nil {
		return Session{}, storeErr("read session", err)
	}
	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return Session{}, storeErr("decode session", err)
	}
	return s, nil
}

// ListSessions returns every session, newest first.
func (l *Ledger) ListSessions(ctx context.Context) ([]Session, error) {
	entries, err := l.store.List(ctx, sessionsPath)
	if err != nil {
		return nil, storeErr("list sessions", err)
	}
	out := make([]Session, 0, len(entries))
	for _, e := range entries {
		var s Session
		if err := json.Unmarshal(e.Value, &s); err != nil {
			l.log.Warn("skip undecodable session", zap.String("path", e.Path), zap.Error(err))
			continue
		}
		out = append(out, s)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].StartTime.Equal(out[j].StartTime) {
			return out[i].ID > out[j].ID
		}
		return out[i].StartTime.After(out[j].StartTime)
	})
	return out, nil
}

// WatchSessions emits a fresh session list now and after every change under sessions/.
// The channel closes when ctx ends.
func (l *Ledger) WatchSessions(ctx context.Context) (<-chan []Session, error) {
	events, err := l.store.Subscribe(ctx, sessionsPath)
	if err != nil {
		return nil, storeErr("subscribe sessions", err)
	}
	out := make(chan []Session, 1)
	go func() {
		defer close(out)
		emit := func() bool {
			list, err := l.ListSessions(ctx)
			if err != nil {
				l.log.Warn("session snapshot failed", zap.Error(err))
				return true
			}
			select {
			case out <- list:
				return true
			case <-ctx.Done():
				return false
			}
		}
		if !emit() {
			return
		}
		for range events {
			if !emit() {
				return
			}
		}
	}()
	return out, nil
}

// ClearAll removes every record, session and the advertised pointer.
func (l *Ledger) ClearAll(ctx context.Context) error {
	for _, p := range []string{recordsPath, sessionsPath, currentSession} {
		if err := l.store.Remove(ctx, p); err != nil {
			return storeErr("clear "+p, err)
		}
	}
	return nil
}
