package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Memory is an in-process store for dev and tests.
// The mutex guards the map only; it does not make a caller's check-then-write atomic.
type Memory struct {
	mu   sync.RWMutex
	data map[string][]byte
	seq  uint64

	subMu sync.Mutex
	subs  map[*subscriber]struct{}
}

type subscriber struct {
	prefix string
	ch     chan ChangeEvent
}

// NewMemory creates an empty store.
func NewMemory() *Memory {
	return &Memory{
		data: make(map[string][]byte),
		subs: make(map[*subscriber]struct{}),
	}
}

// Get returns a copy of the value at path.
func (m *Memory) Get(_ context.Context, path string) ([]byte, error) {
	if err := validPath(path); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[path]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

// Set stores value at path.
func (m *Memory) Set(_ context.Context, path string, value []byte) error {
	if err := validPath(path); err != nil {
		return err
	}
	m.mu.Lock()
	m.data[path] = append([]byte(nil), value...)
	m.mu.Unlock()
	m.publish(path)
	return nil
}

// Update overwrites path only if it exists. The check and the write share one lock.
func (m *Memory) Update(_ context.Context, path string, value []byte) error {
	if err := validPath(path); err != nil {
		return err
	}
	m.mu.Lock()
	if _, ok := m.data[path]; !ok {
		m.mu.Unlock()
		return ErrNotFound
	}
	m.data[path] = append([]byte(nil), value...)
	m.mu.Unlock()
	m.publish(path)
	return nil
}

// Remove deletes path and its descendants.
func (m *Memory) Remove(_ context.Context, path string) error {
	if err := validPath(path); err != nil {
		return err
	}
	m.mu.Lock()
	for k := range m.data {
		if Under(k, path) {
			delete(m.data, k)
		}
	}
	m.mu.Unlock()
	m.publish(path)
	return nil
}

// List returns direct children of prefix.
func (m *Memory) List(_ context.Context, prefix string) ([]Entry, error) {
	if err := validPath(prefix); err != nil {
		return nil, err
	}
	m.mu.RLock()
	var out []Entry
	for k, v := range m.data {
		parent, key := Split(k)
		if parent != prefix {
			continue
		}
		out = append(out, Entry{Key: key, Path: k, Value: append([]byte(nil), v...)})
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

// CreateChild hands out increasing zero-padded keys.
func (m *Memory) CreateChild(_ context.Context, prefix string) (string, error) {
	if err := validPath(prefix); err != nil {
		return "", err
	}
	m.mu.Lock()
	m.seq++
	n := m.seq
	m.mu.Unlock()
	return fmt.Sprintf("%012d", n), nil
}

// Subscribe registers for changes at or below prefix.
func (m *Memory) Subscribe(ctx context.Context, prefix string) (<-chan ChangeEvent, error) {
	sub := &subscriber{prefix: prefix, ch: make(chan ChangeEvent, 16)}
	m.subMu.Lock()
	m.subs[sub] = struct{}{}
	m.subMu.Unlock()

	go func() {
		<-ctx.Done()
		m.subMu.Lock()
		delete(m.subs, sub)
		close(sub.ch)
		m.subMu.Unlock()
	}()
	return sub.ch, nil
}

func (m *Memory) publish(path string) {
	m.subMu.Lock()
	defer m.subMu.Unlock()
	for sub := range m.subs {
		if !Under(path, sub.prefix) && !Under(sub.prefix, path) {
			continue
		}
		select {
		case sub.ch <- ChangeEvent{Path: path}:
		default:
			// a pending event already tells the subscriber to re-read
		}
	}
}
