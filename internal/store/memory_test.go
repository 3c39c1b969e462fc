package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qrattend/internal/store"
	"qrattend/internal/store/storetest"
)

func TestMemoryConformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store { return store.NewMemory() })
}

func TestMemorySubscribeIgnoresOtherPrefixes(t *testing.T) {
	m := store.NewMemory()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, err := m.Subscribe(ctx, "sessions")
	require.NoError(t, err)
	require.NoError(t, m.Set(ctx, "attendance/1", []byte("x")))

	select {
	case ev := <-events:
		t.Fatalf("unexpected event %v", ev)
	case <-time.After(50 * time.Millisecond):
	}

	// removing a parent is a change for everything below it
	require.NoError(t, m.Remove(ctx, "sessions"))
	select {
	case ev := <-events:
		assert.Equal(t, "sessions", ev.Path)
	case <-time.After(time.Second):
		t.Fatal("no event for parent removal")
	}
}

func TestPathHelpers(t *testing.T) {
	parent, key := store.Split("attendance/000000000001")
	assert.Equal(t, "attendance", parent)
	assert.Equal(t, "000000000001", key)

	parent, key = store.Split("current_session")
	assert.Equal(t, "", parent)
	assert.Equal(t, "current_session", key)

	assert.Equal(t, "sessions/abc", store.Join("sessions", "abc"))
	assert.True(t, store.Under("sessions/abc", "sessions"))
	assert.False(t, store.Under("sessions_old/abc", "sessions"))
}
