// Package storetest holds the conformance suite every store backend must pass.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qrattend/internal/store"
)

// NewStore constructs a fresh, empty store isolated from other tests.
type NewStore func(t *testing.T) store.Store

// Run exercises the store contract.
func Run(t *testing.T, newStore NewStore) {
	t.Helper()

	t.Run("GetMissing", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Get(context.Background(), "sessions/nope")
		assert.True(t, store.IsNotFound(err))
	})

	t.Run("SetGetOverwrite", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		require.NoError(t, s.Set(ctx, "current_session", []byte("a")))
		require.NoError(t, s.Set(ctx, "current_session", []byte("b")))
		got, err := s.Get(ctx, "current_session")
		require.NoError(t, err)
		assert.Equal(t, []byte("b"), got)
	})

	t.Run("UpdateOnlyExisting", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		err := s.Update(ctx, "attendance/ghost", []byte("x"))
		assert.True(t, store.IsNotFound(err))
		_, err = s.Get(ctx, "attendance/ghost")
		assert.True(t, store.IsNotFound(err))
		entries, err := s.List(ctx, "attendance")
		require.NoError(t, err)
		assert.Empty(t, entries)

		require.NoError(t, s.Set(ctx, "attendance/k", []byte("old")))
		require.NoError(t, s.Update(ctx, "attendance/k", []byte("new")))
		got, err := s.Get(ctx, "attendance/k")
		require.NoError(t, err)
		assert.Equal(t, []byte("new"), got)

		require.NoError(t, s.Remove(ctx, "attendance"))
		assert.True(t, store.IsNotFound(s.Update(ctx, "attendance/k", []byte("again"))))
		_, err = s.Get(ctx, "attendance/k")
		assert.True(t, store.IsNotFound(err))
	})

	t.Run("ListDirectChildren", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		require.NoError(t, s.Set(ctx, "sessions/b", []byte("2")))
		require.NoError(t, s.Set(ctx, "sessions/a", []byte("1")))
		require.NoError(t, s.Set(ctx, "attendance/x", []byte("3")))

		entries, err := s.List(ctx, "sessions")
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, "a", entries[0].Key)
		assert.Equal(t, "sessions/a", entries[0].Path)
		assert.Equal(t, []byte("1"), entries[0].Value)
		assert.Equal(t, "b", entries[1].Key)

		empty, err := s.List(ctx, "nothing")
		require.NoError(t, err)
		assert.Empty(t, empty)
	})

	t.Run("RemoveSubtree", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		require.NoError(t, s.Set(ctx, "attendance/1", []byte("x")))
		require.NoError(t, s.Set(ctx, "attendance/2", []byte("y")))
		require.NoError(t, s.Set(ctx, "attendance_other", []byte("keep")))

		require.NoError(t, s.Remove(ctx, "attendance"))
		entries, err := s.List(ctx, "attendance")
		require.NoError(t, err)
		assert.Empty(t, entries)

		_, err = s.Get(ctx, "attendance_other")
		assert.NoError(t, err)

		assert.NoError(t, s.Remove(ctx, "attendance"))
	})

	t.Run("RemoveSingle", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		require.NoError(t, s.Set(ctx, "sessions/a", []byte("1")))
		require.NoError(t, s.Set(ctx, "sessions/b", []byte("2")))
		require.NoError(t, s.Remove(ctx, "sessions/a"))

		entries, err := s.List(ctx, "sessions")
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "b", entries[0].Key)
	})

	t.Run("CreateChildUnique", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		seen := map[string]bool{}
		for i := 0; i < 50; i++ {
			k, err := s.CreateChild(ctx, "attendance")
			require.NoError(t, err)
			require.NotEmpty(t, k)
			assert.False(t, seen[k], "duplicate key %s", k)
			seen[k] = true
		}
	})

	t.Run("InvalidPath", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		assert.ErrorIs(t, s.Set(ctx, "", []byte("x")), store.ErrInvalidPath)
		assert.ErrorIs(t, s.Set(ctx, "/abs", []byte("x")), store.ErrInvalidPath)
		_, err := s.Get(ctx, "a//b")
		assert.ErrorIs(t, err, store.ErrInvalidPath)
	})

	t.Run("SubscribeSeesWrites", func(t *testing.T) {
		s := newStore(t)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		events, err := s.Subscribe(ctx, "attendance")
		require.NoError(t, err)

		require.NoError(t, s.Set(ctx, "attendance/1", []byte("x")))
		select {
		case ev := <-events:
			assert.True(t, store.Under(ev.Path, "attendance"))
		case <-time.After(3 * time.Second):
			t.Fatal("no change event")
		}

		cancel()
		require.Eventually(t, func() bool {
			select {
			case _, ok := <-events:
				return !ok
			default:
				return false
			}
		}, 3*time.Second, 10*time.Millisecond)
	})
}
