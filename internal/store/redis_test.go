package store_test

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qrattend/internal/store"
	"qrattend/internal/store/storetest"
)

func TestRedisConformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		mr := miniredis.RunT(t)
		client := store.NewRedis(mr.Addr())
		t.Cleanup(func() { _ = client.Close() })
		return store.NewRedisStore(client, "test")
	})
}

func TestRedisCreateChildSharedAcrossClients(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	a := store.NewRedisStore(store.NewRedis(mr.Addr()), "test")
	b := store.NewRedisStore(store.NewRedis(mr.Addr()), "test")

	k1, err := a.CreateChild(ctx, "attendance")
	require.NoError(t, err)
	k2, err := b.CreateChild(ctx, "attendance")
	require.NoError(t, err)
	assert.NotEqual(t, k1, k2)
	assert.Less(t, k1, k2)
}

func TestRedisHealthy(t *testing.T) {
	mr := miniredis.RunT(t)
	client := store.NewRedis(mr.Addr())
	defer client.Close()

	assert.True(t, store.Healthy(context.Background(), client))
	assert.False(t, store.Healthy(context.Background(), nil))
}
