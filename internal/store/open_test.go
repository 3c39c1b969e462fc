package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenBackends(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	tests := []struct {
		name string
		opts Options
		want any
	}{
		{"default", Options{}, &Memory{}},
		{"sqlite", Options{Backend: "sqlite", SQLitePath: filepath.Join(t.TempDir(), "db", "kv.db")}, &SQLStore{}},
		{"redis", Options{Backend: "redis", Redis: client}, &RedisStore{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, closeFn, err := Open(ctx, tt.opts)
			require.NoError(t, err)
			defer closeFn()
			assert.IsType(t, tt.want, s)
			require.NoError(t, s.Set(ctx, "sessions/a", []byte("x")))
		})
	}
}

func TestOpenRejectsBadOptions(t *testing.T) {
	_, _, err := Open(context.Background(), Options{Backend: "redis"})
	assert.Error(t, err)
	_, _, err = Open(context.Background(), Options{Backend: "etcd"})
	assert.Error(t, err)
}

func TestShared(t *testing.T) {
	assert.True(t, Shared("redis"))
	assert.True(t, Shared("postgres"))
	assert.False(t, Shared("sqlite"))
	assert.False(t, Shared("memory"))
}
