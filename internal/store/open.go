package store

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Options select and configure a backend.
type Options struct {
	Backend      string // memory, sqlite, postgres or redis
	SQLitePath   string
	DatabaseURL  string
	Redis        *redis.Client
	Namespace    string
	PollInterval time.Duration
}

// Open builds the configured backend, migrating SQL schemas. The returned close
// function releases what Open acquired; the redis client stays with the caller.
func Open(ctx context.Context, o Options) (Store, func() error, error) {
	noop := func() error { return nil }
	switch o.Backend {
	case "", "memory":
		return NewMemory(), noop, nil
	case "sqlite":
		db, err := OpenSQLite(ctx, o.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		s := NewSQLStore(db, SQLite, o.PollInterval)
		if err := s.Migrate(ctx); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("migrate sqlite: %w", err)
		}
		return s, db.Close, nil
	case "postgres":
		db, err := OpenPostgres(ctx, o.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		s := NewSQLStore(db, Postgres, o.PollInterval)
		if err := s.Migrate(ctx); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("migrate postgres: %w", err)
		}
		return s, db.Close, nil
	case "redis":
		if o.Redis == nil {
			return nil, nil, fmt.Errorf("store: redis backend needs a client")
		}
		return NewRedisStore(o.Redis, o.Namespace), noop, nil
	}
	return nil, nil, fmt.Errorf("store: unknown backend %q", o.Backend)
}

// Shared reports whether a backend is visible to other processes.
func Shared(backend string) bool {
	return backend == "postgres" || backend == "redis"
}
