package store

import (
	"context"
	"database/sql"
	"errors"
	"hash/fnv"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Dialect selects placeholder and column syntax for SQLStore.
type Dialect int

const (
	SQLite Dialect = iota
	Postgres
)

// SQLStore keeps every path as one row of the kv table.
// Subscribe polls, so changes made by other processes are observed within one interval.
type SQLStore struct {
	db           *sql.DB
	dialect      Dialect
	pollInterval time.Duration
}

// NewSQLStore wraps an open database. Call Migrate before first use.
func NewSQLStore(db *sql.DB, dialect Dialect, pollInterval time.Duration) *SQLStore {
	if pollInterval <= 0 {
		pollInterval = time.Second
	}
	return &SQLStore{db: db, dialect: dialect, pollInterval: pollInterval}
}

// Migrate creates the kv table.
func (s *SQLStore) Migrate(ctx context.Context) error {
	valueType := "BLOB"
	if s.dialect == Postgres {
		valueType = "BYTEA"
	}
	schema := `
	CREATE TABLE IF NOT EXISTS kv (
		path       TEXT PRIMARY KEY,
		parent     TEXT NOT NULL,
		value      ` + valueType + ` NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_kv_parent ON kv(parent);
	`
	for _, stmt := range strings.Split(schema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// Get reads one row.
func (s *SQLStore) Get(ctx context.Context, path string) ([]byte, error) {
	if err := validPath(path); err != nil {
		return nil, err
	}
	var v []byte
	err := s.db.QueryRowContext(ctx, s.rebind(`SELECT value FROM kv WHERE path = ?`), path).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return v, err
}

// Set upserts one row.
func (s *SQLStore) Set(ctx context.Context, path string, value []byte) error {
	if err := validPath(path); err != nil {
		return err
	}
	parent, _ := Split(path)
	_, err := s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO kv (path, parent, value, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (path) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`), path, parent, value, time.Now().UTC())
	return err
}

// Update rewrites an existing row.
func (s *SQLStore) Update(ctx context.Context, path string, value []byte) error {
	if err := validPath(path); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, s.rebind(`UPDATE kv SET value = ?, updated_at = ? WHERE path = ?`), value, time.Now().UTC(), path)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Remove deletes path and its descendants.
func (s *SQLStore) Remove(ctx context.Context, path string) error {
	if err := validPath(path); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, s.rebind(`DELETE FROM kv WHERE path = ? OR path LIKE ? ESCAPE '\'`), path, likePrefix(path))
	return err
}

// List returns direct children of prefix.
func (s *SQLStore) List(ctx context.Context, prefix string) ([]Entry, error) {
	if err := validPath(prefix); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, s.rebind(`SELECT path, value FROM kv WHERE parent = ? ORDER BY path`), prefix)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Path, &e.Value); err != nil {
			return nil, err
		}
		_, e.Key = Split(e.Path)
		out = append(out, e)
	}
	return out, rows.Err()
}

// CreateChild returns a random key; no row is written until Set.
func (s *SQLStore) CreateChild(_ context.Context, prefix string) (string, error) {
	if err := validPath(prefix); err != nil {
		return "", err
	}
	return uuid.NewString(), nil
}

// Subscribe polls a digest of everything at or below prefix.
func (s *SQLStore) Subscribe(ctx context.Context, prefix string) (<-chan ChangeEvent, error) {
	last, err := s.digest(ctx, prefix)
	if err != nil {
		return nil, err
	}
	out := make(chan ChangeEvent, 1)
	go func() {
		defer close(out)
		ticker := time.NewTicker(s.pollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			cur, err := s.digest(ctx, prefix)
			if err != nil || cur == last {
				continue
			}
			last = cur
			select {
			case out <- ChangeEvent{Path: prefix}:
			default:
			}
		}
	}()
	return out, nil
}

func (s *SQLStore) digest(ctx context.Context, prefix string) (uint64, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`SELECT path, value FROM kv WHERE path = ? OR path LIKE ? ESCAPE '\' ORDER BY path`), prefix, likePrefix(prefix))
	if err != nil {
		return 0, err
	}
	defer rows.Close()
	h := fnv.New64a()
	for rows.Next() {
		var p string
		var v []byte
		if err := rows.Scan(&p, &v); err != nil {
			return 0, err
		}
		h.Write([]byte(p))
		h.Write([]byte{0})
		h.Write(v)
		h.Write([]byte{0})
	}
	return h.Sum64(), rows.Err()
}

// rebind turns ? placeholders into $n for Postgres.
func (s *SQLStore) rebind(query string) string {
	if s.dialect != Postgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func likePrefix(path string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(path) + "/%"
}
