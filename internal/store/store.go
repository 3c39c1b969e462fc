// Package store provides the key/value capability the attendance ledger runs on.
//
// Paths are slash separated ("sessions/<id>", "attendance/<key>", "current_session").
// Values are opaque bytes; callers encode JSON. Implementations are either local-only
// (memory, sqlite) or shared between processes (postgres, redis). None of them offer
// transactions: a read followed by a conditional write is best-effort.
package store

import (
	"context"
	"errors"
	"strings"
)

var (
	ErrNotFound    = errors.New("store: not found")
	ErrInvalidPath = errors.New("store: invalid path")
)

func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// Store is the capability consumed by the ledger.
//
// Contract:
//   - Get returns ErrNotFound when nothing is stored at path.
//   - Update overwrites an existing path and returns ErrNotFound instead of creating one.
//   - Remove deletes path and everything below it; removing a missing path is not an error.
//   - List returns the direct children of prefix ordered by key.
//   - CreateChild returns a key under prefix that no other caller will receive.
//   - Subscribe delivers a ChangeEvent for every write at or below prefix until ctx ends.
//     Events may be coalesced; subscribers re-read state instead of trusting payloads.
type Store interface {
	Get(ctx context.Context, path string) ([]byte, error)
	Set(ctx context.Context, path string, value []byte) error
	Update(ctx context.Context, path string, value []byte) error
	Remove(ctx context.Context, path string) error
	List(ctx context.Context, prefix string) ([]Entry, error)
	CreateChild(ctx context.Context, prefix string) (string, error)
	Subscribe(ctx context.Context, prefix string) (<-chan ChangeEvent, error)
}

// Entry is one child returned by List.
type Entry struct {
	Key   string
	Path  string
	Value []byte
}

// ChangeEvent reports that something at or below Path changed.
type ChangeEvent struct {
	Path string
}

// Join builds a path from segments.
func Join(parts ...string) string {
	return strings.Join(parts, "/")
}

// Split returns the parent and the last segment of path.
func Split(path string) (parent, key string) {
	i := strings.LastIndexByte(path, '/')
	if i < 0 {
		return "", path
	}
	return path[:i], path[i+1:]
}

// Under reports whether path equals prefix or lies below it.
func Under(path, prefix string) bool {
	if prefix == "" {
		return true
	}
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}

func validPath(path string) error {
	if path == "" || strings.HasPrefix(path, "/") || strings.HasSuffix(path, "/") || strings.Contains(path, "//") {
		return ErrInvalidPath
	}
	return nil
}
