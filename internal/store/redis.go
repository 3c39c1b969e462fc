package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
)

// NewRedis connects to redis with short timeouts.
func NewRedis(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  1 * time.Second,
		WriteTimeout: 1 * time.Second,
	})
}

// Healthy verifies redis connectivity.
func Healthy(ctx context.Context, client *redis.Client) bool {
	if client == nil {
		return false
	}
	return client.Ping(ctx).Err() == nil
}

// RedisStore is the shared store. Every path is a string key, every parent keeps a set
// of child names, and writes are announced on a pub/sub channel.
type RedisStore struct {
	client    *redis.Client
	namespace string
}

// NewRedisStore builds a store whose keys all start with namespace.
func NewRedisStore(client *redis.Client, namespace string) *RedisStore {
	if namespace == "" {
		namespace = "qrattend"
	}
	return &RedisStore{client: client, namespace: namespace}
}

func (s *RedisStore) key(path string) string    { return s.namespace + ":v:" + path }
func (s *RedisStore) index(path string) string  { return s.namespace + ":idx:" + path }
func (s *RedisStore) seqKey(path string) string { return s.namespace + ":seq:" + path }
func (s *RedisStore) channel() string           { return s.namespace + ":changes" }

// Get reads one key.
func (s *RedisStore) Get(ctx context.Context, path string) ([]byte, error) {
	if err := validPath(path); err != nil {
		return nil, err
	}
	v, err := s.client.Get(ctx, s.key(path)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	return v, err
}

// Set writes the value, indexes it under its parent and publishes the change.
func (s *RedisStore) Set(ctx context.Context, path string, value []byte) error {
	if err := validPath(path); err != nil {
		return err
	}
	parent, name := Split(path)
	_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, s.key(path), value, 0)
		if parent != "" {
			p.SAdd(ctx, s.index(parent), name)
		}
		p.Publish(ctx, s.channel(), path)
		return nil
	})
	return err
}

// Update uses SET XX so a key removed in the meantime stays removed.
func (s *RedisStore) Update(ctx context.Context, path string, value []byte) error {
	if err := validPath(path); err != nil {
		return err
	}
	err := s.client.SetArgs(ctx, s.key(path), value, redis.SetArgs{Mode: "XX"}).Err()
	if errors.Is(err, redis.Nil) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return s.client.Publish(ctx, s.channel(), path).Err()
}

// Remove deletes path and the children indexed below it.
func (s *RedisStore) Remove(ctx context.Context, path string) error {
	if err := validPath(path); err != nil {
		return err
	}
	keys, err := s.descendants(ctx, path)
	if err != nil {
		return err
	}
	parent, name := Split(path)
	_, err = s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, keys...)
		if parent != "" {
			p.SRem(ctx, s.index(parent), name)
		}
		p.Publish(ctx, s.channel(), path)
		return nil
	})
	return err
}

func (s *RedisStore) descendants(ctx context.Context, path string) ([]string, error) {
	keys := []string{s.key(path), s.index(path)}
	children, err := s.client.SMembers(ctx, s.index(path)).Result()
	if err != nil {
		return nil, err
	}
	for _, c := range children {
		sub, err := s.descendants(ctx, Join(path, c))
		if err != nil {
			return nil, err
		}
		keys = append(keys, sub...)
	}
	return keys, nil
}

// List returns direct children of prefix. Index entries whose value is gone are skipped.
func (s *RedisStore) List(ctx context.Context, prefix string) ([]Entry, error) {
	if err := validPath(prefix); err != nil {
		return nil, err
	}
	names, err := s.client.SMembers(ctx, s.index(prefix)).Result()
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, nil
	}
	sort.Strings(names)
	keys := make([]string, len(names))
	for i, n := range names {
		keys[i] = s.key(Join(prefix, n))
	}
	vals, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(names))
	for i, v := range vals {
		str, ok := v.(string)
		if !ok {
			continue
		}
		out = append(out, Entry{Key: names[i], Path: Join(prefix, names[i]), Value: []byte(str)})
	}
	return out, nil
}

// CreateChild uses INCR so concurrent clients never receive the same key.
func (s *RedisStore) CreateChild(ctx context.Context, prefix string) (string, error) {
	if err := validPath(prefix); err != nil {
		return "", err
	}
	n, err := s.client.Incr(ctx, s.seqKey(prefix)).Result()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%012d", n), nil
}

// Subscribe listens on the change channel and filters by prefix.
func (s *RedisStore) Subscribe(ctx context.Context, prefix string) (<-chan ChangeEvent, error) {
	ps := s.client.Subscribe(ctx, s.channel())
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, err
	}
	in := ps.Channel()
	out := make(chan ChangeEvent, 16)
	go func() {
		defer close(out)
		defer ps.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-in:
				if !ok {
					return
				}
				if !Under(msg.Payload, prefix) && !Under(prefix, msg.Payload) {
					continue
				}
				select {
				case out <- ChangeEvent{Path: msg.Payload}:
				default:
				}
			}
		}
	}()
	return out, nil
}
