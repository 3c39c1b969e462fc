package queue

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, ch <-chan Message) Message {
	t.Helper()
	select {
	case msg, ok := <-ch:
		require.True(t, ok, "channel closed")
		return msg
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for message")
		return Message{}
	}
}

func TestCheckinMessage(t *testing.T) {
	msg := NewCheckin("000000000001", "s-1")
	assert.Equal(t, TypeCheckin, msg.Type)

	c, err := msg.Checkin()
	require.NoError(t, err)
	assert.Equal(t, Checkin{RecordKey: "000000000001", SessionID: "s-1"}, c)

	_, err = Message{Type: "other"}.Checkin()
	assert.Error(t, err)
}

func TestInMemoryPublishConsume(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := NewInMemory(4)
	ch, err := q.Consume(ctx)
	require.NoError(t, err)

	require.NoError(t, q.Publish(ctx, NewCheckin("k1", "s1")))
	require.NoError(t, q.Publish(ctx, NewCheckin("k2", "s1")))

	first, _ := receive(t, ch).Checkin()
	second, _ := receive(t, ch).Checkin()
	assert.Equal(t, "k1", first.RecordKey)
	assert.Equal(t, "k2", second.RecordKey)

	cancel()
	assert.Eventually(t, func() bool {
		_, ok := <-ch
		return !ok
	}, time.Second, 10*time.Millisecond)
}

func TestInMemoryPublishRespectsContext(t *testing.T) {
	q := NewInMemory(0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, q.Publish(ctx, NewCheckin("k", "s")), context.Canceled)
}

func TestRedisQueueFIFO(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := NewRedisQueue(client, "")
	q.timeout = 100 * time.Millisecond

	require.NoError(t, q.Publish(ctx, NewCheckin("k1", "s1")))
	require.NoError(t, q.Publish(ctx, NewCheckin("k2", "s1")))

	ch, err := q.Consume(ctx)
	require.NoError(t, err)

	first, err := receive(t, ch).Checkin()
	require.NoError(t, err)
	second, err := receive(t, ch).Checkin()
	require.NoError(t, err)
	assert.Equal(t, "k1", first.RecordKey)
	assert.Equal(t, "k2", second.RecordKey)
}

func TestRedisQueueSkipsGarbage(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := NewRedisQueue(client, "q")
	q.timeout = 100 * time.Millisecond
	_, err := mr.Lpush("q", "not json")
	require.NoError(t, err)
	require.NoError(t, q.Publish(ctx, NewCheckin("k1", "s1")))

	ch, err := q.Consume(ctx)
	require.NoError(t, err)
	c, err := receive(t, ch).Checkin()
	require.NoError(t, err)
	assert.Equal(t, "k1", c.RecordKey)
}
