package notify

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Redis publishes notifications on a channel so a process holding the websocket
// hub can relay them to browsers.
type Redis struct {
	client  *redis.Client
	channel string
}

type wireNotification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// Channel is the pub/sub channel notifications travel on for namespace.
func Channel(namespace string) string { return namespace + ":notifications" }

// NewRedis creates a publisher on channel.
func NewRedis(client *redis.Client, channel string) *Redis {
	return &Redis{client: client, channel: channel}
}

func (r *Redis) RequestPermission(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *Redis) Notify(ctx context.Context, title, body string) error {
	b, err := json.Marshal(wireNotification{Title: title, Body: body})
	if err != nil {
		return err
	}
	return r.client.Publish(ctx, r.channel, b).Err()
}

// Relay forwards notifications published on channel to n until ctx ends.
func Relay(ctx context.Context, client *redis.Client, channel string, n Notifier, log *zap.Logger) error {
	ps := client.Subscribe(ctx, channel)
	defer ps.Close()
	if _, err := ps.Receive(ctx); err != nil {
		return err
	}
	ch := ps.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var w wireNotification
			if err := json.Unmarshal([]byte(msg.Payload), &w); err != nil {
				log.Warn("dropping malformed notification", zap.Error(err))
				continue
			}
			if err := n.Notify(ctx, w.Title, w.Body); err != nil {
				log.Warn("relay notify failed", zap.Error(err))
			}
		}
	}
}
