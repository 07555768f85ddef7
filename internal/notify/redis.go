package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mosaek2/lepisong/internal/collection"
)

const (
	DefaultChannel = "broadcast"
	publishTimeout = 2 * time.Second
)

// RedisNotifier publishes snapshot events on a Redis channel as
// {"type": ..., "payload": {...}} envelopes for the realtime fan-out.
type RedisNotifier struct {
	rdb     *redis.Client
	channel string
}

var _ collection.Notifier = (*RedisNotifier)(nil)

func NewRedisNotifier(rdb *redis.Client, channel string) *RedisNotifier {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisNotifier{rdb: rdb, channel: channel}
}

// Notify publishes ev. The commit it describes already happened, so a caller
// that went away does not cancel the publish.
func (n *RedisNotifier) Notify(ctx context.Context, ev collection.Event) error {
	if n.rdb == nil {
		return nil
	}

	data, err := json.Marshal(map[string]any{
		"type":    ev.Type,
		"payload": ev,
	})
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := n.rdb.Publish(ctx, n.channel, string(data)).Err(); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}
