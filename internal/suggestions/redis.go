package suggestions

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Channel is the redis pub/sub channel registry snapshots travel on.
const Channel = "questline:suggestions"

// RedisNotifier fans registry snapshots out to other processes over redis
// pub/sub. The server subscribes so its event stream reflects suggestions
// produced by standalone worker processes.
type RedisNotifier struct {
	client *redis.Client
	log    *zap.Logger
}

// NewRedisNotifier creates a notifier on the given client. The logger may be
// nil.
func NewRedisNotifier(client *redis.Client, log *zap.Logger) *RedisNotifier {
	if log == nil {
		log = zap.NewNop()
	}
	return &RedisNotifier{client: client, log: log}
}

// Publish sends the snapshot to the channel.
func (n *RedisNotifier) Publish(ctx context.Context, snap Snapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	if err := n.client.Publish(ctx, Channel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish snapshot: %w", err)
	}
	return nil
}

// Listen blocks, invoking fn for every snapshot received on the channel,
// until the context is canceled. Undecodable payloads are logged and skipped.
func (n *RedisNotifier) Listen(ctx context.Context, fn func(Snapshot)) error {
	sub := n.client.Subscribe(ctx, Channel)
	defer func() { _ = sub.Close() }()

	msgs := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			var snap Snapshot
			if err := json.Unmarshal([]byte(msg.Payload), &snap); err != nil {
				n.log.Warn("suggestion_notify_decode_failed", zap.Error(err))
				continue
			}
			fn(snap)
		}
	}
}
