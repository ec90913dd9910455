package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const publishTimeout = 5 * time.Second

// RedisPubSub publishes and consumes change events over Redis pub/sub.
type RedisPubSub struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisPubSub creates a Redis pub/sub bridge for change events.
func NewRedisPubSub(client *redis.Client, logger *zap.Logger) *RedisPubSub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisPubSub{client: client, logger: logger}
}

// Publish sends each change on Channel. Errors are logged, not returned.
func (r *RedisPubSub) Publish(ctx context.Context, changes ...Change) {
	if len(changes) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	pipe := r.client.Pipeline()
	for _, ch := range changes {
		body, err := json.Marshal(ch)
		if err != nil {
			continue
		}
		pipe.Publish(ctx, Channel, body)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		r.logger.Warn("publish change failed", zap.Error(err), zap.Int("count", len(changes)))
	}
}

// Subscribe listens on Channel and calls handler for each change until ctx is done
// or cancel is called.
func (r *RedisPubSub) Subscribe(ctx context.Context, handler func(Change)) (cancel func(), err error) {
	ctx, cancelCtx := context.WithCancel(ctx)
	pubsub := r.client.Subscribe(ctx, Channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		cancelCtx()
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe: %w", err)
	}
	ch := pubsub.Channel()
	go func() {
		defer pubsub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var c Change
				if err := json.Unmarshal([]byte(msg.Payload), &c); err != nil {
					r.logger.Debug("invalid change payload", zap.String("payload", msg.Payload))
					continue
				}
				handler(c)
			}
		}
	}()
	return cancelCtx, nil
}
