package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// publisher is the subset of the Redis client used to publish events.
type publisher interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

// redisNotifier publishes events as JSON on a Redis channel. Each publish
// runs in its own goroutine bounded by timeout.
type redisNotifier struct {
	client  publisher
	channel string
	timeout time.Duration
	logger  zerolog.Logger
	wg      sync.WaitGroup
}

// NewRedisNotifier creates a notifier publishing on channel.
func NewRedisNotifier(client publisher, channel string, timeout time.Duration, logger zerolog.Logger) Notifier {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &redisNotifier{
		client:  client,
		channel: channel,
		timeout: timeout,
		logger:  logger.With().Str("component", "redis-notifier").Logger(),
	}
}

// Notify publishes the event asynchronously. The request context is not
// used for delivery, so a finished request does not cancel the publish.
func (n *redisNotifier) Notify(_ context.Context, event Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		n.logger.Error().Err(err).Str("type", event.Type).Msg("failed to encode event")
		return
	}

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
		defer cancel()

		if err := n.client.Publish(ctx, n.channel, payload).Err(); err != nil {
			n.logger.Warn().
				Err(err).
				Str("channel", n.channel).
				Str("type", event.Type).
				Str("order_id", event.OrderID.String()).
				Msg("failed to publish event")
			return
		}

		n.logger.Debug().
			Str("channel", n.channel).
			Str("type", event.Type).
			Msg("event published")
	}()
}

// Close waits for in-flight publishes.
func (n *redisNotifier) Close() error {
	n.wg.Wait()
	return nil
}

// NewRedisClient connects to Redis and verifies connectivity.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return client, nil
}
