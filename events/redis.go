package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisOptions configures a Redis event sink.
type RedisOptions struct {
	// URL is the Redis connection string, e.g. "redis://localhost:6379".
	URL string

	// Channel is the pub/sub channel events are published to.
	// Defaults to "chaos.events".
	Channel string

	// ConnectTimeout is the maximum time to wait for connection establishment.
	ConnectTimeout time.Duration

	// WriteTimeout is the maximum time to wait for a publish.
	WriteTimeout time.Duration
}

// Redis publishes each event as JSON to a pub/sub channel, letting live
// dashboards follow a run as it happens.
type Redis struct {
	client  *redis.Client
	channel string
	timeout time.Duration
}

// NewRedis connects to Redis and verifies the connection before returning.
func NewRedis(opts RedisOptions) (*Redis, error) {
	if opts.URL == "" {
		opts.URL = "redis://localhost:6379"
	}
	if opts.Channel == "" {
		opts.Channel = "chaos.events"
	}
	if opts.ConnectTimeout == 0 {
		opts.ConnectTimeout = 5 * time.Second
	}
	if opts.WriteTimeout == 0 {
		opts.WriteTimeout = 5 * time.Second
	}

	redisOpts, err := redis.ParseURL(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	redisOpts.DialTimeout = opts.ConnectTimeout
	redisOpts.WriteTimeout = opts.WriteTimeout

	client := redis.NewClient(redisOpts)

	ctx, cancel := context.WithTimeout(context.Background(), opts.ConnectTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Redis{client: client, channel: opts.Channel, timeout: opts.WriteTimeout}, nil
}

func (r *Redis) Emit(e Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	if err := r.client.Publish(ctx, r.channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", r.channel, err)
	}
	return nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}
