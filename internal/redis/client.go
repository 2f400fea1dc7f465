package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"
)

const orderSequenceKey = "seq:order_id"

type Client struct {
	rdb *redis.Client
}

func Initialize(redisURL string) (*Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	rdb := redis.NewClient(opt)

	ctx := context.Background()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// NextOrderSequence returns the next value of the shared order counter.
func (c *Client) NextOrderSequence(ctx context.Context) (int64, error) {
	n, err := c.rdb.Incr(ctx, orderSequenceKey).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to increment order sequence: %w", err)
	}
	return n, nil
}

// PublishJSON marshals value and publishes it on channel.
func (c *Client) PublishJSON(ctx context.Context, channel string, value interface{}) error {
	jsonData, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	return c.rdb.Publish(ctx, channel, jsonData).Err()
}

// Subscribe delivers the payload of every message published on channel to
// handle until ctx is done or the subscription breaks.
func (c *Client) Subscribe(ctx context.Context, channel string, handle func(payload []byte)) error {
	sub := c.rdb.Subscribe(ctx, channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", channel, err)
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return fmt.Errorf("subscription to %s closed", channel)
			}
			handle([]byte(msg.Payload))
		}
	}
}

func (c *Client) Close() error {
	return c.rdb.Close()
}
