package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

type Client struct {
	cli *redis.Client
}

func NewRedis(addr, password string, db int) (*Client, error) {
	r := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := r.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return &Client{cli: r}, nil
}

func (c *Client) Close() error {
	return c.cli.Close()
}

// Get returns ("", nil) on a cache miss.
func (c *Client) Get(ctx context.Context, key string) (string, error) {
	s, err := c.cli.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return s, nil
}

func (c *Client) Set(ctx context.Context, key, val string, ttl time.Duration) error {
	return c.cli.Set(ctx, key, val, ttl).Err()
}
