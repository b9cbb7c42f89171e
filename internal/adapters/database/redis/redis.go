package redis

import (
	"context"
	"fmt"

	"github.com/cjfitness/notifier/internal/adapters/database/redis/broadcasts"
	"github.com/redis/go-redis/v9"
)

type Client struct {
	Broadcasts *broadcasts.Storage

	conn *redis.Client
}

type Options struct {
	Host     string
	Port     int
	Password string
	DB       int
	Prefix   string
}

func New(ctx context.Context, opts Options) (*Client, error) {
	conn := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", opts.Host, opts.Port),
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := conn.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping broadcast storage: %w", err)
	}

	return &Client{
		Broadcasts: broadcasts.NewStorage(conn, opts.Prefix),
		conn:       conn,
	}, nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}
