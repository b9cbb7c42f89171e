package broadcasts

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Storage keeps one marker per broadcast occurrence so a restart near the
// scheduled time does not send the same broadcast twice.
type Storage struct {
	redis  *redis.Client
	prefix string
}

func NewStorage(client *redis.Client, prefix string) *Storage {
	if prefix == "" {
		prefix = "notifier:broadcast"
	}
	return &Storage{
		redis:  client,
		prefix: prefix,
	}
}

// Claim atomically records that the occurrence identified by key is being
// broadcast. Only the first caller gets true; the marker expires after ttl.
func (s *Storage) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := s.redis.SetNX(ctx, s.key(key), time.Now().UTC().Format(time.RFC3339), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("claim broadcast %s: %w", key, err)
	}
	return ok, nil
}

func (s *Storage) key(key string) string {
	return s.prefix + ":" + key
}
