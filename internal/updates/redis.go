package updates

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

const flagKeyPrefix = "update_flag:"

// RedisStore keeps flags as plain keys so other processes (and the webhook
// writer) share them.
type RedisStore struct {
	client redis.Cmdable
}

// NewRedisStore wraps a go-redis client.
func NewRedisStore(client redis.Cmdable) *RedisStore {
	return &RedisStore{client: client}
}

func flagKey(restaurantID string) string {
	return flagKeyPrefix + restaurantID
}

// Set marks restaurantID. Setting an already-set flag is a no-op.
func (s *RedisStore) Set(ctx context.Context, restaurantID string) error {
	return s.client.Set(ctx, flagKey(restaurantID), "1", 0).Err()
}

// Take consumes the flag with GETDEL, so the read and the delete cannot interleave
// with another poller.
func (s *RedisStore) Take(ctx context.Context, restaurantID string) (bool, error) {
	val, err := s.client.GetDel(ctx, flagKey(restaurantID)).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return val == "1", nil
}
