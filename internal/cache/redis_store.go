package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/fakhrymubarak/weather-viewer/internal/model"
	"github.com/fakhrymubarak/weather-viewer/internal/redis"
	redisv9 "github.com/redis/go-redis/v9"
)

const iconKeyPrefix = "icon:"

// redisClient is the subset of the redis client the store uses.
type redisClient interface {
	Get(ctx context.Context, key string) *redisv9.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redisv9.StatusCmd
	Keys(ctx context.Context, pattern string) *redisv9.StringSliceCmd
}

// RedisStore shares decoded icons between processes through redis.
// Keys are written without expiry.
type RedisStore struct {
	redisClient redisClient
}

// NewRedisStore creates a store on the shared redis client, or on client when given.
func NewRedisStore(client ...*redisv9.Client) *RedisStore {
	var c redisClient = redis.GetClient()
	if len(client) > 0 && client[0] != nil {
		c = client[0]
	}
	return &RedisStore{redisClient: c}
}

func (s *RedisStore) Get(ctx context.Context, id string) (*model.Icon, bool, error) {
	val, err := s.redisClient.Get(ctx, iconKeyPrefix+id).Result()
	if errors.Is(err, redisv9.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var icon model.Icon
	if err := json.Unmarshal([]byte(val), &icon); err != nil {
		return nil, false, fmt.Errorf("decoding cached icon %q: %w", id, err)
	}
	return &icon, true, nil
}

func (s *RedisStore) Put(ctx context.Context, icon *model.Icon) error {
	b, err := json.Marshal(icon)
	if err != nil {
		return err
	}
	return s.redisClient.Set(ctx, iconKeyPrefix+icon.ID, b, 0).Err()
}

func (s *RedisStore) Len(ctx context.Context) (int, error) {
	keys, err := s.redisClient.Keys(ctx, iconKeyPrefix+"*").Result()
	if err != nil {
		return 0, err
	}
	return len(keys), nil
}

var _ IconStore = (*RedisStore)(nil)
