package cachesvc

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/trezcool/masomo-lms/core"
)

type redisCache struct {
	client *redis.Client
}

var _ core.Cache = (*redisCache)(nil) // interface compliance check

func NewRedisCache(client *redis.Client) *redisCache {
	return &redisCache{client: client}
}

func (c redisCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(err, "redis get")
	}
	if err = json.Unmarshal(data, dest); err != nil {
		return false, errors.Wrap(err, "decoding cached value")
	}
	return true, nil
}

func (c redisCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return errors.Wrap(err, "encoding cached value")
	}
	return errors.Wrap(c.client.Set(ctx, key, data, ttl).Err(), "redis set")
}

func (c redisCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return errors.Wrap(c.client.Del(ctx, keys...).Err(), "redis del")
}

// NewRedisClient connects to conf.Cache.RedisURL and pings it.
func NewRedisClient(ctx context.Context, conf *core.Config) (*redis.Client, error) {
	opts, err := redis.ParseURL(conf.Cache.RedisURL)
	if err != nil {
		return nil, errors.Wrap(err, "parsing redis url")
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err = client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "pinging redis")
	}
	return client, nil
}
