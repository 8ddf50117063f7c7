package cachesvc

import (
	"context"

	"github.com/redis/go-redis/v9"

	"github.com/trezcool/masomo-lms/core"
)

// NewCache returns a redis cache when conf.Cache.RedisURL is set, a no-op cache otherwise.
// The returned client is nil for the no-op cache.
func NewCache(ctx context.Context, conf *core.Config, logger core.Logger) (core.Cache, *redis.Client) {
	if conf.Cache.RedisURL == "" {
		return NewNoopCache(), nil
	}
	client, err := NewRedisClient(ctx, conf)
	if err != nil {
		logger.Error("cache disabled: "+err.Error(), err)
		return NewNoopCache(), nil
	}
	return NewRedisCache(client), client
}
