package cachesvc

import (
	"context"
	"io"
	"log"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/masomo-lms/core"
	logsvc "github.com/trezcool/masomo-lms/services/logger"
)

type entry struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestMemoryCache(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()

	var got entry
	found, err := c.Get(ctx, "lol", &got)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, c.Set(ctx, "entry", entry{Name: "awe", Count: 2}, 0))
	found, err = c.Get(ctx, "entry", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, entry{Name: "awe", Count: 2}, got)

	require.NoError(t, c.Set(ctx, "short", entry{}, time.Millisecond))
	time.Sleep(5 * time.Millisecond)
	assert.False(t, c.Has("short"))

	require.NoError(t, c.Delete(ctx, "entry", "unknown"))
	assert.False(t, c.Has("entry"))
}

func TestNewCache_noRedis(t *testing.T) {
	conf := core.NewTestConfig()
	logger := logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), conf)

	c, client := NewCache(context.Background(), conf, logger)
	assert.Nil(t, client)

	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "entry", entry{Name: "awe"}, time.Minute))
	var got entry
	found, err := c.Get(ctx, "entry", &got)
	require.NoError(t, err)
	assert.False(t, found, "the no-op cache never stores")
	assert.NoError(t, c.Delete(ctx, "entry"))

	conf.Cache.RedisURL = "lol://"
	c, client = NewCache(context.Background(), conf, logger)
	assert.Nil(t, client)
	assert.Equal(t, NewNoopCache(), c)
}
