package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	rplatform "github.com/open-builders/giveaway-rules/internal/platform/redis"
)

func newCache(t *testing.T, ttl time.Duration) (*GuildCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := rplatform.Wrap(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = client.Close() })
	return NewGuildCache(client, ttl), mr
}

func TestGuildCacheRoundTrip(t *testing.T) {
	c, mr := newCache(t, time.Minute)
	ctx := context.Background()

	_, ok := c.GetGuilds(ctx, "d-1")
	assert.False(t, ok)

	c.SetGuilds(ctx, "d-1", []string{"g1", "g2"})
	ids, ok := c.GetGuilds(ctx, "d-1")
	require.True(t, ok)
	assert.Equal(t, []string{"g1", "g2"}, ids)
	assert.Equal(t, time.Minute, mr.TTL("discord:guilds:d-1"))

	mr.FastForward(2 * time.Minute)
	_, ok = c.GetGuilds(ctx, "d-1")
	assert.False(t, ok)
}

func TestGuildCacheEmptyListIsAHit(t *testing.T) {
	c, _ := newCache(t, time.Minute)
	ctx := context.Background()

	c.SetGuilds(ctx, "d-1", nil)
	ids, ok := c.GetGuilds(ctx, "d-1")
	assert.True(t, ok)
	assert.Empty(t, ids)
}

func TestGuildCacheIgnoresBrokenEntries(t *testing.T) {
	c, mr := newCache(t, time.Minute)
	require.NoError(t, mr.Set("discord:guilds:d-1", "not json"))

	_, ok := c.GetGuilds(context.Background(), "d-1")
	assert.False(t, ok)

	mr.Close()
	c.SetGuilds(context.Background(), "d-1", []string{"g1"})
	_, ok = c.GetGuilds(context.Background(), "d-1")
	assert.False(t, ok)
}
