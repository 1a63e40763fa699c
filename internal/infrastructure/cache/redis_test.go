package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/WALTAHHH/Always-Scheming-Terminal-sub000/internal/ports"
)

func setupCache(t *testing.T, ttl time.Duration) (*RedisTagCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisTagCache(client, ttl), mr
}

func TestRedisTagCacheRoundTrip(t *testing.T) {
	c, mr := setupCache(t, time.Hour)
	ctx := context.Background()

	_, ok, err := c.Get(ctx, "abc")
	require.NoError(t, err)
	assert.False(t, ok)

	want := ports.AITags{Company: []string{"Krafton"}, Theme: []string{"ugc"}}
	require.NoError(t, c.Set(ctx, "abc", want))

	got, ok, err := c.Get(ctx, "abc")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, want, got)

	assert.True(t, mr.Exists(keyPrefix+"abc"))
	assert.Equal(t, time.Hour, mr.TTL(keyPrefix+"abc"))
}

func TestRedisTagCacheExpires(t *testing.T) {
	c, mr := setupCache(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", ports.AITags{Company: []string{"EA"}}))
	mr.FastForward(2 * time.Minute)

	_, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisTagCacheCorruptValue(t *testing.T) {
	c, mr := setupCache(t, 0)
	require.NoError(t, mr.Set(keyPrefix+"bad", "not json"))

	_, ok, err := c.Get(context.Background(), "bad")
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestRedisTagCacheServerDown(t *testing.T) {
	c, mr := setupCache(t, 0)
	mr.Close()

	_, _, err := c.Get(context.Background(), "k")
	assert.Error(t, err)
	assert.Error(t, c.Set(context.Background(), "k", ports.AITags{}))
}

func TestDial(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := Dial(context.Background(), mr.Addr(), "", 0)
	require.NoError(t, err)
	_ = client.Close()

	mr.Close()
	_, err = Dial(context.Background(), mr.Addr(), "", 0)
	assert.Error(t, err)
}
