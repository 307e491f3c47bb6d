package ratelimit

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"indian-airlines-ivr/internal/clients/redis"
	"indian-airlines-ivr/internal/observability"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisService(t *testing.T, limit int) (*Service, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	logger := observability.NewNopLogger()
	return NewService(redis.NewFromClient(rdb, logger), limit, logger), mr
}

func TestCheckRateLimit_Disabled(t *testing.T) {
	s := NewService(nil, 0, observability.NewNopLogger())
	assert.False(t, s.Enabled())

	for i := 0; i < 100; i++ {
		result, err := s.CheckRateLimit(context.Background(), "10.0.0.1")
		require.NoError(t, err)
		assert.True(t, result.Allowed)
	}
}

func TestCheckRateLimit_Redis(t *testing.T) {
	s, mr := newRedisService(t, 3)
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		result, err := s.CheckRateLimit(ctx, "10.0.0.1")
		require.NoError(t, err)
		assert.True(t, result.Allowed)
		assert.Equal(t, 2-i, result.Remaining)
	}

	members, err := mr.ZMembers(keyPrefix + "10.0.0.1")
	require.NoError(t, err)
	assert.Len(t, members, 3, "requests in the same millisecond are counted separately")

	now = now.Add(20 * time.Second)
	result, err := s.CheckRateLimit(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, result.Allowed)
	assert.Equal(t, 0, result.Remaining)
	assert.Equal(t, 40000, result.RetryAfterMs)

	other, err := s.CheckRateLimit(ctx, "10.0.0.2")
	require.NoError(t, err)
	assert.True(t, other.Allowed)

	now = now.Add(41 * time.Second)
	result, err = s.CheckRateLimit(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, result.Allowed, "window slides past the earliest requests")
}

func TestCheckRateLimit_RedisConcurrentClientsShareLimit(t *testing.T) {
	s, mr := newRedisService(t, 5)
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	var allowed atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := s.CheckRateLimit(context.Background(), "10.0.0.1")
			if err == nil && result.Allowed {
				allowed.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(5), allowed.Load())
	members, err := mr.ZMembers(keyPrefix + "10.0.0.1")
	require.NoError(t, err)
	assert.Len(t, members, 5)
	assert.Equal(t, 2*time.Minute, mr.TTL(keyPrefix+"10.0.0.1"))
}

func TestCheckRateLimit_RedisFailureFallsBack(t *testing.T) {
	s, mr := newRedisService(t, 1)
	mr.SetError("READONLY")

	result, err := s.CheckRateLimit(context.Background(), "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, result.Allowed)

	result, err = s.CheckRateLimit(context.Background(), "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, result.Allowed)
}

func TestCheckRateLimit_Local(t *testing.T) {
	s := NewService(nil, 2, observability.NewNopLogger())
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		result, err := s.CheckRateLimit(ctx, "10.0.0.1")
		require.NoError(t, err)
		assert.True(t, result.Allowed)
	}

	result, err := s.CheckRateLimit(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, result.Allowed)
	assert.InDelta(t, 30000, result.RetryAfterMs, 1)

	now = now.Add(31 * time.Second)
	result, err = s.CheckRateLimit(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, result.Allowed)
}

func TestMaybeCleanup(t *testing.T) {
	s := NewService(nil, 5, observability.NewNopLogger())
	start := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	s.lastCleanup = start
	s.now = func() time.Time { return start }

	_, err := s.CheckRateLimit(context.Background(), "10.0.0.1")
	require.NoError(t, err)
	require.Len(t, s.local, 1)

	s.now = func() time.Time { return start.Add(cleanupInterval) }
	_, err = s.CheckRateLimit(context.Background(), "10.0.0.2")
	require.NoError(t, err)

	assert.Len(t, s.local, 1)
	assert.Contains(t, s.local, "10.0.0.2")
}
