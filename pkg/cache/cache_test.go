package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teccUI/inteliTASK/internal/models"
)

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewCache(client), mr
}

func TestCacheGetSet(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	report := models.AnalyticsReport{
		Overview: models.AnalyticsOverview{TotalTasks: 10, CompletedTasks: 4, PendingTasks: 6, CompletionRate: 40},
	}

	require.NoError(t, c.Set(ctx, AnalyticsKey("user-1", "week"), report, time.Minute))

	var got models.AnalyticsReport
	require.NoError(t, c.Get(ctx, AnalyticsKey("user-1", "week"), &got))
	assert.Equal(t, 40, got.Overview.CompletionRate)
}

func TestCacheMiss(t *testing.T) {
	c, _ := newTestCache(t)

	var got models.AnalyticsReport
	err := c.Get(context.Background(), AnalyticsKey("nobody", "week"), &got)
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestCacheExpiry(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, UserKey("user-1"), models.User{UID: "user-1"}, time.Minute))

	mr.FastForward(2 * time.Minute)

	var got models.User
	err := c.Get(ctx, UserKey("user-1"), &got)
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestGetOrSet(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	t.Run("loader runs on miss and result is cached", func(t *testing.T) {
		calls := 0
		loader := func() (interface{}, error) {
			calls++
			return &models.User{UID: "user-2", Email: "a@b.c"}, nil
		}

		var first models.User
		require.NoError(t, c.GetOrSet(ctx, UserKey("user-2"), time.Minute, &first, loader))
		assert.Equal(t, "a@b.c", first.Email)
		assert.Equal(t, 1, calls)

		var second models.User
		require.NoError(t, c.GetOrSet(ctx, UserKey("user-2"), time.Minute, &second, loader))
		assert.Equal(t, "a@b.c", second.Email)
		assert.Equal(t, 1, calls, "loader must not run on cache hit")
	})

	t.Run("loader error is not cached", func(t *testing.T) {
		var got models.User
		err := c.GetOrSet(ctx, UserKey("user-3"), time.Minute, &got, func() (interface{}, error) {
			return nil, errors.New("firestore unavailable")
		})
		assert.Error(t, err)

		err = c.Get(ctx, UserKey("user-3"), &got)
		assert.ErrorIs(t, err, ErrCacheMiss)
	})
}

func TestDeletePattern(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, AnalyticsKey("user-1", "week"), 1, time.Minute))
	require.NoError(t, c.Set(ctx, AnalyticsKey("user-1", "month"), 2, time.Minute))
	require.NoError(t, c.Set(ctx, AnalyticsKey("user-2", "week"), 3, time.Minute))

	require.NoError(t, c.DeletePattern(ctx, UserAnalyticsPattern("user-1")))

	var v int
	assert.ErrorIs(t, c.Get(ctx, AnalyticsKey("user-1", "week"), &v), ErrCacheMiss)
	assert.ErrorIs(t, c.Get(ctx, AnalyticsKey("user-1", "month"), &v), ErrCacheMiss)
	assert.NoError(t, c.Get(ctx, AnalyticsKey("user-2", "week"), &v))
}
