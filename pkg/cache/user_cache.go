package cache

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/teccUI/inteliTASK/internal/models"
)

// UserSource defines the backing lookup for user profiles.
type UserSource interface {
	GetUser(ctx context.Context, uid string) (*models.User, error)
}

// UserCache provides read-through caching for user profile documents.
// Profile reads happen on nearly every request (settings, notification
// preferences), so they are cached with a short TTL and invalidated on
// any write.
type UserCache struct {
	cache  *Cache
	source UserSource
	ttl    time.Duration
}

// NewUserCache creates a new user cache over the given source.
func NewUserCache(cache *Cache, source UserSource, ttl time.Duration) *UserCache {
	return &UserCache{
		cache:  cache,
		source: source,
		ttl:    ttl,
	}
}

// GetUser retrieves a user by UID with caching.
func (uc *UserCache) GetUser(ctx context.Context, uid string) (*models.User, error) {
	var user models.User

	err := uc.cache.GetOrSet(ctx, UserKey(uid), uc.ttl, &user, func() (interface{}, error) {
		return uc.source.GetUser(ctx, uid)
	})
	if err != nil {
		return nil, err
	}

	return &user, nil
}

// Invalidate removes the cached profile for a user. Called after any
// write that touches the user document (settings, tokens, sign-in).
func (uc *UserCache) Invalidate(ctx context.Context, uid string) {
	if err := uc.cache.Delete(ctx, UserKey(uid)); err != nil {
		log.Warn().Err(err).Str("user_id", uid).Msg("Failed to invalidate user cache")
	}
}

// InvalidateAnalytics removes every cached analytics report for a user.
// Called after task writes, since any period may now be stale.
func (uc *UserCache) InvalidateAnalytics(ctx context.Context, uid string) {
	if err := uc.cache.DeletePattern(ctx, UserAnalyticsPattern(uid)); err != nil {
		log.Warn().Err(err).Str("user_id", uid).Msg("Failed to invalidate analytics cache")
	}
}
