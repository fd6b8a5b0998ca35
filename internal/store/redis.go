package store

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/teccUI/inteliTASK/pkg/config"
	"github.com/teccUI/inteliTASK/pkg/utils"
)

// RedisDB wraps a Redis client for caching and short-lived coordination
// state. Provides type-safe methods for:
//   - OAuth state nonces for the Google Calendar connect flow
//   - Rate limiting per IP address and endpoint
//
// All keys use structured naming patterns for organization and monitoring.
// The application-level caches (user profiles, analytics) sit on top of
// the raw client via pkg/cache.
type RedisDB struct {
	client *redis.Client
}

// NewRedisDB creates a new Redis connection with automatic retry.
//
// Retry configuration:
//   - Max attempts: 5
//   - Initial delay: 100ms
//   - Max delay: 3 seconds
//   - Total timeout: 30 seconds
//
// Parameters:
//   - cfg: Redis configuration including host, port, password, database, and pool size
//
// Returns the connected Redis client or an error if all retries fail.
func NewRedisDB(cfg *config.RedisConfig) (*RedisDB, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address(),
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})

	// Verify connection with retry
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	retryConfig := utils.ConnectRetryConfig()
	retryConfig.MaxAttempts = 5
	retryConfig.InitialDelay = 100 * time.Millisecond
	retryConfig.MaxDelay = 3 * time.Second

	var lastErr error
	err := utils.Retry(ctx, retryConfig, func() error {
		pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer pingCancel()

		if err := client.Ping(pingCtx).Err(); err != nil {
			lastErr = err
			log.Warn().Err(err).Msg("Failed to ping Redis, retrying...")
			return err
		}
		return nil
	})

	if err != nil {
		client.Close()
		if lastErr != nil {
			return nil, fmt.Errorf("failed to connect to Redis after retries: %w", lastErr)
		}
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	log.Info().Msg("Successfully connected to Redis")

	return &RedisDB{client: client}, nil
}

// Close closes the Redis connection and releases all resources.
func (r *RedisDB) Close() error {
	return r.client.Close()
}

// Client returns the underlying Redis client for advanced operations.
// pkg/cache uses this to share the connection pool.
func (r *RedisDB) Client() *redis.Client {
	return r.client
}

// Ping checks if Redis is alive and responsive.
// Used by health check endpoints to verify Redis availability.
func (r *RedisDB) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// SetOAuthState stores a one-time state nonce for the Google Calendar
// connect flow, mapped to the user who initiated it.
//
// Key pattern: "oauth_state:{state}"
//
// The entry expires after the given duration; the callback must arrive
// within that window or the flow is rejected.
func (r *RedisDB) SetOAuthState(ctx context.Context, state, userID string, expiry time.Duration) error {
	key := fmt.Sprintf("oauth_state:%s", state)
	if err := r.client.Set(ctx, key, userID, expiry).Err(); err != nil {
		return fmt.Errorf("failed to set oauth state: %w", err)
	}
	return nil
}

// ConsumeOAuthState retrieves and deletes the user ID bound to an OAuth
// state nonce. Single-use: a second consume of the same state fails,
// which defeats replayed callbacks.
//
// Returns the user ID or an error if the state is unknown or expired.
func (r *RedisDB) ConsumeOAuthState(ctx context.Context, state string) (string, error) {
	key := fmt.Sprintf("oauth_state:%s", state)
	userID, err := r.client.GetDel(ctx, key).Result()
	if err == redis.Nil {
		return "", fmt.Errorf("oauth state not found or expired")
	}
	if err != nil {
		return "", fmt.Errorf("failed to consume oauth state: %w", err)
	}
	return userID, nil
}

// IncrementRateLimit increments the request counter for an IP address and
// endpoint pair, creating it with the window's expiry on first hit.
//
// Key pattern: "rate_limit:{ip}:{endpoint}"
//
// Returns the count after increment; the middleware compares it against
// the configured ceiling.
func (r *RedisDB) IncrementRateLimit(ctx context.Context, ip, endpoint string, window time.Duration) (int64, error) {
	key := fmt.Sprintf("rate_limit:%s:%s", ip, endpoint)

	pipe := r.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, window)

	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("failed to increment rate limit: %w", err)
	}
	return incr.Val(), nil
}

// GetRateLimitCount returns the current request count for an IP address
// and endpoint pair, or 0 when no requests were made in the window.
func (r *RedisDB) GetRateLimitCount(ctx context.Context, ip, endpoint string) (int64, error) {
	key := fmt.Sprintf("rate_limit:%s:%s", ip, endpoint)
	count, err := r.client.Get(ctx, key).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get rate limit count: %w", err)
	}
	return count, nil
}
