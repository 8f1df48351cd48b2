package counters

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// RedisCounters implements Counters on a shared Redis instance. INCR is
// atomic across pollers; day buckets expire on their own, the explicit reset
// exists for the maintenance job and for operators.
type RedisCounters struct {
	client redis.UniversalClient
	logger *slog.Logger
}

// NewRedisCounters connects to Redis and verifies the connection.
func NewRedisCounters(ctx context.Context, logger *slog.Logger, redisURL string) (*RedisCounters, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return &RedisCounters{
		client: client,
		logger: logger.With("module", "redis_counters"),
	}, nil
}

func (c *RedisCounters) IncrSent(ctx context.Context, campaignID string) (int64, error) {
	now := time.Now()
	key := dayKey(campaignID, now)

	count, err := c.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to increment send counter: %w", err)
	}

	if count == 1 {
		// First send of the day creates the bucket; give it a TTL so stale
		// campaigns do not accumulate keys.
		if err := c.client.Expire(ctx, key, untilNextMidnight(now)).Err(); err != nil {
			c.logger.WarnContext(ctx, "Failed to set counter expiry", "campaign_id", campaignID, "error", err)
		}
	}

	return count, nil
}

func (c *RedisCounters) SentToday(ctx context.Context, campaignID string) (int64, error) {
	count, err := c.client.Get(ctx, dayKey(campaignID, time.Now())).Int64()
	if err == redis.Nil {
		return 0, nil
	}

	if err != nil {
		return 0, fmt.Errorf("failed to read send counter: %w", err)
	}

	return count, nil
}

func (c *RedisCounters) ResetDay(ctx context.Context, campaignID string) error {
	err := c.client.Del(ctx, dayKey(campaignID, time.Now())).Err()
	if err != nil {
		return fmt.Errorf("failed to reset send counter: %w", err)
	}

	return nil
}

// Close releases the underlying Redis connection.
func (c *RedisCounters) Close() error {
	return c.client.Close()
}
