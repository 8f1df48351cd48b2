package cmd

import (
	"context"
	"log/slog"

	"github.com/relaycrm/relay/pkg/counters"
)

// NewCounters builds the daily send counters. An empty Redis URL falls back
// to in-process counters, which do not coordinate across pollers.
func NewCounters(ctx context.Context, logger *slog.Logger, redisURL string) counters.Counters {
	if redisURL == "" {
		logger.WarnContext(ctx, "Using in-memory send counters; daily limits are per-process")

		return counters.NewMemoryCounters()
	}

	redisCounters, err := counters.NewRedisCounters(ctx, logger, redisURL)
	if err != nil {
		panic(err)
	}

	return redisCounters
}
