package counters

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCountersIncrementAndRead(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCounters()

	count, err := c.IncrSent(ctx, "camp-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	count, err = c.IncrSent(ctx, "camp-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	today, err := c.SentToday(ctx, "camp-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), today)

	// Campaigns are isolated from each other
	other, err := c.SentToday(ctx, "camp-2")
	require.NoError(t, err)
	assert.Equal(t, int64(0), other)
}

func TestMemoryCountersReset(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCounters()

	_, err := c.IncrSent(ctx, "camp-1")
	require.NoError(t, err)

	require.NoError(t, c.ResetDay(ctx, "camp-1"))

	today, err := c.SentToday(ctx, "camp-1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), today)
}

func TestMemoryCountersDayRollover(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCounters()

	day1 := time.Date(2026, 3, 1, 23, 0, 0, 0, time.UTC)
	c.Now = func() time.Time { return day1 }

	_, err := c.IncrSent(ctx, "camp-1")
	require.NoError(t, err)

	c.Now = func() time.Time { return day1.Add(2 * time.Hour) }

	today, err := c.SentToday(ctx, "camp-1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), today, "counter starts fresh after midnight")
}

func TestUntilNextMidnight(t *testing.T) {
	now := time.Date(2026, 3, 1, 23, 0, 0, 0, time.UTC)

	ttl := untilNextMidnight(now)

	assert.Equal(t, 2*time.Hour, ttl)
}
