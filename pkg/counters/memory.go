package counters

import (
	"context"
	"sync"
	"time"
)

// MemoryCounters is an in-process Counters implementation for unit tests and
// single-node development. Not suitable for horizontally-scaled pollers.
type MemoryCounters struct {
	mu     sync.Mutex
	counts map[string]int64

	// Now is swappable so tests can pin the day bucket.
	Now func() time.Time
}

func NewMemoryCounters() *MemoryCounters {
	return &MemoryCounters{
		counts: make(map[string]int64),
		Now:    time.Now,
	}
}

func (c *MemoryCounters) IncrSent(_ context.Context, campaignID string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := dayKey(campaignID, c.Now())
	c.counts[key]++

	return c.counts[key], nil
}

func (c *MemoryCounters) SentToday(_ context.Context, campaignID string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.counts[dayKey(campaignID, c.Now())], nil
}

func (c *MemoryCounters) ResetDay(_ context.Context, campaignID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.counts, dayKey(campaignID, c.Now()))

	return nil
}
