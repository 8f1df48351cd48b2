// Package counters provides persisted, atomically-incremented send counters
// scoped by campaign. Counters are never held as in-process globals: multiple
// pollers must observe the same daily totals.
package counters

import (
	"context"
	"time"
)

// Counters tracks per-campaign outbound message counts per calendar day.
type Counters interface {
	// IncrSent atomically increments today's sent count for a campaign and
	// returns the new total.
	IncrSent(ctx context.Context, campaignID string) (int64, error)

	// SentToday returns today's sent count for a campaign.
	SentToday(ctx context.Context, campaignID string) (int64, error)

	// ResetDay clears a campaign's counter for the current day. Invoked by
	// the scheduled maintenance entry at midnight.
	ResetDay(ctx context.Context, campaignID string) error
}

// dayKey buckets counters by UTC calendar day.
func dayKey(campaignID string, now time.Time) string {
	return "relay:sms:sent:" + campaignID + ":" + now.UTC().Format("2006-01-02")
}

// untilNextMidnight returns the TTL that expires a day bucket shortly after
// the UTC day rolls over.
func untilNextMidnight(now time.Time) time.Duration {
	now = now.UTC()
	next := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).Add(24 * time.Hour)

	return next.Sub(now) + time.Hour
}
