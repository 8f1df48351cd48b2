package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/relaycrm/relay/pkg/counters"
	"github.com/relaycrm/relay/pkg/models"
	"github.com/relaycrm/relay/pkg/persistence/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingEngine struct {
	processed []string
	fail      map[string]error
}

func (e *recordingEngine) ProcessTaskExecution(_ context.Context, executionID string) error {
	e.processed = append(e.processed, executionID)

	return e.fail[executionID]
}

type recordingCampaigns struct {
	passes int
}

func (c *recordingCampaigns) ProcessCampaigns(_ context.Context) error {
	c.passes++

	return nil
}

func newTestPoller(t *testing.T) (*Poller, *memory.Persistence, *recordingEngine, *recordingCampaigns) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	persist := memory.NewPersistence()
	engine := &recordingEngine{fail: make(map[string]error)}
	campaigns := &recordingCampaigns{}

	return NewPoller(logger, persist, engine, campaigns, counters.NewMemoryCounters()), persist, engine, campaigns
}

func seedExecution(t *testing.T, persist *memory.Persistence, id string, scheduledFor time.Time) {
	t.Helper()

	err := persist.Executions().Save(context.Background(), &models.TaskExecution{
		ID:           id,
		InstanceID:   "inst-1",
		TaskID:       "task-" + id,
		Status:       models.ExecutionStatusScheduled,
		ScheduledFor: &scheduledFor,
	})
	require.NoError(t, err)
}

func TestTickProcessesDueExecutionsInOrder(t *testing.T) {
	poller, persist, engine, campaigns := newTestPoller(t)

	now := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	poller.now = func() time.Time { return now }

	seedExecution(t, persist, "exec-late", now.Add(-time.Minute))
	seedExecution(t, persist, "exec-early", now.Add(-time.Hour))
	seedExecution(t, persist, "exec-future", now.Add(time.Hour))

	require.NoError(t, poller.Tick(context.Background()))

	assert.Equal(t, []string{"exec-early", "exec-late"}, engine.processed)
	assert.Equal(t, 1, campaigns.passes)
}

func TestTickContinuesPastFailures(t *testing.T) {
	poller, persist, engine, campaigns := newTestPoller(t)

	now := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	poller.now = func() time.Time { return now }

	seedExecution(t, persist, "exec-1", now.Add(-2*time.Minute))
	seedExecution(t, persist, "exec-2", now.Add(-time.Minute))
	engine.fail["exec-1"] = errors.New("executor blew up")

	require.NoError(t, poller.Tick(context.Background()))

	assert.Equal(t, []string{"exec-1", "exec-2"}, engine.processed)
	assert.Equal(t, 1, campaigns.passes)
}

func TestTickRespectsBatchSize(t *testing.T) {
	poller, persist, engine, _ := newTestPoller(t)

	now := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	poller.now = func() time.Time { return now }
	poller.batchSize = 2

	seedExecution(t, persist, "exec-1", now.Add(-3*time.Minute))
	seedExecution(t, persist, "exec-2", now.Add(-2*time.Minute))
	seedExecution(t, persist, "exec-3", now.Add(-time.Minute))

	require.NoError(t, poller.Tick(context.Background()))
	assert.Len(t, engine.processed, 2)
}

func TestTickStopsOnCancelledContext(t *testing.T) {
	poller, persist, engine, _ := newTestPoller(t)

	now := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	poller.now = func() time.Time { return now }

	seedExecution(t, persist, "exec-1", now.Add(-2*time.Minute))
	seedExecution(t, persist, "exec-2", now.Add(-time.Minute))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := poller.Tick(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, engine.processed, 1)
}

func TestResetDailyCounters(t *testing.T) {
	poller, persist, _, _ := newTestPoller(t)

	sendCounters := counters.NewMemoryCounters()
	poller.counters = sendCounters

	require.NoError(t, persist.Campaigns().SaveCampaign(context.Background(), &models.SmsCampaign{
		ID:         "camp-1",
		TenantID:   "tenant-1",
		Name:       "Cold outreach",
		IsSequence: true,
		Status:     models.CampaignStatusActive,
	}))

	_, err := sendCounters.IncrSent(context.Background(), "camp-1")
	require.NoError(t, err)

	require.NoError(t, poller.ResetDailyCounters(context.Background()))

	sent, err := sendCounters.SentToday(context.Background(), "camp-1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), sent)
}
