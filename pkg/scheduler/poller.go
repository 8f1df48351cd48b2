// Package scheduler drives the engine from persisted state. A cron-backed
// poller drains due task executions into the orchestrator, advances drip
// campaigns, and resets daily send counters at midnight. Multiple poller
// processes can run against the same database; the claim primitive keeps each
// execution single-winner.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/relaycrm/relay/pkg/counters"
	"github.com/relaycrm/relay/pkg/persistence"
	"github.com/robfig/cron/v3"
)

const defaultBatchSize = 100

// midnightSpec fires at 00:00 UTC, when the day buckets roll over.
const midnightSpec = "0 0 * * *"

// Engine is the orchestrator surface the poller drives.
type Engine interface {
	ProcessTaskExecution(ctx context.Context, executionID string) error
}

// CampaignProcessor advances drip campaigns on each poll pass.
type CampaignProcessor interface {
	ProcessCampaigns(ctx context.Context) error
}

type Poller struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	engine      Engine
	campaigns   CampaignProcessor
	counters    counters.Counters

	batchSize int
	now       func() time.Time
	cron      *cron.Cron
}

func NewPoller(
	logger *slog.Logger,
	persist persistence.Persistence,
	engine Engine,
	campaigns CampaignProcessor,
	sendCounters counters.Counters,
) *Poller {
	return &Poller{
		logger:      logger.With("module", "scheduler"),
		persistence: persist,
		engine:      engine,
		campaigns:   campaigns,
		counters:    sendCounters,
		batchSize:   defaultBatchSize,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Start schedules the poll and midnight entries and runs them until the
// context is cancelled. pollSpec is a cron expression, typically an @every
// interval.
func (p *Poller) Start(ctx context.Context, pollSpec string) error {
	p.cron = cron.New(cron.WithLocation(time.UTC))

	_, err := p.cron.AddFunc(pollSpec, func() { p.runTick(ctx) })
	if err != nil {
		return fmt.Errorf("failed to schedule poll entry: %w", err)
	}

	_, err = p.cron.AddFunc(midnightSpec, func() { p.runMidnight(ctx) })
	if err != nil {
		return fmt.Errorf("failed to schedule midnight entry: %w", err)
	}

	p.logger.InfoContext(ctx, "Poller started", "poll_spec", pollSpec, "batch_size", p.batchSize)
	p.cron.Start()

	<-ctx.Done()

	// Let in-flight entries finish before returning.
	<-p.cron.Stop().Done()
	p.logger.Info("Poller stopped")

	return nil
}

func (p *Poller) runTick(ctx context.Context) {
	err := p.Tick(ctx)
	if err != nil {
		p.logger.ErrorContext(ctx, "Poll tick failed", "error", err)
	}
}

func (p *Poller) runMidnight(ctx context.Context) {
	err := p.ResetDailyCounters(ctx)
	if err != nil {
		p.logger.ErrorContext(ctx, "Daily counter reset failed", "error", err)
	}
}

// Tick runs one poll pass: due task executions first, then drip campaigns.
// Per-execution failures are logged and do not stop the batch; the fail-fast
// handling inside the orchestrator already recorded them.
func (p *Poller) Tick(ctx context.Context) error {
	due, err := p.persistence.Executions().Due(ctx, p.now(), p.batchSize)
	if err != nil {
		return fmt.Errorf("failed to list due executions: %w", err)
	}

	if len(due) > 0 {
		p.logger.InfoContext(ctx, "Processing due executions", "count", len(due))
	}

	for _, execution := range due {
		err = p.engine.ProcessTaskExecution(ctx, execution.ID)
		if err != nil {
			p.logger.ErrorContext(ctx, "Execution processing failed",
				"execution_id", execution.ID, "error", err)
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}
	}

	if p.campaigns != nil {
		err = p.campaigns.ProcessCampaigns(ctx)
		if err != nil {
			p.logger.ErrorContext(ctx, "Campaign processing failed", "error", err)
		}
	}

	return nil
}

// ResetDailyCounters clears every active campaign's counter for the new day.
// Redis buckets also expire by TTL; the explicit reset keeps the memory
// implementation correct and makes the rollover observable in logs.
func (p *Poller) ResetDailyCounters(ctx context.Context) error {
	campaigns, err := p.persistence.Campaigns().ActiveSequenceCampaigns(ctx)
	if err != nil {
		return fmt.Errorf("failed to list active campaigns: %w", err)
	}

	for _, campaign := range campaigns {
		err = p.counters.ResetDay(ctx, campaign.ID)
		if err != nil {
			p.logger.ErrorContext(ctx, "Failed to reset counter",
				"campaign_id", campaign.ID, "error", err)
		}
	}

	p.logger.InfoContext(ctx, "Daily counters reset", "campaigns", len(campaigns))

	return nil
}
