// Package drip advances SMS sequence campaigns. Each enrollment's wait is the
// persisted next_send_at timestamp, so processing survives restarts the same
// way task executions do.
package drip

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/relaycrm/relay/pkg/counters"
	"github.com/relaycrm/relay/pkg/eventbus"
	"github.com/relaycrm/relay/pkg/events"
	"github.com/relaycrm/relay/pkg/gateways"
	"github.com/relaycrm/relay/pkg/models"
	"github.com/relaycrm/relay/pkg/persistence"
	"github.com/relaycrm/relay/pkg/template"
)

const (
	defaultBatchSize = 50

	// defaultSendPause spaces consecutive sends within one batch so the
	// gateway is not hit in a burst.
	defaultSendPause = 500 * time.Millisecond
)

type Processor struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	counters    counters.Counters
	gateway     gateways.SMSGateway
	eventBus    eventbus.EventPublisher

	batchSize int
	sendPause time.Duration
	now       func() time.Time
}

func NewProcessor(
	logger *slog.Logger,
	persist persistence.Persistence,
	sendCounters counters.Counters,
	gateway gateways.SMSGateway,
	bus eventbus.EventPublisher,
) *Processor {
	return &Processor{
		logger:      logger.With("module", "drip_processor"),
		persistence: persist,
		counters:    sendCounters,
		gateway:     gateway,
		eventBus:    bus,
		batchSize:   defaultBatchSize,
		sendPause:   defaultSendPause,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// ProcessCampaigns runs one pass over every ACTIVE sequence campaign. PAUSED
// campaigns are skipped entirely; their enrollments keep their next_send_at
// and resume where they left off when the campaign reactivates.
func (p *Processor) ProcessCampaigns(ctx context.Context) error {
	campaigns, err := p.persistence.Campaigns().ActiveSequenceCampaigns(ctx)
	if err != nil {
		return fmt.Errorf("failed to list active campaigns: %w", err)
	}

	for _, campaign := range campaigns {
		err = p.ProcessCampaign(ctx, campaign)
		if err != nil {
			p.logger.ErrorContext(ctx, "Campaign processing failed",
				"campaign_id", campaign.ID, "error", err)
		}
	}

	return nil
}

// ProcessCampaign advances one campaign's due enrollments.
func (p *Processor) ProcessCampaign(ctx context.Context, campaign *models.SmsCampaign) error {
	due, err := p.persistence.Campaigns().DueEnrollments(ctx, campaign.ID, p.now(), p.batchSize)
	if err != nil {
		return fmt.Errorf("failed to list due enrollments: %w", err)
	}

	for i, enrollment := range due {
		if i > 0 && p.sendPause > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(p.sendPause):
			}
		}

		err = p.processEnrollment(ctx, campaign, enrollment)
		if err != nil {
			p.logger.ErrorContext(ctx, "Enrollment processing failed",
				"campaign_id", campaign.ID, "enrollment_id", enrollment.ID, "error", err)
		}
	}

	return nil
}

func (p *Processor) processEnrollment(ctx context.Context, campaign *models.SmsCampaign, enrollment *models.SmsEnrollment) error {
	step, ok := campaign.Step(enrollment.CurrentStep)
	if !ok {
		// Past the last step: the sequence is over.
		return p.completeEnrollment(ctx, campaign, enrollment)
	}

	if step.SkipIfReplied && enrollment.RepliedSinceLastSend() {
		p.logger.InfoContext(ctx, "Recipient replied, skipping step",
			"enrollment_id", enrollment.ID, "step", step.Ordinal)

		// Skipped sends do not count toward the daily limit.
		return p.advanceEnrollment(ctx, campaign, enrollment)
	}

	if campaign.DailyLimit > 0 {
		sent, err := p.counters.SentToday(ctx, campaign.ID)
		if err != nil {
			return fmt.Errorf("failed to read daily counter: %w", err)
		}

		// At the cap: leave the enrollment due and let a later pass,
		// or tomorrow's counter reset, pick it up.
		if sent >= int64(campaign.DailyLimit) {
			p.logger.InfoContext(ctx, "Daily send limit reached, deferring",
				"campaign_id", campaign.ID, "limit", campaign.DailyLimit)

			return nil
		}
	}

	recipient, err := p.persistence.Campaigns().RecipientByID(ctx, enrollment.RecipientID)
	if err != nil {
		return fmt.Errorf("failed to load recipient: %w", err)
	}

	body := template.Personalize(step.Body, recipient.Fields())
	sentAt := p.now()

	message := &models.SmsSequenceMessage{
		ID:           uuid.New().String(),
		EnrollmentID: enrollment.ID,
		CampaignID:   campaign.ID,
		Step:         step.Ordinal,
		Body:         body,
		SentAt:       sentAt,
	}

	result, sendErr := p.gateway.Send(ctx, recipient.Phone, body)
	if sendErr != nil {
		message.Status = models.MessageStatusFailed
		message.Error = sendErr.Error()
	} else {
		message.Status = models.MessageStatusSent
		message.GatewayMessageID = result.ID

		_, err = p.counters.IncrSent(ctx, campaign.ID)
		if err != nil {
			p.logger.ErrorContext(ctx, "Failed to increment daily counter",
				"campaign_id", campaign.ID, "error", err)
		}
	}

	err = p.persistence.Campaigns().SaveMessage(ctx, message)
	if err != nil {
		return fmt.Errorf("failed to record message: %w", err)
	}

	// An older reply no longer suppresses later skippable steps.
	enrollment.LastSentAt = &sentAt

	p.publish(ctx, enrollment.ID, events.DripMessageSent{
		BaseEvent: events.BaseEvent{
			ID:        uuid.New().String(),
			Type:      events.DripMessageSentEvent,
			Timestamp: sentAt,
			TenantID:  campaign.TenantID,
		},
		CampaignID:   campaign.ID,
		EnrollmentID: enrollment.ID,
		Step:         step.Ordinal,
		MessageID:    message.ID,
		Status:       string(message.Status),
	})

	if sendErr != nil {
		p.logger.ErrorContext(ctx, "Drip message send failed",
			"enrollment_id", enrollment.ID, "step", step.Ordinal, "error", sendErr)
	} else {
		p.logger.InfoContext(ctx, "Drip message sent",
			"enrollment_id", enrollment.ID, "step", step.Ordinal, "gateway_message_id", message.GatewayMessageID)
	}

	// A failed send still advances the sequence. The message row carries
	// the failure; retrying would re-send on every poll.
	return p.advanceEnrollment(ctx, campaign, enrollment)
}

// advanceEnrollment moves an enrollment to the next step, computing the next
// send time from the next step's delay relative to now.
func (p *Processor) advanceEnrollment(ctx context.Context, campaign *models.SmsCampaign, enrollment *models.SmsEnrollment) error {
	nextOrdinal := enrollment.CurrentStep + 1

	nextStep, ok := campaign.Step(nextOrdinal)
	if !ok {
		return p.completeEnrollment(ctx, campaign, enrollment)
	}

	nextSendAt := p.now().Add(nextStep.Delay())
	enrollment.CurrentStep = nextOrdinal
	enrollment.NextSendAt = &nextSendAt

	err := p.persistence.Campaigns().SaveEnrollment(ctx, enrollment)
	if err != nil {
		return fmt.Errorf("failed to save enrollment: %w", err)
	}

	return nil
}

func (p *Processor) completeEnrollment(ctx context.Context, campaign *models.SmsCampaign, enrollment *models.SmsEnrollment) error {
	enrollment.Status = models.EnrollmentStatusCompleted
	enrollment.NextSendAt = nil

	err := p.persistence.Campaigns().SaveEnrollment(ctx, enrollment)
	if err != nil {
		return fmt.Errorf("failed to save enrollment: %w", err)
	}

	p.logger.InfoContext(ctx, "Enrollment completed",
		"campaign_id", campaign.ID, "enrollment_id", enrollment.ID)

	p.publish(ctx, enrollment.ID, events.DripEnrollmentCompleted{
		BaseEvent: events.BaseEvent{
			ID:        uuid.New().String(),
			Type:      events.DripEnrollmentCompletedEvent,
			Timestamp: p.now(),
			TenantID:  campaign.TenantID,
		},
		CampaignID:   campaign.ID,
		EnrollmentID: enrollment.ID,
	})

	return nil
}

func (p *Processor) publish(ctx context.Context, key string, event eventbus.Event) {
	if p.eventBus == nil {
		return
	}

	err := p.eventBus.Publish(ctx, key, event)
	if err != nil {
		p.logger.ErrorContext(ctx, "Failed to publish event",
			"event_type", string(event.GetType()), "error", err)
	}
}
