package drip

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/relaycrm/relay/pkg/models"
)

var (
	// ErrCampaignNotSequence is returned when enrolling into a one-shot
	// campaign that has no step sequence.
	ErrCampaignNotSequence = errors.New("campaign is not a sequence")

	// ErrCampaignNotActive is returned for operations that require an
	// ACTIVE campaign.
	ErrCampaignNotActive = errors.New("campaign is not active")

	// ErrCampaignNotPaused is returned when resuming a campaign that is
	// not paused.
	ErrCampaignNotPaused = errors.New("campaign is not paused")
)

// Enroll adds a recipient to a sequence campaign at step zero. The first send
// time comes from step zero's own delay, so campaigns can front-load a wait.
func (p *Processor) Enroll(ctx context.Context, campaignID, recipientID string) (*models.SmsEnrollment, error) {
	campaign, err := p.persistence.Campaigns().CampaignByID(ctx, campaignID)
	if err != nil {
		return nil, fmt.Errorf("failed to load campaign: %w", err)
	}

	if !campaign.IsSequence {
		return nil, fmt.Errorf("%w: campaign %s", ErrCampaignNotSequence, campaignID)
	}

	if campaign.Status != models.CampaignStatusActive {
		return nil, fmt.Errorf("%w: campaign %s is %s", ErrCampaignNotActive, campaignID, campaign.Status)
	}

	// Recipient must exist before the first send attempt.
	_, err = p.persistence.Campaigns().RecipientByID(ctx, recipientID)
	if err != nil {
		return nil, fmt.Errorf("failed to load recipient: %w", err)
	}

	firstSendAt := p.now()
	if first, ok := campaign.Step(0); ok {
		firstSendAt = firstSendAt.Add(first.Delay())
	}

	enrollment := &models.SmsEnrollment{
		ID:          uuid.New().String(),
		CampaignID:  campaignID,
		RecipientID: recipientID,
		CurrentStep: 0,
		Status:      models.EnrollmentStatusActive,
		NextSendAt:  &firstSendAt,
	}

	err = p.persistence.Campaigns().SaveEnrollment(ctx, enrollment)
	if err != nil {
		return nil, fmt.Errorf("failed to save enrollment: %w", err)
	}

	p.logger.InfoContext(ctx, "Recipient enrolled",
		"campaign_id", campaignID, "enrollment_id", enrollment.ID, "next_send_at", firstSendAt)

	return enrollment, nil
}

// RecordReply stamps an inbound reply on an enrollment. Steps flagged
// skipIfReplied consult this timestamp on their next due pass.
func (p *Processor) RecordReply(ctx context.Context, enrollmentID string) error {
	enrollment, err := p.persistence.Campaigns().EnrollmentByID(ctx, enrollmentID)
	if err != nil {
		return fmt.Errorf("failed to load enrollment: %w", err)
	}

	repliedAt := p.now()
	enrollment.LastRepliedAt = &repliedAt

	err = p.persistence.Campaigns().SaveEnrollment(ctx, enrollment)
	if err != nil {
		return fmt.Errorf("failed to save enrollment: %w", err)
	}

	return nil
}

// PauseCampaign stops a campaign's sends. Enrollments keep their due times
// and resume where they left off.
func (p *Processor) PauseCampaign(ctx context.Context, campaignID string) error {
	campaign, err := p.persistence.Campaigns().CampaignByID(ctx, campaignID)
	if err != nil {
		return fmt.Errorf("failed to load campaign: %w", err)
	}

	if campaign.Status != models.CampaignStatusActive {
		return fmt.Errorf("%w: campaign %s is %s", ErrCampaignNotActive, campaignID, campaign.Status)
	}

	campaign.Status = models.CampaignStatusPaused

	err = p.persistence.Campaigns().SaveCampaign(ctx, campaign)
	if err != nil {
		return fmt.Errorf("failed to save campaign: %w", err)
	}

	p.logger.InfoContext(ctx, "Campaign paused", "campaign_id", campaignID)

	return nil
}

// ResumeCampaign reactivates a paused campaign.
func (p *Processor) ResumeCampaign(ctx context.Context, campaignID string) error {
	campaign, err := p.persistence.Campaigns().CampaignByID(ctx, campaignID)
	if err != nil {
		return fmt.Errorf("failed to load campaign: %w", err)
	}

	if campaign.Status != models.CampaignStatusPaused {
		return fmt.Errorf("%w: campaign %s is %s", ErrCampaignNotPaused, campaignID, campaign.Status)
	}

	campaign.Status = models.CampaignStatusActive

	err = p.persistence.Campaigns().SaveCampaign(ctx, campaign)
	if err != nil {
		return fmt.Errorf("failed to save campaign: %w", err)
	}

	p.logger.InfoContext(ctx, "Campaign resumed", "campaign_id", campaignID)

	return nil
}
