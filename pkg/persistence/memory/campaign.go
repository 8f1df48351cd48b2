package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/relaycrm/relay/pkg/models"
	"github.com/relaycrm/relay/pkg/persistence"
)

type CampaignRepository struct {
	mu          sync.RWMutex
	campaigns   map[string]*models.SmsCampaign
	enrollments map[string]*models.SmsEnrollment
	messages    map[string]*models.SmsSequenceMessage
	recipients  map[string]*models.Recipient
}

func newCampaignRepository() *CampaignRepository {
	return &CampaignRepository{
		campaigns:   make(map[string]*models.SmsCampaign),
		enrollments: make(map[string]*models.SmsEnrollment),
		messages:    make(map[string]*models.SmsSequenceMessage),
		recipients:  make(map[string]*models.Recipient),
	}
}

func cloneCampaign(campaign *models.SmsCampaign) *models.SmsCampaign {
	clone := *campaign
	clone.Steps = append([]models.SmsSequenceStep(nil), campaign.Steps...)

	return &clone
}

func cloneEnrollment(enrollment *models.SmsEnrollment) *models.SmsEnrollment {
	clone := *enrollment

	return &clone
}

func (r *CampaignRepository) SaveCampaign(_ context.Context, campaign *models.SmsCampaign) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	campaign.UpdatedAt = time.Now().UTC()
	r.campaigns[campaign.ID] = cloneCampaign(campaign)

	return nil
}

func (r *CampaignRepository) CampaignByID(_ context.Context, id string) (*models.SmsCampaign, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	campaign, ok := r.campaigns[id]
	if !ok {
		return nil, persistence.ErrCampaignNotFound
	}

	return cloneCampaign(campaign), nil
}

func (r *CampaignRepository) ActiveSequenceCampaigns(_ context.Context) ([]*models.SmsCampaign, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*models.SmsCampaign, 0)

	for _, campaign := range r.campaigns {
		if campaign.Status == models.CampaignStatusActive && campaign.IsSequence {
			result = append(result, cloneCampaign(campaign))
		}
	}

	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })

	return result, nil
}

func (r *CampaignRepository) SaveEnrollment(_ context.Context, enrollment *models.SmsEnrollment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	enrollment.UpdatedAt = time.Now().UTC()
	r.enrollments[enrollment.ID] = cloneEnrollment(enrollment)

	return nil
}

func (r *CampaignRepository) EnrollmentByID(_ context.Context, id string) (*models.SmsEnrollment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	enrollment, ok := r.enrollments[id]
	if !ok {
		return nil, persistence.ErrEnrollmentNotFound
	}

	return cloneEnrollment(enrollment), nil
}

func (r *CampaignRepository) DueEnrollments(_ context.Context, campaignID string, before time.Time, limit int) ([]*models.SmsEnrollment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*models.SmsEnrollment, 0)

	for _, enrollment := range r.enrollments {
		if enrollment.CampaignID != campaignID || enrollment.Status != models.EnrollmentStatusActive {
			continue
		}

		if enrollment.NextSendAt == nil || enrollment.NextSendAt.After(before) {
			continue
		}

		result = append(result, cloneEnrollment(enrollment))
	}

	sort.Slice(result, func(i, j int) bool { return result[i].NextSendAt.Before(*result[j].NextSendAt) })

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}

	return result, nil
}

func (r *CampaignRepository) SaveMessage(_ context.Context, message *models.SmsSequenceMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	clone := *message
	r.messages[message.ID] = &clone

	return nil
}

func (r *CampaignRepository) MessagesByEnrollment(_ context.Context, enrollmentID string) ([]*models.SmsSequenceMessage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*models.SmsSequenceMessage, 0)

	for _, message := range r.messages {
		if message.EnrollmentID == enrollmentID {
			clone := *message
			result = append(result, &clone)
		}
	}

	sort.Slice(result, func(i, j int) bool { return result[i].SentAt.Before(result[j].SentAt) })

	return result, nil
}

func (r *CampaignRepository) RecipientByID(_ context.Context, id string) (*models.Recipient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	recipient, ok := r.recipients[id]
	if !ok {
		return nil, persistence.ErrRecipientNotFound
	}

	clone := *recipient

	return &clone, nil
}

func (r *CampaignRepository) SaveRecipient(_ context.Context, recipient *models.Recipient) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	clone := *recipient
	r.recipients[recipient.ID] = &clone

	return nil
}
