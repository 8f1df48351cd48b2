package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/relaycrm/relay/pkg/models"
	"github.com/relaycrm/relay/pkg/persistence"
)

// CampaignRepository handles SMS campaign, enrollment, message, and recipient
// database operations.
type CampaignRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewCampaignRepository creates a new campaign repository.
func NewCampaignRepository(db *sql.DB, logger *slog.Logger) *CampaignRepository {
	return &CampaignRepository{db: db, logger: logger}
}

// SaveCampaign inserts or updates a campaign.
func (r *CampaignRepository) SaveCampaign(ctx context.Context, campaign *models.SmsCampaign) error {
	now := time.Now().UTC()

	if campaign.CreatedAt.IsZero() {
		campaign.CreatedAt = now
	}

	campaign.UpdatedAt = now

	stepsJSON, err := json.Marshal(campaign.Steps)
	if err != nil {
		return fmt.Errorf("failed to marshal steps: %w", err)
	}

	query := `
		INSERT INTO sms_campaigns (id, tenant_id, name, is_sequence, daily_limit, status, steps, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			is_sequence = EXCLUDED.is_sequence,
			daily_limit = EXCLUDED.daily_limit,
			status = EXCLUDED.status,
			steps = EXCLUDED.steps,
			updated_at = EXCLUDED.updated_at
	`

	_, err = r.db.ExecContext(ctx, query,
		campaign.ID, campaign.TenantID, campaign.Name, campaign.IsSequence,
		campaign.DailyLimit, string(campaign.Status), stepsJSON,
		campaign.CreatedAt, campaign.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save campaign: %w", err)
	}

	return nil
}

// CampaignByID returns a campaign by its ID.
func (r *CampaignRepository) CampaignByID(ctx context.Context, id string) (*models.SmsCampaign, error) {
	query := campaignSelect + ` WHERE id = $1`

	campaign, err := scanCampaign(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrCampaignNotFound
		}

		return nil, fmt.Errorf("failed to scan campaign: %w", err)
	}

	return campaign, nil
}

// ActiveSequenceCampaigns returns every ACTIVE sequence campaign across all
// tenants, oldest first. This is the drip processor's outer loop.
func (r *CampaignRepository) ActiveSequenceCampaigns(ctx context.Context) ([]*models.SmsCampaign, error) {
	query := campaignSelect + ` WHERE status = $1 AND is_sequence = true ORDER BY created_at ASC`

	rows, err := r.db.QueryContext(ctx, query, string(models.CampaignStatusActive))
	if err != nil {
		return nil, fmt.Errorf("failed to query campaigns: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	campaigns := make([]*models.SmsCampaign, 0)

	for rows.Next() {
		campaign, err := scanCampaign(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan campaign: %w", err)
		}

		campaigns = append(campaigns, campaign)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating campaigns: %w", err)
	}

	return campaigns, nil
}

// SaveEnrollment inserts or updates an enrollment.
func (r *CampaignRepository) SaveEnrollment(ctx context.Context, enrollment *models.SmsEnrollment) error {
	now := time.Now().UTC()

	if enrollment.CreatedAt.IsZero() {
		enrollment.CreatedAt = now
	}

	enrollment.UpdatedAt = now

	query := `
		INSERT INTO sms_enrollments (id, campaign_id, recipient_id, current_step, status,
			next_send_at, last_sent_at, last_replied_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			current_step = EXCLUDED.current_step,
			status = EXCLUDED.status,
			next_send_at = EXCLUDED.next_send_at,
			last_sent_at = EXCLUDED.last_sent_at,
			last_replied_at = EXCLUDED.last_replied_at,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.db.ExecContext(ctx, query,
		enrollment.ID, enrollment.CampaignID, enrollment.RecipientID,
		enrollment.CurrentStep, string(enrollment.Status),
		enrollment.NextSendAt, enrollment.LastSentAt, enrollment.LastRepliedAt,
		enrollment.CreatedAt, enrollment.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save enrollment: %w", err)
	}

	return nil
}

// EnrollmentByID returns an enrollment by its ID.
func (r *CampaignRepository) EnrollmentByID(ctx context.Context, id string) (*models.SmsEnrollment, error) {
	query := enrollmentSelect + ` WHERE id = $1`

	enrollment, err := scanEnrollment(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrEnrollmentNotFound
		}

		return nil, fmt.Errorf("failed to scan enrollment: %w", err)
	}

	return enrollment, nil
}

// DueEnrollments returns up to limit ACTIVE enrollments of a campaign whose
// next_send_at has passed, oldest first.
func (r *CampaignRepository) DueEnrollments(ctx context.Context, campaignID string, before time.Time, limit int) ([]*models.SmsEnrollment, error) {
	query := enrollmentSelect + `
		WHERE campaign_id = $1 AND status = $2 AND next_send_at <= $3
		ORDER BY next_send_at ASC
		LIMIT $4
	`

	rows, err := r.db.QueryContext(ctx, query, campaignID, string(models.EnrollmentStatusActive), before, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query enrollments: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	enrollments := make([]*models.SmsEnrollment, 0)

	for rows.Next() {
		enrollment, err := scanEnrollment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan enrollment: %w", err)
		}

		enrollments = append(enrollments, enrollment)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating enrollments: %w", err)
	}

	return enrollments, nil
}

// SaveMessage records a sent or attempted sequence message.
func (r *CampaignRepository) SaveMessage(ctx context.Context, message *models.SmsSequenceMessage) error {
	query := `
		INSERT INTO sms_sequence_messages (id, enrollment_id, campaign_id, step, body,
			status, gateway_message_id, error_message, sent_at)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), NULLIF($8, ''), $9)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			gateway_message_id = EXCLUDED.gateway_message_id,
			error_message = EXCLUDED.error_message
	`

	_, err := r.db.ExecContext(ctx, query,
		message.ID, message.EnrollmentID, message.CampaignID, message.Step,
		message.Body, string(message.Status), message.GatewayMessageID,
		message.Error, message.SentAt)
	if err != nil {
		return fmt.Errorf("failed to save message: %w", err)
	}

	return nil
}

// MessagesByEnrollment returns an enrollment's messages in send order.
func (r *CampaignRepository) MessagesByEnrollment(ctx context.Context, enrollmentID string) ([]*models.SmsSequenceMessage, error) {
	query := `
		SELECT
			id
		  , enrollment_id
		  , campaign_id
		  , step
		  , body
		  , status
		  , COALESCE(gateway_message_id, '')
		  , COALESCE(error_message, '')
		  , sent_at
		FROM sms_sequence_messages
		WHERE enrollment_id = $1
		ORDER BY sent_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, enrollmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	messages := make([]*models.SmsSequenceMessage, 0)

	for rows.Next() {
		var (
			message models.SmsSequenceMessage
			status  string
		)

		err = rows.Scan(&message.ID, &message.EnrollmentID, &message.CampaignID,
			&message.Step, &message.Body, &status, &message.GatewayMessageID,
			&message.Error, &message.SentAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}

		message.Status = models.MessageStatus(status)
		messages = append(messages, &message)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating messages: %w", err)
	}

	return messages, nil
}

// RecipientByID returns a recipient by its ID.
func (r *CampaignRepository) RecipientByID(ctx context.Context, id string) (*models.Recipient, error) {
	query := `
		SELECT
			id
		  , COALESCE(first_name, '')
		  , COALESCE(last_name, '')
		  , COALESCE(business_name, '')
		  , COALESCE(contact_person, '')
		  , COALESCE(phone, '')
		  , COALESCE(email, '')
		FROM sms_recipients
		WHERE id = $1
	`

	var recipient models.Recipient

	err := r.db.QueryRowContext(ctx, query, id).Scan(&recipient.ID,
		&recipient.FirstName, &recipient.LastName, &recipient.BusinessName,
		&recipient.ContactPerson, &recipient.Phone, &recipient.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrRecipientNotFound
		}

		return nil, fmt.Errorf("failed to scan recipient: %w", err)
	}

	return &recipient, nil
}

// SaveRecipient inserts or updates a recipient.
func (r *CampaignRepository) SaveRecipient(ctx context.Context, recipient *models.Recipient) error {
	query := `
		INSERT INTO sms_recipients (id, first_name, last_name, business_name, contact_person, phone, email)
		VALUES ($1, NULLIF($2, ''), NULLIF($3, ''), NULLIF($4, ''), NULLIF($5, ''), NULLIF($6, ''), NULLIF($7, ''))
		ON CONFLICT (id) DO UPDATE SET
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			business_name = EXCLUDED.business_name,
			contact_person = EXCLUDED.contact_person,
			phone = EXCLUDED.phone,
			email = EXCLUDED.email
	`

	_, err := r.db.ExecContext(ctx, query,
		recipient.ID, recipient.FirstName, recipient.LastName,
		recipient.BusinessName, recipient.ContactPerson, recipient.Phone, recipient.Email)
	if err != nil {
		return fmt.Errorf("failed to save recipient: %w", err)
	}

	return nil
}

const campaignSelect = `
	SELECT
		id
	  , tenant_id
	  , name
	  , is_sequence
	  , daily_limit
	  , status
	  , steps
	  , created_at
	  , updated_at
	FROM sms_campaigns
`

func scanCampaign(row rowScanner) (*models.SmsCampaign, error) {
	var (
		campaign models.SmsCampaign
		status   string
		steps    []byte
	)

	err := row.Scan(&campaign.ID, &campaign.TenantID, &campaign.Name,
		&campaign.IsSequence, &campaign.DailyLimit, &status, &steps,
		&campaign.CreatedAt, &campaign.UpdatedAt)
	if err != nil {
		return nil, err
	}

	campaign.Status = models.CampaignStatus(status)

	if len(steps) > 0 {
		err = json.Unmarshal(steps, &campaign.Steps)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal steps: %w", err)
		}
	}

	return &campaign, nil
}

const enrollmentSelect = `
	SELECT
		id
	  , campaign_id
	  , recipient_id
	  , current_step
	  , status
	  , next_send_at
	  , last_sent_at
	  , last_replied_at
	  , created_at
	  , updated_at
	FROM sms_enrollments
`

func scanEnrollment(row rowScanner) (*models.SmsEnrollment, error) {
	var (
		enrollment models.SmsEnrollment
		status     string
	)

	err := row.Scan(&enrollment.ID, &enrollment.CampaignID, &enrollment.RecipientID,
		&enrollment.CurrentStep, &status, &enrollment.NextSendAt,
		&enrollment.LastSentAt, &enrollment.LastRepliedAt,
		&enrollment.CreatedAt, &enrollment.UpdatedAt)
	if err != nil {
		return nil, err
	}

	enrollment.Status = models.EnrollmentStatus(status)

	return &enrollment, nil
}
