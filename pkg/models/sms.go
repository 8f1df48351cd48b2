package models

import "time"

// CampaignStatus represents the lifecycle state of an SMS drip campaign.
type CampaignStatus string

const (
	CampaignStatusActive    CampaignStatus = "ACTIVE"
	CampaignStatusPaused    CampaignStatus = "PAUSED"
	CampaignStatusCompleted CampaignStatus = "COMPLETED"
	CampaignStatusCancelled CampaignStatus = "CANCELLED"
)

// SmsCampaign is an ordered, timed message sequence. DailyLimit caps sends
// per calendar day across all enrollments of the campaign.
type SmsCampaign struct {
	ID         string            `json:"id"`
	TenantID   string            `json:"tenant_id" validate:"required"`
	Name       string            `json:"name"      validate:"required"`
	IsSequence bool              `json:"is_sequence"`
	DailyLimit int               `json:"daily_limit" validate:"min=0"`
	Status     CampaignStatus    `json:"status"`
	Steps      []SmsSequenceStep `json:"steps" validate:"dive"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

// Step returns the step at the given ordinal, if it exists.
func (c *SmsCampaign) Step(ordinal int) (SmsSequenceStep, bool) {
	for _, s := range c.Steps {
		if s.Ordinal == ordinal {
			return s, true
		}
	}

	return SmsSequenceStep{}, false
}

// SmsSequenceStep is one message in a campaign sequence. The delay is applied
// when computing the *next* send time after the previous step actually went out.
type SmsSequenceStep struct {
	Ordinal       int    `json:"ordinal"     validate:"min=0"`
	Body          string `json:"body"        validate:"required"`
	DelayDays     int    `json:"delay_days"  validate:"min=0"`
	DelayHours    int    `json:"delay_hours" validate:"min=0"`
	SkipIfReplied bool   `json:"skip_if_replied"`
}

// Delay converts the step's configured delay to a duration.
func (s SmsSequenceStep) Delay() time.Duration {
	return time.Duration(s.DelayDays)*24*time.Hour + time.Duration(s.DelayHours)*time.Hour
}

// EnrollmentStatus represents one recipient's progress state in a sequence.
type EnrollmentStatus string

const (
	EnrollmentStatusActive    EnrollmentStatus = "ACTIVE"
	EnrollmentStatusCompleted EnrollmentStatus = "COMPLETED"
	EnrollmentStatusCancelled EnrollmentStatus = "CANCELLED"
)

// SmsEnrollment tracks one recipient's position in a campaign sequence.
// NextSendAt is the persisted wait, exactly like TaskExecution.ScheduledFor.
type SmsEnrollment struct {
	ID            string           `json:"id"`
	CampaignID    string           `json:"campaign_id"  validate:"required"`
	RecipientID   string           `json:"recipient_id" validate:"required"`
	CurrentStep   int              `json:"current_step"`
	Status        EnrollmentStatus `json:"status"`
	NextSendAt    *time.Time       `json:"next_send_at,omitempty"`
	LastSentAt    *time.Time       `json:"last_sent_at,omitempty"`
	LastRepliedAt *time.Time       `json:"last_replied_at,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

// RepliedSinceLastSend reports whether the recipient's latest reply came in
// after the latest message attempt. A reply suppresses skippable steps only
// until the next message goes out unanswered.
func (e *SmsEnrollment) RepliedSinceLastSend() bool {
	if e.LastRepliedAt == nil {
		return false
	}

	return e.LastSentAt == nil || e.LastRepliedAt.After(*e.LastSentAt)
}

// MessageStatus reflects the gateway result for one sequence message.
type MessageStatus string

const (
	MessageStatusPending MessageStatus = "PENDING"
	MessageStatusSent    MessageStatus = "SENT"
	MessageStatusFailed  MessageStatus = "FAILED"
)

// SmsSequenceMessage records one sent (or attempted) sequence message.
type SmsSequenceMessage struct {
	ID               string        `json:"id"`
	EnrollmentID     string        `json:"enrollment_id"`
	CampaignID       string        `json:"campaign_id"`
	Step             int           `json:"step"`
	Body             string        `json:"body"`
	Status           MessageStatus `json:"status"`
	GatewayMessageID string        `json:"gateway_message_id,omitempty"`
	Error            string        `json:"error,omitempty"`
	SentAt           time.Time     `json:"sent_at"`
}

// Recipient is the personalization field source for outbound messages.
type Recipient struct {
	ID            string `json:"id"`
	FirstName     string `json:"first_name,omitempty"`
	LastName      string `json:"last_name,omitempty"`
	BusinessName  string `json:"business_name,omitempty"`
	ContactPerson string `json:"contact_person,omitempty"`
	Phone         string `json:"phone,omitempty"`
	Email         string `json:"email,omitempty"`
}

// Fields returns the fixed placeholder key set for message personalization.
func (r Recipient) Fields() map[string]string {
	name := r.ContactPerson
	if name == "" {
		name = r.BusinessName
	}

	return map[string]string{
		"name":          name,
		"firstName":     r.FirstName,
		"lastName":      r.LastName,
		"businessName":  r.BusinessName,
		"contactPerson": r.ContactPerson,
		"phone":         r.Phone,
		"email":         r.Email,
	}
}
