// Package web provides HTTP request and response types for the engine API.
package web

import "github.com/relaycrm/relay/pkg/models"

// CreateTemplateRequest represents the request body for creating a workflow
// template. Tasks are created together with the template; templates are not
// edited in place afterwards.
type CreateTemplateRequest struct {
	TenantID string                  `json:"tenant_id" validate:"required"`
	Name     string                  `json:"name"      validate:"required,min=3"`
	Industry models.Industry         `json:"industry"  validate:"required"`
	Tasks    []models.TaskDefinition `json:"tasks"     validate:"required,min=1,dive"`
}

// StartInstanceRequest represents the request body for starting a workflow
// instance. Exactly one of lead_id and deal_id must be set.
type StartInstanceRequest struct {
	TemplateID string         `json:"template_id" validate:"required"`
	TenantID   string         `json:"tenant_id"   validate:"required"`
	LeadID     string         `json:"lead_id,omitempty"`
	DealID     string         `json:"deal_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// ResolveApprovalRequest represents the request body for approving or
// rejecting a pending approval.
type ResolveApprovalRequest struct {
	ApproverID string `json:"approver_id" validate:"required"`
	Note       string `json:"note,omitempty"`
}

// CreateCampaignRequest represents the request body for creating an SMS
// campaign.
type CreateCampaignRequest struct {
	TenantID   string                   `json:"tenant_id"   validate:"required"`
	Name       string                   `json:"name"        validate:"required"`
	IsSequence bool                     `json:"is_sequence"`
	DailyLimit int                      `json:"daily_limit" validate:"min=0"`
	Steps      []models.SmsSequenceStep `json:"steps"       validate:"dive"`
}

// CreateRecipientRequest represents the request body for registering a
// recipient.
type CreateRecipientRequest struct {
	FirstName     string `json:"first_name,omitempty"`
	LastName      string `json:"last_name,omitempty"`
	BusinessName  string `json:"business_name,omitempty"`
	ContactPerson string `json:"contact_person,omitempty"`
	Phone         string `json:"phone" validate:"required"`
	Email         string `json:"email,omitempty" validate:"omitempty,email"`
}

// EnrollRequest represents the request body for enrolling a recipient into a
// sequence campaign.
type EnrollRequest struct {
	RecipientID string `json:"recipient_id" validate:"required"`
}
