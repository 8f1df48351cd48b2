// Package persistence provides the data storage abstraction for the engine.
// Correctness of concurrent polling depends on ExecutionRepository.Claim and
// nothing else: there is no external locking.
package persistence

import (
	"context"
	"time"

	"github.com/relaycrm/relay/pkg/models"
)

type Persistence interface {
	Templates() TemplateRepository
	Instances() InstanceRepository
	Executions() ExecutionRepository
	Notifications() HITLRepository
	Campaigns() CampaignRepository

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

type TemplateRepository interface {
	Save(ctx context.Context, template *models.WorkflowTemplate) error
	GetByID(ctx context.Context, id string) (*models.WorkflowTemplate, error)
	ListByTenant(ctx context.Context, tenantID string) ([]*models.WorkflowTemplate, error)
	CountByTenant(ctx context.Context, tenantID string) (int64, error)
	Delete(ctx context.Context, id string) error
}

type InstanceRepository interface {
	Save(ctx context.Context, instance *models.WorkflowInstance) error
	GetByID(ctx context.Context, id string) (*models.WorkflowInstance, error)
	ListByTenant(ctx context.Context, tenantID string, status *models.InstanceStatus) ([]*models.WorkflowInstance, error)
	CountByTenant(ctx context.Context, tenantID string, status models.InstanceStatus) (int64, error)
}

type ExecutionRepository interface {
	Save(ctx context.Context, execution *models.TaskExecution) error
	SaveAll(ctx context.Context, executions []*models.TaskExecution) error
	GetByID(ctx context.Context, id string) (*models.TaskExecution, error)

	// ListByInstance returns an instance's executions ordered by display order.
	ListByInstance(ctx context.Context, instanceID string) ([]*models.TaskExecution, error)

	// Due returns up to limit executions with status SCHEDULED and
	// scheduled_for <= before, tenant-unordered.
	Due(ctx context.Context, before time.Time, limit int) ([]*models.TaskExecution, error)

	// Claim atomically transitions an execution from SCHEDULED to RUNNING,
	// conditional on scheduled_for having passed startedAt. Exactly one
	// concurrent caller wins; losers get claimed=false, not an error.
	Claim(ctx context.Context, id string, startedAt time.Time) (bool, error)

	// ClaimGated atomically transitions an execution from AWAITING_HITL to
	// RUNNING, with the same winner/loser contract as Claim.
	ClaimGated(ctx context.Context, id string, startedAt time.Time) (bool, error)

	CountAwaitingHITLByTenant(ctx context.Context, tenantID string) (int64, error)
}

type HITLRepository interface {
	Save(ctx context.Context, notification *models.HITLNotification) error
	GetByID(ctx context.Context, id string) (*models.HITLNotification, error)

	// OpenByExecution returns the unresolved notification for an execution,
	// or ErrNotificationNotFound when none is open.
	OpenByExecution(ctx context.Context, executionID string) (*models.HITLNotification, error)

	// ClaimResolution atomically records a decision on an unresolved
	// notification. Exactly one concurrent caller wins; losers get
	// claimed=false, not an error.
	ClaimResolution(ctx context.Context, id string, resolution models.HITLResolution, approverID, note string, resolvedAt time.Time) (bool, error)

	ListOpenByTenant(ctx context.Context, tenantID string) ([]*models.HITLNotification, error)
}

type CampaignRepository interface {
	SaveCampaign(ctx context.Context, campaign *models.SmsCampaign) error
	CampaignByID(ctx context.Context, id string) (*models.SmsCampaign, error)
	ActiveSequenceCampaigns(ctx context.Context) ([]*models.SmsCampaign, error)

	SaveEnrollment(ctx context.Context, enrollment *models.SmsEnrollment) error
	EnrollmentByID(ctx context.Context, id string) (*models.SmsEnrollment, error)

	// DueEnrollments returns up to limit ACTIVE enrollments of a campaign
	// with next_send_at <= before.
	DueEnrollments(ctx context.Context, campaignID string, before time.Time, limit int) ([]*models.SmsEnrollment, error)

	SaveMessage(ctx context.Context, message *models.SmsSequenceMessage) error
	MessagesByEnrollment(ctx context.Context, enrollmentID string) ([]*models.SmsSequenceMessage, error)

	RecipientByID(ctx context.Context, id string) (*models.Recipient, error)
	SaveRecipient(ctx context.Context, recipient *models.Recipient) error
}
