// Package hitl resolves human approval gates. A gated execution moves only
// through Approve or Reject; nothing else in the engine advances it.
package hitl

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/relaycrm/relay/pkg/eventbus"
	"github.com/relaycrm/relay/pkg/events"
	"github.com/relaycrm/relay/pkg/models"
	"github.com/relaycrm/relay/pkg/persistence"
)

// ErrAlreadyResolved is returned when a notification gets a second decision.
var ErrAlreadyResolved = errors.New("notification already resolved")

// Engine is the orchestrator surface the manager needs to act on a decision.
type Engine interface {
	// ResumeApproved runs the gated executor synchronously.
	ResumeApproved(ctx context.Context, executionID, approverID string) error

	// CancelRejected terminates the execution and its instance.
	CancelRejected(ctx context.Context, executionID string) error
}

type Manager struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	engine      Engine
	eventBus    eventbus.EventPublisher

	now func() time.Time
}

func NewManager(logger *slog.Logger, persist persistence.Persistence, engine Engine, bus eventbus.EventPublisher) *Manager {
	return &Manager{
		logger:      logger.With("module", "hitl_manager"),
		persistence: persist,
		engine:      engine,
		eventBus:    bus,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Approve resolves a gate and runs the gated executor synchronously, so the
// caller observes the task's real outcome. The notification is marked
// resolved before the executor runs; a second Approve cannot double-execute.
func (m *Manager) Approve(ctx context.Context, notificationID, approverID, note string) error {
	notification, err := m.resolve(ctx, notificationID, approverID, note, models.HITLApproved)
	if err != nil {
		return err
	}

	m.logger.InfoContext(ctx, "Gate approved",
		"notification_id", notification.ID, "execution_id", notification.ExecutionID, "approver_id", approverID)

	return m.engine.ResumeApproved(ctx, notification.ExecutionID, approverID)
}

// Reject resolves a gate and cancels the execution and its instance.
func (m *Manager) Reject(ctx context.Context, notificationID, approverID, note string) error {
	notification, err := m.resolve(ctx, notificationID, approverID, note, models.HITLRejected)
	if err != nil {
		return err
	}

	m.logger.InfoContext(ctx, "Gate rejected",
		"notification_id", notification.ID, "execution_id", notification.ExecutionID, "approver_id", approverID)

	return m.engine.CancelRejected(ctx, notification.ExecutionID)
}

// ListOpen returns a tenant's pending approvals, oldest first.
func (m *Manager) ListOpen(ctx context.Context, tenantID string) ([]*models.HITLNotification, error) {
	return m.persistence.Notifications().ListOpenByTenant(ctx, tenantID)
}

func (m *Manager) resolve(ctx context.Context, notificationID, approverID, note string, resolution models.HITLResolution) (*models.HITLNotification, error) {
	notification, err := m.persistence.Notifications().GetByID(ctx, notificationID)
	if err != nil {
		return nil, fmt.Errorf("failed to load notification: %w", err)
	}

	// The conditional update is the decision point: of any number of
	// concurrent resolvers, exactly one claims the notification.
	resolvedAt := m.now()

	claimed, err := m.persistence.Notifications().ClaimResolution(ctx, notificationID, resolution, approverID, note, resolvedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve notification: %w", err)
	}

	if !claimed {
		return nil, fmt.Errorf("%w: notification %s", ErrAlreadyResolved, notificationID)
	}

	notification.ResolvedAt = &resolvedAt
	notification.Resolution = resolution
	notification.ApproverID = approverID
	notification.Note = note

	if m.eventBus != nil {
		publishErr := m.eventBus.Publish(ctx, notification.ExecutionID, events.HITLGateResolved{
			BaseEvent: events.BaseEvent{
				ID:        uuid.New().String(),
				Type:      events.HITLGateResolvedEvent,
				Timestamp: resolvedAt,
				TenantID:  notification.TenantID,
			},
			ExecutionID:    notification.ExecutionID,
			NotificationID: notification.ID,
			Resolution:     string(resolution),
			ApproverID:     approverID,
		})
		if publishErr != nil {
			m.logger.ErrorContext(ctx, "Failed to publish gate resolution", "error", publishErr)
		}
	}

	return notification, nil
}
