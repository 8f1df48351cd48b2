package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/relaycrm/relay/pkg/models"
	"github.com/relaycrm/relay/pkg/persistence"
)

// HITLRepository handles approval notification database operations.
type HITLRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewHITLRepository creates a new approval notification repository.
func NewHITLRepository(db *sql.DB, logger *slog.Logger) *HITLRepository {
	return &HITLRepository{db: db, logger: logger}
}

// Save inserts or updates a notification.
func (r *HITLRepository) Save(ctx context.Context, notification *models.HITLNotification) error {
	query := `
		INSERT INTO hitl_notifications (id, execution_id, tenant_id, message, urgency,
			created_at, resolved_at, resolution, approver_id, note)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''), NULLIF($9, ''), $10)
		ON CONFLICT (id) DO UPDATE SET
			resolved_at = EXCLUDED.resolved_at,
			resolution = EXCLUDED.resolution,
			approver_id = EXCLUDED.approver_id,
			note = EXCLUDED.note
	`

	_, err := r.db.ExecContext(ctx, query,
		notification.ID, notification.ExecutionID, notification.TenantID,
		notification.Message, string(notification.Urgency), notification.CreatedAt,
		notification.ResolvedAt, string(notification.Resolution),
		notification.ApproverID, notification.Note)
	if err != nil {
		return fmt.Errorf("failed to save notification: %w", err)
	}

	return nil
}

// GetByID returns a notification by its ID.
func (r *HITLRepository) GetByID(ctx context.Context, id string) (*models.HITLNotification, error) {
	query := notificationSelect + ` WHERE id = $1`

	notification, err := scanNotification(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrNotificationNotFound
		}

		return nil, fmt.Errorf("failed to scan notification: %w", err)
	}

	return notification, nil
}

// ClaimResolution records a decision via a conditional UPDATE on unresolved
// rows; exactly one concurrent caller observes RowsAffected == 1.
func (r *HITLRepository) ClaimResolution(ctx context.Context, id string, resolution models.HITLResolution, approverID, note string, resolvedAt time.Time) (bool, error) {
	query := `
		UPDATE hitl_notifications
		SET resolved_at = $1, resolution = $2, approver_id = NULLIF($3, ''), note = $4
		WHERE id = $5 AND resolved_at IS NULL
	`

	result, err := r.db.ExecContext(ctx, query, resolvedAt, string(resolution), approverID, note, id)
	if err != nil {
		return false, fmt.Errorf("failed to resolve notification: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}

	if affected == 1 {
		return true, nil
	}

	// Distinguish a lost race from a missing row.
	var exists bool

	err = r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM hitl_notifications WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check notification existence: %w", err)
	}

	if !exists {
		return false, persistence.ErrNotificationNotFound
	}

	return false, nil
}

// OpenByExecution returns the unresolved notification for an execution. The
// partial unique index guarantees there is at most one.
func (r *HITLRepository) OpenByExecution(ctx context.Context, executionID string) (*models.HITLNotification, error) {
	query := notificationSelect + ` WHERE execution_id = $1 AND resolved_at IS NULL`

	notification, err := scanNotification(r.db.QueryRowContext(ctx, query, executionID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrNotificationNotFound
		}

		return nil, fmt.Errorf("failed to scan notification: %w", err)
	}

	return notification, nil
}

// ListOpenByTenant returns a tenant's unresolved notifications, oldest first.
func (r *HITLRepository) ListOpenByTenant(ctx context.Context, tenantID string) ([]*models.HITLNotification, error) {
	query := notificationSelect + ` WHERE tenant_id = $1 AND resolved_at IS NULL ORDER BY created_at ASC`

	rows, err := r.db.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to query notifications: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	notifications := make([]*models.HITLNotification, 0)

	for rows.Next() {
		notification, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}

		notifications = append(notifications, notification)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating notifications: %w", err)
	}

	return notifications, nil
}

const notificationSelect = `
	SELECT
		id
	  , execution_id
	  , tenant_id
	  , COALESCE(message, '')
	  , urgency
	  , created_at
	  , resolved_at
	  , COALESCE(resolution, '')
	  , COALESCE(approver_id, '')
	  , COALESCE(note, '')
	FROM hitl_notifications
`

func scanNotification(row rowScanner) (*models.HITLNotification, error) {
	var (
		notification models.HITLNotification
		urgency      string
		resolution   string
	)

	err := row.Scan(&notification.ID, &notification.ExecutionID, &notification.TenantID,
		&notification.Message, &urgency, &notification.CreatedAt,
		&notification.ResolvedAt, &resolution, &notification.ApproverID, &notification.Note)
	if err != nil {
		return nil, err
	}

	notification.Urgency = models.HITLUrgency(urgency)
	notification.Resolution = models.HITLResolution(resolution)

	return &notification, nil
}
