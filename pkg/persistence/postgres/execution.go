package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/relaycrm/relay/pkg/models"
	"github.com/relaycrm/relay/pkg/persistence"
)

// ExecutionRepository handles task execution database operations.
type ExecutionRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewExecutionRepository creates a new execution repository.
func NewExecutionRepository(db *sql.DB, logger *slog.Logger) *ExecutionRepository {
	return &ExecutionRepository{db: db, logger: logger}
}

// Save inserts or updates an execution.
func (r *ExecutionRepository) Save(ctx context.Context, execution *models.TaskExecution) error {
	return r.save(ctx, r.db, execution)
}

// SaveAll persists a batch of executions in one transaction, so an instance
// either gets its full execution set or none of it.
func (r *ExecutionRepository) SaveAll(ctx context.Context, executions []*models.TaskExecution) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	for _, execution := range executions {
		err = r.save(ctx, tx, execution)
		if err != nil {
			_ = tx.Rollback()

			return err
		}
	}

	err = tx.Commit()
	if err != nil {
		return fmt.Errorf("failed to commit executions: %w", err)
	}

	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (r *ExecutionRepository) save(ctx context.Context, db execer, execution *models.TaskExecution) error {
	now := time.Now().UTC()

	if execution.CreatedAt.IsZero() {
		execution.CreatedAt = now
	}

	execution.UpdatedAt = now

	if execution.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate execution ID: %w", err)
		}

		execution.ID = id.String()
	}

	resultJSON, err := json.Marshal(execution.ResultData)
	if err != nil {
		return fmt.Errorf("failed to marshal result data: %w", err)
	}

	query := `
		INSERT INTO task_executions (id, instance_id, task_id, display_order, status,
			scheduled_for, started_at, completed_at, result_data, error_message, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NULLIF($10, ''), $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			scheduled_for = EXCLUDED.scheduled_for,
			started_at = EXCLUDED.started_at,
			completed_at = EXCLUDED.completed_at,
			result_data = EXCLUDED.result_data,
			error_message = EXCLUDED.error_message,
			updated_at = EXCLUDED.updated_at
	`

	_, err = db.ExecContext(ctx, query,
		execution.ID, execution.InstanceID, execution.TaskID, execution.DisplayOrder,
		string(execution.Status), execution.ScheduledFor, execution.StartedAt,
		execution.CompletedAt, resultJSON, execution.ErrorMessage,
		execution.CreatedAt, execution.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save execution: %w", err)
	}

	return nil
}

// GetByID returns an execution by its ID.
func (r *ExecutionRepository) GetByID(ctx context.Context, id string) (*models.TaskExecution, error) {
	query := executionSelect + ` WHERE id = $1`

	execution, err := scanExecution(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrExecutionNotFound
		}

		return nil, fmt.Errorf("failed to scan execution: %w", err)
	}

	return execution, nil
}

// ListByInstance returns an instance's executions ordered by display order.
func (r *ExecutionRepository) ListByInstance(ctx context.Context, instanceID string) ([]*models.TaskExecution, error) {
	query := executionSelect + ` WHERE instance_id = $1 ORDER BY display_order ASC`

	return r.queryExecutions(ctx, query, instanceID)
}

// Due returns up to limit SCHEDULED executions whose scheduled_for has passed,
// oldest first.
func (r *ExecutionRepository) Due(ctx context.Context, before time.Time, limit int) ([]*models.TaskExecution, error) {
	query := executionSelect + `
		WHERE status = $1 AND scheduled_for <= $2
		ORDER BY scheduled_for ASC
		LIMIT $3
	`

	return r.queryExecutions(ctx, query, string(models.ExecutionStatusScheduled), before, limit)
}

// Claim atomically transitions an execution from SCHEDULED to RUNNING. The
// conditional UPDATE is the whole coordination story: exactly one concurrent
// caller observes RowsAffected == 1. An execution whose scheduled_for is
// still in the future cannot be claimed.
func (r *ExecutionRepository) Claim(ctx context.Context, id string, startedAt time.Time) (bool, error) {
	query := `
		UPDATE task_executions
		SET status = $1, started_at = $2, updated_at = NOW()
		WHERE id = $3 AND status = $4 AND scheduled_for <= $2
	`

	return r.claim(ctx, query, id, startedAt, string(models.ExecutionStatusScheduled))
}

// ClaimGated atomically transitions an execution from AWAITING_HITL to
// RUNNING, same contract as Claim.
func (r *ExecutionRepository) ClaimGated(ctx context.Context, id string, startedAt time.Time) (bool, error) {
	query := `
		UPDATE task_executions
		SET status = $1, started_at = $2, updated_at = NOW()
		WHERE id = $3 AND status = $4
	`

	return r.claim(ctx, query, id, startedAt, string(models.ExecutionStatusAwaitingHITL))
}

func (r *ExecutionRepository) claim(ctx context.Context, query, id string, startedAt time.Time, fromStatus string) (bool, error) {
	result, err := r.db.ExecContext(ctx, query,
		string(models.ExecutionStatusRunning), startedAt, id, fromStatus)
	if err != nil {
		return false, fmt.Errorf("failed to claim execution: %w", err)
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

	err = r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM task_executions WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check execution existence: %w", err)
	}

	if !exists {
		return false, persistence.ErrExecutionNotFound
	}

	return false, nil
}

// CountAwaitingHITLByTenant returns the number of a tenant's executions parked
// on a human approval.
func (r *ExecutionRepository) CountAwaitingHITLByTenant(ctx context.Context, tenantID string) (int64, error) {
	var count int64

	query := `
		SELECT COUNT(*)
		FROM task_executions e
		JOIN workflow_instances i ON i.id = e.instance_id
		WHERE i.tenant_id = $1 AND e.status = $2
	`

	err := r.db.QueryRowContext(ctx, query, tenantID, string(models.ExecutionStatusAwaitingHITL)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count executions awaiting approval: %w", err)
	}

	return count, nil
}

func (r *ExecutionRepository) queryExecutions(ctx context.Context, query string, args ...any) ([]*models.TaskExecution, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query executions: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	executions := make([]*models.TaskExecution, 0)

	for rows.Next() {
		execution, err := scanExecution(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan execution: %w", err)
		}

		executions = append(executions, execution)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating executions: %w", err)
	}

	return executions, nil
}

const executionSelect = `
	SELECT
		id
	  , instance_id
	  , task_id
	  , display_order
	  , status
	  , scheduled_for
	  , started_at
	  , completed_at
	  , result_data
	  , COALESCE(error_message, '')
	  , created_at
	  , updated_at
	FROM task_executions
`

func scanExecution(row rowScanner) (*models.TaskExecution, error) {
	var (
		execution models.TaskExecution
		status    string
		result    []byte
	)

	err := row.Scan(&execution.ID, &execution.InstanceID, &execution.TaskID,
		&execution.DisplayOrder, &status, &execution.ScheduledFor,
		&execution.StartedAt, &execution.CompletedAt, &result,
		&execution.ErrorMessage, &execution.CreatedAt, &execution.UpdatedAt)
	if err != nil {
		return nil, err
	}

	execution.Status = models.ExecutionStatus(status)

	if len(result) > 0 {
		err = json.Unmarshal(result, &execution.ResultData)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal result data: %w", err)
		}
	}

	return &execution, nil
}
