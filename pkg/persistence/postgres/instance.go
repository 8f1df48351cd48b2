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

// InstanceRepository handles workflow instance database operations.
type InstanceRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewInstanceRepository creates a new instance repository.
func NewInstanceRepository(db *sql.DB, logger *slog.Logger) *InstanceRepository {
	return &InstanceRepository{db: db, logger: logger}
}

// Save inserts or updates an instance.
func (r *InstanceRepository) Save(ctx context.Context, instance *models.WorkflowInstance) error {
	now := time.Now().UTC()

	if instance.CreatedAt.IsZero() {
		instance.CreatedAt = now
	}

	instance.UpdatedAt = now

	if instance.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate instance ID: %w", err)
		}

		instance.ID = id.String()
	}

	metadataJSON, err := json.Marshal(instance.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	query := `
		INSERT INTO workflow_instances (id, template_id, tenant_id, lead_id, deal_id, status, metadata, created_at, updated_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			metadata = EXCLUDED.metadata,
			updated_at = EXCLUDED.updated_at
	`

	_, err = r.db.ExecContext(ctx, query,
		instance.ID, instance.TemplateID, instance.TenantID,
		instance.Subject.LeadID, instance.Subject.DealID,
		string(instance.Status), metadataJSON, instance.CreatedAt, instance.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save instance: %w", err)
	}

	return nil
}

// GetByID returns an instance by its ID.
func (r *InstanceRepository) GetByID(ctx context.Context, id string) (*models.WorkflowInstance, error) {
	query := instanceSelect + ` WHERE id = $1`

	instance, err := scanInstance(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrInstanceNotFound
		}

		return nil, fmt.Errorf("failed to scan instance: %w", err)
	}

	return instance, nil
}

// ListByTenant returns a tenant's instances, optionally filtered by status,
// newest first.
func (r *InstanceRepository) ListByTenant(ctx context.Context, tenantID string, status *models.InstanceStatus) ([]*models.WorkflowInstance, error) {
	query := instanceSelect + ` WHERE tenant_id = $1`
	args := []any{tenantID}

	if status != nil {
		query += ` AND status = $2`
		args = append(args, string(*status))
	}

	query += ` ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query instances: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	instances := make([]*models.WorkflowInstance, 0)

	for rows.Next() {
		instance, err := scanInstance(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan instance: %w", err)
		}

		instances = append(instances, instance)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating instances: %w", err)
	}

	return instances, nil
}

// CountByTenant returns the number of a tenant's instances in a given status.
func (r *InstanceRepository) CountByTenant(ctx context.Context, tenantID string, status models.InstanceStatus) (int64, error) {
	var count int64

	query := `SELECT COUNT(*) FROM workflow_instances WHERE tenant_id = $1 AND status = $2`

	err := r.db.QueryRowContext(ctx, query, tenantID, string(status)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count instances: %w", err)
	}

	return count, nil
}

const instanceSelect = `
	SELECT
		id
	  , template_id
	  , tenant_id
	  , COALESCE(lead_id, '')
	  , COALESCE(deal_id, '')
	  , status
	  , metadata
	  , created_at
	  , updated_at
	FROM workflow_instances
`

func scanInstance(row rowScanner) (*models.WorkflowInstance, error) {
	var (
		instance models.WorkflowInstance
		status   string
		metadata []byte
	)

	err := row.Scan(&instance.ID, &instance.TemplateID, &instance.TenantID,
		&instance.Subject.LeadID, &instance.Subject.DealID, &status,
		&metadata, &instance.CreatedAt, &instance.UpdatedAt)
	if err != nil {
		return nil, err
	}

	instance.Status = models.InstanceStatus(status)

	if len(metadata) > 0 {
		err = json.Unmarshal(metadata, &instance.Metadata)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}

	return &instance, nil
}
