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

// TemplateRepository handles workflow template database operations.
type TemplateRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewTemplateRepository creates a new template repository.
func NewTemplateRepository(db *sql.DB, logger *slog.Logger) *TemplateRepository {
	return &TemplateRepository{db: db, logger: logger}
}

// Save inserts or updates a template.
func (r *TemplateRepository) Save(ctx context.Context, template *models.WorkflowTemplate) error {
	now := time.Now().UTC()

	if template.CreatedAt.IsZero() {
		template.CreatedAt = now
	}

	template.UpdatedAt = now

	if template.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate template ID: %w", err)
		}

		template.ID = id.String()
	}

	tasksJSON, err := json.Marshal(template.Tasks)
	if err != nil {
		return fmt.Errorf("failed to marshal tasks: %w", err)
	}

	query := `
		INSERT INTO workflow_templates (id, tenant_id, name, industry, tasks, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			industry = EXCLUDED.industry,
			tasks = EXCLUDED.tasks,
			updated_at = EXCLUDED.updated_at
	`

	_, err = r.db.ExecContext(ctx, query,
		template.ID, template.TenantID, template.Name, string(template.Industry),
		tasksJSON, template.CreatedAt, template.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save template: %w", err)
	}

	return nil
}

// GetByID returns a template by its ID, including soft-deleted templates so
// running instances keep loading their definition.
func (r *TemplateRepository) GetByID(ctx context.Context, id string) (*models.WorkflowTemplate, error) {
	query := templateSelect + ` WHERE id = $1`

	template, err := scanTemplate(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrTemplateNotFound
		}

		return nil, fmt.Errorf("failed to scan template: %w", err)
	}

	return template, nil
}

// ListByTenant returns a tenant's live templates, newest first.
func (r *TemplateRepository) ListByTenant(ctx context.Context, tenantID string) ([]*models.WorkflowTemplate, error) {
	query := templateSelect + ` WHERE tenant_id = $1 AND deleted_at IS NULL ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to query templates: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	templates := make([]*models.WorkflowTemplate, 0)

	for rows.Next() {
		template, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan template: %w", err)
		}

		templates = append(templates, template)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating templates: %w", err)
	}

	return templates, nil
}

// CountByTenant returns the number of live templates owned by a tenant.
func (r *TemplateRepository) CountByTenant(ctx context.Context, tenantID string) (int64, error) {
	var count int64

	query := `SELECT COUNT(*) FROM workflow_templates WHERE tenant_id = $1 AND deleted_at IS NULL`

	err := r.db.QueryRowContext(ctx, query, tenantID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count templates: %w", err)
	}

	return count, nil
}

// Delete soft deletes a template by setting deleted_at. Running instances keep
// referencing the template row.
func (r *TemplateRepository) Delete(ctx context.Context, id string) error {
	query := `UPDATE workflow_templates SET deleted_at = NOW(), updated_at = NOW() WHERE id = $1 AND deleted_at IS NULL`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete template: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}

	if affected == 0 {
		return persistence.ErrTemplateNotFound
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

const templateSelect = `
	SELECT
		id
	  , tenant_id
	  , name
	  , industry
	  , tasks
	  , created_at
	  , updated_at
	  , deleted_at
	FROM workflow_templates
`

func scanTemplate(row rowScanner) (*models.WorkflowTemplate, error) {
	var (
		template models.WorkflowTemplate
		industry string
		tasks    []byte
	)

	err := row.Scan(&template.ID, &template.TenantID, &template.Name, &industry,
		&tasks, &template.CreatedAt, &template.UpdatedAt, &template.DeletedAt)
	if err != nil {
		return nil, err
	}

	template.Industry = models.Industry(industry)

	if len(tasks) > 0 {
		err = json.Unmarshal(tasks, &template.Tasks)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal tasks: %w", err)
		}
	}

	return &template, nil
}
