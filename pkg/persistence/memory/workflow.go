package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/relaycrm/relay/pkg/models"
	"github.com/relaycrm/relay/pkg/persistence"
)

type TemplateRepository struct {
	mu        sync.RWMutex
	templates map[string]*models.WorkflowTemplate
}

func newTemplateRepository() *TemplateRepository {
	return &TemplateRepository{templates: make(map[string]*models.WorkflowTemplate)}
}

func (r *TemplateRepository) Save(_ context.Context, template *models.WorkflowTemplate) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	clone := *template
	clone.Tasks = append([]models.TaskDefinition(nil), template.Tasks...)
	r.templates[template.ID] = &clone

	return nil
}

func (r *TemplateRepository) GetByID(_ context.Context, id string) (*models.WorkflowTemplate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	template, ok := r.templates[id]
	if !ok {
		return nil, persistence.ErrTemplateNotFound
	}

	clone := *template
	clone.Tasks = append([]models.TaskDefinition(nil), template.Tasks...)

	return &clone, nil
}

func (r *TemplateRepository) ListByTenant(_ context.Context, tenantID string) ([]*models.WorkflowTemplate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*models.WorkflowTemplate, 0)

	for _, template := range r.templates {
		if template.TenantID == tenantID && template.DeletedAt == nil {
			clone := *template
			clone.Tasks = append([]models.TaskDefinition(nil), template.Tasks...)
			result = append(result, &clone)
		}
	}

	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })

	return result, nil
}

func (r *TemplateRepository) CountByTenant(ctx context.Context, tenantID string) (int64, error) {
	templates, err := r.ListByTenant(ctx, tenantID)
	if err != nil {
		return 0, err
	}

	return int64(len(templates)), nil
}

// Delete soft deletes a template. Running instances keep loading it by ID.
func (r *TemplateRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	template, ok := r.templates[id]
	if !ok || template.DeletedAt != nil {
		return persistence.ErrTemplateNotFound
	}

	now := time.Now().UTC()
	template.DeletedAt = &now
	template.UpdatedAt = now

	return nil
}

type InstanceRepository struct {
	mu        sync.RWMutex
	instances map[string]*models.WorkflowInstance
}

func newInstanceRepository() *InstanceRepository {
	return &InstanceRepository{instances: make(map[string]*models.WorkflowInstance)}
}

func cloneInstance(instance *models.WorkflowInstance) *models.WorkflowInstance {
	clone := *instance

	if instance.Metadata != nil {
		clone.Metadata = make(map[string]any, len(instance.Metadata))
		for k, v := range instance.Metadata {
			clone.Metadata[k] = v
		}
	}

	return &clone
}

func (r *InstanceRepository) Save(_ context.Context, instance *models.WorkflowInstance) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	instance.UpdatedAt = time.Now().UTC()
	r.instances[instance.ID] = cloneInstance(instance)

	return nil
}

func (r *InstanceRepository) GetByID(_ context.Context, id string) (*models.WorkflowInstance, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	instance, ok := r.instances[id]
	if !ok {
		return nil, persistence.ErrInstanceNotFound
	}

	return cloneInstance(instance), nil
}

func (r *InstanceRepository) ListByTenant(_ context.Context, tenantID string, status *models.InstanceStatus) ([]*models.WorkflowInstance, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*models.WorkflowInstance, 0)

	for _, instance := range r.instances {
		if instance.TenantID != tenantID {
			continue
		}

		if status != nil && instance.Status != *status {
			continue
		}

		result = append(result, cloneInstance(instance))
	}

	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })

	return result, nil
}

func (r *InstanceRepository) CountByTenant(ctx context.Context, tenantID string, status models.InstanceStatus) (int64, error) {
	instances, err := r.ListByTenant(ctx, tenantID, &status)
	if err != nil {
		return 0, err
	}

	return int64(len(instances)), nil
}
