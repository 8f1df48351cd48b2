package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/relaycrm/relay/pkg/models"
	"github.com/relaycrm/relay/pkg/persistence"
)

type ExecutionRepository struct {
	mu         sync.RWMutex
	executions map[string]*models.TaskExecution
	instances  *InstanceRepository
}

func newExecutionRepository(instances *InstanceRepository) *ExecutionRepository {
	return &ExecutionRepository{
		executions: make(map[string]*models.TaskExecution),
		instances:  instances,
	}
}

func cloneExecution(execution *models.TaskExecution) *models.TaskExecution {
	clone := *execution

	if execution.ResultData != nil {
		clone.ResultData = make(map[string]any, len(execution.ResultData))
		for k, v := range execution.ResultData {
			clone.ResultData[k] = v
		}
	}

	return &clone
}

func (r *ExecutionRepository) Save(_ context.Context, execution *models.TaskExecution) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	execution.UpdatedAt = time.Now().UTC()
	r.executions[execution.ID] = cloneExecution(execution)

	return nil
}

func (r *ExecutionRepository) SaveAll(ctx context.Context, executions []*models.TaskExecution) error {
	for _, execution := range executions {
		if err := r.Save(ctx, execution); err != nil {
			return err
		}
	}

	return nil
}

func (r *ExecutionRepository) GetByID(_ context.Context, id string) (*models.TaskExecution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	execution, ok := r.executions[id]
	if !ok {
		return nil, persistence.ErrExecutionNotFound
	}

	return cloneExecution(execution), nil
}

func (r *ExecutionRepository) ListByInstance(_ context.Context, instanceID string) ([]*models.TaskExecution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*models.TaskExecution, 0)

	for _, execution := range r.executions {
		if execution.InstanceID == instanceID {
			result = append(result, cloneExecution(execution))
		}
	}

	sort.Slice(result, func(i, j int) bool { return result[i].DisplayOrder < result[j].DisplayOrder })

	return result, nil
}

func (r *ExecutionRepository) Due(_ context.Context, before time.Time, limit int) ([]*models.TaskExecution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*models.TaskExecution, 0)

	for _, execution := range r.executions {
		if execution.Status != models.ExecutionStatusScheduled {
			continue
		}

		if execution.ScheduledFor == nil || execution.ScheduledFor.After(before) {
			continue
		}

		result = append(result, cloneExecution(execution))
	}

	sort.Slice(result, func(i, j int) bool { return result[i].ScheduledFor.Before(*result[j].ScheduledFor) })

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}

	return result, nil
}

// Claim performs the conditional SCHEDULED → RUNNING transition under the
// repository lock, mirroring the postgres conditional UPDATE. An execution
// whose scheduled_for is still in the future cannot be claimed.
func (r *ExecutionRepository) Claim(_ context.Context, id string, startedAt time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	execution, ok := r.executions[id]
	if !ok {
		return false, persistence.ErrExecutionNotFound
	}

	if execution.Status != models.ExecutionStatusScheduled {
		return false, nil
	}

	if execution.ScheduledFor == nil || execution.ScheduledFor.After(startedAt) {
		return false, nil
	}

	execution.Status = models.ExecutionStatusRunning
	execution.StartedAt = &startedAt
	execution.UpdatedAt = time.Now().UTC()

	return true, nil
}

// ClaimGated performs the conditional AWAITING_HITL → RUNNING transition,
// same contract as Claim.
func (r *ExecutionRepository) ClaimGated(_ context.Context, id string, startedAt time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	execution, ok := r.executions[id]
	if !ok {
		return false, persistence.ErrExecutionNotFound
	}

	if execution.Status != models.ExecutionStatusAwaitingHITL {
		return false, nil
	}

	execution.Status = models.ExecutionStatusRunning
	execution.StartedAt = &startedAt
	execution.UpdatedAt = time.Now().UTC()

	return true, nil
}

func (r *ExecutionRepository) CountAwaitingHITLByTenant(ctx context.Context, tenantID string) (int64, error) {
	r.mu.RLock()
	awaiting := make([]string, 0)

	for _, execution := range r.executions {
		if execution.Status == models.ExecutionStatusAwaitingHITL {
			awaiting = append(awaiting, execution.InstanceID)
		}
	}
	r.mu.RUnlock()

	var count int64

	for _, instanceID := range awaiting {
		instance, err := r.instances.GetByID(ctx, instanceID)
		if err != nil {
			continue
		}

		if instance.TenantID == tenantID {
			count++
		}
	}

	return count, nil
}
