// Package protocol defines the contracts between the engine core and task
// executors.
package protocol

import (
	"context"
	"log/slog"

	"github.com/relaycrm/relay/pkg/models"
)

// ExecutionRequest carries everything an executor may read: the task
// definition, the claimed execution row, and the instance whose metadata
// holds prior task results.
type ExecutionRequest struct {
	Instance  *models.WorkflowInstance
	Task      models.TaskDefinition
	Execution *models.TaskExecution
}

// Executor performs one task's side effect. The returned map is merged into
// the instance metadata, where later tasks in the same instance can read it.
// Executors must not persist anything themselves.
type Executor interface {
	Execute(ctx context.Context, req ExecutionRequest, logger *slog.Logger) (map[string]any, error)
}

// ExecutorFactory builds executors from a task's action config.
type ExecutorFactory interface {
	Create(config map[string]any) (Executor, error)

	// Type is the task type this factory serves.
	Type() models.TaskType

	// Schema returns the JSON schema the action config must satisfy. An
	// empty string skips validation.
	Schema() string
}
