// Package registry resolves task executors by industry and task type.
package registry

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/relaycrm/relay/pkg/models"
	"github.com/relaycrm/relay/pkg/protocol"
	"github.com/xeipuuv/gojsonschema"
)

// ErrExecutorNotRegistered is returned when no factory serves a task type,
// neither for the template's industry nor as a GENERAL fallback.
var ErrExecutorNotRegistered = errors.New("executor not registered")

// ErrInvalidConfig is returned when a task's action config fails the
// factory's schema.
var ErrInvalidConfig = errors.New("invalid action config")

type registryKey struct {
	industry models.Industry
	taskType models.TaskType
}

// Registry holds executor factories keyed by (industry, task type).
// Industry-specific registrations shadow GENERAL ones for the same type.
type Registry struct {
	logger    *slog.Logger
	factories map[registryKey]protocol.ExecutorFactory
}

func NewRegistry(log *slog.Logger) *Registry {
	return &Registry{
		logger:    log,
		factories: make(map[registryKey]protocol.ExecutorFactory),
	}
}

// Register binds a factory to an industry. Registering the same pair twice
// replaces the earlier factory.
func (r *Registry) Register(industry models.Industry, factory protocol.ExecutorFactory) {
	r.factories[registryKey{industry: industry, taskType: factory.Type()}] = factory
}

// RegisterGeneral binds a factory for every industry that has no specific
// registration of its type.
func (r *Registry) RegisterGeneral(factory protocol.ExecutorFactory) {
	r.Register(models.IndustryGeneral, factory)
}

// Resolves reports whether some factory serves the pair, counting the
// GENERAL fallback.
func (r *Registry) Resolves(industry models.Industry, taskType models.TaskType) bool {
	if _, ok := r.factories[registryKey{industry: industry, taskType: taskType}]; ok {
		return true
	}

	_, ok := r.factories[registryKey{industry: models.IndustryGeneral, taskType: taskType}]

	return ok
}

// CreateExecutor resolves and builds the executor for a task, validating the
// action config against the factory schema first.
func (r *Registry) CreateExecutor(industry models.Industry, taskType models.TaskType, config map[string]any) (protocol.Executor, error) {
	factory, ok := r.factories[registryKey{industry: industry, taskType: taskType}]
	if !ok {
		factory, ok = r.factories[registryKey{industry: models.IndustryGeneral, taskType: taskType}]
	}

	if !ok {
		return nil, fmt.Errorf("%w: industry %s, task type %s", ErrExecutorNotRegistered, industry, taskType)
	}

	err := r.validateConfig(factory, config)
	if err != nil {
		return nil, err
	}

	return factory.Create(config)
}

func (r *Registry) validateConfig(factory protocol.ExecutorFactory, config map[string]any) error {
	schema := factory.Schema()
	if schema == "" {
		return nil
	}

	if config == nil {
		config = map[string]any{}
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(schema),
		gojsonschema.NewGoLoader(config),
	)
	if err != nil {
		return fmt.Errorf("failed to validate action config for %s: %w", factory.Type(), err)
	}

	if !result.Valid() {
		for _, desc := range result.Errors() {
			r.logger.Error("Action config validation failed",
				"task_type", string(factory.Type()), "detail", desc.String())
		}

		return fmt.Errorf("%w: task type %s", ErrInvalidConfig, factory.Type())
	}

	return nil
}
