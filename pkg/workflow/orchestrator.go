// Package workflow implements the execution engine core: instance creation,
// just-in-time task scheduling, claimed task processing, approval gates, and
// fail-fast terminal handling.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/relaycrm/relay/pkg/eventbus"
	"github.com/relaycrm/relay/pkg/events"
	"github.com/relaycrm/relay/pkg/gateways"
	"github.com/relaycrm/relay/pkg/models"
	"github.com/relaycrm/relay/pkg/otelhelper"
	"github.com/relaycrm/relay/pkg/persistence"
	"github.com/relaycrm/relay/pkg/protocol"
	"github.com/relaycrm/relay/pkg/registry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

var (
	// ErrTemplateTenantMismatch is returned when a tenant starts an
	// instance from a template it does not own.
	ErrTemplateTenantMismatch = errors.New("template does not belong to tenant")

	// ErrTemplateNoTasks is returned for templates with an empty task list.
	ErrTemplateNoTasks = errors.New("template has no tasks")

	// ErrInstanceNotActive is returned when an operation requires an
	// ACTIVE instance.
	ErrInstanceNotActive = errors.New("instance is not active")

	// ErrNotAwaitingApproval is returned when an approval resolution
	// targets an execution that is not parked on a gate.
	ErrNotAwaitingApproval = errors.New("execution is not awaiting approval")
)

// StartRequest carries everything needed to start an instance.
type StartRequest struct {
	TemplateID string
	TenantID   string
	Subject    models.Subject
	Metadata   map[string]any
}

// Stats is a tenant-level engine summary.
type Stats struct {
	Templates          int64 `json:"templates"`
	ActiveInstances    int64 `json:"active_instances"`
	CompletedInstances int64 `json:"completed_instances"`
	CancelledInstances int64 `json:"cancelled_instances"`
	FailedInstances    int64 `json:"failed_instances"`
	AwaitingApproval   int64 `json:"awaiting_approval"`
}

// Orchestrator drives the task execution state machine. All scheduling state
// lives in persisted rows; the orchestrator holds no timers, so any number of
// instances can share one orchestrator and a crash loses nothing.
type Orchestrator struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	registry    *registry.Registry
	eventBus    eventbus.EventPublisher
	notifier    gateways.NotificationSink
	tracer      trace.Tracer

	now func() time.Time
}

func NewOrchestrator(
	logger *slog.Logger,
	persist persistence.Persistence,
	reg *registry.Registry,
	bus eventbus.EventPublisher,
	notifier gateways.NotificationSink,
	tracer trace.Tracer,
) *Orchestrator {
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("workflow")
	}

	return &Orchestrator{
		logger:      logger.With("module", "workflow_orchestrator"),
		persistence: persist,
		registry:    reg,
		eventBus:    bus,
		notifier:    notifier,
		tracer:      tracer,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// StartInstance creates an ACTIVE instance with one execution row per
// template task. Only the first task is scheduled; every later task stays
// PENDING until its predecessor actually completes.
func (o *Orchestrator) StartInstance(ctx context.Context, req StartRequest) (*models.WorkflowInstance, error) {
	err := req.Subject.Validate()
	if err != nil {
		return nil, err
	}

	template, err := o.persistence.Templates().GetByID(ctx, req.TemplateID)
	if err != nil {
		return nil, fmt.Errorf("failed to load template: %w", err)
	}

	if template.TenantID != req.TenantID {
		return nil, ErrTemplateTenantMismatch
	}

	tasks := template.OrderedTasks()
	if len(tasks) == 0 {
		return nil, ErrTemplateNoTasks
	}

	// Catch misconfigured templates up front instead of failing mid-flow.
	for _, task := range tasks {
		if !o.registry.Resolves(template.Industry, task.Executor()) {
			return nil, fmt.Errorf("%w: industry %s, task type %s",
				registry.ErrExecutorNotRegistered, template.Industry, task.Executor())
		}
	}

	now := o.now()

	instance := &models.WorkflowInstance{
		ID:         uuid.New().String(),
		TemplateID: template.ID,
		TenantID:   req.TenantID,
		Subject:    req.Subject,
		Status:     models.InstanceStatusActive,
		Metadata:   req.Metadata,
	}

	err = o.persistence.Instances().Save(ctx, instance)
	if err != nil {
		return nil, fmt.Errorf("failed to save instance: %w", err)
	}

	executions := make([]*models.TaskExecution, 0, len(tasks))

	for i, task := range tasks {
		execution := &models.TaskExecution{
			ID:           uuid.New().String(),
			InstanceID:   instance.ID,
			TaskID:       task.ID,
			DisplayOrder: task.DisplayOrder,
			Status:       models.ExecutionStatusPending,
		}

		// The first task's delay counts from instance start.
		if i == 0 {
			scheduledFor := now.Add(task.Delay())
			execution.Status = models.ExecutionStatusScheduled
			execution.ScheduledFor = &scheduledFor
		}

		executions = append(executions, execution)
	}

	err = o.persistence.Executions().SaveAll(ctx, executions)
	if err != nil {
		return nil, fmt.Errorf("failed to save executions: %w", err)
	}

	o.logger.InfoContext(ctx, "Workflow instance started",
		"instance_id", instance.ID, "template_id", template.ID, "task_count", len(executions))

	o.publish(ctx, instance.ID, events.InstanceStarted{
		BaseEvent:  o.baseEvent(events.InstanceStartedEvent, instance.TenantID),
		InstanceID: instance.ID,
		TemplateID: template.ID,
		LeadID:     instance.Subject.LeadID,
		DealID:     instance.Subject.DealID,
		TaskCount:  len(executions),
	})
	o.publishExecutionEvent(ctx, events.ExecutionScheduledEvent, instance, executions[0], "")

	return instance, nil
}

// ProcessTaskExecution runs one due execution end to end. It re-verifies
// state, claims the row, and either opens an approval gate or invokes the
// executor. A lost claim is a silent no-op so concurrent pollers stay cheap.
func (o *Orchestrator) ProcessTaskExecution(ctx context.Context, executionID string) error {
	logger := o.logger.With("execution_id", executionID)

	execution, err := o.persistence.Executions().GetByID(ctx, executionID)
	if err != nil {
		return fmt.Errorf("failed to load execution: %w", err)
	}

	if execution.Status != models.ExecutionStatusScheduled {
		logger.DebugContext(ctx, "Execution no longer scheduled, skipping", "status", string(execution.Status))

		return nil
	}

	now := o.now()

	// Eligibility is the persisted timestamp, not the caller's opinion. The
	// poller only feeds due rows, but the processing endpoint can name any
	// scheduled execution.
	if !execution.Due(now) {
		logger.DebugContext(ctx, "Execution not yet due, skipping", "scheduled_for", execution.ScheduledFor)

		return nil
	}

	instance, err := o.persistence.Instances().GetByID(ctx, execution.InstanceID)
	if err != nil {
		return fmt.Errorf("failed to load instance: %w", err)
	}

	// A cancelled or failed instance must not run late arrivals.
	if instance.Status != models.InstanceStatusActive {
		logger.InfoContext(ctx, "Instance no longer active, cancelling execution",
			"instance_id", instance.ID, "instance_status", string(instance.Status))

		return o.cancelExecution(ctx, execution)
	}

	claimed, err := o.persistence.Executions().Claim(ctx, execution.ID, now)
	if err != nil {
		return fmt.Errorf("failed to claim execution: %w", err)
	}

	if !claimed {
		logger.DebugContext(ctx, "Execution claimed by another worker, skipping")

		return nil
	}

	execution.Status = models.ExecutionStatusRunning
	execution.StartedAt = &now

	o.publishExecutionEvent(ctx, events.ExecutionStartedEvent, instance, execution, "")

	template, err := o.persistence.Templates().GetByID(ctx, instance.TemplateID)
	if err != nil {
		return o.failExecution(ctx, instance, execution, fmt.Errorf("failed to load template: %w", err))
	}

	task, ok := template.TaskByID(execution.TaskID)
	if !ok {
		return o.failExecution(ctx, instance, execution, fmt.Errorf("task %s not found in template %s", execution.TaskID, template.ID))
	}

	// An approval gate parks the execution before the executor ever runs.
	if task.IsHITL {
		return o.openGate(ctx, instance, task, execution)
	}

	return o.runExecutor(ctx, template, instance, task, execution)
}

// ResumeApproved runs the executor for an approved gated execution. This is
// the only path that moves AWAITING_HITL forward.
func (o *Orchestrator) ResumeApproved(ctx context.Context, executionID, approverID string) error {
	execution, err := o.persistence.Executions().GetByID(ctx, executionID)
	if err != nil {
		return fmt.Errorf("failed to load execution: %w", err)
	}

	if execution.Status != models.ExecutionStatusAwaitingHITL {
		return fmt.Errorf("%w: execution %s is %s", ErrNotAwaitingApproval, executionID, execution.Status)
	}

	instance, err := o.persistence.Instances().GetByID(ctx, execution.InstanceID)
	if err != nil {
		return fmt.Errorf("failed to load instance: %w", err)
	}

	if instance.Status != models.InstanceStatusActive {
		return fmt.Errorf("%w: instance %s is %s", ErrInstanceNotActive, instance.ID, instance.Status)
	}

	template, err := o.persistence.Templates().GetByID(ctx, instance.TemplateID)
	if err != nil {
		return fmt.Errorf("failed to load template: %w", err)
	}

	task, ok := template.TaskByID(execution.TaskID)
	if !ok {
		return o.failExecution(ctx, instance, execution, fmt.Errorf("task %s not found in template %s", execution.TaskID, template.ID))
	}

	now := o.now()

	claimed, err := o.persistence.Executions().ClaimGated(ctx, execution.ID, now)
	if err != nil {
		return fmt.Errorf("failed to claim execution: %w", err)
	}

	if !claimed {
		return fmt.Errorf("%w: execution %s was resumed concurrently", ErrNotAwaitingApproval, executionID)
	}

	execution.Status = models.ExecutionStatusRunning
	execution.StartedAt = &now

	o.logger.InfoContext(ctx, "Approved execution resumed",
		"execution_id", execution.ID, "approver_id", approverID)

	return o.runExecutor(ctx, template, instance, task, execution)
}

// CancelRejected cancels the rejected execution and halts its instance after
// a human rejection. Later executions stay PENDING; only an explicit instance
// cancel touches them.
func (o *Orchestrator) CancelRejected(ctx context.Context, executionID string) error {
	execution, err := o.persistence.Executions().GetByID(ctx, executionID)
	if err != nil {
		return fmt.Errorf("failed to load execution: %w", err)
	}

	if execution.Status != models.ExecutionStatusAwaitingHITL {
		return fmt.Errorf("%w: execution %s is %s", ErrNotAwaitingApproval, executionID, execution.Status)
	}

	instance, err := o.persistence.Instances().GetByID(ctx, execution.InstanceID)
	if err != nil {
		return fmt.Errorf("failed to load instance: %w", err)
	}

	err = o.cancelExecution(ctx, execution)
	if err != nil {
		return err
	}

	return o.haltInstance(ctx, instance, models.InstanceStatusCancelled, "")
}

// CancelInstance cancels an ACTIVE instance and all of its non-terminal
// executions. Cancellation is the only top-down cascade; the instance flips
// first so a concurrent poller re-verifying state sees the cancellation
// before any execution row changes.
func (o *Orchestrator) CancelInstance(ctx context.Context, instanceID string) error {
	instance, err := o.persistence.Instances().GetByID(ctx, instanceID)
	if err != nil {
		return fmt.Errorf("failed to load instance: %w", err)
	}

	if instance.Status != models.InstanceStatusActive {
		return fmt.Errorf("%w: instance %s is %s", ErrInstanceNotActive, instanceID, instance.Status)
	}

	err = o.haltInstance(ctx, instance, models.InstanceStatusCancelled, "")
	if err != nil {
		return err
	}

	executions, err := o.persistence.Executions().ListByInstance(ctx, instanceID)
	if err != nil {
		return fmt.Errorf("failed to list executions: %w", err)
	}

	for _, execution := range executions {
		if !models.CanTransition(execution.Status, models.ExecutionStatusCancelled) {
			continue
		}

		err = o.cancelExecution(ctx, execution)
		if err != nil {
			return err
		}
	}

	return nil
}

// Stats summarizes a tenant's engine state.
func (o *Orchestrator) Stats(ctx context.Context, tenantID string) (*Stats, error) {
	stats := &Stats{}

	var err error

	stats.Templates, err = o.persistence.Templates().CountByTenant(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to count templates: %w", err)
	}

	counts := map[models.InstanceStatus]*int64{
		models.InstanceStatusActive:    &stats.ActiveInstances,
		models.InstanceStatusCompleted: &stats.CompletedInstances,
		models.InstanceStatusCancelled: &stats.CancelledInstances,
		models.InstanceStatusFailed:    &stats.FailedInstances,
	}

	for status, target := range counts {
		*target, err = o.persistence.Instances().CountByTenant(ctx, tenantID, status)
		if err != nil {
			return nil, fmt.Errorf("failed to count instances: %w", err)
		}
	}

	stats.AwaitingApproval, err = o.persistence.Executions().CountAwaitingHITLByTenant(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to count executions awaiting approval: %w", err)
	}

	return stats, nil
}

func (o *Orchestrator) openGate(ctx context.Context, instance *models.WorkflowInstance, task models.TaskDefinition, execution *models.TaskExecution) error {
	execution.Status = models.ExecutionStatusAwaitingHITL

	err := o.persistence.Executions().Save(ctx, execution)
	if err != nil {
		return fmt.Errorf("failed to save execution: %w", err)
	}

	// Idempotent: a crash between save and notify leaves an open gate that
	// the next attempt reuses.
	notification, err := o.persistence.Notifications().OpenByExecution(ctx, execution.ID)
	if err != nil {
		if !persistence.IsNotificationNotFound(err) {
			return fmt.Errorf("failed to look up open gate: %w", err)
		}

		notification = &models.HITLNotification{
			ID:          uuid.New().String(),
			ExecutionID: execution.ID,
			TenantID:    instance.TenantID,
			Message:     gateMessage(task),
			Urgency:     gateUrgency(task),
			CreatedAt:   o.now(),
		}

		err = o.persistence.Notifications().Save(ctx, notification)
		if err != nil {
			return fmt.Errorf("failed to save gate notification: %w", err)
		}
	}

	if o.notifier != nil {
		err = o.notifier.Notify(ctx, instance.TenantID, "approval", map[string]any{
			"notification_id": notification.ID,
			"execution_id":    execution.ID,
			"message":         notification.Message,
			"urgency":         string(notification.Urgency),
		})
		if err != nil {
			o.logger.ErrorContext(ctx, "Failed to deliver gate notification", "error", err)
		}
	}

	o.logger.InfoContext(ctx, "Approval gate opened",
		"execution_id", execution.ID, "notification_id", notification.ID, "task", task.Name)

	o.publish(ctx, instance.ID, events.HITLGateCreated{
		BaseEvent:      o.baseEvent(events.HITLGateCreatedEvent, instance.TenantID),
		ExecutionID:    execution.ID,
		NotificationID: notification.ID,
		Urgency:        string(notification.Urgency),
	})

	return nil
}

func (o *Orchestrator) runExecutor(ctx context.Context, template *models.WorkflowTemplate, instance *models.WorkflowInstance, task models.TaskDefinition, execution *models.TaskExecution) error {
	ctx, span := otelhelper.StartSpan(ctx, o.tracer, "task.execute",
		attribute.String(otelhelper.TenantIDKey, instance.TenantID),
		attribute.String(otelhelper.InstanceIDKey, instance.ID),
		attribute.String(otelhelper.ExecutionIDKey, execution.ID),
		attribute.String(otelhelper.TaskIDKey, task.ID),
		attribute.String(otelhelper.TaskTypeKey, string(task.Executor())),
	)
	defer span.End()

	executor, err := o.registry.CreateExecutor(template.Industry, task.Executor(), task.ActionConfig)
	if err != nil {
		otelhelper.SetError(span, err)

		return o.failExecution(ctx, instance, execution, err)
	}

	logger := o.logger.With("execution_id", execution.ID, "task", task.Name)

	result, err := executor.Execute(ctx, protocol.ExecutionRequest{
		Instance:  instance,
		Task:      task,
		Execution: execution,
	}, logger)
	if err != nil {
		otelhelper.SetError(span, err)

		return o.failExecution(ctx, instance, execution, err)
	}

	return o.completeExecution(ctx, template, instance, task, execution, result)
}

// completeExecution records success, folds the result into instance metadata,
// and schedules the next task relative to this task's actual completion time.
func (o *Orchestrator) completeExecution(ctx context.Context, template *models.WorkflowTemplate, instance *models.WorkflowInstance, task models.TaskDefinition, execution *models.TaskExecution, result map[string]any) error {
	completedAt := o.now()

	execution.Status = models.ExecutionStatusCompleted
	execution.CompletedAt = &completedAt
	execution.ResultData = result

	err := o.persistence.Executions().Save(ctx, execution)
	if err != nil {
		return fmt.Errorf("failed to save execution: %w", err)
	}

	o.publishExecutionEvent(ctx, events.ExecutionCompletedEvent, instance, execution, "")

	instance.MergeMetadata(result)

	next, hasNext := template.NextTask(task.DisplayOrder)
	if !hasNext {
		instance.Status = models.InstanceStatusCompleted

		err = o.persistence.Instances().Save(ctx, instance)
		if err != nil {
			return fmt.Errorf("failed to save instance: %w", err)
		}

		o.logger.InfoContext(ctx, "Workflow instance completed", "instance_id", instance.ID)
		o.publish(ctx, instance.ID, events.InstanceFinished{
			BaseEvent:  o.baseEvent(events.InstanceCompletedEvent, instance.TenantID),
			InstanceID: instance.ID,
			Outcome:    "completed",
		})

		return nil
	}

	err = o.persistence.Instances().Save(ctx, instance)
	if err != nil {
		return fmt.Errorf("failed to save instance: %w", err)
	}

	nextExecution, err := o.executionForTask(ctx, instance.ID, next.ID)
	if err != nil {
		return err
	}

	// Just-in-time scheduling: the next task's delay counts from this
	// task's actual completion, not from its originally planned time.
	scheduledFor := completedAt.Add(next.Delay())
	nextExecution.Status = models.ExecutionStatusScheduled
	nextExecution.ScheduledFor = &scheduledFor

	err = o.persistence.Executions().Save(ctx, nextExecution)
	if err != nil {
		return fmt.Errorf("failed to save next execution: %w", err)
	}

	o.logger.InfoContext(ctx, "Next task scheduled",
		"instance_id", instance.ID, "task_id", next.ID, "scheduled_for", scheduledFor)
	o.publishExecutionEvent(ctx, events.ExecutionScheduledEvent, instance, nextExecution, "")

	return nil
}

// failExecution applies fail-fast semantics: the execution fails and the
// whole instance halts. Later executions stay PENDING and are never
// scheduled, since advancement only happens on completion. There is no skip
// or retry.
func (o *Orchestrator) failExecution(ctx context.Context, instance *models.WorkflowInstance, execution *models.TaskExecution, cause error) error {
	completedAt := o.now()

	execution.Status = models.ExecutionStatusFailed
	execution.CompletedAt = &completedAt
	execution.ErrorMessage = cause.Error()

	err := o.persistence.Executions().Save(ctx, execution)
	if err != nil {
		return fmt.Errorf("failed to save failed execution: %w", err)
	}

	o.logger.ErrorContext(ctx, "Task execution failed",
		"execution_id", execution.ID, "instance_id", instance.ID, "error", cause)
	o.publishExecutionEvent(ctx, events.ExecutionFailedEvent, instance, execution, cause.Error())

	return o.haltInstance(ctx, instance, models.InstanceStatusFailed, cause.Error())
}

// haltInstance flips the instance to a terminal status and publishes the
// outcome. Execution rows are left as they are.
func (o *Orchestrator) haltInstance(ctx context.Context, instance *models.WorkflowInstance, status models.InstanceStatus, cause string) error {
	instance.Status = status

	err := o.persistence.Instances().Save(ctx, instance)
	if err != nil {
		return fmt.Errorf("failed to save instance: %w", err)
	}

	outcome := "cancelled"
	eventType := events.InstanceCancelledEvent

	if status == models.InstanceStatusFailed {
		outcome = "failed"
		eventType = events.InstanceFailedEvent
	}

	o.logger.InfoContext(ctx, "Workflow instance halted",
		"instance_id", instance.ID, "status", string(status))
	o.publish(ctx, instance.ID, events.InstanceFinished{
		BaseEvent:  o.baseEvent(eventType, instance.TenantID),
		InstanceID: instance.ID,
		Outcome:    outcome,
		Error:      cause,
	})

	return nil
}

func (o *Orchestrator) cancelExecution(ctx context.Context, execution *models.TaskExecution) error {
	execution.Status = models.ExecutionStatusCancelled

	err := o.persistence.Executions().Save(ctx, execution)
	if err != nil {
		return fmt.Errorf("failed to cancel execution: %w", err)
	}

	return nil
}

func (o *Orchestrator) executionForTask(ctx context.Context, instanceID, taskID string) (*models.TaskExecution, error) {
	executions, err := o.persistence.Executions().ListByInstance(ctx, instanceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list executions: %w", err)
	}

	for _, execution := range executions {
		if execution.TaskID == taskID {
			return execution, nil
		}
	}

	return nil, fmt.Errorf("no execution for task %s in instance %s: %w", taskID, instanceID, persistence.ErrExecutionNotFound)
}

func (o *Orchestrator) baseEvent(eventType events.EventType, tenantID string) events.BaseEvent {
	return events.BaseEvent{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: o.now(),
		TenantID:  tenantID,
	}
}

func (o *Orchestrator) publishExecutionEvent(ctx context.Context, eventType events.EventType, instance *models.WorkflowInstance, execution *models.TaskExecution, errorMessage string) {
	o.publish(ctx, instance.ID, events.ExecutionTransitioned{
		BaseEvent:   o.baseEvent(eventType, instance.TenantID),
		InstanceID:  instance.ID,
		ExecutionID: execution.ID,
		TaskID:      execution.TaskID,
		Status:      string(execution.Status),
		Error:       errorMessage,
	})
}

// publish sends an event and logs on failure. Events are observational; a
// publish failure never fails the state transition it describes.
func (o *Orchestrator) publish(ctx context.Context, key string, event eventbus.Event) {
	if o.eventBus == nil {
		return
	}

	err := o.eventBus.Publish(ctx, key, event)
	if err != nil {
		o.logger.ErrorContext(ctx, "Failed to publish event",
			"event_type", string(event.GetType()), "error", err)
	}
}

func gateMessage(task models.TaskDefinition) string {
	if message, ok := task.ActionConfig["hitl_message"].(string); ok && message != "" {
		return message
	}

	return fmt.Sprintf("Task %q is waiting for approval", task.Name)
}

func gateUrgency(task models.TaskDefinition) models.HITLUrgency {
	switch urgency, _ := task.ActionConfig["hitl_urgency"].(string); urgency {
	case "LOW":
		return models.HITLUrgencyLow
	case "HIGH":
		return models.HITLUrgencyHigh
	default:
		return models.HITLUrgencyMedium
	}
}
