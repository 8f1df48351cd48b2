package models

import "time"

// ExecutionStatus represents the lifecycle state of a single task execution.
type ExecutionStatus string

const (
	ExecutionStatusPending      ExecutionStatus = "PENDING"
	ExecutionStatusScheduled    ExecutionStatus = "SCHEDULED"
	ExecutionStatusRunning      ExecutionStatus = "RUNNING"
	ExecutionStatusAwaitingHITL ExecutionStatus = "AWAITING_HITL"
	ExecutionStatusCompleted    ExecutionStatus = "COMPLETED"
	ExecutionStatusFailed       ExecutionStatus = "FAILED"
	ExecutionStatusCancelled    ExecutionStatus = "CANCELLED"
)

// Terminal reports whether the execution can no longer change state.
func (s ExecutionStatus) Terminal() bool {
	return s == ExecutionStatusCompleted || s == ExecutionStatusFailed || s == ExecutionStatusCancelled
}

// transitions is the full state machine table. Cancellation is reachable from
// every non-terminal state; everything else follows the strict
// pending → scheduled → running → (awaiting_hitl →) completed/failed path.
var transitions = map[ExecutionStatus][]ExecutionStatus{
	ExecutionStatusPending:      {ExecutionStatusScheduled, ExecutionStatusCancelled},
	ExecutionStatusScheduled:    {ExecutionStatusRunning, ExecutionStatusCancelled},
	ExecutionStatusRunning:      {ExecutionStatusAwaitingHITL, ExecutionStatusCompleted, ExecutionStatusFailed, ExecutionStatusCancelled},
	ExecutionStatusAwaitingHITL: {ExecutionStatusRunning, ExecutionStatusCancelled},
}

// CanTransition reports whether the state machine permits moving from one
// execution status to another.
func CanTransition(from, to ExecutionStatus) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}

	return false
}

// TaskExecution is one task's run inside one instance; the unit of
// scheduling, claiming, and state. ScheduledFor is the persisted wait: the
// engine holds no in-process timers, so a restart loses no pending work.
type TaskExecution struct {
	ID           string          `json:"id"`
	InstanceID   string          `json:"instance_id" validate:"required"`
	TaskID       string          `json:"task_id"     validate:"required"`
	DisplayOrder int             `json:"display_order"`
	Status       ExecutionStatus `json:"status"`
	ScheduledFor *time.Time      `json:"scheduled_for,omitempty"`
	StartedAt    *time.Time      `json:"started_at,omitempty"`
	CompletedAt  *time.Time      `json:"completed_at,omitempty"`
	ResultData   map[string]any  `json:"result_data,omitempty"`
	ErrorMessage string          `json:"error_message,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// Due reports whether the execution is eligible to run at the given time.
func (e *TaskExecution) Due(now time.Time) bool {
	return e.Status == ExecutionStatusScheduled && e.ScheduledFor != nil && !e.ScheduledFor.After(now)
}
