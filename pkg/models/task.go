package models

import "time"

// TaskType identifies the kind of side effect a task performs. Executors are
// registered per (industry, task type) pair; a template referencing a pair
// with no registered executor is a configuration error.
type TaskType string

const (
	TaskTypeAppointmentBooking     TaskType = "APPOINTMENT_BOOKING"
	TaskTypeSendReminder           TaskType = "SEND_REMINDER"
	TaskTypeSendEmail              TaskType = "SEND_EMAIL"
	TaskTypeSendSMS                TaskType = "SEND_SMS"
	TaskTypeVoiceCall              TaskType = "VOICE_CALL"
	TaskTypeCMAGeneration          TaskType = "CMA_GENERATION"
	TaskTypePresentationGeneration TaskType = "PRESENTATION_GENERATION"
	TaskTypeMarketResearch         TaskType = "MARKET_RESEARCH"
	TaskTypeDocumentGeneration     TaskType = "DOCUMENT_GENERATION"
	TaskTypeCRMTask                TaskType = "CRM_TASK"
	TaskTypeVoiceProvisioning      TaskType = "VOICE_AGENT_PROVISIONING"
)

// Industry scopes executor selection. The same task type may be wired to
// different executors per industry.
type Industry string

const (
	IndustryRealEstate   Industry = "REAL_ESTATE"
	IndustryDental       Industry = "DENTAL"
	IndustryConstruction Industry = "CONSTRUCTION"
	IndustryRestaurant   Industry = "RESTAURANT"
	IndustryGeneral      Industry = "GENERAL"
)

// DelayUnit is the unit of a task's scheduling delay.
type DelayUnit string

const (
	DelayMinutes DelayUnit = "MINUTES"
	DelayHours   DelayUnit = "HOURS"
	DelayDays    DelayUnit = "DAYS"
)

// TaskDefinition is one ordered entry in a workflow template. The delay is
// relative to the previous task's actual completion time, or to instance
// start for the first task.
type TaskDefinition struct {
	ID           string         `json:"id"            validate:"required"`
	Name         string         `json:"name"          validate:"required"`
	Type         TaskType       `json:"type"          validate:"required"`
	DisplayOrder int            `json:"display_order" validate:"min=0"`
	DelayValue   int            `json:"delay_value"   validate:"min=0"`
	DelayUnit    DelayUnit      `json:"delay_unit"    validate:"required,oneof=MINUTES HOURS DAYS"`
	IsHITL       bool           `json:"is_hitl"`
	ExecutorType TaskType       `json:"executor_type,omitempty"`
	ActionConfig map[string]any `json:"action_config,omitempty"`
}

// Delay converts the configured delay to a duration. Unknown units behave as
// zero delay rather than failing, matching how malformed templates degrade.
func (t *TaskDefinition) Delay() time.Duration {
	switch t.DelayUnit {
	case DelayMinutes:
		return time.Duration(t.DelayValue) * time.Minute
	case DelayHours:
		return time.Duration(t.DelayValue) * time.Hour
	case DelayDays:
		return time.Duration(t.DelayValue) * 24 * time.Hour
	default:
		return 0
	}
}

// Executor returns the executor selection key for this task. ExecutorType
// overrides Type when a template routes a task to a non-default executor.
func (t *TaskDefinition) Executor() TaskType {
	if t.ExecutorType != "" {
		return t.ExecutorType
	}

	return t.Type
}
