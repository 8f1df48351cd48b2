package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTaskDefinitionDelay(t *testing.T) {
	tests := []struct {
		name     string
		value    int
		unit     DelayUnit
		expected time.Duration
	}{
		{"minutes", 30, DelayMinutes, 30 * time.Minute},
		{"hours", 2, DelayHours, 2 * time.Hour},
		{"days", 3, DelayDays, 72 * time.Hour},
		{"zero", 0, DelayHours, 0},
		{"unknown unit", 5, DelayUnit("WEEKS"), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task := TaskDefinition{DelayValue: tt.value, DelayUnit: tt.unit}
			assert.Equal(t, tt.expected, task.Delay())
		})
	}
}

func TestTemplateOrderedTasks(t *testing.T) {
	template := &WorkflowTemplate{
		Tasks: []TaskDefinition{
			{ID: "c", DisplayOrder: 3},
			{ID: "a", DisplayOrder: 1},
			{ID: "b", DisplayOrder: 2},
		},
	}

	ordered := template.OrderedTasks()

	assert.Equal(t, "a", ordered[0].ID)
	assert.Equal(t, "b", ordered[1].ID)
	assert.Equal(t, "c", ordered[2].ID)
	// Original slice untouched
	assert.Equal(t, "c", template.Tasks[0].ID)
}

func TestTemplateNextTask(t *testing.T) {
	template := &WorkflowTemplate{
		Tasks: []TaskDefinition{
			{ID: "a", DisplayOrder: 1},
			{ID: "b", DisplayOrder: 2},
			{ID: "c", DisplayOrder: 3},
		},
	}

	next, ok := template.NextTask(1)
	assert.True(t, ok)
	assert.Equal(t, "b", next.ID)

	_, ok = template.NextTask(3)
	assert.False(t, ok)
}

func TestSubjectValidate(t *testing.T) {
	assert.NoError(t, Subject{LeadID: "lead-1"}.Validate())
	assert.NoError(t, Subject{DealID: "deal-1"}.Validate())
	assert.ErrorIs(t, Subject{}.Validate(), ErrInvalidSubject)
	assert.ErrorIs(t, Subject{LeadID: "lead-1", DealID: "deal-1"}.Validate(), ErrInvalidSubject)
}

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(ExecutionStatusPending, ExecutionStatusScheduled))
	assert.True(t, CanTransition(ExecutionStatusScheduled, ExecutionStatusRunning))
	assert.True(t, CanTransition(ExecutionStatusRunning, ExecutionStatusAwaitingHITL))
	assert.True(t, CanTransition(ExecutionStatusRunning, ExecutionStatusCompleted))
	assert.True(t, CanTransition(ExecutionStatusRunning, ExecutionStatusFailed))
	assert.True(t, CanTransition(ExecutionStatusAwaitingHITL, ExecutionStatusRunning))
	assert.True(t, CanTransition(ExecutionStatusAwaitingHITL, ExecutionStatusCancelled))

	// No skipping states
	assert.False(t, CanTransition(ExecutionStatusPending, ExecutionStatusRunning))
	assert.False(t, CanTransition(ExecutionStatusScheduled, ExecutionStatusCompleted))

	// Terminal states are final
	assert.False(t, CanTransition(ExecutionStatusCompleted, ExecutionStatusRunning))
	assert.False(t, CanTransition(ExecutionStatusFailed, ExecutionStatusScheduled))
	assert.False(t, CanTransition(ExecutionStatusCancelled, ExecutionStatusRunning))
}

func TestExecutionDue(t *testing.T) {
	now := time.Now().UTC()
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	due := &TaskExecution{Status: ExecutionStatusScheduled, ScheduledFor: &past}
	assert.True(t, due.Due(now))

	notYet := &TaskExecution{Status: ExecutionStatusScheduled, ScheduledFor: &future}
	assert.False(t, notYet.Due(now))

	pending := &TaskExecution{Status: ExecutionStatusPending, ScheduledFor: &past}
	assert.False(t, pending.Due(now))
}

func TestMergeMetadata(t *testing.T) {
	instance := &WorkflowInstance{}

	instance.MergeMetadata(map[string]any{"cmaReportId": "cma-1"})
	instance.MergeMetadata(map[string]any{"presentationId": "pres-1", "cmaReportId": "cma-2"})

	assert.Equal(t, "cma-2", instance.Metadata["cmaReportId"])
	assert.Equal(t, "pres-1", instance.Metadata["presentationId"])
}

func TestStepDelay(t *testing.T) {
	step := SmsSequenceStep{DelayDays: 2, DelayHours: 3}
	assert.Equal(t, 51*time.Hour, step.Delay())
}

func TestRecipientFields(t *testing.T) {
	r := Recipient{FirstName: "Dana", BusinessName: "Acme Roofing"}

	fields := r.Fields()

	assert.Equal(t, "Dana", fields["firstName"])
	// Falls back to business name when no contact person is set
	assert.Equal(t, "Acme Roofing", fields["name"])
}
