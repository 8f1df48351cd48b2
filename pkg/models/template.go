// Package models defines the core domain entities of the workflow execution engine.
package models

import (
	"sort"
	"time"
)

// WorkflowTemplate is a tenant-owned, immutable-per-version ordered task list.
// Running instances reference a template by ID and never mutate it.
type WorkflowTemplate struct {
	ID        string           `json:"id"`
	TenantID  string           `json:"tenant_id" validate:"required"`
	Name      string           `json:"name"      validate:"required,min=3"`
	Industry  Industry         `json:"industry"  validate:"required"`
	Tasks     []TaskDefinition `json:"tasks"     validate:"required,min=1,dive"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`

	// DeletedAt marks a soft-deleted template. Deleted templates disappear
	// from tenant listings but stay loadable by ID, so running instances
	// keep executing against them.
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

// OrderedTasks returns the template's tasks sorted by display order.
func (t *WorkflowTemplate) OrderedTasks() []TaskDefinition {
	tasks := make([]TaskDefinition, len(t.Tasks))
	copy(tasks, t.Tasks)

	sort.Slice(tasks, func(i, j int) bool {
		return tasks[i].DisplayOrder < tasks[j].DisplayOrder
	})

	return tasks
}

// TaskByID looks up a task definition in the template.
func (t *WorkflowTemplate) TaskByID(taskID string) (TaskDefinition, bool) {
	for _, task := range t.Tasks {
		if task.ID == taskID {
			return task, true
		}
	}

	return TaskDefinition{}, false
}

// NextTask returns the task following the given display order, if any.
func (t *WorkflowTemplate) NextTask(afterOrder int) (TaskDefinition, bool) {
	var (
		next  TaskDefinition
		found bool
	)

	for _, task := range t.Tasks {
		if task.DisplayOrder <= afterOrder {
			continue
		}

		if !found || task.DisplayOrder < next.DisplayOrder {
			next = task
			found = true
		}
	}

	return next, found
}
