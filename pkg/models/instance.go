package models

import (
	"errors"
	"time"
)

// InstanceStatus represents the lifecycle state of a workflow instance.
type InstanceStatus string

const (
	InstanceStatusActive    InstanceStatus = "ACTIVE"
	InstanceStatusCompleted InstanceStatus = "COMPLETED"
	InstanceStatusCancelled InstanceStatus = "CANCELLED"
	InstanceStatusFailed    InstanceStatus = "FAILED"
)

// ErrInvalidSubject is returned when a subject names neither or both of a
// lead and a deal.
var ErrInvalidSubject = errors.New("subject must reference exactly one of lead or deal")

// Subject binds an instance to exactly one business record, a lead or a deal.
type Subject struct {
	LeadID string `json:"lead_id,omitempty"`
	DealID string `json:"deal_id,omitempty"`
}

func (s Subject) Validate() error {
	if (s.LeadID == "") == (s.DealID == "") {
		return ErrInvalidSubject
	}

	return nil
}

// WorkflowInstance is one run of a template against one subject. Metadata
// accumulates result data from completed tasks; later tasks read prior
// results by key.
type WorkflowInstance struct {
	ID         string         `json:"id"`
	TemplateID string         `json:"template_id" validate:"required"`
	TenantID   string         `json:"tenant_id"   validate:"required"`
	Subject    Subject        `json:"subject"`
	Status     InstanceStatus `json:"status"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// Terminal reports whether the instance can no longer change state.
func (s InstanceStatus) Terminal() bool {
	return s == InstanceStatusCompleted || s == InstanceStatusCancelled || s == InstanceStatusFailed
}

// MergeMetadata shallow-merges task result data into the instance metadata.
func (w *WorkflowInstance) MergeMetadata(data map[string]any) {
	if len(data) == 0 {
		return
	}

	if w.Metadata == nil {
		w.Metadata = make(map[string]any, len(data))
	}

	for k, v := range data {
		w.Metadata[k] = v
	}
}
