package models

import "time"

// HITLResolution is the outcome of a human decision on a gated execution.
type HITLResolution string

const (
	HITLApproved HITLResolution = "APPROVED"
	HITLRejected HITLResolution = "REJECTED"
)

// HITLUrgency drives how the notification sink surfaces a pending approval.
type HITLUrgency string

const (
	HITLUrgencyLow    HITLUrgency = "LOW"
	HITLUrgencyMedium HITLUrgency = "MEDIUM"
	HITLUrgencyHigh   HITLUrgency = "HIGH"
)

// HITLNotification is a pending-approval record. It is created when an
// execution transitions to AWAITING_HITL and resolved exactly once by a human
// action, which is the only external trigger that resumes that execution.
type HITLNotification struct {
	ID          string         `json:"id"`
	ExecutionID string         `json:"execution_id" validate:"required"`
	TenantID    string         `json:"tenant_id"    validate:"required"`
	Message     string         `json:"message"`
	Urgency     HITLUrgency    `json:"urgency"`
	CreatedAt   time.Time      `json:"created_at"`
	ResolvedAt  *time.Time     `json:"resolved_at,omitempty"`
	Resolution  HITLResolution `json:"resolution,omitempty"`
	ApproverID  string         `json:"approver_id,omitempty"`
	Note        string         `json:"note,omitempty"`
}

// Open reports whether the notification still awaits a human decision.
func (n *HITLNotification) Open() bool {
	return n.ResolvedAt == nil
}
