// Package events defines the engine's lifecycle event types. Events are
// observational: the state machine never depends on them, so a lost event
// cannot corrupt a run.
package events

import (
	"time"
)

type EventType string

// Kafka topic for all engine lifecycle events.
const Topic = "relay.engine.events"

const EventKeyMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	InstanceStartedEvent   EventType = "instance.started"
	InstanceCompletedEvent EventType = "instance.completed"
	InstanceFailedEvent    EventType = "instance.failed"
	InstanceCancelledEvent EventType = "instance.cancelled"

	ExecutionScheduledEvent EventType = "execution.scheduled"
	ExecutionStartedEvent   EventType = "execution.started"
	ExecutionCompletedEvent EventType = "execution.completed"
	ExecutionFailedEvent    EventType = "execution.failed"

	HITLGateCreatedEvent  EventType = "hitl.gate.created"
	HITLGateResolvedEvent EventType = "hitl.gate.resolved"

	DripMessageSentEvent        EventType = "drip.message.sent"
	DripEnrollmentCompletedEvent EventType = "drip.enrollment.completed"
)

type BaseEvent struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	TenantID  string         `json:"tenant_id,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

type InstanceStarted struct {
	BaseEvent

	InstanceID string `json:"instance_id"`
	TemplateID string `json:"template_id"`
	LeadID     string `json:"lead_id,omitempty"`
	DealID     string `json:"deal_id,omitempty"`
	TaskCount  int    `json:"task_count"`
}

func (e InstanceStarted) GetType() EventType { return InstanceStartedEvent }

type InstanceFinished struct {
	BaseEvent

	InstanceID string `json:"instance_id"`
	Outcome    string `json:"outcome"`
	Error      string `json:"error,omitempty"`
}

func (e InstanceFinished) GetType() EventType { return EventType("instance." + e.Outcome) }

type ExecutionTransitioned struct {
	BaseEvent

	InstanceID  string `json:"instance_id"`
	ExecutionID string `json:"execution_id"`
	TaskID      string `json:"task_id"`
	Status      string `json:"status"`
	Error       string `json:"error,omitempty"`
}

func (e ExecutionTransitioned) GetType() EventType { return e.Type }

type HITLGateCreated struct {
	BaseEvent

	ExecutionID    string `json:"execution_id"`
	NotificationID string `json:"notification_id"`
	Urgency        string `json:"urgency"`
}

func (e HITLGateCreated) GetType() EventType { return HITLGateCreatedEvent }

type HITLGateResolved struct {
	BaseEvent

	ExecutionID    string `json:"execution_id"`
	NotificationID string `json:"notification_id"`
	Resolution     string `json:"resolution"`
	ApproverID     string `json:"approver_id"`
}

func (e HITLGateResolved) GetType() EventType { return HITLGateResolvedEvent }

type DripMessageSent struct {
	BaseEvent

	CampaignID   string `json:"campaign_id"`
	EnrollmentID string `json:"enrollment_id"`
	Step         int    `json:"step"`
	MessageID    string `json:"message_id"`
	Status       string `json:"status"`
}

func (e DripMessageSent) GetType() EventType { return DripMessageSentEvent }

type DripEnrollmentCompleted struct {
	BaseEvent

	CampaignID   string `json:"campaign_id"`
	EnrollmentID string `json:"enrollment_id"`
}

func (e DripEnrollmentCompleted) GetType() EventType { return DripEnrollmentCompletedEvent }
