// Package gateways defines the narrow contracts the engine needs from
// external collaborators. Concrete integrations (Twilio, Gmail, calendar
// sync, voice-agent providers) live outside the engine and implement these.
package gateways

import (
	"context"
	"time"
)

// SendResult is the gateway's acknowledgement of an outbound message.
type SendResult struct {
	ID     string
	Status string
}

// SMSGateway sends a text message. Implementations apply their own timeout;
// an error is treated as executor or drip-step failure, never as "unknown".
type SMSGateway interface {
	Send(ctx context.Context, to, body string) (*SendResult, error)
}

// EmailGateway sends an email message.
type EmailGateway interface {
	Send(ctx context.Context, to, subject, body string) (*SendResult, error)
}

// Calendar creates events for appointment-booking executors.
type Calendar interface {
	CreateEvent(ctx context.Context, subjectID string, when time.Time, durationMinutes int) (string, error)
}

// VoiceGateway initiates an outbound AI voice call.
type VoiceGateway interface {
	StartCall(ctx context.Context, to, script string) (*SendResult, error)
}

// NotificationSink delivers in-app or push notifications to a human user.
// Used by the HITL gate manager and by reminder executors.
type NotificationSink interface {
	Notify(ctx context.Context, userID, channel string, payload map[string]any) error
}

// VoiceProvisioner provisions a voice agent for a tenant. Provisioning is
// dispatched through the engine as an observable task rather than a detached
// background call, so its success or failure lands on an execution row.
type VoiceProvisioner interface {
	Provision(ctx context.Context, tenantID string, config map[string]any) (string, error)
}
