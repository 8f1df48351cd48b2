// Package logging provides gateway implementations that log the outbound
// action and fabricate an acknowledgement. They back local development and
// deployments where a real provider integration is not configured yet.
package logging

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/relaycrm/relay/pkg/gateways"
)

type SMSGateway struct {
	logger *slog.Logger
}

func NewSMSGateway(logger *slog.Logger) *SMSGateway {
	return &SMSGateway{logger: logger.With("gateway", "sms")}
}

func (g *SMSGateway) Send(ctx context.Context, to, body string) (*gateways.SendResult, error) {
	result := &gateways.SendResult{ID: uuid.New().String(), Status: "sent"}

	g.logger.InfoContext(ctx, "SMS send", "to", to, "body", body, "message_id", result.ID)

	return result, nil
}

type EmailGateway struct {
	logger *slog.Logger
}

func NewEmailGateway(logger *slog.Logger) *EmailGateway {
	return &EmailGateway{logger: logger.With("gateway", "email")}
}

func (g *EmailGateway) Send(ctx context.Context, to, subject, _ string) (*gateways.SendResult, error) {
	result := &gateways.SendResult{ID: uuid.New().String(), Status: "sent"}

	g.logger.InfoContext(ctx, "Email send", "to", to, "subject", subject, "message_id", result.ID)

	return result, nil
}

type Calendar struct {
	logger *slog.Logger
}

func NewCalendar(logger *slog.Logger) *Calendar {
	return &Calendar{logger: logger.With("gateway", "calendar")}
}

func (g *Calendar) CreateEvent(ctx context.Context, subjectID string, when time.Time, durationMinutes int) (string, error) {
	eventID := uuid.New().String()

	g.logger.InfoContext(ctx, "Calendar event created",
		"subject_id", subjectID, "when", when, "duration_minutes", durationMinutes, "event_id", eventID)

	return eventID, nil
}

type VoiceGateway struct {
	logger *slog.Logger
}

func NewVoiceGateway(logger *slog.Logger) *VoiceGateway {
	return &VoiceGateway{logger: logger.With("gateway", "voice")}
}

func (g *VoiceGateway) StartCall(ctx context.Context, to, script string) (*gateways.SendResult, error) {
	result := &gateways.SendResult{ID: uuid.New().String(), Status: "started"}

	g.logger.InfoContext(ctx, "Voice call started", "to", to, "script_length", len(script), "call_id", result.ID)

	return result, nil
}

type NotificationSink struct {
	logger *slog.Logger
}

func NewNotificationSink(logger *slog.Logger) *NotificationSink {
	return &NotificationSink{logger: logger.With("gateway", "notifications")}
}

func (g *NotificationSink) Notify(ctx context.Context, userID, channel string, payload map[string]any) error {
	g.logger.InfoContext(ctx, "Notification delivered", "user_id", userID, "channel", channel, "payload", payload)

	return nil
}

type VoiceProvisioner struct {
	logger *slog.Logger
}

func NewVoiceProvisioner(logger *slog.Logger) *VoiceProvisioner {
	return &VoiceProvisioner{logger: logger.With("gateway", "voice_provisioner")}
}

func (g *VoiceProvisioner) Provision(ctx context.Context, tenantID string, config map[string]any) (string, error) {
	agentID := uuid.New().String()

	g.logger.InfoContext(ctx, "Voice agent provisioned", "tenant_id", tenantID, "config", config, "agent_id", agentID)

	return agentID, nil
}
