// Package sendsms sends a personalized text message to the instance subject.
package sendsms

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/relaycrm/relay/pkg/gateways"
	"github.com/relaycrm/relay/pkg/protocol"
	"github.com/relaycrm/relay/pkg/template"
)

// ErrNoRecipientPhone is returned when neither the config nor the instance
// metadata names a destination number.
var ErrNoRecipientPhone = errors.New("no recipient phone number")

type Executor struct {
	gateway gateways.SMSGateway
	message string
	to      string
}

func NewExecutor(gateway gateways.SMSGateway, config map[string]any) (*Executor, error) {
	message, _ := config["message"].(string)
	to, _ := config["to"].(string)

	return &Executor{gateway: gateway, message: message, to: to}, nil
}

func (e *Executor) Execute(ctx context.Context, req protocol.ExecutionRequest, logger *slog.Logger) (map[string]any, error) {
	to := e.to
	if to == "" {
		to, _ = req.Instance.Metadata["phone"].(string)
	}

	if to == "" {
		return nil, ErrNoRecipientPhone
	}

	body := template.Personalize(e.message, template.StringFields(req.Instance.Metadata))

	result, err := e.gateway.Send(ctx, to, body)
	if err != nil {
		return nil, fmt.Errorf("failed to send sms: %w", err)
	}

	logger.InfoContext(ctx, "SMS sent", "to", to, "gateway_message_id", result.ID)

	return map[string]any{
		"smsMessageId": result.ID,
		"smsStatus":    result.Status,
	}, nil
}
