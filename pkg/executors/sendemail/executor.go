// Package sendemail sends a personalized email to the instance subject.
package sendemail

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/relaycrm/relay/pkg/gateways"
	"github.com/relaycrm/relay/pkg/protocol"
	"github.com/relaycrm/relay/pkg/template"
)

// ErrNoRecipientEmail is returned when neither the config nor the instance
// metadata names a destination address.
var ErrNoRecipientEmail = errors.New("no recipient email address")

type Executor struct {
	gateway gateways.EmailGateway
	subject string
	body    string
	to      string
}

func NewExecutor(gateway gateways.EmailGateway, config map[string]any) (*Executor, error) {
	subject, _ := config["subject"].(string)
	body, _ := config["body"].(string)
	to, _ := config["to"].(string)

	return &Executor{gateway: gateway, subject: subject, body: body, to: to}, nil
}

func (e *Executor) Execute(ctx context.Context, req protocol.ExecutionRequest, logger *slog.Logger) (map[string]any, error) {
	to := e.to
	if to == "" {
		to, _ = req.Instance.Metadata["email"].(string)
	}

	if to == "" {
		return nil, ErrNoRecipientEmail
	}

	fields := template.StringFields(req.Instance.Metadata)
	subject := template.Personalize(e.subject, fields)
	body := template.Personalize(e.body, fields)

	result, err := e.gateway.Send(ctx, to, subject, body)
	if err != nil {
		return nil, fmt.Errorf("failed to send email: %w", err)
	}

	logger.InfoContext(ctx, "Email sent", "to", to, "gateway_message_id", result.ID)

	return map[string]any{
		"emailMessageId": result.ID,
		"emailStatus":    result.Status,
	}, nil
}
