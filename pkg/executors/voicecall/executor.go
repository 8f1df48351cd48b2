// Package voicecall initiates an outbound AI voice call to the instance subject.
package voicecall

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
	gateway gateways.VoiceGateway
	script  string
	to      string
}

func NewExecutor(gateway gateways.VoiceGateway, config map[string]any) (*Executor, error) {
	script, _ := config["script"].(string)
	to, _ := config["to"].(string)

	return &Executor{gateway: gateway, script: script, to: to}, nil
}

func (e *Executor) Execute(ctx context.Context, req protocol.ExecutionRequest, logger *slog.Logger) (map[string]any, error) {
	to := e.to
	if to == "" {
		to, _ = req.Instance.Metadata["phone"].(string)
	}

	if to == "" {
		return nil, ErrNoRecipientPhone
	}

	script := template.Personalize(e.script, template.StringFields(req.Instance.Metadata))

	result, err := e.gateway.StartCall(ctx, to, script)
	if err != nil {
		return nil, fmt.Errorf("failed to start voice call: %w", err)
	}

	logger.InfoContext(ctx, "Voice call started", "to", to, "call_id", result.ID)

	return map[string]any{
		"voiceCallId":     result.ID,
		"voiceCallStatus": result.Status,
	}, nil
}
