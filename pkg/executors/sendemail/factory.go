package sendemail

import (
	"github.com/relaycrm/relay/pkg/gateways"
	"github.com/relaycrm/relay/pkg/models"
	"github.com/relaycrm/relay/pkg/protocol"
)

type Factory struct {
	gateway gateways.EmailGateway
}

func NewFactory(gateway gateways.EmailGateway) *Factory {
	return &Factory{gateway: gateway}
}

func (f *Factory) Create(config map[string]any) (protocol.Executor, error) {
	return NewExecutor(f.gateway, config)
}

func (f *Factory) Type() models.TaskType {
	return models.TaskTypeSendEmail
}

func (f *Factory) Schema() string {
	return `{
		"type": "object",
		"properties": {
			"subject": {"type": "string", "minLength": 1},
			"body": {"type": "string", "minLength": 1},
			"to": {"type": "string"}
		},
		"required": ["subject", "body"]
	}`
}
