package voicecall

import (
	"github.com/relaycrm/relay/pkg/gateways"
	"github.com/relaycrm/relay/pkg/models"
	"github.com/relaycrm/relay/pkg/protocol"
)

type Factory struct {
	gateway gateways.VoiceGateway
}

func NewFactory(gateway gateways.VoiceGateway) *Factory {
	return &Factory{gateway: gateway}
}

func (f *Factory) Create(config map[string]any) (protocol.Executor, error) {
	return NewExecutor(f.gateway, config)
}

func (f *Factory) Type() models.TaskType {
	return models.TaskTypeVoiceCall
}

func (f *Factory) Schema() string {
	return `{
		"type": "object",
		"properties": {
			"script": {"type": "string", "minLength": 1},
			"to": {"type": "string"}
		},
		"required": ["script"]
	}`
}
