package reminder

import (
	"github.com/relaycrm/relay/pkg/gateways"
	"github.com/relaycrm/relay/pkg/models"
	"github.com/relaycrm/relay/pkg/protocol"
)

type Factory struct {
	sink gateways.NotificationSink
}

func NewFactory(sink gateways.NotificationSink) *Factory {
	return &Factory{sink: sink}
}

func (f *Factory) Create(config map[string]any) (protocol.Executor, error) {
	return NewExecutor(f.sink, config)
}

func (f *Factory) Type() models.TaskType {
	return models.TaskTypeSendReminder
}

func (f *Factory) Schema() string {
	return `{
		"type": "object",
		"properties": {
			"message": {"type": "string", "minLength": 1},
			"user_id": {"type": "string"},
			"channel": {"type": "string"}
		},
		"required": ["message"]
	}`
}
