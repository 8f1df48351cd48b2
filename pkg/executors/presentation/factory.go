package presentation

import (
	"github.com/relaycrm/relay/pkg/models"
	"github.com/relaycrm/relay/pkg/protocol"
)

type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

func (f *Factory) Create(config map[string]any) (protocol.Executor, error) {
	return NewExecutor(config)
}

func (f *Factory) Type() models.TaskType {
	return models.TaskTypePresentationGeneration
}

func (f *Factory) Schema() string {
	return `{
		"type": "object",
		"properties": {
			"template": {"type": "string"}
		}
	}`
}
