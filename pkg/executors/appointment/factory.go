package appointment

import (
	"github.com/relaycrm/relay/pkg/gateways"
	"github.com/relaycrm/relay/pkg/models"
	"github.com/relaycrm/relay/pkg/protocol"
)

type Factory struct {
	calendar gateways.Calendar
}

func NewFactory(calendar gateways.Calendar) *Factory {
	return &Factory{calendar: calendar}
}

func (f *Factory) Create(config map[string]any) (protocol.Executor, error) {
	return NewExecutor(f.calendar, config)
}

func (f *Factory) Type() models.TaskType {
	return models.TaskTypeAppointmentBooking
}

func (f *Factory) Schema() string {
	return `{
		"type": "object",
		"properties": {
			"duration_minutes": {"type": "integer", "minimum": 5},
			"lead_hours": {"type": "integer", "minimum": 0}
		}
	}`
}
