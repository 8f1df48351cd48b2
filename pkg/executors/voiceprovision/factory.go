package voiceprovision

import (
	"github.com/relaycrm/relay/pkg/gateways"
	"github.com/relaycrm/relay/pkg/models"
	"github.com/relaycrm/relay/pkg/protocol"
)

type Factory struct {
	provisioner gateways.VoiceProvisioner
}

func NewFactory(provisioner gateways.VoiceProvisioner) *Factory {
	return &Factory{provisioner: provisioner}
}

func (f *Factory) Create(config map[string]any) (protocol.Executor, error) {
	return NewExecutor(f.provisioner, config)
}

func (f *Factory) Type() models.TaskType {
	return models.TaskTypeVoiceProvisioning
}

func (f *Factory) Schema() string {
	return ""
}
