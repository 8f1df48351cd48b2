// Package memory provides a mutex-guarded in-memory persistence
// implementation. It backs unit tests and single-node development; the claim
// primitive has the same winner/loser semantics as the postgres
// implementation.
package memory

import (
	"context"

	"github.com/relaycrm/relay/pkg/persistence"
)

type Persistence struct {
	templates     *TemplateRepository
	instances     *InstanceRepository
	executions    *ExecutionRepository
	notifications *HITLRepository
	campaigns     *CampaignRepository
}

func NewPersistence() *Persistence {
	instances := newInstanceRepository()

	return &Persistence{
		templates:     newTemplateRepository(),
		instances:     instances,
		executions:    newExecutionRepository(instances),
		notifications: newHITLRepository(),
		campaigns:     newCampaignRepository(),
	}
}

func (p *Persistence) Templates() persistence.TemplateRepository { return p.templates }

func (p *Persistence) Instances() persistence.InstanceRepository { return p.instances }

func (p *Persistence) Executions() persistence.ExecutionRepository { return p.executions }

func (p *Persistence) Notifications() persistence.HITLRepository { return p.notifications }

func (p *Persistence) Campaigns() persistence.CampaignRepository { return p.campaigns }

func (p *Persistence) HealthCheck(_ context.Context) error { return nil }

func (p *Persistence) Close(_ context.Context) error { return nil }
