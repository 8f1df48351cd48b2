// Package voiceprovision provisions a tenant's AI voice agent. Provisioning
// runs as a regular task execution so its outcome lands on an execution row
// instead of vanishing into a background call.
package voiceprovision

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/relaycrm/relay/pkg/gateways"
	"github.com/relaycrm/relay/pkg/protocol"
)

type Executor struct {
	provisioner gateways.VoiceProvisioner
	config      map[string]any
}

func NewExecutor(provisioner gateways.VoiceProvisioner, config map[string]any) (*Executor, error) {
	return &Executor{provisioner: provisioner, config: config}, nil
}

func (e *Executor) Execute(ctx context.Context, req protocol.ExecutionRequest, logger *slog.Logger) (map[string]any, error) {
	agentID, err := e.provisioner.Provision(ctx, req.Instance.TenantID, e.config)
	if err != nil {
		return nil, fmt.Errorf("failed to provision voice agent: %w", err)
	}

	logger.InfoContext(ctx, "Voice agent provisioned",
		"tenant_id", req.Instance.TenantID, "agent_id", agentID)

	return map[string]any{"voiceAgentId": agentID}, nil
}
