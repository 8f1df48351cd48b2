// Package crmtask creates a manual follow-up task and notifies its assignee.
package crmtask

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/relaycrm/relay/pkg/gateways"
	"github.com/relaycrm/relay/pkg/protocol"
	"github.com/relaycrm/relay/pkg/template"
)

// ErrNoAssignee is returned when neither the config nor the instance metadata
// names an assignee.
var ErrNoAssignee = errors.New("no assignee for crm task")

type Executor struct {
	sink       gateways.NotificationSink
	title      string
	assigneeID string
}

func NewExecutor(sink gateways.NotificationSink, config map[string]any) (*Executor, error) {
	title, _ := config["title"].(string)
	assigneeID, _ := config["assignee_id"].(string)

	return &Executor{sink: sink, title: title, assigneeID: assigneeID}, nil
}

func (e *Executor) Execute(ctx context.Context, req protocol.ExecutionRequest, logger *slog.Logger) (map[string]any, error) {
	assigneeID := e.assigneeID
	if assigneeID == "" {
		assigneeID, _ = req.Instance.Metadata["ownerId"].(string)
	}

	if assigneeID == "" {
		return nil, ErrNoAssignee
	}

	taskID := uuid.New().String()
	title := template.Personalize(e.title, template.StringFields(req.Instance.Metadata))

	err := e.sink.Notify(ctx, assigneeID, "task", map[string]any{
		"task_id":     taskID,
		"title":       title,
		"instance_id": req.Instance.ID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to notify assignee: %w", err)
	}

	logger.InfoContext(ctx, "CRM task created", "task_id", taskID, "assignee_id", assigneeID)

	return map[string]any{"crmTaskId": taskID}, nil
}
