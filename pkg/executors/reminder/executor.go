// Package reminder pushes an in-app reminder to the owning user.
package reminder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/relaycrm/relay/pkg/gateways"
	"github.com/relaycrm/relay/pkg/protocol"
	"github.com/relaycrm/relay/pkg/template"
)

// ErrNoTargetUser is returned when neither the config nor the instance
// metadata names a user to remind.
var ErrNoTargetUser = errors.New("no target user for reminder")

type Executor struct {
	sink    gateways.NotificationSink
	message string
	userID  string
	channel string
}

func NewExecutor(sink gateways.NotificationSink, config map[string]any) (*Executor, error) {
	message, _ := config["message"].(string)
	userID, _ := config["user_id"].(string)

	channel, _ := config["channel"].(string)
	if channel == "" {
		channel = "reminder"
	}

	return &Executor{sink: sink, message: message, userID: userID, channel: channel}, nil
}

func (e *Executor) Execute(ctx context.Context, req protocol.ExecutionRequest, logger *slog.Logger) (map[string]any, error) {
	userID := e.userID
	if userID == "" {
		userID, _ = req.Instance.Metadata["ownerId"].(string)
	}

	if userID == "" {
		return nil, ErrNoTargetUser
	}

	message := template.Personalize(e.message, template.StringFields(req.Instance.Metadata))

	err := e.sink.Notify(ctx, userID, e.channel, map[string]any{
		"message":     message,
		"instance_id": req.Instance.ID,
		"task_name":   req.Task.Name,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to deliver reminder: %w", err)
	}

	logger.InfoContext(ctx, "Reminder delivered", "user_id", userID, "channel", e.channel)

	return map[string]any{"reminderDelivered": true}, nil
}
