// Package appointment books a calendar event for the instance subject.
package appointment

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/relaycrm/relay/pkg/gateways"
	"github.com/relaycrm/relay/pkg/protocol"
)

const (
	defaultDurationMinutes = 30
	defaultLeadHours       = 24
)

type Executor struct {
	calendar        gateways.Calendar
	durationMinutes int
	leadHours       int
}

func NewExecutor(calendar gateways.Calendar, config map[string]any) (*Executor, error) {
	executor := &Executor{
		calendar:        calendar,
		durationMinutes: defaultDurationMinutes,
		leadHours:       defaultLeadHours,
	}

	if v, ok := config["duration_minutes"].(float64); ok {
		executor.durationMinutes = int(v)
	}

	if v, ok := config["lead_hours"].(float64); ok {
		executor.leadHours = int(v)
	}

	return executor, nil
}

func (e *Executor) Execute(ctx context.Context, req protocol.ExecutionRequest, logger *slog.Logger) (map[string]any, error) {
	subjectID := req.Instance.Subject.LeadID
	if subjectID == "" {
		subjectID = req.Instance.Subject.DealID
	}

	when := time.Now().UTC().Add(time.Duration(e.leadHours) * time.Hour)

	eventID, err := e.calendar.CreateEvent(ctx, subjectID, when, e.durationMinutes)
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar event: %w", err)
	}

	logger.InfoContext(ctx, "Appointment booked", "subject_id", subjectID, "event_id", eventID)

	return map[string]any{
		"calendarEventId": eventID,
		"appointmentAt":   when.Format(time.RFC3339),
	}, nil
}
