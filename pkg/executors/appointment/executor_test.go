package appointment_test

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/relaycrm/relay/pkg/executors/appointment"
	"github.com/relaycrm/relay/pkg/mocks"
	"github.com/relaycrm/relay/pkg/models"
	"github.com/relaycrm/relay/pkg/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

func TestExecuteBooksForLead(t *testing.T) {
	calendar := &mocks.Calendar{}
	calendar.On("CreateEvent", context.Background(), "lead-1", mock.Anything, 45).
		Return("event-1", nil)

	executor, err := appointment.NewExecutor(calendar, map[string]any{"duration_minutes": float64(45)})
	require.NoError(t, err)

	result, err := executor.Execute(context.Background(), protocol.ExecutionRequest{
		Instance: &models.WorkflowInstance{
			ID:      "i1",
			Subject: models.Subject{LeadID: "lead-1"},
		},
	}, testLogger)
	require.NoError(t, err)

	assert.Equal(t, "event-1", result["calendarEventId"])
	assert.NotEmpty(t, result["appointmentAt"])
	calendar.AssertExpectations(t)
}

func TestExecuteFallsBackToDeal(t *testing.T) {
	calendar := &mocks.Calendar{}
	calendar.On("CreateEvent", context.Background(), "deal-7", mock.Anything, 30).
		Return("event-2", nil)

	executor, err := appointment.NewExecutor(calendar, nil)
	require.NoError(t, err)

	_, err = executor.Execute(context.Background(), protocol.ExecutionRequest{
		Instance: &models.WorkflowInstance{
			ID:      "i1",
			Subject: models.Subject{DealID: "deal-7"},
		},
	}, testLogger)
	require.NoError(t, err)
	calendar.AssertExpectations(t)
}
