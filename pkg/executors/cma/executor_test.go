package cma_test

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/relaycrm/relay/pkg/executors/cma"
	"github.com/relaycrm/relay/pkg/models"
	"github.com/relaycrm/relay/pkg/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

func TestExecuteReportIDFlowsToMetadata(t *testing.T) {
	executor, err := cma.NewExecutor(map[string]any{"address": "12 Main St"})
	require.NoError(t, err)

	result, err := executor.Execute(context.Background(), protocol.ExecutionRequest{
		Instance: &models.WorkflowInstance{ID: "i1"},
	}, testLogger)
	require.NoError(t, err)

	assert.NotEmpty(t, result["cmaReportId"])
	assert.Equal(t, "12 Main St", result["cmaAddress"])
}

func TestExecuteAddressFromMetadata(t *testing.T) {
	executor, err := cma.NewExecutor(nil)
	require.NoError(t, err)

	result, err := executor.Execute(context.Background(), protocol.ExecutionRequest{
		Instance: &models.WorkflowInstance{
			ID:       "i1",
			Metadata: map[string]any{"propertyAddress": "9 Elm Ave"},
		},
	}, testLogger)
	require.NoError(t, err)
	assert.Equal(t, "9 Elm Ave", result["cmaAddress"])
}

func TestExecuteNoAddress(t *testing.T) {
	executor, err := cma.NewExecutor(nil)
	require.NoError(t, err)

	_, err = executor.Execute(context.Background(), protocol.ExecutionRequest{
		Instance: &models.WorkflowInstance{ID: "i1"},
	}, testLogger)
	assert.ErrorIs(t, err, cma.ErrNoPropertyAddress)
}
