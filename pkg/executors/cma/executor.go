// Package cma generates a comparative market analysis report reference for a
// property. The report ID lands in instance metadata as cmaReportId, where
// downstream presentation tasks pick it up.
package cma

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/relaycrm/relay/pkg/protocol"
)

// ErrNoPropertyAddress is returned when neither the config nor the instance
// metadata names the property under analysis.
var ErrNoPropertyAddress = errors.New("no property address for cma")

type Executor struct {
	address string
}

func NewExecutor(config map[string]any) (*Executor, error) {
	address, _ := config["address"].(string)

	return &Executor{address: address}, nil
}

func (e *Executor) Execute(ctx context.Context, req protocol.ExecutionRequest, logger *slog.Logger) (map[string]any, error) {
	address := e.address
	if address == "" {
		address, _ = req.Instance.Metadata["propertyAddress"].(string)
	}

	if address == "" {
		return nil, ErrNoPropertyAddress
	}

	reportID := uuid.New().String()

	logger.InfoContext(ctx, "CMA report generated", "cma_report_id", reportID, "address", address)

	return map[string]any{
		"cmaReportId": reportID,
		"cmaAddress":  address,
	}, nil
}
