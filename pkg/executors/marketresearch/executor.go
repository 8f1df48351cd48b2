// Package marketresearch compiles a market research summary for an area.
package marketresearch

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/relaycrm/relay/pkg/protocol"
)

type Executor struct {
	area string
}

func NewExecutor(config map[string]any) (*Executor, error) {
	area, _ := config["area"].(string)

	return &Executor{area: area}, nil
}

func (e *Executor) Execute(ctx context.Context, req protocol.ExecutionRequest, logger *slog.Logger) (map[string]any, error) {
	area := e.area
	if area == "" {
		area, _ = req.Instance.Metadata["area"].(string)
	}

	reportID := uuid.New().String()

	logger.InfoContext(ctx, "Market research compiled", "report_id", reportID, "area", area)

	result := map[string]any{"marketResearchId": reportID}
	if area != "" {
		result["marketResearchArea"] = area
	}

	return result, nil
}
