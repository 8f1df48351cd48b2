// Package presentation generates a listing presentation, folding in the CMA
// report produced earlier in the same instance when one exists.
package presentation

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/relaycrm/relay/pkg/protocol"
)

type Executor struct {
	templateName string
}

func NewExecutor(config map[string]any) (*Executor, error) {
	templateName, _ := config["template"].(string)
	if templateName == "" {
		templateName = "listing-default"
	}

	return &Executor{templateName: templateName}, nil
}

func (e *Executor) Execute(ctx context.Context, req protocol.ExecutionRequest, logger *slog.Logger) (map[string]any, error) {
	presentationID := uuid.New().String()

	result := map[string]any{
		"presentationId":       presentationID,
		"presentationTemplate": e.templateName,
	}

	// A prior CMA task leaves its report ID in instance metadata.
	if cmaReportID, ok := req.Instance.Metadata["cmaReportId"].(string); ok && cmaReportID != "" {
		result["cmaReportId"] = cmaReportID
	}

	logger.InfoContext(ctx, "Presentation generated",
		"presentation_id", presentationID, "template", e.templateName)

	return result, nil
}
