// Package document generates a business document for the instance subject.
package document

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/relaycrm/relay/pkg/protocol"
)

type Executor struct {
	documentType string
}

func NewExecutor(config map[string]any) (*Executor, error) {
	documentType, _ := config["document_type"].(string)
	if documentType == "" {
		documentType = "contract"
	}

	return &Executor{documentType: documentType}, nil
}

func (e *Executor) Execute(ctx context.Context, req protocol.ExecutionRequest, logger *slog.Logger) (map[string]any, error) {
	documentID := uuid.New().String()

	logger.InfoContext(ctx, "Document generated",
		"document_id", documentID, "document_type", e.documentType)

	return map[string]any{
		"documentId":   documentID,
		"documentType": e.documentType,
	}, nil
}
