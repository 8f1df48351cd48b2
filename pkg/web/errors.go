package web

import (
	"errors"

	"github.com/gofiber/fiber/v3"
	"github.com/moogar0880/problems"
	"github.com/relaycrm/relay/pkg/drip"
	"github.com/relaycrm/relay/pkg/hitl"
	"github.com/relaycrm/relay/pkg/models"
	"github.com/relaycrm/relay/pkg/persistence"
	"github.com/relaycrm/relay/pkg/workflow"
)

func badRequest(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(400).
		WithInstance(c.Path()).
		WithType("validation_error").
		WithDetail(detail)

	return c.Status(fiber.StatusBadRequest).JSON(problem)
}

func notFound(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(404).
		WithInstance(c.Path()).
		WithType("not_found").
		WithDetail(detail)

	return c.Status(fiber.StatusNotFound).JSON(problem)
}

func conflict(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(409).
		WithInstance(c.Path()).
		WithType("conflict").
		WithDetail(detail)

	return c.Status(fiber.StatusConflict).JSON(problem)
}

func internalError(c fiber.Ctx, err error) error {
	problem := problems.NewStatusProblem(500).
		WithInstance(c.Path()).
		WithType("internal_error").
		WithError(err)

	return c.Status(fiber.StatusInternalServerError).JSON(problem)
}

// handleEngineError maps engine sentinel errors to problem responses.
func handleEngineError(c fiber.Ctx, err error) error {
	switch {
	case persistence.IsNotFound(err):
		return notFound(c, err.Error())

	case errors.Is(err, models.ErrInvalidSubject),
		errors.Is(err, workflow.ErrTemplateNoTasks),
		errors.Is(err, drip.ErrCampaignNotSequence):
		return badRequest(c, err.Error())

	case errors.Is(err, workflow.ErrTemplateTenantMismatch):
		// The template exists but not for this tenant; don't leak that.
		return notFound(c, "workflow template not found")

	case errors.Is(err, workflow.ErrInstanceNotActive),
		errors.Is(err, workflow.ErrNotAwaitingApproval),
		errors.Is(err, hitl.ErrAlreadyResolved),
		errors.Is(err, drip.ErrCampaignNotActive),
		errors.Is(err, drip.ErrCampaignNotPaused):
		return conflict(c, err.Error())

	default:
		return internalError(c, err)
	}
}
