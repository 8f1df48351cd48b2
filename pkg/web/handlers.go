// Package web provides the REST API over the workflow engine: templates,
// instances, approvals, campaigns, and engine stats. Every listing endpoint is
// tenant-scoped through the tenant_id query parameter.
package web

import (
	"context"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"github.com/relaycrm/relay/pkg/drip"
	"github.com/relaycrm/relay/pkg/hitl"
	"github.com/relaycrm/relay/pkg/models"
	"github.com/relaycrm/relay/pkg/persistence"
	"github.com/relaycrm/relay/pkg/workflow"
)

type APIHandlers struct {
	orchestrator *workflow.Orchestrator
	approvals    *hitl.Manager
	campaigns    *drip.Processor
	persistence  persistence.Persistence
	validator    *validator.Validate
}

func NewAPIHandlers(
	orchestrator *workflow.Orchestrator,
	approvals *hitl.Manager,
	campaigns *drip.Processor,
	persist persistence.Persistence,
	validate *validator.Validate,
) *APIHandlers {
	return &APIHandlers{
		orchestrator: orchestrator,
		approvals:    approvals,
		campaigns:    campaigns,
		persistence:  persist,
		validator:    validate,
	}
}

func (h *APIHandlers) CreateTemplate(c fiber.Ctx) error {
	var req CreateTemplateRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	template := &models.WorkflowTemplate{
		ID:        uuid.New().String(),
		TenantID:  req.TenantID,
		Name:      req.Name,
		Industry:  req.Industry,
		Tasks:     req.Tasks,
		CreatedAt: time.Now().UTC(),
	}

	err := h.persistence.Templates().Save(c.Context(), template)
	if err != nil {
		return internalError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(template)
}

func (h *APIHandlers) GetTemplates(c fiber.Ctx) error {
	tenantID := c.Query("tenant_id")
	if tenantID == "" {
		return badRequest(c, "tenant_id is required")
	}

	templates, err := h.persistence.Templates().ListByTenant(c.Context(), tenantID)
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(templates)
}

func (h *APIHandlers) GetTemplate(c fiber.Ctx) error {
	template, err := h.persistence.Templates().GetByID(c.Context(), c.Params("id"))
	if err != nil {
		return handleEngineError(c, err)
	}

	return c.JSON(template)
}

func (h *APIHandlers) DeleteTemplate(c fiber.Ctx) error {
	err := h.persistence.Templates().Delete(c.Context(), c.Params("id"))
	if err != nil {
		return handleEngineError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) StartInstance(c fiber.Ctx) error {
	var req StartInstanceRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	instance, err := h.orchestrator.StartInstance(c.Context(), workflow.StartRequest{
		TemplateID: req.TemplateID,
		TenantID:   req.TenantID,
		Subject:    models.Subject{LeadID: req.LeadID, DealID: req.DealID},
		Metadata:   req.Metadata,
	})
	if err != nil {
		return handleEngineError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(instance)
}

func (h *APIHandlers) GetInstances(c fiber.Ctx) error {
	tenantID := c.Query("tenant_id")
	if tenantID == "" {
		return badRequest(c, "tenant_id is required")
	}

	var status *models.InstanceStatus

	if statusStr := c.Query("status"); statusStr != "" {
		s := models.InstanceStatus(statusStr)
		status = &s
	}

	instances, err := h.persistence.Instances().ListByTenant(c.Context(), tenantID, status)
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(instances)
}

func (h *APIHandlers) GetInstance(c fiber.Ctx) error {
	instance, err := h.persistence.Instances().GetByID(c.Context(), c.Params("id"))
	if err != nil {
		return handleEngineError(c, err)
	}

	return c.JSON(instance)
}

func (h *APIHandlers) GetInstanceExecutions(c fiber.Ctx) error {
	id := c.Params("id")

	_, err := h.persistence.Instances().GetByID(c.Context(), id)
	if err != nil {
		return handleEngineError(c, err)
	}

	executions, err := h.persistence.Executions().ListByInstance(c.Context(), id)
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(executions)
}

func (h *APIHandlers) CancelInstance(c fiber.Ctx) error {
	err := h.orchestrator.CancelInstance(c.Context(), c.Params("id"))
	if err != nil {
		return handleEngineError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// ProcessExecution triggers one due execution outside the poll cycle. Claim
// semantics make this safe next to running pollers.
func (h *APIHandlers) ProcessExecution(c fiber.Ctx) error {
	id := c.Params("id")

	err := h.orchestrator.ProcessTaskExecution(c.Context(), id)
	if err != nil {
		return handleEngineError(c, err)
	}

	execution, err := h.persistence.Executions().GetByID(c.Context(), id)
	if err != nil {
		return handleEngineError(c, err)
	}

	return c.JSON(execution)
}

func (h *APIHandlers) GetApprovals(c fiber.Ctx) error {
	tenantID := c.Query("tenant_id")
	if tenantID == "" {
		return badRequest(c, "tenant_id is required")
	}

	notifications, err := h.approvals.ListOpen(c.Context(), tenantID)
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(notifications)
}

func (h *APIHandlers) ApproveNotification(c fiber.Ctx) error {
	return h.resolveNotification(c, h.approvals.Approve)
}

func (h *APIHandlers) RejectNotification(c fiber.Ctx) error {
	return h.resolveNotification(c, h.approvals.Reject)
}

func (h *APIHandlers) resolveNotification(c fiber.Ctx, resolve func(ctx context.Context, notificationID, approverID, note string) error) error {
	var req ResolveApprovalRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	err := resolve(c.Context(), c.Params("id"), req.ApproverID, req.Note)
	if err != nil {
		return handleEngineError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) GetStats(c fiber.Ctx) error {
	tenantID := c.Query("tenant_id")
	if tenantID == "" {
		return badRequest(c, "tenant_id is required")
	}

	stats, err := h.orchestrator.Stats(c.Context(), tenantID)
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(stats)
}

func (h *APIHandlers) CreateCampaign(c fiber.Ctx) error {
	var req CreateCampaignRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	campaign := &models.SmsCampaign{
		ID:         uuid.New().String(),
		TenantID:   req.TenantID,
		Name:       req.Name,
		IsSequence: req.IsSequence,
		DailyLimit: req.DailyLimit,
		Status:     models.CampaignStatusActive,
		Steps:      req.Steps,
		CreatedAt:  time.Now().UTC(),
	}

	err := h.persistence.Campaigns().SaveCampaign(c.Context(), campaign)
	if err != nil {
		return internalError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(campaign)
}

func (h *APIHandlers) GetCampaign(c fiber.Ctx) error {
	campaign, err := h.persistence.Campaigns().CampaignByID(c.Context(), c.Params("id"))
	if err != nil {
		return handleEngineError(c, err)
	}

	return c.JSON(campaign)
}

func (h *APIHandlers) PauseCampaign(c fiber.Ctx) error {
	err := h.campaigns.PauseCampaign(c.Context(), c.Params("id"))
	if err != nil {
		return handleEngineError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) ResumeCampaign(c fiber.Ctx) error {
	err := h.campaigns.ResumeCampaign(c.Context(), c.Params("id"))
	if err != nil {
		return handleEngineError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) CreateRecipient(c fiber.Ctx) error {
	var req CreateRecipientRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	recipient := &models.Recipient{
		ID:            uuid.New().String(),
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		BusinessName:  req.BusinessName,
		ContactPerson: req.ContactPerson,
		Phone:         req.Phone,
		Email:         req.Email,
	}

	err := h.persistence.Campaigns().SaveRecipient(c.Context(), recipient)
	if err != nil {
		return internalError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(recipient)
}

func (h *APIHandlers) EnrollRecipient(c fiber.Ctx) error {
	var req EnrollRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	enrollment, err := h.campaigns.Enroll(c.Context(), c.Params("id"), req.RecipientID)
	if err != nil {
		return handleEngineError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(enrollment)
}

func (h *APIHandlers) RecordEnrollmentReply(c fiber.Ctx) error {
	err := h.campaigns.RecordReply(c.Context(), c.Params("id"))
	if err != nil {
		return handleEngineError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) GetEnrollmentMessages(c fiber.Ctx) error {
	id := c.Params("id")

	_, err := h.persistence.Campaigns().EnrollmentByID(c.Context(), id)
	if err != nil {
		return handleEngineError(c, err)
	}

	messages, err := h.persistence.Campaigns().MessagesByEnrollment(c.Context(), id)
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(messages)
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	err := h.persistence.HealthCheck(c.Context())

	status := "healthy"
	httpStatus := http.StatusOK

	if err != nil {
		status = "unhealthy"
		httpStatus = http.StatusInternalServerError
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":    status,
		"timestamp": time.Now().UTC(),
	})
}
