package web_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/relaycrm/relay/pkg/counters"
	"github.com/relaycrm/relay/pkg/drip"
	"github.com/relaycrm/relay/pkg/executors/sendsms"
	"github.com/relaycrm/relay/pkg/gateways"
	"github.com/relaycrm/relay/pkg/hitl"
	"github.com/relaycrm/relay/pkg/mocks"
	"github.com/relaycrm/relay/pkg/models"
	"github.com/relaycrm/relay/pkg/persistence/memory"
	"github.com/relaycrm/relay/pkg/registry"
	"github.com/relaycrm/relay/pkg/web"
	"github.com/relaycrm/relay/pkg/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type testStack struct {
	app         *fiber.App
	persistence *memory.Persistence
	smsGateway  *mocks.SMSGateway
}

func setupTestApp(t *testing.T) *testStack {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	persist := memory.NewPersistence()
	smsGateway := &mocks.SMSGateway{}

	reg := registry.NewRegistry(logger)
	reg.RegisterGeneral(sendsms.NewFactory(smsGateway))

	orchestrator := workflow.NewOrchestrator(logger, persist, reg, nil, nil, nil)
	approvals := hitl.NewManager(logger, persist, orchestrator, nil)
	campaigns := drip.NewProcessor(logger, persist, counters.NewMemoryCounters(), smsGateway, nil)

	validate := validator.New(validator.WithRequiredStructEnabled())
	handlers := web.NewAPIHandlers(orchestrator, approvals, campaigns, persist, validate)

	app := fiber.New()

	tpl := app.Group("/templates")
	tpl.Post("/", handlers.CreateTemplate)
	tpl.Get("/", handlers.GetTemplates)
	tpl.Get("/:id", handlers.GetTemplate)
	tpl.Delete("/:id", handlers.DeleteTemplate)

	inst := app.Group("/instances")
	inst.Post("/", handlers.StartInstance)
	inst.Get("/", handlers.GetInstances)
	inst.Get("/:id", handlers.GetInstance)
	inst.Get("/:id/executions", handlers.GetInstanceExecutions)
	inst.Post("/:id/cancel", handlers.CancelInstance)

	app.Post("/executions/:id/process", handlers.ProcessExecution)

	approvalGroup := app.Group("/approvals")
	approvalGroup.Get("/", handlers.GetApprovals)
	approvalGroup.Post("/:id/approve", handlers.ApproveNotification)
	approvalGroup.Post("/:id/reject", handlers.RejectNotification)

	camp := app.Group("/campaigns")
	camp.Post("/", handlers.CreateCampaign)
	camp.Get("/:id", handlers.GetCampaign)
	camp.Post("/:id/pause", handlers.PauseCampaign)
	camp.Post("/:id/resume", handlers.ResumeCampaign)
	camp.Post("/:id/enrollments", handlers.EnrollRecipient)

	app.Post("/recipients", handlers.CreateRecipient)
	app.Post("/enrollments/:id/reply", handlers.RecordEnrollmentReply)
	app.Get("/enrollments/:id/messages", handlers.GetEnrollmentMessages)

	app.Get("/stats", handlers.GetStats)
	app.Get("/health", handlers.HealthCheck)

	return &testStack{app: app, persistence: persist, smsGateway: smsGateway}
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body any) (*http.Response, []byte) {
	t.Helper()

	var buf bytes.Buffer

	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)

	payload, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())

	return resp, payload
}

func createTemplate(t *testing.T, app *fiber.App, tasks ...models.TaskDefinition) models.WorkflowTemplate {
	t.Helper()

	resp, body := doJSON(t, app, http.MethodPost, "/templates", web.CreateTemplateRequest{
		TenantID: "tenant-1",
		Name:     "New Lead Follow-up",
		Industry: models.IndustryRealEstate,
		Tasks:    tasks,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var template models.WorkflowTemplate
	require.NoError(t, json.Unmarshal(body, &template))

	return template
}

func smsTask(id string, order int, hitlGate bool) models.TaskDefinition {
	return models.TaskDefinition{
		ID:           id,
		Name:         id,
		Type:         models.TaskTypeSendSMS,
		DisplayOrder: order,
		DelayValue:   0,
		DelayUnit:    models.DelayMinutes,
		IsHITL:       hitlGate,
		ActionConfig: map[string]any{"message": "Hi there", "to": "+15550001111"},
	}
}

func TestCreateTemplateValidation(t *testing.T) {
	stack := setupTestApp(t)

	resp, _ := doJSON(t, stack.app, http.MethodPost, "/templates", web.CreateTemplateRequest{
		TenantID: "tenant-1",
		Name:     "No tasks",
		Industry: models.IndustryGeneral,
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = doJSON(t, stack.app, http.MethodPost, "/templates", "not-json")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestTemplateLifecycle(t *testing.T) {
	stack := setupTestApp(t)
	template := createTemplate(t, stack.app, smsTask("greet", 0, false))

	resp, body := doJSON(t, stack.app, http.MethodGet, "/templates/?tenant_id=tenant-1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var listed []models.WorkflowTemplate
	require.NoError(t, json.Unmarshal(body, &listed))
	require.Len(t, listed, 1)
	assert.Equal(t, template.ID, listed[0].ID)

	resp, _ = doJSON(t, stack.app, http.MethodDelete, "/templates/"+template.ID, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	// Soft delete: direct lookup still works, listing no longer shows it.
	resp, _ = doJSON(t, stack.app, http.MethodGet, "/templates/"+template.ID, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = doJSON(t, stack.app, http.MethodGet, "/templates/?tenant_id=tenant-1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &listed))
	assert.Empty(t, listed)

	resp, _ = doJSON(t, stack.app, http.MethodDelete, "/templates/"+template.ID, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestStartInstance(t *testing.T) {
	stack := setupTestApp(t)
	template := createTemplate(t, stack.app, smsTask("greet", 0, false))

	resp, body := doJSON(t, stack.app, http.MethodPost, "/instances", web.StartInstanceRequest{
		TemplateID: template.ID,
		TenantID:   "tenant-1",
		LeadID:     "lead-1",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var instance models.WorkflowInstance
	require.NoError(t, json.Unmarshal(body, &instance))
	assert.Equal(t, models.InstanceStatusActive, instance.Status)

	resp, body = doJSON(t, stack.app, http.MethodGet, "/instances/"+instance.ID+"/executions", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var executions []models.TaskExecution
	require.NoError(t, json.Unmarshal(body, &executions))
	require.Len(t, executions, 1)
	assert.Equal(t, models.ExecutionStatusScheduled, executions[0].Status)
}

func TestStartInstanceErrors(t *testing.T) {
	stack := setupTestApp(t)
	template := createTemplate(t, stack.app, smsTask("greet", 0, false))

	// Both lead and deal set.
	resp, _ := doJSON(t, stack.app, http.MethodPost, "/instances", web.StartInstanceRequest{
		TemplateID: template.ID,
		TenantID:   "tenant-1",
		LeadID:     "lead-1",
		DealID:     "deal-1",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Unknown template.
	resp, _ = doJSON(t, stack.app, http.MethodPost, "/instances", web.StartInstanceRequest{
		TemplateID: "nope",
		TenantID:   "tenant-1",
		LeadID:     "lead-1",
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// Another tenant's template reads as not found.
	resp, _ = doJSON(t, stack.app, http.MethodPost, "/instances", web.StartInstanceRequest{
		TemplateID: template.ID,
		TenantID:   "tenant-2",
		LeadID:     "lead-1",
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestApprovalFlow(t *testing.T) {
	stack := setupTestApp(t)
	template := createTemplate(t, stack.app, smsTask("send-offer", 0, true))

	resp, body := doJSON(t, stack.app, http.MethodPost, "/instances", web.StartInstanceRequest{
		TemplateID: template.ID,
		TenantID:   "tenant-1",
		LeadID:     "lead-1",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var instance models.WorkflowInstance
	require.NoError(t, json.Unmarshal(body, &instance))

	resp, body = doJSON(t, stack.app, http.MethodGet, "/instances/"+instance.ID+"/executions", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var executions []models.TaskExecution
	require.NoError(t, json.Unmarshal(body, &executions))
	require.Len(t, executions, 1)

	// Processing the gated task opens the approval instead of sending.
	resp, body = doJSON(t, stack.app, http.MethodPost, "/executions/"+executions[0].ID+"/process", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var processed models.TaskExecution
	require.NoError(t, json.Unmarshal(body, &processed))
	assert.Equal(t, models.ExecutionStatusAwaitingHITL, processed.Status)

	resp, body = doJSON(t, stack.app, http.MethodGet, "/approvals/?tenant_id=tenant-1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var approvals []models.HITLNotification
	require.NoError(t, json.Unmarshal(body, &approvals))
	require.Len(t, approvals, 1)

	stack.smsGateway.On("Send", mock.Anything, "+15550001111", "Hi there").
		Return(&gateways.SendResult{ID: "gw-1"}, nil)

	resp, _ = doJSON(t, stack.app, http.MethodPost, "/approvals/"+approvals[0].ID+"/approve", web.ResolveApprovalRequest{
		ApproverID: "user-9",
	})
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	stack.smsGateway.AssertExpectations(t)

	// A second decision on the same approval conflicts.
	resp, _ = doJSON(t, stack.app, http.MethodPost, "/approvals/"+approvals[0].ID+"/approve", web.ResolveApprovalRequest{
		ApproverID: "user-9",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, body = doJSON(t, stack.app, http.MethodGet, "/instances/"+instance.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &instance))
	assert.Equal(t, models.InstanceStatusCompleted, instance.Status)
}

func TestCancelInstance(t *testing.T) {
	stack := setupTestApp(t)
	template := createTemplate(t, stack.app, smsTask("greet", 0, false))

	resp, body := doJSON(t, stack.app, http.MethodPost, "/instances", web.StartInstanceRequest{
		TemplateID: template.ID,
		TenantID:   "tenant-1",
		LeadID:     "lead-1",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var instance models.WorkflowInstance
	require.NoError(t, json.Unmarshal(body, &instance))

	resp, _ = doJSON(t, stack.app, http.MethodPost, "/instances/"+instance.ID+"/cancel", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = doJSON(t, stack.app, http.MethodPost, "/instances/"+instance.ID+"/cancel", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestCampaignEndpoints(t *testing.T) {
	stack := setupTestApp(t)

	resp, body := doJSON(t, stack.app, http.MethodPost, "/campaigns", web.CreateCampaignRequest{
		TenantID:   "tenant-1",
		Name:       "Cold outreach",
		IsSequence: true,
		DailyLimit: 50,
		Steps: []models.SmsSequenceStep{
			{Ordinal: 0, Body: "Hi {{name}}"},
		},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var campaign models.SmsCampaign
	require.NoError(t, json.Unmarshal(body, &campaign))
	assert.Equal(t, models.CampaignStatusActive, campaign.Status)

	resp, body = doJSON(t, stack.app, http.MethodPost, "/recipients", web.CreateRecipientRequest{
		BusinessName: "Smith Dental",
		Phone:        "+15550001111",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var recipient models.Recipient
	require.NoError(t, json.Unmarshal(body, &recipient))

	resp, body = doJSON(t, stack.app, http.MethodPost, "/campaigns/"+campaign.ID+"/enrollments", web.EnrollRequest{
		RecipientID: recipient.ID,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var enrollment models.SmsEnrollment
	require.NoError(t, json.Unmarshal(body, &enrollment))
	assert.Equal(t, models.EnrollmentStatusActive, enrollment.Status)

	resp, _ = doJSON(t, stack.app, http.MethodPost, "/enrollments/"+enrollment.ID+"/reply", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = doJSON(t, stack.app, http.MethodPost, "/campaigns/"+campaign.ID+"/pause", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = doJSON(t, stack.app, http.MethodPost, "/campaigns/"+campaign.ID+"/pause", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, _ = doJSON(t, stack.app, http.MethodPost, "/campaigns/"+campaign.ID+"/resume", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, body = doJSON(t, stack.app, http.MethodGet, "/enrollments/"+enrollment.ID+"/messages", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var messages []models.SmsSequenceMessage
	require.NoError(t, json.Unmarshal(body, &messages))
	assert.Empty(t, messages)
}

func TestStatsAndHealth(t *testing.T) {
	stack := setupTestApp(t)
	createTemplate(t, stack.app, smsTask("greet", 0, false))

	resp, body := doJSON(t, stack.app, http.MethodGet, "/stats?tenant_id=tenant-1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var stats workflow.Stats
	require.NoError(t, json.Unmarshal(body, &stats))
	assert.Equal(t, int64(1), stats.Templates)

	resp, _ = doJSON(t, stack.app, http.MethodGet, "/stats", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = doJSON(t, stack.app, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
