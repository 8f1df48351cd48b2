// Package main provides the relay API server implementation.
package main

import (
	"log/slog"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	fiberlogger "github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/relaycrm/relay/pkg/counters"
	"github.com/relaycrm/relay/pkg/drip"
	"github.com/relaycrm/relay/pkg/eventbus"
	"github.com/relaycrm/relay/pkg/gateways"
	"github.com/relaycrm/relay/pkg/hitl"
	"github.com/relaycrm/relay/pkg/persistence"
	"github.com/relaycrm/relay/pkg/registry"
	"github.com/relaycrm/relay/pkg/web"
	"github.com/relaycrm/relay/pkg/workflow"
)

type API struct {
	logger       *slog.Logger
	persistence  persistence.Persistence
	registry     *registry.Registry
	eventBus     eventbus.EventBus
	sendCounters counters.Counters
	smsGateway   gateways.SMSGateway
	notifier     gateways.NotificationSink
	validate     *validator.Validate
}

func NewAPI(
	logger *slog.Logger,
	persist persistence.Persistence,
	reg *registry.Registry,
	eventBus eventbus.EventBus,
	sendCounters counters.Counters,
	smsGateway gateways.SMSGateway,
	notifier gateways.NotificationSink,
) *API {
	return &API{
		logger:       logger,
		persistence:  persist,
		registry:     reg,
		eventBus:     eventBus,
		sendCounters: sendCounters,
		smsGateway:   smsGateway,
		notifier:     notifier,
		validate:     validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	orchestrator := workflow.NewOrchestrator(a.logger, a.persistence, a.registry, a.eventBus, a.notifier, nil)
	approvals := hitl.NewManager(a.logger, a.persistence, orchestrator, a.eventBus)
	campaigns := drip.NewProcessor(a.logger, a.persistence, a.sendCounters, a.smsGateway, a.eventBus)

	handlers := web.NewAPIHandlers(orchestrator, approvals, campaigns, a.persistence, a.validate)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Relay Workflow API")
	})

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

	return app
}

func (a *API) Start(port int) error {
	return a.App().Listen(":" + strconv.Itoa(port))
}
