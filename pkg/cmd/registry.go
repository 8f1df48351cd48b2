package cmd

import (
	"log/slog"

	"github.com/relaycrm/relay/pkg/executors/appointment"
	"github.com/relaycrm/relay/pkg/executors/cma"
	"github.com/relaycrm/relay/pkg/executors/crmtask"
	"github.com/relaycrm/relay/pkg/executors/document"
	"github.com/relaycrm/relay/pkg/executors/marketresearch"
	"github.com/relaycrm/relay/pkg/executors/presentation"
	"github.com/relaycrm/relay/pkg/executors/reminder"
	"github.com/relaycrm/relay/pkg/executors/sendemail"
	"github.com/relaycrm/relay/pkg/executors/sendsms"
	"github.com/relaycrm/relay/pkg/executors/voicecall"
	"github.com/relaycrm/relay/pkg/executors/voiceprovision"
	"github.com/relaycrm/relay/pkg/gateways"
	"github.com/relaycrm/relay/pkg/gateways/logging"
	"github.com/relaycrm/relay/pkg/models"
	"github.com/relaycrm/relay/pkg/registry"
)

// Gateways bundles the external collaborators the executors need.
type Gateways struct {
	SMS              gateways.SMSGateway
	Email            gateways.EmailGateway
	Calendar         gateways.Calendar
	Voice            gateways.VoiceGateway
	Notifications    gateways.NotificationSink
	VoiceProvisioner gateways.VoiceProvisioner
}

// NewLoggingGateways builds log-only gateway implementations for development
// and unintegrated deployments.
func NewLoggingGateways(logger *slog.Logger) Gateways {
	return Gateways{
		SMS:              logging.NewSMSGateway(logger),
		Email:            logging.NewEmailGateway(logger),
		Calendar:         logging.NewCalendar(logger),
		Voice:            logging.NewVoiceGateway(logger),
		Notifications:    logging.NewNotificationSink(logger),
		VoiceProvisioner: logging.NewVoiceProvisioner(logger),
	}
}

// NewRegistry wires every built-in executor. Generation tasks register for
// REAL_ESTATE only; CMA reports and listing presentations have no meaning in
// the other verticals. Everything else registers as a GENERAL fallback.
func NewRegistry(logger *slog.Logger, gw Gateways) *registry.Registry {
	reg := registry.NewRegistry(logger)

	reg.RegisterGeneral(sendsms.NewFactory(gw.SMS))
	reg.RegisterGeneral(sendemail.NewFactory(gw.Email))
	reg.RegisterGeneral(voicecall.NewFactory(gw.Voice))
	reg.RegisterGeneral(appointment.NewFactory(gw.Calendar))
	reg.RegisterGeneral(reminder.NewFactory(gw.Notifications))
	reg.RegisterGeneral(crmtask.NewFactory(gw.Notifications))
	reg.RegisterGeneral(document.NewFactory())
	reg.RegisterGeneral(marketresearch.NewFactory())
	reg.RegisterGeneral(voiceprovision.NewFactory(gw.VoiceProvisioner))

	reg.Register(models.IndustryRealEstate, cma.NewFactory())
	reg.Register(models.IndustryRealEstate, presentation.NewFactory())

	return reg
}
