package cmd

import (
	"fmt"
	"log/slog"

	"github.com/relaycrm/relay/pkg/eventbus"
)

// NewEventBus builds the event bus from the provider name. Kafka connects
// through the comma-separated brokers list; gochannel is in-process and suits
// single-binary deployments.
func NewEventBus(provider string, logger *slog.Logger, kafkaBrokers string) eventbus.EventBus {
	switch provider {
	case "kafka":
		bus, err := eventbus.NewKafkaEventBus(logger, kafkaBrokers, "")
		if err != nil {
			panic(fmt.Errorf("failed to create Kafka event bus: %w", err))
		}

		return bus
	case "gochannel", "":
		return eventbus.NewGoChannelEventBus(logger)
	default:
		panic("unsupported event bus provider: " + provider)
	}
}
