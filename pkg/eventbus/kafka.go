package eventbus

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/IBM/sarama"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v3/pkg/kafka"
)

const defaultConsumerGroup = "cg-relay-engine"

// NewKafkaEventBus builds a Kafka-backed event bus. brokers is a
// comma-separated list; consumerGroup may be empty to use the default.
func NewKafkaEventBus(logger *slog.Logger, brokers, consumerGroup string) (*WatermillEventBus, error) {
	splitBrokers := strings.Split(brokers, ",")
	if len(splitBrokers) == 0 || (len(splitBrokers) == 1 && splitBrokers[0] == "") {
		return nil, errors.New("no Kafka brokers configured")
	}

	if consumerGroup == "" {
		consumerGroup = defaultConsumerGroup
	}

	wmLogger := watermill.NewSlogLogger(logger)

	publisher, err := kafka.NewPublisher(kafka.PublisherConfig{
		Brokers:   splitBrokers,
		Marshaler: kafka.DefaultMarshaler{},
	}, wmLogger)
	if err != nil {
		return nil, err
	}

	saramaConfig := kafka.DefaultSaramaSubscriberConfig()
	saramaConfig.Consumer.Offsets.Initial = sarama.OffsetOldest

	subscriber, err := kafka.NewSubscriber(kafka.SubscriberConfig{
		Brokers:               splitBrokers,
		Unmarshaler:           kafka.DefaultMarshaler{},
		ConsumerGroup:         consumerGroup,
		OverwriteSaramaConfig: saramaConfig,
	}, wmLogger)
	if err != nil {
		return nil, err
	}

	return NewWatermillEventBus(publisher, subscriber), nil
}
