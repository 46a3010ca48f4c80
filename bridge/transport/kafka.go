package transport

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v3/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"

	loggingpkg "github.com/drblury/rxflow/internal/runtime/logging"
)

// KafkaName selects Kafka. A stream keeps its order within one partition,
// so bridged topics should use a single partition or a stable key.
const KafkaName = "kafka"

var (
	KafkaPublisherFactory = func(cfg kafka.PublisherConfig, logger watermill.LoggerAdapter) (message.Publisher, error) {
		return kafka.NewPublisher(cfg, logger)
	}
	KafkaSubscriberFactory = func(cfg kafka.SubscriberConfig, logger watermill.LoggerAdapter) (message.Subscriber, error) {
		return kafka.NewSubscriber(cfg, logger)
	}
)

func buildKafka(_ context.Context, cfg Config, log loggingpkg.ServiceLogger) (Transport, error) {
	logger := loggingpkg.NewWatermillAdapter(log)

	publisher, err := KafkaPublisherFactory(kafka.PublisherConfig{
		Brokers:   cfg.KafkaBrokers,
		Marshaler: kafka.DefaultMarshaler{},
	}, logger)
	if err != nil {
		return Transport{}, err
	}

	subscriber, err := KafkaSubscriberFactory(kafka.SubscriberConfig{
		Brokers:       cfg.KafkaBrokers,
		Unmarshaler:   kafka.DefaultMarshaler{},
		ConsumerGroup: cfg.KafkaConsumerGroup,
	}, logger)
	if err != nil {
		_ = publisher.Close()
		return Transport{}, err
	}

	return Transport{Publisher: publisher, Subscriber: subscriber}, nil
}
