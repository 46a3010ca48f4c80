package transport

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-amqp/v3/pkg/amqp"
	"github.com/ThreeDotsLabs/watermill/message"

	loggingpkg "github.com/drblury/rxflow/internal/runtime/logging"
)

// RabbitMQName selects RabbitMQ over AMQP 0.9.1.
const RabbitMQName = "rabbitmq"

var (
	RabbitMQConnectionFactory = func(cfg amqp.ConnectionConfig, logger watermill.LoggerAdapter) (*amqp.ConnectionWrapper, error) {
		return amqp.NewConnection(cfg, logger)
	}
	RabbitMQPublisherFactory = func(cfg amqp.Config, logger watermill.LoggerAdapter, conn *amqp.ConnectionWrapper) (message.Publisher, error) {
		return amqp.NewPublisherWithConnection(cfg, logger, conn)
	}
	RabbitMQSubscriberFactory = func(cfg amqp.Config, logger watermill.LoggerAdapter, conn *amqp.ConnectionWrapper) (message.Subscriber, error) {
		return amqp.NewSubscriberWithConnection(cfg, logger, conn)
	}
)

// Publisher and subscriber share one connection; each topic gets a durable
// queue named after it.
func buildRabbitMQ(_ context.Context, cfg Config, log loggingpkg.ServiceLogger) (Transport, error) {
	logger := loggingpkg.NewWatermillAdapter(log)
	amqpConfig := amqp.NewDurablePubSubConfig(cfg.RabbitMQURL, amqp.GenerateQueueNameTopicName)

	conn, err := RabbitMQConnectionFactory(amqp.ConnectionConfig{
		AmqpURI:   cfg.RabbitMQURL,
		Reconnect: amqp.DefaultReconnectConfig(),
	}, logger)
	if err != nil {
		return Transport{}, err
	}

	publisher, err := RabbitMQPublisherFactory(amqpConfig, logger, conn)
	if err != nil {
		return Transport{}, err
	}

	subscriber, err := RabbitMQSubscriberFactory(amqpConfig, logger, conn)
	if err != nil {
		_ = publisher.Close()
		return Transport{}, err
	}

	return Transport{Publisher: publisher, Subscriber: subscriber}, nil
}
