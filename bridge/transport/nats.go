package transport

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	natsgo "github.com/nats-io/nats.go"

	loggingpkg "github.com/drblury/rxflow/internal/runtime/logging"
)

// NATSName selects core NATS. JetStream is left off, so messages published
// while no subscriber is connected are lost.
const NATSName = "nats"

const defaultNATSClientName = "rxflow"

var (
	NATSPublisherFactory = func(cfg nats.PublisherConfig, logger watermill.LoggerAdapter) (message.Publisher, error) {
		return nats.NewPublisher(cfg, logger)
	}
	NATSSubscriberFactory = func(cfg nats.SubscriberConfig, logger watermill.LoggerAdapter) (message.Subscriber, error) {
		return nats.NewSubscriber(cfg, logger)
	}
)

func natsOptions(cfg Config) []natsgo.Option {
	name := cfg.NATSClientName
	if name == "" {
		name = defaultNATSClientName
	}
	return []natsgo.Option{
		natsgo.Name(name),
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(-1),
	}
}

func buildNATS(_ context.Context, cfg Config, log loggingpkg.ServiceLogger) (Transport, error) {
	logger := loggingpkg.NewWatermillAdapter(log)
	marshaler := &nats.NATSMarshaler{}
	opts := natsOptions(cfg)

	publisher, err := NATSPublisherFactory(nats.PublisherConfig{
		URL:         cfg.NATSURL,
		NatsOptions: opts,
		Marshaler:   marshaler,
		JetStream:   nats.JetStreamConfig{Disabled: true},
	}, logger)
	if err != nil {
		return Transport{}, err
	}

	subscriber, err := NATSSubscriberFactory(nats.SubscriberConfig{
		URL:         cfg.NATSURL,
		NatsOptions: opts,
		Unmarshaler: marshaler,
		JetStream:   nats.JetStreamConfig{Disabled: true},
	}, logger)
	if err != nil {
		_ = publisher.Close()
		return Transport{}, err
	}

	return Transport{Publisher: publisher, Subscriber: subscriber}, nil
}
