// Package transport opens the watermill publisher and subscriber a bridge
// runs over. Brokers register a Builder under a name; Config.Broker picks
// one. The built-in brokers are channel, kafka, rabbitmq, nats, http and aws.
package transport

import (
	"errors"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// Transport is a publisher and subscriber pair on the same broker. Either
// may be nil for brokers that only go one way.
type Transport struct {
	Publisher  message.Publisher
	Subscriber message.Subscriber
}

// Close closes both sides, joining their errors. A channel transport uses one
// value for both and is closed once.
func (t Transport) Close() error {
	var errs []error
	if t.Publisher != nil {
		errs = append(errs, t.Publisher.Close())
	}
	if t.Subscriber != nil && any(t.Subscriber) != any(t.Publisher) {
		errs = append(errs, t.Subscriber.Close())
	}
	return errors.Join(errs...)
}

// Config selects a broker and carries its connection settings. Only the
// section matching Broker is read.
type Config struct {
	// Broker names the registered builder. Empty means "channel".
	Broker string

	Channel gochannel.Config

	KafkaBrokers       []string
	KafkaConsumerGroup string

	RabbitMQURL string

	NATSURL string
	// NATSClientName is reported to the NATS server for every connection.
	NATSClientName string

	HTTPServerAddress string
	HTTPPublisherURL  string

	AWSRegion          string
	AWSAccountID       string
	AWSAccessKeyID     string
	AWSSecretAccessKey string
	// AWSEndpoint overrides the SNS and SQS endpoints, e.g. for LocalStack.
	AWSEndpoint string
}

// BrokerName returns the broker to build, defaulting to channel.
func (c Config) BrokerName() string {
	if c.Broker == "" {
		return ChannelName
	}
	return c.Broker
}

// Validate reports the settings the selected built-in broker is missing.
// Brokers registered by callers are not checked.
func (c Config) Validate() error {
	var errs []error
	switch c.BrokerName() {
	case KafkaName:
		if len(c.KafkaBrokers) == 0 {
			errs = append(errs, errors.New("kafka: at least one broker address is required"))
		}
	case RabbitMQName:
		if c.RabbitMQURL == "" {
			errs = append(errs, errors.New("rabbitmq: url is required"))
		}
	case NATSName:
		if c.NATSURL == "" {
			errs = append(errs, errors.New("nats: url is required"))
		}
	case HTTPName:
		if c.HTTPServerAddress == "" && c.HTTPPublisherURL == "" {
			errs = append(errs, errors.New("http: server address or publisher url is required"))
		}
	case AWSName:
		if c.AWSRegion == "" && c.AWSEndpoint == "" {
			errs = append(errs, errors.New("aws: region or endpoint is required"))
		}
	}
	return errors.Join(errs...)
}

func (c Config) String() string {
	return fmt.Sprintf("Config{Broker:%s}", c.BrokerName())
}
