package transport

import (
	"context"
	nethttp "net/http"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-http/v2/pkg/http"
	"github.com/ThreeDotsLabs/watermill/message"

	loggingpkg "github.com/drblury/rxflow/internal/runtime/logging"
)

// HTTPName selects plain HTTP: the publisher POSTs each message to
// HTTPPublisherURL plus the topic, the subscriber serves HTTPServerAddress.
const HTTPName = "http"

var (
	HTTPPublisherFactory = func(cfg http.PublisherConfig, logger watermill.LoggerAdapter) (message.Publisher, error) {
		return http.NewPublisher(cfg, logger)
	}
	HTTPSubscriberFactory = func(addr string, cfg http.SubscriberConfig, logger watermill.LoggerAdapter) (message.Subscriber, error) {
		return http.NewSubscriber(addr, cfg, logger)
	}
)

func buildHTTP(_ context.Context, cfg Config, log loggingpkg.ServiceLogger) (Transport, error) {
	logger := loggingpkg.NewWatermillAdapter(log)
	var t Transport

	if cfg.HTTPPublisherURL != "" {
		base := cfg.HTTPPublisherURL
		publisher, err := HTTPPublisherFactory(http.PublisherConfig{
			MarshalMessageFunc: func(topic string, msg *message.Message) (*nethttp.Request, error) {
				return http.DefaultMarshalMessageFunc(base+topic, msg)
			},
		}, logger)
		if err != nil {
			return Transport{}, err
		}
		t.Publisher = publisher
	}

	if cfg.HTTPServerAddress != "" {
		subscriber, err := HTTPSubscriberFactory(cfg.HTTPServerAddress, http.SubscriberConfig{
			UnmarshalMessageFunc: http.DefaultUnmarshalMessageFunc,
		}, logger)
		if err != nil {
			_ = t.Close()
			return Transport{}, err
		}
		t.Subscriber = subscriber

		if s, ok := subscriber.(*http.Subscriber); ok {
			go func() {
				if err := s.StartHTTPServer(); err != nil {
					log.Error("HTTP subscriber server stopped", err, nil)
				}
			}()
		}
	}
	return t, nil
}
