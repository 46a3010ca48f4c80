package transport

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	loggingpkg "github.com/drblury/rxflow/internal/runtime/logging"
)

// ChannelName selects the in-process broker.
const ChannelName = "channel"

// ChannelFactory creates the in-process pub/sub; tests may replace it.
var ChannelFactory = func(cfg gochannel.Config, logger watermill.LoggerAdapter) *gochannel.GoChannel {
	return gochannel.NewGoChannel(cfg, logger)
}

func buildChannel(_ context.Context, cfg Config, log loggingpkg.ServiceLogger) (Transport, error) {
	pubSub := ChannelFactory(cfg.Channel, loggingpkg.NewWatermillAdapter(log))
	return Transport{Publisher: pubSub, Subscriber: pubSub}, nil
}
