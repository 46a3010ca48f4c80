package bridge

import (
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	loggingpkg "github.com/drblury/rxflow/internal/runtime/logging"
)

// NewChannel returns an in-process watermill pub/sub logging through log.
// It serves as both publisher and subscriber of a bridge. Set
// BlockPublishUntilSubscriberAck to keep messages in publish order.
func NewChannel(cfg gochannel.Config, log loggingpkg.ServiceLogger) *gochannel.GoChannel {
	return gochannel.NewGoChannel(cfg, loggingpkg.NewWatermillAdapter(loggingpkg.OrNop(log)))
}
