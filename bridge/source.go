package bridge

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"

	runtimepkg "github.com/drblury/rxflow/internal/runtime"
	errspkg "github.com/drblury/rxflow/internal/runtime/errors"
	loggingpkg "github.com/drblury/rxflow/internal/runtime/logging"
	metadatapkg "github.com/drblury/rxflow/internal/runtime/metadata"
)

// Delivery is what a source emits when Options.Envelope is set.
type Delivery struct {
	UUID     string
	Sequence int64
	Metadata metadatapkg.Metadata
	Value    any
}

// FromTopic returns a cold stream of the messages arriving on topic. Every
// subscriber opens its own watermill subscription, which is closed again
// when the subscriber is disposed.
//
// A message is acked once the stream has handled it. A payload the codec
// cannot decode is nacked and errors the stream. Control messages end the
// stream: complete completes it, error errors it with ErrRemoteStream.
func FromTopic(ctx context.Context, subscriber message.Subscriber, topic string, opts Options) (*runtimepkg.Observable, error) {
	if subscriber == nil {
		return nil, errspkg.ErrSubscriberRequired
	}
	if topic == "" {
		return nil, errspkg.ErrTopicRequired
	}
	if ctx == nil {
		ctx = context.Background()
	}
	opts = opts.withDefaults()
	log := opts.Logger.With(loggingpkg.LogFields{"topic": topic, "stream": opts.Stream})

	return runtimepkg.NewObservable(func(sub *runtimepkg.Subscriber) runtimepkg.Teardown {
		ctx, cancel := context.WithCancel(ctx)
		messages, err := subscriber.Subscribe(ctx, topic)
		if err != nil {
			cancel()
			sub.Error(fmt.Errorf("failed to subscribe to %s: %w", topic, err))
			return nil
		}
		log.Debug("Bridge source subscribed", nil)

		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case msg, ok := <-messages:
					if !ok {
						if ctx.Err() == nil {
							sub.Complete()
						}
						return
					}
					if !deliver(sub, msg, opts, log) {
						return
					}
				}
			}
		}()
		return runtimepkg.TeardownFunc(cancel)
	}), nil
}

// deliver hands msg to sub and reports whether the stream is still open.
func deliver(sub *runtimepkg.Subscriber, msg *message.Message, opts Options, log loggingpkg.ServiceLogger) bool {
	md := metadatapkg.FromWatermill(msg.Metadata)
	if stream := md[metadatapkg.KeyStream]; opts.Stream != "" && stream != "" && stream != opts.Stream {
		msg.Ack()
		return true
	}

	switch runtimepkg.NotificationKind(md[metadatapkg.KeyKind]) {
	case runtimepkg.NotificationComplete:
		msg.Ack()
		sub.Complete()
		return false
	case runtimepkg.NotificationError:
		msg.Ack()
		sub.Error(fmt.Errorf("%w: %s", errspkg.ErrRemoteStream, md[metadatapkg.KeyError]))
		return false
	}

	v, err := opts.Codec.Decode(msg.Payload)
	if err != nil {
		msg.Nack()
		log.Error("Failed to decode bridged message", err, loggingpkg.LogFields{"message_uuid": msg.UUID})
		sub.Error(fmt.Errorf("message %s: %w", msg.UUID, err))
		return false
	}
	if opts.Envelope {
		v = &Delivery{UUID: msg.UUID, Sequence: md.Sequence(), Metadata: md, Value: v}
	}

	sub.Next(v)
	msg.Ack()
	return !sub.Closed() && !sub.Stopped()
}
