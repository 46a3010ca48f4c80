package bridge

import (
	"context"
	"fmt"
	"sync"

	"github.com/ThreeDotsLabs/watermill/message"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	runtimepkg "github.com/drblury/rxflow/internal/runtime"
	errspkg "github.com/drblury/rxflow/internal/runtime/errors"
	idspkg "github.com/drblury/rxflow/internal/runtime/ids"
	loggingpkg "github.com/drblury/rxflow/internal/runtime/logging"
	metadatapkg "github.com/drblury/rxflow/internal/runtime/metadata"
)

// Sink publishes the notifications it receives onto a topic, one message
// each, numbered from zero in the rxflow_sequence header.
//
// The first encode or publish failure stops the sink: it detaches from its
// source, reports the error to Options.OnError and drops everything after.
type Sink struct {
	ctx       context.Context
	publisher message.Publisher
	topic     string
	opts      Options
	log       loggingpkg.ServiceLogger

	mu        sync.Mutex
	seq       int64
	published int64
	err       error
	sub       *runtimepkg.Subscriber
}

// NewSink prepares a Sink for topic. Use Attach or Publish to feed it.
func NewSink(ctx context.Context, publisher message.Publisher, topic string, opts Options) (*Sink, error) {
	if publisher == nil {
		return nil, errspkg.ErrPublisherRequired
	}
	if topic == "" {
		return nil, errspkg.ErrTopicRequired
	}
	if ctx == nil {
		ctx = context.Background()
	}
	opts = opts.withDefaults()
	return &Sink{
		ctx:       ctx,
		publisher: publisher,
		topic:     topic,
		opts:      opts,
		log:       opts.Logger.With(loggingpkg.LogFields{"topic": topic, "stream": opts.Stream}),
	}, nil
}

// Publish subscribes a new Sink for topic to src.
func Publish(ctx context.Context, src runtimepkg.Producer, publisher message.Publisher, topic string, opts Options) (*Sink, error) {
	if _, ok := runtimepkg.AsProducer(src); !ok {
		return nil, errspkg.ErrNotObservable
	}
	s, err := NewSink(ctx, publisher, topic, opts)
	if err != nil {
		return nil, err
	}
	s.Attach(src)
	return s, nil
}

// Attach subscribes s to src and returns the subscription. A sink feeds
// from one source; attaching again replaces the one Stop releases.
func (s *Sink) Attach(src runtimepkg.Producer) *runtimepkg.Subscriber {
	sub := runtimepkg.NewSubscriber(s)

	s.mu.Lock()
	s.sub = sub
	failed := s.err != nil
	s.mu.Unlock()

	if failed {
		sub.Unsubscribe()
		return sub
	}
	return src.Subscribe(sub)
}

// Stop detaches the sink from its source.
func (s *Sink) Stop() {
	s.mu.Lock()
	sub := s.sub
	s.mu.Unlock()
	if sub != nil {
		sub.Unsubscribe()
	}
}

// Err returns the failure that stopped the sink.
func (s *Sink) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Published reports how many messages the publisher accepted.
func (s *Sink) Published() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.published
}

func (s *Sink) Next(v any) {
	payload, err := s.opts.Codec.Encode(v)
	if err != nil {
		s.fail(err)
		return
	}
	s.publish(runtimepkg.NotificationNext, payload, nil)
}

func (s *Sink) Error(err error) {
	s.publish(runtimepkg.NotificationError, nil, metadatapkg.Metadata{metadatapkg.KeyError: err.Error()})
}

func (s *Sink) Complete() {
	s.publish(runtimepkg.NotificationComplete, nil, nil)
}

func (s *Sink) publish(kind runtimepkg.NotificationKind, payload []byte, extra metadatapkg.Metadata) {
	s.mu.Lock()
	if s.err != nil {
		s.mu.Unlock()
		return
	}
	seq := s.seq
	s.seq++
	s.mu.Unlock()

	msg := message.NewMessage(idspkg.CreateULID(), payload)
	md := s.opts.Metadata.WithAll(extra).WithAll(metadatapkg.Metadata{
		metadatapkg.KeyStream:      s.opts.Stream,
		metadatapkg.KeyKind:        string(kind),
		metadatapkg.KeyContentType: s.opts.Codec.ContentType(),
	})
	msg.Metadata = metadatapkg.ToWatermill(md.WithSequence(seq))

	ctx, span := s.opts.Tracer.Start(s.ctx, "PublishNotification",
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			attribute.String("message.uuid", msg.UUID),
			attribute.String("messaging.destination", s.topic),
			attribute.String("rxflow.kind", string(kind)),
			attribute.Int64("rxflow.sequence", seq),
		),
	)
	defer span.End()
	msg.SetContext(ctx)

	if err := s.publisher.Publish(s.topic, msg); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.fail(fmt.Errorf("failed to publish to %s: %w", s.topic, err))
		return
	}
	s.mu.Lock()
	s.published++
	s.mu.Unlock()
	s.log.Trace("Published notification", loggingpkg.LogFields{
		"message_uuid": msg.UUID,
		"kind":         kind,
		"sequence":     seq,
	})
}

func (s *Sink) fail(err error) {
	s.mu.Lock()
	if s.err != nil {
		s.mu.Unlock()
		return
	}
	s.err = err
	sub := s.sub
	s.mu.Unlock()

	s.log.Error("Bridge sink stopped", err, nil)
	if s.opts.OnError != nil {
		s.opts.OnError(err)
	}
	if sub != nil {
		sub.Unsubscribe()
	}
}
