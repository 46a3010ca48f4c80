// Package bridge connects streams to watermill topics. FromTopic turns a
// message.Subscriber into a stream and Sink publishes a stream's
// notifications, so a pipeline can span processes over any watermill
// transport.
//
// Values travel as encoded payloads. Error and Complete travel as control
// messages marked in the rxflow_kind header, so the receiving stream ends the
// same way the publishing one did.
package bridge

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	loggingpkg "github.com/drblury/rxflow/internal/runtime/logging"
	metadatapkg "github.com/drblury/rxflow/internal/runtime/metadata"
)

// TracerName names the tracer used when Options.Tracer is nil.
const TracerName = "rxflow/bridge"

// Options configure both ends of a bridge.
type Options struct {
	// Codec defaults to JSONCodec[any].
	Codec Codec
	// Stream labels published messages. A source with a Stream set skips
	// messages labelled with another stream.
	Stream string
	// Metadata is copied onto every published message.
	Metadata metadatapkg.Metadata
	// Envelope makes sources emit *Delivery values instead of bare payloads.
	Envelope bool
	Logger   loggingpkg.ServiceLogger
	Tracer   trace.Tracer
	// OnError is told when a sink stops because a value could not be encoded
	// or published.
	OnError func(error)
}

func (o Options) withDefaults() Options {
	if o.Codec == nil {
		o.Codec = JSONCodec[any]{}
	}
	if o.Tracer == nil {
		o.Tracer = otel.Tracer(TracerName)
	}
	o.Logger = loggingpkg.OrNop(o.Logger)
	return o
}
