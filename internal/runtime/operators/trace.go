package operators

import (
	"context"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	runtimepkg "github.com/drblury/rxflow/internal/runtime"
)

// DefaultTracerName is used when Trace is given a nil tracer.
const DefaultTracerName = "rxflow"

type traceState struct {
	span     trace.Span
	messages atomic.Int64
	outcome  atomic.Value
}

// Trace opens one span per subscription, started under ctx. The span counts
// the messages that passed through, records an error and ends when the
// subscription is disposed. A nil tracer uses the global provider.
func Trace(ctx context.Context, tracer trace.Tracer, name string) runtimepkg.Operator {
	if ctx == nil {
		ctx = context.Background()
	}
	if tracer == nil {
		tracer = otel.Tracer(DefaultTracerName)
	}
	return runtimepkg.Operate(runtimepkg.Harness[*traceState]{
		Setup: func(_, _ *runtimepkg.Subscriber) (*traceState, error) {
			_, span := tracer.Start(ctx, name)
			st := &traceState{span: span}
			st.outcome.Store("unsubscribed")
			return st, nil
		},
		Next: func(_, down *runtimepkg.Subscriber, v any, st *traceState) {
			st.messages.Add(1)
			down.Next(v)
		},
		Error: func(_, down *runtimepkg.Subscriber, err error, st *traceState) {
			st.outcome.Store("error")
			st.span.RecordError(err)
			st.span.SetStatus(codes.Error, err.Error())
			down.Error(err)
		},
		Complete: func(_, down *runtimepkg.Subscriber, st *traceState) {
			st.outcome.Store("complete")
			st.span.SetStatus(codes.Ok, "")
			down.Complete()
		},
		Unsubscribe: func(_, down *runtimepkg.Subscriber, st *traceState) {
			down.Unsubscribe()
			st.span.SetAttributes(
				attribute.Int64("rxflow.messages", st.messages.Load()),
				attribute.String("rxflow.outcome", st.outcome.Load().(string)),
			)
			st.span.End()
		},
	})
}
