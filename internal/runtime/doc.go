/*
Package runtime provides the stream engine behind rxflow.

# Architecture Overview

Everything is push based. A Producer is subscribed with a Sink and answers
with a Subscriber, which is at once the Sink wrapper that enforces the
notification grammar (any number of Next, then at most one Error or
Complete) and the Subscription that owns the stream's resources.

# Package Structure

## Subscriptions (subscription.go, subscriber.go, observer.go)

Subscription holds teardowns and disposes them once, in insertion order,
followed by its finalizer. Subscriber adds the stopped and closed states and
recovers panics raised by Sink callbacks into PanicError.

## Observables (observable.go, create.go, operator.go)

Observable runs a Publisher per subscription. Lift and Pipe build new
observables from operators; Operate turns a Harness of callbacks into an
operator and takes care of forwarding and disposal.

## Subjects (subject.go, behaviour_subject.go, replay_subject.go)

Subjects are observable and observer at once and fan notifications out to a
snapshot of their subscribers.

## Multicast (connectable.go, hooks.go)

Connectable shares one upstream subscription through a subject, with
optional reference counting, replay and lifecycle hooks.

## Engine (engine.go)

Engine builds the four schedulers from Config over one clock and wires
logging and Prometheus metrics into them.

# Sub-packages

  - config/: Engine configuration with validation
  - errors/: Sentinel errors and error types
  - ids/: ULID generation for subjects, actions and messages
  - jsoncodec/: JSON marshaling backed by sonic
  - logging/: Logger interface and Watermill adapters
  - metadata/: Headers of bridged notifications
  - metrics/: Prometheus collectors for schedulers and connectables
  - operators/: The operator library
  - scheduler/: Actions, clocks and the dispatch disciplines

# Usage Example

	engine := rxflow.NewEngine(&rxflow.Config{DefaultScheduler: "async"}, logger, rxflow.EngineDependencies{})

	rxflow.Pipe(
		rxflow.Interval(time.Second, engine.Default()),
		rxflow.Filter(func(v any) bool { return v.(int)%2 == 0 }),
		rxflow.Take(5),
	).Subscribe(rxflow.OnNext(func(v any) { fmt.Println(v) }))
*/
package runtime
