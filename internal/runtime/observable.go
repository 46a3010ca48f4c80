package runtime

import (
	"fmt"
	"reflect"

	errspkg "github.com/drblury/rxflow/internal/runtime/errors"
)

// Publisher starts a stream for one subscriber. It may return a Teardown
// that is released when the subscriber is disposed.
type Publisher func(sub *Subscriber) Teardown

// Operator transforms one Producer into another.
type Operator func(Producer) Producer

// Producer is implemented by everything that can be subscribed and piped:
// Observables, the Subject family and Connectables.
type Producer interface {
	Subscribe(sink Sink) *Subscriber
	// Lift returns a Producer of the same family running p for each
	// subscriber.
	Lift(p Publisher) Producer
	Pipe(ops ...Operator) Producer

	producer()
}

// Observable is a cold stream: every subscription runs the publisher again.
type Observable struct {
	publisher Publisher
}

// NewObservable returns an Observable backed by p. A nil publisher never
// emits anything.
func NewObservable(p Publisher) *Observable {
	return &Observable{publisher: p}
}

func (o *Observable) producer() {}

// Subscribe runs the publisher for sink and returns the subscriber handle.
func (o *Observable) Subscribe(sink Sink) *Subscriber {
	return subscribe(o.publisher, NewSubscriber(sink))
}

func (o *Observable) Lift(p Publisher) Producer {
	return NewObservable(p)
}

func (o *Observable) Pipe(ops ...Operator) Producer {
	return mustPipe(o, ops)
}

// subscribe marks sub connected, starts p and ties the returned teardown to
// sub. A panicking publisher errors the subscriber.
func subscribe(p Publisher, sub *Subscriber) *Subscriber {
	if sub.Closed() {
		return sub
	}
	sub.markConnected()
	if p == nil {
		return sub
	}

	teardown, err := runPublisher(p, sub)
	if err != nil {
		sub.Error(err)
	}
	if teardown != nil {
		sub.Add(teardown)
	}
	return sub
}

func runPublisher(p Publisher, sub *Subscriber) (teardown Teardown, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errspkg.FromRecovered(r)
		}
	}()
	return p(sub), nil
}

// Pipe applies ops to src left to right. Nil operators are skipped. It panics
// with an error wrapping ErrNotObservable when a stage yields nothing.
func Pipe(src Producer, ops ...Operator) Producer {
	return mustPipe(src, ops)
}

// TryPipe is Pipe returning the ErrNotObservable failure instead of
// panicking.
func TryPipe(src Producer, ops ...Operator) (Producer, error) {
	if isNilProducer(src) {
		return nil, fmt.Errorf("%w: nil source", errspkg.ErrNotObservable)
	}
	cur := src
	for i, op := range ops {
		if op == nil {
			continue
		}
		next := op(cur)
		if isNilProducer(next) {
			return nil, fmt.Errorf("%w: stage %d", errspkg.ErrNotObservable, i)
		}
		cur = next
	}
	return cur, nil
}

func mustPipe(src Producer, ops []Operator) Producer {
	p, err := TryPipe(src, ops...)
	if err != nil {
		panic(err)
	}
	return p
}

// AsProducer reports whether v can be subscribed.
func AsProducer(v any) (Producer, bool) {
	p, ok := v.(Producer)
	if !ok || isNilProducer(p) {
		return nil, false
	}
	return p, true
}

func isNilProducer(p Producer) bool {
	if p == nil {
		return true
	}
	v := reflect.ValueOf(p)
	return v.Kind() == reflect.Pointer && v.IsNil()
}
