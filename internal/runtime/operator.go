package runtime

import (
	errspkg "github.com/drblury/rxflow/internal/runtime/errors"
)

// Harness describes an operator as a set of callbacks around an upstream
// subscription. Every callback receives the operator's own subscriber (op),
// the downstream subscriber (down) and the per-subscription state built by
// Setup. Nil callbacks forward to down unchanged.
//
// Setup runs once per subscription before the upstream is subscribed. An
// error from Setup is delivered to down and the upstream is never
// subscribed. Until Setup has returned a state, notifications take the
// forwarding defaults.
type Harness[S any] struct {
	Setup       func(op, down *Subscriber) (S, error)
	Next        func(op, down *Subscriber, v any, state S)
	Error       func(op, down *Subscriber, err error, state S)
	Complete    func(op, down *Subscriber, state S)
	Unsubscribe func(op, down *Subscriber, state S)
}

// Operate turns h into an Operator. The result is lifted onto the source, so
// piping a Subject yields a Subject.
func Operate[S any](h Harness[S]) Operator {
	return func(src Producer) Producer {
		return src.Lift(h.publisher(src))
	}
}

func (h Harness[S]) publisher(src Producer) Publisher {
	return func(down *Subscriber) Teardown {
		var state S
		var op *Subscriber
		ready := h.Setup == nil
		op = newOperatorSubscriber(NewObserver(
			func(v any) {
				if h.Next != nil && ready {
					h.Next(op, down, v, state)
					return
				}
				down.Next(v)
			},
			func(err error) {
				if h.Error != nil && ready {
					h.Error(op, down, err, state)
					return
				}
				down.Error(err)
			},
			func() {
				if h.Complete != nil && ready {
					h.Complete(op, down, state)
					return
				}
				down.Complete()
			},
			func() {
				if h.Unsubscribe != nil && ready {
					h.Unsubscribe(op, down, state)
					return
				}
				down.Unsubscribe()
			},
		))
		down.Add(op)

		if h.Setup != nil {
			s, err := runSetup(h.Setup, op, down)
			if err != nil {
				op.Error(err)
				return nil
			}
			state, ready = s, true
		}
		if !op.Closed() && !op.Stopped() {
			src.Subscribe(op)
		}
		return nil
	}
}

func runSetup[S any](setup func(op, down *Subscriber) (S, error), op, down *Subscriber) (state S, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errspkg.FromRecovered(r)
		}
	}()
	return setup(op, down)
}
