package operators

import (
	"sync/atomic"

	runtimepkg "github.com/drblury/rxflow/internal/runtime"
	errspkg "github.com/drblury/rxflow/internal/runtime/errors"
)

// watch subscribes to notifier on behalf of op. The notifier subscription is
// owned by op, so it ends with the operator.
func watch(op *runtimepkg.Subscriber, notifier runtimepkg.Producer, next func(ns *runtimepkg.Subscriber)) error {
	if _, ok := runtimepkg.AsProducer(notifier); !ok {
		return errspkg.ErrNotifierNotObservable
	}
	var ns *runtimepkg.Subscriber
	ns = runtimepkg.NewSubscriber(runtimepkg.NewObserver(
		func(any) { next(ns) },
		op.Error,
		nil,
		nil,
	))
	op.Add(ns)
	notifier.Subscribe(ns)
	return nil
}

// TakeUntil mirrors the source until notifier emits, then completes. A
// notifier that completes without emitting has no effect.
func TakeUntil(notifier runtimepkg.Producer) runtimepkg.Operator {
	return runtimepkg.Operate(runtimepkg.Harness[struct{}]{
		Setup: func(op, _ *runtimepkg.Subscriber) (struct{}, error) {
			return struct{}{}, watch(op, notifier, func(ns *runtimepkg.Subscriber) {
				ns.Unsubscribe()
				op.Complete()
			})
		},
	})
}

// SkipUntil drops source messages until notifier emits for the first time.
func SkipUntil(notifier runtimepkg.Producer) runtimepkg.Operator {
	return runtimepkg.Operate(runtimepkg.Harness[*atomic.Bool]{
		Setup: func(op, _ *runtimepkg.Subscriber) (*atomic.Bool, error) {
			started := &atomic.Bool{}
			return started, watch(op, notifier, func(ns *runtimepkg.Subscriber) {
				started.Store(true)
				ns.Unsubscribe()
			})
		},
		Next: func(_, down *runtimepkg.Subscriber, v any, started *atomic.Bool) {
			if started.Load() {
				down.Next(v)
			}
		},
	})
}
