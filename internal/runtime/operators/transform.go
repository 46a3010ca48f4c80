package operators

import (
	runtimepkg "github.com/drblury/rxflow/internal/runtime"
)

// Map emits project(v) for every message.
func Map(project func(v any) any) runtimepkg.Operator {
	return runtimepkg.Operate(runtimepkg.Harness[struct{}]{
		Next: func(_, down *runtimepkg.Subscriber, v any, _ struct{}) {
			down.Next(project(v))
		},
	})
}

// MapTo replaces every message with value.
func MapTo(value any) runtimepkg.Operator {
	return runtimepkg.Operate(runtimepkg.Harness[struct{}]{
		Next: func(_, down *runtimepkg.Subscriber, _ any, _ struct{}) {
			down.Next(value)
		},
	})
}

// Filter keeps the messages predicate accepts.
func Filter(predicate func(v any) bool) runtimepkg.Operator {
	return runtimepkg.Operate(runtimepkg.Harness[struct{}]{
		Next: func(_, down *runtimepkg.Subscriber, v any, _ struct{}) {
			if predicate(v) {
				down.Next(v)
			}
		},
	})
}

// Tap calls fn with every message before forwarding it.
func Tap(fn func(v any)) runtimepkg.Operator {
	return runtimepkg.Operate(runtimepkg.Harness[struct{}]{
		Next: func(_, down *runtimepkg.Subscriber, v any, _ struct{}) {
			fn(v)
			down.Next(v)
		},
	})
}

// Finalize calls fn once the subscription is disposed, whichever way the
// stream ended.
func Finalize(fn func()) runtimepkg.Operator {
	return runtimepkg.Operate(runtimepkg.Harness[struct{}]{
		Unsubscribe: func(_, down *runtimepkg.Subscriber, _ struct{}) {
			down.Unsubscribe()
			fn()
		},
	})
}

type accumulator struct{ value any }

// Scan emits the running accumulation of the source, starting from seed.
func Scan(accumulate func(acc, v any) any, seed any) runtimepkg.Operator {
	return runtimepkg.Operate(runtimepkg.Harness[*accumulator]{
		Setup: func(_, _ *runtimepkg.Subscriber) (*accumulator, error) {
			return &accumulator{value: seed}, nil
		},
		Next: func(_, down *runtimepkg.Subscriber, v any, acc *accumulator) {
			acc.value = accumulate(acc.value, v)
			down.Next(acc.value)
		},
	})
}

// Reduce emits the final accumulation of the source when it completes.
func Reduce(accumulate func(acc, v any) any, seed any) runtimepkg.Operator {
	return runtimepkg.Operate(runtimepkg.Harness[*accumulator]{
		Setup: func(_, _ *runtimepkg.Subscriber) (*accumulator, error) {
			return &accumulator{value: seed}, nil
		},
		Next: func(_, _ *runtimepkg.Subscriber, v any, acc *accumulator) {
			acc.value = accumulate(acc.value, v)
		},
		Complete: func(_, down *runtimepkg.Subscriber, acc *accumulator) {
			down.Next(acc.value)
			down.Complete()
		},
	})
}

// Pairwise emits [previous, current] for every message after the first.
func Pairwise() runtimepkg.Operator {
	return runtimepkg.Operate(runtimepkg.Harness[*found]{
		Setup: newFound,
		Next: func(_, down *runtimepkg.Subscriber, v any, prev *found) {
			if prev.ok {
				down.Next([2]any{prev.value, v})
			}
			prev.ok, prev.value = true, v
		},
	})
}

// ToArray collects the source and emits it as one []any on completion.
func ToArray() runtimepkg.Operator {
	type collected struct{ values []any }
	return runtimepkg.Operate(runtimepkg.Harness[*collected]{
		Setup: func(_, _ *runtimepkg.Subscriber) (*collected, error) {
			return &collected{values: []any{}}, nil
		},
		Next: func(_, _ *runtimepkg.Subscriber, v any, c *collected) {
			c.values = append(c.values, v)
		},
		Complete: func(_, down *runtimepkg.Subscriber, c *collected) {
			down.Next(c.values)
			down.Complete()
		},
	})
}

// StartWith emits values ahead of the first source message. A source that
// never emits never receives the prefix.
func StartWith(values ...any) runtimepkg.Operator {
	prefix := append([]any(nil), values...)
	return runtimepkg.Operate(runtimepkg.Harness[*counter]{
		Setup: newCounter,
		Next: func(_, down *runtimepkg.Subscriber, v any, started *counter) {
			if started.n == 0 {
				started.n = 1
				for _, p := range prefix {
					down.Next(p)
				}
			}
			down.Next(v)
		},
	})
}

// Materialize turns every event into a runtime.Notification message. The
// result completes after emitting the terminal notification.
func Materialize() runtimepkg.Operator {
	return runtimepkg.Operate(runtimepkg.Harness[struct{}]{
		Next: func(_, down *runtimepkg.Subscriber, v any, _ struct{}) {
			down.Next(runtimepkg.NextNotification(v))
		},
		Error: func(_, down *runtimepkg.Subscriber, err error, _ struct{}) {
			down.Next(runtimepkg.ErrorNotification(err))
			down.Complete()
		},
		Complete: func(_, down *runtimepkg.Subscriber, _ struct{}) {
			down.Next(runtimepkg.CompleteNotification())
			down.Complete()
		},
	})
}

// Dematerialize replays Notification messages as events. Other messages
// pass through unchanged.
func Dematerialize() runtimepkg.Operator {
	return runtimepkg.Operate(runtimepkg.Harness[struct{}]{
		Next: func(_, down *runtimepkg.Subscriber, v any, _ struct{}) {
			switch n := v.(type) {
			case runtimepkg.Notification:
				n.Accept(down)
			case *runtimepkg.Notification:
				n.Accept(down)
			default:
				down.Next(v)
			}
		},
	})
}
