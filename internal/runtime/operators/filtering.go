package operators

import (
	runtimepkg "github.com/drblury/rxflow/internal/runtime"
	errspkg "github.com/drblury/rxflow/internal/runtime/errors"
)

type counter struct{ n int }

func newCounter(_, _ *runtimepkg.Subscriber) (*counter, error) { return &counter{}, nil }

// Take emits the first n messages and completes. n must be positive;
// otherwise subscribers receive ErrTakeCount.
func Take(n int) runtimepkg.Operator {
	return runtimepkg.Operate(runtimepkg.Harness[*counter]{
		Setup: func(_, _ *runtimepkg.Subscriber) (*counter, error) {
			if n <= 0 {
				return nil, errspkg.ErrTakeCount
			}
			return &counter{}, nil
		},
		Next: func(op, down *runtimepkg.Subscriber, v any, c *counter) {
			c.n++
			down.Next(v)
			if c.n >= n {
				op.Complete()
			}
		},
	})
}

// TakeWhile emits messages while predicate holds and completes on the first
// message that fails it.
func TakeWhile(predicate func(v any) bool) runtimepkg.Operator {
	return runtimepkg.Operate(runtimepkg.Harness[struct{}]{
		Next: func(op, down *runtimepkg.Subscriber, v any, _ struct{}) {
			if !predicate(v) {
				op.Complete()
				return
			}
			down.Next(v)
		},
	})
}

// Skip drops the first n messages.
func Skip(n int) runtimepkg.Operator {
	return runtimepkg.Operate(runtimepkg.Harness[*counter]{
		Setup: newCounter,
		Next: func(_, down *runtimepkg.Subscriber, v any, c *counter) {
			if c.n < n {
				c.n++
				return
			}
			down.Next(v)
		},
	})
}

// SkipWhile drops messages until predicate first fails, then mirrors the
// source.
func SkipWhile(predicate func(v any) bool) runtimepkg.Operator {
	type latch struct{ open bool }
	return runtimepkg.Operate(runtimepkg.Harness[*latch]{
		Setup: func(_, _ *runtimepkg.Subscriber) (*latch, error) { return &latch{}, nil },
		Next: func(_, down *runtimepkg.Subscriber, v any, l *latch) {
			if !l.open && predicate(v) {
				return
			}
			l.open = true
			down.Next(v)
		},
	})
}

type found struct {
	ok    bool
	value any
}

func newFound(_, _ *runtimepkg.Subscriber) (*found, error) { return &found{}, nil }

// First emits the first message matching predicate (any message when
// predicate is nil) and completes. A source that completes without a match
// errors with ErrNoElements.
func First(predicate func(v any) bool) runtimepkg.Operator {
	return runtimepkg.Operate(runtimepkg.Harness[*found]{
		Setup: newFound,
		Next: func(op, down *runtimepkg.Subscriber, v any, f *found) {
			if predicate != nil && !predicate(v) {
				return
			}
			f.ok, f.value = true, v
			down.Next(v)
			op.Complete()
		},
		Complete: func(_, down *runtimepkg.Subscriber, f *found) {
			if !f.ok {
				down.Error(errspkg.ErrNoElements)
				return
			}
			down.Complete()
		},
	})
}

// Last emits the last message matching predicate once the source completes.
// Without a match it errors with ErrNoElements.
func Last(predicate func(v any) bool) runtimepkg.Operator {
	return runtimepkg.Operate(runtimepkg.Harness[*found]{
		Setup: newFound,
		Next: func(_, _ *runtimepkg.Subscriber, v any, f *found) {
			if predicate == nil || predicate(v) {
				f.ok, f.value = true, v
			}
		},
		Complete: func(_, down *runtimepkg.Subscriber, f *found) {
			if !f.ok {
				down.Error(errspkg.ErrNoElements)
				return
			}
			down.Next(f.value)
			down.Complete()
		},
	})
}
