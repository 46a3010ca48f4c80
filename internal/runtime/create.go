package runtime

import (
	"context"
	"iter"
	"time"

	"github.com/drblury/rxflow/internal/runtime/scheduler"
)

// Of emits values in order and completes.
func Of(values ...any) *Observable {
	return FromSlice(values, nil)
}

// FromSlice emits the elements of values in order and completes. With a nil
// scheduler everything is emitted during Subscribe; otherwise each element is
// emitted from its own run of a scheduled action.
func FromSlice[T any](values []T, sched *scheduler.Scheduler) *Observable {
	items := make([]T, len(values))
	copy(items, values)

	return NewObservable(func(sub *Subscriber) Teardown {
		if sched == nil {
			for _, v := range items {
				if sub.Stopped() {
					return nil
				}
				sub.Next(v)
			}
			sub.Complete()
			return nil
		}

		action, err := sched.Schedule(func(a *scheduler.Action, state any) error {
			i := state.(int)
			if i >= len(items) {
				sub.Complete()
				return nil
			}
			sub.Next(items[i])
			return a.Schedule(i+1, 0)
		}, 0, 0)
		if err != nil {
			sub.Error(err)
		}
		return action
	})
}

// FromSeq emits the values of seq and completes. Iteration stops as soon as
// the subscriber is disposed.
func FromSeq[T any](seq iter.Seq[T]) *Observable {
	return NewObservable(func(sub *Subscriber) Teardown {
		for v := range seq {
			if sub.Stopped() {
				return nil
			}
			sub.Next(v)
		}
		sub.Complete()
		return nil
	})
}

// FromChan forwards values received on ch from a goroutine started per
// subscriber. A closed channel completes the stream; cancelling ctx errors it
// with the context's cause. Unsubscribing stops the goroutine.
func FromChan[T any](ctx context.Context, ch <-chan T) *Observable {
	return NewObservable(func(sub *Subscriber) Teardown {
		ctx, cancel := context.WithCancel(ctx)
		go func() {
			for {
				select {
				case <-ctx.Done():
					if !sub.Stopped() {
						sub.Error(context.Cause(ctx))
					}
					return
				case v, ok := <-ch:
					if !ok {
						sub.Complete()
						return
					}
					sub.Next(v)
				}
			}
		}()
		return TeardownFunc(cancel)
	})
}

// Empty completes immediately.
func Empty() *Observable {
	return NewObservable(func(sub *Subscriber) Teardown {
		sub.Complete()
		return nil
	})
}

// Never emits nothing and never finishes.
func Never() *Observable {
	return NewObservable(nil)
}

// Throw errors immediately with err.
func Throw(err error) *Observable {
	return NewObservable(func(sub *Subscriber) Teardown {
		sub.Error(err)
		return nil
	})
}

// Interval emits 0, 1, 2, ... every period on sched, which defaults to the
// async scheduler. The same action and timer serve every tick.
func Interval(period time.Duration, sched *scheduler.Scheduler) *Observable {
	if period <= 0 {
		period = time.Millisecond
	}
	if sched == nil {
		sched = scheduler.Async()
	}
	return NewObservable(func(sub *Subscriber) Teardown {
		action, err := sched.Schedule(func(a *scheduler.Action, state any) error {
			n := state.(int)
			sub.Next(n)
			return a.Schedule(n+1, period)
		}, 0, period)
		if err != nil {
			sub.Error(err)
			return nil
		}
		return action
	})
}

// Timer emits 0 once delay has passed on sched and completes.
func Timer(delay time.Duration, sched *scheduler.Scheduler) *Observable {
	if sched == nil {
		sched = scheduler.Async()
	}
	return NewObservable(func(sub *Subscriber) Teardown {
		action, err := sched.Schedule(func(*scheduler.Action, any) error {
			sub.Next(0)
			sub.Complete()
			return nil
		}, nil, delay)
		if err != nil {
			sub.Error(err)
			return nil
		}
		return action
	})
}
