package operators

import (
	"slices"
	"sync"

	runtimepkg "github.com/drblury/rxflow/internal/runtime"
	errspkg "github.com/drblury/rxflow/internal/runtime/errors"
)

// Merge subscribes to every source at once and interleaves their messages
// in arrival order.
func Merge(sources ...runtimepkg.Producer) runtimepkg.Producer {
	return runtimepkg.FromSlice(sources, nil).Pipe(MergeAll(0))
}

// Concat subscribes to the sources one after another.
func Concat(sources ...runtimepkg.Producer) runtimepkg.Producer {
	return runtimepkg.FromSlice(sources, nil).Pipe(ConcatAll())
}

// Switch subscribes to the sources in turn, each one cancelling the one
// before. Synchronous sources therefore leave only the last one running.
func Switch(sources ...runtimepkg.Producer) runtimepkg.Producer {
	return runtimepkg.FromSlice(sources, nil).Pipe(SwitchAll(nil))
}

// ForkJoin runs the sources concurrently and emits everything they produced
// as one []any once all of them have completed.
func ForkJoin(sources ...runtimepkg.Producer) runtimepkg.Producer {
	return Merge(sources...).Pipe(ToArray())
}

// MergeWith merges the piped source with others.
func MergeWith(others ...runtimepkg.Producer) runtimepkg.Operator {
	return func(src runtimepkg.Producer) runtimepkg.Producer {
		return Merge(append([]runtimepkg.Producer{src}, others...)...)
	}
}

// ConcatWith appends others after the piped source.
func ConcatWith(others ...runtimepkg.Producer) runtimepkg.Operator {
	return func(src runtimepkg.Producer) runtimepkg.Producer {
		return Concat(append([]runtimepkg.Producer{src}, others...)...)
	}
}

// SwitchWith switches from the piped source to others.
func SwitchWith(others ...runtimepkg.Producer) runtimepkg.Operator {
	return func(src runtimepkg.Producer) runtimepkg.Producer {
		return Switch(append([]runtimepkg.Producer{src}, others...)...)
	}
}

// Combiner turns one value per source into the emitted message. A nil
// Combiner emits the []any itself.
type Combiner func(values []any) any

func (c Combiner) apply(values []any) (out any, err error) {
	if c == nil {
		return values, nil
	}
	err = call(func() { out = c(values) })
	return out, err
}

// join subscribes one inner subscriber per source, all owned by sub. Sources
// that are not streams error the result.
func join(sub *runtimepkg.Subscriber, sources []runtimepkg.Producer, sink func(i int) runtimepkg.Sink) {
	for i, src := range sources {
		if _, ok := runtimepkg.AsProducer(src); !ok {
			sub.Error(errspkg.ErrNotObservable)
			return
		}
		inner := runtimepkg.NewSubscriber(sink(i))
		sub.Add(inner)
		if sub.Closed() || sub.Stopped() {
			return
		}
		src.Subscribe(inner)
	}
}

// Zip pairs the sources index by index: the n-th message emitted is built
// from the n-th message of every source. It completes once a completed source
// has no buffered messages left.
func Zip(combine Combiner, sources ...runtimepkg.Producer) runtimepkg.Producer {
	return runtimepkg.NewObservable(func(sub *runtimepkg.Subscriber) runtimepkg.Teardown {
		if len(sources) == 0 {
			sub.Complete()
			return nil
		}

		var mu sync.Mutex
		queues := make([][]any, len(sources))
		completed := make([]bool, len(sources))
		exhausted := func() bool {
			for i, done := range completed {
				if done && len(queues[i]) == 0 {
					return true
				}
			}
			return false
		}

		join(sub, sources, func(i int) runtimepkg.Sink {
			return runtimepkg.NewObserver(
				func(v any) {
					mu.Lock()
					queues[i] = append(queues[i], v)
					var values []any
					if !slices.ContainsFunc(queues, func(q []any) bool { return len(q) == 0 }) {
						values = make([]any, len(queues))
						for j := range queues {
							values[j] = queues[j][0]
							queues[j] = queues[j][1:]
						}
					}
					done := exhausted()
					mu.Unlock()

					if values != nil {
						out, err := combine.apply(values)
						if err != nil {
							sub.Error(err)
							return
						}
						sub.Next(out)
					}
					if done {
						sub.Complete()
					}
				},
				sub.Error,
				func() {
					mu.Lock()
					completed[i] = true
					done := exhausted()
					mu.Unlock()
					if done {
						sub.Complete()
					}
				},
				nil,
			)
		})
		return nil
	})
}

// CombineLatest emits the latest message of every source each time any of
// them emits, once all of them have emitted at least once. It completes when
// every source has completed.
func CombineLatest(combine Combiner, sources ...runtimepkg.Producer) runtimepkg.Producer {
	return runtimepkg.NewObservable(func(sub *runtimepkg.Subscriber) runtimepkg.Teardown {
		if len(sources) == 0 {
			sub.Complete()
			return nil
		}

		var mu sync.Mutex
		latest := make([]any, len(sources))
		seen := make([]bool, len(sources))
		waiting, running := len(sources), len(sources)

		join(sub, sources, func(i int) runtimepkg.Sink {
			return runtimepkg.NewObserver(
				func(v any) {
					mu.Lock()
					latest[i] = v
					if !seen[i] {
						seen[i] = true
						waiting--
					}
					var values []any
					if waiting == 0 {
						values = slices.Clone(latest)
					}
					mu.Unlock()

					if values == nil {
						return
					}
					out, err := combine.apply(values)
					if err != nil {
						sub.Error(err)
						return
					}
					sub.Next(out)
				},
				sub.Error,
				func() {
					mu.Lock()
					running--
					done := running == 0
					mu.Unlock()
					if done {
						sub.Complete()
					}
				},
				nil,
			)
		})
		return nil
	})
}
