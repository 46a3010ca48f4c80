package operators

import (
	"slices"
	"sync"

	runtimepkg "github.com/drblury/rxflow/internal/runtime"
)

// mergeState is the per-subscription state of the merge family.
type mergeState struct {
	mu       sync.Mutex
	index    int
	active   int
	buffer   []any
	inners   []*runtimepkg.Subscriber
	complete bool
}

// MergeMap subscribes to the stream project returns for every message and
// merges their output. At most concurrency inner streams run at once (zero
// means unbounded); messages arriving while the limit is reached wait in a
// FIFO buffer. Completion waits for the source, the buffer and every inner
// stream. A nil selector forwards inner messages unchanged.
func MergeMap(project Project, selector Selector, concurrency int) runtimepkg.Operator {
	if concurrency < 0 {
		concurrency = 0
	}
	return runtimepkg.Operate(runtimepkg.Harness[*mergeState]{
		Setup: func(_, _ *runtimepkg.Subscriber) (*mergeState, error) {
			return &mergeState{}, nil
		},
		Next: func(_, down *runtimepkg.Subscriber, v any, st *mergeState) {
			st.process(project, selector, concurrency, down, v)
		},
		Complete: func(_, down *runtimepkg.Subscriber, st *mergeState) {
			st.mu.Lock()
			st.complete = true
			idle := len(st.buffer) == 0 && len(st.inners) == 0
			st.mu.Unlock()
			if idle {
				down.Complete()
			}
		},
		Unsubscribe: func(_, down *runtimepkg.Subscriber, st *mergeState) {
			st.mu.Lock()
			inners := slices.Clone(st.inners)
			st.buffer = nil
			st.mu.Unlock()
			for _, inner := range inners {
				inner.Unsubscribe()
			}
			down.Unsubscribe()
		},
	})
}

func (st *mergeState) process(project Project, selector Selector, concurrency int, down *runtimepkg.Subscriber, v any) {
	st.mu.Lock()
	if concurrency > 0 && st.active >= concurrency {
		st.buffer = append(st.buffer, v)
		st.mu.Unlock()
		return
	}
	outerIndex := st.index
	st.index++
	st.active++
	st.mu.Unlock()

	inner, err := resolve(project, v, outerIndex)
	if err != nil {
		down.Error(err)
		return
	}

	innerIndex := 0
	var sub *runtimepkg.Subscriber
	sub = runtimepkg.NewSubscriber(runtimepkg.NewObserver(
		func(iv any) {
			out, err := selectValue(selector, v, iv, outerIndex, innerIndex)
			innerIndex++
			if err != nil {
				down.Error(err)
				return
			}
			down.Next(out)
		},
		down.Error,
		nil,
		func() { st.release(project, selector, concurrency, down, sub) },
	))

	st.mu.Lock()
	st.inners = append(st.inners, sub)
	st.mu.Unlock()
	inner.Subscribe(sub)
}

// release runs when an inner subscriber is disposed. Only an inner that
// completed, rather than one that failed or was cancelled, frees a slot for
// the next buffered message or finishes the merge.
func (st *mergeState) release(project Project, selector Selector, concurrency int, down, sub *runtimepkg.Subscriber) {
	st.mu.Lock()
	st.active--
	if i := slices.Index(st.inners, sub); i >= 0 {
		st.inners = slices.Delete(st.inners, i, i+1)
	}
	if !sub.Stopped() || sub.Closed() || down.Stopped() || down.Closed() {
		st.mu.Unlock()
		return
	}
	if len(st.buffer) > 0 {
		next := st.buffer[0]
		st.buffer = st.buffer[1:]
		st.mu.Unlock()
		st.process(project, selector, concurrency, down, next)
		return
	}
	done := st.complete && len(st.inners) == 0
	st.mu.Unlock()
	if done {
		down.Complete()
	}
}

// MergeMapTo merges inner once per source message.
func MergeMapTo(inner runtimepkg.Producer, selector Selector, concurrency int) runtimepkg.Operator {
	return MergeMap(projectTo(inner), selector, concurrency)
}

// MergeAll flattens a stream of streams.
func MergeAll(concurrency int) runtimepkg.Operator {
	return MergeMap(projectSelf, nil, concurrency)
}

// ConcatMap is MergeMap with one inner stream at a time, so inner streams
// are consumed strictly in source order.
func ConcatMap(project Project, selector Selector) runtimepkg.Operator {
	return MergeMap(project, selector, 1)
}

func ConcatMapTo(inner runtimepkg.Producer, selector Selector) runtimepkg.Operator {
	return MergeMap(projectTo(inner), selector, 1)
}

func ConcatAll() runtimepkg.Operator {
	return MergeMap(projectSelf, nil, 1)
}
