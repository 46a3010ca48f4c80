package operators

import (
	"sync"

	runtimepkg "github.com/drblury/rxflow/internal/runtime"
)

type switchState struct {
	mu            sync.Mutex
	index         int
	inner         *runtimepkg.Subscriber
	innerComplete bool
	complete      bool
	unsubscribed  bool
}

// SwitchMap subscribes to the stream project returns for every message,
// cancelling the previous inner stream first, so at most one inner stream is
// live. The result completes once both the source and the latest inner
// stream have completed.
func SwitchMap(project Project, selector Selector) runtimepkg.Operator {
	return runtimepkg.Operate(runtimepkg.Harness[*switchState]{
		Setup: func(_, _ *runtimepkg.Subscriber) (*switchState, error) {
			return &switchState{}, nil
		},
		Next: func(_, down *runtimepkg.Subscriber, v any, st *switchState) {
			st.next(project, selector, down, v)
		},
		Complete: func(_, down *runtimepkg.Subscriber, st *switchState) {
			st.mu.Lock()
			st.complete = true
			idle := st.inner == nil || st.innerComplete
			st.mu.Unlock()
			if idle {
				down.Complete()
			}
		},
		Unsubscribe: func(_, down *runtimepkg.Subscriber, st *switchState) {
			st.mu.Lock()
			st.unsubscribed = true
			inner := st.inner
			st.mu.Unlock()
			if inner != nil {
				inner.Unsubscribe()
			}
			down.Unsubscribe()
		},
	})
}

func (st *switchState) next(project Project, selector Selector, down *runtimepkg.Subscriber, v any) {
	st.mu.Lock()
	outerIndex := st.index
	st.index++
	prev := st.inner
	st.inner = nil
	st.mu.Unlock()

	if prev != nil {
		prev.Unsubscribe()
	}

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
		func() {
			st.mu.Lock()
			if st.inner == sub {
				st.innerComplete = true
			}
			done := st.complete
			st.mu.Unlock()
			if done {
				down.Complete()
			}
		},
		func() {
			st.mu.Lock()
			if st.inner == sub {
				st.inner = nil
			}
			unsubscribed := st.unsubscribed
			st.mu.Unlock()
			if unsubscribed {
				down.Unsubscribe()
			}
		},
	))

	st.mu.Lock()
	st.inner = sub
	st.innerComplete = false
	st.mu.Unlock()
	inner.Subscribe(sub)
}

// SwitchMapTo switches to inner on every source message.
func SwitchMapTo(inner runtimepkg.Producer, selector Selector) runtimepkg.Operator {
	return SwitchMap(projectTo(inner), selector)
}

// SwitchAll flattens a stream of streams, always following the latest one.
func SwitchAll(selector Selector) runtimepkg.Operator {
	return SwitchMap(projectSelf, selector)
}
