package operators

import (
	"sync"
	"time"

	runtimepkg "github.com/drblury/rxflow/internal/runtime"
	"github.com/drblury/rxflow/internal/runtime/scheduler"
)

// Delay shifts every message and the completion by d on sched, which
// defaults to the async scheduler. Errors are forwarded at once. Pending
// deliveries are cancelled when the subscription is disposed.
func Delay(d time.Duration, sched *scheduler.Scheduler) runtimepkg.Operator {
	if sched == nil {
		sched = scheduler.Async()
	}
	return runtimepkg.Operate(runtimepkg.Harness[struct{}]{
		Next: func(_, down *runtimepkg.Subscriber, v any, _ struct{}) {
			later(sched, d, down, func() { down.Next(v) })
		},
		Complete: func(_, down *runtimepkg.Subscriber, _ struct{}) {
			later(sched, d, down, down.Complete)
		},
	})
}

// later runs fn after d. The action is owned by down until it has run.
func later(sched *scheduler.Scheduler, d time.Duration, down *runtimepkg.Subscriber, fn func()) {
	var (
		mu     sync.Mutex
		done   bool
		remove func()
	)
	action, err := sched.Schedule(func(*scheduler.Action, any) error {
		fn()
		mu.Lock()
		done = true
		release := remove
		mu.Unlock()
		if release != nil {
			release()
		}
		return nil
	}, nil, d)
	if err != nil {
		down.Error(err)
		return
	}

	mu.Lock()
	defer mu.Unlock()
	if !done {
		remove = down.Add(action)
	}
}
