package operators

import (
	"sync"
	"time"

	runtimepkg "github.com/drblury/rxflow/internal/runtime"
	"github.com/drblury/rxflow/internal/runtime/scheduler"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// sink records everything a stream delivers.
type sink struct {
	mu        sync.Mutex
	values    []any
	err       error
	completed int
}

func (s *sink) Next(v any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values = append(s.values, v)
}

func (s *sink) Error(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func (s *sink) Complete() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.completed++
}

func (s *sink) Values() []any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]any(nil), s.values...)
}

func (s *sink) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *sink) Completed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.completed
}

// collect subscribes to p and returns the recording sink.
func collect(p runtimepkg.Producer) *sink {
	s := &sink{}
	p.Subscribe(s)
	return s
}

func newVirtualAsync() (*scheduler.VirtualClock, *scheduler.Scheduler) {
	vc := scheduler.NewVirtualClock(epoch)
	return vc, scheduler.NewAsync(scheduler.WithClock(vc))
}

// counted is a cold source that counts how often it is subscribed and how
// many of those subscriptions are still live.
type counted struct {
	subject    *runtimepkg.Subject
	subscribed int
	live       int
}

func newCounted() *counted {
	return &counted{subject: runtimepkg.NewSubject()}
}

func (c *counted) Observable() *runtimepkg.Observable {
	return runtimepkg.NewObservable(func(sub *runtimepkg.Subscriber) runtimepkg.Teardown {
		c.subscribed++
		c.live++
		c.subject.Subscribe(sub)
		return runtimepkg.TeardownFunc(func() { c.live-- })
	})
}

// ticker emits each value on its own tick of sched, one millisecond apart,
// then completes.
func ticker(sched *scheduler.Scheduler, values ...any) *runtimepkg.Observable {
	return runtimepkg.NewObservable(func(sub *runtimepkg.Subscriber) runtimepkg.Teardown {
		action, err := sched.Schedule(func(a *scheduler.Action, state any) error {
			i := state.(int)
			if i == len(values) {
				sub.Complete()
				return nil
			}
			sub.Next(values[i])
			return a.Schedule(i+1, time.Millisecond)
		}, 0, time.Millisecond)
		if err != nil {
			sub.Error(err)
			return nil
		}
		return action
	})
}
