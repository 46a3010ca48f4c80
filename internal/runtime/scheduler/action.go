package scheduler

import (
	"time"

	errspkg "github.com/drblury/rxflow/internal/runtime/errors"
	"github.com/drblury/rxflow/internal/runtime/ids"
)

// Action is a reusable, cancellable unit of scheduled work. It satisfies the
// Teardown contract, so it can be added to a Subscription and cancelled with
// it. An Action is closed for good once unsubscribed.
type Action struct {
	id        string
	scheduler *Scheduler

	// guarded by scheduler.mu
	work    Work
	state   any
	delay   time.Duration
	pending bool
	closed  bool
	timer   Timer
}

func newAction(s *Scheduler, work Work) *Action {
	return &Action{id: ids.New(ids.ActionPrefix), scheduler: s, work: work}
}

func (a *Action) ID() string            { return a.id }
func (a *Action) Scheduler() *Scheduler { return a.scheduler }

func (a *Action) Closed() bool {
	a.scheduler.mu.Lock()
	defer a.scheduler.mu.Unlock()
	return a.closed
}

// Pending reports whether the action is waiting to run.
func (a *Action) Pending() bool {
	a.scheduler.mu.Lock()
	defer a.scheduler.mu.Unlock()
	return a.pending
}

// Schedule (re)arms the action with state after delay. A closed action
// ignores the call. Zero-delay work on a queue scheduler runs before Schedule
// returns unless that scheduler is already flushing.
func (a *Action) Schedule(state any, delay time.Duration) error {
	if delay > MaxDelay {
		return errspkg.ErrDelayOutOfRange
	}
	if delay < 0 {
		delay = 0
	}

	s := a.scheduler
	s.mu.Lock()
	if a.closed {
		s.mu.Unlock()
		return nil
	}

	switch {
	case delay > 0:
		s.removeLocked(a)
		s.recycleLocked(a, delay, true)
		a.pending, a.state, a.delay = true, state, delay
		if a.timer == nil {
			a.timer = s.clock.Every(delay, func() { s.dispatch(a) })
		}
		s.mu.Unlock()
		s.recordScheduled()
		return nil

	case s.discipline.post == nil:
		s.recycleLocked(a, 0, false)
		a.pending, a.state, a.delay = true, state, 0
		s.mu.Unlock()
		s.recordScheduled()
		return s.Flush(a)

	default:
		s.recycleLocked(a, 0, false)
		a.pending, a.state, a.delay = true, state, 0
		s.enqueueLocked(a)
		s.ensurePostedLocked()
		s.mu.Unlock()
		s.recordScheduled()
		return nil
	}
}

// Unsubscribe cancels the action. It is removed from its scheduler's queue,
// its timer is released and its work is dropped.
func (a *Action) Unsubscribe() {
	s := a.scheduler
	s.mu.Lock()
	defer s.mu.Unlock()

	if a.closed {
		return
	}
	s.removeLocked(a)
	a.pending = false
	s.recycleLocked(a, 0, false)
	a.work, a.state = nil, nil
	a.closed = true
}

// exec runs the work once. Errors, including recovered panics, close the
// action and are returned to the flushing scheduler.
func (a *Action) exec() error {
	s := a.scheduler
	s.mu.Lock()
	if a.closed {
		s.mu.Unlock()
		return nil
	}
	a.pending = false
	work, state := a.work, a.state
	s.mu.Unlock()

	if err := a.run(work, state); err != nil {
		a.Unsubscribe()
		return err
	}

	s.mu.Lock()
	if !a.pending {
		s.recycleLocked(a, 0, false)
	}
	s.mu.Unlock()

	if s.recorder != nil {
		s.recorder.ActionExecuted(s.name)
	}
	return nil
}

func (a *Action) run(work Work, state any) (err error) {
	if work == nil {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = errspkg.FromRecovered(r)
		}
	}()
	return work(a, state)
}

func (s *Scheduler) recordScheduled() {
	if s.recorder != nil {
		s.recorder.ActionScheduled(s.name)
	}
}
