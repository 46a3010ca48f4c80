// Package scheduler orders deferred work. A Scheduler owns a queue of Actions
// and one of four dispatch disciplines:
//
//   - Queue runs zero-delay work inline, trampolining recursive schedules
//     through an active flag instead of recursing.
//   - Async batches zero-delay work onto one timer tick per scheduler.
//   - Asap batches zero-delay work onto a deferred (microtask-like) callback.
//   - Animation batches zero-delay work into the next animation frame.
//
// Positive delays always use a repeating per-action timer, whatever the
// discipline. The timers themselves come from an injected Clock.
package scheduler

import (
	"math"
	"slices"
	"sync"
	"time"

	errspkg "github.com/drblury/rxflow/internal/runtime/errors"
	"github.com/drblury/rxflow/internal/runtime/logging"
)

// MaxDelay is the largest delay a Scheduler accepts (2^31-1 milliseconds).
const MaxDelay = time.Duration(math.MaxInt32) * time.Millisecond

// Kind names a dispatch discipline.
type Kind string

const (
	KindQueue     Kind = "queue"
	KindAsync     Kind = "async"
	KindAsap      Kind = "asap"
	KindAnimation Kind = "animation"
)

// Kinds lists every discipline in a stable order.
var Kinds = []Kind{KindQueue, KindAsync, KindAsap, KindAnimation}

// Work is the body of an Action. It receives the running action so it can
// reschedule itself with a.Schedule.
type Work func(a *Action, state any) error

// Recorder receives scheduler events. metrics.Collector implements it.
type Recorder interface {
	ActionScheduled(scheduler string)
	ActionExecuted(scheduler string)
	ActionsCancelled(scheduler string, n int)
	FlushFailed(scheduler string)
}

// Options configure a Scheduler.
type Options struct {
	Name     string
	Clock    Clock
	Logger   logging.ServiceLogger
	Recorder Recorder
	// OnError receives errors from flushes started by the clock, which have
	// no synchronous caller to return them to.
	OnError func(error)
}

type Option func(*Options)

func WithName(name string) Option               { return func(o *Options) { o.Name = name } }
func WithClock(c Clock) Option                  { return func(o *Options) { o.Clock = c } }
func WithLogger(l logging.ServiceLogger) Option { return func(o *Options) { o.Logger = l } }
func WithRecorder(r Recorder) Option            { return func(o *Options) { o.Recorder = r } }
func WithErrorHandler(fn func(error)) Option    { return func(o *Options) { o.OnError = fn } }

// discipline captures what differs between the four kinds: the primitive that
// starts a batched flush. Queue has none and flushes inline.
type discipline struct {
	kind Kind
	post func(c Clock, fn func()) Timer
}

var disciplines = map[Kind]discipline{
	KindQueue:     {kind: KindQueue},
	KindAsync:     {kind: KindAsync, post: func(c Clock, fn func()) Timer { return c.AfterFunc(0, fn) }},
	KindAsap:      {kind: KindAsap, post: func(c Clock, fn func()) Timer { return c.Defer(fn) }},
	KindAnimation: {kind: KindAnimation, post: func(c Clock, fn func()) Timer { return c.Frame(fn) }},
}

// Scheduler queues Actions and flushes them according to its discipline.
type Scheduler struct {
	name       string
	discipline discipline
	clock      Clock
	log        logging.ServiceLogger
	recorder   Recorder
	onError    func(error)

	mu        sync.Mutex
	actions   []*Action
	active    bool
	scheduled Timer
}

// New builds a Scheduler of the given kind.
func New(kind Kind, opts ...Option) (*Scheduler, error) {
	d, ok := disciplines[kind]
	if !ok {
		return nil, errspkg.ErrUnknownScheduler
	}

	o := Options{Name: string(kind)}
	for _, opt := range opts {
		opt(&o)
	}
	if o.Clock == nil {
		o.Clock = systemClock()
	}

	return &Scheduler{
		name:       o.Name,
		discipline: d,
		clock:      o.Clock,
		log:        logging.OrNop(o.Logger).With(logging.LogFields{"scheduler": o.Name}),
		recorder:   o.Recorder,
		onError:    o.OnError,
	}, nil
}

func mustNew(kind Kind, opts []Option) *Scheduler {
	s, err := New(kind, opts...)
	if err != nil {
		panic(err)
	}
	return s
}

func NewQueue(opts ...Option) *Scheduler     { return mustNew(KindQueue, opts) }
func NewAsync(opts ...Option) *Scheduler     { return mustNew(KindAsync, opts) }
func NewAsap(opts ...Option) *Scheduler      { return mustNew(KindAsap, opts) }
func NewAnimation(opts ...Option) *Scheduler { return mustNew(KindAnimation, opts) }

var (
	systemClock = sync.OnceValue(func() *SystemClock { return NewSystemClock(0) })

	defaultQueue     = sync.OnceValue(func() *Scheduler { return NewQueue() })
	defaultAsync     = sync.OnceValue(func() *Scheduler { return NewAsync() })
	defaultAsap      = sync.OnceValue(func() *Scheduler { return NewAsap() })
	defaultAnimation = sync.OnceValue(func() *Scheduler { return NewAnimation() })
)

// Queue returns the process-wide queue scheduler.
func Queue() *Scheduler { return defaultQueue() }

// Async returns the process-wide async scheduler.
func Async() *Scheduler { return defaultAsync() }

// Asap returns the process-wide asap scheduler.
func Asap() *Scheduler { return defaultAsap() }

// Animation returns the process-wide animation scheduler.
func Animation() *Scheduler { return defaultAnimation() }

func (s *Scheduler) Name() string   { return s.name }
func (s *Scheduler) Kind() Kind     { return s.discipline.kind }
func (s *Scheduler) Clock() Clock   { return s.clock }
func (s *Scheduler) Now() time.Time { return s.clock.Now() }

// Len reports how many actions are queued for the next flush.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.actions)
}

// Active reports whether a flush is running.
func (s *Scheduler) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Schedule creates an Action running work with state after delay. Delays
// above MaxDelay are rejected with ErrDelayOutOfRange. On the queue
// discipline a zero delay runs work before Schedule returns, and any error
// from that flush is returned alongside the action.
func (s *Scheduler) Schedule(work Work, state any, delay time.Duration) (*Action, error) {
	if delay > MaxDelay {
		return nil, errspkg.ErrDelayOutOfRange
	}
	a := newAction(s, work)
	return a, a.Schedule(state, delay)
}

// Flush executes a (when non-nil) and then the queued actions. If a flush is
// already running, a is queued for it instead. The first error aborts the
// pass: every action still queued is cancelled and the error is returned.
//
// Batched disciplines only drain the actions queued when the pass started;
// anything queued during the pass waits for the next post.
func (s *Scheduler) Flush(a *Action) error {
	s.mu.Lock()
	if s.active {
		if a != nil {
			s.enqueueLocked(a)
		}
		s.mu.Unlock()
		return nil
	}
	s.active = true
	limit := -1
	if s.discipline.post != nil {
		limit = len(s.actions)
	}
	s.mu.Unlock()

	var err error
	for {
		if a == nil {
			s.mu.Lock()
			if len(s.actions) == 0 || limit == 0 {
				s.mu.Unlock()
				break
			}
			a = s.actions[0]
			s.actions = s.actions[1:]
			if limit > 0 {
				limit--
			}
			s.mu.Unlock()
		}
		if err = a.exec(); err != nil {
			break
		}
		a = nil
	}

	s.mu.Lock()
	s.active = false
	var cancelled []*Action
	if err != nil {
		cancelled = s.actions
		s.actions = nil
	}
	s.ensurePostedLocked()
	s.mu.Unlock()

	if err != nil {
		for _, c := range cancelled {
			c.Unsubscribe()
		}
		if s.recorder != nil {
			s.recorder.FlushFailed(s.name)
			if len(cancelled) > 0 {
				s.recorder.ActionsCancelled(s.name, len(cancelled))
			}
		}
	}
	return err
}

// dispatch is the clock callback for an action's own timer.
func (s *Scheduler) dispatch(a *Action) {
	s.mu.Lock()
	stale := a.closed || !a.pending
	s.mu.Unlock()
	if stale {
		return
	}
	if err := s.Flush(a); err != nil {
		s.report(err, a)
	}
}

// dispatchBatch is the clock callback for the shared batch token.
func (s *Scheduler) dispatchBatch() {
	s.mu.Lock()
	s.scheduled = nil
	s.mu.Unlock()
	if err := s.Flush(nil); err != nil {
		s.report(err, nil)
	}
}

func (s *Scheduler) report(err error, a *Action) {
	fields := logging.LogFields{}
	if a != nil {
		fields["action_id"] = a.id
	}
	s.log.Error("Scheduled action failed", err, fields)
	if s.onError != nil {
		s.onError(err)
	}
}

func (s *Scheduler) enqueueLocked(a *Action) {
	if !slices.Contains(s.actions, a) {
		s.actions = append(s.actions, a)
	}
}

func (s *Scheduler) removeLocked(a *Action) {
	if i := slices.Index(s.actions, a); i >= 0 {
		s.actions = slices.Delete(s.actions, i, i+1)
	}
}

// ensurePostedLocked arms the batch token when batched work is waiting.
func (s *Scheduler) ensurePostedLocked() {
	if s.discipline.post == nil || s.active || s.scheduled != nil || len(s.actions) == 0 {
		return
	}
	s.scheduled = s.discipline.post(s.clock, s.dispatchBatch)
}

// recycleLocked releases the timers an action no longer needs. The action's
// own timer is kept only when keep is set, the delay is unchanged and no
// reschedule is pending.
func (s *Scheduler) recycleLocked(a *Action, delay time.Duration, keep bool) {
	if a.timer != nil && !(keep && delay > 0 && a.delay == delay && !a.pending) {
		a.timer.Stop()
		a.timer = nil
	}
	if s.scheduled != nil && len(s.actions) == 0 && !s.active {
		s.scheduled.Stop()
		s.scheduled = nil
	}
}
