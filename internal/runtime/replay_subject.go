package runtime

import (
	"slices"
	"time"

	"github.com/drblury/rxflow/internal/runtime/scheduler"
)

// ReplayOptions bound what a ReplaySubject keeps. Zero values mean no bound.
type ReplayOptions struct {
	// BufferSize is the number of values kept; older ones are dropped first.
	BufferSize int
	// WindowTime is how long each value is kept.
	WindowTime time.Duration
	// Scheduler runs the window expiries. Defaults to scheduler.Queue().
	Scheduler *scheduler.Scheduler
}

// ReplaySubject is a Subject that records the values it sees and replays
// them, oldest first, to every new subscriber.
type ReplaySubject struct {
	*Subject
	opts   ReplayOptions
	buffer []*replayEntry
}

// replayEntry is a buffer slot. Expiry removes the slot by identity, so equal
// values recorded at different times expire independently.
type replayEntry struct {
	value  any
	expiry *scheduler.Action
}

// NewReplaySubject returns a ReplaySubject bounded by opts.
func NewReplaySubject(opts ReplayOptions) *ReplaySubject {
	if opts.BufferSize < 0 {
		opts.BufferSize = 0
	}
	if opts.WindowTime > 0 && opts.Scheduler == nil {
		opts.Scheduler = scheduler.Queue()
	}
	r := &ReplaySubject{Subject: NewSubject(), opts: opts}
	r.Subject.publisher = func(sub *Subscriber) Teardown {
		for _, v := range r.Buffered() {
			sub.Next(v)
		}
		return nil
	}
	return r
}

// Buffered returns the values a new subscriber would be replayed.
func (r *ReplaySubject) Buffered() []any {
	r.mu.Lock()
	defer r.mu.Unlock()
	values := make([]any, len(r.buffer))
	for i, e := range r.buffer {
		values[i] = e.value
	}
	return values
}

// Next records v, trims the buffer to BufferSize, arms its expiry and
// multicasts it.
func (r *ReplaySubject) Next(v any) {
	r.mu.Lock()
	if r.stopped || r.closed {
		r.mu.Unlock()
		return
	}
	entry := &replayEntry{value: v}
	r.buffer = append(r.buffer, entry)
	var expired []*scheduler.Action
	if n := r.opts.BufferSize; n > 0 && len(r.buffer) > n {
		expired = expiries(r.buffer[:len(r.buffer)-n])
		r.buffer = slices.Delete(r.buffer, 0, len(r.buffer)-n)
	}
	r.mu.Unlock()

	cancelAll(expired)
	if r.opts.WindowTime > 0 {
		r.armExpiry(entry)
	}
	r.Subject.Next(v)
}

func (r *ReplaySubject) armExpiry(entry *replayEntry) {
	action, err := r.opts.Scheduler.Schedule(func(*scheduler.Action, any) error {
		r.drop(entry)
		return nil
	}, nil, r.opts.WindowTime)
	if err != nil {
		// A window beyond the scheduler's range never expires.
		return
	}
	r.mu.Lock()
	entry.expiry = action
	r.mu.Unlock()
}

func (r *ReplaySubject) drop(entry *replayEntry) {
	r.mu.Lock()
	if i := slices.Index(r.buffer, entry); i >= 0 {
		r.buffer = slices.Delete(r.buffer, i, i+1)
	}
	action := entry.expiry
	r.mu.Unlock()
	if action != nil {
		action.Unsubscribe()
	}
}

func expiries(entries []*replayEntry) []*scheduler.Action {
	var actions []*scheduler.Action
	for _, e := range entries {
		if e.expiry != nil {
			actions = append(actions, e.expiry)
		}
	}
	return actions
}

func cancelAll(actions []*scheduler.Action) {
	for _, a := range actions {
		a.Unsubscribe()
	}
}

// Unsubscribe tears the subject down. Once it is closed the buffer can no
// longer be replayed, so pending expiries are cancelled with it.
func (r *ReplaySubject) Unsubscribe() {
	r.Subject.Unsubscribe()
	if !r.Closed() {
		return
	}
	r.mu.Lock()
	expired := expiries(r.buffer)
	r.buffer = nil
	r.mu.Unlock()
	cancelAll(expired)
}

func (r *ReplaySubject) Pipe(ops ...Operator) Producer {
	return mustPipe(r, ops)
}
