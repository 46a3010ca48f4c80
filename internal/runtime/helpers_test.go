package runtime

import (
	"io"
	"log/slog"
	"sync"
	"time"

	loggingpkg "github.com/drblury/rxflow/internal/runtime/logging"
	"github.com/drblury/rxflow/internal/runtime/scheduler"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func newTestLogger() loggingpkg.ServiceLogger {
	return loggingpkg.NewSlogServiceLogger(slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug})))
}

// recorder is a Sink that remembers everything it was sent.
type recorder struct {
	mu           sync.Mutex
	values       []any
	errs         []error
	completed    int
	unsubscribed int
}

func (r *recorder) Next(v any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values = append(r.values, v)
}

func (r *recorder) Error(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, err)
}

func (r *recorder) Complete() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.completed++
}

func (r *recorder) Unsubscribe() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.unsubscribed++
}

func (r *recorder) Values() []any {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := make([]any, len(r.values))
	copy(clone, r.values)
	return clone
}

func (r *recorder) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.errs) == 0 {
		return nil
	}
	return r.errs[0]
}

func (r *recorder) Errors() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.errs)
}

func (r *recorder) Completed() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.completed
}

func (r *recorder) Unsubscribed() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.unsubscribed
}

func newVirtualQueue() (*scheduler.VirtualClock, *scheduler.Scheduler) {
	vc := scheduler.NewVirtualClock(epoch)
	return vc, scheduler.NewQueue(scheduler.WithClock(vc))
}

func newVirtualAsync() (*scheduler.VirtualClock, *scheduler.Scheduler) {
	vc := scheduler.NewVirtualClock(epoch)
	return vc, scheduler.NewAsync(scheduler.WithClock(vc))
}

// double emits each value it is given twice.
func double(src Producer) Producer {
	return Operate(Harness[struct{}]{
		Next: func(_, down *Subscriber, v any, _ struct{}) {
			down.Next(v)
			down.Next(v)
		},
	})(src)
}

// addOne adds one to int values.
func addOne(src Producer) Producer {
	return Operate(Harness[struct{}]{
		Next: func(_, down *Subscriber, v any, _ struct{}) {
			down.Next(v.(int) + 1)
		},
	})(src)
}
