package runtime

import (
	"sync"

	errspkg "github.com/drblury/rxflow/internal/runtime/errors"
)

// Sink receives the three notifications of a stream. Anything implementing
// it can be subscribed; a Sink that also implements Unsubscribe is told when
// its subscription is disposed.
type Sink interface {
	Next(v any)
	Error(err error)
	Complete()
}

// Observer is the callback form of a Sink. Nil callbacks are skipped. Once
// unsubscribed it ignores every further notification.
type Observer struct {
	next        func(any)
	err         func(error)
	complete    func()
	unsubscribe func()

	mu     sync.Mutex
	closed bool
}

// NewObserver builds an Observer from up to four callbacks.
func NewObserver(next func(any), err func(error), complete func(), unsubscribe func()) *Observer {
	return &Observer{next: next, err: err, complete: complete, unsubscribe: unsubscribe}
}

// OnNext is shorthand for an Observer that only handles values.
func OnNext(next func(any)) *Observer {
	return NewObserver(next, nil, nil, nil)
}

func (o *Observer) Closed() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.closed
}

func (o *Observer) Next(v any) {
	if o.next != nil && !o.Closed() {
		o.next(v)
	}
}

func (o *Observer) Error(err error) {
	if o.err != nil && !o.Closed() {
		o.err(err)
	}
}

func (o *Observer) Complete() {
	if o.complete != nil && !o.Closed() {
		o.complete()
	}
}

// Unsubscribe closes the observer and runs the unsubscribe callback once. A
// panic in that callback is handed to the error callback.
func (o *Observer) Unsubscribe() {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}
	o.closed = true
	o.mu.Unlock()

	if o.unsubscribe == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil && o.err != nil {
			o.err(errspkg.FromRecovered(r))
		}
	}()
	o.unsubscribe()
}
