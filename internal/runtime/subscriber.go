package runtime

import (
	errspkg "github.com/drblury/rxflow/internal/runtime/errors"
)

// Subscriber binds a Sink to a Subscription. It guards the sink against
// notifications after a terminal event, converts callback panics into
// errors and disposes itself once the stream ends.
//
// Operator subscribers sit between two stages of a pipeline. They do not
// dispose themselves on Error or Complete; the downstream subscriber owns
// them and releases them when it finishes.
type Subscriber struct {
	*Subscription

	sink      Sink
	operator  bool
	connected bool
}

// NewSubscriber wraps sink. A *Subscriber is returned unchanged and a nil
// sink gets an empty Observer.
func NewSubscriber(sink Sink) *Subscriber {
	if sub, ok := sink.(*Subscriber); ok && sub != nil {
		return sub
	}
	if sink == nil {
		sink = NewObserver(nil, nil, nil, nil)
	}
	sub := &Subscriber{Subscription: &Subscription{}, sink: sink}
	if t, ok := sink.(Teardown); ok {
		sub.finalizer = t.Unsubscribe
	}
	return sub
}

func newOperatorSubscriber(sink Sink) *Subscriber {
	sub := NewSubscriber(sink)
	sub.operator = true
	return sub
}

// Sink returns the wrapped sink.
func (s *Subscriber) Sink() Sink { return s.sink }

// Connected reports whether a publisher has been started for s.
func (s *Subscriber) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

func (s *Subscriber) markConnected() {
	s.mu.Lock()
	s.connected = true
	s.mu.Unlock()
}

func (s *Subscriber) halted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed || s.stopped
}

// Next forwards v unless the subscriber is stopped or closed. A panic in the
// sink is turned into Error.
func (s *Subscriber) Next(v any) {
	if s.halted() {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			s.Error(errspkg.FromRecovered(r))
		}
	}()
	s.sink.Next(v)
}

// Error stops the subscriber, forwards err and disposes it.
func (s *Subscriber) Error(err error) {
	s.mu.Lock()
	if s.closed || s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	s.mu.Unlock()

	s.deliverError(err)
	if !s.operator {
		s.unsubscribe(true)
	}
}

// Complete stops the subscriber, forwards completion and disposes it without
// closing it. A panic in the sink is forwarded as an error instead.
func (s *Subscriber) Complete() {
	s.mu.Lock()
	if s.closed || s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	s.mu.Unlock()

	if err := s.deliverComplete(); err != nil {
		s.deliverError(err)
		if !s.operator {
			s.unsubscribe(true)
		}
		return
	}
	if !s.operator {
		s.unsubscribe(false)
	}
}

// Unsubscribe disposes the subscriber. A subscriber that already finished
// keeps its closed flag unset.
func (s *Subscriber) Unsubscribe() {
	s.unsubscribe(false)
}

func (s *Subscriber) unsubscribe(force bool) {
	s.mu.Lock()
	closed := !(s.stopped && !force)
	s.mu.Unlock()
	s.Dispose(closed)
}

func (s *Subscriber) deliverError(err error) {
	defer func() {
		// An error callback that panics has nowhere left to report to.
		_ = recover()
	}()
	s.sink.Error(err)
}

func (s *Subscriber) deliverComplete() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errspkg.FromRecovered(r)
		}
	}()
	s.sink.Complete()
	return nil
}
