package runtime

import (
	"slices"
	"sync"

	"github.com/drblury/rxflow/internal/runtime/ids"
)

// SubjectLike is the contract shared by every Subject variant: a Producer
// that is also a Sink and can be torn down.
type SubjectLike interface {
	Producer
	Sink
	Teardown
	ID() string
	Closed() bool
	Stopped() bool
	Observers() int
}

// Subject is a hot stream that multicasts every notification to its current
// observers.
//
// Error and Complete stop the subject. Later subscribers immediately receive
// the same terminal notification. Unsubscribe stops it too, and closes it
// unless it had already stopped; a closed subject turns new subscribers away.
type Subject struct {
	id string

	mu        sync.Mutex
	observers []*Subscriber
	closed    bool
	stopped   bool
	errored   bool
	err       error
	publisher Publisher
}

// NewSubject returns an open Subject.
func NewSubject() *Subject {
	return &Subject{id: ids.New(ids.SubjectPrefix)}
}

func (s *Subject) producer() {}

func (s *Subject) ID() string { return s.id }

func (s *Subject) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Subject) Stopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

// Observers reports how many subscribers are attached.
func (s *Subject) Observers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.observers)
}

// Subscribe attaches sink. On a closed subject the sink is disposed straight
// away; on a stopped one it gets the terminal notification after the
// subject's publisher has run.
func (s *Subject) Subscribe(sink Sink) *Subscriber {
	sub := NewSubscriber(sink)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		sub.Unsubscribe()
		return sub
	}
	if sub.Closed() || sub.Stopped() {
		s.mu.Unlock()
		return sub
	}
	s.observers = append(s.observers, sub)
	publisher := s.publisher
	s.mu.Unlock()

	sub.Add(TeardownFunc(func() { s.remove(sub) }))
	subscribe(publisher, sub)

	s.mu.Lock()
	stopped, closed, errored, err := s.stopped, s.closed, s.errored, s.err
	s.mu.Unlock()
	if stopped && !closed {
		if errored {
			sub.Error(err)
		} else {
			sub.Complete()
		}
	}
	return sub
}

func (s *Subject) remove(sub *Subscriber) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := slices.Index(s.observers, sub); i >= 0 {
		s.observers = slices.Delete(s.observers, i, i+1)
	}
}

// snapshot copies the observer list so fan-out is unaffected by observers
// subscribing or unsubscribing during delivery.
func (s *Subject) snapshot() []*Subscriber {
	return slices.Clone(s.observers)
}

// Next delivers v to every current observer.
func (s *Subject) Next(v any) {
	s.mu.Lock()
	if s.stopped || s.closed {
		s.mu.Unlock()
		return
	}
	observers := s.snapshot()
	s.mu.Unlock()

	for _, o := range observers {
		o.Next(v)
	}
}

func (s *Subject) Error(err error) {
	s.mu.Lock()
	if s.stopped || s.closed {
		s.mu.Unlock()
		return
	}
	s.stopped, s.errored, s.err = true, true, err
	observers := s.snapshot()
	s.mu.Unlock()

	for _, o := range observers {
		o.Error(err)
	}
}

func (s *Subject) Complete() {
	s.mu.Lock()
	if s.stopped || s.closed {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	observers := s.snapshot()
	s.mu.Unlock()

	for _, o := range observers {
		o.Complete()
	}
}

// Unsubscribe stops the subject and disposes every observer. It closes the
// subject unless it had already stopped, so a completed subject can still
// replay its terminal notification.
func (s *Subject) Unsubscribe() {
	s.mu.Lock()
	if !s.stopped {
		s.closed = true
	}
	s.stopped = true
	observers := s.snapshot()
	s.mu.Unlock()

	for _, o := range observers {
		o.Unsubscribe()
	}
}

// Lift returns a plain Subject whose subscribers run p.
func (s *Subject) Lift(p Publisher) Producer {
	lifted := NewSubject()
	lifted.publisher = p
	return lifted
}

func (s *Subject) Pipe(ops ...Operator) Producer {
	return mustPipe(s, ops)
}
