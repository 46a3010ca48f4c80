package runtime

import (
	"reflect"
	"slices"
	"sync"
)

// Teardown is anything that can be released. Subscriptions, Subscribers,
// Subjects and scheduler Actions all satisfy it.
type Teardown interface {
	Unsubscribe()
}

// TeardownFunc adapts a plain function to Teardown.
type TeardownFunc func()

func (f TeardownFunc) Unsubscribe() {
	if f != nil {
		f()
	}
}

// Teardowns releases every member in order.
type Teardowns []Teardown

func (ts Teardowns) Unsubscribe() {
	for _, t := range ts {
		if t != nil {
			t.Unsubscribe()
		}
	}
}

type stoppable interface {
	Stopped() bool
}

// teardownEntry gives every registration its own identity, so the remover
// returned by Add only ever drops the entry it created.
type teardownEntry struct {
	teardown Teardown
}

// Subscription is a disposable handle owning a list of teardowns. Disposal
// runs the teardowns in registration order, then the finalizer, at most once
// per registration.
//
// Stopped means a disposal pass has run. Closed means the subscription is
// gone for good; a Subscriber that finished normally is stopped but not
// closed.
type Subscription struct {
	mu        sync.Mutex
	closed    bool
	stopped   bool
	finalized bool
	teardowns []*teardownEntry
	finalizer func()
}

// NewSubscription returns an open subscription owning teardowns.
func NewSubscription(teardowns ...Teardown) *Subscription {
	s := &Subscription{}
	for _, t := range teardowns {
		s.Add(t)
	}
	return s
}

func (s *Subscription) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Subscription) Stopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

// Len reports how many teardowns are registered.
func (s *Subscription) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.teardowns)
}

// Add registers t and returns a function that unregisters it again. A
// teardown that is already stopped is ignored, and comparable teardowns are
// registered once. Adding to a subscription that is closed or stopped
// releases t immediately.
func (s *Subscription) Add(t Teardown) (remove func()) {
	remove = func() {}
	if isNilTeardown(t) {
		return remove
	}
	if other, ok := t.(*Subscription); ok && other == s {
		return remove
	}
	if st, ok := t.(stoppable); ok && st.Stopped() {
		return remove
	}

	s.mu.Lock()
	if s.closed || s.stopped {
		s.mu.Unlock()
		t.Unsubscribe()
		return remove
	}
	if reflect.TypeOf(t).Comparable() {
		for _, e := range s.teardowns {
			if reflect.TypeOf(e.teardown) == reflect.TypeOf(t) && e.teardown == t {
				s.mu.Unlock()
				return s.remover(e)
			}
		}
	}
	entry := &teardownEntry{teardown: t}
	s.teardowns = append(s.teardowns, entry)
	s.mu.Unlock()

	return s.remover(entry)
}

// Remove unregisters t without releasing it. Only comparable teardowns can
// be found this way; keep the function returned by Add for the others.
func (s *Subscription) Remove(t Teardown) {
	if isNilTeardown(t) || !reflect.TypeOf(t).Comparable() {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.teardowns = slices.DeleteFunc(s.teardowns, func(e *teardownEntry) bool {
		return reflect.TypeOf(e.teardown) == reflect.TypeOf(t) && e.teardown == t
	})
}

func (s *Subscription) remover(entry *teardownEntry) func() {
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if i := slices.Index(s.teardowns, entry); i >= 0 {
			s.teardowns = slices.Delete(s.teardowns, i, i+1)
		}
	}
}

// Unsubscribe closes the subscription and releases everything it owns.
func (s *Subscription) Unsubscribe() {
	s.Dispose(true)
}

// Dispose releases the registered teardowns and marks the subscription
// stopped. closed decides whether it is also closed for good; an unclosed
// subscription can be disposed again to release teardowns added since.
func (s *Subscription) Dispose(closed bool) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = closed
	s.stopped = true
	entries := s.teardowns
	s.teardowns = nil
	var finalizer func()
	if !s.finalized {
		finalizer = s.finalizer
		s.finalized = true
	}
	s.mu.Unlock()

	for _, e := range entries {
		e.teardown.Unsubscribe()
	}
	if finalizer != nil {
		finalizer()
	}
}

func isNilTeardown(t Teardown) bool {
	if t == nil {
		return true
	}
	v := reflect.ValueOf(t)
	switch v.Kind() {
	case reflect.Pointer, reflect.Func, reflect.Map, reflect.Slice, reflect.Interface, reflect.Chan:
		return v.IsNil()
	}
	return false
}
