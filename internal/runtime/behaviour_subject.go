package runtime

// BehaviourSubject is a Subject that remembers its latest value and hands it
// to every new subscriber before anything else.
type BehaviourSubject struct {
	*Subject
	value any
}

// NewBehaviourSubject returns a BehaviourSubject holding initial.
func NewBehaviourSubject(initial any) *BehaviourSubject {
	b := &BehaviourSubject{Subject: NewSubject(), value: initial}
	b.Subject.publisher = func(sub *Subscriber) Teardown {
		sub.Next(b.Value())
		return nil
	}
	return b
}

// Value returns the current value.
func (b *BehaviourSubject) Value() any {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.value
}

// Next records v as the current value and multicasts it.
func (b *BehaviourSubject) Next(v any) {
	b.mu.Lock()
	if b.stopped || b.closed {
		b.mu.Unlock()
		return
	}
	b.value = v
	b.mu.Unlock()
	b.Subject.Next(v)
}

func (b *BehaviourSubject) Pipe(ops ...Operator) Producer {
	return mustPipe(b, ops)
}
