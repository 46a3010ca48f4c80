package operators

import (
	"sync"

	runtimepkg "github.com/drblury/rxflow/internal/runtime"
)

// GroupOptions tune GroupBy.
type GroupOptions struct {
	// Element transforms a message before it enters its group.
	Element func(v, key any) any
	// Duration returns a notifier that closes the group on its first
	// message. Messages for a closed group are dropped.
	Duration func(group runtimepkg.SubjectLike) runtimepkg.Producer
	// Subject builds the subject backing a new group. Defaults to a plain
	// Subject.
	Subject func(key any) runtimepkg.SubjectLike
}

// group is one partition: sink receives the messages, stream is what
// downstream subscribes to.
type group struct {
	sink   runtimepkg.SubjectLike
	stream runtimepkg.Producer
}

func newGroup(sink runtimepkg.SubjectLike, duration func(runtimepkg.SubjectLike) runtimepkg.Producer) (*group, error) {
	g := &group{sink: sink, stream: sink}
	if duration == nil {
		return g, nil
	}
	var notifier runtimepkg.Producer
	if err := call(func() { notifier = duration(sink) }); err != nil {
		return nil, err
	}
	g.stream = sink.Pipe(TakeUntil(notifier))
	return g, nil
}

type groupState struct {
	mu     sync.Mutex
	order  []any
	groups map[any]*group
}

// snapshot returns the groups in first-seen order.
func (st *groupState) snapshot() []*group {
	st.mu.Lock()
	defer st.mu.Unlock()
	out := make([]*group, 0, len(st.order))
	for _, key := range st.order {
		out = append(out, st.groups[key])
	}
	return out
}

// GroupBy partitions the source by key. The first message for a key opens a
// group and emits the group's stream downstream; that message and every
// later one with the same key are then sent into the group. Messages whose
// key is nil are dropped. Keys must be comparable.
//
// When the source completes every group completes in first-seen order;
// when the subscription is disposed every group is unsubscribed.
func GroupBy(key func(v any) any, opts GroupOptions) runtimepkg.Operator {
	return runtimepkg.Operate(runtimepkg.Harness[*groupState]{
		Setup: func(_, _ *runtimepkg.Subscriber) (*groupState, error) {
			return &groupState{groups: make(map[any]*group)}, nil
		},
		Next: func(op, down *runtimepkg.Subscriber, v any, st *groupState) {
			k := key(v)
			if k == nil {
				return
			}

			st.mu.Lock()
			g, ok := st.groups[k]
			st.mu.Unlock()
			if !ok {
				var sink runtimepkg.SubjectLike
				if opts.Subject != nil {
					sink = opts.Subject(k)
				}
				if sink == nil {
					sink = runtimepkg.NewSubject()
				}
				var err error
				if g, err = newGroup(sink, opts.Duration); err != nil {
					op.Error(err)
					return
				}
				st.mu.Lock()
				st.order = append(st.order, k)
				st.groups[k] = g
				st.mu.Unlock()
				down.Next(g.stream)
			}

			if opts.Element != nil {
				v = opts.Element(v, k)
			}
			g.sink.Next(v)
		},
		Complete: func(_, down *runtimepkg.Subscriber, st *groupState) {
			for _, g := range st.snapshot() {
				g.sink.Complete()
			}
			down.Complete()
		},
		Unsubscribe: func(_, down *runtimepkg.Subscriber, st *groupState) {
			for _, g := range st.snapshot() {
				g.sink.Unsubscribe()
			}
			down.Unsubscribe()
		},
	})
}
