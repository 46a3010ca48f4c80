package runtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// trackedSource is a cold source that counts its subscriptions and
// releases.
type trackedSource struct {
	values     []any
	subscribed int
	released   int
}

func (s *trackedSource) Observable() *Observable {
	return NewObservable(func(sub *Subscriber) Teardown {
		s.subscribed++
		for _, v := range s.values {
			sub.Next(v)
		}
		sub.Complete()
		return TeardownFunc(func() { s.released++ })
	})
}

// hotSource wraps a Subject and counts how often it is subscribed.
type hotSource struct {
	*Subject
	subscribed int
}

func newHotSource() *hotSource {
	return &hotSource{Subject: NewSubject()}
}

func (h *hotSource) Observable() *Observable {
	return NewObservable(func(sub *Subscriber) Teardown {
		h.subscribed++
		return h.Subject.Subscribe(sub)
	})
}

func TestConnectable_ConnectStartsSource(t *testing.T) {
	src := &trackedSource{values: []any{1, 2, 3}}
	c := NewConnectable(src.Observable(), nil, ConnectableOptions{})

	first, second := &recorder{}, &recorder{}
	c.Subscribe(first)
	c.Subscribe(second)
	assert.Equal(t, 0, src.subscribed)
	assert.False(t, c.Connected())

	c.Connect()
	c.Connect()

	assert.Equal(t, 1, src.subscribed)
	assert.Equal(t, []any{1, 2, 3}, first.Values())
	assert.Equal(t, []any{1, 2, 3}, second.Values())
	assert.Equal(t, 1, first.Completed())
}

func TestConnectable_RefCount(t *testing.T) {
	src := newHotSource()
	c := NewConnectable(src.Observable(), nil, ConnectableOptions{RefCount: true})

	first := c.Subscribe(&recorder{})
	assert.True(t, c.Connected())
	assert.Equal(t, 1, src.subscribed)
	assert.Equal(t, 1, c.Refs().Count())

	rec := &recorder{}
	second := c.Subscribe(rec)
	assert.Equal(t, 1, src.subscribed)
	assert.Equal(t, 2, c.Refs().Count())

	src.Next("x")
	assert.Equal(t, []any{"x"}, rec.Values())

	first.Unsubscribe()
	assert.Equal(t, 1, src.Observers())
	second.Unsubscribe()
	assert.Equal(t, 0, c.Refs().Count())
	assert.Equal(t, 0, src.Observers())

	again := &recorder{}
	c.Subscribe(again)
	assert.Equal(t, 2, src.subscribed)
	src.Next("y")
	assert.Equal(t, []any{"y"}, again.Values())
}

func TestConnectable_KeepAlive(t *testing.T) {
	src := newHotSource()
	c := NewConnectable(src.Observable(), nil, ConnectableOptions{RefCount: true, KeepAlive: true})

	sub := c.Subscribe(&recorder{})
	sub.Unsubscribe()

	assert.Equal(t, 0, c.Refs().Count())
	assert.Equal(t, 1, src.Observers())
}

func TestConnectable_RenewsExhaustedSubject(t *testing.T) {
	src := &trackedSource{values: []any{"a"}}
	c := NewConnectable(src.Observable(), nil, ConnectableOptions{RefCount: true})

	first := &recorder{}
	c.Subscribe(first)
	firstSubject := c.Subject()
	assert.True(t, firstSubject.Stopped())

	second := &recorder{}
	c.Subscribe(second)

	assert.NotSame(t, firstSubject, c.Subject())
	assert.Equal(t, 2, src.subscribed)
	assert.Equal(t, []any{"a"}, second.Values())
	assert.Equal(t, 1, second.Completed())
}

func TestConnectable_ReplayKeepsStoppedSubject(t *testing.T) {
	src := &trackedSource{values: []any{1, 2, 3}}
	factory := func() SubjectLike { return NewReplaySubject(ReplayOptions{}) }
	c := NewConnectable(src.Observable(), factory, ConnectableOptions{Replay: true})

	first := &recorder{}
	c.Subscribe(first)
	late := &recorder{}
	c.Subscribe(late)

	assert.Equal(t, 1, src.subscribed)
	assert.Equal(t, []any{1, 2, 3}, first.Values())
	assert.Equal(t, []any{1, 2, 3}, late.Values())
	assert.Equal(t, 1, late.Completed())
}

func TestConnectable_HooksFireInOrder(t *testing.T) {
	var events []string
	hooks := ConnectableHooks{
		OnConstruct: func(*Connectable, SubjectLike) *Connectable {
			events = append(events, "construct")
			return nil
		},
		OnSubscribe:   func(*Connectable, *Subscriber, SubjectLike) { events = append(events, "subscribe") },
		OnUnsubscribe: func(*Connectable, SubjectLike) { events = append(events, "unsubscribe") },
		OnConnect:     func(*Connectable, SubjectLike) { events = append(events, "connect") },
		OnDisconnect:  func(*Connectable, SubjectLike) { events = append(events, "disconnect") },
	}
	src := newHotSource()
	c := NewConnectable(src.Observable(), nil, ConnectableOptions{RefCount: true, Hooks: hooks})

	sub := c.Subscribe(&recorder{})
	sub.Unsubscribe()

	assert.Equal(t, []string{"construct", "subscribe", "connect", "unsubscribe", "disconnect"}, events)
}

func TestConnectable_OnConstructReplaces(t *testing.T) {
	replacement := NewConnectable(Of(1), nil, ConnectableOptions{})
	c := NewConnectable(Of(2), nil, ConnectableOptions{Hooks: ConnectableHooks{
		OnConstruct: func(*Connectable, SubjectLike) *Connectable { return replacement },
	}})

	assert.Same(t, replacement, c)
}

func TestConnectable_ReconnectRedirectSharesRefCount(t *testing.T) {
	shared := newHotSource()
	primary := NewConnectable(shared.Observable(), nil, ConnectableOptions{Name: "primary", RefCount: true})

	secondary := NewConnectable(Of("warmup"), nil, ConnectableOptions{
		Name:     "secondary",
		RefCount: true,
		Hooks: ConnectableHooks{
			OnReconnect: func(*Connectable, SubjectLike) *Connectable { return primary },
		},
	})
	secondary.Connect()
	require.True(t, secondary.Subject().Stopped())

	a := &recorder{}
	subA := primary.Subscribe(a)
	b := &recorder{}
	subB := secondary.Subscribe(b)

	assert.Same(t, primary.Refs(), secondary.Refs())
	assert.Same(t, primary.Subject(), secondary.Subject())
	assert.Equal(t, 2, primary.Refs().Count())
	assert.Equal(t, 1, shared.subscribed)

	shared.Next(42)
	assert.Equal(t, []any{42}, a.Values())
	assert.Equal(t, []any{42}, b.Values())

	subA.Unsubscribe()
	assert.Equal(t, 1, shared.Observers())
	subB.Unsubscribe()
	assert.Equal(t, 0, shared.Observers())
}

func TestConnectable_PipeGoesThroughSubject(t *testing.T) {
	c := NewConnectable(Of(1, 2), nil, ConnectableOptions{})
	rec := &recorder{}
	c.Pipe(addOne).Subscribe(rec)

	assert.Empty(t, rec.Values())
	assert.False(t, c.Connected())

	c.Connect()
	assert.Equal(t, []any{2, 3}, rec.Values())
}

func TestMulticast_Selector(t *testing.T) {
	src := &trackedSource{values: []any{1, 2, 3}}
	m := NewMulticast(src.Observable(), nil, addOne, ConnectableOptions{})
	_, isObservable := m.(*Observable)
	require.True(t, isObservable)

	first := &recorder{}
	m.Subscribe(first)
	assert.Equal(t, []any{2, 3, 4}, first.Values())
	assert.Equal(t, 1, first.Completed())

	second := &recorder{}
	m.Subscribe(second)
	assert.Equal(t, []any{2, 3, 4}, second.Values())
	assert.Equal(t, 2, src.subscribed)
}

func TestMulticast_WithoutSelectorIsConnectable(t *testing.T) {
	m := NewMulticast(Of(1), nil, nil, ConnectableOptions{RefCount: true})
	c, ok := m.(*Connectable)
	require.True(t, ok)

	rec := &recorder{}
	c.Subscribe(rec)
	assert.Equal(t, []any{1}, rec.Values())
}

func TestConnectableHooks_Merge(t *testing.T) {
	var calls []string
	a := ConnectableHooks{
		OnConnect:   func(*Connectable, SubjectLike) { calls = append(calls, "a") },
		OnReconnect: func(*Connectable, SubjectLike) *Connectable { return nil },
	}
	target := NewConnectable(Of(1), nil, ConnectableOptions{})
	b := ConnectableHooks{
		OnConnect:   func(*Connectable, SubjectLike) { calls = append(calls, "b") },
		OnReconnect: func(*Connectable, SubjectLike) *Connectable { return target },
	}

	merged := a.Merge(b)
	merged.OnConnect(nil, nil)
	assert.Equal(t, []string{"a", "b"}, calls)
	assert.Same(t, target, merged.OnReconnect(nil, nil))
	assert.Nil(t, merged.OnDisconnect)
}

type countingConnRecorder struct {
	connects, disconnects, added, removed int
}

func (r *countingConnRecorder) Connected(string)         { r.connects++ }
func (r *countingConnRecorder) Disconnected(string)      { r.disconnects++ }
func (r *countingConnRecorder) SubscriberAdded(string)   { r.added++ }
func (r *countingConnRecorder) SubscriberRemoved(string) { r.removed++ }

func TestMetricsHooks(t *testing.T) {
	rec := &countingConnRecorder{}
	hooks := MetricsHooks(rec).Merge(LoggingHooks(newTestLogger()))
	src := newHotSource()
	c := NewConnectable(src.Observable(), nil, ConnectableOptions{Name: "feed", RefCount: true, Hooks: hooks})

	sub := c.Subscribe(&recorder{})
	sub.Unsubscribe()

	assert.Equal(t, 1, rec.connects)
	assert.Equal(t, 1, rec.disconnects)
	assert.Equal(t, 1, rec.added)
	assert.Equal(t, 1, rec.removed)
	assert.Equal(t, "feed", c.Name())
}
