package runtime

import (
	"errors"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errspkg "github.com/drblury/rxflow/internal/runtime/errors"
)

func TestObservable_RunsPublisherPerSubscription(t *testing.T) {
	runs := 0
	obs := NewObservable(func(sub *Subscriber) Teardown {
		runs++
		sub.Next(runs)
		sub.Complete()
		return nil
	})

	first, second := &recorder{}, &recorder{}
	obs.Subscribe(first)
	obs.Subscribe(second)

	assert.Equal(t, 2, runs)
	assert.Equal(t, []any{1}, first.Values())
	assert.Equal(t, []any{2}, second.Values())
	assert.Equal(t, 1, first.Completed())
}

func TestObservable_TeardownRunsOnUnsubscribe(t *testing.T) {
	released := 0
	obs := NewObservable(func(sub *Subscriber) Teardown {
		return TeardownFunc(func() { released++ })
	})

	sub := obs.Subscribe(&recorder{})
	assert.True(t, sub.Connected())
	assert.Equal(t, 0, released)

	sub.Unsubscribe()
	sub.Unsubscribe()
	assert.Equal(t, 1, released)
}

func TestObservable_TeardownAfterSyncCompleteRunsAtOnce(t *testing.T) {
	released := false
	obs := NewObservable(func(sub *Subscriber) Teardown {
		sub.Complete()
		return TeardownFunc(func() { released = true })
	})

	obs.Subscribe(&recorder{})
	assert.True(t, released)
}

func TestObservable_PublisherPanicBecomesError(t *testing.T) {
	obs := NewObservable(func(sub *Subscriber) Teardown {
		sub.Next(1)
		panic("publisher failed")
	})

	rec := &recorder{}
	sub := obs.Subscribe(rec)

	assert.Equal(t, []any{1}, rec.Values())
	var pe *errspkg.PanicError
	require.ErrorAs(t, rec.Err(), &pe)
	assert.True(t, sub.Closed())
}

func TestObservable_ClosedSubscriberSkipsPublisher(t *testing.T) {
	ran := false
	obs := NewObservable(func(*Subscriber) Teardown {
		ran = true
		return nil
	})

	sub := NewSubscriber(&recorder{})
	sub.Unsubscribe()
	assert.Same(t, sub, obs.Subscribe(sub))
	assert.False(t, ran)
}

func TestObservable_FourCallbackForm(t *testing.T) {
	var values []any
	completed, unsubscribed := false, false

	Of(1, 2).Subscribe(NewObserver(
		func(v any) { values = append(values, v) },
		func(error) { t.Fatal("unexpected error") },
		func() { completed = true },
		func() { unsubscribed = true },
	))

	assert.Equal(t, []any{1, 2}, values)
	assert.True(t, completed)
	assert.True(t, unsubscribed)
}

func TestPipe_Composition(t *testing.T) {
	source := Of(1, 2, 3)

	tests := []struct {
		name string
		pipe func() Producer
	}{
		{name: "single pipe", pipe: func() Producer { return source.Pipe(addOne, double) }},
		{name: "chained pipes", pipe: func() Producer { return source.Pipe(addOne).Pipe(double) }},
		{name: "nil stages skipped", pipe: func() Producer { return source.Pipe(nil, addOne, nil, double) }},
		{name: "package function", pipe: func() Producer { return Pipe(source, addOne, double) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recorder{}
			tt.pipe().Subscribe(rec)
			assert.Equal(t, []any{2, 2, 3, 3, 4, 4}, rec.Values())
			assert.Equal(t, 1, rec.Completed())
		})
	}
}

func TestPipe_ErrorsPropagateThroughStages(t *testing.T) {
	cause := errors.New("upstream")
	rec := &recorder{}

	Throw(cause).Pipe(addOne, double).Subscribe(rec)

	assert.ErrorIs(t, rec.Err(), cause)
	assert.Equal(t, 0, rec.Completed())
}

func TestTryPipe_NonObservableStage(t *testing.T) {
	broken := func(Producer) Producer { return nil }
	nilObservable := func(Producer) Producer { return (*Observable)(nil) }

	_, err := TryPipe(Of(1), addOne, broken)
	require.ErrorIs(t, err, errspkg.ErrNotObservable)

	_, err = TryPipe(Of(1), nilObservable)
	require.ErrorIs(t, err, errspkg.ErrNotObservable)

	assert.PanicsWithError(t, "rxflow: cannot pipe to non-observable construct: stage 0", func() {
		Of(1).Pipe(broken)
	})
}

func TestPipe_KeepsSubjectIdentity(t *testing.T) {
	subject := NewSubject()
	piped := subject.Pipe(addOne)
	_, isSubject := piped.(*Subject)
	assert.True(t, isSubject)

	rec := &recorder{}
	piped.Subscribe(rec)
	subject.Next(1)
	subject.Next(2)
	assert.Equal(t, []any{2, 3}, rec.Values())

	_, isObservable := Of(1).Pipe(addOne).(*Observable)
	assert.True(t, isObservable)
}

func TestAsProducer(t *testing.T) {
	p, ok := AsProducer(Of(1))
	assert.True(t, ok)
	assert.NotNil(t, p)

	_, ok = AsProducer(42)
	assert.False(t, ok)

	_, ok = AsProducer((*Subject)(nil))
	assert.False(t, ok)
}

func TestOperate_SetupErrorSkipsUpstream(t *testing.T) {
	subscribed := false
	source := NewObservable(func(*Subscriber) Teardown {
		subscribed = true
		return nil
	})
	cause := errors.New("setup failed")
	op := Operate(Harness[int]{
		Setup: func(_, _ *Subscriber) (int, error) { return 0, cause },
		Next:  func(_, down *Subscriber, v any, _ int) { down.Next(v) },
	})

	rec := &recorder{}
	source.Pipe(op).Subscribe(rec)

	assert.False(t, subscribed)
	assert.ErrorIs(t, rec.Err(), cause)
}

func TestOperate_StatePerSubscription(t *testing.T) {
	type counter struct{ n int }
	count := Operate(Harness[*counter]{
		Setup: func(_, _ *Subscriber) (*counter, error) { return &counter{}, nil },
		Next: func(_, down *Subscriber, _ any, st *counter) {
			st.n++
			down.Next(st.n)
		},
	})

	obs := Of("a", "b").Pipe(count)
	first, second := &recorder{}, &recorder{}
	obs.Subscribe(first)
	obs.Subscribe(second)

	assert.Equal(t, []any{1, 2}, first.Values())
	assert.Equal(t, []any{1, 2}, second.Values())
}

func TestOperate_UnsubscribeReachesUpstream(t *testing.T) {
	var events []string
	source := NewObservable(func(sub *Subscriber) Teardown {
		return TeardownFunc(func() { events = append(events, "source") })
	})
	op := Operate(Harness[struct{}]{
		Unsubscribe: func(_, down *Subscriber, _ struct{}) {
			events = append(events, "operator")
			down.Unsubscribe()
		},
	})

	sub := source.Pipe(op).Subscribe(&recorder{})
	sub.Unsubscribe()

	assert.True(t, slices.Contains(events, "source"))
	assert.Equal(t, []string{"source", "operator"}, events)
}
