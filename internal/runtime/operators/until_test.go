package operators

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	runtimepkg "github.com/drblury/rxflow/internal/runtime"
	errspkg "github.com/drblury/rxflow/internal/runtime/errors"
)

func TestTakeUntil(t *testing.T) {
	src, notifier := runtimepkg.NewSubject(), runtimepkg.NewSubject()
	out := collect(src.Pipe(TakeUntil(notifier)))

	src.Next(1)
	notifier.Next("stop")
	src.Next(2)

	assert.Equal(t, []any{1}, out.Values())
	assert.Equal(t, 1, out.Completed())
	assert.Equal(t, 0, src.Observers())
	assert.Equal(t, 0, notifier.Observers())
}

func TestTakeUntil_NotifierCompletionIsIgnored(t *testing.T) {
	src, notifier := runtimepkg.NewSubject(), runtimepkg.NewSubject()
	out := collect(src.Pipe(TakeUntil(notifier)))

	notifier.Complete()
	src.Next(1)

	assert.Equal(t, []any{1}, out.Values())
	assert.Equal(t, 0, out.Completed())
}

func TestTakeUntil_SyncNotifierSkipsSource(t *testing.T) {
	c := newCounted()
	out := collect(c.Observable().Pipe(TakeUntil(runtimepkg.Of("now"))))

	assert.Equal(t, 1, out.Completed())
	assert.Equal(t, 0, c.subscribed)
}

func TestTakeUntil_NotifierError(t *testing.T) {
	cause := errors.New("notifier failed")
	src := runtimepkg.NewSubject()
	out := collect(src.Pipe(TakeUntil(runtimepkg.Throw(cause))))

	assert.ErrorIs(t, out.Err(), cause)
	assert.Equal(t, 0, src.Observers())
}

func TestUntil_RejectsMissingNotifier(t *testing.T) {
	tests := []struct {
		name string
		op   runtimepkg.Operator
	}{
		{name: "take until", op: TakeUntil(nil)},
		{name: "skip until", op: SkipUntil(nil)},
		{name: "typed nil", op: TakeUntil((*runtimepkg.Subject)(nil))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := collect(runtimepkg.Of(1).Pipe(tt.op))
			assert.ErrorIs(t, out.Err(), errspkg.ErrNotifierNotObservable)
			assert.Empty(t, out.Values())
		})
	}
}

func TestSkipUntil(t *testing.T) {
	src, notifier := runtimepkg.NewSubject(), runtimepkg.NewSubject()
	out := collect(src.Pipe(SkipUntil(notifier)))

	src.Next(1)
	notifier.Next("go")
	src.Next(2)
	notifier.Next("again")
	src.Next(3)
	src.Complete()

	assert.Equal(t, []any{2, 3}, out.Values())
	assert.Equal(t, 1, out.Completed())
	assert.Equal(t, 0, notifier.Observers())
}
