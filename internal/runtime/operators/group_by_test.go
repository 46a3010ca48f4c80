package operators

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	runtimepkg "github.com/drblury/rxflow/internal/runtime"
	errspkg "github.com/drblury/rxflow/internal/runtime/errors"
)

func collectGroups(p runtimepkg.Producer) *sink {
	return collect(p.Pipe(MergeMap(func(g any, _ int) runtimepkg.Producer {
		return g.(runtimepkg.Producer).Pipe(ToArray())
	}, nil, 0)))
}

func parity(v any) any {
	if v.(int)%2 == 0 {
		return "even"
	}
	return "odd"
}

func TestGroupBy_PartitionsByKey(t *testing.T) {
	out := collectGroups(runtimepkg.Of(1, 2, 3, 4, 5, 6).Pipe(GroupBy(parity, GroupOptions{})))

	assert.Equal(t, []any{[]any{1, 3, 5}, []any{2, 4, 6}}, out.Values())
	assert.Equal(t, 1, out.Completed())
}

func TestGroupBy_DropsNilKeys(t *testing.T) {
	key := func(v any) any {
		if s, ok := v.(string); ok {
			return s[:1]
		}
		return nil
	}
	out := collectGroups(runtimepkg.Of("a1", 7, "b1", nil, "a2").Pipe(GroupBy(key, GroupOptions{})))

	assert.Equal(t, []any{[]any{"a1", "a2"}, []any{"b1"}}, out.Values())
}

func TestGroupBy_Element(t *testing.T) {
	opts := GroupOptions{Element: func(v, key any) any { return key.(string) + ":" + strings.Repeat("x", v.(int)) }}
	out := collectGroups(runtimepkg.Of(1, 2, 3).Pipe(GroupBy(parity, opts)))

	assert.Equal(t, []any{[]any{"odd:x", "odd:xxx"}, []any{"even:xx"}}, out.Values())
}

func TestGroupBy_DurationClosesGroup(t *testing.T) {
	opts := GroupOptions{
		Duration: func(g runtimepkg.SubjectLike) runtimepkg.Producer {
			return g.Pipe(Filter(func(v any) bool { return strings.HasSuffix(v.(string), "stop") }))
		},
	}
	key := func(v any) any { return v.(string)[:1] }

	out := collectGroups(runtimepkg.Of("a1", "b1", "a2", "a-stop", "a3", "b2").Pipe(GroupBy(key, opts)))

	assert.Equal(t, []any{[]any{"a1", "a2"}, []any{"b1", "b2"}}, out.Values())
	assert.Equal(t, 1, out.Completed())
}

func TestGroupBy_DurationPanicErrors(t *testing.T) {
	opts := GroupOptions{Duration: func(runtimepkg.SubjectLike) runtimepkg.Producer { panic("no notifier") }}
	out := collect(runtimepkg.Of(1).Pipe(GroupBy(parity, opts)))

	var pe *errspkg.PanicError
	assert.ErrorAs(t, out.Err(), &pe)
}

func TestGroupBy_CustomSubjectsAreReleased(t *testing.T) {
	var created []*runtimepkg.Subject
	opts := GroupOptions{
		Subject: func(any) runtimepkg.SubjectLike {
			s := runtimepkg.NewSubject()
			created = append(created, s)
			return s
		},
	}
	src := runtimepkg.NewSubject()

	sub := src.Pipe(GroupBy(parity, opts)).Subscribe(&sink{})
	src.Next(1)
	src.Next(2)
	src.Next(3)
	require.Len(t, created, 2)

	sub.Unsubscribe()
	for _, s := range created {
		assert.True(t, s.Closed())
	}
	assert.Equal(t, 0, src.Observers())
}

func TestGroupBy_ErrorReachesDownstreamOnly(t *testing.T) {
	src := runtimepkg.NewSubject()
	out := collect(src.Pipe(GroupBy(parity, GroupOptions{})))
	src.Next(1)
	src.Error(errspkg.ErrNoElements)

	assert.ErrorIs(t, out.Err(), errspkg.ErrNoElements)
	assert.Len(t, out.Values(), 1)
}
