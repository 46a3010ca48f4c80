package operators

import (
	"testing"

	"github.com/stretchr/testify/assert"

	runtimepkg "github.com/drblury/rxflow/internal/runtime"
)

func asFloat(v any) float64 { return float64(v.(int)) }

func TestBucket(t *testing.T) {
	tests := []struct {
		name       string
		boundaries []float64
		opts       BucketOptions
		input      []any
		want       []any
	}{
		{
			name:       "ranges with default bucket last",
			boundaries: []float64{0, 5, 10},
			opts:       BucketOptions{Default: "other"},
			input:      []any{1, 7, 5, 12, 3},
			want:       []any{[]any{1, 5, 3}, []any{7}, []any{12}},
		},
		{
			name:       "unmatched keys dropped without default",
			boundaries: []float64{0, 5, 10},
			input:      []any{1, 7, 5, 12, 3},
			want:       []any{[]any{1, 5, 3}, []any{7}},
		},
		{
			name:       "boundary value lands in lower bucket",
			boundaries: []float64{0, 5, 10},
			input:      []any{10, 5, 0},
			want:       []any{[]any{5, 0}, []any{10}},
		},
		{
			name:  "no boundaries sends everything to default",
			opts:  BucketOptions{Default: true},
			input: []any{-1, 100},
			want:  []any{[]any{-1, 100}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := collectGroups(runtimepkg.Of(tt.input...).Pipe(Bucket(tt.boundaries, asFloat, tt.opts)))
			assert.Equal(t, tt.want, out.Values())
			assert.Equal(t, 1, out.Completed())
		})
	}
}

func TestBucket_ElementSeesRange(t *testing.T) {
	opts := BucketOptions{
		Default: "other",
		Element: func(_ any, r BucketRange) any {
			if r.Default {
				return r.Value
			}
			return r.Lower
		},
	}
	out := collect(runtimepkg.Of(1, 7, 12).Pipe(Bucket([]float64{0, 5, 10}, asFloat, opts), MergeAll(0)))

	assert.Equal(t, []any{float64(0), float64(5), "other"}, out.Values())
}

func TestBucket_SubjectPerRange(t *testing.T) {
	var ranges []BucketRange
	opts := BucketOptions{
		Subject: func(r BucketRange) runtimepkg.SubjectLike {
			ranges = append(ranges, r)
			return runtimepkg.NewReplaySubject(runtimepkg.ReplayOptions{})
		},
	}
	out := collect(runtimepkg.Of(6, 2, 8).Pipe(Bucket([]float64{0, 5, 10}, asFloat, opts)))

	assert.Len(t, out.Values(), 2)
	assert.Equal(t, []BucketRange{{Lower: 5, Upper: 10}, {Lower: 0, Upper: 5}}, ranges)
}
