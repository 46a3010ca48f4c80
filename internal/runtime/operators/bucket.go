package operators

import (
	"sync"

	runtimepkg "github.com/drblury/rxflow/internal/runtime"
)

// BucketRange identifies the bucket a message fell into. Range buckets
// carry their bounds; the default bucket carries the configured default
// value instead.
type BucketRange struct {
	Lower   float64
	Upper   float64
	Default bool
	Value   any
}

// BucketOptions tune Bucket.
type BucketOptions struct {
	// Default opens a catch-all bucket for keys outside every range. When
	// nil, such messages are dropped.
	Default any
	// Element transforms a message before it enters its bucket.
	Element func(v any, r BucketRange) any
	// Duration returns a notifier that closes the bucket on its first
	// message.
	Duration func(bucket runtimepkg.SubjectLike) runtimepkg.Producer
	// Subject builds the subject backing a new bucket.
	Subject func(r BucketRange) runtimepkg.SubjectLike
}

type bucketState struct {
	mu       sync.Mutex
	ranges   []*group
	fallback *group
}

func (st *bucketState) snapshot() []*group {
	st.mu.Lock()
	defer st.mu.Unlock()
	out := make([]*group, 0, len(st.ranges)+1)
	for _, g := range st.ranges {
		if g != nil {
			out = append(out, g)
		}
	}
	if st.fallback != nil {
		out = append(out, st.fallback)
	}
	return out
}

// Bucket partitions the source into numeric ranges. boundaries must be
// ascending; consecutive pairs form the buckets [b0, b1], [b1, b2] and so on.
// Both bounds are inclusive and the first matching range wins, so a key equal
// to an inner boundary lands in the lower bucket.
//
// Like GroupBy, each bucket is emitted downstream as a stream when its first
// message arrives. On completion the buckets complete in boundary order with
// the default bucket last.
func Bucket(boundaries []float64, key func(v any) float64, opts BucketOptions) runtimepkg.Operator {
	bounds := append([]float64(nil), boundaries...)
	slots := max(len(bounds)-1, 0)

	locate := func(k float64) (int, BucketRange, bool) {
		for i := 0; i < slots; i++ {
			if k >= bounds[i] && k <= bounds[i+1] {
				return i, BucketRange{Lower: bounds[i], Upper: bounds[i+1]}, true
			}
		}
		if opts.Default != nil {
			return -1, BucketRange{Default: true, Value: opts.Default}, true
		}
		return 0, BucketRange{}, false
	}

	return runtimepkg.Operate(runtimepkg.Harness[*bucketState]{
		Setup: func(_, _ *runtimepkg.Subscriber) (*bucketState, error) {
			return &bucketState{ranges: make([]*group, slots)}, nil
		},
		Next: func(op, down *runtimepkg.Subscriber, v any, st *bucketState) {
			slot, r, ok := locate(key(v))
			if !ok {
				return
			}

			st.mu.Lock()
			g := st.fallback
			if slot >= 0 {
				g = st.ranges[slot]
			}
			st.mu.Unlock()

			if g == nil {
				var sink runtimepkg.SubjectLike
				if opts.Subject != nil {
					sink = opts.Subject(r)
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
				if slot >= 0 {
					st.ranges[slot] = g
				} else {
					st.fallback = g
				}
				st.mu.Unlock()
				down.Next(g.stream)
			}

			if opts.Element != nil {
				v = opts.Element(v, r)
			}
			g.sink.Next(v)
		},
		Complete: func(_, down *runtimepkg.Subscriber, st *bucketState) {
			for _, g := range st.snapshot() {
				g.sink.Complete()
			}
			down.Complete()
		},
		Unsubscribe: func(_, down *runtimepkg.Subscriber, st *bucketState) {
			for _, g := range st.snapshot() {
				g.sink.Unsubscribe()
			}
			down.Unsubscribe()
		},
	})
}
