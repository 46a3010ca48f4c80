// Package operators holds the rxflow operator library. Every operator is an
// Operator value built on runtime.Operate, so it lifts onto its source and
// piping a Subject yields a Subject.
package operators

import (
	"fmt"

	runtimepkg "github.com/drblury/rxflow/internal/runtime"
	errspkg "github.com/drblury/rxflow/internal/runtime/errors"
)

// Project maps an outer message and its zero-based index to the inner
// stream it should be merged or switched into.
type Project func(v any, index int) runtimepkg.Producer

// Selector combines an outer message with one of its inner messages. The
// indexes count from zero per outer message and per inner stream.
type Selector func(outer, inner any, outerIndex, innerIndex int) any

// projectTo ignores the outer message and reuses inner every time.
func projectTo(inner runtimepkg.Producer) Project {
	return func(any, int) runtimepkg.Producer { return inner }
}

// projectSelf treats every outer message as the inner stream.
func projectSelf(v any, _ int) runtimepkg.Producer {
	p, _ := runtimepkg.AsProducer(v)
	return p
}

// resolve runs project, turning panics and non-stream results into errors.
func resolve(project Project, v any, index int) (inner runtimepkg.Producer, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errspkg.FromRecovered(r)
		}
	}()
	if inner = project(v, index); inner == nil {
		return nil, fmt.Errorf("%w: got %T", errspkg.ErrProjectNotObservable, v)
	}
	if _, ok := runtimepkg.AsProducer(inner); !ok {
		return nil, fmt.Errorf("%w: got nil %T", errspkg.ErrProjectNotObservable, inner)
	}
	return inner, nil
}

// selectValue applies selector when one is set.
func selectValue(selector Selector, outer, inner any, outerIndex, innerIndex int) (out any, err error) {
	if selector == nil {
		return inner, nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = errspkg.FromRecovered(r)
		}
	}()
	return selector(outer, inner, outerIndex, innerIndex), nil
}

// call runs fn, turning a panic into an error.
func call(fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errspkg.FromRecovered(r)
		}
	}()
	fn()
	return nil
}
