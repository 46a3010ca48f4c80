package operators

import (
	runtimepkg "github.com/drblury/rxflow/internal/runtime"
)

// Multicast shares the source through subjects built by factory. Without a
// selector the result is a *runtime.Connectable; with one it is a cold
// stream that pipes each subscriber's view of the shared subject through
// selector.
func Multicast(factory runtimepkg.SubjectFactory, selector runtimepkg.Operator, opts runtimepkg.ConnectableOptions) runtimepkg.Operator {
	return func(src runtimepkg.Producer) runtimepkg.Producer {
		return runtimepkg.NewMulticast(src, factory, selector, opts)
	}
}

// Share multicasts through a fresh Subject per connection, connecting on the
// first subscriber and disconnecting after the last.
func Share(selector runtimepkg.Operator, opts runtimepkg.ConnectableOptions) runtimepkg.Operator {
	opts.RefCount = true
	return Multicast(func() runtimepkg.SubjectLike { return runtimepkg.NewSubject() }, selector, opts)
}

// ShareReplay multicasts through a fresh ReplaySubject per connection. A
// completed connection keeps replaying to late subscribers.
func ShareReplay(replay runtimepkg.ReplayOptions, selector runtimepkg.Operator, opts runtimepkg.ConnectableOptions) runtimepkg.Operator {
	opts.Replay = true
	return Multicast(func() runtimepkg.SubjectLike { return runtimepkg.NewReplaySubject(replay) }, selector, opts)
}

// ShareBehaviour multicasts through a fresh BehaviourSubject seeded with
// initial per connection.
func ShareBehaviour(initial any, selector runtimepkg.Operator, opts runtimepkg.ConnectableOptions) runtimepkg.Operator {
	opts.Replay = true
	return Multicast(func() runtimepkg.SubjectLike { return runtimepkg.NewBehaviourSubject(initial) }, selector, opts)
}

// Publish multicasts through one Subject for the lifetime of the result, so
// a completed source is not restarted.
func Publish(selector runtimepkg.Operator, opts runtimepkg.ConnectableOptions) runtimepkg.Operator {
	return func(src runtimepkg.Producer) runtimepkg.Producer {
		return runtimepkg.NewMulticast(src, fixed(runtimepkg.NewSubject()), selector, opts)
	}
}

// PublishReplay is Publish over a single ReplaySubject.
func PublishReplay(replay runtimepkg.ReplayOptions, selector runtimepkg.Operator, opts runtimepkg.ConnectableOptions) runtimepkg.Operator {
	return func(src runtimepkg.Producer) runtimepkg.Producer {
		return runtimepkg.NewMulticast(src, fixed(runtimepkg.NewReplaySubject(replay)), selector, opts)
	}
}

// PublishBehaviour is Publish over a single BehaviourSubject.
func PublishBehaviour(initial any, selector runtimepkg.Operator, opts runtimepkg.ConnectableOptions) runtimepkg.Operator {
	return func(src runtimepkg.Producer) runtimepkg.Producer {
		return runtimepkg.NewMulticast(src, fixed(runtimepkg.NewBehaviourSubject(initial)), selector, opts)
	}
}

func fixed(subject runtimepkg.SubjectLike) runtimepkg.SubjectFactory {
	return func() runtimepkg.SubjectLike { return subject }
}
