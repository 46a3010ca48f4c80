package runtime

import (
	"github.com/drblury/rxflow/internal/runtime/logging"
)

// ConnectableHooks are optional callbacks around a Connectable's lifecycle.
// Nil hooks are simply not called.
type ConnectableHooks struct {
	// OnConstruct runs once the first subject exists. Returning a non-nil
	// Connectable replaces the one being constructed.
	OnConstruct func(c *Connectable, subject SubjectLike) *Connectable

	// OnSubscribe runs before a subscriber is attached to the subject.
	OnSubscribe func(c *Connectable, sub *Subscriber, subject SubjectLike)

	// OnUnsubscribe runs when that subscriber is disposed.
	OnUnsubscribe func(c *Connectable, subject SubjectLike)

	// OnConnect runs before the source is subscribed to the subject.
	OnConnect func(c *Connectable, subject SubjectLike)

	// OnDisconnect runs when a subject's connection to the source is torn
	// down.
	OnDisconnect func(c *Connectable, subject SubjectLike)

	// OnReconnect runs when a connected Connectable renews its subject.
	// Returning another Connectable redirects this one onto it: its source,
	// its subject and its reference count are shared from then on.
	OnReconnect func(c *Connectable, subject SubjectLike) *Connectable
}

// Merge combines two hook sets. Hooks from other run after those of h. For
// the hooks that return a Connectable, the first non-nil result wins.
func (h ConnectableHooks) Merge(other ConnectableHooks) ConnectableHooks {
	return ConnectableHooks{
		OnConstruct:   chainReplaceHooks(h.OnConstruct, other.OnConstruct),
		OnSubscribe:   chainSubscribeHooks(h.OnSubscribe, other.OnSubscribe),
		OnUnsubscribe: chainSubjectHooks(h.OnUnsubscribe, other.OnUnsubscribe),
		OnConnect:     chainSubjectHooks(h.OnConnect, other.OnConnect),
		OnDisconnect:  chainSubjectHooks(h.OnDisconnect, other.OnDisconnect),
		OnReconnect:   chainReplaceHooks(h.OnReconnect, other.OnReconnect),
	}
}

func chainSubjectHooks(a, b func(*Connectable, SubjectLike)) func(*Connectable, SubjectLike) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(c *Connectable, subject SubjectLike) {
		a(c, subject)
		b(c, subject)
	}
}

func chainSubscribeHooks(a, b func(*Connectable, *Subscriber, SubjectLike)) func(*Connectable, *Subscriber, SubjectLike) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(c *Connectable, sub *Subscriber, subject SubjectLike) {
		a(c, sub, subject)
		b(c, sub, subject)
	}
}

func chainReplaceHooks(a, b func(*Connectable, SubjectLike) *Connectable) func(*Connectable, SubjectLike) *Connectable {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(c *Connectable, subject SubjectLike) *Connectable {
		if r := a(c, subject); r != nil {
			return r
		}
		return b(c, subject)
	}
}

// LoggingHooks returns pre-built hooks that log connection lifecycle events.
func LoggingHooks(logger logging.ServiceLogger) ConnectableHooks {
	logger = logging.OrNop(logger)
	fields := func(c *Connectable, subject SubjectLike) logging.LogFields {
		f := logging.LogFields{
			"connectable": c.Name(),
			"refs":        c.Refs().Count(),
		}
		if subject != nil {
			f["subject_id"] = subject.ID()
			f["observers"] = subject.Observers()
		}
		return f
	}

	return ConnectableHooks{
		OnSubscribe: func(c *Connectable, sub *Subscriber, subject SubjectLike) {
			logger.Trace("Subscriber attached", fields(c, subject))
		},
		OnUnsubscribe: func(c *Connectable, subject SubjectLike) {
			logger.Trace("Subscriber detached", fields(c, subject))
		},
		OnConnect: func(c *Connectable, subject SubjectLike) {
			logger.Debug("Source connected", fields(c, subject))
		},
		OnDisconnect: func(c *Connectable, subject SubjectLike) {
			logger.Debug("Source disconnected", fields(c, subject))
		},
	}
}

// ConnectableRecorder receives connection events. metrics.Collector
// implements it.
type ConnectableRecorder interface {
	Connected(name string)
	Disconnected(name string)
	SubscriberAdded(name string)
	SubscriberRemoved(name string)
}

// MetricsHooks returns pre-built hooks that record connection metrics.
func MetricsHooks(recorder ConnectableRecorder) ConnectableHooks {
	if recorder == nil {
		return ConnectableHooks{}
	}
	return ConnectableHooks{
		OnSubscribe: func(c *Connectable, _ *Subscriber, _ SubjectLike) {
			recorder.SubscriberAdded(c.Name())
		},
		OnUnsubscribe: func(c *Connectable, _ SubjectLike) {
			recorder.SubscriberRemoved(c.Name())
		},
		OnConnect: func(c *Connectable, _ SubjectLike) {
			recorder.Connected(c.Name())
		},
		OnDisconnect: func(c *Connectable, _ SubjectLike) {
			recorder.Disconnected(c.Name())
		},
	}
}
