package runtime

import (
	"sync"

	"github.com/drblury/rxflow/internal/runtime/ids"
)

// SubjectFactory builds the Subject a Connectable multicasts through. It is
// called again whenever the current subject is exhausted.
type SubjectFactory func() SubjectLike

// ConnectableOptions tune a Connectable.
type ConnectableOptions struct {
	// Name labels the connectable in logs and metrics.
	Name string
	// RefCount connects on the first subscriber and disconnects when the
	// last one leaves.
	RefCount bool
	// Replay keeps a stopped subject for late subscribers and renews it only
	// once it is closed. Replay implies reference counting.
	Replay bool
	// KeepAlive skips the counting, so the source stays connected once
	// started.
	KeepAlive bool
	Hooks     ConnectableHooks
}

// RefCount is the subscriber count of a Connectable. Reconnect redirection
// shares one handle between connectables so they count together.
type RefCount struct {
	mu    sync.Mutex
	count int
}

func (r *RefCount) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

func (r *RefCount) add(delta int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.count += delta
	return r.count
}

// Connectable shares one subscription to its source among many subscribers
// through a Subject. The source is started by Connect, or by the first
// subscriber when reference counting is on.
type Connectable struct {
	id      string
	factory SubjectFactory
	opts    ConnectableOptions

	mu        sync.Mutex
	source    Producer
	subject   *Subscriber
	connected bool
	refs      *RefCount
}

// NewConnectable prepares a Connectable over source. A nil factory uses a
// plain Subject. The OnConstruct hook may return a replacement, which is
// returned instead.
func NewConnectable(source Producer, factory SubjectFactory, opts ConnectableOptions) *Connectable {
	if factory == nil {
		factory = func() SubjectLike { return NewSubject() }
	}
	c := &Connectable{
		id:      ids.New(ids.ConnectablePrefix),
		factory: factory,
		opts:    opts,
		source:  source,
		refs:    &RefCount{},
	}
	c.currentSubject()

	if hook := opts.Hooks.OnConstruct; hook != nil {
		if replacement := hook(c, c.Subject()); replacement != nil {
			return replacement
		}
	}
	return c
}

func (c *Connectable) producer() {}

func (c *Connectable) ID() string { return c.id }

// Name returns the configured name, or the id when none was given.
func (c *Connectable) Name() string {
	if c.opts.Name != "" {
		return c.opts.Name
	}
	return c.id
}

func (c *Connectable) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// Refs returns the shared subscriber count.
func (c *Connectable) Refs() *RefCount {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.refs
}

// Subject returns the subject currently multicasting the source.
func (c *Connectable) Subject() SubjectLike {
	c.mu.Lock()
	defer c.mu.Unlock()
	return subjectOf(c.subject)
}

func subjectOf(wrapper *Subscriber) SubjectLike {
	if wrapper == nil {
		return nil
	}
	return wrapper.Sink().(SubjectLike)
}

// exhausted reports whether target can no longer serve subscribers. In
// replay mode a stopped subject still replays, so only closing exhausts it.
func (c *Connectable) exhausted(target SubjectLike) bool {
	if c.opts.Replay {
		return target.Closed()
	}
	return target.Stopped()
}

// currentSubject returns the wrapper subscriber around the live subject,
// building a fresh one from the factory when the current subject is
// exhausted. While connected, a renewal gives OnReconnect the chance to
// redirect this connectable onto another one's source, subject and count.
func (c *Connectable) currentSubject() *Subscriber {
	c.mu.Lock()
	cur := c.subject
	if cur != nil && !c.exhausted(subjectOf(cur)) {
		c.mu.Unlock()
		return cur
	}
	target := c.factory()
	if cur != nil && target == subjectOf(cur) {
		c.mu.Unlock()
		return cur
	}
	wrapper := NewSubscriber(target)
	c.subject = wrapper
	connected := c.connected
	c.mu.Unlock()

	hooks := c.opts.Hooks
	if connected && !target.Stopped() && hooks.OnReconnect != nil {
		if other := hooks.OnReconnect(c, target); other != nil && other != c {
			c.redirect(other)
		}
	}

	c.mu.Lock()
	wrapper = c.subject
	c.mu.Unlock()
	live := subjectOf(wrapper)
	if !live.Stopped() && hooks.OnDisconnect != nil {
		wrapper.Add(TeardownFunc(func() { hooks.OnDisconnect(c, live) }))
	}
	return wrapper
}

// redirect adopts other's source, subject and reference count handle.
func (c *Connectable) redirect(other *Connectable) {
	other.mu.Lock()
	source, subject, refs := other.source, other.subject, other.refs
	other.mu.Unlock()

	c.mu.Lock()
	c.source, c.subject, c.refs = source, subject, refs
	c.mu.Unlock()
}

// Subscribe attaches sink to the shared subject. With reference counting the
// first subscriber connects the source. A subscriber arriving after the
// subject was renewed reconnects the source to the new subject.
func (c *Connectable) Subscribe(sink Sink) *Subscriber {
	sub := NewSubscriber(sink)
	sub.markConnected()
	wrapper := c.currentSubject()
	target := subjectOf(wrapper)
	hooks := c.opts.Hooks

	if hooks.OnUnsubscribe != nil {
		sub.Add(TeardownFunc(func() { hooks.OnUnsubscribe(c, target) }))
	}
	if hooks.OnSubscribe != nil {
		hooks.OnSubscribe(c, sub, target)
	}
	target.Subscribe(sub)

	if c.opts.RefCount || c.opts.Replay {
		c.refCount(wrapper, target, sub)
	}
	if c.Connected() && !wrapper.Connected() {
		c.connect(true)
	}
	return sub
}

// refCount counts sub and disconnects the source when the last counted
// subscriber leaves. In replay mode a stopped subject is left alone so it can
// keep replaying.
func (c *Connectable) refCount(wrapper *Subscriber, target SubjectLike, sub *Subscriber) {
	if !c.opts.KeepAlive {
		refs := c.Refs()
		refs.add(1)
		sub.Add(TeardownFunc(func() {
			remaining := refs.add(-1)
			keep := !c.opts.Replay || !target.Stopped()
			if remaining == 0 && keep && c.Connected() {
				wrapper.Unsubscribe()
			}
		}))
	}
	if !c.Connected() {
		c.Connect()
	}
}

// Connect subscribes the current subject to the source. It is a no-op when
// already connected. The returned subscriber disconnects the source when
// unsubscribed.
func (c *Connectable) Connect() *Subscriber {
	return c.connect(false)
}

func (c *Connectable) connect(force bool) *Subscriber {
	c.mu.Lock()
	wrapper := c.subject
	if c.connected && !force {
		c.mu.Unlock()
		return wrapper
	}
	c.connected = true
	source := c.source
	c.mu.Unlock()

	if hook := c.opts.Hooks.OnConnect; hook != nil {
		hook(c, subjectOf(wrapper))
	}
	if isNilProducer(source) {
		wrapper.markConnected()
		return wrapper
	}
	source.Subscribe(wrapper)
	return wrapper
}

// Lift returns a container of the source's kind. The operator still
// subscribes c, so piped stages see the shared subject and nothing flows
// before Connect.
func (c *Connectable) Lift(p Publisher) Producer {
	c.mu.Lock()
	source := c.source
	c.mu.Unlock()
	if isNilProducer(source) {
		return NewObservable(p)
	}
	return source.Lift(p)
}

func (c *Connectable) Pipe(ops ...Operator) Producer {
	return mustPipe(c, ops)
}

// NewMulticast returns a Connectable over source, or, with a selector, a cold
// Observable that pipes each subscriber's view of the shared subject through
// selector and connects the source on first use. With RefCount the selector
// form disconnects once its last subscriber leaves.
func NewMulticast(source Producer, factory SubjectFactory, selector Operator, opts ConnectableOptions) Producer {
	c := NewConnectable(source, factory, ConnectableOptions{
		Name:      opts.Name,
		Replay:    opts.Replay,
		KeepAlive: opts.KeepAlive,
		Hooks:     opts.Hooks,
		RefCount:  opts.RefCount && selector == nil,
	})
	if selector == nil {
		return c
	}

	return NewObservable(func(sub *Subscriber) Teardown {
		wrapper := c.currentSubject()
		target := subjectOf(wrapper)
		hooks := c.opts.Hooks

		if hooks.OnUnsubscribe != nil {
			sub.Add(TeardownFunc(func() { hooks.OnUnsubscribe(c, target) }))
		}
		if hooks.OnSubscribe != nil {
			hooks.OnSubscribe(c, sub, target)
		}
		if opts.RefCount {
			refs := c.Refs()
			refs.add(1)
			sub.Add(TeardownFunc(func() {
				if refs.add(-1) == 0 {
					wrapper.Unsubscribe()
				}
			}))
		}

		mustPipe(target, []Operator{selector}).Subscribe(sub)
		if !wrapper.Connected() {
			c.connect(true)
		}
		return nil
	})
}
