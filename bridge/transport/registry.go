package transport

import (
	"context"
	"fmt"
	"slices"
	"sync"

	errspkg "github.com/drblury/rxflow/internal/runtime/errors"
	loggingpkg "github.com/drblury/rxflow/internal/runtime/logging"
)

// Builder opens a Transport from cfg.
type Builder func(ctx context.Context, cfg Config, log loggingpkg.ServiceLogger) (Transport, error)

// Capabilities describes the delivery guarantees of a broker. The bridge
// relies on ordering to keep a stream's notifications in sequence.
type Capabilities struct {
	Name             string
	SupportsOrdering bool
	SupportsAck      bool
	SupportsNack     bool
	Durable          bool
}

type entry struct {
	build Builder
	caps  Capabilities
}

// Registry maps broker names to builders.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]entry
}

// DefaultRegistry holds the built-in brokers.
var DefaultRegistry = NewRegistry()

func init() {
	registerBuiltins(DefaultRegistry)
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]entry)}
}

// Register adds or replaces the builder for name.
func (r *Registry) Register(name string, build Builder, caps Capabilities) {
	if caps.Name == "" {
		caps.Name = name
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[name] = entry{build: build, caps: caps}
}

// Capabilities returns what is known about name. Unknown brokers report
// only their name.
func (r *Registry) Capabilities(name string) Capabilities {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.entries[name]; ok {
		return e.caps
	}
	return Capabilities{Name: name}
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.entries[name]
	return ok
}

// Names lists the registered brokers in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Build validates cfg and opens the transport of the selected broker.
func (r *Registry) Build(ctx context.Context, cfg Config, log loggingpkg.ServiceLogger) (Transport, error) {
	name := cfg.BrokerName()

	r.mu.RLock()
	e, ok := r.entries[name]
	r.mu.RUnlock()
	if !ok {
		return Transport{}, fmt.Errorf("%w: %q (registered: %v)", errspkg.ErrUnknownTransport, name, r.Names())
	}
	if err := cfg.Validate(); err != nil {
		return Transport{}, errspkg.NewConfigValidationError(err)
	}

	log = loggingpkg.OrNop(log).With(loggingpkg.LogFields{"broker": name})
	t, err := e.build(ctx, cfg, log)
	if err != nil {
		return Transport{}, fmt.Errorf("failed to build %s transport: %w", name, err)
	}
	log.Info("Transport ready", loggingpkg.LogFields{"ordering": e.caps.SupportsOrdering})
	return t, nil
}

// Register adds a builder to the default registry.
func Register(name string, build Builder, caps Capabilities) {
	DefaultRegistry.Register(name, build, caps)
}

// Open builds cfg's transport from the default registry.
func Open(ctx context.Context, cfg Config, log loggingpkg.ServiceLogger) (Transport, error) {
	return DefaultRegistry.Build(ctx, cfg, log)
}

func registerBuiltins(r *Registry) {
	r.Register(ChannelName, buildChannel, Capabilities{SupportsOrdering: true, SupportsAck: true, SupportsNack: true})
	r.Register(KafkaName, buildKafka, Capabilities{SupportsOrdering: true, SupportsAck: true, Durable: true})
	r.Register(RabbitMQName, buildRabbitMQ, Capabilities{SupportsAck: true, SupportsNack: true, Durable: true})
	r.Register(NATSName, buildNATS, Capabilities{SupportsOrdering: true})
	r.Register(HTTPName, buildHTTP, Capabilities{SupportsAck: true})
	r.Register(AWSName, buildAWS, Capabilities{SupportsAck: true, SupportsNack: true, Durable: true})
}
