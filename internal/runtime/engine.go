package runtime

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	configpkg "github.com/drblury/rxflow/internal/runtime/config"
	errspkg "github.com/drblury/rxflow/internal/runtime/errors"
	loggingpkg "github.com/drblury/rxflow/internal/runtime/logging"
	"github.com/drblury/rxflow/internal/runtime/metrics"
	"github.com/drblury/rxflow/internal/runtime/scheduler"
)

// EngineDependencies holds the optional collaborators of an Engine. Leave
// fields nil to get the defaults.
type EngineDependencies struct {
	// Clock drives every scheduler. Defaults to a SystemClock using the
	// configured frame interval.
	Clock scheduler.Clock
	// Registerer receives the metrics collectors when metrics are enabled.
	Registerer prometheus.Registerer
	// OnError receives errors from flushes started by the clock.
	OnError func(error)
	// TracerProvider backs Engine.Tracer when tracing is enabled. Defaults
	// to the global provider.
	TracerProvider trace.TracerProvider
}

// Engine owns a set of schedulers sharing one clock, logger and metrics
// collector. Applications usually build one per process.
type Engine struct {
	Conf   *configpkg.Config
	Logger loggingpkg.ServiceLogger

	clock      scheduler.Clock
	schedulers map[string]*scheduler.Scheduler
	metrics    *metrics.Collector
	tracer     trace.Tracer
}

// NewEngine builds an Engine and panics on an invalid configuration.
func NewEngine(conf *configpkg.Config, log loggingpkg.ServiceLogger, deps EngineDependencies) *Engine {
	e, err := TryNewEngine(conf, log, deps)
	if err != nil {
		panic(err)
	}
	return e
}

// TryNewEngine builds an Engine, reporting configuration problems as a
// ConfigValidationError.
func TryNewEngine(conf *configpkg.Config, log loggingpkg.ServiceLogger, deps EngineDependencies) (*Engine, error) {
	if conf == nil {
		return nil, errspkg.NewConfigValidationError(errspkg.ErrConfigRequired)
	}
	if log == nil {
		return nil, errspkg.ErrLoggerRequired
	}
	if err := conf.Validate(); err != nil {
		return nil, errspkg.NewConfigValidationError(err)
	}

	log.Info("Creating stream engine", loggingpkg.LogFields{
		"default_scheduler": conf.SchedulerName(),
		"config":            conf.String(),
	})

	e := &Engine{
		Conf:       conf,
		Logger:     log,
		clock:      deps.Clock,
		schedulers: make(map[string]*scheduler.Scheduler, len(scheduler.Kinds)),
	}
	if e.clock == nil {
		e.clock = scheduler.NewSystemClock(conf.ResolvedFrameInterval())
	}

	e.tracer = newTracer(conf, deps.TracerProvider)

	if conf.MetricsEnabled {
		e.metrics = metrics.NewCollector(conf.ResolvedNamespace(), deps.Registerer)
		if err := e.metrics.Register(); err != nil {
			return nil, fmt.Errorf("register metrics: %w", err)
		}
	}

	for _, kind := range scheduler.Kinds {
		opts := []scheduler.Option{
			scheduler.WithName(string(kind)),
			scheduler.WithClock(e.clock),
			scheduler.WithLogger(log),
			scheduler.WithErrorHandler(deps.OnError),
		}
		if e.metrics != nil {
			opts = append(opts, scheduler.WithRecorder(e.metrics))
		}
		s, err := scheduler.New(kind, opts...)
		if err != nil {
			return nil, err
		}
		e.schedulers[string(kind)] = s
	}
	return e, nil
}

// Scheduler returns the scheduler registered under name.
func (e *Engine) Scheduler(name string) (*scheduler.Scheduler, error) {
	s, ok := e.schedulers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", errspkg.ErrUnknownScheduler, name)
	}
	return s, nil
}

// Default returns the scheduler named by Config.DefaultScheduler.
func (e *Engine) Default() *scheduler.Scheduler {
	return e.schedulers[e.Conf.SchedulerName()]
}

func (e *Engine) Queue() *scheduler.Scheduler     { return e.schedulers[configpkg.SchedulerQueue] }
func (e *Engine) Async() *scheduler.Scheduler     { return e.schedulers[configpkg.SchedulerAsync] }
func (e *Engine) Asap() *scheduler.Scheduler      { return e.schedulers[configpkg.SchedulerAsap] }
func (e *Engine) Animation() *scheduler.Scheduler { return e.schedulers[configpkg.SchedulerAnimation] }

// Clock returns the clock shared by the engine's schedulers.
func (e *Engine) Clock() scheduler.Clock { return e.clock }

// Now reads the engine clock.
func (e *Engine) Now() time.Time { return e.clock.Now() }

func newTracer(conf *configpkg.Config, provider trace.TracerProvider) trace.Tracer {
	if !conf.TracingEnabled {
		return noop.NewTracerProvider().Tracer(conf.ResolvedTracerName())
	}
	if provider == nil {
		provider = otel.GetTracerProvider()
	}
	return provider.Tracer(conf.ResolvedTracerName())
}

// Tracer returns the tracer named by Config.TracerName. With tracing
// disabled its spans are no-ops. Hand it to operators.Trace and
// bridge.Options.Tracer.
func (e *Engine) Tracer() trace.Tracer { return e.tracer }

// Metrics returns the collector, or nil when metrics are disabled.
func (e *Engine) Metrics() *metrics.Collector { return e.metrics }

// ConnectableHooks returns logging hooks, plus metrics hooks when metrics are
// enabled, for a connectable called name.
func (e *Engine) ConnectableHooks(name string) ConnectableHooks {
	hooks := LoggingHooks(e.Logger.With(loggingpkg.LogFields{"connectable": name}))
	if e.metrics != nil {
		hooks = hooks.Merge(MetricsHooks(e.metrics))
	}
	return hooks
}

// ReplayOptions returns ReplaySubject options bounded by the configured
// buffer size, with window expiries on the engine's queue scheduler.
func (e *Engine) ReplayOptions(window time.Duration) ReplayOptions {
	return ReplayOptions{
		BufferSize: e.Conf.ReplayBufferSize,
		WindowTime: window,
		Scheduler:  e.Queue(),
	}
}
