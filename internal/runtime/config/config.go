package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Scheduler names accepted by Config.DefaultScheduler and Engine.Scheduler.
const (
	SchedulerQueue     = "queue"
	SchedulerAsync     = "async"
	SchedulerAsap      = "asap"
	SchedulerAnimation = "animation"
)

// DefaultFrameInterval approximates a 60Hz display refresh.
const DefaultFrameInterval = time.Second / 60

// Config groups the settings used to build an Engine. The zero value is
// usable: it selects the queue scheduler with metrics and tracing disabled.
type Config struct {
	// DefaultScheduler names the discipline returned by Engine.Default. One of
	// "queue", "async", "asap" or "animation"; empty means "queue".
	DefaultScheduler string

	// FrameInterval is the tick of the animation scheduler when it runs on
	// the system clock. Zero falls back to DefaultFrameInterval.
	FrameInterval time.Duration

	// Metrics configuration.
	MetricsEnabled bool
	// MetricsNamespace prefixes every collector name. Defaults to "rxflow".
	MetricsNamespace string

	// Tracing configuration.
	TracingEnabled bool
	// TracerName is handed to otel.Tracer. Defaults to "rxflow".
	TracerName string

	// ReplayBufferSize bounds ReplaySubjects built by engine helpers. Zero
	// means unbounded.
	ReplayBufferSize int
}

// SchedulerName returns the normalised default scheduler name.
func (c *Config) SchedulerName() string {
	if name := strings.ToLower(strings.TrimSpace(c.DefaultScheduler)); name != "" {
		return name
	}
	return SchedulerQueue
}

// ResolvedFrameInterval returns FrameInterval or its default.
func (c *Config) ResolvedFrameInterval() time.Duration {
	if c.FrameInterval > 0 {
		return c.FrameInterval
	}
	return DefaultFrameInterval
}

// ResolvedNamespace returns MetricsNamespace or "rxflow".
func (c *Config) ResolvedNamespace() string {
	if c.MetricsNamespace != "" {
		return c.MetricsNamespace
	}
	return "rxflow"
}

// ResolvedTracerName returns TracerName or "rxflow".
func (c *Config) ResolvedTracerName() string {
	if c.TracerName != "" {
		return c.TracerName
	}
	return "rxflow"
}

func (c Config) String() string {
	return fmt.Sprintf(
		"{DefaultScheduler:%s FrameInterval:%s MetricsEnabled:%t MetricsNamespace:%s TracingEnabled:%t TracerName:%s ReplayBufferSize:%d}",
		c.SchedulerName(), c.ResolvedFrameInterval(), c.MetricsEnabled, c.ResolvedNamespace(),
		c.TracingEnabled, c.ResolvedTracerName(), c.ReplayBufferSize,
	)
}

// Validate checks that the configuration is consistent. Every problem found is
// reported, joined with errors.Join.
func (c *Config) Validate() error {
	var errs []error

	errs = append(errs, c.validateScheduler()...)
	errs = append(errs, c.validateLimits()...)

	return errors.Join(errs...)
}

func (c *Config) validateScheduler() []error {
	switch c.SchedulerName() {
	case SchedulerQueue, SchedulerAsync, SchedulerAsap, SchedulerAnimation:
		return nil
	default:
		return []error{fmt.Errorf("scheduler: unknown discipline %q", c.DefaultScheduler)}
	}
}

func (c *Config) validateLimits() []error {
	var errs []error
	if c.FrameInterval < 0 {
		errs = append(errs, errors.New("scheduler: frame interval cannot be negative"))
	}
	if c.ReplayBufferSize < 0 {
		errs = append(errs, errors.New("replay: buffer size cannot be negative"))
	}
	if strings.ContainsAny(c.MetricsNamespace, " -.") {
		errs = append(errs, fmt.Errorf("metrics: invalid namespace %q", c.MetricsNamespace))
	}
	return errs
}

// ValidateConfig is a convenience function to validate a config pointer.
func ValidateConfig(c *Config) error {
	if c == nil {
		return errors.New("config is nil")
	}
	return c.Validate()
}
