package runtime

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	configpkg "github.com/drblury/rxflow/internal/runtime/config"
	errspkg "github.com/drblury/rxflow/internal/runtime/errors"
	"github.com/drblury/rxflow/internal/runtime/scheduler"
)

func TestTryNewEngine_Validation(t *testing.T) {
	tests := []struct {
		name    string
		conf    *configpkg.Config
		log     bool
		wantErr error
		config  bool
	}{
		{name: "nil config", conf: nil, log: true, wantErr: errspkg.ErrConfigRequired, config: true},
		{name: "nil logger", conf: &configpkg.Config{}, log: false, wantErr: errspkg.ErrLoggerRequired},
		{name: "unknown scheduler", conf: &configpkg.Config{DefaultScheduler: "eventually"}, log: true, config: true},
		{name: "negative buffer", conf: &configpkg.Config{ReplayBufferSize: -1}, log: true, config: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log := newTestLogger()
			if !tt.log {
				log = nil
			}
			engine, err := TryNewEngine(tt.conf, log, EngineDependencies{})
			require.Error(t, err)
			assert.Nil(t, engine)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			if tt.config {
				var cve errspkg.ConfigValidationError
				assert.ErrorAs(t, err, &cve)
			}
		})
	}
}

func TestNewEngine_PanicsOnInvalidConfig(t *testing.T) {
	assert.Panics(t, func() {
		NewEngine(&configpkg.Config{DefaultScheduler: "nope"}, newTestLogger(), EngineDependencies{})
	})
}

func TestEngine_Schedulers(t *testing.T) {
	vc := scheduler.NewVirtualClock(epoch)
	engine := NewEngine(&configpkg.Config{DefaultScheduler: " Async "}, newTestLogger(), EngineDependencies{Clock: vc})

	assert.Same(t, engine.Async(), engine.Default())
	assert.Equal(t, scheduler.KindQueue, engine.Queue().Kind())
	assert.Equal(t, scheduler.KindAsap, engine.Asap().Kind())
	assert.Equal(t, scheduler.KindAnimation, engine.Animation().Kind())
	assert.Nil(t, engine.Metrics())
	assert.Equal(t, epoch, engine.Now())

	s, err := engine.Scheduler("asap")
	require.NoError(t, err)
	assert.Same(t, engine.Asap(), s)

	_, err = engine.Scheduler("later")
	assert.ErrorIs(t, err, errspkg.ErrUnknownScheduler)

	rec := &recorder{}
	Timer(time.Second, engine.Async()).Subscribe(rec)
	vc.Advance(time.Second)
	assert.Equal(t, []any{0}, rec.Values())
}

func TestEngine_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	vc := scheduler.NewVirtualClock(epoch)
	engine := NewEngine(&configpkg.Config{MetricsEnabled: true, MetricsNamespace: "engine_test"}, newTestLogger(), EngineDependencies{
		Clock:      vc,
		Registerer: reg,
	})
	require.NotNil(t, engine.Metrics())

	FromSlice([]int{1, 2}, engine.Async()).Subscribe(&recorder{})
	vc.Advance(0)

	snap := engine.Metrics().Snapshot()
	assert.Equal(t, uint64(3), snap.Schedulers["async"].Executed)

	src := NewSubject()
	c := NewConnectable(src, nil, ConnectableOptions{
		Name:     "ticks",
		RefCount: true,
		Hooks:    engine.ConnectableHooks("ticks"),
	})
	sub := c.Subscribe(&recorder{})
	sub.Unsubscribe()

	snap = engine.Metrics().Snapshot()
	assert.Equal(t, uint64(1), snap.Connectables["ticks"].Connects)
	assert.Equal(t, uint64(1), snap.Connectables["ticks"].Disconnects)

	count, err := testutil.GatherAndCount(reg, "engine_test_connectable_connects_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestEngine_ReplayOptions(t *testing.T) {
	engine := NewEngine(&configpkg.Config{ReplayBufferSize: 4}, newTestLogger(), EngineDependencies{Clock: scheduler.NewVirtualClock(epoch)})

	opts := engine.ReplayOptions(time.Minute)
	assert.Equal(t, 4, opts.BufferSize)
	assert.Equal(t, time.Minute, opts.WindowTime)
	assert.Same(t, engine.Queue(), opts.Scheduler)
}

type scopedProvider struct {
	noop.TracerProvider

	scopes []string
}

func (p *scopedProvider) Tracer(name string, opts ...trace.TracerOption) trace.Tracer {
	p.scopes = append(p.scopes, name)
	return p.TracerProvider.Tracer(name, opts...)
}

func TestEngine_Tracer(t *testing.T) {
	tests := []struct {
		name       string
		conf       configpkg.Config
		wantScopes []string
	}{
		{name: "configured name", conf: configpkg.Config{TracingEnabled: true, TracerName: "orders"}, wantScopes: []string{"orders"}},
		{name: "default name", conf: configpkg.Config{TracingEnabled: true}, wantScopes: []string{"rxflow"}},
		{name: "disabled", conf: configpkg.Config{TracerName: "orders"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := &scopedProvider{}
			engine := NewEngine(&tt.conf, newTestLogger(), EngineDependencies{
				Clock:          scheduler.NewVirtualClock(epoch),
				TracerProvider: provider,
			})
			require.NotNil(t, engine.Tracer())
			assert.Equal(t, tt.wantScopes, provider.scopes)

			_, span := engine.Tracer().Start(t.Context(), "stream")
			defer span.End()
			assert.False(t, span.IsRecording())
		})
	}
}
