package transport

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drblury/rxflow/bridge"
	runtimepkg "github.com/drblury/rxflow/internal/runtime"
	errspkg "github.com/drblury/rxflow/internal/runtime/errors"
	loggingpkg "github.com/drblury/rxflow/internal/runtime/logging"
)

type mockPublisher struct {
	mu     sync.Mutex
	closed int
}

func (m *mockPublisher) Publish(string, ...*message.Message) error { return nil }

func (m *mockPublisher) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed++
	return nil
}

type mockSubscriber struct {
	closed int
}

func (m *mockSubscriber) Subscribe(context.Context, string) (<-chan *message.Message, error) {
	ch := make(chan *message.Message)
	close(ch)
	return ch, nil
}

func (m *mockSubscriber) Close() error {
	m.closed++
	return nil
}

func staticBuilder(t Transport, err error) Builder {
	return func(context.Context, Config, loggingpkg.ServiceLogger) (Transport, error) {
		return t, err
	}
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry()
	assert.Empty(t, reg.Names())
	assert.False(t, reg.Has("memory"))

	reg.Register("memory", staticBuilder(Transport{}, nil), Capabilities{SupportsOrdering: true})
	reg.Register("archive", staticBuilder(Transport{}, nil), Capabilities{Name: "Archive", Durable: true})

	assert.True(t, reg.Has("memory"))
	assert.Equal(t, []string{"archive", "memory"}, reg.Names())
	assert.Equal(t, Capabilities{Name: "memory", SupportsOrdering: true}, reg.Capabilities("memory"))
	assert.Equal(t, "Archive", reg.Capabilities("archive").Name)
	assert.Equal(t, Capabilities{Name: "carrier-pigeon"}, reg.Capabilities("carrier-pigeon"))
}

func TestDefaultRegistryHasBuiltins(t *testing.T) {
	assert.Equal(t, []string{AWSName, ChannelName, HTTPName, KafkaName, NATSName, RabbitMQName}, DefaultRegistry.Names())
	assert.True(t, DefaultRegistry.Capabilities(ChannelName).SupportsOrdering)
	assert.False(t, DefaultRegistry.Capabilities(AWSName).SupportsOrdering)
}

func TestRegistryBuild(t *testing.T) {
	pub := &mockPublisher{}
	reg := NewRegistry()
	reg.Register("memory", staticBuilder(Transport{Publisher: pub}, nil), Capabilities{})
	reg.Register("broken", staticBuilder(Transport{}, errors.New("dial refused")), Capabilities{})
	reg.Register(KafkaName, staticBuilder(Transport{}, nil), Capabilities{})

	t.Run("selected broker", func(t *testing.T) {
		tr, err := reg.Build(context.Background(), Config{Broker: "memory"}, nil)
		require.NoError(t, err)
		assert.Same(t, pub, tr.Publisher)
	})

	t.Run("unknown broker", func(t *testing.T) {
		_, err := reg.Build(context.Background(), Config{Broker: "smoke-signals"}, nil)
		assert.ErrorIs(t, err, errspkg.ErrUnknownTransport)
		assert.ErrorContains(t, err, "smoke-signals")
	})

	t.Run("empty broker means channel", func(t *testing.T) {
		_, err := reg.Build(context.Background(), Config{}, nil)
		assert.ErrorIs(t, err, errspkg.ErrUnknownTransport)
		assert.ErrorContains(t, err, `"channel"`)
	})

	t.Run("builder error", func(t *testing.T) {
		_, err := reg.Build(context.Background(), Config{Broker: "broken"}, nil)
		assert.ErrorContains(t, err, "failed to build broken transport: dial refused")
	})

	t.Run("invalid config", func(t *testing.T) {
		_, err := reg.Build(context.Background(), Config{Broker: KafkaName}, nil)
		var cfgErr errspkg.ConfigValidationError
		require.ErrorAs(t, err, &cfgErr)
		assert.ErrorContains(t, err, "kafka: at least one broker address is required")
	})
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{name: "channel", cfg: Config{}},
		{name: "kafka", cfg: Config{Broker: KafkaName}, wantErr: "kafka:"},
		{name: "kafka ok", cfg: Config{Broker: KafkaName, KafkaBrokers: []string{"localhost:9092"}}},
		{name: "rabbitmq", cfg: Config{Broker: RabbitMQName}, wantErr: "rabbitmq: url is required"},
		{name: "nats", cfg: Config{Broker: NATSName}, wantErr: "nats: url is required"},
		{name: "http", cfg: Config{Broker: HTTPName}, wantErr: "http:"},
		{name: "http publisher only", cfg: Config{Broker: HTTPName, HTTPPublisherURL: "http://localhost:8080/"}},
		{name: "aws", cfg: Config{Broker: AWSName}, wantErr: "aws:"},
		{name: "aws localstack", cfg: Config{Broker: AWSName, AWSEndpoint: "http://localhost:4566"}},
		{name: "custom broker", cfg: Config{Broker: "custom"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestTransportClose(t *testing.T) {
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	require.NoError(t, Transport{Publisher: pubSub, Subscriber: pubSub}.Close())

	pub, sub := &mockPublisher{}, &mockSubscriber{}
	require.NoError(t, Transport{Publisher: pub, Subscriber: sub}.Close())
	assert.Equal(t, 1, pub.closed)
	assert.Equal(t, 1, sub.closed)

	assert.NoError(t, Transport{}.Close())
}

type results struct {
	mu     sync.Mutex
	values []any
	done   bool
}

func (r *results) Next(v any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values = append(r.values, v)
}

func (r *results) Error(error) {}

func (r *results) Complete() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.done = true
}

func (r *results) Done() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.done
}

func TestOpenChannelCarriesStream(t *testing.T) {
	tr, err := Open(context.Background(), Config{
		Channel: gochannel.Config{BlockPublishUntilSubscriberAck: true},
	}, loggingpkg.NewNopLogger())
	require.NoError(t, err)
	defer tr.Close()

	opts := bridge.Options{Codec: bridge.JSONCodec[string]{}}
	src, err := bridge.FromTopic(context.Background(), tr.Subscriber, "greetings", opts)
	require.NoError(t, err)
	out := &results{}
	src.Subscribe(out)

	_, err = bridge.Publish(context.Background(), runtimepkg.Of("hello", "world"), tr.Publisher, "greetings", opts)
	require.NoError(t, err)

	require.Eventually(t, out.Done, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, []any{"hello", "world"}, out.values)
}
