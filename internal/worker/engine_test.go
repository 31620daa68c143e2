package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Additional-Code/bistro/internal/config"
	"github.com/Additional-Code/bistro/internal/messaging"
)

type scriptedClient struct {
	mu       sync.Mutex
	messages []messaging.Message
	errs     []error
	calls    atomic.Int32
}

func (s *scriptedClient) Publish(context.Context, []byte, []byte) error { return nil }
func (s *scriptedClient) Topic() string                                 { return "orders.events" }

func (s *scriptedClient) Consume(ctx context.Context, handler messaging.Handler) error {
	s.calls.Add(1)
	s.mu.Lock()
	msgs := s.messages
	s.messages = nil
	var err error
	if len(s.errs) > 0 {
		err, s.errs = s.errs[0], s.errs[1:]
	}
	s.mu.Unlock()

	for _, msg := range msgs {
		if herr := handler(ctx, msg); herr != nil {
			return herr
		}
	}
	if err != nil {
		return err
	}
	<-ctx.Done()
	return ctx.Err()
}

func enabledConfig() config.Config {
	return config.Config{Messaging: config.Messaging{
		Enabled: true,
		Workers: config.Worker{Enabled: true, Concurrency: 1, PollInterval: time.Millisecond},
	}}
}

func TestEngineDispatchesByTopic(t *testing.T) {
	client := &scriptedClient{messages: []messaging.Message{
		{Topic: "orders.events", Value: []byte("a")},
		{Topic: "unknown", Value: []byte("b")},
	}}
	got := make(chan string, 2)
	engine := NewEngine(Params{
		Client: client,
		Logger: zap.NewNop(),
		Config: enabledConfig(),
		Registrations: []HandlerRegistration{{
			Topic: "orders.events",
			Handler: func(_ context.Context, msg messaging.Message) error {
				got <- string(msg.Value)
				return nil
			},
		}},
	})

	require.NoError(t, engine.start(context.Background()))
	select {
	case v := <-got:
		assert.Equal(t, "a", v)
	case <-time.After(time.Second):
		t.Fatal("handler not invoked")
	}
	require.NoError(t, engine.stop(context.Background()))
	assert.Empty(t, got)
}

func TestEngineRetriesAfterConsumeError(t *testing.T) {
	client := &scriptedClient{errs: []error{errors.New("broker down")}}
	engine := NewEngine(Params{
		Client:        client,
		Logger:        zap.NewNop(),
		Config:        enabledConfig(),
		Registrations: []HandlerRegistration{{Topic: "orders.events", Handler: func(context.Context, messaging.Message) error { return nil }}},
	})

	require.NoError(t, engine.start(context.Background()))
	assert.Eventually(t, func() bool { return client.calls.Load() >= 2 }, time.Second, time.Millisecond)
	require.NoError(t, engine.stop(context.Background()))
}

func TestEngineStopsWhenConsumeUnsupported(t *testing.T) {
	client := &scriptedClient{errs: []error{messaging.ErrConsumeUnsupported}}
	engine := NewEngine(Params{
		Client:        client,
		Logger:        zap.NewNop(),
		Config:        enabledConfig(),
		Registrations: []HandlerRegistration{{Topic: "orders.events", Handler: func(context.Context, messaging.Message) error { return nil }}},
	})

	require.NoError(t, engine.start(context.Background()))
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, engine.stop(context.Background()))
	assert.Equal(t, int32(1), client.calls.Load())
}

func TestEngineDisabledDoesNotConsume(t *testing.T) {
	client := &scriptedClient{}
	engine := NewEngine(Params{Client: client, Logger: zap.NewNop(), Config: config.Config{}})

	require.NoError(t, engine.start(context.Background()))
	require.NoError(t, engine.stop(context.Background()))
	assert.Equal(t, int32(0), client.calls.Load())
}
