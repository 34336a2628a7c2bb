package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupBillingChannel(ctx context.Context, t *testing.T) *amqp.Channel {
	t.Helper()
	cfg := brokerConfig(ctx, t)

	conn, err := Connect(ctx, cfg, newNoopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	ch, err := SetupChannel(conn, BillingTopology())
	require.NoError(t, err)
	for _, q := range []string{QueueUnresolved, QueuePaymentFailed, QueueDead} {
		_, err := ch.QueuePurge(q, false)
		require.NoError(t, err)
	}
	return ch
}

func TestConsumer_AcksAndWaits(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	ch := setupBillingChannel(ctx, t)

	var mu sync.Mutex
	received := make([]string, 0)
	var wg sync.WaitGroup
	wg.Add(2)

	consumeCtx, stop := context.WithCancel(ctx)
	consumer := NewConsumer(ch, QueueUnresolved, 2, newNoopLogger())
	require.NoError(t, consumer.Start(consumeCtx, func(_ context.Context, body []byte) error {
		mu.Lock()
		defer mu.Unlock()
		received = append(received, string(body))
		wg.Done()
		return nil
	}))

	publisher := NewPublisher(ch, BillingExchange)
	require.NoError(t, publisher.Publish(RoutingUnresolved, "hello"))
	require.NoError(t, publisher.Publish(RoutingUnresolved, "world"))

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("timeout waiting for messages to be processed")
	}

	stop()
	consumer.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.ElementsMatch(t, []string{`"hello"`, `"world"`}, received)
}

func TestConsumer_HandlerErrorTriggersRedelivery(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	ch := setupBillingChannel(ctx, t)

	var mu sync.Mutex
	calls := 0
	redelivered := make(chan struct{})

	consumer := NewConsumer(ch, QueueUnresolved, 1, newNoopLogger())
	require.NoError(t, consumer.Start(ctx, func(_ context.Context, _ []byte) error {
		mu.Lock()
		defer mu.Unlock()
		calls++
		if calls == 1 {
			return fmt.Errorf("store unavailable")
		}
		close(redelivered)
		return nil
	}))

	require.NoError(t, NewPublisher(ch, BillingExchange).Publish(RoutingUnresolved, "retry-me"))

	select {
	case <-redelivered:
	case <-time.After(10 * time.Second):
		t.Fatal("did not receive requeued message after nack")
	}
}

func TestConsumer_RejectGoesToDeadLetterQueue(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	ch := setupBillingChannel(ctx, t)

	consumer := NewConsumer(ch, QueuePaymentFailed, 1, newNoopLogger())
	require.NoError(t, consumer.Start(ctx, func(_ context.Context, _ []byte) error {
		return fmt.Errorf("bad payload: %w", ErrReject)
	}))

	require.NoError(t, NewPublisher(ch, BillingExchange).Publish(RoutingPaymentFailed, "poison"))

	dead, err := ch.Consume(QueueDead, "dead-test", true, false, false, false, nil)
	require.NoError(t, err)

	select {
	case d := <-dead:
		assert.Equal(t, `"poison"`, string(d.Body))
		assert.Equal(t, RoutingPaymentFailed, d.RoutingKey)
	case <-time.After(10 * time.Second):
		t.Fatal("rejected message did not reach the dead letter queue")
	}
}

func TestErrReject_Wrapping(t *testing.T) {
	err := fmt.Errorf("op: %w", ErrReject)
	assert.True(t, errors.Is(err, ErrReject))
	assert.False(t, errors.Is(errors.New("other"), ErrReject))
}
