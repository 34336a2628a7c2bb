// Package rabbitmq содержит подключение к RabbitMQ, объявление топологии
// биллинга, публикацию и потребление JSON-сообщений.
package rabbitmq

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/voicebot-billing/internal/config"
	"github.com/magabrotheeeer/voicebot-billing/internal/lib/sl"
)

const maxRetryDelay = 30 * time.Second

// Connect подключается к брокеру. Между попытками пауза удваивается,
// начиная с RetryDelay и не превышая 30 секунд.
func Connect(ctx context.Context, cfg config.RabbitMQ, log *slog.Logger) (*amqp.Connection, error) {
	const op = "rabbitmq.Connect"

	attempts := max(cfg.RabbitMQMaxRetries, 1)
	delay := cfg.RabbitMQRetryDelay
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		var conn *amqp.Connection
		conn, err = amqp.Dial(cfg.RabbitMQURL)
		if err == nil {
			return conn, nil
		}
		if attempt == attempts {
			break
		}
		log.Warn("rabbitmq is not reachable, retrying",
			slog.Int("attempt", attempt),
			slog.Duration("delay", delay),
			sl.Err(err),
		)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, fmt.Errorf("%s: %w", op, ctx.Err())
		}
		delay = min(delay*2, maxRetryDelay)
	}

	return nil, fmt.Errorf("%s: %d attempts: %w", op, attempts, err)
}

// SetupChannel открывает канал и объявляет топологию: durable direct-обменник,
// очереди с привязками и, если нужно, обменник и очередь для отклонённых сообщений.
func SetupChannel(conn *amqp.Connection, topo Topology) (*amqp.Channel, error) {
	const op = "rabbitmq.SetupChannel"

	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := declare(ch, topo); err != nil {
		if closeErr := ch.Close(); closeErr != nil {
			err = fmt.Errorf("%w (close channel: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return ch, nil
}

func declare(ch *amqp.Channel, topo Topology) error {
	if err := ch.Qos(topo.prefetch(), 0, false); err != nil {
		return fmt.Errorf("set qos: %w", err)
	}

	if topo.DeadLetter != nil {
		if err := ch.ExchangeDeclare(DeadLetterExchange, "topic", true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare exchange %s: %w", DeadLetterExchange, err)
		}
		if err := bind(ch, *topo.DeadLetter, DeadLetterExchange, nil); err != nil {
			return err
		}
	}

	if err := ch.ExchangeDeclare(topo.Exchange, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange %s: %w", topo.Exchange, err)
	}
	args := topo.queueArgs()
	for _, q := range topo.Queues {
		if err := bind(ch, q, topo.Exchange, args); err != nil {
			return err
		}
	}
	return nil
}

func bind(ch *amqp.Channel, q QueueConfig, exchange string, args amqp.Table) error {
	if _, err := ch.QueueDeclare(q.QueueName, true, false, false, false, args); err != nil {
		return fmt.Errorf("declare queue %s: %w", q.QueueName, err)
	}
	if err := ch.QueueBind(q.QueueName, q.RoutingKey, exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue %s with routing key %s: %w", q.QueueName, q.RoutingKey, err)
	}
	return nil
}
