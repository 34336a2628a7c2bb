package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/voicebot-billing/internal/lib/sl"
)

// ErrReject сообщение нельзя обработать ни сейчас, ни позже.
// Такое сообщение не возвращается в очередь и уходит в billing.dead.
var ErrReject = errors.New("message rejected")

// Handler обрабатывает тело сообщения. nil подтверждает сообщение,
// ошибка с ErrReject отклоняет его, любая другая ошибка возвращает его в очередь.
type Handler func(ctx context.Context, body []byte) error

// Consumer читает очередь и обрабатывает до workers сообщений одновременно.
type Consumer struct {
	ch      *amqp.Channel
	queue   string
	workers int
	log     *slog.Logger
	wg      sync.WaitGroup
}

// NewConsumer создаёт потребителя очереди queue.
func NewConsumer(ch *amqp.Channel, queue string, workers int, log *slog.Logger) *Consumer {
	return &Consumer{
		ch:      ch,
		queue:   queue,
		workers: max(workers, 1),
		log:     log.With(slog.String("queue", queue)),
	}
}

// Start подписывается на очередь и сразу возвращает управление.
// После отмены ctx подписка снимается, уже начатые обработчики дорабатывают.
func (c *Consumer) Start(ctx context.Context, handler Handler) error {
	const op = "rabbitmq.Consumer.Start"

	tag := c.queue + "-" + uuid.NewString()
	deliveries, err := c.ch.Consume(c.queue, tag, false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	sem := make(chan struct{}, c.workers)
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for {
			select {
			case d, ok := <-deliveries:
				if !ok {
					return
				}
				sem <- struct{}{}
				c.wg.Add(1)
				go func() {
					defer c.wg.Done()
					defer func() { <-sem }()
					c.dispatch(ctx, handler, d)
				}()
			case <-ctx.Done():
				if err := c.ch.Cancel(tag, false); err != nil {
					c.log.Warn("failed to cancel consumer", sl.Err(err))
				}
				return
			}
		}
	}()
	return nil
}

// Wait блокируется до завершения цикла чтения и всех обработчиков.
func (c *Consumer) Wait() {
	c.wg.Wait()
}

func (c *Consumer) dispatch(ctx context.Context, handler Handler, d amqp.Delivery) {
	err := handler(ctx, d.Body)
	switch {
	case err == nil:
		if ackErr := d.Ack(false); ackErr != nil {
			c.log.Error("failed to ack message", sl.Err(ackErr))
		}
	case errors.Is(err, ErrReject):
		c.log.Warn("message rejected", slog.String("message_id", d.MessageId), sl.Err(err))
		if nackErr := d.Nack(false, false); nackErr != nil {
			c.log.Error("failed to reject message", sl.Err(nackErr))
		}
	default:
		c.log.Warn("message handling failed, requeue", slog.String("message_id", d.MessageId), sl.Err(err))
		if nackErr := d.Nack(false, true); nackErr != nil {
			c.log.Error("failed to nack message", sl.Err(nackErr))
		}
	}
}
