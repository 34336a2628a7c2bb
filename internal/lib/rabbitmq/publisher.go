package rabbitmq

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/streadway/amqp"
)

// Publisher публикует JSON-сообщения в один обменник.
// Канал amqp не рассчитан на конкурентную публикацию, поэтому доступ к нему сериализован.
type Publisher struct {
	mu       sync.Mutex
	ch       *amqp.Channel
	exchange string
	now      func() time.Time
}

// NewPublisher создаёт издателя поверх уже настроенного канала.
func NewPublisher(ch *amqp.Channel, exchange string) *Publisher {
	return &Publisher{ch: ch, exchange: exchange, now: time.Now}
}

// Publish сериализует message и отправляет его с ключом routingKey.
// Сообщение сохраняется брокером на диск и получает уникальный MessageId.
func (p *Publisher) Publish(routingKey string, message any) error {
	const op = "rabbitmq.Publish"

	msg, err := newPublishing(routingKey, message, p.now())
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.ch.Publish(p.exchange, routingKey, false, false, msg); err != nil {
		return fmt.Errorf("%s: %s: %w", op, routingKey, err)
	}
	return nil
}

func newPublishing(routingKey string, message any, at time.Time) (amqp.Publishing, error) {
	body, err := json.Marshal(message)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("marshal %s message: %w", routingKey, err)
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		Timestamp:    at.UTC(),
		Type:         routingKey,
		Body:         body,
	}, nil
}
