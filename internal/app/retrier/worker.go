package retrier

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/voicebot-billing/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/voicebot-billing/internal/services/billing"
)

// Applier повторно применяет событие биллинга.
type Applier interface {
	Apply(ctx context.Context, ev billing.Event) (billing.Outcome, error)
}

// Publisher отправляет сообщения в брокер.
type Publisher interface {
	Publish(routingKey string, message any) error
}

// Worker обрабатывает сообщения очереди неразрешённых событий.
type Worker struct {
	applier     Applier
	publisher   Publisher
	log         *slog.Logger
	maxAttempts int
	delay       time.Duration
}

// NewWorker создаёт Worker.
func NewWorker(applier Applier, publisher Publisher, log *slog.Logger, maxAttempts int, delay time.Duration) *Worker {
	return &Worker{
		applier:     applier,
		publisher:   publisher,
		log:         log,
		maxAttempts: maxAttempts,
		delay:       delay,
	}
}

// HandleMessage ждёт задержку и снова применяет событие. Пока связи не появились
// и попытки не исчерпаны, событие публикуется обратно с увеличенным счётчиком.
// Нечитаемое сообщение и событие, исчерпавшее попытки, отклоняются в billing.dead.
// Сбой хранилища или брокера возвращает сообщение в очередь.
func (w *Worker) HandleMessage(ctx context.Context, body []byte) error {
	const op = "retrier.Worker.HandleMessage"

	var msg billing.UnresolvedMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		w.log.Error("malformed unresolved message", slog.String("op", op), slog.String("body", string(body)))
		return fmt.Errorf("%s: decode: %v: %w", op, err, rabbitmq.ErrReject)
	}
	log := w.log.With(
		slog.String("op", op),
		slog.String("event_id", msg.Event.ID),
		slog.String("type", msg.Event.Type),
		slog.Int("attempt", msg.Attempt),
	)

	select {
	case <-time.After(w.delay):
	case <-ctx.Done():
		return ctx.Err()
	}

	outcome, err := w.applier.Apply(ctx, msg.Event)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if outcome != billing.OutcomeUnresolved {
		log.Info("event resolved on retry", slog.String("outcome", string(outcome)))
		return nil
	}

	if msg.Attempt >= w.maxAttempts {
		log.Error("event still unresolved, giving up")
		return fmt.Errorf("%s: %d attempts: %w", op, msg.Attempt, rabbitmq.ErrReject)
	}

	next := billing.UnresolvedMessage{Event: msg.Event, Attempt: msg.Attempt + 1}
	if err := w.publisher.Publish(rabbitmq.RoutingUnresolved, next); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	log.Info("event still unresolved, scheduled another attempt")
	return nil
}
