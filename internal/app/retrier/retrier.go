// Package retrier повторно применяет события Stripe, которые не удалось свести
// при первой доставке из-за отсутствующего клиента, плана или подписки.
// Если настроен SMTP, процесс также рассылает письма о неуспешной оплате.
package retrier

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/voicebot-billing/internal/cache"
	"github.com/magabrotheeeer/voicebot-billing/internal/config"
	"github.com/magabrotheeeer/voicebot-billing/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/voicebot-billing/internal/lib/sl"
	"github.com/magabrotheeeer/voicebot-billing/internal/lib/smtp"
	"github.com/magabrotheeeer/voicebot-billing/internal/services/billing"
	"github.com/magabrotheeeer/voicebot-billing/internal/services/dunning"
	"github.com/magabrotheeeer/voicebot-billing/internal/storage"
)

const consumerWorkers = 10

// App фоновый обработчик очередей billing.unresolved и billing.payment_failed.
type App struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	db       *storage.Storage
	cache    *cache.Cache
	worker   *Worker
	notifier *dunning.Notifier
	logger   *slog.Logger
}

// New подключает хранилище и брокер.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	const op = "app.retrier.New"

	db, err := storage.New(ctx, cfg.StorageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	// схему создаёт API-процесс, здесь только проверка
	if err = db.Ready(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	conn, err := rabbitmq.Connect(ctx, cfg.RabbitMQ, logger)
	if err != nil {
		cacheRedis.Close()
		db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.BillingTopology())
	if err != nil {
		conn.Close()
		cacheRedis.Close()
		db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	publisher := rabbitmq.NewPublisher(ch, rabbitmq.BillingExchange)
	reconciler := billing.NewReconciler(logger, db, cacheRedis, publisher)

	app := &App{
		conn:   conn,
		ch:     ch,
		db:     db,
		cache:  cacheRedis,
		worker: NewWorker(reconciler, publisher, logger, cfg.Retrier.MaxAttempts, cfg.Retrier.Delay),
		logger: logger,
	}
	if cfg.SMTP.Host != "" {
		app.notifier = dunning.NewNotifier(db, smtp.NewTransport(cfg.SMTP), cfg.FrontendURL, logger)
	} else {
		logger.Warn("smtp host is not set, payment failed notices are disabled")
	}
	return app, nil
}

// Run потребляет очереди до отмены ctx, дожидается начатых обработчиков
// и закрывает соединения.
func (a *App) Run(ctx context.Context) error {
	defer a.close()

	consumers := make([]*rabbitmq.Consumer, 0, 2)
	start := func(queue string, handler rabbitmq.Handler) error {
		c := rabbitmq.NewConsumer(a.ch, queue, consumerWorkers, a.logger)
		if err := c.Start(ctx, handler); err != nil {
			a.logger.Error("failed to start consumer", slog.String("queue", queue), sl.Err(err))
			return err
		}
		consumers = append(consumers, c)
		a.logger.Info("consumer started", slog.String("queue", queue))
		return nil
	}

	err := start(rabbitmq.QueueUnresolved, a.worker.HandleMessage)
	if err == nil && a.notifier != nil {
		err = start(rabbitmq.QueuePaymentFailed, a.notifier.HandleMessage)
	}
	if err != nil {
		return err
	}

	<-ctx.Done()
	a.logger.Info("retrier shutting down gracefully")
	for _, c := range consumers {
		c.Wait()
	}
	return nil
}

func (a *App) close() {
	if err := a.ch.Close(); err != nil {
		a.logger.Error("failed to close channel", sl.Err(err))
	}
	if err := a.conn.Close(); err != nil {
		a.logger.Error("failed to close connection", sl.Err(err))
	}
	if err := a.cache.Close(); err != nil {
		a.logger.Error("failed to close redis", sl.Err(err))
	}
	if err := a.db.Close(); err != nil {
		a.logger.Error("failed to close database", sl.Err(err))
	}
}
