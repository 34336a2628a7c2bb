// Package api собирает HTTP-сервис биллинга: хранилище, кеш, брокер,
// сервисы предметной области и маршруты.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/voicebot-billing/internal/cache"
	"github.com/magabrotheeeer/voicebot-billing/internal/config"
	"github.com/magabrotheeeer/voicebot-billing/internal/lib/jwt"
	"github.com/magabrotheeeer/voicebot-billing/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/voicebot-billing/internal/lib/sl"
	"github.com/magabrotheeeer/voicebot-billing/internal/migrations"
	"github.com/magabrotheeeer/voicebot-billing/internal/paymentprovider"
	"github.com/magabrotheeeer/voicebot-billing/internal/services/billing"
	"github.com/magabrotheeeer/voicebot-billing/internal/services/checkout"
	"github.com/magabrotheeeer/voicebot-billing/internal/services/embed"
	"github.com/magabrotheeeer/voicebot-billing/internal/services/usage"
	"github.com/magabrotheeeer/voicebot-billing/internal/storage"
)

const shutdownTimeout = 15 * time.Second

// App HTTP-приложение биллинга.
type App struct {
	server *http.Server
	logger *slog.Logger
	db     *storage.Storage
	cache  *cache.Cache
	conn   *amqp.Connection
	ch     *amqp.Channel
}

// New подключает зависимости, применяет миграции и собирает маршруты.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	const op = "app.api.New"

	db, err := storage.New(ctx, cfg.StorageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	version, err := migrations.Run(db.DB, cfg.MigrationsPath)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = db.Ready(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	logger.Info("database schema is up to date", slog.Uint64("version", uint64(version)))

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

	maker := jwt.NewJWTMaker(cfg.JWTSecretKey, cfg.SessionTTL)
	stripeClient := paymentprovider.NewClient(cfg.Stripe.SecretKey, cfg.FrontendURL, nil)

	deps := Dependencies{
		Gateway:    billing.NewGateway(cfg.WebhookSecret),
		Reconciler: billing.NewReconciler(logger, db, cacheRedis, publisher),
		Recorder:   usage.NewRecorder(db, logger),
		Issuer:     embed.NewIssuer(db, maker, logger),
		Checkout:   checkout.NewService(db, cacheRedis, stripeClient, logger),
		Tokens:     maker,
		DB:         db.DB,
		Limiter:    cfg.Embed,
	}

	router := chi.NewRouter()
	RegisterRoutes(router, logger, deps)

	srv := &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		server: srv,
		logger: logger,
		db:     db,
		cache:  cacheRedis,
		conn:   conn,
		ch:     ch,
	}, nil
}

// Run обслуживает запросы до отмены ctx, затем корректно останавливает сервер.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		a.close()
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		a.close()
		return err
	}
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
