package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/voicebot-billing/internal/apperr"
	"github.com/magabrotheeeer/voicebot-billing/internal/lib/metrics"
	"github.com/magabrotheeeer/voicebot-billing/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/voicebot-billing/internal/lib/sl"
	"github.com/magabrotheeeer/voicebot-billing/internal/models"
	"github.com/magabrotheeeer/voicebot-billing/internal/storage"
)

// DedupeTTL сколько хранится отметка об обработанном событии.
const DedupeTTL = 72 * time.Hour

// Outcome итог сверки одного события.
type Outcome string

// Итоги сверки.
const (
	OutcomeApplied    Outcome = "applied"
	OutcomeUnresolved Outcome = "unresolved"
	OutcomeIgnored    Outcome = "ignored"
)

// Store определяет методы хранилища, нужные для сверки.
type Store interface {
	// GetUserByStripeCustomerID возвращает пользователя по клиенту Stripe.
	GetUserByStripeCustomerID(ctx context.Context, customerID string) (*models.User, error)
	// GetPlanByExternalPriceID возвращает план по цене Stripe.
	GetPlanByExternalPriceID(ctx context.Context, priceID string) (*models.Plan, error)
	// UpsertSubscription создаёт или обновляет подписку по внешнему идентификатору.
	UpsertSubscription(ctx context.Context, sub models.Subscription) (string, error)
	// CancelSubscription отменяет подписку по внешнему идентификатору.
	CancelSubscription(ctx context.Context, externalID string, eventAt time.Time) error
	// ResetCreditsFromActivePlan выставляет остаток минут по активному плану.
	ResetCreditsFromActivePlan(ctx context.Context, userID string) (int, bool, error)
}

// Dedupe хранит отметки об уже обработанных событиях.
type Dedupe interface {
	Seen(ctx context.Context, key string) (bool, error)
	Mark(ctx context.Context, key string, ttl time.Duration) error
}

// Publisher отправляет сообщения в брокер.
type Publisher interface {
	Publish(routingKey string, message any) error
}

// Reconciler применяет события Stripe к локальным подпискам и остаткам минут.
type Reconciler struct {
	store     Store
	dedupe    Dedupe
	publisher Publisher
	log       *slog.Logger
}

// NewReconciler создаёт Reconciler.
func NewReconciler(log *slog.Logger, store Store, dedupe Dedupe, publisher Publisher) *Reconciler {
	return &Reconciler{
		store:     store,
		dedupe:    dedupe,
		publisher: publisher,
		log:       log,
	}
}

func dedupeKey(eventID string) string {
	return "stripe:event:" + eventID
}

// Handle обрабатывает одну доставку вебхука. Повторная доставка уже обработанного
// события пропускается. Ошибка возвращается при сбое хранилища и при сбое
// публикации неразрешённого события, чтобы Stripe повторил доставку.
func (r *Reconciler) Handle(ctx context.Context, ev Event) error {
	const op = "billing.Reconciler.Handle"
	log := r.log.With(slog.String("op", op), slog.String("event_id", ev.ID), slog.String("type", ev.Type))

	key := dedupeKey(ev.ID)
	seen, err := r.dedupe.Seen(ctx, key)
	if err != nil {
		log.Warn("dedupe lookup failed, processing event anyway", sl.Err(err))
	}
	if seen {
		log.Debug("event already processed")
		metrics.WebhookEvents.WithLabelValues(ev.Type, "duplicate").Inc()
		return nil
	}

	outcome, err := r.Apply(ctx, ev)
	if err != nil {
		metrics.WebhookEvents.WithLabelValues(ev.Type, "error").Inc()
		return fmt.Errorf("%s: %w", op, err)
	}

	if outcome == OutcomeUnresolved {
		msg := UnresolvedMessage{Event: ev, Attempt: 1}
		if err := r.publisher.Publish(rabbitmq.RoutingUnresolved, msg); err != nil {
			metrics.WebhookEvents.WithLabelValues(ev.Type, "error").Inc()
			return fmt.Errorf("%s: publish unresolved: %w", op, err)
		}
	}

	if err := r.dedupe.Mark(ctx, key, DedupeTTL); err != nil {
		log.Warn("failed to mark event as processed", sl.Err(err))
	}

	metrics.WebhookEvents.WithLabelValues(ev.Type, string(outcome)).Inc()
	log.Info("event reconciled", slog.String("outcome", string(outcome)))
	return nil
}

// Apply применяет событие к хранилищу. Отсутствующие связи (клиент, план, подписка)
// дают OutcomeUnresolved без ошибки. Ошибка означает сбой хранилища.
func (r *Reconciler) Apply(ctx context.Context, ev Event) (Outcome, error) {
	switch ev.Kind {
	case KindSubscriptionCreatedOrUpdated:
		return r.applySubscription(ctx, ev)
	case KindSubscriptionCanceled:
		return r.applyCancel(ctx, ev)
	case KindPaymentSucceeded:
		return r.applyPaymentSucceeded(ctx, ev)
	case KindPaymentFailed:
		return r.applyPaymentFailed(ctx, ev)
	default:
		r.log.Info("unhandled event type", slog.String("event_id", ev.ID), slog.String("type", ev.Type))
		return OutcomeIgnored, nil
	}
}

func (r *Reconciler) resolveUser(ctx context.Context, customerID string) (*models.User, error) {
	user, err := r.store.GetUserByStripeCustomerID(ctx, customerID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: %q", apperr.ErrUnknownCustomer, customerID)
	}
	return user, err
}

func (r *Reconciler) resolvePlan(ctx context.Context, priceID string) (*models.Plan, error) {
	plan, err := r.store.GetPlanByExternalPriceID(ctx, priceID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: price %q", apperr.ErrUnknownPlan, priceID)
	}
	return plan, err
}

func (r *Reconciler) applySubscription(ctx context.Context, ev Event) (Outcome, error) {
	const op = "billing.Reconciler.applySubscription"
	log := r.log.With(slog.String("op", op), slog.String("event_id", ev.ID))

	data := ev.Subscription
	if data == nil {
		log.Warn("subscription payload missing")
		return OutcomeIgnored, nil
	}
	log = log.With(slog.String("subscription_id", data.ExternalID))

	user, err := r.resolveUser(ctx, data.CustomerID)
	if errors.Is(err, apperr.ErrUnknownCustomer) {
		log.Warn("subscription left unresolved", sl.Err(err))
		return OutcomeUnresolved, nil
	}
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	plan, err := r.resolvePlan(ctx, data.PriceID)
	if errors.Is(err, apperr.ErrUnknownPlan) {
		log.Warn("subscription left unresolved", sl.Err(err))
		return OutcomeUnresolved, nil
	}
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	status, ok := models.NormalizeStatus(data.Status)
	if !ok {
		log.Warn("unknown subscription status", slog.String("status", data.Status))
		return OutcomeUnresolved, nil
	}

	id, err := r.store.UpsertSubscription(ctx, models.Subscription{
		UserID:                 user.ID,
		ExternalSubscriptionID: data.ExternalID,
		PlanCode:               plan.Code,
		Status:                 status,
		CurrentPeriodStart:     data.PeriodStart,
		CurrentPeriodEnd:       data.PeriodEnd,
		CancelAtPeriodEnd:      data.CancelAtPeriodEnd,
		LastEventAt:            ev.Created,
	})
	if errors.Is(err, storage.ErrStaleEvent) {
		log.Info("newer subscription event already applied, skipping", slog.Time("event_created", ev.Created))
		return OutcomeIgnored, nil
	}
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	log.Info("subscription upserted",
		slog.String("id", id),
		slog.String("user_id", user.ID),
		slog.String("plan", plan.Code),
		slog.String("status", string(status)))
	return OutcomeApplied, nil
}

func (r *Reconciler) applyCancel(ctx context.Context, ev Event) (Outcome, error) {
	const op = "billing.Reconciler.applyCancel"
	log := r.log.With(slog.String("op", op), slog.String("event_id", ev.ID))

	if ev.Subscription == nil {
		log.Warn("subscription payload missing")
		return OutcomeIgnored, nil
	}

	err := r.store.CancelSubscription(ctx, ev.Subscription.ExternalID, ev.Created)
	if errors.Is(err, storage.ErrNotFound) {
		log.Warn("cancel for unknown subscription", slog.String("subscription_id", ev.Subscription.ExternalID))
		return OutcomeUnresolved, nil
	}
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	log.Info("subscription canceled", slog.String("subscription_id", ev.Subscription.ExternalID))
	return OutcomeApplied, nil
}

func (r *Reconciler) applyPaymentSucceeded(ctx context.Context, ev Event) (Outcome, error) {
	const op = "billing.Reconciler.applyPaymentSucceeded"
	log := r.log.With(slog.String("op", op), slog.String("event_id", ev.ID))

	if ev.Invoice == nil {
		log.Warn("invoice payload missing")
		return OutcomeIgnored, nil
	}

	user, err := r.resolveUser(ctx, ev.Invoice.CustomerID)
	if errors.Is(err, apperr.ErrUnknownCustomer) {
		log.Warn("payment left unresolved", sl.Err(err))
		return OutcomeUnresolved, nil
	}
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	credits, updated, err := r.store.ResetCreditsFromActivePlan(ctx, user.ID)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if !updated {
		log.Info("no active plan with included minutes, credits unchanged", slog.String("user_id", user.ID))
		return OutcomeIgnored, nil
	}

	log.Info("credits reset", slog.String("user_id", user.ID), slog.Int("credits_minutes", credits))
	return OutcomeApplied, nil
}

func (r *Reconciler) applyPaymentFailed(ctx context.Context, ev Event) (Outcome, error) {
	const op = "billing.Reconciler.applyPaymentFailed"
	log := r.log.With(slog.String("op", op), slog.String("event_id", ev.ID))

	metrics.PaymentFailures.Inc()
	if ev.Invoice == nil {
		log.Warn("invoice payload missing")
		return OutcomeIgnored, nil
	}

	msg := PaymentFailedMessage{
		EventID:        ev.ID,
		InvoiceID:      ev.Invoice.ID,
		CustomerID:     ev.Invoice.CustomerID,
		SubscriptionID: ev.Invoice.SubscriptionID,
	}
	user, err := r.resolveUser(ctx, ev.Invoice.CustomerID)
	switch {
	case err == nil:
		msg.UserID = user.ID
	case !errors.Is(err, apperr.ErrUnknownCustomer):
		return "", fmt.Errorf("%s: %w", op, err)
	}

	log.Warn("payment failed",
		slog.String("invoice_id", msg.InvoiceID),
		slog.String("customer_id", msg.CustomerID),
		slog.String("user_id", msg.UserID))

	if err := r.publisher.Publish(rabbitmq.RoutingPaymentFailed, msg); err != nil {
		log.Error("failed to publish payment failure", sl.Err(err))
	}
	return OutcomeApplied, nil
}
