package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/voicebot-billing/internal/models"
)

// UpsertSubscription создаёт или обновляет подписку по внешнему идентификатору.
// Повторное применение тех же значений оставляет одну строку с теми же данными.
// Событие старше уже применённого строку не меняет и даёт ErrStaleEvent.
func (s *Storage) UpsertSubscription(ctx context.Context, sub models.Subscription) (string, error) {
	const op = "storage.UpsertSubscription"
	query := `
		INSERT INTO subscriptions (id, user_id, external_subscription_id, plan_code, status,
			current_period_start, current_period_end, cancel_at_period_end, last_event_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (external_subscription_id) DO UPDATE SET
			user_id = EXCLUDED.user_id,
			plan_code = EXCLUDED.plan_code,
			status = EXCLUDED.status,
			current_period_start = EXCLUDED.current_period_start,
			current_period_end = EXCLUDED.current_period_end,
			cancel_at_period_end = EXCLUDED.cancel_at_period_end,
			last_event_at = EXCLUDED.last_event_at,
			updated_at = NOW()
		WHERE subscriptions.last_event_at <= EXCLUDED.last_event_at
		RETURNING id`
	var id string
	err := s.DB.QueryRowContext(ctx, query,
		uuid.NewString(), sub.UserID, sub.ExternalSubscriptionID, sub.PlanCode, sub.Status,
		sub.CurrentPeriodStart, sub.CurrentPeriodEnd, sub.CancelAtPeriodEnd, sub.LastEventAt).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%s: %w", op, ErrStaleEvent)
	}
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return id, nil
}

// CancelSubscription переводит подписку в статус CANCELED независимо от порядка событий
// и сдвигает last_event_at, чтобы более ранние изменения её не вернули.
// Возвращает ErrNotFound, если подписки с таким внешним идентификатором нет.
func (s *Storage) CancelSubscription(ctx context.Context, externalID string, eventAt time.Time) error {
	const op = "storage.CancelSubscription"
	res, err := s.DB.ExecContext(ctx, `
		UPDATE subscriptions
		SET status = $2, last_event_at = GREATEST(last_event_at, $3), updated_at = NOW()
		WHERE external_subscription_id = $1`,
		externalID, models.StatusCanceled, eventAt)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return nil
}

// GetCurrentSubscription возвращает действующую подписку пользователя: активную,
// пробную или с просроченной оплатой, с самым поздним концом периода.
func (s *Storage) GetCurrentSubscription(ctx context.Context, userID string) (*models.Subscription, error) {
	const op = "storage.GetCurrentSubscription"
	query := `
		SELECT id, user_id, external_subscription_id, plan_code, status,
			current_period_start, current_period_end, cancel_at_period_end, last_event_at,
			created_at, updated_at
		FROM subscriptions
		WHERE user_id = $1 AND status = ANY($2)
		ORDER BY current_period_end DESC
		LIMIT 1`
	statuses := []string{string(models.StatusActive), string(models.StatusTrialing), string(models.StatusPastDue)}

	var sub models.Subscription
	err := s.DB.QueryRowContext(ctx, query, userID, statuses).Scan(
		&sub.ID, &sub.UserID, &sub.ExternalSubscriptionID, &sub.PlanCode, &sub.Status,
		&sub.CurrentPeriodStart, &sub.CurrentPeriodEnd, &sub.CancelAtPeriodEnd, &sub.LastEventAt,
		&sub.CreatedAt, &sub.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, notFound(err))
	}
	return &sub, nil
}
