package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/magabrotheeeer/voicebot-billing/internal/models"
)

const userColumns = `id, email, name, role, credits_minutes, stripe_customer_id, created_at`

func scanUser(row interface{ Scan(...any) error }) (*models.User, error) {
	var u models.User
	var customerID sql.NullString
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &u.Role, &u.CreditsMinutes, &customerID, &u.CreatedAt); err != nil {
		return nil, err
	}
	u.StripeCustomerID = stringPtr(customerID)
	return &u, nil
}

// GetUserByID возвращает пользователя по идентификатору.
func (s *Storage) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	const op = "storage.GetUserByID"
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	u, err := scanUser(s.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, notFound(err))
	}
	return u, nil
}

// GetUserByStripeCustomerID возвращает пользователя по идентификатору клиента Stripe.
func (s *Storage) GetUserByStripeCustomerID(ctx context.Context, customerID string) (*models.User, error) {
	const op = "storage.GetUserByStripeCustomerID"
	query := `SELECT ` + userColumns + ` FROM users WHERE stripe_customer_id = $1`
	u, err := scanUser(s.DB.QueryRowContext(ctx, query, customerID))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, notFound(err))
	}
	return u, nil
}

// SetStripeCustomerID сохраняет идентификатор клиента Stripe за пользователем.
func (s *Storage) SetStripeCustomerID(ctx context.Context, userID, customerID string) error {
	const op = "storage.SetStripeCustomerID"
	res, err := s.DB.ExecContext(ctx, `UPDATE users SET stripe_customer_id = $2 WHERE id = $1`, userID, customerID)
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

// ResetCreditsFromActivePlan одним запросом выставляет остаток минут пользователя
// равным квоте плана его активной подписки. Планы с нулевой квотой не применяются.
// Возвращает новый остаток и признак того, что обновление произошло.
func (s *Storage) ResetCreditsFromActivePlan(ctx context.Context, userID string) (int, bool, error) {
	const op = "storage.ResetCreditsFromActivePlan"
	query := `
		UPDATE users u
		SET credits_minutes = p.minutes_included
		FROM (
			SELECT pl.minutes_included
			FROM subscriptions s
			JOIN plans pl ON pl.code = s.plan_code
			WHERE s.user_id = $1 AND s.status = $2
			ORDER BY s.current_period_end DESC
			LIMIT 1
		) p
		WHERE u.id = $1 AND p.minutes_included > 0
		RETURNING u.credits_minutes`
	var credits int
	err := s.DB.QueryRowContext(ctx, query, userID, models.StatusActive).Scan(&credits)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("%s: %w", op, err)
	}
	return credits, true, nil
}
