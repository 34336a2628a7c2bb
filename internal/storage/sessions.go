package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/voicebot-billing/internal/lib/month"
	"github.com/magabrotheeeer/voicebot-billing/internal/models"
)

// CreateBotSession сохраняет новую открытую сессию. Пустой ID генерируется.
func (s *Storage) CreateBotSession(ctx context.Context, session *models.BotSession) error {
	const op = "storage.CreateBotSession"
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	query := `INSERT INTO bot_sessions (id, bot_id, user_id, session_token, started_at, user_ip, user_agent, referrer)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := s.DB.ExecContext(ctx, query, session.ID, session.BotID, session.UserID, session.SessionToken,
		session.StartedAt, session.UserIP, session.UserAgent, session.Referrer)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// CloseSessionAndCharge в одной транзакции закрывает сессию, списывает минуты
// с владельца бота (не опуская остаток ниже нуля) и добавляет запись в журнал
// расхода за календарный месяц момента now.
//
// Строка сессии блокируется, поэтому два параллельных закрытия одной сессии
// не пройдут оба: второе получит ErrSessionClosed.
func (s *Storage) CloseSessionAndCharge(ctx context.Context, sessionID string, minutes int, now time.Time) (*models.UsageRecord, error) {
	const op = "storage.CloseSessionAndCharge"

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var userID string
	var endedAt sql.NullTime
	err = tx.QueryRowContext(ctx,
		`SELECT user_id, ended_at FROM bot_sessions WHERE id = $1 FOR UPDATE`, sessionID).
		Scan(&userID, &endedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if endedAt.Valid {
		return nil, fmt.Errorf("%s: %w", op, ErrSessionClosed)
	}

	now = now.UTC()
	if _, err = tx.ExecContext(ctx,
		`UPDATE bot_sessions SET minutes_used = $2, ended_at = $3 WHERE id = $1`,
		sessionID, minutes, now); err != nil {
		return nil, fmt.Errorf("%s: close session: %w", op, err)
	}

	if _, err = tx.ExecContext(ctx,
		`UPDATE users SET credits_minutes = GREATEST(credits_minutes - $2, 0) WHERE id = $1`,
		userID, minutes); err != nil {
		return nil, fmt.Errorf("%s: charge credits: %w", op, err)
	}

	start, end := month.BillingPeriod(now)
	record := &models.UsageRecord{
		ID:                 uuid.NewString(),
		UserID:             userID,
		SessionID:          sessionID,
		MinutesUsed:        minutes,
		BillingPeriodStart: start,
		BillingPeriodEnd:   end,
		CreatedAt:          now,
	}
	if _, err = tx.ExecContext(ctx,
		`INSERT INTO usage_records (id, user_id, session_id, minutes_used, billing_period_start, billing_period_end, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		record.ID, record.UserID, record.SessionID, record.MinutesUsed,
		record.BillingPeriodStart, record.BillingPeriodEnd, record.CreatedAt); err != nil {
		return nil, fmt.Errorf("%s: insert usage record: %w", op, err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return record, nil
}

// UsageForPeriod возвращает сумму минут и число сессий пользователя за период,
// начинающийся с periodStart.
func (s *Storage) UsageForPeriod(ctx context.Context, userID string, periodStart time.Time) (int, int, error) {
	const op = "storage.UsageForPeriod"
	var minutes, sessions int
	err := s.DB.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(minutes_used), 0), COUNT(*)
		 FROM usage_records WHERE user_id = $1 AND billing_period_start = $2`,
		userID, periodStart).Scan(&minutes, &sessions)
	if err != nil {
		return 0, 0, fmt.Errorf("%s: %w", op, err)
	}
	return minutes, sessions, nil
}
