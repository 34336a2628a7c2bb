// Package usage тарифицирует завершённые сессии разговоров и считает расход за период.
package usage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/voicebot-billing/internal/apperr"
	"github.com/magabrotheeeer/voicebot-billing/internal/lib/metrics"
	"github.com/magabrotheeeer/voicebot-billing/internal/lib/month"
	"github.com/magabrotheeeer/voicebot-billing/internal/models"
	"github.com/magabrotheeeer/voicebot-billing/internal/storage"
)

// MaxSessionMinutes верхняя граница длительности одной сессии, сутки.
const MaxSessionMinutes = 24 * 60

// Store определяет методы хранилища для учёта расхода.
type Store interface {
	// CloseSessionAndCharge закрывает сессию и списывает минуты в одной транзакции.
	CloseSessionAndCharge(ctx context.Context, sessionID string, minutes int, now time.Time) (*models.UsageRecord, error)
	// UsageForPeriod возвращает сумму минут и число сессий за период.
	UsageForPeriod(ctx context.Context, userID string, periodStart time.Time) (int, int, error)
	// GetUserByID возвращает пользователя.
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}

// Recorder учитывает расход минут.
type Recorder struct {
	store Store
	log   *slog.Logger
	now   func() time.Time
}

// NewRecorder создаёт Recorder.
func NewRecorder(store Store, log *slog.Logger) *Recorder {
	return &Recorder{
		store: store,
		log:   log,
		now:   time.Now,
	}
}

// Record закрывает сессию с указанной длительностью и списывает минуты с владельца бота.
// Сессию можно закрыть только один раз, повторный вызов вернёт ErrSessionAlreadyClosed.
func (r *Recorder) Record(ctx context.Context, sessionID string, minutesUsed int) (*models.UsageRecord, error) {
	const op = "usage.Recorder.Record"

	if sessionID == "" {
		return nil, fmt.Errorf("%s: %w: session id is required", op, apperr.ErrValidation)
	}
	if minutesUsed <= 0 {
		return nil, fmt.Errorf("%s: %w: minutes used must be positive", op, apperr.ErrValidation)
	}
	if minutesUsed > MaxSessionMinutes {
		return nil, fmt.Errorf("%s: %w: minutes used exceed %d", op, apperr.ErrValidation, MaxSessionMinutes)
	}
	// идентификатор не в формате UUID не может принадлежать ни одной сессии
	parsed, err := uuid.Parse(sessionID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, apperr.ErrSessionNotFound)
	}
	sessionID = parsed.String()

	record, err := r.store.CloseSessionAndCharge(ctx, sessionID, minutesUsed, r.now())
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return nil, fmt.Errorf("%s: %w", op, apperr.ErrSessionNotFound)
	case errors.Is(err, storage.ErrSessionClosed):
		return nil, fmt.Errorf("%s: %w", op, apperr.ErrSessionAlreadyClosed)
	case err != nil:
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	metrics.MinutesRecorded.Add(float64(minutesUsed))
	r.log.Info("session usage recorded",
		slog.String("op", op),
		slog.String("session_id", sessionID),
		slog.String("user_id", record.UserID),
		slog.Int("minutes_used", minutesUsed))
	return record, nil
}

// Summary возвращает расход пользователя за расчётный период, содержащий at,
// и текущий остаток минут.
func (r *Recorder) Summary(ctx context.Context, userID string, at time.Time) (*models.UsageSummary, error) {
	const op = "usage.Recorder.Summary"

	user, err := r.store.GetUserByID(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%s: %w", op, apperr.ErrUserNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	start, end := month.BillingPeriod(at)
	minutes, sessions, err := r.store.UsageForPeriod(ctx, userID, start)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &models.UsageSummary{
		PeriodStart:    start,
		PeriodEnd:      end,
		MinutesUsed:    minutes,
		Sessions:       sessions,
		CreditsMinutes: user.CreditsMinutes,
	}, nil
}
