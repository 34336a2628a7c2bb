package usage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/voicebot-billing/internal/apperr"
	"github.com/magabrotheeeer/voicebot-billing/internal/models"
	"github.com/magabrotheeeer/voicebot-billing/internal/storage"
)

type StoreMock struct{ mock.Mock }

func (m *StoreMock) CloseSessionAndCharge(ctx context.Context, sessionID string, minutes int, now time.Time) (*models.UsageRecord, error) {
	args := m.Called(ctx, sessionID, minutes, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UsageRecord), args.Error(1)
}

func (m *StoreMock) UsageForPeriod(ctx context.Context, userID string, periodStart time.Time) (int, int, error) {
	args := m.Called(ctx, userID, periodStart)
	return args.Int(0), args.Int(1), args.Error(2)
}

func (m *StoreMock) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

var fixedNow = time.Date(2024, 6, 15, 10, 30, 0, 0, time.UTC)

func newTestRecorder() (*Recorder, *StoreMock) {
	store := &StoreMock{}
	r := NewRecorder(store, slog.New(slog.NewTextHandler(io.Discard, nil)))
	r.now = func() time.Time { return fixedNow }
	return r, store
}

func TestRecord_Success(t *testing.T) {
	r, store := newTestRecorder()
	ctx := context.Background()
	sessionID := uuid.NewString()

	want := &models.UsageRecord{
		ID:                 uuid.NewString(),
		UserID:             "user-1",
		SessionID:          sessionID,
		MinutesUsed:        5,
		BillingPeriodStart: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		BillingPeriodEnd:   time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC),
	}
	store.On("CloseSessionAndCharge", ctx, sessionID, 5, fixedNow).Return(want, nil)

	got, err := r.Record(ctx, sessionID, 5)
	require.NoError(t, err)
	assert.Equal(t, want, got)
	store.AssertExpectations(t)
}

func TestRecord_Errors(t *testing.T) {
	ctx := context.Background()
	sessionID := uuid.NewString()

	tests := []struct {
		name      string
		sessionID string
		minutes   int
		storeErr  error
		wantErr   error
		status    int
	}{
		{"empty session id", "", 5, nil, apperr.ErrValidation, 400},
		{"zero minutes", sessionID, 0, nil, apperr.ErrValidation, 400},
		{"negative minutes", sessionID, -3, nil, apperr.ErrValidation, 400},
		{"longer than a day", sessionID, MaxSessionMinutes + 1, nil, apperr.ErrValidation, 400},
		{"malformed session id", "not-a-uuid", 5, nil, apperr.ErrSessionNotFound, 404},
		{"unknown session", sessionID, 5, storage.ErrNotFound, apperr.ErrSessionNotFound, 404},
		{"already closed", sessionID, 5, storage.ErrSessionClosed, apperr.ErrSessionAlreadyClosed, 409},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, store := newTestRecorder()
			if tt.storeErr != nil {
				store.On("CloseSessionAndCharge", ctx, tt.sessionID, tt.minutes, fixedNow).
					Return(nil, fmt.Errorf("storage.CloseSessionAndCharge: %w", tt.storeErr))
			}

			_, err := r.Record(ctx, tt.sessionID, tt.minutes)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, tt.status, apperr.HTTPStatus(err))
			if tt.storeErr == nil {
				store.AssertNotCalled(t, "CloseSessionAndCharge", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
			}
		})
	}
}

func TestRecord_CanonicalSessionID(t *testing.T) {
	ctx := context.Background()
	const canonical = "6ba7b810-9dad-11d1-80b4-00c04fd430c8"

	for _, raw := range []string{
		"urn:uuid:" + canonical,
		"{" + canonical + "}",
		"6BA7B810-9DAD-11D1-80B4-00C04FD430C8",
		"6ba7b8109dad11d180b400c04fd430c8",
	} {
		t.Run(raw, func(t *testing.T) {
			r, store := newTestRecorder()
			store.On("CloseSessionAndCharge", ctx, canonical, 5, fixedNow).
				Return(&models.UsageRecord{SessionID: canonical, UserID: "user-1", MinutesUsed: 5}, nil)

			_, err := r.Record(ctx, raw, 5)
			require.NoError(t, err)
			store.AssertExpectations(t)
		})
	}
}

func TestRecord_StoreFailureIsInternal(t *testing.T) {
	r, store := newTestRecorder()
	ctx := context.Background()
	sessionID := uuid.NewString()
	store.On("CloseSessionAndCharge", ctx, sessionID, 2, fixedNow).Return(nil, errors.New("deadlock detected"))

	_, err := r.Record(ctx, sessionID, 2)
	require.Error(t, err)
	assert.Equal(t, 500, apperr.HTTPStatus(err))
}

func TestSummary(t *testing.T) {
	r, store := newTestRecorder()
	ctx := context.Background()
	periodStart := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

	store.On("GetUserByID", ctx, "user-1").Return(&models.User{ID: "user-1", CreditsMinutes: 42}, nil)
	store.On("UsageForPeriod", ctx, "user-1", periodStart).Return(158, 12, nil)

	got, err := r.Summary(ctx, "user-1", time.Date(2024, 2, 20, 8, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, &models.UsageSummary{
		PeriodStart:    periodStart,
		PeriodEnd:      time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC),
		MinutesUsed:    158,
		Sessions:       12,
		CreditsMinutes: 42,
	}, got)
}

func TestSummary_UnknownUser(t *testing.T) {
	r, store := newTestRecorder()
	ctx := context.Background()
	store.On("GetUserByID", ctx, "ghost").Return(nil, storage.ErrNotFound)

	_, err := r.Summary(ctx, "ghost", fixedNow)
	assert.ErrorIs(t, err, apperr.ErrUserNotFound)
}
