package checkout

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/voicebot-billing/internal/apperr"
	"github.com/magabrotheeeer/voicebot-billing/internal/models"
	"github.com/magabrotheeeer/voicebot-billing/internal/storage"
)

type StoreMock struct{ mock.Mock }

func (m *StoreMock) ListActivePlans(ctx context.Context) ([]*models.Plan, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Plan), args.Error(1)
}

func (m *StoreMock) GetPlanByCode(ctx context.Context, code string) (*models.Plan, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Plan), args.Error(1)
}

func (m *StoreMock) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *StoreMock) SetStripeCustomerID(ctx context.Context, userID, customerID string) error {
	return m.Called(ctx, userID, customerID).Error(0)
}

func (m *StoreMock) GetCurrentSubscription(ctx context.Context, userID string) (*models.Subscription, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Subscription), args.Error(1)
}

type CacheMock struct{ mock.Mock }

func (m *CacheMock) Get(ctx context.Context, key string, result any) (bool, error) {
	args := m.Called(ctx, key, result)
	return args.Bool(0), args.Error(1)
}

func (m *CacheMock) Set(ctx context.Context, key string, value any, expiration time.Duration) error {
	return m.Called(ctx, key, value, expiration).Error(0)
}

type PaymentsMock struct{ mock.Mock }

func (m *PaymentsMock) EnsureCustomer(ctx context.Context, email, name string) (string, error) {
	args := m.Called(ctx, email, name)
	return args.String(0), args.Error(1)
}

func (m *PaymentsMock) CreateCheckoutSession(ctx context.Context, customerID, priceID string) (string, error) {
	args := m.Called(ctx, customerID, priceID)
	return args.String(0), args.Error(1)
}

func (m *PaymentsMock) CreatePortalSession(ctx context.Context, customerID string) (string, error) {
	args := m.Called(ctx, customerID)
	return args.String(0), args.Error(1)
}

func (m *PaymentsMock) ChangeSubscriptionPrice(ctx context.Context, subscriptionID, priceID string) error {
	return m.Called(ctx, subscriptionID, priceID).Error(0)
}

func (m *PaymentsMock) CancelSubscription(ctx context.Context, subscriptionID string) error {
	return m.Called(ctx, subscriptionID).Error(0)
}

func newTestService() (*Service, *StoreMock, *CacheMock, *PaymentsMock) {
	store := &StoreMock{}
	cache := &CacheMock{}
	payments := &PaymentsMock{}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(store, cache, payments, log), store, cache, payments
}

func strPtr(s string) *string { return &s }

func TestListPlans_CacheMiss(t *testing.T) {
	s, store, cache, _ := newTestService()
	ctx := context.Background()
	plans := []*models.Plan{{Code: "free", IsActive: true}, {Code: "pro", IsActive: true}}

	cache.On("Get", ctx, plansCacheKey, mock.Anything).Return(false, nil)
	store.On("ListActivePlans", ctx).Return(plans, nil)
	cache.On("Set", ctx, plansCacheKey, plans, plansCacheTTL).Return(nil)

	got, err := s.ListPlans(ctx)
	require.NoError(t, err)
	assert.Equal(t, plans, got)
	cache.AssertExpectations(t)
}

func TestListPlans_CacheHit(t *testing.T) {
	s, store, cache, _ := newTestService()
	ctx := context.Background()

	cache.On("Get", ctx, plansCacheKey, mock.Anything).
		Run(func(args mock.Arguments) {
			dst := args.Get(2).(*[]*models.Plan)
			*dst = []*models.Plan{{Code: "pro"}}
		}).
		Return(true, nil)

	got, err := s.ListPlans(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "pro", got[0].Code)
	store.AssertNotCalled(t, "ListActivePlans", mock.Anything)
}

func TestListPlans_CacheFailureFallsBackToStore(t *testing.T) {
	s, store, cache, _ := newTestService()
	ctx := context.Background()
	plans := []*models.Plan{{Code: "free"}}

	cache.On("Get", ctx, plansCacheKey, mock.Anything).Return(false, errors.New("redis down"))
	store.On("ListActivePlans", ctx).Return(plans, nil)
	cache.On("Set", ctx, plansCacheKey, plans, plansCacheTTL).Return(errors.New("redis down"))

	got, err := s.ListPlans(ctx)
	require.NoError(t, err)
	assert.Equal(t, plans, got)
}

func TestCreateCheckout_NewCustomer(t *testing.T) {
	s, store, _, payments := newTestService()
	ctx := context.Background()

	store.On("GetPlanByCode", ctx, "pro").Return(&models.Plan{Code: "pro", IsActive: true, ExternalPriceID: strPtr("price_pro")}, nil)
	store.On("GetUserByID", ctx, "user-1").Return(&models.User{ID: "user-1", Email: "a@b.c", Name: "Ann"}, nil)
	payments.On("EnsureCustomer", ctx, "a@b.c", "Ann").Return("cus_1", nil)
	store.On("SetStripeCustomerID", ctx, "user-1", "cus_1").Return(nil)
	payments.On("CreateCheckoutSession", ctx, "cus_1", "price_pro").Return("https://checkout.stripe.test/s", nil)

	url, err := s.CreateCheckout(ctx, "user-1", "pro")
	require.NoError(t, err)
	assert.Equal(t, "https://checkout.stripe.test/s", url)
	store.AssertExpectations(t)
	payments.AssertExpectations(t)
}

func TestCreateCheckout_ExistingCustomer(t *testing.T) {
	s, store, _, payments := newTestService()
	ctx := context.Background()

	store.On("GetPlanByCode", ctx, "growth").Return(&models.Plan{Code: "growth", IsActive: true, ExternalPriceID: strPtr("price_growth")}, nil)
	store.On("GetUserByID", ctx, "user-1").Return(&models.User{ID: "user-1", StripeCustomerID: strPtr("cus_9")}, nil)
	payments.On("CreateCheckoutSession", ctx, "cus_9", "price_growth").Return("https://checkout.stripe.test/g", nil)

	url, err := s.CreateCheckout(ctx, "user-1", "growth")
	require.NoError(t, err)
	assert.Equal(t, "https://checkout.stripe.test/g", url)
	payments.AssertNotCalled(t, "EnsureCustomer", mock.Anything, mock.Anything, mock.Anything)
	store.AssertNotCalled(t, "SetStripeCustomerID", mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateCheckout_Errors(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		setup   func(*StoreMock, *PaymentsMock)
		wantErr error
		status  int
	}{
		{
			name: "unknown plan",
			setup: func(s *StoreMock, _ *PaymentsMock) {
				s.On("GetPlanByCode", ctx, "pro").Return(nil, storage.ErrNotFound)
			},
			wantErr: apperr.ErrPlanNotFound,
			status:  404,
		},
		{
			name: "plan without price",
			setup: func(s *StoreMock, _ *PaymentsMock) {
				s.On("GetPlanByCode", ctx, "pro").Return(&models.Plan{Code: "pro", IsActive: true}, nil)
			},
			wantErr: apperr.ErrValidation,
			status:  400,
		},
		{
			name: "inactive plan",
			setup: func(s *StoreMock, _ *PaymentsMock) {
				s.On("GetPlanByCode", ctx, "pro").Return(&models.Plan{Code: "pro", ExternalPriceID: strPtr("price_pro")}, nil)
			},
			wantErr: apperr.ErrValidation,
			status:  400,
		},
		{
			name: "unknown user",
			setup: func(s *StoreMock, _ *PaymentsMock) {
				s.On("GetPlanByCode", ctx, "pro").Return(&models.Plan{Code: "pro", IsActive: true, ExternalPriceID: strPtr("price_pro")}, nil)
				s.On("GetUserByID", ctx, "user-1").Return(nil, storage.ErrNotFound)
			},
			wantErr: apperr.ErrUserNotFound,
			status:  404,
		},
		{
			name: "stripe failure",
			setup: func(s *StoreMock, p *PaymentsMock) {
				s.On("GetPlanByCode", ctx, "pro").Return(&models.Plan{Code: "pro", IsActive: true, ExternalPriceID: strPtr("price_pro")}, nil)
				s.On("GetUserByID", ctx, "user-1").Return(&models.User{ID: "user-1", StripeCustomerID: strPtr("cus_1")}, nil)
				p.On("CreateCheckoutSession", ctx, "cus_1", "price_pro").Return("", errors.New("card_declined"))
			},
			wantErr: apperr.ErrExternalDependency,
			status:  500,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, store, _, payments := newTestService()
			tt.setup(store, payments)

			_, err := s.CreateCheckout(ctx, "user-1", "pro")
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, tt.status, apperr.HTTPStatus(err))
		})
	}
}

func TestCreatePortal(t *testing.T) {
	ctx := context.Background()

	t.Run("existing customer", func(t *testing.T) {
		s, store, _, payments := newTestService()
		store.On("GetUserByID", ctx, "user-1").Return(&models.User{ID: "user-1", StripeCustomerID: strPtr("cus_1")}, nil)
		payments.On("CreatePortalSession", ctx, "cus_1").Return("https://billing.stripe.test/p", nil)

		url, err := s.CreatePortal(ctx, "user-1")
		require.NoError(t, err)
		assert.Equal(t, "https://billing.stripe.test/p", url)
	})

	t.Run("no customer yet", func(t *testing.T) {
		s, store, _, payments := newTestService()
		store.On("GetUserByID", ctx, "user-1").Return(&models.User{ID: "user-1"}, nil)

		_, err := s.CreatePortal(ctx, "user-1")
		assert.ErrorIs(t, err, apperr.ErrValidation)
		payments.AssertNotCalled(t, "CreatePortalSession", mock.Anything, mock.Anything)
	})
}

func TestChangePlan(t *testing.T) {
	ctx := context.Background()
	growth := &models.Plan{Code: "growth", IsActive: true, ExternalPriceID: strPtr("price_growth")}
	current := &models.Subscription{ExternalSubscriptionID: "sub_1", PlanCode: "pro", Status: models.StatusActive}

	tests := []struct {
		name    string
		setup   func(*StoreMock, *PaymentsMock)
		wantErr error
		status  int
	}{
		{
			name: "switches price in stripe",
			setup: func(s *StoreMock, p *PaymentsMock) {
				s.On("GetPlanByCode", ctx, "growth").Return(growth, nil)
				s.On("GetCurrentSubscription", ctx, "user-1").Return(current, nil)
				p.On("ChangeSubscriptionPrice", ctx, "sub_1", "price_growth").Return(nil)
			},
			status: 200,
		},
		{
			name: "unknown plan",
			setup: func(s *StoreMock, _ *PaymentsMock) {
				s.On("GetPlanByCode", ctx, "growth").Return(nil, storage.ErrNotFound)
			},
			wantErr: apperr.ErrPlanNotFound,
			status:  404,
		},
		{
			name: "no current subscription",
			setup: func(s *StoreMock, _ *PaymentsMock) {
				s.On("GetPlanByCode", ctx, "growth").Return(growth, nil)
				s.On("GetCurrentSubscription", ctx, "user-1").Return(nil, storage.ErrNotFound)
			},
			wantErr: apperr.ErrNoSubscription,
			status:  404,
		},
		{
			name: "already on plan",
			setup: func(s *StoreMock, _ *PaymentsMock) {
				s.On("GetPlanByCode", ctx, "growth").Return(growth, nil)
				s.On("GetCurrentSubscription", ctx, "user-1").
					Return(&models.Subscription{ExternalSubscriptionID: "sub_1", PlanCode: "growth"}, nil)
			},
			wantErr: apperr.ErrAlreadyOnPlan,
			status:  409,
		},
		{
			name: "stripe failure",
			setup: func(s *StoreMock, p *PaymentsMock) {
				s.On("GetPlanByCode", ctx, "growth").Return(growth, nil)
				s.On("GetCurrentSubscription", ctx, "user-1").Return(current, nil)
				p.On("ChangeSubscriptionPrice", ctx, "sub_1", "price_growth").Return(errors.New("resource_missing"))
			},
			wantErr: apperr.ErrExternalDependency,
			status:  500,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, store, _, payments := newTestService()
			tt.setup(store, payments)

			err := s.ChangePlan(ctx, "user-1", "growth")
			assert.Equal(t, tt.status, apperr.HTTPStatus(err))
			if tt.wantErr == nil {
				require.NoError(t, err)
				payments.AssertExpectations(t)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
			if !errors.Is(tt.wantErr, apperr.ErrExternalDependency) {
				payments.AssertNotCalled(t, "ChangeSubscriptionPrice", mock.Anything, mock.Anything, mock.Anything)
			}
		})
	}
}

func TestCancelSubscription(t *testing.T) {
	ctx := context.Background()

	t.Run("cancels in stripe", func(t *testing.T) {
		s, store, _, payments := newTestService()
		store.On("GetCurrentSubscription", ctx, "user-1").
			Return(&models.Subscription{ExternalSubscriptionID: "sub_1", PlanCode: "pro"}, nil)
		payments.On("CancelSubscription", ctx, "sub_1").Return(nil)

		require.NoError(t, s.CancelSubscription(ctx, "user-1"))
		payments.AssertExpectations(t)
	})

	t.Run("nothing to cancel", func(t *testing.T) {
		s, store, _, payments := newTestService()
		store.On("GetCurrentSubscription", ctx, "user-1").Return(nil, storage.ErrNotFound)

		err := s.CancelSubscription(ctx, "user-1")
		assert.ErrorIs(t, err, apperr.ErrNoSubscription)
		payments.AssertNotCalled(t, "CancelSubscription", mock.Anything, mock.Anything)
	})

	t.Run("stripe failure", func(t *testing.T) {
		s, store, _, payments := newTestService()
		store.On("GetCurrentSubscription", ctx, "user-1").
			Return(&models.Subscription{ExternalSubscriptionID: "sub_1"}, nil)
		payments.On("CancelSubscription", ctx, "sub_1").Return(errors.New("api down"))

		err := s.CancelSubscription(ctx, "user-1")
		assert.ErrorIs(t, err, apperr.ErrExternalDependency)
		assert.Equal(t, 500, apperr.HTTPStatus(err))
	})
}
