// Package checkout отдаёт каталог тарифов, открывает платёжные страницы Stripe,
// меняет план и отменяет подписку пользователя.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/voicebot-billing/internal/apperr"
	"github.com/magabrotheeeer/voicebot-billing/internal/lib/sl"
	"github.com/magabrotheeeer/voicebot-billing/internal/models"
	"github.com/magabrotheeeer/voicebot-billing/internal/storage"
)

const (
	plansCacheKey = "plans:active"
	plansCacheTTL = 10 * time.Minute
)

// Store определяет методы хранилища для каталога и оформления подписки.
type Store interface {
	ListActivePlans(ctx context.Context) ([]*models.Plan, error)
	GetPlanByCode(ctx context.Context, code string) (*models.Plan, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	SetStripeCustomerID(ctx context.Context, userID, customerID string) error
	GetCurrentSubscription(ctx context.Context, userID string) (*models.Subscription, error)
}

// Cache описывает методы для кэширования данных.
type Cache interface {
	// Get пытается получить значение из кеша по ключу.
	Get(ctx context.Context, key string, result any) (bool, error)
	// Set сохраняет значение в кеш с временем жизни.
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
}

// Payments описывает операции платёжного провайдера.
type Payments interface {
	EnsureCustomer(ctx context.Context, email, name string) (string, error)
	CreateCheckoutSession(ctx context.Context, customerID, priceID string) (string, error)
	CreatePortalSession(ctx context.Context, customerID string) (string, error)
	ChangeSubscriptionPrice(ctx context.Context, subscriptionID, priceID string) error
	CancelSubscription(ctx context.Context, subscriptionID string) error
}

// Service реализует каталог тарифов и оформление подписки.
type Service struct {
	store    Store
	cache    Cache
	payments Payments
	log      *slog.Logger
}

// NewService создаёт Service.
func NewService(store Store, cache Cache, payments Payments, log *slog.Logger) *Service {
	return &Service{
		store:    store,
		cache:    cache,
		payments: payments,
		log:      log,
	}
}

// ListPlans возвращает активные тарифы. Список кешируется на 10 минут,
// сбой кеша не мешает ответу.
func (s *Service) ListPlans(ctx context.Context) ([]*models.Plan, error) {
	const op = "checkout.Service.ListPlans"

	var cached []*models.Plan
	found, err := s.cache.Get(ctx, plansCacheKey, &cached)
	if err != nil {
		s.log.Warn("plans cache read failed", slog.String("op", op), sl.Err(err))
	}
	if found {
		return cached, nil
	}

	plans, err := s.store.ListActivePlans(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := s.cache.Set(ctx, plansCacheKey, plans, plansCacheTTL); err != nil {
		s.log.Warn("plans cache write failed", slog.String("op", op), sl.Err(err))
	}
	return plans, nil
}

// CreateCheckout открывает страницу оплаты подписки на план для пользователя.
// При первом обращении пользователю заводится клиент Stripe.
func (s *Service) CreateCheckout(ctx context.Context, userID, planCode string) (string, error) {
	const op = "checkout.Service.CreateCheckout"

	plan, err := s.purchasablePlan(ctx, planCode)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	user, err := s.getUser(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	customerID, err := s.ensureCustomer(ctx, user)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	url, err := s.payments.CreateCheckoutSession(ctx, customerID, *plan.ExternalPriceID)
	if err != nil {
		return "", fmt.Errorf("%s: %w: %v", op, apperr.ErrExternalDependency, err)
	}

	s.log.Info("checkout session created",
		slog.String("op", op),
		slog.String("user_id", user.ID),
		slog.String("plan", plan.Code))
	return url, nil
}

// CreatePortal открывает портал управления подпиской.
// У пользователя уже должен быть клиент Stripe.
func (s *Service) CreatePortal(ctx context.Context, userID string) (string, error) {
	const op = "checkout.Service.CreatePortal"

	user, err := s.getUser(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if user.StripeCustomerID == nil || *user.StripeCustomerID == "" {
		return "", fmt.Errorf("%s: %w: user has no billing account", op, apperr.ErrValidation)
	}

	url, err := s.payments.CreatePortalSession(ctx, *user.StripeCustomerID)
	if err != nil {
		return "", fmt.Errorf("%s: %w: %v", op, apperr.ErrExternalDependency, err)
	}
	return url, nil
}

// ChangePlan переводит действующую подписку пользователя на другой план.
// Локальная подписка обновится по событию customer.subscription.updated.
func (s *Service) ChangePlan(ctx context.Context, userID, planCode string) error {
	const op = "checkout.Service.ChangePlan"

	plan, err := s.purchasablePlan(ctx, planCode)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	sub, err := s.currentSubscription(ctx, userID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if sub.PlanCode == plan.Code {
		return fmt.Errorf("%s: %w", op, apperr.ErrAlreadyOnPlan)
	}

	if err := s.payments.ChangeSubscriptionPrice(ctx, sub.ExternalSubscriptionID, *plan.ExternalPriceID); err != nil {
		return fmt.Errorf("%s: %w: %v", op, apperr.ErrExternalDependency, err)
	}

	s.log.Info("subscription plan change requested",
		slog.String("op", op),
		slog.String("user_id", userID),
		slog.String("subscription_id", sub.ExternalSubscriptionID),
		slog.String("from", sub.PlanCode),
		slog.String("to", plan.Code))
	return nil
}

// CancelSubscription отменяет действующую подписку пользователя.
// Локальный статус сменится по событию customer.subscription.deleted.
func (s *Service) CancelSubscription(ctx context.Context, userID string) error {
	const op = "checkout.Service.CancelSubscription"

	sub, err := s.currentSubscription(ctx, userID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.payments.CancelSubscription(ctx, sub.ExternalSubscriptionID); err != nil {
		return fmt.Errorf("%s: %w: %v", op, apperr.ErrExternalDependency, err)
	}

	s.log.Info("subscription cancel requested",
		slog.String("op", op),
		slog.String("user_id", userID),
		slog.String("subscription_id", sub.ExternalSubscriptionID))
	return nil
}

func (s *Service) purchasablePlan(ctx context.Context, planCode string) (*models.Plan, error) {
	plan, err := s.store.GetPlanByCode(ctx, planCode)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, apperr.ErrPlanNotFound
	}
	if err != nil {
		return nil, err
	}
	if !plan.IsActive || plan.ExternalPriceID == nil || *plan.ExternalPriceID == "" {
		return nil, fmt.Errorf("%w: plan %q is not purchasable", apperr.ErrValidation, planCode)
	}
	return plan, nil
}

func (s *Service) currentSubscription(ctx context.Context, userID string) (*models.Subscription, error) {
	sub, err := s.store.GetCurrentSubscription(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, apperr.ErrNoSubscription
	}
	return sub, err
}

func (s *Service) getUser(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.store.GetUserByID(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, apperr.ErrUserNotFound
	}
	return user, err
}

func (s *Service) ensureCustomer(ctx context.Context, user *models.User) (string, error) {
	if user.StripeCustomerID != nil && *user.StripeCustomerID != "" {
		return *user.StripeCustomerID, nil
	}

	customerID, err := s.payments.EnsureCustomer(ctx, user.Email, user.Name)
	if err != nil {
		return "", fmt.Errorf("%w: %v", apperr.ErrExternalDependency, err)
	}
	if err := s.store.SetStripeCustomerID(ctx, user.ID, customerID); err != nil {
		return "", err
	}
	s.log.Info("stripe customer linked", slog.String("user_id", user.ID), slog.String("customer_id", customerID))
	return customerID, nil
}
