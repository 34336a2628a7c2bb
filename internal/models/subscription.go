package models

import (
	"strings"
	"time"
)

// SubscriptionStatus локальный статус подписки, повторяет статусы Stripe в верхнем регистре.
type SubscriptionStatus string

// Возможные статусы подписки.
const (
	StatusIncomplete        SubscriptionStatus = "INCOMPLETE"
	StatusIncompleteExpired SubscriptionStatus = "INCOMPLETE_EXPIRED"
	StatusTrialing          SubscriptionStatus = "TRIALING"
	StatusActive            SubscriptionStatus = "ACTIVE"
	StatusPastDue           SubscriptionStatus = "PAST_DUE"
	StatusCanceled          SubscriptionStatus = "CANCELED"
	StatusUnpaid            SubscriptionStatus = "UNPAID"
	StatusPaused            SubscriptionStatus = "PAUSED"
)

var knownStatuses = map[SubscriptionStatus]struct{}{
	StatusIncomplete:        {},
	StatusIncompleteExpired: {},
	StatusTrialing:          {},
	StatusActive:            {},
	StatusPastDue:           {},
	StatusCanceled:          {},
	StatusUnpaid:            {},
	StatusPaused:            {},
}

// NormalizeStatus переводит статус провайдера в локальный.
// Второе значение false, если статус неизвестен.
func NormalizeStatus(external string) (SubscriptionStatus, bool) {
	s := SubscriptionStatus(strings.ToUpper(strings.TrimSpace(external)))
	_, ok := knownStatuses[s]
	return s, ok
}

// Subscription связь пользователя с планом, отражающая подписку Stripe.
type Subscription struct {
	ID                     string
	UserID                 string
	ExternalSubscriptionID string
	PlanCode               string
	Status                 SubscriptionStatus
	CurrentPeriodStart     time.Time
	CurrentPeriodEnd       time.Time
	CancelAtPeriodEnd      bool
	LastEventAt            time.Time // Время события Stripe, последним изменившего строку
	CreatedAt              time.Time
	UpdatedAt              time.Time
}
