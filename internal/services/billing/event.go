// Package billing принимает события Stripe и сводит их с локальным состоянием:
// подписками пользователей и остатком минут.
package billing

import "time"

// Kind классифицирует событие для сверки.
type Kind string

// Виды событий.
const (
	KindSubscriptionCreatedOrUpdated Kind = "subscription_changed"
	KindSubscriptionCanceled         Kind = "subscription_canceled"
	KindPaymentSucceeded             Kind = "payment_succeeded"
	KindPaymentFailed                Kind = "payment_failed"
	KindUnhandled                    Kind = "unhandled"
)

// Типы событий Stripe, которые обрабатывает сервис.
const (
	TypeSubscriptionCreated = "customer.subscription.created"
	TypeSubscriptionUpdated = "customer.subscription.updated"
	TypeSubscriptionDeleted = "customer.subscription.deleted"
	TypeInvoiceSucceeded    = "invoice.payment_succeeded"
	TypeInvoiceFailed       = "invoice.payment_failed"
)

// SubscriptionData поля подписки Stripe, нужные для сверки.
type SubscriptionData struct {
	ExternalID        string    `json:"externalId"`
	CustomerID        string    `json:"customerId"`
	PriceID           string    `json:"priceId"`
	Status            string    `json:"status"`
	PeriodStart       time.Time `json:"periodStart"`
	PeriodEnd         time.Time `json:"periodEnd"`
	CancelAtPeriodEnd bool      `json:"cancelAtPeriodEnd"`
}

// InvoiceData поля счёта Stripe, нужные для сверки.
type InvoiceData struct {
	ID             string `json:"id"`
	CustomerID     string `json:"customerId"`
	SubscriptionID string `json:"subscriptionId,omitempty"`
}

// Event проверенное и разобранное событие Stripe.
type Event struct {
	ID           string            `json:"id"`
	Type         string            `json:"type"`
	Kind         Kind              `json:"kind"`
	Created      time.Time         `json:"created"` // Момент создания события в Stripe, задаёт порядок изменений
	Subscription *SubscriptionData `json:"subscription,omitempty"`
	Invoice      *InvoiceData      `json:"invoice,omitempty"`
}

// UnresolvedMessage конверт события, которое не удалось свести из-за отсутствующих связей.
type UnresolvedMessage struct {
	Event   Event `json:"event"`
	Attempt int   `json:"attempt"`
}

// PaymentFailedMessage уведомление о неуспешном списании для последующей обработки.
type PaymentFailedMessage struct {
	EventID        string `json:"eventId"`
	InvoiceID      string `json:"invoiceId"`
	CustomerID     string `json:"customerId"`
	SubscriptionID string `json:"subscriptionId,omitempty"`
	UserID         string `json:"userId,omitempty"`
}
