package billing

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/webhook"

	"github.com/magabrotheeeer/voicebot-billing/internal/apperr"
)

// Gateway проверяет подпись вебхука Stripe и разбирает событие.
type Gateway struct {
	secret    string
	tolerance time.Duration
}

// NewGateway создаёт Gateway с секретом конечной точки вебхука.
func NewGateway(secret string) *Gateway {
	return &Gateway{secret: secret, tolerance: webhook.DefaultTolerance}
}

// Decode проверяет подпись заголовка Stripe-Signature над исходными байтами тела
// и возвращает событие. Неверная подпись даёт apperr.ErrInvalidSignature,
// тело, которое не разбирается в ожидаемый объект, даёт apperr.ErrValidation.
func (g *Gateway) Decode(payload []byte, signatureHeader string) (Event, error) {
	const op = "billing.Gateway.Decode"

	raw, err := webhook.ConstructEventWithOptions(payload, signatureHeader, g.secret, webhook.ConstructEventOptions{
		Tolerance:                g.tolerance,
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		if isSignatureError(err) {
			return Event{}, fmt.Errorf("%s: %w: %v", op, apperr.ErrInvalidSignature, err)
		}
		return Event{}, fmt.Errorf("%s: %w: %v", op, apperr.ErrValidation, err)
	}

	ev := Event{
		ID:      raw.ID,
		Type:    string(raw.Type),
		Kind:    KindUnhandled,
		Created: time.Unix(raw.Created, 0).UTC(),
	}
	switch ev.Type {
	case TypeSubscriptionCreated, TypeSubscriptionUpdated, TypeSubscriptionDeleted:
		data, err := decodeSubscription(raw.Data)
		if err != nil {
			return Event{}, fmt.Errorf("%s: %w: %v", op, apperr.ErrValidation, err)
		}
		ev.Subscription = data
		ev.Kind = KindSubscriptionCreatedOrUpdated
		if ev.Type == TypeSubscriptionDeleted {
			ev.Kind = KindSubscriptionCanceled
		}
	case TypeInvoiceSucceeded, TypeInvoiceFailed:
		data, err := decodeInvoice(raw.Data)
		if err != nil {
			return Event{}, fmt.Errorf("%s: %w: %v", op, apperr.ErrValidation, err)
		}
		ev.Invoice = data
		ev.Kind = KindPaymentSucceeded
		if ev.Type == TypeInvoiceFailed {
			ev.Kind = KindPaymentFailed
		}
	}
	return ev, nil
}

func isSignatureError(err error) bool {
	return errors.Is(err, webhook.ErrInvalidHeader) ||
		errors.Is(err, webhook.ErrNoValidSignature) ||
		errors.Is(err, webhook.ErrNotSigned) ||
		errors.Is(err, webhook.ErrTooOld)
}

func decodeSubscription(data *stripe.EventData) (*SubscriptionData, error) {
	if data == nil || len(data.Raw) == 0 {
		return nil, errors.New("empty event data")
	}
	var sub stripe.Subscription
	if err := json.Unmarshal(data.Raw, &sub); err != nil {
		return nil, err
	}
	if sub.ID == "" {
		return nil, errors.New("subscription id missing")
	}

	out := &SubscriptionData{
		ExternalID:        sub.ID,
		Status:            string(sub.Status),
		CancelAtPeriodEnd: sub.CancelAtPeriodEnd,
		PeriodStart:       time.Unix(sub.CurrentPeriodStart, 0).UTC(),
		PeriodEnd:         time.Unix(sub.CurrentPeriodEnd, 0).UTC(),
	}
	if sub.Customer != nil {
		out.CustomerID = sub.Customer.ID
	}
	if sub.Items != nil && len(sub.Items.Data) > 0 && sub.Items.Data[0].Price != nil {
		out.PriceID = sub.Items.Data[0].Price.ID
	}
	return out, nil
}

func decodeInvoice(data *stripe.EventData) (*InvoiceData, error) {
	if data == nil || len(data.Raw) == 0 {
		return nil, errors.New("empty event data")
	}
	var inv stripe.Invoice
	if err := json.Unmarshal(data.Raw, &inv); err != nil {
		return nil, err
	}

	out := &InvoiceData{ID: inv.ID}
	if inv.Customer != nil {
		out.CustomerID = inv.Customer.ID
	}
	if inv.Subscription != nil {
		out.SubscriptionID = inv.Subscription.ID
	}
	return out, nil
}
