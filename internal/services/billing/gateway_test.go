package billing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/voicebot-billing/internal/apperr"
)

const testSecret = "whsec_test"

func signPayload(secret string, payload []byte, ts time.Time) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.", ts.Unix())
	mac.Write(payload)
	return fmt.Sprintf("t=%d,v1=%s", ts.Unix(), hex.EncodeToString(mac.Sum(nil)))
}

const eventCreated = 1717243200

func eventPayload(id, typ, object string) []byte {
	return []byte(fmt.Sprintf(`{"id":%q,"object":"event","type":%q,"created":%d,"data":{"object":%s}}`,
		id, typ, eventCreated, object))
}

const subscriptionObject = `{
	"id": "sub_1",
	"object": "subscription",
	"customer": "cus_1",
	"status": "active",
	"current_period_start": 1717200000,
	"current_period_end": 1719792000,
	"cancel_at_period_end": true,
	"items": {"object": "list", "data": [{"id": "si_1", "price": {"id": "price_pro"}}]}
}`

const invoiceObject = `{"id": "in_1", "object": "invoice", "customer": "cus_1", "subscription": "sub_1"}`

func TestGateway_DecodeKinds(t *testing.T) {
	g := NewGateway(testSecret)

	tests := []struct {
		name   string
		typ    string
		object string
		kind   Kind
	}{
		{"subscription created", TypeSubscriptionCreated, subscriptionObject, KindSubscriptionCreatedOrUpdated},
		{"subscription updated", TypeSubscriptionUpdated, subscriptionObject, KindSubscriptionCreatedOrUpdated},
		{"subscription deleted", TypeSubscriptionDeleted, subscriptionObject, KindSubscriptionCanceled},
		{"invoice paid", TypeInvoiceSucceeded, invoiceObject, KindPaymentSucceeded},
		{"invoice failed", TypeInvoiceFailed, invoiceObject, KindPaymentFailed},
		{"other", "customer.created", `{"id": "cus_1", "object": "customer"}`, KindUnhandled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload := eventPayload("evt_1", tt.typ, tt.object)
			ev, err := g.Decode(payload, signPayload(testSecret, payload, time.Now()))
			require.NoError(t, err)
			assert.Equal(t, "evt_1", ev.ID)
			assert.Equal(t, tt.typ, ev.Type)
			assert.Equal(t, tt.kind, ev.Kind)
		})
	}
}

func TestGateway_DecodeSubscriptionFields(t *testing.T) {
	g := NewGateway(testSecret)
	payload := eventPayload("evt_2", TypeSubscriptionUpdated, subscriptionObject)

	ev, err := g.Decode(payload, signPayload(testSecret, payload, time.Now()))
	require.NoError(t, err)
	require.NotNil(t, ev.Subscription)

	assert.Equal(t, "sub_1", ev.Subscription.ExternalID)
	assert.Equal(t, "cus_1", ev.Subscription.CustomerID)
	assert.Equal(t, "price_pro", ev.Subscription.PriceID)
	assert.Equal(t, "active", ev.Subscription.Status)
	assert.True(t, ev.Subscription.CancelAtPeriodEnd)
	assert.Equal(t, time.Unix(1717200000, 0).UTC(), ev.Subscription.PeriodStart)
	assert.Equal(t, time.Unix(1719792000, 0).UTC(), ev.Subscription.PeriodEnd)
	assert.Equal(t, time.Unix(eventCreated, 0).UTC(), ev.Created)
	assert.Nil(t, ev.Invoice)
}

func TestGateway_DecodeInvoiceFields(t *testing.T) {
	g := NewGateway(testSecret)
	payload := eventPayload("evt_3", TypeInvoiceSucceeded, invoiceObject)

	ev, err := g.Decode(payload, signPayload(testSecret, payload, time.Now()))
	require.NoError(t, err)
	require.NotNil(t, ev.Invoice)

	assert.Equal(t, "in_1", ev.Invoice.ID)
	assert.Equal(t, "cus_1", ev.Invoice.CustomerID)
	assert.Equal(t, "sub_1", ev.Invoice.SubscriptionID)
}

func TestGateway_DecodeRejectsBadSignature(t *testing.T) {
	g := NewGateway(testSecret)
	payload := eventPayload("evt_4", TypeSubscriptionUpdated, subscriptionObject)
	valid := signPayload(testSecret, payload, time.Now())

	tests := []struct {
		name    string
		payload []byte
		header  string
	}{
		{"missing header", payload, ""},
		{"malformed header", payload, "garbage"},
		{"wrong secret", payload, signPayload("whsec_other", payload, time.Now())},
		{"tampered body", []byte(strings.Replace(string(payload), "active", "paused", 1)), valid},
		{"expired timestamp", payload, signPayload(testSecret, payload, time.Now().Add(-time.Hour))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := g.Decode(tt.payload, tt.header)
			require.Error(t, err)
			assert.ErrorIs(t, err, apperr.ErrInvalidSignature)
			assert.Equal(t, 400, apperr.HTTPStatus(err))
		})
	}
}

func TestGateway_DecodeRejectsMalformedPayload(t *testing.T) {
	g := NewGateway(testSecret)

	tests := []struct {
		name    string
		payload []byte
	}{
		{"not json", []byte("not json")},
		{"subscription without id", eventPayload("evt_5", TypeSubscriptionUpdated, `{}`)},
		{"invoice as array", eventPayload("evt_6", TypeInvoiceSucceeded, `[1, 2]`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := g.Decode(tt.payload, signPayload(testSecret, tt.payload, time.Now()))
			require.Error(t, err)
			assert.ErrorIs(t, err, apperr.ErrValidation)
			assert.NotErrorIs(t, err, apperr.ErrInvalidSignature)
		})
	}
}
