// Package paymentprovider обращается к Stripe: клиенты, сессии оформления
// подписки, портал управления оплатой, смена плана и отмена подписки.
package paymentprovider

import (
	"context"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
)

// Client клиент Stripe с адресом фронтенда для возвратных ссылок.
type Client struct {
	api         *client.API
	frontendURL string
}

// NewClient создаёт клиент Stripe. backends нужен для подмены API в тестах, nil означает боевой API.
func NewClient(secretKey, frontendURL string, backends *stripe.Backends) *Client {
	return &Client{
		api:         client.New(secretKey, backends),
		frontendURL: strings.TrimRight(frontendURL, "/"),
	}
}

// EnsureCustomer находит клиента Stripe по email или создаёт нового.
func (c *Client) EnsureCustomer(ctx context.Context, email, name string) (string, error) {
	const op = "paymentprovider.EnsureCustomer"

	listParams := &stripe.CustomerListParams{Email: stripe.String(email)}
	listParams.Context = ctx
	listParams.Limit = stripe.Int64(1)
	iter := c.api.Customers.List(listParams)
	if iter.Next() {
		return iter.Customer().ID, nil
	}
	if err := iter.Err(); err != nil {
		return "", fmt.Errorf("%s: list: %w", op, err)
	}

	params := &stripe.CustomerParams{Email: stripe.String(email)}
	if name != "" {
		params.Name = stripe.String(name)
	}
	params.Context = ctx
	cus, err := c.api.Customers.New(params)
	if err != nil {
		return "", fmt.Errorf("%s: create: %w", op, err)
	}
	return cus.ID, nil
}

// CreateCheckoutSession создаёт сессию оформления подписки на цену priceID
// и возвращает ссылку на страницу оплаты.
func (c *Client) CreateCheckoutSession(ctx context.Context, customerID, priceID string) (string, error) {
	const op = "paymentprovider.CreateCheckoutSession"
	params := &stripe.CheckoutSessionParams{
		Mode:     stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		Customer: stripe.String(customerID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(priceID),
				Quantity: stripe.Int64(1),
			},
		},
		PaymentMethodTypes:  stripe.StringSlice([]string{"card"}),
		AllowPromotionCodes: stripe.Bool(true),
		SuccessURL:          stripe.String(c.frontendURL + "/dashboard/billing?checkout=success"),
		CancelURL:           stripe.String(c.frontendURL + "/dashboard/billing?checkout=canceled"),
	}
	params.Context = ctx

	sess, err := c.api.CheckoutSessions.New(params)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return sess.URL, nil
}

// CreatePortalSession создаёт сессию портала управления подпиской.
func (c *Client) CreatePortalSession(ctx context.Context, customerID string) (string, error) {
	const op = "paymentprovider.CreatePortalSession"
	params := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(customerID),
		ReturnURL: stripe.String(c.frontendURL + "/dashboard/billing"),
	}
	params.Context = ctx

	sess, err := c.api.BillingPortalSessions.New(params)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return sess.URL, nil
}

// ChangeSubscriptionPrice переводит единственную позицию подписки на цену priceID.
// Разница за текущий период выставляется пропорционально.
func (c *Client) ChangeSubscriptionPrice(ctx context.Context, subscriptionID, priceID string) error {
	const op = "paymentprovider.ChangeSubscriptionPrice"

	getParams := &stripe.SubscriptionParams{}
	getParams.Context = ctx
	sub, err := c.api.Subscriptions.Get(subscriptionID, getParams)
	if err != nil {
		return fmt.Errorf("%s: get: %w", op, err)
	}
	if sub.Items == nil || len(sub.Items.Data) == 0 {
		return fmt.Errorf("%s: subscription %s has no items", op, subscriptionID)
	}

	params := &stripe.SubscriptionParams{
		Items: []*stripe.SubscriptionItemsParams{
			{
				ID:    stripe.String(sub.Items.Data[0].ID),
				Price: stripe.String(priceID),
			},
		},
		ProrationBehavior: stripe.String("create_prorations"),
	}
	params.Context = ctx
	if _, err := c.api.Subscriptions.Update(subscriptionID, params); err != nil {
		return fmt.Errorf("%s: update: %w", op, err)
	}
	return nil
}

// CancelSubscription немедленно отменяет подписку.
func (c *Client) CancelSubscription(ctx context.Context, subscriptionID string) error {
	const op = "paymentprovider.CancelSubscription"
	params := &stripe.SubscriptionCancelParams{}
	params.Context = ctx
	if _, err := c.api.Subscriptions.Cancel(subscriptionID, params); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
