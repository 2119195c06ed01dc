package payment

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/cimillas/ticket-site/internal/domain"
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
)

type sessionCreator func(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)

// Checkout starts Stripe-hosted checkout sessions.
type Checkout struct {
	baseURL string
	create  sessionCreator
}

// NewCheckout returns a Checkout using apiKey. baseURL is the public origin
// Stripe redirects the buyer back to.
func NewCheckout(apiKey, baseURL string) *Checkout {
	sc := &client.API{}
	sc.Init(apiKey, nil)
	return &Checkout{
		baseURL: strings.TrimRight(baseURL, "/"),
		create:  sc.CheckoutSessions.New,
	}
}

// StartCheckout creates a payment-mode session for order and returns its URL.
func (c *Checkout) StartCheckout(ctx context.Context, order domain.Order, event domain.Event) (string, error) {
	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(order.Currency),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(event.Name),
					},
					UnitAmount: stripe.Int64(order.UnitPrice),
				},
				Quantity: stripe.Int64(int64(order.Quantity)),
			},
		},
		ClientReferenceID: stripe.String(order.ID),
		CustomerEmail:     stripe.String(order.Email),
		SuccessURL:        stripe.String(c.baseURL + "/confirmation?order_id=" + url.QueryEscape(order.ID)),
		CancelURL:         stripe.String(c.baseURL + "/tickets?event_id=" + url.QueryEscape(event.ID)),
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			Metadata: map[string]string{metadataOrderID: order.ID},
		},
	}
	params.Context = ctx
	params.AddMetadata(metadataOrderID, order.ID)
	params.SetIdempotencyKey("checkout-" + order.ID)

	session, err := c.create(params)
	if err != nil {
		return "", fmt.Errorf("create checkout session: %w", err)
	}
	if session.URL == "" {
		return "", errors.New("create checkout session: empty url")
	}
	return session.URL, nil
}
