// Package payment adapts Stripe to the order lifecycle: it verifies webhook
// deliveries into domain.PaymentEvent values and starts hosted checkout
// sessions for pending orders.
//
// The order identifier travels through Stripe as metadata["order_id"] on both
// the checkout session and its payment intent, and as the session's
// client_reference_id.
package payment
