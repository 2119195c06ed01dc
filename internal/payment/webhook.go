package payment

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cimillas/ticket-site/internal/domain"
	"github.com/stripe/stripe-go/v79/webhook"
)

// SignatureHeader carries Stripe's webhook signature.
const SignatureHeader = "Stripe-Signature"

const (
	eventPaymentIntentSucceeded   = "payment_intent.succeeded"
	eventCheckoutSessionCompleted = "checkout.session.completed"

	metadataOrderID = "order_id"
	sessionPaid     = "paid"
)

// ErrVerification is returned for payloads that are malformed or not signed
// with the shared secret.
var ErrVerification = errors.New("webhook verification failed")

// Verifier authenticates webhook payloads with the endpoint signing secret.
type Verifier struct {
	secret    string
	tolerance time.Duration
}

// NewVerifier returns a Verifier. A zero tolerance uses Stripe's default of
// five minutes.
func NewVerifier(secret string, tolerance time.Duration) *Verifier {
	if tolerance <= 0 {
		tolerance = webhook.DefaultTolerance
	}
	return &Verifier{secret: secret, tolerance: tolerance}
}

type eventObject struct {
	ID                string            `json:"id"`
	Metadata          map[string]string `json:"metadata"`
	ClientReferenceID string            `json:"client_reference_id"`
	PaymentStatus     string            `json:"payment_status"`
}

// Verify checks the signature header against payload and classifies the
// event. Every failure wraps ErrVerification.
func (v *Verifier) Verify(payload []byte, signature string) (domain.PaymentEvent, error) {
	if v.secret == "" {
		return domain.PaymentEvent{}, fmt.Errorf("%w: signing secret not configured", ErrVerification)
	}

	event, err := webhook.ConstructEventWithOptions(payload, signature, v.secret, webhook.ConstructEventOptions{
		Tolerance:                v.tolerance,
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return domain.PaymentEvent{}, fmt.Errorf("%w: %v", ErrVerification, err)
	}

	out := domain.PaymentEvent{
		ID:      event.ID,
		Type:    domain.PaymentEventOther,
		RawType: string(event.Type),
	}
	if event.Type != eventPaymentIntentSucceeded && event.Type != eventCheckoutSessionCompleted {
		return out, nil
	}
	if event.Data == nil || len(event.Data.Raw) == 0 {
		return domain.PaymentEvent{}, fmt.Errorf("%w: event %s has no data object", ErrVerification, event.ID)
	}

	var obj eventObject
	if err := json.Unmarshal(event.Data.Raw, &obj); err != nil {
		return domain.PaymentEvent{}, fmt.Errorf("%w: decode %s object: %v", ErrVerification, event.Type, err)
	}

	out.PaymentRef = obj.ID
	out.OrderID = obj.Metadata[metadataOrderID]

	switch event.Type {
	case eventPaymentIntentSucceeded:
		out.Type = domain.PaymentEventSucceeded
	case eventCheckoutSessionCompleted:
		// Delayed payment methods complete the session before funds arrive.
		if obj.PaymentStatus == sessionPaid {
			out.Type = domain.PaymentEventSucceeded
		}
		if out.OrderID == "" {
			out.OrderID = obj.ClientReferenceID
		}
	}
	return out, nil
}
