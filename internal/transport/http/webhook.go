package http

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/cimillas/ticket-site/internal/app"
	"github.com/cimillas/ticket-site/internal/domain"
	"github.com/cimillas/ticket-site/internal/metrics"
	"github.com/cimillas/ticket-site/internal/payment"
)

const maxWebhookBody = 65536

// PaymentVerifier authenticates a raw webhook delivery.
type PaymentVerifier interface {
	Verify(payload []byte, signature string) (domain.PaymentEvent, error)
}

// PaymentReconciler applies a verified payment event.
type PaymentReconciler interface {
	Reconcile(ctx context.Context, ev domain.PaymentEvent) (app.ReconcileOutcome, error)
}

// HandleStripeWebhook verifies and applies payment processor events. It
// answers 400 when verification fails, 500 when the store fails so the
// processor retries, and 200 otherwise.
func HandleStripeWebhook(verifier PaymentVerifier, reconciler PaymentReconciler, m *metrics.Registry, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
		if err != nil {
			m.WebhookRejected.Inc()
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}

		ev, err := verifier.Verify(payload, r.Header.Get(payment.SignatureHeader))
		if err != nil {
			m.WebhookRejected.Inc()
			logger.WarnContext(r.Context(), "webhook rejected", "error", err)
			writeError(w, http.StatusBadRequest, codeInvalidSignature, "invalid signature")
			return
		}

		outcome, err := reconciler.Reconcile(r.Context(), ev)
		if err != nil {
			m.WebhookFailed.Inc()
			logger.ErrorContext(r.Context(), "reconcile payment event", "event_id", ev.ID, "order_id", ev.OrderID, "error", err)
			writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
			return
		}

		m.WebhookEvents.WithLabelValues(string(outcome)).Inc()
		writeJSON(w, http.StatusOK, map[string]bool{"received": true})
	}
}
