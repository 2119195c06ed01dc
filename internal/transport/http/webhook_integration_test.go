package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stripe/stripe-go/v79/webhook"

	"github.com/cimillas/ticket-site/internal/app"
	"github.com/cimillas/ticket-site/internal/clock"
	"github.com/cimillas/ticket-site/internal/domain"
	"github.com/cimillas/ticket-site/internal/mail"
	"github.com/cimillas/ticket-site/internal/payment"
	"github.com/cimillas/ticket-site/internal/storage/postgres"
	"github.com/cimillas/ticket-site/internal/testutil"
)

func TestStripeWebhook_HTTPIntegration(t *testing.T) {
	pool := testutil.NewTestPool(t)
	testutil.ApplyMigrations(t, context.Background(), pool)
	repo := postgres.NewOrderRepository(pool)

	ctx := context.Background()
	testutil.TruncateAll(t, ctx, pool)
	orderID := testutil.InsertOrder(t, ctx, pool, domain.Order{
		EventID:   "spring-jazz",
		Name:      "Ana",
		Email:     "ana@x.com",
		Quantity:  2,
		UnitPrice: 3000,
		Status:    domain.PaymentStatusPending,
	})

	events := testEvents(t)
	sender := &countingSender{}
	clk := clock.NewSystem()
	handler := HandleStripeWebhook(
		payment.NewVerifier(flowSecret, 0),
		app.NewReconciler(repo, events, mail.NewConfirmationNotifier(sender), clk, discardLogger()),
		newStubDeps().metrics,
		discardLogger(),
	)

	deliver := func(secret string) int {
		payload := succeededPayload(orderID)
		signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
			Payload:   []byte(payload),
			Secret:    secret,
			Timestamp: time.Now(),
		})
		req := httptest.NewRequest(http.MethodPost, "/stripe-webhook", strings.NewReader(payload))
		req.Header.Set(payment.SignatureHeader, signed.Header)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	if code := deliver("whsec_wrong"); code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", code)
	}
	if status := testutil.OrderStatus(t, ctx, pool, orderID); status != domain.PaymentStatusPending {
		t.Fatalf("expected pending after rejected delivery, got %s", status)
	}

	if code := deliver(flowSecret); code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", code)
	}
	if code := deliver(flowSecret); code != http.StatusOK {
		t.Fatalf("expected duplicate status 200, got %d", code)
	}

	if status := testutil.OrderStatus(t, ctx, pool, orderID); status != domain.PaymentStatusSucceeded {
		t.Fatalf("expected succeeded, got %s", status)
	}
	if got := sender.count(); got != 1 {
		t.Fatalf("expected one confirmation email, got %d", got)
	}
}
