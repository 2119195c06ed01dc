package http

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/cimillas/ticket-site/internal/app"
	"github.com/cimillas/ticket-site/internal/catalog"
	"github.com/cimillas/ticket-site/internal/clock"
	"github.com/cimillas/ticket-site/internal/domain"
	"github.com/cimillas/ticket-site/internal/metrics"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func testEvents(t *testing.T) *catalog.Catalog {
	t.Helper()
	c, err := catalog.New([]domain.Event{
		{
			ID:          "spring-jazz",
			Name:        "Spring Jazz Night",
			StartsAt:    time.Date(2026, 4, 18, 19, 30, 0, 0, time.UTC),
			Venue:       "Main Hall",
			UnitPrice:   3000,
			Currency:    "eur",
			Description: "An evening of **live jazz**.",
		},
		{
			ID:        "winter-gala",
			Name:      "Winter Gala",
			StartsAt:  time.Date(2026, 12, 25, 19, 30, 0, 0, time.UTC),
			UnitPrice: 6000,
			Currency:  "eur",
		},
	})
	if err != nil {
		t.Fatalf("build catalog: %v", err)
	}
	return c
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type stubPurchaser struct {
	result app.PurchaseResult
	err    error
	got    app.PurchaseInput
	calls  int
}

func (s *stubPurchaser) Purchase(_ context.Context, in app.PurchaseInput) (app.PurchaseResult, error) {
	s.calls++
	s.got = in
	return s.result, s.err
}

type stubConfirmer struct {
	order        domain.Order
	statusErr    error
	confirmation app.Confirmation
	confirmErr   error
}

func (s *stubConfirmer) Status(context.Context, string) (domain.Order, error) {
	return s.order, s.statusErr
}

func (s *stubConfirmer) Confirm(context.Context, string) (app.Confirmation, error) {
	return s.confirmation, s.confirmErr
}

type stubVerifier struct {
	event domain.PaymentEvent
	err   error
}

func (s *stubVerifier) Verify([]byte, string) (domain.PaymentEvent, error) {
	return s.event, s.err
}

type stubReconciler struct {
	outcome app.ReconcileOutcome
	err     error
	calls   int
}

func (s *stubReconciler) Reconcile(context.Context, domain.PaymentEvent) (app.ReconcileOutcome, error) {
	s.calls++
	return s.outcome, s.err
}

type stubPinger struct{ err error }

func (s stubPinger) Ping(context.Context) error { return s.err }

type stubDeps struct {
	purchaser  *stubPurchaser
	confirmer  *stubConfirmer
	verifier   *stubVerifier
	reconciler *stubReconciler
	store      stubPinger
	metrics    *metrics.Registry
}

func newStubDeps() *stubDeps {
	return &stubDeps{
		purchaser:  &stubPurchaser{},
		confirmer:  &stubConfirmer{},
		verifier:   &stubVerifier{},
		reconciler: &stubReconciler{outcome: app.OutcomePaid},
		metrics:    metrics.NewRegistry(),
	}
}

func newTestRouter(t *testing.T, d *stubDeps) http.Handler {
	t.Helper()
	return NewRouter(RouterDeps{
		Events:        testEvents(t),
		Purchases:     d.purchaser,
		Confirmations: d.confirmer,
		Verifier:      d.verifier,
		Reconciler:    d.reconciler,
		Store:         d.store,
		Metrics:       d.metrics,
		Clock:         clock.NewFixed(testNow),
		Logger:        discardLogger(),
		CORSOrigins:   []string{"http://localhost:5173"},
	})
}
