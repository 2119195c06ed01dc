package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/cimillas/ticket-site/internal/clock"
	"github.com/cimillas/ticket-site/internal/metrics"
)

// RouterDeps are the collaborators served by NewRouter.
type RouterDeps struct {
	Events        EventLister
	Purchases     Purchaser
	Confirmations OrderConfirmer
	Verifier      PaymentVerifier
	Reconciler    PaymentReconciler
	Store         Pinger
	Metrics       *metrics.Registry
	Clock         clock.Clock
	Logger        *slog.Logger
	CORSOrigins   []string
}

// NewRouter mounts the site pages, the JSON API and the webhook endpoint.
func NewRouter(d RouterDeps) http.Handler {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Metrics == nil {
		d.Metrics = metrics.NewRegistry()
	}
	if d.Clock == nil {
		d.Clock = clock.NewSystem()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(d.Logger))
	r.Use(middleware.Recoverer)
	r.NotFound(NotFoundHandler().ServeHTTP)
	r.MethodNotAllowed(MethodNotAllowedHandler().ServeHTTP)

	r.Get("/", HandleIndex(d.Events, d.Clock, d.Logger))
	r.Get("/history", HandleHistory(d.Events, d.Logger))
	r.Get("/tickets", HandleTicketsForm(d.Events, d.Logger))
	r.Post("/tickets", HandleTicketsSubmit(d.Events, d.Purchases, d.Metrics, d.Logger))
	r.Get("/confirmation", HandleConfirmation(d.Confirmations, d.Logger))
	r.Post("/stripe-webhook", HandleStripeWebhook(d.Verifier, d.Reconciler, d.Metrics, d.Logger))
	r.Get("/health", HandleHealth(d.Store))
	r.Method(http.MethodGet, "/metrics", d.Metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(CORS(d.CORSOrigins))
		r.Get("/history", HandleAPIHistory(d.Events))
		r.Post("/purchase", HandleAPIPurchase(d.Purchases, d.Metrics, d.Logger))
		r.Get("/orders/{id}", HandleOrderStatus(d.Confirmations, d.Logger))
	})

	return r
}
