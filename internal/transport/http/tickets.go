package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/cimillas/ticket-site/internal/app"
	"github.com/cimillas/ticket-site/internal/domain"
	"github.com/cimillas/ticket-site/internal/metrics"
)

const (
	noticePaymentIncomplete = "Invalid order or payment not completed."
	noticeCheckoutFailed    = "We could not start the payment. Your order is saved; please try again shortly."
)

// Purchaser is the minimal interface needed to accept a purchase.
type Purchaser interface {
	Purchase(ctx context.Context, in app.PurchaseInput) (app.PurchaseResult, error)
}

type ticketsForm struct {
	EventID  string
	Name     string
	Email    string
	Quantity string
}

type ticketsPage struct {
	Events         []domain.Event
	Form           ticketsForm
	Errors         *domain.ValidationError
	Notice         string
	PendingOrderID string
}

func newTicketsPage(events EventLister) ticketsPage {
	return ticketsPage{
		Events: events.Events(),
		Form:   ticketsForm{Quantity: "1"},
		Errors: &domain.ValidationError{},
	}
}

// HandleTicketsForm renders the purchase form. The confirmation page sends
// buyers back here with a notice when their order is not paid yet.
func HandleTicketsForm(events EventLister, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		data := newTicketsPage(events)
		data.Form.EventID = q.Get("event_id")
		if q.Get("notice") == "payment_incomplete" {
			data.Notice = noticePaymentIncomplete
			data.PendingOrderID = q.Get("order_id")
		}
		renderPage(w, r, logger, http.StatusOK, "tickets", data)
	}
}

// HandleTicketsSubmit accepts the HTML purchase form. Invalid input re-renders
// the form with 422; a stored order redirects to checkout or confirmation.
func HandleTicketsSubmit(events EventLister, svc Purchaser, m *metrics.Registry, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "invalid form", http.StatusBadRequest)
			return
		}
		form := ticketsForm{
			EventID:  r.PostForm.Get("event_id"),
			Name:     r.PostForm.Get("name"),
			Email:    r.PostForm.Get("email"),
			Quantity: r.PostForm.Get("quantity"),
		}
		// A non-numeric quantity becomes 0 and fails range validation.
		quantity, _ := strconv.Atoi(strings.TrimSpace(form.Quantity))

		res, err := svc.Purchase(r.Context(), app.PurchaseInput{
			EventID:  form.EventID,
			Name:     form.Name,
			Email:    form.Email,
			Quantity: quantity,
		})

		var verr *domain.ValidationError
		switch {
		case err == nil:
		case errors.As(err, &verr):
			m.PurchaseInvalid.Inc()
			data := newTicketsPage(events)
			data.Form = form
			data.Errors = verr
			renderPage(w, r, logger, http.StatusUnprocessableEntity, "tickets", data)
			return
		case res.Order.ID != "":
			m.OrdersCreated.Inc()
			logger.ErrorContext(r.Context(), "checkout failed", "order_id", res.Order.ID, "error", err)
			data := newTicketsPage(events)
			data.Form = form
			data.Errors.Add("form", noticeCheckoutFailed)
			renderPage(w, r, logger, http.StatusBadGateway, "tickets", data)
			return
		default:
			logger.ErrorContext(r.Context(), "create order", "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		m.OrdersCreated.Inc()
		logger.InfoContext(r.Context(), "order created",
			"order_id", res.Order.ID,
			"event_id", res.Order.EventID,
			"quantity", res.Order.Quantity,
			"amount", res.Order.Amount,
		)
		target := res.CheckoutURL
		if target == "" {
			target = confirmationURL(res.Order.ID)
		}
		http.Redirect(w, r, target, http.StatusSeeOther)
	}
}

type purchaseRequest struct {
	EventID  string `json:"event_id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Quantity int    `json:"quantity"`
}

type purchaseResponse struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	Amount      int64  `json:"amount"`
	Currency    string `json:"currency"`
	CheckoutURL string `json:"checkout_url,omitempty"`
}

// HandleAPIPurchase accepts a JSON purchase and answers 201 with the order.
func HandleAPIPurchase(svc Purchaser, m *metrics.Registry, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req purchaseRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}

		res, err := svc.Purchase(r.Context(), app.PurchaseInput{
			EventID:  req.EventID,
			Name:     req.Name,
			Email:    req.Email,
			Quantity: req.Quantity,
		})

		var verr *domain.ValidationError
		switch {
		case err == nil:
		case errors.As(err, &verr):
			m.PurchaseInvalid.Inc()
			writeValidationError(w, verr)
			return
		case res.Order.ID != "":
			m.OrdersCreated.Inc()
			logger.ErrorContext(r.Context(), "checkout failed", "order_id", res.Order.ID, "error", err)
			writeError(w, http.StatusBadGateway, codeCheckoutUnavailable, "checkout unavailable")
			return
		default:
			logger.ErrorContext(r.Context(), "create order", "error", err)
			writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
			return
		}

		m.OrdersCreated.Inc()
		logger.InfoContext(r.Context(), "order created",
			"order_id", res.Order.ID,
			"event_id", res.Order.EventID,
			"quantity", res.Order.Quantity,
			"amount", res.Order.Amount,
		)
		writeJSON(w, http.StatusCreated, purchaseResponse{
			ID:          res.Order.ID,
			Status:      string(res.Order.Status),
			Amount:      res.Order.Amount,
			Currency:    res.Order.Currency,
			CheckoutURL: res.CheckoutURL,
		})
	}
}
