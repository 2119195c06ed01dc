package http

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/cimillas/ticket-site/internal/app"
	"github.com/cimillas/ticket-site/internal/domain"
)

// OrderConfirmer is the minimal interface needed by the confirmation routes.
type OrderConfirmer interface {
	Status(ctx context.Context, orderID string) (domain.Order, error)
	Confirm(ctx context.Context, orderID string) (app.Confirmation, error)
}

func confirmationURL(orderID string) string {
	return "/confirmation?order_id=" + url.QueryEscape(orderID)
}

func incompleteURL(orderID string) string {
	v := url.Values{}
	v.Set("notice", "payment_incomplete")
	if orderID != "" {
		v.Set("order_id", orderID)
	}
	return "/tickets?" + v.Encode()
}

// HandleConfirmation renders the receipt for a paid order. Unknown and unpaid
// orders are redirected to the purchase form with a notice.
func HandleConfirmation(svc OrderConfirmer, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID := r.URL.Query().Get("order_id")

		c, err := svc.Confirm(r.Context(), orderID)
		switch err {
		case nil:
			renderPage(w, r, logger, http.StatusOK, "confirmation", c)
		case domain.ErrPaymentNotCompleted:
			http.Redirect(w, r, incompleteURL(orderID), http.StatusSeeOther)
		case domain.ErrOrderNotFound:
			http.Redirect(w, r, incompleteURL(""), http.StatusSeeOther)
		default:
			logger.ErrorContext(r.Context(), "load confirmation", "order_id", orderID, "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
		}
	}
}

type orderStatusResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// HandleOrderStatus exposes only an order's payment status, for polling.
func HandleOrderStatus(svc OrderConfirmer, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID := chi.URLParam(r, "id")

		order, err := svc.Status(r.Context(), orderID)
		switch err {
		case nil:
			writeJSON(w, http.StatusOK, orderStatusResponse{ID: order.ID, Status: string(order.Status)})
		case domain.ErrOrderNotFound:
			writeError(w, http.StatusNotFound, codeOrderNotFound, err.Error())
		default:
			logger.ErrorContext(r.Context(), "load order status", "order_id", orderID, "error", err)
			writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
		}
	}
}
