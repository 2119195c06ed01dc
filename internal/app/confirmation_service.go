package app

import (
	"context"

	"github.com/cimillas/ticket-site/internal/domain"
)

type OrderGetter interface {
	GetOrder(ctx context.Context, id string) (domain.Order, error)
}

type ConfirmationService struct {
	repo   OrderGetter
	events EventCatalog
}

func NewConfirmationService(repo OrderGetter, events EventCatalog) *ConfirmationService {
	return &ConfirmationService{
		repo:   repo,
		events: events,
	}
}

// Confirmation carries what the receipt page shows for a paid order.
type Confirmation struct {
	Order     domain.Order
	EventName string
	Event     domain.Event
}

// Status returns the order with the given id. Malformed ids are reported as
// domain.ErrOrderNotFound.
func (s *ConfirmationService) Status(ctx context.Context, orderID string) (domain.Order, error) {
	if !validOrderID(orderID) {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	order, err := s.repo.GetOrder(ctx, orderID)
	if err == domain.ErrInvalidID {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return order, err
}

// Confirm returns receipt details for a paid order. Pending orders yield
// domain.ErrPaymentNotCompleted and never expose their details.
func (s *ConfirmationService) Confirm(ctx context.Context, orderID string) (Confirmation, error) {
	order, err := s.Status(ctx, orderID)
	if err != nil {
		return Confirmation{}, err
	}
	if !order.Paid() {
		return Confirmation{}, domain.ErrPaymentNotCompleted
	}

	c := Confirmation{Order: order, EventName: order.EventID}
	if event, err := s.events.Lookup(order.EventID); err == nil {
		c.Event = event
		c.EventName = event.Name
	}
	return c, nil
}
