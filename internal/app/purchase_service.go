package app

import (
	"context"
	"fmt"

	"github.com/cimillas/ticket-site/internal/clock"
	"github.com/cimillas/ticket-site/internal/domain"
)

type OrderCreator interface {
	CreateOrder(ctx context.Context, order domain.Order) error
}

// CheckoutStarter hands a pending order to the payment processor and returns
// the URL the buyer should be sent to.
type CheckoutStarter interface {
	StartCheckout(ctx context.Context, order domain.Order, event domain.Event) (string, error)
}

type PurchaseService struct {
	repo     OrderCreator
	events   EventCatalog
	clock    clock.Clock
	checkout CheckoutStarter
}

type PurchaseServiceOption func(*PurchaseService)

// WithCheckout enables hosted checkout for new orders.
func WithCheckout(c CheckoutStarter) PurchaseServiceOption {
	return func(s *PurchaseService) {
		s.checkout = c
	}
}

func NewPurchaseService(repo OrderCreator, events EventCatalog, clk clock.Clock, opts ...PurchaseServiceOption) *PurchaseService {
	svc := &PurchaseService{
		repo:   repo,
		events: events,
		clock:  clk,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

type PurchaseResult struct {
	Order       domain.Order
	Event       domain.Event
	CheckoutURL string
}

// Purchase validates the request and stores a pending order priced from the
// catalog. Nothing is stored when validation fails.
func (s *PurchaseService) Purchase(ctx context.Context, in PurchaseInput) (PurchaseResult, error) {
	in = in.Normalize()
	if err := ValidatePurchase(in, s.events); err != nil {
		return PurchaseResult{}, err
	}

	event, err := s.events.Lookup(in.EventID)
	if err != nil {
		return PurchaseResult{}, err
	}

	order := domain.Order{
		ID:        newOrderID(),
		EventID:   event.ID,
		Name:      in.Name,
		Email:     in.Email,
		Quantity:  in.Quantity,
		UnitPrice: event.UnitPrice,
		Amount:    int64(in.Quantity) * event.UnitPrice,
		Currency:  event.Currency,
		Status:    domain.PaymentStatusPending,
		CreatedAt: s.clock.Now(),
	}
	if err := s.repo.CreateOrder(ctx, order); err != nil {
		return PurchaseResult{}, err
	}

	result := PurchaseResult{Order: order, Event: event}
	if s.checkout != nil {
		url, err := s.checkout.StartCheckout(ctx, order, event)
		if err != nil {
			return result, fmt.Errorf("start checkout for order %s: %w", order.ID, err)
		}
		result.CheckoutURL = url
	}
	return result, nil
}
