package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/cimillas/ticket-site/internal/clock"
	"github.com/cimillas/ticket-site/internal/domain"
)

type PaymentRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	GetOrderForUpdate(ctx context.Context, id string) (domain.Order, error)
	UpdateStatus(ctx context.Context, id string, from, to domain.PaymentStatus, paymentRef string, at time.Time) (bool, error)
}

// PaymentNotifier tells the buyer their order was paid.
type PaymentNotifier interface {
	NotifyOrderPaid(ctx context.Context, order domain.Order, event domain.Event) error
}

type ReconcileOutcome string

const (
	OutcomePaid         ReconcileOutcome = "paid"
	OutcomeAlreadyPaid  ReconcileOutcome = "already_paid"
	OutcomeUnknownOrder ReconcileOutcome = "unknown_order"
	OutcomeIgnored      ReconcileOutcome = "ignored"
)

// Reconciler applies verified payment events to orders.
type Reconciler struct {
	repo     PaymentRepository
	events   EventCatalog
	notifier PaymentNotifier
	clock    clock.Clock
	logger   *slog.Logger
}

func NewReconciler(repo PaymentRepository, events EventCatalog, notifier PaymentNotifier, clk clock.Clock, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{
		repo:     repo,
		events:   events,
		notifier: notifier,
		clock:    clk,
		logger:   logger,
	}
}

// Reconcile marks the referenced order paid when ev reports a successful
// payment. Unknown orders, already-paid orders and other event types are
// acknowledged without change. Only store failures are returned as errors.
func (r *Reconciler) Reconcile(ctx context.Context, ev domain.PaymentEvent) (ReconcileOutcome, error) {
	if ev.Type != domain.PaymentEventSucceeded {
		r.logger.InfoContext(ctx, "payment event ignored", "event_id", ev.ID, "event_type", ev.RawType)
		return OutcomeIgnored, nil
	}
	if ev.OrderID == "" || !validOrderID(ev.OrderID) {
		r.logger.WarnContext(ctx, "payment event without usable order id", "event_id", ev.ID, "order_id", ev.OrderID)
		return OutcomeUnknownOrder, nil
	}

	now := r.clock.Now()
	outcome := OutcomeIgnored
	var paid domain.Order

	err := r.repo.WithTx(ctx, func(txCtx context.Context) error {
		order, err := r.repo.GetOrderForUpdate(txCtx, ev.OrderID)
		if err != nil {
			if err == domain.ErrOrderNotFound || err == domain.ErrInvalidID {
				outcome = OutcomeUnknownOrder
				return nil
			}
			return err
		}
		if order.Paid() {
			outcome = OutcomeAlreadyPaid
			return nil
		}

		changed, err := r.repo.UpdateStatus(txCtx, order.ID, domain.PaymentStatusPending, domain.PaymentStatusSucceeded, ev.PaymentRef, now)
		if err != nil {
			return err
		}
		if !changed {
			// A concurrent delivery won the compare-and-set.
			outcome = OutcomeAlreadyPaid
			return nil
		}

		order.Status = domain.PaymentStatusSucceeded
		order.PaymentRef = ev.PaymentRef
		order.PaidAt = &now
		paid = order
		outcome = OutcomePaid
		return nil
	})
	if err != nil {
		return "", err
	}

	switch outcome {
	case OutcomePaid:
		r.logger.InfoContext(ctx, "order paid", "order_id", paid.ID, "event_id", ev.ID, "amount", paid.Amount)
		r.notify(ctx, paid)
	case OutcomeAlreadyPaid:
		r.logger.InfoContext(ctx, "duplicate payment event", "order_id", ev.OrderID, "event_id", ev.ID)
	case OutcomeUnknownOrder:
		r.logger.WarnContext(ctx, "payment event for unknown order", "order_id", ev.OrderID, "event_id", ev.ID)
	}
	return outcome, nil
}

func (r *Reconciler) notify(ctx context.Context, order domain.Order) {
	if r.notifier == nil {
		return
	}
	event, err := r.events.Lookup(order.EventID)
	if err != nil {
		event = domain.Event{ID: order.EventID, Name: order.EventID}
	}
	if err := r.notifier.NotifyOrderPaid(ctx, order, event); err != nil {
		r.logger.ErrorContext(ctx, "confirmation email not sent", "order_id", order.ID, "error", err)
	}
}
