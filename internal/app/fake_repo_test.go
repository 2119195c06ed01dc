package app

import (
	"context"
	"sync"
	"time"

	"github.com/cimillas/ticket-site/internal/catalog"
	"github.com/cimillas/ticket-site/internal/domain"
)

type fakeOrderRepo struct {
	mu      sync.Mutex
	orders  map[string]domain.Order
	updates int
}

func newFakeOrderRepo(orders ...domain.Order) *fakeOrderRepo {
	f := &fakeOrderRepo{orders: make(map[string]domain.Order)}
	for _, o := range orders {
		f.orders[o.ID] = o
	}
	return f
}

func (f *fakeOrderRepo) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (f *fakeOrderRepo) CreateOrder(_ context.Context, order domain.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orders[order.ID] = order
	return nil
}

func (f *fakeOrderRepo) GetOrder(_ context.Context, id string) (domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.orders[id]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return order, nil
}

func (f *fakeOrderRepo) GetOrderForUpdate(ctx context.Context, id string) (domain.Order, error) {
	return f.GetOrder(ctx, id)
}

func (f *fakeOrderRepo) UpdateStatus(_ context.Context, id string, from, to domain.PaymentStatus, ref string, at time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.orders[id]
	if !ok || order.Status != from {
		return false, nil
	}
	order.Status = to
	order.PaymentRef = ref
	order.PaidAt = &at
	f.orders[id] = order
	f.updates++
	return true, nil
}

func testCatalog() *catalog.Catalog {
	c, err := catalog.New([]domain.Event{
		{
			ID:        "spring-jazz",
			Name:      "Spring Jazz Night",
			StartsAt:  time.Date(2026, 4, 18, 19, 30, 0, 0, time.UTC),
			UnitPrice: 3000,
			Currency:  "eur",
		},
		{
			ID:        "winter-gala",
			Name:      "Winter Gala",
			StartsAt:  time.Date(2026, 12, 25, 19, 30, 0, 0, time.UTC),
			UnitPrice: 6000,
		},
	})
	if err != nil {
		panic(err)
	}
	return c
}
