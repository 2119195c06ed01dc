package postgres

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/cimillas/ticket-site/internal/domain"
	"github.com/cimillas/ticket-site/internal/testutil"
	"github.com/google/uuid"
)

func TestOrderRepository(t *testing.T) {
	pool := testutil.NewTestPool(t)
	repo := NewOrderRepository(pool)
	testutil.ApplyMigrations(t, context.Background(), pool)

	t.Run("CreateOrder persists and GetOrder returns it", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)

		order := domain.Order{
			ID:        uuid.NewString(),
			EventID:   "spring-jazz",
			Name:      "Ana",
			Email:     "ana@x.com",
			Quantity:  2,
			UnitPrice: 3000,
			Amount:    6000,
			Currency:  "eur",
			Status:    domain.PaymentStatusPending,
			CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
		}
		if err := repo.CreateOrder(ctx, order); err != nil {
			t.Fatalf("create order: %v", err)
		}

		got, err := repo.GetOrder(ctx, order.ID)
		if err != nil {
			t.Fatalf("get order: %v", err)
		}
		if got.ID != order.ID || got.Amount != 6000 || got.Status != domain.PaymentStatusPending {
			t.Fatalf("unexpected order: %+v", got)
		}
		if !got.CreatedAt.Equal(order.CreatedAt) {
			t.Fatalf("expected created_at %s, got %s", order.CreatedAt, got.CreatedAt)
		}
		if got.PaidAt != nil {
			t.Fatalf("expected nil paid_at, got %v", got.PaidAt)
		}

		if err := repo.CreateOrder(ctx, order); err != ErrDuplicateOrder {
			t.Fatalf("expected ErrDuplicateOrder, got %v", err)
		}
	})

	t.Run("GetOrder returns ErrOrderNotFound or ErrInvalidID", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)

		_, err := repo.GetOrder(ctx, "00000000-0000-0000-0000-000000000001")
		if err != domain.ErrOrderNotFound {
			t.Fatalf("expected ErrOrderNotFound, got %v", err)
		}

		_, err = repo.GetOrder(ctx, "not-a-uuid")
		if err != domain.ErrInvalidID {
			t.Fatalf("expected ErrInvalidID, got %v", err)
		}
	})

	t.Run("UpdateStatus is a compare-and-set", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)
		id := testutil.InsertOrder(t, ctx, pool, domain.Order{
			EventID:   "spring-jazz",
			Name:      "Ana",
			Email:     "ana@x.com",
			Quantity:  1,
			UnitPrice: 3000,
			Status:    domain.PaymentStatusPending,
		})

		err := repo.WithTx(ctx, func(txCtx context.Context) error {
			order, err := repo.GetOrderForUpdate(txCtx, id)
			if err != nil {
				return err
			}
			if order.Paid() {
				t.Fatalf("expected pending order")
			}
			changed, err := repo.UpdateStatus(txCtx, id, domain.PaymentStatusPending, domain.PaymentStatusSucceeded, "pi_1", time.Now())
			if err != nil {
				return err
			}
			if !changed {
				t.Fatalf("expected status change")
			}
			return nil
		})
		if err != nil {
			t.Fatalf("tx failed: %v", err)
		}

		changed, err := repo.UpdateStatus(ctx, id, domain.PaymentStatusPending, domain.PaymentStatusSucceeded, "pi_2", time.Now())
		if err != nil {
			t.Fatalf("second update: %v", err)
		}
		if changed {
			t.Fatalf("expected no change on second update")
		}
		if status := testutil.OrderStatus(t, ctx, pool, id); status != domain.PaymentStatusSucceeded {
			t.Fatalf("expected status succeeded, got %s", status)
		}
	})

	t.Run("succeeded status cannot revert", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)
		id := testutil.InsertOrder(t, ctx, pool, domain.Order{
			EventID:   "spring-jazz",
			Name:      "Ana",
			Email:     "ana@x.com",
			Quantity:  1,
			UnitPrice: 3000,
			Status:    domain.PaymentStatusSucceeded,
		})

		if _, err := repo.UpdateStatus(ctx, id, domain.PaymentStatusSucceeded, domain.PaymentStatusPending, "", time.Now()); err == nil {
			t.Fatalf("expected guard trigger to reject revert")
		}
	})

	t.Run("concurrent transitions apply once", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)
		id := testutil.InsertOrder(t, ctx, pool, domain.Order{
			EventID:   "spring-jazz",
			Name:      "Ana",
			Email:     "ana@x.com",
			Quantity:  3,
			UnitPrice: 3000,
			Status:    domain.PaymentStatusPending,
		})

		var (
			wg      sync.WaitGroup
			mu      sync.Mutex
			applied int
		)
		for i := 0; i < 4; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				err := repo.WithTx(ctx, func(txCtx context.Context) error {
					order, err := repo.GetOrderForUpdate(txCtx, id)
					if err != nil || order.Paid() {
						return err
					}
					changed, err := repo.UpdateStatus(txCtx, id, domain.PaymentStatusPending, domain.PaymentStatusSucceeded, "pi", time.Now())
					if changed {
						mu.Lock()
						applied++
						mu.Unlock()
					}
					return err
				})
				if err != nil {
					t.Errorf("tx: %v", err)
				}
			}()
		}
		wg.Wait()

		if applied != 1 {
			t.Fatalf("expected exactly one transition, got %d", applied)
		}
	})
}
