package domain

import "time"

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusSucceeded PaymentStatus = "succeeded"
)

const (
	MinQuantity = 1
	MaxQuantity = 10
)

// Order represents a ticket purchase. Amount is fixed at creation.
type Order struct {
	ID         string
	EventID    string
	Name       string
	Email      string
	Quantity   int
	UnitPrice  int64
	Amount     int64
	Currency   string
	Status     PaymentStatus
	PaymentRef string
	CreatedAt  time.Time
	PaidAt     *time.Time
}

func (o Order) Paid() bool {
	return o.Status == PaymentStatusSucceeded
}
