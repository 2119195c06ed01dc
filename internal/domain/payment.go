package domain

type PaymentEventType int

const (
	PaymentEventOther PaymentEventType = iota
	PaymentEventSucceeded
)

// PaymentEvent is a verified notification from the payment processor,
// reduced to what reconciliation needs.
type PaymentEvent struct {
	ID         string
	Type       PaymentEventType
	RawType    string
	OrderID    string
	PaymentRef string
}
