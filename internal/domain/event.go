package domain

import "time"

// Event represents a catalog entry tickets can be bought for.
type Event struct {
	ID          string
	Name        string
	StartsAt    time.Time
	Venue       string
	UnitPrice   int64
	Currency    string
	Description string
}
