package app

import "github.com/google/uuid"

func newOrderID() string {
	return uuid.NewString()
}

// validOrderID reports whether id could have been issued by newOrderID.
func validOrderID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
