package app

import (
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/cimillas/ticket-site/internal/domain"
)

const maxNameLength = 200

// EventCatalog resolves event identifiers to catalog entries.
type EventCatalog interface {
	Lookup(id string) (domain.Event, error)
}

type PurchaseInput struct {
	EventID  string
	Name     string
	Email    string
	Quantity int
}

// Normalize trims surrounding whitespace from the text fields.
func (in PurchaseInput) Normalize() PurchaseInput {
	in.EventID = strings.TrimSpace(in.EventID)
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	return in
}

// ValidatePurchase checks a normalized purchase request. It returns nil or a
// *domain.ValidationError listing every rejected field.
func ValidatePurchase(in PurchaseInput, events EventCatalog) error {
	verr := &domain.ValidationError{}

	switch {
	case in.Name == "":
		verr.Add("name", "name is required")
	case !utf8.ValidString(in.Name) || strings.ContainsRune(in.Name, 0):
		verr.Add("name", "name contains invalid characters")
	case len(in.Name) > maxNameLength:
		verr.Add("name", "name is too long")
	}

	if in.Email == "" {
		verr.Add("email", "email is required")
	} else if !validEmail(in.Email) {
		verr.Add("email", "email is not a valid address")
	}

	if in.Quantity < domain.MinQuantity || in.Quantity > domain.MaxQuantity {
		verr.Add("quantity", "quantity must be a whole number between 1 and 10")
	}

	if in.EventID == "" {
		verr.Add("event_id", "event is required")
	} else if _, err := events.Lookup(in.EventID); err != nil {
		verr.Add("event_id", "unknown event")
	}

	return verr.Err()
}

func validEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s {
		return false
	}
	at := strings.LastIndexByte(s, '@')
	return at > 0 && strings.Contains(s[at+1:], ".")
}
