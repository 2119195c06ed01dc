// Package catalog holds the read-only list of events tickets are sold for.
//
// The catalog is loaded once at startup from a JSON (comments allowed) or
// YAML file and is never mutated by requests.
package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/cimillas/ticket-site/internal/domain"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

const defaultCurrency = "eur"

// maxUnitPrice keeps quantity * unit price within int64 for any allowed quantity.
const maxUnitPrice = math.MaxInt64 / domain.MaxQuantity

// Catalog is an immutable, time-ordered set of events.
type Catalog struct {
	events []domain.Event
	byID   map[string]domain.Event
}

type entry struct {
	ID          string `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	StartsAt    string `json:"starts_at" yaml:"starts_at"`
	Venue       string `json:"venue" yaml:"venue"`
	UnitPrice   int64  `json:"unit_price" yaml:"unit_price"`
	Currency    string `json:"currency" yaml:"currency"`
	Description string `json:"description" yaml:"description"`
}

// Load reads the catalog file at path. The format is picked by extension:
// .yaml/.yml are YAML, anything else is JSON with comments.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}

	var entries []entry
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &entries); err != nil {
			return nil, fmt.Errorf("parse catalog %s: %w", path, err)
		}
	default:
		dec := json.NewDecoder(bytes.NewReader(jsonc.ToJSON(data)))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&entries); err != nil {
			return nil, fmt.Errorf("parse catalog %s: %w", path, err)
		}
	}

	events := make([]domain.Event, 0, len(entries))
	for i, e := range entries {
		startsAt, err := time.Parse(time.RFC3339, e.StartsAt)
		if err != nil {
			return nil, fmt.Errorf("catalog entry %d (%q): invalid starts_at: %w", i, e.ID, err)
		}
		events = append(events, domain.Event{
			ID:          strings.TrimSpace(e.ID),
			Name:        strings.TrimSpace(e.Name),
			StartsAt:    startsAt.UTC(),
			Venue:       e.Venue,
			UnitPrice:   e.UnitPrice,
			Currency:    e.Currency,
			Description: e.Description,
		})
	}
	return New(events)
}

// New builds a catalog from events after validating them.
func New(events []domain.Event) (*Catalog, error) {
	c := &Catalog{
		events: make([]domain.Event, 0, len(events)),
		byID:   make(map[string]domain.Event, len(events)),
	}
	for _, ev := range events {
		if ev.ID == "" {
			return nil, fmt.Errorf("catalog: event with empty id")
		}
		if _, dup := c.byID[ev.ID]; dup {
			return nil, fmt.Errorf("catalog: duplicate event id %q", ev.ID)
		}
		if ev.Name == "" {
			return nil, fmt.Errorf("catalog: event %q has no name", ev.ID)
		}
		if ev.UnitPrice <= 0 {
			return nil, fmt.Errorf("catalog: event %q has non-positive unit price", ev.ID)
		}
		if ev.UnitPrice > maxUnitPrice {
			return nil, fmt.Errorf("catalog: event %q unit price exceeds %d", ev.ID, maxUnitPrice)
		}
		if ev.Currency == "" {
			ev.Currency = defaultCurrency
		}
		ev.Currency = strings.ToLower(ev.Currency)
		c.byID[ev.ID] = ev
		c.events = append(c.events, ev)
	}
	sort.SliceStable(c.events, func(i, j int) bool {
		return c.events[i].StartsAt.Before(c.events[j].StartsAt)
	})
	return c, nil
}

// Lookup returns the event with the given id or domain.ErrEventNotFound.
func (c *Catalog) Lookup(id string) (domain.Event, error) {
	ev, ok := c.byID[id]
	if !ok {
		return domain.Event{}, domain.ErrEventNotFound
	}
	return ev, nil
}

// Events returns all events ordered by start time.
func (c *Catalog) Events() []domain.Event {
	out := make([]domain.Event, len(c.events))
	copy(out, c.events)
	return out
}

// Upcoming returns the first event starting after now.
func (c *Catalog) Upcoming(now time.Time) (domain.Event, bool) {
	for _, ev := range c.events {
		if ev.StartsAt.After(now) {
			return ev, true
		}
	}
	return domain.Event{}, false
}
