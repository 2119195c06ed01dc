package http

import (
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/cimillas/ticket-site/internal/catalog"
	"github.com/cimillas/ticket-site/internal/clock"
	"github.com/cimillas/ticket-site/internal/domain"
)

// EventLister is the minimal catalog view needed by the event pages.
type EventLister interface {
	Lookup(id string) (domain.Event, error)
	Events() []domain.Event
	Upcoming(now time.Time) (domain.Event, bool)
}

type indexPage struct {
	Next *domain.Event
}

// HandleIndex renders the landing page with the next scheduled event.
func HandleIndex(events EventLister, clk clock.Clock, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var data indexPage
		if next, ok := events.Upcoming(clk.Now()); ok {
			data.Next = &next
		}
		renderPage(w, r, logger, http.StatusOK, "index", data)
	}
}

type historyEntry struct {
	domain.Event
	Description template.HTML
}

type historyPage struct {
	Events []historyEntry
}

// HandleHistory renders every catalog event with its markdown description.
func HandleHistory(events EventLister, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list := events.Events()
		data := historyPage{Events: make([]historyEntry, 0, len(list))}
		for _, ev := range list {
			html, err := catalog.RenderDescription(ev.Description)
			if err != nil {
				logger.WarnContext(r.Context(), "render event description", "event_id", ev.ID, "error", err)
				html = ""
			}
			// Raw HTML in descriptions is omitted by the markdown renderer.
			data.Events = append(data.Events, historyEntry{Event: ev, Description: template.HTML(html)})
		}
		renderPage(w, r, logger, http.StatusOK, "history", data)
	}
}

type eventResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	StartsAt    time.Time `json:"starts_at"`
	Venue       string    `json:"venue,omitempty"`
	UnitPrice   int64     `json:"unit_price"`
	Currency    string    `json:"currency"`
	Description string    `json:"description,omitempty"`
}

// HandleAPIHistory lists the catalog as JSON.
func HandleAPIHistory(events EventLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list := events.Events()
		resp := make([]eventResponse, 0, len(list))
		for _, ev := range list {
			resp = append(resp, eventResponse{
				ID:          ev.ID,
				Name:        ev.Name,
				StartsAt:    ev.StartsAt,
				Venue:       ev.Venue,
				UnitPrice:   ev.UnitPrice,
				Currency:    ev.Currency,
				Description: ev.Description,
			})
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
