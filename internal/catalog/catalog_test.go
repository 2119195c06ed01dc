package catalog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cimillas/ticket-site/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_JSONWithComments(t *testing.T) {
	path := writeFile(t, "events.json", `
// comment
[
	{"id": "b", "name": "Later", "starts_at": "2026-05-01T20:00:00Z", "unit_price": 1000},
	{"id": "a", "name": "Sooner", "starts_at": "2026-03-01T20:00:00+01:00", "unit_price": 3000, "currency": "USD"}, // trailing
]`)

	c, err := Load(path)
	require.NoError(t, err)

	events := c.Events()
	require.Len(t, events, 2)
	assert.Equal(t, "a", events[0].ID, "events are ordered by start time")
	assert.Equal(t, "usd", events[0].Currency)
	assert.Equal(t, defaultCurrency, events[1].Currency)
	assert.Equal(t, time.UTC, events[0].StartsAt.Location())

	ev, err := c.Lookup("b")
	require.NoError(t, err)
	assert.Equal(t, int64(1000), ev.UnitPrice)
}

func TestLoad_YAML(t *testing.T) {
	path := writeFile(t, "events.yaml", `
- id: spring-jazz
  name: Spring Jazz Night
  starts_at: "2026-04-18T19:30:00Z"
  unit_price: 3000
  description: "**jazz**"
`)

	c, err := Load(path)
	require.NoError(t, err)

	ev, err := c.Lookup("spring-jazz")
	require.NoError(t, err)
	assert.Equal(t, "Spring Jazz Night", ev.Name)
	assert.Equal(t, "**jazz**", ev.Description)
}

func TestLoad_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		content string
		substr  string
	}{
		{
			name:    "bad time",
			content: `[{"id":"a","name":"A","starts_at":"tomorrow","unit_price":1}]`,
			substr:  "invalid starts_at",
		},
		{
			name:    "duplicate id",
			content: `[{"id":"a","name":"A","starts_at":"2026-01-01T00:00:00Z","unit_price":1},{"id":"a","name":"B","starts_at":"2026-01-01T00:00:00Z","unit_price":1}]`,
			substr:  "duplicate event id",
		},
		{
			name:    "zero price",
			content: `[{"id":"a","name":"A","starts_at":"2026-01-01T00:00:00Z","unit_price":0}]`,
			substr:  "non-positive unit price",
		},
		{
			name:    "price overflows order total",
			content: `[{"id":"a","name":"A","starts_at":"2026-01-01T00:00:00Z","unit_price":9223372036854775807}]`,
			substr:  "unit price exceeds",
		},
		{
			name:    "unknown field",
			content: `[{"id":"a","name":"A","starts_at":"2026-01-01T00:00:00Z","unit_price":1,"capacity":10}]`,
			substr:  "unknown field",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, "events.json", tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.substr)
		})
	}
}

func TestCatalog_LookupMissing(t *testing.T) {
	c, err := New(nil)
	require.NoError(t, err)

	_, err = c.Lookup("nope")
	assert.ErrorIs(t, err, domain.ErrEventNotFound)
}

func TestCatalog_Upcoming(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c, err := New([]domain.Event{
		{ID: "past", Name: "Past", StartsAt: base.Add(-time.Hour), UnitPrice: 1},
		{ID: "next", Name: "Next", StartsAt: base.Add(time.Hour), UnitPrice: 1},
		{ID: "later", Name: "Later", StartsAt: base.Add(48 * time.Hour), UnitPrice: 1},
	})
	require.NoError(t, err)

	ev, ok := c.Upcoming(base)
	require.True(t, ok)
	assert.Equal(t, "next", ev.ID)

	_, ok = c.Upcoming(base.Add(72 * time.Hour))
	assert.False(t, ok)
}

func TestLoad_RepositoryCatalog(t *testing.T) {
	c, err := Load(filepath.Join("..", "..", "data", "events.json"))
	require.NoError(t, err)

	ev, err := c.Lookup("spring-jazz")
	require.NoError(t, err)
	assert.Equal(t, int64(3000), ev.UnitPrice)
}

func TestRenderDescription(t *testing.T) {
	out, err := RenderDescription("An evening of **jazz**.\n\n<script>alert(1)</script>")
	require.NoError(t, err)
	assert.Contains(t, out, "<strong>jazz</strong>")
	assert.False(t, strings.Contains(out, "<script>"), "raw html must not pass through")

	out, err = RenderDescription("")
	require.NoError(t, err)
	assert.Empty(t, out)
}
