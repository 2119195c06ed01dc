package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHandleIndex(t *testing.T) {
	router := newTestRouter(t, newStubDeps())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "Spring Jazz Night") {
		t.Fatalf("expected next event on landing page, got %q", body)
	}
	if !strings.Contains(body, `data-starts-at="2026-04-18T19:30:00Z"`) {
		t.Fatalf("expected countdown target, got %q", body)
	}
}

func TestHandleHistory(t *testing.T) {
	router := newTestRouter(t, newStubDeps())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/history", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{"Spring Jazz Night", "Winter Gala", "<strong>live jazz</strong>", "30.00 EUR"} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %q in history page", want)
		}
	}
	if strings.Index(body, "Spring Jazz Night") > strings.Index(body, "Winter Gala") {
		t.Fatalf("expected events ordered by start time")
	}
}

func TestHandleAPIHistory(t *testing.T) {
	router := newTestRouter(t, newStubDeps())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/history", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	var resp []eventResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp) != 2 || resp[0].ID != "spring-jazz" || resp[0].UnitPrice != 3000 {
		t.Fatalf("unexpected history response %+v", resp)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	deps := newStubDeps()
	deps.metrics.OrdersCreated.Inc()
	router := newTestRouter(t, deps)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "tickets_orders_created_total 1") {
		t.Fatalf("expected orders counter in metrics output")
	}
}
