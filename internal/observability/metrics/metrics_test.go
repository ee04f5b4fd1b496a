package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dakshin/partsquote/internal/core/domain"
)

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/v1/queue/events", "/v1/queue/events"},
		{"/v1/queue/abc", "/v1/queue/{id}"},
		{"/v1/queue/abc/retry", "/v1/queue/{id}/retry"},
		{"/v1/imports/b-1", "/v1/imports/{id}"},
		{"/v1/customers/c-1", "/v1/customers/{id}"},
		{"/v1/parts/enrich", "/v1/parts/enrich"},
		{"/v1/parts/04427-42180", "/v1/parts/{part_number}"},
		{"/v1/parts/04427-42180/interchange", "/v1/parts/{part_number}/interchange"},
		{"/healthz", "/healthz"},
	}
	for _, tt := range tests {
		if got := normalizePath(tt.path); got != tt.want {
			t.Fatalf("normalizePath(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestWorkerMetricsExposeEntryOutcomes(t *testing.T) {
	m := NewWorkerMetrics("worker")
	m.StartEntry()
	m.ObserveQueueLag(2 * time.Second)
	m.FinishEntry(string(domain.QueueStatusCompleted), time.Second)
	m.ObserveQueueCounts(domain.QueueCounts{Pending: 4})

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	if !strings.Contains(body, `partsquote_worker_entries_processed_total{service="worker",status="completed"} 1`) {
		t.Fatalf("missing processed counter in:\n%s", body)
	}
	if !strings.Contains(body, `partsquote_queue_entries{service="worker",status="pending"} 4`) {
		t.Fatalf("missing queue depth gauge in:\n%s", body)
	}
}

func TestHTTPMiddlewareRecordsStatus(t *testing.T) {
	m := NewHTTPServerMetrics("api")
	handler := m.Middleware("api", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/queue/xyz", nil))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(rec.Body.String(), `path="/v1/queue/{id}",service="api",status="404"`) {
		t.Fatalf("missing request counter in:\n%s", rec.Body.String())
	}
}
