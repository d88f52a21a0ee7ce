package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHandlerExposesCounters(t *testing.T) {
	collector := NewCollector()
	collector.IncRequests()
	collector.IncRequests()
	collector.IncErrors()
	collector.IncRateLimited()

	rec := httptest.NewRecorder()
	NewHandler(collector).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body := rec.Body.String()
	for _, line := range []string{
		"placementcell_http_requests_total 2",
		"placementcell_http_errors_total 1",
		"placementcell_http_rate_limited_total 1",
	} {
		if !strings.Contains(body, line) {
			t.Fatalf("expected %q in output, got %s", line, body)
		}
	}
}

func TestHandlerWithoutCollector(t *testing.T) {
	rec := httptest.NewRecorder()
	NewHandler(nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(rec.Body.String(), "placementcell_http_requests_total 0") {
		t.Fatalf("expected zero counters, got %s", rec.Body.String())
	}
}
