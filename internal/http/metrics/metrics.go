package metrics

import (
	"fmt"
	"net/http"
	"sync/atomic"
)

// Collector keeps process-wide HTTP counters.
type Collector struct {
	requests    uint64
	errors      uint64
	rateLimited uint64
}

func NewCollector() *Collector {
	return &Collector{}
}

func (c *Collector) IncRequests() {
	atomic.AddUint64(&c.requests, 1)
}

func (c *Collector) IncErrors() {
	atomic.AddUint64(&c.errors, 1)
}

func (c *Collector) IncRateLimited() {
	atomic.AddUint64(&c.rateLimited, 1)
}

type Snapshot struct {
	Requests    uint64
	Errors      uint64
	RateLimited uint64
}

func (c *Collector) Snapshot() Snapshot {
	return Snapshot{
		Requests:    atomic.LoadUint64(&c.requests),
		Errors:      atomic.LoadUint64(&c.errors),
		RateLimited: atomic.LoadUint64(&c.rateLimited),
	}
}

type Handler struct {
	collector *Collector
}

func NewHandler(collector *Collector) *Handler {
	return &Handler{collector: collector}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	var snap Snapshot
	if h.collector != nil {
		snap = h.collector.Snapshot()
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	writeCounter(w, "placementcell_http_requests_total", "Total number of HTTP requests.", snap.Requests)
	writeCounter(w, "placementcell_http_errors_total", "Total number of 5xx HTTP responses.", snap.Errors)
	writeCounter(w, "placementcell_http_rate_limited_total", "Total number of rate limited requests.", snap.RateLimited)
}

func writeCounter(w http.ResponseWriter, name, help string, value uint64) {
	_, _ = fmt.Fprintf(w, "# HELP %s %s\n", name, help)
	_, _ = fmt.Fprintf(w, "# TYPE %s counter\n", name)
	_, _ = fmt.Fprintf(w, "%s %d\n", name, value)
}
