package handlers

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"strings"
	"testing"
	"time"

	"placementcell/internal/common"
	"placementcell/internal/domain/user"
	"placementcell/internal/http/middleware"
)

type denyLimiter struct {
	keys []string
}

func (d *denyLimiter) Allow(key string, limit int, window time.Duration) bool {
	d.keys = append(d.keys, key)
	return false
}

func TestLoginRequiresCredentials(t *testing.T) {
	handler := NewAuthHandler(nil, nil, nil)
	rec := httptest.NewRecorder()
	handler.Login(rec, httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"email":""}`)))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "password is required") {
		t.Fatalf("expected field errors, got %s", rec.Body.String())
	}
}

func TestLoginRateLimitedPerIP(t *testing.T) {
	limiter := &denyLimiter{}
	handler := NewAuthHandler(nil, limiter, nil)
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"email":"a@b.edu","password":"secret123"}`))
	req.RemoteAddr = "198.51.100.7:5555"
	req.Header.Set("X-Forwarded-For", "1.2.3.4")
	rec := httptest.NewRecorder()
	handler.Login(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if len(limiter.keys) != 1 || limiter.keys[0] != "login:ip:198.51.100.7" {
		t.Fatalf("unexpected limiter keys %v", limiter.keys)
	}
}

func TestLoginUsesForwardedAddressBehindProxy(t *testing.T) {
	limiter := &denyLimiter{}
	handler := NewAuthHandler(nil, limiter, middleware.TrustedClientIP([]netip.Prefix{netip.MustParsePrefix("10.0.0.0/8")}))
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"email":"a@b.edu","password":"secret123"}`))
	req.RemoteAddr = "10.0.0.2:443"
	req.Header.Set("X-Forwarded-For", "203.0.113.9")
	rec := httptest.NewRecorder()
	handler.Login(rec, req)
	if len(limiter.keys) != 1 || limiter.keys[0] != "login:ip:203.0.113.9" {
		t.Fatalf("unexpected limiter keys %v", limiter.keys)
	}
}

func TestApplyRateLimitedPerStudent(t *testing.T) {
	limiter := &denyLimiter{}
	handler := NewApplicationHandler(nil, limiter)
	userID := common.NewUUID()
	req := httptest.NewRequest(http.MethodPost, "/applications", strings.NewReader(`{"job_id":"`+string(common.NewUUID())+`"}`))
	req = req.WithContext(middleware.WithActor(req.Context(), user.Actor{UserID: userID, Role: user.RoleStudent}))
	rec := httptest.NewRecorder()
	handler.Apply(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if limiter.keys[0] != "apply:"+userID.String() {
		t.Fatalf("unexpected key %v", limiter.keys)
	}
}

func TestApplyRejectsBadJobID(t *testing.T) {
	handler := NewApplicationHandler(nil, nil)
	req := httptest.NewRequest(http.MethodPost, "/applications", strings.NewReader(`{"job_id":"x"}`))
	req = req.WithContext(middleware.WithActor(req.Context(), user.Actor{UserID: common.NewUUID(), Role: user.RoleStudent}))
	rec := httptest.NewRecorder()
	handler.Apply(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestDecodeJSONRejectsUnknownFields(t *testing.T) {
	var dst loginRequest
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"a@b.edu","extra":1}`))
	if err := decodeJSON(req, &dst); !common.Is(err, common.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(``))
	if err := decodeJSON(req, &dst); !common.Is(err, common.CodeValidation) {
		t.Fatalf("expected validation error for empty body, got %v", err)
	}
}

func TestBulkStatusRejectsMalformedIDs(t *testing.T) {
	handler := NewApplicationHandler(nil, nil)
	req := httptest.NewRequest(http.MethodPatch, "/applications/bulk-status", strings.NewReader(`{"ids":["nope"],"status":"shortlisted"}`))
	req = req.WithContext(middleware.WithActor(req.Context(), user.Actor{UserID: common.NewUUID(), Role: user.RoleCoordinator}))
	rec := httptest.NewRecorder()
	handler.BulkUpdateStatus(rec, req)
	if rec.Code != http.StatusBadRequest || !strings.Contains(rec.Body.String(), "ids[0]") {
		t.Fatalf("expected 400 naming ids[0], got %d %s", rec.Code, rec.Body.String())
	}
}

func TestQueryHelpers(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?batch_year=abc&from=2026-03-01&unread=true", nil)
	if _, err := queryInt(req, "batch_year"); err == nil {
		t.Fatalf("expected error for non-numeric batch_year")
	}
	from, err := queryTime(req, "from")
	if err != nil || from == nil || from.Day() != 1 {
		t.Fatalf("expected parsed date, got %v %v", from, err)
	}
	if !queryBool(req, "unread") {
		t.Fatalf("expected unread=true")
	}
}

func TestHandlersRequireActor(t *testing.T) {
	handler := NewNotificationHandler(nil)
	rec := httptest.NewRecorder()
	handler.UnreadCount(rec, httptest.NewRequest(http.MethodGet, "/notifications/unread-count", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestStreamFileSandboxesUploadedContent(t *testing.T) {
	svg := `<svg xmlns="http://www.w3.org/2000/svg"><script>alert(document.domain)</script></svg>`
	rec := httptest.NewRecorder()
	streamFile(rec, io.NopCloser(strings.NewReader(svg)), "image/svg+xml", "logo.svg", true)

	if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Fatalf("expected nosniff, got %q", got)
	}
	csp := rec.Header().Get("Content-Security-Policy")
	if !strings.Contains(csp, "default-src 'none'") || !strings.Contains(csp, "sandbox") {
		t.Fatalf("expected sandboxing csp, got %q", csp)
	}
	if got := rec.Header().Get("Content-Disposition"); got != `inline; filename="logo.svg"` {
		t.Fatalf("unexpected disposition %q", got)
	}
}
