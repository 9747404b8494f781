package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jmorren/authcore/internal/infrastructure/config"
)

func TestRateLimiter_FixedWindow(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	l := newRateLimiter()
	l.now = func() time.Time { return now }

	// First three requests pass, fourth is rejected.
	for i := 0; i < 3; i++ {
		allowed, _ := l.allow("1.2.3.4", 3, time.Minute)
		if !allowed {
			t.Fatalf("request %d rejected, want allowed", i+1)
		}
	}
	allowed, resetAt := l.allow("1.2.3.4", 3, time.Minute)
	if allowed {
		t.Error("fourth request allowed, want rejected")
	}
	if want := now.Add(time.Minute); !resetAt.Equal(want) {
		t.Errorf("resetAt = %v, want %v", resetAt, want)
	}

	// Other keys are unaffected.
	if allowed, _ := l.allow("5.6.7.8", 3, time.Minute); !allowed {
		t.Error("other key rejected")
	}

	// Window elapses: counting restarts.
	now = now.Add(time.Minute + time.Second)
	if allowed, _ := l.allow("1.2.3.4", 3, time.Minute); !allowed {
		t.Error("request after window rejected")
	}
}

func TestRateLimiter_ZeroLimitDisables(t *testing.T) {
	l := newRateLimiter()
	for i := 0; i < 100; i++ {
		if allowed, _ := l.allow("1.2.3.4", 0, time.Minute); !allowed {
			t.Fatal("zero limit should disable counting")
		}
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	srv := testServer(t)
	srv.secCfg = config.SecurityConfig{
		RateLimit: config.RateLimitConfig{Enabled: true, RequestsPerMinute: 2},
	}
	router := srv.buildRouter()

	do := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
		req.RemoteAddr = "10.0.0.1:54321"
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	if w := do(); w.Code != http.StatusOK {
		t.Fatalf("first request: status = %d", w.Code)
	}
	if w := do(); w.Code != http.StatusOK {
		t.Fatalf("second request: status = %d", w.Code)
	}

	w := do()
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("third request: status = %d, want %d", w.Code, http.StatusTooManyRequests)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Error("429 response missing Retry-After header")
	}

	// A different client IP still gets through.
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.RemoteAddr = "10.0.0.2:54321"
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("other client: status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		remoteAddr string
		want       string
	}{
		{"10.0.0.1:54321", "10.0.0.1"},
		{"[::1]:8080", "::1"},
		{"no-port", "no-port"},
	}

	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.RemoteAddr = tt.remoteAddr
		if got := clientIP(r); got != tt.want {
			t.Errorf("clientIP(%q) = %q, want %q", tt.remoteAddr, got, tt.want)
		}
	}
}
