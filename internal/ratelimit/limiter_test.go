package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestAllowExhaustsBudget(t *testing.T) {
	limiter := New(3, time.Hour)

	for i := 0; i < 3; i++ {
		if !limiter.Allow("1.2.3.4") {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if limiter.Allow("1.2.3.4") {
		t.Fatal("expected fourth request to be rejected")
	}
}

func TestZeroBudgetClampsToOne(t *testing.T) {
	limiter := New(0, time.Hour)

	if !limiter.Allow("1.2.3.4") {
		t.Fatal("clamped limiter should allow one request")
	}
	if limiter.Allow("1.2.3.4") {
		t.Fatal("clamped limiter should reject the second request")
	}
}

func TestAllowKeysAreIndependent(t *testing.T) {
	limiter := New(1, time.Hour)

	if !limiter.Allow("1.2.3.4") {
		t.Fatal("first client should be allowed")
	}
	if !limiter.Allow("5.6.7.8") {
		t.Fatal("second client should be allowed despite first being exhausted")
	}
	if limiter.Allow("1.2.3.4") {
		t.Fatal("first client should be exhausted")
	}
}

func TestMiddlewareReturns429Envelope(t *testing.T) {
	limiter := New(1, time.Hour)
	handler := limiter.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/days/2025-01-01", nil)
	req.RemoteAddr = "1.2.3.4:5555"

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("first request should pass, got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 got %d", rr.Code)
	}
	if body := rr.Body.String(); body == "" || body[0] != '{' {
		t.Fatalf("expected JSON envelope got %q", body)
	}
}

func TestClientKeyPrefersForwardedFor(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:1234"

	if got := ClientKey(req); got != "10.0.0.1" {
		t.Fatalf("expected remote host got %s", got)
	}

	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	if got := ClientKey(req); got != "203.0.113.9" {
		t.Fatalf("expected first forwarded hop got %s", got)
	}
}
