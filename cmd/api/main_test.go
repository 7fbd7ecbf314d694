package main

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"example.com/daytrack/internal/auth"
	"example.com/daytrack/internal/ratelimit"
)

func newTestChain() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/activities", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	limiter := ratelimit.New(100, 15*time.Minute)
	authMiddleware := auth.NewMiddleware(
		auth.Config{Secret: "test-secret", Issuer: "daytrack.identity"},
		func(r *http.Request) bool { return r.URL.Path == "/healthz" },
	)
	return composeHandler(mux, "http://localhost:5173", limiter, authMiddleware)
}

func TestPreflightSucceedsWithoutToken(t *testing.T) {
	chain := newTestChain()

	req := httptest.NewRequest(http.MethodOptions, "/api/activities", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rr := httptest.NewRecorder()
	chain.ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204 for preflight got %d: %s", rr.Code, rr.Body.String())
	}
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Fatalf("expected allow-origin header on preflight, got %q", got)
	}
	if got := rr.Header().Get("Access-Control-Allow-Headers"); got == "" {
		t.Fatal("expected allow-headers header on preflight")
	}
}

func TestUnauthenticatedRequestCarriesCORSHeaders(t *testing.T) {
	chain := newTestChain()

	req := httptest.NewRequest(http.MethodPost, "/api/activities", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rr := httptest.NewRecorder()
	chain.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token got %d", rr.Code)
	}
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Fatalf("expected allow-origin header on rejection, got %q", got)
	}
}

func TestHealthzBypassesAuth(t *testing.T) {
	chain := newTestChain()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rr := httptest.NewRecorder()
	chain.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 for health check got %d", rr.Code)
	}
}
