package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func extractIP(t *testing.T, req *http.Request) string {
	t.Helper()
	var got string
	h := WithClientIP(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = ClientIP(r.Context())
	}))
	h.ServeHTTP(httptest.NewRecorder(), req)
	return got
}

func TestClientIP_RemoteAddr(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "203.0.113.7:51234"
	if got := extractIP(t, req); got != "203.0.113.7" {
		t.Errorf("ClientIP = %q, want 203.0.113.7", got)
	}
}

func TestClientIP_ForwardedForWins(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:80"
	req.Header.Set("X-Forwarded-For", "198.51.100.9, 10.0.0.2")
	if got := extractIP(t, req); got != "198.51.100.9" {
		t.Errorf("ClientIP = %q, want first forwarded hop", got)
	}
}

func TestClientIP_RealIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:80"
	req.Header.Set("X-Real-IP", "198.51.100.10")
	if got := extractIP(t, req); got != "198.51.100.10" {
		t.Errorf("ClientIP = %q, want X-Real-IP value", got)
	}
}

func TestClientIP_UnsetContext(t *testing.T) {
	if got := ClientIP(context.Background()); got != "unknown" {
		t.Errorf("ClientIP = %q, want unknown", got)
	}
}
