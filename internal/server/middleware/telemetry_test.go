package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"lab-results-portal/internal/telemetry/domain"
)

// mockProducer implements producer.Producer for tests.
type mockProducer struct {
	mu     sync.Mutex
	events []*domain.GuestAccessEvent
}

func (m *mockProducer) Emit(ctx context.Context, event *domain.GuestAccessEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

func (m *mockProducer) Close() error { return nil }

func (m *mockProducer) getEvents() []*domain.GuestAccessEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.events
}

func TestTelemetry_EmitsRequestEvent(t *testing.T) {
	p := &mockProducer{}
	h := Telemetry(p, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/guest/verify", nil)
	h.ServeHTTP(httptest.NewRecorder(), req)

	time.Sleep(100 * time.Millisecond)
	events := p.getEvents()
	if len(events) != 1 {
		t.Fatalf("events = %d, want 1", len(events))
	}
	ev := events[0]
	if ev.EventType != domain.EventHTTPRequest {
		t.Errorf("eventType = %q", ev.EventType)
	}
	var meta struct {
		Method     string `json:"method"`
		Path       string `json:"path"`
		StatusCode int    `json:"status_code"`
	}
	if err := json.Unmarshal(ev.Metadata, &meta); err != nil {
		t.Fatalf("decode metadata: %v", err)
	}
	if meta.Method != http.MethodPost || meta.Path != "/api/guest/verify" || meta.StatusCode != http.StatusTeapot {
		t.Errorf("metadata = %+v", meta)
	}
}

func TestTelemetry_SkipsConfiguredPaths(t *testing.T) {
	p := &mockProducer{}
	h := Telemetry(p, map[string]bool{"/healthz": true})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))

	time.Sleep(50 * time.Millisecond)
	if got := len(p.getEvents()); got != 0 {
		t.Errorf("events = %d, want 0 for skipped path", got)
	}
}

func TestTelemetry_NilProducerNoops(t *testing.T) {
	called := false
	h := Telemetry(nil, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	if !called {
		t.Error("inner handler not called")
	}
}
