package middleware

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"lab-results-portal/internal/telemetry/domain"
	"lab-results-portal/internal/telemetry/producer"
)

// httpRequestMetadata is the JSON shape stored in GuestAccessEvent.Metadata for http_request events.
type httpRequestMetadata struct {
	Method     string `json:"method"`
	Path       string `json:"path"`
	StatusCode int    `json:"status_code"`
	DurationMs int64  `json:"duration_ms"`
	ClientIP   string `json:"client_ip"`
}

// Telemetry returns middleware that emits a telemetry event after each request.
// Best-effort: failures are logged and do not fail the request. If p is nil, the middleware no-ops.
// skipPaths is the set of paths to not emit (e.g. /healthz).
func Telemetry(p producer.Producer, skipPaths map[string]bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if p == nil || skipPaths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}
			start := time.Now()
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			meta := httpRequestMetadata{
				Method:     r.Method,
				Path:       r.URL.Path,
				StatusCode: ww.Status(),
				DurationMs: time.Since(start).Milliseconds(),
				ClientIP:   ClientIP(r.Context()),
			}
			metaJSON, _ := json.Marshal(meta)
			event := domain.NewEvent("", "", domain.EventHTTPRequest)
			event.Source = domain.SourceHTTPMiddleware
			event.Metadata = metaJSON
			go func() {
				emitCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if emitErr := p.Emit(emitCtx, event); emitErr != nil {
					log.Printf("telemetry: middleware emit failed: %v", emitErr)
				}
			}()
		})
	}
}
