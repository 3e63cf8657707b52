// Package server assembles the HTTP router: middleware chain, guest
// verification routes, and health.
package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	guesthandler "lab-results-portal/internal/guest/handler"
	"lab-results-portal/internal/server/middleware"
	"lab-results-portal/internal/telemetry/producer"
)

// Deps holds the handlers and optional infrastructure the router mounts.
type Deps struct {
	// Guest serves the verification endpoints. Required.
	Guest *guesthandler.Handler
	// Health serves GET /healthz. If nil, /healthz returns 404.
	Health http.Handler
	// Telemetry receives per-request events. If nil, no request telemetry is emitted.
	Telemetry producer.Producer
}

// telemetrySkipPaths are the routes excluded from request telemetry: health
// probes would drown the topic, and the dev OTP endpoint never runs in
// production.
var telemetrySkipPaths = map[string]bool{
	"/healthz":       true,
	"/dev/guest/otp": true,
}

// NewRouter builds the HTTP handler: recovery, client IP propagation, request
// telemetry, then routes, the whole chain wrapped for OTel tracing.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.WithClientIP)
	r.Use(middleware.Telemetry(deps.Telemetry, telemetrySkipPaths))

	if deps.Health != nil {
		r.Method(http.MethodGet, "/healthz", deps.Health)
	}
	if deps.Guest != nil {
		deps.Guest.Register(r)
	}

	return otelhttp.NewHandler(r, "http.server")
}
