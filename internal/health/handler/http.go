// Package handler serves readiness/liveness for Kubernetes, load balancers,
// and CI.
package handler

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"
)

// Pinger is the database health surface (satisfied by *sql.DB).
type Pinger interface {
	PingContext(ctx context.Context) error
}

// PolicyChecker reports whether the policy engine can still evaluate.
type PolicyChecker interface {
	HealthCheck(ctx context.Context) error
}

// Handler answers GET /healthz. Dependencies may be nil; a nil dependency is
// not checked.
type Handler struct {
	db     Pinger
	policy PolicyChecker
}

// NewHandler returns a health Handler over the given dependencies.
func NewHandler(db Pinger, policy PolicyChecker) *Handler {
	return &Handler{db: db, policy: policy}
}

type healthResponse struct {
	Status string `json:"status"`
}

// ServeHTTP reports 200 {"status":"serving"} when every wired dependency
// responds, 503 {"status":"not_serving"} otherwise.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status, code := "serving", http.StatusOK
	if h.db != nil {
		if err := h.db.PingContext(ctx); err != nil {
			log.Printf("health: database ping failed: %v", err)
			status, code = "not_serving", http.StatusServiceUnavailable
		}
	}
	if code == http.StatusOK && h.policy != nil {
		if err := h.policy.HealthCheck(ctx); err != nil {
			log.Printf("health: policy engine check failed: %v", err)
			status, code = "not_serving", http.StatusServiceUnavailable
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(healthResponse{Status: status})
}
