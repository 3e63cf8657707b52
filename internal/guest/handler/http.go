// Package handler exposes the guest verification protocol over HTTP. All
// responses are JSON; service sentinel errors are mapped to status codes here
// and nowhere else.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"lab-results-portal/internal/devotp"
	"lab-results-portal/internal/guest/service"
	"lab-results-portal/internal/security"
)

// Verifier is the slice of the guest verification service the HTTP layer
// consumes.
type Verifier interface {
	Challenge(ctx context.Context, rawToken string) (*service.ChallengeResult, error)
	VerifyOTP(ctx context.Context, rawToken, code string) (*service.VerifyResult, error)
	VerifyDOB(ctx context.Context, rawToken string, dob time.Time) (*service.VerifyResult, error)
}

// Handler serves the guest verification endpoints.
type Handler struct {
	svc Verifier
	// devOTP, when non-nil, enables GET /dev/guest/otp for local setups
	// running without an SMS gateway. Never wired in production.
	devOTP devotp.Store
}

// NewHandler returns a Handler backed by svc. devOTP may be nil.
func NewHandler(svc Verifier, devOTP devotp.Store) *Handler {
	return &Handler{svc: svc, devOTP: devOTP}
}

// Register mounts the guest routes on r.
func (h *Handler) Register(r chi.Router) {
	r.Post("/api/guest/challenge", h.HandleChallenge)
	r.Post("/api/guest/verify", h.HandleVerifyOTP)
	r.Post("/api/guest/verify-dob", h.HandleVerifyDOB)
	if h.devOTP != nil {
		r.Get("/dev/guest/otp", h.HandleDevOTP)
	}
}

type challengeRequest struct {
	Token string `json:"token"`
}

type challengeResponse struct {
	MaskedPhone string `json:"masked_phone"`
	Delivered   bool   `json:"delivered"`
}

type verifyOTPRequest struct {
	Token string `json:"token"`
	Code  string `json:"code"`
}

type verifyDOBRequest struct {
	Token string `json:"token"`
	// DOB is the guest's date of birth in YYYY-MM-DD form.
	DOB string `json:"dob"`
}

type verifyResponse struct {
	DownloadURL string `json:"download_url"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// HandleChallenge handles POST /api/guest/challenge.
func (h *Handler) HandleChallenge(w http.ResponseWriter, r *http.Request) {
	var req challengeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Token) == "" {
		writeError(w, http.StatusBadRequest, "token is required")
		return
	}
	res, err := h.svc.Challenge(r.Context(), req.Token)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, challengeResponse{MaskedPhone: res.MaskedPhone, Delivered: res.Delivered})
}

// HandleVerifyOTP handles POST /api/guest/verify.
func (h *Handler) HandleVerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req verifyOTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil ||
		strings.TrimSpace(req.Token) == "" || strings.TrimSpace(req.Code) == "" {
		writeError(w, http.StatusBadRequest, "token and code are required")
		return
	}
	res, err := h.svc.VerifyOTP(r.Context(), req.Token, req.Code)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, verifyResponse{DownloadURL: res.DownloadURL})
}

// HandleVerifyDOB handles POST /api/guest/verify-dob.
func (h *Handler) HandleVerifyDOB(w http.ResponseWriter, r *http.Request) {
	var req verifyDOBRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil ||
		strings.TrimSpace(req.Token) == "" || strings.TrimSpace(req.DOB) == "" {
		writeError(w, http.StatusBadRequest, "token and dob are required")
		return
	}
	dob, err := time.Parse("2006-01-02", req.DOB)
	if err != nil {
		writeError(w, http.StatusBadRequest, "dob must be formatted as YYYY-MM-DD")
		return
	}
	res, err := h.svc.VerifyDOB(r.Context(), req.Token, dob)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, verifyResponse{DownloadURL: res.DownloadURL})
}

// HandleDevOTP handles GET /dev/guest/otp?token=... and returns the code the
// last challenge generated for that link. Dev mode only.
func (h *Handler) HandleDevOTP(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimSpace(r.URL.Query().Get("token"))
	if token == "" {
		writeError(w, http.StatusBadRequest, "token is required")
		return
	}
	code, ok := h.devOTP.Get(r.Context(), security.TokenSignature(token))
	if !ok {
		writeError(w, http.StatusNotFound, "no active code for this link")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"code": code})
}

// writeServiceError maps the service's sentinel errors to HTTP status codes.
// Anything unrecognized is an internal error and the detail stays server-side.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidToken),
		errors.Is(err, service.ErrNoChallenge),
		errors.Is(err, service.ErrChallengeExpired):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, service.ErrTooManyAttempts),
		errors.Is(err, service.ErrInvalidCode),
		errors.Is(err, service.ErrInvalidDOB):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrDocumentNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrDocumentGone):
		writeError(w, http.StatusGone, err.Error())
	case errors.Is(err, service.ErrFallbackUnavailable),
		errors.Is(err, service.ErrGrantIssuance):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		log.Printf("guest handler: internal error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
