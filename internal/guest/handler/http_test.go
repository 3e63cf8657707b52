package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"lab-results-portal/internal/devotp"
	"lab-results-portal/internal/guest/service"
	"lab-results-portal/internal/security"
)

type stubVerifier struct {
	challengeRes *service.ChallengeResult
	challengeErr error
	verifyRes    *service.VerifyResult
	verifyErr    error
	gotToken     string
	gotCode      string
	gotDOB       time.Time
}

func (s *stubVerifier) Challenge(ctx context.Context, rawToken string) (*service.ChallengeResult, error) {
	s.gotToken = rawToken
	return s.challengeRes, s.challengeErr
}

func (s *stubVerifier) VerifyOTP(ctx context.Context, rawToken, code string) (*service.VerifyResult, error) {
	s.gotToken = rawToken
	s.gotCode = code
	return s.verifyRes, s.verifyErr
}

func (s *stubVerifier) VerifyDOB(ctx context.Context, rawToken string, dob time.Time) (*service.VerifyResult, error) {
	s.gotToken = rawToken
	s.gotDOB = dob
	return s.verifyRes, s.verifyErr
}

func newTestRouter(stub *stubVerifier, dev devotp.Store) http.Handler {
	r := chi.NewRouter()
	NewHandler(stub, dev).Register(r)
	return r
}

func post(t *testing.T, h http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandleChallenge_OK(t *testing.T) {
	stub := &stubVerifier{challengeRes: &service.ChallengeResult{MaskedPhone: "+237***789", Delivered: true}}
	h := newTestRouter(stub, nil)

	rec := post(t, h, "/api/guest/challenge", `{"token":"tok-1"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body %s", rec.Code, rec.Body.String())
	}
	var res challengeResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.MaskedPhone != "+237***789" || !res.Delivered {
		t.Errorf("response = %+v", res)
	}
	if stub.gotToken != "tok-1" {
		t.Errorf("token passed to service = %q", stub.gotToken)
	}
}

func TestHandleChallenge_MissingToken(t *testing.T) {
	h := newTestRouter(&stubVerifier{}, nil)
	for _, body := range []string{"", "{}", `{"token":"  "}`, "not json"} {
		rec := post(t, h, "/api/guest/challenge", body)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("body %q: status = %d, want 400", body, rec.Code)
		}
	}
}

func TestHandleVerifyOTP_OK(t *testing.T) {
	stub := &stubVerifier{verifyRes: &service.VerifyResult{DownloadURL: "https://storage.example/doc.pdf?signed"}}
	h := newTestRouter(stub, nil)

	rec := post(t, h, "/api/guest/verify", `{"token":"tok-1","code":"123456"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body %s", rec.Code, rec.Body.String())
	}
	var res verifyResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.DownloadURL == "" {
		t.Error("download_url empty")
	}
	if stub.gotCode != "123456" {
		t.Errorf("code passed to service = %q", stub.gotCode)
	}
}

func TestHandleVerifyOTP_MissingFields(t *testing.T) {
	h := newTestRouter(&stubVerifier{}, nil)
	for _, body := range []string{"{}", `{"token":"tok-1"}`, `{"code":"123456"}`} {
		rec := post(t, h, "/api/guest/verify", body)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("body %q: status = %d, want 400", body, rec.Code)
		}
	}
}

func TestHandleVerifyDOB_ParsesDate(t *testing.T) {
	stub := &stubVerifier{verifyRes: &service.VerifyResult{DownloadURL: "https://storage.example/doc.pdf?signed"}}
	h := newTestRouter(stub, nil)

	rec := post(t, h, "/api/guest/verify-dob", `{"token":"tok-1","dob":"1990-05-20"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body %s", rec.Code, rec.Body.String())
	}
	y, m, d := stub.gotDOB.Date()
	if y != 1990 || m != time.May || d != 20 {
		t.Errorf("dob passed to service = %v", stub.gotDOB)
	}
}

func TestHandleVerifyDOB_BadDate(t *testing.T) {
	h := newTestRouter(&stubVerifier{}, nil)
	for _, body := range []string{
		`{"token":"tok-1","dob":"20-05-1990"}`,
		`{"token":"tok-1","dob":"1990/05/20"}`,
		`{"token":"tok-1","dob":"yesterday"}`,
	} {
		rec := post(t, h, "/api/guest/verify-dob", body)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("body %q: status = %d, want 400", body, rec.Code)
		}
	}
}

func TestServiceErrorMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{service.ErrInvalidToken, http.StatusUnauthorized},
		{service.ErrNoChallenge, http.StatusUnauthorized},
		{service.ErrChallengeExpired, http.StatusUnauthorized},
		{service.ErrTooManyAttempts, http.StatusForbidden},
		{service.ErrInvalidCode, http.StatusForbidden},
		{service.ErrInvalidDOB, http.StatusForbidden},
		{service.ErrDocumentNotFound, http.StatusNotFound},
		{service.ErrDocumentGone, http.StatusGone},
		{service.ErrFallbackUnavailable, http.StatusBadRequest},
		{service.ErrGrantIssuance, http.StatusBadRequest},
		{errors.New("db down"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		h := newTestRouter(&stubVerifier{verifyErr: tc.err}, nil)
		rec := post(t, h, "/api/guest/verify", `{"token":"tok-1","code":"123456"}`)
		if rec.Code != tc.want {
			t.Errorf("%v: status = %d, want %d", tc.err, rec.Code, tc.want)
		}
		var res errorResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
			t.Fatalf("decode error body: %v", err)
		}
		if res.Error == "" {
			t.Errorf("%v: error message empty", tc.err)
		}
		if tc.want == http.StatusInternalServerError && strings.Contains(res.Error, "db down") {
			t.Error("internal error detail leaked to client")
		}
	}
}

func TestHandleDevOTP(t *testing.T) {
	store := devotp.NewMemoryStore()
	token := "header.payload.signature"
	store.Put(context.Background(), security.TokenSignature(token), "654321", time.Now().UTC().Add(time.Minute))
	h := newTestRouter(&stubVerifier{}, store)

	req := httptest.NewRequest(http.MethodGet, "/dev/guest/otp?token="+token, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body %s", rec.Code, rec.Body.String())
	}
	var res map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res["code"] != "654321" {
		t.Errorf("code = %q, want 654321", res["code"])
	}

	req = httptest.NewRequest(http.MethodGet, "/dev/guest/otp?token=unknown", nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown token: status = %d, want 404", rec.Code)
	}
}

func TestDevOTPRouteAbsentWithoutStore(t *testing.T) {
	h := newTestRouter(&stubVerifier{}, nil)
	req := httptest.NewRequest(http.MethodGet, "/dev/guest/otp?token=x", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound && rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want route absent", rec.Code)
	}
}
