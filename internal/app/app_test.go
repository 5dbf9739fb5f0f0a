package app

import (
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := validConfig()
	cfg.TwilioAuthToken = ""

	if _, err := New(cfg, log.New(io.Discard, "", 0)); err == nil {
		t.Error("New should fail without TWILIO_AUTH_TOKEN")
	}
}

func TestAppRouter(t *testing.T) {
	a, err := New(validConfig(), log.New(io.Discard, "", 0))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()

	h := a.Router()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("/healthz status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/twiml", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("/twiml status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("/metrics status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "http_requests_total") {
		t.Error("/metrics should expose http_requests_total")
	}
}

func TestAppTokenWithoutAPIKey(t *testing.T) {
	a, err := New(validConfig(), log.New(io.Discard, "", 0))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	rec := httptest.NewRecorder()
	a.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/token", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("/token status = %d, want 500", rec.Code)
	}
}
