package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"
)

func TestHandleToken(t *testing.T) {
	rec := serve(newTestRouter(&fakeVoice{}), http.MethodGet, "/token", nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body tokenResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Identity != "hacker_7" {
		t.Errorf("identity = %q", body.Identity)
	}
	if body.Token != "jwt-for-hacker_7" {
		t.Errorf("token = %q", body.Token)
	}
}

func TestHandleTokenFailureDoesNotLeak(t *testing.T) {
	voice := &fakeVoice{
		tokenFn: func(string) (string, error) {
			return "", errors.New("sign with secret s3cr3t failed")
		},
	}
	rec := serve(newTestRouter(voice), http.MethodGet, "/token", nil)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "s3cr3t") {
		t.Errorf("error response leaks internals: %s", rec.Body.String())
	}
	var body map[string]string
	_ = json.NewDecoder(rec.Body).Decode(&body)
	if body["error"] != "Failed to create token" {
		t.Errorf("error = %q", body["error"])
	}
}
