package httpapi

import (
	"net/http"

	"github.com/hackercall/backend/internal/eventlog"
	"github.com/hackercall/backend/internal/metrics"
)

type tokenResponse struct {
	Token    string `json:"token"`
	Identity string `json:"identity"`
}

// handleToken mints a browser voice credential. Each request gets an
// independent token; nothing is tracked or revoked server-side.
func (r *Router) handleToken(w http.ResponseWriter, req *http.Request) {
	identity := r.newIdentity()

	token, err := r.voice.VoiceToken(identity)
	if err != nil {
		metrics.VoiceTokens.WithLabelValues("failed").Inc()
		r.logger.Printf("token: creation failed for %s: %v", identity, err)
		r.eventLog.Log("", eventlog.EventTokenFailed, map[string]any{"identity": identity})
		captureError(req, err, "voice token creation failed")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to create token"})
		return
	}

	metrics.VoiceTokens.WithLabelValues("issued").Inc()
	r.eventLog.Log("", eventlog.EventTokenIssued, map[string]any{"identity": identity})
	writeJSON(w, http.StatusOK, tokenResponse{Token: token, Identity: identity})
}
