package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/hackercall/backend/internal/eventlog"
	"github.com/hackercall/backend/internal/metrics"
	"github.com/hackercall/backend/internal/phone"
	"github.com/hackercall/backend/internal/twilio"
)

const maxBodyBytes = 64 * 1024

// statusCallbackEvents are the call progress events Twilio reports to /twilio/status.
var statusCallbackEvents = []string{"initiated", "ringing", "answered", "completed"}

// callResponse is the envelope for /call and /hangup.
type callResponse struct {
	Success bool   `json:"success"`
	CallSid string `json:"callSid,omitempty"`
	CallID  string `json:"callId,omitempty"`
	Error   string `json:"error,omitempty"`
}

// validationMessage maps validator errors to the messages the frontend shows.
func validationMessage(err error) string {
	switch {
	case errors.Is(err, phone.ErrNotAString):
		return "Invalid payload: number must be a string"
	case errors.Is(err, phone.ErrInvalidFormat):
		return "Invalid E.164 format. Use +919876543210"
	default:
		return err.Error()
	}
}

func (r *Router) handleCall(w http.ResponseWriter, req *http.Request) {
	var body struct {
		Number any `json:"number"`
	}
	err := json.NewDecoder(io.LimitReader(req.Body, maxBodyBytes)).Decode(&body)
	if err != nil && !errors.Is(err, io.EOF) {
		metrics.OutboundCalls.WithLabelValues("rejected").Inc()
		writeJSON(w, http.StatusBadRequest, callResponse{Error: "Invalid JSON body"})
		return
	}

	r.eventLog.Log("", eventlog.EventCallRequested, map[string]any{"number": body.Number})

	number, err := phone.Validate(body.Number)
	if err != nil {
		metrics.OutboundCalls.WithLabelValues("rejected").Inc()
		r.eventLog.Log("", eventlog.EventCallRejected, map[string]any{"error": err.Error()})
		writeJSON(w, http.StatusBadRequest, callResponse{Error: validationMessage(err)})
		return
	}

	callID := r.newCallID()
	params := twilio.CallParams{
		To:                   number,
		From:                 r.cfg.FromNumber,
		URL:                  r.twimlURL(number, callID),
		Method:               http.MethodGet,
		StatusCallback:       r.webhookURL("/twilio/status"),
		StatusCallbackMethod: http.MethodPost,
		StatusCallbackEvents: statusCallbackEvents,
	}

	// A client disconnect must not abort a call Twilio may already be placing.
	ctx := context.WithoutCancel(req.Context())
	call, err := r.voice.CreateCall(ctx, params)
	if err != nil {
		metrics.OutboundCalls.WithLabelValues("failed").Inc()
		r.logger.Printf("call: twilio create failed (callId=%s): %v", callID, err)
		r.eventLog.Log("", eventlog.EventCallFailed, map[string]any{"callId": callID, "error": err.Error()})
		captureError(req, err, "twilio create call failed")
		writeJSON(w, http.StatusInternalServerError, callResponse{Error: err.Error()})
		return
	}

	metrics.OutboundCalls.WithLabelValues("created").Inc()
	r.logger.Printf("call: twilio call created sid=%s callId=%s", call.SID, callID)
	r.eventLog.Log(call.SID, eventlog.EventCallCreated, map[string]any{"callId": callID, "status": call.Status})

	writeJSON(w, http.StatusOK, callResponse{
		Success: true,
		CallSid: call.SID,
		CallID:  callID,
	})
}

func (r *Router) handleHangup(w http.ResponseWriter, req *http.Request) {
	callSid := strings.TrimSpace(req.PathValue("callSid"))
	if callSid == "" {
		metrics.Hangups.WithLabelValues("rejected").Inc()
		writeJSON(w, http.StatusBadRequest, callResponse{Error: "callSid is required"})
		return
	}

	r.eventLog.Log(callSid, eventlog.EventHangupRequested, nil)

	ctx := context.WithoutCancel(req.Context())
	if err := r.voice.HangupCall(ctx, callSid); err != nil {
		metrics.Hangups.WithLabelValues("failed").Inc()
		r.logger.Printf("call: hangup %s failed: %v", callSid, err)
		r.eventLog.Log(callSid, eventlog.EventHangupFailed, map[string]any{"error": err.Error()})
		captureError(req, err, "twilio hangup failed")
		writeJSON(w, http.StatusInternalServerError, callResponse{Error: err.Error()})
		return
	}

	metrics.Hangups.WithLabelValues("completed").Inc()
	writeJSON(w, http.StatusOK, callResponse{Success: true})
}

func (r *Router) webhookURL(path string) string {
	return strings.TrimRight(r.cfg.PublicBaseURL, "/") + path
}

func (r *Router) twimlURL(number, callID string) string {
	q := url.Values{}
	q.Set("to", number)
	q.Set("callId", callID)
	return r.webhookURL("/twiml") + "?" + q.Encode()
}
