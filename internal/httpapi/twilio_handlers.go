package httpapi

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"github.com/hackercall/backend/internal/eventlog"
	"github.com/hackercall/backend/internal/metrics"
	"github.com/hackercall/backend/internal/phone"
)

// Minimal TwiML: either bridge to a number or announce and hang up.
// Twilio expects Content-Type: text/xml.
type twimlResponse struct {
	XMLName xml.Name     `xml:"Response"`
	Say     *twimlSay    `xml:"Say,omitempty"`
	Dial    *twimlDial   `xml:"Dial,omitempty"`
	Hangup  *twimlHangup `xml:"Hangup,omitempty"`
}

type twimlSay struct {
	Voice string `xml:"voice,attr,omitempty"`
	Text  string `xml:",chardata"`
}

type twimlDial struct {
	CallerID string `xml:"callerId,attr,omitempty"`
	Number   string `xml:"Number"`
}

type twimlHangup struct{}

const cannotPlaceCallText = "No valid number provided. Cannot place call."

// knownCallStatuses bounds the status label on call_status_events_total.
var knownCallStatuses = map[string]bool{
	"queued":      true,
	"initiated":   true,
	"ringing":     true,
	"answered":    true,
	"in-progress": true,
	"completed":   true,
	"busy":        true,
	"failed":      true,
	"no-answer":   true,
	"canceled":    true,
}

// handleTwiML tells Twilio what to do with an answered call. The canonical
// behavior is to bridge to the destination number. Bad input degrades to a
// spoken failure and a hangup, always with 200, since Twilio cannot recover
// from an error status here.
func (r *Router) handleTwiML(w http.ResponseWriter, req *http.Request) {
	// ?to= for calls placed via /call, To= for calls from the browser SDK.
	to := queryDestination(req.URL.RawQuery)
	if to == "" {
		to = req.FormValue("To")
	}
	callID := req.FormValue("callId")

	number, err := phone.Validate(to)
	if err != nil {
		metrics.TwiMLResponses.WithLabelValues("reject").Inc()
		r.logger.Printf("twiml: cannot dial %q (callId=%s): %v", to, callID, err)
		r.eventLog.Log(req.FormValue("CallSid"), eventlog.EventTwiMLRejected, map[string]any{"to": to, "callId": callID})
		writeTwiML(w, twimlResponse{
			Say:    &twimlSay{Text: cannotPlaceCallText},
			Hangup: &twimlHangup{},
		})
		return
	}

	metrics.TwiMLResponses.WithLabelValues("dial").Inc()
	r.logger.Printf("twiml: dialing %s (callId=%s)", number, callID)
	r.eventLog.Log(req.FormValue("CallSid"), eventlog.EventTwiMLDial, map[string]any{"to": number, "callId": callID})
	writeTwiML(w, twimlResponse{
		Dial: &twimlDial{CallerID: r.cfg.FromNumber, Number: number},
	})
}

// queryDestination reads "to" from the raw query keeping a literal '+'.
// Form decoding would turn "?to=+91..." into " 91...".
func queryDestination(rawQuery string) string {
	q, err := url.ParseQuery(strings.ReplaceAll(rawQuery, "+", "%2B"))
	if err != nil {
		return ""
	}
	return q.Get("to")
}

func writeTwiML(w http.ResponseWriter, resp twimlResponse) {
	out, _ := xml.MarshalIndent(resp, "", "  ")
	w.Header().Set("Content-Type", "text/xml; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(xml.Header))
	_, _ = w.Write(out)
}

// handleTwilioStatus acknowledges call progress events. It never fails:
// anything that goes wrong while reading the event is logged and dropped.
func (r *Router) handleTwilioStatus(w http.ResponseWriter, req *http.Request) {
	r.ingestStatus(req)
	w.WriteHeader(http.StatusOK)
}

func (r *Router) ingestStatus(req *http.Request) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Printf("status: recovered while ingesting event: %v", rec)
		}
	}()

	fields, err := parseStatusEvent(req)
	if err != nil {
		r.logger.Printf("status: malformed event: %v", err)
		r.eventLog.Log("", eventlog.EventStatusMalformed, map[string]any{"error": err.Error()})
		metrics.CallStatusEvents.WithLabelValues("malformed").Inc()
		return
	}

	callSid := stringField(fields, "CallSid")
	status := stringField(fields, "CallStatus")

	label := status
	if !knownCallStatuses[label] {
		label = "other"
	}
	metrics.CallStatusEvents.WithLabelValues(label).Inc()
	r.eventLog.Log(callSid, eventlog.EventStatusReceived, fields)
}

// parseStatusEvent reads a form-encoded (Twilio default) or JSON body.
func parseStatusEvent(req *http.Request) (map[string]any, error) {
	body, err := io.ReadAll(io.LimitReader(req.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	fields := map[string]any{}
	if len(body) == 0 {
		return fields, nil
	}

	mediaType, _, _ := mime.ParseMediaType(req.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		if err := json.Unmarshal(body, &fields); err != nil {
			return nil, fmt.Errorf("decode json: %w", err)
		}
		return fields, nil
	}

	values, err := url.ParseQuery(string(body))
	if err != nil {
		return nil, fmt.Errorf("decode form: %w", err)
	}
	for k, v := range values {
		if len(v) == 1 {
			fields[k] = v[0]
		} else {
			fields[k] = v
		}
	}
	return fields, nil
}

func stringField(fields map[string]any, key string) string {
	s, _ := fields[key].(string)
	return s
}
