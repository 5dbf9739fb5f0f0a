package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"strconv"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"
	"github.com/hackercall/backend/internal/eventlog"
	"github.com/hackercall/backend/internal/metrics"
	"github.com/hackercall/backend/internal/twilio"
)

type RouterConfig struct {
	// Externally reachable base URL Twilio uses for webhooks
	PublicBaseURL string

	// Twilio number outbound calls originate from (E.164)
	FromNumber string

	// Serves GET /metrics when set
	MetricsHandler http.Handler
}

// VoiceAPI is the part of the Twilio client the handlers depend on.
type VoiceAPI interface {
	CreateCall(ctx context.Context, p twilio.CallParams) (*twilio.Call, error)
	HangupCall(ctx context.Context, callSID string) error
	VoiceToken(identity string) (string, error)
}

type Router struct {
	cfg      RouterConfig
	logger   *log.Logger
	voice    VoiceAPI
	eventLog *eventlog.Logger
	mux      *http.ServeMux

	newCallID   func() string
	newIdentity func() string
}

func NewRouter(cfg RouterConfig, logger *log.Logger, voice VoiceAPI, eventLog *eventlog.Logger) http.Handler {
	r := &Router{
		cfg:         cfg,
		logger:      logger,
		voice:       voice,
		eventLog:    eventLog,
		mux:         http.NewServeMux(),
		newCallID:   uuid.NewString,
		newIdentity: randomIdentity,
	}

	r.routes()
	return withSentryRecovery(withCORS(r.mux))
}

func (r *Router) routes() {
	r.handle("GET /{$}", r.handleRoot)
	r.handle("GET /user", r.handleUser)
	r.handle("GET /healthz", r.handleHealthz)
	if r.cfg.MetricsHandler != nil {
		r.mux.Handle("GET /metrics", r.cfg.MetricsHandler)
	}

	// Call control (browser client)
	r.handle("POST /call", r.handleCall)
	r.handle("DELETE /hangup/{callSid}", r.handleHangup)
	r.handle("DELETE /hangup/{$}", r.handleHangup)
	r.handle("GET /token", r.handleToken)

	// Twilio webhooks. POST /twiml is what the TwiML app hits for SDK calls.
	r.handle("GET /twiml", r.handleTwiML)
	r.handle("POST /twiml", r.handleTwiML)
	r.handle("POST /twilio/status", r.handleTwilioStatus)
}

func (r *Router) handle(pattern string, h http.HandlerFunc) {
	r.mux.Handle(pattern, instrument(pattern, h))
}

func (r *Router) handleRoot(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("Hacker Call Backend (Twilio Connected)"))
}

func (r *Router) handleUser(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"user": "Hacker Terminal"})
}

func (r *Router) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func withSentryRecovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				hub := sentry.CurrentHub().Clone()
				hub.Scope().SetRequest(req)
				hub.RecoverWithContext(req.Context(), err)
				hub.Flush(2 * time.Second)
				http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, req)
	})
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,DELETE,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
		if req.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, req)
	})
}

// statusRecorder captures the status code for metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func instrument(route string, next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		metrics.HTTPInFlight.Inc()
		defer metrics.HTTPInFlight.Dec()

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(rec, req)

		metrics.HTTPDuration.WithLabelValues(req.Method, route).Observe(time.Since(start).Seconds())
		metrics.HTTPRequests.WithLabelValues(req.Method, route, strconv.Itoa(rec.status)).Inc()
	})
}

// captureError sends an error to Sentry with request context
func captureError(req *http.Request, err error, msg string) {
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetRequest(req)
		scope.SetExtra("message", msg)
		sentry.CaptureException(err)
	})
}

// randomIdentity labels a browser client. Collisions are unlikely, not impossible.
func randomIdentity() string {
	return fmt.Sprintf("hacker_%d", rand.Intn(99999))
}
