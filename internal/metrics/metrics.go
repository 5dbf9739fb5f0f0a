package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	HTTPInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "http_in_flight_requests",
		Help: "Current number of in-flight HTTP requests.",
	})

	HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests.",
	}, []string{"method", "route", "status"})

	HTTPDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latencies in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	OutboundCalls = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "outbound_calls_total",
		Help: "Outbound call requests by result.",
	}, []string{"result"}) // created/rejected/failed

	Hangups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hangups_total",
		Help: "Hangup requests by result.",
	}, []string{"result"})

	CallStatusEvents = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "call_status_events_total",
		Help: "Status callbacks received from the voice provider.",
	}, []string{"status"})

	TwiMLResponses = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "twiml_responses_total",
		Help: "Instruction documents served, by action.",
	}, []string{"action"}) // dial/reject

	VoiceTokens = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "voice_tokens_total",
		Help: "Voice access tokens minted, by result.",
	}, []string{"result"})
)

func MustRegister(reg prometheus.Registerer) {
	reg.MustRegister(
		HTTPInFlight, HTTPRequests, HTTPDuration,
		OutboundCalls, Hangups, CallStatusEvents,
		TwiMLResponses, VoiceTokens,
	)
}
