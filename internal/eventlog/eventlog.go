package eventlog

import (
	"encoding/json"
	"log"
)

// EventType represents the type of call event
type EventType string

const (
	EventCallRequested   EventType = "call_requested"
	EventCallRejected    EventType = "call_rejected"
	EventCallCreated     EventType = "call_created"
	EventCallFailed      EventType = "call_failed"
	EventTwiMLDial       EventType = "twiml_dial"
	EventTwiMLRejected   EventType = "twiml_rejected"
	EventStatusReceived  EventType = "status_received"
	EventStatusMalformed EventType = "status_malformed"
	EventHangupRequested EventType = "hangup_requested"
	EventHangupFailed    EventType = "hangup_failed"
	EventTokenIssued     EventType = "token_issued"
	EventTokenFailed     EventType = "token_failed"
)

// Logger writes call lifecycle events as single structured lines.
// Nothing is persisted; the events exist for observability only.
type Logger struct {
	logger *log.Logger
}

// New creates a new event logger
func New(logger *log.Logger) *Logger {
	return &Logger{logger: logger}
}

// Log writes an event line. callID may be empty for events that precede
// the provider assigning a call SID.
func (l *Logger) Log(callID string, eventType EventType, data map[string]any) {
	if l == nil || l.logger == nil {
		return
	}

	dataJSON, err := json.Marshal(data)
	if err != nil || data == nil {
		dataJSON = []byte("{}")
	}

	if callID == "" {
		callID = "-"
	}
	l.logger.Printf("event=%s call=%s data=%s", eventType, callID, dataJSON)
}
