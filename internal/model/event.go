// internal/model/event.go
package model

import (
	"time"

	"github.com/google/uuid"
)

// EventType represents the type of event
type EventType string

const (
	EventInstrumentConnected    EventType = "INSTRUMENT_CONNECTED"
	EventInstrumentDisconnected EventType = "INSTRUMENT_DISCONNECTED"
	EventInstrumentFaulted      EventType = "INSTRUMENT_FAULTED"
	EventInstrumentRecovered    EventType = "INSTRUMENT_RECOVERED"
	EventSweepStarted           EventType = "SWEEP_STARTED"
	EventSweepPoint             EventType = "SWEEP_POINT"
	EventSweepCompleted         EventType = "SWEEP_COMPLETED"
	EventSweepFailed            EventType = "SWEEP_FAILED"
)

// BenchEvent represents an event in the system
type BenchEvent struct {
	ID         uuid.UUID  `json:"id"`
	EventType  EventType  `json:"event_type"`
	Instrument string     `json:"instrument,omitempty"`
	SweepID    *uuid.UUID `json:"sweep_id,omitempty"`
	Data       JSONObject `json:"data,omitempty"`
	Timestamp  time.Time  `json:"timestamp"`
	Severity   string     `json:"severity"` // INFO, WARNING, ERROR
}

// NewBenchEvent builds an event with a fresh ID and timestamp.
func NewBenchEvent(eventType EventType, instrument string, data JSONObject) BenchEvent {
	severity := "INFO"
	switch eventType {
	case EventInstrumentFaulted, EventSweepFailed:
		severity = "ERROR"
	case EventInstrumentDisconnected:
		severity = "WARNING"
	}

	return BenchEvent{
		ID:         uuid.New(),
		EventType:  eventType,
		Instrument: instrument,
		Data:       data,
		Timestamp:  time.Now().UTC(),
		Severity:   severity,
	}
}
