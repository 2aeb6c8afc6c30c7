// Package events defines the telemetry event types emitted by the MCP
// server. All events are designed for JSON serialization.
//
// BaseEvent is embedded in the concrete event types (ToolCallEvent,
// TaskEvent, ServerEvent) and carries the fields shared by all of them.
package events

import (
	"time"

	"github.com/google/uuid"
)

// EventType represents the type of telemetry event.
type EventType string

const (
	// EventTypeServer marks server lifecycle transitions (start, stop).
	EventTypeServer EventType = "server"
	// EventTypeToolCall records a completed tool invocation.
	EventTypeToolCall EventType = "tool_call"
	// EventTypeTask records an async task lifecycle transition.
	EventTypeTask EventType = "task"
)

// Outcome represents the result of a tool invocation.
type Outcome string

const (
	// OutcomeOK indicates the tool returned a normal result.
	OutcomeOK Outcome = "ok"
	// OutcomeToolError indicates the tool returned an IsError result
	// (bad arguments, denied command, missing file).
	OutcomeToolError Outcome = "tool_error"
	// OutcomeInternalError indicates the handler itself failed.
	OutcomeInternalError Outcome = "internal_error"
)

// Event is the base interface for all events.
type Event interface {
	EventType() EventType
	Timestamp() time.Time
	EventID() string
}

// BaseEvent contains common fields for all events.
// It is designed to be embedded in specific event types.
type BaseEvent struct {
	Type EventType `json:"type"`
	Time time.Time `json:"timestamp"`
	ID   string    `json:"event_id"`
}

// NewBase creates a BaseEvent with the current time and a fresh UUID.
func NewBase(t EventType) BaseEvent {
	return BaseEvent{Type: t, Time: time.Now(), ID: uuid.NewString()}
}

// EventType returns the type of this event.
func (e BaseEvent) EventType() EventType { return e.Type }

// Timestamp returns when this event occurred.
func (e BaseEvent) Timestamp() time.Time { return e.Time }

// EventID returns the unique identifier of this event.
func (e BaseEvent) EventID() string { return e.ID }
