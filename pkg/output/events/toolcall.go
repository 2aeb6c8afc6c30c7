package events

import "time"

// ToolCallEvent records a completed MCP tool invocation.
type ToolCallEvent struct {
	BaseEvent

	// Toolset the tool belongs to (fs, shell, system, github, audio,
	// calc, or "core" for the task management tools).
	Toolset string `json:"toolset"`

	// Tool is the MCP tool name (e.g. "read_file").
	Tool string `json:"tool"`

	// Outcome classifies the result.
	Outcome Outcome `json:"outcome"`

	// DurationMs is handler wall time in milliseconds.
	DurationMs float64 `json:"duration_ms"`

	// Err carries the error message for non-ok outcomes.
	Err string `json:"error,omitempty"`

	// Async is true when the call only launched a background task.
	Async bool `json:"async,omitempty"`
}

// NewToolCall builds a ToolCallEvent for a finished invocation.
func NewToolCall(toolset, tool string, outcome Outcome, elapsed time.Duration, errMsg string) *ToolCallEvent {
	return &ToolCallEvent{
		BaseEvent:  NewBase(EventTypeToolCall),
		Toolset:    toolset,
		Tool:       tool,
		Outcome:    outcome,
		DurationMs: float64(elapsed.Microseconds()) / 1000.0,
		Err:        errMsg,
	}
}
