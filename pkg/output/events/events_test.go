package events_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/toolhost/toolhost/pkg/jsonutil"
	"github.com/toolhost/toolhost/pkg/output/events"
)

func TestNewToolCall(t *testing.T) {
	ev := events.NewToolCall("fs", "read_file", events.OutcomeOK, 1500*time.Microsecond, "")

	assert.Equal(t, events.EventTypeToolCall, ev.EventType())
	assert.Equal(t, "fs", ev.Toolset)
	assert.Equal(t, "read_file", ev.Tool)
	assert.InDelta(t, 1.5, ev.DurationMs, 0.001)
	assert.NotEmpty(t, ev.EventID())
	assert.False(t, ev.Timestamp().IsZero())
}

func TestToolCallEventSerializes(t *testing.T) {
	ev := events.NewToolCall("shell", "run_command", events.OutcomeToolError, time.Millisecond, "Error: command blocked")

	data, err := jsonutil.Marshal(ev)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, jsonutil.Unmarshal(data, &decoded))
	assert.Equal(t, "tool_call", decoded["type"])
	assert.Equal(t, "tool_error", decoded["outcome"])
	assert.Equal(t, "Error: command blocked", decoded["error"])
}

func TestTaskEvent(t *testing.T) {
	ev := events.NewTask("task_abc", "run_command", "completed", 2)
	assert.Equal(t, events.EventTypeTask, ev.EventType())
	assert.Equal(t, "task_abc", ev.TaskID)
	assert.Equal(t, 2, ev.Active)
}

func TestServerEvent(t *testing.T) {
	ev := events.NewServer("started", "http", []string{"fs", "shell"})
	assert.Equal(t, events.EventTypeServer, ev.EventType())
	assert.Equal(t, "http", ev.Transport)
}

func TestEventIDsAreUnique(t *testing.T) {
	a := events.NewBase(events.EventTypeToolCall)
	b := events.NewBase(events.EventTypeToolCall)
	assert.NotEqual(t, a.EventID(), b.EventID())
}
