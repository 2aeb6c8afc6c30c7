package writers_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/toolhost/toolhost/pkg/jsonutil"
	"github.com/toolhost/toolhost/pkg/output/events"
	"github.com/toolhost/toolhost/pkg/output/writers"
)

func TestJSONLWriterAppendsOneLinePerEvent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")

	w, err := writers.NewJSONLWriter(path)
	require.NoError(t, err)

	require.NoError(t, w.Write(events.NewToolCall("fs", "read_file", events.OutcomeOK, time.Millisecond, "")))
	require.NoError(t, w.Write(events.NewTask("task_1", "run_command", "running", 1)))
	require.NoError(t, w.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	for _, line := range lines {
		assert.True(t, jsonutil.Valid([]byte(line)), "line is not valid JSON: %s", line)
	}
	assert.Contains(t, lines[0], `"tool_call"`)
	assert.Contains(t, lines[1], `"task"`)
}

func TestJSONLWriterAppendsAcrossReopens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")

	for i := 0; i < 2; i++ {
		w, err := writers.NewJSONLWriter(path)
		require.NoError(t, err)
		require.NoError(t, w.Write(events.NewServer("started", "stdio", nil)))
		require.NoError(t, w.Close())
	}

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(string(data), "\n"))
}

func TestJSONLWriterSupportsAllEvents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	w, err := writers.NewJSONLWriter(path)
	require.NoError(t, err)
	defer w.Close()

	assert.True(t, w.SupportsEvent(events.EventTypeToolCall))
	assert.True(t, w.SupportsEvent(events.EventTypeTask))
	assert.True(t, w.SupportsEvent(events.EventTypeServer))
}
