package dispatcher_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/toolhost/toolhost/pkg/output/dispatcher"
	"github.com/toolhost/toolhost/pkg/output/events"
)

// recordingHook captures every event it receives.
type recordingHook struct {
	mu     sync.Mutex
	types  []events.EventType
	events []events.Event
}

func (h *recordingHook) OnEvent(_ context.Context, ev events.Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, ev)
	return nil
}

func (h *recordingHook) EventTypes() []events.EventType { return h.types }

func (h *recordingHook) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.events)
}

// recordingWriter captures written events and tracks Flush/Close.
type recordingWriter struct {
	mu      sync.Mutex
	written []events.Event
	flushed bool
	closed  bool
	only    events.EventType
}

func (w *recordingWriter) Write(ev events.Event) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.written = append(w.written, ev)
	return nil
}

func (w *recordingWriter) Flush() error { w.mu.Lock(); defer w.mu.Unlock(); w.flushed = true; return nil }
func (w *recordingWriter) Close() error { w.mu.Lock(); defer w.mu.Unlock(); w.closed = true; return nil }

func (w *recordingWriter) SupportsEvent(t events.EventType) bool {
	return w.only == "" || w.only == t
}

func TestDispatchRoutesToHooksAndWriters(t *testing.T) {
	d := dispatcher.New(dispatcher.Config{})
	hook := &recordingHook{}
	writer := &recordingWriter{}
	d.RegisterHook(hook)
	d.RegisterWriter(writer)

	ev := events.NewToolCall("fs", "read_file", events.OutcomeOK, time.Millisecond, "")
	require.NoError(t, d.Dispatch(context.Background(), ev))

	assert.Equal(t, 1, hook.count())
	assert.Len(t, writer.written, 1)
}

func TestDispatchFiltersByEventType(t *testing.T) {
	d := dispatcher.New(dispatcher.Config{})
	taskOnly := &recordingHook{types: []events.EventType{events.EventTypeTask}}
	d.RegisterHook(taskOnly)
	toolWriter := &recordingWriter{only: events.EventTypeToolCall}
	d.RegisterWriter(toolWriter)

	_ = d.Dispatch(context.Background(), events.NewToolCall("fs", "read_file", events.OutcomeOK, 0, ""))
	_ = d.Dispatch(context.Background(), events.NewTask("task_1", "run_command", "completed", 0))

	assert.Equal(t, 1, taskOnly.count())
	assert.Len(t, toolWriter.written, 1)
	assert.Equal(t, events.EventTypeToolCall, toolWriter.written[0].EventType())
}

func TestAsyncDispatchDrainsOnClose(t *testing.T) {
	d := dispatcher.New(dispatcher.Config{Async: true})
	hook := &recordingHook{}
	d.RegisterHook(hook)

	for i := 0; i < 20; i++ {
		_ = d.Dispatch(context.Background(), events.NewToolCall("calc", "calculate", events.OutcomeOK, 0, ""))
	}
	require.NoError(t, d.Close())

	assert.Equal(t, 20, hook.count())
}

func TestCloseFlushesAndClosesWriters(t *testing.T) {
	d := dispatcher.New(dispatcher.Config{})
	writer := &recordingWriter{}
	d.RegisterWriter(writer)

	require.NoError(t, d.Close())
	assert.True(t, writer.flushed)
	assert.True(t, writer.closed)
}
