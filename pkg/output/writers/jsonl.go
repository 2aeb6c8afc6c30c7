// Package writers provides event writers for the dispatcher.
package writers

import (
	"bufio"
	"fmt"
	"os"
	"sync"

	"github.com/toolhost/toolhost/pkg/jsonutil"
	"github.com/toolhost/toolhost/pkg/output/dispatcher"
	"github.com/toolhost/toolhost/pkg/output/events"
)

// Compile-time interface check.
var _ dispatcher.Writer = (*JSONLWriter)(nil)

// JSONLWriter appends events to a file as one JSON object per line.
// Used for the --audit-log flag: every tool call, task transition, and
// server lifecycle event is recorded for later review.
type JSONLWriter struct {
	mu   sync.Mutex
	file *os.File
	buf  *bufio.Writer
}

// NewJSONLWriter opens (or creates) the audit log file in append mode.
func NewJSONLWriter(path string) (*JSONLWriter, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening audit log %s: %w", path, err)
	}
	return &JSONLWriter{
		file: f,
		buf:  bufio.NewWriter(f),
	}, nil
}

// Write appends one event as a JSON line.
func (w *JSONLWriter) Write(event events.Event) error {
	data, err := jsonutil.Marshal(event)
	if err != nil {
		return fmt.Errorf("encoding event: %w", err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := w.buf.Write(data); err != nil {
		return err
	}
	return w.buf.WriteByte('\n')
}

// Flush writes buffered lines to disk.
func (w *JSONLWriter) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.Flush()
}

// Close flushes and closes the underlying file.
func (w *JSONLWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.buf.Flush(); err != nil {
		return err
	}
	return w.file.Close()
}

// SupportsEvent returns true for every event type — the audit log is
// a complete record.
func (w *JSONLWriter) SupportsEvent(events.EventType) bool { return true }
