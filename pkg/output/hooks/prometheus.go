package hooks

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/toolhost/toolhost/pkg/duration"
	"github.com/toolhost/toolhost/pkg/output/dispatcher"
	"github.com/toolhost/toolhost/pkg/output/events"
)

// Compile-time interface check.
var _ dispatcher.Hook = (*PrometheusHook)(nil)

// PrometheusHook exposes MCP server metrics for Prometheus scraping.
// It starts an HTTP server that serves metrics at the configured path.
// Metrics include counters for tool calls and errors, a histogram for
// handler latency, and a gauge for active async tasks.
type PrometheusHook struct {
	server   *http.Server
	registry *prometheus.Registry
	opts     PrometheusOptions

	toolCallsTotal  *prometheus.CounterVec
	toolErrorsTotal *prometheus.CounterVec

	toolDurationSeconds *prometheus.HistogramVec

	tasksActive prometheus.Gauge

	mu     sync.Mutex
	closed bool
}

// PrometheusOptions configures the Prometheus hook behavior.
type PrometheusOptions struct {
	// Addr for the metrics server (default: ":9090").
	Addr string

	// Path for the metrics endpoint (default: "/metrics").
	Path string
}

// NewPrometheusHook creates a new Prometheus hook that exposes metrics at
// the configured endpoint. The metrics server starts immediately and runs
// until Close() is called.
func NewPrometheusHook(opts PrometheusOptions) (*PrometheusHook, error) {
	if opts.Addr == "" {
		opts.Addr = ":9090"
	}
	if opts.Path == "" {
		opts.Path = "/metrics"
	}

	// Custom registry — don't pollute the default one.
	registry := prometheus.NewRegistry()

	hook := &PrometheusHook{
		registry: registry,
		opts:     opts,
	}

	if err := hook.initMetrics(); err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}

	if err := hook.startServer(); err != nil {
		return nil, fmt.Errorf("failed to start metrics server: %w", err)
	}

	return hook, nil
}

// initMetrics creates and registers all Prometheus metrics.
func (h *PrometheusHook) initMetrics() error {
	h.toolCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "toolhost_tool_calls_total",
			Help: "Total number of MCP tool invocations",
		},
		[]string{"toolset", "tool", "outcome"},
	)

	h.toolErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "toolhost_tool_errors_total",
			Help: "Total number of tool invocations that returned an error",
		},
		[]string{"toolset", "tool"},
	)

	h.toolDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "toolhost_tool_duration_seconds",
			Help:    "Tool handler latency distribution in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0, 15.0, 60.0},
		},
		[]string{"toolset", "tool"},
	)

	h.tasksActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "toolhost_tasks_active",
			Help: "Number of async tasks currently running",
		},
	)

	collectors := []prometheus.Collector{
		h.toolCallsTotal,
		h.toolErrorsTotal,
		h.toolDurationSeconds,
		h.tasksActive,
	}

	for _, c := range collectors {
		if err := h.registry.Register(c); err != nil {
			return err
		}
	}

	return nil
}

// startServer starts the HTTP server for metrics.
func (h *PrometheusHook) startServer() error {
	mux := http.NewServeMux()
	mux.Handle(h.opts.Path, promhttp.HandlerFor(h.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	}))

	h.server = &http.Server{
		Addr:         h.opts.Addr,
		Handler:      mux,
		ReadTimeout:  duration.MetricsRead,
		WriteTimeout: duration.MetricsWrite,
	}

	go func() {
		if err := h.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("prometheus: metrics server error: %v", err)
		}
	}()

	return nil
}

// OnEvent processes events and updates Prometheus metrics.
func (h *PrometheusHook) OnEvent(ctx context.Context, event events.Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil
	}

	switch e := event.(type) {
	case *events.ToolCallEvent:
		return h.handleToolCall(e)
	case *events.TaskEvent:
		return h.handleTask(e)
	default:
		return nil
	}
}

// handleToolCall updates the per-tool counters and the latency histogram.
func (h *PrometheusHook) handleToolCall(ev *events.ToolCallEvent) error {
	h.toolCallsTotal.WithLabelValues(ev.Toolset, ev.Tool, string(ev.Outcome)).Inc()

	if ev.Outcome != events.OutcomeOK {
		h.toolErrorsTotal.WithLabelValues(ev.Toolset, ev.Tool).Inc()
	}

	if ev.DurationMs > 0 {
		h.toolDurationSeconds.WithLabelValues(ev.Toolset, ev.Tool).Observe(ev.DurationMs / 1000.0)
	}

	return nil
}

// handleTask tracks the active-task gauge from lifecycle transitions.
func (h *PrometheusHook) handleTask(ev *events.TaskEvent) error {
	h.tasksActive.Set(float64(ev.Active))
	return nil
}

// EventTypes returns the event types this hook handles.
func (h *PrometheusHook) EventTypes() []events.EventType {
	return []events.EventType{
		events.EventTypeToolCall,
		events.EventTypeTask,
	}
}

// Close shuts down the metrics server and releases resources.
func (h *PrometheusHook) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil
	}
	h.closed = true

	if h.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), duration.MetricsWrite)
		defer cancel()
		return h.server.Shutdown(ctx)
	}

	return nil
}

// MetricsAddr returns the address where metrics are served.
// Useful for testing and logging.
func (h *PrometheusHook) MetricsAddr() string {
	return fmt.Sprintf("http://localhost%s%s", h.opts.Addr, h.opts.Path)
}
