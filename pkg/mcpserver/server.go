// Package mcpserver exposes the toolhost toolsets over the Model
// Context Protocol: filesystem, shell, system info, GitHub/git, audio
// player, and a demo calculator, each individually enableable. The
// server runs over stdio for IDE integrations or over HTTP (streamable
// + SSE) for remote deployments.
package mcpserver

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"runtime/debug"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/toolhost/toolhost/pkg/defaults"
	"github.com/toolhost/toolhost/pkg/duration"
	"github.com/toolhost/toolhost/pkg/fsops"
	"github.com/toolhost/toolhost/pkg/gitops"
	"github.com/toolhost/toolhost/pkg/jsonutil"
	"github.com/toolhost/toolhost/pkg/output/dispatcher"
	"github.com/toolhost/toolhost/pkg/output/events"
	"github.com/toolhost/toolhost/pkg/player"
	"github.com/toolhost/toolhost/pkg/shellexec"
)

// Typed logging level constants — the MCP SDK defines LoggingLevel as a raw
// string type without exported constants. We define them here for type safety.
const (
	logInfo    mcp.LoggingLevel = "info"
	logWarning mcp.LoggingLevel = "warning"
)

// ---------------------------------------------------------------------------
// Configuration
// ---------------------------------------------------------------------------

// Config holds MCP server configuration.
type Config struct {
	// Toolsets lists the enabled toolsets. Empty means the default set.
	Toolsets []string

	// RootDir confines all filesystem and local git operations.
	// Empty means the user's home directory.
	RootDir string

	// WorkDir is the default working directory for run_command.
	// Empty means RootDir.
	WorkDir string

	// DenyPatterns are extra shell deny patterns on top of the built-ins.
	DenyPatterns []string

	// GitHubToken authenticates the github toolset's remote tools.
	// Empty means anonymous (read-only, low rate limit).
	GitHubToken string

	// MusicDir is where search_music looks by default.
	MusicDir string

	// Dispatcher receives telemetry events (tool calls, task
	// transitions, lifecycle). Nil disables event emission.
	Dispatcher *dispatcher.Dispatcher
}

// ---------------------------------------------------------------------------
// Server
// ---------------------------------------------------------------------------

// Server wraps the MCP server with the toolhost toolsets.
type Server struct {
	mcp      *mcp.Server
	config   *Config
	tasks    *TaskManager // async task lifecycle manager
	ready    atomic.Bool  // tracks whether startup validation passed
	syncMode atomic.Bool  // stdio transport runs tools synchronously

	// Toolset backends, nil when the toolset is disabled.
	root   *fsops.Root
	shell  *shellexec.Runner
	github *gitops.GitHub
	git    *gitops.Local
	audio  *player.Player

	// inventory maps toolset name → registered tool names, in
	// registration order. Serves the toolsets resource and CLI listing.
	inventory map[string][]string
	enabled   []string
}

// MCPServer returns the underlying MCP server for direct access (e.g., testing).
func (s *Server) MCPServer() *mcp.Server { return s.mcp }

// Tasks returns the task manager for inspecting async task state (e.g., testing).
func (s *Server) Tasks() *TaskManager { return s.tasks }

// IsSyncMode returns true if the server runs tools synchronously (stdio transport).
func (s *Server) IsSyncMode() bool { return s.syncMode.Load() }

// EnabledToolsets returns the toolsets this server registered.
func (s *Server) EnabledToolsets() []string { return s.enabled }

// ToolInventory returns the registered tool names per toolset, in
// registration order. The "tasks" pseudo-toolset is always present.
func (s *Server) ToolInventory() map[string][]string { return s.inventory }

// Stop shuts down background goroutines, cancels all running tasks, and
// waits for task goroutines to finish (with a timeout to avoid blocking
// indefinitely on hung tasks).
func (s *Server) Stop() {
	s.tasks.Stop()
	s.emit(events.NewServer("stopped", "", s.enabled))
}

// MarkReady signals that startup validation passed. Until MarkReady is
// called, the /health endpoint returns 503 Service Unavailable.
func (s *Server) MarkReady() { s.ready.Store(true) }

// IsReady returns true if the server has completed startup validation.
func (s *Server) IsReady() bool { return s.ready.Load() }

// New creates an MCP server with the enabled toolsets' tools, resources,
// and prompts registered.
func New(cfg *Config) (*Server, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	if len(cfg.Toolsets) == 0 {
		cfg.Toolsets = defaults.ToolsetsDefault
	}
	for _, ts := range cfg.Toolsets {
		if !defaults.KnownToolset(ts) {
			return nil, fmt.Errorf("unknown toolset %q (known: %s)", ts, strings.Join(defaults.ToolsetsAll, ", "))
		}
	}
	if cfg.RootDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolving home directory: %w", err)
		}
		cfg.RootDir = home
	}

	s := &Server{
		config:    cfg,
		tasks:     NewTaskManager(),
		inventory: make(map[string][]string),
		enabled:   cfg.Toolsets,
	}

	if s.toolsetEnabled(defaults.ToolsetFS) || s.toolsetEnabled(defaults.ToolsetGitHub) {
		root, err := fsops.NewRoot(cfg.RootDir)
		if err != nil {
			return nil, fmt.Errorf("invalid root directory: %w", err)
		}
		s.root = root
	}
	if s.toolsetEnabled(defaults.ToolsetShell) {
		workDir := cfg.WorkDir
		if workDir == "" {
			workDir = cfg.RootDir
		}
		s.shell = shellexec.NewRunner(workDir, cfg.DenyPatterns)
	}
	if s.toolsetEnabled(defaults.ToolsetGitHub) {
		s.github = gitops.NewGitHub(cfg.GitHubToken)
		s.git = gitops.NewLocal(s.root)
	}
	if s.toolsetEnabled(defaults.ToolsetAudio) {
		musicDir := cfg.MusicDir
		if musicDir == "" {
			musicDir = cfg.RootDir
		}
		s.audio = player.New(musicDir)
	}

	s.mcp = mcp.NewServer(
		&mcp.Implementation{
			Name:    defaults.ToolName,
			Title:   defaults.ToolNameDisplay,
			Version: defaults.Version,
		},
		&mcp.ServerOptions{
			Instructions: s.buildInstructions(),
		},
	)

	s.registerTools()
	s.registerResources()
	s.registerPrompts()

	return s, nil
}

// toolsetEnabled reports whether the named toolset is active.
func (s *Server) toolsetEnabled(name string) bool {
	for _, ts := range s.config.Toolsets {
		if ts == name {
			return true
		}
	}
	return false
}

// emit sends a telemetry event through the configured dispatcher.
// Nil-safe: without a dispatcher events are dropped.
func (s *Server) emit(ev events.Event) {
	if s.config.Dispatcher != nil {
		_ = s.config.Dispatcher.Dispatch(context.Background(), ev)
	}
}

// addTool registers a tool under a toolset and wraps its handler to
// emit a ToolCallEvent with timing and outcome after every invocation.
func (s *Server) addTool(toolset string, tool *mcp.Tool, handler mcp.ToolHandler) {
	wrapped := func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		start := time.Now()
		res, err := handler(ctx, req)

		outcome := events.OutcomeOK
		errMsg := ""
		switch {
		case err != nil:
			outcome = events.OutcomeInternalError
			errMsg = err.Error()
		case res != nil && res.IsError:
			outcome = events.OutcomeToolError
			errMsg = firstText(res)
		}
		s.emit(events.NewToolCall(toolset, tool.Name, outcome, time.Since(start), errMsg))
		return res, err
	}
	s.mcp.AddTool(tool, wrapped)
	s.inventory[toolset] = append(s.inventory[toolset], tool.Name)
}

// firstText returns the first text content block of a result, for
// error telemetry.
func firstText(res *mcp.CallToolResult) string {
	for _, c := range res.Content {
		if tc, ok := c.(*mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

// ---------------------------------------------------------------------------
// Transports
// ---------------------------------------------------------------------------

// RunStdio runs the MCP server over stdio transport.
// This is the primary mode for IDE integrations (VS Code, Claude Desktop, Cursor).
// In stdio mode, long-running tools execute synchronously because each
// client connection maps to a single process — async task state would be
// lost when the process exits between invocations.
func (s *Server) RunStdio(ctx context.Context) error {
	s.syncMode.Store(true)
	log.Println("[mcp] stdio transport: sync mode enabled (long-running tools will block)")
	s.emit(events.NewServer("started", "stdio", s.enabled))
	return s.mcp.Run(ctx, &mcp.StdioTransport{})
}

// HTTPHandler returns an http.Handler for the streamable HTTP transport with
// CORS support and a /health endpoint. This is the primary handler for remote
// and Docker deployments.
//
// The handler mounts:
//   - /health      → readiness/liveness probe (GET only)
//   - /sse         → legacy SSE transport for n8n and older MCP clients
//   - /mcp         → streamable HTTP transport (2025-03-26 spec)
//   - /             → streamable HTTP transport (default mount)
//
// All endpoints include CORS headers for browser and cross-origin MCP clients.
func (s *Server) HTTPHandler() http.Handler {
	streamable := mcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcp.Server { return s.mcp },
		&mcp.StreamableHTTPOptions{Stateless: false},
	)

	sse := mcp.NewSSEHandler(
		func(_ *http.Request) *mcp.Server { return s.mcp },
		nil, // default SSE options
	)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/sse", sseKeepAlive(sse))
	mux.Handle("/mcp", streamable)
	mux.Handle("/", streamable)

	s.emit(events.NewServer("started", "http", s.enabled))
	return corsMiddleware(recoveryMiddleware(securityHeaders(mux)))
}

// SSEHandler returns an http.Handler for the legacy SSE transport only.
// Use this when you need a standalone SSE endpoint behind a reverse
// proxy that handles its own CORS and health checks. Includes SSE
// keep-alive to prevent proxy idle timeouts.
func (s *Server) SSEHandler() http.Handler {
	sse := mcp.NewSSEHandler(
		func(_ *http.Request) *mcp.Server { return s.mcp },
		nil,
	)
	return recoveryMiddleware(securityHeaders(sseKeepAlive(sse)))
}

// handleHealth serves a readiness/liveness probe.
// Returns 200 when the server is ready, 503 Service Unavailable before
// MarkReady() is called.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if !s.IsReady() {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"status":"starting","service":"toolhost-mcp"}`))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok","service":"toolhost-mcp"}`))
}

// corsMiddleware wraps an http.Handler with permissive CORS headers required
// by browser-based MCP clients and cross-origin integrations.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")

		// Always set Vary: Origin so caches don't serve a CORS-enabled response
		// to a non-browser client or vice versa.
		w.Header().Add("Vary", "Origin")

		if origin == "" {
			// No Origin header = non-browser client; skip CORS headers entirely.
			// Setting "*" with Allow-Credentials violates the Fetch specification.
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers",
			strings.Join([]string{
				"Content-Type",
				"Authorization",
				"Mcp-Session-Id",
				"MCP-Protocol-Version",
				"Last-Event-ID",
				"Accept",
			}, ", "))
		w.Header().Set("Access-Control-Expose-Headers", "Mcp-Session-Id, MCP-Protocol-Version")
		w.Header().Set("Access-Control-Allow-Credentials", "true")
		w.Header().Set("Access-Control-Max-Age", "86400")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// recoveryMiddleware catches panics in HTTP handlers and returns a 500 error
// instead of killing the connection.
func recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				log.Printf("panic in HTTP handler: %v\n%s", err, debug.Stack())

				// Best-effort error response: if headers were already sent
				// (e.g., during SSE streaming), WriteHeader is a no-op.
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte(`{"error":"internal server error"}`))
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// securityHeaders adds standard defense-in-depth headers. These prevent
// MIME-sniffing, clickjacking, and cross-domain policy abuse.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		next.ServeHTTP(w, r)
	})
}

// sseKeepAlive wraps an SSE handler to send periodic keep-alive comments.
// This prevents reverse proxies (nginx, AWS ALB, Cloudflare, Docker) from
// closing idle SSE connections.
func sseKeepAlive(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Only apply keep-alive to SSE streams (text/event-stream).
		accept := r.Header.Get("Accept")
		if !strings.Contains(accept, "text/event-stream") {
			next.ServeHTTP(w, r)
			return
		}

		flusher, ok := w.(http.Flusher)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		// Wrap the ResponseWriter to intercept SSE streaming.
		kw := &keepAliveWriter{
			ResponseWriter: w,
			flusher:        flusher,
			done:           make(chan struct{}),
		}

		go kw.keepAliveLoop()
		defer close(kw.done)

		next.ServeHTTP(kw, r)
	})
}

// keepAliveWriter wraps http.ResponseWriter to send SSE keep-alive comments.
// All writes are serialized through a mutex to prevent data races between
// the keep-alive goroutine and the SSE handler's event writes.
type keepAliveWriter struct {
	mu sync.Mutex
	http.ResponseWriter
	flusher http.Flusher
	done    chan struct{}
}

// Write serializes access to the underlying ResponseWriter.
func (kw *keepAliveWriter) Write(p []byte) (int, error) {
	kw.mu.Lock()
	defer kw.mu.Unlock()
	return kw.ResponseWriter.Write(p)
}

// Flush implements http.Flusher. Without this, the SSE SDK handler's
// w.(http.Flusher) type assertion fails on the wrapper, causing SSE events
// to buffer indefinitely and never reach the client.
func (kw *keepAliveWriter) Flush() {
	kw.mu.Lock()
	defer kw.mu.Unlock()
	kw.flusher.Flush()
}

// Unwrap returns the underlying ResponseWriter. This enables Go 1.20+
// http.ResponseController to discover capabilities (Flusher, Hijacker)
// through wrapped writers.
func (kw *keepAliveWriter) Unwrap() http.ResponseWriter {
	return kw.ResponseWriter
}

func (kw *keepAliveWriter) keepAliveLoop() {
	ticker := time.NewTicker(duration.SSEKeepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-kw.done:
			return
		case <-ticker.C:
			// SSE comment line — ignored by clients, keeps connection alive.
			kw.mu.Lock()
			_, err := kw.ResponseWriter.Write([]byte(": keepalive\n\n"))
			if err != nil {
				kw.mu.Unlock()
				return // Connection closed.
			}
			kw.flusher.Flush()
			kw.mu.Unlock()
		}
	}
}

// ---------------------------------------------------------------------------
// Helpers — result builders
// ---------------------------------------------------------------------------

// notifyProgress sends a progress notification to the client if a progress
// token was provided in the request. Safe to call when session/token is nil.
func notifyProgress(ctx context.Context, req *mcp.CallToolRequest, progress, total float64, message string) {
	token := req.Params.GetProgressToken()
	if token == nil || req.Session == nil {
		return
	}
	// Best-effort: progress notifications are advisory; failure does not
	// affect tool execution and there is no meaningful recovery action.
	_ = req.Session.NotifyProgress(ctx, &mcp.ProgressNotificationParams{
		ProgressToken: token,
		Progress:      progress,
		Total:         total,
		Message:       message,
	})
}

// logToSession sends a structured log message to the MCP client.
func logToSession(ctx context.Context, req *mcp.CallToolRequest, level mcp.LoggingLevel, data any) {
	if req.Session == nil {
		return
	}
	// Best-effort: log delivery is advisory; failure does not affect
	// tool execution and there is no meaningful recovery action.
	_ = req.Session.Log(ctx, &mcp.LoggingMessageParams{
		Level:  level,
		Logger: defaults.ToolName,
		Data:   data,
	})
}

// textResult creates a CallToolResult with a single text content block.
func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}
}

// jsonResult marshals v to indented JSON and wraps it in a CallToolResult.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := jsonutil.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling result: %w", err)
	}
	return textResult(string(data)), nil
}

// errorResult creates an IsError CallToolResult so the LLM can see the error
// and self-correct rather than raising a protocol-level exception. Messages
// carry a uniform "Error: " prefix.
func errorResult(format string, a ...any) *mcp.CallToolResult {
	msg := fmt.Sprintf(format, a...)
	if !strings.HasPrefix(msg, "Error: ") {
		msg = "Error: " + msg
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: msg},
		},
		IsError: true,
	}
}

// enrichedError creates a structured error response with recovery guidance
// for AI agents. The JSON envelope matches the enriched success responses so
// LLMs can use the same parsing logic for both success and error paths.
func enrichedError(msg string, recoverySteps []string) *mcp.CallToolResult {
	type errResponse struct {
		Error         string   `json:"error"`
		RecoverySteps []string `json:"recovery_steps"`
	}
	data, _ := jsonutil.MarshalIndent(errResponse{
		Error:         "Error: " + msg,
		RecoverySteps: recoverySteps,
	}, "", "  ")
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(data)},
		},
		IsError: true,
	}
}

// boolPtr returns a pointer to b. Used for optional bool fields in the SDK.
func boolPtr(b bool) *bool { return &b }

// parseArgs unmarshals the raw JSON arguments from a tool call into dst.
func parseArgs(req *mcp.CallToolRequest, dst any) error {
	if len(req.Params.Arguments) == 0 {
		return nil
	}
	if err := jsonutil.Unmarshal(req.Params.Arguments, dst); err != nil {
		return fmt.Errorf("parsing tool arguments: %w", err)
	}
	return nil
}

// runsAsync reports whether a long-running tool should go through the
// task manager. True only on HTTP transports: stdio clients block on a
// single process, so tasks would be lost between invocations.
func (s *Server) runsAsync() bool {
	return !s.syncMode.Load()
}
