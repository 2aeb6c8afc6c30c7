package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/toolhost/toolhost/pkg/config"
	"github.com/toolhost/toolhost/pkg/defaults"
	"github.com/toolhost/toolhost/pkg/duration"
	"github.com/toolhost/toolhost/pkg/mcpserver"
	"github.com/toolhost/toolhost/pkg/output/dispatcher"
	"github.com/toolhost/toolhost/pkg/output/hooks"
	"github.com/toolhost/toolhost/pkg/output/writers"
	"github.com/toolhost/toolhost/pkg/ui"
)

// runMCP starts the MCP server.
// Supports two transport modes:
//   - --stdio (default): for IDE integrations (VS Code, Claude Desktop, Cursor)
//   - --http <addr>:     for remote/Docker deployments with session management
func runMCP() {
	fs := flag.NewFlagSet("mcp", flag.ExitOnError)

	stdio := fs.Bool("stdio", true, "Use stdio transport (default, for IDE integration)")
	httpAddr := fs.String("http", "", "HTTP address to listen on (e.g. :8080). Disables stdio.")
	toolsets := fs.String("toolsets", "", "Comma-separated toolsets to enable (default: "+strings.Join(defaults.ToolsetsDefault, ",")+"; \"all\" enables everything)")
	rootDir := fs.String("root", "", "Directory confining filesystem and git operations (default: $HOME)")
	workDir := fs.String("workdir", "", "Default working directory for run_command (default: root)")
	musicDir := fs.String("music", "", "Music library for search_music (default: $HOME/Music)")
	configPath := fs.String("config", "", "YAML config file (flags and env override it)")
	metricsAddr := fs.String("metrics", "", "Prometheus metrics listen address (e.g. :9090)")
	otelEndpoint := fs.String("otel", "", "OTLP gRPC endpoint for traces (e.g. localhost:4317)")
	auditLog := fs.String("audit-log", "", "JSONL audit log for tool-call events")
	noColor := fs.Bool("no-color", false, "Disable colored output")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s mcp [flags]\n\n", defaults.ToolName)
		fmt.Fprintf(os.Stderr, "Start the Toolhost MCP server.\n\n")
		fmt.Fprintf(os.Stderr, "Transports:\n")
		fmt.Fprintf(os.Stderr, "  --stdio          Stdio transport for IDE integration (default)\n")
		fmt.Fprintf(os.Stderr, "  --http <addr>    Streamable HTTP transport for remote/Docker\n\n")
		fmt.Fprintf(os.Stderr, "Environment variables:\n")
		fmt.Fprintf(os.Stderr, "  %s   HTTP listen address (same as --http)\n", defaults.EnvHTTPAddr)
		fmt.Fprintf(os.Stderr, "  %s        Filesystem root (same as --root)\n", defaults.EnvRootDir)
		fmt.Fprintf(os.Stderr, "  %s    Enabled toolsets (same as --toolsets)\n", defaults.EnvToolsets)
		fmt.Fprintf(os.Stderr, "  %s / %s   GitHub token for the github toolset\n\n", defaults.EnvGitHubPAT, defaults.EnvGitHubToken)
		fmt.Fprintf(os.Stderr, "Examples:\n")
		fmt.Fprintf(os.Stderr, "  %s mcp --stdio\n", defaults.ToolName)
		fmt.Fprintf(os.Stderr, "  %s mcp --http :8080 --toolsets fs,shell,system\n", defaults.ToolName)
		fmt.Fprintf(os.Stderr, "  %s=/srv/data %s mcp --http :8080 --metrics :9090\n\n", defaults.EnvRootDir, defaults.ToolName)
		fmt.Fprintf(os.Stderr, "Flags:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(os.Args[2:]); err != nil {
		fatalf("%v", err)
	}
	ui.SetNoColor(*noColor)

	// Precedence: defaults < config file < environment < flags.
	cfg, err := config.Load(*configPath)
	if err != nil {
		fatalf("%v", err)
	}
	cfg.ApplyEnv()
	if *toolsets != "" {
		cfg.Toolsets = config.SplitToolsets(*toolsets)
	}
	if *rootDir != "" {
		cfg.Root = *rootDir
	}
	if *workDir != "" {
		cfg.WorkDir = *workDir
	}
	if *musicDir != "" {
		cfg.MusicDir = *musicDir
	}
	if *httpAddr != "" {
		cfg.HTTPAddr = *httpAddr
	}
	if *metricsAddr != "" {
		cfg.MetricsAddr = *metricsAddr
	}
	if *otelEndpoint != "" {
		cfg.OTelEndpoint = *otelEndpoint
	}
	if err := cfg.Validate(); err != nil {
		fatalf("%v", err)
	}

	disp, cleanup, err := buildDispatcher(cfg, *auditLog)
	if err != nil {
		fatalf("%v", err)
	}
	defer cleanup()

	srv, err := mcpserver.New(&mcpserver.Config{
		Toolsets:     cfg.Toolsets,
		RootDir:      cfg.Root,
		WorkDir:      cfg.WorkDir,
		DenyPatterns: cfg.DenyPatterns,
		GitHubToken:  cfg.GitHubToken(),
		MusicDir:     cfg.MusicDir,
		Dispatcher:   disp,
	})
	if err != nil {
		fatalf("%v", err)
	}
	srv.MarkReady()  // Startup validation passed.
	defer srv.Stop() // Cancel running tasks and wait for goroutine drain.

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if cfg.HTTPAddr != "" {
		*stdio = false
		runHTTP(ctx, srv, cfg.HTTPAddr)
		return
	}

	if *stdio {
		if err := srv.RunStdio(ctx); err != nil {
			fatalf("%v", err)
		}
		return
	}

	fatalf("no transport selected — use --stdio or --http <addr>")
}

// runHTTP serves the MCP HTTP transport until the context is cancelled,
// then drains in-flight requests.
func runHTTP(ctx context.Context, srv *mcpserver.Server, addr string) {
	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           srv.HTTPHandler(),
		ReadHeaderTimeout: duration.HTTPReadHeader,
		ReadTimeout:       duration.HTTPRead,
		// WriteTimeout intentionally 0: SSE streams are long-lived and any
		// non-zero value sets an absolute deadline that kills SSE
		// connections. Async tools return task_id immediately so non-SSE
		// endpoints don't need a write timeout either.
		IdleTimeout:    duration.HTTPIdle,
		MaxHeaderBytes: 1 << 20, // 1 MB
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), duration.HTTPShutdown)
		defer shutdownCancel()
		fmt.Fprintf(os.Stderr, "%s shutting down gracefully…\n", ui.UserAgent())
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			fmt.Fprintf(os.Stderr, "error during shutdown: %v\n", err)
		}
	}()

	fmt.Fprintf(os.Stderr, "%s MCP server listening on %s (HTTP transport, toolsets: %s)\n",
		ui.UserAgent(), addr, strings.Join(srv.EnabledToolsets(), ","))

	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		fatalf("%v", err)
	}
}

// buildDispatcher wires the configured telemetry sinks. Returns a nil
// dispatcher when no sink is configured so the server skips emission
// entirely. The cleanup func flushes and closes every sink.
func buildDispatcher(cfg *config.Config, auditLog string) (*dispatcher.Dispatcher, func(), error) {
	if cfg.MetricsAddr == "" && cfg.OTelEndpoint == "" && auditLog == "" {
		return nil, func() {}, nil
	}

	disp := dispatcher.New(dispatcher.Config{Async: true})
	var closers []func() error

	if auditLog != "" {
		w, err := writers.NewJSONLWriter(auditLog)
		if err != nil {
			return nil, nil, fmt.Errorf("audit log: %w", err)
		}
		disp.RegisterWriter(w)
	}

	if cfg.MetricsAddr != "" {
		h, err := hooks.NewPrometheusHook(hooks.PrometheusOptions{Addr: cfg.MetricsAddr})
		if err != nil {
			return nil, nil, fmt.Errorf("prometheus: %w", err)
		}
		disp.RegisterHook(h)
		closers = append(closers, h.Close)
		fmt.Fprintf(os.Stderr, "%s metrics on %s/metrics\n", ui.UserAgent(), cfg.MetricsAddr)
	}

	if cfg.OTelEndpoint != "" {
		h, err := hooks.NewOTelHook(hooks.OTelOptions{Endpoint: cfg.OTelEndpoint, Insecure: true})
		if err != nil {
			return nil, nil, fmt.Errorf("otel: %w", err)
		}
		disp.RegisterHook(h)
		closers = append(closers, h.Close)
		fmt.Fprintf(os.Stderr, "%s traces to %s\n", ui.UserAgent(), cfg.OTelEndpoint)
	}

	cleanup := func() {
		_ = disp.Close()
		for _, c := range closers {
			_ = c()
		}
	}
	return disp, cleanup, nil
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", a...)
	os.Exit(1)
}
