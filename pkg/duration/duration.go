// Package duration provides canonical time constants for the entire codebase.
// This is the SINGLE SOURCE OF TRUTH for all time-based configuration.
//
// Usage:
//
//	ctx, cancel := context.WithTimeout(ctx, duration.GitRemote)
//	ticker := time.NewTicker(duration.SSEKeepAlive)
//
// DO NOT use hardcoded time.Duration values like `30 * time.Second` anywhere.
// Instead, reference the appropriate constant from this package.
package duration

import "time"

// ============================================================================
// TOOL EXECUTION TIMEOUTS
// ============================================================================
//
// Use these to bound individual tool operations.
// ============================================================================

const (
	// ShellDefault is the default run_command timeout (60s)
	ShellDefault = 60 * time.Second

	// ShellMax is the hard ceiling on a run_command timeout (10min)
	ShellMax = 10 * time.Minute

	// GitLocal bounds fast local git operations: status, add, commit,
	// branch, switch, log (30s)
	GitLocal = 30 * time.Second

	// GitRemote bounds network git operations: push, pull (5min)
	GitRemote = 5 * time.Minute

	// GitHubAPI bounds a single GitHub REST call (30s)
	GitHubAPI = 30 * time.Second

	// PlayerCommand bounds a playerctl/pactl/vlc invocation (10s)
	PlayerCommand = 10 * time.Second

	// ServiceQuery bounds a systemctl status query (10s)
	ServiceQuery = 10 * time.Second

	// SysinfoSample is the CPU usage sampling window (1s)
	SysinfoSample = 1 * time.Second

	// FSWalk bounds recursive filesystem walks: directory_stats,
	// find_large_files, find_git_repos (2min)
	FSWalk = 2 * time.Minute
)

// ============================================================================
// ASYNC TASK LIFECYCLE
// ============================================================================

const (
	// TaskTTL is how long completed/failed/cancelled tasks are kept (30min)
	TaskTTL = 30 * time.Minute

	// TaskCleanupInterval is how often expired tasks are reaped (5min)
	TaskCleanupInterval = 5 * time.Minute

	// TaskMax is the hard ceiling on any single task's runtime (30min)
	TaskMax = 30 * time.Minute

	// TaskDrain is how long Stop() waits for task goroutines (10s)
	TaskDrain = 10 * time.Second

	// TaskProgressPulse is how often silent tasks refresh their message
	// so pollers can tell the task is alive (5s)
	TaskProgressPulse = 5 * time.Second
)

// ============================================================================
// HTTP SERVER
// ============================================================================

const (
	// HTTPReadHeader protects against slowloris clients (10s)
	HTTPReadHeader = 10 * time.Second

	// HTTPRead bounds full request reads (30s)
	HTTPRead = 30 * time.Second

	// HTTPIdle releases idle TCP connections quickly (30s)
	HTTPIdle = 30 * time.Second

	// HTTPShutdown is the graceful shutdown drain window (15s)
	HTTPShutdown = 15 * time.Second

	// SSEKeepAlive is the interval for SSE keep-alive comments (15s) —
	// well within the typical 60s idle timeout of reverse proxies.
	SSEKeepAlive = 15 * time.Second
)

// ============================================================================
// OBSERVABILITY
// ============================================================================

const (
	// MetricsRead is the metrics server read timeout (5s)
	MetricsRead = 5 * time.Second

	// MetricsWrite is the metrics server write timeout (10s)
	MetricsWrite = 10 * time.Second

	// OTelConnect bounds the OTLP exporter connection attempt (10s)
	OTelConnect = 10 * time.Second

	// OTelShutdown bounds the OTLP exporter flush on shutdown (5s)
	OTelShutdown = 5 * time.Second
)
