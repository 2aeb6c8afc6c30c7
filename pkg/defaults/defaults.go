// Package defaults provides canonical default values for the entire codebase.
// This is the SINGLE SOURCE OF TRUTH for all runtime configuration defaults.
//
// Usage:
//
//	opts.MaxChars = defaults.ReadFileMaxChars
//	if len(matches) > defaults.SearchMatchCap {
//
// DO NOT use hardcoded values like `MaxChars: 10000` anywhere.
// Instead, reference the appropriate constant from this package.
package defaults

import "fmt"

// Version is the current toolhost version
const Version = "1.2.0"

// ToolName is the machine-readable binary/service name.
const ToolName = "toolhost"

// ToolNameDisplay is the human-readable product name.
const ToolNameDisplay = "Toolhost MCP Server"

// ============================================================================
// FILESYSTEM TOOL LIMITS
// ============================================================================
//
// Caps that keep tool responses within what MCP clients (and the models
// behind them) can usefully consume.
// ============================================================================

const (
	// ReadFileMaxChars is the default read_file character cap (10k)
	ReadFileMaxChars = 10000

	// ReadFileMaxCharsCeiling is the hard ceiling a caller may request (1M)
	ReadFileMaxCharsCeiling = 1 * 1024 * 1024

	// SearchMatchCap is the maximum matches returned by search_files (50)
	SearchMatchCap = 50

	// LargeFileTopN is how many files find_large_files reports (10)
	LargeFileTopN = 10

	// LargeFileMinSizeMB is the default find_large_files threshold (10 MB)
	LargeFileMinSizeMB = 10

	// TailLines is the default line count for tail_file (10)
	TailLines = 10

	// DirListCap is the maximum entries returned by list_directory (500)
	DirListCap = 500
)

// ============================================================================
// SHELL TOOL LIMITS
// ============================================================================

const (
	// ShellTimeoutSec is the default run_command timeout (60s)
	ShellTimeoutSec = 60

	// ShellTimeoutMinSec is the lowest accepted timeout (1s)
	ShellTimeoutMinSec = 1

	// ShellTimeoutMaxSec is the highest accepted timeout (600s)
	ShellTimeoutMaxSec = 600

	// ShellOutputCap is the per-stream capture cap in bytes (256 KB)
	ShellOutputCap = 256 * 1024
)

// ============================================================================
// SYSTEM TOOL LIMITS
// ============================================================================

const (
	// ProcessListCount is the default process_list row count (10)
	ProcessListCount = 10

	// ProcessListMax is the highest accepted process_list row count (100)
	ProcessListMax = 100
)

// ============================================================================
// GITHUB / GIT TOOL LIMITS
// ============================================================================

const (
	// GitHubSearchLimit is the default search result count (5)
	GitHubSearchLimit = 5

	// GitHubSearchMax is the highest accepted search result count (30)
	GitHubSearchMax = 30

	// GitHubFileCap is the remote file content cap in bytes (512 KB)
	GitHubFileCap = 512 * 1024

	// GitHubRatePerSecond is the client-side request rate for the GitHub
	// API (authenticated limit is 5000/h; 1 rps stays comfortably under).
	GitHubRatePerSecond = 1

	// GitHubRateBurst allows short bursts against the GitHub API (5)
	GitHubRateBurst = 5

	// GitLogLimit is the default git_log commit count (10)
	GitLogLimit = 10

	// GitRepoScanDepth is the default find_git_repos directory depth (3)
	GitRepoScanDepth = 3
)

// ============================================================================
// ASYNC TASK LIMITS
// ============================================================================

const (
	// MaxActiveTasks prevents unbounded memory growth (100)
	MaxActiveTasks = 100

	// TaskWaitSecondsMax bounds task_status long-polling (60s)
	TaskWaitSecondsMax = 60
)

// ============================================================================
// AUDIO TOOL SETTINGS
// ============================================================================

const (
	// VolumeMax is the highest accepted volume percentage (150 — pactl
	// allows over-amplification up to 150%)
	VolumeMax = 150

	// MusicSearchCap is the maximum results from search_music (25)
	MusicSearchCap = 25
)

// AudioExtensions are the file extensions search_music considers playable.
var AudioExtensions = []string{".mp3", ".flac", ".ogg", ".wav", ".m4a", ".opus", ".aac", ".wma"}

// ============================================================================
// ENVIRONMENT VARIABLES
// ============================================================================

const (
	// EnvGitHubPAT is the primary environment variable for the GitHub token.
	EnvGitHubPAT = "GITHUB_PAT"

	// EnvGitHubToken is the fallback environment variable for the GitHub token.
	EnvGitHubToken = "GITHUB_TOKEN"

	// EnvHTTPAddr overrides the --http listen address.
	EnvHTTPAddr = "TOOLHOST_HTTP_ADDR"

	// EnvRootDir overrides the filesystem root.
	EnvRootDir = "TOOLHOST_ROOT"

	// EnvToolsets overrides the enabled toolset list.
	EnvToolsets = "TOOLHOST_TOOLSETS"
)

// ============================================================================
// TOOLSETS
// ============================================================================

// Toolset names. These are the values accepted by --toolsets and the
// TOOLHOST_TOOLSETS environment variable.
const (
	ToolsetFS     = "fs"
	ToolsetShell  = "shell"
	ToolsetSystem = "system"
	ToolsetGitHub = "github"
	ToolsetAudio  = "audio"
	ToolsetCalc   = "calc"
)

// ToolsetsDefault is the set enabled when --toolsets is omitted. The calc
// toolset is a demo and stays opt-in; audio requires a desktop session.
var ToolsetsDefault = []string{ToolsetFS, ToolsetShell, ToolsetSystem, ToolsetGitHub}

// ToolsetsAll lists every known toolset in registration order.
var ToolsetsAll = []string{ToolsetFS, ToolsetShell, ToolsetSystem, ToolsetGitHub, ToolsetAudio, ToolsetCalc}

// KnownToolset reports whether name is a valid toolset identifier.
func KnownToolset(name string) bool {
	for _, t := range ToolsetsAll {
		if t == name {
			return true
		}
	}
	return false
}

// UserAgent returns the HTTP User-Agent string for outbound API calls.
func UserAgent() string {
	return fmt.Sprintf("%s/%s", ToolName, Version)
}
