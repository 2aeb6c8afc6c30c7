package mcpserver

import (
	"fmt"
	"strings"

	"github.com/toolhost/toolhost/pkg/defaults"
)

// registerTools registers the tools of every enabled toolset, plus the
// task management tools which are always present.
func (s *Server) registerTools() {
	if s.toolsetEnabled(defaults.ToolsetFS) {
		s.registerFSTools()
	}
	if s.toolsetEnabled(defaults.ToolsetShell) {
		s.registerShellTools()
	}
	if s.toolsetEnabled(defaults.ToolsetSystem) {
		s.registerSystemTools()
	}
	if s.toolsetEnabled(defaults.ToolsetGitHub) {
		s.registerGitHubTools()
	}
	if s.toolsetEnabled(defaults.ToolsetAudio) {
		s.registerAudioTools()
	}
	if s.toolsetEnabled(defaults.ToolsetCalc) {
		s.registerCalcTools()
	}
	s.registerTaskTools()
}

// buildInstructions assembles the server-level instructions sent to MCP
// clients during initialization. The text adapts to the enabled toolsets
// so models are never told about tools that do not exist in this session.
func (s *Server) buildInstructions() string {
	var b strings.Builder

	b.WriteString(`Toolhost exposes this machine's filesystem, shell, system metrics,
git/GitHub integration, and media player as MCP tools, grouped into
toolsets that the operator enables per deployment.

SAFETY MODEL:
- All file and local git paths are confined to a configured root
  directory. Paths outside it (including via symlinks and ..) are
  rejected with an error — do not retry them, work within the root.
- Shell commands are screened against a denylist of destructive
  patterns. A denied command names the pattern that matched; choose a
  safer alternative instead of rephrasing the same operation.
- Errors come back as tool results prefixed with "Error: ", often with
  recovery_steps. Read them and self-correct; do not repeat a failed
  call unchanged.

`)

	b.WriteString("ENABLED TOOLSETS: " + strings.Join(s.enabled, ", ") + "\n\n")

	if s.toolsetEnabled(defaults.ToolsetFS) {
		b.WriteString(`fs — filesystem access under the configured root:
  read_file / write_file / tail_file for content,
  list_directory / file_info / search_files / directory_stats /
  find_large_files for exploration,
  create_directory / delete_file / delete_directory / copy_file /
  move_file for layout changes, working_directory for orientation.
  Prefer search_files over repeated list_directory calls.

`)
	}
	if s.toolsetEnabled(defaults.ToolsetShell) {
		b.WriteString(fmt.Sprintf(`shell — run_command executes bash with a timeout (default %ds,
  max %ds) and captured, capped stdout/stderr. Use fs tools for file
  reads and writes instead of cat/echo redirection; use run_command
  for builds, package managers, and pipelines.

`, defaults.ShellTimeoutSec, defaults.ShellTimeoutMaxSec))
	}
	if s.toolsetEnabled(defaults.ToolsetSystem) {
		b.WriteString(`system — read-only host metrics: system_overview first for
  orientation, then cpu_info / memory_info / disk_info / process_list /
  network_info / uptime_info / service_status for detail.

`)
	}
	if s.toolsetEnabled(defaults.ToolsetGitHub) {
		auth := "anonymous (read-only, low rate limit — write tools will error)"
		if s.github != nil && s.github.Authenticated() {
			auth = "authenticated"
		}
		b.WriteString(`github — remote GitHub API tools (github_search_users,
  github_user_profile, github_search_repos, github_repo_info,
  github_list_contents, github_file_content, github_create_file,
  github_update_file, github_create_repo) and local git tools under
  the root (git_status, git_add, git_commit, git_push, git_pull,
  git_create_branch, git_switch, git_log, find_git_repos).
  GitHub access: ` + auth + `.
  Commit workflow: git_status → git_add → git_commit → git_push.

`)
	}
	if s.toolsetEnabled(defaults.ToolsetAudio) {
		b.WriteString(`audio — desktop media control via VLC: search_music and play_file
  to start playback, pause_playback / resume_playback / stop_playback /
  next_track / previous_track / seek for transport, set_volume /
  get_volume for the default sink, now_playing for track metadata.
  These require a desktop session; on headless hosts they return
  "not installed" or "no media player is running" errors.

`)
	}
	if s.toolsetEnabled(defaults.ToolsetCalc) {
		b.WriteString(`calc — calculate performs add/subtract/multiply/divide on two
  numbers. A demo toolset for testing MCP wiring.

`)
	}

	// Instructions are built once at construction, before the transport is
	// chosen, so the async section always describes both modes.
	b.WriteString(fmt.Sprintf(`ASYNC TASKS (HTTP transport only):
run_command, find_large_files, git_push, and git_pull return a task_id
immediately instead of blocking. Poll with
  task_status {"task_id": "...", "wait_seconds": 10}
which long-polls up to %d seconds and returns as soon as the task
finishes. Fetch finished output again with task_result; abandon work
with task_cancel; recover lost IDs with task_list. Over stdio these
tools run synchronously and return results directly.

`, defaults.TaskWaitSecondsMax))

	b.WriteString(`RESOURCES: toolhost://version, toolhost://toolsets (and
toolhost://toolsets/{name}), toolhost://guide, toolhost://config, and
toolhost://denylist describe this server's capabilities and limits.`)

	return b.String()
}
