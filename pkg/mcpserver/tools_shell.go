package mcpserver

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/toolhost/toolhost/pkg/defaults"
)

// registerShellTools registers the shell toolset (a single tool; the
// denylist itself is exposed as the toolhost://denylist resource).
func (s *Server) registerShellTools() {
	s.addTool(defaults.ToolsetShell, &mcp.Tool{
		Name:        "run_command",
		Title:       "Run Command",
		Description: fmt.Sprintf(`Execute a bash command and capture its output.

USE THIS TOOL WHEN:
- Running builds, tests, package managers, or pipelines
- Use fs tools for plain file reads/writes instead of cat/echo

SAFETY: commands are screened against a denylist of destructive
patterns (see the toolhost://denylist resource). A denied command
names the pattern that matched.

On the HTTP transport this runs as a background task and returns a
task_id — poll task_status with wait_seconds to long-poll for the
result. Over stdio it blocks and returns directly.

RETURNS: JSON with exit_code, stdout, stderr, duration_ms, and
timed_out/truncated flags. Output is capped at %d KB per stream.

EXAMPLE: {"command": "go test ./...", "timeout_seconds": 300}`, defaults.ShellOutputCap/1024),
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"command": map[string]any{
					"type":        "string",
					"description": "Bash command line to execute",
				},
				"timeout_seconds": map[string]any{
					"type": "integer",
					"description": fmt.Sprintf("Timeout in seconds (default %d, min %d, max %d)",
						defaults.ShellTimeoutSec, defaults.ShellTimeoutMinSec, defaults.ShellTimeoutMaxSec),
				},
				"working_directory": map[string]any{
					"type":        "string",
					"description": "Directory to run in (default: the configured work dir)",
				},
			},
			"required": []string{"command"},
		},
		Annotations: &mcp.ToolAnnotations{DestructiveHint: boolPtr(true), OpenWorldHint: boolPtr(true)},
	}, s.handleRunCommand)
}

func (s *Server) handleRunCommand(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args struct {
		Command          string `json:"command"`
		TimeoutSeconds   int    `json:"timeout_seconds"`
		WorkingDirectory string `json:"working_directory"`
	}
	if err := parseArgs(req, &args); err != nil {
		return errorResult("%v", err), nil
	}
	if strings.TrimSpace(args.Command) == "" {
		return errorResult("command is required"), nil
	}

	// Screen before dispatch so denied commands fail fast in both modes,
	// never consuming a task slot.
	if pattern, err := s.shell.Check(args.Command); err != nil {
		return enrichedError(
			fmt.Sprintf("command blocked by denylist pattern %q", pattern),
			[]string{
				"Read the toolhost://denylist resource to see all blocked patterns",
				"Use the fs toolset's delete_file/delete_directory for removals inside the root",
				"Choose a narrower command that does not match the destructive pattern",
			},
		), nil
	}

	run := func(ctx context.Context, task *Task) (any, error) {
		if task != nil {
			stop := taskProgressTicker(task, "running "+truncateCommand(args.Command))
			defer stop()
		}
		res, err := s.shell.Run(ctx, args.Command, args.TimeoutSeconds, args.WorkingDirectory)
		if err != nil {
			return nil, err
		}
		return res, nil
	}

	if s.runsAsync() {
		return s.launchAsync("run_command", run)
	}

	logToSession(ctx, req, logInfo, "executing: "+truncateCommand(args.Command))
	result, err := run(ctx, nil)
	if err != nil {
		return errorResult("%v", err), nil
	}
	return jsonResult(result)
}

// truncateCommand shortens a command line for progress messages and logs.
func truncateCommand(cmd string) string {
	const max = 80
	cmd = strings.Join(strings.Fields(cmd), " ")
	if len(cmd) > max {
		return cmd[:max] + "…"
	}
	return cmd
}
