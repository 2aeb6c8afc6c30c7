package mcpserver

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// registerPrompts registers guided workflows built from the server's own
// tools. Prompts are registered unconditionally — each names the toolsets
// it needs, and a client on a reduced server simply gets fewer usable steps.
func (s *Server) registerPrompts() {
	s.mcp.AddPrompt(&mcp.Prompt{
		Name:        "system-triage",
		Title:       "System Triage",
		Description: "Investigate host health: overview, then drill into the pressured resource.",
		Arguments: []*mcp.PromptArgument{
			{Name: "focus", Description: "Optional area to prioritize: cpu, memory, disk, or network", Required: false},
		},
	}, s.promptSystemTriage)

	s.mcp.AddPrompt(&mcp.Prompt{
		Name:        "repo-commit",
		Title:       "Commit Repository Changes",
		Description: "Review, stage, commit, and push pending changes in a local repository.",
		Arguments: []*mcp.PromptArgument{
			{Name: "repo_path", Description: "Path to the repository inside the root", Required: true},
			{Name: "message", Description: "Commit message to use", Required: true},
		},
	}, s.promptRepoCommit)

	s.mcp.AddPrompt(&mcp.Prompt{
		Name:        "disk-cleanup",
		Title:       "Disk Cleanup",
		Description: "Find what is eating disk space under a directory and propose deletions.",
		Arguments: []*mcp.PromptArgument{
			{Name: "path", Description: "Directory to analyze (empty = root)", Required: false},
		},
	}, s.promptDiskCleanup)
}

// promptText wraps a single user message into a prompt result.
func promptText(description, text string) *mcp.GetPromptResult {
	return &mcp.GetPromptResult{
		Description: description,
		Messages: []*mcp.PromptMessage{
			{Role: "user", Content: &mcp.TextContent{Text: text}},
		},
	}
}

// requireArg fetches a required prompt argument.
func requireArg(req *mcp.GetPromptRequest, name string) (string, error) {
	if v := req.Params.Arguments[name]; v != "" {
		return v, nil
	}
	return "", fmt.Errorf("missing required argument %q", name)
}

func (s *Server) promptSystemTriage(ctx context.Context, req *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	focus := req.Params.Arguments["focus"]

	text := `Triage this machine's health.

1. Call system_overview for the big picture.
2. Drill into the pressured resource:
   - high CPU or load → cpu_info, then process_list sorted by cpu
   - high memory → memory_info, then process_list sorted by memory
   - full disks → disk_info, then directory_stats / find_large_files on the fullest mount
   - network questions → network_info
3. For any suspicious service, check it with service_status.
4. Summarize: what is healthy, what is pressured, and the single most
   useful next action.`
	if focus != "" {
		text += fmt.Sprintf("\n\nPrioritize the %s area in your investigation.", focus)
	}
	return promptText("Guided host health investigation", text), nil
}

func (s *Server) promptRepoCommit(ctx context.Context, req *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	repoPath, err := requireArg(req, "repo_path")
	if err != nil {
		return nil, err
	}
	message, err := requireArg(req, "message")
	if err != nil {
		return nil, err
	}

	text := fmt.Sprintf(`Commit the pending changes in %q.

1. Call git_status to see the branch and pending changes. If the tree is
   clean, stop and say so.
2. Review what changed: read_file any modified files whose change you
   should sanity-check before committing.
3. Stage everything with git_add (or only the files that belong together).
4. Commit with git_commit using the message %q.
5. Push with git_push and report the result. If the push runs as a
   background task, poll task_status until it finishes.`, repoPath, message)

	return promptText("Stage, commit, and push repository changes", text), nil
}

func (s *Server) promptDiskCleanup(ctx context.Context, req *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	path := req.Params.Arguments["path"]
	target := path
	if target == "" {
		target = "the root directory"
	}

	text := fmt.Sprintf(`Find out what is consuming disk space under %s and propose a cleanup.

1. Call directory_stats on %q for totals and the largest file.
2. Call find_large_files there (raise min_size_mb if too noisy). If it
   returns a task_id, poll task_status with wait_seconds until done.
3. Group findings: logs, caches, build artifacts, media, unknown.
4. Propose deletions with estimated space reclaimed. Do NOT delete
   anything — present the plan and wait for confirmation. Only after
   explicit approval use delete_file/delete_directory.`, target, path)

	return promptText("Disk usage analysis and cleanup plan", text), nil
}
