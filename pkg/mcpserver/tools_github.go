package mcpserver

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/toolhost/toolhost/pkg/defaults"
	"github.com/toolhost/toolhost/pkg/gitops"
)

// registerGitHubTools registers both halves of the github toolset: the
// remote GitHub REST tools and the local git tools confined to the root.
func (s *Server) registerGitHubTools() {
	s.registerGitHubRemoteTools()
	s.registerGitLocalTools()
}

// ---------------------------------------------------------------------------
// Remote GitHub API tools
// ---------------------------------------------------------------------------

func (s *Server) registerGitHubRemoteTools() {
	const ts = defaults.ToolsetGitHub
	readOnly := &mcp.ToolAnnotations{ReadOnlyHint: true, OpenWorldHint: boolPtr(true)}

	s.addTool(ts, &mcp.Tool{
		Name:        "github_search_users",
		Title:       "Search GitHub Users",
		Description: fmt.Sprintf(`Search GitHub user accounts by the standard user search syntax.

RETURNS: up to limit matches (default %d, max %d) with login, name,
and profile URL, plus the total match count.

EXAMPLE: {"query": "fullname:Grace Hopper", "limit": 5}`, defaults.GitHubSearchLimit, defaults.GitHubSearchMax),
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{
					"type":        "string",
					"description": "GitHub user search query",
				},
				"limit": map[string]any{
					"type":        "integer",
					"description": fmt.Sprintf("Max results (default %d, max %d)", defaults.GitHubSearchLimit, defaults.GitHubSearchMax),
				},
			},
			"required": []string{"query"},
		},
		Annotations: readOnly,
	}, s.handleGitHubSearchUsers)

	s.addTool(ts, &mcp.Tool{
		Name:        "github_user_profile",
		Title:       "GitHub User Profile",
		Description: `Fetch a GitHub user's full profile: name, bio, company, location,
follower/repo counts, and join date.`,
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"username": map[string]any{
					"type":        "string",
					"description": "GitHub login",
				},
			},
			"required": []string{"username"},
		},
		Annotations: readOnly,
	}, s.handleGitHubUserProfile)

	s.addTool(ts, &mcp.Tool{
		Name:        "github_search_repos",
		Title:       "Search GitHub Repositories",
		Description: `Search GitHub repositories. Supports qualifiers like language:go,
stars:>100, user:someone.

EXAMPLE: {"query": "mcp server language:go", "sort": "stars"}`,
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{
					"type":        "string",
					"description": "GitHub repository search query",
				},
				"limit": map[string]any{
					"type":        "integer",
					"description": fmt.Sprintf("Max results (default %d, max %d)", defaults.GitHubSearchLimit, defaults.GitHubSearchMax),
				},
				"sort": map[string]any{
					"type":        "string",
					"description": "Sort order: stars, forks, or updated (default: best match)",
					"enum":        []string{"", "stars", "forks", "updated"},
				},
			},
			"required": []string{"query"},
		},
		Annotations: readOnly,
	}, s.handleGitHubSearchRepos)

	s.addTool(ts, &mcp.Tool{
		Name:        "github_repo_info",
		Title:       "GitHub Repository Info",
		Description: `Fetch repository metadata: description, language, stars, forks, open
issues, topics, license, and default branch.`,
		InputSchema: map[string]any{
			"type":       "object",
			"properties": ownerRepoProps(nil),
			"required":   []string{"owner", "repo"},
		},
		Annotations: readOnly,
	}, s.handleGitHubRepoInfo)

	s.addTool(ts, &mcp.Tool{
		Name:        "github_list_contents",
		Title:       "List Repository Contents",
		Description: `List files and directories at a path in a remote repository.

EXAMPLE: {"owner": "golang", "repo": "go", "path": "src/net"}`,
		InputSchema: map[string]any{
			"type": "object",
			"properties": ownerRepoProps(map[string]any{
				"path": map[string]any{
					"type":        "string",
					"description": "Directory path in the repo (empty = repo root)",
				},
				"ref": map[string]any{
					"type":        "string",
					"description": "Branch, tag, or commit SHA (default: default branch)",
				},
			}),
			"required": []string{"owner", "repo"},
		},
		Annotations: readOnly,
	}, s.handleGitHubListContents)

	s.addTool(ts, &mcp.Tool{
		Name:        "github_file_content",
		Title:       "Get Repository File",
		Description: fmt.Sprintf(`Fetch a file's content from a remote repository. Content is capped at
%d KB with a truncated flag.`, defaults.GitHubFileCap/1024),
		InputSchema: map[string]any{
			"type": "object",
			"properties": ownerRepoProps(map[string]any{
				"path": map[string]any{
					"type":        "string",
					"description": "File path in the repo",
				},
				"ref": map[string]any{
					"type":        "string",
					"description": "Branch, tag, or commit SHA (default: default branch)",
				},
			}),
			"required": []string{"owner", "repo", "path"},
		},
		Annotations: readOnly,
	}, s.handleGitHubFileContent)

	s.addTool(ts, &mcp.Tool{
		Name:        "github_create_file",
		Title:       "Create Repository File",
		Description: `Create a NEW file in a remote repository via the contents API.
Requires a GitHub token. Errors if the file already exists — use
github_update_file for that.`,
		InputSchema: map[string]any{
			"type": "object",
			"properties": ownerRepoProps(map[string]any{
				"path": map[string]any{
					"type":        "string",
					"description": "File path to create",
				},
				"branch": map[string]any{
					"type":        "string",
					"description": "Target branch (default: default branch)",
				},
				"message": map[string]any{
					"type":        "string",
					"description": "Commit message",
				},
				"content": map[string]any{
					"type":        "string",
					"description": "File content (plain text)",
				},
			}),
			"required": []string{"owner", "repo", "path", "message", "content"},
		},
		Annotations: &mcp.ToolAnnotations{OpenWorldHint: boolPtr(true)},
	}, s.handleGitHubCreateFile)

	s.addTool(ts, &mcp.Tool{
		Name:        "github_update_file",
		Title:       "Update Repository File",
		Description: `Replace the content of an EXISTING file in a remote repository.
Requires a GitHub token. Errors if the file does not exist — use
github_create_file for that.`,
		InputSchema: map[string]any{
			"type": "object",
			"properties": ownerRepoProps(map[string]any{
				"path": map[string]any{
					"type":        "string",
					"description": "File path to update",
				},
				"branch": map[string]any{
					"type":        "string",
					"description": "Target branch (default: default branch)",
				},
				"message": map[string]any{
					"type":        "string",
					"description": "Commit message",
				},
				"content": map[string]any{
					"type":        "string",
					"description": "New file content (plain text)",
				},
			}),
			"required": []string{"owner", "repo", "path", "message", "content"},
		},
		Annotations: &mcp.ToolAnnotations{DestructiveHint: boolPtr(true), OpenWorldHint: boolPtr(true)},
	}, s.handleGitHubUpdateFile)

	s.addTool(ts, &mcp.Tool{
		Name:        "github_create_repo",
		Title:       "Create Repository",
		Description: `Create a new repository for the authenticated user. Requires a
GitHub token.`,
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"name": map[string]any{
					"type":        "string",
					"description": "Repository name",
				},
				"description": map[string]any{
					"type":        "string",
					"description": "Repository description",
				},
				"private": map[string]any{
					"type":        "boolean",
					"description": "Create as private (default false)",
				},
				"auto_init": map[string]any{
					"type":        "boolean",
					"description": "Initialize with a README (default false)",
				},
			},
			"required": []string{"name"},
		},
		Annotations: &mcp.ToolAnnotations{OpenWorldHint: boolPtr(true)},
	}, s.handleGitHubCreateRepo)
}

// ownerRepoProps builds the owner/repo property pair shared by most remote
// tools, merged with extra per-tool properties.
func ownerRepoProps(extra map[string]any) map[string]any {
	props := map[string]any{
		"owner": map[string]any{
			"type":        "string",
			"description": "Repository owner (user or org)",
		},
		"repo": map[string]any{
			"type":        "string",
			"description": "Repository name",
		},
	}
	for k, v := range extra {
		props[k] = v
	}
	return props
}

func (s *Server) handleGitHubSearchUsers(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args struct {
		Query string `json:"query"`
		Limit int    `json:"limit"`
	}
	if err := parseArgs(req, &args); err != nil {
		return errorResult("%v", err), nil
	}
	users, total, err := s.github.SearchUsers(ctx, args.Query, args.Limit)
	if err != nil {
		return errorResult("%v", err), nil
	}
	return jsonResult(struct {
		Total int                  `json:"total_matches"`
		Users []gitops.UserSummary `json:"users"`
	}{Total: total, Users: users})
}

func (s *Server) handleGitHubUserProfile(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args struct {
		Username string `json:"username"`
	}
	if err := parseArgs(req, &args); err != nil {
		return errorResult("%v", err), nil
	}
	profile, err := s.github.GetUser(ctx, args.Username)
	if err != nil {
		return errorResult("%v", err), nil
	}
	return jsonResult(profile)
}

func (s *Server) handleGitHubSearchRepos(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args struct {
		Query string `json:"query"`
		Limit int    `json:"limit"`
		Sort  string `json:"sort"`
	}
	if err := parseArgs(req, &args); err != nil {
		return errorResult("%v", err), nil
	}
	repos, total, err := s.github.SearchRepositories(ctx, args.Query, args.Limit, args.Sort)
	if err != nil {
		return errorResult("%v", err), nil
	}
	return jsonResult(struct {
		Total int                  `json:"total_matches"`
		Repos []gitops.RepoSummary `json:"repositories"`
	}{Total: total, Repos: repos})
}

func (s *Server) handleGitHubRepoInfo(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args struct {
		Owner string `json:"owner"`
		Repo  string `json:"repo"`
	}
	if err := parseArgs(req, &args); err != nil {
		return errorResult("%v", err), nil
	}
	detail, err := s.github.GetRepository(ctx, args.Owner, args.Repo)
	if err != nil {
		return errorResult("%v", err), nil
	}
	return jsonResult(detail)
}

func (s *Server) handleGitHubListContents(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args struct {
		Owner string `json:"owner"`
		Repo  string `json:"repo"`
		Path  string `json:"path"`
		Ref   string `json:"ref"`
	}
	if err := parseArgs(req, &args); err != nil {
		return errorResult("%v", err), nil
	}
	entries, err := s.github.ListContents(ctx, args.Owner, args.Repo, args.Path, args.Ref)
	if err != nil {
		return errorResult("%v", err), nil
	}
	return jsonResult(struct {
		Path    string                `json:"path"`
		Count   int                   `json:"count"`
		Entries []gitops.ContentEntry `json:"entries"`
	}{Path: args.Path, Count: len(entries), Entries: entries})
}

func (s *Server) handleGitHubFileContent(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args struct {
		Owner string `json:"owner"`
		Repo  string `json:"repo"`
		Path  string `json:"path"`
		Ref   string `json:"ref"`
	}
	if err := parseArgs(req, &args); err != nil {
		return errorResult("%v", err), nil
	}
	file, err := s.github.GetFileContent(ctx, args.Owner, args.Repo, args.Path, args.Ref)
	if err != nil {
		return errorResult("%v", err), nil
	}
	return jsonResult(file)
}

func (s *Server) handleGitHubCreateFile(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args struct {
		Owner   string `json:"owner"`
		Repo    string `json:"repo"`
		Path    string `json:"path"`
		Branch  string `json:"branch"`
		Message string `json:"message"`
		Content string `json:"content"`
	}
	if err := parseArgs(req, &args); err != nil {
		return errorResult("%v", err), nil
	}
	res, err := s.github.CreateFile(ctx, args.Owner, args.Repo, args.Path, args.Branch, args.Message, args.Content)
	if err != nil {
		return errorResult("%v", err), nil
	}
	return jsonResult(res)
}

func (s *Server) handleGitHubUpdateFile(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args struct {
		Owner   string `json:"owner"`
		Repo    string `json:"repo"`
		Path    string `json:"path"`
		Branch  string `json:"branch"`
		Message string `json:"message"`
		Content string `json:"content"`
	}
	if err := parseArgs(req, &args); err != nil {
		return errorResult("%v", err), nil
	}
	res, err := s.github.UpdateFile(ctx, args.Owner, args.Repo, args.Path, args.Branch, args.Message, args.Content)
	if err != nil {
		return errorResult("%v", err), nil
	}
	return jsonResult(res)
}

func (s *Server) handleGitHubCreateRepo(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		Private     bool   `json:"private"`
		AutoInit    bool   `json:"auto_init"`
	}
	if err := parseArgs(req, &args); err != nil {
		return errorResult("%v", err), nil
	}
	repo, err := s.github.CreateRepository(ctx, args.Name, args.Description, args.Private, args.AutoInit)
	if err != nil {
		return errorResult("%v", err), nil
	}
	return jsonResult(repo)
}

// ---------------------------------------------------------------------------
// Local git tools
// ---------------------------------------------------------------------------

func (s *Server) registerGitLocalTools() {
	const ts = defaults.ToolsetGitHub
	readOnly := &mcp.ToolAnnotations{ReadOnlyHint: true}

	repoPathProp := map[string]any{
		"type":        "string",
		"description": "Path to the git repository, inside the root",
	}

	s.addTool(ts, &mcp.Tool{
		Name:        "git_status",
		Title:       "Git Status",
		Description: `Show a repository's branch, tracking state (ahead/behind), and
staged/modified/untracked files.

USE THIS TOOL WHEN:
- Before any git_add/git_commit/git_push sequence
- Checking whether a repo has uncommitted work`,
		InputSchema: map[string]any{
			"type":       "object",
			"properties": map[string]any{"repo_path": repoPathProp},
			"required":   []string{"repo_path"},
		},
		Annotations: readOnly,
	}, s.handleGitStatus)

	s.addTool(ts, &mcp.Tool{
		Name:        "git_add",
		Title:       "Git Add",
		Description: `Stage files for commit. Empty paths stages everything (git add -A).`,
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"repo_path": repoPathProp,
				"paths": map[string]any{
					"type":        "array",
					"items":       map[string]any{"type": "string"},
					"description": "Files to stage (empty = all changes)",
				},
			},
			"required": []string{"repo_path"},
		},
		Annotations: &mcp.ToolAnnotations{IdempotentHint: true},
	}, s.handleGitAdd)

	s.addTool(ts, &mcp.Tool{
		Name:        "git_commit",
		Title:       "Git Commit",
		Description: `Commit staged changes with a message. Returns the new commit SHA.`,
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"repo_path": repoPathProp,
				"message": map[string]any{
					"type":        "string",
					"description": "Commit message",
				},
			},
			"required": []string{"repo_path", "message"},
		},
	}, s.handleGitCommit)

	s.addTool(ts, &mcp.Tool{
		Name:        "git_push",
		Title:       "Git Push",
		Description: `Push the current (or named) branch to a remote.

On the HTTP transport this runs as a background task and returns a
task_id — poll task_status for the result. Over stdio it blocks.`,
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"repo_path": repoPathProp,
				"remote": map[string]any{
					"type":        "string",
					"description": "Remote name (default origin)",
				},
				"branch": map[string]any{
					"type":        "string",
					"description": "Branch to push (default: current branch)",
				},
			},
			"required": []string{"repo_path"},
		},
		Annotations: &mcp.ToolAnnotations{OpenWorldHint: boolPtr(true)},
	}, s.handleGitPush)

	s.addTool(ts, &mcp.Tool{
		Name:        "git_pull",
		Title:       "Git Pull",
		Description: `Pull from a remote into the current branch.

On the HTTP transport this runs as a background task and returns a
task_id — poll task_status for the result. Over stdio it blocks.`,
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"repo_path": repoPathProp,
				"remote": map[string]any{
					"type":        "string",
					"description": "Remote name (default origin)",
				},
				"branch": map[string]any{
					"type":        "string",
					"description": "Branch to pull (default: current branch)",
				},
			},
			"required": []string{"repo_path"},
		},
		Annotations: &mcp.ToolAnnotations{DestructiveHint: boolPtr(true), OpenWorldHint: boolPtr(true)},
	}, s.handleGitPull)

	s.addTool(ts, &mcp.Tool{
		Name:        "git_create_branch",
		Title:       "Git Create Branch",
		Description: `Create a new branch and switch to it.`,
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"repo_path": repoPathProp,
				"branch": map[string]any{
					"type":        "string",
					"description": "New branch name",
				},
			},
			"required": []string{"repo_path", "branch"},
		},
	}, s.handleGitCreateBranch)

	s.addTool(ts, &mcp.Tool{
		Name:        "git_switch",
		Title:       "Git Switch",
		Description: `Switch to an existing branch.`,
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"repo_path": repoPathProp,
				"branch": map[string]any{
					"type":        "string",
					"description": "Branch to switch to",
				},
			},
			"required": []string{"repo_path", "branch"},
		},
	}, s.handleGitSwitch)

	s.addTool(ts, &mcp.Tool{
		Name:        "git_log",
		Title:       "Git Log",
		Description: fmt.Sprintf(`Show recent commits: SHA, author, date, and subject (default %d).`, defaults.GitLogLimit),
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"repo_path": repoPathProp,
				"limit": map[string]any{
					"type":        "integer",
					"description": fmt.Sprintf("Number of commits (default %d)", defaults.GitLogLimit),
				},
			},
			"required": []string{"repo_path"},
		},
		Annotations: readOnly,
	}, s.handleGitLog)

	s.addTool(ts, &mcp.Tool{
		Name:        "find_git_repos",
		Title:       "Find Git Repositories",
		Description: fmt.Sprintf(`Scan a directory tree for git repositories, up to max_depth levels
deep (default %d). Nested repositories are not descended into.`, defaults.GitRepoScanDepth),
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"path": map[string]any{
					"type":        "string",
					"description": "Directory to scan (empty = root)",
				},
				"max_depth": map[string]any{
					"type":        "integer",
					"description": fmt.Sprintf("Scan depth (default %d)", defaults.GitRepoScanDepth),
				},
			},
		},
		Annotations: readOnly,
	}, s.handleFindGitRepos)
}

func (s *Server) handleGitStatus(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args struct {
		RepoPath string `json:"repo_path"`
	}
	if err := parseArgs(req, &args); err != nil {
		return errorResult("%v", err), nil
	}
	status, err := s.git.Status(ctx, args.RepoPath)
	if err != nil {
		return errorResult("%v", err), nil
	}
	return jsonResult(status)
}

func (s *Server) handleGitAdd(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args struct {
		RepoPath string   `json:"repo_path"`
		Paths    []string `json:"paths"`
	}
	if err := parseArgs(req, &args); err != nil {
		return errorResult("%v", err), nil
	}
	msg, err := s.git.Add(ctx, args.RepoPath, args.Paths)
	if err != nil {
		return errorResult("%v", err), nil
	}
	return textResult(msg), nil
}

func (s *Server) handleGitCommit(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args struct {
		RepoPath string `json:"repo_path"`
		Message  string `json:"message"`
	}
	if err := parseArgs(req, &args); err != nil {
		return errorResult("%v", err), nil
	}
	sha, err := s.git.Commit(ctx, args.RepoPath, args.Message)
	if err != nil {
		return errorResult("%v", err), nil
	}
	return jsonResult(struct {
		Commit  string `json:"commit"`
		Message string `json:"message"`
	}{Commit: sha, Message: args.Message})
}

func (s *Server) handleGitPush(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.remoteGitOp(ctx, req, "git_push", s.git.Push)
}

func (s *Server) handleGitPull(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.remoteGitOp(ctx, req, "git_pull", s.git.Pull)
}

// remoteGitOp runs push/pull with the shared async-in-HTTP dispatch.
func (s *Server) remoteGitOp(ctx context.Context, req *mcp.CallToolRequest, tool string,
	op func(ctx context.Context, repoPath, remote, branch string) (string, error)) (*mcp.CallToolResult, error) {

	var args struct {
		RepoPath string `json:"repo_path"`
		Remote   string `json:"remote"`
		Branch   string `json:"branch"`
	}
	if err := parseArgs(req, &args); err != nil {
		return errorResult("%v", err), nil
	}

	run := func(ctx context.Context, task *Task) (any, error) {
		if task != nil {
			stop := taskProgressTicker(task, tool)
			defer stop()
		}
		out, err := op(ctx, args.RepoPath, args.Remote, args.Branch)
		if err != nil {
			return nil, err
		}
		return struct {
			RepoPath string `json:"repo_path"`
			Output   string `json:"output"`
		}{RepoPath: args.RepoPath, Output: out}, nil
	}

	if s.runsAsync() {
		return s.launchAsync(tool, run)
	}
	result, err := run(ctx, nil)
	if err != nil {
		return errorResult("%v", err), nil
	}
	return jsonResult(result)
}

func (s *Server) handleGitCreateBranch(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.gitSwitchOp(ctx, req, true)
}

func (s *Server) handleGitSwitch(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.gitSwitchOp(ctx, req, false)
}

func (s *Server) gitSwitchOp(ctx context.Context, req *mcp.CallToolRequest, create bool) (*mcp.CallToolResult, error) {
	var args struct {
		RepoPath string `json:"repo_path"`
		Branch   string `json:"branch"`
	}
	if err := parseArgs(req, &args); err != nil {
		return errorResult("%v", err), nil
	}
	msg, err := s.git.Switch(ctx, args.RepoPath, args.Branch, create)
	if err != nil {
		return errorResult("%v", err), nil
	}
	return textResult(msg), nil
}

func (s *Server) handleGitLog(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args struct {
		RepoPath string `json:"repo_path"`
		Limit    int    `json:"limit"`
	}
	if err := parseArgs(req, &args); err != nil {
		return errorResult("%v", err), nil
	}
	commits, err := s.git.Log(ctx, args.RepoPath, args.Limit)
	if err != nil {
		return errorResult("%v", err), nil
	}
	return jsonResult(struct {
		Count   int             `json:"count"`
		Commits []gitops.Commit `json:"commits"`
	}{Count: len(commits), Commits: commits})
}

func (s *Server) handleFindGitRepos(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args struct {
		Path     string `json:"path"`
		MaxDepth int    `json:"max_depth"`
	}
	if err := parseArgs(req, &args); err != nil {
		return errorResult("%v", err), nil
	}
	repos, err := s.git.FindRepos(ctx, args.Path, args.MaxDepth)
	if err != nil {
		return errorResult("%v", err), nil
	}
	return jsonResult(struct {
		Count int      `json:"count"`
		Repos []string `json:"repositories"`
	}{Count: len(repos), Repos: repos})
}
