package gitops

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/toolhost/toolhost/pkg/defaults"
	"github.com/toolhost/toolhost/pkg/duration"
	"github.com/toolhost/toolhost/pkg/fsops"
)

// Local runs git operations against repositories under the configured
// root. All work goes through the git binary; repositories are never
// touched outside the root.
type Local struct {
	root *fsops.Root
}

// NewLocal creates a Local bound to root.
func NewLocal(root *fsops.Root) *Local {
	return &Local{root: root}
}

// run executes git with args inside repoPath and returns trimmed stdout.
// stderr is folded into the error, which is what callers want to see
// when git refuses an operation.
func (l *Local) run(ctx context.Context, repoPath string, timeout timeoutClass, args ...string) (string, error) {
	dir, err := l.root.Resolve(repoPath)
	if err != nil {
		return "", err
	}

	d := duration.GitLocal
	if timeout == remoteOp {
		d = duration.GitRemote
	}
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		if ctx.Err() == context.DeadlineExceeded {
			return "", fmt.Errorf("git %s timed out after %s: %s", args[0], d, msg)
		}
		return "", fmt.Errorf("git %s: %s", args[0], msg)
	}
	return strings.TrimSpace(stdout.String()), nil
}

type timeoutClass int

const (
	localOp timeoutClass = iota
	remoteOp
)

// RepoStatus is the result of Status.
type RepoStatus struct {
	Path      string   `json:"path"`
	Branch    string   `json:"branch"`
	Ahead     int      `json:"ahead"`
	Behind    int      `json:"behind"`
	Staged    []string `json:"staged"`
	Modified  []string `json:"modified"`
	Untracked []string `json:"untracked"`
	Clean     bool     `json:"clean"`
}

// Status reports the working tree state via porcelain output.
func (l *Local) Status(ctx context.Context, repoPath string) (*RepoStatus, error) {
	out, err := l.run(ctx, repoPath, localOp, "status", "--porcelain=v1", "--branch")
	if err != nil {
		return nil, err
	}
	status := parsePorcelainStatus(out)
	status.Path = repoPath
	return status, nil
}

// parsePorcelainStatus parses `git status --porcelain=v1 --branch` output.
func parsePorcelainStatus(out string) *RepoStatus {
	status := &RepoStatus{
		Staged:    []string{},
		Modified:  []string{},
		Untracked: []string{},
	}
	for _, line := range strings.Split(out, "\n") {
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "## ") {
			parseBranchLine(line, status)
			continue
		}
		if len(line) < 4 {
			continue
		}
		index, worktree, file := line[0], line[1], line[3:]
		switch {
		case index == '?' && worktree == '?':
			status.Untracked = append(status.Untracked, file)
		default:
			if index != ' ' {
				status.Staged = append(status.Staged, file)
			}
			if worktree != ' ' {
				status.Modified = append(status.Modified, file)
			}
		}
	}
	status.Clean = len(status.Staged) == 0 && len(status.Modified) == 0 && len(status.Untracked) == 0
	return status
}

// parseBranchLine handles "## main...origin/main [ahead 1, behind 2]".
func parseBranchLine(line string, status *RepoStatus) {
	rest := strings.TrimPrefix(line, "## ")
	branch, tracking, _ := strings.Cut(rest, "...")
	status.Branch = branch

	open := strings.Index(tracking, "[")
	if open < 0 {
		return
	}
	for _, part := range strings.Split(strings.Trim(tracking[open:], "[]"), ", ") {
		if n, ok := strings.CutPrefix(part, "ahead "); ok {
			status.Ahead, _ = strconv.Atoi(n)
		}
		if n, ok := strings.CutPrefix(part, "behind "); ok {
			status.Behind, _ = strconv.Atoi(n)
		}
	}
}

// Add stages the given paths (or everything, when paths is empty).
func (l *Local) Add(ctx context.Context, repoPath string, paths []string) (string, error) {
	args := []string{"add", "--"}
	if len(paths) == 0 {
		args = []string{"add", "-A"}
	} else {
		args = append(args, paths...)
	}
	if _, err := l.run(ctx, repoPath, localOp, args...); err != nil {
		return "", err
	}
	if len(paths) == 0 {
		return "staged all changes", nil
	}
	return fmt.Sprintf("staged %d path(s)", len(paths)), nil
}

// Commit records staged changes. Returns the new commit hash.
func (l *Local) Commit(ctx context.Context, repoPath, message string) (string, error) {
	if strings.TrimSpace(message) == "" {
		return "", fmt.Errorf("commit message is required")
	}
	if _, err := l.run(ctx, repoPath, localOp, "commit", "-m", message); err != nil {
		return "", err
	}
	return l.run(ctx, repoPath, localOp, "rev-parse", "HEAD")
}

// Push publishes the current branch. remote/branch are optional.
func (l *Local) Push(ctx context.Context, repoPath, remote, branch string) (string, error) {
	args := []string{"push"}
	if remote != "" {
		args = append(args, remote)
		if branch != "" {
			args = append(args, branch)
		}
	}
	out, err := l.run(ctx, repoPath, remoteOp, args...)
	if err != nil {
		return "", err
	}
	if out == "" {
		out = "push completed"
	}
	return out, nil
}

// Pull fetches and integrates from the remote. remote/branch are optional.
func (l *Local) Pull(ctx context.Context, repoPath, remote, branch string) (string, error) {
	args := []string{"pull"}
	if remote != "" {
		args = append(args, remote)
		if branch != "" {
			args = append(args, branch)
		}
	}
	return l.run(ctx, repoPath, remoteOp, args...)
}

// BranchList is the result of Branches.
type BranchList struct {
	Current  string   `json:"current"`
	Branches []string `json:"branches"`
}

// Branches lists local branches and the checked-out one.
func (l *Local) Branches(ctx context.Context, repoPath string) (*BranchList, error) {
	current, err := l.run(ctx, repoPath, localOp, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return nil, err
	}
	out, err := l.run(ctx, repoPath, localOp, "branch", "--format=%(refname:short)")
	if err != nil {
		return nil, err
	}

	list := &BranchList{Current: current, Branches: []string{}}
	for _, b := range strings.Split(out, "\n") {
		if b = strings.TrimSpace(b); b != "" {
			list.Branches = append(list.Branches, b)
		}
	}
	return list, nil
}

// Switch checks out a branch, optionally creating it first.
func (l *Local) Switch(ctx context.Context, repoPath, branch string, create bool) (string, error) {
	if strings.TrimSpace(branch) == "" {
		return "", fmt.Errorf("branch name is required")
	}
	args := []string{"switch"}
	if create {
		args = append(args, "-c")
	}
	args = append(args, branch)
	if _, err := l.run(ctx, repoPath, localOp, args...); err != nil {
		return "", err
	}
	if create {
		return fmt.Sprintf("created and switched to %s", branch), nil
	}
	return fmt.Sprintf("switched to %s", branch), nil
}

// Commit describes one entry from Log.
type Commit struct {
	Hash    string `json:"hash"`
	Author  string `json:"author"`
	Email   string `json:"email"`
	Date    string `json:"date"`
	Subject string `json:"subject"`
}

// logFieldSep keeps the pretty format unambiguous even when subjects
// contain pipes or tabs.
const logFieldSep = "\x1f"

// Log returns the most recent commits, newest first.
func (l *Local) Log(ctx context.Context, repoPath string, limit int) ([]Commit, error) {
	if limit <= 0 {
		limit = defaults.GitLogLimit
	}
	format := strings.Join([]string{"%H", "%an", "%ae", "%aI", "%s"}, "%x1f")
	out, err := l.run(ctx, repoPath, localOp,
		"log", "-n", strconv.Itoa(limit), "--pretty=format:"+format)
	if err != nil {
		return nil, err
	}

	commits := []Commit{}
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Split(line, logFieldSep)
		if len(fields) != 5 {
			continue
		}
		commits = append(commits, Commit{
			Hash:    fields[0],
			Author:  fields[1],
			Email:   fields[2],
			Date:    fields[3],
			Subject: fields[4],
		})
	}
	return commits, nil
}

// FindRepos walks under startPath looking for git repositories, up to
// maxDepth directory levels deep. Repositories are not descended into.
func (l *Local) FindRepos(ctx context.Context, startPath string, maxDepth int) ([]string, error) {
	base, err := l.root.Resolve(startPath)
	if err != nil {
		return nil, err
	}
	if maxDepth <= 0 {
		maxDepth = defaults.GitRepoScanDepth
	}

	ctx, cancel := context.WithTimeout(ctx, duration.FSWalk)
	defer cancel()

	var repos []string
	err = filepath.WalkDir(base, func(p string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if walkErr != nil || !d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(base, p)
		if err != nil {
			return nil
		}
		depth := 0
		if rel != "." {
			depth = strings.Count(rel, string(filepath.Separator)) + 1
		}
		if depth > maxDepth {
			return filepath.SkipDir
		}
		if hasGitDir(p) {
			repos = append(repos, p)
			return filepath.SkipDir
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning for repositories: %w", err)
	}
	return repos, nil
}

// hasGitDir reports whether dir is the top of a git work tree.
func hasGitDir(dir string) bool {
	info, err := os.Stat(filepath.Join(dir, ".git"))
	return err == nil && info.IsDir()
}
