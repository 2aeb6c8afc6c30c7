package gitops

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/toolhost/toolhost/pkg/fsops"
)

func newTestLocal(t *testing.T) (*Local, string) {
	t.Helper()
	dir, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	root, err := fsops.NewRoot(dir)
	require.NoError(t, err)
	return NewLocal(root), dir
}

func TestParsePorcelainStatus(t *testing.T) {
	out := "## main...origin/main [ahead 2, behind 1]\n" +
		"M  staged.go\n" +
		" M modified.go\n" +
		"MM both.go\n" +
		"?? new.txt"

	status := parsePorcelainStatus(out)
	assert.Equal(t, "main", status.Branch)
	assert.Equal(t, 2, status.Ahead)
	assert.Equal(t, 1, status.Behind)
	assert.Equal(t, []string{"staged.go", "both.go"}, status.Staged)
	assert.Equal(t, []string{"modified.go", "both.go"}, status.Modified)
	assert.Equal(t, []string{"new.txt"}, status.Untracked)
	assert.False(t, status.Clean)
}

func TestParsePorcelainStatusClean(t *testing.T) {
	status := parsePorcelainStatus("## main")
	assert.Equal(t, "main", status.Branch)
	assert.Zero(t, status.Ahead)
	assert.True(t, status.Clean)
}

func TestParseBranchLineNoTracking(t *testing.T) {
	status := &RepoStatus{}
	parseBranchLine("## feature/foo", status)
	assert.Equal(t, "feature/foo", status.Branch)
	assert.Zero(t, status.Ahead)
	assert.Zero(t, status.Behind)
}

func TestLocalRejectsPathOutsideRoot(t *testing.T) {
	local, _ := newTestLocal(t)

	_, err := local.Status(context.Background(), "../elsewhere")
	require.Error(t, err)
	assert.True(t, errors.Is(err, fsops.ErrOutsideRoot))
}

func TestCommitRequiresMessage(t *testing.T) {
	local, _ := newTestLocal(t)
	_, err := local.Commit(context.Background(), ".", "  ")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "message")
}

func TestSwitchRequiresBranch(t *testing.T) {
	local, _ := newTestLocal(t)
	_, err := local.Switch(context.Background(), ".", "", false)
	require.Error(t, err)
}

func TestFindRepos(t *testing.T) {
	local, dir := newTestLocal(t)

	mkRepo := func(rel string) {
		require.NoError(t, os.MkdirAll(filepath.Join(dir, rel, ".git"), 0o755))
	}
	mkRepo("projects/alpha")
	mkRepo("projects/beta")
	mkRepo("projects/alpha/vendor/nested") // inside a repo; not descended into
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "plain/dir"), 0o755))

	repos, err := local.FindRepos(context.Background(), ".", 3)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		filepath.Join(dir, "projects/alpha"),
		filepath.Join(dir, "projects/beta"),
	}, repos)
}

func TestFindReposDepthLimit(t *testing.T) {
	local, dir := newTestLocal(t)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "a/b/c/deep/.git"), 0o755))

	repos, err := local.FindRepos(context.Background(), ".", 2)
	require.NoError(t, err)
	assert.Empty(t, repos)
}
