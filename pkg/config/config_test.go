package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/toolhost/toolhost/pkg/config"
	"github.com/toolhost/toolhost/pkg/defaults"
)

func TestDefaultEnablesStandardToolsets(t *testing.T) {
	cfg := config.Default()
	assert.Equal(t, defaults.ToolsetsDefault, cfg.Toolsets)
	assert.NotEmpty(t, cfg.Root)
}

func TestLoadMissingPathReturnsDefaults(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, defaults.ToolsetsDefault, cfg.Toolsets)
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "toolhost.yaml")
	content := "toolsets: [fs, calc]\nroot: " + dir + "\ndeny_patterns: [\"curl.*evil\"]\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"fs", "calc"}, cfg.Toolsets)
	assert.Equal(t, dir, cfg.Root)
	assert.Contains(t, cfg.DenyPatterns, "curl.*evil")
}

func TestLoadRejectsUnknownToolset(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "toolhost.yaml")
	require.NoError(t, os.WriteFile(path, []byte("toolsets: [warp]\n"), 0o644))

	_, err := config.Load(path)
	require.Error(t, err)
	var verr *config.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "toolsets", verr.Field)
	assert.Equal(t, "warp", verr.Value)
}

func TestLoadRejectsMissingExplicitFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	var lerr *config.LoadError
	require.True(t, errors.As(err, &lerr))
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv(defaults.EnvHTTPAddr, ":9999")
	t.Setenv(defaults.EnvToolsets, "fs, shell")

	cfg := config.Default()
	cfg.ApplyEnv()
	assert.Equal(t, ":9999", cfg.HTTPAddr)
	assert.Equal(t, []string{"fs", "shell"}, cfg.Toolsets)
}

func TestSplitToolsetsAll(t *testing.T) {
	assert.Equal(t, defaults.ToolsetsAll, config.SplitToolsets("all"))
}

func TestGitHubTokenFallback(t *testing.T) {
	t.Setenv(defaults.EnvGitHubPAT, "")
	t.Setenv(defaults.EnvGitHubToken, "tok123")
	cfg := config.Default()
	assert.Equal(t, "tok123", cfg.GitHubToken())
}

func TestRedactedNeverLeaksToken(t *testing.T) {
	t.Setenv(defaults.EnvGitHubPAT, "supersecret")
	cfg := config.Default()
	red := cfg.Redacted()
	assert.Equal(t, "set (redacted)", red["github_token"])
	for _, v := range red {
		if s, ok := v.(string); ok {
			assert.NotContains(t, s, "supersecret")
		}
	}
}
