// Package config loads and validates toolhost configuration.
//
// Precedence, lowest to highest: built-in defaults, config file (--config),
// environment variables, command-line flags. The file format is YAML.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/toolhost/toolhost/pkg/defaults"
	"gopkg.in/yaml.v3"
)

// Config holds the full server configuration.
type Config struct {
	// Toolsets lists the enabled toolsets (fs, shell, system, github,
	// audio, calc). Empty means the default set.
	Toolsets []string `yaml:"toolsets"`

	// Root is the directory the filesystem toolset is confined to.
	// Defaults to the user's home directory.
	Root string `yaml:"root"`

	// WorkDir is the default working directory for run_command and
	// local git tools. Defaults to Root.
	WorkDir string `yaml:"work_dir"`

	// DenyPatterns are extra shell denylist patterns, appended to the
	// built-in list.
	DenyPatterns []string `yaml:"deny_patterns"`

	// GitHubTokenEnv names the environment variable holding the GitHub
	// token. Defaults to GITHUB_PAT with GITHUB_TOKEN as fallback.
	GitHubTokenEnv string `yaml:"github_token_env"`

	// HTTPAddr is the MCP listen address for the HTTP transport
	// (empty = stdio).
	HTTPAddr string `yaml:"http_addr"`

	// MetricsAddr is the Prometheus listen address (empty = disabled).
	MetricsAddr string `yaml:"metrics_addr"`

	// OTelEndpoint is the OTLP gRPC endpoint for traces (empty = disabled).
	OTelEndpoint string `yaml:"otel_endpoint"`

	// MusicDir is the library root for search_music. Defaults to
	// $HOME/Music.
	MusicDir string `yaml:"music_dir"`
}

// Default returns a Config populated with built-in defaults.
func Default() *Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return &Config{
		Toolsets: append([]string(nil), defaults.ToolsetsDefault...),
		Root:     home,
		MusicDir: home + string(os.PathSeparator) + "Music",
	}
}

// Load reads a YAML config file and merges it over the defaults.
// A missing path returns the defaults unchanged; a missing file named
// explicitly is an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}

	var file Config
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, &LoadError{Path: path, Err: fmt.Errorf("parsing YAML: %w", err)}
	}

	cfg.merge(&file)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// merge overlays non-zero fields of other onto c.
func (c *Config) merge(other *Config) {
	if len(other.Toolsets) > 0 {
		c.Toolsets = other.Toolsets
	}
	if other.Root != "" {
		c.Root = other.Root
	}
	if other.WorkDir != "" {
		c.WorkDir = other.WorkDir
	}
	if len(other.DenyPatterns) > 0 {
		c.DenyPatterns = append(c.DenyPatterns, other.DenyPatterns...)
	}
	if other.GitHubTokenEnv != "" {
		c.GitHubTokenEnv = other.GitHubTokenEnv
	}
	if other.HTTPAddr != "" {
		c.HTTPAddr = other.HTTPAddr
	}
	if other.MetricsAddr != "" {
		c.MetricsAddr = other.MetricsAddr
	}
	if other.OTelEndpoint != "" {
		c.OTelEndpoint = other.OTelEndpoint
	}
	if other.MusicDir != "" {
		c.MusicDir = other.MusicDir
	}
}

// ApplyEnv overlays environment variable overrides.
func (c *Config) ApplyEnv() {
	if v := os.Getenv(defaults.EnvHTTPAddr); v != "" {
		c.HTTPAddr = v
	}
	if v := os.Getenv(defaults.EnvRootDir); v != "" {
		c.Root = v
	}
	if v := os.Getenv(defaults.EnvToolsets); v != "" {
		c.Toolsets = SplitToolsets(v)
	}
}

// Validate checks toolset names and directory fields.
func (c *Config) Validate() error {
	for _, name := range c.Toolsets {
		if !defaults.KnownToolset(name) {
			return &ValidationError{
				Field: "toolsets",
				Value: name,
				Hint:  fmt.Sprintf("known toolsets: %s", strings.Join(defaults.ToolsetsAll, ", ")),
			}
		}
	}
	if c.Root != "" {
		info, err := os.Stat(c.Root)
		if err != nil {
			return &ValidationError{Field: "root", Value: c.Root, Hint: "directory must exist"}
		}
		if !info.IsDir() {
			return &ValidationError{Field: "root", Value: c.Root, Hint: "must be a directory"}
		}
	}
	return nil
}

// GitHubToken resolves the GitHub token from the configured environment
// variable, falling back to GITHUB_PAT then GITHUB_TOKEN. Returns "" when
// no token is set (read-only tools degrade to anonymous access).
func (c *Config) GitHubToken() string {
	if c.GitHubTokenEnv != "" {
		return os.Getenv(c.GitHubTokenEnv)
	}
	if v := os.Getenv(defaults.EnvGitHubPAT); v != "" {
		return v
	}
	return os.Getenv(defaults.EnvGitHubToken)
}

// Redacted returns a copy safe for the toolhost://config resource:
// secrets are never stored in Config, but the token env var name is
// replaced with a marker showing whether a token is present.
func (c *Config) Redacted() map[string]any {
	tokenState := "unset"
	if c.GitHubToken() != "" {
		tokenState = "set (redacted)"
	}
	return map[string]any{
		"toolsets":      c.Toolsets,
		"root":          c.Root,
		"work_dir":      c.WorkDir,
		"deny_patterns": c.DenyPatterns,
		"github_token":  tokenState,
		"http_addr":     c.HTTPAddr,
		"metrics_addr":  c.MetricsAddr,
		"otel_endpoint": c.OTelEndpoint,
		"music_dir":     c.MusicDir,
	}
}

// SplitToolsets parses a comma-separated toolset list, trimming blanks.
// The special value "all" expands to every known toolset.
func SplitToolsets(s string) []string {
	if strings.TrimSpace(s) == "all" {
		return append([]string(nil), defaults.ToolsetsAll...)
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
