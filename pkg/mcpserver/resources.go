package mcpserver

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/toolhost/toolhost/pkg/defaults"
	"github.com/toolhost/toolhost/pkg/jsonutil"
)

// Resource URIs under the toolhost:// scheme.
const (
	resVersion  = "toolhost://version"
	resToolsets = "toolhost://toolsets"
	resGuide    = "toolhost://guide"
	resConfig   = "toolhost://config"
	resDenylist = "toolhost://denylist"

	resToolsetTemplate = "toolhost://toolsets/{name}"
)

// registerResources registers the static server metadata resources and the
// per-toolset template.
func (s *Server) registerResources() {
	s.mcp.AddResource(&mcp.Resource{
		URI:         resVersion,
		Name:        "version",
		Title:       "Server Version",
		Description: "Toolhost server name and version.",
		MIMEType:    "application/json",
	}, s.readVersionResource)

	s.mcp.AddResource(&mcp.Resource{
		URI:         resToolsets,
		Name:        "toolsets",
		Title:       "Enabled Toolsets",
		Description: "The enabled toolsets and the tools each registered.",
		MIMEType:    "application/json",
	}, s.readToolsetsResource)

	s.mcp.AddResource(&mcp.Resource{
		URI:         resGuide,
		Name:        "guide",
		Title:       "Usage Guide",
		Description: "The server's operating instructions (same text sent at initialization).",
		MIMEType:    "text/markdown",
	}, s.readGuideResource)

	s.mcp.AddResource(&mcp.Resource{
		URI:         resConfig,
		Name:        "config",
		Title:       "Server Configuration",
		Description: "Effective configuration with secrets redacted.",
		MIMEType:    "application/json",
	}, s.readConfigResource)

	s.mcp.AddResource(&mcp.Resource{
		URI:         resDenylist,
		Name:        "denylist",
		Title:       "Shell Denylist",
		Description: "The command patterns run_command refuses to execute.",
		MIMEType:    "application/json",
	}, s.readDenylistResource)

	s.mcp.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: resToolsetTemplate,
		Name:        "toolset",
		Title:       "Toolset Detail",
		Description: "The tools registered by a single toolset, e.g. toolhost://toolsets/fs.",
		MIMEType:    "application/json",
	}, s.readToolsetResource)
}

// resourceJSON builds a single-content JSON resource result.
func resourceJSON(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := jsonutil.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling resource %s: %w", uri, err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{
			{URI: uri, MIMEType: "application/json", Text: string(data)},
		},
	}, nil
}

func (s *Server) readVersionResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	return resourceJSON(resVersion, struct {
		Name    string `json:"name"`
		Title   string `json:"title"`
		Version string `json:"version"`
	}{Name: defaults.ToolName, Title: defaults.ToolNameDisplay, Version: defaults.Version})
}

func (s *Server) readToolsetsResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	type toolsetEntry struct {
		Name  string   `json:"name"`
		Tools []string `json:"tools"`
	}
	entries := make([]toolsetEntry, 0, len(s.enabled))
	for _, ts := range s.enabled {
		entries = append(entries, toolsetEntry{Name: ts, Tools: s.inventory[ts]})
	}
	// The task tools are always registered but are not a selectable toolset.
	entries = append(entries, toolsetEntry{Name: "tasks", Tools: s.inventory["tasks"]})

	return resourceJSON(resToolsets, struct {
		Enabled  []string       `json:"enabled"`
		Toolsets []toolsetEntry `json:"toolsets"`
	}{Enabled: s.enabled, Toolsets: entries})
}

func (s *Server) readGuideResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{
			{URI: resGuide, MIMEType: "text/markdown", Text: s.buildInstructions()},
		},
	}, nil
}

func (s *Server) readConfigResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	githubAuth := "none"
	if s.github != nil && s.github.Authenticated() {
		githubAuth = "token (redacted)"
	}
	return resourceJSON(resConfig, struct {
		Toolsets     []string `json:"toolsets"`
		RootDir      string   `json:"root_dir"`
		WorkDir      string   `json:"work_dir,omitempty"`
		MusicDir     string   `json:"music_dir,omitempty"`
		GitHubAuth   string   `json:"github_auth"`
		DenyPatterns int      `json:"extra_deny_patterns"`
	}{
		Toolsets:     s.enabled,
		RootDir:      s.config.RootDir,
		WorkDir:      s.config.WorkDir,
		MusicDir:     s.config.MusicDir,
		GitHubAuth:   githubAuth,
		DenyPatterns: len(s.config.DenyPatterns),
	})
}

func (s *Server) readDenylistResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	if s.shell == nil {
		return nil, fmt.Errorf("shell toolset is not enabled")
	}
	return resourceJSON(resDenylist, struct {
		Patterns []string `json:"patterns"`
	}{Patterns: s.shell.Denylist()})
}

func (s *Server) readToolsetResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	uri := req.Params.URI
	name := uri[strings.LastIndex(uri, "/")+1:]

	tools, ok := s.inventory[name]
	if !ok {
		return nil, fmt.Errorf("toolset %q is not enabled on this server (enabled: %s)",
			name, strings.Join(s.enabled, ", "))
	}
	return resourceJSON(uri, struct {
		Name  string   `json:"name"`
		Tools []string `json:"tools"`
	}{Name: name, Tools: tools})
}
