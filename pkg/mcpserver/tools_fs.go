package mcpserver

import (
	"context"
	"fmt"
	"os"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/toolhost/toolhost/pkg/defaults"
	"github.com/toolhost/toolhost/pkg/fsops"
)

// registerFSTools registers the filesystem toolset. Every path argument is
// resolved inside the configured root; escapes come back as tool errors.
func (s *Server) registerFSTools() {
	const ts = defaults.ToolsetFS

	s.addTool(ts, &mcp.Tool{
		Name:        "read_file",
		Title:       "Read File",
		Description: fmt.Sprintf(`Read a text file's contents from inside the root directory.

USE THIS TOOL WHEN:
- You need to inspect source code, config files, logs, or documents
- Prefer this over run_command with cat

RETURNS: JSON with content, total size, and a truncated flag. Content is
capped at max_chars (default %d, ceiling %d); for log files prefer
tail_file.

EXAMPLE: {"path": "projects/app/main.go"}`, defaults.ReadFileMaxChars, defaults.ReadFileMaxCharsCeiling),
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"path": map[string]any{
					"type":        "string",
					"description": "File path, relative to the root or absolute within it",
				},
				"max_chars": map[string]any{
					"type":        "integer",
					"description": fmt.Sprintf("Maximum characters to return (default %d)", defaults.ReadFileMaxChars),
				},
			},
			"required": []string{"path"},
		},
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, s.handleReadFile)

	s.addTool(ts, &mcp.Tool{
		Name:        "write_file",
		Title:       "Write File",
		Description: `Write or append text content to a file inside the root directory.
Parent directories are created automatically.

USE THIS TOOL WHEN:
- Creating or overwriting files
- Appending to an existing file (set append=true)

RETURNS: JSON with the resolved path, bytes written, and whether the file
was newly created.`,
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"path": map[string]any{
					"type":        "string",
					"description": "Destination file path",
				},
				"content": map[string]any{
					"type":        "string",
					"description": "Text content to write",
				},
				"append": map[string]any{
					"type":        "boolean",
					"description": "Append instead of overwrite (default false)",
				},
			},
			"required": []string{"path", "content"},
		},
		Annotations: &mcp.ToolAnnotations{DestructiveHint: boolPtr(true)},
	}, s.handleWriteFile)

	s.addTool(ts, &mcp.Tool{
		Name:        "list_directory",
		Title:       "List Directory",
		Description: fmt.Sprintf(`List a directory's entries, directories first, hidden files excluded
unless show_hidden is set. Capped at %d entries.

RETURNS: JSON with name, type (file/dir/symlink), size, and mtime per entry.`, defaults.DirListCap),
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"path": map[string]any{
					"type":        "string",
					"description": "Directory path (empty = root)",
				},
				"show_hidden": map[string]any{
					"type":        "boolean",
					"description": "Include dotfiles (default false)",
				},
			},
		},
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, s.handleListDirectory)

	s.addTool(ts, &mcp.Tool{
		Name:        "file_info",
		Title:       "File Info",
		Description: `Get metadata for a file or directory: type, size, permissions, mtime,
and MIME type (guessed from the extension).`,
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"path": map[string]any{
					"type":        "string",
					"description": "File or directory path",
				},
			},
			"required": []string{"path"},
		},
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, s.handleFileInfo)

	s.addTool(ts, &mcp.Tool{
		Name:        "search_files",
		Title:       "Search Files",
		Description: fmt.Sprintf(`Find files by glob pattern. Supports * ? [] and, with recursive=true
(the default), the pattern is matched at every depth. Capped at %d matches.

USE THIS TOOL WHEN:
- Locating files by name or extension ("*.go", "docker-compose.*")
- Prefer this over walking with repeated list_directory calls

EXAMPLE: {"pattern": "*.log", "base": "var"}`, defaults.SearchMatchCap),
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"pattern": map[string]any{
					"type":        "string",
					"description": "Glob pattern to match file names against",
				},
				"base": map[string]any{
					"type":        "string",
					"description": "Directory to search from (empty = root)",
				},
				"recursive": map[string]any{
					"type":        "boolean",
					"description": "Search subdirectories (default true)",
				},
			},
			"required": []string{"pattern"},
		},
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, s.handleSearchFiles)

	s.addTool(ts, &mcp.Tool{
		Name:        "create_directory",
		Title:       "Create Directory",
		Description: `Create a directory (and any missing parents) inside the root.`,
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"path": map[string]any{
					"type":        "string",
					"description": "Directory path to create",
				},
			},
			"required": []string{"path"},
		},
		Annotations: &mcp.ToolAnnotations{IdempotentHint: true},
	}, s.handleCreateDirectory)

	s.addTool(ts, &mcp.Tool{
		Name:        "delete_file",
		Title:       "Delete File",
		Description: `Delete a single file. Refuses directories — use delete_directory.`,
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"path": map[string]any{
					"type":        "string",
					"description": "File path to delete",
				},
			},
			"required": []string{"path"},
		},
		Annotations: &mcp.ToolAnnotations{DestructiveHint: boolPtr(true)},
	}, s.handleDeleteFile)

	s.addTool(ts, &mcp.Tool{
		Name:        "delete_directory",
		Title:       "Delete Directory",
		Description: `Delete a directory. Non-empty directories require recursive=true.
The root directory itself can never be deleted.`,
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"path": map[string]any{
					"type":        "string",
					"description": "Directory path to delete",
				},
				"recursive": map[string]any{
					"type":        "boolean",
					"description": "Delete contents too (default false)",
				},
			},
			"required": []string{"path"},
		},
		Annotations: &mcp.ToolAnnotations{DestructiveHint: boolPtr(true)},
	}, s.handleDeleteDirectory)

	s.addTool(ts, &mcp.Tool{
		Name:        "copy_file",
		Title:       "Copy File",
		Description: `Copy a file to a new path inside the root. Refuses to overwrite an
existing destination.`,
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"source": map[string]any{
					"type":        "string",
					"description": "Existing file to copy",
				},
				"destination": map[string]any{
					"type":        "string",
					"description": "New file path (must not exist)",
				},
			},
			"required": []string{"source", "destination"},
		},
	}, s.handleCopyFile)

	s.addTool(ts, &mcp.Tool{
		Name:        "move_file",
		Title:       "Move File",
		Description: `Move or rename a file or directory inside the root. Refuses to
overwrite an existing destination.`,
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"source": map[string]any{
					"type":        "string",
					"description": "Existing path to move",
				},
				"destination": map[string]any{
					"type":        "string",
					"description": "New path (must not exist)",
				},
			},
			"required": []string{"source", "destination"},
		},
		Annotations: &mcp.ToolAnnotations{DestructiveHint: boolPtr(true)},
	}, s.handleMoveFile)

	s.addTool(ts, &mcp.Tool{
		Name:        "working_directory",
		Title:       "Working Directory",
		Description: `Report the server's process working directory and the configured root
that confines all file operations. Call this first to orient yourself.`,
		InputSchema: map[string]any{
			"type":       "object",
			"properties": map[string]any{},
		},
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, s.handleWorkingDirectory)

	s.addTool(ts, &mcp.Tool{
		Name:        "directory_stats",
		Title:       "Directory Stats",
		Description: `Recursively count files, directories, and total size under a path,
and report the largest file found.`,
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"path": map[string]any{
					"type":        "string",
					"description": "Directory to analyze (empty = root)",
				},
			},
		},
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, s.handleDirectoryStats)

	s.addTool(ts, &mcp.Tool{
		Name:        "find_large_files",
		Title:       "Find Large Files",
		Description: fmt.Sprintf(`Find the %d largest files above a size threshold under a path.

USE THIS TOOL WHEN:
- Hunting disk usage before a cleanup
- Pair with directory_stats to pick a starting directory

On the HTTP transport this runs as a background task and returns a
task_id — poll task_status for the result. Over stdio it blocks and
returns directly.

EXAMPLE: {"path": "var/log", "min_size_mb": 50}`, defaults.LargeFileTopN),
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"path": map[string]any{
					"type":        "string",
					"description": "Directory to scan (empty = root)",
				},
				"min_size_mb": map[string]any{
					"type":        "number",
					"description": fmt.Sprintf("Minimum file size in MB (default %d)", defaults.LargeFileMinSizeMB),
				},
			},
		},
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, s.handleFindLargeFiles)

	s.addTool(ts, &mcp.Tool{
		Name:        "tail_file",
		Title:       "Tail File",
		Description: fmt.Sprintf(`Return the last N lines of a file (default %d). Prefer this over
read_file for logs.`, defaults.TailLines),
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"path": map[string]any{
					"type":        "string",
					"description": "File path",
				},
				"lines": map[string]any{
					"type":        "integer",
					"description": fmt.Sprintf("Number of trailing lines (default %d)", defaults.TailLines),
				},
			},
			"required": []string{"path"},
		},
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, s.handleTailFile)
}

func (s *Server) handleReadFile(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args struct {
		Path     string `json:"path"`
		MaxChars int    `json:"max_chars"`
	}
	if err := parseArgs(req, &args); err != nil {
		return errorResult("%v", err), nil
	}
	content, err := s.root.ReadFile(args.Path, args.MaxChars)
	if err != nil {
		return errorResult("%v", err), nil
	}
	return jsonResult(content)
}

func (s *Server) handleWriteFile(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args struct {
		Path    string `json:"path"`
		Content string `json:"content"`
		Append  bool   `json:"append"`
	}
	if err := parseArgs(req, &args); err != nil {
		return errorResult("%v", err), nil
	}
	res, err := s.root.WriteFile(args.Path, args.Content, args.Append)
	if err != nil {
		return errorResult("%v", err), nil
	}
	return jsonResult(res)
}

func (s *Server) handleListDirectory(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args struct {
		Path       string `json:"path"`
		ShowHidden bool   `json:"show_hidden"`
	}
	if err := parseArgs(req, &args); err != nil {
		return errorResult("%v", err), nil
	}
	listing, err := s.root.ListDirectory(args.Path, args.ShowHidden)
	if err != nil {
		return errorResult("%v", err), nil
	}
	return jsonResult(listing)
}

func (s *Server) handleFileInfo(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args struct {
		Path string `json:"path"`
	}
	if err := parseArgs(req, &args); err != nil {
		return errorResult("%v", err), nil
	}
	info, err := s.root.FileInfo(args.Path)
	if err != nil {
		return errorResult("%v", err), nil
	}
	return jsonResult(info)
}

func (s *Server) handleSearchFiles(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := struct {
		Pattern   string `json:"pattern"`
		Base      string `json:"base"`
		Recursive *bool  `json:"recursive"`
	}{}
	if err := parseArgs(req, &args); err != nil {
		return errorResult("%v", err), nil
	}
	recursive := true
	if args.Recursive != nil {
		recursive = *args.Recursive
	}
	res, err := s.root.SearchFiles(ctx, args.Pattern, args.Base, recursive)
	if err != nil {
		return errorResult("%v", err), nil
	}
	return jsonResult(res)
}

func (s *Server) handleCreateDirectory(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args struct {
		Path string `json:"path"`
	}
	if err := parseArgs(req, &args); err != nil {
		return errorResult("%v", err), nil
	}
	path, err := s.root.CreateDirectory(args.Path)
	if err != nil {
		return errorResult("%v", err), nil
	}
	return textResult(fmt.Sprintf("created directory %s", path)), nil
}

func (s *Server) handleDeleteFile(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args struct {
		Path string `json:"path"`
	}
	if err := parseArgs(req, &args); err != nil {
		return errorResult("%v", err), nil
	}
	if err := s.root.DeleteFile(args.Path); err != nil {
		return errorResult("%v", err), nil
	}
	return textResult(fmt.Sprintf("deleted %s", args.Path)), nil
}

func (s *Server) handleDeleteDirectory(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args struct {
		Path      string `json:"path"`
		Recursive bool   `json:"recursive"`
	}
	if err := parseArgs(req, &args); err != nil {
		return errorResult("%v", err), nil
	}
	if err := s.root.DeleteDirectory(args.Path, args.Recursive); err != nil {
		return errorResult("%v", err), nil
	}
	return textResult(fmt.Sprintf("deleted directory %s", args.Path)), nil
}

func (s *Server) handleCopyFile(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args struct {
		Source      string `json:"source"`
		Destination string `json:"destination"`
	}
	if err := parseArgs(req, &args); err != nil {
		return errorResult("%v", err), nil
	}
	res, err := s.root.CopyFile(args.Source, args.Destination)
	if err != nil {
		return errorResult("%v", err), nil
	}
	return jsonResult(res)
}

func (s *Server) handleMoveFile(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args struct {
		Source      string `json:"source"`
		Destination string `json:"destination"`
	}
	if err := parseArgs(req, &args); err != nil {
		return errorResult("%v", err), nil
	}
	dst, err := s.root.MoveFile(args.Source, args.Destination)
	if err != nil {
		return errorResult("%v", err), nil
	}
	return textResult(fmt.Sprintf("moved %s to %s", args.Source, dst)), nil
}

func (s *Server) handleWorkingDirectory(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return errorResult("resolving working directory: %v", err), nil
	}
	return jsonResult(struct {
		WorkingDirectory string `json:"working_directory"`
		Root             string `json:"root"`
	}{WorkingDirectory: cwd, Root: s.root.Dir()})
}

func (s *Server) handleDirectoryStats(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args struct {
		Path string `json:"path"`
	}
	if err := parseArgs(req, &args); err != nil {
		return errorResult("%v", err), nil
	}
	stats, err := s.root.DirectoryStats(ctx, args.Path)
	if err != nil {
		return errorResult("%v", err), nil
	}
	return jsonResult(stats)
}

func (s *Server) handleFindLargeFiles(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args struct {
		Path      string  `json:"path"`
		MinSizeMB float64 `json:"min_size_mb"`
	}
	if err := parseArgs(req, &args); err != nil {
		return errorResult("%v", err), nil
	}
	if args.MinSizeMB <= 0 {
		args.MinSizeMB = defaults.LargeFileMinSizeMB
	}

	scan := func(ctx context.Context, task *Task) (any, error) {
		if task != nil {
			task.SetProgress(0, 100, "scanning "+args.Path)
		}
		files, err := s.root.FindLargeFiles(ctx, args.Path, args.MinSizeMB)
		if err != nil {
			return nil, err
		}
		return struct {
			Path      string            `json:"path"`
			MinSizeMB float64           `json:"min_size_mb"`
			Files     []fsops.LargeFile `json:"files"`
		}{Path: args.Path, MinSizeMB: args.MinSizeMB, Files: files}, nil
	}

	if s.runsAsync() {
		return s.launchAsync("find_large_files", scan)
	}
	result, err := scan(ctx, nil)
	if err != nil {
		return errorResult("%v", err), nil
	}
	return jsonResult(result)
}

func (s *Server) handleTailFile(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args struct {
		Path  string `json:"path"`
		Lines int    `json:"lines"`
	}
	if err := parseArgs(req, &args); err != nil {
		return errorResult("%v", err), nil
	}
	lines, err := s.root.TailFile(args.Path, args.Lines)
	if err != nil {
		return errorResult("%v", err), nil
	}
	return jsonResult(struct {
		Path  string   `json:"path"`
		Count int      `json:"count"`
		Lines []string `json:"lines"`
	}{Path: args.Path, Count: len(lines), Lines: lines})
}
