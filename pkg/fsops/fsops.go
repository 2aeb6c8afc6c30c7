// Package fsops implements the filesystem operations behind the fs toolset.
// Every path is resolved against a configured root directory; operations
// that would escape the root are rejected before touching the disk.
package fsops

import (
	"context"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/dustin/go-humanize"
	"github.com/toolhost/toolhost/pkg/defaults"
)

// ErrOutsideRoot is returned when a path resolves outside the configured root.
var ErrOutsideRoot = fmt.Errorf("path escapes the configured root directory")

// errSearchCapReached stops a glob walk once SearchMatchCap matches exist.
var errSearchCapReached = fmt.Errorf("search cap reached")

// Root confines all filesystem operations to a single directory tree.
type Root struct {
	dir string
}

// NewRoot resolves dir (following symlinks) and verifies it is a directory.
func NewRoot(dir string) (*Root, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving root %q: %w", dir, err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, fmt.Errorf("resolving root %q: %w", dir, err)
	}
	info, err := os.Stat(resolved)
	if err != nil {
		return nil, fmt.Errorf("root %q: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root %q is not a directory", dir)
	}
	return &Root{dir: resolved}, nil
}

// Dir returns the resolved root directory.
func (r *Root) Dir() string { return r.dir }

// Resolve turns a caller-supplied path (absolute or root-relative) into an
// absolute path and verifies containment. Symlinks in the existing portion
// of the path are resolved before the check so a link cannot smuggle the
// operation outside the root.
func (r *Root) Resolve(path string) (string, error) {
	if path == "" || path == "." {
		return r.dir, nil
	}
	abs := path
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(r.dir, abs)
	}
	abs = filepath.Clean(abs)

	resolved, err := resolveExisting(abs)
	if err != nil {
		return "", err
	}
	prefix := r.dir
	if !strings.HasSuffix(prefix, string(os.PathSeparator)) {
		// A root of "/" already ends in the separator.
		prefix += string(os.PathSeparator)
	}
	if resolved != r.dir && !strings.HasPrefix(resolved, prefix) {
		return "", fmt.Errorf("%w: %s", ErrOutsideRoot, path)
	}
	return resolved, nil
}

// resolveExisting evaluates symlinks on the longest existing prefix of abs
// and re-joins the non-existing suffix. Needed so write/create operations
// can target paths that do not exist yet.
func resolveExisting(abs string) (string, error) {
	remainder := ""
	current := abs
	for {
		resolved, err := filepath.EvalSymlinks(current)
		if err == nil {
			return filepath.Join(resolved, remainder), nil
		}
		if !os.IsNotExist(err) {
			return "", err
		}
		parent := filepath.Dir(current)
		if parent == current {
			return filepath.Join(current, remainder), nil
		}
		remainder = filepath.Join(filepath.Base(current), remainder)
		current = parent
	}
}

// ---------------------------------------------------------------------------
// Read / write
// ---------------------------------------------------------------------------

// FileContent is the result of ReadFile.
type FileContent struct {
	Path       string `json:"path"`
	Content    string `json:"content"`
	Truncated  bool   `json:"truncated"`
	TotalBytes int64  `json:"total_bytes"`
	SizeHuman  string `json:"size_human"`
}

// ReadFile reads up to maxChars characters from path. A zero or negative
// maxChars uses the default cap; requests above the ceiling are clamped.
func (r *Root) ReadFile(path string, maxChars int) (*FileContent, error) {
	abs, err := r.Resolve(path)
	if err != nil {
		return nil, err
	}
	if maxChars <= 0 {
		maxChars = defaults.ReadFileMaxChars
	}
	if maxChars > defaults.ReadFileMaxCharsCeiling {
		maxChars = defaults.ReadFileMaxCharsCeiling
	}

	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("file not found: %s", path)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory, not a file", path)
	}

	f, err := os.Open(abs)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	// Read one extra byte to detect truncation without loading the file.
	buf := make([]byte, maxChars+1)
	n, err := io.ReadFull(f, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	truncated := n > maxChars
	if truncated {
		n = maxChars
	}

	// Drop invalid UTF-8 (binary files, runes split at the cap) so the
	// content always survives JSON encoding as a tool result.
	return &FileContent{
		Path:       abs,
		Content:    strings.ToValidUTF8(string(buf[:n]), ""),
		Truncated:  truncated,
		TotalBytes: info.Size(),
		SizeHuman:  humanize.Bytes(uint64(info.Size())),
	}, nil
}

// WriteResult is the result of WriteFile.
type WriteResult struct {
	Path         string `json:"path"`
	BytesWritten int    `json:"bytes_written"`
	Appended     bool   `json:"appended"`
	Created      bool   `json:"created"`
}

// WriteFile writes content to path, creating parent directories as needed.
// With appendMode, content is appended to an existing file.
func (r *Root) WriteFile(path, content string, appendMode bool) (*WriteResult, error) {
	abs, err := r.Resolve(path)
	if err != nil {
		return nil, err
	}

	_, statErr := os.Stat(abs)
	created := os.IsNotExist(statErr)

	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return nil, fmt.Errorf("creating parent directories: %w", err)
	}

	flags := os.O_CREATE | os.O_WRONLY
	if appendMode {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}
	f, err := os.OpenFile(abs, flags, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening %s for writing: %w", path, err)
	}
	defer f.Close()

	n, err := f.WriteString(content)
	if err != nil {
		return nil, fmt.Errorf("writing %s: %w", path, err)
	}

	return &WriteResult{Path: abs, BytesWritten: n, Appended: appendMode && !created, Created: created}, nil
}

// ---------------------------------------------------------------------------
// Listing and metadata
// ---------------------------------------------------------------------------

// Entry describes one directory entry.
type Entry struct {
	Name      string `json:"name"`
	Type      string `json:"type"` // file, dir, symlink
	Size      int64  `json:"size"`
	SizeHuman string `json:"size_human"`
	ModTime   string `json:"modified"`
}

// Listing is the result of ListDirectory.
type Listing struct {
	Path      string  `json:"path"`
	Entries   []Entry `json:"entries"`
	Total     int     `json:"total"`
	Truncated bool    `json:"truncated"`
}

// ListDirectory lists entries under path, dirs first then files, both
// alphabetically. Hidden entries (dot-prefixed) are skipped unless
// showHidden is set. Output is capped at DirListCap entries.
func (r *Root) ListDirectory(path string, showHidden bool) (*Listing, error) {
	abs, err := r.Resolve(path)
	if err != nil {
		return nil, err
	}

	dirEntries, err := os.ReadDir(abs)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", path, err)
	}

	entries := make([]Entry, 0, len(dirEntries))
	for _, de := range dirEntries {
		if !showHidden && strings.HasPrefix(de.Name(), ".") {
			continue
		}
		e := Entry{Name: de.Name(), Type: "file"}
		if de.IsDir() {
			e.Type = "dir"
		} else if de.Type()&os.ModeSymlink != 0 {
			e.Type = "symlink"
		}
		if info, err := de.Info(); err == nil {
			e.Size = info.Size()
			e.SizeHuman = humanize.Bytes(uint64(info.Size()))
			e.ModTime = info.ModTime().Format(time.RFC3339)
		}
		entries = append(entries, e)
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Type != entries[j].Type {
			return entries[i].Type == "dir"
		}
		return entries[i].Name < entries[j].Name
	})

	total := len(entries)
	truncated := false
	if len(entries) > defaults.DirListCap {
		entries = entries[:defaults.DirListCap]
		truncated = true
	}

	return &Listing{Path: abs, Entries: entries, Total: total, Truncated: truncated}, nil
}

// Info is the result of FileInfo.
type Info struct {
	Path      string `json:"path"`
	Type      string `json:"type"`
	Size      int64  `json:"size"`
	SizeHuman string `json:"size_human"`
	Mode      string `json:"mode"`
	ModTime   string `json:"modified"`
	MIMEType  string `json:"mime_type,omitempty"`
}

// FileInfo returns metadata for a file or directory.
func (r *Root) FileInfo(path string) (*Info, error) {
	abs, err := r.Resolve(path)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("file not found: %s", path)
	}

	typ := "file"
	mimeType := ""
	if info.IsDir() {
		typ = "dir"
	} else {
		mimeType = mime.TypeByExtension(filepath.Ext(abs))
	}

	return &Info{
		Path:      abs,
		Type:      typ,
		Size:      info.Size(),
		SizeHuman: humanize.Bytes(uint64(info.Size())),
		Mode:      info.Mode().String(),
		ModTime:   info.ModTime().Format(time.RFC3339),
		MIMEType:  mimeType,
	}, nil
}

// ---------------------------------------------------------------------------
// Search
// ---------------------------------------------------------------------------

// SearchResult is the result of SearchFiles.
type SearchResult struct {
	Pattern   string   `json:"pattern"`
	Base      string   `json:"base"`
	Matches   []string `json:"matches"`
	Truncated bool     `json:"truncated"`
}

// SearchFiles matches files under base against a doublestar glob pattern.
// A bare pattern like "*.go" is searched recursively ("**/*.go") unless
// recursive is false. Results are capped at SearchMatchCap.
func (r *Root) SearchFiles(ctx context.Context, pattern, base string, recursive bool) (*SearchResult, error) {
	abs, err := r.Resolve(base)
	if err != nil {
		return nil, err
	}
	if pattern == "" {
		return nil, fmt.Errorf("pattern is required (e.g. *.txt or src/**/*.go)")
	}
	if recursive && !strings.Contains(pattern, "/") {
		pattern = "**/" + pattern
	}
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid glob pattern: %s", pattern)
	}

	result := &SearchResult{Pattern: pattern, Base: abs, Matches: []string{}}
	err = doublestar.GlobWalk(os.DirFS(abs), pattern, func(match string, d os.DirEntry) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if len(result.Matches) >= defaults.SearchMatchCap {
			result.Truncated = true
			return errSearchCapReached
		}
		result.Matches = append(result.Matches, match)
		return nil
	})
	if err != nil && ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if err != nil && err != errSearchCapReached {
		return nil, fmt.Errorf("searching %s: %w", pattern, err)
	}
	return result, nil
}

// ---------------------------------------------------------------------------
// Create / delete / copy / move
// ---------------------------------------------------------------------------

// CreateDirectory creates path and any missing parents.
func (r *Root) CreateDirectory(path string) (string, error) {
	abs, err := r.Resolve(path)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return "", fmt.Errorf("creating %s: %w", path, err)
	}
	return abs, nil
}

// DeleteFile removes a single file. Directories are rejected.
func (r *Root) DeleteFile(path string) error {
	abs, err := r.Resolve(path)
	if err != nil {
		return err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return fmt.Errorf("file not found: %s", path)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory — use delete_directory", path)
	}
	return os.Remove(abs)
}

// DeleteDirectory removes a directory. Non-empty directories require
// recursive=true. The root itself can never be deleted.
func (r *Root) DeleteDirectory(path string, recursive bool) error {
	abs, err := r.Resolve(path)
	if err != nil {
		return err
	}
	if abs == r.dir {
		return fmt.Errorf("refusing to delete the root directory")
	}
	info, err := os.Stat(abs)
	if err != nil {
		return fmt.Errorf("directory not found: %s", path)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is a file — use delete_file", path)
	}
	if recursive {
		return os.RemoveAll(abs)
	}
	if err := os.Remove(abs); err != nil {
		return fmt.Errorf("directory not empty (use recursive=true): %s", path)
	}
	return nil
}

// CopyFile copies src to dst, creating dst's parents. Refuses to copy
// directories and to overwrite an existing dst.
func (r *Root) CopyFile(src, dst string) (*WriteResult, error) {
	srcAbs, err := r.Resolve(src)
	if err != nil {
		return nil, err
	}
	dstAbs, err := r.Resolve(dst)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(srcAbs)
	if err != nil {
		return nil, fmt.Errorf("source not found: %s", src)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory — copy_file handles files only", src)
	}
	if _, err := os.Stat(dstAbs); err == nil {
		return nil, fmt.Errorf("destination already exists: %s", dst)
	}
	if err := os.MkdirAll(filepath.Dir(dstAbs), 0o755); err != nil {
		return nil, fmt.Errorf("creating destination parents: %w", err)
	}

	in, err := os.Open(srcAbs)
	if err != nil {
		return nil, err
	}
	defer in.Close()

	out, err := os.OpenFile(dstAbs, os.O_CREATE|os.O_WRONLY|os.O_EXCL, info.Mode().Perm())
	if err != nil {
		return nil, err
	}
	defer out.Close()

	n, err := io.Copy(out, in)
	if err != nil {
		return nil, fmt.Errorf("copying %s: %w", src, err)
	}
	return &WriteResult{Path: dstAbs, BytesWritten: int(n), Created: true}, nil
}

// MoveFile renames src to dst, creating dst's parents. Works for files
// and directories. Refuses to overwrite an existing dst.
func (r *Root) MoveFile(src, dst string) (string, error) {
	srcAbs, err := r.Resolve(src)
	if err != nil {
		return "", err
	}
	dstAbs, err := r.Resolve(dst)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(srcAbs); err != nil {
		return "", fmt.Errorf("source not found: %s", src)
	}
	if _, err := os.Stat(dstAbs); err == nil {
		return "", fmt.Errorf("destination already exists: %s", dst)
	}
	if err := os.MkdirAll(filepath.Dir(dstAbs), 0o755); err != nil {
		return "", fmt.Errorf("creating destination parents: %w", err)
	}
	if err := os.Rename(srcAbs, dstAbs); err != nil {
		return "", fmt.Errorf("moving %s: %w", src, err)
	}
	return dstAbs, nil
}

// ---------------------------------------------------------------------------
// Aggregates
// ---------------------------------------------------------------------------

// DirStats is the result of DirectoryStats.
type DirStats struct {
	Path           string `json:"path"`
	Files          int    `json:"files"`
	Dirs           int    `json:"dirs"`
	TotalSize      int64  `json:"total_size"`
	TotalSizeHuman string `json:"total_size_human"`
	LargestFile    string `json:"largest_file,omitempty"`
	LargestSize    int64  `json:"largest_size,omitempty"`
}

// DirectoryStats walks path and aggregates counts and sizes.
// Unreadable subtrees are skipped rather than failing the whole walk.
func (r *Root) DirectoryStats(ctx context.Context, path string) (*DirStats, error) {
	abs, err := r.Resolve(path)
	if err != nil {
		return nil, err
	}

	stats := &DirStats{Path: abs}
	err = filepath.WalkDir(abs, func(p string, d os.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if walkErr != nil {
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if p != abs {
				stats.Dirs++
			}
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		stats.Files++
		stats.TotalSize += info.Size()
		if info.Size() > stats.LargestSize {
			stats.LargestSize = info.Size()
			stats.LargestFile = p
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	stats.TotalSizeHuman = humanize.Bytes(uint64(stats.TotalSize))
	return stats, nil
}

// LargeFile describes one entry from FindLargeFiles.
type LargeFile struct {
	Path      string `json:"path"`
	Size      int64  `json:"size"`
	SizeHuman string `json:"size_human"`
}

// FindLargeFiles walks path and returns the LargeFileTopN biggest files at
// or above minSizeMB megabytes, largest first.
func (r *Root) FindLargeFiles(ctx context.Context, path string, minSizeMB float64) ([]LargeFile, error) {
	abs, err := r.Resolve(path)
	if err != nil {
		return nil, err
	}
	if minSizeMB <= 0 {
		minSizeMB = defaults.LargeFileMinSizeMB
	}
	minBytes := int64(minSizeMB * 1024 * 1024)

	var found []LargeFile
	err = filepath.WalkDir(abs, func(p string, d os.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if walkErr != nil {
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil || info.Size() < minBytes {
			return nil
		}
		found = append(found, LargeFile{
			Path:      p,
			Size:      info.Size(),
			SizeHuman: humanize.Bytes(uint64(info.Size())),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(found, func(i, j int) bool { return found[i].Size > found[j].Size })
	if len(found) > defaults.LargeFileTopN {
		found = found[:defaults.LargeFileTopN]
	}
	return found, nil
}

// TailFile returns the last n lines of a file.
func (r *Root) TailFile(path string, n int) ([]string, error) {
	abs, err := r.Resolve(path)
	if err != nil {
		return nil, err
	}
	if n <= 0 {
		n = defaults.TailLines
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("file not found: %s", path)
	}

	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return lines, nil
}
