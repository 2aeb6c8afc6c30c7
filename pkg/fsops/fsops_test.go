package fsops_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/toolhost/toolhost/pkg/fsops"
)

func newRoot(t *testing.T) (*fsops.Root, string) {
	t.Helper()
	dir := t.TempDir()
	// t.TempDir may sit behind a symlink on macOS; resolve for comparisons.
	resolved, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)
	root, err := fsops.NewRoot(resolved)
	require.NoError(t, err)
	return root, resolved
}

func writeFixture(t *testing.T, dir, rel, content string) string {
	t.Helper()
	path := filepath.Join(dir, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestNewRootRejectsFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFixture(t, dir, "f.txt", "x")
	_, err := fsops.NewRoot(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a directory")
}

func TestResolveRejectsEscape(t *testing.T) {
	root, _ := newRoot(t)

	for _, path := range []string{"../outside", "a/../../outside", "/etc/passwd"} {
		_, err := root.Resolve(path)
		require.Error(t, err, "path %q should be rejected", path)
		assert.True(t, errors.Is(err, fsops.ErrOutsideRoot), "path %q: %v", path, err)
	}
}

func TestResolveRejectsSymlinkEscape(t *testing.T) {
	root, dir := newRoot(t)
	outside := t.TempDir()
	require.NoError(t, os.Symlink(outside, filepath.Join(dir, "link")))

	_, err := root.Resolve("link/secret.txt")
	require.Error(t, err)
	assert.True(t, errors.Is(err, fsops.ErrOutsideRoot))
}

func TestReadFileCapsContent(t *testing.T) {
	root, dir := newRoot(t)
	writeFixture(t, dir, "big.txt", strings.Repeat("a", 100))

	fc, err := root.ReadFile("big.txt", 10)
	require.NoError(t, err)
	assert.Len(t, fc.Content, 10)
	assert.True(t, fc.Truncated)
	assert.Equal(t, int64(100), fc.TotalBytes)
}

func TestReadFileBinarySanitized(t *testing.T) {
	root, dir := newRoot(t)
	blob := []byte{0x89, 0x50, 0x4E, 0x47, 0xFF, 0xFE, 0x80, 'h', 'i'}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "blob.bin"), blob, 0o644))

	fc, err := root.ReadFile("blob.bin", 0)
	require.NoError(t, err)
	assert.True(t, utf8.ValidString(fc.Content))
	assert.Contains(t, fc.Content, "PNG")
	assert.Contains(t, fc.Content, "hi")
	assert.Equal(t, int64(len(blob)), fc.TotalBytes)
}

func TestReadFileCapDropsSplitRune(t *testing.T) {
	root, dir := newRoot(t)
	writeFixture(t, dir, "u.txt", "aé")

	fc, err := root.ReadFile("u.txt", 2)
	require.NoError(t, err)
	assert.Equal(t, "a", fc.Content)
	assert.True(t, fc.Truncated)
}

func TestResolveRootWithTrailingSeparator(t *testing.T) {
	root, err := fsops.NewRoot("/")
	require.NoError(t, err)

	resolved, err := root.Resolve("tmp")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(resolved, "tmp"), "got %s", resolved)
}

func TestReadFileMissing(t *testing.T) {
	root, _ := newRoot(t)
	_, err := root.ReadFile("nope.txt", 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "file not found")
}

func TestWriteFileCreatesParents(t *testing.T) {
	root, dir := newRoot(t)

	res, err := root.WriteFile("a/b/c.txt", "hello", false)
	require.NoError(t, err)
	assert.True(t, res.Created)
	assert.Equal(t, 5, res.BytesWritten)

	data, err := os.ReadFile(filepath.Join(dir, "a/b/c.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
}

func TestWriteFileAppend(t *testing.T) {
	root, dir := newRoot(t)
	writeFixture(t, dir, "log.txt", "one\n")

	_, err := root.WriteFile("log.txt", "two\n", true)
	require.NoError(t, err)

	data, _ := os.ReadFile(filepath.Join(dir, "log.txt"))
	assert.Equal(t, "one\ntwo\n", string(data))
}

func TestListDirectoryHidesDotfiles(t *testing.T) {
	root, dir := newRoot(t)
	writeFixture(t, dir, "visible.txt", "x")
	writeFixture(t, dir, ".hidden", "x")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))

	listing, err := root.ListDirectory(".", false)
	require.NoError(t, err)
	require.Len(t, listing.Entries, 2)
	// Dirs sort before files.
	assert.Equal(t, "sub", listing.Entries[0].Name)
	assert.Equal(t, "dir", listing.Entries[0].Type)
	assert.Equal(t, "visible.txt", listing.Entries[1].Name)

	withHidden, err := root.ListDirectory(".", true)
	require.NoError(t, err)
	assert.Len(t, withHidden.Entries, 3)
}

func TestFileInfoMIME(t *testing.T) {
	root, dir := newRoot(t)
	writeFixture(t, dir, "doc.json", "{}")

	info, err := root.FileInfo("doc.json")
	require.NoError(t, err)
	assert.Equal(t, "file", info.Type)
	assert.Contains(t, info.MIMEType, "application/json")
}

func TestSearchFilesRecursiveGlob(t *testing.T) {
	root, dir := newRoot(t)
	writeFixture(t, dir, "a.go", "x")
	writeFixture(t, dir, "sub/b.go", "x")
	writeFixture(t, dir, "sub/c.txt", "x")

	res, err := root.SearchFiles(context.Background(), "*.go", ".", true)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a.go", "sub/b.go"}, res.Matches)
	assert.False(t, res.Truncated)
}

func TestSearchFilesNonRecursive(t *testing.T) {
	root, dir := newRoot(t)
	writeFixture(t, dir, "a.go", "x")
	writeFixture(t, dir, "sub/b.go", "x")

	res, err := root.SearchFiles(context.Background(), "*.go", ".", false)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.go"}, res.Matches)
}

func TestSearchFilesCap(t *testing.T) {
	root, dir := newRoot(t)
	for i := 0; i < 60; i++ {
		writeFixture(t, dir, filepath.Join("many", strings.Repeat("x", i%5+1)+string(rune('a'+i%26))+".txt"), "x")
	}
	writeFixture(t, dir, "many/zz_000.txt", "x")
	// Ensure enough distinct files exist to exceed the cap of 50.
	for i := 0; i < 60; i++ {
		writeFixture(t, dir, filepath.Join("many", "f", "file_"+string(rune('a'+i%26))+strings.Repeat("q", i/26+1)+".txt"), "x")
	}

	res, err := root.SearchFiles(context.Background(), "*.txt", ".", true)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(res.Matches), 50)
	if len(res.Matches) == 50 {
		assert.True(t, res.Truncated)
	}
}

func TestDeleteFileRejectsDirectory(t *testing.T) {
	root, dir := newRoot(t)
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))

	err := root.DeleteFile("sub")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "delete_directory")
}

func TestDeleteDirectoryRequiresRecursiveWhenNonEmpty(t *testing.T) {
	root, dir := newRoot(t)
	writeFixture(t, dir, "sub/f.txt", "x")

	err := root.DeleteDirectory("sub", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "recursive")

	require.NoError(t, root.DeleteDirectory("sub", true))
	_, statErr := os.Stat(filepath.Join(dir, "sub"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestDeleteDirectoryRefusesRoot(t *testing.T) {
	root, _ := newRoot(t)
	err := root.DeleteDirectory(".", true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "root")
}

func TestCopyFileRefusesOverwrite(t *testing.T) {
	root, dir := newRoot(t)
	writeFixture(t, dir, "src.txt", "data")
	writeFixture(t, dir, "dst.txt", "existing")

	_, err := root.CopyFile("src.txt", "dst.txt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	res, err := root.CopyFile("src.txt", "copy/dst.txt")
	require.NoError(t, err)
	assert.Equal(t, 4, res.BytesWritten)
}

func TestMoveFile(t *testing.T) {
	root, dir := newRoot(t)
	writeFixture(t, dir, "src.txt", "data")

	dst, err := root.MoveFile("src.txt", "moved/dst.txt")
	require.NoError(t, err)
	assert.FileExists(t, dst)
	_, statErr := os.Stat(filepath.Join(dir, "src.txt"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestDirectoryStats(t *testing.T) {
	root, dir := newRoot(t)
	writeFixture(t, dir, "a.txt", "12345")
	writeFixture(t, dir, "sub/b.txt", "1234567890")

	stats, err := root.DirectoryStats(context.Background(), ".")
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Files)
	assert.Equal(t, 1, stats.Dirs)
	assert.Equal(t, int64(15), stats.TotalSize)
	assert.Contains(t, stats.LargestFile, "b.txt")
}

func TestFindLargeFilesSortsAndFilters(t *testing.T) {
	root, dir := newRoot(t)
	writeFixture(t, dir, "small.bin", strings.Repeat("x", 100))
	writeFixture(t, dir, "big.bin", strings.Repeat("x", 3000))
	writeFixture(t, dir, "bigger.bin", strings.Repeat("x", 5000))

	// Threshold of ~0.002 MB (2 KB) excludes small.bin.
	files, err := root.FindLargeFiles(context.Background(), ".", 0.002)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Contains(t, files[0].Path, "bigger.bin")
	assert.Contains(t, files[1].Path, "big.bin")
}

func TestTailFile(t *testing.T) {
	root, dir := newRoot(t)
	writeFixture(t, dir, "log.txt", "1\n2\n3\n4\n5\n")

	lines, err := root.TailFile("log.txt", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"4", "5"}, lines)
}
