package mcpserver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/toolhost/toolhost/pkg/jsonutil"
)

// newTestSession builds a server with the given config, connects an
// in-memory client session, and returns both. Cleanup tears the session
// and server down.
func newTestSession(t *testing.T, cfg *Config) (*Server, *mcp.ClientSession) {
	t.Helper()

	srv, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	// Tests exercise tools directly; synchronous mode keeps results inline.
	srv.syncMode.Store(true)
	srv.MarkReady()

	serverTransport, clientTransport := mcp.NewInMemoryTransports()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = srv.MCPServer().Run(ctx, serverTransport)
	}()

	client := mcp.NewClient(&mcp.Implementation{Name: "toolhost-test", Version: "0.0.0"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	if err != nil {
		cancel()
		t.Fatalf("client connect: %v", err)
	}

	t.Cleanup(func() {
		_ = session.Close()
		cancel()
		<-done
		srv.Stop()
	})
	return srv, session
}

// callTool invokes a tool and returns its first text block and IsError flag.
func callTool(t *testing.T, session *mcp.ClientSession, name string, args map[string]any) (string, bool) {
	t.Helper()
	res, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	if err != nil {
		t.Fatalf("CallTool(%s): %v", name, err)
	}
	return firstText(res), res.IsError
}

func TestNewRejectsUnknownToolset(t *testing.T) {
	_, err := New(&Config{Toolsets: []string{"bogus"}, RootDir: t.TempDir()})
	if err == nil || !strings.Contains(err.Error(), "unknown toolset") {
		t.Fatalf("expected unknown toolset error, got %v", err)
	}
}

func TestToolListingMatchesToolsets(t *testing.T) {
	_, session := newTestSession(t, &Config{
		Toolsets: []string{"fs", "calc"},
		RootDir:  t.TempDir(),
	})

	res, err := session.ListTools(context.Background(), nil)
	if err != nil {
		t.Fatalf("ListTools: %v", err)
	}

	names := make(map[string]bool, len(res.Tools))
	for _, tool := range res.Tools {
		names[tool.Name] = true
	}

	for _, want := range []string{"read_file", "write_file", "search_files", "calculate", "task_status", "task_list"} {
		if !names[want] {
			t.Errorf("tool %q missing from listing", want)
		}
	}
	for _, absent := range []string{"run_command", "system_overview", "git_status", "play_file"} {
		if names[absent] {
			t.Errorf("tool %q registered although its toolset is disabled", absent)
		}
	}
}

func TestCalculate(t *testing.T) {
	_, session := newTestSession(t, &Config{Toolsets: []string{"calc"}, RootDir: t.TempDir()})

	text, isErr := callTool(t, session, "calculate", map[string]any{
		"a": 6, "b": 7, "operation": "multiply",
	})
	if isErr {
		t.Fatalf("calculate returned error: %s", text)
	}
	var out struct {
		Result float64 `json:"result"`
	}
	if err := jsonutil.Unmarshal([]byte(text), &out); err != nil {
		t.Fatalf("unmarshal result: %v", err)
	}
	if out.Result != 42 {
		t.Fatalf("6*7 = %v, want 42", out.Result)
	}

	text, isErr = callTool(t, session, "calculate", map[string]any{
		"a": 1, "b": 0, "operation": "divide",
	})
	if !isErr {
		t.Fatal("division by zero should be a tool error")
	}
	if !strings.HasPrefix(text, "Error: ") {
		t.Errorf("error message %q lacks the Error: prefix", text)
	}
}

func TestReadFileBinaryContent(t *testing.T) {
	root := t.TempDir()
	blob := []byte{0x89, 0x50, 0x4E, 0x47, 0xFF, 0xFE, 0x80, 'h', 'i'}
	if err := os.WriteFile(filepath.Join(root, "blob.bin"), blob, 0o644); err != nil {
		t.Fatal(err)
	}
	_, session := newTestSession(t, &Config{Toolsets: []string{"fs"}, RootDir: root})

	// Invalid UTF-8 must be sanitized into a normal tool result, not
	// bubble up as a JSON marshaling failure on the protocol level.
	text, isErr := callTool(t, session, "read_file", map[string]any{"path": "blob.bin"})
	if isErr {
		t.Fatalf("read_file on binary content: %s", text)
	}
	if !strings.Contains(text, "hi") {
		t.Errorf("sanitized content missing valid bytes: %s", text)
	}
}

func TestFileRoundTrip(t *testing.T) {
	root := t.TempDir()
	_, session := newTestSession(t, &Config{Toolsets: []string{"fs"}, RootDir: root})

	text, isErr := callTool(t, session, "write_file", map[string]any{
		"path": "notes/hello.txt", "content": "hello toolhost\n",
	})
	if isErr {
		t.Fatalf("write_file: %s", text)
	}

	text, isErr = callTool(t, session, "read_file", map[string]any{"path": "notes/hello.txt"})
	if isErr {
		t.Fatalf("read_file: %s", text)
	}
	if !strings.Contains(text, "hello toolhost") {
		t.Errorf("read_file content missing written text: %s", text)
	}

	text, isErr = callTool(t, session, "list_directory", map[string]any{"path": "notes"})
	if isErr {
		t.Fatalf("list_directory: %s", text)
	}
	if !strings.Contains(text, "hello.txt") {
		t.Errorf("listing missing hello.txt: %s", text)
	}
}

func TestPathEscapeIsToolError(t *testing.T) {
	_, session := newTestSession(t, &Config{Toolsets: []string{"fs"}, RootDir: t.TempDir()})

	text, isErr := callTool(t, session, "read_file", map[string]any{"path": "../../etc/passwd"})
	if !isErr {
		t.Fatalf("path escape should be a tool error, got: %s", text)
	}
	if !strings.HasPrefix(text, "Error: ") {
		t.Errorf("error message %q lacks the Error: prefix", text)
	}
}

func TestRunCommandSync(t *testing.T) {
	_, session := newTestSession(t, &Config{Toolsets: []string{"shell"}, RootDir: t.TempDir()})

	text, isErr := callTool(t, session, "run_command", map[string]any{"command": "echo toolhost-ok"})
	if isErr {
		t.Fatalf("run_command: %s", text)
	}
	var out struct {
		ExitCode int    `json:"exit_code"`
		Stdout   string `json:"stdout"`
	}
	if err := jsonutil.Unmarshal([]byte(text), &out); err != nil {
		t.Fatalf("unmarshal result: %v", err)
	}
	if out.ExitCode != 0 || !strings.Contains(out.Stdout, "toolhost-ok") {
		t.Fatalf("unexpected result: %+v", out)
	}
}

func TestRunCommandDenied(t *testing.T) {
	_, session := newTestSession(t, &Config{Toolsets: []string{"shell"}, RootDir: t.TempDir()})

	text, isErr := callTool(t, session, "run_command", map[string]any{"command": "rm -rf / --no-preserve-root"})
	if !isErr {
		t.Fatal("destructive command should be denied")
	}
	if !strings.Contains(text, "denylist") {
		t.Errorf("denial should name the denylist: %s", text)
	}
	if !strings.Contains(text, "recovery_steps") {
		t.Errorf("denial should carry recovery steps: %s", text)
	}
}

func TestRunCommandAsyncLifecycle(t *testing.T) {
	srv, session := newTestSession(t, &Config{Toolsets: []string{"shell"}, RootDir: t.TempDir()})
	// Flip to HTTP-style async dispatch for this test.
	srv.syncMode.Store(false)

	text, isErr := callTool(t, session, "run_command", map[string]any{"command": "echo async-ok"})
	if isErr {
		t.Fatalf("run_command launch: %s", text)
	}
	var launch struct {
		TaskID string `json:"task_id"`
		Status string `json:"status"`
	}
	if err := jsonutil.Unmarshal([]byte(text), &launch); err != nil {
		t.Fatalf("unmarshal launch response: %v", err)
	}
	if launch.TaskID == "" || launch.Status != "running" {
		t.Fatalf("unexpected launch response: %+v", launch)
	}

	// Long-poll until the task completes.
	text, isErr = callTool(t, session, "task_status", map[string]any{
		"task_id": launch.TaskID, "wait_seconds": 30,
	})
	if isErr {
		t.Fatalf("task_status: %s", text)
	}
	var status struct {
		Status string `json:"status"`
	}
	if err := jsonutil.Unmarshal([]byte(text), &status); err != nil {
		t.Fatalf("unmarshal status: %v", err)
	}
	if status.Status != "completed" {
		t.Fatalf("task status = %q, want completed", status.Status)
	}

	text, isErr = callTool(t, session, "task_result", map[string]any{"task_id": launch.TaskID})
	if isErr {
		t.Fatalf("task_result: %s", text)
	}
	if !strings.Contains(text, "async-ok") {
		t.Errorf("task result missing command output: %s", text)
	}

	// The task is terminal; cancelling it now is a tool error.
	text, isErr = callTool(t, session, "task_cancel", map[string]any{"task_id": launch.TaskID})
	if !isErr {
		t.Errorf("cancelling a finished task should be a tool error, got: %s", text)
	}

	text, isErr = callTool(t, session, "task_list", map[string]any{})
	if isErr {
		t.Fatalf("task_list: %s", text)
	}
	if !strings.Contains(text, launch.TaskID) {
		t.Errorf("task_list missing %s: %s", launch.TaskID, text)
	}
}

func TestTaskStatusUnknownID(t *testing.T) {
	_, session := newTestSession(t, &Config{Toolsets: []string{"calc"}, RootDir: t.TempDir()})

	text, isErr := callTool(t, session, "task_status", map[string]any{"task_id": "task_doesnotexist00"})
	if !isErr {
		t.Fatal("unknown task should be a tool error")
	}
	if !strings.Contains(text, "recovery_steps") {
		t.Errorf("unknown task error should carry recovery steps: %s", text)
	}
}

func TestResources(t *testing.T) {
	srv, session := newTestSession(t, &Config{
		Toolsets: []string{"fs", "shell"},
		RootDir:  t.TempDir(),
	})

	read := func(uri string) string {
		t.Helper()
		res, err := session.ReadResource(context.Background(), &mcp.ReadResourceParams{URI: uri})
		if err != nil {
			t.Fatalf("ReadResource(%s): %v", uri, err)
		}
		if len(res.Contents) != 1 {
			t.Fatalf("ReadResource(%s): %d contents", uri, len(res.Contents))
		}
		return res.Contents[0].Text
	}

	if text := read("toolhost://version"); !strings.Contains(text, "toolhost") {
		t.Errorf("version resource: %s", text)
	}
	if text := read("toolhost://toolsets"); !strings.Contains(text, "read_file") || !strings.Contains(text, "task_status") {
		t.Errorf("toolsets resource missing tools: %s", text)
	}
	if text := read("toolhost://toolsets/fs"); !strings.Contains(text, "search_files") {
		t.Errorf("fs toolset resource: %s", text)
	}
	if text := read("toolhost://denylist"); !strings.Contains(text, "mkfs") {
		t.Errorf("denylist resource: %s", text)
	}
	if text := read("toolhost://config"); strings.Contains(text, srv.config.GitHubToken) && srv.config.GitHubToken != "" {
		t.Errorf("config resource leaks the token")
	}

	if _, err := session.ReadResource(context.Background(), &mcp.ReadResourceParams{URI: "toolhost://toolsets/audio"}); err == nil {
		t.Error("reading a disabled toolset resource should fail")
	}
}

func TestPrompts(t *testing.T) {
	_, session := newTestSession(t, &Config{Toolsets: []string{"fs"}, RootDir: t.TempDir()})

	res, err := session.GetPrompt(context.Background(), &mcp.GetPromptParams{
		Name:      "repo-commit",
		Arguments: map[string]string{"repo_path": "projects/app", "message": "fix build"},
	})
	if err != nil {
		t.Fatalf("GetPrompt(repo-commit): %v", err)
	}
	if len(res.Messages) == 0 {
		t.Fatal("repo-commit returned no messages")
	}
	tc, ok := res.Messages[0].Content.(*mcp.TextContent)
	if !ok {
		t.Fatalf("unexpected content type %T", res.Messages[0].Content)
	}
	if !strings.Contains(tc.Text, "projects/app") || !strings.Contains(tc.Text, "fix build") {
		t.Errorf("prompt text missing arguments: %s", tc.Text)
	}

	if _, err := session.GetPrompt(context.Background(), &mcp.GetPromptParams{
		Name: "repo-commit", Arguments: map[string]string{"repo_path": "x"},
	}); err == nil {
		t.Error("repo-commit without message should fail")
	}
}

func TestWorkingDirectoryTool(t *testing.T) {
	root := t.TempDir()
	// macOS tempdirs sit behind /var → /private/var symlinks.
	resolved, err := filepath.EvalSymlinks(root)
	if err != nil {
		resolved = root
	}
	_, session := newTestSession(t, &Config{Toolsets: []string{"fs"}, RootDir: root})

	text, isErr := callTool(t, session, "working_directory", nil)
	if isErr {
		t.Fatalf("working_directory: %s", text)
	}
	if !strings.Contains(text, resolved) && !strings.Contains(text, root) {
		t.Errorf("working_directory missing root %s: %s", root, text)
	}
}

func TestInstructionsReflectToolsets(t *testing.T) {
	srv, err := New(&Config{Toolsets: []string{"fs", "calc"}, RootDir: t.TempDir()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer srv.Stop()

	instr := srv.buildInstructions()
	for _, want := range []string{"fs —", "calc —", "task_status", "toolhost://denylist"} {
		if !strings.Contains(instr, want) {
			t.Errorf("instructions missing %q", want)
		}
	}
	for _, absent := range []string{"audio —", "system —", "shell —"} {
		if strings.Contains(instr, absent) {
			t.Errorf("instructions mention disabled toolset section %q", absent)
		}
	}
}

func TestHealthEndpoint(t *testing.T) {
	srv, err := New(&Config{Toolsets: []string{"calc"}, RootDir: t.TempDir()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer srv.Stop()

	get := func() *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		srv.handleHealth(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
		return rec
	}

	if rec := get(); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("before MarkReady: status %d, want 503", rec.Code)
	}
	srv.MarkReady()
	if rec := get(); rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Errorf("after MarkReady: status %d body %s", rec.Code, rec.Body.String())
	}

	rec := httptest.NewRecorder()
	srv.handleHealth(rec, httptest.NewRequest(http.MethodPost, "/health", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("POST /health: status %d, want 405", rec.Code)
	}
}

func TestDefaultRootIsHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	srv, err := New(&Config{Toolsets: []string{"calc"}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer srv.Stop()
	if srv.config.RootDir != home {
		t.Errorf("RootDir = %q, want %q", srv.config.RootDir, home)
	}
}
