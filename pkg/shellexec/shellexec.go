// Package shellexec runs shell commands for the shell toolset. Every
// command is screened against a denylist before it is spawned, runs in
// its own process group, and has its output capped so a chatty command
// cannot blow up the response.
package shellexec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/toolhost/toolhost/pkg/defaults"
)

// ErrDenied is returned when a command matches the denylist.
var ErrDenied = errors.New("command blocked by denylist")

// Built-in denylist. Substring patterns are matched against the
// whitespace-normalized, lowercased command line; regex patterns catch
// the variants substrings cannot.
var (
	denySubstrings = []string{
		"rm -rf /",
		"rm -fr /",
		"mkfs",
		"dd if=",
		":(){",
		"shutdown",
		"reboot",
		"halt",
		"poweroff",
		"init 0",
		"init 6",
	}

	denyRegexes = []*regexp.Regexp{
		// Redirects onto raw block devices (> /dev/sda, >>/dev/nvme0n1, ...).
		regexp.MustCompile(`>+\s*/dev/(sd|hd|vd|nvme|mmcblk)`),
	}
)

// BuiltinDenylist returns the built-in deny patterns, for display.
func BuiltinDenylist() []string {
	out := make([]string, 0, len(denySubstrings)+len(denyRegexes))
	out = append(out, denySubstrings...)
	for _, re := range denyRegexes {
		out = append(out, re.String())
	}
	return out
}

// Runner executes shell commands under a working directory with a
// denylist assembled from the built-in patterns plus any configured extras.
type Runner struct {
	workDir       string
	extraPatterns []string
}

// NewRunner creates a Runner. workDir is the default working directory
// for commands; extraPatterns are additional substring deny patterns
// from the configuration.
func NewRunner(workDir string, extraPatterns []string) *Runner {
	return &Runner{workDir: workDir, extraPatterns: extraPatterns}
}

// Denylist returns the effective deny patterns (built-in plus configured).
func (r *Runner) Denylist() []string {
	return append(BuiltinDenylist(), r.extraPatterns...)
}

// Check screens a command against the denylist without running it.
// It returns the matched pattern when the command is blocked.
func (r *Runner) Check(command string) (string, error) {
	normalized := strings.ToLower(strings.Join(strings.Fields(command), " "))
	for _, pat := range denySubstrings {
		if strings.Contains(normalized, pat) {
			return pat, fmt.Errorf("%w: matches %q", ErrDenied, pat)
		}
	}
	for _, pat := range r.extraPatterns {
		if pat != "" && strings.Contains(normalized, strings.ToLower(pat)) {
			return pat, fmt.Errorf("%w: matches %q", ErrDenied, pat)
		}
	}
	for _, re := range denyRegexes {
		if re.MatchString(normalized) {
			return re.String(), fmt.Errorf("%w: matches %q", ErrDenied, re.String())
		}
	}
	return "", nil
}

// Result is the outcome of one command execution.
type Result struct {
	Command    string  `json:"command"`
	ExitCode   int     `json:"exit_code"`
	Stdout     string  `json:"stdout"`
	Stderr     string  `json:"stderr"`
	DurationMs float64 `json:"duration_ms"`
	TimedOut   bool    `json:"timed_out"`
	Truncated  bool    `json:"truncated"`
	WorkDir    string  `json:"work_dir"`
}

// Run executes command through the shell with the given timeout in
// seconds (clamped to the allowed range; zero means the default). On
// timeout the whole process group is killed and whatever output was
// produced so far is returned alongside TimedOut=true.
func (r *Runner) Run(ctx context.Context, command string, timeoutSec int, workDir string) (*Result, error) {
	if strings.TrimSpace(command) == "" {
		return nil, fmt.Errorf("command is required")
	}
	if _, err := r.Check(command); err != nil {
		return nil, err
	}

	switch {
	case timeoutSec <= 0:
		timeoutSec = defaults.ShellTimeoutSec
	case timeoutSec < defaults.ShellTimeoutMinSec:
		timeoutSec = defaults.ShellTimeoutMinSec
	case timeoutSec > defaults.ShellTimeoutMaxSec:
		timeoutSec = defaults.ShellTimeoutMaxSec
	}
	if workDir == "" {
		workDir = r.workDir
	}

	ctx, cancel := context.WithTimeout(ctx, time.Duration(timeoutSec)*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, "bash", "-c", command)
	cmd.Dir = workDir
	setProcessGroup(cmd)

	stdout := newCapBuffer(defaults.ShellOutputCap)
	stderr := newCapBuffer(defaults.ShellOutputCap)
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	start := time.Now()
	runErr := cmd.Run()
	elapsed := time.Since(start)

	res := &Result{
		Command:    command,
		Stdout:     stdout.String(),
		Stderr:     stderr.String(),
		DurationMs: float64(elapsed.Milliseconds()),
		TimedOut:   ctx.Err() == context.DeadlineExceeded,
		Truncated:  stdout.Truncated() || stderr.Truncated(),
		WorkDir:    workDir,
	}

	switch {
	case runErr == nil:
		res.ExitCode = 0
	case res.TimedOut:
		res.ExitCode = -1
	default:
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
		} else {
			return nil, fmt.Errorf("starting command: %w", runErr)
		}
	}
	return res, nil
}

// capBuffer is a write sink that stops growing at a byte limit. Writes
// past the limit report success so the child process never blocks on a
// full pipe.
type capBuffer struct {
	mu        sync.Mutex
	buf       bytes.Buffer
	limit     int
	truncated bool
}

func newCapBuffer(limit int) *capBuffer {
	return &capBuffer{limit: limit}
}

func (b *capBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	remaining := b.limit - b.buf.Len()
	if remaining <= 0 {
		b.truncated = true
		return len(p), nil
	}
	if len(p) > remaining {
		b.buf.Write(p[:remaining])
		b.truncated = true
		return len(p), nil
	}
	b.buf.Write(p)
	return len(p), nil
}

func (b *capBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func (b *capBuffer) Truncated() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.truncated
}
