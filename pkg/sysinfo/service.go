package sysinfo

import (
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"runtime"
	"strings"

	"github.com/toolhost/toolhost/pkg/duration"
)

// Service unit names: alphanumerics plus the separators systemd allows.
var serviceNameRe = regexp.MustCompile(`^[A-Za-z0-9:_.@\\-]+$`)

// ServiceDetail is the result of GetService.
type ServiceDetail struct {
	Name        string `json:"name"`
	ActiveState string `json:"active_state"`
	SubState    string `json:"sub_state"`
	Enabled     string `json:"enabled"`
	Description string `json:"description,omitempty"`
	Raw         string `json:"raw,omitempty"`
}

// GetService queries systemd for a unit's state. Only available on
// Linux; other platforms get a capability error rather than a crash.
func GetService(ctx context.Context, name string) (*ServiceDetail, error) {
	if runtime.GOOS != "linux" {
		return nil, fmt.Errorf("service queries require systemd and are only available on Linux (running on %s)", runtime.GOOS)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("service name is required")
	}
	if !serviceNameRe.MatchString(name) {
		return nil, fmt.Errorf("invalid service name: %s", name)
	}
	if !strings.Contains(name, ".") {
		name += ".service"
	}

	ctx, cancel := context.WithTimeout(ctx, duration.ServiceQuery)
	defer cancel()

	detail := &ServiceDetail{Name: name}

	// show gives stable key=value output regardless of locale.
	out, err := exec.CommandContext(ctx, "systemctl", "show", name,
		"--property=ActiveState,SubState,UnitFileState,Description", "--no-pager").Output()
	if err != nil {
		return nil, fmt.Errorf("querying %s: systemctl not available or unit unknown: %w", name, err)
	}

	for _, line := range strings.Split(strings.TrimSpace(string(out)), "\n") {
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		switch key {
		case "ActiveState":
			detail.ActiveState = value
		case "SubState":
			detail.SubState = value
		case "UnitFileState":
			detail.Enabled = value
		case "Description":
			detail.Description = value
		}
	}
	if detail.ActiveState == "" {
		return nil, fmt.Errorf("unit %s not found", name)
	}

	// Human-readable status block for context; failures here are fine,
	// systemctl status exits non-zero for inactive units.
	if status, err := exec.CommandContext(ctx, "systemctl", "status", name, "--no-pager", "--lines=0").CombinedOutput(); len(status) > 0 {
		_ = err
		detail.Raw = strings.TrimSpace(string(status))
	}
	return detail, nil
}
