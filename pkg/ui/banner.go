package ui

import (
	"fmt"
	"os"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/toolhost/toolhost/pkg/defaults"
)

// Build metadata — overridable at build time via ldflags:
// go build -ldflags "-X github.com/toolhost/toolhost/pkg/ui.Commit=abc1234"
var (
	BuildDate = "2026-08-01"
	Commit    = "dev"
)

// UserAgent returns the standard stderr log prefix / User-Agent tag.
func UserAgent() string {
	return fmt.Sprintf("[%s]", defaults.ToolName)
}

// Global UI state
var (
	noColorMode bool
	uiMu        sync.RWMutex
)

// SetNoColor disables colored output. Also honored automatically when the
// NO_COLOR environment variable is set.
func SetNoColor(noColor bool) {
	uiMu.Lock()
	defer uiMu.Unlock()
	noColorMode = noColor
	if noColor {
		lipgloss.SetColorProfile(termenv.Ascii)
	}
}

// IsNoColor returns whether color is disabled.
func IsNoColor() bool {
	uiMu.RLock()
	defer uiMu.RUnlock()
	return noColorMode
}

func init() {
	if os.Getenv("NO_COLOR") != "" {
		SetNoColor(true)
	}
}

// Banner renders the startup banner with version badge.
func Banner() string {
	name := TitleStyle.Render(defaults.ToolNameDisplay)
	version := VersionStyle.Render("v" + defaults.Version)
	tagline := SubtitleStyle.Render("host tools over the Model Context Protocol")
	return fmt.Sprintf("%s %s\n%s", name, version, tagline)
}
