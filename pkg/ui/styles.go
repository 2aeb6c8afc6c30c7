package ui

import "github.com/charmbracelet/lipgloss"

// ANSI escape codes for simple terminal output (CLI commands)
const (
	Reset  = "\033[0m"
	Bold   = "\033[1m"
	Red    = "\033[31m"
	Green  = "\033[32m"
	Yellow = "\033[33m"
	Cyan   = "\033[36m"
)

// Color palette
var (
	// Brand colors
	Primary   = lipgloss.Color("#2D9CDB") // Blue - brand color
	Secondary = lipgloss.Color("#00D4AA") // Cyan/Teal

	// Status colors
	Success = lipgloss.Color("#00D26A") // Bright green
	Warning = lipgloss.Color("#FFB800") // Amber
	Error   = lipgloss.Color("#FF3838") // Red
	Muted   = lipgloss.Color("#6B7280") // Gray
)

// Pre-configured styles
var (
	// Title and headers
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(Primary).
			Padding(0, 1)

	SubtitleStyle = lipgloss.NewStyle().
			Foreground(Muted).
			Italic(true)

	// Version badge
	VersionStyle = lipgloss.NewStyle().
			Foreground(Secondary).
			Bold(true)

	// Section headers in usage output
	SectionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Bold(true).
			MarginTop(1)

	// Command names in usage output
	CommandStyle = lipgloss.NewStyle().
			Foreground(Secondary).
			Bold(true)

	// Toolset badge
	ToolsetStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#3B3B4F")).
			Padding(0, 1)

	// Outcome styles for the smoke client
	PassStyle = lipgloss.NewStyle().
			Foreground(Success).
			Bold(true)

	FailStyle = lipgloss.NewStyle().
			Foreground(Error).
			Bold(true)

	SkipStyle = lipgloss.NewStyle().
			Foreground(Warning).
			Bold(true)

	// Help/footer
	HelpStyle = lipgloss.NewStyle().
			Foreground(Muted).
			Italic(true)

	// Divider
	DividerStyle = lipgloss.NewStyle().
			Foreground(Muted)
)

// OutcomeStyle returns the style for a smoke-test outcome string.
func OutcomeStyle(outcome string) lipgloss.Style {
	switch outcome {
	case "PASS":
		return PassStyle
	case "FAIL":
		return FailStyle
	case "SKIP":
		return SkipStyle
	default:
		return lipgloss.NewStyle().Foreground(Muted)
	}
}
