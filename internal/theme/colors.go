package theme

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/agusx1211/loopdash/internal/story"
	"github.com/agusx1211/loopdash/internal/trace"
)

// Color palette - dark theme inspired by Catppuccin Mocha
var (
	ColorBase     = lipgloss.Color("#1e1e2e")
	ColorSurface0 = lipgloss.Color("#313244")
	ColorSurface2 = lipgloss.Color("#585b70")
	ColorOverlay0 = lipgloss.Color("#6c7086")
	ColorText     = lipgloss.Color("#cdd6f4")
	ColorSubtext0 = lipgloss.Color("#a6adc8")

	ColorRed      = lipgloss.Color("#f38ba8")
	ColorGreen    = lipgloss.Color("#a6e3a1")
	ColorYellow   = lipgloss.Color("#f9e2af")
	ColorBlue     = lipgloss.Color("#89b4fa")
	ColorMauve    = lipgloss.Color("#cba6f7")
	ColorTeal     = lipgloss.Color("#94e2d5")
	ColorPeach    = lipgloss.Color("#fab387")
	ColorLavender = lipgloss.Color("#b4befe")
)

// StoryColor returns the badge color for a story status.
func StoryColor(s story.Status) lipgloss.Color {
	switch s {
	case story.StatusDone:
		return ColorGreen
	case story.StatusRunning:
		return ColorBlue
	case story.StatusReady:
		return ColorTeal
	case story.StatusBlocked:
		return ColorRed
	default:
		return ColorOverlay0
	}
}

// StoryBadge renders a fixed-width status badge, e.g. "[ready  ]".
func StoryBadge(s story.Status) string {
	return lipgloss.NewStyle().
		Foreground(StoryColor(s)).
		Bold(s == story.StatusRunning || s == story.StatusBlocked).
		Render(StoryIcon(s))
}

// StoryIcon is the plain-text badge used when color is unavailable.
func StoryIcon(s story.Status) string {
	switch s {
	case story.StatusDone:
		return "[done   ]"
	case story.StatusRunning:
		return "[running]"
	case story.StatusReady:
		return "[ready  ]"
	case story.StatusBlocked:
		return "[blocked]"
	default:
		return "[pending]"
	}
}

// TraceColor returns the color for a subagent status.
func TraceColor(s trace.Status) lipgloss.Color {
	switch s {
	case trace.StatusCompleted:
		return ColorGreen
	case trace.StatusFailed:
		return ColorRed
	case trace.StatusProgress:
		return ColorYellow
	default:
		return ColorBlue
	}
}

// TraceIcon is a one-cell glyph for a subagent status.
func TraceIcon(s trace.Status) string {
	switch s {
	case trace.StatusCompleted:
		return "✓"
	case trace.StatusFailed:
		return "✗"
	case trace.StatusProgress:
		return "●"
	default:
		return "○"
	}
}

// TraceIndicator renders TraceIcon in its status color.
func TraceIndicator(s trace.Status) string {
	return lipgloss.NewStyle().Foreground(TraceColor(s)).Bold(true).Render(TraceIcon(s))
}

// Highlight marks freshly spawned subagents.
var Highlight = lipgloss.NewStyle().Foreground(ColorBase).Background(ColorPeach).Bold(true)
