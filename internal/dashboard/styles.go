package dashboard

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/agusx1211/loopdash/internal/theme"
)

// Panel border styles.
var (
	boardPanelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(theme.ColorSurface2).
			Padding(0, 1)

	tracePanelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(theme.ColorSurface2).
			Padding(0, 1)
)

// Header and status bar.
var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(theme.ColorBase).
			Background(theme.ColorBlue).
			Padding(0, 2)

	statusBarStyle = lipgloss.NewStyle().
			Foreground(theme.ColorSubtext0).
			Background(theme.ColorSurface0).
			Padding(0, 1)

	statusKeyStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(theme.ColorLavender).
			Background(theme.ColorSurface0)

	statusValueStyle = lipgloss.NewStyle().
				Foreground(theme.ColorSubtext0).
				Background(theme.ColorSurface0)

	statusErrStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(theme.ColorRed).
			Background(theme.ColorSurface0)
)

// Panel content styles.
var (
	sectionTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(theme.ColorLavender)

	layerTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(theme.ColorMauve)

	valueStyle = lipgloss.NewStyle().
			Foreground(theme.ColorText)

	dimStyle = lipgloss.NewStyle().
			Foreground(theme.ColorOverlay0)

	warnStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(theme.ColorPeach)

	errTextStyle = lipgloss.NewStyle().
			Foreground(theme.ColorRed)
)
