package tui

import "github.com/charmbracelet/lipgloss"

// Color palette.
const (
	ColorHeader   = lipgloss.Color("63")
	ColorLabel    = lipgloss.Color("245")
	ColorValue    = lipgloss.Color("252")
	ColorSubtle   = lipgloss.Color("241")
	ColorCritical = lipgloss.Color("196")
	ColorInfo     = lipgloss.Color("39")
	ColorSelected = lipgloss.Color("57")
)

// Shared styles.
//
//nolint:gochecknoglobals // lipgloss styles are immutable values shared across views.
var (
	HeaderStyle   = lipgloss.NewStyle().Bold(true).Foreground(ColorHeader)
	LabelStyle    = lipgloss.NewStyle().Foreground(ColorLabel)
	ValueStyle    = lipgloss.NewStyle().Foreground(ColorValue)
	SubtleStyle   = lipgloss.NewStyle().Foreground(ColorSubtle)
	CriticalStyle = lipgloss.NewStyle().Bold(true).Foreground(ColorCritical)
	InfoStyle     = lipgloss.NewStyle().Foreground(ColorInfo)
	BoxStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(ColorHeader).Padding(0, 1)

	TableHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				BorderStyle(lipgloss.NormalBorder()).
				BorderBottom(true).
				BorderForeground(ColorSubtle).
				Padding(0, 1)
	TableSelectedStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("229")).
				Background(ColorSelected)
)
