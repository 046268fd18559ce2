// Package tui renders detection results and scan progress for the terminal.
package tui

import "github.com/charmbracelet/lipgloss"

var (
	Primary = lipgloss.Color("#FF6B35")
	Accent  = lipgloss.Color("#1E88E5")
	Success = lipgloss.Color("#4CAF50")
	Warning = lipgloss.Color("#FFB74D")
	Error   = lipgloss.Color("#F44336")
	Text    = lipgloss.Color("#E0E0E0")
	Muted   = lipgloss.Color("#90A4AE")
	Border  = lipgloss.AdaptiveColor{Light: "#DDDDDD", Dark: "#30363D"}
)

var (
	TitleStyle = lipgloss.NewStyle().
		Foreground(Primary).
		Bold(true).
		Padding(0, 1)

	HeaderCellStyle = lipgloss.NewStyle().
		Foreground(Accent).
		Bold(true).
		Padding(0, 1)

	CellStyle = lipgloss.NewStyle().
		Foreground(Text).
		Padding(0, 1)

	VRStyle = lipgloss.NewStyle().
		Foreground(Success).
		Bold(true)

	FlatStyle = lipgloss.NewStyle().
		Foreground(Muted)

	ErrorStyle = lipgloss.NewStyle().
		Foreground(Error).
		Bold(true)

	WarningStyle = lipgloss.NewStyle().
		Foreground(Warning)

	MutedStyle = lipgloss.NewStyle().
		Foreground(Muted)

	PanelStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Border).
		Padding(0, 1)
)
