// Package tui provides terminal UI components.
package tui

import (
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/lipgloss"
)

// Tree styles
var (
	HeaderStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("4")).Bold(true)
	RangeStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	ErrorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	HelpStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	BranchStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	RowTitle     = lipgloss.NewStyle()
	RootTitle    = lipgloss.NewStyle().Bold(true)
	TimeStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
	URLStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Underline(true)
	CheckedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true)
	CursorStyle  = lipgloss.NewStyle().Background(lipgloss.Color("236"))
	MatchStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FACC15"))

	InputBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(0, 1)

	// Suggestion styles
	SuggestionBoxStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("63")).
				Padding(0, 1)
	SuggestionItemStyle     = lipgloss.NewStyle().PaddingLeft(2)
	SuggestionSelectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("170"))

	// Delete confirmation
	WarningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B")).
			Bold(true)

	HistoryModeStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#A78BFA")).
				Italic(true)

	KeyHintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6EE7B7")).
			Bold(true)

	DimHelpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))

	HistoryBorderStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("#A78BFA")).
				Padding(0, 1)
)

// Picker styles
var (
	TitleStyle        = lipgloss.NewStyle().MarginLeft(2)
	ItemStyle         = lipgloss.NewStyle().PaddingLeft(4)
	SelectedItemStyle = lipgloss.NewStyle().PaddingLeft(2).Foreground(lipgloss.Color("170"))
	PaginationStyle   = list.DefaultStyles().PaginationStyle.PaddingLeft(4)
	HelpListStyle     = list.DefaultStyles().HelpStyle.PaddingLeft(4).PaddingBottom(1)
)
