package tree

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/vstratful/histree/internal/render"
	"github.com/vstratful/histree/internal/tui"
)

const (
	headerHeight   = 1
	inputBoxHeight = 3 // input + border
	footerHeight   = 1
	rangeLayout    = "2006-01-02 15:04"
)

// View renders the tree model.
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}
	if m.mode == ModeHelp {
		footer := tui.DimHelpStyle.Render("↑↓: scroll • ?/⎋: close")
		return lipgloss.JoinVertical(lipgloss.Left, m.helpView.View(), footer)
	}

	parts := []string{m.renderHeader(), m.renderInput()}
	if m.showSuggestions() {
		parts = append(parts, m.renderSuggestions())
	}
	parts = append(parts, m.renderRows(), m.renderFooter())
	return strings.Join(parts, "\n")
}

func (m Model) renderHeader() string {
	r := m.req.Range
	header := tui.HeaderStyle.Render("histree") + " " +
		tui.RangeStyle.Render(fmt.Sprintf("%s → %s",
			r.Start.In(m.location).Format(rangeLayout),
			r.End.In(m.location).Format(rangeLayout)))
	if m.req.CollapseDuplicates {
		header += tui.DimHelpStyle.Render(" • collapsed")
	}
	return lipgloss.NewStyle().MaxWidth(m.width).Render(header)
}

func (m Model) renderInput() string {
	style := tui.InputBoxStyle
	if m.queries.IsBrowsing() {
		style = tui.HistoryBorderStyle
	}
	var content string
	if m.mode == ModeSearch {
		content = m.input.View()
	} else if m.query != "" {
		content = tui.MatchStyle.Render("/ " + m.query)
	} else {
		content = tui.DimHelpStyle.Render("/ to search")
	}
	return style.Width(max(10, m.width-4)).Render(content)
}

func (m Model) showSuggestions() bool {
	return m.mode == ModeSearch && m.suggestions.Visible() && len(m.suggestions.Filtered()) > 0
}

func (m Model) renderSuggestions() string {
	var lines []string
	for i, s := range m.suggestions.Filtered() {
		if i == m.suggestions.Index() {
			lines = append(lines, tui.SuggestionSelectedStyle.Render("> "+s))
		} else {
			lines = append(lines, tui.SuggestionItemStyle.Render(s))
		}
	}
	return tui.SuggestionBoxStyle.Render(strings.Join(lines, "\n"))
}

func (m Model) renderRows() string {
	h := m.listHeight()
	rows := m.cache.rows

	lines := make([]string, 0, h)
	switch {
	case len(rows) == 0 && m.loading:
		lines = append(lines, m.spinner.View()+" Loading history...")
	case len(rows) == 0 && m.query != "":
		lines = append(lines, tui.HelpStyle.Render(fmt.Sprintf("No visits match %q", m.query)))
	case len(rows) == 0:
		lines = append(lines, tui.HelpStyle.Render("No history in this range"))
	default:
		end := min(m.offset+h, len(rows))
		for i := m.offset; i < end; i++ {
			lines = append(lines, m.renderRow(i, rows[i]))
		}
	}
	for len(lines) < h {
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderRow(i int, row render.Row) string {
	n := row.Node

	box := "[ ] "
	if m.tracker.CheckedAt(i) {
		box = tui.CheckedStyle.Render("[x]") + " "
	}

	titleStyle := tui.RowTitle
	if row.Depth == 0 {
		titleStyle = tui.RootTitle
	}
	title := n.Title
	if title == "" {
		title = n.URL
	}

	line := box +
		tui.BranchStyle.Render(row.Prefix) +
		n.Icon.Glyph + " " +
		highlight(title, m.query, titleStyle) + "  " +
		tui.TimeStyle.Render(n.Time.In(m.location).Format("15:04:05")+" · "+n.Relative) + "  " +
		highlight(n.URL, m.query, tui.URLStyle)

	line = lipgloss.NewStyle().MaxWidth(m.width).Render(line)
	if i == m.cursor {
		line = tui.CursorStyle.Render(line)
	}
	return line
}

func (m Model) renderFooter() string {
	sep := tui.DimHelpStyle.Render(" • ")

	if m.mode == ModeConfirmDelete {
		return tui.WarningStyle.Render(fmt.Sprintf("Delete every visit to %d URLs? ", len(m.pendingDelete))) +
			tui.KeyHintStyle.Render("y") + tui.DimHelpStyle.Render("/") + tui.KeyHintStyle.Render("n")
	}

	counts := tui.DimHelpStyle.Render(fmt.Sprintf("%d rows • %d selected", len(m.cache.rows), m.tracker.Count()))

	var status string
	switch {
	case m.loading:
		status = m.spinner.View() + " " + m.status
	case m.err != nil:
		status = tui.ErrorStyle.Render("Error: " + m.err.Error())
	case m.status != "":
		status = tui.HelpStyle.Render(m.status)
	}

	var hints []string
	switch {
	case m.mode == ModeSearch && m.queries.IsBrowsing():
		at, total := m.queries.Position()
		hints = []string{
			tui.HistoryModeStyle.Render(fmt.Sprintf("recent searches (%d/%d)", at, total)),
			tui.DimHelpStyle.Render("↑↓: navigate • Enter: apply • ⎋: cancel"),
		}
	case m.mode == ModeSearch:
		hints = []string{
			tui.KeyHintStyle.Render("Enter") + tui.DimHelpStyle.Render(": apply"),
			tui.KeyHintStyle.Render("Tab") + tui.DimHelpStyle.Render(": complete"),
			tui.KeyHintStyle.Render("⎋") + tui.DimHelpStyle.Render(": done"),
		}
	default:
		hints = []string{
			tui.KeyHintStyle.Render("space") + tui.DimHelpStyle.Render(": select"),
			tui.KeyHintStyle.Render("d") + tui.DimHelpStyle.Render(": delete"),
			tui.KeyHintStyle.Render("?") + tui.DimHelpStyle.Render(": help"),
		}
	}

	footer := counts
	if status != "" {
		footer += sep + status
	}
	footer += sep + strings.Join(hints, sep)
	return lipgloss.NewStyle().MaxWidth(m.width).Render(footer)
}

// listTop is the screen line of the first row.
func (m Model) listTop() int {
	top := headerHeight + inputBoxHeight
	if m.showSuggestions() {
		top += len(m.suggestions.Filtered()) + 2
	}
	return top
}

// listHeight is the number of rows that fit on screen.
func (m Model) listHeight() int {
	return max(1, m.height-m.listTop()-footerHeight)
}

// highlight renders s with base, marking case-insensitive matches of query.
func highlight(s, query string, base lipgloss.Style) string {
	lower, q := strings.ToLower(s), strings.ToLower(strings.TrimSpace(query))
	// Lowercasing can change byte lengths; fall back to plain rendering then.
	if q == "" || len(lower) != len(s) {
		return base.Render(s)
	}

	var sb strings.Builder
	rest := 0
	for {
		i := strings.Index(lower[rest:], q)
		if i < 0 {
			break
		}
		start := rest + i
		end := start + len(q)
		if start > rest {
			sb.WriteString(base.Render(s[rest:start]))
		}
		sb.WriteString(tui.MatchStyle.Render(s[start:end]))
		rest = end
	}
	if rest < len(s) {
		sb.WriteString(base.Render(s[rest:]))
	}
	return sb.String()
}
