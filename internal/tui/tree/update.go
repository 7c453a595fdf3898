package tree

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
)

// rangeStep is how far [ and ] move the window.
const rangeStep = 24 * time.Hour

// Update handles messages for the tree model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch m.mode {
		case ModeSearch:
			return m.updateSearch(msg)
		case ModeConfirmDelete:
			return m.updateConfirm(msg)
		case ModeHelp:
			return m.updateHelp(msg)
		default:
			return m.updateBrowse(msg)
		}

	case tea.MouseMsg:
		return m.updateMouse(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.input.Width = max(10, msg.Width-8)

		if m.mdRenderer != nil {
			contentWidth := msg.Width - 4
			if contentWidth < 10 {
				contentWidth = 80
			}
			if err := m.mdRenderer.SetWidth(contentWidth); err != nil {
				m.logger.Debug("resizing markdown renderer failed", "error", err)
			}
		}

		if !m.ready {
			m.helpView = viewport.New(msg.Width, max(1, msg.Height-2))
			m.ready = true
		} else {
			m.helpView.Width = msg.Width
			m.helpView.Height = max(1, msg.Height-2)
		}
		m.clampOffset()
		return m, nil

	case spinner.TickMsg:
		if !m.loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case rebuildDoneMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			m.status = ""
		} else {
			m.err = nil
			m.status = fmt.Sprintf("%d visits", msg.forest.Count())
		}
		m.rerender()
		return m, nil

	case deleteDoneMsg:
		m.loading = false
		m.err = msg.err
		m.status = deleteStatus(msg.report.Requested, len(msg.report.Deleted), msg.report.Failed)
		m.rerender()
		return m, nil

	case searchTickMsg:
		if msg.seq != m.searchSeq {
			return m, nil
		}
		m.applyQuery(m.input.Value())
		return m, nil

	case rebuildTickMsg:
		if msg.seq != m.rebuildSeq {
			return m, nil
		}
		return m, m.startRebuild()

	case historyChangedMsg:
		m.logger.Debug("history changed on disk", "events", msg.events)
		return m, tea.Batch(m.debounceRebuild(), waitForChange(m.watcher))

	case watchClosedMsg:
		m.logger.Debug("history watcher stopped")
		return m, nil
	}

	return m, nil
}

func (m Model) updateBrowse(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit

	case "up", "k":
		m.moveCursor(-1)
	case "down", "j":
		m.moveCursor(1)
	case "pgup":
		m.moveCursor(-m.listHeight())
	case "pgdown":
		m.moveCursor(m.listHeight())
	case "home", "g":
		m.moveCursor(-len(m.cache.rows))
	case "end", "G":
		m.moveCursor(len(m.cache.rows))

	case " ", "x":
		m.click(m.cursor, false)
	case "S":
		m.click(m.cursor, true)
	case "shift+down", "shift+up":
		if _, ok := m.tracker.Anchor(); !ok {
			m.click(m.cursor, false)
		}
		if msg.String() == "shift+down" {
			m.moveCursor(1)
		} else {
			m.moveCursor(-1)
		}
		if _, ok := m.tracker.ExtendTo(m.cursor); !ok {
			m.logger.Debug("extend to a row that is not visible", "row", m.cursor)
		}
	case "a":
		m.tracker.SetAll(true)
	case "A":
		m.tracker.Clear()

	case "d", "delete":
		urls := m.tracker.SelectedURLs()
		if len(urls) == 0 {
			m.status = "nothing selected"
			return m, nil
		}
		m.pendingDelete = urls
		m.mode = ModeConfirmDelete

	case "/":
		m.mode = ModeSearch
		m.input.CursorEnd()
		m.suggestions.Update(m.input.Value())
		return m, m.input.Focus()
	case "esc":
		if m.query != "" {
			m.input.SetValue("")
			m.applyQuery("")
		}

	case "r":
		return m, m.startRebuild()
	case "c":
		m.req.CollapseDuplicates = !m.req.CollapseDuplicates
		return m, m.startRebuild()
	case "[":
		m.req.Range = m.req.Range.Shift(-rangeStep)
		return m, m.debounceRebuild()
	case "]":
		m.req.Range = m.req.Range.Shift(rangeStep)
		return m, m.debounceRebuild()

	case "?":
		m.mode = ModeHelp
		m.helpView.SetContent(m.renderHelp())
		m.helpView.GotoTop()
	}
	return m, nil
}

func (m Model) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		return m, tea.Quit

	case tea.KeyEsc:
		if m.suggestions.Visible() {
			m.suggestions.Hide()
			return m, nil
		}
		m.leaveSearch()
		return m, nil

	case tea.KeyEnter:
		query := strings.TrimSpace(m.input.Value())
		m.input.SetValue(query)
		m.applyQuery(query)
		m.rememberQuery(query)
		m.leaveSearch()
		return m, nil

	case tea.KeyTab:
		if m.suggestions.Visible() {
			if s := m.suggestions.Select(); s != "" {
				m.input.SetValue(s)
				m.input.CursorEnd()
			}
			m.suggestions.Hide()
			return m, m.debounceSearch()
		}
		return m, nil

	case tea.KeyUp:
		if m.suggestions.Visible() {
			m.suggestions.Up()
			return m, nil
		}
		if q, ok := m.queries.Up(m.input.Value()); ok {
			m.input.SetValue(q)
			m.input.CursorEnd()
			return m, m.debounceSearch()
		}
		return m, nil

	case tea.KeyDown:
		if m.suggestions.Visible() {
			m.suggestions.Down()
			return m, nil
		}
		if q, ok := m.queries.Down(); ok {
			m.input.SetValue(q)
			m.input.CursorEnd()
			return m, m.debounceSearch()
		}
		return m, nil
	}

	before := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if m.input.Value() == before {
		return m, cmd
	}

	m.queries.Reset()
	m.suggestions.Update(m.input.Value())
	return m, tea.Batch(cmd, m.debounceSearch())
}

func (m Model) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "y", "Y":
		urls := m.pendingDelete
		m.pendingDelete = nil
		m.mode = ModeBrowse
		m.loading = true
		m.status = fmt.Sprintf("deleting %d URLs", len(urls))
		return m, tea.Batch(m.deleteCmd(urls), m.spinner.Tick)
	case "n", "N", "esc", "q":
		m.pendingDelete = nil
		m.mode = ModeBrowse
		m.status = "delete cancelled"
	}
	return m, nil
}

func (m Model) updateHelp(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "?", "esc", "q":
		m.mode = ModeBrowse
		return m, nil
	}
	var cmd tea.Cmd
	m.helpView, cmd = m.helpView.Update(msg)
	return m, cmd
}

func (m Model) updateMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if m.mode != ModeBrowse {
		return m, nil
	}
	switch msg.Button {
	case tea.MouseButtonWheelUp:
		m.moveCursor(-3)
	case tea.MouseButtonWheelDown:
		m.moveCursor(3)
	case tea.MouseButtonLeft:
		if msg.Action != tea.MouseActionPress {
			return m, nil
		}
		row, ok := m.rowAt(msg.Y)
		if !ok {
			return m, nil
		}
		m.cursor = row
		m.click(row, msg.Shift)
	}
	return m, nil
}

// click toggles the row at i, logging lookups of rows that vanished.
func (m *Model) click(i int, shift bool) {
	if _, ok := m.tracker.ClickAt(i, shift); !ok {
		m.logger.Debug("click on a row that is not visible", "row", i)
	}
}

func (m *Model) startRebuild() tea.Cmd {
	m.loading = true
	m.err = nil
	// A pending debounced rebuild is superseded.
	m.rebuildSeq++
	return tea.Batch(m.rebuildCmd(), m.spinner.Tick)
}

func (m *Model) applyQuery(query string) {
	// Cancels a pending debounced search.
	m.searchSeq++
	if query == m.query {
		return
	}
	m.query = query
	m.cursor = 0
	m.offset = 0
	m.rerender()
}

func (m *Model) rememberQuery(query string) {
	if query == "" {
		return
	}
	m.queries.Add(query)
	if !m.searches.Add(query) {
		return
	}
	if err := m.searches.Save(); err != nil {
		m.logger.Warn("saving recent searches failed", "error", err)
	}
}

func (m *Model) leaveSearch() {
	m.mode = ModeBrowse
	m.input.Blur()
	m.suggestions.Hide()
	m.queries.Reset()
}

func (m *Model) moveCursor(delta int) {
	n := len(m.cache.rows)
	if n == 0 {
		m.cursor = 0
		m.offset = 0
		return
	}
	m.cursor = min(max(m.cursor+delta, 0), n-1)
	m.clampOffset()
}

// clampOffset scrolls so the cursor stays in the visible window.
func (m *Model) clampOffset() {
	h := m.listHeight()
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+h {
		m.offset = m.cursor - h + 1
	}
	if maxOffset := max(0, len(m.cache.rows)-h); m.offset > maxOffset {
		m.offset = maxOffset
	}
	if m.offset < 0 {
		m.offset = 0
	}
}

// rowAt maps a screen line to a row index.
func (m Model) rowAt(y int) (int, bool) {
	line := y - m.listTop()
	if line < 0 || line >= m.listHeight() {
		return 0, false
	}
	row := m.offset + line
	if row >= len(m.cache.rows) {
		return 0, false
	}
	return row, true
}

func deleteStatus(requested, deleted int, failed []string) string {
	status := fmt.Sprintf("deleted %d of %d URLs", deleted, requested)
	if len(failed) > 0 {
		status += fmt.Sprintf(", %d failed", len(failed))
	}
	return status
}
