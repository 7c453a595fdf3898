// Package tree implements the interactive history tree view.
package tree

import (
	"context"
	"log/slog"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vstratful/histree/internal/config"
	"github.com/vstratful/histree/internal/history"
	"github.com/vstratful/histree/internal/render"
	"github.com/vstratful/histree/internal/selection"
	"github.com/vstratful/histree/internal/tui"
	"github.com/vstratful/histree/internal/watch"
)

// rowCache holds the rows of the last render. It is shared by every copy of
// the Model so the selection tracker's refresh sees the current rows.
type rowCache struct {
	rows []render.Row
}

// Model is the Bubble Tea model for the tree view.
type Model struct {
	// UI components
	input    textinput.Model
	spinner  spinner.Model
	helpView viewport.Model

	// Core
	session  *history.Session
	req      history.Request
	refresh  func() error
	location *time.Location
	logger   *slog.Logger

	// Derived view state
	query   string
	nodes   []*render.Node
	cache   *rowCache
	tracker *selection.Tracker
	cursor  int
	offset  int

	// State
	mode          Mode
	loading       bool
	err           error
	status        string
	pendingDelete []string
	width         int
	height        int
	ready         bool

	// Debounce sequence numbers
	searchSeq  int
	rebuildSeq int

	// Search box helpers
	queries     *QueryNavigator
	suggestions *Suggestions
	searches    *config.SearchHistory

	watcher    *watch.Watcher
	mdRenderer *tui.MarkdownRenderer
}

// Config holds configuration for creating a new tree model.
type Config struct {
	Session *history.Session
	Request history.Request

	// Query is the initial search query.
	Query string

	// Refresh, if set, runs before every rebuild (snapshot refresh).
	Refresh func() error

	// Watcher, if set, triggers debounced rebuilds.
	Watcher *watch.Watcher

	// Searches holds recent queries; it is saved when a query is committed.
	Searches *config.SearchHistory

	Location *time.Location
	Logger   *slog.Logger
}

// New creates a new tree Model.
func New(cfg Config) Model {
	ti := textinput.New()
	ti.Placeholder = "search titles and URLs"
	ti.Prompt = "/ "
	ti.CharLimit = 256
	ti.SetValue(cfg.Query)

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))

	mdRenderer, _ := tui.NewMarkdownRenderer(config.DefaultTerminalWidth)

	logger := cfg.Logger
	if logger == nil {
		logger = cfg.Session.Logger()
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.Local
	}
	searches := cfg.Searches
	if searches == nil {
		searches = &config.SearchHistory{}
	}

	cache := &rowCache{}
	m := Model{
		input:       ti,
		spinner:     sp,
		session:     cfg.Session,
		req:         cfg.Request,
		refresh:     cfg.Refresh,
		location:    loc,
		logger:      logger,
		query:       cfg.Query,
		cache:       cache,
		queries:     NewQueryNavigator(searches.Queries),
		suggestions: NewSuggestions(searches.Matching),
		searches:    searches,
		watcher:     cfg.Watcher,
		mdRenderer:  mdRenderer,
		loading:     true,
		width:       config.DefaultTerminalWidth,
		height:      24,
	}
	m.tracker = selection.NewTracker(func() []selection.Item {
		return render.Items(cache.rows)
	}, logger)
	return m
}

// Init starts the first rebuild.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.rebuildCmd(), m.spinner.Tick}
	if m.watcher != nil {
		cmds = append(cmds, waitForChange(m.watcher))
	}
	return tea.Batch(cmds...)
}

// Request returns the current rebuild request.
func (m Model) Request() history.Request {
	return m.req
}

// Query returns the applied search query.
func (m Model) Query() string {
	return m.query
}

// Mode returns the current input mode.
func (m Model) Mode() Mode {
	return m.mode
}

// Rows returns the rows of the last render.
func (m Model) Rows() []render.Row {
	return m.cache.rows
}

// Tracker exposes the selection state.
func (m Model) Tracker() *selection.Tracker {
	return m.tracker
}

// Cursor returns the highlighted row.
func (m Model) Cursor() int {
	return m.cursor
}

// Err returns the last error.
func (m Model) Err() error {
	return m.err
}

// Status returns the last status line.
func (m Model) Status() string {
	return m.status
}

// Loading reports whether a rebuild or delete is in flight.
func (m Model) Loading() bool {
	return m.loading
}

// rerender projects the canonical forest, renders it and hands the new rows
// to the tracker.
func (m *Model) rerender() {
	projected := m.session.Project(m.query)
	m.nodes = render.Render(projected, render.Options{Selectable: true, Location: m.location})
	m.cache.rows = render.Flatten(m.nodes)
	m.tracker.SetVisible(render.Items(m.cache.rows))

	if m.cursor >= len(m.cache.rows) {
		m.cursor = len(m.cache.rows) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	m.clampOffset()
}

func (m Model) rebuildCmd() tea.Cmd {
	session, req, refresh, logger := m.session, m.req, m.refresh, m.logger
	return func() tea.Msg {
		if refresh != nil {
			if err := refresh(); err != nil {
				logger.Warn("refreshing history snapshot failed", "error", err)
			}
		}
		forest, err := session.Rebuild(context.Background(), req)
		return rebuildDoneMsg{forest: forest, err: err}
	}
}

func (m Model) deleteCmd(urls []string) tea.Cmd {
	session := m.session
	return func() tea.Msg {
		report, forest, err := session.Delete(context.Background(), urls)
		return deleteDoneMsg{report: report, forest: forest, err: err}
	}
}

// debounceRebuild schedules a rebuild after the debounce window; a later call
// supersedes it.
func (m *Model) debounceRebuild() tea.Cmd {
	m.rebuildSeq++
	seq := m.rebuildSeq
	return tea.Tick(config.RebuildDebounce, func(time.Time) tea.Msg {
		return rebuildTickMsg{seq: seq}
	})
}

func (m *Model) debounceSearch() tea.Cmd {
	m.searchSeq++
	seq := m.searchSeq
	return tea.Tick(config.SearchDebounce, func(time.Time) tea.Msg {
		return searchTickMsg{seq: seq}
	})
}

func waitForChange(w *watch.Watcher) tea.Cmd {
	return func() tea.Msg {
		change, ok := <-w.Changes()
		if !ok {
			return watchClosedMsg{}
		}
		return historyChangedMsg{events: change.Events}
	}
}

// Run starts the tree TUI.
func Run(cfg Config) error {
	p := tea.NewProgram(
		New(cfg),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)

	_, err := p.Run()
	return err
}
