package tree

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vstratful/histree/internal/config"
	"github.com/vstratful/histree/internal/history"
	"github.com/vstratful/histree/internal/logging"
)

func at(sec int64) time.Time {
	return time.Unix(sec, 0).UTC()
}

// fixtureSource serves one tree and one lone root:
//
//	Docs (300)
//	Alpha (100)
//	├── Charlie (150)
//	└── Bravo (200)
func fixtureSource() *history.MockSource {
	pages := []history.Page{
		{URL: "https://a.example", Title: "Alpha"},
		{URL: "https://b.example", Title: "Bravo"},
		{URL: "https://c.example", Title: "Charlie"},
		{URL: "https://d.example", Title: "Docs"},
	}
	return history.NewMockSource(pages, map[string][]history.Visit{
		"https://a.example": {{ID: "1", ReferringID: "0", Time: at(100), Transition: history.TransitionTyped}},
		"https://b.example": {{ID: "2", ReferringID: "1", Time: at(200), Transition: history.TransitionLink}},
		"https://c.example": {{ID: "3", ReferringID: "1", Time: at(150), Transition: history.TransitionLink}},
		"https://d.example": {{ID: "4", ReferringID: "0", Time: at(300), Transition: history.TransitionTyped}},
	})
}

func newTestModel(t *testing.T, src history.Source) Model {
	t.Helper()
	session := history.NewSession(history.SessionConfig{Source: src, Logger: logging.Discard()})
	return New(Config{
		Session:  session,
		Request:  history.Request{Range: history.TimeRange{Start: at(0), End: at(1000)}, Limit: 10},
		Searches: &config.SearchHistory{},
		Location: time.UTC,
		Logger:   logging.Discard(),
	})
}

// loaded returns a sized model after its first rebuild.
func loaded(t *testing.T, src history.Source) Model {
	t.Helper()
	m := newTestModel(t, src)
	m = step(t, m, tea.WindowSizeMsg{Width: 120, Height: 30})
	return step(t, m, m.rebuildCmd()())
}

func step(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	out, ok := next.(Model)
	require.True(t, ok)
	return out
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "space":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "shift+up":
		return tea.KeyMsg{Type: tea.KeyShiftUp}
	case "shift+down":
		return tea.KeyMsg{Type: tea.KeyShiftDown}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func titles(m Model) []string {
	var out []string
	for _, r := range m.Rows() {
		out = append(out, r.Node.Title)
	}
	return out
}

func TestModel_FirstRebuild(t *testing.T) {
	t.Parallel()

	m := loaded(t, fixtureSource())

	assert.False(t, m.Loading())
	require.NoError(t, m.Err())
	assert.Equal(t, []string{"Docs", "Alpha", "Charlie", "Bravo"}, titles(m))
	assert.Equal(t, "4 visits", m.Status())
	assert.Equal(t, 4, m.Tracker().Len())
	assert.Contains(t, m.View(), "Charlie")
}

func TestModel_RebuildError(t *testing.T) {
	t.Parallel()

	src := fixtureSource()
	m := loaded(t, src)
	src.SearchVisitedPagesFunc = func(ctx context.Context, r history.TimeRange, limit int) ([]history.Page, error) {
		return nil, errors.New("boom")
	}

	m = step(t, m, m.rebuildCmd()())
	require.Error(t, m.Err())
	assert.Empty(t, m.Rows())
	assert.Contains(t, m.View(), "boom")
}

func TestModel_CursorAndToggle(t *testing.T) {
	t.Parallel()

	m := loaded(t, fixtureSource())

	m = step(t, m, key("j"))
	m = step(t, m, key("space"))
	assert.Equal(t, 1, m.Cursor())
	assert.True(t, m.Tracker().CheckedAt(1))
	anchor, ok := m.Tracker().Anchor()
	require.True(t, ok)
	assert.Equal(t, 1, anchor)

	// Shift-range to the last row.
	m = step(t, m, key("G"))
	m = step(t, m, key("S"))
	for i := 1; i <= 3; i++ {
		assert.True(t, m.Tracker().CheckedAt(i), "row %d", i)
	}
	assert.False(t, m.Tracker().CheckedAt(0))

	m = step(t, m, key("A"))
	assert.Zero(t, m.Tracker().Count())

	m = step(t, m, key("a"))
	assert.Equal(t, 4, m.Tracker().Count())
}

func checkedRows(m Model) []bool {
	out := make([]bool, len(m.Rows()))
	for i := range out {
		out[i] = m.Tracker().CheckedAt(i)
	}
	return out
}

func TestModel_ShiftArrowsGrowAndShrinkRange(t *testing.T) {
	t.Parallel()

	m := loaded(t, fixtureSource())

	m = step(t, m, key("space"))
	m = step(t, m, key("shift+down"))
	m = step(t, m, key("shift+down"))
	assert.Equal(t, []bool{true, true, true, false}, checkedRows(m))

	m = step(t, m, key("shift+up"))
	assert.Equal(t, 1, m.Cursor())
	assert.Equal(t, []bool{true, true, false, false}, checkedRows(m))
	assert.Equal(t, []string{"https://a.example", "https://d.example"}, m.Tracker().SelectedURLs())
}

func TestModel_ShiftArrowWithoutAnchor(t *testing.T) {
	t.Parallel()

	m := loaded(t, fixtureSource())

	m = step(t, m, key("shift+down"))
	assert.Equal(t, []bool{true, true, false, false}, checkedRows(m))
}

func TestModel_CursorClamped(t *testing.T) {
	t.Parallel()

	m := loaded(t, fixtureSource())
	m = step(t, m, key("k"))
	assert.Equal(t, 0, m.Cursor())

	for range 10 {
		m = step(t, m, key("j"))
	}
	assert.Equal(t, 3, m.Cursor())
}

func TestModel_MouseShiftClick(t *testing.T) {
	t.Parallel()

	m := loaded(t, fixtureSource())
	top := m.listTop()

	m = step(t, m, tea.MouseMsg{Y: top, Button: tea.MouseButtonLeft, Action: tea.MouseActionPress})
	m = step(t, m, tea.MouseMsg{Y: top + 2, Button: tea.MouseButtonLeft, Action: tea.MouseActionPress, Shift: true})

	assert.Equal(t, 2, m.Cursor())
	assert.Equal(t, 3, m.Tracker().Count())
	assert.False(t, m.Tracker().CheckedAt(3))

	// Clicks outside the list are ignored.
	m = step(t, m, tea.MouseMsg{Y: 0, Button: tea.MouseButtonLeft, Action: tea.MouseActionPress})
	assert.Equal(t, 3, m.Tracker().Count())
}

func TestModel_SearchDebounced(t *testing.T) {
	t.Parallel()

	m := loaded(t, fixtureSource())

	m = step(t, m, key("/"))
	assert.Equal(t, ModeSearch, m.Mode())

	m = step(t, m, key("b"))
	m = step(t, m, key("r"))
	stale := searchTickMsg{seq: m.searchSeq - 1}
	current := searchTickMsg{seq: m.searchSeq}

	m = step(t, m, stale)
	assert.Empty(t, m.Query(), "superseded tick must not apply")

	m = step(t, m, current)
	assert.Equal(t, "br", m.Query())
	// Ancestors of matches stay in the projection.
	assert.Equal(t, []string{"Alpha", "Bravo"}, titles(m))
}

func TestModel_SearchProjectionKeepsSelection(t *testing.T) {
	t.Parallel()

	m := loaded(t, fixtureSource())
	m = step(t, m, key("a"))

	m = step(t, m, key("/"))
	m = step(t, m, key("b"))
	m = step(t, m, key("r"))
	m = step(t, m, searchTickMsg{seq: m.searchSeq})

	// Rows hidden by the search drop out of the selection.
	assert.Equal(t, 2, m.Tracker().Count())
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, m.Tracker().SelectedURLs())
}

func TestModel_SearchEnterRemembers(t *testing.T) {
	dir := t.TempDir()
	orig := config.GetSearchHistoryPath
	config.GetSearchHistoryPath = func() (string, error) {
		return filepath.Join(dir, "searches.json"), nil
	}
	t.Cleanup(func() { config.GetSearchHistoryPath = orig })

	m := loaded(t, fixtureSource())
	m = step(t, m, key("/"))
	for _, r := range "docs" {
		m = step(t, m, key(string(r)))
	}
	m = step(t, m, key("enter"))

	assert.Equal(t, ModeBrowse, m.Mode())
	assert.Equal(t, "docs", m.Query())
	assert.Equal(t, []string{"Docs"}, titles(m))

	saved, err := config.LoadSearchHistory()
	require.NoError(t, err)
	assert.Equal(t, []string{"docs"}, saved.Queries)

	// Esc in the tree clears the search.
	m = step(t, m, key("esc"))
	assert.Empty(t, m.Query())
	assert.Len(t, m.Rows(), 4)
}

func TestModel_SearchRecentQueries(t *testing.T) {
	t.Parallel()

	session := history.NewSession(history.SessionConfig{Source: fixtureSource(), Logger: logging.Discard()})
	m := New(Config{
		Session:  session,
		Request:  history.Request{Range: history.TimeRange{Start: at(0), End: at(1000)}},
		Searches: &config.SearchHistory{Queries: []string{"alpha", "charlie"}},
		Location: time.UTC,
		Logger:   logging.Discard(),
	})
	m = step(t, m, tea.WindowSizeMsg{Width: 120, Height: 30})

	m = step(t, m, key("/"))
	m = step(t, m, key("up"))
	assert.Equal(t, "charlie", m.input.Value())
	m = step(t, m, key("up"))
	assert.Equal(t, "alpha", m.input.Value())
	m = step(t, m, key("down"))
	m = step(t, m, key("down"))
	assert.Equal(t, "", m.input.Value())
	assert.False(t, m.queries.IsBrowsing())

	// Typing shows suggestions; tab accepts the highlighted one.
	m = step(t, m, key("c"))
	require.True(t, m.suggestions.Visible())
	m = step(t, m, key("tab"))
	assert.Equal(t, "charlie", m.input.Value())
}

func TestModel_DeleteConfirmed(t *testing.T) {
	t.Parallel()

	src := fixtureSource()
	m := loaded(t, src)

	m = step(t, m, key("d"))
	assert.Equal(t, ModeBrowse, m.Mode(), "nothing selected")
	assert.Equal(t, "nothing selected", m.Status())

	m = step(t, m, key("space"))
	m = step(t, m, key("d"))
	require.Equal(t, ModeConfirmDelete, m.Mode())
	urls := m.pendingDelete
	assert.Equal(t, []string{"https://d.example"}, urls)
	assert.Contains(t, m.View(), "Delete every visit to 1 URLs?")

	m = step(t, m, key("y"))
	assert.True(t, m.Loading())
	assert.Equal(t, ModeBrowse, m.Mode())

	m = step(t, m, m.deleteCmd(urls)())
	assert.False(t, m.Loading())
	assert.Equal(t, "deleted 1 of 1 URLs", m.Status())
	assert.Equal(t, []string{"https://d.example"}, src.DeleteCalls)
}

func TestModel_DeleteCancelled(t *testing.T) {
	t.Parallel()

	src := fixtureSource()
	m := loaded(t, src)
	m = step(t, m, key("space"))
	m = step(t, m, key("d"))
	m = step(t, m, key("n"))

	assert.Equal(t, ModeBrowse, m.Mode())
	assert.Equal(t, "delete cancelled", m.Status())
	assert.Empty(t, src.DeleteCalls)
	assert.True(t, m.Tracker().CheckedAt(0))
}

func TestModel_DeleteFailureReported(t *testing.T) {
	t.Parallel()

	src := fixtureSource()
	src.DeleteAllVisitsForURLFunc = func(ctx context.Context, url string) error {
		return errors.New("locked")
	}
	m := loaded(t, src)
	m = step(t, m, key("space"))
	m = step(t, m, key("d"))
	urls := m.pendingDelete
	m = step(t, m, key("y"))
	m = step(t, m, m.deleteCmd(urls)())

	assert.Equal(t, "deleted 0 of 1 URLs, 1 failed", m.Status())
	assert.Len(t, m.Rows(), 4)
}

func TestModel_RangeShiftDebounced(t *testing.T) {
	t.Parallel()

	m := loaded(t, fixtureSource())
	start := m.Request().Range

	m = step(t, m, key("["))
	m = step(t, m, key("["))
	assert.Equal(t, start.Shift(-48*time.Hour), m.Request().Range)

	m = step(t, m, rebuildTickMsg{seq: m.rebuildSeq - 1})
	assert.False(t, m.Loading(), "superseded tick must not rebuild")

	m = step(t, m, rebuildTickMsg{seq: m.rebuildSeq})
	assert.True(t, m.Loading())
}

func TestModel_ToggleCollapse(t *testing.T) {
	t.Parallel()

	pages := []history.Page{{URL: "x", Title: "X"}}
	src := history.NewMockSource(pages, map[string][]history.Visit{
		"x": {
			{ID: "1", Time: at(300), Transition: history.TransitionTyped},
			{ID: "2", Time: at(200), Transition: history.TransitionTyped},
		},
	})
	m := loaded(t, src)
	assert.Len(t, m.Rows(), 2)

	m = step(t, m, key("c"))
	assert.True(t, m.Request().CollapseDuplicates)
	m = step(t, m, m.rebuildCmd()())
	assert.Len(t, m.Rows(), 1)
	assert.Contains(t, m.View(), "collapsed")
}

func TestModel_HelpMode(t *testing.T) {
	t.Parallel()

	m := loaded(t, fixtureSource())
	m = step(t, m, key("?"))
	assert.Equal(t, ModeHelp, m.Mode())
	assert.Contains(t, m.View(), "close")

	m = step(t, m, key("?"))
	assert.Equal(t, ModeBrowse, m.Mode())
}

func TestModel_Quit(t *testing.T) {
	t.Parallel()

	m := loaded(t, fixtureSource())
	_, cmd := m.Update(key("q"))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestHighlight_NoQuery(t *testing.T) {
	t.Parallel()

	plain := lipgloss.NewStyle()
	assert.Equal(t, "Alpha", highlight("Alpha", "", plain))
	assert.Equal(t, "Alpha", highlight("Alpha", "  ", plain))
	assert.Equal(t, "Alpha", highlight("Alpha", "ph", plain))
}
