// Package picker lets the user choose a browser profile before the tree opens.
package picker

import (
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/vstratful/histree/internal/chrome"
	"github.com/vstratful/histree/internal/tui"
)

const title = "Choose a browser profile"

var browserStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("6")).Bold(true)

// profileItem adapts a profile to list.Item.
type profileItem struct {
	chrome.Profile
}

func (i profileItem) FilterValue() string {
	return i.Browser + " " + i.Name + " " + i.Dir
}

// name is the profile's display name, falling back to its directory.
func (i profileItem) name() string {
	switch {
	case i.Name == "":
		return i.Dir
	case i.Name == i.Dir:
		return i.Name
	}
	return fmt.Sprintf("%s (%s)", i.Name, i.Dir)
}

// details is the second line: size, last use and the History path.
func (i profileItem) details() string {
	s := humanize.Bytes(uint64(max(i.Size, 0)))
	if !i.ModTime.IsZero() {
		s += " • used " + humanize.Time(i.ModTime)
	}
	return s + " • " + i.HistoryPath
}

// profileDelegate draws a profile as "Browser  name" over its details.
type profileDelegate struct{}

func (profileDelegate) Height() int                             { return 2 }
func (profileDelegate) Spacing() int                            { return 1 }
func (profileDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }

func (profileDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	p, ok := item.(profileItem)
	if !ok {
		return
	}

	head := browserStyle.Render(p.Browser) + "  " + p.name()
	if index == m.Index() {
		fmt.Fprintf(w, "%s\n%s",
			tui.SelectedItemStyle.Render("> "+head),
			tui.SelectedItemStyle.Render("  "+p.details()))
		return
	}
	fmt.Fprintf(w, "%s\n%s", tui.ItemStyle.Render(head), tui.ItemStyle.Render(tui.DimHelpStyle.Render(p.details())))
}

type profilesLoadedMsg struct {
	profiles []chrome.Profile
	err      error
}

// Model discovers profiles behind a spinner, then lists them.
type Model struct {
	list     list.Model
	spinner  spinner.Model
	discover func() ([]chrome.Profile, error)

	loading  bool
	err      error
	width    int
	height   int
	quitting bool
	chosen   bool
}

// New creates a picker that loads its profiles with discover.
func New(discover func() ([]chrome.Profile, error)) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))

	return Model{
		spinner:  sp,
		discover: discover,
		loading:  true,
	}
}

func (m Model) Init() tea.Cmd {
	discover := m.discover
	if discover == nil {
		return m.spinner.Tick
	}
	return tea.Batch(m.spinner.Tick, func() tea.Msg {
		profiles, err := discover()
		return profilesLoadedMsg{profiles: profiles, err: err}
	})
}

func (m *Model) setProfiles(profiles []chrome.Profile) {
	items := make([]list.Item, len(profiles))
	for i, p := range profiles {
		items[i] = profileItem{p}
	}

	l := list.New(items, profileDelegate{}, m.width, max(m.height-2, 0))
	l.Title = title
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(true)
	l.Styles.Title = tui.TitleStyle
	l.Styles.PaginationStyle = tui.PaginationStyle
	l.Styles.HelpStyle = tui.HelpListStyle
	m.list = l
	m.loading = false
}

func (m Model) filtering() bool {
	return !m.loading && m.list.FilterState() == list.Filtering
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case profilesLoadedMsg:
		switch {
		case msg.err != nil:
			m.err = msg.err
			m.loading = false
		case len(msg.profiles) == 0:
			m.err = chrome.ErrNoHistory
			m.loading = false
		default:
			m.setProfiles(msg.profiles)
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if !m.loading && m.err == nil {
			m.list.SetWidth(msg.Width)
			m.list.SetHeight(max(msg.Height-2, 0))
		}
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			if msg.String() == "q" && m.filtering() {
				break
			}
			m.quitting = true
			return m, tea.Quit

		case "enter":
			if m.loading || m.err != nil || m.filtering() {
				break
			}
			if m.list.SelectedItem() != nil {
				m.chosen = true
				return m, tea.Quit
			}
			return m, nil
		}

	case spinner.TickMsg:
		if m.loading {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil
	}

	if !m.loading && m.err == nil {
		var cmd tea.Cmd
		m.list, cmd = m.list.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) View() string {
	switch {
	case m.quitting:
		return ""
	case m.loading:
		return fmt.Sprintf("\n\n   %s Looking for browser profiles...\n", m.spinner.View())
	case m.err != nil:
		return tui.ErrorStyle.Render(fmt.Sprintf("\n\n   Error: %s\n", m.err))
	}
	return m.list.View()
}

// Err returns the discovery error, if any.
func (m Model) Err() error {
	return m.err
}

// Selected returns the chosen profile, or nil if the user quit.
func (m Model) Selected() *chrome.Profile {
	if !m.chosen {
		return nil
	}
	if p, ok := m.list.SelectedItem().(profileItem); ok {
		return &p.Profile
	}
	return nil
}

// PickProfile shows the picker and returns the chosen profile. It returns nil
// without error when the user quits.
func PickProfile(discover func() ([]chrome.Profile, error)) (*chrome.Profile, error) {
	final, err := tea.NewProgram(New(discover), tea.WithAltScreen()).Run()
	if err != nil {
		return nil, err
	}
	m, ok := final.(Model)
	if !ok {
		return nil, nil
	}
	if m.err != nil {
		return nil, m.err
	}
	return m.Selected(), nil
}
