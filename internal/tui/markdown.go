package tui

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/vstratful/histree/internal/config"
)

// MarkdownRenderer wraps glamour for rendering markdown to styled terminal
// output. It remembers the last rendered document so redraws are cheap.
type MarkdownRenderer struct {
	renderer *glamour.TermRenderer
	width    int
	style    string

	lastIn  string
	lastOut string
}

// NewMarkdownRenderer creates a renderer with the dark style, which avoids
// terminal detection that can interfere with Bubble Tea's terminal handling.
func NewMarkdownRenderer(width int) (*MarkdownRenderer, error) {
	return NewMarkdownRendererStyle(width, "dark")
}

// NewMarkdownRendererStyle creates a renderer with a named glamour style
// ("dark", "light", "notty", "auto").
func NewMarkdownRendererStyle(width int, style string) (*MarkdownRenderer, error) {
	if width <= 0 {
		width = config.DefaultTerminalWidth
	}
	renderer, err := newTermRenderer(width, style)
	if err != nil {
		return nil, err
	}
	return &MarkdownRenderer{renderer: renderer, width: width, style: style}, nil
}

func newTermRenderer(width int, style string) (*glamour.TermRenderer, error) {
	if style == "auto" {
		return glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(width))
	}
	return glamour.NewTermRenderer(glamour.WithStylePath(style), glamour.WithWordWrap(width))
}

// Width returns the current wrap width.
func (m *MarkdownRenderer) Width() int {
	return m.width
}

// SetWidth updates the word wrap width by creating a new renderer.
func (m *MarkdownRenderer) SetWidth(width int) error {
	if width <= 0 {
		width = config.DefaultTerminalWidth
	}
	if width == m.width {
		return nil
	}

	renderer, err := newTermRenderer(width, m.style)
	if err != nil {
		return err
	}

	m.renderer = renderer
	m.width = width
	m.lastIn, m.lastOut = "", ""
	return nil
}

// Render renders markdown content to styled terminal output, without the
// trailing blank lines glamour adds.
func (m *MarkdownRenderer) Render(content string) (string, error) {
	if content == m.lastIn && m.lastOut != "" {
		return m.lastOut, nil
	}
	out, err := m.renderer.Render(content)
	if err != nil {
		return "", err
	}
	out = strings.TrimRight(out, "\n")
	m.lastIn, m.lastOut = content, out
	return out, nil
}
