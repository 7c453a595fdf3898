// Package export writes rendered history trees in machine- and human-readable
// formats.
package export

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vstratful/histree/internal/render"
)

// Format is an export format.
type Format string

const (
	FormatJSON     Format = "json"
	FormatJSONL    Format = "jsonl"
	FormatYAML     Format = "yaml"
	FormatMarkdown Format = "md"
	FormatText     Format = "txt"
)

// Formats lists the supported formats.
var Formats = []Format{FormatJSON, FormatJSONL, FormatYAML, FormatMarkdown, FormatText}

// ErrUnknownFormat is returned for unsupported formats.
var ErrUnknownFormat = errors.New("unknown export format")

// ParseFormat resolves a format name, accepting a few aliases.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json":
		return FormatJSON, nil
	case "jsonl", "ndjson":
		return FormatJSONL, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "md", "markdown":
		return FormatMarkdown, nil
	case "txt", "text":
		return FormatText, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

// Meta describes the export.
type Meta struct {
	From        time.Time
	To          time.Time
	Query       string
	GeneratedAt time.Time
}

type document struct {
	From        time.Time `json:"from" yaml:"from"`
	To          time.Time `json:"to" yaml:"to"`
	Query       string    `json:"query,omitempty" yaml:"query,omitempty"`
	GeneratedAt time.Time `json:"generated_at" yaml:"generated_at"`
	Visits      int       `json:"visits" yaml:"visits"`
	Roots       []*node   `json:"roots" yaml:"roots"`
}

type node struct {
	ID         string    `json:"id" yaml:"id"`
	URL        string    `json:"url" yaml:"url"`
	Title      string    `json:"title" yaml:"title"`
	Time       time.Time `json:"time" yaml:"time"`
	Transition string    `json:"transition" yaml:"transition"`
	Children   []*node   `json:"children,omitempty" yaml:"children,omitempty"`
}

type row struct {
	ID         string    `json:"id"`
	ParentID   string    `json:"parent_id,omitempty"`
	Depth      int       `json:"depth"`
	URL        string    `json:"url"`
	Title      string    `json:"title"`
	Time       time.Time `json:"time"`
	Transition string    `json:"transition"`
}

func convert(nodes []*render.Node) []*node {
	out := make([]*node, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, &node{
			ID:         string(n.ID),
			URL:        n.URL,
			Title:      n.Title,
			Time:       n.Time,
			Transition: string(n.Transition),
			Children:   convertChildren(n.Children),
		})
	}
	return out
}

func convertChildren(nodes []*render.Node) []*node {
	if len(nodes) == 0 {
		return nil
	}
	return convert(nodes)
}

// Write writes nodes to w in format and returns the number of visits written.
func Write(w io.Writer, nodes []*render.Node, format Format, meta Meta) (int, error) {
	count := render.Count(nodes)
	doc := document{
		From:        meta.From,
		To:          meta.To,
		Query:       meta.Query,
		GeneratedAt: meta.GeneratedAt,
		Visits:      count,
		Roots:       convert(nodes),
	}

	var err error
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		err = enc.Encode(doc)
	case FormatJSONL:
		err = writeJSONL(w, nodes)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err = enc.Encode(doc); err == nil {
			err = enc.Close()
		}
	case FormatMarkdown:
		err = writeMarkdown(w, nodes, meta, count)
	case FormatText:
		err = writeText(w, nodes)
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	if err != nil {
		return 0, fmt.Errorf("writing %s export: %w", format, err)
	}
	return count, nil
}

func writeJSONL(w io.Writer, nodes []*render.Node) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	parents := make(map[*render.Node]string)
	for _, r := range render.Flatten(nodes) {
		for _, c := range r.Node.Children {
			parents[c] = string(r.Node.ID)
		}
		if err := enc.Encode(row{
			ID:         string(r.Node.ID),
			ParentID:   parents[r.Node],
			Depth:      r.Depth,
			URL:        r.Node.URL,
			Title:      r.Node.Title,
			Time:       r.Node.Time,
			Transition: string(r.Node.Transition),
		}); err != nil {
			return err
		}
	}
	return nil
}

func writeMarkdown(w io.Writer, nodes []*render.Node, meta Meta, count int) error {
	var sb strings.Builder
	sb.WriteString("# Browsing history\n\n")
	if !meta.From.IsZero() || !meta.To.IsZero() {
		fmt.Fprintf(&sb, "%s to %s", meta.From.Format(render.TimestampLayout), meta.To.Format(render.TimestampLayout))
		if meta.Query != "" {
			fmt.Fprintf(&sb, ", matching `%s`", meta.Query)
		}
		fmt.Fprintf(&sb, ", %d visits\n\n", count)
	}
	for _, r := range render.Flatten(nodes) {
		sb.WriteString(strings.Repeat("  ", r.Depth))
		fmt.Fprintf(&sb, "- [%s](%s) `%s`\n", escapeMarkdown(r.Node.Title), r.Node.Link, r.Node.Timestamp)
	}
	_, err := io.WriteString(w, sb.String())
	return err
}

func writeText(w io.Writer, nodes []*render.Node) error {
	var sb strings.Builder
	for _, r := range render.Flatten(nodes) {
		fmt.Fprintf(&sb, "%s %s%s  %s\n", r.Node.Timestamp, r.Prefix, r.Node.Title, r.Node.URL)
	}
	_, err := io.WriteString(w, sb.String())
	return err
}

var markdownEscaper = strings.NewReplacer(`[`, `\[`, `]`, `\]`, "`", "\\`", `*`, `\*`, `_`, `\_`)

func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}
