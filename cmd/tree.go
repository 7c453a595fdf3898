package cmd

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/list"
	"github.com/spf13/cobra"

	"github.com/vstratful/histree/internal/config"
	"github.com/vstratful/histree/internal/export"
	"github.com/vstratful/histree/internal/history"
	"github.com/vstratful/histree/internal/render"
	"github.com/vstratful/histree/internal/tui"
)

var (
	treeJSON     bool
	treeMarkdown bool
	treeURLs     bool
)

var treeCmd = &cobra.Command{
	Use:   "tree",
	Short: "Print the history tree",
	Long: `Print the navigation tree for a range without starting the interactive view.

Examples:
  histree tree                       # Last day as an indented tree
  histree tree --from 3d --urls      # Include URLs
  histree tree -q docs --json        # Matching branches as JSON
  histree tree --md                  # Rendered markdown`,
	RunE: runPrintTree,
}

func init() {
	rootCmd.AddCommand(treeCmd)
	treeCmd.Flags().BoolVar(&treeJSON, "json", false, "Print JSON")
	treeCmd.Flags().BoolVar(&treeMarkdown, "md", false, "Print rendered markdown")
	treeCmd.Flags().BoolVar(&treeURLs, "urls", false, "Show URLs next to titles")
	treeCmd.MarkFlagsMutuallyExclusive("json", "md")
}

func runPrintTree(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	nodes, err := a.build(cmd)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch {
	case treeJSON:
		_, err = export.Write(out, nodes, export.FormatJSON, a.meta())
		return err
	case treeMarkdown:
		return printMarkdown(out, nodes, a.meta())
	}

	if len(nodes) == 0 {
		fmt.Fprintln(out, "No history in this range.")
		return nil
	}
	fmt.Fprintln(out, renderList(nodes, treeURLs))
	fmt.Fprintf(out, "\n%d visits\n", render.Count(nodes))
	return nil
}

// build rebuilds the forest for the command's request and renders the part
// matching --query.
func (a *app) build(cmd *cobra.Command) ([]*render.Node, error) {
	forest, err := a.session.Rebuild(cmd.Context(), a.req)
	if err != nil {
		return nil, err
	}
	projected := history.Project(forest, queryFlag)
	return render.Render(projected, render.Options{}), nil
}

func (a *app) meta() export.Meta {
	return export.Meta{
		From:        a.req.Range.Start,
		To:          a.req.Range.End,
		Query:       queryFlag,
		GeneratedAt: time.Now(),
	}
}

// renderList draws nodes as a go-pretty list.
func renderList(nodes []*render.Node, urls bool) string {
	l := list.NewWriter()
	l.SetStyle(list.StyleConnectedRounded)

	var add func(nodes []*render.Node)
	add = func(nodes []*render.Node) {
		for _, n := range nodes {
			l.AppendItem(listItem(n, urls))
			if len(n.Children) > 0 {
				l.Indent()
				add(n.Children)
				l.UnIndent()
			}
		}
	}
	add(nodes)
	return l.Render()
}

func listItem(n *render.Node, urls bool) string {
	title := n.Title
	if title == "" {
		title = n.URL
	}
	item := fmt.Sprintf("%s %s  (%s, %s)", n.Icon.Glyph, title, n.Timestamp, n.Relative)
	if urls && n.Title != "" {
		item += "  " + n.URL
	}
	return item
}

func printMarkdown(w io.Writer, nodes []*render.Node, meta export.Meta) error {
	var buf bytes.Buffer
	if _, err := export.Write(&buf, nodes, export.FormatMarkdown, meta); err != nil {
		return err
	}

	md, err := tui.NewMarkdownRendererStyle(config.DefaultTerminalWidth, "auto")
	if err != nil {
		// Fall back to the raw markdown.
		_, err = buf.WriteTo(w)
		return err
	}
	out, err := md.Render(buf.String())
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, out)
	return err
}
