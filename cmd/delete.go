package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/vstratful/histree/internal/history"
)

var (
	deleteMatching string
	deleteYes      bool
	deleteDryRun   bool
)

var errNotInteractive = errors.New("refusing to delete without --yes when stdin is not a terminal")

var deleteCmd = &cobra.Command{
	Use:   "delete [url...]",
	Short: "Delete every visit to some URLs",
	Long: `Delete every visit to the given URLs, or to every URL in the range whose
title or URL matches --matching. This cannot be undone. Close the browser
first; it keeps the database locked while running.

Examples:
  histree delete https://example.com/secret       # One URL
  histree delete --matching tracker --from 30d    # Everything matching in a month
  histree delete --matching ads --dry-run         # Only show what would go`,
	RunE: runDelete,
}

func init() {
	rootCmd.AddCommand(deleteCmd)
	deleteCmd.Flags().StringVarP(&deleteMatching, "matching", "m", "", "Delete URLs whose title or URL contains this text")
	deleteCmd.Flags().BoolVarP(&deleteYes, "yes", "y", false, "Do not ask for confirmation")
	deleteCmd.Flags().BoolVar(&deleteDryRun, "dry-run", false, "Show what would be deleted and stop")
}

// target is one URL to delete with what the range knows about it.
type target struct {
	URL    string
	Title  string
	Visits int
}

func runDelete(cmd *cobra.Command, args []string) error {
	if len(args) == 0 && strings.TrimSpace(deleteMatching) == "" {
		return errors.New("name URLs to delete or pass --matching")
	}

	a, err := newApp(cmd, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	forest, err := a.session.Rebuild(cmd.Context(), a.req)
	if err != nil {
		return err
	}

	targets := collectTargets(forest, args, deleteMatching)
	out := cmd.OutOrStdout()
	if len(targets) == 0 {
		fmt.Fprintln(out, "Nothing matches.")
		return nil
	}

	printTargets(out, targets)
	if deleteDryRun {
		return nil
	}

	if !deleteYes {
		ok, err := confirmDelete(len(targets))
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(out, "Delete cancelled.")
			return nil
		}
	}

	urls := make([]string, len(targets))
	for i, t := range targets {
		urls[i] = t.URL
	}
	report, _, err := a.session.Delete(cmd.Context(), urls)
	printReport(out, report)
	if err != nil {
		return err
	}
	if len(report.Failed) > 0 {
		return fmt.Errorf("%d of %d URLs could not be deleted", len(report.Failed), report.Requested)
	}
	return nil
}

// collectTargets lists explicit URLs first, then URLs matching query, each
// once, with their visit counts in forest.
func collectTargets(forest history.Forest, urls []string, query string) []target {
	counts := make(map[string]int)
	titles := make(map[string]string)
	forest.Walk(func(n *history.TreeNode, _ int) bool {
		counts[n.URL()]++
		if titles[n.URL()] == "" {
			titles[n.URL()] = n.Title()
		}
		return true
	})

	seen := make(map[string]bool)
	var targets []target
	add := func(u string) {
		if u == "" || seen[u] {
			return
		}
		seen[u] = true
		targets = append(targets, target{URL: u, Title: titles[u], Visits: counts[u]})
	}

	for _, u := range urls {
		add(u)
	}
	// A blank query would match everything.
	if q := history.NormalizeQuery(query); q != "" {
		forest.Walk(func(n *history.TreeNode, _ int) bool {
			if history.Matches(n.Record, q) {
				add(n.URL())
			}
			return true
		})
	}
	return targets
}

func printTargets(w io.Writer, targets []target) {
	tbl := table.NewWriter()
	tbl.SetOutputMirror(w)
	tbl.SetStyle(table.StyleLight)
	tbl.AppendHeader(table.Row{"#", "URL", "Title", "Visits in range"})
	total := 0
	for i, t := range targets {
		tbl.AppendRow(table.Row{i + 1, t.URL, t.Title, t.Visits})
		total += t.Visits
	}
	tbl.AppendFooter(table.Row{"", fmt.Sprintf("%d URLs", len(targets)), "", total})
	tbl.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, WidthMax: 60},
		{Number: 3, WidthMax: 40},
		{Number: 4, Align: text.AlignRight, AlignFooter: text.AlignRight},
	})
	tbl.Render()
}

func confirmDelete(n int) (bool, error) {
	if !isatty.IsTerminal(os.Stdin.Fd()) && !isatty.IsCygwinTerminal(os.Stdin.Fd()) {
		return false, errNotInteractive
	}

	var ok bool
	err := huh.NewConfirm().
		Title(fmt.Sprintf("Delete %d URLs?", n)).
		Description("This is irreversible: it removes every visit to these URLs, not only the ones in range.").
		Affirmative("Delete").
		Negative("Cancel").
		Value(&ok).
		Run()
	if errors.Is(err, huh.ErrUserAborted) {
		return false, nil
	}
	return ok, err
}

func printReport(w io.Writer, report history.DeleteReport) {
	if len(report.Deleted) > 0 {
		color.New(color.FgGreen).Fprintf(w, "Deleted %d of %d URLs\n", len(report.Deleted), report.Requested)
	}
	if len(report.Failed) == 0 {
		return
	}
	color.New(color.FgRed).Fprintf(w, "Failed to delete %d URLs:\n", len(report.Failed))
	for _, u := range report.Failed {
		color.New(color.FgRed).Fprintf(w, "  - %s\n", u)
	}
	color.New(color.FgYellow).Fprintln(w, "Is the browser still running? Close it and try again.")
}
