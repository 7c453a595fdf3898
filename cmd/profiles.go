package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/vstratful/histree/internal/chrome"
)

var profilesJSON bool

var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "List browser profiles with a History database",
	Long: `List the Chrome, Chromium, Brave, Edge and Vivaldi profiles found on this
machine. Pass one of the paths to --db, or run histree --pick to choose.`,
	RunE: runProfiles,
}

func init() {
	rootCmd.AddCommand(profilesCmd)
	profilesCmd.Flags().BoolVar(&profilesJSON, "json", false, "Print JSON")
}

func runProfiles(cmd *cobra.Command, args []string) error {
	profiles, err := chrome.DiscoverProfiles()
	if err != nil {
		return fmt.Errorf("failed to discover profiles: %w", err)
	}

	out := cmd.OutOrStdout()
	if profilesJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(profiles)
	}

	if len(profiles) == 0 {
		fmt.Fprintln(out, "No browser profiles found.")
		return nil
	}
	printProfiles(out, profiles)
	return nil
}

func printProfiles(w io.Writer, profiles []chrome.Profile) {
	tbl := table.NewWriter()
	tbl.SetOutputMirror(w)
	tbl.SetStyle(table.StyleLight)
	tbl.AppendHeader(table.Row{"Browser", "Profile", "Size", "Last used", "History"})
	for _, p := range profiles {
		name := p.Name
		if name == "" {
			name = p.Dir
		}
		lastUsed := ""
		if !p.ModTime.IsZero() {
			lastUsed = humanize.Time(p.ModTime)
		}
		tbl.AppendRow(table.Row{p.Browser, name, humanize.Bytes(uint64(max(p.Size, 0))), lastUsed, p.HistoryPath})
	}
	tbl.SetColumnConfigs([]table.ColumnConfig{
		{Number: 3, Align: text.AlignRight},
	})
	tbl.AppendFooter(table.Row{fmt.Sprintf("%d profiles", len(profiles))})
	tbl.Render()
}
