package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/vstratful/histree/internal/chrome"
	"github.com/vstratful/histree/internal/config"
	"github.com/vstratful/histree/internal/tui/picker"
	"github.com/vstratful/histree/internal/tui/tree"
	"github.com/vstratful/histree/internal/watch"
)

var (
	dbPath      string
	fromFlag    string
	toFlag      string
	limitFlag   int
	collapse    bool
	queryFlag   string
	configFile  string
	logLevel    string
	logFormat   string
	metricsFile string

	watchFlag   bool
	pickProfile bool
)

var rootCmd = &cobra.Command{
	Use:   "histree",
	Short: "Browse your browser history as a navigation tree",
	Long: `histree reads the history of a Chromium-family browser (Chrome, Chromium,
Brave, Edge, Vivaldi), rebuilds the tree of which page led to which, and lets
you search it and delete visits in bulk.

Examples:
  histree                                   # Last day of history, interactive
  histree --from 7d                         # The last week
  histree --from 2024-03-01 --to 2024-03-07 # A date range (the end day is inclusive)
  histree --query github --collapse         # Start with a search, repeats collapsed
  histree --watch                           # Refresh while the browser writes
  histree --pick                            # Choose a browser profile first`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runTree,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&dbPath, "db", "", "Path to a History database (default: first discovered profile)")
	pf.StringVar(&fromFlag, "from", "", "Start of the range: date, time, today, yesterday or an offset like 12h or 7d")
	pf.StringVar(&toFlag, "to", "", "End of the range (default: now)")
	pf.IntVarP(&limitFlag, "limit", "n", config.DefaultResultLimit, "Maximum number of pages to fetch")
	pf.BoolVar(&collapse, "collapse", false, "Collapse consecutive visits to the same URL")
	pf.StringVarP(&queryFlag, "query", "q", "", "Filter the tree by title or URL")
	pf.StringVar(&configFile, "config", "", "Config file (default: <user config dir>/histree/config.json)")
	pf.StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	pf.StringVar(&logFormat, "log-format", "", "Log format: text or json")
	pf.StringVar(&metricsFile, "metrics-file", "", "Write Prometheus metrics to this file on exit")

	rootCmd.Flags().BoolVarP(&watchFlag, "watch", "w", false, "Rebuild when the History database changes")
	rootCmd.Flags().BoolVar(&pickProfile, "pick", false, "Choose a browser profile interactively")
}

// Execute runs the root command.
func Execute() error {
	return explain(rootCmd.Execute())
}

func runTree(cmd *cobra.Command, args []string) error {
	var profile *chrome.Profile
	if pickProfile {
		var err error
		profile, err = picker.PickProfile(chrome.DiscoverProfiles)
		if err != nil {
			return fmt.Errorf("failed to pick a profile: %w", err)
		}
		if profile == nil {
			return nil
		}
		if err := cmd.Flags().Set("db", profile.HistoryPath); err != nil {
			return err
		}
	}

	app, err := newApp(cmd, appOptions{logToFile: true})
	if err != nil {
		return err
	}
	defer app.Close()
	if profile != nil {
		app.logger.Info("using picked profile", "profile", profile.Label(), "path", profile.HistoryPath)
	}

	searches, err := config.LoadSearchHistory()
	if err != nil {
		app.logger.Warn("loading recent searches failed", "error", err)
		searches = &config.SearchHistory{}
	}

	var watcher *watch.Watcher
	if watchFlag || (!cmd.Flags().Changed("watch") && app.cfg.Watch) {
		watcher, err = watch.New(app.source.Path(), watch.Options{Logger: app.logger.Logger})
		if err != nil {
			// Keep going without live refresh.
			color.New(color.FgYellow).Fprintf(os.Stderr, "Warning: not watching for changes: %v\n", err)
		} else {
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			defer watcher.Close()
			go watcher.Run(ctx)
		}
	}

	return tree.Run(tree.Config{
		Session:  app.session,
		Request:  app.req,
		Query:    queryFlag,
		Refresh:  app.source.Refresh,
		Watcher:  watcher,
		Searches: searches,
		Logger:   app.session.Logger(),
	})
}
