package cmd

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/vstratful/histree/internal/chrome"
	"github.com/vstratful/histree/internal/config"
	"github.com/vstratful/histree/internal/history"
	"github.com/vstratful/histree/internal/logging"
	"github.com/vstratful/histree/internal/metrics"
)

// app is everything a command needs to rebuild history.
type app struct {
	cfg     *config.Config
	logger  *logging.Logger
	metrics *metrics.Metrics
	source  *chrome.Source
	session *history.Session
	req     history.Request
}

type appOptions struct {
	// logToFile sends logs to the log file instead of stderr, for the TUI.
	logToFile bool
}

// newApp loads config, applies flag overrides and opens the History database.
func newApp(cmd *cobra.Command, opts appOptions) (*app, error) {
	cfg, err := config.LoadFrom(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	applyFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logCfg := logging.Config{Level: cfg.LogLevel, Format: logging.Format(cfg.LogFormat)}
	if opts.logToFile {
		if logCfg.Path, err = config.GetLogPath(); err != nil {
			return nil, err
		}
	}
	logger, err := logging.New(logCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to set up logging: %w", err)
	}

	req, err := buildRequest(cfg, time.Now())
	if err != nil {
		logger.Close()
		return nil, err
	}

	path := cfg.DBPath
	if path == "" {
		if path, err = chrome.DefaultHistoryPath(); err != nil {
			logger.Close()
			return nil, fmt.Errorf("no History database found, pass --db: %w", err)
		}
	}

	retry := chrome.DefaultRetryConfig()
	source, err := chrome.Open(chrome.Config{
		Path:      path,
		ViewerURL: cfg.ViewerURL,
		Retry:     &retry,
		Logger:    logger.Logger,
	})
	if err != nil {
		logger.Close()
		return nil, err
	}

	m := metrics.New()
	session := history.NewSession(history.SessionConfig{
		Source:           source,
		Logger:           logger.Logger,
		Metrics:          m,
		FetchConcurrency: cfg.FetchConcurrency,
	})
	session.Logger().Debug("opened history", "path", path, "snapshot_of", source.Path())

	return &app{
		cfg:     cfg,
		logger:  logger,
		metrics: m,
		source:  source,
		session: session,
		req:     req,
	}, nil
}

// Close writes the metrics file, if requested, and releases the database.
func (a *app) Close() {
	if metricsFile != "" {
		if err := a.metrics.WriteTextfile(metricsFile); err != nil {
			color.New(color.FgYellow).Fprintf(os.Stderr, "Warning: %v\n", err)
		}
	}
	if err := a.source.Close(); err != nil {
		a.logger.Warn("closing history snapshot failed", "error", err)
	}
	a.logger.Close()
}

// applyFlags overrides config values with flags the user set.
func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("db") {
		cfg.DBPath = dbPath
	}
	if flags.Changed("limit") {
		cfg.ResultLimit = limitFlag
	}
	if flags.Changed("collapse") {
		cfg.CollapseDuplicates = collapse
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = logLevel
	}
	if flags.Changed("log-format") {
		cfg.LogFormat = logFormat
	}
}

// buildRequest turns --from/--to, or the configured number of days, into a
// rebuild request.
func buildRequest(cfg *config.Config, now time.Time) (history.Request, error) {
	var r history.TimeRange
	if fromFlag == "" && toFlag == "" {
		r = history.LastDays(cfg.RangeDays, now)
	} else {
		var err error
		r, err = history.ParseRange(fromFlag, toFlag, now, time.Local)
		if err != nil {
			return history.Request{}, err
		}
	}
	return history.Request{
		Range:              r,
		Limit:              cfg.ResultLimit,
		CollapseDuplicates: cfg.CollapseDuplicates,
	}, nil
}

// explain adds a hint to errors the user can act on.
func explain(err error) error {
	switch {
	case errors.Is(err, chrome.ErrDatabaseLocked):
		return fmt.Errorf("%w (close the browser and try again)", err)
	case errors.Is(err, history.ErrInvalidRange):
		return fmt.Errorf("%w (try --from 7d or --from 2024-03-01)", err)
	}
	return err
}
