package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/vstratful/histree/internal/logging"
	"github.com/vstratful/histree/internal/update"
)

// version is set at build time with -ldflags "-X github.com/vstratful/histree/cmd.version=..."
var version = "dev"

var (
	checkOnly     bool
	forceUpdate   bool
	updateTimeout time.Duration
)

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Update histree to the latest version",
	Long: `Check for and install updates from GitHub Releases.

Examples:
  histree update               # Check and install update interactively
  histree update --check       # Only check for updates
  histree update --force       # Update without confirmation
  histree update --timeout 60s # Set network timeout`,
	RunE: runUpdate,
}

func init() {
	rootCmd.AddCommand(updateCmd)
	rootCmd.Version = version
	updateCmd.Flags().BoolVarP(&checkOnly, "check", "c", false, "Only check for updates, don't install")
	updateCmd.Flags().BoolVarP(&forceUpdate, "force", "f", false, "Update without confirmation")
	updateCmd.Flags().DurationVar(&updateTimeout, "timeout", 30*time.Second, "Timeout for network operations")
}

func runUpdate(cmd *cobra.Command, args []string) error {
	logger, err := logging.New(logging.Config{Level: logLevel, Format: logging.Format(logFormat)})
	if err != nil {
		return err
	}
	defer logger.Close()

	updater := update.New(update.WithLogger(logger.Logger))

	ctx, cancel := context.WithTimeout(cmd.Context(), updateTimeout)
	defer cancel()

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Checking for updates...")
	fmt.Fprintf(out, "Current version: %s\n", version)

	release, err := updater.Check(ctx, version)
	if err != nil {
		if errors.Is(err, update.ErrDevVersion) {
			fmt.Fprintln(out, "\nYou are running a development build.")
			fmt.Fprintln(out, "Auto-update is only available for released versions.")
			fmt.Fprintf(out, "Install a release from: %s\n", updater.ReleasesURL())
			return nil
		}
		return fmt.Errorf("failed to check for updates: %w", err)
	}

	if release == nil {
		color.New(color.FgGreen).Fprintln(out, "\nYou are running the latest version.")
		return nil
	}

	fmt.Fprintf(out, "Latest version:  %s\n", release.Version)
	if release.Description != "" {
		fmt.Fprintf(out, "\nRelease notes:\n")
		for _, line := range strings.Split(release.Description, "\n") {
			fmt.Fprintf(out, "  %s\n", line)
		}
	}

	if checkOnly {
		fmt.Fprintf(out, "\nRun 'histree update' to install the update.\n")
		return nil
	}

	if !forceUpdate {
		if !isatty.IsTerminal(os.Stdin.Fd()) {
			return errors.New("not a terminal; pass --force to update without confirmation")
		}
		var ok bool
		err := huh.NewConfirm().
			Title(fmt.Sprintf("Update to v%s?", release.Version)).
			Value(&ok).
			Run()
		if err != nil && !errors.Is(err, huh.ErrUserAborted) {
			return fmt.Errorf("failed to read response: %w", err)
		}
		if !ok {
			fmt.Fprintln(out, "Update cancelled.")
			return nil
		}
	}

	fmt.Fprintf(out, "\nDownloading %s...\n", release.AssetName)

	// The check context may be nearly spent; downloads get their own.
	cancel()
	downloadCtx, downloadCancel := context.WithTimeout(cmd.Context(), updateTimeout*2)
	defer downloadCancel()

	if err := updater.Apply(downloadCtx, release); err != nil {
		switch {
		case update.IsPermissionError(err):
			color.New(color.FgYellow).Fprintln(out, "\nPermission denied. Try running with elevated privileges:")
			if osName, _ := update.GetPlatformInfo(); osName == "windows" {
				fmt.Fprintln(out, "  Run as Administrator")
			} else {
				fmt.Fprintln(out, "  sudo histree update")
			}
		case update.IsChecksumError(err):
			color.New(color.FgRed).Fprintln(out, "\nSecurity warning: Checksum verification failed!")
			fmt.Fprintln(out, "The downloaded file may be corrupted or tampered with.")
			fmt.Fprintf(out, "Please download manually from: %s\n", updater.ReleasesURL())
		}
		return err
	}

	color.New(color.FgGreen).Fprintf(out, "\nSuccessfully updated to v%s!\n", release.Version)
	return nil
}
