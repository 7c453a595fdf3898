// Package update checks GitHub Releases for newer histree builds and replaces
// the running binary.
package update

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"strings"

	"github.com/creativeprojects/go-selfupdate"
)

const (
	// DefaultOwner and DefaultRepo name the GitHub repository releases come from.
	DefaultOwner = "vstratful"
	DefaultRepo  = "histree"

	checksumFile = "checksums.txt"
)

var (
	// ErrDevVersion is returned when trying to update a development build.
	ErrDevVersion = errors.New("cannot update development builds")

	// ErrNoRelease is returned by Apply when there is nothing to install.
	ErrNoRelease = errors.New("no release to apply")
)

// Release contains information about an available update.
type Release struct {
	Version     string
	ReleaseURL  string
	ReleaseDate string
	Description string
	AssetURL    string
	AssetName   string

	release *selfupdate.Release
}

// Updater checks for and installs releases of one repository.
type Updater struct {
	owner  string
	repo   string
	logger *slog.Logger
}

// Option configures an Updater.
type Option func(*Updater)

// WithRepository points the updater at another GitHub repository.
func WithRepository(owner, repo string) Option {
	return func(u *Updater) {
		u.owner = owner
		u.repo = repo
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(u *Updater) {
		u.logger = logger
	}
}

// New creates an Updater for the histree repository.
func New(opts ...Option) *Updater {
	u := &Updater{
		owner:  DefaultOwner,
		repo:   DefaultRepo,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// ReleasesURL is where releases can be downloaded by hand.
func (u *Updater) ReleasesURL() string {
	return fmt.Sprintf("https://github.com/%s/%s/releases", u.owner, u.repo)
}

// newUpdater creates a selfupdate.Updater with GitHub source and checksum validation.
func newUpdater() (*selfupdate.Updater, error) {
	source, err := selfupdate.NewGitHubSource(selfupdate.GitHubConfig{})
	if err != nil {
		return nil, fmt.Errorf("failed to create GitHub source: %w", err)
	}

	updater, err := selfupdate.NewUpdater(selfupdate.Config{
		Source:    source,
		Validator: &selfupdate.ChecksumValidator{UniqueFilename: checksumFile},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create updater: %w", err)
	}

	return updater, nil
}

// Check returns the latest release when it is newer than currentVersion, or
// nil when already up to date.
func (u *Updater) Check(ctx context.Context, currentVersion string) (*Release, error) {
	if IsDevVersion(currentVersion) {
		return nil, ErrDevVersion
	}

	updater, err := newUpdater()
	if err != nil {
		return nil, err
	}

	release, found, err := updater.DetectLatest(ctx, selfupdate.NewRepositorySlug(u.owner, u.repo))
	if err != nil {
		return nil, fmt.Errorf("failed to detect latest release: %w", err)
	}
	if !found {
		u.logger.Debug("no release found", "repo", u.owner+"/"+u.repo)
		return nil, nil
	}

	if !release.GreaterThan(currentVersion) {
		u.logger.Debug("already up to date", "current", currentVersion, "latest", release.Version())
		return nil, nil
	}

	return newRelease(release), nil
}

func newRelease(release *selfupdate.Release) *Release {
	releaseDate := ""
	if !release.PublishedAt.IsZero() {
		releaseDate = release.PublishedAt.Format("2006-01-02")
	}

	return &Release{
		Version:     release.Version(),
		ReleaseURL:  release.URL,
		ReleaseDate: releaseDate,
		Description: release.ReleaseNotes,
		AssetURL:    release.AssetURL,
		AssetName:   release.AssetName,
		release:     release,
	}
}

// Apply downloads rel and replaces the current binary with it.
func (u *Updater) Apply(ctx context.Context, rel *Release) error {
	if rel == nil || rel.release == nil {
		return ErrNoRelease
	}

	updater, err := newUpdater()
	if err != nil {
		return err
	}

	exe, err := selfupdate.ExecutablePath()
	if err != nil {
		return fmt.Errorf("failed to get executable path: %w", err)
	}

	u.logger.Info("applying update", "version", rel.Version, "asset", rel.AssetName, "path", exe)
	if err := updater.UpdateTo(ctx, rel.release, exe); err != nil {
		return fmt.Errorf("failed to apply update: %w", err)
	}

	return nil
}

// IsDevVersion reports whether v is an unreleased build.
func IsDevVersion(v string) bool {
	v = strings.TrimSpace(v)
	return v == "" || v == "dev" || strings.HasSuffix(v, "-dev")
}

// go-selfupdate does not export typed errors for these failures, so they are
// recognized by message.

// IsPermissionError reports whether err came from a binary we may not replace.
func IsPermissionError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "permission denied") || strings.Contains(msg, "access is denied")
}

// IsChecksumError reports whether err came from a failed checksum validation.
func IsChecksumError(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "checksum")
}

// GetPlatformInfo returns the current OS and architecture.
func GetPlatformInfo() (os, arch string) {
	return runtime.GOOS, runtime.GOARCH
}
