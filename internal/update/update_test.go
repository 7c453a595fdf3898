package update

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestIsDevVersion(t *testing.T) {
	tests := []struct {
		version string
		want    bool
	}{
		{"dev", true},
		{"", true},
		{"1.2.0-dev", true},
		{"1.2.0", false},
		{"v0.3.1", false},
	}
	for _, tt := range tests {
		if got := IsDevVersion(tt.version); got != tt.want {
			t.Errorf("IsDevVersion(%q) = %v, want %v", tt.version, got, tt.want)
		}
	}
}

func TestCheck_DevVersion(t *testing.T) {
	u := New()
	rel, err := u.Check(context.Background(), "dev")
	if !errors.Is(err, ErrDevVersion) {
		t.Errorf("Check(dev) error = %v, want ErrDevVersion", err)
	}
	if rel != nil {
		t.Errorf("Check(dev) = %+v, want nil", rel)
	}
}

func TestApply_NoRelease(t *testing.T) {
	u := New()
	if err := u.Apply(context.Background(), nil); !errors.Is(err, ErrNoRelease) {
		t.Errorf("Apply(nil) error = %v, want ErrNoRelease", err)
	}
	if err := u.Apply(context.Background(), &Release{Version: "1.0.0"}); !errors.Is(err, ErrNoRelease) {
		t.Errorf("Apply(detached) error = %v, want ErrNoRelease", err)
	}
}

func TestReleasesURL(t *testing.T) {
	if got := New().ReleasesURL(); got != "https://github.com/vstratful/histree/releases" {
		t.Errorf("ReleasesURL() = %q", got)
	}
	if got := New(WithRepository("me", "fork")).ReleasesURL(); got != "https://github.com/me/fork/releases" {
		t.Errorf("ReleasesURL() with repository = %q", got)
	}
}

func TestErrorClassification(t *testing.T) {
	perm := fmt.Errorf("failed to apply update: %w", errors.New("open /usr/local/bin/histree: permission denied"))
	win := errors.New("Access is denied.")
	sum := errors.New("incorrect checksum for histree_linux_amd64.tar.gz")

	if !IsPermissionError(perm) || !IsPermissionError(win) {
		t.Error("permission errors not recognized")
	}
	if IsPermissionError(sum) || IsPermissionError(nil) {
		t.Error("IsPermissionError false positive")
	}
	if !IsChecksumError(sum) {
		t.Error("checksum error not recognized")
	}
	if IsChecksumError(perm) || IsChecksumError(nil) {
		t.Error("IsChecksumError false positive")
	}
}
