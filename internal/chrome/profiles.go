package chrome

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"
)

// Profile is one browser profile with a History database.
type Profile struct {
	Browser     string    `json:"browser" yaml:"browser"`
	Dir         string    `json:"dir" yaml:"dir"`
	Name        string    `json:"name" yaml:"name"`
	HistoryPath string    `json:"history_path" yaml:"history_path"`
	Size        int64     `json:"size" yaml:"size"`
	ModTime     time.Time `json:"mod_time" yaml:"mod_time"`
}

// Label is a short human-readable name for the profile.
func (p Profile) Label() string {
	if p.Name != "" && p.Name != p.Dir {
		return fmt.Sprintf("%s: %s (%s)", p.Browser, p.Name, p.Dir)
	}
	return fmt.Sprintf("%s: %s", p.Browser, p.Dir)
}

type browserDir struct {
	name string
	rel  string
}

// userDataDirs lists the user data directory of each supported browser,
// relative to the OS base directory.
func userDataDirs(goos string) []browserDir {
	switch goos {
	case "darwin":
		return []browserDir{
			{"Chrome", "Google/Chrome"},
			{"Chromium", "Chromium"},
			{"Brave", "BraveSoftware/Brave-Browser"},
			{"Edge", "Microsoft Edge"},
			{"Vivaldi", "Vivaldi"},
		}
	case "windows":
		return []browserDir{
			{"Chrome", `Google\Chrome\User Data`},
			{"Chromium", `Chromium\User Data`},
			{"Brave", `BraveSoftware\Brave-Browser\User Data`},
			{"Edge", `Microsoft\Edge\User Data`},
			{"Vivaldi", `Vivaldi\User Data`},
		}
	default:
		return []browserDir{
			{"Chrome", "google-chrome"},
			{"Chromium", "chromium"},
			{"Brave", "BraveSoftware/Brave-Browser"},
			{"Edge", "microsoft-edge"},
			{"Vivaldi", "vivaldi"},
		}
	}
}

// baseDir returns the directory browsers keep their user data under.
func baseDir() (string, error) {
	if runtime.GOOS == "windows" {
		if dir := os.Getenv("LOCALAPPDATA"); dir != "" {
			return dir, nil
		}
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("getting user config dir: %w", err)
	}
	return dir, nil
}

// DiscoverProfiles finds every profile of a supported browser that has a
// History file.
func DiscoverProfiles() ([]Profile, error) {
	base, err := baseDir()
	if err != nil {
		return nil, err
	}
	return discoverIn(base, userDataDirs(runtime.GOOS))
}

func discoverIn(base string, browsers []browserDir) ([]Profile, error) {
	var profiles []Profile
	for _, b := range browsers {
		root := filepath.Join(base, b.rel)
		entries, err := os.ReadDir(root)
		if err != nil {
			continue
		}
		names := profileNames(root)

		var found []Profile
		for _, e := range entries {
			if !e.IsDir() || !isProfileDir(e.Name()) {
				continue
			}
			historyPath := filepath.Join(root, e.Name(), "History")
			info, err := os.Stat(historyPath)
			if err != nil || info.IsDir() {
				continue
			}
			found = append(found, Profile{
				Browser:     b.name,
				Dir:         e.Name(),
				Name:        names[e.Name()],
				HistoryPath: historyPath,
				Size:        info.Size(),
				ModTime:     info.ModTime(),
			})
		}
		sort.SliceStable(found, func(i, j int) bool {
			return profileRank(found[i].Dir) < profileRank(found[j].Dir) ||
				(profileRank(found[i].Dir) == profileRank(found[j].Dir) && found[i].Dir < found[j].Dir)
		})
		profiles = append(profiles, found...)
	}
	return profiles, nil
}

func isProfileDir(name string) bool {
	return name == "Default" || strings.HasPrefix(name, "Profile ") || name == "Guest Profile"
}

func profileRank(dir string) int {
	switch {
	case dir == "Default":
		return 0
	case strings.HasPrefix(dir, "Profile "):
		return 1
	default:
		return 2
	}
}

// profileNames reads display names from the browser's Local State file.
// Missing or unreadable files yield an empty map.
func profileNames(root string) map[string]string {
	data, err := os.ReadFile(filepath.Join(root, "Local State"))
	if err != nil {
		return map[string]string{}
	}
	var state struct {
		Profile struct {
			InfoCache map[string]struct {
				Name string `json:"name"`
			} `json:"info_cache"`
		} `json:"profile"`
	}
	if err := json.Unmarshal(data, &state); err != nil {
		return map[string]string{}
	}
	names := make(map[string]string, len(state.Profile.InfoCache))
	for dir, info := range state.Profile.InfoCache {
		names[dir] = info.Name
	}
	return names
}

// DefaultHistoryPath returns the History file of the first discovered profile.
func DefaultHistoryPath() (string, error) {
	profiles, err := DiscoverProfiles()
	if err != nil {
		return "", err
	}
	if len(profiles) == 0 {
		return "", fmt.Errorf("%w: no browser profiles found", ErrNoHistory)
	}
	return profiles[0].HistoryPath, nil
}
