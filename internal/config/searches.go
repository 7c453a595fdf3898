package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// SearchHistory holds recent search queries, oldest first.
type SearchHistory struct {
	Queries   []string  `json:"queries"`
	UpdatedAt time.Time `json:"updated_at"`
}

// GetSearchHistoryPath returns the file recent queries are stored in.
// This is a variable to allow mocking in tests.
var GetSearchHistoryPath = func() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "searches.json"), nil
}

// LoadSearchHistory reads recent queries. A missing file yields an empty
// history.
func LoadSearchHistory() (*SearchHistory, error) {
	path, err := GetSearchHistoryPath()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &SearchHistory{Queries: []string{}}, nil
		}
		return nil, fmt.Errorf("failed to read search history: %w", err)
	}

	var h SearchHistory
	if err := json.Unmarshal(data, &h); err != nil {
		return nil, fmt.Errorf("failed to parse search history: %w", err)
	}
	if h.Queries == nil {
		h.Queries = []string{}
	}
	return &h, nil
}

// Add records q. Blank queries and repeats of the latest query are ignored.
// It reports whether the history changed.
func (h *SearchHistory) Add(q string) bool {
	q = strings.TrimSpace(q)
	if q == "" {
		return false
	}
	if n := len(h.Queries); n > 0 && h.Queries[n-1] == q {
		return false
	}
	h.Queries = append(h.Queries, q)
	if over := len(h.Queries) - MaxSearchHistory; over > 0 {
		h.Queries = append([]string(nil), h.Queries[over:]...)
	}
	return true
}

// Matching returns distinct queries containing prefix (case-insensitive),
// most recent first, at most limit of them.
func (h *SearchHistory) Matching(prefix string, limit int) []string {
	prefix = strings.ToLower(strings.TrimSpace(prefix))
	seen := make(map[string]bool)
	var out []string
	for i := len(h.Queries) - 1; i >= 0; i-- {
		q := h.Queries[i]
		if seen[q] || !strings.Contains(strings.ToLower(q), prefix) {
			continue
		}
		if strings.EqualFold(q, prefix) {
			continue
		}
		seen[q] = true
		out = append(out, q)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

// Save writes the history to disk.
func (h *SearchHistory) Save() error {
	path, err := GetSearchHistoryPath()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	h.UpdatedAt = time.Now()

	data, err := json.MarshalIndent(h, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal search history: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write search history: %w", err)
	}

	return nil
}
