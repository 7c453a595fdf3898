package history

import (
	"context"
	"sync"
)

// MockSource is a Source for tests. Func fields override behavior; calls are
// recorded. It is safe for the concurrent use Normalize and Delete make of it.
type MockSource struct {
	// SearchVisitedPagesFunc is called when SearchVisitedPages is invoked.
	SearchVisitedPagesFunc func(ctx context.Context, r TimeRange, limit int) ([]Page, error)

	// GetVisitsForURLFunc is called when GetVisitsForURL is invoked.
	GetVisitsForURLFunc func(ctx context.Context, url string) ([]Visit, error)

	// DeleteAllVisitsForURLFunc is called when DeleteAllVisitsForURL is invoked.
	DeleteAllVisitsForURLFunc func(ctx context.Context, url string) error

	// Viewer is returned by ViewerURL.
	Viewer string

	mu          sync.Mutex
	SearchCalls []SearchCall
	VisitCalls  []string
	DeleteCalls []string
}

// SearchCall records a call to SearchVisitedPages.
type SearchCall struct {
	Range TimeRange
	Limit int
}

// NewMockSource returns a MockSource serving pages and visits from memory.
// visits is keyed by URL.
func NewMockSource(pages []Page, visits map[string][]Visit) *MockSource {
	return &MockSource{
		SearchVisitedPagesFunc: func(ctx context.Context, r TimeRange, limit int) ([]Page, error) {
			out := pages
			if limit > 0 && len(out) > limit {
				out = out[:limit]
			}
			return out, nil
		},
		GetVisitsForURLFunc: func(ctx context.Context, url string) ([]Visit, error) {
			return visits[url], nil
		},
		DeleteAllVisitsForURLFunc: func(ctx context.Context, url string) error {
			return nil
		},
	}
}

// SearchVisitedPages implements Source.
func (m *MockSource) SearchVisitedPages(ctx context.Context, r TimeRange, limit int) ([]Page, error) {
	m.mu.Lock()
	m.SearchCalls = append(m.SearchCalls, SearchCall{Range: r, Limit: limit})
	m.mu.Unlock()
	if m.SearchVisitedPagesFunc != nil {
		return m.SearchVisitedPagesFunc(ctx, r, limit)
	}
	return nil, nil
}

// GetVisitsForURL implements Source.
func (m *MockSource) GetVisitsForURL(ctx context.Context, url string) ([]Visit, error) {
	m.mu.Lock()
	m.VisitCalls = append(m.VisitCalls, url)
	m.mu.Unlock()
	if m.GetVisitsForURLFunc != nil {
		return m.GetVisitsForURLFunc(ctx, url)
	}
	return nil, nil
}

// DeleteAllVisitsForURL implements Source.
func (m *MockSource) DeleteAllVisitsForURL(ctx context.Context, url string) error {
	m.mu.Lock()
	m.DeleteCalls = append(m.DeleteCalls, url)
	m.mu.Unlock()
	if m.DeleteAllVisitsForURLFunc != nil {
		return m.DeleteAllVisitsForURLFunc(ctx, url)
	}
	return nil
}

// ViewerURL implements Source.
func (m *MockSource) ViewerURL() string {
	return m.Viewer
}

// Reset clears all recorded calls.
func (m *MockSource) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SearchCalls = nil
	m.VisitCalls = nil
	m.DeleteCalls = nil
}
