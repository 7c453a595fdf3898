package history

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/vstratful/histree/internal/metrics"
)

// DefaultFetchConcurrency bounds the number of in-flight GetVisitsForURL calls.
const DefaultFetchConcurrency = 8

// NormalizeOptions configures Normalize.
type NormalizeOptions struct {
	// Window restricts visits to an inclusive time range.
	Window TimeRange

	// ViewerURL pages are dropped before any visit lookup. Empty means the
	// source's own ViewerURL.
	ViewerURL string

	// Concurrency caps parallel visit fetches. Zero means DefaultFetchConcurrency.
	Concurrency int

	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

// Normalize fetches the visits of every page and folds them into a VisitSet.
//
// Visits outside the window, reload visits and self-referential visits are
// dropped. A failure fetching one page's visits is logged and treated as zero
// visits for that page; it never fails the batch. Results are merged in page
// order once every fetch has settled, so the output does not depend on the
// order in which fetches complete.
func Normalize(ctx context.Context, src Source, pages []Page, opts NormalizeOptions) *VisitSet {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	limit := opts.Concurrency
	if limit <= 0 {
		limit = DefaultFetchConcurrency
	}

	viewer := opts.ViewerURL
	if viewer == "" {
		viewer = src.ViewerURL()
	}

	wanted := make([]Page, 0, len(pages))
	for _, p := range pages {
		if viewer != "" && p.URL == viewer {
			continue
		}
		wanted = append(wanted, p)
	}

	results := make([][]Visit, len(wanted))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, page := range wanted {
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return nil
			}
			visits, err := src.GetVisitsForURL(gCtx, page.URL)
			if err != nil {
				logger.Warn("fetching visits failed", "url", page.URL, "error", err)
				opts.Metrics.VisitFetchFailed()
				return nil
			}
			results[i] = visits
			return nil
		})
	}
	// Per-URL failures are swallowed above, so Wait never reports one.
	_ = g.Wait()

	set := NewVisitSet()
	for i, page := range wanted {
		for _, v := range results[i] {
			if !keepVisit(v, opts.Window) {
				continue
			}
			if !set.Add(Record{Visit: v, Page: page}) {
				logger.Debug("duplicate visit id", "visit_id", v.ID, "url", page.URL)
			}
		}
	}
	return set
}

func keepVisit(v Visit, window TimeRange) bool {
	if v.ID == "" {
		return false
	}
	if v.Transition == TransitionReload {
		return false
	}
	if v.ReferringID == v.ID {
		return false
	}
	return window.Contains(v.Time)
}
