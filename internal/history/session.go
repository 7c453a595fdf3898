package history

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/vstratful/histree/internal/metrics"
)

// ResultSlack is added to the requested page limit to make up for pages the
// normalizer filters out (the viewer URL).
const ResultSlack = 1

// DefaultResultLimit is used when a request does not name a limit.
const DefaultResultLimit = 1000

// Request describes one rebuild.
type Request struct {
	Range              TimeRange
	Limit              int
	CollapseDuplicates bool
}

// DeleteReport tallies a bulk deletion.
type DeleteReport struct {
	Requested int
	Deleted   []string
	Failed    []string
}

// SessionConfig configures a Session.
type SessionConfig struct {
	Source           Source
	Logger           *slog.Logger
	Metrics          *metrics.Metrics
	FetchConcurrency int
}

// Session owns the canonical forest for one view. It replaces the forest
// wholesale on every successful rebuild and clears it when a rebuild fails.
//
// Rebuilds may overlap; whichever completes last owns the canonical forest.
type Session struct {
	id          string
	source      Source
	logger      *slog.Logger
	metrics     *metrics.Metrics
	concurrency int

	mu      sync.Mutex
	forest  Forest
	lastReq *Request
}

// NewSession creates a Session with a fresh id and an empty forest.
func NewSession(cfg SessionConfig) *Session {
	id := uuid.New().String()
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		id:          id,
		source:      cfg.Source,
		logger:      logger.With("session_id", id),
		metrics:     cfg.Metrics,
		concurrency: cfg.FetchConcurrency,
		forest:      Forest{},
	}
}

// ID returns the session id used to correlate log lines.
func (s *Session) ID() string {
	return s.id
}

// Logger returns the session-scoped logger.
func (s *Session) Logger() *slog.Logger {
	return s.logger
}

// Forest returns the current canonical forest. Callers must treat it as
// read-only.
func (s *Session) Forest() Forest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.forest
}

// LastRequest returns the most recent rebuild request, if any.
func (s *Session) LastRequest() (Request, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastReq == nil {
		return Request{}, false
	}
	return *s.lastReq, true
}

// Reset drops the canonical forest and the remembered request.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.forest = Forest{}
	s.lastReq = nil
}

// Rebuild fetches history for req and replaces the canonical forest.
func (s *Session) Rebuild(ctx context.Context, req Request) (Forest, error) {
	if s.source == nil {
		return nil, ErrNoSource
	}
	if req.Range.End.Before(req.Range.Start) {
		return nil, &RangeError{Reason: "start is after end"}
	}
	if req.Limit <= 0 {
		req.Limit = DefaultResultLimit
	}

	s.mu.Lock()
	stored := req
	s.lastReq = &stored
	s.mu.Unlock()

	start := time.Now()
	logger := s.logger.With(
		"from", req.Range.Start.Format(time.RFC3339),
		"to", req.Range.End.Format(time.RFC3339),
		"limit", req.Limit,
	)

	pages, err := s.source.SearchVisitedPages(ctx, req.Range, req.Limit+ResultSlack)
	if err != nil {
		s.setForest(Forest{})
		s.metrics.RebuildFinished(false, time.Since(start), 0)
		logger.Error("page query failed", "error", err)
		return nil, &FetchError{Op: "search visited pages", Cause: err}
	}

	set := Normalize(ctx, s.source, pages, NormalizeOptions{
		Window:      req.Range,
		ViewerURL:   s.source.ViewerURL(),
		Concurrency: s.concurrency,
		Logger:      logger,
		Metrics:     s.metrics,
	})
	if err := ctx.Err(); err != nil {
		s.setForest(Forest{})
		s.metrics.RebuildFinished(false, time.Since(start), 0)
		return nil, fmt.Errorf("rebuild interrupted: %w", err)
	}

	forest := BuildForest(set)
	if req.CollapseDuplicates {
		forest = CollapseDuplicates(forest)
	}

	s.setForest(forest)
	nodes := forest.Count()
	s.metrics.RebuildFinished(true, time.Since(start), nodes)
	logger.Info("rebuilt history forest",
		"pages", len(pages),
		"visits", set.Len(),
		"roots", len(forest),
		"nodes", nodes,
		"collapsed", req.CollapseDuplicates,
		"elapsed", time.Since(start),
	)
	return forest, nil
}

// Project filters the canonical forest by query.
func (s *Session) Project(query string) Forest {
	return Project(s.Forest(), query)
}

// Delete removes every visit to each distinct URL, one request per URL issued
// concurrently, then rebuilds with the last request regardless of failures.
// Failed URLs are logged and reported; the returned error is only the rebuild's.
func (s *Session) Delete(ctx context.Context, urls []string) (DeleteReport, Forest, error) {
	if s.source == nil {
		return DeleteReport{}, nil, ErrNoSource
	}

	distinct := distinctURLs(urls)
	report := DeleteReport{Requested: len(distinct)}
	ok := make([]bool, len(distinct))

	g, gCtx := errgroup.WithContext(ctx)
	for i, u := range distinct {
		g.Go(func() error {
			if err := s.source.DeleteAllVisitsForURL(gCtx, u); err != nil {
				s.logger.Warn("deleting url failed", "url", u, "error", err)
				s.metrics.Deleted(false)
				return nil
			}
			s.metrics.Deleted(true)
			ok[i] = true
			return nil
		})
	}
	_ = g.Wait()

	for i, u := range distinct {
		if ok[i] {
			report.Deleted = append(report.Deleted, u)
		} else {
			report.Failed = append(report.Failed, u)
		}
	}
	s.logger.Info("bulk delete finished",
		"requested", report.Requested,
		"deleted", len(report.Deleted),
		"failed", len(report.Failed),
	)

	req, have := s.LastRequest()
	if !have {
		return report, s.Forest(), nil
	}
	forest, err := s.Rebuild(ctx, req)
	return report, forest, err
}

func (s *Session) setForest(f Forest) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.forest = f
}

func distinctURLs(urls []string) []string {
	seen := make(map[string]bool, len(urls))
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		if u == "" || seen[u] {
			continue
		}
		seen[u] = true
		out = append(out, u)
	}
	sort.Strings(out)
	return out
}
