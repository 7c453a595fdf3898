// Package history rebuilds browsing-history navigation trees from visit records.
//
// The pipeline is Source → Normalize → BuildForest → CollapseDuplicates (optional),
// producing a canonical Forest. Project derives search-filtered copies of it without
// mutating the canonical tree. Session ties the steps together for one view.
package history

import (
	"context"
	"time"
)

// VisitID identifies a single visit. It is opaque to the core.
type VisitID string

// NoReferrer is the sentinel referrer value for visits that were not navigated to
// from another visit. The empty VisitID is treated the same way.
const NoReferrer VisitID = "0"

// Transition describes how the browser arrived at a visit.
type Transition string

// Transition kinds, mirroring the Chromium core transition types.
const (
	TransitionLink             Transition = "link"
	TransitionTyped            Transition = "typed"
	TransitionAutoBookmark     Transition = "auto_bookmark"
	TransitionAutoSubframe     Transition = "auto_subframe"
	TransitionManualSubframe   Transition = "manual_subframe"
	TransitionGenerated        Transition = "generated"
	TransitionAutoToplevel     Transition = "auto_toplevel"
	TransitionFormSubmit       Transition = "form_submit"
	TransitionReload           Transition = "reload"
	TransitionKeyword          Transition = "keyword"
	TransitionKeywordGenerated Transition = "keyword_generated"
)

// Page is a visited page as returned by Source.SearchVisitedPages.
type Page struct {
	URL           string    `json:"url" yaml:"url"`
	Title         string    `json:"title,omitempty" yaml:"title,omitempty"`
	LastVisitTime time.Time `json:"last_visit_time" yaml:"last_visit_time"`
	VisitCount    int       `json:"visit_count,omitempty" yaml:"visit_count,omitempty"`
}

// Visit is one recorded navigation to a page.
type Visit struct {
	ID          VisitID    `json:"id" yaml:"id"`
	ReferringID VisitID    `json:"referring_id,omitempty" yaml:"referring_id,omitempty"`
	Time        time.Time  `json:"time" yaml:"time"`
	Transition  Transition `json:"transition" yaml:"transition"`
}

// HasReferrer reports whether the visit names a referring visit.
func (v Visit) HasReferrer() bool {
	return v.ReferringID != "" && v.ReferringID != NoReferrer
}

// Record pairs a visit with the page it belongs to. Records are only built by
// Normalize, so downstream code can rely on both halves being populated.
type Record struct {
	Visit Visit `json:"visit" yaml:"visit"`
	Page  Page  `json:"page" yaml:"page"`
}

// URL returns the URL of the visited page.
func (r Record) URL() string { return r.Page.URL }

// Title returns the page title.
func (r Record) Title() string { return r.Page.Title }

// Time returns the visit time.
func (r Record) Time() time.Time { return r.Visit.Time }

// TimeRange is an inclusive time window.
type TimeRange struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t lies inside the window, bounds included.
func (r TimeRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && !t.After(r.End)
}

// Shift moves both bounds by d.
func (r TimeRange) Shift(d time.Duration) TimeRange {
	return TimeRange{Start: r.Start.Add(d), End: r.End.Add(d)}
}

// Source is the browser history store the core reads from and deletes through.
type Source interface {
	// SearchVisitedPages returns pages visited inside r. It is best effort near
	// the limit and may return slightly more or fewer pages.
	SearchVisitedPages(ctx context.Context, r TimeRange, limit int) ([]Page, error)

	// GetVisitsForURL returns every recorded visit to url.
	GetVisitsForURL(ctx context.Context, url string) ([]Visit, error)

	// DeleteAllVisitsForURL irreversibly removes every visit to url, including
	// visits outside the currently displayed range.
	DeleteAllVisitsForURL(ctx context.Context, url string) error

	// ViewerURL is the URL of the viewer itself; visits to it are excluded.
	ViewerURL() string
}
