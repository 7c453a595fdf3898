// Package chrome reads and edits the History database of a Chromium-family
// browser profile.
package chrome

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"sync/atomic"

	_ "modernc.org/sqlite"

	"github.com/vstratful/histree/internal/history"
)

const driverName = "sqlite"

// Config configures a Source.
type Config struct {
	// Path is the profile's History file.
	Path string

	// ViewerURL is excluded from results. Optional.
	ViewerURL string

	// Retry configures retries for deletes against the live database.
	// Nil disables retries.
	Retry *RetryConfig

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Source implements history.Source over a History database. Reads go through a
// private snapshot copy because the browser holds the live file locked while it
// runs; deletes go to the live file.
type Source struct {
	path      string
	viewerURL string
	retry     *RetryConfig
	logger    *slog.Logger

	mu       sync.RWMutex
	snapDir  string
	snapshot *sql.DB
	closed   bool
	stale    atomic.Bool
}

var _ history.Source = (*Source)(nil)

// Open snapshots the History file at cfg.Path and opens the copy.
func Open(cfg Config) (*Source, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if _, err := os.Stat(cfg.Path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNoHistory, cfg.Path)
		}
		return nil, fmt.Errorf("checking history file: %w", err)
	}

	s := &Source{
		path:      cfg.Path,
		viewerURL: cfg.ViewerURL,
		retry:     cfg.Retry,
		logger:    cfg.Logger.With("db", cfg.Path),
	}
	if err := s.Refresh(); err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the live History file.
func (s *Source) Path() string {
	return s.path
}

// ViewerURL implements history.Source.
func (s *Source) ViewerURL() string {
	return s.viewerURL
}

// Refresh replaces the snapshot with a fresh copy of the live database.
func (s *Source) Refresh() error {
	dir, err := os.MkdirTemp("", "histree-snapshot-")
	if err != nil {
		return fmt.Errorf("creating snapshot dir: %w", err)
	}
	dst := filepath.Join(dir, "History")
	if err := copyDatabase(s.path, dst); err != nil {
		os.RemoveAll(dir)
		return &DBError{Op: "snapshot", Path: s.path, Cause: err}
	}

	db, err := sql.Open(driverName, dst)
	if err != nil {
		os.RemoveAll(dir)
		return &DBError{Op: "open snapshot", Path: dst, Cause: err}
	}
	db.SetMaxOpenConns(4)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		db.Close()
		os.RemoveAll(dir)
		return ErrClosed
	}
	oldDB, oldDir := s.snapshot, s.snapDir
	s.snapshot, s.snapDir = db, dir
	s.stale.Store(false)
	s.mu.Unlock()

	if oldDB != nil {
		oldDB.Close()
		os.RemoveAll(oldDir)
	}
	s.logger.Debug("history snapshot refreshed", "snapshot", dst)
	return nil
}

// Close releases the snapshot and removes its files.
func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	var err error
	if s.snapshot != nil {
		err = s.snapshot.Close()
	}
	if s.snapDir != "" {
		if rmErr := os.RemoveAll(s.snapDir); rmErr != nil && err == nil {
			err = rmErr
		}
	}
	return err
}

// withSnapshot runs fn against the current snapshot, refreshing it first if a
// delete has changed the live database since it was taken.
func (s *Source) withSnapshot(fn func(db *sql.DB) error) error {
	if s.stale.Load() {
		if err := s.Refresh(); err != nil {
			return err
		}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	return fn(s.snapshot)
}

const searchPagesQuery = `
SELECT u.url, u.title, u.last_visit_time, u.visit_count
FROM urls u
JOIN visits v ON v.url = u.id
WHERE v.visit_time BETWEEN ? AND ?
GROUP BY u.id
ORDER BY MAX(v.visit_time) DESC
LIMIT ?`

// SearchVisitedPages implements history.Source. Pages are ordered by their most
// recent visit inside r, newest first.
func (s *Source) SearchVisitedPages(ctx context.Context, r history.TimeRange, limit int) ([]history.Page, error) {
	var pages []history.Page
	err := s.withSnapshot(func(db *sql.DB) error {
		rows, err := db.QueryContext(ctx, searchPagesQuery, toWebKit(r.Start), toWebKit(r.End), limit)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var (
				p        history.Page
				title    sql.NullString
				lastSeen int64
			)
			if err := rows.Scan(&p.URL, &title, &lastSeen, &p.VisitCount); err != nil {
				return err
			}
			p.Title = title.String
			p.LastVisitTime = fromWebKit(lastSeen)
			pages = append(pages, p)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, wrapQueryError("search visited pages", s.path, err)
	}
	return pages, nil
}

const visitsForURLQuery = `
SELECT v.id, v.from_visit, v.visit_time, v.transition
FROM visits v
JOIN urls u ON u.id = v.url
WHERE u.url = ?
ORDER BY v.visit_time, v.id`

// GetVisitsForURL implements history.Source.
func (s *Source) GetVisitsForURL(ctx context.Context, url string) ([]history.Visit, error) {
	var visits []history.Visit
	err := s.withSnapshot(func(db *sql.DB) error {
		rows, err := db.QueryContext(ctx, visitsForURLQuery, url)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var id, from, at, transition int64
			if err := rows.Scan(&id, &from, &at, &transition); err != nil {
				return err
			}
			visits = append(visits, history.Visit{
				ID:          history.VisitID(strconv.FormatInt(id, 10)),
				ReferringID: history.VisitID(strconv.FormatInt(from, 10)),
				Time:        fromWebKit(at),
				Transition:  transitionOf(transition),
			})
		}
		return rows.Err()
	})
	if err != nil {
		return nil, wrapQueryError("get visits", url, err)
	}
	return visits, nil
}

// DeleteAllVisitsForURL implements history.Source. It removes the URL and all
// of its visits from the live database in one transaction.
func (s *Source) DeleteAllVisitsForURL(ctx context.Context, url string) error {
	s.mu.RLock()
	closed := s.closed
	s.mu.RUnlock()
	if closed {
		return ErrClosed
	}

	removed, err := doWithRetry(ctx, s, func(ctx context.Context) (int64, error) {
		return s.deleteOnce(ctx, url)
	})
	if err != nil {
		return &DBError{Op: "delete " + url + " from", Path: s.path, Cause: err}
	}
	s.stale.Store(true)
	s.logger.Info("deleted url from history", "url", url, "visits", removed)
	return nil
}

func (s *Source) deleteOnce(ctx context.Context, url string) (int64, error) {
	db, err := sql.Open(driverName, s.path)
	if err != nil {
		return 0, err
	}
	defer db.Close()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM visits WHERE url IN (SELECT id FROM urls WHERE url = ?)`, url)
	if err != nil {
		return 0, err
	}
	removed, _ := res.RowsAffected()
	if _, err := tx.ExecContext(ctx, `DELETE FROM urls WHERE url = ?`, url); err != nil {
		return 0, err
	}
	return removed, tx.Commit()
}

func wrapQueryError(op, target string, err error) error {
	if errors.Is(err, ErrClosed) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var dbErr *DBError
	if errors.As(err, &dbErr) {
		return err
	}
	return &DBError{Op: op, Path: target, Cause: err}
}

// copyDatabase copies a SQLite file and its write-ahead log, if any, so the
// copy opens with every committed transaction applied.
func copyDatabase(src, dst string) error {
	if err := copyFile(src, dst); err != nil {
		return err
	}
	if err := copyFile(src+"-wal", dst+"-wal"); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
