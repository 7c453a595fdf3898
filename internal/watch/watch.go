// Package watch reports changes to a browser History database.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is used when Options.Debounce is zero.
const DefaultDebounce = 400 * time.Millisecond

// Change reports that the database changed at least once since the previous
// Change.
type Change struct {
	Path   string
	Events int
	Time   time.Time
}

// Options configures a Watcher.
type Options struct {
	// Debounce is how long to wait for more events before emitting a Change.
	Debounce time.Duration

	Logger *slog.Logger
}

// Watcher watches a History file and its journal files. Bursts of writes are
// coalesced into a single Change.
type Watcher struct {
	path     string
	names    map[string]bool
	watcher  *fsnotify.Watcher
	debounce time.Duration
	logger   *slog.Logger

	changes  chan Change
	stopOnce sync.Once
}

// New watches the directory containing dbPath.
func New(dbPath string, opts Options) (*Watcher, error) {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	dir := filepath.Dir(dbPath)
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watching %s: %w", dir, err)
	}

	base := filepath.Base(dbPath)
	return &Watcher{
		path: dbPath,
		names: map[string]bool{
			base:              true,
			base + "-journal": true,
			base + "-wal":     true,
		},
		watcher:  fw,
		debounce: opts.Debounce,
		logger:   opts.Logger.With("watch", dbPath),
		changes:  make(chan Change, 1),
	}, nil
}

// Changes delivers coalesced changes. It is closed when Run returns.
func (w *Watcher) Changes() <-chan Change {
	return w.changes
}

// Run processes events until ctx is done or Close is called.
func (w *Watcher) Run(ctx context.Context) {
	defer close(w.changes)

	var (
		timer   *time.Timer
		timerC  <-chan time.Time
		pending int
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !w.relevant(ev) {
				continue
			}
			pending++
			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(w.debounce)
			timerC = timer.C

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error", "error", err)

		case <-timerC:
			timerC = nil
			change := Change{Path: w.path, Events: pending, Time: time.Now()}
			pending = 0
			select {
			case w.changes <- change:
			default:
				// An undelivered change already covers this one.
			}
		}
	}
}

func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if !w.names[filepath.Base(ev.Name)] {
		return false
	}
	return ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename)
}

// Close stops watching.
func (w *Watcher) Close() error {
	var err error
	w.stopOnce.Do(func() {
		err = w.watcher.Close()
	})
	return err
}
