package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"moonscribe/internal/contextutil"
)

// ChangeFeed is the part of SQLiteStore the Watcher reads.
type ChangeFeed interface {
	WriterID() string
	LatestSeq(ctx context.Context) (int64, error)
	ChangesSince(ctx context.Context, after int64) ([]Change, error)
	PruneChanges(ctx context.Context, maxAge time.Duration) (int64, error)
}

// WatcherOptions tunes a Watcher. Zero values pick defaults.
type WatcherOptions struct {
	Debounce     time.Duration
	PollInterval time.Duration
	Retention    time.Duration
}

// Watcher reports keys written by other processes sharing the same database file.
// File events trigger a read of the change log; a slow poll covers missed events.
type Watcher struct {
	feed     ChangeFeed
	dbPath   string
	onChange func(Change)
	opts     WatcherOptions
	lastSeq  int64
}

// NewWatcher creates a watcher for the database at dbPath.
func NewWatcher(feed ChangeFeed, dbPath string, onChange func(Change), opts WatcherOptions) *Watcher {
	if opts.Debounce <= 0 {
		opts.Debounce = 50 * time.Millisecond
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 2 * time.Second
	}
	if opts.Retention <= 0 {
		opts.Retention = time.Hour
	}
	return &Watcher{
		feed:     feed,
		dbPath:   dbPath,
		onChange: onChange,
		opts:     opts,
	}
}

// Run watches until ctx is cancelled. Changes written before Run starts are not reported.
func (w *Watcher) Run(ctx context.Context) error {
	logger := contextutil.LoggerFromContext(ctx)

	seq, err := w.feed.LatestSeq(ctx)
	if err != nil {
		return err
	}
	w.lastSeq = seq

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer func() {
		_ = fsw.Close()
	}()

	// SQLite writes land in the -wal and -shm siblings, so watch the directory
	dir := filepath.Dir(w.dbPath)
	if err := fsw.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	base := filepath.Base(w.dbPath)
	logger.InfoContext(ctx, "storage watcher started", "path", w.dbPath, "writer", w.feed.WriterID())

	debounce := time.NewTimer(time.Hour)
	debounce.Stop()
	poll := time.NewTicker(w.opts.PollInterval)
	defer poll.Stop()
	prune := time.NewTicker(w.opts.Retention / 2)
	defer prune.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.InfoContext(ctx, "storage watcher stopped")
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if !strings.HasPrefix(filepath.Base(event.Name), base) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			debounce.Reset(w.opts.Debounce)

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			logger.WarnContext(ctx, "storage watcher error", "error", err)

		case <-debounce.C:
			w.drain(ctx)

		case <-poll.C:
			w.drain(ctx)

		case <-prune.C:
			if n, err := w.feed.PruneChanges(ctx, w.opts.Retention); err != nil {
				logger.WarnContext(ctx, "failed to prune change log", "error", err)
			} else if n > 0 {
				logger.DebugContext(ctx, "pruned change log", "rows", n)
			}
		}
	}
}

// Poll reads pending changes once. Run calls it on every trigger; tests call it directly.
func (w *Watcher) Poll(ctx context.Context) {
	w.drain(ctx)
}

func (w *Watcher) drain(ctx context.Context) {
	logger := contextutil.LoggerFromContext(ctx)

	changes, err := w.feed.ChangesSince(ctx, w.lastSeq)
	if err != nil {
		logger.WarnContext(ctx, "failed to read change log", "error", err)
		return
	}
	self := w.feed.WriterID()
	for _, c := range changes {
		w.lastSeq = c.Seq
		if c.Writer == self {
			continue
		}
		logger.DebugContext(ctx, "external storage change", "key", c.Key, "seq", c.Seq, "deleted", c.Deleted)
		w.onChange(c)
	}
}
