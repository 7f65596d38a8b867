// Package watch wakes the daemon when tracker records change on disk.
package watch

import (
	"context"
	"fmt"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/runoshun/beanloop/internal/domain"
)

// DefaultPollInterval is the safety-net poll cadence when file events are
// quiet or unavailable.
const DefaultPollInterval = 30 * time.Second

// defaultDebounce collapses a burst of file events into one wake. Tracker
// updates touch several record files per command.
const defaultDebounce = 200 * time.Millisecond

// Watcher delivers a wake signal when files under the watched directory
// change. A polling ticker backs up the file events, and the whole watcher
// degrades to polling alone when the directory cannot be watched.
type Watcher struct {
	dir          string
	pollInterval time.Duration
	debounce     time.Duration
	logger       domain.Logger

	wake chan struct{}
}

// New creates a Watcher over dir. A non-positive pollInterval selects the
// default.
func New(dir string, pollInterval time.Duration, logger domain.Logger) *Watcher {
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	return &Watcher{
		dir:          dir,
		pollInterval: pollInterval,
		debounce:     defaultDebounce,
		logger:       logger,
		wake:         make(chan struct{}, 1),
	}
}

// Wake returns the channel that receives one signal per change burst or
// poll tick. The channel is never closed; stop consuming when Run returns.
func (w *Watcher) Wake() <-chan struct{} {
	return w.wake
}

// Run watches until ctx ends. It always returns nil on a clean stop; watch
// failures downgrade to polling instead of stopping the loop.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		w.logger.Warn("", "watch", fmt.Sprintf("file watching unavailable, polling only: %v", err))
		return w.runPoll(ctx)
	}
	defer fsw.Close()

	if err := fsw.Add(w.dir); err != nil {
		w.logger.Warn("", "watch", fmt.Sprintf("cannot watch %s, polling only: %v", w.dir, err))
		return w.runPoll(ctx)
	}

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	debounce := time.NewTimer(w.debounce)
	if !debounce.Stop() {
		<-debounce.C
	}
	defer debounce.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-fsw.Events:
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			debounce.Reset(w.debounce)
		case <-debounce.C:
			w.signal()
		case err := <-fsw.Errors:
			if err != nil {
				w.logger.Warn("", "watch", err.Error())
			}
		case <-ticker.C:
			w.signal()
		}
	}
}

// runPoll is the fallback loop when file watching is unavailable.
func (w *Watcher) runPoll(ctx context.Context) error {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			w.signal()
		}
	}
}

// signal delivers a wake without blocking; an undelivered wake is already
// pending.
func (w *Watcher) signal() {
	select {
	case w.wake <- struct{}{}:
	default:
	}
}
