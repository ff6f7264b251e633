// Package fswatch notifies callers when markdown files under a set of
// directories change outside the process.
package fswatch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/colonyops/comb/pkg/fsutil"
)

// DefaultDebounce coalesces bursts of file events into one callback.
const DefaultDebounce = 100 * time.Millisecond

// Watcher watches directories with fsnotify and invokes onChange once per
// burst of relevant events.
type Watcher struct {
	watcher  *fsnotify.Watcher
	onChange func(ctx context.Context)
	debounce time.Duration
	log      zerolog.Logger

	mu    sync.Mutex
	timer *time.Timer

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New starts watching dirs. Each directory is created if it doesn't exist.
func New(log zerolog.Logger, debounce time.Duration, onChange func(ctx context.Context), dirs ...string) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			_ = fw.Close()
			return nil, err
		}
		if err := fw.Add(dir); err != nil {
			_ = fw.Close()
			return nil, err
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &Watcher{
		watcher:  fw,
		onChange: onChange,
		debounce: debounce,
		log:      log.With().Str("component", "fswatch").Logger(),
		ctx:      ctx,
		cancel:   cancel,
	}

	w.wg.Add(1)
	go w.run()

	return w, nil
}

// Close stops watching and waits for an in-flight callback to return.
func (w *Watcher) Close() error {
	w.cancel()

	w.mu.Lock()
	w.stopTimerLocked()
	w.mu.Unlock()

	err := w.watcher.Close()
	w.wg.Wait()
	return err
}

// run processes filesystem events from fsnotify.
func (w *Watcher) run() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warn().Err(err).Msg("watch error")
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !relevant(event) {
		return
	}

	w.log.Debug().Str("path", event.Name).Str("op", event.Op.String()).Msg("file changed")

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.ctx.Err() != nil {
		return
	}

	w.stopTimerLocked()
	w.wg.Add(1)
	w.timer = time.AfterFunc(w.debounce, func() {
		defer w.wg.Done()
		if w.ctx.Err() != nil {
			return
		}
		w.onChange(w.ctx)
	})
}

// stopTimerLocked cancels a pending callback and releases its wait group slot.
func (w *Watcher) stopTimerLocked() {
	if w.timer != nil && w.timer.Stop() {
		w.wg.Done()
	}
	w.timer = nil
}

// relevant reports whether event touches a markdown file written by someone
// other than an in-progress atomic write.
func relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
		!event.Has(fsnotify.Rename) && !event.Has(fsnotify.Remove) {
		return false
	}
	if fsutil.IsTempFile(event.Name) {
		return false
	}
	return filepath.Ext(event.Name) == ".md"
}
