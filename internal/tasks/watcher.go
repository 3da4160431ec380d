package tasks

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long a playlist file must stay quiet before it is synced.
const DefaultDebounce = 2 * time.Second

// Syncer runs a station sync for one M3U file.
type Syncer interface {
	SyncM3U(ctx context.Context, progress chan<- ProgressUpdate, path string, opts SyncOptions) (*SyncResult, error)
}

// Watcher syncs M3U files in a directory to the station whenever they are written.
//
// Editors and exporters tend to write a file in several steps, so events for the same path are
// coalesced until nothing has happened for the debounce interval.
type Watcher struct {
	dir      string
	syncer   Syncer
	opts     SyncOptions
	debounce time.Duration

	mu      sync.Mutex
	pending map[string]*time.Timer
	stopped bool
	running sync.WaitGroup
}

// NewWatcher creates a watcher for dir. opts is applied to every triggered sync, except that the
// playlist name always follows the file name.
func NewWatcher(dir string, syncer Syncer, opts SyncOptions) *Watcher {
	opts.PlaylistName = ""
	return &Watcher{
		dir:      dir,
		syncer:   syncer,
		opts:     opts,
		debounce: DefaultDebounce,
		pending:  make(map[string]*time.Timer),
	}
}

// WithDebounce overrides [DefaultDebounce].
func (w *Watcher) WithDebounce(d time.Duration) *Watcher {
	w.debounce = d
	return w
}

// Run blocks until ctx is canceled, reporting each sync on progress.
// Syncs already started are allowed to finish before Run returns.
func (w *Watcher) Run(ctx context.Context, progress chan<- ProgressUpdate) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to start file watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(w.dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.dir, err)
	}

	defer w.running.Wait()
	defer w.stopPending()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if isPlaylistChange(ev) {
				w.schedule(ctx, progress, ev.Name)
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			send(progress, watchUpdate(w.dir, err))
		}
	}
}

func (w *Watcher) schedule(ctx context.Context, progress chan<- ProgressUpdate, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return
	}
	if t, ok := w.pending[path]; ok {
		t.Reset(w.debounce)
		return
	}

	w.pending[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.pending, path)
		if w.stopped {
			w.mu.Unlock()
			return
		}
		w.running.Add(1)
		w.mu.Unlock()
		defer w.running.Done()

		if ctx.Err() != nil {
			return
		}
		_, err := w.syncer.SyncM3U(ctx, progress, path, w.opts)
		send(progress, watchUpdate(path, err))
	})
}

func (w *Watcher) stopPending() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stopped = true
	for path, t := range w.pending {
		t.Stop()
		delete(w.pending, path)
	}
}

func isPlaylistChange(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
		return false
	}
	ext := strings.ToLower(filepath.Ext(ev.Name))
	return ext == ".m3u" || ext == ".m3u8"
}

func send(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}
