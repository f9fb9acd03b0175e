package session

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/matzehuels/mindmap/pkg/document"
	pkgio "github.com/matzehuels/mindmap/pkg/io"
)

// DefaultDebounce is how long the watcher waits for writes to settle before
// reloading.
const DefaultDebounce = 200 * time.Millisecond

// Watcher reloads a session's document when its file changes on disk.
// Changes are ignored while the session has unsaved edits or when the file
// holds exactly what the session last saved. A file that fails to load is
// logged while the current document stays.
type Watcher struct {
	sess     *Session
	path     string
	debounce time.Duration
	fs       *fsnotify.Watcher

	// Reloaded, if set, receives the result of every reload attempt.
	Reloaded func(LoadResult)
}

// NewWatcher watches the directory holding the session's file. Editors
// usually replace files by rename, which a watch on the file itself would
// miss.
func NewWatcher(sess *Session, debounce time.Duration) (*Watcher, error) {
	path := sess.Path()
	if path == "" {
		return nil, fmt.Errorf("session has no file to watch")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", path, err)
	}
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}
	if err := fs.Add(filepath.Dir(abs)); err != nil {
		fs.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{sess: sess, path: abs, debounce: debounce, fs: fs}, nil
}

// Run processes file events until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fs.Close()
	logger := w.sess.logger

	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != w.path || ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			logger.Debug("document changed on disk", "path", w.path, "op", ev.Op.String())
			timer.Reset(w.debounce)

		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			logger.Warn("file watcher error", "error", err)

		case <-timer.C:
			w.reload(ctx)
		}
	}
}

func (w *Watcher) reload(ctx context.Context) {
	logger := w.sess.logger
	if w.sess.Dirty() {
		logger.Warn("document changed on disk but has unsaved edits; not reloading", "path", w.path)
		return
	}
	data, err := os.ReadFile(w.path)
	if err != nil {
		logger.Error("reload failed; keeping current document", "path", w.path, "error", err)
		w.report(LoadResult{Generation: w.sess.Generation(), Err: err})
		return
	}
	if w.sess.matchesDisk(data) {
		logger.Debug("file matches the session's last save; not reloading", "path", w.path)
		return
	}
	res := <-w.sess.LoadAsync(ctx, func(context.Context) (*document.Document, error) {
		return pkgio.ReadJSON(bytes.NewReader(data))
	})
	if res.Err != nil {
		logger.Error("reload failed; keeping current document", "path", w.path, "error", res.Err)
	} else {
		w.sess.setDisk(data)
		logger.Info("document reloaded", "path", w.path, "nodes", res.Document.Tree.Len())
	}
	w.report(res)
}

func (w *Watcher) report(res LoadResult) {
	if w.Reloaded != nil {
		w.Reloaded(res)
	}
}
