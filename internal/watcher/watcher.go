package watcher

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/docyard/docfind/internal/errors"
)

// Watcher follows a directory tree and reports settled document changes.
type Watcher struct {
	root     string
	fs       *fsnotify.Watcher
	deb      *Debouncer
	supports func(ext string) bool
	log      *slog.Logger
}

// New creates a watcher over root. supports filters events to document
// types worth indexing; everything else is ignored at the source.
func New(root string, deb *Debouncer, supports func(ext string) bool, log *slog.Logger) (*Watcher, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, errors.New(errors.ErrCodeFileNotFound,
			"watch root does not exist: "+root, err)
	}
	if !info.IsDir() {
		return nil, errors.ValidationError("watch root must be a directory: "+root, nil)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.InternalError("failed to create filesystem watcher", err)
	}

	w := &Watcher{
		root:     root,
		fs:       fsw,
		deb:      deb,
		supports: supports,
		log:      log,
	}

	if err := w.addTree(root); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	return w, nil
}

// addTree registers root and every subdirectory with the notifier. New
// subdirectories are added as their create events arrive.
func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return errors.InternalError("failed to walk watch tree", err)
		}
		if !d.IsDir() {
			return nil
		}
		if err := w.fs.Add(path); err != nil {
			return errors.InternalError("failed to watch directory: "+path, err)
		}
		return nil
	})
}

// Run pumps filesystem events through the debouncer and invokes onChange
// for settled creates and modifications, onRemove for settled deletes.
// It blocks until ctx is cancelled. Handler errors are logged, not fatal;
// one bad file must not stop the watch loop.
func (w *Watcher) Run(ctx context.Context, onChange, onRemove func(ctx context.Context, path string) error) error {
	defer w.deb.Stop()
	defer w.fs.Close()

	w.log.Info("watching for document changes", "root", w.root)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("filesystem watcher error", "error", err)

		case ev, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			w.ingest(ev)

		case batch, ok := <-w.deb.Output():
			if !ok {
				return nil
			}
			w.dispatch(ctx, batch, onChange, onRemove)
		}
	}
}

// ingest translates one raw notification into a debounced event.
func (w *Watcher) ingest(ev fsnotify.Event) {
	switch {
	case ev.Has(fsnotify.Create):
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if err := w.addTree(ev.Name); err != nil {
				w.log.Warn("failed to watch new directory", "path", ev.Name, "error", err)
			}
			return
		}
		if w.wanted(ev.Name) {
			w.deb.Add(ev.Name, OpCreate)
		}
	case ev.Has(fsnotify.Write):
		if w.wanted(ev.Name) {
			w.deb.Add(ev.Name, OpModify)
		}
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		// A removed path cannot be stat'ed, so the extension filter is the
		// only gate here.
		if w.wanted(ev.Name) {
			w.deb.Add(ev.Name, OpDelete)
		}
	}
}

func (w *Watcher) wanted(path string) bool {
	return w.supports(strings.ToLower(filepath.Ext(path)))
}

func (w *Watcher) dispatch(ctx context.Context, batch []Event, onChange, onRemove func(ctx context.Context, path string) error) {
	for _, ev := range batch {
		var err error
		switch ev.Op {
		case OpCreate, OpModify:
			err = onChange(ctx, ev.Path)
		case OpDelete:
			err = onRemove(ctx, ev.Path)
		}
		if err != nil {
			w.log.Warn("failed to process file event",
				"path", ev.Path, "op", ev.Op.String(), "error", err)
			continue
		}
		w.log.Debug("file event processed", "path", ev.Path, "op", ev.Op.String())
	}
}
