package app

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/FocuswithJustin/lexpub/core/errors"
	"github.com/FocuswithJustin/lexpub/internal/logging"
)

// DefaultDebounce is how long the database must stay quiet before a
// change is picked up.
const DefaultDebounce = time.Second

// Watcher reports changes to one file. The containing directory is
// watched so files replaced by rename or remove-and-create are still seen.
type Watcher struct {
	path     string
	watcher  *fsnotify.Watcher
	debounce time.Duration
}

// NewWatcher starts watching path.
func NewWatcher(path string, debounce time.Duration) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.NewIO("resolve", path, err)
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "creating file watcher")
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		fw.Close()
		return nil, errors.NewIO("watch", filepath.Dir(abs), err)
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{path: abs, watcher: fw, debounce: debounce}, nil
}

// Close stops watching.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

// Run calls fn once the file has changed and then stayed unchanged for
// the debounce interval. Errors from fn are logged and watching goes on.
// Run returns when ctx is done or the watcher is closed.
func (w *Watcher) Run(ctx context.Context, fn func(context.Context) error) error {
	name := filepath.Base(w.path)
	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			logging.Debug("database change detected", "file", event.Name, "op", event.Op.String())
			timer.Reset(w.debounce)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			logging.Error("watcher error", "error", err)
		case <-timer.C:
			if err := fn(ctx); err != nil {
				logging.Error("reload failed", "file", w.path, "error", err)
			}
		}
	}
}

// Watch renders once, then reloads and renders again every time the
// database changes. notify, when set, receives the outcome of every
// render. Watch returns when ctx is done.
func (a *App) Watch(ctx context.Context, debounce time.Duration, notify func(*Report, error)) error {
	w, err := NewWatcher(a.settings.Database, debounce)
	if err != nil {
		return err
	}
	defer w.Close()

	report := func(rep *Report, err error) {
		if notify != nil {
			notify(rep, err)
		}
	}
	report(a.Render(ctx))

	err = w.Run(ctx, func(ctx context.Context) error {
		if err := a.Reload(ctx); err != nil {
			report(nil, err)
			return err
		}
		rep, err := a.Render(ctx)
		report(rep, err)
		return err
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
