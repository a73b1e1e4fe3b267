// Package fileeditor lets a file on disk stand in for the host editor.
// Text from the browser is written to the file, and saves made to the
// file by any other program are sent back to the browser.
package fileeditor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"ghostbridge/internal/retry"
	"ghostbridge/util"
)

// UpdateFunc receives the file's new content.  Its signature matches
// bridge.Server.Update.
type UpdateFunc func(text string, selections [][]int)

// Editor mirrors one file.
type Editor struct {
	path    string
	logger  *util.Logger
	backoff *retry.Backoff

	mu   sync.Mutex
	last string // content most recently written or reported
	seen bool
}

// New returns an Editor for path.  The file need not exist yet; its
// directory must.
func New(path string, logger *util.Logger) (*Editor, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("file editor: %w", err)
	}
	if fi, err := os.Stat(filepath.Dir(abs)); err != nil {
		return nil, fmt.Errorf("file editor: %w", err)
	} else if !fi.IsDir() {
		return nil, fmt.Errorf("file editor: %s is not a directory", filepath.Dir(abs))
	}
	if logger == nil {
		logger = util.NewLogger(0)
	}
	b := retry.FileBackoff()
	b.OnRetry = func(attempt int, err error, wait time.Duration) {
		logger.Debug("reread %s (attempt %d): %v; retrying in %s", abs, attempt, err, wait)
	}
	return &Editor{path: abs, logger: logger, backoff: b}, nil
}

// Path returns the absolute path of the mirrored file.
func (e *Editor) Path() string { return e.path }

// WriteBuffer is the bridge callback: it replaces the file's content
// with text.  Failures are logged.
func (e *Editor) WriteBuffer(text string) {
	if err := e.Write(text); err != nil {
		e.logger.Error("%v", err)
		return
	}
	e.logger.Verbose("wrote %d bytes to %s", len(text), e.path)
}

// Write replaces the file atomically by renaming a temporary file over
// it, so watchers never observe a half-written document.
func (e *Editor) Write(text string) error {
	e.remember(text)

	dir, base := filepath.Split(e.path)
	tmp, err := os.CreateTemp(dir, "."+base+".ghostbridge-*")
	if err != nil {
		return fmt.Errorf("write %s: %w", e.path, err)
	}
	defer os.Remove(tmp.Name()) // no-op after a successful rename

	if _, err := tmp.WriteString(text); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", e.path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write %s: %w", e.path, err)
	}
	if err := os.Rename(tmp.Name(), e.path); err != nil {
		return fmt.Errorf("write %s: %w", e.path, err)
	}
	return nil
}

// Watch reports changes to the file through update until ctx is done.
// Content equal to what was last written or reported is not reported
// again, so the browser's own text never echoes back to it.
func (e *Editor) Watch(ctx context.Context, update UpdateFunc) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch %s: %w", e.path, err)
	}
	defer w.Close()

	// Editors commonly save by rename, which drops a watch on the file
	// itself, so watch the directory instead.
	if err := w.Add(filepath.Dir(e.path)); err != nil {
		return fmt.Errorf("watch %s: %w", e.path, err)
	}
	e.logger.Verbose("watching %s for changes", e.path)

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != e.path {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			e.logger.Debug("file event: %s", ev)
			text, err := e.reread(ctx)
			if err != nil {
				e.logger.Warn("cannot read %s: %v", e.path, err)
				continue
			}
			if !e.remember(text) {
				continue
			}
			e.logger.Verbose("%s changed (%d bytes), sending to browser", e.path, len(text))
			update(text, nil)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			e.logger.Warn("file watcher: %v", err)
		}
	}
}

// reread reads the file, retrying while it is briefly missing.
func (e *Editor) reread(ctx context.Context) (string, error) {
	var text string
	err := e.backoff.Do(ctx, func(int) error {
		data, err := os.ReadFile(e.path)
		if err != nil {
			if os.IsNotExist(err) {
				return err
			}
			return retry.Permanent(err)
		}
		text = string(data)
		return nil
	})
	return text, err
}

// remember records text as the current content and reports whether it
// differs from the previous one.
func (e *Editor) remember(text string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.seen && e.last == text {
		return false
	}
	e.last, e.seen = text, true
	return true
}
