package bridge

import (
	"fmt"
	"sync"

	ncerr "ghostbridge/internal/errors"
)

// WriteBufferFunc replaces the editor's focused buffer with text.  It is
// supplied by the editor integration and called from the relay's
// reader goroutine.
type WriteBufferFunc func(text string)

// Editor is a set-once cell holding the editor's WriteBufferFunc.
type Editor struct {
	mu sync.RWMutex
	fn WriteBufferFunc
}

// Register installs fn.  Only the first call succeeds; later calls
// return ErrEditorRegistered and leave the original callback in place.
func (e *Editor) Register(fn WriteBufferFunc) error {
	if fn == nil {
		return fmt.Errorf("register editor: nil callback")
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.fn != nil {
		return ncerr.ErrEditorRegistered
	}
	e.fn = fn
	return nil
}

// Registered reports whether a callback has been installed.
func (e *Editor) Registered() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.fn != nil
}

// WriteBuffer hands text to the registered callback.
func (e *Editor) WriteBuffer(text string) error {
	e.mu.RLock()
	fn := e.fn
	e.mu.RUnlock()
	if fn == nil {
		return ncerr.ErrEditorNotRegistered
	}
	fn(text)
	return nil
}

// DefaultEditor is the process-wide cell used by servers created
// without an explicit Editor.
var DefaultEditor = &Editor{}

// RegisterEditor installs fn in DefaultEditor.  A second registration
// is a logic error in the editor integration and panics.
func RegisterEditor(fn WriteBufferFunc) {
	if err := DefaultEditor.Register(fn); err != nil {
		panic(fmt.Sprintf("bridge: %v", err))
	}
}
