// Package errors provides domain-specific error types for ghostbridge.
//
// These types carry structured context (operation, address, offending
// field) so that the bridge can log a precise reason for a dropped
// connection or frame without string matching.
package errors

import (
	"errors"
	"fmt"
)

// ── Sentinel errors ──────────────────────────────────────────────────

var (
	// ErrMalformedMessage is wrapped by every decode failure of a wire
	// message: bad JSON, a missing field, or a field of the wrong shape.
	ErrMalformedMessage = errors.New("malformed message")

	// ErrSelectionShape marks an editor-supplied selection that is not a
	// non-negative [start, end] pair.  The editor integration guarantees
	// this shape, so seeing it is a bug at that boundary.
	ErrSelectionShape = errors.New("selection is not a [start, end] pair")

	ErrEditorRegistered    = errors.New("editor callback already registered")
	ErrEditorNotRegistered = errors.New("editor callback not registered")
	ErrAlreadyRunning      = errors.New("server is already running")
	ErrSessionClosed       = errors.New("session is closed")
)

// ── Structured error types ───────────────────────────────────────────

// NetworkError represents a failure in a network operation.
type NetworkError struct {
	Op   string // operation: "listen", "accept", "peek", "upgrade", "read", "write"
	Addr string // network address involved
	Err  error  // underlying error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Addr, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ProtocolError describes why a wire message was rejected.  It always
// matches [ErrMalformedMessage] under [errors.Is].
type ProtocolError struct {
	Message string // which message was being decoded, e.g. "browser change"
	Field   string // offending JSON field, empty when the whole body is bad
	Err     error  // underlying decode error (optional)
}

func (e *ProtocolError) Error() string {
	msg := "malformed " + e.Message
	if e.Field != "" {
		msg += ": field " + fmt.Sprintf("%q", e.Field)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ProtocolError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrMalformedMessage}
	}
	return []error{ErrMalformedMessage, e.Err}
}

// ConfigError represents an invalid configuration value.
type ConfigError struct {
	Field   string      // config field name
	Value   interface{} // the invalid value (nil if missing)
	Message string      // human-readable explanation
	Hint    string      // suggestion for the user (optional)
}

func (e *ConfigError) Error() string {
	msg := fmt.Sprintf("config: --%s", e.Field)
	if e.Value != nil {
		msg += fmt.Sprintf("=%v", e.Value)
	}
	msg += ": " + e.Message
	if e.Hint != "" {
		msg += "\n  hint: " + e.Hint
	}
	return msg
}

// ── Constructors ─────────────────────────────────────────────────────

// Wrap creates a NetworkError.
func Wrap(op, addr string, err error) *NetworkError {
	return &NetworkError{Op: op, Addr: addr, Err: err}
}

// Malformed creates a ProtocolError for the named message and field.
func Malformed(message, field string, err error) *ProtocolError {
	return &ProtocolError{Message: message, Field: field, Err: err}
}

// ── Re-exports for convenience ───────────────────────────────────────
//
// These allow callers to use ghostbridge/internal/errors as a drop-in
// replacement for the standard library in common operations.

// As is [errors.As].
func As(err error, target interface{}) bool { return errors.As(err, target) }

// Is is [errors.Is].
func Is(err, target error) bool { return errors.Is(err, target) }

// New is [errors.New].
func New(text string) error { return errors.New(text) }

// Unwrap is [errors.Unwrap].
func Unwrap(err error) error { return errors.Unwrap(err) }

// Join is [errors.Join].
func Join(errs ...error) error { return errors.Join(errs...) }
