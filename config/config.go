// Package config defines the runtime configuration for ghostbridge and
// the layered loaders (JSONC file, environment) that fill it in.
package config

import (
	"fmt"
	"strings"
	"time"

	ncerr "ghostbridge/internal/errors"
)

// Config holds every tuneable for a bridge server instance.
type Config struct {
	// ── Network ──────────────────────────────────────────────────────
	Host          string // bind host
	Port          int    // bind port; 0 picks an ephemeral port
	AdvertisePort int    // port reported in the discovery response; 0 = bound port

	// ── Protocol ─────────────────────────────────────────────────────
	PeekSize         int           // bytes inspected to classify a connection
	HandshakeTimeout time.Duration // deadline for the first request on a connection
	WriteTimeout     time.Duration // per-frame write deadline towards the browser
	ChangeBuffer     int           // editor changes buffered ahead of the event loop

	// ── Editor / output ──────────────────────────────────────────────
	File    string // file-backed editor path; empty = print to stdout
	LogFile string // append-only log file; empty = stderr
	Verbose int
}

// Default returns a Config populated from defaults.go.
func Default() *Config {
	return &Config{
		Host:             DefaultHost,
		Port:             DefaultPort,
		PeekSize:         DefaultPeekSize,
		HandshakeTimeout: DefaultHandshakeTimeout,
		WriteTimeout:     DefaultWriteTimeout,
		ChangeBuffer:     DefaultChangeBuffer,
		Verbose:          DefaultVerbose,
	}
}

// ── Validation ───────────────────────────────────────────────────────

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	if c.Host == "" {
		return &ncerr.ConfigError{
			Field:   "host",
			Message: "must not be empty",
			Hint:    "the browser extension connects to " + DefaultHost,
		}
	}
	if c.Port < 0 || c.Port > 65535 {
		return &ncerr.ConfigError{
			Field:   "port",
			Value:   c.Port,
			Message: "out of range 0-65535",
			Hint:    fmt.Sprintf("GhostText expects %d unless reconfigured", DefaultPort),
		}
	}
	if c.AdvertisePort < 0 || c.AdvertisePort > 65535 {
		return &ncerr.ConfigError{
			Field:   "advertise-port",
			Value:   c.AdvertisePort,
			Message: "out of range 0-65535",
		}
	}
	if c.PeekSize < MinPeekSize {
		return &ncerr.ConfigError{
			Field:   "peek-size",
			Value:   c.PeekSize,
			Message: fmt.Sprintf("must be at least %d bytes", MinPeekSize),
			Hint:    "the discovery request line alone needs that many bytes",
		}
	}
	if c.HandshakeTimeout <= 0 {
		return &ncerr.ConfigError{
			Field:   "handshake-timeout",
			Value:   c.HandshakeTimeout,
			Message: "must be positive",
		}
	}
	if c.WriteTimeout <= 0 {
		return &ncerr.ConfigError{
			Field:   "write-timeout",
			Value:   c.WriteTimeout,
			Message: "must be positive",
		}
	}
	if c.ChangeBuffer < 1 {
		return &ncerr.ConfigError{
			Field:   "change-buffer",
			Value:   c.ChangeBuffer,
			Message: "must be at least 1",
		}
	}
	return nil
}

// String renders the effective configuration, one field per line.
func (c *Config) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "host:              %s\n", c.Host)
	fmt.Fprintf(&b, "port:              %d\n", c.Port)
	fmt.Fprintf(&b, "advertise-port:    %d\n", c.AdvertisePort)
	fmt.Fprintf(&b, "peek-size:         %d\n", c.PeekSize)
	fmt.Fprintf(&b, "handshake-timeout: %s\n", c.HandshakeTimeout)
	fmt.Fprintf(&b, "write-timeout:     %s\n", c.WriteTimeout)
	fmt.Fprintf(&b, "change-buffer:     %d\n", c.ChangeBuffer)
	fmt.Fprintf(&b, "file:              %s\n", c.File)
	fmt.Fprintf(&b, "log-file:          %s\n", c.LogFile)
	fmt.Fprintf(&b, "verbose:           %d\n", c.Verbose)
	return b.String()
}
