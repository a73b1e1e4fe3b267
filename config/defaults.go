package config

import "time"

// ── Default values ───────────────────────────────────────────────────
//
// All tuneable defaults live here so they are easy to audit and reuse
// across CLI flags, config file parsing, and environment variable
// loading.

const (
	// DefaultHost is the loopback address the browser extension dials.
	DefaultHost = "127.0.0.1"

	// DefaultPort is the port the GhostText extension probes.
	DefaultPort = 4001

	// DefaultPeekSize is how many leading bytes of a connection are
	// inspected to tell discovery from a WebSocket upgrade.
	DefaultPeekSize = 1024

	// MinPeekSize fits "GET / HTTP/1.1".
	MinPeekSize = 14

	// DefaultHandshakeTimeout bounds how long a fresh connection may
	// take to send its first request.
	DefaultHandshakeTimeout = 5 * time.Second

	// DefaultWriteTimeout bounds a single frame write to the browser.
	DefaultWriteTimeout = 10 * time.Second

	// DefaultChangeBuffer is the capacity of the editor → event loop
	// channel.  Update never blocks; changes beyond this are dropped.
	DefaultChangeBuffer = 1024

	// DefaultVerbose logs at normal level.
	DefaultVerbose = 1
)
