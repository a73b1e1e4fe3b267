// Package metrics provides lightweight, lock-free counters and gauges
// for tracking runtime statistics of a bridge server.
//
// All methods are safe for concurrent use.  A nil *Collector is a
// valid no-op receiver, so callers never need to nil-check.
package metrics

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"
)

// Collector tracks runtime metrics for one bridge server.
// A nil Collector is safe to use; all methods become no-ops.
type Collector struct {
	sessionsActive   atomic.Int64
	sessionsTotal    atomic.Int64
	sessionsReplaced atomic.Int64
	discoveries      atomic.Int64
	unknownRequests  atomic.Int64
	upgradeFailures  atomic.Int64
	framesIn         atomic.Int64
	framesOut        atomic.Int64
	malformedFrames  atomic.Int64
	updatesForwarded atomic.Int64
	updatesDropped   atomic.Int64
	errorsTotal      atomic.Int64

	mu           sync.RWMutex
	startTime    time.Time
	lastError    time.Time
	lastErrorMsg string
}

// New creates a metrics collector with the start time set to now.
func New() *Collector {
	return &Collector{startTime: time.Now()}
}

// ── Session metrics ──────────────────────────────────────────────────

// SessionOpened increments both the active and total counters.
func (c *Collector) SessionOpened() {
	if c == nil {
		return
	}
	c.sessionsActive.Add(1)
	c.sessionsTotal.Add(1)
}

// SessionClosed decrements the active session counter.
func (c *Collector) SessionClosed() {
	if c == nil {
		return
	}
	c.sessionsActive.Add(-1)
}

// SessionReplaced records a session torn down by a newer upgrade.
func (c *Collector) SessionReplaced() {
	if c == nil {
		return
	}
	c.sessionsReplaced.Add(1)
}

// ActiveSessions returns the number of sessions whose relay is running.
func (c *Collector) ActiveSessions() int64 {
	if c == nil {
		return 0
	}
	return c.sessionsActive.Load()
}

// TotalSessions returns the lifetime session count.
func (c *Collector) TotalSessions() int64 {
	if c == nil {
		return 0
	}
	return c.sessionsTotal.Load()
}

// ReplacedSessions returns how many sessions were displaced.
func (c *Collector) ReplacedSessions() int64 {
	if c == nil {
		return 0
	}
	return c.sessionsReplaced.Load()
}

// ── Dispatch metrics ─────────────────────────────────────────────────

// Discovery records a served discovery request.
func (c *Collector) Discovery() {
	if c == nil {
		return
	}
	c.discoveries.Add(1)
}

// UnknownRequest records a connection dropped as unclassifiable.
func (c *Collector) UnknownRequest() {
	if c == nil {
		return
	}
	c.unknownRequests.Add(1)
}

// UpgradeFailed records a failed WebSocket handshake.
func (c *Collector) UpgradeFailed() {
	if c == nil {
		return
	}
	c.upgradeFailures.Add(1)
}

// Discoveries returns the number of discovery requests served.
func (c *Collector) Discoveries() int64 {
	if c == nil {
		return 0
	}
	return c.discoveries.Load()
}

// UnknownRequests returns the number of unclassified connections.
func (c *Collector) UnknownRequests() int64 {
	if c == nil {
		return 0
	}
	return c.unknownRequests.Load()
}

// UpgradeFailures returns the number of failed handshakes.
func (c *Collector) UpgradeFailures() int64 {
	if c == nil {
		return 0
	}
	return c.upgradeFailures.Load()
}

// ── Frame metrics ────────────────────────────────────────────────────

// FrameReceived records a text frame read from the browser.
func (c *Collector) FrameReceived() {
	if c == nil {
		return
	}
	c.framesIn.Add(1)
}

// FrameSent records a text frame written to the browser.
func (c *Collector) FrameSent() {
	if c == nil {
		return
	}
	c.framesOut.Add(1)
}

// MalformedFrame records a received frame that failed to decode.
func (c *Collector) MalformedFrame() {
	if c == nil {
		return
	}
	c.malformedFrames.Add(1)
}

// FramesIn returns total frames received.
func (c *Collector) FramesIn() int64 {
	if c == nil {
		return 0
	}
	return c.framesIn.Load()
}

// FramesOut returns total frames sent.
func (c *Collector) FramesOut() int64 {
	if c == nil {
		return 0
	}
	return c.framesOut.Load()
}

// MalformedFrames returns total frames dropped as malformed.
func (c *Collector) MalformedFrames() int64 {
	if c == nil {
		return 0
	}
	return c.malformedFrames.Load()
}

// ── Editor update metrics ────────────────────────────────────────────

// UpdateForwarded records an editor change handed to a session.
func (c *Collector) UpdateForwarded() {
	if c == nil {
		return
	}
	c.updatesForwarded.Add(1)
}

// UpdateDropped records an editor change discarded because no session
// was active or the change buffer was full.
func (c *Collector) UpdateDropped() {
	if c == nil {
		return
	}
	c.updatesDropped.Add(1)
}

// UpdatesForwarded returns the number of editor changes forwarded.
func (c *Collector) UpdatesForwarded() int64 {
	if c == nil {
		return 0
	}
	return c.updatesForwarded.Load()
}

// UpdatesDropped returns the number of editor changes dropped.
func (c *Collector) UpdatesDropped() int64 {
	if c == nil {
		return 0
	}
	return c.updatesDropped.Load()
}

// ── Error metrics ────────────────────────────────────────────────────

// RecordError increments the error counter and stores the message.
func (c *Collector) RecordError(msg string) {
	if c == nil {
		return
	}
	c.errorsTotal.Add(1)
	c.mu.Lock()
	c.lastError = time.Now()
	c.lastErrorMsg = msg
	c.mu.Unlock()
}

// ErrorCount returns the total number of errors recorded.
func (c *Collector) ErrorCount() int64 {
	if c == nil {
		return 0
	}
	return c.errorsTotal.Load()
}

// ── Snapshot ─────────────────────────────────────────────────────────

// Snapshot is a point-in-time view of all metrics.
type Snapshot struct {
	Uptime           string `json:"uptime"`
	SessionsActive   int64  `json:"sessions_active"`
	SessionsTotal    int64  `json:"sessions_total"`
	SessionsReplaced int64  `json:"sessions_replaced"`
	Discoveries      int64  `json:"discoveries"`
	UnknownRequests  int64  `json:"unknown_requests"`
	UpgradeFailures  int64  `json:"upgrade_failures"`
	FramesIn         int64  `json:"frames_in"`
	FramesOut        int64  `json:"frames_out"`
	MalformedFrames  int64  `json:"malformed_frames"`
	UpdatesForwarded int64  `json:"updates_forwarded"`
	UpdatesDropped   int64  `json:"updates_dropped"`
	ErrorsTotal      int64  `json:"errors_total"`
	LastError        string `json:"last_error,omitempty"`
	LastErrorMessage string `json:"last_error_message,omitempty"`
}

// Snapshot returns a copy of all current metrics.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := Snapshot{
		Uptime:           time.Since(c.startTime).Truncate(time.Second).String(),
		SessionsActive:   c.sessionsActive.Load(),
		SessionsTotal:    c.sessionsTotal.Load(),
		SessionsReplaced: c.sessionsReplaced.Load(),
		Discoveries:      c.discoveries.Load(),
		UnknownRequests:  c.unknownRequests.Load(),
		UpgradeFailures:  c.upgradeFailures.Load(),
		FramesIn:         c.framesIn.Load(),
		FramesOut:        c.framesOut.Load(),
		MalformedFrames:  c.malformedFrames.Load(),
		UpdatesForwarded: c.updatesForwarded.Load(),
		UpdatesDropped:   c.updatesDropped.Load(),
		ErrorsTotal:      c.errorsTotal.Load(),
	}
	if !c.lastError.IsZero() {
		s.LastError = c.lastError.Format(time.RFC3339)
		s.LastErrorMessage = c.lastErrorMsg
	}
	return s
}

// JSON returns the snapshot as an indented JSON string.
func (c *Collector) JSON() string {
	s := c.Snapshot()
	data, _ := json.MarshalIndent(s, "", "  ")
	return string(data)
}
