package metrics

import (
	"encoding/json"
	"sync"
	"testing"
)

func TestCollector_Sessions(t *testing.T) {
	c := New()

	c.SessionOpened()
	c.SessionOpened()
	c.SessionReplaced()
	if c.ActiveSessions() != 2 {
		t.Errorf("active = %d, want 2", c.ActiveSessions())
	}
	if c.TotalSessions() != 2 {
		t.Errorf("total = %d, want 2", c.TotalSessions())
	}

	c.SessionClosed()
	if c.ActiveSessions() != 1 {
		t.Errorf("active = %d, want 1", c.ActiveSessions())
	}
	if c.TotalSessions() != 2 {
		t.Errorf("total should remain 2, got %d", c.TotalSessions())
	}
	if c.ReplacedSessions() != 1 {
		t.Errorf("replaced = %d, want 1", c.ReplacedSessions())
	}
}

func TestCollector_Dispatch(t *testing.T) {
	c := New()

	c.Discovery()
	c.Discovery()
	c.UnknownRequest()
	c.UpgradeFailed()

	if c.Discoveries() != 2 {
		t.Errorf("discoveries = %d, want 2", c.Discoveries())
	}
	if c.UnknownRequests() != 1 {
		t.Errorf("unknown = %d, want 1", c.UnknownRequests())
	}
	if c.UpgradeFailures() != 1 {
		t.Errorf("upgrade failures = %d, want 1", c.UpgradeFailures())
	}
}

func TestCollector_Frames(t *testing.T) {
	c := New()

	c.FrameReceived()
	c.FrameReceived()
	c.MalformedFrame()
	c.FrameSent()

	if c.FramesIn() != 2 {
		t.Errorf("frames in = %d, want 2", c.FramesIn())
	}
	if c.FramesOut() != 1 {
		t.Errorf("frames out = %d, want 1", c.FramesOut())
	}
	if c.MalformedFrames() != 1 {
		t.Errorf("malformed = %d, want 1", c.MalformedFrames())
	}
}

func TestCollector_Updates(t *testing.T) {
	c := New()

	c.UpdateForwarded()
	c.UpdateDropped()
	c.UpdateDropped()

	if c.UpdatesForwarded() != 1 {
		t.Errorf("forwarded = %d, want 1", c.UpdatesForwarded())
	}
	if c.UpdatesDropped() != 2 {
		t.Errorf("dropped = %d, want 2", c.UpdatesDropped())
	}
}

func TestCollector_Errors(t *testing.T) {
	c := New()

	c.RecordError("first error")
	c.RecordError("second error")

	if c.ErrorCount() != 2 {
		t.Errorf("errors = %d, want 2", c.ErrorCount())
	}
	if msg := c.Snapshot().LastErrorMessage; msg != "second error" {
		t.Errorf("last error = %q", msg)
	}
}

func TestCollector_ConcurrentUse(t *testing.T) {
	c := New()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.FrameSent()
				c.RecordError("x")
				_ = c.Snapshot()
			}
		}()
	}
	wg.Wait()
	if c.FramesOut() != 800 {
		t.Errorf("frames out = %d, want 800", c.FramesOut())
	}
}

func TestCollector_JSON(t *testing.T) {
	c := New()
	c.SessionOpened()
	c.FrameSent()

	raw := c.JSON()
	var snap Snapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		t.Fatalf("JSON parse error: %v", err)
	}
	if snap.SessionsActive != 1 {
		t.Errorf("JSON active = %d", snap.SessionsActive)
	}
	if snap.FramesOut != 1 {
		t.Errorf("JSON frames out = %d", snap.FramesOut)
	}
}

func TestNilCollector_NoOps(t *testing.T) {
	var c *Collector

	// None of these should panic.
	c.SessionOpened()
	c.SessionClosed()
	c.SessionReplaced()
	c.Discovery()
	c.UnknownRequest()
	c.UpgradeFailed()
	c.FrameReceived()
	c.FrameSent()
	c.MalformedFrame()
	c.UpdateForwarded()
	c.UpdateDropped()
	c.RecordError("test")

	if c.ActiveSessions() != 0 || c.FramesIn() != 0 || c.ErrorCount() != 0 {
		t.Error("nil collector should return 0")
	}

	snap := c.Snapshot()
	if snap.SessionsActive != 0 {
		t.Error("nil snapshot should be zero")
	}

	if c.JSON() == "" {
		t.Error("nil JSON should return valid JSON")
	}
}
