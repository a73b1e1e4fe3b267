package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadBytes_JSONC(t *testing.T) {
	doc := []byte(`{
	// bridge on a non-default port, advertised through a forward
	"port": 4101,
	"advertise_port": 4001,
	"handshake_timeout": "2s",
	"write_timeout": "3", /* bare seconds */
	"file": "/tmp/ghost.txt",
}`)
	cfg := Default()
	if err := LoadBytes(cfg, doc); err != nil {
		t.Fatal(err)
	}

	if cfg.Port != 4101 {
		t.Errorf("Port = %d, want 4101", cfg.Port)
	}
	if cfg.AdvertisePort != 4001 {
		t.Errorf("AdvertisePort = %d, want 4001", cfg.AdvertisePort)
	}
	if cfg.HandshakeTimeout != 2*time.Second {
		t.Errorf("HandshakeTimeout = %v", cfg.HandshakeTimeout)
	}
	if cfg.WriteTimeout != 3*time.Second {
		t.Errorf("WriteTimeout = %v", cfg.WriteTimeout)
	}
	if cfg.File != "/tmp/ghost.txt" {
		t.Errorf("File = %q", cfg.File)
	}
	// Absent keys keep their previous value.
	if cfg.Host != DefaultHost {
		t.Errorf("Host = %q, want default", cfg.Host)
	}
	if cfg.PeekSize != DefaultPeekSize {
		t.Errorf("PeekSize = %d, want default", cfg.PeekSize)
	}
}

func TestLoadBytes_WriteTimeoutNumberRejected(t *testing.T) {
	// Durations are strings in the file; a bare JSON number is a type error.
	cfg := Default()
	if err := LoadBytes(cfg, []byte(`{"write_timeout": 3}`)); err == nil {
		t.Fatal("expected type error for numeric write_timeout")
	}
}

func TestLoadBytes_BadDuration(t *testing.T) {
	cfg := Default()
	if err := LoadBytes(cfg, []byte(`{"handshake_timeout": "whenever"}`)); err == nil {
		t.Fatal("expected error for unparseable duration")
	}
}

func TestLoadBytes_BadJSON(t *testing.T) {
	cfg := Default()
	if err := LoadBytes(cfg, []byte(`{"port": }`)); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ghostbridge.jsonc")
	if err := os.WriteFile(path, []byte(`{"host": "localhost", "verbose": 2}`), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := Default()
	if err := LoadFile(cfg, path); err != nil {
		t.Fatal(err)
	}
	if cfg.Host != "localhost" || cfg.Verbose != 2 {
		t.Errorf("got host=%q verbose=%d", cfg.Host, cfg.Verbose)
	}

	if err := LoadFile(cfg, filepath.Join(t.TempDir(), "missing.jsonc")); err == nil {
		t.Error("expected error for missing file")
	}
}
