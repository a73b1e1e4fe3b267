package config

// loader.go - configuration loading from environment variables.
//
// Precedence order (highest wins):
//   1. CLI flags  (handled by cmd/root.go)
//   2. Environment variables  (this file)
//   3. Config file  (file.go)
//   4. Defaults   (defaults.go)

import (
	"os"
	"strconv"
	"time"
)

// ── Environment variable mapping ─────────────────────────────────────
//
// Every supported env var uses the GHOSTBRIDGE_ prefix.  Durations
// accept Go syntax ("750ms", "5s") or a bare number of seconds.

// LoadFromEnv overlays environment variables onto cfg.  Only non-empty,
// parseable env vars override the existing value.
func LoadFromEnv(cfg *Config) {
	if v := os.Getenv("GHOSTBRIDGE_HOST"); v != "" {
		cfg.Host = v
	}
	if v, ok := envInt("GHOSTBRIDGE_PORT"); ok {
		cfg.Port = v
	}
	if v, ok := envInt("GHOSTBRIDGE_ADVERTISE_PORT"); ok {
		cfg.AdvertisePort = v
	}
	if v, ok := envInt("GHOSTBRIDGE_PEEK_SIZE"); ok {
		cfg.PeekSize = v
	}
	if v, ok := envDuration("GHOSTBRIDGE_HANDSHAKE_TIMEOUT"); ok {
		cfg.HandshakeTimeout = v
	}
	if v, ok := envDuration("GHOSTBRIDGE_WRITE_TIMEOUT"); ok {
		cfg.WriteTimeout = v
	}
	if v, ok := envInt("GHOSTBRIDGE_CHANGE_BUFFER"); ok {
		cfg.ChangeBuffer = v
	}

	// Editor / output
	if v := os.Getenv("GHOSTBRIDGE_FILE"); v != "" {
		cfg.File = v
	}
	if v := os.Getenv("GHOSTBRIDGE_LOG_FILE"); v != "" {
		cfg.LogFile = v
	}
	if v, ok := envInt("GHOSTBRIDGE_VERBOSE"); ok {
		cfg.Verbose = v
	}
}

// ── helpers ──────────────────────────────────────────────────────────

func envInt(key string) (int, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

func envDuration(key string) (time.Duration, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	return parseDuration(v)
}

// parseDuration accepts "5s" style durations or whole seconds.
func parseDuration(v string) (time.Duration, bool) {
	if d, err := time.ParseDuration(v); err == nil {
		return d, true
	}
	sec, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return time.Duration(sec) * time.Second, true
}
