package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/tidwall/jsonc"

	ncerr "ghostbridge/internal/errors"
)

// fileConfig mirrors Config for the on-disk format.  Pointer fields
// distinguish "absent" from a zero value so that only keys present in
// the file override what is already in the Config.
type fileConfig struct {
	Host             *string `json:"host"`
	Port             *int    `json:"port"`
	AdvertisePort    *int    `json:"advertise_port"`
	PeekSize         *int    `json:"peek_size"`
	HandshakeTimeout *string `json:"handshake_timeout"`
	WriteTimeout     *string `json:"write_timeout"`
	ChangeBuffer     *int    `json:"change_buffer"`
	File             *string `json:"file"`
	LogFile          *string `json:"log_file"`
	Verbose          *int    `json:"verbose"`
}

// LoadFile overlays the JSONC (JSON with comments and trailing commas)
// file at path onto cfg.
func LoadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	return LoadBytes(cfg, data)
}

// LoadBytes is LoadFile for an in-memory document.
func LoadBytes(cfg *Config, data []byte) error {
	var fc fileConfig
	if err := json.Unmarshal(jsonc.ToJSON(data), &fc); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}

	if fc.Host != nil {
		cfg.Host = *fc.Host
	}
	if fc.Port != nil {
		cfg.Port = *fc.Port
	}
	if fc.AdvertisePort != nil {
		cfg.AdvertisePort = *fc.AdvertisePort
	}
	if fc.PeekSize != nil {
		cfg.PeekSize = *fc.PeekSize
	}
	if fc.HandshakeTimeout != nil {
		d, ok := parseDuration(*fc.HandshakeTimeout)
		if !ok {
			return &ncerr.ConfigError{Field: "handshake-timeout", Value: *fc.HandshakeTimeout, Message: "not a duration"}
		}
		cfg.HandshakeTimeout = d
	}
	if fc.WriteTimeout != nil {
		d, ok := parseDuration(*fc.WriteTimeout)
		if !ok {
			return &ncerr.ConfigError{Field: "write-timeout", Value: *fc.WriteTimeout, Message: "not a duration"}
		}
		cfg.WriteTimeout = d
	}
	if fc.ChangeBuffer != nil {
		cfg.ChangeBuffer = *fc.ChangeBuffer
	}
	if fc.File != nil {
		cfg.File = *fc.File
	}
	if fc.LogFile != nil {
		cfg.LogFile = *fc.LogFile
	}
	if fc.Verbose != nil {
		cfg.Verbose = *fc.Verbose
	}
	return nil
}
