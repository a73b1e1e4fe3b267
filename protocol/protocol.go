// Package protocol defines the GhostText wire messages exchanged between
// the browser extension and the bridge, and their JSON codec.
//
// Three messages exist: the discovery response sent over plain HTTP,
// and the two full-document change payloads exchanged as WebSocket text
// frames after the upgrade.  Changes always carry the entire text, never
// a diff.
package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"

	ncerr "ghostbridge/internal/errors"
)

// ProtocolVersion is the GhostText protocol revision this bridge speaks.
const ProtocolVersion = 1

// DiscoveryResponse answers the extension's initial GET and tells it
// where to open the WebSocket.
type DiscoveryResponse struct {
	ProtocolVersion uint `json:"ProtocolVersion"`
	WebSocketPort   uint `json:"WebSocketPort"`
}

// NewDiscoveryResponse builds the response advertising port.
func NewDiscoveryResponse(port int) DiscoveryResponse {
	return DiscoveryResponse{ProtocolVersion: ProtocolVersion, WebSocketPort: uint(port)}
}

// Selection is a selected region as 0-indexed character offsets.
type Selection struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// BrowserChange is sent by the extension on every edit or selection
// change in the textarea.
type BrowserChange struct {
	Title      string      `json:"title"`
	URL        string      `json:"url"`    // host of the page
	Syntax     string      `json:"syntax"` // unused
	Text       string      `json:"text"`
	Selections []Selection `json:"selections"`
}

// EditorChange is sent to the extension when the editor buffer changes.
type EditorChange struct {
	Text       string      `json:"text"`
	Selections []Selection `json:"selections"`
}

// ── Encoding ─────────────────────────────────────────────────────────

// EncodeDiscovery serializes a discovery response.
func EncodeDiscovery(r DiscoveryResponse) ([]byte, error) {
	return json.Marshal(r)
}

// EncodeEditorChange serializes an editor change.  A nil selection list
// is sent as [] so the extension never sees null.
func EncodeEditorChange(c EditorChange) ([]byte, error) {
	if c.Selections == nil {
		c.Selections = []Selection{}
	}
	return json.Marshal(c)
}

// EncodeBrowserChange serializes a browser change (used by tests and
// tools that play the extension's side).
func EncodeBrowserChange(c BrowserChange) ([]byte, error) {
	if c.Selections == nil {
		c.Selections = []Selection{}
	}
	return json.Marshal(c)
}

// ── Decoding ─────────────────────────────────────────────────────────
//
// Decoding is strict: every field is required, null counts as missing,
// and selections must satisfy 0 <= start <= end.  Each failure is a
// *errors.ProtocolError, which matches errors.ErrMalformedMessage.

// DecodeDiscovery parses a discovery response body.
func DecodeDiscovery(data []byte) (DiscoveryResponse, error) {
	const msg = "discovery response"
	fields, err := decodeObject(msg, data)
	if err != nil {
		return DiscoveryResponse{}, err
	}
	var r DiscoveryResponse
	if err := required(msg, fields, "ProtocolVersion", &r.ProtocolVersion); err != nil {
		return DiscoveryResponse{}, err
	}
	if err := required(msg, fields, "WebSocketPort", &r.WebSocketPort); err != nil {
		return DiscoveryResponse{}, err
	}
	return r, nil
}

// DecodeBrowserChange parses a text frame received from the extension.
func DecodeBrowserChange(data []byte) (BrowserChange, error) {
	const msg = "browser change"
	fields, err := decodeObject(msg, data)
	if err != nil {
		return BrowserChange{}, err
	}
	var c BrowserChange
	for _, f := range []struct {
		name string
		dst  *string
	}{
		{"title", &c.Title},
		{"url", &c.URL},
		{"syntax", &c.Syntax},
		{"text", &c.Text},
	} {
		if err := required(msg, fields, f.name, f.dst); err != nil {
			return BrowserChange{}, err
		}
	}
	if c.Selections, err = decodeSelections(msg, fields); err != nil {
		return BrowserChange{}, err
	}
	return c, nil
}

// DecodeEditorChange parses a frame sent by the bridge to the extension.
func DecodeEditorChange(data []byte) (EditorChange, error) {
	const msg = "editor change"
	fields, err := decodeObject(msg, data)
	if err != nil {
		return EditorChange{}, err
	}
	var c EditorChange
	if err := required(msg, fields, "text", &c.Text); err != nil {
		return EditorChange{}, err
	}
	if c.Selections, err = decodeSelections(msg, fields); err != nil {
		return EditorChange{}, err
	}
	return c, nil
}

func decodeObject(msg string, data []byte) (map[string]json.RawMessage, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, ncerr.Malformed(msg, "", err)
	}
	if fields == nil {
		return nil, ncerr.Malformed(msg, "", fmt.Errorf("not a JSON object"))
	}
	return fields, nil
}

func required(msg string, fields map[string]json.RawMessage, name string, dst interface{}) error {
	return requiredAt(msg, fields, name, name, dst)
}

// requiredAt decodes fields[name] into dst, reporting failures against
// path (the field's location in the whole message).
func requiredAt(msg string, fields map[string]json.RawMessage, name, path string, dst interface{}) error {
	raw, ok := fields[name]
	if !ok || isNull(raw) {
		return ncerr.Malformed(msg, path, fmt.Errorf("missing"))
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return ncerr.Malformed(msg, path, err)
	}
	return nil
}

func decodeSelections(msg string, fields map[string]json.RawMessage) ([]Selection, error) {
	var raws []json.RawMessage
	if err := required(msg, fields, "selections", &raws); err != nil {
		return nil, err
	}
	out := make([]Selection, 0, len(raws))
	for i, raw := range raws {
		field := fmt.Sprintf("selections[%d]", i)
		var sel map[string]json.RawMessage
		if err := json.Unmarshal(raw, &sel); err != nil || sel == nil {
			return nil, ncerr.Malformed(msg, field, fmt.Errorf("not a JSON object"))
		}
		var s Selection
		if err := requiredAt(msg, sel, "start", field+".start", &s.Start); err != nil {
			return nil, err
		}
		if err := requiredAt(msg, sel, "end", field+".end", &s.End); err != nil {
			return nil, err
		}
		if err := s.Validate(); err != nil {
			return nil, ncerr.Malformed(msg, field, err)
		}
		out = append(out, s)
	}
	return out, nil
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// ── Selections ───────────────────────────────────────────────────────

// Validate reports whether s is a well-formed range.
func (s Selection) Validate() error {
	if s.Start < 0 || s.End < 0 {
		return fmt.Errorf("negative offset in [%d, %d]", s.Start, s.End)
	}
	if s.Start > s.End {
		return fmt.Errorf("start %d after end %d", s.Start, s.End)
	}
	return nil
}

// SelectionsFromPairs converts editor-native [start, end] pairs into
// Selections.  Any pair of the wrong length or with an invalid range
// yields an error wrapping errors.ErrSelectionShape.
func SelectionsFromPairs(pairs [][]int) ([]Selection, error) {
	out := make([]Selection, 0, len(pairs))
	for i, p := range pairs {
		if len(p) != 2 {
			return nil, fmt.Errorf("selection %d has %d elements: %w", i, len(p), ncerr.ErrSelectionShape)
		}
		s := Selection{Start: p[0], End: p[1]}
		if err := s.Validate(); err != nil {
			return nil, fmt.Errorf("selection %d: %v: %w", i, err, ncerr.ErrSelectionShape)
		}
		out = append(out, s)
	}
	return out, nil
}
