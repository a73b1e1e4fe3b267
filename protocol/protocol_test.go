package protocol

import (
	"strings"
	"testing"

	ncerr "ghostbridge/internal/errors"
)

func TestDiscovery_RoundTrip(t *testing.T) {
	for _, port := range []int{0, 1, 4001, 65535} {
		want := NewDiscoveryResponse(port)
		data, err := EncodeDiscovery(want)
		if err != nil {
			t.Fatal(err)
		}
		got, err := DecodeDiscovery(data)
		if err != nil {
			t.Fatalf("port %d: %v", port, err)
		}
		if got != want {
			t.Errorf("round trip: got %+v, want %+v", got, want)
		}
	}
}

func TestDiscovery_FieldNames(t *testing.T) {
	data, err := EncodeDiscovery(NewDiscoveryResponse(4001))
	if err != nil {
		t.Fatal(err)
	}
	if got, want := string(data), `{"ProtocolVersion":1,"WebSocketPort":4001}`; got != want {
		t.Errorf("got %s, want %s", got, want)
	}
}

func TestEncodeEditorChange(t *testing.T) {
	tests := []struct {
		name   string
		change EditorChange
		want   string
	}{
		{
			name:   "with selection",
			change: EditorChange{Text: "world", Selections: []Selection{{Start: 0, End: 5}}},
			want:   `{"text":"world","selections":[{"start":0,"end":5}]}`,
		},
		{
			name:   "nil selections become empty list",
			change: EditorChange{Text: ""},
			want:   `{"text":"","selections":[]}`,
		},
		{
			name:   "multiple cursors keep order",
			change: EditorChange{Text: "abc", Selections: []Selection{{2, 3}, {0, 1}}},
			want:   `{"text":"abc","selections":[{"start":2,"end":3},{"start":0,"end":1}]}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := EncodeEditorChange(tt.change)
			if err != nil {
				t.Fatal(err)
			}
			if string(data) != tt.want {
				t.Errorf("got %s, want %s", data, tt.want)
			}
		})
	}
}

func TestDecodeBrowserChange_Valid(t *testing.T) {
	frame := `{"title":"t","url":"u","syntax":"s","text":"hello","selections":[{"start":0,"end":5}]}`
	c, err := DecodeBrowserChange([]byte(frame))
	if err != nil {
		t.Fatal(err)
	}
	if c.Title != "t" || c.URL != "u" || c.Syntax != "s" || c.Text != "hello" {
		t.Errorf("unexpected fields: %+v", c)
	}
	if len(c.Selections) != 1 || c.Selections[0] != (Selection{0, 5}) {
		t.Errorf("selections = %+v", c.Selections)
	}
}

func TestDecodeBrowserChange_ExtraFieldsIgnored(t *testing.T) {
	frame := `{"title":"","url":"","syntax":"","text":"x","selections":[],"extension":"firefox"}`
	if _, err := DecodeBrowserChange([]byte(frame)); err != nil {
		t.Fatalf("unknown fields should be ignored: %v", err)
	}
}

func TestDecodeBrowserChange_Malformed(t *testing.T) {
	tests := []struct {
		name      string
		frame     string
		wantField string
	}{
		{"not json", `hello`, ""},
		{"array", `[1,2]`, ""},
		{"null", `null`, ""},
		{"missing text", `{"title":"t","url":"u","syntax":"s","selections":[]}`, "text"},
		{"missing title", `{"url":"u","syntax":"s","text":"x","selections":[]}`, "title"},
		{"null text", `{"title":"t","url":"u","syntax":"s","text":null,"selections":[]}`, "text"},
		{"text is number", `{"title":"t","url":"u","syntax":"s","text":5,"selections":[]}`, "text"},
		{"missing selections", `{"title":"t","url":"u","syntax":"s","text":"x"}`, "selections"},
		{"selections not list", `{"title":"t","url":"u","syntax":"s","text":"x","selections":{}}`, "selections"},
		{"selection not object", `{"title":"t","url":"u","syntax":"s","text":"x","selections":[[0,1]]}`, "selections[0]"},
		{"selection missing end", `{"title":"t","url":"u","syntax":"s","text":"x","selections":[{"start":0}]}`, "selections[0].end"},
		{"selection fractional", `{"title":"t","url":"u","syntax":"s","text":"x","selections":[{"start":0.5,"end":1}]}`, "selections[0].start"},
		{"selection negative", `{"title":"t","url":"u","syntax":"s","text":"x","selections":[{"start":-1,"end":1}]}`, "selections[0]"},
		{"selection inverted", `{"title":"t","url":"u","syntax":"s","text":"x","selections":[{"start":0,"end":0},{"start":4,"end":2}]}`, "selections[1]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeBrowserChange([]byte(tt.frame))
			if err == nil {
				t.Fatal("expected error")
			}
			if !ncerr.Is(err, ncerr.ErrMalformedMessage) {
				t.Errorf("error %v should match ErrMalformedMessage", err)
			}
			var pe *ncerr.ProtocolError
			if !ncerr.As(err, &pe) {
				t.Fatalf("expected *ProtocolError, got %T", err)
			}
			if pe.Field != tt.wantField {
				t.Errorf("Field = %q, want %q", pe.Field, tt.wantField)
			}
		})
	}
}

func TestDecodeEditorChange(t *testing.T) {
	c, err := DecodeEditorChange([]byte(`{"text":"world","selections":[{"start":0,"end":5}]}`))
	if err != nil {
		t.Fatal(err)
	}
	if c.Text != "world" || len(c.Selections) != 1 {
		t.Errorf("got %+v", c)
	}

	_, err = DecodeEditorChange([]byte(`{"selections":[]}`))
	if !ncerr.Is(err, ncerr.ErrMalformedMessage) {
		t.Errorf("missing text: got %v", err)
	}
}

func TestDecodeDiscovery_Malformed(t *testing.T) {
	for _, body := range []string{
		`{"ProtocolVersion":1}`,
		`{"protocolVersion":1,"webSocketPort":4001}`,
		`{"ProtocolVersion":1,"WebSocketPort":-4001}`,
		``,
	} {
		if _, err := DecodeDiscovery([]byte(body)); !ncerr.Is(err, ncerr.ErrMalformedMessage) {
			t.Errorf("DecodeDiscovery(%q) = %v, want ErrMalformedMessage", body, err)
		}
	}
}

func TestSelectionsFromPairs(t *testing.T) {
	got, err := SelectionsFromPairs([][]int{{0, 5}, {7, 7}})
	if err != nil {
		t.Fatal(err)
	}
	want := []Selection{{0, 5}, {7, 7}}
	if len(got) != len(want) {
		t.Fatalf("got %+v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("selection %d = %+v, want %+v", i, got[i], want[i])
		}
	}

	empty, err := SelectionsFromPairs(nil)
	if err != nil || empty == nil || len(empty) != 0 {
		t.Errorf("nil pairs: got %v, %v", empty, err)
	}
}

func TestSelectionsFromPairs_ContractViolation(t *testing.T) {
	tests := []struct {
		name  string
		pairs [][]int
	}{
		{"three elements", [][]int{{1, 2, 3}}},
		{"one element", [][]int{{1}}},
		{"empty pair", [][]int{{}}},
		{"second pair bad", [][]int{{0, 1}, {4}}},
		{"negative", [][]int{{-1, 2}}},
		{"inverted", [][]int{{5, 2}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := SelectionsFromPairs(tt.pairs)
			if !ncerr.Is(err, ncerr.ErrSelectionShape) {
				t.Errorf("got %v, want ErrSelectionShape", err)
			}
		})
	}
}

func TestEncodeBrowserChange_DecodesBack(t *testing.T) {
	data, err := EncodeBrowserChange(BrowserChange{Title: "Issue", URL: "github.com", Text: "body"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"selections":[]`) {
		t.Errorf("nil selections should encode as []: %s", data)
	}
	c, err := DecodeBrowserChange(data)
	if err != nil {
		t.Fatal(err)
	}
	if c.Text != "body" || c.URL != "github.com" {
		t.Errorf("got %+v", c)
	}
}
