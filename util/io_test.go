package util

import (
	"io"
	"net"
	"testing"
)

func TestIsHarmless(t *testing.T) {
	if !IsHarmless(nil) {
		t.Error("nil should be harmless")
	}
	if !IsHarmless(io.EOF) {
		t.Error("io.EOF should be harmless")
	}
	if !IsHarmless(net.ErrClosed) {
		t.Error("net.ErrClosed should be harmless")
	}
	if IsHarmless(io.ErrUnexpectedEOF) {
		t.Error("ErrUnexpectedEOF should NOT be harmless")
	}
}

func TestIsHarmless_ClosedConn(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	ln.Close()

	_, err = ln.Accept()
	if err == nil {
		t.Fatal("accept on closed listener should fail")
	}
	if !IsHarmless(err) {
		t.Errorf("accept after close should be harmless, got %v", err)
	}
}
