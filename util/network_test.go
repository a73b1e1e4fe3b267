package util

import (
	"net"
	"testing"
)

func TestFormatAddr(t *testing.T) {
	tests := []struct {
		host string
		port int
		want string
	}{
		{"127.0.0.1", 4001, "127.0.0.1:4001"},
		{"::1", 4001, "[::1]:4001"},
		{"localhost", 0, "localhost:0"},
	}
	for _, tt := range tests {
		if got := FormatAddr(tt.host, tt.port); got != tt.want {
			t.Errorf("FormatAddr(%q, %d) = %q, want %q", tt.host, tt.port, got, tt.want)
		}
	}
}

func TestPortOf(t *testing.T) {
	if got := PortOf(&net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 4001}); got != 4001 {
		t.Errorf("TCPAddr port = %d, want 4001", got)
	}
	if got := PortOf(&net.UnixAddr{Name: "/tmp/sock", Net: "unix"}); got != 0 {
		t.Errorf("UnixAddr port = %d, want 0", got)
	}
}

func TestFindFreePort(t *testing.T) {
	port, err := FindFreePort()
	if err != nil {
		t.Fatal(err)
	}
	if port < 1 || port > 65535 {
		t.Errorf("port %d out of range", port)
	}
}
