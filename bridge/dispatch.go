package bridge

import (
	"bufio"
	"bytes"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	ncerr "ghostbridge/internal/errors"
	"ghostbridge/protocol"
	"ghostbridge/util"
)

// RequestKind is the classification of a freshly accepted connection.
type RequestKind int

const (
	KindUnknown RequestKind = iota
	KindDiscovery
	KindUpgrade
)

func (k RequestKind) String() string {
	switch k {
	case KindDiscovery:
		return "discovery"
	case KindUpgrade:
		return "upgrade"
	default:
		return "unknown"
	}
}

var (
	upgradeMarker   = []byte("Upgrade: websocket")
	discoveryPrefix = []byte("GET / HTTP/1.1")
)

// Classify inspects the leading bytes of a connection.  The upgrade
// marker wins over the discovery prefix, since a WebSocket handshake
// to "/" starts with the same request line.
func Classify(head []byte) RequestKind {
	switch {
	case bytes.Contains(head, upgradeMarker):
		return KindUpgrade
	case bytes.HasPrefix(head, discoveryPrefix):
		return KindDiscovery
	default:
		return KindUnknown
	}
}

// handleConn classifies one accepted connection and serves it.  It
// runs on its own goroutine; every failure stays local to conn.
func (s *Server) handleConn(conn net.Conn) {
	remote := conn.RemoteAddr().String()
	conn.SetReadDeadline(time.Now().Add(s.cfg.HandshakeTimeout)) //nolint:errcheck

	br := bufio.NewReaderSize(conn, s.cfg.PeekSize)
	head, err := peek(br, s.cfg.PeekSize)
	if err != nil && !util.IsHarmless(err) {
		s.logger.Error("buffer peek failed: %v", ncerr.Wrap("peek", remote, err))
		s.metrics.RecordError(err.Error())
		conn.Close()
		return
	}

	kind := Classify(head)
	s.logger.Debug("connection from %s classified as %s (%d bytes peeked)", remote, kind, len(head))

	switch kind {
	case KindUpgrade:
		s.serveUpgrade(conn, br, remote)
	case KindDiscovery:
		s.serveDiscovery(conn, br, remote)
		conn.Close()
	default:
		s.logger.Warn("unrecognised request from %s, dropping connection", remote)
		s.metrics.UnknownRequest()
		conn.Close()
	}
}

// peek returns up to n leading bytes without consuming them.  It waits
// for the first byte only; whatever arrived with it is what gets
// classified.  A peer that closes without sending yields no bytes.
func peek(br *bufio.Reader, n int) ([]byte, error) {
	if _, err := br.Peek(1); err != nil {
		return nil, err
	}
	return br.Peek(min(br.Buffered(), n))
}

// serveDiscovery answers the extension's probe with the protocol
// version and WebSocket port.
func (s *Server) serveDiscovery(conn net.Conn, br *bufio.Reader, remote string) {
	req, err := http.ReadRequest(br)
	if err != nil {
		s.logger.Error("discovery request from %s: %v", remote, ncerr.Wrap("read", remote, err))
		s.metrics.RecordError(err.Error())
		return
	}
	req.Body.Close()

	body, err := protocol.EncodeDiscovery(protocol.NewDiscoveryResponse(s.advertisedPort()))
	if err != nil {
		s.logger.Error("encode discovery response: %v", err)
		return
	}

	conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout)) //nolint:errcheck
	w := newConnResponse(conn, br)
	h := w.Header()
	h.Set("Content-Type", "application/json")
	h.Set("Content-Length", strconv.Itoa(len(body)))
	h.Set("Connection", "close")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		s.logger.Error("discovery response to %s: %v", remote, ncerr.Wrap("write", remote, err))
		s.metrics.RecordError(err.Error())
		return
	}

	s.metrics.Discovery()
	s.logger.Verbose("discovery request from %s answered (port %d)", remote, s.advertisedPort())
}

// serveUpgrade performs the WebSocket handshake and, on success, runs
// the relay on this goroutine until the session ends.
func (s *Server) serveUpgrade(conn net.Conn, br *bufio.Reader, remote string) {
	req, err := http.ReadRequest(br)
	if err != nil {
		s.logger.Error("WebSocket upgrade failed: %v", ncerr.Wrap("upgrade", remote, err))
		s.metrics.UpgradeFailed()
		conn.Close()
		return
	}
	s.logger.Info("WebSocket request from %s for %s", remote, req.RequestURI)

	conn.SetReadDeadline(time.Time{}) //nolint:errcheck
	w := newConnResponse(conn, br)
	ws, err := s.upgrader.Upgrade(w, req, nil)
	if err != nil {
		// The upgrader has already written an error response.
		s.logger.Error("WebSocket upgrade failed: %v", ncerr.Wrap("upgrade", remote, err))
		s.metrics.UpgradeFailed()
		conn.Close()
		return
	}

	s.relay(ws, remote)
}

func newUpgrader(handshakeTimeout time.Duration) websocket.Upgrader {
	return websocket.Upgrader{
		HandshakeTimeout: handshakeTimeout,
		// The extension connects from a moz-extension:// or
		// chrome-extension:// origin.
		CheckOrigin: func(*http.Request) bool { return true },
	}
}

// ── connResponse ─────────────────────────────────────────────────────

// connResponse is a minimal http.ResponseWriter over a connection whose
// request was parsed by hand.  It implements http.Hijacker so the
// WebSocket upgrader can take the connection over, and it writes plain
// HTTP/1.1 responses for discovery and for rejected handshakes.
type connResponse struct {
	conn        net.Conn
	rw          *bufio.ReadWriter
	header      http.Header
	wroteHeader bool
	hijacked    bool
}

func newConnResponse(conn net.Conn, br *bufio.Reader) *connResponse {
	return &connResponse{
		conn:   conn,
		rw:     bufio.NewReadWriter(br, bufio.NewWriter(conn)),
		header: make(http.Header),
	}
}

func (w *connResponse) Header() http.Header { return w.header }

func (w *connResponse) WriteHeader(code int) {
	if w.wroteHeader || w.hijacked {
		return
	}
	w.wroteHeader = true
	if w.header.Get("Connection") == "" {
		w.header.Set("Connection", "close")
	}
	fmt.Fprintf(w.rw, "HTTP/1.1 %03d %s\r\n", code, http.StatusText(code))
	w.header.Write(w.rw) //nolint:errcheck
	w.rw.WriteString("\r\n") //nolint:errcheck
}

func (w *connResponse) Write(p []byte) (int, error) {
	if w.hijacked {
		return 0, http.ErrHijacked
	}
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	n, err := w.rw.Write(p)
	if err != nil {
		return n, err
	}
	return n, w.rw.Flush()
}

func (w *connResponse) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if w.hijacked {
		return nil, nil, http.ErrHijacked
	}
	w.hijacked = true
	return w.conn, w.rw, nil
}
