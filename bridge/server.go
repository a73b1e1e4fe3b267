// Package bridge implements the GhostText bridge server: one TCP port
// that answers the extension's discovery request over plain HTTP and
// upgrades to a WebSocket for the editing session.
//
// The server is driven from the editor's thread through New, Start,
// Update and Stop.  Everything else happens on background goroutines:
// one event loop per running server, one goroutine per accepted
// connection, and one writer per session.
package bridge

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"

	"ghostbridge/config"
	ncerr "ghostbridge/internal/errors"
	"ghostbridge/internal/metrics"
	"ghostbridge/internal/session"
	"ghostbridge/protocol"
	"ghostbridge/util"
)

// Options configures a Server.  Nil fields get defaults.
type Options struct {
	Config  *config.Config
	Logger  *util.Logger
	Editor  *Editor            // default: DefaultEditor
	Metrics *metrics.Collector // default: a fresh collector
}

// Server is a GhostText bridge.  The zero value is not usable; call New.
type Server struct {
	cfg      *config.Config
	logger   *util.Logger
	editor   *Editor
	metrics  *metrics.Collector
	upgrader websocket.Upgrader

	sessionMu sync.Mutex
	session   *session.Session

	loopMu   sync.Mutex
	loopDone chan struct{} // closed once the loop and its connections exit
	addr     net.Addr

	shutdownMu sync.Mutex
	shutdown   context.CancelFunc

	changeMu sync.Mutex
	changes  chan protocol.EditorChange

	port atomic.Int64 // bound port, for discovery

	connMu sync.Mutex
	conns  map[net.Conn]struct{}
	connWG sync.WaitGroup
}

// New returns an idle Server.  No network activity happens until Start.
func New(opts Options) *Server {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	logger := opts.Logger
	if logger == nil {
		logger = util.NewLogger(int(util.LogQuiet))
	}
	editor := opts.Editor
	if editor == nil {
		editor = DefaultEditor
	}
	m := opts.Metrics
	if m == nil {
		m = metrics.New()
	}
	return &Server{
		cfg:      cfg,
		logger:   logger,
		editor:   editor,
		metrics:  m,
		upgrader: newUpgrader(cfg.HandshakeTimeout),
		conns:    make(map[net.Conn]struct{}),
	}
}

// Start binds the listening socket and launches the event loop.  The
// bind happens before Start returns, so an address conflict is reported
// here as a *errors.NetworkError.
func (s *Server) Start() error {
	s.loopMu.Lock()
	defer s.loopMu.Unlock()

	if s.loopDone != nil {
		select {
		case <-s.loopDone:
			// The loop exited on its own after an accept failure.
		default:
			return ncerr.ErrAlreadyRunning
		}
	}

	addr := util.FormatAddr(s.cfg.Host, s.cfg.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return ncerr.Wrap("listen", addr, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	changes := make(chan protocol.EditorChange, s.cfg.ChangeBuffer)
	done := make(chan struct{})

	s.shutdownMu.Lock()
	s.shutdown = cancel
	s.shutdownMu.Unlock()

	s.changeMu.Lock()
	s.changes = changes
	s.changeMu.Unlock()

	s.loopDone = done
	s.addr = ln.Addr()
	s.port.Store(int64(util.PortOf(ln.Addr())))

	s.logger.Info("GhostText bridge listening on %s", ln.Addr())
	go s.run(ctx, ln, changes, done)
	return nil
}

// Stop signals the event loop and waits until it and every connection
// goroutine have exited.  It is a no-op when the server is not running
// and may be called concurrently.
func (s *Server) Stop() {
	s.shutdownMu.Lock()
	cancel := s.shutdown
	s.shutdown = nil
	s.shutdownMu.Unlock()
	if cancel != nil {
		cancel()
	}

	s.changeMu.Lock()
	s.changes = nil
	s.changeMu.Unlock()

	s.loopMu.Lock()
	done := s.loopDone
	s.loopMu.Unlock()
	if done == nil {
		return
	}
	<-done

	s.loopMu.Lock()
	stopped := s.loopDone == done
	if stopped {
		s.loopDone = nil
		s.addr = nil
	}
	s.loopMu.Unlock()
	if stopped {
		s.logger.Info("GhostText bridge stopped")
	}
}

// Update sends the editor's buffer to the browser.  selections holds
// [start, end] pairs; any other shape is a bug in the caller and
// panics.  Update never blocks.
func (s *Server) Update(text string, selections [][]int) {
	sels, err := protocol.SelectionsFromPairs(selections)
	if err != nil {
		panic(fmt.Errorf("bridge: update: %w", err))
	}
	s.UpdateChange(protocol.EditorChange{Text: text, Selections: sels})
}

// UpdateChange queues change for the event loop.  It is dropped when
// the server is not running or its change buffer is full.
func (s *Server) UpdateChange(change protocol.EditorChange) {
	s.changeMu.Lock()
	defer s.changeMu.Unlock()
	if s.changes == nil {
		return
	}
	select {
	case s.changes <- change:
	default:
		s.logger.Warn("change buffer full (%d pending), dropping editor update", cap(s.changes))
		s.metrics.UpdateDropped()
	}
}

// Addr returns the bound listen address, or nil when not running.
func (s *Server) Addr() net.Addr {
	s.loopMu.Lock()
	defer s.loopMu.Unlock()
	return s.addr
}

// Running reports whether the event loop is alive.
func (s *Server) Running() bool {
	s.loopMu.Lock()
	done := s.loopDone
	s.loopMu.Unlock()
	if done == nil {
		return false
	}
	select {
	case <-done:
		return false
	default:
		return true
	}
}

// HasSession reports whether a browser session is active.
func (s *Server) HasSession() bool {
	s.sessionMu.Lock()
	defer s.sessionMu.Unlock()
	return s.session != nil
}

func (s *Server) Metrics() *metrics.Collector { return s.metrics }

// ── Event loop ───────────────────────────────────────────────────────

func (s *Server) run(ctx context.Context, ln net.Listener, changes <-chan protocol.EditorChange, done chan struct{}) {
	defer close(done)

	conns := make(chan net.Conn)
	acceptErr := make(chan error, 1)
	quit := make(chan struct{})
	acceptDone := make(chan struct{})
	go func() {
		defer close(acceptDone)
		s.accept(ln, conns, acceptErr, quit)
	}()

loop:
	for {
		select {
		case <-ctx.Done():
			s.logger.Verbose("shutdown requested")
			break loop
		case change := <-changes:
			s.forward(change)
		case conn := <-conns:
			s.dispatch(conn)
		case err := <-acceptErr:
			s.logger.Error("server error: %v", err)
			s.metrics.RecordError(err.Error())
			break loop
		}
	}

	close(quit)
	ln.Close()
	<-acceptDone

	s.closeSession(websocket.CloseGoingAway, "server stopping")
	s.closeConns()
	s.connWG.Wait()
}

func (s *Server) accept(ln net.Listener, conns chan<- net.Conn, errc chan<- error, quit <-chan struct{}) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-quit:
			default:
				errc <- ncerr.Wrap("accept", ln.Addr().String(), err)
			}
			return
		}
		select {
		case conns <- conn:
		case <-quit:
			conn.Close()
			return
		}
	}
}

// dispatch tracks conn and serves it on its own goroutine.  It is only
// called from the loop, so Add never races with Wait.
func (s *Server) dispatch(conn net.Conn) {
	s.connMu.Lock()
	s.conns[conn] = struct{}{}
	s.connMu.Unlock()

	s.connWG.Add(1)
	go func() {
		defer s.connWG.Done()
		defer func() {
			s.connMu.Lock()
			delete(s.conns, conn)
			s.connMu.Unlock()
		}()
		s.handleConn(conn)
	}()
}

func (s *Server) closeConns() {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	for c := range s.conns {
		c.Close()
	}
}

// forward encodes an editor change and queues it on the active session.
func (s *Server) forward(change protocol.EditorChange) {
	data, err := protocol.EncodeEditorChange(change)
	if err != nil {
		s.logger.Error("encode editor change: %v", err)
		return
	}
	sess := s.currentSession()
	if sess == nil {
		s.logger.Debug("no active session, dropping editor update")
		s.metrics.UpdateDropped()
		return
	}
	if err := sess.Enqueue(data); err != nil {
		s.logger.Debug("session %s: %v, dropping editor update", sess.ShortID(), err)
		s.metrics.UpdateDropped()
		return
	}
	s.metrics.UpdateForwarded()
}

// ── Session slot ─────────────────────────────────────────────────────

func (s *Server) currentSession() *session.Session {
	s.sessionMu.Lock()
	defer s.sessionMu.Unlock()
	return s.session
}

// installSession makes sess the active session, closing any previous
// one with a going-away frame.
func (s *Server) installSession(sess *session.Session) {
	s.sessionMu.Lock()
	old := s.session
	s.session = sess
	s.sessionMu.Unlock()

	if old != nil {
		s.logger.Warn("session %s (%s) replaced by %s (%s)",
			old.ShortID(), old.RemoteAddr, sess.ShortID(), sess.RemoteAddr)
		s.metrics.SessionReplaced()
		old.Close(websocket.CloseGoingAway, "replaced by a newer session")
	}
}

// clearSession empties the slot only if it still holds sess.
func (s *Server) clearSession(sess *session.Session) {
	s.sessionMu.Lock()
	defer s.sessionMu.Unlock()
	if s.session == sess {
		s.session = nil
	}
}

func (s *Server) closeSession(code int, reason string) {
	s.sessionMu.Lock()
	sess := s.session
	s.session = nil
	s.sessionMu.Unlock()
	if sess != nil {
		sess.Close(code, reason)
	}
}

func (s *Server) advertisedPort() int {
	if s.cfg.AdvertisePort > 0 {
		return s.cfg.AdvertisePort
	}
	return int(s.port.Load())
}
