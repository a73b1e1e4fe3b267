// Package session represents one browser connection's lifecycle: the
// upgraded WebSocket, its identity, and the FIFO queue of outbound
// frames waiting for the writer.
//
// Sessions decouple the relay pumps from the server: the event loop
// only ever enqueues, and exactly one writer goroutine drains.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	ncerr "ghostbridge/internal/errors"
	"ghostbridge/util"
)

// closeGrace bounds how long a close frame may take to go out.
const closeGrace = time.Second

// Session encapsulates the runtime state of a single browser tab.
type Session struct {
	ID         string
	RemoteAddr string
	Conn       *websocket.Conn
	Logger     *util.Logger
	Opened     time.Time

	mu      sync.Mutex
	pending [][]byte
	closed  bool
	wake    chan struct{} // signalled on enqueue; capacity 1
	done    chan struct{} // closed on Abort
	once    sync.Once
}

// New creates a Session bound to an upgraded connection.
func New(conn *websocket.Conn, remoteAddr string, logger *util.Logger) *Session {
	return &Session{
		ID:         uuid.NewString(),
		RemoteAddr: remoteAddr,
		Conn:       conn,
		Logger:     logger,
		Opened:     time.Now(),
		wake:       make(chan struct{}, 1),
		done:       make(chan struct{}),
	}
}

// ShortID is the first block of the session ID, for log lines.
func (s *Session) ShortID() string {
	if len(s.ID) >= 8 {
		return s.ID[:8]
	}
	return s.ID
}

// Enqueue appends msg to the outbound queue.  It never blocks.
func (s *Session) Enqueue(msg []byte) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ncerr.ErrSessionClosed
	}
	s.pending = append(s.pending, msg)
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
	return nil
}

// Next blocks until a queued message is available or the session is
// aborted.  Messages come out in Enqueue order.
func (s *Session) Next() ([]byte, bool) {
	for {
		select {
		case <-s.done:
			return nil, false
		default:
		}

		s.mu.Lock()
		if len(s.pending) > 0 {
			msg := s.pending[0]
			s.pending[0] = nil
			s.pending = s.pending[1:]
			s.mu.Unlock()
			return msg, true
		}
		s.mu.Unlock()

		select {
		case <-s.done:
			return nil, false
		case <-s.wake:
		}
	}
}

// Pending returns the number of queued, unsent messages.
func (s *Session) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Done is closed once the session has been aborted.
func (s *Session) Done() <-chan struct{} { return s.done }

// Abort stops the writer and rejects further Enqueue calls.  Queued
// messages are discarded.  Safe to call more than once.
func (s *Session) Abort() {
	s.once.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.pending = nil
		s.mu.Unlock()
		close(s.done)
	})
}

// Close aborts the session, sends a close frame with the given code
// and reason (best effort), and closes the socket.
func (s *Session) Close(code int, reason string) {
	s.Abort()
	if s.Conn == nil {
		return
	}
	msg := websocket.FormatCloseMessage(code, reason)
	_ = s.Conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeGrace))
	s.Conn.Close()
}
