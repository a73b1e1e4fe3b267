package bridge

import (
	"time"

	"github.com/gorilla/websocket"

	"ghostbridge/internal/session"
	"ghostbridge/protocol"
	"ghostbridge/util"
)

// relay runs one browser session until the peer goes away, the session
// is replaced, or the server stops.  The calling connection goroutine
// is the reader; a second goroutine writes queued editor changes.
func (s *Server) relay(ws *websocket.Conn, remote string) {
	sess := session.New(ws, remote, s.logger)
	s.installSession(sess)
	s.metrics.SessionOpened()
	s.logger.Info("WebSocket connection from %s (session %s)", remote, sess.ShortID())

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		s.writePump(sess)
	}()

	s.readPump(sess)

	// The reader has ended: updates must stop targeting this session
	// before the writer is aborted.
	s.clearSession(sess)
	sess.Abort()
	ws.Close()
	<-writerDone

	s.metrics.SessionClosed()
	s.logger.Info("session %s with %s closed after %s",
		sess.ShortID(), remote, time.Since(sess.Opened).Round(time.Millisecond))
}

// readPump decodes browser changes and hands their text to the editor.
func (s *Server) readPump(sess *session.Session) {
	for {
		kind, data, err := sess.Conn.ReadMessage()
		if err != nil {
			s.readEnded(sess, err)
			return
		}
		if kind != websocket.TextMessage {
			s.logger.Debug("session %s: ignoring non-text frame (type %d)", sess.ShortID(), kind)
			continue
		}
		s.metrics.FrameReceived()

		change, err := protocol.DecodeBrowserChange(data)
		if err != nil {
			s.logger.Warn("failed to deserialize message from %s: %v", sess.RemoteAddr, err)
			s.metrics.MalformedFrame()
			continue
		}
		s.logger.Debug("session %s: %d bytes of text from %s (%d selections)",
			sess.ShortID(), len(change.Text), change.URL, len(change.Selections))

		if err := s.editor.WriteBuffer(change.Text); err != nil {
			s.logger.Error("browser change from %s not delivered: %v", sess.RemoteAddr, err)
			s.metrics.RecordError(err.Error())
		}
	}
}

func (s *Server) readEnded(sess *session.Session, err error) {
	select {
	case <-sess.Done():
		// Replaced or shut down; the close was ours.
		s.logger.Verbose("session %s ended: %v", sess.ShortID(), err)
		return
	default:
	}

	switch {
	case websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseNoStatusReceived):
		s.logger.Info("browser closed session %s", sess.ShortID())
	case util.IsHarmless(err):
		s.logger.Verbose("session %s: connection dropped: %v", sess.ShortID(), err)
	default:
		s.logger.Error("failed to read message from %s: %v", sess.RemoteAddr, err)
		s.metrics.RecordError(err.Error())
	}
}

// writePump sends queued editor changes in FIFO order, one text frame
// each.  It returns when the session is aborted or a write fails.
func (s *Server) writePump(sess *session.Session) {
	for {
		msg, ok := sess.Next()
		if !ok {
			return
		}
		sess.Conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout)) //nolint:errcheck
		if err := sess.Conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			select {
			case <-sess.Done():
				s.logger.Debug("session %s: writer stopped: %v", sess.ShortID(), err)
			default:
				s.logger.Error("failed to send message to %s: %v", sess.RemoteAddr, err)
				s.metrics.RecordError(err.Error())
			}
			return
		}
		s.metrics.FrameSent()
	}
}
