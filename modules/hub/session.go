package hub

import (
	"sync"

	"github.com/gofiber/contrib/websocket"

	"github.com/example/community-chat/domain/chat"
)

// wsConn is the slice of *websocket.Conn the hub needs. Tests swap in
// an in-memory implementation.
type wsConn interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

const sendBufferSize = 256

// Session is one authenticated websocket connection. The user identity
// is bound at upgrade time and never changes for the lifetime of the
// session.
type Session struct {
	ID   string
	User *chat.User

	conn      wsConn
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func newSession(id string, user *chat.User, conn wsConn) *Session {
	return &Session{
		ID:   id,
		User: user,
		conn: conn,
		send: make(chan []byte, sendBufferSize),
		done: make(chan struct{}),
	}
}

// queue hands a frame to the write pump without blocking. Frames to a
// session that cannot keep up are dropped.
func (s *Session) queue(frame []byte) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.send <- frame:
		return true
	default:
		return false
	}
}

// writePump is the single writer goroutine for the connection.
func (s *Session) writePump() {
	for {
		select {
		case frame := <-s.send:
			if err := s.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				s.close()
				return
			}
		case <-s.done:
			return
		}
	}
}

func (s *Session) close() {
	s.closeOnce.Do(func() {
		close(s.done)
		s.conn.Close()
	})
}
