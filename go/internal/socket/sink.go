package socket

import (
	"net"
	"time"
)

// DefaultWriteTimeout bounds a single frame write to a control connection.
const DefaultWriteTimeout = time.Second

// Sink wraps a control connection so every write carries a deadline. A peer
// that stops reading gets a timeout error instead of blocking the writer.
type Sink struct {
	conn    net.Conn
	timeout time.Duration
}

func NewSink(conn net.Conn, timeout time.Duration) *Sink {
	return &Sink{conn: conn, timeout: timeout}
}

func (s *Sink) Write(p []byte) (int, error) {
	if s.timeout > 0 {
		if err := s.conn.SetWriteDeadline(time.Now().Add(s.timeout)); err != nil {
			return 0, err
		}
	}
	return s.conn.Write(p)
}

// Close closes the underlying connection.
func (s *Sink) Close() error {
	return s.conn.Close()
}
