package socket

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"net"

	"github.com/mcdev12/pomogame/go/internal/command"
)

// Dial connects to the daemon's control socket.
func Dial(path string) (net.Conn, error) {
	conn, err := net.Dial("unix", path)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", path, err)
	}
	return conn, nil
}

// Send dials path and writes cmd. The caller reads any reply from the
// returned connection and closes it.
func Send(path string, cmd command.Command) (net.Conn, error) {
	conn, err := Dial(path)
	if err != nil {
		return nil, err
	}
	if err := command.Encode(conn, cmd); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}

// MaxFrameSize bounds a single status frame.
const MaxFrameSize = 64 * 1024

// NewFrameReader returns a scanner yielding NUL-terminated frames from r.
// A trailing unterminated frame is returned as well.
func NewFrameReader(r io.Reader) *bufio.Scanner {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 4096), MaxFrameSize)
	s.Split(ScanFrames)
	return s
}

// ScanFrames is a bufio.SplitFunc splitting on the NUL terminator.
func ScanFrames(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexByte(data, command.Terminator); i >= 0 {
		return i + 1, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}
