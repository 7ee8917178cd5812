package socket

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"

	"github.com/mcdev12/pomogame/go/internal/command"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// shortSocketPath keeps the path under the unix socket length limit.
func shortSocketPath(t *testing.T) string {
	t.Helper()
	dir, err := os.MkdirTemp("", "pg")
	if err != nil {
		t.Fatalf("mkdir temp: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })
	return filepath.Join(dir, SocketName)
}

func startListener(t *testing.T, path string) (*Listener, context.CancelFunc, <-chan error) {
	t.Helper()
	cfg := DefaultListenerConfig()
	cfg.Path = path
	cfg.ReadTimeout = time.Second

	l, err := NewListener(cfg)
	if err != nil {
		t.Fatalf("NewListener: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Start(ctx) }()
	return l, cancel, done
}

func stopListener(t *testing.T, cancel context.CancelFunc, done <-chan error) {
	t.Helper()
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Start returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("listener did not stop")
	}
}

func TestPath(t *testing.T) {
	t.Setenv("POMOGAME_SOCKET", "")
	t.Setenv("XDG_RUNTIME_DIR", "/run/user/1000")
	if got, want := Path(), "/run/user/1000/uair.sock"; got != want {
		t.Errorf("Path() = %q, want %q", got, want)
	}

	t.Setenv("POMOGAME_SOCKET", "/var/run/custom.sock")
	if got, want := Path(), "/var/run/custom.sock"; got != want {
		t.Errorf("Path() with override = %q, want %q", got, want)
	}
}

func TestPath_Fallbacks(t *testing.T) {
	t.Setenv("POMOGAME_SOCKET", "")
	t.Setenv("XDG_RUNTIME_DIR", "")
	os.Unsetenv("XDG_RUNTIME_DIR")
	t.Setenv("TMPDIR", "/scratch")
	if got, want := Path(), "/scratch/uair.sock"; got != want {
		t.Errorf("Path() = %q, want %q", got, want)
	}

	os.Unsetenv("TMPDIR")
	if got, want := Path(), "/tmp/uair.sock"; got != want {
		t.Errorf("Path() = %q, want %q", got, want)
	}
}

func TestListener_DeliversCommand(t *testing.T) {
	path := shortSocketPath(t)
	l, cancel, done := startListener(t, path)
	defer stopListener(t, cancel, done)

	want := command.Command{Kind: command.KindJump, ID: "rest"}
	conn, err := Send(path, want)
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	defer conn.Close()

	select {
	case req := <-l.Requests():
		if diff := cmp.Diff(want, req.Command); diff != "" {
			t.Errorf("command mismatch (-want +got):\n%s", diff)
		}
		if _, err := req.Conn.Write([]byte("ok\x00")); err != nil {
			t.Fatalf("reply: %v", err)
		}
		req.Conn.Close()
	case <-time.After(2 * time.Second):
		t.Fatal("no request delivered")
	}

	frames := NewFrameReader(conn)
	if !frames.Scan() {
		t.Fatalf("no reply frame: %v", frames.Err())
	}
	if got := frames.Text(); got != "ok" {
		t.Errorf("reply = %q, want %q", got, "ok")
	}
}

func TestListener_RejectsBadCommand(t *testing.T) {
	path := shortSocketPath(t)
	l, cancel, done := startListener(t, path)
	defer stopListener(t, cancel, done)

	conn, err := Dial(path)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()
	if _, err := conn.Write([]byte("{\"kind\":\"detonate\"}\x00")); err != nil {
		t.Fatalf("write: %v", err)
	}

	// the daemon closes the connection without a reply
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, err := conn.Read(make([]byte, 1)); !errors.Is(err, io.EOF) {
		t.Errorf("read after bad command = %v, want EOF", err)
	}

	select {
	case req := <-l.Requests():
		t.Errorf("unexpected request %+v", req.Command)
	default:
	}
}

func TestListener_ShutdownRemovesSocket(t *testing.T) {
	path := shortSocketPath(t)
	_, cancel, done := startListener(t, path)

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("socket file missing: %v", err)
	}

	stopListener(t, cancel, done)

	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("socket file still present after shutdown: %v", err)
	}
}

func TestListener_ReplacesStaleSocket(t *testing.T) {
	path := shortSocketPath(t)
	if err := os.WriteFile(path, nil, 0o600); err != nil {
		t.Fatalf("write stale file: %v", err)
	}
	_, cancel, done := startListener(t, path)
	stopListener(t, cancel, done)
}

func TestFrameReader(t *testing.T) {
	t.Parallel()

	r := NewFrameReader(strings.NewReader("Work: 24:59\n\x00Work: 24:58\n\x00tail"))
	var got []string
	for r.Scan() {
		got = append(got, r.Text())
	}
	if err := r.Err(); err != nil {
		t.Fatalf("scan: %v", err)
	}
	want := []string{"Work: 24:59\n", "Work: 24:58\n", "tail"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("frames mismatch (-want +got):\n%s", diff)
	}
}

func TestListener_CloseWithoutStart(t *testing.T) {
	path := shortSocketPath(t)
	cfg := DefaultListenerConfig()
	cfg.Path = path

	l, err := NewListener(cfg)
	if err != nil {
		t.Fatalf("NewListener: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("socket file still present after Close: %v", err)
	}
}
