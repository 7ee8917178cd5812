package gateway

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/gorilla/websocket"
	"go.uber.org/goleak"

	"github.com/mcdev12/pomogame/go/internal/app"
	"github.com/mcdev12/pomogame/go/internal/broadcast"
	"github.com/mcdev12/pomogame/go/internal/session"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func testSession() *session.Session {
	return &session.Session{
		ID:               "work",
		Name:             "Work",
		Duration:         25 * time.Minute,
		Format:           "{name} {time}",
		TimeFormat:       "%M:%S",
		ResumedStateText: ">",
		Overrides: map[string]session.Override{
			"bar": {Format: "[{time}]"},
		},
	}
}

type fakeStatus struct {
	sess *session.Session
}

func (f *fakeStatus) Status() app.Status {
	return app.Status{SessionID: f.sess.ID, SessionName: f.sess.Name, State: "resumed", Time: "1m30s"}
}

func (f *fakeStatus) WriteCurrent(w io.Writer, override string) error {
	return broadcast.WriteOnce(w, f.sess, 90*time.Second, session.PhaseRunning, override)
}

func newTestServer(t *testing.T) (*Server, *broadcast.Broadcaster, *httptest.Server) {
	t.Helper()
	bc := broadcast.New(nil, true)
	srv := NewServer("", DefaultConnectionConfig(), &fakeStatus{sess: testSession()}, bc)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		srv.Manager().CloseAll()
		ts.Close()
	})
	return srv, bc, ts
}

func dialListen(t *testing.T, ts *httptest.Server, override string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/listen"
	if override != "" {
		url += "?override=" + override
	}
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	_ = resp.Body.Close()
	return conn
}

func readText(t *testing.T, conn *websocket.Conn) string {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	kind, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	if kind != websocket.TextMessage {
		t.Fatalf("message type = %d, want text", kind)
	}
	return string(msg)
}

func eventually(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting: %s", msg)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestListen_StreamsFrames(t *testing.T) {
	srv, bc, ts := newTestServer(t)

	conn := dialListen(t, ts, "bar")
	defer conn.Close()

	if got, want := readText(t, conn), "[01:30]"; got != want {
		t.Errorf("initial frame = %q, want %q", got, want)
	}
	eventually(t, func() bool { return bc.Len() == 1 }, "sink registered")
	if got := srv.Manager().Count(); got != 1 {
		t.Errorf("Count = %d, want 1", got)
	}

	if err := bc.Write(testSession(), 89*time.Second, session.PhaseRunning); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if got, want := readText(t, conn), "[01:29]"; got != want {
		t.Errorf("frame = %q, want %q", got, want)
	}
}

func TestListen_DefaultFormat(t *testing.T) {
	_, bc, ts := newTestServer(t)

	conn := dialListen(t, ts, "")
	defer conn.Close()

	if got, want := readText(t, conn), "Work 01:30"; got != want {
		t.Errorf("initial frame = %q, want %q", got, want)
	}
	eventually(t, func() bool { return bc.Len() == 1 }, "sink registered")

	if err := bc.Write(testSession(), 5*time.Second, session.PhaseRunning); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if got, want := readText(t, conn), "Work 00:05"; got != want {
		t.Errorf("frame = %q, want %q", got, want)
	}
}

func TestListen_ClientDisconnectPrunesSink(t *testing.T) {
	srv, bc, ts := newTestServer(t)

	conn := dialListen(t, ts, "")
	readText(t, conn)
	eventually(t, func() bool { return bc.Len() == 1 }, "sink registered")

	_ = conn.Close()
	eventually(t, func() bool { return srv.Manager().Count() == 0 }, "connection unregistered")

	if err := bc.Write(testSession(), time.Second, session.PhaseRunning); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if got := bc.Len(); got != 0 {
		t.Errorf("sinks after disconnect = %d, want 0", got)
	}
}

func TestHandleState(t *testing.T) {
	_, _, ts := newTestServer(t)

	resp, err := ts.Client().Get(ts.URL + "/api/state")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}

	var got app.Status
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := app.Status{SessionID: "work", SessionName: "Work", State: "resumed", Time: "1m30s"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("status mismatch (-want +got):\n%s", diff)
	}
}

func TestHandleState_RejectsPost(t *testing.T) {
	_, _, ts := newTestServer(t)

	resp, err := ts.Client().Post(ts.URL+"/api/state", "application/json", strings.NewReader("{}"))
	if err != nil {
		t.Fatalf("Post: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", resp.StatusCode)
	}
}

func TestHealthAndStats(t *testing.T) {
	_, _, ts := newTestServer(t)

	resp, err := ts.Client().Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || string(body) != "OK" {
		t.Errorf("health = %d %q", resp.StatusCode, body)
	}

	resp, err = ts.Client().Get(ts.URL + "/ws/stats")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	defer resp.Body.Close()
	var stats map[string]int
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if diff := cmp.Diff(map[string]int{"websocket_connections": 0}, stats); diff != "" {
		t.Errorf("stats mismatch (-want +got):\n%s", diff)
	}
}

func TestServe_ShutdownClosesListeners(t *testing.T) {
	bc := broadcast.New(nil, true)
	srv := NewServer("", DefaultConnectionConfig(), &fakeStatus{sess: testSession()}, bc)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	conn, resp, err := websocket.DefaultDialer.Dial("ws://"+ln.Addr().String()+"/ws/listen", nil)
	if err != nil {
		cancel()
		<-done
		t.Fatalf("Dial: %v", err)
	}
	_ = resp.Body.Close()
	defer conn.Close()
	readText(t, conn)

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if _, _, err := conn.ReadMessage(); !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
		t.Errorf("ReadMessage after shutdown = %v, want normal close", err)
	}
}
