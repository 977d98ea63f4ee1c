package control

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"earworm/internal/domain"
)

func TestHubBroadcastsEventsAndAcceptsCommands(t *testing.T) {
	t.Parallel()

	ctrl := &fakeController{}
	ctrl.setPreview(domain.PreviewView{SessionID: "s1", Text: "Draft."})
	srv := newTestServer(ctrl, nil, "")
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	conn := dialHub(t, ts.URL)
	defer conn.Close()

	initial := readEvent(t, conn)
	if initial.Type != "state" || initial.State != domain.SessionStateIdle || initial.Preview == nil || initial.Preview.Text != "Draft." {
		t.Fatalf("unexpected initial snapshot: %+v", initial)
	}

	waitForClients(t, srv.hub, 1)
	srv.hub.SessionStateChanged(domain.SessionStateRecording, domain.SessionReasonRecordingStarted)
	srv.hub.SessionError(domain.ErrorCodeCapture, "no mic")

	if e := readEvent(t, conn); e.Type != "state" || e.Reason != domain.SessionReasonRecordingStarted {
		t.Fatalf("unexpected state event: %+v", e)
	}
	if e := readEvent(t, conn); e.Type != "error" || e.Code != domain.ErrorCodeCapture || e.Detail != "no mic" {
		t.Fatalf("unexpected error event: %+v", e)
	}

	if err := conn.WriteJSON(Message{Command: CommandEdit, Text: "Edited."}); err != nil {
		t.Fatalf("write: %v", err)
	}
	var reply Reply
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if err := conn.ReadJSON(&reply); err != nil || !reply.OK || reply.Command != CommandEdit {
		t.Fatalf("unexpected reply: %v %+v", err, reply)
	}
	if calls := ctrl.snapshot(); len(calls) != 1 || calls[0] != "edit:Edited." {
		t.Fatalf("unexpected controller calls: %q", calls)
	}

	if err := conn.WriteJSON(Message{Command: "launch"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	reply = Reply{}
	if err := conn.ReadJSON(&reply); err != nil || reply.OK || !strings.Contains(reply.Error, "unknown command") {
		t.Fatalf("expected unknown command reply, got %v %+v", err, reply)
	}
}

func TestHubForgetsDisconnectedClients(t *testing.T) {
	t.Parallel()

	srv := newTestServer(&fakeController{}, nil, "")
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	conn := dialHub(t, ts.URL)
	readEvent(t, conn)
	waitForClients(t, srv.hub, 1)

	conn.Close()
	waitForClients(t, srv.hub, 0)

	// Broadcasting with no clients is a no-op.
	srv.hub.FinalTranscript("a", "A.")
}

func TestHubDropsSlowClients(t *testing.T) {
	t.Parallel()

	hub := NewHub(nil, slog.New(slog.DiscardHandler))
	c := &client{send: make(chan []byte), done: make(chan struct{}), conn: nil}
	c.closeOnce.Do(func() { close(c.done) })
	hub.clients[c] = struct{}{}

	hub.PreviewChanged(domain.PreviewView{Text: "x"})
	if hub.Clients() != 0 {
		t.Fatal("expected the blocked client to be dropped")
	}
}

func TestHubRefusesForeignOrigins(t *testing.T) {
	t.Parallel()

	ctrl := &fakeController{}
	srv := newTestServer(ctrl, nil, "")
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": {"https://evil.example"}})
	if err == nil {
		conn.Close()
		t.Fatal("expected the handshake to fail for a foreign origin")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %v", resp)
	}
	if srv.hub.Clients() != 0 || len(ctrl.snapshot()) != 0 {
		t.Fatalf("foreign page must not register or command: clients=%d calls=%q", srv.hub.Clients(), ctrl.snapshot())
	}

	local, _, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": {"http://localhost:5173"}})
	if err != nil {
		t.Fatalf("local origin should connect: %v", err)
	}
	defer local.Close()
	readEvent(t, local)
}

func dialHub(t *testing.T, serverURL string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(serverURL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) Event {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var event Event
	if err := conn.ReadJSON(&event); err != nil {
		t.Fatalf("read event: %v", err)
	}
	return event
}

func waitForClients(t *testing.T, hub *Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if hub.Clients() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("expected %d clients, got %d", want, hub.Clients())
}
