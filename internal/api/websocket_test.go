package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nerrad567/thingsd/internal/thing"
)

func dialWS(t *testing.T, httpURL string) *websocket.Conn {
	t.Helper()

	wsURL := "ws" + strings.TrimPrefix(httpURL, "http") + "/api/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dialing %s: %v", wsURL, err)
	}
	resp.Body.Close()
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestWebSocket_ReceivesBroadcasts(t *testing.T) {
	s, ts := newTestServer(t)

	conn := dialWS(t, ts.URL)
	waitForSubscribers(t, s, 1)

	resp := do(t, http.MethodPost, ts.URL+"/", "chuck", "hunter2", map[string]any{"n": 1})
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("POST status = %d, want 201", resp.StatusCode)
	}

	//nolint:errcheck // deadline failure surfaces as a read error
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("reading broadcast frame: %v", err)
	}

	var things []thing.Thing
	if err := json.Unmarshal(msg, &things); err != nil {
		t.Fatalf("decoding broadcast payload: %v", err)
	}
	if len(things) != 1 {
		t.Fatalf("payload has %d things, want 1", len(things))
	}
	if things[0].Who() != "chuck" {
		t.Errorf("who = %q, want chuck", things[0].Who())
	}
}

func TestWebSocket_CloseUnsubscribes(t *testing.T) {
	s, ts := newTestServer(t)

	conn := dialWS(t, ts.URL)
	waitForSubscribers(t, s, 1)

	conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && s.hub.SubscriberCount() > 0 {
		time.Sleep(10 * time.Millisecond)
	}
	if n := s.hub.SubscriberCount(); n != 0 {
		t.Errorf("SubscriberCount() = %d after close, want 0", n)
	}
}
