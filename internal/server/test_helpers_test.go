package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"werewolf-party/internal/config"
	"werewolf-party/internal/protocol"
	"werewolf-party/internal/record"
	"werewolf-party/internal/room"

	"github.com/gorilla/websocket"
)

func newTestServer(t *testing.T, rosters config.Rosters) *httptest.Server {
	t.Helper()
	return newTestServerWithConfig(t, config.Default(), rosters)
}

func newTestServerWithConfig(t *testing.T, cfg config.Config, rosters config.Rosters) *httptest.Server {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	timings := room.DefaultTimings()
	timings.Tick = 10 * time.Millisecond
	srv := New(cfg, room.NewRegistry(ctx, timings, nil), rosters)

	listener, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Skipf("skipping test; listen unavailable: %v", err)
	}
	ts := &httptest.Server{
		Listener: listener,
		Config:   &http.Server{Handler: srv.Handler()},
	}
	ts.Start()
	t.Cleanup(ts.Close)
	return ts
}

func doRequest(t *testing.T, ts *httptest.Server, method, path string, payload any) *http.Response {
	t.Helper()
	var body *bytes.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(data)
	} else {
		body = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, ts.URL+path, body)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatalf("request %s %s: %v", method, path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return body
}

func createRoom(t *testing.T, ts *httptest.Server, roomID string) {
	t.Helper()
	resp := doRequest(t, ts, http.MethodPost, "/room/"+roomID, nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected status %d, got %d", http.StatusCreated, resp.StatusCode)
	}
}

func wsURL(ts *httptest.Server, roomID string) string {
	return "ws" + strings.TrimPrefix(ts.URL, "http") + "/room/" + roomID + "/ws"
}

func dialRoom(t *testing.T, ts *httptest.Server, roomID string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(ts, roomID), nil)
	if err != nil {
		t.Skipf("skipping test; websocket dial unavailable: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readServerMessage(t *testing.T, conn *websocket.Conn, timeout time.Duration) protocol.ServerMessage {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(timeout))
	_, payload, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read websocket message: %v", err)
	}
	msg, err := protocol.DecodeServer(payload)
	if err != nil {
		t.Fatalf("decode websocket message: %v", err)
	}
	return msg
}

// waitForMessage reads until a message of type kind satisfying match shows
// up, failing after timeout.
func waitForMessage(t *testing.T, conn *websocket.Conn, timeout time.Duration, kind string, match func(protocol.ServerMessage) bool) protocol.ServerMessage {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		msg := readServerMessage(t, conn, time.Until(deadline))
		if msg.Type == kind && (match == nil || match(msg)) {
			return msg
		}
	}
	t.Fatalf("expected %s message within %s", kind, timeout)
	return protocol.ServerMessage{}
}

func sendClientMessage(t *testing.T, conn *websocket.Conn, msg protocol.ClientMessage) {
	t.Helper()
	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal client message: %v", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		t.Fatalf("write client message: %v", err)
	}
}

func addPlayerUpdate(clientID, name string, clock int64) protocol.ClientMessage {
	diff := record.NewDiff(record.SourceLocal)
	diff.Add(record.NewPlayer(clientID, name, record.Vec{}))
	return protocol.Update(clientID, clock, []record.Diff{diff})
}

func snapshotParams(t *testing.T, body map[string]any) map[string]any {
	t.Helper()
	snapshot, ok := body["snapshot"].(map[string]any)
	if !ok {
		t.Fatalf("expected snapshot object, got %#v", body["snapshot"])
	}
	for _, raw := range snapshot {
		entry, _ := raw.(map[string]any)
		rec, _ := entry["record"].(map[string]any)
		if rec["typeName"] == string(record.KindParams) {
			return rec
		}
	}
	t.Fatalf("expected params record in snapshot")
	return nil
}
