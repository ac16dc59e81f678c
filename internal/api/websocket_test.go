package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dmoralesv/panel-core/internal/auth"
	"github.com/dmoralesv/panel-core/internal/panel"
)

// dialTestWS starts an httptest server around the router, plants a
// ticket, and dials the WebSocket endpoint.
func dialTestWS(t *testing.T, ts *testServer) *websocket.Conn {
	t.Helper()

	httpSrv := httptest.NewServer(ts.router)
	t.Cleanup(httpSrv.Close)

	ts.srv.tickets.mu.Lock()
	ts.srv.tickets.tickets["test-ticket"] = ticketEntry{
		userID:    ts.operator.ID,
		role:      auth.RoleUser,
		expiresAt: time.Now().Add(time.Minute),
	}
	ts.srv.tickets.mu.Unlock()

	url := "ws" + strings.TrimPrefix(httpSrv.URL, "http") + "/api/v1/ws?ticket=test-ticket"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	if resp != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() {
		conn.Close()
	})

	return conn
}

// readWSMessage reads one message with a deadline.
func readWSMessage(t *testing.T, conn *websocket.Conn) WSMessage {
	t.Helper()

	if err := conn.SetReadDeadline(time.Now().Add(2 * time.Second)); err != nil {
		t.Fatalf("SetReadDeadline() error = %v", err)
	}
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage() error = %v", err)
	}

	var msg WSMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("unmarshalling message %q: %v", data, err)
	}
	return msg
}

func TestHandleWebSocket_RequiresTicket(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/v1/ws", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("no ticket status = %d, want 401", rec.Code)
	}

	rec = ts.do(t, http.MethodGet, "/api/v1/ws?ticket=bogus", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("bogus ticket status = %d, want 401", rec.Code)
	}
}

func TestWebSocket_SubscribeAndBroadcast(t *testing.T) {
	ts := newTestServer(t)
	conn := dialTestWS(t, ts)

	sub := WSMessage{
		Type:    WSTypeSubscribe,
		ID:      "1",
		Payload: WSSubscribePayload{Channels: []string{panel.ChannelLEDChanged}},
	}
	if err := conn.WriteJSON(sub); err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}

	resp := readWSMessage(t, conn)
	if resp.Type != WSTypeResponse || resp.ID != "1" {
		t.Fatalf("subscribe response = %+v", resp)
	}

	ts.srv.hub.Broadcast(panel.ChannelLEDChanged, panel.StateEvent{ID: 2, State: true, Origin: panel.OriginUser})
	// An event on a channel without subscribers must not arrive.
	ts.srv.hub.Broadcast(panel.ChannelSensorReading, panel.ReadingEvent{Value: 42})

	event := readWSMessage(t, conn)
	if event.Type != WSTypeEvent || event.EventType != panel.ChannelLEDChanged {
		t.Fatalf("event = %+v", event)
	}

	payload, ok := event.Payload.(map[string]any)
	if !ok {
		t.Fatalf("payload = %T", event.Payload)
	}
	if payload["id"] != float64(2) || payload["state"] != true || payload["origin"] != "user" {
		t.Errorf("payload = %v", payload)
	}
}

func TestWebSocket_Ping(t *testing.T) {
	ts := newTestServer(t)
	conn := dialTestWS(t, ts)

	if err := conn.WriteJSON(WSMessage{Type: WSTypePing, ID: "p1"}); err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}

	resp := readWSMessage(t, conn)
	if resp.Type != WSTypePong || resp.ID != "p1" {
		t.Errorf("ping response = %+v", resp)
	}
}

func TestWebSocket_UnknownType(t *testing.T) {
	ts := newTestServer(t)
	conn := dialTestWS(t, ts)

	if err := conn.WriteJSON(WSMessage{Type: "bogus", ID: "x"}); err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}

	resp := readWSMessage(t, conn)
	if resp.Type != WSTypeError {
		t.Errorf("response = %+v", resp)
	}
}

func TestHub_UnregisterIsIdempotent(t *testing.T) {
	ts := newTestServer(t)

	client := &WSClient{
		hub:           ts.srv.hub,
		send:          make(chan []byte, 1),
		subscriptions: make(map[string]struct{}),
	}
	ts.srv.hub.Register(client)
	if ts.srv.hub.ClientCount() != 1 {
		t.Fatalf("ClientCount() = %d, want 1", ts.srv.hub.ClientCount())
	}

	ts.srv.hub.Unregister(client)
	ts.srv.hub.Unregister(client) // must not panic on double close
	if ts.srv.hub.ClientCount() != 0 {
		t.Errorf("ClientCount() = %d, want 0", ts.srv.hub.ClientCount())
	}
}

func TestHub_BroadcastSkipsUnsubscribed(t *testing.T) {
	ts := newTestServer(t)

	client := &WSClient{
		hub:           ts.srv.hub,
		send:          make(chan []byte, 1),
		subscriptions: make(map[string]struct{}),
	}
	ts.srv.hub.Register(client)
	t.Cleanup(func() {
		ts.srv.hub.Unregister(client)
	})

	ts.srv.hub.Broadcast(panel.ChannelSensorReading, panel.ReadingEvent{Value: 1})
	select {
	case data := <-client.send:
		t.Errorf("unsubscribed client received %s", data)
	default:
	}
}
