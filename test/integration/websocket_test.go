// Package integration contains integration tests for the chat relay.
//
// These tests verify complete system behavior with real HTTP servers and
// WebSocket connections: upgrade handling, event relay semantics, and
// malformed input tolerance.
package integration

import (
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"chat-relay/internal/server"
	"chat-relay/test/testhelpers"
)

// newRelayServer builds a fresh registry, hub, and HTTP server for one test.
func newRelayServer(t *testing.T) (*server.Hub, *httptest.Server) {
	t.Helper()

	server.SetConfig(nil)
	hub := server.NewHub(server.NewRegistry())
	go hub.Run()

	testServer := httptest.NewServer(server.SetupRoutes(hub))
	t.Cleanup(func() {
		testServer.Close()
		if err := hub.Shutdown(2 * time.Second); err != nil {
			t.Logf("Hub shutdown: %v", err)
		}
	})

	return hub, testServer
}

func socketURL(t *testing.T, baseURL string) string {
	t.Helper()
	u, err := url.Parse(baseURL)
	if err != nil {
		t.Fatalf("Failed to parse test server URL: %v", err)
	}
	u.Scheme = "ws"
	u.Path = "/api/socket"
	return u.String()
}

// connectClients dials n connections and waits briefly so all of them are
// registered with the hub before any fan-out begins.
func connectClients(t *testing.T, wsURL string, n int) []*websocket.Conn {
	t.Helper()

	conns := make([]*websocket.Conn, 0, n)
	for i := 0; i < n; i++ {
		conn, err := testhelpers.ConnectWebSocket(wsURL)
		if err != nil {
			t.Fatalf("Failed to connect client %d: %v", i, err)
		}
		t.Cleanup(func() { _ = conn.Close() })
		conns = append(conns, conn)
	}

	time.Sleep(100 * time.Millisecond)
	return conns
}

func expectNoFrame(t *testing.T, conn *websocket.Conn, timeout time.Duration) {
	t.Helper()
	if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		t.Fatalf("Failed to set read deadline: %v", err)
	}
	_, _, err := conn.ReadMessage()
	if err == nil {
		t.Fatalf("Expected no frame, but received one")
	}
	if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
		return
	}
	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		return
	}
	t.Fatalf("Unexpected error while waiting for absence of frame: %v", err)
}

func TestWebSocketUpgrade(t *testing.T) {
	_, testServer := newRelayServer(t)
	wsURL := socketURL(t, testServer.URL)

	dialer := websocket.Dialer{HandshakeTimeout: 5 * time.Second}
	conn, resp, err := dialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Failed to connect to WebSocket: %v", err)
	}
	defer func() { _ = conn.Close() }()
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusSwitchingProtocols {
		t.Errorf("Expected status %d, got %d", http.StatusSwitchingProtocols, resp.StatusCode)
	}
}

func TestWebSocketAcceptsCrossOrigin(t *testing.T) {
	_, testServer := newRelayServer(t)
	wsURL := socketURL(t, testServer.URL)

	headers := http.Header{}
	headers.Set("Origin", "http://some-other-site.example")

	dialer := websocket.Dialer{HandshakeTimeout: 5 * time.Second}
	conn, resp, err := dialer.Dial(wsURL, headers)
	if resp != nil {
		defer func() { _ = resp.Body.Close() }()
	}
	if err != nil {
		t.Fatalf("Cross-origin connection should be accepted, got: %v", err)
	}
	_ = conn.Close()
}

func TestSendMessageScenario(t *testing.T) {
	// A sends while B and C are connected: all three, including A, receive
	// the fabricated message.
	_, testServer := newRelayServer(t)
	conns := connectClients(t, socketURL(t, testServer.URL), 3)

	if err := testhelpers.SendEvent(conns[0], server.EventSendMessage,
		server.SendMessagePayload{Sender: "alice", Text: "hi"}); err != nil {
		t.Fatalf("Failed to send message: %v", err)
	}

	for i, conn := range conns {
		frame := testhelpers.ReadFrame(t, conn, 2*time.Second)
		if frame.Event != server.EventReceiveMessage {
			t.Fatalf("Client %d: expected %q event, got %q", i, server.EventReceiveMessage, frame.Event)
		}

		var message server.ChatMessage
		testhelpers.DecodeData(t, frame, &message)

		if message.ID == "" {
			t.Errorf("Client %d: message id is empty", i)
		}
		if message.Sender != "alice" || message.Text != "hi" {
			t.Errorf("Client %d: unexpected message %+v", i, message)
		}
		if len(message.SeenBy) != 1 || message.SeenBy[0] != "alice" {
			t.Errorf("Client %d: expected seenBy [alice], got %v", i, message.SeenBy)
		}
	}
}

func TestRegisterAndDisconnectUpdateRegistry(t *testing.T) {
	hub, testServer := newRelayServer(t)
	conns := connectClients(t, socketURL(t, testServer.URL), 2)

	if err := testhelpers.SendEvent(conns[0], server.EventRegisterUser, "alice"); err != nil {
		t.Fatalf("Failed to register: %v", err)
	}
	if err := testhelpers.SendEvent(conns[1], server.EventRegisterUser, "bob"); err != nil {
		t.Fatalf("Failed to register: %v", err)
	}

	waitForCondition(t, 2*time.Second, func() bool { return hub.Registry().Count() == 2 },
		"registry should contain both connections")

	if err := conns[1].Close(); err != nil {
		t.Logf("Close error: %v", err)
	}

	waitForCondition(t, 2*time.Second, func() bool { return hub.Registry().Count() == 1 },
		"disconnect should remove the registry entry")
}

func TestMalformedFramesAreDroppedAndConnectionSurvives(t *testing.T) {
	_, testServer := newRelayServer(t)
	conns := connectClients(t, socketURL(t, testServer.URL), 2)

	malformed := [][]byte{
		[]byte(`not json at all`),
		[]byte(`{"no":"event field"}`),
		[]byte(`{"event":"sendMessage","data":"garbage-not-an-object"}`),
		[]byte(`{"event":"someUnknownEvent","data":"x"}`),
	}
	for _, payload := range malformed {
		if err := testhelpers.SendRawMessage(conns[0], payload); err != nil {
			t.Fatalf("Failed to send raw frame: %v", err)
		}
	}

	// Nothing reaches the other client.
	expectNoFrame(t, conns[1], 300*time.Millisecond)

	// The offending connection is still usable.
	if err := testhelpers.SendEvent(conns[0], server.EventSendMessage,
		server.SendMessagePayload{Sender: "alice", Text: "still alive"}); err != nil {
		t.Fatalf("Failed to send valid message after malformed input: %v", err)
	}

	frame := testhelpers.ReadFrame(t, conns[1], 2*time.Second)
	if frame.Event != server.EventReceiveMessage {
		t.Fatalf("Expected %q event, got %q", server.EventReceiveMessage, frame.Event)
	}
	var message server.ChatMessage
	testhelpers.DecodeData(t, frame, &message)
	if message.Text != "still alive" {
		t.Errorf("Expected text %q, got %q", "still alive", message.Text)
	}
}

func waitForCondition(t *testing.T, timeout time.Duration, condition func() bool, message string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal(message)
}
