package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/wricardo/chopsticks/game/engine"
)

func testGame(t *testing.T) *engine.Game {
	t.Helper()
	g, err := engine.NewGame("s1", "alice", engine.CoinFunc(func() bool { return true }))
	if err != nil {
		t.Fatalf("Failed to create game: %v", err)
	}
	g.Join("bob")
	return g
}

func runningHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub(zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)
	return hub
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestNewHub(t *testing.T) {
	hub := NewHub(zerolog.Nop())

	if hub == nil {
		t.Fatal("NewHub() returned nil")
	}
	if hub.sessions == nil {
		t.Error("Hub sessions map is nil")
	}
	if hub.broadcast == nil || hub.register == nil || hub.unregister == nil {
		t.Error("Hub channels must be initialized")
	}
}

func TestHubRegisterClient(t *testing.T) {
	hub := NewHub(zerolog.Nop())

	client := &Client{
		hub:       hub,
		sessionID: "test-session",
		send:      make(chan []byte, 256),
	}

	hub.registerClient(client)

	if !hub.sessions["test-session"][client] {
		t.Error("Client was not registered in session")
	}
	if hub.ClientCount("test-session") != 1 {
		t.Errorf("Expected 1 client in session, got %d", hub.ClientCount("test-session"))
	}
}

func TestHubUnregisterClient(t *testing.T) {
	hub := NewHub(zerolog.Nop())

	client := &Client{
		hub:       hub,
		sessionID: "test-session",
		send:      make(chan []byte, 256),
	}

	hub.registerClient(client)
	hub.unregisterClient(client)

	if _, exists := hub.sessions["test-session"]; exists {
		t.Error("Session should have been cleaned up after last client unregistered")
	}
	if _, ok := <-client.send; ok {
		t.Error("Send channel should be closed")
	}

	// a second unregister is harmless
	hub.unregisterClient(client)
}

func TestHubMultipleClientsInSession(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	sessionID := "multi-client-session"

	client1 := &Client{hub: hub, sessionID: sessionID, send: make(chan []byte, 256)}
	client2 := &Client{hub: hub, sessionID: sessionID, send: make(chan []byte, 256)}

	hub.registerClient(client1)
	hub.registerClient(client2)

	if hub.ClientCount(sessionID) != 2 {
		t.Errorf("Expected 2 clients in session, got %d", hub.ClientCount(sessionID))
	}

	hub.unregisterClient(client1)

	if hub.ClientCount(sessionID) != 1 {
		t.Errorf("Expected 1 client remaining in session, got %d", hub.ClientCount(sessionID))
	}
	if !hub.sessions[sessionID][client2] {
		t.Error("client2 should still be registered")
	}
}

func TestHubBroadcastToSession(t *testing.T) {
	hub := runningHub(t)
	sessionID := "s1"

	client := &Client{hub: hub, sessionID: sessionID, send: make(chan []byte, 256)}
	other := &Client{hub: hub, sessionID: "other", send: make(chan []byte, 256)}
	hub.register <- client
	hub.register <- other

	hub.BroadcastToSession(sessionID, testGame(t))

	select {
	case data := <-client.send:
		var message Message
		if err := json.Unmarshal(data, &message); err != nil {
			t.Fatalf("Failed to unmarshal message: %v", err)
		}
		if message.SessionID != sessionID {
			t.Errorf("Expected sessionID %s, got %s", sessionID, message.SessionID)
		}
		if message.Event != EventStateUpdate {
			t.Errorf("Expected event %q, got %s", EventStateUpdate, message.Event)
		}
		if message.Game == nil || message.Game.Player2 == nil || message.Game.Player2.ID != "bob" {
			t.Errorf("Game not correctly transmitted: %+v", message.Game)
		}
	case <-time.After(time.Second):
		t.Fatal("No message received within timeout")
	}

	select {
	case <-other.send:
		t.Error("Clients of other sessions must not receive the update")
	case <-time.After(20 * time.Millisecond):
	}
}

func TestHubBroadcastEvent(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	done := make(chan bool)

	go func() {
		select {
		case message := <-hub.broadcast:
			if message.SessionID != "event-test" {
				t.Errorf("Expected sessionID 'event-test', got %s", message.SessionID)
			}
			if message.Event != "custom-event" {
				t.Errorf("Expected event 'custom-event', got %s", message.Event)
			}
			if message.Data != "test-data" {
				t.Errorf("Expected data 'test-data', got %v", message.Data)
			}
			done <- true
		case <-time.After(time.Second):
			t.Error("No broadcast message received within timeout")
			done <- false
		}
	}()

	hub.BroadcastEvent("event-test", "custom-event", "test-data")
	<-done
}

func TestHubStop(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()

	client := &Client{hub: hub, sessionID: "s1", send: make(chan []byte, 1)}
	hub.register <- client

	cancel()
	<-stopped

	if _, ok := <-client.send; ok {
		t.Error("Stopping the hub should close client channels")
	}

	// broadcasting after stop must not block
	finished := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			hub.BroadcastToSession("s1", nil)
		}
		close(finished)
	}()
	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("Broadcast blocked after hub stopped")
	}
}

func TestWebSocketUpgrade(t *testing.T) {
	hub := runningHub(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.ServeWS(w, r, r.URL.Query().Get("session"))
	}))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "?session=ws-test"

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Failed to connect to WebSocket: %v", err)
	}

	waitFor(t, func() bool { return hub.ClientCount("ws-test") == 1 }, "client was not registered")

	conn.Close()

	waitFor(t, func() bool { return hub.ClientCount("ws-test") == 0 }, "client was not unregistered after close")
}

func TestWebSocketMessageReceive(t *testing.T) {
	hub := runningHub(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.ServeWS(w, r, r.URL.Query().Get("session"))
	}))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "?session=s1"

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Failed to connect to WebSocket: %v", err)
	}
	defer conn.Close()

	waitFor(t, func() bool { return hub.ClientCount("s1") == 1 }, "client was not registered")

	game := testGame(t)
	if err := game.Attack("alice", engine.Left, engine.Right); err != nil {
		t.Fatalf("Attack failed: %v", err)
	}
	hub.BroadcastToSession("s1", game)

	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, messageData, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("Failed to read WebSocket message: %v", err)
	}

	var message Message
	if err := json.Unmarshal(messageData, &message); err != nil {
		t.Fatalf("Failed to unmarshal message: %v", err)
	}
	if message.SessionID != "s1" {
		t.Errorf("Expected sessionID 's1', got %s", message.SessionID)
	}
	if message.Game.Player2.Right != 2 || message.Game.CurrentTurn != engine.Player2 {
		t.Errorf("Game not correctly received: %+v", message.Game)
	}
}
