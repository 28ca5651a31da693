package websocket

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopLogger struct{}

func (nopLogger) Debug(module, message string, details map[string]interface{}) {}
func (nopLogger) Info(module, message string, details map[string]interface{}) {}
func (nopLogger) Warn(module, message string, details map[string]interface{}) {}
func (nopLogger) Error(module, message string, details map[string]interface{}) {}
func (nopLogger) Sync() error { return nil }

// newTestHub starts a hub without a Redis backplane (single-instance mode).
func newTestHub() *Hub {
	hub := NewHub(nil, nopLogger{})
	go hub.Run()
	return hub
}

// newTestClient builds a client that never touches a real socket; the hub
// only interacts with the Send channel.
func newTestClient(hub *Hub, userID uuid.UUID) *Client {
	return &Client{
		Hub:    hub,
		UserID: userID,
		ConnID: uuid.NewString(),
		Send:   make(chan []byte, 16),
	}
}

func registerClient(t *testing.T, hub *Hub, client *Client) {
	t.Helper()
	hub.register <- client
	require.Eventually(t, func() bool {
		hub.mu.RLock()
		defer hub.mu.RUnlock()
		for _, c := range hub.clients[client.UserID] {
			if c == client {
				return true
			}
		}
		return false
	}, time.Second, 5*time.Millisecond)
}

func unregisterClient(t *testing.T, hub *Hub, client *Client) {
	t.Helper()
	hub.unregister <- client
	require.Eventually(t, func() bool {
		hub.mu.RLock()
		defer hub.mu.RUnlock()
		for _, c := range hub.clients[client.UserID] {
			if c == client {
				return false
			}
		}
		return true
	}, time.Second, 5*time.Millisecond)
}

func recvFrame(t *testing.T, client *Client) []byte {
	t.Helper()
	select {
	case frame := <-client.Send:
		return frame
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for frame")
		return nil
	}
}

func assertNoFrame(t *testing.T, client *Client) {
	t.Helper()
	select {
	case frame := <-client.Send:
		t.Fatalf("unexpected frame: %s", frame)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHubEmitToUserMultiDevice(t *testing.T) {
	hub := newTestHub()
	userID := uuid.New()

	phone := newTestClient(hub, userID)
	laptop := newTestClient(hub, userID)
	registerClient(t, hub, phone)
	registerClient(t, hub, laptop)

	frame := Envelope(EventMessageNew, map[string]string{"hello": "world"})
	hub.EmitToUser(userID, frame)

	assert.Equal(t, frame, recvFrame(t, phone))
	assert.Equal(t, frame, recvFrame(t, laptop))
}

func TestHubRoomFanOut(t *testing.T) {
	hub := newTestHub()

	alice := newTestClient(hub, uuid.New())
	bob := newTestClient(hub, uuid.New())
	outsider := newTestClient(hub, uuid.New())

	room := roomName(uuid.NewString())
	hub.JoinRoom(room, alice)
	hub.JoinRoom(room, bob)

	frame := Envelope(EventMessageNew, map[string]string{"content": "hi"})
	hub.EmitToRoom(room, frame)

	assert.Equal(t, frame, recvFrame(t, alice))
	assert.Equal(t, frame, recvFrame(t, bob))
	assertNoFrame(t, outsider)
}

func TestHubEmitToRoomExceptSkipsOriginator(t *testing.T) {
	hub := newTestHub()

	alice := newTestClient(hub, uuid.New())
	bob := newTestClient(hub, uuid.New())

	room := roomName(uuid.NewString())
	hub.JoinRoom(room, alice)
	hub.JoinRoom(room, bob)

	frame := Envelope(EventTypingUpdate, map[string]bool{"typing": true})
	hub.EmitToRoomExcept(room, alice, frame)

	assert.Equal(t, frame, recvFrame(t, bob))
	assertNoFrame(t, alice)
}

func TestHubJoinRoomIdempotent(t *testing.T) {
	hub := newTestHub()

	alice := newTestClient(hub, uuid.New())
	room := roomName(uuid.NewString())

	hub.JoinRoom(room, alice)
	hub.JoinRoom(room, alice)

	hub.EmitToRoom(room, Envelope(EventMessageNew, nil))

	recvFrame(t, alice)
	assertNoFrame(t, alice) // one membership, one delivery
}

func TestHubLeaveRoom(t *testing.T) {
	hub := newTestHub()

	alice := newTestClient(hub, uuid.New())
	room := roomName(uuid.NewString())

	hub.JoinRoom(room, alice)
	hub.LeaveRoom(room, alice)

	hub.EmitToRoom(room, Envelope(EventMessageNew, nil))
	assertNoFrame(t, alice)

	// Leaving a room never joined is a no-op.
	hub.LeaveRoom(roomName(uuid.NewString()), alice)
}

func TestHubBroadcastExceptsOriginator(t *testing.T) {
	hub := newTestHub()

	alice := newTestClient(hub, uuid.New())
	bob := newTestClient(hub, uuid.New())
	registerClient(t, hub, alice)
	registerClient(t, hub, bob)

	frame := Envelope(EventUserOnline, map[string]string{"userId": alice.UserID.String()})
	hub.Broadcast(alice, frame)

	assert.Equal(t, frame, recvFrame(t, bob))
	assertNoFrame(t, alice)
}

func TestHubUnregisterCleansRooms(t *testing.T) {
	hub := newTestHub()

	alice := newTestClient(hub, uuid.New())
	registerClient(t, hub, alice)

	room := roomName(uuid.NewString())
	hub.JoinRoom(room, alice)

	hub.unregister <- alice

	require.Eventually(t, func() bool {
		hub.mu.RLock()
		defer hub.mu.RUnlock()
		_, hasUser := hub.clients[alice.UserID]
		_, hasRoom := hub.rooms[room]
		return !hasUser && !hasRoom
	}, time.Second, 5*time.Millisecond)

	// The hub closed the channel on unregister.
	_, open := <-alice.Send
	assert.False(t, open)
}

func TestHubEmitToClientDiscardsAfterDrop(t *testing.T) {
	hub := newTestHub()

	alice := newTestClient(hub, uuid.New())
	registerClient(t, hub, alice)

	frame := Envelope(EventMessageNew, nil)
	hub.EmitToClient(alice, frame)
	assert.Equal(t, frame, recvFrame(t, alice))

	unregisterClient(t, hub, alice)

	// Send is closed now; the emit is dropped instead of panicking.
	hub.EmitToClient(alice, frame)
}

func TestHubHasOtherConnections(t *testing.T) {
	hub := newTestHub()
	userID := uuid.New()

	phone := newTestClient(hub, userID)
	laptop := newTestClient(hub, userID)
	registerClient(t, hub, phone)
	registerClient(t, hub, laptop)

	assert.True(t, hub.HasOtherConnections(userID, phone))

	unregisterClient(t, hub, laptop)
	assert.False(t, hub.HasOtherConnections(userID, phone))
	assert.False(t, hub.HasOtherConnections(uuid.New(), nil))
}

func TestHubDropsStuckConsumer(t *testing.T) {
	hub := newTestHub()

	stuck := &Client{
		Hub:    hub,
		UserID: uuid.New(),
		ConnID: uuid.NewString(),
		Send:   make(chan []byte), // no buffer, nobody reading
	}
	registerClient(t, hub, stuck)

	hub.EmitToUser(stuck.UserID, Envelope(EventMessageNew, nil))

	require.Eventually(t, func() bool {
		hub.mu.RLock()
		defer hub.mu.RUnlock()
		_, ok := hub.clients[stuck.UserID]
		return !ok
	}, time.Second, 5*time.Millisecond)
}
