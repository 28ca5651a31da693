package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"taskhub-be/internal/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const clusterChannel = "cluster_events"

// clusterPayload is the backplane frame. Exactly one of Room and
// TargetUserID is set, or TargetUserID is "*" for a full broadcast. The
// instance id lets the origin skip its own publications, since local
// delivery already happened before publishing.
type clusterPayload struct {
	InstanceID   string          `json:"instance_id"`
	Room         string          `json:"room,omitempty"`
	TargetUserID string          `json:"target_user_id,omitempty"`
	Message      json.RawMessage `json:"message"`
}

// Hub owns the process-local connection state: which sockets belong to which
// user (multi-device) and which sockets sit in which room. Cross-instance
// fan-out goes through the Redis pub/sub backplane; a nil Redis client
// degrades to single-instance mode.
type Hub struct {
	// Registered clients map: UserID -> list of Clients (multi-device)
	clients map[uuid.UUID][]*Client

	// Room membership: room name -> set of clients
	rooms map[string]map[*Client]bool

	register   chan *Client
	unregister chan *Client

	mu sync.RWMutex

	rdb        *redis.Client
	instanceID string

	logger logger.ILogger
}

func NewHub(rdb *redis.Client, log logger.ILogger) *Hub {
	return &Hub{
		clients:    make(map[uuid.UUID][]*Client),
		rooms:      make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		rdb:        rdb,
		instanceID: uuid.NewString(),
		logger:     log,
	}
}

func (h *Hub) Run() {
	if h.rdb != nil {
		go h.subscribeToRedis()
	} else {
		h.logger.Warn("Hub", "No Redis backplane, running in single-instance mode", nil)
	}

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.UserID] = append(h.clients[client.UserID], client)
			h.mu.Unlock()
			h.logger.Info("Hub", "Client registered", map[string]interface{}{"user_id": client.UserID, "connection_id": client.ConnID})

		case client := <-h.unregister:
			h.mu.Lock()
			h.removeClientLocked(client)
			h.mu.Unlock()
		}
	}
}

// removeClientLocked drops the client from the user map and every room.
// Caller holds h.mu.
func (h *Hub) removeClientLocked(client *Client) {
	if clients, ok := h.clients[client.UserID]; ok {
		for i, c := range clients {
			if c == client {
				h.clients[client.UserID] = append(clients[:i], clients[i+1:]...)
				client.closed = true
				close(client.Send)
				break
			}
		}
		if len(h.clients[client.UserID]) == 0 {
			delete(h.clients, client.UserID)
			h.logger.Info("Hub", "Client completely unregistered", map[string]interface{}{"user_id": client.UserID})
		}
	}

	for room, members := range h.rooms {
		if members[client] {
			delete(members, client)
			if len(members) == 0 {
				delete(h.rooms, room)
			}
		}
	}
}

// JoinRoom is idempotent; joining twice leaves a single membership.
func (h *Hub) JoinRoom(room string, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.rooms[room] == nil {
		h.rooms[room] = make(map[*Client]bool)
	}
	h.rooms[room][client] = true
}

// LeaveRoom on a room the client never joined is a no-op.
func (h *Hub) LeaveRoom(room string, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if members, ok := h.rooms[room]; ok {
		delete(members, client)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
}

// EmitToRoom fans a frame out to every local member of the room, then
// publishes it so other instances reach their own members.
func (h *Hub) EmitToRoom(room string, message []byte) {
	h.emitToRoomLocal(room, nil, message)
	h.publish(clusterPayload{Room: room, Message: message})
}

// EmitToRoomExcept skips one local client (the event originator). Remote
// instances deliver to all of their members; the originator is by
// definition local.
func (h *Hub) EmitToRoomExcept(room string, except *Client, message []byte) {
	h.emitToRoomLocal(room, except, message)
	h.publish(clusterPayload{Room: room, Message: message})
}

// EmitToClient writes to a single connection. A frame for a connection the
// hub has already dropped is discarded; the read loop of a dropped client
// can still dispatch events, and an unguarded write there would hit a
// closed channel.
func (h *Hub) EmitToClient(client *Client, message []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if client.closed {
		return
	}
	h.deliverLocked(client, message)
}

// HasOtherConnections reports whether the user holds a registered
// connection on this instance besides the one given.
func (h *Hub) HasOtherConnections(userID uuid.UUID, except *Client) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients[userID] {
		if c != except {
			return true
		}
	}
	return false
}

// EmitToUser reaches every connection the user holds, on any instance.
func (h *Hub) EmitToUser(userID uuid.UUID, message []byte) {
	h.emitToUserLocal(userID, message)
	h.publish(clusterPayload{TargetUserID: userID.String(), Message: message})
}

// Broadcast reaches every connected client except the originator.
func (h *Hub) Broadcast(except *Client, message []byte) {
	h.mu.RLock()
	for _, clients := range h.clients {
		for _, client := range clients {
			if client == except {
				continue
			}
			h.deliverLocked(client, message)
		}
	}
	h.mu.RUnlock()

	h.publish(clusterPayload{TargetUserID: "*", Message: message})
}

func (h *Hub) emitToRoomLocal(room string, except *Client, message []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.rooms[room] {
		if client == except {
			continue
		}
		h.deliverLocked(client, message)
	}
}

func (h *Hub) emitToUserLocal(userID uuid.UUID, message []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, client := range h.clients[userID] {
		h.deliverLocked(client, message)
	}
}

// deliverLocked pushes onto the client's buffered send channel; a full
// buffer means a stuck consumer, which gets disconnected rather than
// blocking the hub. Caller holds h.mu (read).
func (h *Hub) deliverLocked(client *Client, message []byte) {
	select {
	case client.Send <- message:
	default:
		h.logger.Warn("Hub", "Client send buffer full, dropping connection", map[string]interface{}{"user_id": client.UserID})
		go func() { h.unregister <- client }()
	}
}

func (h *Hub) publish(payload clusterPayload) {
	if h.rdb == nil {
		return
	}
	payload.InstanceID = h.instanceID
	data, _ := json.Marshal(payload)
	if err := h.rdb.Publish(context.Background(), clusterChannel, data).Err(); err != nil {
		h.logger.Warn("Hub", "Backplane publish failed", map[string]interface{}{"error": err.Error()})
	}
}

func (h *Hub) subscribeToRedis() {
	ctx := context.Background()
	pubsub := h.rdb.Subscribe(ctx, clusterChannel)
	defer pubsub.Close()

	h.logger.Info("Hub", "Subscribed to backplane", map[string]interface{}{"channel": clusterChannel, "instance_id": h.instanceID})

	for msg := range pubsub.Channel() {
		var payload clusterPayload
		if err := json.Unmarshal([]byte(msg.Payload), &payload); err != nil {
			h.logger.Warn("Hub", "Backplane message parse error", map[string]interface{}{"error": err.Error()})
			continue
		}

		// Local delivery already happened on the origin instance.
		if payload.InstanceID == h.instanceID {
			continue
		}

		switch {
		case payload.Room != "":
			h.emitToRoomLocal(payload.Room, nil, payload.Message)

		case payload.TargetUserID == "*":
			h.mu.RLock()
			for _, clients := range h.clients {
				for _, client := range clients {
					h.deliverLocked(client, payload.Message)
				}
			}
			h.mu.RUnlock()

		case payload.TargetUserID != "":
			uid, err := uuid.Parse(payload.TargetUserID)
			if err != nil {
				continue
			}
			h.emitToUserLocal(uid, payload.Message)
		}
	}
}
