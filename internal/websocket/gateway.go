package websocket

import (
	"context"
	"encoding/json"

	"taskhub-be/internal/pkg/logger"
	"taskhub-be/internal/repository/contract"
	"taskhub-be/internal/service"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

// Gateway drives the per-connection protocol on top of the hub: membership
// gating, room fan-out, presence updates and the online/offline broadcasts.
// One instance is shared by every connection.
type Gateway struct {
	hub      *Hub
	chat     service.IChatService
	presence contract.PresenceStore
	logger   logger.ILogger
}

func NewGateway(hub *Hub, chat service.IChatService, presence contract.PresenceStore, log logger.ILogger) *Gateway {
	return &Gateway{
		hub:      hub,
		chat:     chat,
		presence: presence,
		logger:   log,
	}
}

func (g *Gateway) Hub() *Hub {
	return g.hub
}

// HandleConnection runs the full lifecycle of an authenticated socket. It
// blocks until the connection closes; the caller owns the goroutine.
func (g *Gateway) HandleConnection(conn *websocket.Conn, userID uuid.UUID) {
	client := &Client{
		Hub:     g.hub,
		Conn:    conn,
		UserID:  userID,
		ConnID:  uuid.NewString(),
		Send:    make(chan []byte, 256),
		onEvent: g.dispatch,
		onPong:  g.refreshPresence,
	}

	g.hub.register <- client

	ctx := context.Background()
	if err := g.presence.SetOnline(ctx, userID, client.ConnID); err != nil {
		// Presence is advisory; the socket stays up without it.
		g.logger.Warn("Gateway", "SetOnline failed", map[string]interface{}{"user_id": userID, "error": err.Error()})
	}

	g.hub.Broadcast(client, Envelope(EventUserOnline, map[string]interface{}{"userId": userID}))

	go client.writePump()
	client.readPump() // blocks for the lifetime of the connection

	g.handleDisconnect(client)
}

// handleDisconnect tears down shared state once the transport is gone. The
// presence record and the offline broadcast are keyed on the user, not the
// connection, so they only go when the last device drops.
func (g *Gateway) handleDisconnect(client *Client) {
	if g.hub.HasOtherConnections(client.UserID, client) {
		return
	}

	if err := g.presence.SetOffline(context.Background(), client.UserID); err != nil {
		g.logger.Warn("Gateway", "SetOffline failed", map[string]interface{}{"user_id": client.UserID, "error": err.Error()})
	}
	g.hub.Broadcast(client, Envelope(EventUserOffline, map[string]interface{}{"userId": client.UserID}))
}

func (g *Gateway) refreshPresence(client *Client) {
	if err := g.presence.RefreshOnline(context.Background(), client.UserID); err != nil {
		g.logger.Warn("Gateway", "Presence refresh failed", map[string]interface{}{"user_id": client.UserID, "error": err.Error()})
	}
}

type conversationPayload struct {
	ConversationID uuid.UUID `json:"conversationId"`
}

type sendMessagePayload struct {
	ConversationID uuid.UUID `json:"conversationId"`
	Content        string    `json:"content"`
	Type           string    `json:"type"`
}

type messageSeenPayload struct {
	MessageID      uuid.UUID `json:"messageId"`
	ConversationID uuid.UUID `json:"conversationId"`
}

// dispatch handles one inbound frame. It runs on the connection's read
// loop, so events from a single client are processed in submission order.
func (g *Gateway) dispatch(client *Client, event ClientEvent) {
	switch event.Event {
	case EventConversationJoin:
		g.handleJoin(client, event.Data)
	case EventConversationLeave:
		g.handleLeave(client, event.Data)
	case EventMessageSend:
		g.handleSend(client, event.Data)
	case EventTypingStart:
		g.handleTyping(client, event.Data, true)
	case EventTypingStop:
		g.handleTyping(client, event.Data, false)
	case EventMessageSeen:
		g.handleSeen(client, event.Data)
	default:
		g.emitError(client, "Unknown event: "+event.Event)
	}
}

func (g *Gateway) handleJoin(client *Client, data json.RawMessage) {
	var payload conversationPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.ConversationID == uuid.Nil {
		g.emitError(client, "conversationId is required")
		return
	}

	ctx := context.Background()

	// Membership gate; NotFound covers non-members too.
	if _, err := g.chat.GetConversation(ctx, payload.ConversationID, client.UserID); err != nil {
		g.emitError(client, "Failed to join conversation")
		return
	}

	g.hub.JoinRoom(roomName(payload.ConversationID.String()), client)
	g.hub.EmitToClient(client, Envelope(EventConversationJoined, map[string]interface{}{"conversationId": payload.ConversationID}))

	// Joining a conversation means the backlog has been seen.
	if _, err := g.chat.MarkAllAsSeen(ctx, payload.ConversationID, client.UserID); err != nil {
		g.logger.Warn("Gateway", "MarkAllAsSeen on join failed", map[string]interface{}{"conversation_id": payload.ConversationID, "error": err.Error()})
	}
}

func (g *Gateway) handleLeave(client *Client, data json.RawMessage) {
	var payload conversationPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.ConversationID == uuid.Nil {
		g.emitError(client, "conversationId is required")
		return
	}

	g.hub.LeaveRoom(roomName(payload.ConversationID.String()), client)
	g.hub.EmitToClient(client, Envelope(EventConversationLeft, map[string]interface{}{"conversationId": payload.ConversationID}))
}

func (g *Gateway) handleSend(client *Client, data json.RawMessage) {
	var payload sendMessagePayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.ConversationID == uuid.Nil || payload.Content == "" {
		g.emitError(client, "conversationId and content are required")
		return
	}

	// Persistence first; no fan-out on failure.
	message, err := g.chat.SendMessage(context.Background(), payload.ConversationID, client.UserID, payload.Content, payload.Type)
	if err != nil {
		g.emitError(client, "Failed to send message")
		return
	}

	g.hub.EmitToRoom(roomName(payload.ConversationID.String()), Envelope(EventMessageNew, map[string]interface{}{"message": message}))
	g.hub.EmitToClient(client, Envelope(EventMessageSent, map[string]interface{}{"message": message}))
}

func (g *Gateway) handleTyping(client *Client, data json.RawMessage, typing bool) {
	var payload conversationPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.ConversationID == uuid.Nil {
		g.emitError(client, "conversationId is required")
		return
	}

	ctx := context.Background()
	var err error
	if typing {
		err = g.presence.SetTyping(ctx, payload.ConversationID, client.UserID)
	} else {
		err = g.presence.ClearTyping(ctx, payload.ConversationID, client.UserID)
	}
	if err != nil {
		// Advisory state; still tell the room.
		g.logger.Warn("Gateway", "Typing store update failed", map[string]interface{}{"conversation_id": payload.ConversationID, "error": err.Error()})
	}

	// The caller already knows its own typing state.
	g.hub.EmitToRoomExcept(roomName(payload.ConversationID.String()), client, Envelope(EventTypingUpdate, map[string]interface{}{
		"conversationId": payload.ConversationID,
		"userId":         client.UserID,
		"typing":         typing,
	}))
}

func (g *Gateway) handleSeen(client *Client, data json.RawMessage) {
	var payload messageSeenPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.MessageID == uuid.Nil || payload.ConversationID == uuid.Nil {
		return // non-critical path, fail silently
	}

	if _, err := g.chat.MarkAsSeen(context.Background(), payload.MessageID, client.UserID); err != nil {
		g.logger.Debug("Gateway", "MarkAsSeen failed", map[string]interface{}{"message_id": payload.MessageID, "error": err.Error()})
		return
	}

	g.hub.EmitToRoom(roomName(payload.ConversationID.String()), Envelope(EventMessageSeen, map[string]interface{}{
		"messageId": payload.MessageID,
		"userId":    client.UserID,
	}))
}

func (g *Gateway) emitError(client *Client, message string) {
	g.hub.EmitToClient(client, Envelope(EventError, map[string]string{"message": message}))
}
