package websocket

import (
	"taskhub-be/internal/realtime"

	"github.com/google/uuid"
)

// HubPublisher adapts the hub to the realtime.Publisher contract, so the
// notification side can push frames without depending on the connection
// machinery in this package. The hub routes through its backplane, so the
// target user is reached on whichever instance holds their socket.
type HubPublisher struct {
	hub *Hub
}

func NewHubPublisher(hub *Hub) *HubPublisher {
	return &HubPublisher{hub: hub}
}

func (p *HubPublisher) EmitToUser(userID uuid.UUID, event string, data interface{}) {
	p.hub.EmitToUser(userID, Envelope(event, data))
}

func (p *HubPublisher) EmitReadStatus(userID uuid.UUID, data interface{}) {
	p.hub.EmitToUser(userID, Envelope(realtime.EventNotificationRead, data))
}

func (p *HubPublisher) BroadcastToAll(event string, data interface{}) {
	p.hub.Broadcast(nil, Envelope(event, data))
}
