// Package realtime exposes the narrow publishing capability other
// subsystems (notification worker, reminder scanner) use to push events
// into the socket fan-out. Consumers depend on the interface, never on the
// hub, so delivery silently no-ops when realtime isn't initialized — the
// durable notification record is the source of truth, the push is a
// convenience.
package realtime

import (
	"sync"

	"github.com/google/uuid"
)

const (
	EventNotificationNew  = "notification:new"
	EventNotificationRead = "notification:read"
)

type Publisher interface {
	EmitToUser(userID uuid.UUID, event string, data interface{})
	EmitReadStatus(userID uuid.UUID, data interface{})
	BroadcastToAll(event string, data interface{})
}

var (
	mu        sync.RWMutex
	publisher Publisher
)

// SetPublisher installs the live publisher. Called once during bootstrap.
func SetPublisher(p Publisher) {
	mu.Lock()
	defer mu.Unlock()
	publisher = p
}

// Get never returns nil; before initialization it returns a no-op.
func Get() Publisher {
	mu.RLock()
	defer mu.RUnlock()
	if publisher == nil {
		return noopPublisher{}
	}
	return publisher
}

type noopPublisher struct{}

func (noopPublisher) EmitToUser(uuid.UUID, string, interface{}) {}
func (noopPublisher) EmitReadStatus(uuid.UUID, interface{})     {}
func (noopPublisher) BroadcastToAll(string, interface{})        {}
