package realtime

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	users      []uuid.UUID
	events     []string
	broadcasts []string
}

func (p *recordingPublisher) EmitToUser(userID uuid.UUID, event string, data interface{}) {
	p.users = append(p.users, userID)
	p.events = append(p.events, event)
}

func (p *recordingPublisher) EmitReadStatus(userID uuid.UUID, data interface{}) {
	p.users = append(p.users, userID)
	p.events = append(p.events, EventNotificationRead)
}

func (p *recordingPublisher) BroadcastToAll(event string, data interface{}) {
	p.broadcasts = append(p.broadcasts, event)
}

func TestGetBeforeInitIsNoop(t *testing.T) {
	SetPublisher(nil)

	p := Get()
	require.NotNil(t, p)

	// Pushing before the gateway exists is a silent no-op; the durable
	// notification record is the source of truth.
	p.EmitToUser(uuid.New(), EventNotificationNew, nil)
	p.EmitReadStatus(uuid.New(), nil)
	p.BroadcastToAll("system:broadcast", nil)
}

func TestSetPublisherInstallsLiveFanOut(t *testing.T) {
	rec := &recordingPublisher{}
	SetPublisher(rec)
	defer SetPublisher(nil)

	userID := uuid.New()
	Get().EmitToUser(userID, EventNotificationNew, nil)
	Get().BroadcastToAll("system:broadcast", nil)

	assert.Equal(t, []uuid.UUID{userID}, rec.users)
	assert.Equal(t, []string{EventNotificationNew}, rec.events)
	assert.Equal(t, []string{"system:broadcast"}, rec.broadcasts)
}
