package contract

import (
	"context"

	"github.com/google/uuid"
)

// PresenceStore tracks who is connected and who is typing where. Entries
// carry a TTL so a crashed instance leaves no permanent ghosts; absence of a
// key means offline. All of this is advisory state: callers are expected to
// log failures and carry on.
type PresenceStore interface {
	SetOnline(ctx context.Context, userId uuid.UUID, connectionId string) error
	RefreshOnline(ctx context.Context, userId uuid.UUID) error
	SetOffline(ctx context.Context, userId uuid.UUID) error
	IsOnline(ctx context.Context, userId uuid.UUID) (bool, error)
	ListOnline(ctx context.Context) ([]uuid.UUID, error)

	SetTyping(ctx context.Context, conversationId uuid.UUID, userId uuid.UUID) error
	ClearTyping(ctx context.Context, conversationId uuid.UUID, userId uuid.UUID) error
	ListTyping(ctx context.Context, conversationId uuid.UUID) ([]uuid.UUID, error)
}
