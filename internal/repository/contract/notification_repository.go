package contract

import (
	"context"
	"time"

	"taskhub-be/internal/model"

	"github.com/google/uuid"
)

type NotificationRepository interface {
	Create(ctx context.Context, notification *model.Notification) error
	ListForUser(ctx context.Context, userId uuid.UUID, limit, offset int) ([]*model.Notification, int64, error)
	CountUnread(ctx context.Context, userId uuid.UUID) (int64, error)
	MarkAsRead(ctx context.Context, id uuid.UUID) error
	MarkAllAsRead(ctx context.Context, userId uuid.UUID) error
	// ExistsRecent reports whether a notification with the same type and
	// entity was already created for the user within the window. Used to
	// suppress duplicate deadline reminders.
	ExistsRecent(ctx context.Context, userId uuid.UUID, typeCode string, entityId uuid.UUID, within time.Duration) (bool, error)
}
