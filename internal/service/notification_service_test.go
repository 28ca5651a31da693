package service

import (
	"context"
	"testing"
	"time"

	"taskhub-be/internal/model"
	"taskhub-be/pkg/events"

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

// fakeNotificationRepo keeps created notifications in memory and answers
// ExistsRecent from them, like the real recency query.
type fakeNotificationRepo struct {
	created []*model.Notification
}

func (r *fakeNotificationRepo) Create(_ context.Context, n *model.Notification) error {
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	r.created = append(r.created, n)
	return nil
}

func (r *fakeNotificationRepo) ListForUser(_ context.Context, userId uuid.UUID, limit, offset int) ([]*model.Notification, int64, error) {
	var res []*model.Notification
	for _, n := range r.created {
		if n.UserID == userId {
			res = append(res, n)
		}
	}
	return res, int64(len(res)), nil
}

func (r *fakeNotificationRepo) CountUnread(_ context.Context, userId uuid.UUID) (int64, error) {
	var count int64
	for _, n := range r.created {
		if n.UserID == userId && !n.IsRead {
			count++
		}
	}
	return count, nil
}

func (r *fakeNotificationRepo) MarkAsRead(_ context.Context, id uuid.UUID) error {
	for _, n := range r.created {
		if n.ID == id {
			n.IsRead = true
		}
	}
	return nil
}

func (r *fakeNotificationRepo) MarkAllAsRead(_ context.Context, userId uuid.UUID) error {
	for _, n := range r.created {
		if n.UserID == userId {
			n.IsRead = true
		}
	}
	return nil
}

func (r *fakeNotificationRepo) ExistsRecent(_ context.Context, userId uuid.UUID, typeCode string, entityId uuid.UUID, within time.Duration) (bool, error) {
	cutoff := time.Now().Add(-within)
	for _, n := range r.created {
		if n.UserID == userId && n.TypeCode == typeCode && n.EntityID != nil && *n.EntityID == entityId && n.CreatedAt.After(cutoff) {
			return true, nil
		}
	}
	return false, nil
}

func taskAssignedEvent(userID, actorID, taskID uuid.UUID) events.BaseEvent {
	return events.BaseEvent{
		Type: "events." + model.NotificationTaskAssigned,
		Data: map[string]interface{}{
			"user_id":  userID.String(),
			"actor_id": actorID.String(),
			"task_id":  taskID.String(),
			"title":    "Task assigned",
			"message":  "You were assigned to a task",
		},
		OccurredAt: time.Now(),
	}
}

func TestHandleEventCreatesNotification(t *testing.T) {
	repo := &fakeNotificationRepo{}
	svc := NewNotificationService(repo, nil, nopLogger{})

	userID := uuid.New()
	actorID := uuid.New()
	taskID := uuid.New()

	err := svc.HandleEvent(context.Background(), taskAssignedEvent(userID, actorID, taskID))
	require.NoError(t, err)

	require.Len(t, repo.created, 1)
	n := repo.created[0]
	assert.Equal(t, userID, n.UserID)
	assert.Equal(t, model.NotificationTaskAssigned, n.TypeCode)
	assert.Equal(t, "Task assigned", n.Title)
	require.NotNil(t, n.ActorID)
	assert.Equal(t, actorID, *n.ActorID)
	assert.Equal(t, "task", n.EntityType)
	require.NotNil(t, n.EntityID)
	assert.Equal(t, taskID, *n.EntityID)
	assert.NotEmpty(t, n.Metadata)
}

func TestHandleEventSkipsMissingUserID(t *testing.T) {
	repo := &fakeNotificationRepo{}
	svc := NewNotificationService(repo, nil, nopLogger{})

	err := svc.HandleEvent(context.Background(), events.BaseEvent{
		Type:       "events." + model.NotificationTaskAssigned,
		Data:       map[string]interface{}{"title": "orphan event"},
		OccurredAt: time.Now(),
	})

	require.NoError(t, err)
	assert.Empty(t, repo.created, "events without a user are dropped, not retried")
}

func TestHandleEventBroadcastIsPushOnly(t *testing.T) {
	repo := &fakeNotificationRepo{}
	svc := NewNotificationService(repo, nil, nopLogger{})

	err := svc.HandleEvent(context.Background(), events.BaseEvent{
		Type: "events." + model.NotificationBroadcast,
		Data: map[string]interface{}{
			"title":   "Maintenance",
			"message": "Scheduled downtime at midnight",
		},
		OccurredAt: time.Now(),
	})

	require.NoError(t, err)
	assert.Empty(t, repo.created)
}

func TestHandleEventSuppressesDuplicateDeadlineReminder(t *testing.T) {
	repo := &fakeNotificationRepo{}
	svc := NewNotificationService(repo, nil, nopLogger{})

	userID := uuid.New()
	taskID := uuid.New()
	deadline := events.BaseEvent{
		Type: "events." + model.NotificationTaskDeadline,
		Data: map[string]interface{}{
			"user_id": userID.String(),
			"task_id": taskID.String(),
			"title":   "Task deadline approaching",
			"message": "Due in a few hours",
		},
		OccurredAt: time.Now(),
	}

	require.NoError(t, svc.HandleEvent(context.Background(), deadline))
	require.NoError(t, svc.HandleEvent(context.Background(), deadline))

	assert.Len(t, repo.created, 1, "second reminder within the window is suppressed")

	// A different task is a different reminder.
	other := taskAssignedEvent(userID, uuid.New(), uuid.New())
	other.Type = "events." + model.NotificationTaskDeadline
	require.NoError(t, svc.HandleEvent(context.Background(), other))
	assert.Len(t, repo.created, 2)
}

func TestMarkAsReadAndCounts(t *testing.T) {
	repo := &fakeNotificationRepo{}
	svc := NewNotificationService(repo, nil, nopLogger{})
	ctx := context.Background()

	userID := uuid.New()
	for i := 0; i < 3; i++ {
		require.NoError(t, svc.HandleEvent(ctx, taskAssignedEvent(userID, uuid.New(), uuid.New())))
	}

	count, err := svc.GetUnreadCount(ctx, userID)
	require.NoError(t, err)
	assert.EqualValues(t, 3, count)

	require.NoError(t, svc.MarkAsRead(ctx, userID, repo.created[0].ID))

	count, err = svc.GetUnreadCount(ctx, userID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)

	require.NoError(t, svc.MarkAllAsRead(ctx, userID))

	count, err = svc.GetUnreadCount(ctx, userID)
	require.NoError(t, err)
	assert.EqualValues(t, 0, count)

	notifications, total, err := svc.GetNotifications(ctx, userID, 10, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Len(t, notifications, 3)
}
