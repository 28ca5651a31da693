package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"taskhub-be/internal/model"
	"taskhub-be/internal/pkg/logger"
	"taskhub-be/internal/realtime"
	"taskhub-be/internal/repository/contract"
	pktNats "taskhub-be/pkg/nats"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"taskhub-be/pkg/events"
)

// reminderDedupWindow suppresses a second deadline reminder for the same
// task within a day. The check queries real history; skipping it would spam
// a reminder on every scan tick.
const reminderDedupWindow = 24 * time.Hour

type NotificationService struct {
	repo       contract.NotificationRepository
	subscriber *pktNats.Subscriber
	logger     logger.ILogger
}

func NewNotificationService(repo contract.NotificationRepository, sub *pktNats.Subscriber, log logger.ILogger) *NotificationService {
	return &NotificationService{
		repo:       repo,
		subscriber: sub,
		logger:     log,
	}
}

// Start begins listening to the event bus.
func (s *NotificationService) Start() {
	err := s.subscriber.Subscribe("events.>", "notif-service-worker", s.HandleEvent)
	if err != nil {
		s.logger.Error("NotificationService", "Failed to start notification subscriber", map[string]interface{}{"error": err})
		return
	}
	s.logger.Info("NotificationService", "Notification service started, listening to events.>", nil)
}

// HandleEvent turns a bus event into a durable notification plus a
// best-effort realtime push. The push goes through the realtime publisher
// capability, which no-ops when the gateway isn't up.
func (s *NotificationService) HandleEvent(ctx context.Context, event events.Event) error {
	typeCode := strings.TrimPrefix(event.EventType(), "events.")
	payload := event.Payload()

	if typeCode == model.NotificationBroadcast {
		// Broadcasts are push-only; persisting one row per user doesn't scale.
		title, _ := payload["title"].(string)
		message, _ := payload["message"].(string)
		realtime.Get().BroadcastToAll(realtime.EventNotificationNew, map[string]interface{}{
			"notification": map[string]interface{}{
				"type_code": typeCode,
				"title":     title,
				"message":   message,
			},
		})
		return nil
	}

	userIDStr, _ := payload["user_id"].(string)
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		s.logger.Warn("NotificationService", "Event without a valid user_id, skipping", map[string]interface{}{"type": typeCode})
		return nil
	}

	notification := s.buildNotification(userID, typeCode, payload)

	if typeCode == model.NotificationTaskDeadline && notification.EntityID != nil {
		dup, err := s.repo.ExistsRecent(ctx, userID, typeCode, *notification.EntityID, reminderDedupWindow)
		if err != nil {
			return err
		}
		if dup {
			s.logger.Info("NotificationService", "Duplicate deadline reminder suppressed", map[string]interface{}{
				"user_id": userID, "entity_id": notification.EntityID,
			})
			return nil
		}
	}

	if err := s.repo.Create(ctx, notification); err != nil {
		return err
	}

	realtime.Get().EmitToUser(userID, realtime.EventNotificationNew, map[string]interface{}{"notification": notification})
	return nil
}

func (s *NotificationService) buildNotification(userID uuid.UUID, typeCode string, payload map[string]interface{}) *model.Notification {
	title, _ := payload["title"].(string)
	message, _ := payload["message"].(string)
	if title == "" {
		title = typeCode
	}

	notification := &model.Notification{
		ID:       uuid.New(),
		UserID:   userID,
		TypeCode: typeCode,
		Title:    title,
		Message:  message,
	}

	if actorStr, ok := payload["actor_id"].(string); ok {
		if actorID, err := uuid.Parse(actorStr); err == nil {
			notification.ActorID = &actorID
		}
	}
	if taskStr, ok := payload["task_id"].(string); ok {
		if taskID, err := uuid.Parse(taskStr); err == nil {
			notification.EntityType = "task"
			notification.EntityID = &taskID
		}
	}
	if meta, err := json.Marshal(payload); err == nil {
		notification.Metadata = datatypes.JSON(meta)
	}

	return notification
}

func (s *NotificationService) GetNotifications(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*model.Notification, int64, error) {
	return s.repo.ListForUser(ctx, userID, limit, offset)
}

func (s *NotificationService) GetUnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.repo.CountUnread(ctx, userID)
}

func (s *NotificationService) MarkAsRead(ctx context.Context, userID, id uuid.UUID) error {
	if err := s.repo.MarkAsRead(ctx, id); err != nil {
		return err
	}
	realtime.Get().EmitReadStatus(userID, map[string]interface{}{"notification_id": id, "is_read": true})
	return nil
}

func (s *NotificationService) MarkAllAsRead(ctx context.Context, userID uuid.UUID) error {
	if err := s.repo.MarkAllAsRead(ctx, userID); err != nil {
		return err
	}
	realtime.Get().EmitReadStatus(userID, map[string]interface{}{"all": true, "is_read": true})
	return nil
}
