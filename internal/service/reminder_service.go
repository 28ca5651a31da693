package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"taskhub-be/internal/dto"
	"taskhub-be/internal/model"
	"taskhub-be/internal/pkg/logger"
	"taskhub-be/internal/repository/contract"
	"taskhub-be/pkg/events"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

type IReminderService interface {
	// Start runs the periodic deadline scan until ctx is cancelled.
	Start(ctx context.Context) error
	// Consume wires the reminder topic into the notification pipeline.
	Consume(ctx context.Context) error
}

type reminderService struct {
	pubSub        *gochannel.GoChannel
	topicName     string
	source        contract.TaskDeadlineSource
	notifications *NotificationService
	scanInterval  time.Duration
	deadlineAhead time.Duration
	logger        logger.ILogger
}

func NewReminderService(
	pubSub *gochannel.GoChannel,
	topicName string,
	source contract.TaskDeadlineSource,
	notifications *NotificationService,
	scanInterval time.Duration,
	deadlineAhead time.Duration,
	log logger.ILogger,
) IReminderService {
	return &reminderService{
		pubSub:        pubSub,
		topicName:     topicName,
		source:        source,
		notifications: notifications,
		scanInterval:  scanInterval,
		deadlineAhead: deadlineAhead,
		logger:        log,
	}
}

func (rs *reminderService) Start(ctx context.Context) error {
	ticker := time.NewTicker(rs.scanInterval)
	defer ticker.Stop()

	rs.logger.Info("ReminderService", "Deadline scanner started", map[string]interface{}{
		"interval": rs.scanInterval.String(), "ahead": rs.deadlineAhead.String(),
	})

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			rs.scan(ctx)
		}
	}
}

func (rs *reminderService) scan(ctx context.Context) {
	deadlines, err := rs.source.UpcomingDeadlines(ctx, rs.deadlineAhead)
	if err != nil {
		rs.logger.Error("ReminderService", "Deadline scan failed", map[string]interface{}{"error": err})
		return
	}

	for _, d := range deadlines {
		payload, err := json.Marshal(dto.PublishDeadlineReminderMessage{
			TaskId: d.TaskID,
			UserId: d.UserID,
			Title:  d.Title,
			DueAt:  d.DueAt,
		})
		if err != nil {
			continue
		}

		msg := message.NewMessage(watermill.NewUUID(), payload)
		if err := rs.pubSub.Publish(rs.topicName, msg); err != nil {
			rs.logger.Error("ReminderService", "Failed to publish reminder", map[string]interface{}{
				"task_id": d.TaskID, "error": err,
			})
		}
	}
}

func (rs *reminderService) Consume(ctx context.Context) error {
	messages, err := rs.pubSub.Subscribe(ctx, rs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			rs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (rs *reminderService) processMessage(ctx context.Context, msg *message.Message) {
	var payload dto.PublishDeadlineReminderMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		rs.logger.Error("ReminderService", "Failed to unmarshal reminder message", map[string]interface{}{"error": err})
		msg.Ack() // Ack invalid messages to prevent infinite retry
		return
	}

	event := events.BaseEvent{
		Type: model.NotificationTaskDeadline,
		Data: map[string]interface{}{
			"user_id": payload.UserId.String(),
			"task_id": payload.TaskId.String(),
			"title":   "Task deadline approaching",
			"message": fmt.Sprintf("%q is due %s", payload.Title, payload.DueAt.Format(time.RFC1123)),
			"due_at":  payload.DueAt.Format(time.RFC3339),
		},
		OccurredAt: time.Now(),
	}

	// HandleEvent does the 24h duplicate-suppression lookup before writing.
	if err := rs.notifications.HandleEvent(ctx, event); err != nil {
		rs.logger.Error("ReminderService", "Reminder handling failed", map[string]interface{}{
			"task_id": payload.TaskId, "error": err,
		})
		msg.Nack() // Retry
		return
	}

	msg.Ack()
}
