package dto

import (
	"time"

	"github.com/google/uuid"
)

// PublishDeadlineReminderMessage is the watermill payload carried between
// the reminder scanner and the notification pipeline.
type PublishDeadlineReminderMessage struct {
	TaskId uuid.UUID `json:"task_id"`
	UserId uuid.UUID `json:"user_id"`
	Title  string    `json:"title"`
	DueAt  time.Time `json:"due_at"`
}
