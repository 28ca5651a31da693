package contract

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// TaskDeadline is the slice of the task record the reminder pipeline needs.
type TaskDeadline struct {
	TaskID uuid.UUID
	UserID uuid.UUID
	Title  string
	DueAt  time.Time
}

// TaskDeadlineSource reads upcoming deadlines from the task subsystem, which
// owns the tasks table. Implementations return tasks whose deadline falls
// within the window and are not yet completed.
type TaskDeadlineSource interface {
	UpcomingDeadlines(ctx context.Context, within time.Duration) ([]TaskDeadline, error)
}
