package implementation

import (
	"context"
	"time"

	"taskhub-be/internal/repository/contract"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type taskDeadlineRepository struct {
	db *gorm.DB
}

// NewTaskDeadlineRepository reads the tasks table owned by the task
// subsystem. This repository never writes to it.
func NewTaskDeadlineRepository(db *gorm.DB) contract.TaskDeadlineSource {
	return &taskDeadlineRepository{db: db}
}

type taskDeadlineRow struct {
	ID       uuid.UUID
	Assignee uuid.UUID
	Title    string
	DueDate  time.Time
}

func (r *taskDeadlineRepository) UpcomingDeadlines(ctx context.Context, within time.Duration) ([]contract.TaskDeadline, error) {
	var rows []taskDeadlineRow

	err := r.db.WithContext(ctx).
		Table("tasks").
		Select("id, assignee, title, due_date").
		Where("due_date BETWEEN NOW() AND ?", time.Now().Add(within)).
		Where("status <> ?", "completed").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	deadlines := make([]contract.TaskDeadline, 0, len(rows))
	for _, row := range rows {
		deadlines = append(deadlines, contract.TaskDeadline{
			TaskID: row.ID,
			UserID: row.Assignee,
			Title:  row.Title,
			DueAt:  row.DueDate,
		})
	}
	return deadlines, nil
}
