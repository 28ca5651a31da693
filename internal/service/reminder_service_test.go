package service

import (
	"context"
	"testing"
	"time"

	"taskhub-be/internal/model"
	"taskhub-be/internal/repository/contract"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDeadlineSource struct {
	deadlines []contract.TaskDeadline
}

func (f *fakeDeadlineSource) UpcomingDeadlines(_ context.Context, _ time.Duration) ([]contract.TaskDeadline, error) {
	return f.deadlines, nil
}

func newReminderFixture(source contract.TaskDeadlineSource, repo *fakeNotificationRepo) *reminderService {
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	notifService := NewNotificationService(repo, nil, nopLogger{})

	return NewReminderService(
		pubSub,
		"task_deadline_reminders_test",
		source,
		notifService,
		time.Hour, // scan driven manually in tests
		24*time.Hour,
		nopLogger{},
	).(*reminderService)
}

func TestReminderPipelineDeliversNotification(t *testing.T) {
	userID := uuid.New()
	taskID := uuid.New()
	source := &fakeDeadlineSource{deadlines: []contract.TaskDeadline{{
		TaskID: taskID,
		UserID: userID,
		Title:  "Quarterly report",
		DueAt:  time.Now().Add(6 * time.Hour),
	}}}
	repo := &fakeNotificationRepo{}

	rs := newReminderFixture(source, repo)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, rs.Consume(ctx))

	rs.scan(ctx)

	require.Eventually(t, func() bool {
		return len(repo.created) == 1
	}, 2*time.Second, 10*time.Millisecond)

	n := repo.created[0]
	assert.Equal(t, userID, n.UserID)
	assert.Equal(t, model.NotificationTaskDeadline, n.TypeCode)
	require.NotNil(t, n.EntityID)
	assert.Equal(t, taskID, *n.EntityID)
	assert.Contains(t, n.Message, "Quarterly report")
}

func TestReminderPipelineSuppressesRepeatScans(t *testing.T) {
	userID := uuid.New()
	taskID := uuid.New()
	source := &fakeDeadlineSource{deadlines: []contract.TaskDeadline{{
		TaskID: taskID,
		UserID: userID,
		Title:  "Quarterly report",
		DueAt:  time.Now().Add(6 * time.Hour),
	}}}
	repo := &fakeNotificationRepo{}

	rs := newReminderFixture(source, repo)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, rs.Consume(ctx))

	// The same task shows up on every scan tick until its deadline passes;
	// only the first one may notify.
	rs.scan(ctx)
	rs.scan(ctx)
	rs.scan(ctx)

	require.Eventually(t, func() bool {
		return len(repo.created) >= 1
	}, 2*time.Second, 10*time.Millisecond)

	// Give trailing messages time to drain through the consumer.
	time.Sleep(100 * time.Millisecond)
	assert.Len(t, repo.created, 1)
}

func TestReminderScanPublishesPerTask(t *testing.T) {
	users := []uuid.UUID{uuid.New(), uuid.New()}
	source := &fakeDeadlineSource{deadlines: []contract.TaskDeadline{
		{TaskID: uuid.New(), UserID: users[0], Title: "Task A", DueAt: time.Now().Add(time.Hour)},
		{TaskID: uuid.New(), UserID: users[1], Title: "Task B", DueAt: time.Now().Add(2 * time.Hour)},
	}}
	repo := &fakeNotificationRepo{}

	rs := newReminderFixture(source, repo)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, rs.Consume(ctx))

	rs.scan(ctx)

	require.Eventually(t, func() bool {
		return len(repo.created) == 2
	}, 2*time.Second, 10*time.Millisecond)

	recipients := []uuid.UUID{repo.created[0].UserID, repo.created[1].UserID}
	assert.ElementsMatch(t, users, recipients)
}
