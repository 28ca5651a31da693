package integration

import (
	"context"
	"log"
	"os"
	"testing"

	"taskhub-be/internal/model"
	"taskhub-be/internal/repository/implementation"
	"taskhub-be/internal/service"
	"taskhub-be/pkg/database"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestChatPersistence runs the conversation and seen-set semantics against a
// real Postgres, including the unique indexes the service relies on.
func TestChatPersistence(t *testing.T) {
	// Load .env from root
	err := godotenv.Load("../../.env")
	if err != nil {
		log.Println("No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		t.Skip("Skipping integration test: DB_CONNECTION_STRING not set")
	}

	gormDB, err := database.NewGormDBFromDSN(dsn)
	if err != nil {
		t.Fatalf("Failed to connect to DB: %v", err)
	}

	require.NoError(t, gormDB.AutoMigrate(
		&model.Conversation{},
		&model.ConversationMember{},
		&model.Message{},
		&model.MessageSeen{},
	))

	repo := implementation.NewChatRepository(gormDB)
	svc := service.NewChatService(repo)
	ctx := context.Background()

	alice := uuid.New()
	bob := uuid.New()

	t.Run("direct conversation is idempotent across initiator order", func(t *testing.T) {
		first, err := svc.CreateDirectConversation(ctx, alice, bob)
		require.NoError(t, err)

		second, err := svc.CreateDirectConversation(ctx, bob, alice)
		require.NoError(t, err)
		assert.Equal(t, first.Id, second.Id)
	})

	t.Run("membership gates access", func(t *testing.T) {
		conversation, err := svc.CreateDirectConversation(ctx, alice, bob)
		require.NoError(t, err)

		_, err = svc.GetConversation(ctx, conversation.Id, uuid.New())
		assert.Error(t, err, "non-member must not see the conversation")

		_, err = svc.GetConversation(ctx, conversation.Id, alice)
		assert.NoError(t, err)
	})

	t.Run("seen set is insert-only", func(t *testing.T) {
		conversation, err := svc.CreateDirectConversation(ctx, alice, bob)
		require.NoError(t, err)

		message, err := svc.SendMessage(ctx, conversation.Id, alice, "integration hello", "")
		require.NoError(t, err)

		seen, err := svc.MarkAsSeen(ctx, message.Id, bob)
		require.NoError(t, err)
		assert.ElementsMatch(t, []uuid.UUID{alice, bob}, seen.SeenBy)

		// ON CONFLICT DO NOTHING keeps the set stable.
		seen, err = svc.MarkAsSeen(ctx, message.Id, bob)
		require.NoError(t, err)
		assert.ElementsMatch(t, []uuid.UUID{alice, bob}, seen.SeenBy)
	})

	t.Run("mark all counts only the unseen backlog", func(t *testing.T) {
		carol := uuid.New()
		dave := uuid.New()
		conversation, err := svc.CreateDirectConversation(ctx, carol, dave)
		require.NoError(t, err)

		for _, content := range []string{"one", "two", "three"} {
			_, err := svc.SendMessage(ctx, conversation.Id, carol, content, "")
			require.NoError(t, err)
		}

		count, err := svc.MarkAllAsSeen(ctx, conversation.Id, dave)
		require.NoError(t, err)
		assert.EqualValues(t, 3, count)

		count, err = svc.MarkAllAsSeen(ctx, conversation.Id, dave)
		require.NoError(t, err)
		assert.EqualValues(t, 0, count)
	})

	t.Run("task conversation is unique per task", func(t *testing.T) {
		taskID := uuid.New()

		first, err := svc.GetOrCreateTaskConversation(ctx, taskID, []uuid.UUID{alice, bob}, "Integration task")
		require.NoError(t, err)

		second, err := svc.GetOrCreateTaskConversation(ctx, taskID, []uuid.UUID{alice}, "Renamed")
		require.NoError(t, err)
		assert.Equal(t, first.Id, second.Id)
	})
}
