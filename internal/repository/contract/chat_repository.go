package contract

import (
	"context"

	"taskhub-be/internal/model"

	"github.com/google/uuid"
)

type ChatRepository interface {
	// Conversation operations
	CreateConversation(ctx context.Context, conversation *model.Conversation) error
	FindConversationById(ctx context.Context, id uuid.UUID) (*model.Conversation, error)
	// FindConversationByIdAndMember returns gorm.ErrRecordNotFound for both a
	// missing conversation and a non-member caller.
	FindConversationByIdAndMember(ctx context.Context, id uuid.UUID, userId uuid.UUID) (*model.Conversation, error)
	FindDirectConversation(ctx context.Context, directKey string) (*model.Conversation, error)
	FindTaskConversation(ctx context.Context, taskId uuid.UUID) (*model.Conversation, error)
	ListConversationsForUser(ctx context.Context, userId uuid.UUID, limit, offset int) ([]*model.Conversation, error)
	UpdateLastMessage(ctx context.Context, conversationId uuid.UUID, last model.LastMessage) error

	// Message operations
	CreateMessage(ctx context.Context, message *model.Message) error
	FindMessageById(ctx context.Context, id uuid.UUID) (*model.Message, error)
	// ListMessagesByConversation returns messages newest-first.
	ListMessagesByConversation(ctx context.Context, conversationId uuid.UUID, limit, offset int) ([]*model.Message, error)

	// Seen-set operations (insert-only; marking twice is a no-op)
	MarkMessageSeen(ctx context.Context, messageId uuid.UUID, userId uuid.UUID) error
	MarkAllMessagesSeen(ctx context.Context, conversationId uuid.UUID, userId uuid.UUID) (int64, error)
	ListSeenBy(ctx context.Context, messageId uuid.UUID) ([]uuid.UUID, error)
	CountUnread(ctx context.Context, conversationId uuid.UUID, userId uuid.UUID) (int64, error)
}
