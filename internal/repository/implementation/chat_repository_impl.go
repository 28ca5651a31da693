package implementation

import (
	"context"
	"time"

	"taskhub-be/internal/model"
	"taskhub-be/internal/repository/contract"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ChatRepositoryImpl struct {
	db *gorm.DB
}

func NewChatRepository(db *gorm.DB) contract.ChatRepository {
	return &ChatRepositoryImpl{db: db}
}

func (r *ChatRepositoryImpl) CreateConversation(ctx context.Context, conversation *model.Conversation) error {
	return r.db.WithContext(ctx).Create(conversation).Error
}

func (r *ChatRepositoryImpl) FindConversationById(ctx context.Context, id uuid.UUID) (*model.Conversation, error) {
	var c model.Conversation
	if err := r.db.WithContext(ctx).Preload("Members").First(&c, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *ChatRepositoryImpl) FindConversationByIdAndMember(ctx context.Context, id uuid.UUID, userId uuid.UUID) (*model.Conversation, error) {
	var c model.Conversation
	err := r.db.WithContext(ctx).
		Joins("JOIN conversation_members cm ON cm.conversation_id = conversations.id").
		Where("conversations.id = ? AND cm.user_id = ?", id, userId).
		Preload("Members").
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *ChatRepositoryImpl) FindDirectConversation(ctx context.Context, directKey string) (*model.Conversation, error) {
	var c model.Conversation
	err := r.db.WithContext(ctx).
		Where("type = ? AND direct_key = ?", model.ConversationDirect, directKey).
		Preload("Members").
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *ChatRepositoryImpl) FindTaskConversation(ctx context.Context, taskId uuid.UUID) (*model.Conversation, error) {
	var c model.Conversation
	err := r.db.WithContext(ctx).
		Where("type = ? AND task_id = ?", model.ConversationTask, taskId).
		Preload("Members").
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *ChatRepositoryImpl) ListConversationsForUser(ctx context.Context, userId uuid.UUID, limit, offset int) ([]*model.Conversation, error) {
	var conversations []*model.Conversation
	err := r.db.WithContext(ctx).
		Joins("JOIN conversation_members cm ON cm.conversation_id = conversations.id").
		Where("cm.user_id = ?", userId).
		Order("conversations.updated_at DESC").
		Limit(limit).
		Offset(offset).
		Preload("Members").
		Find(&conversations).Error
	if err != nil {
		return nil, err
	}
	return conversations, nil
}

func (r *ChatRepositoryImpl) UpdateLastMessage(ctx context.Context, conversationId uuid.UUID, last model.LastMessage) error {
	return r.db.WithContext(ctx).
		Model(&model.Conversation{}).
		Where("id = ?", conversationId).
		Updates(map[string]interface{}{
			"last_message_content":   last.Content,
			"last_message_sender_id": last.SenderID,
			"last_message_sent_at":   last.SentAt,
			"updated_at":             time.Now(),
		}).Error
}

func (r *ChatRepositoryImpl) CreateMessage(ctx context.Context, message *model.Message) error {
	return r.db.WithContext(ctx).Create(message).Error
}

func (r *ChatRepositoryImpl) FindMessageById(ctx context.Context, id uuid.UUID) (*model.Message, error) {
	var m model.Message
	if err := r.db.WithContext(ctx).Preload("Seen").First(&m, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *ChatRepositoryImpl) ListMessagesByConversation(ctx context.Context, conversationId uuid.UUID, limit, offset int) ([]*model.Message, error) {
	var messages []*model.Message
	err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationId).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Preload("Seen").
		Find(&messages).Error
	if err != nil {
		return nil, err
	}
	return messages, nil
}

func (r *ChatRepositoryImpl) MarkMessageSeen(ctx context.Context, messageId uuid.UUID, userId uuid.UUID) error {
	seen := model.MessageSeen{
		MessageID: messageId,
		UserID:    userId,
		SeenAt:    time.Now(),
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&seen).Error
}

func (r *ChatRepositoryImpl) MarkAllMessagesSeen(ctx context.Context, conversationId uuid.UUID, userId uuid.UUID) (int64, error) {
	// Insert-select keeps this a single round trip and the ON CONFLICT guard
	// keeps it idempotent. System messages (NULL sender) count as unseen.
	result := r.db.WithContext(ctx).Exec(`
		INSERT INTO message_seens (message_id, user_id, seen_at)
		SELECT m.id, ?, NOW()
		FROM messages m
		WHERE m.conversation_id = ?
		  AND (m.sender_id IS NULL OR m.sender_id <> ?)
		ON CONFLICT DO NOTHING`,
		userId, conversationId, userId)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func (r *ChatRepositoryImpl) ListSeenBy(ctx context.Context, messageId uuid.UUID) ([]uuid.UUID, error) {
	var userIds []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&model.MessageSeen{}).
		Where("message_id = ?", messageId).
		Order("seen_at ASC").
		Pluck("user_id", &userIds).Error
	if err != nil {
		return nil, err
	}
	return userIds, nil
}

func (r *ChatRepositoryImpl) CountUnread(ctx context.Context, conversationId uuid.UUID, userId uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Message{}).
		Where("conversation_id = ?", conversationId).
		Where("sender_id IS NULL OR sender_id <> ?", userId).
		Where("NOT EXISTS (SELECT 1 FROM message_seens s WHERE s.message_id = messages.id AND s.user_id = ?)", userId).
		Count(&count).Error
	return count, err
}
