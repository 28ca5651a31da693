package service

import (
	"context"
	"errors"
	"time"

	"taskhub-be/internal/dto"
	"taskhub-be/internal/model"
	"taskhub-be/internal/pkg/serverutils"
	"taskhub-be/internal/repository/contract"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type IChatService interface {
	CreateDirectConversation(ctx context.Context, userId, otherUserId uuid.UUID) (*dto.ConversationResponse, error)
	GetOrCreateTaskConversation(ctx context.Context, taskId uuid.UUID, members []uuid.UUID, title string) (*dto.ConversationResponse, error)
	ListConversations(ctx context.Context, userId uuid.UUID, limit, offset int) ([]*dto.ConversationResponse, error)
	GetConversation(ctx context.Context, conversationId, userId uuid.UUID) (*dto.ConversationDetailResponse, error)
	SendMessage(ctx context.Context, conversationId, senderId uuid.UUID, content, msgType string) (*dto.MessageResponse, error)
	ListMessages(ctx context.Context, conversationId, userId uuid.UUID, limit, offset int) ([]*dto.MessageResponse, error)
	MarkAsSeen(ctx context.Context, messageId, userId uuid.UUID) (*dto.MessageResponse, error)
	MarkAllAsSeen(ctx context.Context, conversationId, userId uuid.UUID) (int64, error)
}

type chatService struct {
	repo contract.ChatRepository
}

func NewChatService(repo contract.ChatRepository) IChatService {
	return &chatService{repo: repo}
}

// directKey builds the unordered-pair key: the same two users always map to
// the same key regardless of who initiates.
func directKey(a, b uuid.UUID) string {
	if a.String() < b.String() {
		return a.String() + ":" + b.String()
	}
	return b.String() + ":" + a.String()
}

func (s *chatService) CreateDirectConversation(ctx context.Context, userId, otherUserId uuid.UUID) (*dto.ConversationResponse, error) {
	key := directKey(userId, otherUserId)

	existing, err := s.repo.FindDirectConversation(ctx, key)
	if err == nil {
		return toConversationResponse(existing), nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	conversation := &model.Conversation{
		ID:        uuid.New(),
		Type:      model.ConversationDirect,
		DirectKey: &key,
		Members: []model.ConversationMember{
			{UserID: userId},
			{UserID: otherUserId},
		},
	}

	if createErr := s.repo.CreateConversation(ctx, conversation); createErr != nil {
		// A concurrent create-or-get can hit the unique index first; the
		// winner's row is the conversation.
		if existing, err := s.repo.FindDirectConversation(ctx, key); err == nil {
			return toConversationResponse(existing), nil
		}
		return nil, createErr
	}

	return toConversationResponse(conversation), nil
}

func (s *chatService) GetOrCreateTaskConversation(ctx context.Context, taskId uuid.UUID, members []uuid.UUID, title string) (*dto.ConversationResponse, error) {
	existing, err := s.repo.FindTaskConversation(ctx, taskId)
	if err == nil {
		return toConversationResponse(existing), nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	seen := make(map[uuid.UUID]bool, len(members))
	memberRows := make([]model.ConversationMember, 0, len(members))
	for _, m := range members {
		if seen[m] {
			continue
		}
		seen[m] = true
		memberRows = append(memberRows, model.ConversationMember{UserID: m})
	}

	conversation := &model.Conversation{
		ID:      uuid.New(),
		Type:    model.ConversationTask,
		TaskID:  &taskId,
		Title:   title,
		Members: memberRows,
	}

	if createErr := s.repo.CreateConversation(ctx, conversation); createErr != nil {
		if existing, err := s.repo.FindTaskConversation(ctx, taskId); err == nil {
			return toConversationResponse(existing), nil
		}
		return nil, createErr
	}

	return toConversationResponse(conversation), nil
}

func (s *chatService) ListConversations(ctx context.Context, userId uuid.UUID, limit, offset int) ([]*dto.ConversationResponse, error) {
	conversations, err := s.repo.ListConversationsForUser(ctx, userId, limit, offset)
	if err != nil {
		return nil, err
	}

	res := make([]*dto.ConversationResponse, 0, len(conversations))
	for _, c := range conversations {
		res = append(res, toConversationResponse(c))
	}
	return res, nil
}

func (s *chatService) GetConversation(ctx context.Context, conversationId, userId uuid.UUID) (*dto.ConversationDetailResponse, error) {
	conversation, err := s.memberConversation(ctx, conversationId, userId)
	if err != nil {
		return nil, err
	}

	unread, err := s.repo.CountUnread(ctx, conversationId, userId)
	if err != nil {
		return nil, err
	}

	return &dto.ConversationDetailResponse{
		ConversationResponse: *toConversationResponse(conversation),
		UnreadCount:          unread,
	}, nil
}

func (s *chatService) SendMessage(ctx context.Context, conversationId, senderId uuid.UUID, content, msgType string) (*dto.MessageResponse, error) {
	if _, err := s.memberConversation(ctx, conversationId, senderId); err != nil {
		return nil, err
	}

	if msgType == "" {
		msgType = model.MessageText
	}

	message := &model.Message{
		ID:             uuid.New(),
		ConversationID: conversationId,
		SenderID:       &senderId,
		Content:        content,
		Type:           msgType,
		Seen:           []model.MessageSeen{{UserID: senderId, SeenAt: time.Now()}},
	}

	if err := s.repo.CreateMessage(ctx, message); err != nil {
		return nil, err
	}

	now := time.Now()
	if err := s.repo.UpdateLastMessage(ctx, conversationId, model.LastMessage{
		Content:  content,
		SenderID: &senderId,
		SentAt:   &now,
	}); err != nil {
		return nil, err
	}

	return toMessageResponse(message), nil
}

func (s *chatService) ListMessages(ctx context.Context, conversationId, userId uuid.UUID, limit, offset int) ([]*dto.MessageResponse, error) {
	if _, err := s.memberConversation(ctx, conversationId, userId); err != nil {
		return nil, err
	}

	messages, err := s.repo.ListMessagesByConversation(ctx, conversationId, limit, offset)
	if err != nil {
		return nil, err
	}

	res := make([]*dto.MessageResponse, 0, len(messages))
	for _, m := range messages {
		res = append(res, toMessageResponse(m))
	}
	return res, nil
}

func (s *chatService) MarkAsSeen(ctx context.Context, messageId, userId uuid.UUID) (*dto.MessageResponse, error) {
	message, err := s.repo.FindMessageById(ctx, messageId)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, serverutils.NotFoundError("Message not found")
		}
		return nil, err
	}

	if err := s.repo.MarkMessageSeen(ctx, messageId, userId); err != nil {
		return nil, err
	}

	seenBy, err := s.repo.ListSeenBy(ctx, messageId)
	if err != nil {
		return nil, err
	}

	res := toMessageResponse(message)
	res.SeenBy = seenBy
	return res, nil
}

func (s *chatService) MarkAllAsSeen(ctx context.Context, conversationId, userId uuid.UUID) (int64, error) {
	if _, err := s.memberConversation(ctx, conversationId, userId); err != nil {
		return 0, err
	}
	return s.repo.MarkAllMessagesSeen(ctx, conversationId, userId)
}

// memberConversation is the membership gate. Missing conversation and
// non-member caller get the same NotFound shape so existence never leaks.
func (s *chatService) memberConversation(ctx context.Context, conversationId, userId uuid.UUID) (*model.Conversation, error) {
	conversation, err := s.repo.FindConversationByIdAndMember(ctx, conversationId, userId)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, serverutils.NotFoundError("Conversation not found")
		}
		return nil, err
	}
	return conversation, nil
}

func toConversationResponse(c *model.Conversation) *dto.ConversationResponse {
	members := make([]uuid.UUID, 0, len(c.Members))
	for _, m := range c.Members {
		members = append(members, m.UserID)
	}

	var last *dto.LastMessageResponse
	if c.LastMessage.Content != "" || c.LastMessage.SentAt != nil {
		last = &dto.LastMessageResponse{
			Content:  c.LastMessage.Content,
			SenderId: c.LastMessage.SenderID,
			SentAt:   c.LastMessage.SentAt,
		}
	}

	return &dto.ConversationResponse{
		Id:          c.ID,
		Type:        c.Type,
		Members:     members,
		TaskId:      c.TaskID,
		Title:       c.Title,
		LastMessage: last,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

func toMessageResponse(m *model.Message) *dto.MessageResponse {
	seenBy := make([]uuid.UUID, 0, len(m.Seen))
	for _, s := range m.Seen {
		seenBy = append(seenBy, s.UserID)
	}

	return &dto.MessageResponse{
		Id:             m.ID,
		ConversationId: m.ConversationID,
		SenderId:       m.SenderID,
		Content:        m.Content,
		Type:           m.Type,
		SeenBy:         seenBy,
		CreatedAt:      m.CreatedAt,
	}
}
