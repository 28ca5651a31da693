package dto

import (
	"time"

	"github.com/google/uuid"
)

type CreateDirectConversationRequest struct {
	UserId uuid.UUID `json:"user_id" validate:"required"`
}

type CreateTaskConversationRequest struct {
	TaskId  uuid.UUID   `json:"task_id" validate:"required"`
	Members []uuid.UUID `json:"members" validate:"required,min=1"`
	Title   string      `json:"title"`
}

type SendMessageRequest struct {
	Content string `json:"content" validate:"required"`
	Type    string `json:"type" validate:"omitempty,oneof=text ai system"`
}

type LastMessageResponse struct {
	Content  string     `json:"content"`
	SenderId *uuid.UUID `json:"sender_id,omitempty"`
	SentAt   *time.Time `json:"sent_at,omitempty"`
}

type ConversationResponse struct {
	Id          uuid.UUID            `json:"id"`
	Type        string               `json:"type"`
	Members     []uuid.UUID          `json:"members"`
	TaskId      *uuid.UUID           `json:"task_id,omitempty"`
	Title       string               `json:"title,omitempty"`
	LastMessage *LastMessageResponse `json:"last_message,omitempty"`
	CreatedAt   time.Time            `json:"created_at"`
	UpdatedAt   time.Time            `json:"updated_at"`
}

type ConversationDetailResponse struct {
	ConversationResponse
	UnreadCount int64 `json:"unread_count"`
}

type MessageResponse struct {
	Id             uuid.UUID   `json:"id"`
	ConversationId uuid.UUID   `json:"conversation_id"`
	SenderId       *uuid.UUID  `json:"sender_id,omitempty"`
	Content        string      `json:"content"`
	Type           string      `json:"type"`
	SeenBy         []uuid.UUID `json:"seen_by"`
	CreatedAt      time.Time   `json:"created_at"`
}
