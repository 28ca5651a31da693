package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	ConversationDirect = "direct"
	ConversationGroup  = "group"
	ConversationTask   = "task"
)

const (
	MessageText   = "text"
	MessageAI     = "ai"
	MessageSystem = "system"
)

// LastMessage is the denormalized summary kept on the conversation row so
// list views don't need a join. It is updated after message insert without a
// transaction; a short staleness window is accepted.
type LastMessage struct {
	Content  string     `gorm:"type:text" json:"content,omitempty"`
	SenderID *uuid.UUID `gorm:"type:uuid" json:"sender_id,omitempty"`
	SentAt   *time.Time `json:"sent_at,omitempty"`
}

type Conversation struct {
	ID     uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Type   string     `gorm:"type:varchar(10);not null;index:idx_conversations_type" json:"type"`
	TaskID *uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_conversations_task" json:"task_id,omitempty"`
	Title  string     `gorm:"type:varchar(200)" json:"title,omitempty"`

	// DirectKey is the sorted member pair ("<low>:<high>") for direct
	// conversations. The unique index makes create-or-get race safe.
	DirectKey *string `gorm:"type:varchar(80);uniqueIndex:idx_conversations_direct_key" json:"-"`

	LastMessage LastMessage `gorm:"embedded;embeddedPrefix:last_message_" json:"last_message"`

	Members []ConversationMember `gorm:"foreignKey:ConversationID;constraint:OnDelete:CASCADE" json:"members"`

	CreatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP;index:idx_conversations_updated" json:"updated_at"`
}

type ConversationMember struct {
	ConversationID uuid.UUID `gorm:"type:uuid;primaryKey" json:"-"`
	UserID         uuid.UUID `gorm:"type:uuid;primaryKey;index:idx_conversation_members_user" json:"user_id"`
	JoinedAt       time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"joined_at"`
}

type Message struct {
	ID             uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	ConversationID uuid.UUID  `gorm:"type:uuid;not null;index:idx_messages_conversation_created,priority:1" json:"conversation_id"`
	SenderID       *uuid.UUID `gorm:"type:uuid;index:idx_messages_sender" json:"sender_id,omitempty"` // nil for system-generated messages
	Content        string     `gorm:"type:text;not null" json:"content"`
	Type           string     `gorm:"type:varchar(10);default:'text'" json:"type"`

	Seen []MessageSeen `gorm:"foreignKey:MessageID;constraint:OnDelete:CASCADE" json:"-"`

	CreatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP;index:idx_messages_conversation_created,priority:2,sort:desc" json:"created_at"`
}

// MessageSeen rows only ever get inserted (ON CONFLICT DO NOTHING), so the
// seen-set is monotonically non-decreasing per message.
type MessageSeen struct {
	MessageID uuid.UUID `gorm:"type:uuid;primaryKey" json:"message_id"`
	UserID    uuid.UUID `gorm:"type:uuid;primaryKey;index:idx_message_seen_user" json:"user_id"`
	SeenAt    time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"seen_at"`
}
