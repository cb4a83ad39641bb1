package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Conversation is stored with the pair in canonical order (UserLow < UserHigh)
// so the unique index covers both directions.
type Conversation struct {
	ID            string     `gorm:"primaryKey;size:36" json:"id"`
	UserLow       string     `gorm:"size:36;not null;uniqueIndex:idx_conversation_pair" json:"-"`
	UserHigh      string     `gorm:"size:36;not null;uniqueIndex:idx_conversation_pair;index" json:"-"`
	LastMessageAt *time.Time `gorm:"index" json:"lastMessageAt"`
	CreatedAt     time.Time  `json:"createdAt"`
}

func (c *Conversation) BeforeCreate(tx *gorm.DB) error {
	newID(&c.ID)
	return nil
}

// PeerOf returns the other participant.
func (c *Conversation) PeerOf(userID string) string {
	if c.UserLow == userID {
		return c.UserHigh
	}
	return c.UserLow
}

type Message struct {
	ID             string                         `gorm:"primaryKey;size:36" json:"id"`
	ConversationID string                         `gorm:"size:36;not null;index:idx_message_thread" json:"conversationId"`
	SenderID       string                         `gorm:"size:36;not null" json:"senderId"`
	Text           string                         `gorm:"type:text" json:"text"`
	Media          datatypes.JSONSlice[MediaItem] `json:"media"`
	ReadBy         datatypes.JSONSlice[string]    `json:"readBy"`
	EditedAt       *time.Time                     `json:"editedAt"`
	CreatedAt      time.Time                      `gorm:"index:idx_message_thread" json:"createdAt"`

	Reactions []MessageReaction `gorm:"foreignKey:MessageID" json:"reactions"`
}

func (m *Message) BeforeCreate(tx *gorm.DB) error {
	newID(&m.ID)
	return nil
}

// ReadByUser reports whether userID is in the read set. Senders have always
// read their own messages.
func (m *Message) ReadByUser(userID string) bool {
	if m.SenderID == userID {
		return true
	}
	for _, id := range m.ReadBy {
		if id == userID {
			return true
		}
	}
	return false
}

// SeenByOthers reports whether anyone besides the sender has read m.
func (m *Message) SeenByOthers() bool {
	for _, id := range m.ReadBy {
		if id != m.SenderID {
			return true
		}
	}
	return false
}

type MessageReaction struct {
	ID        string    `gorm:"primaryKey;size:36" json:"-"`
	MessageID string    `gorm:"size:36;not null;uniqueIndex:idx_message_reaction_owner" json:"-"`
	UserID    string    `gorm:"size:36;not null;uniqueIndex:idx_message_reaction_owner" json:"userId"`
	Emoji     string    `gorm:"size:16;not null" json:"emoji"`
	CreatedAt time.Time `json:"createdAt"`
}

func (r *MessageReaction) BeforeCreate(tx *gorm.DB) error {
	newID(&r.ID)
	return nil
}
