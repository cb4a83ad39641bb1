package models

import (
	"time"

	"gorm.io/gorm"
)

type NotificationType string

const (
	NotifyReaction NotificationType = "reaction"
	NotifyComment  NotificationType = "comment"
	NotifyEcho     NotificationType = "echo"
	NotifyMention  NotificationType = "mention"
	NotifyMessage  NotificationType = "message"
)

// Notification is addressed to RecipientID and points at the entity that
// triggered it.
type Notification struct {
	ID          string           `gorm:"primaryKey;size:36" json:"id"`
	Type        NotificationType `gorm:"size:16;not null" json:"type"`
	RecipientID string           `gorm:"size:36;not null;index:idx_notification_inbox" json:"recipientId"`
	ActorID     string           `gorm:"size:36" json:"actorId,omitempty"`
	TargetID    string           `gorm:"size:36" json:"targetId"`
	TargetType  string           `gorm:"size:16" json:"targetType"`
	Message     string           `json:"message"`
	IsRead      bool             `gorm:"not null;default:false;index:idx_notification_inbox" json:"isRead"`
	CreatedAt   time.Time        `gorm:"index" json:"createdAt"`
}

func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	newID(&n.ID)
	return nil
}
