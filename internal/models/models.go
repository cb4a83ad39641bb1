package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// newID fills an empty string primary key before insert.
func newID(id *string) {
	if *id == "" {
		*id = uuid.NewString()
	}
}

// UserStats holds the derived counters kept on a user row.
type UserStats struct {
	KarmaScore    int        `gorm:"not null;default:0" json:"karmaScore"`
	CurrentStreak int        `gorm:"not null;default:0" json:"currentStreak"`
	LongestStreak int        `gorm:"not null;default:0" json:"longestStreak"`
	LastPostAt    *time.Time `json:"lastPostAt"`
	PostCount     int        `gorm:"not null;default:0" json:"postCount"`
}

// User is a registered account. Credentials live with the auth gateway.
type User struct {
	ID          string                      `gorm:"primaryKey;size:36" json:"id"`
	Username    string                      `gorm:"uniqueIndex;size:32;not null" json:"username"`
	DisplayName string                      `gorm:"size:64" json:"displayName"`
	Avatar      string                      `json:"avatar,omitempty"`
	Preferences datatypes.JSONSlice[string] `json:"preferences"`
	Stats       UserStats                   `gorm:"embedded;embeddedPrefix:stats_" json:"stats"`
	CreatedAt   time.Time                   `json:"createdAt"`
	UpdatedAt   time.Time                   `json:"updatedAt"`

	EchoersCount int `gorm:"-" json:"echoersCount"`
	EchoingCount int `gorm:"-" json:"echoingCount"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	newID(&u.ID)
	return nil
}

// Echo is a follow edge: FollowerID echoes FolloweeID.
type Echo struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id"`
	FollowerID string    `gorm:"size:36;not null;uniqueIndex:idx_echo_pair" json:"followerId"`
	FolloweeID string    `gorm:"size:36;not null;uniqueIndex:idx_echo_pair;index" json:"followeeId"`
	CreatedAt  time.Time `json:"createdAt"`
}

func (e *Echo) BeforeCreate(tx *gorm.DB) error {
	newID(&e.ID)
	return nil
}

// UserSummary is the public projection of a user embedded in other payloads.
type UserSummary struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
	Avatar      string `json:"avatar,omitempty"`
}

func (u User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Username: u.Username, DisplayName: u.DisplayName, Avatar: u.Avatar}
}

// All lists every model for AutoMigrate.
func All() []interface{} {
	return []interface{}{
		&User{}, &Echo{},
		&Post{}, &WhisperPost{}, &Reaction{},
		&Comment{}, &CommentReaction{},
		&Conversation{}, &Message{}, &MessageReaction{},
		&Notification{},
	}
}
