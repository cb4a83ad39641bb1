package models

import (
	"time"

	"gorm.io/gorm"
)

type ReactionType string

const (
	ReactionFunny     ReactionType = "funny"
	ReactionRage      ReactionType = "rage"
	ReactionShock     ReactionType = "shock"
	ReactionRelatable ReactionType = "relatable"
	ReactionLove      ReactionType = "love"
	ReactionThinking  ReactionType = "thinking"
)

// ReactionTypes is the fixed post reaction enum, in display order.
var ReactionTypes = []ReactionType{
	ReactionFunny, ReactionRage, ReactionShock, ReactionRelatable, ReactionLove, ReactionThinking,
}

// karmaWeights is what a reaction of each type is worth to the post author.
var karmaWeights = map[ReactionType]int{
	ReactionFunny:     2,
	ReactionLove:      3,
	ReactionRelatable: 3,
	ReactionShock:     1,
	ReactionRage:      1,
	ReactionThinking:  2,
}

func (t ReactionType) Valid() bool {
	_, ok := karmaWeights[t]
	return ok
}

// KarmaWeight returns 0 for unknown types.
func (t ReactionType) KarmaWeight() int {
	return karmaWeights[t]
}

// ValidCommentReaction reports whether t is allowed on a comment.
func ValidCommentReaction(t ReactionType) bool {
	return t == ReactionFunny || t == ReactionLove
}

// TargetKind separates the two post aggregates sharing the ledger tables.
type TargetKind string

const (
	TargetPost    TargetKind = "post"
	TargetWhisper TargetKind = "whisper"
)

// Reaction is one ledger row. The unique index makes "one reaction per
// reactor per post" a storage guarantee.
type Reaction struct {
	ID         string       `gorm:"primaryKey;size:36" json:"id"`
	TargetKind TargetKind   `gorm:"size:16;not null;uniqueIndex:idx_reaction_owner" json:"targetKind"`
	PostID     string       `gorm:"size:36;not null;uniqueIndex:idx_reaction_owner;index:idx_reaction_post" json:"postId"`
	ReactorID  string       `gorm:"size:64;not null;uniqueIndex:idx_reaction_owner" json:"reactorId"`
	Type       ReactionType `gorm:"size:16;not null;index:idx_reaction_post" json:"type"`
	CreatedAt  time.Time    `json:"createdAt"`
}

func (r *Reaction) BeforeCreate(tx *gorm.DB) error {
	newID(&r.ID)
	return nil
}

// ReactionCounts is the denormalized per-type tally stored on a post.
type ReactionCounts struct {
	Funny     int `gorm:"not null;default:0" json:"funny"`
	Rage      int `gorm:"not null;default:0" json:"rage"`
	Shock     int `gorm:"not null;default:0" json:"shock"`
	Relatable int `gorm:"not null;default:0" json:"relatable"`
	Love      int `gorm:"not null;default:0" json:"love"`
	Thinking  int `gorm:"not null;default:0" json:"thinking"`
	Total     int `gorm:"not null;default:0" json:"total"`
}

// Set assigns n to the counter for t. Total is not touched.
func (c *ReactionCounts) Set(t ReactionType, n int) {
	switch t {
	case ReactionFunny:
		c.Funny = n
	case ReactionRage:
		c.Rage = n
	case ReactionShock:
		c.Shock = n
	case ReactionRelatable:
		c.Relatable = n
	case ReactionLove:
		c.Love = n
	case ReactionThinking:
		c.Thinking = n
	}
}

func (c ReactionCounts) Get(t ReactionType) int {
	switch t {
	case ReactionFunny:
		return c.Funny
	case ReactionRage:
		return c.Rage
	case ReactionShock:
		return c.Shock
	case ReactionRelatable:
		return c.Relatable
	case ReactionLove:
		return c.Love
	case ReactionThinking:
		return c.Thinking
	}
	return 0
}

// CommentReaction is restricted to funny and love and never moves karma.
type CommentReaction struct {
	ID        string       `gorm:"primaryKey;size:36" json:"id"`
	CommentID string       `gorm:"size:36;not null;uniqueIndex:idx_comment_reaction_owner" json:"commentId"`
	ReactorID string       `gorm:"size:64;not null;uniqueIndex:idx_comment_reaction_owner" json:"reactorId"`
	Type      ReactionType `gorm:"size:16;not null" json:"type"`
	CreatedAt time.Time    `json:"createdAt"`
}

func (r *CommentReaction) BeforeCreate(tx *gorm.DB) error {
	newID(&r.ID)
	return nil
}
