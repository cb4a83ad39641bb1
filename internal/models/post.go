package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Category string

const (
	CategoryGeneral       Category = "general"
	CategoryConfession    Category = "confession"
	CategoryCrush         Category = "crush"
	CategoryRant          Category = "rant"
	CategoryCampus        Category = "campus"
	CategoryWork          Category = "work"
	CategoryRelationships Category = "relationships"
	CategoryRandom        Category = "random"
)

var Categories = []Category{
	CategoryGeneral, CategoryConfession, CategoryCrush, CategoryRant,
	CategoryCampus, CategoryWork, CategoryRelationships, CategoryRandom,
}

func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

type Visibility string

const (
	VisibilityNormal   Visibility = "normal"
	VisibilityDisguise Visibility = "disguise"
)

// MediaItem describes an already uploaded attachment.
type MediaItem struct {
	URL    string `json:"url"`
	Type   string `json:"type"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}

// VanishMode hides a post from every listing once VanishAt has passed.
type VanishMode struct {
	Enabled  bool       `gorm:"not null;default:false" json:"enabled"`
	VanishAt *time.Time `gorm:"index" json:"vanishAt"`
}

// Post is a regular, user-authored post.
type Post struct {
	ID            string                         `gorm:"primaryKey;size:36" json:"id"`
	AuthorID      string                         `gorm:"size:36;not null;index" json:"authorId,omitempty"`
	Author        *UserSummary                   `gorm:"-" json:"author,omitempty"`
	Text          string                         `gorm:"type:text;not null" json:"text"`
	Media         datatypes.JSONSlice[MediaItem] `json:"media"`
	Category      Category                       `gorm:"size:32;not null;index" json:"category"`
	Visibility    Visibility                     `gorm:"size:16;not null;default:normal" json:"visibility"`
	VanishMode    VanishMode                     `gorm:"embedded;embeddedPrefix:vanish_" json:"vanishMode"`
	Reactions     ReactionCounts                 `gorm:"embedded;embeddedPrefix:reaction_" json:"reactionCounts"`
	CommentCount  int                            `gorm:"not null;default:0" json:"commentCount"`
	TrendingScore float64                        `gorm:"not null;default:0;index" json:"trendingScore"`
	IsHidden      bool                           `gorm:"not null;default:false;index" json:"-"`
	CreatedAt     time.Time                      `gorm:"index" json:"createdAt"`
	UpdatedAt     time.Time                      `json:"updatedAt"`

	// UserReaction is the viewer's own reaction, filled per request.
	UserReaction *ReactionType `gorm:"-" json:"userReaction"`
}

func (p *Post) BeforeCreate(tx *gorm.DB) error {
	newID(&p.ID)
	return nil
}

// Vanished reports whether the vanish window has closed at now.
func (p *Post) Vanished(now time.Time) bool {
	return p.VanishMode.Enabled && p.VanishMode.VanishAt != nil && !p.VanishMode.VanishAt.After(now)
}

// Disguise strips the author for viewers other than the author.
func (p *Post) Disguise(viewerID string) {
	if p.Visibility == VisibilityDisguise && p.AuthorID != viewerID {
		p.AuthorID = ""
		p.Author = nil
	}
}

// WhisperPost is an anonymous post owned by a session id and bound to expire.
type WhisperPost struct {
	ID            string         `gorm:"primaryKey;size:36" json:"id"`
	SessionID     string         `gorm:"size:64;not null;index" json:"-"`
	Text          string         `gorm:"type:text;not null" json:"text"`
	Category      Category       `gorm:"size:32;not null" json:"category"`
	Room          string         `gorm:"size:32;not null;default:wall" json:"room"`
	Reactions     ReactionCounts `gorm:"embedded;embeddedPrefix:reaction_" json:"reactionCounts"`
	CommentCount  int            `gorm:"not null;default:0" json:"commentCount"`
	TrendingScore float64        `gorm:"not null;default:0" json:"trendingScore"`
	ChainID       string         `gorm:"size:36;index" json:"chainId,omitempty"`
	HopCount      int            `gorm:"not null;default:0" json:"hopCount"`
	IsHidden      bool           `gorm:"not null;default:false" json:"-"`
	ExpiresAt     time.Time      `gorm:"not null;index" json:"expiresAt"`
	CreatedAt     time.Time      `gorm:"index" json:"createdAt"`

	UserReaction *ReactionType `gorm:"-" json:"userReaction"`
	IsOwn        bool          `gorm:"-" json:"isOwn"`
}

func (w *WhisperPost) BeforeCreate(tx *gorm.DB) error {
	newID(&w.ID)
	return nil
}

// Comment belongs to either a Post or a WhisperPost, see TargetKind.
type Comment struct {
	ID         string       `gorm:"primaryKey;size:36" json:"id"`
	TargetKind TargetKind   `gorm:"size:16;not null;index:idx_comment_target" json:"-"`
	PostID     string       `gorm:"size:36;not null;index:idx_comment_target" json:"postId"`
	AuthorID   string       `gorm:"size:64;not null" json:"authorId,omitempty"`
	Author     *UserSummary `gorm:"-" json:"author,omitempty"`
	Content    string       `gorm:"type:text;not null" json:"content"`
	FunnyCount int          `gorm:"not null;default:0" json:"funnyCount"`
	LoveCount  int          `gorm:"not null;default:0" json:"loveCount"`
	CreatedAt  time.Time    `json:"createdAt"`
	UpdatedAt  time.Time    `json:"updatedAt"`

	UserReaction *ReactionType `gorm:"-" json:"userReaction"`
}

func (c *Comment) BeforeCreate(tx *gorm.DB) error {
	newID(&c.ID)
	return nil
}
