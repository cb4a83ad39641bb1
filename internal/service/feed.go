package service

import (
	"sort"
	"time"

	"gorm.io/gorm"

	"github.com/sujalbistaa/whisperwall/internal/config"
	"github.com/sujalbistaa/whisperwall/internal/models"
)

const (
	FeedKindPost    = "post"
	FeedKindWhisper = "whisper"
)

// FeedItem wraps either a post or a whisper.
type FeedItem struct {
	Kind      string              `json:"kind"`
	Post      *models.Post        `json:"post,omitempty"`
	Whisper   *models.WhisperPost `json:"whisper,omitempty"`
	CreatedAt time.Time           `json:"createdAt"`
}

// Feed composes the home feed for viewerID: their own posts, posts by users
// they echo and posts in their preferred categories, mixed with a small random
// sample of live whispers. When the personal filter matches nothing at all
// the feed falls back to every visible post by recency.
func (s *Service) Feed(viewerID, sessionID string, page, limit int) ([]FeedItem, error) {
	var viewer models.User
	if err := s.db.Where("id = ?", viewerID).Take(&viewer).Error; err != nil {
		return nil, asNotFound(err, "user")
	}

	var following []string
	if err := s.db.Model(&models.Echo{}).Where("follower_id = ?", viewerID).Pluck("followee_id", &following).Error; err != nil {
		return nil, err
	}
	authors := append([]string{viewerID}, following...)

	now := s.now()
	personal := func() *gorm.DB {
		q := visiblePosts(s.db.Model(&models.Post{}), now)
		if len(viewer.Preferences) > 0 {
			return q.Where("(author_id IN ? OR category IN ?)", authors, []string(viewer.Preferences))
		}
		return q.Where("author_id IN ?", authors)
	}

	var matched int64
	if err := personal().Count(&matched).Error; err != nil {
		return nil, err
	}

	q := personal()
	if matched == 0 {
		q = visiblePosts(s.db.Model(&models.Post{}), now)
	}

	offset, size := Page(page, limit, config.DefaultFeedPageSize)
	slots := s.whisperSlots(size)
	postSize := size - slots
	var posts []models.Post
	if err := q.Order("created_at desc").Offset(offset / size * postSize).Limit(postSize).Find(&posts).Error; err != nil {
		return nil, err
	}
	if err := s.annotatePosts(viewerID, posts); err != nil {
		return nil, err
	}

	var whispers []models.WhisperPost
	if slots > 0 {
		err := liveWhispers(s.db, now).Order("RANDOM()").Limit(slots).Find(&whispers).Error
		if err != nil {
			return nil, err
		}
		if err := s.annotateWhispers(sessionID, whispers); err != nil {
			return nil, err
		}
	}

	items := make([]FeedItem, 0, len(posts)+len(whispers))
	for i := range posts {
		items = append(items, FeedItem{Kind: FeedKindPost, Post: &posts[i], CreatedAt: posts[i].CreatedAt})
	}
	for i := range whispers {
		items = append(items, FeedItem{Kind: FeedKindWhisper, Whisper: &whispers[i], CreatedAt: whispers[i].CreatedAt})
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
	return items, nil
}

// whisperSlots is how many whispers a feed page of size holds. Every page
// keeps at least one post slot, and post offsets count post slots only.
func (s *Service) whisperSlots(size int) int {
	slots := s.opts.WhisperSample
	if slots >= size {
		slots = size - 1
	}
	if slots < 0 {
		return 0
	}
	return slots
}
