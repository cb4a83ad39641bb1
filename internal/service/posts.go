package service

import (
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/sujalbistaa/whisperwall/internal/config"
	"github.com/sujalbistaa/whisperwall/internal/models"
)

const trendingLimit = 20

var mentionPattern = regexp.MustCompile(`@([A-Za-z0-9_]{3,32})`)

// NewPost is the input for CreatePost.
type NewPost struct {
	Text       string
	Media      []models.MediaItem
	Category   models.Category
	Visibility models.Visibility
	VanishAt   *time.Time
}

func (s *Service) validatePost(in *NewPost) error {
	in.Text = strings.TrimSpace(in.Text)
	if in.Text == "" && len(in.Media) == 0 {
		return validationf("post needs text or media")
	}
	if utf8.RuneCountInString(in.Text) > config.MaxPostLength {
		return validationf("post cannot exceed %d characters", config.MaxPostLength)
	}
	for _, m := range in.Media {
		if m.URL == "" {
			return validationf("media item is missing a url")
		}
	}
	if in.Category == "" {
		in.Category = models.CategoryGeneral
	}
	if !in.Category.Valid() {
		return validationf("invalid category %q", in.Category)
	}
	switch in.Visibility {
	case "":
		in.Visibility = models.VisibilityNormal
	case models.VisibilityNormal, models.VisibilityDisguise:
	default:
		return validationf("invalid visibility %q", in.Visibility)
	}
	if in.VanishAt != nil && !in.VanishAt.After(s.now()) {
		return validationf("vanishAt must be in the future")
	}
	return nil
}

// CreatePost stores a post and advances the author's posting streak in the
// same transaction.
func (s *Service) CreatePost(authorID string, in NewPost) (*models.Post, error) {
	if err := s.validatePost(&in); err != nil {
		return nil, err
	}

	now := s.now()
	post := models.Post{
		AuthorID:   authorID,
		Text:       in.Text,
		Media:      in.Media,
		Category:   in.Category,
		Visibility: in.Visibility,
		CreatedAt:  now,
	}
	if in.VanishAt != nil {
		at := in.VanishAt.UTC()
		post.VanishMode = models.VanishMode{Enabled: true, VanishAt: &at}
	}

	var author models.User
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", authorID).Take(&author).Error; err != nil {
			return asNotFound(err, "user")
		}
		if err := tx.Create(&post).Error; err != nil {
			return err
		}

		current, longest := NextStreak(author.Stats.LastPostAt, now, author.Stats.CurrentStreak, author.Stats.LongestStreak)
		return tx.Model(&models.User{}).Where("id = ?", authorID).Updates(map[string]interface{}{
			"stats_current_streak": current,
			"stats_longest_streak": longest,
			"stats_last_post_at":   now,
			"stats_post_count":     gorm.Expr("stats_post_count + 1"),
		}).Error
	})
	if err != nil {
		return nil, err
	}

	summary := author.Summary()
	post.Author = &summary
	return &post, nil
}

// GetPost returns a visible post annotated for viewerID.
func (s *Service) GetPost(viewerID, postID string) (*models.Post, error) {
	var p models.Post
	if err := visiblePosts(s.db, s.now()).Where("id = ?", postID).Take(&p).Error; err != nil {
		return nil, asNotFound(err, "post")
	}
	posts := []models.Post{p}
	if err := s.annotatePosts(viewerID, posts); err != nil {
		return nil, err
	}
	return &posts[0], nil
}

// ListUserPosts lists a user's visible posts, newest first. Disguised posts
// are only listed for their author.
func (s *Service) ListUserPosts(viewerID, userID string, page, limit int) ([]models.Post, error) {
	q := visiblePosts(s.db, s.now()).Where("author_id = ?", userID)
	if viewerID != userID {
		q = q.Where("visibility = ?", models.VisibilityNormal)
	}
	offset, size := Page(page, limit, config.DefaultFeedPageSize)
	var posts []models.Post
	if err := q.Order("created_at desc").Offset(offset).Limit(size).Find(&posts).Error; err != nil {
		return nil, err
	}
	if err := s.annotatePosts(viewerID, posts); err != nil {
		return nil, err
	}
	return posts, nil
}

// Trending returns the top visible posts by trending score.
func (s *Service) Trending(viewerID string) ([]models.Post, error) {
	var posts []models.Post
	err := visiblePosts(s.db, s.now()).
		Order("trending_score desc, created_at desc").
		Limit(trendingLimit).
		Find(&posts).Error
	if err != nil {
		return nil, err
	}
	if err := s.annotatePosts(viewerID, posts); err != nil {
		return nil, err
	}
	return posts, nil
}

// DeletePost hard-deletes a post with its ledger and comments and takes back
// the karma its reactions earned. Only the author may delete.
func (s *Service) DeletePost(userID, postID string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var p models.Post
		if err := tx.Where("id = ?", postID).Take(&p).Error; err != nil {
			return asNotFound(err, "post")
		}
		if p.AuthorID != userID {
			return forbidden("only the author can delete this post")
		}
		var reactions []models.Reaction
		if err := tx.Where("target_kind = ? AND post_id = ?", models.TargetPost, postID).Find(&reactions).Error; err != nil {
			return err
		}
		target := &ledgerTarget{kind: models.TargetPost, id: p.ID, authorID: p.AuthorID}
		for _, r := range reactions {
			if err := adjustKarma(tx, target, r.ReactorID, r.Type, -1); err != nil {
				return err
			}
		}
		if err := purgeLedger(tx, models.TargetPost, []string{postID}); err != nil {
			return err
		}
		return tx.Delete(&p).Error
	})
}

// purgeLedger removes reactions, comments and comment reactions for posts.
func purgeLedger(tx *gorm.DB, kind models.TargetKind, postIDs []string) error {
	if len(postIDs) == 0 {
		return nil
	}
	if err := tx.Where("target_kind = ? AND post_id IN ?", kind, postIDs).Delete(&models.Reaction{}).Error; err != nil {
		return err
	}
	comments := tx.Model(&models.Comment{}).Select("id").Where("target_kind = ? AND post_id IN ?", kind, postIDs)
	if err := tx.Where("comment_id IN (?)", comments).Delete(&models.CommentReaction{}).Error; err != nil {
		return err
	}
	return tx.Where("target_kind = ? AND post_id IN ?", kind, postIDs).Delete(&models.Comment{}).Error
}

// HidePost soft-deletes a post. The author or an admin may hide it.
func (s *Service) HidePost(userID, postID string, admin bool) error {
	var p models.Post
	if err := s.db.Where("id = ?", postID).Take(&p).Error; err != nil {
		return asNotFound(err, "post")
	}
	if p.Vanished(s.now()) {
		return notFound("post")
	}
	if !admin && p.AuthorID != userID {
		return forbidden("only the author can hide this post")
	}
	return s.db.Model(&p).Update("is_hidden", true).Error
}

// AddComment appends a comment and recomputes the post's trending score in
// one transaction. The post author and any @mentioned users are notified.
func (s *Service) AddComment(kind models.TargetKind, postID, authorID, content string) (*models.Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, validationf("comment cannot be empty")
	}
	if utf8.RuneCountInString(content) > config.MaxCommentLength {
		return nil, validationf("comment cannot exceed %d characters", config.MaxCommentLength)
	}

	comment := models.Comment{TargetKind: kind, PostID: postID, AuthorID: authorID, Content: content, CreatedAt: s.now()}
	var notifs []*models.Notification
	err := s.db.Transaction(func(tx *gorm.DB) error {
		t, err := s.lockTarget(tx, kind, postID)
		if err != nil {
			return err
		}
		if err := tx.Create(&comment).Error; err != nil {
			return err
		}
		t.commentCount++
		if err := s.refresh(tx, t); err != nil {
			return err
		}

		if kind != models.TargetPost {
			return nil
		}
		if t.authorID != authorID {
			notifs = append(notifs, &models.Notification{
				Type:        models.NotifyComment,
				RecipientID: t.authorID,
				ActorID:     authorID,
				TargetID:    postID,
				TargetType:  string(kind),
				Message:     "commented on your post",
			})
		}
		mentioned, err := mentionedUsers(tx, content)
		if err != nil {
			return err
		}
		for _, u := range mentioned {
			if u.ID == authorID || u.ID == t.authorID {
				continue
			}
			notifs = append(notifs, &models.Notification{
				Type:        models.NotifyMention,
				RecipientID: u.ID,
				ActorID:     authorID,
				TargetID:    postID,
				TargetType:  string(kind),
				Message:     "mentioned you in a comment",
			})
		}
		for _, n := range notifs {
			if err := tx.Create(n).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.deliver(notifs...)
	comments := []models.Comment{comment}
	if err := s.annotateComments(kind, authorID, comments); err != nil {
		return nil, err
	}
	return &comments[0], nil
}

func mentionedUsers(tx *gorm.DB, content string) ([]models.User, error) {
	var names []string
	for _, m := range mentionPattern.FindAllStringSubmatch(content, -1) {
		names = append(names, m[1])
	}
	if len(names) == 0 {
		return nil, nil
	}
	var users []models.User
	err := tx.Where("username IN ?", uniq(names)).Find(&users).Error
	return users, err
}

// ListComments returns a post's comments in the order they were written.
func (s *Service) ListComments(kind models.TargetKind, postID, viewerID string, page, limit int) ([]models.Comment, error) {
	if _, err := s.lockTarget(s.db, kind, postID); err != nil {
		return nil, err
	}
	offset, size := Page(page, limit, config.MaxPageSize)
	var comments []models.Comment
	err := s.db.Where("target_kind = ? AND post_id = ?", kind, postID).
		Order("created_at asc").Offset(offset).Limit(size).Find(&comments).Error
	if err != nil {
		return nil, err
	}
	if err := s.annotateComments(kind, viewerID, comments); err != nil {
		return nil, err
	}
	return comments, nil
}

// annotateComments fills authors and the viewer's reaction. Whisper comments
// are anonymous, so their session ids are never exposed.
func (s *Service) annotateComments(kind models.TargetKind, viewerID string, comments []models.Comment) error {
	if len(comments) == 0 {
		return nil
	}
	ids := make([]string, len(comments))
	authorIDs := make([]string, len(comments))
	for i, c := range comments {
		ids[i] = c.ID
		authorIDs[i] = c.AuthorID
	}

	mine := map[string]models.ReactionType{}
	if viewerID != "" {
		var rows []models.CommentReaction
		if err := s.db.Where("reactor_id = ? AND comment_id IN ?", viewerID, ids).Find(&rows).Error; err != nil {
			return err
		}
		for _, r := range rows {
			mine[r.CommentID] = r.Type
		}
	}

	authors := map[string]models.UserSummary{}
	if kind == models.TargetPost {
		var err error
		if authors, err = summaries(s.db, authorIDs); err != nil {
			return err
		}
	}

	for i := range comments {
		c := &comments[i]
		if rt, ok := mine[c.ID]; ok {
			rt := rt
			c.UserReaction = &rt
		}
		if kind == models.TargetWhisper {
			c.AuthorID = ""
			continue
		}
		if a, ok := authors[c.AuthorID]; ok {
			c.Author = &a
		}
	}
	return nil
}
