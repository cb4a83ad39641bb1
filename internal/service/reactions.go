package service

import (
	"errors"
	"math"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sujalbistaa/whisperwall/internal/config"
	"github.com/sujalbistaa/whisperwall/internal/models"
)

// ReactionState is returned after every ledger mutation.
type ReactionState struct {
	PostID       string                `json:"postId"`
	Counts       models.ReactionCounts `json:"reactionCounts"`
	UserReaction *models.ReactionType  `json:"userReaction"`
}

// ledgerTarget is the locked post row a ledger operation works against.
type ledgerTarget struct {
	kind         models.TargetKind
	id           string
	authorID     string // empty for whispers
	counts       models.ReactionCounts
	commentCount int
	createdAt    time.Time
}

// lockTarget loads a live post of the given kind for update. Hidden, vanished
// and expired posts are reported as not found.
func (s *Service) lockTarget(tx *gorm.DB, kind models.TargetKind, postID string) (*ledgerTarget, error) {
	now := s.now()
	locked := tx.Clauses(clause.Locking{Strength: "UPDATE"})

	switch kind {
	case models.TargetPost:
		var p models.Post
		err := visiblePosts(locked, now).Where("id = ?", postID).Take(&p).Error
		if err != nil {
			return nil, asNotFound(err, "post")
		}
		return &ledgerTarget{kind: kind, id: p.ID, authorID: p.AuthorID, counts: p.Reactions,
			commentCount: p.CommentCount, createdAt: p.CreatedAt}, nil
	case models.TargetWhisper:
		var w models.WhisperPost
		err := liveWhispers(locked, now).Where("id = ?", postID).Take(&w).Error
		if err != nil {
			return nil, asNotFound(err, "post")
		}
		return &ledgerTarget{kind: kind, id: w.ID, counts: w.Reactions,
			commentCount: w.CommentCount, createdAt: w.CreatedAt}, nil
	}
	return nil, validationf("unknown post kind %q", kind)
}

func targetModel(kind models.TargetKind) interface{} {
	if kind == models.TargetWhisper {
		return &models.WhisperPost{}
	}
	return &models.Post{}
}

// visiblePosts restricts a query to posts that are neither hidden nor vanished.
func visiblePosts(tx *gorm.DB, now time.Time) *gorm.DB {
	return tx.Where("is_hidden = ?", false).
		Where("(vanish_enabled = ? OR vanish_vanish_at IS NULL OR vanish_vanish_at > ?)", false, now)
}

// liveWhispers restricts a query to whispers that are not hidden and not expired.
func liveWhispers(tx *gorm.DB, now time.Time) *gorm.DB {
	return tx.Where("is_hidden = ? AND expires_at > ?", false, now)
}

// trendingScore favors engagement and decays with age.
func trendingScore(reactions, comments int, createdAt, now time.Time) float64 {
	age := now.Sub(createdAt).Hours()
	if age < 0 {
		age = 0
	}
	return float64(reactions+2*comments) / math.Pow(age+2, 1.5)
}

// refresh recounts the ledger for t and stores counts and trending score on
// the post row.
func (s *Service) refresh(tx *gorm.DB, t *ledgerTarget) error {
	var rows []struct {
		Type  models.ReactionType
		Count int
	}
	err := tx.Model(&models.Reaction{}).
		Select("type, COUNT(*) AS count").
		Where("target_kind = ? AND post_id = ?", t.kind, t.id).
		Group("type").
		Scan(&rows).Error
	if err != nil {
		return err
	}

	var counts models.ReactionCounts
	for _, r := range rows {
		counts.Set(r.Type, r.Count)
		counts.Total += r.Count
	}
	t.counts = counts

	return tx.Model(targetModel(t.kind)).Where("id = ?", t.id).Updates(map[string]interface{}{
		"reaction_funny":     counts.Funny,
		"reaction_rage":      counts.Rage,
		"reaction_shock":     counts.Shock,
		"reaction_relatable": counts.Relatable,
		"reaction_love":      counts.Love,
		"reaction_thinking":  counts.Thinking,
		"reaction_total":     counts.Total,
		"comment_count":      t.commentCount,
		"trending_score":     trendingScore(counts.Total, t.commentCount, t.createdAt, s.now()),
	}).Error
}

// adjustKarma moves the author's karma by the weight of rt. Self reactions and
// whispers never move karma.
func adjustKarma(tx *gorm.DB, t *ledgerTarget, reactorID string, rt models.ReactionType, sign int) error {
	if t.kind != models.TargetPost || t.authorID == "" || t.authorID == reactorID {
		return nil
	}
	delta := sign * rt.KarmaWeight()
	return tx.Model(&models.User{}).Where("id = ?", t.authorID).
		Update("stats_karma_score", gorm.Expr("stats_karma_score + ?", delta)).Error
}

// AddReaction records reactorID's reaction of type rt on a post. An existing
// reaction of another type is replaced; the same type again changes nothing.
func (s *Service) AddReaction(kind models.TargetKind, postID, reactorID string, rt models.ReactionType) (*ReactionState, error) {
	if !rt.Valid() {
		return nil, validationf("invalid reaction type %q", rt)
	}
	if reactorID == "" {
		return nil, validationf("missing reactor")
	}

	var (
		state *ReactionState
		notif *models.Notification
	)
	err := s.db.Transaction(func(tx *gorm.DB) error {
		t, err := s.lockTarget(tx, kind, postID)
		if err != nil {
			return err
		}

		var existing models.Reaction
		err = tx.Where("target_kind = ? AND post_id = ? AND reactor_id = ?", kind, postID, reactorID).
			Take(&existing).Error
		switch {
		case err == nil:
			if existing.Type == rt {
				state = &ReactionState{PostID: postID, Counts: t.counts, UserReaction: &rt}
				return nil
			}
			if err := tx.Delete(&existing).Error; err != nil {
				return err
			}
			if err := adjustKarma(tx, t, reactorID, existing.Type, -1); err != nil {
				return err
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
		default:
			return err
		}

		entry := models.Reaction{TargetKind: kind, PostID: postID, ReactorID: reactorID, Type: rt}
		if err := tx.Create(&entry).Error; err != nil {
			return err
		}
		if err := adjustKarma(tx, t, reactorID, rt, 1); err != nil {
			return err
		}
		if err := s.refresh(tx, t); err != nil {
			return err
		}

		if kind == models.TargetPost && t.authorID != reactorID {
			notif = &models.Notification{
				Type:        models.NotifyReaction,
				RecipientID: t.authorID,
				ActorID:     reactorID,
				TargetID:    postID,
				TargetType:  string(kind),
				Message:     "reacted " + string(rt) + " to your post",
			}
			if err := tx.Create(notif).Error; err != nil {
				return err
			}
		}

		state = &ReactionState{PostID: postID, Counts: t.counts, UserReaction: &rt}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.deliver(notif)
	return state, nil
}

// RemoveReaction drops whatever reaction reactorID has on the post. Removing a
// reaction that does not exist is not an error.
func (s *Service) RemoveReaction(kind models.TargetKind, postID, reactorID string) (*ReactionState, error) {
	var state *ReactionState
	err := s.db.Transaction(func(tx *gorm.DB) error {
		t, err := s.lockTarget(tx, kind, postID)
		if err != nil {
			return err
		}

		var existing models.Reaction
		err = tx.Where("target_kind = ? AND post_id = ? AND reactor_id = ?", kind, postID, reactorID).
			Take(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			state = &ReactionState{PostID: postID, Counts: t.counts}
			return nil
		}
		if err != nil {
			return err
		}

		if err := tx.Delete(&existing).Error; err != nil {
			return err
		}
		if err := adjustKarma(tx, t, reactorID, existing.Type, -1); err != nil {
			return err
		}
		if err := s.refresh(tx, t); err != nil {
			return err
		}
		state = &ReactionState{PostID: postID, Counts: t.counts}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return state, nil
}

// Reactor is one entry of a reactors listing.
type Reactor struct {
	User      models.UserSummary `json:"user"`
	ReactedAt time.Time          `json:"reactedAt"`
}

// ListReactors pages through the users who reacted to a post with rt, newest first.
func (s *Service) ListReactors(postID string, rt models.ReactionType, page, limit int) ([]Reactor, int64, error) {
	if !rt.Valid() {
		return nil, 0, validationf("invalid reaction type %q", rt)
	}
	var p models.Post
	if err := visiblePosts(s.db, s.now()).Select("id").Where("id = ?", postID).Take(&p).Error; err != nil {
		return nil, 0, asNotFound(err, "post")
	}

	q := s.db.Model(&models.Reaction{}).
		Where("target_kind = ? AND post_id = ? AND type = ?", models.TargetPost, postID, rt)
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset, size := Page(page, limit, config.DefaultReactorsPerPage)
	var entries []models.Reaction
	err := s.db.Where("target_kind = ? AND post_id = ? AND type = ?", models.TargetPost, postID, rt).
		Order("created_at desc").Offset(offset).Limit(size).Find(&entries).Error
	if err != nil {
		return nil, 0, err
	}

	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.ReactorID)
	}
	users, err := summaries(s.db, ids)
	if err != nil {
		return nil, 0, err
	}

	out := make([]Reactor, 0, len(entries))
	for _, e := range entries {
		u, ok := users[e.ReactorID]
		if !ok {
			continue
		}
		out = append(out, Reactor{User: u, ReactedAt: e.CreatedAt})
	}
	return out, total, nil
}

// viewerReactions maps post id to the viewer's reaction for the given posts.
func (s *Service) viewerReactions(kind models.TargetKind, viewerID string, postIDs []string) (map[string]models.ReactionType, error) {
	out := make(map[string]models.ReactionType, len(postIDs))
	if viewerID == "" || len(postIDs) == 0 {
		return out, nil
	}
	var rows []models.Reaction
	err := s.db.Select("post_id", "type").
		Where("target_kind = ? AND reactor_id = ? AND post_id IN ?", kind, viewerID, postIDs).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		out[r.PostID] = r.Type
	}
	return out, nil
}

// annotatePosts fills UserReaction, authors and disguise on each post.
func (s *Service) annotatePosts(viewerID string, posts []models.Post) error {
	if len(posts) == 0 {
		return nil
	}
	ids := make([]string, len(posts))
	authorIDs := make([]string, len(posts))
	for i, p := range posts {
		ids[i] = p.ID
		authorIDs[i] = p.AuthorID
	}
	mine, err := s.viewerReactions(models.TargetPost, viewerID, ids)
	if err != nil {
		return err
	}
	authors, err := summaries(s.db, authorIDs)
	if err != nil {
		return err
	}
	for i := range posts {
		p := &posts[i]
		if rt, ok := mine[p.ID]; ok {
			rt := rt
			p.UserReaction = &rt
		}
		if a, ok := authors[p.AuthorID]; ok {
			p.Author = &a
		}
		p.Disguise(viewerID)
	}
	return nil
}

// annotateWhispers fills the session's reaction and ownership flag.
func (s *Service) annotateWhispers(sessionID string, whispers []models.WhisperPost) error {
	if len(whispers) == 0 {
		return nil
	}
	ids := make([]string, len(whispers))
	for i, w := range whispers {
		ids[i] = w.ID
	}
	mine, err := s.viewerReactions(models.TargetWhisper, sessionID, ids)
	if err != nil {
		return err
	}
	for i := range whispers {
		w := &whispers[i]
		if rt, ok := mine[w.ID]; ok {
			rt := rt
			w.UserReaction = &rt
		}
		w.IsOwn = sessionID != "" && w.SessionID == sessionID
	}
	return nil
}

// CommentReactionState is returned after a comment reaction change.
type CommentReactionState struct {
	CommentID    string               `json:"commentId"`
	FunnyCount   int                  `json:"funnyCount"`
	LoveCount    int                  `json:"loveCount"`
	UserReaction *models.ReactionType `json:"userReaction"`
}

func (s *Service) lockComment(tx *gorm.DB, kind models.TargetKind, postID, commentID string) (*models.Comment, error) {
	if _, err := s.lockTarget(tx, kind, postID); err != nil {
		return nil, err
	}
	var c models.Comment
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ? AND post_id = ? AND target_kind = ?", commentID, postID, kind).
		Take(&c).Error
	if err != nil {
		return nil, asNotFound(err, "comment")
	}
	return &c, nil
}

func recountComment(tx *gorm.DB, c *models.Comment) error {
	var rows []struct {
		Type  models.ReactionType
		Count int
	}
	err := tx.Model(&models.CommentReaction{}).
		Select("type, COUNT(*) AS count").
		Where("comment_id = ?", c.ID).
		Group("type").
		Scan(&rows).Error
	if err != nil {
		return err
	}
	c.FunnyCount, c.LoveCount = 0, 0
	for _, r := range rows {
		switch r.Type {
		case models.ReactionFunny:
			c.FunnyCount = r.Count
		case models.ReactionLove:
			c.LoveCount = r.Count
		}
	}
	return tx.Model(&models.Comment{}).Where("id = ?", c.ID).Updates(map[string]interface{}{
		"funny_count": c.FunnyCount,
		"love_count":  c.LoveCount,
	}).Error
}

// ReactToComment sets reactorID's reaction on a comment. Only funny and love
// are accepted and comment reactions never affect karma.
func (s *Service) ReactToComment(kind models.TargetKind, postID, commentID, reactorID string, rt models.ReactionType) (*CommentReactionState, error) {
	if !models.ValidCommentReaction(rt) {
		return nil, validationf("invalid comment reaction type %q", rt)
	}

	var state *CommentReactionState
	err := s.db.Transaction(func(tx *gorm.DB) error {
		c, err := s.lockComment(tx, kind, postID, commentID)
		if err != nil {
			return err
		}

		var existing models.CommentReaction
		err = tx.Where("comment_id = ? AND reactor_id = ?", commentID, reactorID).Take(&existing).Error
		switch {
		case err == nil:
			if existing.Type != rt {
				if err := tx.Model(&existing).Update("type", rt).Error; err != nil {
					return err
				}
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			entry := models.CommentReaction{CommentID: commentID, ReactorID: reactorID, Type: rt}
			if err := tx.Create(&entry).Error; err != nil {
				return err
			}
		default:
			return err
		}

		if err := recountComment(tx, c); err != nil {
			return err
		}
		state = &CommentReactionState{CommentID: c.ID, FunnyCount: c.FunnyCount, LoveCount: c.LoveCount, UserReaction: &rt}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return state, nil
}

// UnreactComment removes reactorID's reaction from a comment, if any.
func (s *Service) UnreactComment(kind models.TargetKind, postID, commentID, reactorID string) (*CommentReactionState, error) {
	var state *CommentReactionState
	err := s.db.Transaction(func(tx *gorm.DB) error {
		c, err := s.lockComment(tx, kind, postID, commentID)
		if err != nil {
			return err
		}
		if err := tx.Where("comment_id = ? AND reactor_id = ?", commentID, reactorID).
			Delete(&models.CommentReaction{}).Error; err != nil {
			return err
		}
		if err := recountComment(tx, c); err != nil {
			return err
		}
		state = &CommentReactionState{CommentID: c.ID, FunnyCount: c.FunnyCount, LoveCount: c.LoveCount}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return state, nil
}
