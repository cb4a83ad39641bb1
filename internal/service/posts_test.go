package service

import (
	"strings"
	"testing"
	"time"

	"github.com/sujalbistaa/whisperwall/internal/models"
)

func TestCreatePostValidation(t *testing.T) {
	f := newFixture(t)
	a := f.user(t, "alice")
	past := f.clock.Now().Add(-time.Minute)

	tests := []struct {
		name string
		in   NewPost
	}{
		{"empty", NewPost{Text: "  "}},
		{"too long", NewPost{Text: strings.Repeat("x", 2001)}},
		{"bad category", NewPost{Text: "hi", Category: "memes"}},
		{"bad visibility", NewPost{Text: "hi", Visibility: "secret"}},
		{"vanish in the past", NewPost{Text: "hi", VanishAt: &past}},
		{"media without url", NewPost{Media: []models.MediaItem{{Type: "image"}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.CreatePost(a.ID, tt.in)
			wantKind(t, err, ErrValidation)
		})
	}

	_, err := f.svc.CreatePost("ghost", NewPost{Text: "boo"})
	wantKind(t, err, ErrNotFound)
}

func TestCreatePostAdvancesStreak(t *testing.T) {
	f := newFixture(t)
	a := f.user(t, "alice")

	f.post(t, a.ID, "day one")
	f.post(t, a.ID, "day one again")
	f.clock.Advance(24 * time.Hour)
	f.post(t, a.ID, "day two")
	f.clock.Advance(72 * time.Hour)
	f.post(t, a.ID, "after a break")

	u, err := f.svc.GetUser(a.ID)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if u.Stats.CurrentStreak != 1 || u.Stats.LongestStreak != 2 {
		t.Fatalf("streak = %d/%d, want 1/2", u.Stats.CurrentStreak, u.Stats.LongestStreak)
	}
	if u.Stats.PostCount != 4 {
		t.Fatalf("post count = %d, want 4", u.Stats.PostCount)
	}
	if u.Stats.LastPostAt == nil {
		t.Fatalf("last post time not recorded")
	}
}

func TestCommentsNotifyAuthorAndMentions(t *testing.T) {
	f := newFixture(t)
	a := f.user(t, "alice")
	b := f.user(t, "bob")
	c := f.user(t, "carol")
	p := f.post(t, b.ID, "thoughts?")

	comment, err := f.svc.AddComment(models.TargetPost, p.ID, a.ID, "  agree, right @carol? also @nobody_here  ")
	if err != nil {
		t.Fatalf("comment: %v", err)
	}
	if comment.Author == nil || comment.Author.ID != a.ID {
		t.Fatalf("comment author not annotated: %+v", comment)
	}
	if f.push.count(b.ID, EventNotificationNew) != 1 {
		t.Fatalf("author not notified")
	}
	if f.push.count(c.ID, EventNotificationNew) != 1 {
		t.Fatalf("mentioned user not notified")
	}
	mentions, err := f.svc.Notifications(c.ID, true, 1, 10)
	if err != nil {
		t.Fatalf("notifications: %v", err)
	}
	if len(mentions) != 1 || mentions[0].Type != models.NotifyMention {
		t.Fatalf("unexpected mention notifications %+v", mentions)
	}

	if _, err := f.svc.AddComment(models.TargetPost, p.ID, b.ID, "thanks"); err != nil {
		t.Fatalf("own comment: %v", err)
	}
	if f.push.count(b.ID, EventNotificationNew) != 1 {
		t.Fatalf("author notified about their own comment")
	}

	got, err := f.svc.GetPost(a.ID, p.ID)
	if err != nil {
		t.Fatalf("get post: %v", err)
	}
	if got.CommentCount != 2 || got.TrendingScore <= 0 {
		t.Fatalf("comment count/trending not updated: %d/%f", got.CommentCount, got.TrendingScore)
	}

	comments, err := f.svc.ListComments(models.TargetPost, p.ID, a.ID, 1, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(comments) != 2 || comments[0].ID != comment.ID {
		t.Fatalf("comments not in written order")
	}

	_, err = f.svc.AddComment(models.TargetPost, p.ID, a.ID, " ")
	wantKind(t, err, ErrValidation)
}

func TestDeletePostPurgesLedger(t *testing.T) {
	f := newFixture(t)
	a := f.user(t, "alice")
	b := f.user(t, "bob")
	p := f.post(t, b.ID, "short lived")

	if _, err := f.svc.AddReaction(models.TargetPost, p.ID, a.ID, models.ReactionLove); err != nil {
		t.Fatalf("react: %v", err)
	}
	c, err := f.svc.AddComment(models.TargetPost, p.ID, a.ID, "nice")
	if err != nil {
		t.Fatalf("comment: %v", err)
	}
	if _, err := f.svc.ReactToComment(models.TargetPost, p.ID, c.ID, b.ID, models.ReactionLove); err != nil {
		t.Fatalf("comment reaction: %v", err)
	}

	kept := f.post(t, b.ID, "stays")
	if _, err := f.svc.AddReaction(models.TargetPost, kept.ID, a.ID, models.ReactionFunny); err != nil {
		t.Fatalf("react: %v", err)
	}
	if got := f.karma(t, b.ID); got != 5 {
		t.Fatalf("karma before delete = %d, want 5", got)
	}

	wantKind(t, f.svc.DeletePost(a.ID, p.ID), ErrForbidden)
	if err := f.svc.DeletePost(b.ID, p.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if got := f.karma(t, b.ID); got != 2 {
		t.Fatalf("karma after delete = %d, want 2", got)
	}
	_, err = f.svc.GetPost(b.ID, p.ID)
	wantKind(t, err, ErrNotFound)

	var reactions, comments, commentReactions int64
	f.svc.DB().Model(&models.Reaction{}).Where("post_id = ?", p.ID).Count(&reactions)
	f.svc.DB().Model(&models.Comment{}).Count(&comments)
	f.svc.DB().Model(&models.CommentReaction{}).Count(&commentReactions)
	if reactions+comments+commentReactions != 0 {
		t.Fatalf("ledger left behind: %d/%d/%d", reactions, comments, commentReactions)
	}
}

func TestHidePost(t *testing.T) {
	f := newFixture(t)
	a := f.user(t, "alice")
	b := f.user(t, "bob")
	p := f.post(t, b.ID, "reported")

	wantKind(t, f.svc.HidePost(a.ID, p.ID, false), ErrForbidden)
	if err := f.svc.HidePost("", p.ID, true); err != nil {
		t.Fatalf("admin hide: %v", err)
	}
	_, err := f.svc.GetPost(a.ID, p.ID)
	wantKind(t, err, ErrNotFound)

	vanishAt := f.clock.Now().Add(time.Hour)
	gone, err := f.svc.CreatePost(b.ID, NewPost{Text: "brief", VanishAt: &vanishAt})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	f.clock.Advance(2 * time.Hour)
	wantKind(t, f.svc.HidePost(b.ID, gone.ID, false), ErrNotFound)
}

func TestListUserPostsHidesDisguised(t *testing.T) {
	f := newFixture(t)
	a := f.user(t, "alice")
	b := f.user(t, "bob")
	f.post(t, b.ID, "public")
	f.clock.Advance(time.Second)
	if _, err := f.svc.CreatePost(b.ID, NewPost{Text: "masked", Visibility: models.VisibilityDisguise}); err != nil {
		t.Fatalf("create: %v", err)
	}

	others, err := f.svc.ListUserPosts(a.ID, b.ID, 1, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(others) != 1 {
		t.Fatalf("other viewers see %d posts, want 1", len(others))
	}
	own, err := f.svc.ListUserPosts(b.ID, b.ID, 1, 10)
	if err != nil {
		t.Fatalf("list own: %v", err)
	}
	if len(own) != 2 {
		t.Fatalf("author sees %d posts, want 2", len(own))
	}
}

func TestTrendingOrdersByScore(t *testing.T) {
	f := newFixture(t)
	a := f.user(t, "alice")
	b := f.user(t, "bob")
	quiet := f.post(t, b.ID, "quiet")
	loud := f.post(t, b.ID, "loud")
	if _, err := f.svc.AddReaction(models.TargetPost, loud.ID, a.ID, models.ReactionLove); err != nil {
		t.Fatalf("react: %v", err)
	}

	posts, err := f.svc.Trending(a.ID)
	if err != nil {
		t.Fatalf("trending: %v", err)
	}
	if len(posts) != 2 || posts[0].ID != loud.ID || posts[1].ID != quiet.ID {
		t.Fatalf("trending order wrong")
	}
}
