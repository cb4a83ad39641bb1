package service

import (
	"testing"
	"time"

	"github.com/sujalbistaa/whisperwall/internal/models"
)

func TestKarmaFollowsReactionChanges(t *testing.T) {
	f := newFixture(t)
	a := f.user(t, "alice")
	b := f.user(t, "bob")
	p := f.post(t, b.ID, "hello")

	state, err := f.svc.AddReaction(models.TargetPost, p.ID, a.ID, models.ReactionLove)
	if err != nil {
		t.Fatalf("love: %v", err)
	}
	if state.Counts.Love != 1 || state.Counts.Total != 1 {
		t.Fatalf("unexpected counts after love: %+v", state.Counts)
	}
	if state.UserReaction == nil || *state.UserReaction != models.ReactionLove {
		t.Fatalf("expected user reaction love, got %v", state.UserReaction)
	}
	if got := f.karma(t, b.ID); got != 3 {
		t.Fatalf("karma after love = %d, want 3", got)
	}

	state, err = f.svc.AddReaction(models.TargetPost, p.ID, a.ID, models.ReactionFunny)
	if err != nil {
		t.Fatalf("funny: %v", err)
	}
	if state.Counts.Love != 0 || state.Counts.Funny != 1 || state.Counts.Total != 1 {
		t.Fatalf("unexpected counts after switch: %+v", state.Counts)
	}
	if got := f.karma(t, b.ID); got != 2 {
		t.Fatalf("karma after switch = %d, want 2", got)
	}

	state, err = f.svc.RemoveReaction(models.TargetPost, p.ID, a.ID)
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if state.Counts != (models.ReactionCounts{}) {
		t.Fatalf("counts not restored: %+v", state.Counts)
	}
	if state.UserReaction != nil {
		t.Fatalf("expected no user reaction after remove")
	}
	if got := f.karma(t, b.ID); got != 0 {
		t.Fatalf("karma after remove = %d, want 0", got)
	}
}

func TestReactionIsMutuallyExclusive(t *testing.T) {
	f := newFixture(t)
	a := f.user(t, "alice")
	b := f.user(t, "bob")
	p := f.post(t, b.ID, "pick one")

	for _, rt := range []models.ReactionType{
		models.ReactionLove, models.ReactionRage, models.ReactionRage, models.ReactionThinking, models.ReactionShock,
	} {
		if _, err := f.svc.AddReaction(models.TargetPost, p.ID, a.ID, rt); err != nil {
			t.Fatalf("react %s: %v", rt, err)
		}
	}

	var rows int64
	f.svc.DB().Model(&models.Reaction{}).Where("post_id = ? AND reactor_id = ?", p.ID, a.ID).Count(&rows)
	if rows != 1 {
		t.Fatalf("expected one ledger row, got %d", rows)
	}

	got, err := f.svc.GetPost(a.ID, p.ID)
	if err != nil {
		t.Fatalf("get post: %v", err)
	}
	if got.Reactions.Shock != 1 || got.Reactions.Total != 1 {
		t.Fatalf("unexpected stored counts: %+v", got.Reactions)
	}
	if got.UserReaction == nil || *got.UserReaction != models.ReactionShock {
		t.Fatalf("expected viewer reaction shock, got %v", got.UserReaction)
	}
	if k := f.karma(t, b.ID); k != models.ReactionShock.KarmaWeight() {
		t.Fatalf("karma = %d, want %d", k, models.ReactionShock.KarmaWeight())
	}
}

func TestSelfReactionLeavesKarma(t *testing.T) {
	f := newFixture(t)
	b := f.user(t, "bob")
	p := f.post(t, b.ID, "me me me")

	state, err := f.svc.AddReaction(models.TargetPost, p.ID, b.ID, models.ReactionLove)
	if err != nil {
		t.Fatalf("react: %v", err)
	}
	if state.Counts.Love != 1 {
		t.Fatalf("self reaction should still count, got %+v", state.Counts)
	}
	if k := f.karma(t, b.ID); k != 0 {
		t.Fatalf("self reaction moved karma to %d", k)
	}
	if _, err := f.svc.RemoveReaction(models.TargetPost, p.ID, b.ID); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if k := f.karma(t, b.ID); k != 0 {
		t.Fatalf("self unreaction moved karma to %d", k)
	}
	if n := f.push.count(b.ID, EventNotificationNew); n != 0 {
		t.Fatalf("self reaction should not notify, got %d", n)
	}
}

func TestReactionNotifiesAuthor(t *testing.T) {
	f := newFixture(t)
	a := f.user(t, "alice")
	b := f.user(t, "bob")
	p := f.post(t, b.ID, "notify me")

	if _, err := f.svc.AddReaction(models.TargetPost, p.ID, a.ID, models.ReactionFunny); err != nil {
		t.Fatalf("react: %v", err)
	}
	if n := f.push.count(b.ID, EventNotificationNew); n != 1 {
		t.Fatalf("expected one push to author, got %d", n)
	}
	notifs, err := f.svc.Notifications(b.ID, false, 1, 10)
	if err != nil {
		t.Fatalf("list notifications: %v", err)
	}
	if len(notifs) != 1 || notifs[0].Type != models.NotifyReaction || notifs[0].ActorID != a.ID {
		t.Fatalf("unexpected notifications: %+v", notifs)
	}
}

func TestInvalidReactionChangesNothing(t *testing.T) {
	f := newFixture(t)
	a := f.user(t, "alice")
	b := f.user(t, "bob")
	p := f.post(t, b.ID, "hello")

	_, err := f.svc.AddReaction(models.TargetPost, p.ID, a.ID, models.ReactionType("meh"))
	wantKind(t, err, ErrValidation)

	var rows int64
	f.svc.DB().Model(&models.Reaction{}).Count(&rows)
	if rows != 0 {
		t.Fatalf("invalid reaction wrote %d rows", rows)
	}
	if k := f.karma(t, b.ID); k != 0 {
		t.Fatalf("invalid reaction moved karma to %d", k)
	}
}

func TestReactionOnMissingPost(t *testing.T) {
	f := newFixture(t)
	a := f.user(t, "alice")

	_, err := f.svc.AddReaction(models.TargetPost, "no-such-post", a.ID, models.ReactionLove)
	wantKind(t, err, ErrNotFound)

	_, err = f.svc.RemoveReaction(models.TargetPost, "no-such-post", a.ID)
	wantKind(t, err, ErrNotFound)
}

func TestReactionOnHiddenOrVanishedPost(t *testing.T) {
	f := newFixture(t)
	a := f.user(t, "alice")
	b := f.user(t, "bob")

	hidden := f.post(t, b.ID, "hidden soon")
	if err := f.svc.HidePost(b.ID, hidden.ID, false); err != nil {
		t.Fatalf("hide: %v", err)
	}
	_, err := f.svc.AddReaction(models.TargetPost, hidden.ID, a.ID, models.ReactionLove)
	wantKind(t, err, ErrNotFound)

	vanishAt := f.clock.Now().Add(time.Hour)
	vanishing, err := f.svc.CreatePost(b.ID, NewPost{Text: "gone in an hour", VanishAt: &vanishAt})
	if err != nil {
		t.Fatalf("create vanishing post: %v", err)
	}
	if _, err := f.svc.AddReaction(models.TargetPost, vanishing.ID, a.ID, models.ReactionLove); err != nil {
		t.Fatalf("react before vanish: %v", err)
	}
	f.clock.Advance(2 * time.Hour)
	_, err = f.svc.AddReaction(models.TargetPost, vanishing.ID, a.ID, models.ReactionFunny)
	wantKind(t, err, ErrNotFound)
}

func TestRemoveWithoutReactionIsNoop(t *testing.T) {
	f := newFixture(t)
	a := f.user(t, "alice")
	b := f.user(t, "bob")
	p := f.post(t, b.ID, "hello")

	state, err := f.svc.RemoveReaction(models.TargetPost, p.ID, a.ID)
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if state.Counts.Total != 0 || state.UserReaction != nil {
		t.Fatalf("unexpected state %+v", state)
	}
}

func TestListReactors(t *testing.T) {
	f := newFixture(t)
	b := f.user(t, "bob")
	p := f.post(t, b.ID, "who loves this")

	names := []string{"alice", "carol", "dave"}
	for _, n := range names {
		u := f.user(t, n)
		if _, err := f.svc.AddReaction(models.TargetPost, p.ID, u.ID, models.ReactionLove); err != nil {
			t.Fatalf("react %s: %v", n, err)
		}
	}
	eve := f.user(t, "eve")
	if _, err := f.svc.AddReaction(models.TargetPost, p.ID, eve.ID, models.ReactionRage); err != nil {
		t.Fatalf("react eve: %v", err)
	}

	reactors, total, err := f.svc.ListReactors(p.ID, models.ReactionLove, 1, 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 3 {
		t.Fatalf("total = %d, want 3", total)
	}
	if len(reactors) != 2 {
		t.Fatalf("page size = %d, want 2", len(reactors))
	}
	for _, r := range reactors {
		if r.User.Username == "eve" {
			t.Fatalf("rage reactor listed under love")
		}
	}

	_, _, err = f.svc.ListReactors(p.ID, models.ReactionType("nope"), 1, 2)
	wantKind(t, err, ErrValidation)
}

func TestWhisperReactionsUseSession(t *testing.T) {
	f := newFixture(t)
	w, err := f.svc.CreateWhisper("session-a", NewWhisper{Text: "psst"})
	if err != nil {
		t.Fatalf("create whisper: %v", err)
	}

	state, err := f.svc.AddReaction(models.TargetWhisper, w.ID, "session-b", models.ReactionRelatable)
	if err != nil {
		t.Fatalf("react: %v", err)
	}
	if state.Counts.Relatable != 1 {
		t.Fatalf("unexpected counts %+v", state.Counts)
	}

	list, err := f.svc.ListWhispers("session-b", "", 1, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].UserReaction == nil || *list[0].UserReaction != models.ReactionRelatable {
		t.Fatalf("session reaction not annotated: %+v", list)
	}
	if list[0].IsOwn {
		t.Fatalf("whisper should not be owned by session-b")
	}
}

func TestCommentReactions(t *testing.T) {
	f := newFixture(t)
	a := f.user(t, "alice")
	b := f.user(t, "bob")
	p := f.post(t, b.ID, "discuss")
	c, err := f.svc.AddComment(models.TargetPost, p.ID, b.ID, "first")
	if err != nil {
		t.Fatalf("comment: %v", err)
	}

	_, err = f.svc.ReactToComment(models.TargetPost, p.ID, c.ID, a.ID, models.ReactionRage)
	wantKind(t, err, ErrValidation)

	state, err := f.svc.ReactToComment(models.TargetPost, p.ID, c.ID, a.ID, models.ReactionFunny)
	if err != nil {
		t.Fatalf("funny: %v", err)
	}
	if state.FunnyCount != 1 || state.LoveCount != 0 {
		t.Fatalf("unexpected state %+v", state)
	}
	state, err = f.svc.ReactToComment(models.TargetPost, p.ID, c.ID, a.ID, models.ReactionLove)
	if err != nil {
		t.Fatalf("love: %v", err)
	}
	if state.FunnyCount != 0 || state.LoveCount != 1 {
		t.Fatalf("switch did not move the count: %+v", state)
	}
	if k := f.karma(t, b.ID); k != 0 {
		t.Fatalf("comment reactions moved karma to %d", k)
	}

	state, err = f.svc.UnreactComment(models.TargetPost, p.ID, c.ID, a.ID)
	if err != nil {
		t.Fatalf("unreact: %v", err)
	}
	if state.FunnyCount != 0 || state.LoveCount != 0 {
		t.Fatalf("unreact left counts %+v", state)
	}

	_, err = f.svc.ReactToComment(models.TargetPost, p.ID, "missing", a.ID, models.ReactionLove)
	wantKind(t, err, ErrNotFound)
}

func TestTrendingScore(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	fresh := trendingScore(4, 1, now, now)
	old := trendingScore(4, 1, now.Add(-48*time.Hour), now)
	if fresh <= old {
		t.Fatalf("fresh score %f should beat old score %f", fresh, old)
	}
	// (4 + 2*1) / 2^1.5
	if want := 6 / 2.8284271247461903; fresh < want-1e-9 || fresh > want+1e-9 {
		t.Fatalf("score = %f, want %f", fresh, want)
	}
}
