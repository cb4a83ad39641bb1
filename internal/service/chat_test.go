package service

import (
	"fmt"
	"testing"
	"time"
)

func TestConversationIsUnordered(t *testing.T) {
	f := newFixture(t)
	a := f.user(t, "alice")
	b := f.user(t, "bob")

	ab, err := f.svc.GetOrCreateBetween(a.ID, b.ID)
	if err != nil {
		t.Fatalf("a-b: %v", err)
	}
	ba, err := f.svc.GetOrCreateBetween(b.ID, a.ID)
	if err != nil {
		t.Fatalf("b-a: %v", err)
	}
	if ab.ID != ba.ID {
		t.Fatalf("expected one conversation, got %s and %s", ab.ID, ba.ID)
	}

	_, err = f.svc.GetOrCreateBetween(a.ID, a.ID)
	wantKind(t, err, ErrValidation)

	_, err = f.svc.GetOrCreateBetween(a.ID, "ghost")
	wantKind(t, err, ErrNotFound)
}

func TestMarkReadIsIdempotent(t *testing.T) {
	f := newFixture(t)
	a := f.user(t, "alice")
	b := f.user(t, "bob")

	for i := 0; i < 3; i++ {
		f.clock.Advance(time.Second)
		if _, err := f.svc.SendMessage(b.ID, a.ID, fmt.Sprintf("msg %d", i), nil); err != nil {
			t.Fatalf("send: %v", err)
		}
	}
	f.clock.Advance(time.Second)
	if _, err := f.svc.SendMessage(a.ID, b.ID, "my own", nil); err != nil {
		t.Fatalf("send own: %v", err)
	}

	n, err := f.svc.MarkRead(a.ID, b.ID)
	if err != nil {
		t.Fatalf("mark read: %v", err)
	}
	if n != 3 {
		t.Fatalf("first markRead = %d, want 3", n)
	}
	n, err = f.svc.MarkRead(a.ID, b.ID)
	if err != nil {
		t.Fatalf("mark read again: %v", err)
	}
	if n != 0 {
		t.Fatalf("second markRead = %d, want 0", n)
	}
	if got := f.push.count(b.ID, EventMessagesRead); got != 1 {
		t.Fatalf("read receipt pushes = %d, want 1", got)
	}
}

func TestMessagesPageIsOldestFirst(t *testing.T) {
	f := newFixture(t)
	a := f.user(t, "alice")
	b := f.user(t, "bob")

	for i := 1; i <= 5; i++ {
		f.clock.Advance(time.Minute)
		if _, err := f.svc.SendMessage(a.ID, b.ID, fmt.Sprintf("m%d", i), nil); err != nil {
			t.Fatalf("send: %v", err)
		}
	}

	page1, err := f.svc.Messages(b.ID, a.ID, 1, 2)
	if err != nil {
		t.Fatalf("page 1: %v", err)
	}
	if len(page1) != 2 || page1[0].Text != "m4" || page1[1].Text != "m5" {
		t.Fatalf("unexpected page 1: %+v", page1)
	}
	page2, err := f.svc.Messages(b.ID, a.ID, 2, 2)
	if err != nil {
		t.Fatalf("page 2: %v", err)
	}
	if len(page2) != 2 || page2[0].Text != "m2" || page2[1].Text != "m3" {
		t.Fatalf("unexpected page 2: %+v", page2)
	}
}

func TestSendMessagePushesToPeer(t *testing.T) {
	f := newFixture(t)
	a := f.user(t, "alice")
	b := f.user(t, "bob")

	msg, err := f.svc.SendMessage(a.ID, b.ID, "  hi bob  ", nil)
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if msg.Text != "hi bob" {
		t.Fatalf("text not trimmed: %q", msg.Text)
	}
	if len(msg.ReadBy) != 1 || msg.ReadBy[0] != a.ID {
		t.Fatalf("sender should be the only reader, got %v", msg.ReadBy)
	}
	if got := f.push.count(b.ID, EventNewMessage); got != 1 {
		t.Fatalf("new-message pushes = %d, want 1", got)
	}
	if got := f.push.count(b.ID, EventNotificationNew); got != 1 {
		t.Fatalf("notification pushes = %d, want 1", got)
	}

	_, err = f.svc.SendMessage(a.ID, b.ID, "   ", nil)
	wantKind(t, err, ErrValidation)
}

func TestEditMessageRules(t *testing.T) {
	f := newFixture(t)
	a := f.user(t, "alice")
	b := f.user(t, "bob")

	msg, err := f.svc.SendMessage(a.ID, b.ID, "typo", nil)
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	_, err = f.svc.EditMessage(b.ID, a.ID, msg.ID, "not mine")
	wantKind(t, err, ErrForbidden)

	edited, err := f.svc.EditMessage(a.ID, b.ID, msg.ID, "fixed")
	if err != nil {
		t.Fatalf("edit: %v", err)
	}
	if edited.Text != "fixed" || edited.EditedAt == nil {
		t.Fatalf("edit not applied: %+v", edited)
	}

	if _, err := f.svc.MarkRead(b.ID, a.ID); err != nil {
		t.Fatalf("mark read: %v", err)
	}
	_, err = f.svc.EditMessage(a.ID, b.ID, msg.ID, "too late")
	wantKind(t, err, ErrForbidden)
}

func TestDeleteMessage(t *testing.T) {
	f := newFixture(t)
	a := f.user(t, "alice")
	b := f.user(t, "bob")

	msg, err := f.svc.SendMessage(a.ID, b.ID, "oops", nil)
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	wantKind(t, f.svc.DeleteMessage(b.ID, a.ID, msg.ID), ErrForbidden)
	if err := f.svc.DeleteMessage(a.ID, b.ID, msg.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	wantKind(t, f.svc.DeleteMessage(a.ID, b.ID, msg.ID), ErrNotFound)
	if got := f.push.count(b.ID, EventMessageDeleted); got != 1 {
		t.Fatalf("delete pushes = %d, want 1", got)
	}
}

func TestReactToMessageToggles(t *testing.T) {
	f := newFixture(t)
	a := f.user(t, "alice")
	b := f.user(t, "bob")

	msg, err := f.svc.SendMessage(a.ID, b.ID, "react to me", nil)
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	res, err := f.svc.ReactToMessage(b.ID, a.ID, msg.ID, "🔥")
	if err != nil {
		t.Fatalf("react: %v", err)
	}
	if len(res.Reactions) != 1 || res.Reactions[0].Emoji != "🔥" {
		t.Fatalf("unexpected reactions %+v", res.Reactions)
	}
	res, err = f.svc.ReactToMessage(b.ID, a.ID, msg.ID, "😂")
	if err != nil {
		t.Fatalf("switch: %v", err)
	}
	if len(res.Reactions) != 1 || res.Reactions[0].Emoji != "😂" {
		t.Fatalf("switch should replace, got %+v", res.Reactions)
	}
	res, err = f.svc.ReactToMessage(b.ID, a.ID, msg.ID, "😂")
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if len(res.Reactions) != 0 {
		t.Fatalf("same emoji should remove, got %+v", res.Reactions)
	}
}

func TestConversationSummaries(t *testing.T) {
	f := newFixture(t)
	a := f.user(t, "alice")
	b := f.user(t, "bob")
	c := f.user(t, "carol")

	d := f.user(t, "dave")
	if _, err := f.svc.GetOrCreateBetween(a.ID, d.ID); err != nil {
		t.Fatalf("empty thread: %v", err)
	}

	f.clock.Advance(time.Minute)
	if _, err := f.svc.SendMessage(b.ID, a.ID, "from bob", nil); err != nil {
		t.Fatalf("send: %v", err)
	}
	f.clock.Advance(time.Minute)
	if _, err := f.svc.SendMessage(c.ID, a.ID, "from carol 1", nil); err != nil {
		t.Fatalf("send: %v", err)
	}
	f.clock.Advance(time.Minute)
	if _, err := f.svc.SendMessage(c.ID, a.ID, "from carol 2", nil); err != nil {
		t.Fatalf("send: %v", err)
	}

	convs, err := f.svc.Conversations(a.ID)
	if err != nil {
		t.Fatalf("conversations: %v", err)
	}
	if len(convs) != 3 {
		t.Fatalf("got %d conversations, want 3", len(convs))
	}
	if convs[0].Peer.ID != c.ID || convs[0].UnreadCount != 2 {
		t.Fatalf("unexpected first summary %+v", convs[0])
	}
	if convs[0].LastMessage == nil || convs[0].LastMessage.Text != "from carol 2" {
		t.Fatalf("unexpected last message %+v", convs[0].LastMessage)
	}
	if convs[1].Peer.ID != b.ID || convs[1].UnreadCount != 1 {
		t.Fatalf("unexpected second summary %+v", convs[1])
	}
	if convs[2].Peer.ID != d.ID || convs[2].LastMessage != nil || convs[2].UnreadCount != 0 {
		t.Fatalf("empty thread should sort last, got %+v", convs[2])
	}
}
