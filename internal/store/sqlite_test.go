package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/xiaot623/chatdesk/internal/domain"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	s, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create sqlite store: %v", err)
	}
	t.Cleanup(func() {
		_ = s.Close()
	})
	return s
}

func newTestSession(id string) *domain.Session {
	now := time.Now().UTC()
	return &domain.Session{
		SessionID:     id,
		VisitorLabel:  domain.DefaultVisitorLabel,
		IsActive:      true,
		LastMessageAt: now,
		CreatedAt:     now,
	}
}

func TestSessionRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	sess := newTestSession("s1")
	if err := s.CreateSession(ctx, sess); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	got, err := s.GetSession(ctx, "s1")
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if got == nil {
		t.Fatal("expected session, got nil")
	}
	if got.VisitorLabel != domain.DefaultVisitorLabel || !got.IsActive || got.IsHandedOff {
		t.Fatalf("unexpected session: %+v", got)
	}
	if got.State() != domain.StateAutomated {
		t.Fatalf("expected AUTOMATED, got %s", got.State())
	}
}

func TestGetSessionMissing(t *testing.T) {
	s := newTestStore(t)

	got, err := s.GetSession(context.Background(), "nope")
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil for missing session, got %+v", got)
	}
}

func TestSetHandoff(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.CreateSession(ctx, newTestSession("s1")); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	if err := s.SetHandoff(ctx, "s1", true); err != nil {
		t.Fatalf("SetHandoff failed: %v", err)
	}
	got, _ := s.GetSession(ctx, "s1")
	if !got.IsHandedOff || got.State() != domain.StateHuman {
		t.Fatalf("expected HUMAN state, got %+v", got)
	}

	if err := s.SetHandoff(ctx, "s1", false); err != nil {
		t.Fatalf("SetHandoff back failed: %v", err)
	}
	got, _ = s.GetSession(ctx, "s1")
	if got.IsHandedOff {
		t.Fatalf("expected handoff cleared, got %+v", got)
	}

	if err := s.SetHandoff(ctx, "missing", true); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCloseSessionIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.CreateSession(ctx, newTestSession("s1")); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	if err := s.SetHandoff(ctx, "s1", true); err != nil {
		t.Fatalf("SetHandoff failed: %v", err)
	}

	if err := s.CloseSession(ctx, "s1"); err != nil {
		t.Fatalf("CloseSession failed: %v", err)
	}
	got, _ := s.GetSession(ctx, "s1")
	if got.IsActive || got.IsHandedOff || got.State() != domain.StateClosed {
		t.Fatalf("expected CLOSED with handoff cleared, got %+v", got)
	}

	// Second close is a no-op, not an error
	if err := s.CloseSession(ctx, "s1"); err != nil {
		t.Fatalf("second CloseSession failed: %v", err)
	}
	got, _ = s.GetSession(ctx, "s1")
	if got.IsActive {
		t.Fatalf("second close resurrected session: %+v", got)
	}

	if err := s.CloseSession(ctx, "missing"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMessageOrdering(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.CreateSession(ctx, newTestSession("s1")); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	base := time.Now().UTC()
	// m3 and m4 share a timestamp; insertion order must break the tie.
	stamps := []time.Time{base, base.Add(time.Second), base.Add(2 * time.Second), base.Add(2 * time.Second)}
	for i, ts := range stamps {
		msg := &domain.Message{
			MessageID: fmt.Sprintf("m%d", i+1),
			SessionID: "s1",
			Sender:    domain.SenderVisitor,
			Content:   "hello",
			CreatedAt: ts,
		}
		if err := s.CreateMessage(ctx, msg); err != nil {
			t.Fatalf("CreateMessage failed: %v", err)
		}
	}

	msgs, err := s.GetMessages(ctx, "s1", 0)
	if err != nil {
		t.Fatalf("GetMessages failed: %v", err)
	}
	if len(msgs) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(msgs))
	}
	for i, want := range []string{"m1", "m2", "m3", "m4"} {
		if msgs[i].MessageID != want {
			t.Fatalf("position %d: expected %s, got %s", i, want, msgs[i].MessageID)
		}
	}
}

func TestCreateMessageBumpsLastMessageAt(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	sess := newTestSession("s1")
	sess.LastMessageAt = time.Now().UTC().Add(-time.Hour)
	if err := s.CreateSession(ctx, sess); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	now := time.Now().UTC()
	msg := &domain.Message{MessageID: "m1", SessionID: "s1", Sender: domain.SenderVisitor, Content: "hi", CreatedAt: now}
	if err := s.CreateMessage(ctx, msg); err != nil {
		t.Fatalf("CreateMessage failed: %v", err)
	}

	got, _ := s.GetSession(ctx, "s1")
	if got.LastMessageAt.Before(now.Add(-time.Second)) {
		t.Fatalf("last_message_at not advanced: %v", got.LastMessageAt)
	}
}

func TestCreateMessageUnknownSession(t *testing.T) {
	s := newTestStore(t)

	msg := &domain.Message{MessageID: "m1", SessionID: "missing", Sender: domain.SenderVisitor, Content: "hi", CreatedAt: time.Now()}
	if err := s.CreateMessage(context.Background(), msg); err == nil {
		t.Fatal("expected error for unknown session")
	}
}

func TestGetRecentMessagesWindow(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.CreateSession(ctx, newTestSession("s1")); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	base := time.Now().UTC()
	for i := 0; i < 5; i++ {
		msg := &domain.Message{
			MessageID: fmt.Sprintf("m%d", i+1),
			SessionID: "s1",
			Sender:    domain.SenderVisitor,
			Content:   fmt.Sprintf("msg %d", i+1),
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}
		if err := s.CreateMessage(ctx, msg); err != nil {
			t.Fatalf("CreateMessage failed: %v", err)
		}
	}

	msgs, err := s.GetRecentMessages(ctx, "s1", 3)
	if err != nil {
		t.Fatalf("GetRecentMessages failed: %v", err)
	}
	if len(msgs) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(msgs))
	}
	// Newest three, in conversation order
	for i, want := range []string{"m3", "m4", "m5"} {
		if msgs[i].MessageID != want {
			t.Fatalf("position %d: expected %s, got %s", i, want, msgs[i].MessageID)
		}
	}
}

func TestListActiveSessions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Now().UTC()
	for i, id := range []string{"s1", "s2", "s3"} {
		sess := newTestSession(id)
		sess.LastMessageAt = base.Add(time.Duration(i) * time.Minute)
		if err := s.CreateSession(ctx, sess); err != nil {
			t.Fatalf("CreateSession failed: %v", err)
		}
	}
	if err := s.SetHandoff(ctx, "s2", true); err != nil {
		t.Fatalf("SetHandoff failed: %v", err)
	}
	if err := s.CloseSession(ctx, "s3"); err != nil {
		t.Fatalf("CloseSession failed: %v", err)
	}

	msg := &domain.Message{MessageID: "m1", SessionID: "s1", Sender: domain.SenderVisitor, Content: "latest", CreatedAt: base.Add(time.Hour)}
	if err := s.CreateMessage(ctx, msg); err != nil {
		t.Fatalf("CreateMessage failed: %v", err)
	}

	summaries, err := s.ListActiveSessions(ctx)
	if err != nil {
		t.Fatalf("ListActiveSessions failed: %v", err)
	}
	if len(summaries) != 2 {
		t.Fatalf("expected 2 active sessions, got %d", len(summaries))
	}
	// s1 has the newest message, so it sorts first
	if summaries[0].SessionID != "s1" || summaries[1].SessionID != "s2" {
		t.Fatalf("unexpected order: %s, %s", summaries[0].SessionID, summaries[1].SessionID)
	}
	if summaries[0].LastMessage == nil || summaries[0].LastMessage.Content != "latest" {
		t.Fatalf("expected last message annotation, got %+v", summaries[0].LastMessage)
	}
	if summaries[1].LastMessage != nil {
		t.Fatalf("expected no last message for s2, got %+v", summaries[1].LastMessage)
	}
	if !summaries[1].IsHandedOff {
		t.Fatal("expected s2 to be flagged as handed off")
	}
}
