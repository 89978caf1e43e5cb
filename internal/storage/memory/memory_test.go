package memory

import (
	"context"
	"testing"
	"time"

	"skillchisel/internal/core"
)

func fixedClock() time.Time { return time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC) }

func TestMemoryStoreSkillLifecycle(t *testing.T) {
	s := NewWithClock(fixedClock)
	ctx := context.Background()

	sk, err := s.CreateSkill(ctx, core.NewSkill{Name: "Guitar", Category: "Music", UserID: "u1"})
	if err != nil {
		t.Fatalf("create skill: %v", err)
	}
	if sk.Color != core.DefaultColor || sk.TargetHours != 1 {
		t.Fatalf("defaults not applied: %+v", sk)
	}

	a, err := s.AppendEntry(ctx, "u1", sk.ID, core.Entry{Date: "2024-06-10", Hours: "1", Notes: "a"})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	b, err := s.AppendEntry(ctx, "u1", sk.ID, core.Entry{Date: "2024-06-10", Hours: "1", Notes: "b"})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if b.ID <= a.ID {
		t.Fatalf("expected increasing ids, got %d then %d", a.ID, b.ID)
	}

	if _, err := s.AppendEntry(ctx, "u2", sk.ID, core.Entry{Date: "2024-06-10", Hours: "1", Notes: "x"}); err != core.ErrSkillNotFound {
		t.Fatalf("expected ErrSkillNotFound for foreign user, got %v", err)
	}

	skills, _ := s.ListSkills(ctx, "u1")
	if len(skills) != 1 || len(skills[0].Entries) != 2 || skills[0].Entries[0].Notes != "a" {
		t.Fatalf("unexpected skills: %+v", skills)
	}

	// Returned snapshots are independent of the store.
	skills[0].Entries[0].Notes = "mutated"
	again, _ := s.ListSkills(ctx, "u1")
	if again[0].Entries[0].Notes != "a" {
		t.Fatalf("snapshot shares memory with store")
	}

	if err := s.DeleteSkill(ctx, "u1", sk.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.DeleteSkill(ctx, "u1", sk.ID); err != core.ErrSkillNotFound {
		t.Fatalf("expected ErrSkillNotFound on second delete, got %v", err)
	}
}

func TestMemoryStoreAccountsAndSessions(t *testing.T) {
	s := New()
	ctx := context.Background()
	now := fixedClock()

	if err := s.CreateAccount(ctx, core.Account{ID: "u1", Email: "a@example.com", CreatedAt: now}); err != nil {
		t.Fatalf("create account: %v", err)
	}
	if err := s.CreateAccount(ctx, core.Account{ID: "u2", Email: "a@example.com"}); err != core.ErrEmailTaken {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
	if err := s.LinkGoogleSubject(ctx, "u1", "sub"); err != nil {
		t.Fatalf("link: %v", err)
	}
	if a, err := s.AccountByGoogleSubject(ctx, "sub"); err != nil || a.ID != "u1" {
		t.Fatalf("lookup by subject: %+v %v", a, err)
	}

	_ = s.CreateSession(ctx, core.SessionRecord{ID: "s1", UserID: "u1", ExpiresAt: now.Add(time.Hour)})
	_ = s.CreateSession(ctx, core.SessionRecord{ID: "s2", UserID: "u1", ExpiresAt: now.Add(-time.Hour)})
	if err := s.RevokeSession(ctx, "s1"); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	n, _ := s.PurgeSessions(ctx, now)
	if n != 2 {
		t.Fatalf("expected 2 purged sessions, got %d", n)
	}

	sums, _ := s.ListAccounts(ctx)
	if len(sums) != 1 || sums[0].Email != "a@example.com" {
		t.Fatalf("unexpected summaries: %+v", sums)
	}
}
