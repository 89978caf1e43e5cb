package storage

import (
	"context"
	"time"

	"skillchisel/internal/core"
)

// Ports implemented by every storage backend.
type (
	// SkillStore holds skill documents and their embedded entry lists.
	SkillStore interface {
		// ListSkills returns the user's skills in creation order, each with
		// its entries in insertion order.
		ListSkills(ctx context.Context, userID string) ([]core.Skill, error)
		CreateSkill(ctx context.Context, n core.NewSkill) (core.Skill, error)
		// AppendEntry appends e to the skill in one atomic step and returns
		// it with its assigned id.
		AppendEntry(ctx context.Context, userID, skillID string, e core.Entry) (core.Entry, error)
		DeleteSkill(ctx context.Context, userID, skillID string) error
	}

	// AccountStore holds accounts and issued sessions.
	AccountStore interface {
		CreateAccount(ctx context.Context, a core.Account) error
		AccountByEmail(ctx context.Context, email string) (core.Account, error)
		AccountByGoogleSubject(ctx context.Context, subject string) (core.Account, error)
		LinkGoogleSubject(ctx context.Context, accountID, subject string) error
		CreateSession(ctx context.Context, s core.SessionRecord) error
		SessionByID(ctx context.Context, id string) (core.SessionRecord, error)
		RevokeSession(ctx context.Context, id string) error
		// PurgeSessions removes revoked sessions and those expired before now.
		PurgeSessions(ctx context.Context, now time.Time) (int64, error)
		ListAccounts(ctx context.Context) ([]AccountSummary, error)
	}

	// Store is a complete backend.
	Store interface {
		SkillStore
		AccountStore
		Ping(ctx context.Context) error
		Close() error
	}
)

// AccountSummary is one row of the administrative account listing.
type AccountSummary struct {
	ID         string
	Email      string
	CreatedAt  time.Time
	SkillCount int64
}
