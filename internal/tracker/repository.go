package tracker

import (
	"context"

	"skillchisel/internal/core"
)

// Repository is the document store as seen by the tracker view.
type Repository interface {
	// Watch delivers the user's full skill list now and after every change
	// until the returned function is called.
	Watch(userID string, fn func([]core.Skill)) (unsubscribe func())

	CreateSkill(ctx context.Context, n core.NewSkill) (core.Skill, error)

	// AppendEntry adds e to the end of the skill's entries in one atomic
	// step and returns it with its assigned id.
	AppendEntry(ctx context.Context, userID, skillID string, e core.Entry) (core.Entry, error)

	DeleteSkill(ctx context.Context, userID, skillID string) error
}
