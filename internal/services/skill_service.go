package services

import (
	"context"
	"fmt"
	"time"

	applog "skillchisel/internal/log"

	"skillchisel/internal/core"
	"skillchisel/internal/livequery"
	"skillchisel/internal/storage"
	"skillchisel/internal/tracker"
)

const readTimeout = 10 * time.Second

// SkillService orchestrates skill operations across the store and the live
// query hub. Every successful mutation notifies the owning user's watchers.
type SkillService struct {
	storage storage.SkillStore
	hub     *livequery.Hub
	logger  *applog.Logger
	events  *applog.StructuredLogger
}

var _ tracker.Repository = (*SkillService)(nil)

func NewSkillService(store storage.SkillStore, hub *livequery.Hub, logger *applog.Logger) *SkillService {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	logger = logger.WithComponent(applog.ComponentSkill)
	return &SkillService{
		storage: store,
		hub:     hub,
		logger:  logger,
		events:  applog.NewStructuredLogger(logger),
	}
}

// Watch delivers the user's skills now and after every change. A failed
// read is logged and skipped, so the watcher keeps its previous snapshot.
func (s *SkillService) Watch(userID string, fn func([]core.Skill)) func() {
	return s.hub.Subscribe(userID, func() {
		ctx, cancel := context.WithTimeout(context.Background(), readTimeout)
		defer cancel()

		skills, err := s.storage.ListSkills(ctx, userID)
		if err != nil {
			s.events.LogError(ctx, "Failed to read skills for watcher", err,
				applog.ComponentSkill, applog.OpWatch, applog.NewFields().WithUser(userID))
			return
		}
		fn(skills)
	})
}

// CreateSkill saves a new skill document.
func (s *SkillService) CreateSkill(ctx context.Context, n core.NewSkill) (core.Skill, error) {
	skill, err := s.storage.CreateSkill(ctx, n)
	if err != nil {
		return core.Skill{}, fmt.Errorf("save skill: %w", err)
	}
	s.events.LogSkillCreated(ctx, skill.UserID, skill.ID, skill.Name, skill.Category)
	s.hub.Notify(ctx, skill.UserID)
	return skill, nil
}

// AppendEntry appends a practice entry to one of the user's skills.
func (s *SkillService) AppendEntry(ctx context.Context, userID, skillID string, e core.Entry) (core.Entry, error) {
	entry, err := s.storage.AppendEntry(ctx, userID, skillID, e)
	if err != nil {
		return core.Entry{}, fmt.Errorf("append entry: %w", err)
	}
	s.events.LogEntryAppended(ctx, userID, skillID, entry.ID, entry.Date, entry.Hours)
	s.hub.Notify(ctx, userID)
	return entry, nil
}

// DeleteSkill removes a skill and all of its entries.
func (s *SkillService) DeleteSkill(ctx context.Context, userID, skillID string) error {
	if err := s.storage.DeleteSkill(ctx, userID, skillID); err != nil {
		return fmt.Errorf("delete skill: %w", err)
	}
	s.logger.InfoContext(ctx, "Skill deleted",
		applog.FieldUserID, userID,
		applog.FieldSkillID, skillID,
		applog.FieldOperation, applog.OpDelete)
	s.hub.Notify(ctx, userID)
	return nil
}
