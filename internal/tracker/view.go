// Package tracker holds the per-session state of the skill tracker: the
// latest live-query snapshot plus the local UI state, and the mutations the
// user can trigger.
package tracker

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"skillchisel/internal/core"
	applog "skillchisel/internal/log"
)

// View is one signed-in client's tracker. All methods are safe for
// concurrent use; snapshots may arrive on any goroutine.
type View struct {
	repo     Repository
	logger   *slog.Logger
	now      func() time.Time
	loc      *time.Location
	onUpdate func()

	mu          sync.Mutex
	session     core.Session
	mounted     bool
	loaded      bool
	skills      []core.Skill
	unsubscribe func()

	tab           Tab
	showAddSkill  bool
	showAddEntry  bool
	selectedSkill string
	skillDraft    SkillDraft
	entryDraft    EntryDraft
	year          int
	month         time.Month
}

// Option configures a View.
type Option func(*View)

func WithClock(now func() time.Time) Option { return func(v *View) { v.now = now } }

// WithLocation sets the viewer's time zone used for "today".
func WithLocation(loc *time.Location) Option { return func(v *View) { v.loc = loc } }

func WithLogger(l *slog.Logger) Option { return func(v *View) { v.logger = l } }

// WithOnUpdate registers fn to run after every accepted snapshot.
func WithOnUpdate(fn func()) Option { return func(v *View) { v.onUpdate = fn } }

func NewView(repo Repository, session core.Session, opts ...Option) *View {
	v := &View{
		repo:    repo,
		session: session,
		logger:  slog.Default(),
		now:     time.Now,
		loc:     time.Local,
		tab:     TabOverview,
	}
	for _, opt := range opts {
		opt(v)
	}
	v.logger = v.logger.With(applog.FieldComponent, applog.ComponentTracker)
	today := v.today()
	v.year, v.month = today.Year(), today.Month()
	v.entryDraft = EntryDraft{Date: core.DateKey(today)}
	return v
}

// Mount subscribes to the session user's skills.
func (v *View) Mount() {
	v.mu.Lock()
	if v.mounted {
		v.mu.Unlock()
		return
	}
	v.mounted = true
	userID := v.session.UserID
	v.mu.Unlock()

	v.subscribe(userID)
}

// Unmount cancels the live query. Snapshots arriving afterwards are dropped.
func (v *View) Unmount() {
	v.mu.Lock()
	v.mounted = false
	unsubscribe := v.unsubscribe
	v.unsubscribe = nil
	v.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}

// SetSession switches the view to session. When the user changes the held
// skills are cleared and the live query is re-established for the new user.
func (v *View) SetSession(session core.Session) {
	v.mu.Lock()
	if v.session.UserID == session.UserID {
		v.session = session
		v.mu.Unlock()
		return
	}
	v.session = session
	v.skills = nil
	v.loaded = false
	v.selectedSkill = ""
	v.showAddEntry = false
	mounted := v.mounted
	old := v.unsubscribe
	v.unsubscribe = nil
	v.mu.Unlock()

	if old != nil {
		old()
	}
	if mounted {
		v.subscribe(session.UserID)
	}
}

// Session returns the session the view acts for.
func (v *View) Session() core.Session {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.session
}

func (v *View) subscribe(userID string) {
	unsubscribe := v.repo.Watch(userID, func(skills []core.Skill) {
		v.receive(userID, skills)
	})

	v.mu.Lock()
	if !v.mounted || v.session.UserID != userID || v.unsubscribe != nil {
		v.mu.Unlock()
		unsubscribe()
		return
	}
	v.unsubscribe = unsubscribe
	v.mu.Unlock()
}

// receive replaces the held list with a snapshot for userID.
func (v *View) receive(userID string, skills []core.Skill) {
	v.mu.Lock()
	if !v.mounted || v.session.UserID != userID {
		v.mu.Unlock()
		return
	}
	v.skills = skills
	v.loaded = true
	if v.selectedSkill != "" && !containsSkill(skills, v.selectedSkill) {
		v.selectedSkill = ""
		v.showAddEntry = false
	}
	onUpdate := v.onUpdate
	v.mu.Unlock()

	if onUpdate != nil {
		onUpdate()
	}
}

// CreateSkill submits the skill draft. The draft is reset and the form closed
// as soon as the call is initiated, whatever the store answers.
func (v *View) CreateSkill(ctx context.Context) Result {
	v.mu.Lock()
	draft := v.skillDraft
	if !draft.Complete() {
		v.mu.Unlock()
		return failed(ErrSkillDraftIncomplete)
	}
	userID := v.session.UserID
	v.skillDraft = SkillDraft{}
	v.showAddSkill = false
	v.mu.Unlock()

	n := core.NewSkill{
		Name:        strings.TrimSpace(draft.Name),
		Category:    strings.TrimSpace(draft.Category),
		TargetHours: draft.Target(),
		Color:       draft.Color,
		UserID:      userID,
	}
	skill, err := v.repo.CreateSkill(ctx, n)
	if err != nil {
		v.logger.WarnContext(ctx, "Skill creation failed", "user_id", userID, "error", err)
		return failed(err)
	}
	v.logger.DebugContext(ctx, "Skill created", "user_id", userID, "skill_id", skill.ID)
	return ok()
}

// AddEntry appends the entry draft to the selected skill. The draft is reset
// to today, the form closed and the selection cleared on initiation.
func (v *View) AddEntry(ctx context.Context) Result {
	v.mu.Lock()
	draft := v.entryDraft
	skillID := v.selectedSkill
	if skillID == "" || !draft.Complete() {
		v.mu.Unlock()
		return failed(ErrEntryDraftIncomplete)
	}
	userID := v.session.UserID
	today := v.today()
	v.entryDraft = EntryDraft{Date: core.DateKey(today)}
	v.showAddEntry = false
	v.selectedSkill = ""
	v.mu.Unlock()

	date := strings.TrimSpace(draft.Date)
	if date == "" {
		date = core.DateKey(today)
	}
	entry := core.Entry{
		Date:  date,
		Hours: strings.TrimSpace(draft.Hours),
		Notes: strings.TrimSpace(draft.Notes),
	}
	if _, err := v.repo.AppendEntry(ctx, userID, skillID, entry); err != nil {
		v.logger.WarnContext(ctx, "Entry append failed", "user_id", userID, "skill_id", skillID, "error", err)
		return failed(err)
	}
	return ok()
}

// DeleteSkill removes a skill with all its entries. Nothing happens unless
// confirmed is true. Store failures are logged and returned.
func (v *View) DeleteSkill(ctx context.Context, skillID string, confirmed bool) Result {
	if !confirmed {
		return failed(ErrNotConfirmed)
	}
	v.mu.Lock()
	userID := v.session.UserID
	v.mu.Unlock()

	if err := v.repo.DeleteSkill(ctx, userID, skillID); err != nil {
		v.logger.ErrorContext(ctx, "Error deleting skill", "user_id", userID, "skill_id", skillID, "error", err)
		return failed(err)
	}
	return ok()
}

// SetTab switches the active section.
func (v *View) SetTab(t Tab) {
	v.mu.Lock()
	v.tab = t
	v.mu.Unlock()
}

// OpenAddSkill shows the add-skill form.
func (v *View) OpenAddSkill() {
	v.mu.Lock()
	v.showAddSkill = true
	v.mu.Unlock()
}

// CloseAddSkill hides the add-skill form, keeping the draft.
func (v *View) CloseAddSkill() {
	v.mu.Lock()
	v.showAddSkill = false
	v.mu.Unlock()
}

// OpenAddEntry selects skillID and shows the add-entry form. Unknown skills
// are ignored.
func (v *View) OpenAddEntry(skillID string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !containsSkill(v.skills, skillID) {
		return false
	}
	v.selectedSkill = skillID
	v.showAddEntry = true
	if v.entryDraft.Date == "" {
		v.entryDraft.Date = core.DateKey(v.today())
	}
	return true
}

// CloseAddEntry hides the add-entry form and clears the selection.
func (v *View) CloseAddEntry() {
	v.mu.Lock()
	v.showAddEntry = false
	v.selectedSkill = ""
	v.mu.Unlock()
}

// UpdateSkillDraft replaces the add-skill draft.
func (v *View) UpdateSkillDraft(d SkillDraft) {
	v.mu.Lock()
	v.skillDraft = d
	v.mu.Unlock()
}

// UpdateEntryDraft replaces the add-entry draft.
func (v *View) UpdateEntryDraft(d EntryDraft) {
	v.mu.Lock()
	v.entryDraft = d
	v.mu.Unlock()
}

// NavigateMonth moves the calendar by delta months.
func (v *View) NavigateMonth(delta int) {
	v.mu.Lock()
	first := time.Date(v.year, v.month+time.Month(delta), 1, 0, 0, 0, 0, v.loc)
	v.year, v.month = first.Year(), first.Month()
	v.mu.Unlock()
}

// ShowMonth displays the given month.
func (v *View) ShowMonth(year int, month time.Month) {
	v.mu.Lock()
	first := time.Date(year, month, 1, 0, 0, 0, 0, v.loc)
	v.year, v.month = first.Year(), first.Month()
	v.mu.Unlock()
}

// SetLocation changes the viewer's time zone.
func (v *View) SetLocation(loc *time.Location) {
	if loc == nil {
		return
	}
	v.mu.Lock()
	v.loc = loc
	v.mu.Unlock()
}

// today is the current time in the viewer's zone; callers hold mu.
func (v *View) today() time.Time {
	return v.now().In(v.loc)
}

func containsSkill(skills []core.Skill, id string) bool {
	for _, s := range skills {
		if s.ID == id {
			return true
		}
	}
	return false
}
