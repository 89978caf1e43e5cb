package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"skillchisel/internal/core"
	applog "skillchisel/internal/log"
)

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	logger  *slog.Logger
	now     func() time.Time
}

// Option configures a SQLiteRepository.
type Option func(*SQLiteRepository)

func WithLogger(l *slog.Logger) Option { return func(r *SQLiteRepository) { r.logger = l } }

func WithClock(now func() time.Time) Option { return func(r *SQLiteRepository) { r.now = now } }

func NewSQLiteRepository(dbPath string, opts ...Option) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One writer at a time; SQLite would otherwise fail lock upgrades with SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	repo := &SQLiteRepository{
		db:      db,
		queries: New(db),
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(repo)
	}
	repo.logger = repo.logger.With(applog.FieldComponent, applog.ComponentStorage)
	return repo, nil
}

func dsn(path string) string {
	return "file:" + path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// ListSkills returns the user's skills. Stored documents are normalized on
// the way out: colors outside the palette fall back to the default and
// non-positive targets become 1. Entries with an unreadable date are kept
// as stored. Every such value is logged at warn level.
func (r *SQLiteRepository) ListSkills(ctx context.Context, userID string) ([]core.Skill, error) {
	rows, err := r.queries.ListSkillsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list skills: %w", err)
	}
	entries, err := r.queries.ListEntriesByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}

	bySkill := make(map[string][]core.Entry, len(rows))
	for _, e := range entries {
		bySkill[e.SkillID] = append(bySkill[e.SkillID], core.Entry{
			ID:    e.ID,
			Date:  e.Date,
			Hours: e.Hours,
			Notes: e.Notes,
		})
	}

	skills := make([]core.Skill, 0, len(rows))
	for _, row := range rows {
		skills = append(skills, r.decodeSkill(ctx, row, bySkill[row.ID]))
	}
	return skills, nil
}

func (r *SQLiteRepository) decodeSkill(ctx context.Context, row Skill, entries []core.Entry) core.Skill {
	s := core.Skill{
		ID:          row.ID,
		Name:        row.Name,
		Category:    row.Category,
		TargetHours: row.TargetHours,
		Color:       row.Color,
		UserID:      row.UserID,
		Entries:     entries,
		CreatedAt:   row.CreatedAt,
	}
	if !core.IsPaletteColor(s.Color) {
		r.logger.WarnContext(ctx, "Stored skill has unknown color", "skill_id", s.ID, "color", s.Color)
		s.Color = core.DefaultColor
	}
	if s.TargetHours <= 0 || math.IsNaN(s.TargetHours) || math.IsInf(s.TargetHours, 0) {
		r.logger.WarnContext(ctx, "Stored skill has invalid target", "skill_id", s.ID, "target_hours", s.TargetHours)
		s.TargetHours = 1
	}
	for _, e := range s.Entries {
		if _, err := time.Parse(core.DateLayout, e.Date); err != nil {
			r.logger.WarnContext(ctx, "Stored entry has unreadable date", "skill_id", s.ID, "entry_id", e.ID, "date", e.Date)
		}
	}
	if s.Entries == nil {
		s.Entries = []core.Entry{}
	}
	return s
}

func (r *SQLiteRepository) CreateSkill(ctx context.Context, n core.NewSkill) (core.Skill, error) {
	if err := n.Validate(); err != nil {
		return core.Skill{}, err
	}
	n = n.Normalize()

	s := core.Skill{
		ID:          uuid.NewString(),
		Name:        n.Name,
		Category:    n.Category,
		TargetHours: n.TargetHours,
		Color:       n.Color,
		UserID:      n.UserID,
		Entries:     []core.Entry{},
		CreatedAt:   r.now().UTC(),
	}
	err := r.queries.CreateSkill(ctx, CreateSkillParams{
		ID:          s.ID,
		UserID:      s.UserID,
		Name:        s.Name,
		Category:    s.Category,
		TargetHours: s.TargetHours,
		Color:       s.Color,
		CreatedAt:   s.CreatedAt,
	})
	if err != nil {
		return core.Skill{}, fmt.Errorf("create skill: %w", err)
	}

	r.logger.InfoContext(ctx, "Skill saved to SQLite", "skill_id", s.ID, "user_id", s.UserID)
	return s, nil
}

// AppendEntry assigns the entry id and sequence inside one transaction so
// concurrent appends to the same skill never lose each other.
func (r *SQLiteRepository) AppendEntry(ctx context.Context, userID, skillID string, e core.Entry) (core.Entry, error) {
	if err := e.Validate(); err != nil {
		return core.Entry{}, err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Entry{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()
	q := r.queries.WithTx(tx)

	owner, err := q.GetSkillOwner(ctx, skillID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Entry{}, core.ErrSkillNotFound
		}
		return core.Entry{}, fmt.Errorf("get skill owner: %w", err)
	}
	if owner != userID {
		return core.Entry{}, core.ErrSkillNotFound
	}

	ids, err := q.ListEntryIDsBySkill(ctx, skillID)
	if err != nil {
		return core.Entry{}, fmt.Errorf("list entry ids: %w", err)
	}
	existing := make([]core.Entry, len(ids))
	for i, id := range ids {
		existing[i] = core.Entry{ID: id}
	}

	e.ID = core.NextEntryID(existing, r.now())
	e.Hours = strings.TrimSpace(e.Hours)
	e.Notes = strings.TrimSpace(e.Notes)
	err = q.InsertEntry(ctx, InsertEntryParams{
		SkillID: skillID,
		ID:      e.ID,
		Seq:     int64(len(ids)),
		Date:    e.Date,
		Hours:   e.Hours,
		Notes:   e.Notes,
	})
	if err != nil {
		return core.Entry{}, fmt.Errorf("insert entry: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return core.Entry{}, fmt.Errorf("commit entry: %w", err)
	}

	r.logger.InfoContext(ctx, "Entry appended", "skill_id", skillID, "entry_id", e.ID)
	return e, nil
}

func (r *SQLiteRepository) DeleteSkill(ctx context.Context, userID, skillID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()
	q := r.queries.WithTx(tx)

	owner, err := q.GetSkillOwner(ctx, skillID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.ErrSkillNotFound
		}
		return fmt.Errorf("get skill owner: %w", err)
	}
	if owner != userID {
		return core.ErrSkillNotFound
	}
	if err := q.DeleteSkillEntries(ctx, skillID); err != nil {
		return fmt.Errorf("delete entries: %w", err)
	}
	n, err := q.DeleteSkill(ctx, DeleteSkillParams{ID: skillID, UserID: userID})
	if err != nil {
		return fmt.Errorf("delete skill: %w", err)
	}
	if n == 0 {
		return core.ErrSkillNotFound
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete: %w", err)
	}

	r.logger.InfoContext(ctx, "Skill deleted", "skill_id", skillID, "user_id", userID)
	return nil
}

func (r *SQLiteRepository) CreateAccount(ctx context.Context, a core.Account) error {
	err := r.queries.CreateAccount(ctx, CreateAccountParams{
		ID:            a.ID,
		Email:         a.Email,
		PasswordHash:  a.PasswordHash,
		GoogleSubject: nullString(a.GoogleSubject),
		CreatedAt:     a.CreatedAt,
	})
	if err != nil {
		if isUniqueViolation(err) {
			return core.ErrEmailTaken
		}
		return fmt.Errorf("create account: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) AccountByEmail(ctx context.Context, email string) (core.Account, error) {
	row, err := r.queries.GetAccountByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Account{}, core.ErrAccountNotFound
		}
		return core.Account{}, fmt.Errorf("get account by email: %w", err)
	}
	return toAccount(row), nil
}

func (r *SQLiteRepository) AccountByGoogleSubject(ctx context.Context, subject string) (core.Account, error) {
	if subject == "" {
		return core.Account{}, core.ErrAccountNotFound
	}
	row, err := r.queries.GetAccountByGoogleSubject(ctx, nullString(subject))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Account{}, core.ErrAccountNotFound
		}
		return core.Account{}, fmt.Errorf("get account by google subject: %w", err)
	}
	return toAccount(row), nil
}

func (r *SQLiteRepository) LinkGoogleSubject(ctx context.Context, accountID, subject string) error {
	n, err := r.queries.LinkGoogleSubject(ctx, LinkGoogleSubjectParams{
		GoogleSubject: nullString(subject),
		ID:            accountID,
	})
	if err != nil {
		return fmt.Errorf("link google subject: %w", err)
	}
	if n == 0 {
		return core.ErrAccountNotFound
	}
	return nil
}

func (r *SQLiteRepository) CreateSession(ctx context.Context, s core.SessionRecord) error {
	err := r.queries.CreateSession(ctx, CreateSessionParams{
		ID:        s.ID,
		UserID:    s.UserID,
		CreatedAt: s.CreatedAt,
		ExpiresAt: s.ExpiresAt,
	})
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) SessionByID(ctx context.Context, id string) (core.SessionRecord, error) {
	row, err := r.queries.GetSession(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.SessionRecord{}, core.ErrSessionNotFound
		}
		return core.SessionRecord{}, fmt.Errorf("get session: %w", err)
	}
	return core.SessionRecord{
		ID:        row.ID,
		UserID:    row.UserID,
		CreatedAt: row.CreatedAt,
		ExpiresAt: row.ExpiresAt,
		Revoked:   row.Revoked != 0,
	}, nil
}

func (r *SQLiteRepository) RevokeSession(ctx context.Context, id string) error {
	n, err := r.queries.RevokeSession(ctx, id)
	if err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	if n == 0 {
		return core.ErrSessionNotFound
	}
	return nil
}

func (r *SQLiteRepository) PurgeSessions(ctx context.Context, now time.Time) (int64, error) {
	n, err := r.queries.DeleteExpiredSessions(ctx, now.UTC())
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	if n > 0 {
		r.logger.InfoContext(ctx, "Purged sessions", "count", n)
	}
	return n, nil
}

func (r *SQLiteRepository) ListAccounts(ctx context.Context) ([]AccountSummary, error) {
	rows, err := r.queries.ListAccountSummaries(ctx)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	out := make([]AccountSummary, len(rows))
	for i, row := range rows {
		out[i] = AccountSummary{
			ID:         row.ID,
			Email:      row.Email,
			CreatedAt:  row.CreatedAt,
			SkillCount: row.SkillCount,
		}
	}
	return out, nil
}

func toAccount(row Account) core.Account {
	return core.Account{
		ID:            row.ID,
		Email:         row.Email,
		PasswordHash:  row.PasswordHash,
		GoogleSubject: row.GoogleSubject.String,
		CreatedAt:     row.CreatedAt,
	}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) {
		return se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE || se.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
