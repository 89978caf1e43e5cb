// Package memory is an in-process storage backend for development and tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"skillchisel/internal/core"
	"skillchisel/internal/storage"
)

type Store struct {
	mu       sync.Mutex
	now      func() time.Time
	skills   []core.Skill
	accounts map[string]core.Account
	sessions map[string]core.SessionRecord
}

var _ storage.Store = (*Store)(nil)

func New() *Store {
	return NewWithClock(time.Now)
}

func NewWithClock(now func() time.Time) *Store {
	return &Store{
		now:      now,
		accounts: make(map[string]core.Account),
		sessions: make(map[string]core.SessionRecord),
	}
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }

// ListSkills returns deep copies so callers never share entry slices with the store.
func (s *Store) ListSkills(_ context.Context, userID string) ([]core.Skill, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []core.Skill{}
	for _, sk := range s.skills {
		if sk.UserID == userID {
			out = append(out, cloneSkill(sk))
		}
	}
	return out, nil
}

func (s *Store) CreateSkill(_ context.Context, n core.NewSkill) (core.Skill, error) {
	if err := n.Validate(); err != nil {
		return core.Skill{}, err
	}
	n = n.Normalize()
	sk := core.Skill{
		ID:          uuid.NewString(),
		Name:        n.Name,
		Category:    n.Category,
		TargetHours: n.TargetHours,
		Color:       n.Color,
		UserID:      n.UserID,
		Entries:     []core.Entry{},
		CreatedAt:   s.now().UTC(),
	}
	s.mu.Lock()
	s.skills = append(s.skills, sk)
	s.mu.Unlock()
	return cloneSkill(sk), nil
}

func (s *Store) AppendEntry(_ context.Context, userID, skillID string, e core.Entry) (core.Entry, error) {
	if err := e.Validate(); err != nil {
		return core.Entry{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(userID, skillID)
	if i < 0 {
		return core.Entry{}, core.ErrSkillNotFound
	}
	e.ID = core.NextEntryID(s.skills[i].Entries, s.now())
	e.Hours = strings.TrimSpace(e.Hours)
	e.Notes = strings.TrimSpace(e.Notes)
	s.skills[i].Entries = append(s.skills[i].Entries, e)
	return e, nil
}

func (s *Store) DeleteSkill(_ context.Context, userID, skillID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(userID, skillID)
	if i < 0 {
		return core.ErrSkillNotFound
	}
	s.skills = append(s.skills[:i], s.skills[i+1:]...)
	return nil
}

func (s *Store) indexLocked(userID, skillID string) int {
	for i, sk := range s.skills {
		if sk.ID == skillID && sk.UserID == userID {
			return i
		}
	}
	return -1
}

func (s *Store) CreateAccount(_ context.Context, a core.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.accounts {
		if existing.Email == a.Email {
			return core.ErrEmailTaken
		}
		if a.GoogleSubject != "" && existing.GoogleSubject == a.GoogleSubject {
			return core.ErrEmailTaken
		}
	}
	s.accounts[a.ID] = a
	return nil
}

func (s *Store) AccountByEmail(_ context.Context, email string) (core.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.accounts {
		if a.Email == email {
			return a, nil
		}
	}
	return core.Account{}, core.ErrAccountNotFound
}

func (s *Store) AccountByGoogleSubject(_ context.Context, subject string) (core.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if subject == "" {
		return core.Account{}, core.ErrAccountNotFound
	}
	for _, a := range s.accounts {
		if a.GoogleSubject == subject {
			return a, nil
		}
	}
	return core.Account{}, core.ErrAccountNotFound
}

func (s *Store) LinkGoogleSubject(_ context.Context, accountID, subject string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[accountID]
	if !ok {
		return core.ErrAccountNotFound
	}
	a.GoogleSubject = subject
	s.accounts[accountID] = a
	return nil
}

func (s *Store) CreateSession(_ context.Context, rec core.SessionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[rec.ID] = rec
	return nil
}

func (s *Store) SessionByID(_ context.Context, id string) (core.SessionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.sessions[id]
	if !ok {
		return core.SessionRecord{}, core.ErrSessionNotFound
	}
	return rec, nil
}

func (s *Store) RevokeSession(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.sessions[id]
	if !ok {
		return core.ErrSessionNotFound
	}
	rec.Revoked = true
	s.sessions[id] = rec
	return nil
}

func (s *Store) PurgeSessions(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, rec := range s.sessions {
		if rec.Revoked || rec.ExpiresAt.Before(now) {
			delete(s.sessions, id)
			n++
		}
	}
	return n, nil
}

func (s *Store) ListAccounts(context.Context) ([]storage.AccountSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]storage.AccountSummary, 0, len(s.accounts))
	for _, a := range s.accounts {
		sum := storage.AccountSummary{ID: a.ID, Email: a.Email, CreatedAt: a.CreatedAt}
		for _, sk := range s.skills {
			if sk.UserID == a.ID {
				sum.SkillCount++
			}
		}
		out = append(out, sum)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].Email < out[j].Email
	})
	return out, nil
}

func cloneSkill(sk core.Skill) core.Skill {
	sk.Entries = append([]core.Entry{}, sk.Entries...)
	return sk
}
