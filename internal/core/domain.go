package core

import (
	"errors"
	"strings"
	"time"
)

// DateLayout is the calendar-day representation used for entry dates.
const DateLayout = "2006-01-02"

// DefaultColor is assigned to skills created without an explicit color.
const DefaultColor = "bg-teal-400"

// Palette lists the colors a skill can be displayed with.
var Palette = []string{
	"bg-teal-400",
	"bg-cyan-400",
	"bg-sky-400",
	"bg-indigo-400",
	"bg-purple-400",
	"bg-fuchsia-400",
	"bg-pink-400",
	"bg-rose-400",
}

type (
	// Skill is a practice goal owned by a single user. Entries are kept in
	// insertion order and only ever appended to.
	Skill struct {
		ID          string
		Name        string
		Category    string
		TargetHours float64 // daily goal
		Color       string
		UserID      string
		Entries     []Entry
		CreatedAt   time.Time
	}

	// Entry is one dated practice record. Hours is kept as the text the
	// user typed and parsed on read.
	Entry struct {
		ID    int64
		Date  string
		Hours string
		Notes string
	}

	// Session is the authenticated identity supplied by the identity provider.
	Session struct {
		ID        string
		UserID    string
		Email     string
		ExpiresAt time.Time
	}

	// Account is a registered user. PasswordHash is empty for accounts that
	// only ever signed in through a federated provider.
	Account struct {
		ID            string
		Email         string
		PasswordHash  string
		GoogleSubject string
		CreatedAt     time.Time
	}

	// SessionRecord is the stored side of an issued session token.
	SessionRecord struct {
		ID        string
		UserID    string
		CreatedAt time.Time
		ExpiresAt time.Time
		Revoked   bool
	}

	// NewSkill carries the fields a user submits when creating a skill.
	NewSkill struct {
		Name        string
		Category    string
		TargetHours float64
		Color       string
		UserID      string
	}
)

var (
	ErrEmptyName     = errors.New("empty skill name")
	ErrEmptyCategory = errors.New("empty skill category")
	ErrEmptyUser     = errors.New("empty owning user")
	ErrEmptyHours    = errors.New("empty hours")
	ErrEmptyNotes    = errors.New("empty notes")
	ErrInvalidDate   = errors.New("invalid entry date")
	ErrSkillNotFound = errors.New("skill not found")

	ErrAccountNotFound = errors.New("account not found")
	ErrEmailTaken      = errors.New("email already registered")
	ErrSessionNotFound = errors.New("session not found")
)

// Validate checks the fields a store needs to create a skill document.
func (n NewSkill) Validate() error {
	if strings.TrimSpace(n.Name) == "" {
		return ErrEmptyName
	}
	if strings.TrimSpace(n.Category) == "" {
		return ErrEmptyCategory
	}
	if strings.TrimSpace(n.UserID) == "" {
		return ErrEmptyUser
	}
	return nil
}

// Normalize trims text fields and applies the target and color defaults.
func (n NewSkill) Normalize() NewSkill {
	n.Name = strings.TrimSpace(n.Name)
	n.Category = strings.TrimSpace(n.Category)
	if n.TargetHours <= 0 {
		n.TargetHours = 1
	}
	n.Color = NormalizeColor(n.Color)
	return n
}

// Validate checks an entry before it is appended to a skill.
// Hours are only required to be present; their numeric value is not checked.
func (e Entry) Validate() error {
	if strings.TrimSpace(e.Hours) == "" {
		return ErrEmptyHours
	}
	if strings.TrimSpace(e.Notes) == "" {
		return ErrEmptyNotes
	}
	if _, err := time.Parse(DateLayout, e.Date); err != nil {
		return ErrInvalidDate
	}
	return nil
}

// IsPaletteColor reports whether c is one of the palette colors.
func IsPaletteColor(c string) bool {
	for _, p := range Palette {
		if p == c {
			return true
		}
	}
	return false
}

// NormalizeColor returns c when it belongs to the palette and DefaultColor otherwise.
func NormalizeColor(c string) string {
	c = strings.TrimSpace(c)
	if IsPaletteColor(c) {
		return c
	}
	return DefaultColor
}

// DateKey formats t as the YYYY-MM-DD day it falls on in its own location.
func DateKey(t time.Time) string {
	return t.Format(DateLayout)
}

// ParseDay parses a YYYY-MM-DD string as midnight in loc.
func ParseDay(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	return time.ParseInLocation(DateLayout, strings.TrimSpace(s), loc)
}

// StartOfDay returns 00:00:00 of the day t falls on.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
