package tracker

import (
	"errors"
	"strconv"
	"strings"
)

// Tab is the active section of the tracker.
type Tab string

const (
	TabOverview Tab = "overview"
	TabSkills   Tab = "skills"
	TabProgress Tab = "progress"
	TabCalendar Tab = "calendar"
)

// Tabs lists the sections in display order.
var Tabs = []Tab{TabOverview, TabSkills, TabProgress, TabCalendar}

// ParseTab returns the tab named s, or TabOverview.
func ParseTab(s string) Tab {
	for _, t := range Tabs {
		if string(t) == s {
			return t
		}
	}
	return TabOverview
}

func (t Tab) Label() string {
	switch t {
	case TabSkills:
		return "Skills"
	case TabProgress:
		return "Progress"
	case TabCalendar:
		return "Calendar"
	default:
		return "Overview"
	}
}

var (
	// ErrSkillDraftIncomplete means the skill form lacks a name or category.
	ErrSkillDraftIncomplete = errors.New("skill name and category are required")
	// ErrEntryDraftIncomplete means no skill is selected or hours or notes are empty.
	ErrEntryDraftIncomplete = errors.New("skill, hours and notes are required")
	// ErrNotConfirmed means a deletion was requested without confirmation.
	ErrNotConfirmed = errors.New("deletion not confirmed")
	// ErrNotMounted means the view has no session to act for.
	ErrNotMounted = errors.New("tracker view not mounted")
)

// Result is the outcome of a mutation. Draft guards fail without touching
// the store; store failures carry the store error.
type Result struct {
	OK  bool
	Err error
}

func ok() Result { return Result{OK: true} }

func failed(err error) Result { return Result{Err: err} }

// SkillDraft is the add-skill form.
type SkillDraft struct {
	Name        string
	Category    string
	TargetHours string
	Color       string
}

// Complete reports whether name and category are filled in.
func (d SkillDraft) Complete() bool {
	return strings.TrimSpace(d.Name) != "" && strings.TrimSpace(d.Category) != ""
}

// Target parses the daily target; missing or non-positive values become 1.
func (d SkillDraft) Target() float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(d.TargetHours), 64)
	if err != nil || v <= 0 {
		return 1
	}
	return v
}

// EntryDraft is the add-entry form.
type EntryDraft struct {
	Date  string
	Hours string
	Notes string
}

// Complete reports whether hours and notes are filled in.
func (d EntryDraft) Complete() bool {
	return strings.TrimSpace(d.Hours) != "" && strings.TrimSpace(d.Notes) != ""
}
