package tracker

import (
	"time"

	"skillchisel/internal/core"
	"skillchisel/internal/progress"
)

// SkillCard is a skill with its derived figures.
type SkillCard struct {
	core.Skill
	Total   float64
	Week    float64
	Percent float64
}

// CalendarDay is a grid cell with the entries logged on it.
type CalendarDay struct {
	progress.Cell
	Entries []progress.DayEntry
	Total   float64
}

// Model is everything a render needs, computed from one snapshot.
type Model struct {
	Session       core.Session
	Loaded        bool
	Today         time.Time
	Tab           Tab
	Tabs          []Tab
	Stats         progress.Stats
	Cards         []SkillCard
	Log           []progress.DayEntry
	Year          int
	Month         time.Month
	MonthLabel    string
	Calendar      []CalendarDay
	ShowAddSkill  bool
	ShowAddEntry  bool
	SelectedSkill *core.Skill
	SkillDraft    SkillDraft
	EntryDraft    EntryDraft
	Palette       []string
}

// Model derives the render model. Statistics are recomputed on every call.
func (v *View) Model() Model {
	v.mu.Lock()
	skills := v.skills
	today := v.today()
	m := Model{
		Session:      v.session,
		Loaded:       v.loaded,
		Today:        today,
		Tab:          v.tab,
		Tabs:         Tabs,
		Year:         v.year,
		Month:        v.month,
		ShowAddSkill: v.showAddSkill,
		ShowAddEntry: v.showAddEntry,
		SkillDraft:   v.skillDraft,
		EntryDraft:   v.entryDraft,
		Palette:      core.Palette,
	}
	selected := v.selectedSkill
	v.mu.Unlock()

	m.Stats = progress.Overview(skills, today)
	m.Cards = make([]SkillCard, 0, len(skills))
	for _, s := range skills {
		m.Cards = append(m.Cards, SkillCard{
			Skill:   s,
			Total:   progress.TotalHours(s),
			Week:    progress.WeekHours(s, today),
			Percent: progress.GoalPercent(s),
		})
		if s.ID == selected {
			sel := s
			m.SelectedSkill = &sel
		}
	}
	m.Log = progress.Log(skills)
	m.MonthLabel = progress.MonthLabel(m.Year, m.Month)

	cells := progress.CalendarGrid(m.Year, m.Month, today)
	m.Calendar = make([]CalendarDay, 0, len(cells))
	for _, c := range cells {
		entries := progress.DayEntries(skills, c.Date)
		var total float64
		for _, e := range entries {
			total += e.Value
		}
		m.Calendar = append(m.Calendar, CalendarDay{Cell: c, Entries: entries, Total: total})
	}
	return m
}

// Skills returns the held snapshot.
func (v *View) Skills() []core.Skill {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.skills
}
