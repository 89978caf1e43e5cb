// Package progress derives practice statistics from a snapshot of skills.
// Every function is pure; callers recompute on each render.
package progress

import (
	"fmt"
	"math"
	"sort"
	"time"

	"skillchisel/internal/core"
)

// WeekDays is the length of the rolling week window, today included.
const WeekDays = 7

// GridCells is the fixed size of a month calendar: six Sunday-first weeks.
const GridCells = 42

// DayEntry is an entry annotated with the skill it belongs to.
type DayEntry struct {
	core.Entry
	SkillID    string
	SkillName  string
	SkillColor string
	Value      float64
}

// Cell is one day of the month calendar.
type Cell struct {
	Date    time.Time
	Key     string
	Day     int
	InMonth bool
	Today   bool
}

// Stats are the three overview counters.
type Stats struct {
	ActiveSkills int
	WeekHours    float64
	TotalHours   float64
}

// TotalHours sums every entry of the skill.
func TotalHours(s core.Skill) float64 {
	var total float64
	for _, e := range s.Entries {
		total += core.ParseHours(e.Hours)
	}
	return total
}

// WeekHours sums entries dated within [today-6, today], compared as calendar
// days in today's location. Entries with an unreadable date are skipped.
func WeekHours(s core.Skill, today time.Time) float64 {
	end := core.StartOfDay(today)
	start := end.AddDate(0, 0, -(WeekDays - 1))
	var total float64
	for _, e := range s.Entries {
		d, err := core.ParseDay(e.Date, today.Location())
		if err != nil {
			continue
		}
		if d.Before(start) || d.After(end) {
			continue
		}
		total += core.ParseHours(e.Hours)
	}
	return total
}

// DayEntries returns the entries of every skill dated on date's calendar day,
// in skill order then insertion order.
func DayEntries(skills []core.Skill, date time.Time) []DayEntry {
	key := core.DateKey(date)
	var out []DayEntry
	for _, s := range skills {
		for _, e := range s.Entries {
			if e.Date == key {
				out = append(out, annotate(s, e))
			}
		}
	}
	return out
}

// DayTotal sums the hours of DayEntries(skills, date).
func DayTotal(skills []core.Skill, date time.Time) float64 {
	var total float64
	for _, de := range DayEntries(skills, date) {
		total += de.Value
	}
	return total
}

// CalendarGrid lays out the month as 42 cells starting on the Sunday on or
// before the 1st. Leading cells come from the previous month, trailing cells
// from the next. Cells are midnight in today's location.
func CalendarGrid(year int, month time.Month, today time.Time) []Cell {
	loc := today.Location()
	first := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	start := first.AddDate(0, 0, -int(first.Weekday()))
	todayKey := core.DateKey(today)

	cells := make([]Cell, 0, GridCells)
	for i := 0; i < GridCells; i++ {
		d := start.AddDate(0, 0, i)
		key := core.DateKey(d)
		cells = append(cells, Cell{
			Date:    d,
			Key:     key,
			Day:     d.Day(),
			InMonth: d.Month() == first.Month() && d.Year() == first.Year(),
			Today:   key == todayKey,
		})
	}
	return cells
}

// GoalPercent is progress toward one week of the daily target, capped at 100.
func GoalPercent(s core.Skill) float64 {
	target := s.TargetHours
	if target <= 0 {
		target = 1
	}
	pct := TotalHours(s) / (target * WeekDays) * 100
	if math.IsNaN(pct) || pct < 0 {
		return 0
	}
	return math.Min(pct, 100)
}

// Overview aggregates the counters shown above the skill cards.
func Overview(skills []core.Skill, today time.Time) Stats {
	st := Stats{ActiveSkills: len(skills)}
	for _, s := range skills {
		st.WeekHours += WeekHours(s, today)
		st.TotalHours += TotalHours(s)
	}
	return st
}

// Log flattens every entry of every skill, newest date first. Entries sharing
// a date keep skill order then insertion order.
func Log(skills []core.Skill) []DayEntry {
	var out []DayEntry
	for _, s := range skills {
		for _, e := range s.Entries {
			out = append(out, annotate(s, e))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date > out[j].Date
	})
	return out
}

// MonthLabel formats the calendar header, e.g. "June 2024".
func MonthLabel(year int, month time.Month) string {
	return fmt.Sprintf("%s %d", month, year)
}

func annotate(s core.Skill, e core.Entry) DayEntry {
	return DayEntry{
		Entry:      e,
		SkillID:    s.ID,
		SkillName:  s.Name,
		SkillColor: core.NormalizeColor(s.Color),
		Value:      core.ParseHours(e.Hours),
	}
}
