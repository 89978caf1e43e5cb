// Package adapters turns stored skill documents into outbound
// representations for the admin tooling.
package adapters

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"skillchisel/internal/core"
	"skillchisel/internal/progress"
	"skillchisel/internal/storage"
)

// SkillReport is one row of a user's practice report.
type SkillReport struct {
	Name        string
	Category    string
	TargetHours float64
	TotalHours  float64
	WeekHours   float64
	TodayHours  float64
	GoalPercent float64
	Entries     int
}

// Report summarizes one account's practice.
type Report struct {
	Email  string
	UserID string
	Today  time.Time
	Stats  progress.Stats
	Skills []SkillReport
}

// Reporter builds practice reports from a backend.
type Reporter struct {
	accounts storage.AccountStore
	skills   storage.SkillStore
}

func NewReporter(accounts storage.AccountStore, skills storage.SkillStore) *Reporter {
	return &Reporter{accounts: accounts, skills: skills}
}

// ForEmail builds the report for the account registered under email, with
// week and today figures relative to today.
func (r *Reporter) ForEmail(ctx context.Context, email string, today time.Time) (Report, error) {
	acct, err := r.accounts.AccountByEmail(ctx, email)
	if err != nil {
		return Report{}, fmt.Errorf("load account %s: %w", email, err)
	}
	skills, err := r.skills.ListSkills(ctx, acct.ID)
	if err != nil {
		return Report{}, fmt.Errorf("list skills: %w", err)
	}

	rep := Report{
		Email:  acct.Email,
		UserID: acct.ID,
		Today:  today,
		Stats:  progress.Overview(skills, today),
		Skills: make([]SkillReport, 0, len(skills)),
	}
	for _, s := range skills {
		rep.Skills = append(rep.Skills, SkillReport{
			Name:        s.Name,
			Category:    s.Category,
			TargetHours: s.TargetHours,
			TotalHours:  progress.TotalHours(s),
			WeekHours:   progress.WeekHours(s, today),
			TodayHours:  progress.DayTotal([]core.Skill{s}, today),
			GoalPercent: progress.GoalPercent(s),
			Entries:     len(s.Entries),
		})
	}
	return rep, nil
}

// WriteCSV writes the report's skill rows with a header line.
func (rep Report) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"skill", "category", "target_hours", "today_hours", "goal_percent", "week_hours", "total_hours", "entries"}); err != nil {
		return err
	}
	for _, s := range rep.Skills {
		if err := cw.Write([]string{
			s.Name,
			s.Category,
			formatFloat(s.TargetHours),
			formatFloat(s.TodayHours),
			formatFloat(s.GoalPercent),
			formatFloat(s.WeekHours),
			formatFloat(s.TotalHours),
			strconv.Itoa(s.Entries),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', 1, 64)
}
