package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"skillchisel/internal/adapters"
	"skillchisel/internal/core"
)

var (
	reportEmail    string
	reportFormat   string
	reportTimezone string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print one account's practice totals",
	Args:  cobra.NoArgs,
	RunE:  runReport,
}

func init() {
	reportCmd.Flags().StringVar(&reportEmail, "email", "", "Account email (required)")
	reportCmd.Flags().StringVar(&reportFormat, "format", "table", "Output format: table, csv")
	reportCmd.Flags().StringVar(&reportTimezone, "timezone", "Local", "IANA zone that decides today and this week")
	_ = reportCmd.MarkFlagRequired("email")
}

func runReport(cmd *cobra.Command, args []string) error {
	loc := time.Local
	if reportTimezone != "" && reportTimezone != "Local" {
		l, err := time.LoadLocation(reportTimezone)
		if err != nil {
			return fmt.Errorf("invalid timezone %q: %w", reportTimezone, err)
		}
		loc = l
	}

	repo, err := openRepository()
	if err != nil {
		return err
	}
	defer repo.Close()

	rep, err := adapters.NewReporter(repo, repo).ForEmail(cmd.Context(), reportEmail, time.Now().In(loc))
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch reportFormat {
	case "csv":
		return rep.WriteCSV(out)
	case "table":
	default:
		return fmt.Errorf("unknown format %q: use table or csv", reportFormat)
	}

	fmt.Fprintf(out, "%s (%s)\n", rep.Email, rep.Today.Format(time.DateOnly))
	fmt.Fprintf(out, "Active skills: %d  This week: %s  Total: %s\n\n",
		rep.Stats.ActiveSkills, core.FormatHours(rep.Stats.WeekHours), core.FormatHours(rep.Stats.TotalHours))

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SKILL\tCATEGORY\tGOAL\tTODAY\tWEEK\tTOTAL\tPROGRESS\tENTRIES")
	for _, s := range rep.Skills {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%.0f%%\t%d\n",
			s.Name, s.Category,
			core.FormatHours(s.TargetHours), core.FormatHours(s.TodayHours),
			core.FormatHours(s.WeekHours), core.FormatHours(s.TotalHours),
			s.GoalPercent, s.Entries)
	}
	return tw.Flush()
}
