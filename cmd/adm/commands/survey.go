package commands

import (
	"context"
	"fmt"
	"strings"

	"surveyapp/internal/models"
	contextutils "surveyapp/internal/utils"

	"github.com/spf13/cobra"
)

// SurveyStatsProvider lists per-survey activity across all owners
type SurveyStatsProvider interface {
	SurveyStats(ctx context.Context) ([]models.SurveyStats, error)
}

// SurveyCommands returns the survey reporting commands
func SurveyCommands(stats SurveyStatsProvider) *cobra.Command {
	surveyCmd := &cobra.Command{
		Use:   "survey",
		Short: "Survey reporting commands",
	}

	surveyCmd.AddCommand(&cobra.Command{
		Use:   "stats",
		Short: "Show question and answer counts for every survey",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rows, err := stats.SurveyStats(cmd.Context())
			if err != nil {
				return contextutils.WrapError(err, "failed to get survey statistics")
			}

			out := cmd.OutOrStdout()
			if len(rows) == 0 {
				fmt.Fprintln(out, "No surveys found")
				return nil
			}

			fmt.Fprintf(out, "%-5s %-30s %-15s %-10s %9s %7s %-19s\n", "ID", "Title", "Owner", "Status", "Questions", "Answers", "Last answer")
			fmt.Fprintln(out, strings.Repeat("-", 102))
			for _, row := range rows {
				last := "never"
				if row.LastAnswerAt.Valid {
					last = row.LastAnswerAt.Time.UTC().Format("2006-01-02 15:04:05")
				}
				fmt.Fprintf(out, "%-5d %-30s %-15s %-10s %9d %7d %-19s\n",
					row.SurveyID, truncate(row.Title, 30), truncate(row.Owner, 15), row.Status,
					row.QuestionCount, row.AnswerCount, last)
			}
			return nil
		},
	})

	return surveyCmd
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
