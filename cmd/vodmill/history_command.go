package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"vodmill/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limitFlag int
	var summaryFlag bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recently processed jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			store, err := history.Open(cfg)
			if err != nil {
				return fmt.Errorf("open history: %w", err)
			}
			defer store.Close()

			out := cmd.OutOrStdout()
			titler := cases.Title(language.Und)

			if summaryFlag {
				counts, err := store.Summary(cmd.Context())
				if err != nil {
					return fmt.Errorf("read summary: %w", err)
				}
				rows := make([][]string, 0, len(counts))
				for outcome, count := range counts {
					rows = append(rows, []string{titler.String(outcome), strconv.Itoa(count)})
				}
				fmt.Fprintln(out, renderTable([]string{"Outcome", "Count"}, rows, 1))
				return nil
			}

			entries, err := store.Recent(cmd.Context(), limitFlag)
			if err != nil {
				return fmt.Errorf("read history: %w", err)
			}
			if len(entries) == 0 {
				fmt.Fprintln(out, "No jobs recorded yet")
				return nil
			}

			rows := make([][]string, 0, len(entries))
			for _, entry := range entries {
				detail := entry.ErrorMessage
				rows = append(rows, []string{
					entry.FinishedAt.Local().Format("2006-01-02 15:04"),
					entry.FileName,
					titler.String(entry.Outcome),
					entry.FinishedAt.Sub(entry.StartedAt).Truncate(time.Second).String(),
					detail,
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Finished", "File", "Outcome", "Duration", "Detail"},
				rows,
				3,
			))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limitFlag, "limit", "n", 20, "Maximum number of jobs to show")
	cmd.Flags().BoolVar(&summaryFlag, "summary", false, "Show outcome counts instead of individual jobs")
	return cmd
}
