package main

import (
	"errors"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/jask/panelmatch/internal/database/repository"
	"github.com/jask/panelmatch/internal/report"
	"github.com/jask/panelmatch/internal/service"
	"github.com/jask/panelmatch/internal/tui"
)

func newReviewCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "review",
		Short: "Accept or reject fuzzy matches of the latest crosscheck",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !report.IsTerminal(os.Stdout) {
				return errors.New("review needs an interactive terminal")
			}
			db, err := ctx.openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			queue := &service.ReviewService{Runs: repository.NewRunRepo(db), Reviews: repository.NewReviewRepo(db)}
			p := tea.NewProgram(tui.New(cmd.Context(), queue), tea.WithAltScreen(), tea.WithContext(cmd.Context()))
			_, err = p.Run()
			if errors.Is(err, tea.ErrProgramKilled) {
				return cmd.Context().Err()
			}
			return err
		},
	}
	cmd.AddCommand(newReviewApplyCommand(ctx))
	return cmd
}

func newReviewApplyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "apply",
		Short: "Move rejected matches of the latest crosscheck to the unmatched file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := ctx.openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			res, err := ctx.pipeline(db).ApplyReviews(cmd.Context())
			if err != nil {
				return err
			}
			out := report.New(cmd.OutOrStdout())
			out.Stats("Review decisions", res.Stats())
			out.Done("rewrote " + ctx.cfg.Path(ctx.cfg.Paths.Crosschecked))
			return nil
		},
	}
}

func newRunsCommand(ctx *commandContext) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recent crosscheck runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := ctx.openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			runs, err := repository.NewRunRepo(db).List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			outcomes := repository.NewOutcomeRepo(db)
			counts := make(map[string]map[string]int, len(runs))
			for _, r := range runs {
				if counts[r.ID], err = outcomes.CountByReview(cmd.Context(), r.ID); err != nil {
					return err
				}
			}
			report.New(cmd.OutOrStdout()).Runs(runs, counts)
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Number of runs to show")
	return cmd
}
