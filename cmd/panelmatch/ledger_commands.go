package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jask/panelmatch/internal/report"
	"github.com/jask/panelmatch/internal/service"
	"github.com/jask/panelmatch/internal/testdata"
)

func newLedgerCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Maintain the local run ledger",
	}
	var yes bool
	reset := &cobra.Command{
		Use:   "reset",
		Short: "Delete all runs, review decisions, sheet cache and sync history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				fmt.Fprint(cmd.ErrOrStderr(), "This deletes all review decisions. Type yes to continue: ")
				var answer string
				_, _ = fmt.Fscanln(cmd.InOrStdin(), &answer)
				if strings.TrimSpace(answer) != "yes" {
					return fmt.Errorf("aborted")
				}
			}
			db, err := ctx.openDB()
			if err != nil {
				return err
			}
			defer db.Close()
			if err := (&service.MaintenanceService{DB: db}).Reset(cmd.Context()); err != nil {
				return err
			}
			report.New(cmd.OutOrStdout()).Done("ledger cleared")
			return nil
		},
	}
	reset.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")

	clearCache := &cobra.Command{
		Use:   "clear-cache",
		Short: "Drop cached sheet downloads",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := ctx.openDB()
			if err != nil {
				return err
			}
			defer db.Close()
			n, err := (&service.MaintenanceService{DB: db}).ClearSheetCache(cmd.Context())
			if err != nil {
				return err
			}
			report.New(cmd.OutOrStdout()).Done(fmt.Sprintf("removed %d cached tabs", n))
			return nil
		},
	}
	cmd.AddCommand(reset, clearCache)
	return cmd
}

func newDemoCommand(ctx *commandContext) *cobra.Command {
	var opts testdata.Options
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Write synthetic panel exports and a registry into the workdir",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sum, err := testdata.Workspace(ctx.cfg, opts)
			if err != nil {
				return err
			}
			out := report.New(cmd.OutOrStdout())
			out.Stats("Demo workspace", []service.Stat{
				{Label: "panel rows", Value: fmt.Sprint(sum.PanelRows)},
				{Label: "repeat applications", Value: fmt.Sprint(sum.Duplicates)},
				{Label: "registry members", Value: fmt.Sprint(sum.Registry)},
				{Label: "misspelled members", Value: fmt.Sprint(sum.Typos)},
			})
			out.Done("now run: panelmatch run")
			return nil
		},
	}
	cmd.Flags().IntVarP(&opts.Respondents, "respondents", "n", 30, "Distinct respondents to generate")
	cmd.Flags().Uint64Var(&opts.Seed, "seed", 1, "Random seed")
	return cmd
}
