package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/jask/panelmatch/internal/report"
	"github.com/jask/panelmatch/internal/service"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "run [step]",
		Short: "Run the pipeline, or a single step 1-4",
		Long: `Steps:
  1  merge the panel exports and drop duplicates
  2  crosscheck against the member registry
  3  rename columns to field names
  4  normalize values`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			only := 0
			if len(args) == 1 {
				n, err := strconv.Atoi(args[0])
				if err != nil || n < 1 || n > service.StepCount {
					return fmt.Errorf("step must be 1-%d, got %q", service.StepCount, args[0])
				}
				only = n
			}
			db, err := ctx.openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			out := report.New(cmd.OutOrStdout())
			p := ctx.pipeline(db)
			p.OnStep = out.Step
			if err := p.Run(cmd.Context(), only); err != nil {
				return err
			}
			out.Done("pipeline finished")
			return nil
		},
	}
}

func newConvertCommand() *cobra.Command {
	var sheet string
	cmd := &cobra.Command{
		Use:   "convert <input.xlsx> <output.csv>",
		Short: "Convert one worksheet of an Excel file to CSV",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := service.ConvertWorkbook(args[0], sheet, args[1])
			if err != nil {
				return err
			}
			report.New(cmd.OutOrStdout()).Done(fmt.Sprintf("wrote %d rows to %s", n, args[1]))
			return nil
		},
	}
	cmd.Flags().StringVar(&sheet, "sheet", "", "Worksheet name (default: first sheet)")
	return cmd
}

func newParticipationCommand(ctx *commandContext) *cobra.Command {
	var group string
	var includeEmpty bool
	cmd := &cobra.Command{
		Use:   "participation",
		Short: "Apply participation results to the normalized panel",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("group") {
				ctx.cfg.Participation.Group = group
			}
			if cmd.Flags().Changed("include-empty-group") {
				ctx.cfg.Participation.IncludeEmptyGroup = includeEmpty
			}
			p := ctx.pipeline(nil)
			res, err := p.Participation(cmd.Context())
			if err != nil {
				return err
			}
			out := report.New(cmd.OutOrStdout())
			out.Stats("Participation", res.Stats())
			out.Done("wrote " + ctx.cfg.Path(ctx.cfg.Participation.Output))
			return nil
		},
	}
	cmd.Flags().StringVar(&group, "group", "", "Only apply update rows of this group")
	cmd.Flags().BoolVar(&includeEmpty, "include-empty-group", false, "Also apply rows with no group")
	return cmd
}

func newFilterCommand(ctx *commandContext) *cobra.Command {
	var input, output string
	cmd := &cobra.Command{
		Use:   "filter",
		Short: "Drop cancelled, duplicate and no-show panelists",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if input != "" {
				ctx.cfg.Filter.Input = input
			}
			if output != "" {
				ctx.cfg.Filter.Output = output
			}
			res, err := ctx.pipeline(nil).Filter(cmd.Context())
			if err != nil {
				return err
			}
			out := report.New(cmd.OutOrStdout())
			out.Stats("Filter", res.Stats())
			out.Done("wrote " + ctx.cfg.Path(ctx.cfg.Filter.Output))
			return nil
		},
	}
	cmd.Flags().StringVar(&input, "input", "", "Panel CSV to filter (default: filter.input)")
	cmd.Flags().StringVar(&output, "output", "", "Where to write the kept rows (default: filter.output)")
	return cmd
}
