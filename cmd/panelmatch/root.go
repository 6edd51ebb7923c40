package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var configFlag, levelFlag string
	ctx := newCommandContext(&configFlag, &levelFlag)

	root := &cobra.Command{
		Use:           "panelmatch",
		Short:         "Merge, match and sync K-Beauty panel participants",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return ctx.load()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	root.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")
	root.PersistentFlags().StringVar(&levelFlag, "log-level", "", "Override the configured log level")

	root.AddCommand(
		newRunCommand(ctx),
		newConvertCommand(),
		newParticipationCommand(ctx),
		newFilterCommand(ctx),
		newSheetsCommand(ctx),
		newAirtableCommand(ctx),
		newReviewCommand(ctx),
		newRunsCommand(ctx),
		newKeyCommand(),
		newConfigCommand(ctx),
		newLedgerCommand(ctx),
		newDemoCommand(ctx),
	)
	return root
}
