package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jask/panelmatch/internal/config"
	"github.com/jask/panelmatch/internal/secrets"
)

func newKeyCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "key",
		Short: "Manage API keys in the local encrypted store",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "set <service>",
		Short: "Store a key read from stdin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s key: ", args[0])
			line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if err != nil && line == "" {
				return fmt.Errorf("read key: %w", err)
			}
			key := strings.TrimSpace(line)
			if key == "" {
				return errors.New("empty key")
			}
			store, err := secrets.DefaultStore()
			if err != nil {
				return err
			}
			if err := store.Put(args[0], key); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "stored")
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "delete <service>",
		Short: "Remove a stored key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := secrets.DefaultStore()
			if err != nil {
				return err
			}
			return store.Delete(args[0])
		},
	})
	return cmd
}

func newConfigCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration helpers",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Write the effective configuration to the config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.Save(ctx.cfg); err != nil {
				return err
			}
			path := os.Getenv("PANELMATCH_CONFIG")
			if path == "" {
				path = "~/.config/panelmatch/config.toml"
			}
			fmt.Fprintln(cmd.OutOrStdout(), "wrote", path)
			return nil
		},
	})
	return cmd
}
