package main

import (
	"errors"
	"fmt"
	"net/http"
	"sort"

	"github.com/spf13/cobra"

	"github.com/jask/panelmatch/internal/airtable"
	"github.com/jask/panelmatch/internal/database/repository"
	"github.com/jask/panelmatch/internal/report"
	"github.com/jask/panelmatch/internal/secrets"
	"github.com/jask/panelmatch/internal/service"
	"github.com/jask/panelmatch/internal/sheets"
	"github.com/jask/panelmatch/internal/table"
)

func newSheetsCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sheets",
		Short: "Google Sheets reservation data",
	}
	var force, wait bool
	fetch := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch every configured tab and write the combined CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c := ctx.cfg.Sheets
			db, err := ctx.openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			f, err := sheets.NewFetcher(sheets.Config{
				BaseURL:       c.BaseURL,
				SpreadsheetID: c.SpreadsheetID,
				CacheTTL:      c.CacheTTL,
				MinInterval:   c.MinInterval,
				MaxPerHour:    c.MaxPerHour,
				Wait:          wait,
				HTTPClient:    &http.Client{Timeout: c.Timeout},
				Logger:        ctx.log,
			}, repository.NewSheetRepo(db))
			if err != nil {
				return err
			}
			t, err := sheets.FetchAll(cmd.Context(), f, c.Tabs, ctx.mapping.Sheets, force)
			if err != nil {
				var rl *sheets.RateLimitError
				if errors.As(err, &rl) {
					return fmt.Errorf("%w (use --wait to sleep through it)", err)
				}
				return err
			}
			path := ctx.cfg.Path(c.Output)
			if err := table.WriteCSVFile(path, t, true); err != nil {
				return err
			}

			counts := t.Counts(sheets.ColSheet)
			names := make([]string, 0, len(counts))
			for n := range counts {
				names = append(names, n)
			}
			sort.Strings(names)
			stats := make([]service.Stat, 0, len(names)+1)
			for _, n := range names {
				stats = append(stats, service.Stat{Label: n, Value: fmt.Sprint(counts[n])})
			}
			stats = append(stats, service.Stat{Label: "total", Value: fmt.Sprint(t.Len())})
			out := report.New(cmd.OutOrStdout())
			out.Stats("Sheets", stats)
			out.Done("wrote " + path)
			return nil
		},
	}
	fetch.Flags().BoolVar(&force, "force", false, "Ignore the cache")
	fetch.Flags().BoolVar(&wait, "wait", false, "Sleep through rate limits instead of failing")
	cmd.AddCommand(fetch)
	return cmd
}

func newAirtableCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "airtable",
		Short: "Airtable synchronisation",
	}
	var input, tableName string
	sync := &cobra.Command{
		Use:   "sync",
		Short: "Create or update Airtable records from the normalized panel",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c := ctx.cfg.Airtable
			if input == "" {
				input = ctx.cfg.Path(c.Input)
			}
			if tableName == "" {
				tableName = c.Table
			}
			rows, err := table.ReadCSVFile(input, table.ReadOptions{})
			if err != nil {
				return fmt.Errorf("load %s: %w", input, err)
			}

			store, err := secrets.DefaultStore()
			if err != nil {
				ctx.log.Warn("secret store unavailable", "error", err)
				store = nil
			}
			apiKey, err := secrets.Resolve(c.APIKeyEnv, store, "airtable", c.APIKey)
			if err != nil {
				return fmt.Errorf("airtable api key: %w (set %s or run `panelmatch key set airtable`)", err, c.APIKeyEnv)
			}
			client, err := airtable.New(airtable.Config{
				BaseURL:    c.BaseURL,
				BaseID:     c.BaseID,
				APIKey:     apiKey,
				BatchSize:  c.BatchSize,
				BatchDelay: c.BatchDelay,
				HTTPClient: &http.Client{Timeout: c.Timeout},
				Logger:     ctx.log,
			})
			if err != nil {
				return err
			}

			db, err := ctx.openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			s := &airtable.Syncer{Client: client, Log: repository.NewSyncLogRepo(db), Logger: ctx.log}
			res, err := s.Sync(cmd.Context(), tableName, rows, airtable.SyncOptions{
				UIDField:  c.UIDField,
				Fields:    c.SyncFields,
				InputPath: input,
			})
			out := report.New(cmd.OutOrStdout())
			out.Stats("Airtable sync: "+tableName, []service.Stat{
				{Label: "local rows", Value: fmt.Sprint(res.Total)},
				{Label: "duplicate uids skipped", Value: fmt.Sprint(res.Duplicates)},
				{Label: "existing records", Value: fmt.Sprint(res.Existing)},
				{Label: "created", Value: fmt.Sprint(res.Created)},
				{Label: "updated", Value: fmt.Sprint(res.Updated)},
				{Label: "failed", Value: fmt.Sprint(res.Failed)},
			})
			out.Warnings("failed batches", res.Errors)
			return err
		},
	}
	sync.Flags().StringVar(&input, "input", "", "CSV to upload (default: airtable.input)")
	sync.Flags().StringVar(&tableName, "table", "", "Airtable table (default: airtable.table)")
	cmd.AddCommand(sync)
	return cmd
}
