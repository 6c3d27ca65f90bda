package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/petal-labs/addonvet/history"
)

// NewHistoryCmd creates the "history" subcommand.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded validation reports",
		Args:  cobra.NoArgs,
		RunE:  runHistory,
	}

	cmd.Flags().String("db", "", "History database (default: history.path from config)")
	cmd.Flags().Int("limit", 20, "Maximum number of reports (0 = all)")
	cmd.Flags().String("file", "", "Only list reports for this submission file")
	cmd.Flags().Duration("prune", 0, "Delete reports older than this before listing")
	cmd.Flags().String("format", "text", "Output format: text | json")

	return cmd
}

func runHistory(cmd *cobra.Command, _ []string) error {
	e, err := loadEnv(cmd)
	if err != nil {
		return err
	}

	path := stringFlag(cmd, "db", e.cfg.History.Path)
	if path == "" {
		return exitError(exitInputParse, "a history database is required (--db or history.path)")
	}
	limit, _ := cmd.Flags().GetInt("limit")
	file, _ := cmd.Flags().GetString("file")
	prune, _ := cmd.Flags().GetDuration("prune")
	format, _ := cmd.Flags().GetString("format")

	store, err := history.Open(history.Config{DSN: path})
	if err != nil {
		return exitError(exitRuntime, "%v", err)
	}
	defer store.Close()

	ctx := cmd.Context()
	if prune > 0 {
		n, err := store.Prune(ctx, time.Now().Add(-prune))
		if err != nil {
			return exitError(exitRuntime, "%v", err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "pruned %d %s\n", n, pluralize("report", int(n)))
	}

	var entries []history.Entry
	if file != "" {
		entries, err = store.ListFile(ctx, file, limit)
	} else {
		entries, err = store.List(ctx, limit)
	}
	if err != nil {
		return exitError(exitRuntime, "%v", err)
	}

	w := cmd.OutOrStdout()
	if format == "json" {
		if entries == nil {
			entries = []history.Entry{}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}

	if len(entries) == 0 {
		fmt.Fprintln(w, "No reports recorded.")
		return nil
	}
	for _, entry := range entries {
		status := "valid"
		if !entry.Valid {
			status = fmt.Sprintf("%d %s", len(entry.Errors), pluralize("error", len(entry.Errors)))
		}
		fmt.Fprintf(w, "%s  %s  %s  (%s)\n",
			entry.RecordedAt.Local().Format(time.RFC3339), entry.RunID, entry.File, status)
		for _, msg := range entry.Errors {
			fmt.Fprintf(w, "    - %s\n", msg)
		}
	}
	return nil
}
