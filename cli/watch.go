package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var standardCronParser = cron.NewParser(
	cron.Minute |
		cron.Hour |
		cron.Dom |
		cron.Month |
		cron.Dow |
		cron.Descriptor,
)

func parseCronExpressionUTC(expr string) (cron.Schedule, error) {
	clean := strings.TrimSpace(expr)
	if clean == "" {
		return nil, fmt.Errorf("cron expression is required")
	}

	upper := strings.ToUpper(clean)
	if strings.Contains(upper, "CRON_TZ=") || strings.Contains(upper, "TZ=") {
		return nil, fmt.Errorf("cron expression must be UTC-only (timezone prefixes are not allowed)")
	}

	schedule, err := standardCronParser.Parse(clean)
	if err != nil {
		return nil, fmt.Errorf("invalid cron expression: %w", err)
	}
	return schedule, nil
}

// NewWatchCmd creates the "watch" subcommand.
func NewWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch <glob> [apiVersions.json]",
		Short: "Revalidate submission files on a UTC cron schedule",
		Args:  cobra.RangeArgs(1, 2),
		RunE:  runWatch,
	}

	cmd.Flags().String("schedule", "", "Five-field cron expression in UTC (default: watch.schedule from config)")
	cmd.Flags().Bool("immediate", false, "Run one pass before waiting for the schedule")
	cmd.Flags().Int("max-runs", 0, "Stop after this many passes (0 = run until interrupted)")
	cmd.Flags().String("output", "", "Append validation errors to this file (replaced on each pass)")
	cmd.Flags().String("scratch-dir", "", "Directory for downloaded packages (default: system temp dir)")
	cmd.Flags().String("schema", "", "Submission JSON schema file (default: built-in schema)")
	cmd.Flags().String("history", "", "Record reports in this SQLite database")

	return cmd
}

func runWatch(cmd *cobra.Command, args []string) error {
	e, err := loadEnv(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = e.logger.Sync() }()
	applyValidateFlags(cmd, e)

	expr := stringFlag(cmd, "schedule", e.cfg.Watch.Schedule)
	schedule, err := parseCronExpressionUTC(expr)
	if err != nil {
		return exitError(exitInputParse, "%v", err)
	}
	immediate, _ := cmd.Flags().GetBool("immediate")
	maxRuns, _ := cmd.Flags().GetInt("max-runs")

	opts := batchOptions{
		glob:      args[0],
		errorFile: e.cfg.ErrorOutput,
		format:    "text",
	}
	// The registry is read on every pass so edits to the file are picked up.
	pass := func(ctx context.Context) error {
		if err := removeStaleErrorFile(opts.errorFile); err != nil {
			return err
		}
		reg, err := e.loadRegistry(args, 1)
		if err != nil {
			return err
		}
		anyErrors, err := runBatch(ctx, cmd.OutOrStdout(), e, reg, opts)
		if err != nil {
			return err
		}
		e.logger.Info("watch pass finished", zap.String("glob", opts.glob), zap.Bool("errors", anyErrors))
		return nil
	}

	return watchLoop(cmd.Context(), schedule, immediate, maxRuns, e.logger, pass)
}

// watchLoop runs pass at each scheduled time, one pass at a time, until ctx
// is cancelled or maxRuns passes have run. A failing pass is logged and the
// loop continues.
func watchLoop(ctx context.Context, schedule cron.Schedule, immediate bool, maxRuns int, logger *zap.Logger, pass func(context.Context) error) error {
	runs := 0
	run := func() {
		runs++
		if err := pass(ctx); err != nil && ctx.Err() == nil {
			logger.Error("watch pass failed", zap.Error(err))
		}
	}

	if immediate {
		run()
	}
	for maxRuns == 0 || runs < maxRuns {
		next := schedule.Next(time.Now().UTC())
		logger.Debug("next watch pass", zap.Time("at", next))

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
			run()
		}
	}
	return nil
}
