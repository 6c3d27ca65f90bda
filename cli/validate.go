package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/petal-labs/addonvet/apiversions"
	"github.com/petal-labs/addonvet/history"
	"github.com/petal-labs/addonvet/validate"
)

// NewValidateCmd creates the "validate" subcommand.
func NewValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <glob> [apiVersions.json]",
		Short: "Validate add-on submission files",
		Long: "Validate every submission file matching the glob (\"**\" supported) against its package " +
			"and the known NVDA API versions.",
		Args: cobra.RangeArgs(1, 2),
		RunE: runValidate,
	}

	cmd.Flags().String("output", "", "Append validation errors to this file (replaced on each run)")
	cmd.Flags().Bool("dry-run", false, "Check the arguments only, do not run any checks")
	cmd.Flags().String("scratch-dir", "", "Directory for downloaded packages (default: system temp dir)")
	cmd.Flags().String("schema", "", "Submission JSON schema file (default: built-in schema)")
	cmd.Flags().String("format", "text", "Output format: text | json")
	cmd.Flags().String("history", "", "Record reports in this SQLite database")

	return cmd
}

// batchOptions are the settings shared by validate and watch.
type batchOptions struct {
	glob      string
	errorFile string
	format    string
}

func runValidate(cmd *cobra.Command, args []string) error {
	e, err := loadEnv(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = e.logger.Sync() }()
	applyValidateFlags(cmd, e)

	opts := batchOptions{
		glob:      args[0],
		errorFile: e.cfg.ErrorOutput,
	}
	opts.format, _ = cmd.Flags().GetString("format")
	if opts.format != "text" && opts.format != "json" {
		return exitError(exitInputParse, "unknown format %q (want text or json)", opts.format)
	}

	if err := removeStaleErrorFile(opts.errorFile); err != nil {
		return err
	}
	if dryRun, _ := cmd.Flags().GetBool("dry-run"); dryRun {
		return nil
	}

	reg, err := e.loadRegistry(args, 1)
	if err != nil {
		return err
	}

	anyErrors, err := runBatch(cmd.Context(), cmd.OutOrStdout(), e, reg, opts)
	if err != nil {
		return err
	}
	if anyErrors {
		return exitError(exitValidation, "validation errors for %s", opts.glob)
	}
	return nil
}

// applyValidateFlags lets command-line flags override config values.
func applyValidateFlags(cmd *cobra.Command, e *env) {
	e.cfg.ErrorOutput = stringFlag(cmd, "output", e.cfg.ErrorOutput)
	e.cfg.ScratchDir = stringFlag(cmd, "scratch-dir", e.cfg.ScratchDir)
	e.cfg.Schema = stringFlag(cmd, "schema", e.cfg.Schema)
	e.cfg.History.Path = stringFlag(cmd, "history", e.cfg.History.Path)
}

func removeStaleErrorFile(path string) error {
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return exitError(exitRuntime, "removing error file: %v", err)
	}
	return nil
}

// runBatch validates every file matching opts.glob and prints the outcome.
// It reports whether any submission had errors.
func runBatch(ctx context.Context, out io.Writer, e *env, reg *apiversions.Registry, opts batchOptions) (bool, error) {
	files, err := validate.FindSubmissions(opts.glob)
	if err != nil {
		return false, exitError(exitInputParse, "%v", err)
	}

	schema, err := e.schema()
	if err != nil {
		return false, exitError(exitInputParse, "%v", err)
	}

	tel, err := e.startTelemetry(ctx)
	if err != nil {
		return false, exitError(exitRuntime, "%v", err)
	}
	defer tel.stop(context.WithoutCancel(ctx), e.logger)

	var store *history.Store
	if e.cfg.History.Path != "" {
		store, err = history.Open(history.Config{DSN: e.cfg.History.Path})
		if err != nil {
			return false, exitError(exitRuntime, "%v", err)
		}
		defer store.Close()
	}

	v := &validate.Validator{
		Registry:   reg,
		Schema:     schema,
		HTTPClient: e.httpClient(),
		ScratchDir: e.cfg.ScratchDir,
		BlockSize:  e.cfg.Download.BlockSize,
		Logger:     e.logger,
		OnEvent:    tel.handler,
	}
	if opts.format == "text" {
		v.OnEvent = validate.MultiEventHandler(tel.handler, func(ev validate.Event) {
			if ev.Kind == validate.EventSubmissionStarted {
				fmt.Fprintf(out, "Validating %s\n", ev.File)
			}
		})
	}

	var (
		anyErrors bool
		writeErr  error
	)
	onReport := func(rep validate.Report) {
		if opts.format == "text" {
			for _, msg := range rep.Errors {
				fmt.Fprintln(out, msg)
			}
		}
		if !rep.OK() {
			anyErrors = true
			if opts.errorFile != "" && writeErr == nil {
				writeErr = validate.AppendErrorFile(opts.errorFile, rep)
			}
		}
		if store != nil {
			if err := store.Record(ctx, rep, time.Now()); err != nil {
				e.logger.Warn("recording history", zap.String("file", rep.File), zap.Error(err))
			}
		}
	}

	reports, err := v.ValidateFiles(ctx, files, onReport)
	if err != nil {
		return anyErrors, exitError(exitRuntime, "%v", err)
	}
	if writeErr != nil {
		return anyErrors, exitError(exitRuntime, "%v", writeErr)
	}

	if opts.format == "json" {
		printReportsJSON(out, reports)
		return anyErrors, nil
	}
	printBatchSummary(out, opts, reports, anyErrors)
	return anyErrors, nil
}

func printBatchSummary(w io.Writer, opts batchOptions, reports []validate.Report, anyErrors bool) {
	if !anyErrors {
		fmt.Fprintf(w, "No validation errors for %s\n", opts.glob)
		return
	}
	failed := 0
	for _, rep := range reports {
		if !rep.OK() {
			failed++
		}
	}
	if opts.errorFile != "" {
		fmt.Fprintf(w, "Validation errors for %s in %s (%d %s)\n",
			opts.glob, opts.errorFile, failed, pluralize("submission", failed))
		return
	}
	fmt.Fprintf(w, "Validation errors for %s (%d %s)\n", opts.glob, failed, pluralize("submission", failed))
}

func printReportsJSON(w io.Writer, reports []validate.Report) {
	// Output an empty array rather than null when nothing matched.
	if reports == nil {
		reports = []validate.Report{}
	}
	for i := range reports {
		if reports[i].Errors == nil {
			reports[i].Errors = []string{}
		}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(reports)
}

// pluralize returns the singular or plural form of a word based on count.
func pluralize(word string, count int) string {
	if count == 1 {
		return word
	}
	return word + "s"
}
