// Package cli implements the addonvet command tree.
package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/petal-labs/addonvet/apiversions"
	"github.com/petal-labs/addonvet/config"
	"github.com/petal-labs/addonvet/logging"
	addonotel "github.com/petal-labs/addonvet/otel"
	"github.com/petal-labs/addonvet/submission"
	"github.com/petal-labs/addonvet/validate"
)

// NewRootCmd creates the addonvet root command with every subcommand.
func NewRootCmd(version string) *cobra.Command {
	root := &cobra.Command{
		Use:   "addonvet",
		Short: "NVDA add-on submission validator",
		Long:  "addonvet validates NVDA add-on store submissions against their packages and generates submission files.",
		// SilenceUsage prevents printing usage on every error
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "Config file (default: ./addonvet.yaml, then ~/.addonvet/config.yaml)")
	root.PersistentFlags().String("log-level", "", "Log level: debug | info | warn | error")
	root.PersistentFlags().String("log-format", "", "Log format: console | json")

	root.Version = version
	root.SetVersionTemplate(fmt.Sprintf("addonvet version %s\n", version))

	root.AddCommand(NewValidateCmd())
	root.AddCommand(NewGenerateCmd())
	root.AddCommand(NewRegenerateCmd())
	root.AddCommand(NewVersionsCmd())
	root.AddCommand(NewHistoryCmd())
	root.AddCommand(NewWatchCmd())
	return root
}

// env is the per-command state derived from the config file and global flags.
type env struct {
	cfg    config.Config
	logger *zap.Logger
}

func loadEnv(cmd *cobra.Command) (*env, error) {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, _, err := config.LoadDiscovered(configPath)
	if err != nil {
		return nil, exitError(exitInputParse, "%v", err)
	}

	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.Log.Level = level
	}
	if format, _ := cmd.Flags().GetString("log-format"); format != "" {
		cfg.Log.Format = format
	}

	logger, err := logging.New(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, exitError(exitInputParse, "%v", err)
	}
	return &env{cfg: cfg, logger: logger}, nil
}

// stringFlag returns the flag value when set, otherwise fallback.
func stringFlag(cmd *cobra.Command, name, fallback string) string {
	if cmd.Flags().Changed(name) {
		v, _ := cmd.Flags().GetString(name)
		return v
	}
	return fallback
}

func (e *env) httpClient() *http.Client {
	return &http.Client{Timeout: e.cfg.Download.Timeout}
}

func (e *env) schema() (*submission.Schema, error) {
	if e.cfg.Schema == "" {
		return submission.DefaultSchema()
	}
	return submission.LoadSchema(e.cfg.Schema)
}

// loadRegistry resolves the API versions file from args[idx] or the config.
func (e *env) loadRegistry(args []string, idx int) (*apiversions.Registry, error) {
	path := e.cfg.APIVersions
	if len(args) > idx {
		path = args[idx]
	}
	if path == "" {
		return nil, exitError(exitInputParse, "an API versions file is required")
	}
	reg, err := apiversions.Load(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, exitError(exitFileNotFound, "file not found: %s", path)
		}
		return nil, exitError(exitInputParse, "%v", err)
	}
	return reg, nil
}

// telemetry wires the tracing and metrics handlers to the validator events.
type telemetry struct {
	tel     *addonotel.Telemetry
	handler validate.EventHandler
}

func (e *env) startTelemetry(ctx context.Context) (*telemetry, error) {
	tel, err := addonotel.Setup(ctx, addonotel.Config{
		Endpoint:    e.cfg.Telemetry.Endpoint,
		Insecure:    e.cfg.Telemetry.Insecure,
		ServiceName: e.cfg.Telemetry.ServiceName,
	})
	if err != nil {
		return nil, err
	}
	metrics, err := addonotel.NewMetricsHandler(tel.Meter())
	if err != nil {
		_ = tel.Shutdown(ctx)
		return nil, fmt.Errorf("creating metrics: %w", err)
	}
	tracing := addonotel.NewTracingHandler(tel.Tracer())
	return &telemetry{
		tel:     tel,
		handler: validate.MultiEventHandler(tracing.Handle, metrics.Handle),
	}, nil
}

// stop logs the metric summary and flushes the providers.
func (t *telemetry) stop(ctx context.Context, logger *zap.Logger) {
	if err := t.tel.LogSummary(ctx, logger); err != nil {
		logger.Warn("collecting metrics", zap.Error(err))
	}
	if err := t.tel.Shutdown(ctx); err != nil {
		logger.Warn("shutting down telemetry", zap.Error(err))
	}
}
