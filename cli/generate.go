package cli

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/petal-labs/addonvet/generate"
	"github.com/petal-labs/addonvet/submission"
)

// NewGenerateCmd creates the "generate" subcommand.
func NewGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Create a submission file from an add-on package",
		Args:  cobra.NoArgs,
		RunE:  runGenerate,
	}

	cmd.Flags().StringP("file", "f", "", "Path to the .nvda-addon package")
	cmd.Flags().String("dir", "", "Parent directory for <addonId>/<version>.json")
	cmd.Flags().String("channel", submission.ChannelStable, "Release channel: stable | beta | dev")
	cmd.Flags().String("publisher", "", "Publisher of the add-on")
	cmd.Flags().String("sourceUrl", "", "URL of the add-on source code")
	cmd.Flags().String("url", "", "Download URL of the package")
	cmd.Flags().String("licName", "", "Name of the add-on license")
	cmd.Flags().String("licUrl", "", "URL of the add-on license (optional)")
	cmd.Flags().String("output", "", "Append manifest errors to this file")
	for _, name := range []string{"file", "dir", "publisher", "sourceUrl", "url", "licName"} {
		_ = cmd.MarkFlagRequired(name)
	}

	return cmd
}

func runGenerate(cmd *cobra.Command, _ []string) error {
	e, err := loadEnv(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = e.logger.Sync() }()

	pkgPath, _ := cmd.Flags().GetString("file")
	dir, _ := cmd.Flags().GetString("dir")
	errorFile := stringFlag(cmd, "output", e.cfg.ErrorOutput)

	var p generate.Params
	p.Channel, _ = cmd.Flags().GetString("channel")
	p.Publisher, _ = cmd.Flags().GetString("publisher")
	p.SourceURL, _ = cmd.Flags().GetString("sourceUrl")
	p.DownloadURL, _ = cmd.Flags().GetString("url")
	p.LicenseName, _ = cmd.Flags().GetString("licName")
	if licURL, _ := cmd.Flags().GetString("licUrl"); licURL != "" {
		p.LicenseURL = &licURL
	}

	if _, err := os.Stat(pkgPath); errors.Is(err, os.ErrNotExist) {
		return exitError(exitFileNotFound, "file not found: %s", pkgPath)
	}

	path, err := generate.FromPackage(pkgPath, dir, p, time.Now())
	if err != nil {
		var merr *generate.ManifestError
		if errors.As(err, &merr) {
			if errorFile != "" {
				if werr := generate.WriteManifestErrors(errorFile, merr.Problems); werr != nil {
					return exitError(exitRuntime, "writing error file: %v", werr)
				}
			}
			for _, problem := range merr.Problems {
				fmt.Fprintln(cmd.OutOrStdout(), problem)
			}
			return exitError(exitValidation, "invalid manifest in %s", pkgPath)
		}
		return exitError(exitRuntime, "%v", err)
	}

	e.logger.Info("wrote json file", zap.String("path", path))
	fmt.Fprintln(cmd.OutOrStdout(), path)
	return nil
}

// NewRegenerateCmd creates the "regenerate" subcommand.
func NewRegenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "regenerate",
		Short: "Rebuild the translations of every submission file in a directory",
		Args:  cobra.NoArgs,
		RunE:  runRegenerate,
	}

	cmd.Flags().String("dir", "", "Directory holding <addonId>/<version>.json files")
	cmd.Flags().String("output", "", "Append manifest errors to this file")
	cmd.Flags().String("scratch-dir", "", "Directory for downloaded packages (default: system temp dir)")
	_ = cmd.MarkFlagRequired("dir")

	return cmd
}

func runRegenerate(cmd *cobra.Command, _ []string) error {
	e, err := loadEnv(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = e.logger.Sync() }()

	dir, _ := cmd.Flags().GetString("dir")
	schema, err := e.schema()
	if err != nil {
		return exitError(exitInputParse, "%v", err)
	}

	g := &generate.Regenerator{
		HTTPClient: e.httpClient(),
		Schema:     schema,
		ScratchDir: stringFlag(cmd, "scratch-dir", e.cfg.ScratchDir),
		BlockSize:  e.cfg.Download.BlockSize,
		ErrorFile:  stringFlag(cmd, "output", e.cfg.ErrorOutput),
		Logger:     e.logger,
	}

	written, err := g.Dir(cmd.Context(), dir)
	for _, path := range written {
		fmt.Fprintln(cmd.OutOrStdout(), path)
	}
	if err != nil {
		return exitError(exitRuntime, "%v", err)
	}
	return nil
}
