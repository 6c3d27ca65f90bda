package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// NewVersionsCmd creates the "versions" subcommand.
func NewVersionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "versions [apiVersions.json]",
		Short: "List the known NVDA API versions",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runVersions,
	}

	cmd.Flags().Bool("stable", false, "Leave out experimental versions")
	cmd.Flags().String("format", "text", "Output format: text | json")

	return cmd
}

type versionsOutput struct {
	Versions []string `json:"versions"`
	Latest   string   `json:"latest"`
}

func runVersions(cmd *cobra.Command, args []string) error {
	e, err := loadEnv(cmd)
	if err != nil {
		return err
	}
	reg, err := e.loadRegistry(args, 0)
	if err != nil {
		return err
	}

	stable, _ := cmd.Flags().GetBool("stable")
	format, _ := cmd.Flags().GetString("format")

	out := versionsOutput{Versions: reg.Versions()}
	if stable {
		out.Versions = reg.StableVersions()
	}
	latest, err := reg.Latest(stable)
	if err != nil {
		return exitError(exitValidation, "%v", err)
	}
	out.Latest = latest.String()

	w := cmd.OutOrStdout()
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}
	for _, v := range out.Versions {
		fmt.Fprintln(w, v)
	}
	fmt.Fprintf(w, "\nLatest: %s\n", out.Latest)
	return nil
}
