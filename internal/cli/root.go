// Package cli wires the patchctl command surface: every subcommand funnels
// through the same pipeline that captures diagnostics, classifies failures
// into the error taxonomy, and emits one report envelope per invocation.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/patchctl-dev/patchctl/internal/report"
)

func NewRootCommand(version string) *cobra.Command {
	opts := report.NewOptions()

	rootCmd := &cobra.Command{
		Use:   "patchctl",
		Short: "Create, edit, and export Max patch documents from the command line",
		Long: `Patchctl mutates Max patch documents (.maxpat JSON) without opening the
editor: place objects, connect patchcords, replace or delete boxes, check
patch health, and export Max for Live devices (.amxd) with an optional
load/save validation pass driven through the installed Max application.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Route envelopes through cobra's writer so tests can capture
			// them; defaults to stdout.
			opts.Out = cmd.OutOrStdout()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.BoolVar(&opts.JSON, "json", false, "Output machine-readable JSON")
	flags.BoolVar(&opts.Verbose, "verbose", false, "Enable verbose patch operation logs")
	flags.BoolVar(&opts.Strict, "strict", false, "Fail when check warnings are present")
	flags.BoolVar(&opts.InPlace, "in-place", false, "When --in is provided, write output back to the input file")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("patchctl %s\n", version)
		},
	}

	rootCmd.AddCommand(
		newNewCommand(opts),
		newListObjectsCommand(opts),
		newPlaceCommand(opts),
		newConnectCommand(opts),
		newReplaceCommand(opts),
		newDeleteCommand(opts),
		newCheckCommand(opts),
		newSaveCommand(opts),
		newExportAmxdCommand(opts),
		newConfigCommand(opts),
		versionCmd,
	)

	return rootCmd
}
