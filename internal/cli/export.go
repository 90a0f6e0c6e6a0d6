package cli

import (
	"github.com/spf13/cobra"

	"github.com/patchctl-dev/patchctl/internal/config"
	"github.com/patchctl-dev/patchctl/internal/export"
	"github.com/patchctl-dev/patchctl/internal/patch"
	"github.com/patchctl-dev/patchctl/internal/report"
)

func newExportAmxdCommand(opts *report.Options) *cobra.Command {
	var (
		inputPath  string
		outputPath string
		validate   bool
		timeout    float64
		overwrite  bool
	)

	cmd := &cobra.Command{
		Use:   "export-amxd",
		Short: "Export patch JSON to .amxd with optional runtime validation in Max",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCommand(opts, "export-amxd", func(rc *runContext) (*report.Payload, error) {
				store, err := config.Open()
				if err != nil {
					return nil, err
				}
				p, err := patch.Load(inputPath, rc.Logger())
				if err != nil {
					return nil, err
				}

				health := patch.CollectHealth(p, store.PackagesPath())
				if err := patch.StrictGuard(rc.opts.Strict, health); err != nil {
					return nil, err
				}

				exportOpts := export.Options{
					OutputPath: outputPath,
					Overwrite:  overwrite,
					Validate:   validate,
				}
				if cmd.Flags().Changed("timeout") {
					timeoutValue := timeout
					exportOpts.Timeout = &timeoutValue
				}

				exporter := &export.Exporter{Config: store}
				result, err := exporter.Export(p, exportOpts)
				if err != nil {
					return nil, err
				}

				message := "exported .amxd"
				switch {
				case result["validated"] == true:
					message += " and validated in Max"
				case validate:
					message += " (validation requested)"
				default:
					message += " (validation skipped)"
				}

				return &report.Payload{
					Message:    message,
					Input:      inputPath,
					Output:     outputPath,
					Changes:    map[string]any{"objects": p.NumObjects(), "exported": 1},
					Warnings:   health.Warnings,
					Data:       result,
					DataSchema: "patchctl.cli.export_amxd.data.v1",
				}, nil
			})
		},
	}

	cmd.Flags().StringVar(&inputPath, "in", "", "Input .maxpat path")
	cmd.Flags().StringVar(&outputPath, "out", "", "Output .amxd path")
	cmd.Flags().BoolVar(&validate, "validate", true, "Open exported file in Max to validate load/save behavior")
	cmd.Flags().Float64Var(&timeout, "timeout", 0, "Validation timeout in seconds (defaults to configured wait_time)")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Allow replacing an existing output file")
	_ = cmd.MarkFlagRequired("in")
	_ = cmd.MarkFlagRequired("out")

	return cmd
}
