package cli

import (
	"github.com/spf13/cobra"

	"github.com/patchctl-dev/patchctl/internal/config"
	"github.com/patchctl-dev/patchctl/internal/patch"
	"github.com/patchctl-dev/patchctl/internal/report"
)

func newSaveCommand(opts *report.Options) *cobra.Command {
	var inputPath string
	var outputPath string

	cmd := &cobra.Command{
		Use:   "save",
		Short: "Save/copy a patch file using CLI output and strict checks",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCommand(opts, "save", func(rc *runContext) (*report.Payload, error) {
				store, err := config.Open()
				if err != nil {
					return nil, err
				}
				p, err := patch.Load(inputPath, rc.Logger())
				if err != nil {
					return nil, err
				}
				resolvedOutput, err := resolveOutputPath(inputPath, outputPath, rc.opts.InPlace, false)
				if err != nil {
					return nil, err
				}

				return finalizeMutation(rc, p, store, inputPath, resolvedOutput,
					"saved patch",
					map[string]any{"objects": p.NumObjects()},
					map[string]any{"objects": p.NumObjects()},
					"patchctl.cli.save.data.v1")
			})
		},
	}

	cmd.Flags().StringVar(&inputPath, "in", "", "Input .maxpat path")
	cmd.Flags().StringVar(&outputPath, "out", "", "Output .maxpat path")
	_ = cmd.MarkFlagRequired("in")

	return cmd
}
