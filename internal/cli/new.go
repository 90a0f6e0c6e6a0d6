package cli

import (
	"github.com/spf13/cobra"

	"github.com/patchctl-dev/patchctl/internal/config"
	"github.com/patchctl-dev/patchctl/internal/patch"
	"github.com/patchctl-dev/patchctl/internal/report"
)

func newNewCommand(opts *report.Options) *cobra.Command {
	var template string
	var outputPath string

	cmd := &cobra.Command{
		Use:   "new",
		Short: "Create a new patch from the default or a provided template",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCommand(opts, "new", func(rc *runContext) (*report.Payload, error) {
				store, err := config.Open()
				if err != nil {
					return nil, err
				}

				p, err := patch.New(template, rc.Logger())
				if err != nil {
					return nil, err
				}

				health := patch.CollectHealth(p, store.PackagesPath())
				if err := patch.StrictGuard(rc.opts.Strict, health); err != nil {
					return nil, err
				}
				if err := p.Save(outputPath); err != nil {
					return nil, err
				}

				templateName := template
				if templateName == "" {
					templateName = "default"
				}
				return &report.Payload{
					Message:  "created patch",
					Output:   outputPath,
					Changes:  map[string]any{"objects": p.NumObjects()},
					Warnings: health.Warnings,
					Data: map[string]any{
						"template": templateName,
						"objects":  p.NumObjects(),
					},
					DataSchema: "patchctl.cli.new.data.v1",
				}, nil
			})
		},
	}

	cmd.Flags().StringVar(&template, "template", "", "Template path")
	cmd.Flags().StringVar(&outputPath, "out", "", "Output .maxpat path")
	_ = cmd.MarkFlagRequired("out")

	return cmd
}
