package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/patchctl-dev/patchctl/internal/config"
	"github.com/patchctl-dev/patchctl/internal/patch"
	"github.com/patchctl-dev/patchctl/internal/report"
	"github.com/patchctl-dev/patchctl/internal/resolve"
)

func newReplaceCommand(opts *report.Options) *cobra.Command {
	var (
		inputPath   string
		outputPath  string
		target      string
		replacement string
		retain      bool
		attrs       []string
	)

	cmd := &cobra.Command{
		Use:   "replace",
		Short: "Replace an object while preserving compatible patchcords",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCommand(opts, "replace", func(rc *runContext) (*report.Payload, error) {
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

				targetID, _, err := resolve.Selector(patchGraph{p: p}, target)
				if err != nil {
					return nil, err
				}
				parsedAttrs, err := parseAttrPairs(attrs)
				if err != nil {
					return nil, err
				}

				if err := p.Replace(targetID, replacement, retain, parsedAttrs); err != nil {
					return nil, err
				}

				obj, _ := p.Get(targetID)
				return finalizeMutation(rc, p, store, inputPath, resolvedOutput,
					fmt.Sprintf("replaced %s", targetID),
					map[string]any{"replaced": targetID, "new_name": obj.Name()},
					map[string]any{
						"target":      targetID,
						"replacement": replacement,
						"retain":      retain,
						"attributes":  parsedAttrs,
					},
					"patchctl.cli.replace.data.v1")
			})
		},
	}

	cmd.Flags().StringVar(&inputPath, "in", "", "Input .maxpat path")
	cmd.Flags().StringVar(&outputPath, "out", "", "Output .maxpat path")
	cmd.Flags().StringVar(&target, "target", "", "Target selector (obj-id or @alias:name)")
	cmd.Flags().StringVar(&replacement, "with", "", "Replacement object text")
	cmd.Flags().BoolVar(&retain, "retain", true, "Keep patchcords whose ports survive the replacement")
	cmd.Flags().StringArrayVar(&attrs, "attr", nil, "Replacement attribute as key=value (repeatable)")
	_ = cmd.MarkFlagRequired("in")
	_ = cmd.MarkFlagRequired("target")
	_ = cmd.MarkFlagRequired("with")

	return cmd
}
