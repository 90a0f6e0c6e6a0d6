package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/patchctl-dev/patchctl/internal/cmderr"
	"github.com/patchctl-dev/patchctl/internal/config"
	"github.com/patchctl-dev/patchctl/internal/patch"
	"github.com/patchctl-dev/patchctl/internal/report"
)

func newCheckCommand(opts *report.Options) *cobra.Command {
	var (
		inputPath    string
		unknown      bool
		js           bool
		abstractions bool
	)

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Inspect patch for unknown objects, js linkage, and abstractions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCommand(opts, "check", func(rc *runContext) (*report.Payload, error) {
				store, err := config.Open()
				if err != nil {
					return nil, err
				}
				p, err := patch.Load(inputPath, rc.Logger())
				if err != nil {
					return nil, err
				}

				health := patch.CollectHealth(p, store.PackagesPath())

				selected := map[string]any{
					"unknowns":     []patch.ObjectSummary{},
					"js":           patch.JSInfo{Linked: []patch.ObjectSummary{}, Unlinked: []patch.ObjectSummary{}},
					"abstractions": []patch.ObjectSummary{},
				}
				if unknown {
					selected["unknowns"] = health.Unknowns
				}
				if js {
					selected["js"] = health.JS
				}
				if abstractions {
					selected["abstractions"] = health.Abstractions
				}

				var warnings []string
				if unknown && len(health.Unknowns) > 0 {
					warnings = append(warnings, fmt.Sprintf("%d unknown object(s)", len(health.Unknowns)))
				}
				if js && len(health.JS.Unlinked) > 0 {
					warnings = append(warnings, fmt.Sprintf("%d unlinked js object(s)", len(health.JS.Unlinked)))
				}
				if abstractions && len(health.Abstractions) > 0 {
					warnings = append(warnings, fmt.Sprintf("%d abstraction object(s)", len(health.Abstractions)))
				}

				if rc.opts.Strict && len(warnings) > 0 {
					return nil, cmderr.Validationf("strict mode failed: %s", strings.Join(warnings, "; ")).
						WithDetails(map[string]any{"warnings": warnings})
				}

				jsSelected := selected["js"].(patch.JSInfo)
				return &report.Payload{
					Message: "patch check completed",
					Input:   inputPath,
					Changes: map[string]any{
						"unknowns":     len(selected["unknowns"].([]patch.ObjectSummary)),
						"js_linked":    len(jsSelected.Linked),
						"js_unlinked":  len(jsSelected.Unlinked),
						"abstractions": len(selected["abstractions"].([]patch.ObjectSummary)),
					},
					Warnings:   warnings,
					Data:       selected,
					DataSchema: "patchctl.cli.check.data.v1",
				}, nil
			})
		},
	}

	cmd.Flags().StringVar(&inputPath, "in", "", "Input .maxpat path")
	cmd.Flags().BoolVar(&unknown, "unknown", true, "Report unknown objects")
	cmd.Flags().BoolVar(&js, "js", true, "Report js object linkage")
	cmd.Flags().BoolVar(&abstractions, "abstractions", true, "Report abstraction objects")
	_ = cmd.MarkFlagRequired("in")

	return cmd
}
