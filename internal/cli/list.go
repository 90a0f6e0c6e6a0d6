package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/patchctl-dev/patchctl/internal/patch"
	"github.com/patchctl-dev/patchctl/internal/report"
)

func newListObjectsCommand(opts *report.Options) *cobra.Command {
	var inputPath string

	cmd := &cobra.Command{
		Use:   "list-objects",
		Short: "List objects in a patch with IDs, text, aliases, and I/O counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCommand(opts, "list-objects", func(rc *runContext) (*report.Payload, error) {
				p, err := patch.Load(inputPath, rc.Logger())
				if err != nil {
					return nil, err
				}

				objects := make([]patch.ObjectSummary, 0, p.NumObjects())
				for _, id := range sortedObjectIDs(p) {
					obj, _ := p.Get(id)
					objects = append(objects, patch.Summarize(obj))
				}

				return &report.Payload{
					Message:    fmt.Sprintf("listed %d object(s)", len(objects)),
					Input:      inputPath,
					Changes:    map[string]any{"objects": len(objects)},
					Data:       map[string]any{"objects": objects},
					DataSchema: "patchctl.cli.list_objects.data.v1",
				}, nil
			})
		},
	}

	cmd.Flags().StringVar(&inputPath, "in", "", "Input .maxpat path")
	_ = cmd.MarkFlagRequired("in")

	return cmd
}
