package cli

import (
	"github.com/spf13/cobra"

	"github.com/patchctl-dev/patchctl/internal/cmderr"
	"github.com/patchctl-dev/patchctl/internal/config"
	"github.com/patchctl-dev/patchctl/internal/patch"
	"github.com/patchctl-dev/patchctl/internal/report"
	"github.com/patchctl-dev/patchctl/internal/resolve"
)

func newDeleteCommand(opts *report.Options) *cobra.Command {
	var (
		inputPath  string
		outputPath string
		selectors  []string
		edges      []string
	)

	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete objects and/or existing connections from a patch",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCommand(opts, "delete", func(rc *runContext) (*report.Payload, error) {
				if len(selectors) == 0 && len(edges) == 0 {
					return nil, cmderr.Usagef("delete requires at least one --obj or --edge")
				}

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

				graph := patchGraph{p: p}

				// Resolve every selector before mutating anything; partial
				// resolution must never leave the patch changed.
				seen := make(map[string]bool)
				var objectIDs []string
				for _, selector := range selectors {
					id, _, err := resolve.Selector(graph, selector)
					if err != nil {
						return nil, err
					}
					if !seen[id] {
						seen[id] = true
						objectIDs = append(objectIDs, id)
					}
				}

				var cords []patch.Connection
				for _, rawEdge := range edges {
					edge, err := resolve.ParseEdge(rawEdge)
					if err != nil {
						return nil, err
					}
					srcID, err := resolve.Outlet(graph, edge.SrcSelector, edge.SrcIndex)
					if err != nil {
						return nil, err
					}
					dstID, err := resolve.Inlet(graph, edge.DstSelector, edge.DstIndex)
					if err != nil {
						return nil, err
					}
					cords = append(cords, patch.Connection{
						Source:      patch.Port{ObjectID: srcID, Index: edge.SrcIndex},
						Destination: patch.Port{ObjectID: dstID, Index: edge.DstIndex},
					})
				}

				if err := p.Delete(objectIDs, cords); err != nil {
					return nil, err
				}

				return finalizeMutation(rc, p, store, inputPath, resolvedOutput,
					"deleted requested objects/edges",
					map[string]any{"deleted_objects": len(objectIDs), "deleted_edges": len(cords)},
					map[string]any{
						"deleted_object_ids": objectIDs,
						"deleted_edges":      len(cords),
					},
					"patchctl.cli.delete.data.v1")
			})
		},
	}

	cmd.Flags().StringVar(&inputPath, "in", "", "Input .maxpat path")
	cmd.Flags().StringVar(&outputPath, "out", "", "Output .maxpat path")
	cmd.Flags().StringArrayVar(&selectors, "obj", nil, "Object selector to delete (repeatable)")
	cmd.Flags().StringArrayVar(&edges, "edge", nil, "Edge formatted as <src>:<outlet>-><dst>:<inlet> to delete")
	_ = cmd.MarkFlagRequired("in")

	return cmd
}
