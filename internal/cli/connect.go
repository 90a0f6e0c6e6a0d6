package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/patchctl-dev/patchctl/internal/cmderr"
	"github.com/patchctl-dev/patchctl/internal/config"
	"github.com/patchctl-dev/patchctl/internal/patch"
	"github.com/patchctl-dev/patchctl/internal/report"
	"github.com/patchctl-dev/patchctl/internal/resolve"
)

func newConnectCommand(opts *report.Options) *cobra.Command {
	var (
		inputPath     string
		outputPath    string
		edges         []string
		fromEndpoints []string
		toEndpoints   []string
	)

	cmd := &cobra.Command{
		Use:   "connect",
		Short: "Connect outlets to inlets in an existing patch",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCommand(opts, "connect", func(rc *runContext) (*report.Payload, error) {
				if len(edges) == 0 && len(fromEndpoints) == 0 && len(toEndpoints) == 0 {
					return nil, cmderr.Usagef("connect requires at least one --edge or one --from/--to pair")
				}
				if (len(fromEndpoints) == 0) != (len(toEndpoints) == 0) {
					return nil, cmderr.Usagef("--from and --to must be provided together")
				}
				if len(fromEndpoints) != len(toEndpoints) {
					return nil, cmderr.Usagef("--from and --to must appear the same number of times")
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
				var connections []patch.Connection
				var resolvedEdges []map[string]any

				appendConnection := func(srcSelector string, srcIndex int, dstSelector string, dstIndex int, mode string) error {
					srcID, err := resolve.Outlet(graph, srcSelector, srcIndex)
					if err != nil {
						return err
					}
					dstID, err := resolve.Inlet(graph, dstSelector, dstIndex)
					if err != nil {
						return err
					}
					connections = append(connections, patch.Connection{
						Source:      patch.Port{ObjectID: srcID, Index: srcIndex},
						Destination: patch.Port{ObjectID: dstID, Index: dstIndex},
					})
					resolvedEdges = append(resolvedEdges, map[string]any{
						"source":      map[string]any{"selector": srcSelector, "id": srcID, "outlet": srcIndex},
						"destination": map[string]any{"selector": dstSelector, "id": dstID, "inlet": dstIndex},
						"mode":        mode,
					})
					return nil
				}

				for _, rawEdge := range edges {
					edge, err := resolve.ParseEdge(rawEdge)
					if err != nil {
						return nil, err
					}
					if err := appendConnection(edge.SrcSelector, edge.SrcIndex, edge.DstSelector, edge.DstIndex, "edge"); err != nil {
						return nil, err
					}
				}
				for i := range fromEndpoints {
					srcSelector, srcIndex, err := resolve.Endpoint(fromEndpoints[i])
					if err != nil {
						return nil, err
					}
					dstSelector, dstIndex, err := resolve.Endpoint(toEndpoints[i])
					if err != nil {
						return nil, err
					}
					if err := appendConnection(srcSelector, srcIndex, dstSelector, dstIndex, "from_to"); err != nil {
						return nil, err
					}
				}

				if err := p.Connect(connections...); err != nil {
					return nil, err
				}

				return finalizeMutation(rc, p, store, inputPath, resolvedOutput,
					fmt.Sprintf("connected %d edge(s)", len(connections)),
					map[string]any{"connected": len(connections)},
					map[string]any{"connections": resolvedEdges},
					"patchctl.cli.connect.data.v1")
			})
		},
	}

	cmd.Flags().StringVar(&inputPath, "in", "", "Input .maxpat path")
	cmd.Flags().StringVar(&outputPath, "out", "", "Output .maxpat path")
	cmd.Flags().StringArrayVar(&edges, "edge", nil, "Edge formatted as <src>:<outlet>-><dst>:<inlet>")
	cmd.Flags().StringArrayVar(&fromEndpoints, "from", nil, "Source endpoint formatted as <selector>:<outlet>")
	cmd.Flags().StringArrayVar(&toEndpoints, "to", nil, "Destination endpoint formatted as <selector>:<inlet>")
	_ = cmd.MarkFlagRequired("in")

	return cmd
}
