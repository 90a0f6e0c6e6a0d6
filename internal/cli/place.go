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

func newPlaceCommand(opts *report.Options) *cobra.Command {
	var (
		inputPath   string
		outputPath  string
		objects     []string
		randPick    bool
		numObjs     int
		seed        int64
		weights     []float64
		spacingType string
		spacing     []float64
		positions   []string
		startPos    string
	)

	cmd := &cobra.Command{
		Use:   "place",
		Short: "Place objects into an existing patch",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCommand(opts, "place", func(rc *runContext) (*report.Payload, error) {
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

				spacingTypeNorm := strings.ToLower(spacingType)
				switch spacingTypeNorm {
				case patch.SpacingGrid, patch.SpacingVertical, patch.SpacingRandom, patch.SpacingCustom:
				default:
					return nil, cmderr.Usagef("unsupported spacing type: %s", spacingType)
				}
				if spacingTypeNorm != patch.SpacingCustom && len(positions) > 0 {
					return nil, cmderr.Usagef("--position is only valid with --spacing-type custom")
				}

				placeOpts := patch.PlaceOptions{
					Texts:       objects,
					RandPick:    randPick,
					NumObjects:  numObjs,
					Weights:     weights,
					SpacingType: spacingTypeNorm,
					Spacing:     spacing,
				}
				if cmd.Flags().Changed("seed") {
					seedValue := seed
					placeOpts.Seed = &seedValue
				}
				if startPos != "" {
					start, err := parsePoint(startPos)
					if err != nil {
						return nil, err
					}
					placeOpts.Start = &start
				}
				if len(positions) > 0 {
					points, err := parsePoints(positions)
					if err != nil {
						return nil, err
					}
					placeOpts.Positions = points
				}

				created, err := p.Place(placeOpts)
				if err != nil {
					return nil, err
				}
				createdIDs := make([]string, len(created))
				for i, obj := range created {
					createdIDs[i] = obj.ID()
				}

				data := map[string]any{
					"placed_object_ids": createdIDs,
					"spacing_type":      spacingTypeNorm,
					"seed":              nil,
				}
				if placeOpts.Seed != nil {
					data["seed"] = *placeOpts.Seed
				}

				return finalizeMutation(rc, p, store, inputPath, resolvedOutput,
					fmt.Sprintf("placed %d object(s)", len(createdIDs)),
					map[string]any{"placed": len(createdIDs), "object_ids": createdIDs},
					data,
					"patchctl.cli.place.data.v1")
			})
		},
	}

	cmd.Flags().StringVar(&inputPath, "in", "", "Input .maxpat path")
	cmd.Flags().StringVar(&outputPath, "out", "", "Output .maxpat path")
	cmd.Flags().StringArrayVar(&objects, "obj", nil, "Object text to place (repeatable)")
	cmd.Flags().BoolVar(&randPick, "randpick", false, "Pick objects at random from the --obj pool")
	cmd.Flags().IntVar(&numObjs, "num-objs", 1, "Number of objects to place with --randpick")
	cmd.Flags().Int64Var(&seed, "seed", 0, "Random seed for --randpick and random spacing")
	cmd.Flags().Float64SliceVar(&weights, "weight", nil, "Weight for --randpick object selection (repeatable)")
	cmd.Flags().StringVar(&spacingType, "spacing-type", patch.SpacingGrid, "Spacing type: grid|random|custom|vertical")
	cmd.Flags().Float64SliceVar(&spacing, "spacing", nil, "Spacing values (shape depends on spacing type)")
	cmd.Flags().StringArrayVar(&positions, "position", nil, "Custom position formatted as x,y (repeat for each object)")
	cmd.Flags().StringVar(&startPos, "start", "", "Starting position formatted as x,y")
	_ = cmd.MarkFlagRequired("in")
	_ = cmd.MarkFlagRequired("obj")

	return cmd
}
