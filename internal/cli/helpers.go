package cli

import (
	"sort"
	"strconv"
	"strings"

	"github.com/patchctl-dev/patchctl/internal/cmderr"
	"github.com/patchctl-dev/patchctl/internal/config"
	"github.com/patchctl-dev/patchctl/internal/patch"
	"github.com/patchctl-dev/patchctl/internal/report"
	"github.com/patchctl-dev/patchctl/internal/resolve"
)

// patchGraph adapts the concrete engine to the resolver's namespace
// interface.
type patchGraph struct {
	p *patch.Patch
}

func (g patchGraph) IDs() []string {
	return g.p.IDs()
}

func (g patchGraph) Find(id string) (resolve.Object, bool) {
	obj, ok := g.p.Get(id)
	if !ok {
		return nil, false
	}
	return obj, true
}

// parsePoint parses "x,y".
func parsePoint(text string) ([2]float64, error) {
	parts := strings.Split(text, ",")
	if len(parts) != 2 {
		return [2]float64{}, cmderr.Usagef("point '%s' must be formatted as x,y", text)
	}
	x, errX := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	y, errY := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if errX != nil || errY != nil {
		return [2]float64{}, cmderr.Usagef("point '%s' must contain numeric x,y values", text)
	}
	return [2]float64{x, y}, nil
}

func parsePoints(values []string) ([][2]float64, error) {
	points := make([][2]float64, 0, len(values))
	for _, value := range values {
		point, err := parsePoint(value)
		if err != nil {
			return nil, err
		}
		points = append(points, point)
	}
	return points, nil
}

// parseAttrPairs parses key=value items, coercing bools and numbers so
// replace attributes land in the document with their natural JSON type.
func parseAttrPairs(items []string) (map[string]any, error) {
	attrs := make(map[string]any, len(items))
	for _, item := range items {
		key, rawValue, found := strings.Cut(item, "=")
		if !found {
			return nil, cmderr.Usagef("attribute '%s' must be formatted as key=value", item)
		}
		key = strings.TrimSpace(key)
		if key == "" {
			return nil, cmderr.Usagef("attribute '%s' has an empty key", item)
		}
		attrs[key] = parseScalar(strings.TrimSpace(rawValue))
	}
	return attrs, nil
}

func parseScalar(value string) any {
	switch strings.ToLower(value) {
	case "true":
		return true
	case "false":
		return false
	}
	if strings.Contains(value, ".") {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
		return value
	}
	if n, err := strconv.Atoi(value); err == nil {
		return n
	}
	return value
}

// resolveOutputPath applies the --out / --in-place policy shared by every
// file-writing command.
func resolveOutputPath(inputPath, outputPath string, inPlace, requireOutput bool) (string, error) {
	if outputPath != "" {
		return outputPath, nil
	}
	if inputPath != "" && inPlace {
		return inputPath, nil
	}
	if requireOutput && inputPath == "" {
		return "", cmderr.Usagef("missing required --out")
	}
	if inputPath != "" {
		return "", cmderr.Usagef("missing --out (or pass --in-place to overwrite --in)")
	}
	return "", cmderr.Usagef("missing output path")
}

// sortedObjectIDs orders machine-assigned obj-<n> ids numerically before
// everything else; non-conforming ids sort lexicographically after them.
func sortedObjectIDs(p *patch.Patch) []string {
	ids := p.IDs()
	sort.SliceStable(ids, func(i, j int) bool {
		ni, iOK := objectSuffix(ids[i])
		nj, jOK := objectSuffix(ids[j])
		switch {
		case iOK && jOK:
			return ni < nj
		case iOK:
			return true
		case jOK:
			return false
		default:
			return ids[i] < ids[j]
		}
	})
	return ids
}

func objectSuffix(id string) (int, bool) {
	rest, ok := strings.CutPrefix(id, "obj-")
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(rest)
	if err != nil {
		return 0, false
	}
	return n, true
}

// finalizeMutation is the shared tail of every mutating command: run the
// health check, honor --strict, save, and assemble the payload.
func finalizeMutation(rc *runContext, p *patch.Patch, store *config.Store, inputPath, outputPath, message string, changes map[string]any, data any, dataSchema string) (*report.Payload, error) {
	health := patch.CollectHealth(p, store.PackagesPath())
	if err := patch.StrictGuard(rc.opts.Strict, health); err != nil {
		return nil, err
	}
	if err := p.Save(outputPath); err != nil {
		return nil, err
	}
	return &report.Payload{
		Message:    message,
		Input:      inputPath,
		Output:     outputPath,
		Changes:    changes,
		Warnings:   health.Warnings,
		Data:       data,
		DataSchema: dataSchema,
	}, nil
}
