package patch

import (
	"fmt"
	"math"
	"math/rand"
	"strings"
	"time"

	"github.com/patchctl-dev/patchctl/internal/cmderr"
)

// Spacing types accepted by Place.
const (
	SpacingGrid     = "grid"
	SpacingVertical = "vertical"
	SpacingRandom   = "random"
	SpacingCustom   = "custom"
)

// PlaceOptions describe one placement request. Texts are the object bodies;
// with RandPick enabled NumObjects instances are drawn from Texts using the
// optional Weights, otherwise each text is placed once.
type PlaceOptions struct {
	Texts       []string
	RandPick    bool
	NumObjects  int
	Seed        *int64
	Weights     []float64
	SpacingType string
	Spacing     []float64
	Positions   [][2]float64
	Start       *[2]float64
}

var defaultStart = [2]float64{40, 40}

// Place adds objects to the patch and returns them in placement order.
// Identifiers continue from the highest existing obj-<n> suffix.
func (p *Patch) Place(opts PlaceOptions) ([]*Object, error) {
	if len(opts.Texts) == 0 {
		return nil, cmderr.Usagef("place requires at least one object text")
	}

	rng := newRNG(opts.Seed)
	texts, err := chooseTexts(opts, rng)
	if err != nil {
		return nil, err
	}
	positions, err := layoutPositions(opts, len(texts), rng)
	if err != nil {
		return nil, err
	}

	boxes, err := p.boxes()
	if err != nil {
		return nil, cmderr.Validationf("%s", err.Error())
	}

	next := p.nextObjectIndex() + 1
	created := make([]*Object, 0, len(texts))
	for i, text := range texts {
		id := fmt.Sprintf("obj-%d", next)
		next++
		box, err := buildBox(id, text, positions[i])
		if err != nil {
			return nil, err
		}
		boxes = append(boxes, map[string]any{"box": box})
		obj := &Object{box: box}
		p.order = append(p.order, id)
		p.objs[id] = obj
		created = append(created, obj)
		fmt.Fprintf(p.log, "placed %s (%s) at [%g, %g]\n", id, obj.Name(), positions[i][0], positions[i][1])
	}

	if err := p.setBoxes(boxes); err != nil {
		return nil, cmderr.Validationf("%s", err.Error())
	}
	return created, nil
}

// Connect appends one patchline per connection. Port validity is the
// caller's responsibility (the resolver bounds-checks indices); the engine
// only requires that both objects exist.
func (p *Patch) Connect(conns ...Connection) error {
	lines, err := p.lines()
	if err != nil {
		return cmderr.Validationf("%s", err.Error())
	}

	for _, conn := range conns {
		if _, ok := p.objs[conn.Source.ObjectID]; !ok {
			return cmderr.Resolutionf("object not found: %s", conn.Source.ObjectID)
		}
		if _, ok := p.objs[conn.Destination.ObjectID]; !ok {
			return cmderr.Resolutionf("object not found: %s", conn.Destination.ObjectID)
		}
		lines = append(lines, map[string]any{
			"patchline": map[string]any{
				"source":      []any{conn.Source.ObjectID, conn.Source.Index},
				"destination": []any{conn.Destination.ObjectID, conn.Destination.Index},
			},
		})
		fmt.Fprintf(p.log, "connected %s:%d -> %s:%d\n",
			conn.Source.ObjectID, conn.Source.Index,
			conn.Destination.ObjectID, conn.Destination.Index)
	}

	return p.setLines(lines)
}

// Replace swaps an object's class and text in place, keeping its identifier,
// position, and varname. With retain, patchcords whose port indices survive
// the new port counts are kept; without it every cord touching the object is
// dropped. Extra attrs are merged into the box map.
func (p *Patch) Replace(id, text string, retain bool, attrs map[string]any) error {
	obj, ok := p.objs[id]
	if !ok {
		return cmderr.Resolutionf("object not found: %s", id)
	}

	spec, err := classify(text)
	if err != nil {
		return err
	}

	obj.box["maxclass"] = spec.maxClass
	if spec.hasText {
		obj.box["text"] = spec.text
	} else {
		delete(obj.box, "text")
	}
	obj.box["numinlets"] = spec.inlets
	obj.box["numoutlets"] = spec.outlets
	for key, value := range attrs {
		obj.box[key] = value
	}

	keep := func(src, dst Port) bool {
		if !retain {
			return src.ObjectID != id && dst.ObjectID != id
		}
		if src.ObjectID == id && src.Index >= spec.outlets {
			return false
		}
		if dst.ObjectID == id && dst.Index >= spec.inlets {
			return false
		}
		return true
	}
	if err := p.filterLines(keep); err != nil {
		return err
	}

	fmt.Fprintf(p.log, "replaced %s with %s\n", id, obj.Name())
	return nil
}

// Delete removes objects and/or individual patchcords. Deleting an object
// also removes every cord touching it.
func (p *Patch) Delete(ids []string, cords []Connection) error {
	doomed := make(map[string]bool, len(ids))
	for _, id := range ids {
		if _, ok := p.objs[id]; !ok {
			return cmderr.Resolutionf("object not found: %s", id)
		}
		doomed[id] = true
	}

	boxes, err := p.boxes()
	if err != nil {
		return cmderr.Validationf("%s", err.Error())
	}
	kept := boxes[:0]
	for _, entry := range boxes {
		box, ok := boxMap(entry)
		if ok {
			if id, _ := box["id"].(string); doomed[id] {
				fmt.Fprintf(p.log, "deleted %s\n", id)
				continue
			}
		}
		kept = append(kept, entry)
	}
	if err := p.setBoxes(kept); err != nil {
		return cmderr.Validationf("%s", err.Error())
	}

	keep := func(src, dst Port) bool {
		if doomed[src.ObjectID] || doomed[dst.ObjectID] {
			return false
		}
		for _, cord := range cords {
			if src == cord.Source && dst == cord.Destination {
				return false
			}
		}
		return true
	}
	if err := p.filterLines(keep); err != nil {
		return err
	}

	return p.reindex()
}

func (p *Patch) filterLines(keep func(src, dst Port) bool) error {
	lines, err := p.lines()
	if err != nil {
		return cmderr.Validationf("%s", err.Error())
	}
	kept := lines[:0]
	for _, entry := range lines {
		src, dst, ok := lineEndpoints(entry)
		if ok && !keep(src, dst) {
			continue
		}
		kept = append(kept, entry)
	}
	return p.setLines(kept)
}

func lineEndpoints(entry any) (Port, Port, bool) {
	wrapper, ok := entry.(map[string]any)
	if !ok {
		return Port{}, Port{}, false
	}
	line, ok := wrapper["patchline"].(map[string]any)
	if !ok {
		return Port{}, Port{}, false
	}
	src, ok := asPort(line["source"])
	if !ok {
		return Port{}, Port{}, false
	}
	dst, ok := asPort(line["destination"])
	if !ok {
		return Port{}, Port{}, false
	}
	return src, dst, true
}

func asPort(v any) (Port, bool) {
	pair, ok := v.([]any)
	if !ok || len(pair) < 2 {
		return Port{}, false
	}
	id, ok := pair[0].(string)
	if !ok {
		return Port{}, false
	}
	index, ok := asInt(pair[1])
	if !ok {
		return Port{}, false
	}
	return Port{ObjectID: id, Index: index}, true
}

type boxSpec struct {
	maxClass string
	text     string
	hasText  bool
	inlets   int
	outlets  int
}

func classify(text string) (boxSpec, error) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return boxSpec{}, cmderr.Usagef("object text cannot be empty")
	}

	first := fields[0]
	if info, ok := uiClasses[first]; ok {
		spec := boxSpec{maxClass: first, inlets: info.Inlets, outlets: info.Outlets}
		if first == "message" || first == "comment" {
			spec.maxClass = first
			spec.text = strings.TrimSpace(strings.TrimPrefix(text, first))
			spec.hasText = true
		}
		return spec, nil
	}

	spec := boxSpec{maxClass: "newobj", text: strings.TrimSpace(text), hasText: true, inlets: 1, outlets: 1}
	if info, ok := lookupKnown(first); ok {
		spec.inlets = info.Inlets
		spec.outlets = info.Outlets
	}
	return spec, nil
}

func buildBox(id, text string, pos [2]float64) (map[string]any, error) {
	spec, err := classify(text)
	if err != nil {
		return nil, err
	}

	width := math.Max(40, float64(len(spec.text))*7+16)
	box := map[string]any{
		"id":            id,
		"maxclass":      spec.maxClass,
		"numinlets":     spec.inlets,
		"numoutlets":    spec.outlets,
		"patching_rect": []any{pos[0], pos[1], width, 22.0},
	}
	if spec.hasText {
		box["text"] = spec.text
		box["fontname"] = "Arial"
		box["fontsize"] = 12.0
	}
	return box, nil
}

func chooseTexts(opts PlaceOptions, rng *rand.Rand) ([]string, error) {
	if !opts.RandPick {
		if len(opts.Weights) > 0 {
			return nil, cmderr.Usagef("--weight can only be used with --randpick")
		}
		return opts.Texts, nil
	}

	count := opts.NumObjects
	if count <= 0 {
		count = 1
	}
	if len(opts.Weights) > 0 && len(opts.Weights) != len(opts.Texts) {
		return nil, cmderr.Usagef("--weight must be given once per --obj (%d weight(s) for %d object(s))",
			len(opts.Weights), len(opts.Texts))
	}

	picked := make([]string, count)
	for i := range picked {
		picked[i] = opts.Texts[weightedIndex(rng, len(opts.Texts), opts.Weights)]
	}
	return picked, nil
}

func weightedIndex(rng *rand.Rand, n int, weights []float64) int {
	if len(weights) == 0 {
		return rng.Intn(n)
	}
	total := 0.0
	for _, w := range weights {
		total += w
	}
	if total <= 0 {
		return rng.Intn(n)
	}
	target := rng.Float64() * total
	for i, w := range weights {
		target -= w
		if target < 0 {
			return i
		}
	}
	return n - 1
}

func layoutPositions(opts PlaceOptions, count int, rng *rand.Rand) ([][2]float64, error) {
	start := defaultStart
	if opts.Start != nil {
		start = *opts.Start
	}

	positions := make([][2]float64, count)
	switch opts.SpacingType {
	case SpacingGrid, "":
		spacing := opts.Spacing
		if len(spacing) == 0 {
			spacing = []float64{80, 80}
		}
		if len(spacing) != 2 {
			return nil, cmderr.Usagef("grid spacing requires exactly 2 values")
		}
		cols := int(math.Ceil(math.Sqrt(float64(count))))
		for i := range positions {
			positions[i] = [2]float64{
				start[0] + spacing[0]*float64(i%cols),
				start[1] + spacing[1]*float64(i/cols),
			}
		}
	case SpacingVertical:
		spacing := opts.Spacing
		if len(spacing) == 0 {
			spacing = []float64{80}
		}
		if len(spacing) != 1 {
			return nil, cmderr.Usagef("vertical spacing requires exactly 1 value")
		}
		for i := range positions {
			positions[i] = [2]float64{start[0], start[1] + spacing[0]*float64(i)}
		}
	case SpacingRandom:
		if len(opts.Spacing) > 0 {
			return nil, cmderr.Usagef("random spacing type does not accept --spacing")
		}
		for i := range positions {
			positions[i] = [2]float64{
				start[0] + rng.Float64()*400,
				start[1] + rng.Float64()*300,
			}
		}
	case SpacingCustom:
		if len(opts.Spacing) > 0 {
			return nil, cmderr.Usagef("custom spacing type does not accept --spacing")
		}
		if len(opts.Positions) == 0 {
			return nil, cmderr.Usagef("custom spacing type requires at least one --position x,y")
		}
		if len(opts.Positions) != count {
			return nil, cmderr.Usagef("custom spacing requires one --position per placed object (%d position(s) for %d object(s))",
				len(opts.Positions), count)
		}
		copy(positions, opts.Positions)
	default:
		return nil, cmderr.Usagef("unsupported spacing type: %s", opts.SpacingType)
	}

	return positions, nil
}

func newRNG(seed *int64) *rand.Rand {
	if seed != nil {
		return rand.New(rand.NewSource(*seed))
	}
	return rand.New(rand.NewSource(time.Now().UnixNano()))
}
