// Package patch implements the Max patch document engine: a JSON patcher
// document with boxes (objects) and lines (patchcords), loaded and saved
// losslessly so keys this tool does not understand survive a round-trip.
package patch

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/patchctl-dev/patchctl/internal/cmderr"
)

// Port addresses one inlet or outlet of an object.
type Port struct {
	ObjectID string
	Index    int
}

// Connection is a directed patchcord from an outlet to an inlet.
type Connection struct {
	Source      Port
	Destination Port
}

// Object wraps the "box" map of a single document entry. The map is the
// source of truth; accessors parse the fields this tool cares about.
type Object struct {
	box map[string]any
}

// Patch is one loaded patcher document plus an id-keyed object index.
// The index preserves document order so listings and ambiguity reports are
// deterministic.
type Patch struct {
	doc   map[string]any
	order []string
	objs  map[string]*Object
	path  string
	log   io.Writer
}

// Load reads a patch document from disk.
func Load(path string, logger io.Writer) (*Patch, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, cmderr.Usagef("input patch not found: %s", path)
		}
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, cmderr.Usagef("input patch must be a file: %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, cmderr.Validationf("failed to load patch '%s': %v", path, err)
	}

	p, err := parse(data, logger)
	if err != nil {
		return nil, cmderr.Validationf("failed to load patch '%s': %v", path, err)
	}
	p.path = path
	return p, nil
}

// New creates a patch from the embedded default template or, when
// templatePath is non-empty, from a template file on disk.
func New(templatePath string, logger io.Writer) (*Patch, error) {
	data := defaultTemplate
	if templatePath != "" {
		fileData, err := os.ReadFile(templatePath)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, cmderr.Usagef("template not found: %s", templatePath)
			}
			return nil, cmderr.Validationf("failed to read template '%s': %v", templatePath, err)
		}
		data = fileData
	}

	p, err := parse(data, logger)
	if err != nil {
		return nil, cmderr.Validationf("invalid template '%s': %v", templatePath, err)
	}
	return p, nil
}

func parse(data []byte, logger io.Writer) (*Patch, error) {
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}

	if logger == nil {
		logger = io.Discard
	}
	p := &Patch{
		doc:  doc,
		objs: make(map[string]*Object),
		log:  logger,
	}
	if err := p.reindex(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Patch) reindex() error {
	p.order = p.order[:0]
	p.objs = make(map[string]*Object)

	boxes, err := p.boxes()
	if err != nil {
		return err
	}
	for i, entry := range boxes {
		box, ok := boxMap(entry)
		if !ok {
			return fmt.Errorf("boxes[%d] is not a box object", i)
		}
		id, _ := box["id"].(string)
		if id == "" {
			return fmt.Errorf("boxes[%d] has no id", i)
		}
		p.order = append(p.order, id)
		p.objs[id] = &Object{box: box}
	}
	return nil
}

func (p *Patch) patcher() (map[string]any, error) {
	patcher, ok := p.doc["patcher"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("missing top-level patcher object")
	}
	return patcher, nil
}

func (p *Patch) boxes() ([]any, error) {
	patcher, err := p.patcher()
	if err != nil {
		return nil, err
	}
	if patcher["boxes"] == nil {
		patcher["boxes"] = []any{}
	}
	boxes, ok := patcher["boxes"].([]any)
	if !ok {
		return nil, fmt.Errorf("patcher boxes must be an array")
	}
	return boxes, nil
}

func (p *Patch) lines() ([]any, error) {
	patcher, err := p.patcher()
	if err != nil {
		return nil, err
	}
	if patcher["lines"] == nil {
		patcher["lines"] = []any{}
	}
	lines, ok := patcher["lines"].([]any)
	if !ok {
		return nil, fmt.Errorf("patcher lines must be an array")
	}
	return lines, nil
}

func (p *Patch) setBoxes(boxes []any) error {
	patcher, err := p.patcher()
	if err != nil {
		return err
	}
	patcher["boxes"] = boxes
	return nil
}

func (p *Patch) setLines(lines []any) error {
	patcher, err := p.patcher()
	if err != nil {
		return err
	}
	patcher["lines"] = lines
	return nil
}

// Path reports the file the patch was loaded from, or "" for a new patch.
func (p *Patch) Path() string { return p.path }

// IDs returns object identifiers in document order.
func (p *Patch) IDs() []string {
	return append([]string(nil), p.order...)
}

// Get looks up an object by identifier.
func (p *Patch) Get(id string) (*Object, bool) {
	obj, ok := p.objs[id]
	return obj, ok
}

// NumObjects reports how many objects the patch holds.
func (p *Patch) NumObjects() int { return len(p.order) }

// MarshalDocument serializes the full document with two-space indentation.
func (p *Patch) MarshalDocument() ([]byte, error) {
	return json.MarshalIndent(p.doc, "", "  ")
}

// Save writes the document to path, creating parent directories as needed.
func (p *Patch) Save(path string) error {
	data, err := p.MarshalDocument()
	if err != nil {
		return cmderr.Validationf("failed to save patch '%s': %v", path, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return cmderr.Validationf("failed to save patch '%s': %v", path, err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return cmderr.Validationf("failed to save patch '%s': %v", path, err)
	}
	return nil
}

// nextObjectIndex returns the highest numeric suffix among machine-assigned
// obj-<n> identifiers; non-conforming identifiers are ignored.
func (p *Patch) nextObjectIndex() int {
	maxIndex := 0
	for _, id := range p.order {
		n, ok := objectIndex(id)
		if ok && n > maxIndex {
			maxIndex = n
		}
	}
	return maxIndex
}

func objectIndex(id string) (int, bool) {
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

// ID returns the object identifier.
func (o *Object) ID() string {
	id, _ := o.box["id"].(string)
	return id
}

// Name is the object's display name: the first token of a newobj's text,
// otherwise its maxclass.
func (o *Object) Name() string {
	class, _ := o.box["maxclass"].(string)
	if class == "newobj" {
		fields := strings.Fields(o.Text())
		if len(fields) > 0 {
			return fields[0]
		}
	}
	return class
}

// Text returns the free-form box text.
func (o *Object) Text() string {
	text, _ := o.box["text"].(string)
	return text
}

// Alias returns the optional varname, or "" when unset.
func (o *Object) Alias() string {
	alias, _ := o.box["varname"].(string)
	return alias
}

// Position returns the top-left corner of the box.
func (o *Object) Position() [2]float64 {
	rect, ok := o.box["patching_rect"].([]any)
	if !ok || len(rect) < 2 {
		return [2]float64{}
	}
	x, _ := asFloat(rect[0])
	y, _ := asFloat(rect[1])
	return [2]float64{x, y}
}

// NumInlets reports the inlet count recorded on the box.
func (o *Object) NumInlets() int {
	n, ok := asInt(o.box["numinlets"])
	if !ok {
		return 1
	}
	return n
}

// NumOutlets reports the outlet count recorded on the box.
func (o *Object) NumOutlets() int {
	n, ok := asInt(o.box["numoutlets"])
	if !ok {
		return 1
	}
	return n
}

// MaxClass returns the box class (newobj, message, toggle, ...).
func (o *Object) MaxClass() string {
	class, _ := o.box["maxclass"].(string)
	return class
}

func boxMap(entry any) (map[string]any, bool) {
	wrapper, ok := entry.(map[string]any)
	if !ok {
		return nil, false
	}
	box, ok := wrapper["box"].(map[string]any)
	return box, ok
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case float64:
		return int(n), true
	case json.Number:
		i, err := n.Int64()
		return int(i), err == nil
	default:
		return 0, false
	}
}
