package patch

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/patchctl-dev/patchctl/internal/cmderr"
)

// ObjectSummary is the wire form of one object used in listings, health
// reports, and command data payloads.
type ObjectSummary struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Text       string     `json:"text"`
	Alias      string     `json:"alias,omitempty"`
	Position   [2]float64 `json:"position"`
	NumInlets  int        `json:"num_inlets"`
	NumOutlets int        `json:"num_outlets"`
}

// Summarize builds the wire form of one object.
func Summarize(obj *Object) ObjectSummary {
	return ObjectSummary{
		ID:         obj.ID(),
		Name:       obj.Name(),
		Text:       obj.Text(),
		Alias:      obj.Alias(),
		Position:   obj.Position(),
		NumInlets:  obj.NumInlets(),
		NumOutlets: obj.NumOutlets(),
	}
}

// JSInfo splits js objects by whether their script file resolves on disk.
type JSInfo struct {
	Linked   []ObjectSummary `json:"linked"`
	Unlinked []ObjectSummary `json:"unlinked"`
}

// Health is the structural check result for one patch.
type Health struct {
	Unknowns     []ObjectSummary `json:"unknowns"`
	JS           JSInfo          `json:"js"`
	Abstractions []ObjectSummary `json:"abstractions"`
	Warnings     []string        `json:"warnings"`
}

// CollectHealth inspects the patch for unknown objects, js script linkage,
// and abstractions found under packagesPath. Warnings summarize each
// non-empty category.
func CollectHealth(p *Patch, packagesPath string) *Health {
	h := &Health{
		Unknowns:     []ObjectSummary{},
		JS:           JSInfo{Linked: []ObjectSummary{}, Unlinked: []ObjectSummary{}},
		Abstractions: []ObjectSummary{},
		Warnings:     []string{},
	}

	patchDir := ""
	if p.path != "" {
		patchDir = filepath.Dir(p.path)
	}

	for _, id := range p.order {
		obj := p.objs[id]
		if obj.MaxClass() != "newobj" {
			continue
		}
		name := obj.Name()
		switch {
		case name == "js":
			summary := Summarize(obj)
			if jsLinked(obj, patchDir, packagesPath) {
				h.JS.Linked = append(h.JS.Linked, summary)
			} else {
				h.JS.Unlinked = append(h.JS.Unlinked, summary)
			}
		case isKnownName(name):
			// builtin, nothing to report
		case isAbstraction(name, packagesPath):
			h.Abstractions = append(h.Abstractions, Summarize(obj))
		default:
			h.Unknowns = append(h.Unknowns, Summarize(obj))
		}
	}

	if len(h.Unknowns) > 0 {
		h.Warnings = append(h.Warnings, fmt.Sprintf("%d unknown object(s)", len(h.Unknowns)))
	}
	if len(h.JS.Unlinked) > 0 {
		h.Warnings = append(h.Warnings, fmt.Sprintf("%d unlinked js object(s)", len(h.JS.Unlinked)))
	}
	if len(h.Abstractions) > 0 {
		h.Warnings = append(h.Warnings, fmt.Sprintf("%d abstraction object(s)", len(h.Abstractions)))
	}

	return h
}

// StrictGuard converts health warnings into a hard failure under --strict.
func StrictGuard(strict bool, h *Health) error {
	if !strict || len(h.Warnings) == 0 {
		return nil
	}
	return cmderr.Validationf("strict mode failed: %s", strings.Join(h.Warnings, "; ")).
		WithDetails(map[string]any{"warnings": h.Warnings})
}

func jsLinked(obj *Object, patchDir, packagesPath string) bool {
	fields := strings.Fields(obj.Text())
	if len(fields) < 2 {
		return false
	}
	script := fields[1]
	if patchDir != "" && fileExists(filepath.Join(patchDir, script)) {
		return true
	}
	return packagesPath != "" && fileExists(filepath.Join(packagesPath, script))
}

func isAbstraction(name, packagesPath string) bool {
	if packagesPath == "" {
		return false
	}
	direct := filepath.Join(packagesPath, name+".maxpat")
	if fileExists(direct) {
		return true
	}
	matches, err := filepath.Glob(filepath.Join(packagesPath, "*", name+".maxpat"))
	return err == nil && len(matches) > 0
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
