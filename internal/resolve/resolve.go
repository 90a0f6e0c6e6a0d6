// Package resolve maps user-facing selectors, endpoints, and edge specs to
// concrete objects and ports in a patch.
//
// Selector rules:
//   - an exact identifier match always wins, even over an equal alias
//   - `@alias:<name>` forces alias lookup
//   - any other token that does not look machine-assigned (`obj-` prefix)
//     is treated as an alias
package resolve

import (
	"strconv"
	"strings"

	"github.com/patchctl-dev/patchctl/internal/cmderr"
)

// Object is the slice of the patch engine the resolver needs.
type Object interface {
	Alias() string
	NumInlets() int
	NumOutlets() int
}

// Graph is the object namespace selectors resolve against. IDs must iterate
// in a stable document order so ambiguity reports are deterministic.
type Graph interface {
	IDs() []string
	Find(id string) (Object, bool)
}

// Edge is a parsed `<src>:<outlet>-><dst>:<inlet>` spec, not yet resolved.
type Edge struct {
	SrcSelector string
	SrcIndex    int
	DstSelector string
	DstIndex    int
}

// Selector resolves a selector to exactly one object.
func Selector(g Graph, selector string) (string, Object, error) {
	selector = strings.TrimSpace(selector)
	if selector == "" {
		return "", nil, cmderr.Usagef("selector cannot be empty")
	}

	if obj, ok := g.Find(selector); ok {
		return selector, obj, nil
	}

	alias := ""
	haveAlias := false
	if rest, ok := strings.CutPrefix(selector, "@alias:"); ok {
		alias = strings.TrimSpace(rest)
		if alias == "" {
			return "", nil, cmderr.Usagef("alias selector must be formatted as @alias:<name>")
		}
		haveAlias = true
	} else if !strings.HasPrefix(selector, "obj-") {
		alias = selector
		haveAlias = true
	}

	if !haveAlias {
		return "", nil, cmderr.Resolutionf("object not found: %s", selector)
	}

	var matchIDs []string
	var matched Object
	for _, id := range g.IDs() {
		obj, ok := g.Find(id)
		if !ok {
			continue
		}
		if obj.Alias() == alias {
			matchIDs = append(matchIDs, id)
			matched = obj
		}
	}

	if len(matchIDs) == 0 {
		return "", nil, cmderr.Resolutionf("alias not found: %s", alias)
	}
	if len(matchIDs) > 1 {
		return "", nil, cmderr.Resolutionf("alias '%s' is ambiguous (matches: %s)",
			alias, strings.Join(matchIDs, ", "))
	}

	return matchIDs[0], matched, nil
}

// Endpoint parses `<selector>:<index>`. The split is on the last colon so
// selectors may themselves contain colons (the @alias form).
func Endpoint(endpoint string) (string, int, error) {
	cut := strings.LastIndex(endpoint, ":")
	if cut < 0 {
		return "", 0, cmderr.Usagef("endpoint '%s' must be formatted as <selector>:<index>", endpoint)
	}

	selector := strings.TrimSpace(endpoint[:cut])
	rawIndex := strings.TrimSpace(endpoint[cut+1:])

	if selector == "" {
		return "", 0, cmderr.Usagef("endpoint '%s' has an empty selector", endpoint)
	}

	index, err := strconv.Atoi(rawIndex)
	if err != nil {
		return "", 0, cmderr.Usagef("endpoint '%s' index must be an integer", endpoint)
	}
	if index < 0 {
		return "", 0, cmderr.Usagef("endpoint '%s' index must be >= 0", endpoint)
	}

	return selector, index, nil
}

// ParseEdge parses `<selector>:<outlet>-><selector>:<inlet>`, splitting on
// the first arrow token.
func ParseEdge(edge string) (Edge, error) {
	src, dst, found := strings.Cut(edge, "->")
	if !found {
		return Edge{}, cmderr.Usagef("edge '%s' must be formatted as <src>:<outlet>-><dst>:<inlet>", edge)
	}

	srcSelector, srcIndex, err := Endpoint(src)
	if err != nil {
		return Edge{}, err
	}
	dstSelector, dstIndex, err := Endpoint(dst)
	if err != nil {
		return Edge{}, err
	}

	return Edge{
		SrcSelector: srcSelector,
		SrcIndex:    srcIndex,
		DstSelector: dstSelector,
		DstIndex:    dstIndex,
	}, nil
}

// Outlet resolves a selector and bounds-checks an outlet index.
func Outlet(g Graph, selector string, index int) (string, error) {
	id, obj, err := Selector(g, selector)
	if err != nil {
		return "", err
	}
	if index >= obj.NumOutlets() {
		return "", cmderr.Resolutionf("outlet index %d out of range for %s (%d outlet(s))",
			index, id, obj.NumOutlets())
	}
	return id, nil
}

// Inlet resolves a selector and bounds-checks an inlet index.
func Inlet(g Graph, selector string, index int) (string, error) {
	id, obj, err := Selector(g, selector)
	if err != nil {
		return "", err
	}
	if index >= obj.NumInlets() {
		return "", cmderr.Resolutionf("inlet index %d out of range for %s (%d inlet(s))",
			index, id, obj.NumInlets())
	}
	return id, nil
}
