package export

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/patchctl-dev/patchctl/internal/cmderr"
)

// buildHelperIDMap computes a collision-free remap from every helper box id
// to a fresh obj-<n> id. Numbering starts one above the highest numeric
// suffix already present among the target patch's obj-* ids and follows the
// helper fragment's own order, so merged boxes can never collide with
// existing ones.
func buildHelperIDMap(boxes, helperBoxes []any) (map[string]string, error) {
	next := nextObjectIndex(boxes) + 1
	idMap := make(map[string]string, len(helperBoxes))

	for _, entry := range helperBoxes {
		helperID, ok := entryID(entry)
		if !ok {
			return nil, cmderr.Validationf("invalid helper box id while constructing validation patch")
		}
		idMap[helperID] = fmt.Sprintf("obj-%d", next)
		next++
	}

	return idMap, nil
}

// nextObjectIndex finds the highest obj-<n> suffix in a raw boxes array.
// Non-conforming ids are ignored.
func nextObjectIndex(boxes []any) int {
	maxIndex := 0
	for _, entry := range boxes {
		id, ok := entryID(entry)
		if !ok {
			continue
		}
		rest, ok := strings.CutPrefix(id, "obj-")
		if !ok {
			continue
		}
		n, err := strconv.Atoi(rest)
		if err != nil {
			continue
		}
		if n > maxIndex {
			maxIndex = n
		}
	}
	return maxIndex
}

func entryID(entry any) (string, bool) {
	wrapper, ok := entry.(map[string]any)
	if !ok {
		return "", false
	}
	box, ok := wrapper["box"].(map[string]any)
	if !ok {
		return "", false
	}
	id, ok := box["id"].(string)
	return id, ok
}
