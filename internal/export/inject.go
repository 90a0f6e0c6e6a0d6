package export

import (
	_ "embed"
	"encoding/json"
	"strings"

	"github.com/patchctl-dev/patchctl/internal/cmderr"
)

// helperTools is the instrumented write-back fragment merged into the
// validation copy: a loadbang chain that sends `write "<path>"` to
// thispatcher shortly after the document loads, then closes the window.
//
//go:embed helper_tools.json
var helperTools []byte

type helperFragment struct {
	Boxes []any `json:"boxes"`
	Lines []any `json:"lines"`
}

// injectValidationHelper merges the write-back helper into a raw patch
// document. Helper ids are remapped into the target's namespace, every
// helper box is hidden, and the literal `write` message is rewritten to
// target validationPath. The original document shape is validated before
// anything is appended.
func injectValidationHelper(doc map[string]any, validationPath string) error {
	patcher, ok := doc["patcher"].(map[string]any)
	if !ok {
		return cmderr.Validationf("invalid patch format: missing top-level patcher dictionary")
	}

	if patcher["boxes"] == nil {
		patcher["boxes"] = []any{}
	}
	if patcher["lines"] == nil {
		patcher["lines"] = []any{}
	}
	boxes, boxesOK := patcher["boxes"].([]any)
	lines, linesOK := patcher["lines"].([]any)
	if !boxesOK || !linesOK {
		return cmderr.Validationf("invalid patch format: patcher boxes/lines must be arrays")
	}

	var fragment helperFragment
	if err := json.Unmarshal(helperTools, &fragment); err != nil {
		return cmderr.Validationf("failed to load helper tools: %v", err)
	}

	idMap, err := buildHelperIDMap(boxes, fragment.Boxes)
	if err != nil {
		return err
	}

	for _, helperBox := range fragment.Boxes {
		cloned := deepCopy(helperBox)
		box, ok := cloned.(map[string]any)["box"].(map[string]any)
		if !ok {
			return cmderr.Validationf("invalid helper box while constructing validation patch")
		}
		if originalID, ok := box["id"].(string); ok {
			if mapped, ok := idMap[originalID]; ok {
				box["id"] = mapped
			}
		}
		box["hidden"] = 1
		if text, _ := box["text"].(string); text == "write" {
			box["text"] = `write "` + escapePath(validationPath) + `"`
		}
		boxes = append(boxes, cloned)
	}

	for _, helperLine := range fragment.Lines {
		cloned := deepCopy(helperLine)
		if line, ok := cloned.(map[string]any)["patchline"].(map[string]any); ok {
			remapEndpoint(line, "source", idMap)
			remapEndpoint(line, "destination", idMap)
		}
		lines = append(lines, cloned)
	}

	patcher["boxes"] = boxes
	patcher["lines"] = lines
	return nil
}

func remapEndpoint(line map[string]any, key string, idMap map[string]string) {
	endpoint, ok := line[key].([]any)
	if !ok || len(endpoint) == 0 {
		return
	}
	if id, ok := endpoint[0].(string); ok {
		if mapped, ok := idMap[id]; ok {
			endpoint[0] = mapped
		}
	}
}

func escapePath(path string) string {
	escaped := strings.ReplaceAll(path, `\`, `\\`)
	return strings.ReplaceAll(escaped, `"`, `\"`)
}

func deepCopy(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		copied := make(map[string]any, len(typed))
		for key, entry := range typed {
			copied[key] = deepCopy(entry)
		}
		return copied
	case []any:
		copied := make([]any, len(typed))
		for i, entry := range typed {
			copied[i] = deepCopy(entry)
		}
		return copied
	default:
		return typed
	}
}
