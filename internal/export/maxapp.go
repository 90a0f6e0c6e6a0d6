package export

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/patchctl-dev/patchctl/internal/cmderr"
)

const defaultMaxAppPath = "/Applications/Max.app"

// resolveMaxApp picks the Max application bundle to launch: the configured
// path first, then the stock install location. A candidate that points
// inside a bundle (e.g. the Contents/MacOS binary) is normalized up to the
// nearest .app ancestor; it qualifies only if that bundle exists on disk.
func resolveMaxApp(configured, fallback string) (string, error) {
	if fallback == "" {
		fallback = defaultMaxAppPath
	}
	candidates := []string{strings.TrimSpace(configured), fallback}

	checked := make([]string, 0, len(candidates))
	for _, candidate := range candidates {
		normalized := normalizeAppCandidate(candidate)
		if normalized == "" {
			checked = append(checked, candidate)
			continue
		}
		checked = append(checked, normalized)
		if filepath.Ext(normalized) == ".app" && pathExists(normalized) {
			return normalized, nil
		}
	}

	return "", cmderr.Validationf(
		"Max.app not found. Set it with `patchctl config set max_path /Applications/Max.app`. Checked: %s",
		strings.Join(checked, ", "))
}

// normalizeAppCandidate expands ~ and walks ancestor directories until one
// looks like an application bundle. Candidates with no .app ancestor come
// back cleaned but unchanged.
func normalizeAppCandidate(path string) string {
	if path == "" {
		return ""
	}
	if strings.HasPrefix(path, "~") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}

	candidate := filepath.Clean(path)
	for current := candidate; ; {
		if filepath.Ext(current) == ".app" {
			return current
		}
		parent := filepath.Dir(current)
		if parent == current {
			break
		}
		current = parent
	}
	return candidate
}

func pathExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
