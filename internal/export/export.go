// Package export writes `.amxd` documents and optionally validates them by
// driving the external Max editor through its file-open mechanism: the
// export is cloned, instrumented with a hidden write-back helper, opened in
// the editor, and polled for the helper's write under a deadline. The
// delivered export is never touched by the instrumentation.
package export

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/patchctl-dev/patchctl/internal/cmderr"
	"github.com/patchctl-dev/patchctl/internal/config"
	"github.com/patchctl-dev/patchctl/internal/patch"
)

const defaultPollInterval = 200 * time.Millisecond

// Exporter runs export-amxd invocations. Launcher and Interval have working
// defaults; tests override them.
type Exporter struct {
	Config   *config.Store
	Launcher Launcher
	Interval time.Duration
}

// Options for one export.
type Options struct {
	OutputPath string
	Overwrite  bool
	Validate   bool
	Timeout    *float64
}

// Export writes the patch to the target path and optionally validates the
// result through the external editor. The returned map is the command's
// data payload.
func (e *Exporter) Export(p *patch.Patch, opts Options) (map[string]any, error) {
	if strings.ToLower(filepath.Ext(opts.OutputPath)) != ".amxd" {
		return nil, cmderr.Usagef("output path must use the .amxd extension")
	}

	if _, err := os.Stat(opts.OutputPath); err == nil && !opts.Overwrite {
		return nil, cmderr.Usagef("output file already exists: %s (pass --overwrite to replace)", opts.OutputPath)
	}

	data, err := p.MarshalDocument()
	if err != nil {
		return nil, cmderr.Validationf("failed to write patch JSON: %s: %v", opts.OutputPath, err)
	}
	if err := os.MkdirAll(filepath.Dir(opts.OutputPath), 0755); err != nil {
		return nil, cmderr.Validationf("failed to write patch JSON: %s: %v", opts.OutputPath, err)
	}
	if err := os.WriteFile(opts.OutputPath, append(data, '\n'), 0644); err != nil {
		return nil, cmderr.Validationf("failed to write patch JSON: %s: %v", opts.OutputPath, err)
	}

	var timeoutSeconds *float64
	if opts.Validate || opts.Timeout != nil {
		resolved, err := e.resolveTimeout(opts.Timeout)
		if err != nil {
			return nil, err
		}
		timeoutSeconds = &resolved
	}

	var maxAppPath string
	validated := false
	if opts.Validate {
		maxAppPath, err = resolveMaxApp(e.Config.MaxPath(), "")
		if err != nil {
			return nil, err
		}
		if err := e.runValidation(opts.OutputPath, maxAppPath, *timeoutSeconds); err != nil {
			return nil, err
		}
		validated = true
	}

	result := map[string]any{
		"validated":            validated,
		"validation_requested": opts.Validate,
		"max_app_path":         nil,
		"timeout_seconds":      nil,
		"output_extension":     ".amxd",
	}
	if maxAppPath != "" {
		result["max_app_path"] = maxAppPath
	}
	if timeoutSeconds != nil {
		result["timeout_seconds"] = *timeoutSeconds
	}
	return result, nil
}

// resolveTimeout takes the explicit flag value or falls back to the
// configured wait time. The timeout must be strictly positive.
func (e *Exporter) resolveTimeout(timeout *float64) (float64, error) {
	resolved := 0.0
	if timeout != nil {
		resolved = *timeout
	} else {
		configured, err := e.Config.WaitTimeStrict()
		if err != nil {
			return 0, err
		}
		resolved = configured
	}

	if resolved <= 0 {
		return 0, cmderr.Usagef("timeout must be greater than 0 seconds")
	}
	return resolved, nil
}

// runValidation drives the editor through the full validate sequence:
// open the export, clone it to a temporary validation copy, inject the
// write-back helper, open the copy, and poll its modification time until
// the helper writes or the deadline passes. Temporary files are removed on
// every path.
func (e *Exporter) runValidation(amxdPath, maxAppPath string, timeoutSeconds float64) error {
	launcher := e.Launcher
	if launcher == nil {
		platform, err := platformLauncher()
		if err != nil {
			return err
		}
		launcher = platform
	}

	if err := e.openInMax(launcher, maxAppPath, amxdPath, ".amxd"); err != nil {
		return err
	}

	tmpDir, err := os.MkdirTemp("", "patchctl-amxd-validate-")
	if err != nil {
		return cmderr.Validationf("failed to create validation directory: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	stem := strings.TrimSuffix(filepath.Base(amxdPath), filepath.Ext(amxdPath))
	validationPath := filepath.Join(tmpDir, stem+".validation.maxpat")

	doc, err := loadPatchJSON(amxdPath)
	if err != nil {
		return err
	}
	if err := writePatchJSON(doc, validationPath); err != nil {
		return err
	}
	if err := prepareValidationFile(validationPath); err != nil {
		return err
	}

	startInfo, err := os.Stat(validationPath)
	if err != nil {
		return cmderr.Validationf("failed to stat validation file: %v", err)
	}
	startMtime := startInfo.ModTime()

	if err := e.openInMax(launcher, maxAppPath, validationPath, "validation .maxpat"); err != nil {
		return err
	}

	interval := e.Interval
	if interval <= 0 {
		interval = defaultPollInterval
	}
	deadline := time.Now().Add(time.Duration(timeoutSeconds * float64(time.Second)))

	for time.Now().Before(deadline) {
		time.Sleep(interval)

		info, err := os.Stat(validationPath)
		if err != nil {
			if os.IsNotExist(err) {
				return cmderr.Validationf("validation file disappeared during Max validation")
			}
			return cmderr.Validationf("failed to stat validation file: %v", err)
		}

		if info.ModTime().After(startMtime) {
			// The helper wrote the file back; confirm it is still valid JSON.
			if _, err := loadPatchJSON(validationPath); err != nil {
				return err
			}
			return nil
		}
	}

	return cmderr.Validationf("timed out waiting for Max to write validation file within %.1fs", timeoutSeconds)
}

func (e *Exporter) openInMax(launcher Launcher, maxAppPath, filePath, context string) error {
	err := launcher.Open(maxAppPath, filePath)
	if err == nil {
		return nil
	}

	var launch *launchError
	if errors.As(err, &launch) {
		return cmderr.Validationf("failed to launch Max for %s", context).
			WithDetails(map[string]any{"command": launch.Command, "stderr": launch.Detail}).
			WithCause(err)
	}
	return cmderr.Validationf("failed to launch Max for %s: %v", context, err).WithCause(err)
}

// prepareValidationFile loads the clone, injects the helper, and writes it
// back in place.
func prepareValidationFile(validationPath string) error {
	doc, err := loadPatchJSON(validationPath)
	if err != nil {
		return err
	}
	if err := injectValidationHelper(doc, validationPath); err != nil {
		return err
	}
	return writePatchJSON(doc, validationPath)
}

func loadPatchJSON(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, err
		}
		return nil, cmderr.Validationf("invalid patch JSON: %s: %v", path, err)
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, cmderr.Validationf("invalid patch JSON: %s: %v", path, err)
	}
	return doc, nil
}

func writePatchJSON(doc map[string]any, path string) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return cmderr.Validationf("failed to write patch JSON: %s: %v", path, err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return cmderr.Validationf("failed to write patch JSON: %s: %v", path, err)
	}
	return nil
}
