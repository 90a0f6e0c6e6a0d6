package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/patchctl-dev/patchctl/internal/config"
	"github.com/patchctl-dev/patchctl/internal/patch"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCommand("test")
	var buf bytes.Buffer
	root.SetOut(&buf)
	root.SetErr(&buf)
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}

func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := runCLI(t, args...)
	if err != nil {
		t.Fatalf("command %v failed: %v\noutput: %s", args, err, out)
	}
	return out
}

func decodeEnvelope(t *testing.T, out string) map[string]any {
	t.Helper()
	var envelope map[string]any
	if err := json.Unmarshal([]byte(out), &envelope); err != nil {
		t.Fatalf("output is not a JSON envelope: %v\noutput: %s", err, out)
	}
	return envelope
}

func isolateConfig(t *testing.T) {
	t.Helper()
	t.Setenv(config.EnvConfigDir, t.TempDir())
}

func TestBuildPatchEndToEnd(t *testing.T) {
	isolateConfig(t)
	path := filepath.Join(t.TempDir(), "demo.maxpat")

	out := mustRun(t, "new", "--out", path)
	if !strings.Contains(out, "created patch") {
		t.Fatalf("unexpected new output: %s", out)
	}

	out = mustRun(t, "place", "--in", path, "--in-place",
		"--obj", "cycle~ 440", "--obj", "ezdac~")
	if !strings.Contains(out, "placed 2 object(s)") {
		t.Fatalf("unexpected place output: %s", out)
	}

	out = mustRun(t, "connect", "--in", path, "--in-place",
		"--edge", "obj-1:0->obj-2:0")
	if !strings.Contains(out, "connected 1 edge(s)") {
		t.Fatalf("unexpected connect output: %s", out)
	}

	envelope := decodeEnvelope(t, mustRun(t, "list-objects", "--json", "--in", path))
	if envelope["ok"] != true {
		t.Fatalf("list-objects failed: %v", envelope)
	}
	data := envelope["data"].(map[string]any)
	objects := data["objects"].([]any)
	if len(objects) != 2 {
		t.Fatalf("expected 2 objects, got %d", len(objects))
	}
	first := objects[0].(map[string]any)
	second := objects[1].(map[string]any)
	if first["name"] != "cycle~" || second["name"] != "ezdac~" {
		t.Fatalf("unexpected object names: %v, %v", first["name"], second["name"])
	}
	if first["id"] != "obj-1" {
		t.Fatalf("expected numeric id ordering, got %v first", first["id"])
	}

	envelope = decodeEnvelope(t, mustRun(t, "check", "--json", "--in", path))
	if envelope["ok"] != true {
		t.Fatalf("check failed: %v", envelope)
	}
	if warnings := envelope["warnings"].([]any); len(warnings) != 0 {
		t.Fatalf("clean patch should have no warnings: %v", warnings)
	}

	// The saved document holds the patchline.
	p, err := patch.Load(path, nil)
	if err != nil {
		t.Fatalf("saved patch unreadable: %v", err)
	}
	if p.NumObjects() != 2 {
		t.Fatalf("saved patch has %d objects", p.NumObjects())
	}
}

func TestJSONEnvelopeShape(t *testing.T) {
	isolateConfig(t)
	path := filepath.Join(t.TempDir(), "demo.maxpat")

	envelope := decodeEnvelope(t, mustRun(t, "new", "--json", "--out", path))

	if envelope["ok"] != true {
		t.Fatalf("expected ok=true: %v", envelope)
	}
	if envelope["command"] != "new" {
		t.Fatalf("unexpected command: %v", envelope["command"])
	}
	if envelope["schema_version"] != "1.0.0" {
		t.Fatalf("unexpected schema_version: %v", envelope["schema_version"])
	}
	if envelope["schema"] != "patchctl.cli.new.success.v1" {
		t.Fatalf("unexpected schema: %v", envelope["schema"])
	}
	if envelope["data_schema"] != "patchctl.cli.new.data.v1" {
		t.Fatalf("unexpected data_schema: %v", envelope["data_schema"])
	}
	if envelope["output"] != path {
		t.Fatalf("unexpected output: %v", envelope["output"])
	}
	if envelope["input"] != nil {
		t.Fatalf("new takes no input: %v", envelope["input"])
	}
	if envelope["generated_at"] == "" {
		t.Fatal("missing generated_at")
	}
	if errs := envelope["errors"].([]any); len(errs) != 0 {
		t.Fatalf("success envelope must have empty errors: %v", errs)
	}
}

func TestErrorEnvelopeAndExitCodes(t *testing.T) {
	isolateConfig(t)
	path := filepath.Join(t.TempDir(), "demo.maxpat")
	mustRun(t, "new", "--out", path)
	mustRun(t, "place", "--in", path, "--in-place", "--obj", "cycle~ 440")

	// Unknown object: resolution error, exit code 3.
	out, err := runCLI(t, "connect", "--json", "--in", path, "--in-place",
		"--edge", "obj-1:0->obj-9:0")
	if err == nil {
		t.Fatal("expected connect to fail")
	}
	if code := ExitCode(err); code != 3 {
		t.Fatalf("expected exit code 3, got %d", code)
	}
	envelope := decodeEnvelope(t, out)
	if envelope["ok"] != false {
		t.Fatalf("expected ok=false: %v", envelope)
	}
	if envelope["schema"] != "patchctl.cli.connect.error.v1" {
		t.Fatalf("unexpected schema: %v", envelope["schema"])
	}
	if envelope["data_schema"] != nil {
		t.Fatalf("error envelope must have null data_schema: %v", envelope["data_schema"])
	}
	errs := envelope["errors"].([]any)
	if len(errs) != 1 {
		t.Fatalf("expected one error descriptor: %v", errs)
	}
	descriptor := errs[0].(map[string]any)
	if descriptor["type"] != "ObjectResolutionError" || descriptor["exit_code"] != 3.0 {
		t.Fatalf("unexpected descriptor: %v", descriptor)
	}
	if !strings.Contains(descriptor["message"].(string), "object not found: obj-9") {
		t.Fatalf("unexpected message: %v", descriptor["message"])
	}

	// Malformed edge: usage error, exit code 2.
	_, err = runCLI(t, "connect", "--in", path, "--in-place", "--edge", "obj-1:0")
	if code := ExitCode(err); code != 2 {
		t.Fatalf("expected exit code 2, got %d", code)
	}

	// Outlet out of range: cycle~ has one outlet.
	out, err = runCLI(t, "connect", "--in", path, "--in-place",
		"--edge", "obj-1:5->obj-1:0")
	if code := ExitCode(err); code != 3 {
		t.Fatalf("expected exit code 3, got %d", code)
	}
	if !strings.Contains(out, "outlet index 5 out of range") {
		t.Fatalf("unexpected output: %s", out)
	}
}

func TestConnectFromToPairing(t *testing.T) {
	isolateConfig(t)
	path := filepath.Join(t.TempDir(), "demo.maxpat")
	mustRun(t, "new", "--out", path)
	mustRun(t, "place", "--in", path, "--in-place",
		"--obj", "cycle~ 440", "--obj", "gain~")

	out := mustRun(t, "connect", "--in", path, "--in-place",
		"--from", "obj-1:0", "--to", "obj-2:0")
	if !strings.Contains(out, "connected 1 edge(s)") {
		t.Fatalf("unexpected output: %s", out)
	}

	out, err := runCLI(t, "connect", "--in", path, "--in-place", "--from", "obj-1:0")
	if err == nil {
		t.Fatal("expected failure for --from without --to")
	}
	if !strings.Contains(out, "--from and --to must be provided together") {
		t.Fatalf("unexpected output: %s", out)
	}
}

func TestStrictModeFailsOnWarnings(t *testing.T) {
	isolateConfig(t)
	path := filepath.Join(t.TempDir(), "demo.maxpat")
	mustRun(t, "new", "--out", path)

	// Placing an unknown object succeeds but carries a warning.
	out := mustRun(t, "place", "--in", path, "--in-place", "--obj", "totallybogus")
	if !strings.Contains(out, "warning: 1 unknown object(s)") {
		t.Fatalf("expected warning, got: %s", out)
	}

	out, err := runCLI(t, "check", "--json", "--strict", "--in", path)
	if err == nil {
		t.Fatal("expected strict check to fail")
	}
	if code := ExitCode(err); code != 4 {
		t.Fatalf("expected exit code 4, got %d", code)
	}
	envelope := decodeEnvelope(t, out)
	descriptor := envelope["errors"].([]any)[0].(map[string]any)
	if descriptor["type"] != "ValidationError" {
		t.Fatalf("unexpected error type: %v", descriptor["type"])
	}
	if !strings.Contains(envelope["message"].(string), "strict mode failed: 1 unknown object(s)") {
		t.Fatalf("unexpected message: %v", envelope["message"])
	}
}

func TestReplaceAndDeleteByAlias(t *testing.T) {
	isolateConfig(t)
	path := filepath.Join(t.TempDir(), "demo.maxpat")
	mustRun(t, "new", "--out", path)
	mustRun(t, "place", "--in", path, "--in-place",
		"--obj", "cycle~ 440", "--obj", "ezdac~")

	out := mustRun(t, "replace", "--in", path, "--in-place",
		"--target", "obj-1", "--with", "saw~ 220", "--attr", "varname=osc")
	if !strings.Contains(out, "replaced obj-1") {
		t.Fatalf("unexpected replace output: %s", out)
	}

	p, err := patch.Load(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	obj, _ := p.Get("obj-1")
	if obj.Name() != "saw~" || obj.Alias() != "osc" {
		t.Fatalf("replacement not applied: %s / %s", obj.Name(), obj.Alias())
	}

	mustRun(t, "delete", "--in", path, "--in-place", "--obj", "@alias:osc")

	p, err = patch.Load(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	if p.NumObjects() != 1 {
		t.Fatalf("expected 1 object after delete, got %d", p.NumObjects())
	}
	if _, ok := p.Get("obj-1"); ok {
		t.Fatal("obj-1 still present after alias delete")
	}
}

func TestOutputPathPolicy(t *testing.T) {
	isolateConfig(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "demo.maxpat")
	mustRun(t, "new", "--out", path)

	// Neither --out nor --in-place: refuse rather than guess.
	out, err := runCLI(t, "place", "--in", path, "--obj", "cycle~ 440")
	if err == nil {
		t.Fatal("expected failure without an output path")
	}
	if !strings.Contains(out, "missing --out (or pass --in-place to overwrite --in)") {
		t.Fatalf("unexpected output: %s", out)
	}

	// Explicit --out leaves the input untouched.
	original, _ := os.ReadFile(path)
	copyPath := filepath.Join(dir, "copy.maxpat")
	mustRun(t, "place", "--in", path, "--out", copyPath, "--obj", "cycle~ 440")
	after, _ := os.ReadFile(path)
	if !bytes.Equal(original, after) {
		t.Fatal("--out must not modify the input file")
	}
	if _, err := os.Stat(copyPath); err != nil {
		t.Fatalf("copy not written: %v", err)
	}
}

func TestSaveCopiesPatch(t *testing.T) {
	isolateConfig(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "demo.maxpat")
	mustRun(t, "new", "--out", path)
	mustRun(t, "place", "--in", path, "--in-place", "--obj", "cycle~ 440")

	copyPath := filepath.Join(dir, "backup.maxpat")
	out := mustRun(t, "save", "--in", path, "--out", copyPath)
	if !strings.Contains(out, "saved patch") {
		t.Fatalf("unexpected output: %s", out)
	}

	p, err := patch.Load(copyPath, nil)
	if err != nil {
		t.Fatalf("copy unreadable: %v", err)
	}
	if p.NumObjects() != 1 {
		t.Fatalf("copy has %d objects", p.NumObjects())
	}
}

func TestExportAmxdWithoutValidation(t *testing.T) {
	isolateConfig(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "demo.maxpat")
	mustRun(t, "new", "--out", path)

	device := filepath.Join(dir, "device.amxd")
	envelope := decodeEnvelope(t, mustRun(t, "export-amxd", "--json",
		"--in", path, "--out", device, "--validate=false"))

	if envelope["ok"] != true {
		t.Fatalf("export failed: %v", envelope)
	}
	if !strings.Contains(envelope["message"].(string), "(validation skipped)") {
		t.Fatalf("unexpected message: %v", envelope["message"])
	}
	data := envelope["data"].(map[string]any)
	if data["validated"] != false || data["validation_requested"] != false {
		t.Fatalf("unexpected validation flags: %v", data)
	}
	if _, err := os.Stat(device); err != nil {
		t.Fatalf("device not written: %v", err)
	}

	// Wrong extension is refused before anything is written.
	out, err := runCLI(t, "export-amxd", "--in", path,
		"--out", filepath.Join(dir, "bad.maxpat"), "--validate=false")
	if code := ExitCode(err); code != 2 {
		t.Fatalf("expected exit code 2, got %d", code)
	}
	if !strings.Contains(out, "output path must use the .amxd extension") {
		t.Fatalf("unexpected output: %s", out)
	}
}

func TestVerboseDiagnosticsInJSONMode(t *testing.T) {
	isolateConfig(t)
	path := filepath.Join(t.TempDir(), "demo.maxpat")
	mustRun(t, "new", "--out", path)

	out := mustRun(t, "place", "--json", "--verbose", "--in", path, "--in-place",
		"--obj", "cycle~ 440")

	envelope := decodeEnvelope(t, out)
	diagnostics := envelope["diagnostics"].([]any)
	if len(diagnostics) == 0 {
		t.Fatal("expected captured diagnostics in JSON mode")
	}
	if !strings.Contains(diagnostics[0].(string), "placed obj-1") {
		t.Fatalf("unexpected diagnostic: %v", diagnostics[0])
	}
	warnings := envelope["warnings"].([]any)
	found := false
	for _, warning := range warnings {
		if strings.Contains(warning.(string), "internal diagnostic line(s) captured") {
			found = true
		}
	}
	if !found {
		t.Fatalf("missing diagnostics summary warning: %v", warnings)
	}

	// The stream itself stays pure JSON: nothing before the envelope.
	if !strings.HasPrefix(strings.TrimSpace(out), "{") {
		t.Fatalf("JSON stream polluted: %s", out)
	}
}

func TestConfigCommands(t *testing.T) {
	isolateConfig(t)

	envelope := decodeEnvelope(t, mustRun(t, "config", "set", "--json",
		"wait_time", "12.5"))
	data := envelope["data"].(map[string]any)
	if data["value"] != 12.5 {
		t.Fatalf("unexpected value: %v", data["value"])
	}

	envelope = decodeEnvelope(t, mustRun(t, "config", "get", "--json", "wait_time"))
	data = envelope["data"].(map[string]any)
	if data["value"] != 12.5 {
		t.Fatalf("value not persisted: %v", data["value"])
	}

	out, err := runCLI(t, "config", "get", "theme")
	if code := ExitCode(err); code != 2 {
		t.Fatalf("expected exit code 2, got %d", code)
	}
	if !strings.Contains(out, "unsupported config key: theme") {
		t.Fatalf("unexpected output: %s", out)
	}
}

func TestRandpickFlags(t *testing.T) {
	isolateConfig(t)
	path := filepath.Join(t.TempDir(), "demo.maxpat")
	mustRun(t, "new", "--out", path)

	out := mustRun(t, "place", "--in", path, "--in-place",
		"--obj", "cycle~ 440", "--obj", "noise~",
		"--randpick", "--num-objs", "4", "--seed", "11")
	if !strings.Contains(out, "placed 4 object(s)") {
		t.Fatalf("unexpected output: %s", out)
	}

	out, err := runCLI(t, "place", "--in", path, "--in-place",
		"--obj", "cycle~ 440", "--weight", "1")
	if code := ExitCode(err); code != 2 {
		t.Fatalf("expected exit code 2, got %d", code)
	}
	if !strings.Contains(out, "--weight can only be used with --randpick") {
		t.Fatalf("unexpected output: %s", out)
	}
}
