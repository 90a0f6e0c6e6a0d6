package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patchctl-dev/patchctl/internal/cmderr"
)

func TestSchemaKeyNormalization(t *testing.T) {
	assert.Equal(t, "patchctl.cli.place.success.v1", SchemaKey("place", "success"))
	assert.Equal(t, "patchctl.cli.list_objects.error.v1", SchemaKey("list-objects", "error"))
	assert.Equal(t, "patchctl.cli.config_set.data.v1", SchemaKey("config set", "data"))
	assert.Equal(t, "patchctl.cli.export_amxd.success.v1", SchemaKey("  Export-AMXD ", "success"))
}

func TestSuccessDefaults(t *testing.T) {
	envelope := Success("check", nil)

	assert.True(t, envelope.OK)
	assert.Equal(t, "check", envelope.Command)
	assert.Equal(t, SchemaVersion, envelope.SchemaVersion)
	assert.Equal(t, "patchctl.cli.check.success.v1", envelope.Schema)
	require.NotNil(t, envelope.DataSchema)
	assert.Equal(t, "patchctl.cli.check.data.v1", *envelope.DataSchema)
	assert.Equal(t, "check completed", envelope.Message)
	assert.Nil(t, envelope.Input)
	assert.Nil(t, envelope.Output)
	assert.NotNil(t, envelope.Changes)
	assert.NotNil(t, envelope.Warnings)
	assert.NotNil(t, envelope.Diagnostics)
	assert.Empty(t, envelope.Errors)
	assert.NotEmpty(t, envelope.GeneratedAt)
}

func TestSuccessCarriesPayload(t *testing.T) {
	envelope := Success("place", &Payload{
		Message:    "placed 2 object(s)",
		Input:      "in.maxpat",
		Output:     "out.maxpat",
		Changes:    map[string]any{"objects_added": 2},
		Warnings:   []string{"1 unknown object(s)"},
		Data:       map[string]any{"ids": []string{"obj-1", "obj-2"}},
		DataSchema: "patchctl.cli.place.data.v1",
	})

	require.NotNil(t, envelope.Input)
	assert.Equal(t, "in.maxpat", *envelope.Input)
	require.NotNil(t, envelope.Output)
	assert.Equal(t, "out.maxpat", *envelope.Output)
	assert.Equal(t, 2, envelope.Changes["objects_added"])
	assert.Equal(t, []string{"1 unknown object(s)"}, envelope.Warnings)
}

func TestFailureEnvelope(t *testing.T) {
	cmdErr := cmderr.Resolutionf("object not found: obj-9")
	cmdErr.Diagnostics = []string{"resolving selector obj-9"}

	envelope := Failure("connect", cmdErr)

	assert.False(t, envelope.OK)
	assert.Equal(t, "patchctl.cli.connect.error.v1", envelope.Schema)
	assert.Nil(t, envelope.DataSchema)
	assert.Equal(t, "object not found: obj-9", envelope.Message)
	require.Len(t, envelope.Errors, 1)
	assert.Equal(t, ErrorDescriptor{
		Type:     "ObjectResolutionError",
		Message:  "object not found: obj-9",
		ExitCode: 3,
	}, envelope.Errors[0])
	assert.Equal(t, []string{"resolving selector obj-9"}, envelope.Diagnostics)
}

func TestEmitSuccessJSONRoundTrips(t *testing.T) {
	var buf bytes.Buffer
	opts := &Options{JSON: true, Out: &buf}

	err := EmitSuccess(opts, "new", &Payload{Output: "p.maxpat"})
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, true, decoded["ok"])
	assert.Equal(t, "new", decoded["command"])
	assert.Equal(t, "p.maxpat", decoded["output"])
	// Failure schema key must never leak into success envelopes.
	assert.Equal(t, "patchctl.cli.new.success.v1", decoded["schema"])
	_, hasDataSchema := decoded["data_schema"]
	assert.True(t, hasDataSchema)
}

func TestEmitErrorJSONHasNullDataSchema(t *testing.T) {
	var buf bytes.Buffer
	opts := &Options{JSON: true, Out: &buf}

	require.NoError(t, EmitError(opts, "save", cmderr.Usagef("missing required --out")))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, false, decoded["ok"])
	value, present := decoded["data_schema"]
	assert.True(t, present)
	assert.Nil(t, value)
}

func TestHumanRenderingOrder(t *testing.T) {
	var buf bytes.Buffer
	opts := &Options{Out: &buf}

	require.NoError(t, EmitSuccess(opts, "place", &Payload{
		Message:  "placed 1 object(s)",
		Input:    "in.maxpat",
		Output:   "out.maxpat",
		Changes:  map[string]any{"objects_added": 1, "connections_added": 0},
		Warnings: []string{"1 unknown object(s)"},
	}))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 6)
	assert.Equal(t, "placed 1 object(s)", lines[0])
	assert.Equal(t, "input: in.maxpat", lines[1])
	assert.Equal(t, "output: out.maxpat", lines[2])
	// Change keys render sorted.
	assert.Equal(t, "connections_added: 0", lines[3])
	assert.Equal(t, "objects_added: 1", lines[4])
	assert.Equal(t, "warning: 1 unknown object(s)", lines[5])
}

func TestHumanErrorMode(t *testing.T) {
	var buf bytes.Buffer
	opts := &Options{Out: &buf}

	require.NoError(t, EmitError(opts, "delete", cmderr.Resolutionf("object not found: obj-4")))
	assert.Equal(t, "error: object not found: obj-4\n", buf.String())
}
