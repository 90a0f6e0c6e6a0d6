// Package report renders the versioned success/error envelope every command
// emits, in either human line-oriented or machine JSON form.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/patchctl-dev/patchctl/internal/cmderr"
)

// SchemaVersion identifies the envelope structure itself; per-command data
// schemas carry their own version suffix.
const SchemaVersion = "1.0.0"

// Options carries the per-invocation output context through every command.
type Options struct {
	JSON    bool
	Verbose bool
	Strict  bool
	InPlace bool
	Out     io.Writer
}

// NewOptions returns options writing to stdout.
func NewOptions() *Options {
	return &Options{Out: os.Stdout}
}

func (o *Options) writer() io.Writer {
	if o.Out == nil {
		return os.Stdout
	}
	return o.Out
}

// Payload is what a command action returns on success. Zero fields get
// envelope defaults: the message falls back to "<command> completed" and the
// data schema to the command's derived schema id.
type Payload struct {
	Message     string
	Input       string
	Output      string
	Changes     map[string]any
	Warnings    []string
	Data        any
	DataSchema  string
	Diagnostics []string
}

// ErrorDescriptor is the single error entry of a failure envelope.
type ErrorDescriptor struct {
	Type     string `json:"type"`
	Message  string `json:"message"`
	ExitCode int    `json:"exit_code"`
}

// Envelope is the immutable per-invocation report record.
type Envelope struct {
	OK            bool              `json:"ok"`
	Command       string            `json:"command"`
	SchemaVersion string            `json:"schema_version"`
	Schema        string            `json:"schema"`
	DataSchema    *string           `json:"data_schema"`
	GeneratedAt   string            `json:"generated_at"`
	Message       string            `json:"message"`
	Input         *string           `json:"input"`
	Output        *string           `json:"output"`
	Changes       map[string]any    `json:"changes"`
	Warnings      []string          `json:"warnings"`
	Data          any               `json:"data"`
	Diagnostics   []string          `json:"diagnostics"`
	Errors        []ErrorDescriptor `json:"errors"`
}

// SchemaKey derives the schema identifier for a command and kind
// ("success", "error", "data"). Spaces and hyphens normalize to underscores.
func SchemaKey(command, kind string) string {
	normalized := strings.ToLower(strings.TrimSpace(command))
	normalized = strings.ReplaceAll(normalized, " ", "_")
	normalized = strings.ReplaceAll(normalized, "-", "_")
	return fmt.Sprintf("patchctl.cli.%s.%s.v1", normalized, kind)
}

func timestamp() string {
	return time.Now().UTC().Format("2006-01-02T15:04:05Z07:00")
}

// Success builds the success envelope for a command payload.
func Success(command string, payload *Payload) *Envelope {
	if payload == nil {
		payload = &Payload{}
	}
	message := payload.Message
	if message == "" {
		message = command + " completed"
	}
	dataSchema := payload.DataSchema
	if dataSchema == "" {
		dataSchema = SchemaKey(command, "data")
	}
	changes := payload.Changes
	if changes == nil {
		changes = map[string]any{}
	}
	warnings := payload.Warnings
	if warnings == nil {
		warnings = []string{}
	}
	diagnostics := payload.Diagnostics
	if diagnostics == nil {
		diagnostics = []string{}
	}

	return &Envelope{
		OK:            true,
		Command:       command,
		SchemaVersion: SchemaVersion,
		Schema:        SchemaKey(command, "success"),
		DataSchema:    &dataSchema,
		GeneratedAt:   timestamp(),
		Message:       message,
		Input:         optional(payload.Input),
		Output:        optional(payload.Output),
		Changes:       changes,
		Warnings:      warnings,
		Data:          payload.Data,
		Diagnostics:   diagnostics,
		Errors:        []ErrorDescriptor{},
	}
}

// Failure builds the error envelope. The data schema is always null on
// failure; diagnostics captured before the error are carried through.
func Failure(command string, cmdErr *cmderr.Error) *Envelope {
	diagnostics := cmdErr.Diagnostics
	if diagnostics == nil {
		diagnostics = []string{}
	}
	return &Envelope{
		OK:            false,
		Command:       command,
		SchemaVersion: SchemaVersion,
		Schema:        SchemaKey(command, "error"),
		DataSchema:    nil,
		GeneratedAt:   timestamp(),
		Message:       cmdErr.Message,
		Changes:       map[string]any{},
		Warnings:      []string{},
		Diagnostics:   diagnostics,
		Errors: []ErrorDescriptor{{
			Type:     string(cmdErr.Kind),
			Message:  cmdErr.Message,
			ExitCode: cmdErr.ExitCode(),
		}},
	}
}

// EmitSuccess renders a success envelope per the output mode.
func EmitSuccess(opts *Options, command string, payload *Payload) error {
	envelope := Success(command, payload)
	if opts.JSON {
		return writeJSON(opts.writer(), envelope)
	}
	return writeHuman(opts.writer(), envelope)
}

// EmitError renders a failure envelope per the output mode.
func EmitError(opts *Options, command string, cmdErr *cmderr.Error) error {
	envelope := Failure(command, cmdErr)
	if opts.JSON {
		return writeJSON(opts.writer(), envelope)
	}
	_, err := fmt.Fprintf(opts.writer(), "error: %s\n", envelope.Message)
	return err
}

func writeJSON(w io.Writer, envelope *Envelope) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(envelope)
}

func writeHuman(w io.Writer, envelope *Envelope) error {
	if _, err := fmt.Fprintln(w, envelope.Message); err != nil {
		return err
	}
	if envelope.Input != nil && *envelope.Input != "" {
		fmt.Fprintf(w, "input: %s\n", *envelope.Input)
	}
	if envelope.Output != nil && *envelope.Output != "" {
		fmt.Fprintf(w, "output: %s\n", *envelope.Output)
	}

	keys := make([]string, 0, len(envelope.Changes))
	for key := range envelope.Changes {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		fmt.Fprintf(w, "%s: %v\n", key, envelope.Changes[key])
	}

	for _, warning := range envelope.Warnings {
		fmt.Fprintf(w, "warning: %s\n", warning)
	}
	return nil
}

func optional(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
