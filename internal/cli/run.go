package cli

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/patchctl-dev/patchctl/internal/cmderr"
	"github.com/patchctl-dev/patchctl/internal/report"
)

// exitError carries the taxonomy exit code out through cobra after the
// report has been emitted.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

// ExitCode maps a cobra Execute error to the process status. Errors that
// did not come through the pipeline are flag/usage problems cobra raised
// itself.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var exit *exitError
	if errors.As(err, &exit) {
		return exit.code
	}
	return cmderr.KindUsage.ExitCode()
}

// HandleError prints flag/usage errors cobra raised itself (pipeline errors
// already emitted an envelope) and returns the exit code.
func HandleError(err error) int {
	if err == nil {
		return 0
	}
	var exit *exitError
	if !errors.As(err, &exit) {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
	}
	return ExitCode(err)
}

// runContext is handed to every command action. Logger is the sink for
// verbose engine output; in JSON mode it is an in-memory buffer so the
// lines can be attached to the envelope as diagnostics instead of
// corrupting the machine-readable stream.
type runContext struct {
	opts *report.Options
	sink io.Writer
	buf  *bytes.Buffer
}

// Logger returns the writer engine operations should log to. Without
// --verbose the sink is discarded.
func (rc *runContext) Logger() io.Writer {
	if !rc.opts.Verbose {
		return io.Discard
	}
	return rc.sink
}

type action func(rc *runContext) (*report.Payload, error)

// runCommand executes one action with uniform error handling: any failure
// is classified into the taxonomy, diagnostics gathered before the failure
// are preserved, and exactly one envelope is written. The returned error is
// nil on success or an exitError carrying the mapped code.
func runCommand(opts *report.Options, command string, act action) error {
	rc := &runContext{opts: opts}
	if opts.JSON {
		rc.buf = &bytes.Buffer{}
		rc.sink = rc.buf
	} else if opts.Out != nil {
		rc.sink = opts.Out
	} else {
		rc.sink = os.Stdout
	}

	payload, err := act(rc)

	var diagnostics []string
	if rc.buf != nil {
		diagnostics = splitDiagnostics(rc.buf.String())
	}

	if err != nil {
		cmdErr := cmderr.Classify(err)
		cmderr.Attach(cmdErr, diagnostics)
		report.EmitError(opts, command, cmdErr)
		return &exitError{code: cmdErr.ExitCode()}
	}

	if payload == nil {
		payload = &report.Payload{}
	}
	if len(diagnostics) > 0 {
		payload.Diagnostics = append(payload.Diagnostics, diagnostics...)
		summary := fmt.Sprintf("%d internal diagnostic line(s) captured", len(diagnostics))
		if !containsString(payload.Warnings, summary) {
			payload.Warnings = append(payload.Warnings, summary)
		}
	}

	report.EmitSuccess(opts, command, payload)
	return nil
}

// splitDiagnostics turns captured sink output into trimmed non-empty lines.
func splitDiagnostics(raw string) []string {
	var lines []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

func containsString(items []string, target string) bool {
	for _, item := range items {
		if item == target {
			return true
		}
	}
	return false
}
