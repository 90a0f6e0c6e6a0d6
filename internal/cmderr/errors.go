// Package cmderr defines the closed error taxonomy shared by every patchctl
// command. Each kind carries a stable exit code so scripts can branch on the
// process status without parsing output.
package cmderr

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"strconv"
)

type Kind string

const (
	KindUsage      Kind = "UsageError"
	KindResolution Kind = "ObjectResolutionError"
	KindValidation Kind = "ValidationError"
	KindInternal   Kind = "InternalError"
)

// ExitCode maps a kind to its process exit status.
func (k Kind) ExitCode() int {
	switch k {
	case KindUsage:
		return 2
	case KindResolution:
		return 3
	case KindValidation:
		return 4
	case KindInternal:
		return 5
	default:
		return 5
	}
}

// Error is an expected command failure. Details hold structured context that
// the report layer surfaces in JSON mode; Diagnostics hold side-channel lines
// captured before the failure.
type Error struct {
	Kind        Kind
	Message     string
	Details     map[string]any
	Diagnostics []string
	cause       error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.cause }

func (e *Error) ExitCode() int { return e.Kind.ExitCode() }

// WithDetails attaches structured detail to the error and returns it.
func (e *Error) WithDetails(details map[string]any) *Error {
	e.Details = details
	return e
}

// WithCause records the wrapped lower-level error for errors.Is/As chains.
func (e *Error) WithCause(cause error) *Error {
	e.cause = cause
	return e
}

func newError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Usagef(format string, args ...any) *Error {
	return newError(KindUsage, format, args...)
}

func Resolutionf(format string, args ...any) *Error {
	return newError(KindResolution, format, args...)
}

func Validationf(format string, args ...any) *Error {
	return newError(KindValidation, format, args...)
}

func Internalf(format string, args ...any) *Error {
	return newError(KindInternal, format, args...)
}

// Classify folds an arbitrary error into the taxonomy. Errors already in the
// taxonomy pass through untouched so kind and exit code are preserved.
// Filesystem not-found conditions become usage errors; malformed data
// (JSON shape, numeric parsing) becomes a validation error; everything else
// is internal.
func Classify(err error) *Error {
	var cmdErr *Error
	if errors.As(err, &cmdErr) {
		return cmdErr
	}
	if errors.Is(err, fs.ErrNotExist) {
		return Usagef("%s", err.Error()).WithCause(err)
	}
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	var numErr *strconv.NumError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) || errors.As(err, &numErr) {
		return Validationf("%s", err.Error()).WithCause(err)
	}
	return Internalf("%s", err.Error()).WithCause(err)
}

// Attach records captured diagnostic lines on the error if it does not have
// any yet, so they still reach the report on failure paths.
func Attach(err *Error, diagnostics []string) {
	if err == nil || len(diagnostics) == 0 || len(err.Diagnostics) > 0 {
		return
	}
	err.Diagnostics = append([]string(nil), diagnostics...)
}

// ExitCode reports the status for any error: taxonomy errors use their kind,
// everything else defaults to the internal-error code.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var cmdErr *Error
	if errors.As(err, &cmdErr) {
		return cmdErr.ExitCode()
	}
	return KindInternal.ExitCode()
}
