// Package errs defines the error taxonomy shared by the coordination
// components: conflicts, missing entities, malformed records and I/O failures.
package errs

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// ConflictError is returned when a claim request overlaps a claim held by
// another agent.
type ConflictError struct {
	Agent   string // agent that made the request
	Path    string // requested pattern
	Holder  string // agent holding the blocking claim
	Pattern string // pattern of the blocking claim
	Shared  bool   // blocking claim is shared and the request was exclusive
}

func (e *ConflictError) Error() string {
	if e.Shared {
		return fmt.Sprintf("cannot exclusively claim %q: agent %q holds a shared claim on %q", e.Path, e.Holder, e.Pattern)
	}
	return fmt.Sprintf("cannot claim %q: agent %q holds an exclusive claim on %q", e.Path, e.Holder, e.Pattern)
}

// NotFoundError is returned when an explicit get or mutate names an unknown id.
type NotFoundError struct {
	Kind string // "message", "work item", ...
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

// ValidationError describes a record or input missing required fields or
// carrying out-of-range values.
type ValidationError struct {
	Kind   string
	Path   string // file path when the record came from disk
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("invalid %s %s: %s", e.Kind, e.Path, e.Reason)
	}
	return fmt.Sprintf("invalid %s: %s", e.Kind, e.Reason)
}

// IOError wraps a filesystem failure other than "not found".
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// NotFound builds a NotFoundError.
func NotFound(kind, id string) error {
	return &NotFoundError{Kind: kind, ID: id}
}

// Invalid builds a ValidationError without a file path.
func Invalid(kind, format string, args ...any) error {
	return &ValidationError{Kind: kind, Reason: fmt.Sprintf(format, args...)}
}

// IO wraps err as an IOError. Nil stays nil.
func IO(op, path string, err error) error {
	if err == nil {
		return nil
	}
	return &IOError{Op: op, Path: path, Err: err}
}

// IsConflict reports whether err is or wraps a ConflictError.
func IsConflict(err error) bool {
	var target *ConflictError
	return errors.As(err, &target)
}

// IsNotFound reports whether err is or wraps a NotFoundError or os.ErrNotExist.
func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target) || errors.Is(err, os.ErrNotExist)
}

// IsValidation reports whether err is or wraps a ValidationError.
func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

// IsIO reports whether err is or wraps an IOError.
func IsIO(err error) bool {
	var target *IOError
	return errors.As(err, &target)
}

// Describe renders err as a sentence suitable for returning to an agent.
func Describe(err error) string {
	if err == nil {
		return ""
	}

	var (
		conflict   *ConflictError
		notFound   *NotFoundError
		validation *ValidationError
		ioErr      *IOError
	)

	switch {
	case errors.As(err, &conflict):
		return "Conflict: " + conflict.Error() + ". Wait for the holder to release it or coordinate with them."
	case errors.As(err, &notFound):
		return "Not found: " + notFound.Error() + "."
	case errors.As(err, &validation):
		return "Invalid input: " + validation.Error() + "."
	case errors.As(err, &ioErr):
		return "Storage failure: " + ioErr.Error() + "."
	default:
		msg := err.Error()
		if msg == "" {
			return "Error."
		}
		return "Error: " + strings.TrimSuffix(msg, ".") + "."
	}
}
