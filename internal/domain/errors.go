package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation matches every *ValidationError.
	ErrValidation = errors.New("validation failed")

	// ErrUnknownDataType is returned by a generator registry miss.
	ErrUnknownDataType = errors.New("unknown data type")

	// ErrUnknownFormat is returned by a format registry miss.
	ErrUnknownFormat = errors.New("unknown format")

	// ErrInvalidParameter is returned when column params fall outside the
	// declared type's domain.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrGeneration matches every *GenerationError.
	ErrGeneration = errors.New("generation failed")

	// ErrWrite matches every *WriteError.
	ErrWrite = errors.New("write failed")
)

type Stage string

const (
	StageValidating Stage = "validating"
	StageGenerating Stage = "generating"
	StageWriting    Stage = "writing"
)

// ValidationError reports a bad request shape. It is always raised before
// any row is produced or any output file is created.
type ValidationError struct {
	Field  string
	Column string
	Err    error
}

func (e *ValidationError) Error() string {
	switch {
	case e.Column != "" && e.Field != "":
		return fmt.Sprintf("validating: column %q: %s: %v", e.Column, e.Field, e.Err)
	case e.Column != "":
		return fmt.Sprintf("validating: column %q: %v", e.Column, e.Err)
	case e.Field != "":
		return fmt.Sprintf("validating: %s: %v", e.Field, e.Err)
	default:
		return fmt.Sprintf("validating: %v", e.Err)
	}
}

func (e *ValidationError) Unwrap() []error { return []error{ErrValidation, e.Err} }

// NewValidationError builds a ValidationError whose cause is formatted with
// fmt.Errorf, so %w verbs are preserved.
func NewValidationError(field, column, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Column: column, Err: fmt.Errorf(format, args...)}
}

// GenerationError is a generator failure on a request that passed
// validation.
type GenerationError struct {
	Batch  int
	Row    int64
	Column string
	Err    error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generating: batch %d, row %d, column %q: %v", e.Batch, e.Row, e.Column, e.Err)
}

func (e *GenerationError) Unwrap() []error { return []error{ErrGeneration, e.Err} }

// WriteError is a destination failure. Batch is -1 when the failure happened
// while opening or finalizing the output rather than on a batch.
type WriteError struct {
	Batch int
	Op    string
	Path  string
	Err   error
}

func (e *WriteError) Error() string {
	if e.Batch < 0 {
		return fmt.Sprintf("writing: %s %s: %v", e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("writing: %s %s: batch %d: %v", e.Op, e.Path, e.Batch, e.Err)
}

func (e *WriteError) Unwrap() []error { return []error{ErrWrite, e.Err} }

// StageOf reports the pipeline stage an error originated in, or "" when the
// error is not one of the pipeline error types.
func StageOf(err error) Stage {
	var ve *ValidationError
	var ge *GenerationError
	var we *WriteError
	switch {
	case errors.As(err, &ve):
		return StageValidating
	case errors.As(err, &ge):
		return StageGenerating
	case errors.As(err, &we):
		return StageWriting
	default:
		return ""
	}
}
