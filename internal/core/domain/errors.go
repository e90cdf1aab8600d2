package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors. Every failure of the filter pipeline wraps exactly one
// of these so callers can branch with errors.Is.
var (
	ErrUnknownParameter  = errors.New("unknown filter parameter")
	ErrMissingParameter  = errors.New("missing filter parameter")
	ErrUnknownStage      = errors.New("unknown filter stage")
	ErrInvalidValue      = errors.New("invalid filter parameter value")
	ErrInvalidWindow     = errors.New("invalid age window")
	ErrInvalidCoordinate = errors.New("invalid coordinate")
	ErrRead              = errors.New("cannot read feature collection")
	ErrFormat            = errors.New("unsupported feature collection format")
)

// ParamError reports a rejected filter parameter together with the
// offending value.
type ParamError struct {
	Param string
	Value any
	Err   error
}

func (e *ParamError) Error() string {
	if e.Value == nil {
		return fmt.Sprintf("%s: %v", e.Param, e.Err)
	}
	return fmt.Sprintf("%s: %v: %v", e.Param, e.Err, e.Value)
}

func (e *ParamError) Unwrap() error { return e.Err }

// SourceError reports a collection that could not be loaded or stored.
type SourceError struct {
	Source string
	Err    error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Source, e.Err)
}

func (e *SourceError) Unwrap() error { return e.Err }

// IsInputError reports whether err is a caller mistake rather than an
// infrastructure failure.
func IsInputError(err error) bool {
	return errors.Is(err, ErrUnknownParameter) ||
		errors.Is(err, ErrMissingParameter) ||
		errors.Is(err, ErrUnknownStage) ||
		errors.Is(err, ErrInvalidValue) ||
		errors.Is(err, ErrInvalidWindow) ||
		errors.Is(err, ErrInvalidCoordinate)
}
