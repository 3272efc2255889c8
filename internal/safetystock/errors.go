package safetystock

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownMethod    = errors.New("unknown calculation method")
	ErrMissingParameter = errors.New("missing required parameter")
	ErrInvalidParameter = errors.New("invalid parameter value")
	ErrDemandLookup     = errors.New("demand history lookup failed")
	ErrInternal         = errors.New("internal calculation error")
)

// ParameterError names the request field that is missing or out of domain.
type ParameterError struct {
	Field   string
	Reason  string
	Missing bool
}

func (e *ParameterError) Error() string {
	if e.Missing {
		return fmt.Sprintf("%s is required", e.Field)
	}
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

func (e *ParameterError) Unwrap() error {
	if e.Missing {
		return ErrMissingParameter
	}
	return ErrInvalidParameter
}

func missing(field string) error {
	return &ParameterError{Field: field, Missing: true}
}

func invalid(field, reason string) error {
	return &ParameterError{Field: field, Reason: reason}
}
