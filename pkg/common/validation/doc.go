// Package validation provides common validation utilities for configuration
// parameters and task specs across the tasko library.
//
// The helpers return *errors.ValidationError values so that callers can match
// them with errors.Is(err, errors.ErrInvalidConfiguration).
package validation
