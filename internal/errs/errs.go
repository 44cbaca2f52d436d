// Package errs defines the error taxonomy the campaign engine classifies
// failures into, by behavior rather than by type name (SPEC_FULL.md §7).
package errs

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks a rejected intake submission: bad address
	// syntax, empty recipient union, oversized message, missing blob.
	ErrValidation = errors.New("validation")
	// ErrTransient marks a retryable infrastructure failure: a store or
	// queue that is unreachable.
	ErrTransient = errors.New("transient")
	// ErrNotFound marks a missing collaborator encountered mid-dispatch:
	// a deleted campaign, a missing blob.
	ErrNotFound = errors.New("not found")
	// ErrThrottle marks a provider-signalled rate-limit condition.
	ErrThrottle = errors.New("throttled")
)

// Classified wraps an underlying error with one of the taxonomy
// sentinels above, so callers can use errors.Is(err, ErrValidation)
// instead of string inspection.
type Classified struct {
	Kind error
	Err  error
}

func (c *Classified) Error() string {
	if c.Err == nil {
		return c.Kind.Error()
	}
	return fmt.Sprintf("%s: %v", c.Kind, c.Err)
}

func (c *Classified) Unwrap() []error { return []error{c.Kind, c.Err} }

// Wrap classifies err under kind, preserving it for errors.As/Is chains.
func Wrap(kind, err error) error {
	if err == nil {
		return nil
	}
	return &Classified{Kind: kind, Err: err}
}

func Validation(format string, args ...any) error {
	return Wrap(ErrValidation, fmt.Errorf(format, args...))
}

func Transient(err error) error {
	return Wrap(ErrTransient, err)
}

func NotFound(err error) error {
	return Wrap(ErrNotFound, err)
}
