package history

import (
	"errors"
	"fmt"
)

// Sentinel errors for the rebuild pipeline.
var (
	ErrInvalidRange = errors.New("invalid date range")
	ErrNoSource     = errors.New("no history source configured")
)

// RangeError reports an unparsable or inverted date range.
type RangeError struct {
	Input  string
	Reason string
	Cause  error
}

func (e *RangeError) Error() string {
	if e.Input != "" {
		return fmt.Sprintf("invalid date range %q: %s", e.Input, e.Reason)
	}
	return fmt.Sprintf("invalid date range: %s", e.Reason)
}

// Unwrap lets errors.Is match ErrInvalidRange as well as the parse cause.
func (e *RangeError) Unwrap() []error {
	if e.Cause != nil {
		return []error{ErrInvalidRange, e.Cause}
	}
	return []error{ErrInvalidRange}
}

// FetchError reports that the page query itself failed, so no forest could be built.
type FetchError struct {
	Op    string
	Cause error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetching history (%s): %v", e.Op, e.Cause)
}

func (e *FetchError) Unwrap() error {
	return e.Cause
}
