package detector

import "fmt"

// ValidationError rejects a request before any scoring happens. It is the
// only error class surfaced to callers for well-formed engine state.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
