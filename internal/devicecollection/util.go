package devicecollection

import (
	"fmt"
	"strings"
)

// ErrorCollector accumulates errors from bulk device operations
type ErrorCollector struct {
	errors []error
}

// NewErrorCollector creates a new ErrorCollector
func NewErrorCollector() *ErrorCollector {
	return &ErrorCollector{
		errors: make([]error, 0),
	}
}

// Add adds an error with optional context to the collector
func (ec *ErrorCollector) Add(context string, err error) {
	if err == nil {
		return
	}
	if context != "" {
		err = fmt.Errorf("%s: %w", context, err)
	}
	ec.errors = append(ec.errors, err)
}

// HasErrors returns true if any errors have been collected
func (ec *ErrorCollector) HasErrors() bool {
	return len(ec.errors) > 0
}

// Count returns the number of errors collected
func (ec *ErrorCollector) Count() int {
	return len(ec.errors)
}

// Result returns a combined error if any errors were collected, nil otherwise.
// The combined error wraps every collected error.
func (ec *ErrorCollector) Result(context string) error {
	if len(ec.errors) == 0 {
		return nil
	}

	var combined error
	if len(ec.errors) == 1 {
		combined = ec.errors[0]
	} else {
		combined = &multiError{errors: ec.errors}
	}

	if context != "" {
		return fmt.Errorf("%s: %w", context, combined)
	}
	return combined
}

// Errors returns the slice of collected errors
func (ec *ErrorCollector) Errors() []error {
	return ec.errors
}

type multiError struct {
	errors []error
}

func (m *multiError) Error() string {
	errorStrings := make([]string, len(m.errors))
	for i, err := range m.errors {
		errorStrings[i] = err.Error()
	}
	return strings.Join(errorStrings, "; ")
}

func (m *multiError) Unwrap() []error {
	return m.errors
}
