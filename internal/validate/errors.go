package validate

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalid is wrapped by every ValidationError so callers can test for a
// hard validation failure with errors.Is.
var ErrInvalid = errors.New("data from upstream could not be understood")

// Issue is one reason an entity was rejected.
type Issue struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// ValidationError reports a payload that does not satisfy the required
// fields of the entity it was decoded as.
type ValidationError struct {
	Entity string
	Issues []Issue
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Issues))
	for _, issue := range e.Issues {
		parts = append(parts, fmt.Sprintf("%s: %s", issue.Path, issue.Message))
	}
	return fmt.Sprintf("%s validation failed: %s", e.Entity, strings.Join(parts, ", "))
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalid
}
