package permission

import (
	"strings"

	"permgate/internal/domain"
)

// PermissionValidationError is returned when a restricted child cannot be
// derived. Errors holds the offending validation errors.
type PermissionValidationError struct {
	Message string
	Errors  []domain.PermissionError
}

func (e *PermissionValidationError) Error() string {
	if len(e.Errors) == 0 {
		return e.Message
	}
	var b strings.Builder
	b.WriteString(e.Message)
	b.WriteString(":")
	for _, pe := range e.Errors {
		b.WriteString("\n  - ")
		b.WriteString(pe.Message)
	}
	return b.String()
}

// PermissionDeniedError is returned by Enforce when a request is refused.
type PermissionDeniedError struct {
	Reason     string
	Violations []domain.Violation
}

func (e *PermissionDeniedError) Error() string {
	return e.Reason
}

func newDeniedError(result domain.EnforcementResult) *PermissionDeniedError {
	reason := result.Reason
	if reason == "" {
		reason = "Permission denied"
	}
	return &PermissionDeniedError{Reason: reason, Violations: result.Violations}
}
