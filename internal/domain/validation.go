package domain

// ErrorCode classifies a validation error. Errors always invalidate a matrix.
type ErrorCode string

const (
	CodeInheritanceViolation ErrorCode = "INHERITANCE_VIOLATION"
	CodeInvalidPattern       ErrorCode = "INVALID_PATTERN"
	CodeConflictingRules     ErrorCode = "CONFLICTING_RULES"
	CodeMissingRequired      ErrorCode = "MISSING_REQUIRED"
	CodeInvalidIsolation     ErrorCode = "INVALID_ISOLATION"
	CodeScopeExceeded        ErrorCode = "SCOPE_EXCEEDED"
)

// WarningCode classifies a validation warning. Warnings never block.
type WarningCode string

const (
	WarnOverlyPermissive       WarningCode = "OVERLY_PERMISSIVE"
	WarnUnusedPermission       WarningCode = "UNUSED_PERMISSION"
	WarnDeprecatedPattern      WarningCode = "DEPRECATED_PATTERN"
	WarnSecurityRecommendation WarningCode = "SECURITY_RECOMMENDATION"
)

type PermissionError struct {
	Code        ErrorCode `json:"code"`
	Message     string    `json:"message"`
	Field       string    `json:"field"`
	ParentValue any       `json:"parentValue,omitempty"`
	ChildValue  any       `json:"childValue,omitempty"`
}

type PermissionWarning struct {
	Code           WarningCode `json:"code"`
	Message        string      `json:"message"`
	Field          string      `json:"field"`
	Recommendation string      `json:"recommendation,omitempty"`
}

// ValidationResult is returned by both single-matrix and inheritance validation.
type ValidationResult struct {
	Valid            bool                `json:"valid"`
	Errors           []PermissionError   `json:"errors"`
	Warnings         []PermissionWarning `json:"warnings"`
	InheritanceValid bool                `json:"inheritanceValid"`
	SecurityScore    int                 `json:"securityScore"`
}

// ErrorsWithCode returns the errors carrying the given code.
func (r ValidationResult) ErrorsWithCode(code ErrorCode) []PermissionError {
	var out []PermissionError
	for _, e := range r.Errors {
		if e.Code == code {
			out = append(out, e)
		}
	}
	return out
}
