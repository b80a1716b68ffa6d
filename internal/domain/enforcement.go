package domain

import (
	"fmt"
	"time"
)

// IsolationLevel layers extra bash restrictions on top of a matrix.
type IsolationLevel string

const (
	IsolationStrict     IsolationLevel = "strict"
	IsolationModerate   IsolationLevel = "moderate"
	IsolationPermissive IsolationLevel = "permissive"
)

// ParseIsolationLevel accepts the three level names; empty means moderate.
func ParseIsolationLevel(s string) (IsolationLevel, error) {
	switch IsolationLevel(s) {
	case IsolationStrict, IsolationModerate, IsolationPermissive:
		return IsolationLevel(s), nil
	case "":
		return IsolationModerate, nil
	}
	return "", fmt.Errorf("invalid isolation level %q (must be strict, moderate or permissive)", s)
}

// ViolationType tags a denial by domain and direction.
type ViolationType string

const (
	ViolationToolDenied         ViolationType = "tool_denied"
	ViolationFileReadDenied     ViolationType = "file_read_denied"
	ViolationFileWriteDenied    ViolationType = "file_write_denied"
	ViolationBashDenied         ViolationType = "bash_denied"
	ViolationBashPatternDenied  ViolationType = "bash_pattern_denied"
	ViolationMCPDenied          ViolationType = "mcp_denied"
	ViolationNetworkDenied      ViolationType = "network_denied"
	ViolationModelDenied        ViolationType = "model_denied"
	ViolationIsolationViolation ViolationType = "isolation_violation"
)

type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Violation explains why a request was (partly) refused.
type Violation struct {
	Type       ViolationType `json:"type"`
	Resource   string        `json:"resource"`
	Permission string        `json:"permission"`
	Message    string        `json:"message"`
	Severity   Severity      `json:"severity"`
}

// EnforcementResult is the decision for one request.
type EnforcementResult struct {
	Allowed     bool        `json:"allowed"`
	Reason      string      `json:"reason,omitempty"`
	Violations  []Violation `json:"violations"`
	Suggestions []string    `json:"suggestions,omitempty"`
}

// NewResult builds a result whose decision and reason follow from the violations.
func NewResult(violations []Violation, suggestions []string) EnforcementResult {
	if violations == nil {
		violations = []Violation{}
	}
	r := EnforcementResult{
		Allowed:     len(violations) == 0,
		Violations:  violations,
		Suggestions: suggestions,
	}
	if !r.Allowed {
		r.Reason = violations[0].Message
	}
	return r
}

// AuditEntry records one enforcement decision or permission change.
type AuditEntry struct {
	ID         string            `json:"id"`
	Timestamp  time.Time         `json:"timestamp"`
	Request    Envelope          `json:"request"`
	Result     EnforcementResult `json:"result"`
	DurationMs float64           `json:"durationMs"`
	Metadata   map[string]any    `json:"metadata,omitempty"`
}

// AuditFilter selects entries from an audit log. A nil filter keeps everything.
type AuditFilter func(AuditEntry) bool
