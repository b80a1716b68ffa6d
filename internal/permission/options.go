package permission

import (
	"log/slog"
	"time"

	"permgate/internal/bus"
	"permgate/internal/domain"
)

// Option configures an Enforcer.
type Option func(*Enforcer)

// WithIsolation sets the initial isolation level. The default is moderate.
func WithIsolation(level domain.IsolationLevel) Option {
	return func(e *Enforcer) { e.isolation = level }
}

// WithMaxAuditEntries caps the in-memory audit log. The default is 1000.
func WithMaxAuditEntries(n int) Option {
	return func(e *Enforcer) { e.maxAudit = n }
}

func WithLogger(logger *slog.Logger) Option {
	return func(e *Enforcer) { e.logger = logger }
}

// WithEventBus publishes every decision and permission change on eb.
func WithEventBus(eb *bus.EventBus) Option {
	return func(e *Enforcer) { e.events = eb }
}

// WithAuditSink hands every audit entry to sink after it is appended to the
// in-memory log. Sink failures are logged and never change a decision.
func WithAuditSink(sink bus.AuditSink) Option {
	return func(e *Enforcer) { e.sink = sink }
}

// WithRateLimits enforces mcpTools.rateLimits on MCP requests.
func WithRateLimits(enabled bool) Option {
	return func(e *Enforcer) { e.rateLimits = enabled }
}

// WithCompoundCommands additionally checks each simple command of a compound
// bash line (pipelines, lists, substitutions) against the bash rules.
func WithCompoundCommands(enabled bool) Option {
	return func(e *Enforcer) { e.compound = enabled }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Enforcer) { e.now = now }
}
