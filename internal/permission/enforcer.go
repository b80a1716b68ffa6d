package permission

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"permgate/internal/bus"
	"permgate/internal/domain"
	"permgate/internal/metrics"
)

// Enforcer decides, request by request, whether a task may act under its
// current matrix and isolation level, and keeps a bounded audit trail.
//
// Matching runs on a snapshot taken under a read lock; the audit append runs
// under the write lock, so the log is in completion order.
type Enforcer struct {
	mu        sync.RWMutex
	matrix    *domain.PermissionMatrix
	isolation domain.IsolationLevel
	limiter   *mcpLimiter
	audit     *AuditLog

	maxAudit   int
	logger     *slog.Logger
	events     *bus.EventBus
	sink       bus.AuditSink
	rateLimits bool
	compound   bool
	now        func() time.Time
}

// NewEnforcer binds an enforcer to a copy of m.
func NewEnforcer(m *domain.PermissionMatrix, opts ...Option) *Enforcer {
	e := &Enforcer{
		isolation: domain.IsolationModerate,
		maxAudit:  DefaultMaxAuditEntries,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	if m == nil {
		m = &domain.PermissionMatrix{}
	}
	e.matrix = m.Clone()
	e.audit = NewAuditLog(e.maxAudit)
	e.limiter = e.buildLimiter(e.matrix)
	return e
}

// NewStrictEnforcer returns an enforcer under strict isolation.
func NewStrictEnforcer(m *domain.PermissionMatrix, opts ...Option) *Enforcer {
	return NewEnforcer(m, append(opts, WithIsolation(domain.IsolationStrict))...)
}

// NewPermissiveEnforcer returns an enforcer under permissive isolation.
func NewPermissiveEnforcer(m *domain.PermissionMatrix, opts ...Option) *Enforcer {
	return NewEnforcer(m, append(opts, WithIsolation(domain.IsolationPermissive))...)
}

func (e *Enforcer) buildLimiter(m *domain.PermissionMatrix) *mcpLimiter {
	if !e.rateLimits || m.MCPTools == nil || len(m.MCPTools.RateLimits) == 0 {
		return nil
	}
	return newMCPLimiter(m.MCPTools.RateLimits)
}

// Check evaluates one request and records it in the audit log. It never fails.
func (e *Enforcer) Check(req domain.Request) domain.EnforcementResult {
	start := e.now()

	e.mu.RLock()
	m, isolation, limiter := e.matrix, e.isolation, e.limiter
	e.mu.RUnlock()

	result := e.evaluate(m, isolation, limiter, req, start)
	e.record(req.Envelope(), result, start, nil)
	return result
}

// CheckEnvelope evaluates a request in wire form. An unknown request type is
// denied and audited like any other request.
func (e *Enforcer) CheckEnvelope(env domain.Envelope) domain.EnforcementResult {
	req, err := env.Request()
	if err != nil {
		start := e.now()
		result := unknownRequest(env)
		e.record(env, result, start, nil)
		return result
	}
	return e.Check(req)
}

// CheckAll evaluates each request independently, in order, returning one
// result per request.
func (e *Enforcer) CheckAll(reqs []domain.Request) []domain.EnforcementResult {
	results := make([]domain.EnforcementResult, len(reqs))
	for i, req := range reqs {
		results[i] = e.Check(req)
	}
	return results
}

// Enforce is Check that returns a *PermissionDeniedError on denial.
func (e *Enforcer) Enforce(req domain.Request) error {
	result := e.Check(req)
	if !result.Allowed {
		return newDeniedError(result)
	}
	return nil
}

// UpdatePermissions hot-swaps the matrix. The change is audited.
func (e *Enforcer) UpdatePermissions(m *domain.PermissionMatrix) {
	if m == nil {
		m = &domain.PermissionMatrix{}
	}
	m = m.Clone()
	limiter := e.buildLimiter(m)

	e.mu.Lock()
	e.matrix = m
	e.limiter = limiter
	e.mu.Unlock()

	metrics.PermissionUpdates.Inc()
	e.logger.Info("permissions updated", "score", SecurityScore(m))
	e.record(domain.Envelope{Type: domain.KindTool, Resource: "permissions_update"},
		domain.NewResult(nil, nil), e.now(), map[string]any{"action": "permissions_updated"})
}

// SetIsolation changes the isolation level. The change is audited.
func (e *Enforcer) SetIsolation(level domain.IsolationLevel) error {
	if _, err := domain.ParseIsolationLevel(string(level)); err != nil || level == "" {
		return fmt.Errorf("set isolation: invalid level %q", level)
	}
	e.mu.Lock()
	prev := e.isolation
	e.isolation = level
	e.mu.Unlock()

	e.logger.Info("isolation level changed", "from", prev, "to", level)
	e.record(domain.Envelope{Type: domain.KindTool, Resource: "isolation_update"},
		domain.NewResult(nil, nil), e.now(),
		map[string]any{"action": "isolation_updated", "from": string(prev), "to": string(level)})
	return nil
}

// Permissions returns a copy of the active matrix.
func (e *Enforcer) Permissions() *domain.PermissionMatrix {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.matrix.Clone()
}

func (e *Enforcer) Isolation() domain.IsolationLevel {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.isolation
}

// AuditLog returns a snapshot of the audit log, oldest first. filter is applied
// before limit, so the result holds the newest limit matching entries.
func (e *Enforcer) AuditLog(limit int, filter domain.AuditFilter) []domain.AuditEntry {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.audit.Entries(limit, filter)
}

// ClearAuditLog empties the in-memory audit log. Entries already handed to
// an audit sink are unaffected.
func (e *Enforcer) ClearAuditLog() {
	e.mu.Lock()
	e.audit.Clear()
	e.mu.Unlock()

	metrics.AuditLogSize.Set(0)
	if e.events != nil {
		e.events.Emit(bus.Event{Type: bus.EventAuditCleared, Source: "enforcer"})
	}
}

// --- Evaluation ---

func (e *Enforcer) evaluate(m *domain.PermissionMatrix, isolation domain.IsolationLevel, limiter *mcpLimiter, req domain.Request, now time.Time) domain.EnforcementResult {
	switch r := req.(type) {
	case domain.ToolRequest:
		return checkTool(m, r.Name)
	case domain.FileReadRequest:
		return checkFileRead(m, r.Path)
	case domain.FileWriteRequest:
		return checkFileWrite(m, r.Path)
	case domain.BashRequest:
		result := checkBash(m, isolation, r.Command)
		if result.Allowed && e.compound {
			result = checkCompound(m, isolation, r.Command, result)
		}
		return result
	case domain.MCPRequest:
		result := checkMCP(m, r.Spec)
		if result.Allowed && limiter != nil {
			if key, ok := limiter.allow(r.Spec, now); !ok {
				return denied(deny(domain.ViolationMCPDenied, r.Spec, "mcpTools.rateLimits",
					fmt.Sprintf(`MCP tool "%s" exceeded rate limit "%s"`, r.Spec, key)))
			}
		}
		return result
	case domain.NetworkRequest:
		return checkNetwork(m, r.URL)
	case domain.ModelRequest:
		return checkModel(m, r.Tier)
	}
	return unknownRequest(req.Envelope())
}

// checkCompound re-checks every simple command of a compound line. The first
// failing command's result is returned; a line that does not parse keeps the
// whole-line result.
func checkCompound(m *domain.PermissionMatrix, isolation domain.IsolationLevel, line string, whole domain.EnforcementResult) domain.EnforcementResult {
	cmds, ok := splitCommands(line)
	if !ok || len(cmds) < 2 {
		return whole
	}
	for _, cmd := range cmds {
		if r := checkBash(m, isolation, cmd); !r.Allowed {
			return r
		}
	}
	return whole
}

// --- Audit ---

func (e *Enforcer) record(env domain.Envelope, result domain.EnforcementResult, start time.Time, meta map[string]any) {
	end := e.now()
	entry := domain.AuditEntry{
		ID:         ulid.Make().String(),
		Timestamp:  end,
		Request:    env,
		Result:     result,
		DurationMs: float64(end.Sub(start).Microseconds()) / 1000,
		Metadata:   meta,
	}

	e.mu.Lock()
	e.audit.Append(entry)
	size := e.audit.Len()
	e.mu.Unlock()

	metrics.AuditLogSize.Set(int64(size))
	if meta == nil {
		metrics.ChecksTotal.Inc()
		metrics.CheckLatency.Observe(end.Sub(start).Seconds())
		if !result.Allowed {
			metrics.DenialsTotal.Inc()
			metrics.DenialsByType(string(env.Type)).Inc()
			v := result.Violations[0]
			e.logger.Warn("request DENIED",
				"type", env.Type,
				"resource", env.Resource,
				"permission", v.Permission,
				"reason", result.Reason,
			)
		}
	}

	if e.sink != nil {
		if err := e.sink.LogAudit(context.Background(), entry); err != nil {
			metrics.AuditSinkErrors.Inc()
			e.logger.Error("audit sink failed", "id", entry.ID, "error", err)
		}
	}
	if e.events != nil {
		if meta != nil {
			e.events.Emit(bus.Event{
				Type:      changeEventType(meta),
				Source:    "enforcer",
				Entry:     &entry,
				Payload:   meta,
				Timestamp: entry.Timestamp,
			})
		} else {
			e.events.Emit(bus.DecisionEvent("enforcer", entry))
		}
	}
}

func changeEventType(meta map[string]any) string {
	if meta["action"] == "isolation_updated" {
		return bus.EventIsolationChanged
	}
	return bus.EventPermissionsUpdated
}
