package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"

	"permgate/internal/domain"
	"permgate/internal/permission"
)

type ValidateRequest struct {
	Matrix *domain.PermissionMatrix `json:"matrix"`
	Parent *domain.PermissionMatrix `json:"parent,omitempty"`
}

type PermissionsResponse struct {
	Isolation     domain.IsolationLevel    `json:"isolation"`
	SecurityScore int                      `json:"securityScore"`
	Permissions   *domain.PermissionMatrix `json:"permissions"`
}

type IsolationRequest struct {
	Level domain.IsolationLevel `json:"level"`
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"isolation": s.enforcer.Isolation(),
	})
}

// check accepts one request envelope or a JSON array of them and answers
// with one result or an array of results, in order.
func (s *Server) check(w http.ResponseWriter, r *http.Request) {
	var raw json.RawMessage
	if !decodeBody(w, r, &raw) {
		return
	}

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var envs []domain.Envelope
		if err := json.Unmarshal(trimmed, &envs); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
			return
		}
		results := make([]domain.EnforcementResult, len(envs))
		for i, env := range envs {
			results[i] = s.enforcer.CheckEnvelope(env)
		}
		writeJSON(w, http.StatusOK, results)
		return
	}

	var env domain.Envelope
	if err := json.Unmarshal(trimmed, &env); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.enforcer.CheckEnvelope(env))
}

func (s *Server) validate(w http.ResponseWriter, r *http.Request) {
	var req ValidateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Matrix == nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "matrix is required")
		return
	}
	if req.Parent != nil {
		writeJSON(w, http.StatusOK, s.validator.ValidateInheritance(req.Parent, req.Matrix))
		return
	}
	writeJSON(w, http.StatusOK, s.validator.Validate(req.Matrix))
}

// audit serves the in-memory audit log. Query: limit, type, denied=true.
func (s *Server) audit(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit := 0
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid_query", "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	deniedOnly := false
	if v := q.Get("denied"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_query", "denied must be a boolean")
			return
		}
		deniedOnly = b
	}
	kind := domain.RequestKind(q.Get("type"))

	var filter domain.AuditFilter
	if kind != "" || deniedOnly {
		filter = func(e domain.AuditEntry) bool {
			if kind != "" && e.Request.Type != kind {
				return false
			}
			return !deniedOnly || !e.Result.Allowed
		}
	}
	writeJSON(w, http.StatusOK, s.enforcer.AuditLog(limit, filter))
}

func (s *Server) clearAudit(w http.ResponseWriter, r *http.Request) {
	s.enforcer.ClearAuditLog()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) permissions(w http.ResponseWriter, r *http.Request) {
	m := s.enforcer.Permissions()
	writeJSON(w, http.StatusOK, PermissionsResponse{
		Isolation:     s.enforcer.Isolation(),
		SecurityScore: permission.SecurityScore(m),
		Permissions:   m,
	})
}

func (s *Server) setIsolation(w http.ResponseWriter, r *http.Request) {
	var req IsolationRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := s.enforcer.SetIsolation(req.Level); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_isolation", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"isolation": s.enforcer.Isolation()})
}
