// Package policy loads permission matrices from YAML policy files and keeps
// an enforcer in sync with the file on disk.
package policy

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"permgate/internal/domain"
	"permgate/internal/permission"
	"permgate/internal/preset"
)

// Document is the on-disk policy. It names either a preset or a full matrix,
// optionally narrowed by restrictions:
//
//	preset: standard
//	isolation: strict
//	restrictions:
//	  bash:
//	    enabled: false
type Document struct {
	Preset       string                   `yaml:"preset,omitempty"`
	Isolation    domain.IsolationLevel    `yaml:"isolation,omitempty"`
	Permissions  *domain.PermissionMatrix `yaml:"permissions,omitempty"`
	Restrictions *domain.Restrictions     `yaml:"restrictions,omitempty"`
}

// Policy is a resolved Document, ready to bind to an enforcer.
type Policy struct {
	Matrix    *domain.PermissionMatrix
	Isolation domain.IsolationLevel
	// IsolationSet is true when the document names an isolation level.
	IsolationSet bool
	Validation   domain.ValidationResult
}

// Parse decodes a policy document. Unknown keys are rejected.
func Parse(data []byte) (*Document, error) {
	var doc Document
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("parse policy: document is empty")
		}
		return nil, fmt.Errorf("parse policy: %w", err)
	}
	return &doc, nil
}

func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read policy file: %w", err)
	}
	doc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// Save writes doc as YAML, creating parent directories as needed.
func Save(path string, doc *Document) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create policy directory: %w", err)
	}
	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal policy: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write policy file: %w", err)
	}
	return nil
}

// Resolve builds the matrix the document describes. Restrictions go through
// CreateRestrictedChild, so the result never exceeds its base. A matrix that
// fails validation is an error.
func (d *Document) Resolve(v *permission.Validator) (*Policy, error) {
	if v == nil {
		v = permission.NewValidator(nil)
	}

	var base *domain.PermissionMatrix
	switch {
	case d.Preset != "" && d.Permissions != nil:
		return nil, fmt.Errorf("resolve policy: preset and permissions are mutually exclusive")
	case d.Preset != "":
		m, err := preset.Get(d.Preset)
		if err != nil {
			return nil, fmt.Errorf("resolve policy: %w", err)
		}
		base = m
	case d.Permissions != nil:
		base = d.Permissions.Clone()
	default:
		return nil, fmt.Errorf("resolve policy: one of preset or permissions is required")
	}

	p := &Policy{Matrix: base, Isolation: domain.IsolationModerate}
	if d.Preset != "" {
		p.Isolation = preset.IsolationFor(preset.Name(d.Preset))
	}
	if d.Isolation != "" {
		level, err := domain.ParseIsolationLevel(string(d.Isolation))
		if err != nil {
			return nil, fmt.Errorf("resolve policy: %w", err)
		}
		p.Isolation = level
		p.IsolationSet = true
	}

	if d.Restrictions != nil {
		child, err := v.CreateRestrictedChild(base, *d.Restrictions)
		if err != nil {
			return nil, fmt.Errorf("resolve policy: %w", err)
		}
		p.Matrix = child
	}

	p.Validation = v.Validate(p.Matrix)
	if !p.Validation.Valid {
		return nil, &permission.PermissionValidationError{
			Message: "resolve policy: matrix is invalid",
			Errors:  p.Validation.Errors,
		}
	}
	return p, nil
}

// LoadPolicy is Load followed by Resolve.
func LoadPolicy(path string, logger *slog.Logger) (*Policy, error) {
	doc, err := Load(path)
	if err != nil {
		return nil, err
	}
	return doc.Resolve(permission.NewValidator(logger))
}
