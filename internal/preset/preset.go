// Package preset provides ready-made permission matrices, from fully locked
// down to fully trusted, and helpers to pick and customize them.
package preset

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"permgate/internal/domain"
)

// Name identifies a preset.
type Name string

const (
	Minimal        Name = "minimal"
	ReadOnly       Name = "read-only"
	Standard       Name = "standard"
	Full           Name = "full"
	CICD           Name = "ci-cd"
	Research       Name = "research"
	CodeGeneration Name = "code-generation"
)

// Names lists every preset from most to least restrictive.
var Names = []Name{Minimal, ReadOnly, Standard, Full, CICD, Research, CodeGeneration}

var builders = map[Name]func() *domain.PermissionMatrix{
	Minimal:        minimal,
	ReadOnly:       readOnly,
	Standard:       standard,
	Full:           full,
	CICD:           ciCD,
	Research:       research,
	CodeGeneration: codeGeneration,
}

// Get returns a fresh copy of the named preset.
func Get(name string) (*domain.PermissionMatrix, error) {
	build, ok := builders[Name(name)]
	if !ok {
		return nil, fmt.Errorf("Unknown preset: %s. Available: %s", name, available())
	}
	return build().Clone(), nil
}

// MustGet is Get for names known at compile time.
func MustGet(name Name) *domain.PermissionMatrix {
	m, err := Get(string(name))
	if err != nil {
		panic(err)
	}
	return m
}

func available() string {
	names := make([]string, len(Names))
	for i, n := range Names {
		names[i] = string(n)
	}
	return strings.Join(names, ", ")
}

// TaskType is a coarse category of work used to pick a preset.
type TaskType string

const (
	TaskAnalysis      TaskType = "analysis"
	TaskResearch      TaskType = "research"
	TaskRefactoring   TaskType = "refactoring"
	TaskNewFeature    TaskType = "new-feature"
	TaskBugFix        TaskType = "bug-fix"
	TaskTesting       TaskType = "testing"
	TaskDocumentation TaskType = "documentation"
	TaskDeployment    TaskType = "deployment"
	TaskExploration   TaskType = "exploration"
)

var recommendations = map[TaskType]Name{
	TaskAnalysis:      ReadOnly,
	TaskResearch:      Research,
	TaskRefactoring:   CodeGeneration,
	TaskNewFeature:    Standard,
	TaskBugFix:        Standard,
	TaskTesting:       CodeGeneration,
	TaskDocumentation: ReadOnly,
	TaskDeployment:    CICD,
	TaskExploration:   Research,
}

// Recommend maps a task type to a preset. Unknown types get Standard.
func Recommend(task TaskType) Name {
	if name, ok := recommendations[task]; ok {
		return name
	}
	return Standard
}

// IsolationFor returns the isolation level a preset is meant to run under.
func IsolationFor(name Name) domain.IsolationLevel {
	switch name {
	case Minimal, ReadOnly:
		return domain.IsolationStrict
	case Full:
		return domain.IsolationPermissive
	}
	return domain.IsolationModerate
}

// Info describes a preset for listings.
type Info struct {
	Name          Name                  `json:"name"`
	Description   string                `json:"description"`
	SecurityLevel string                `json:"securityLevel"`
	Isolation     domain.IsolationLevel `json:"isolation"`
}

// List describes every preset in Names order.
func List() []Info {
	return []Info{
		{Minimal, "Read-only access with no external connectivity", "Highest", IsolationFor(Minimal)},
		{ReadOnly, "Can read files and search but not modify", "High", IsolationFor(ReadOnly)},
		{Standard, "Balanced for typical development work", "Medium", IsolationFor(Standard)},
		{Full, "Maximum access for trusted operations", "Low", IsolationFor(Full)},
		{CICD, "For automated pipelines and deployments", "Medium", IsolationFor(CICD)},
		{Research, "For analysis and exploration tasks", "Medium-High", IsolationFor(Research)},
		{CodeGeneration, "For writing code with guardrails", "Medium", IsolationFor(CodeGeneration)},
	}
}

// Custom merges a YAML document of overrides onto the named preset. Mappings
// are merged key by key; lists and scalars in the overrides replace the base
// value. Unknown keys are rejected.
func Custom(base string, overrides []byte) (*domain.PermissionMatrix, error) {
	m, err := Get(base)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(overrides)) == 0 {
		return m, nil
	}

	baseDoc, err := toMap(m)
	if err != nil {
		return nil, fmt.Errorf("custom preset: encode base: %w", err)
	}
	var over map[string]any
	if err := yaml.Unmarshal(overrides, &over); err != nil {
		return nil, fmt.Errorf("custom preset: parse overrides: %w", err)
	}

	merged, err := yaml.Marshal(deepMerge(baseDoc, over))
	if err != nil {
		return nil, fmt.Errorf("custom preset: encode merged: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(merged))
	dec.KnownFields(true)
	var out domain.PermissionMatrix
	if err := dec.Decode(&out); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("custom preset: decode merged: %w", err)
	}
	return &out, nil
}

func toMap(m *domain.PermissionMatrix) (map[string]any, error) {
	data, err := yaml.Marshal(m)
	if err != nil {
		return nil, err
	}
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func deepMerge(dst, src map[string]any) map[string]any {
	if dst == nil {
		dst = make(map[string]any, len(src))
	}
	for k, sv := range src {
		sm, srcIsMap := sv.(map[string]any)
		dm, dstIsMap := dst[k].(map[string]any)
		if srcIsMap && dstIsMap {
			dst[k] = deepMerge(dm, sm)
			continue
		}
		if sv != nil {
			dst[k] = sv
		}
	}
	return dst
}
