// Package typemap holds the SQL type to Rust type dictionary and resolves
// column types (including arrays and nullability) against it.
package typemap

import (
	"maps"
	"strings"
)

const (
	// FallbackType is used for source types the mapping does not know.
	FallbackType = "String"

	arrayMarker = "[]"
)

// Mapping maps source (SQL) type names to Rust type expressions.
// A Mapping is immutable once built and safe to share between goroutines.
type Mapping struct {
	// TypeMap keys are matched case-sensitively.
	TypeMap map[string]string `json:"type_map" yaml:"type_map"`
	// Default replaces FallbackType for unknown source types when set.
	Default string `json:"default,omitempty" yaml:"default,omitempty"`
	// SpecialCases maps lowercased table names to struct name overrides.
	SpecialCases map[string]string `json:"special_cases,omitempty" yaml:"special_cases,omitempty"`
}

// New builds a Mapping from its parts, copying the maps and lowercasing
// special-case keys so lookups are case-insensitive.
func New(typeMap map[string]string, fallback string, specialCases map[string]string) *Mapping {
	m := &Mapping{
		TypeMap:      make(map[string]string, len(typeMap)),
		Default:      strings.TrimSpace(fallback),
		SpecialCases: make(map[string]string, len(specialCases)),
	}
	maps.Copy(m.TypeMap, typeMap)
	for table, name := range specialCases {
		m.SpecialCases[strings.ToLower(table)] = name
	}
	return m
}

// Resolve returns the Rust type for a column.
// Array types ("int4[]") resolve their element as non-nullable and wrap it in
// Vec before any Option wrapping, so a nullable int4[] is Option<Vec<i32>>.
// Unknown types degrade to Default, then FallbackType; resolution never fails.
func (m *Mapping) Resolve(sourceType string, nullable bool) string {
	var resolved string
	if base, ok := strings.CutSuffix(sourceType, arrayMarker); ok {
		resolved = "Vec<" + m.Resolve(base, false) + ">"
	} else {
		resolved = m.lookup(sourceType)
	}
	if nullable {
		return "Option<" + resolved + ">"
	}
	return resolved
}

// Known reports whether the element type of sourceType has an explicit entry.
func (m *Mapping) Known(sourceType string) bool {
	base := sourceType
	for {
		trimmed, ok := strings.CutSuffix(base, arrayMarker)
		if !ok {
			break
		}
		base = trimmed
	}
	_, ok := m.TypeMap[base]
	return ok
}

func (m *Mapping) lookup(sourceType string) string {
	if target, ok := m.TypeMap[sourceType]; ok {
		return target
	}
	if m.Default != "" {
		return m.Default
	}
	return FallbackType
}

// Merge returns a new Mapping with typeOverrides and specialCases layered
// over m. The receiver is left untouched.
func (m *Mapping) Merge(typeOverrides map[string]string, specialCases map[string]string) *Mapping {
	merged := New(m.TypeMap, m.Default, m.SpecialCases)
	maps.Copy(merged.TypeMap, typeOverrides)
	for table, name := range specialCases {
		merged.SpecialCases[strings.ToLower(table)] = name
	}
	return merged
}
