// Package schemafilter applies allow/deny filters to schema snapshots.
package schemafilter

import (
	"path"
	"slices"
	"strings"

	"rowgen/internal/introspection"
)

// Config controls allow/deny filters for tables and columns.
type Config struct {
	AllowTables      []string            `mapstructure:"allow_tables"`
	DenyTables       []string            `mapstructure:"deny_tables"`
	ScanViewsEnabled bool                `mapstructure:"scan_views_enabled"`
	AllowColumns     map[string][]string `mapstructure:"allow_columns"`
	DenyColumns      map[string][]string `mapstructure:"deny_columns"`
	// KeepEmptyTables keeps tables whose columns were all filtered out; they
	// are emitted as structs with an empty body.
	KeepEmptyTables bool `mapstructure:"keep_empty_tables"`
}

// Apply filters tables and columns in place, preserving their order.
// Missing allow lists default to allow-all; deny rules always win.
func Apply(schema *introspection.Schema, cfg Config) {
	if schema == nil {
		return
	}

	filtered := make([]introspection.Table, 0, len(schema.Tables))
	for _, table := range schema.Tables {
		if table.IsView && !cfg.ScanViewsEnabled {
			continue
		}
		if !TableAllowed(table.Name, cfg) {
			continue
		}

		hadColumns := len(table.Columns) > 0
		columns := make([]introspection.Column, 0, len(table.Columns))
		for _, column := range table.Columns {
			if !columnAllowed(table.Name, column.Name, cfg.AllowColumns, cfg.DenyColumns) {
				continue
			}
			columns = append(columns, column)
		}
		if hadColumns && len(columns) == 0 && !cfg.KeepEmptyTables {
			continue
		}
		table.Columns = columns
		filtered = append(filtered, table)
	}

	if len(filtered) == 0 {
		schema.Tables = nil
		return
	}
	schema.Tables = filtered
}

// TableAllowed reports whether a table passes the table allow/deny lists.
func TableAllowed(table string, cfg Config) bool {
	if matchesAny(table, cfg.DenyTables) {
		return false
	}
	if len(cfg.AllowTables) == 0 {
		return true
	}
	return matchesAny(table, cfg.AllowTables)
}

func columnAllowed(table, column string, allow, deny map[string][]string) bool {
	denyPatterns := mergePatterns(deny, table)
	if matchesAny(column, denyPatterns) {
		return false
	}
	allowPatterns := mergePatterns(allow, table)
	if len(allowPatterns) == 0 {
		return true
	}
	return matchesAny(column, allowPatterns)
}

func mergePatterns(patterns map[string][]string, table string) []string {
	if patterns == nil {
		return nil
	}
	combined := append([]string{}, patterns["*"]...)
	combined = append(combined, patterns[table]...)
	return slices.Compact(combined)
}

func matchesAny(value string, patterns []string) bool {
	value = strings.ToLower(value)
	for _, pattern := range patterns {
		if pattern == "" {
			continue
		}
		// matching should be case-insensitive
		ok, err := path.Match(strings.ToLower(pattern), value)
		if err != nil {
			continue
		}
		if ok {
			return true
		}
	}
	return false
}
