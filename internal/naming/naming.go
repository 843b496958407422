package naming

import (
	"log/slog"
	"strings"
)

// Namer applies the configured naming policy on top of ToStructName and
// ToFieldName. A Namer is safe to share once built; collision tracking lives
// in a per-run CollisionResolver.
type Namer struct {
	config Config
	logger *slog.Logger
}

// New creates a Namer with the given configuration
func New(cfg Config, logger *slog.Logger) *Namer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Namer{
		config: cfg,
		logger: logger,
	}
}

// Default returns a Namer with default configuration
func Default() *Namer {
	return New(DefaultConfig(), nil)
}

// StructName converts a table name to a struct name.
// Special cases are returned verbatim; only derived names are singularized or
// suffixed, then escaped so they compile ("2fa_codes" -> "_2faCodes").
func (n *Namer) StructName(tableName string, specialCases map[string]string) string {
	if override, ok := specialCases[strings.ToLower(tableName)]; ok {
		return override
	}
	name := ToStructName(tableName, nil)
	if name == "" {
		return EscapeTypeName(name)
	}
	if n.config.SingularStructNames {
		name = n.singularizeLastWord(name)
	}
	return EscapeTypeName(name + n.config.StructSuffix)
}

// FieldName converts a column name to a struct field name.
// Example: "createdAt" -> "created_at"
func (n *Namer) FieldName(columnName string) string {
	return ToFieldName(columnName)
}

// StructNames resolves struct names for tables in order, suffixing later
// tables whose names collide with an earlier one ("Users", "Users2").
func (n *Namer) StructNames(tableNames []string, specialCases map[string]string) []string {
	resolver := NewCollisionResolver(n.logger)
	names := make([]string, len(tableNames))
	for i, table := range tableNames {
		names[i] = resolver.Register(n.StructName(table, specialCases), table)
	}
	return names
}
