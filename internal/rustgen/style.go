package rustgen

import (
	"fmt"
	"strings"
)

// Style selects the family of attributes emitted on generated structs.
type Style int

const (
	// StyleSerde emits serde Serialize/Deserialize attributes (default).
	StyleSerde Style = iota
	// StyleSqlx emits sqlx FromRow query-mapping attributes.
	StyleSqlx
)

// ParseStyle parses a configured attribute style name.
func ParseStyle(name string) (Style, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "serde", "serialization":
		return StyleSerde, nil
	case "sqlx", "query", "query-mapping":
		return StyleSqlx, nil
	default:
		return StyleSerde, fmt.Errorf("unknown attribute style %q (use serde or sqlx)", name)
	}
}

// String returns the canonical style name.
func (s Style) String() string {
	if s == StyleSqlx {
		return "sqlx"
	}
	return "serde"
}

// headerAttributes returns the derive line, the field naming convention line,
// and the binding to the original table name, in that order.
func (s Style) headerAttributes(tableName string) []string {
	if s == StyleSqlx {
		return []string{
			"#[derive(Debug, Clone, PartialEq, FromRow)]",
			`#[sqlx(rename_all = "snake_case")]`,
			fmt.Sprintf("#[sqlx(type_name = %s)]", rustString(tableName)),
		}
	}
	return []string{
		"#[derive(Debug, Clone, PartialEq, Serialize, Deserialize)]",
		`#[serde(rename_all = "snake_case")]`,
		fmt.Sprintf("#[serde(rename = %s)]", rustString(tableName)),
	}
}

// renameAttribute binds a field to its original column name.
func (s Style) renameAttribute(columnName string) string {
	return fmt.Sprintf("#[%s(rename = %s)]", s, rustString(columnName))
}

// useDeclarations returns the imports the header attributes rely on.
func (s Style) useDeclarations() []string {
	if s == StyleSqlx {
		return []string{"use sqlx::FromRow;"}
	}
	return []string{"use serde::{Deserialize, Serialize};"}
}

// rustString renders s as a Rust string literal.
func rustString(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`, "\r", `\r`, "\t", `\t`)
	return `"` + r.Replace(s) + `"`
}
