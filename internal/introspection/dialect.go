package introspection

import (
	"fmt"
	"strings"

	"rowgen/internal/sqlutil"

	sq "github.com/Masterminds/squirrel"
)

// Dialect identifies the catalog flavour a database exposes.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectMySQL    Dialect = "mysql"
	DialectSQLite   Dialect = "sqlite"
)

// ParseDialect maps a driver or dialect name to a Dialect.
func ParseDialect(name string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "postgres", "postgresql", "pg", "pgx":
		return DialectPostgres, nil
	case "mysql", "tidb":
		return DialectMySQL, nil
	case "sqlite", "sqlite3":
		return DialectSQLite, nil
	default:
		return "", fmt.Errorf("unsupported database driver %q (use postgres, mysql, or sqlite)", name)
	}
}

// Valid reports whether d is a known dialect.
func (d Dialect) Valid() bool {
	switch d {
	case DialectPostgres, DialectMySQL, DialectSQLite:
		return true
	default:
		return false
	}
}

// DriverName returns the database/sql driver name registered for d.
func (d Dialect) DriverName() string {
	switch d {
	case DialectPostgres:
		return "pgx"
	case DialectSQLite:
		return "sqlite3"
	default:
		return "mysql"
	}
}

// DefaultSchema returns the schema read when none is configured.
// MySQL has no default: the database name must be given.
func (d Dialect) DefaultSchema() string {
	switch d {
	case DialectPostgres:
		return "public"
	case DialectSQLite:
		return "main"
	default:
		return ""
	}
}

// tablesQuery selects (name, type, comment) for every table, ordered by name.
func tablesQuery(dialect Dialect, schemaName string, includeViews bool) sq.SelectBuilder {
	switch dialect {
	case DialectPostgres:
		tableTypes := []string{"BASE TABLE"}
		if includeViews {
			tableTypes = append(tableTypes, "VIEW")
		}
		return sq.Select(
			"table_name",
			"table_type",
			"obj_description(format('%I.%I', table_schema, table_name)::regclass, 'pg_class')",
		).
			From("information_schema.tables").
			Where(sq.Eq{"table_schema": schemaName}).
			Where(sq.Eq{"table_type": tableTypes}).
			OrderBy("table_name").
			PlaceholderFormat(placeholders(dialect))
	case DialectSQLite:
		tableTypes := []string{"table"}
		if includeViews {
			tableTypes = append(tableTypes, "view")
		}
		return sq.Select("name", "type", "NULL").
			From(sqlutil.QuoteANSIIdentifier(schemaName) + ".sqlite_master").
			Where(sq.Eq{"type": tableTypes}).
			Where(sq.NotLike{"name": "sqlite_%"}).
			OrderBy("name").
			PlaceholderFormat(placeholders(dialect))
	default:
		tableTypes := []string{"BASE TABLE"}
		if includeViews {
			tableTypes = append(tableTypes, "VIEW")
		}
		return sq.Select("TABLE_NAME", "TABLE_TYPE", "TABLE_COMMENT").
			From("INFORMATION_SCHEMA.TABLES").
			Where(sq.Eq{"TABLE_SCHEMA": schemaName}).
			Where(sq.Eq{"TABLE_TYPE": tableTypes}).
			OrderBy("TABLE_NAME").
			PlaceholderFormat(placeholders(dialect))
	}
}

// columnsQuery selects (name, data type, full type, nullable YES/NO, default, comment)
// for every column of a table, ordered by declaration position.
func columnsQuery(dialect Dialect, schemaName, tableName string) sq.SelectBuilder {
	switch dialect {
	case DialectPostgres:
		return sq.Select(
			"c.column_name",
			"c.data_type",
			"c.udt_name",
			"c.is_nullable",
			"c.column_default",
			"col_description(format('%I.%I', c.table_schema, c.table_name)::regclass, c.ordinal_position)",
		).
			From("information_schema.columns c").
			Where(sq.Eq{"c.table_schema": schemaName}).
			Where(sq.Eq{"c.table_name": tableName}).
			OrderBy("c.ordinal_position").
			PlaceholderFormat(placeholders(dialect))
	case DialectSQLite:
		return sq.Select(
			"name",
			"type",
			"type",
			`CASE WHEN "notnull" = 0 THEN 'YES' ELSE 'NO' END`,
			"dflt_value",
			"NULL",
		).
			From("pragma_table_info").
			Where(sq.Eq{"arg": tableName}).
			Where(sq.Eq{"schema": schemaName}).
			OrderBy("cid").
			PlaceholderFormat(placeholders(dialect))
	default:
		return sq.Select(
			"COLUMN_NAME",
			"DATA_TYPE",
			"COLUMN_TYPE",
			"IS_NULLABLE",
			"COLUMN_DEFAULT",
			"COLUMN_COMMENT",
		).
			From("INFORMATION_SCHEMA.COLUMNS").
			Where(sq.Eq{"TABLE_SCHEMA": schemaName}).
			Where(sq.Eq{"TABLE_NAME": tableName}).
			OrderBy("ORDINAL_POSITION").
			PlaceholderFormat(placeholders(dialect))
	}
}

// sourceType derives the type-mapping key for a column from its catalog values.
//   - postgres: udt_name, with arrays ("_int4") reported as "int4[]"
//   - mysql: DATA_TYPE, "tinyint(1)" as "bool", unsigned integers as "<type> unsigned"
//   - sqlite: declared type without size specifiers; untyped columns as "text"
func sourceType(dialect Dialect, dataType, columnType string) string {
	dataType = strings.ToLower(strings.TrimSpace(dataType))
	columnType = strings.ToLower(strings.TrimSpace(columnType))

	switch dialect {
	case DialectPostgres:
		if columnType == "" {
			return dataType
		}
		if dataType == "array" {
			return strings.TrimPrefix(columnType, "_") + "[]"
		}
		return columnType
	case DialectSQLite:
		base := stripTypeModifiers(dataType)
		if base == "" {
			return "text"
		}
		return base
	default:
		if strings.HasPrefix(columnType, "tinyint(1)") {
			return "bool"
		}
		if strings.Contains(columnType, "unsigned") && isMySQLInteger(dataType) {
			return dataType + " unsigned"
		}
		return dataType
	}
}

// stripTypeModifiers removes size specifiers like (10,2) or (255).
func stripTypeModifiers(sqlType string) string {
	if idx := strings.Index(sqlType, "("); idx != -1 {
		sqlType = sqlType[:idx]
	}
	return strings.TrimSpace(sqlType)
}

func isMySQLInteger(dataType string) bool {
	switch dataType {
	case "tinyint", "smallint", "mediumint", "int", "integer", "bigint":
		return true
	default:
		return false
	}
}
