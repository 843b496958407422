// Package introspection discovers table and column metadata from a database's
// catalog (information_schema for PostgreSQL and MySQL/TiDB, sqlite_master for
// SQLite) for use in struct generation.
package introspection

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"rowgen/internal/logging"

	sq "github.com/Masterminds/squirrel"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Column represents a database column
type Column struct {
	Name string
	// SourceType is the normalized type name used for type mapping,
	// e.g. "int4", "varchar", "int4[]" for arrays, "int unsigned".
	SourceType string
	// DataType and ColumnType hold the raw catalog values the SourceType was derived from.
	DataType      string
	ColumnType    string
	IsNullable    bool
	HasDefault    bool
	ColumnDefault string
	Comment       string
}

// Table represents a database table
type Table struct {
	Name    string
	IsView  bool
	Comment string
	Columns []Column
}

// Schema represents the introspected database schema
type Schema struct {
	// Name is the catalog scope that was introspected (schema or database name).
	Name    string
	Dialect Dialect
	Tables  []Table
}

// Options controls what IntrospectContext reads.
type Options struct {
	Dialect Dialect
	// Schema is the PostgreSQL schema, MySQL database, or SQLite schema to read.
	// Empty uses the dialect default.
	Schema       string
	IncludeViews bool
}

// Queryer provides query access for schema introspection.
type Queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// IntrospectContext queries the database catalog for tables (ordered by name)
// and their columns (ordered by declaration position).
func IntrospectContext(ctx context.Context, db Queryer, opts Options) (*Schema, error) {
	if !opts.Dialect.Valid() {
		return nil, fmt.Errorf("unsupported dialect %q", opts.Dialect)
	}
	schemaName := opts.Schema
	if schemaName == "" {
		schemaName = opts.Dialect.DefaultSchema()
	}
	if schemaName == "" {
		return nil, fmt.Errorf("a schema (database name) is required for %s", opts.Dialect)
	}

	attrs := []attribute.KeyValue{
		attribute.String("db.system", string(opts.Dialect)),
		attribute.String("db.name", schemaName),
	}
	if runID := logging.GetRunID(ctx); runID != "" {
		attrs = append(attrs, attribute.String("rowgen.run_id", runID))
	}
	ctx, span := startSpan(ctx, "introspection.build_schema", attrs...)
	defer span.End()
	logger := logging.FromContext(ctx)

	schema := &Schema{
		Name:    schemaName,
		Dialect: opts.Dialect,
		Tables:  []Table{},
	}

	tables, err := getTables(ctx, db, opts.Dialect, schemaName, opts.IncludeViews)
	if err != nil {
		recordSpanError(span, err)
		return nil, fmt.Errorf("failed to get tables: %w", err)
	}

	for _, tableInfo := range tables {
		columns, err := getColumns(ctx, db, opts.Dialect, schemaName, tableInfo.Name)
		if err != nil {
			recordSpanError(span, err)
			return nil, fmt.Errorf("failed to get columns for %s: %w", tableInfo.Name, err)
		}
		logger.WithFields(slog.String("table", tableInfo.Name)).Debug("read table columns",
			slog.Int("columns", len(columns)),
			slog.Bool("view", tableInfo.IsView),
		)
		schema.Tables = append(schema.Tables, Table{
			Name:    tableInfo.Name,
			IsView:  tableInfo.IsView,
			Comment: tableInfo.Comment,
			Columns: columns,
		})
	}

	span.SetAttributes(attribute.Int("db.tables", len(schema.Tables)))
	return schema, nil
}

type tableInfo struct {
	Name    string
	IsView  bool
	Comment string
}

func getTables(ctx context.Context, db Queryer, dialect Dialect, schemaName string, includeViews bool) ([]tableInfo, error) {
	ctx, span := startSpan(ctx, "introspection.get_tables",
		attribute.String("db.name", schemaName),
	)
	defer span.End()

	query, args, err := tablesQuery(dialect, schemaName, includeViews).ToSql()
	if err != nil {
		recordSpanError(span, err)
		return nil, err
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		recordSpanError(span, err)
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()

	var tables []tableInfo
	for rows.Next() {
		var tableName string
		var tableType string
		var tableComment sql.NullString
		if err := rows.Scan(&tableName, &tableType, &tableComment); err != nil {
			recordSpanError(span, err)
			return nil, err
		}
		comment := ""
		if tableComment.Valid {
			comment = strings.TrimSpace(tableComment.String)
		}
		tables = append(tables, tableInfo{
			Name:    tableName,
			IsView:  strings.EqualFold(tableType, "VIEW"),
			Comment: comment,
		})
	}

	if err := rows.Err(); err != nil {
		recordSpanError(span, err)
		return nil, err
	}
	return tables, nil
}

func getColumns(ctx context.Context, db Queryer, dialect Dialect, schemaName, tableName string) ([]Column, error) {
	ctx, span := startSpan(ctx, "introspection.get_columns",
		attribute.String("db.name", schemaName),
		attribute.String("db.table", tableName),
	)
	defer span.End()

	query, args, err := columnsQuery(dialect, schemaName, tableName).ToSql()
	if err != nil {
		recordSpanError(span, err)
		return nil, err
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		recordSpanError(span, err)
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()

	columns := []Column{}
	for rows.Next() {
		var col Column
		var isNullable string
		var columnType sql.NullString
		var columnDefault sql.NullString
		var columnComment sql.NullString
		if err := rows.Scan(&col.Name, &col.DataType, &columnType, &isNullable, &columnDefault, &columnComment); err != nil {
			recordSpanError(span, err)
			return nil, err
		}
		if columnType.Valid {
			col.ColumnType = columnType.String
		}
		col.IsNullable = strings.ToUpper(isNullable) == "YES"
		if columnDefault.Valid {
			col.ColumnDefault = columnDefault.String
			col.HasDefault = true
		}
		if columnComment.Valid {
			col.Comment = strings.TrimSpace(columnComment.String)
		}
		col.SourceType = sourceType(dialect, col.DataType, col.ColumnType)
		columns = append(columns, col)
	}

	if err := rows.Err(); err != nil {
		recordSpanError(span, err)
		return nil, err
	}
	return columns, nil
}

func placeholders(dialect Dialect) sq.PlaceholderFormat {
	if dialect == DialectPostgres {
		return sq.Dollar
	}
	return sq.Question
}

func startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	tracer := otel.Tracer("rowgen/introspection")
	ctx, span := tracer.Start(ctx, name)
	if len(attrs) > 0 {
		span.SetAttributes(attrs...)
	}
	return ctx, span
}

func recordSpanError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
