// Package rustgen turns introspected tables into Rust struct declarations and
// renders them as a single source document.
package rustgen

import (
	"fmt"
	"log/slog"
	"strings"

	"rowgen/internal/introspection"
	"rowgen/internal/naming"
	"rowgen/internal/typemap"
)

// Field is one generated struct field.
type Field struct {
	// OriginalName is the column name as reported by the database.
	OriginalName string
	// Name is the snake_case field name, before keyword escaping.
	Name string
	Type string
	// Doc holds the doc comment text, one line per "\n"-separated entry.
	Doc string
	// Rename is the rename attribute line, empty when the field name already
	// matches the column name.
	Rename string
}

// Struct is one generated struct declaration.
type Struct struct {
	Name string
	// TableName is the original table name the struct is bound to.
	TableName  string
	Doc        string
	Attributes []string
	Fields     []Field
}

// Emit builds the struct declaration for a table. Fields follow column order.
func Emit(table introspection.Table, mapping *typemap.Mapping, style Style) Struct {
	name := naming.EscapeTypeName(naming.ToStructName(table.Name, mapping.SpecialCases))
	return emitStruct(table, name, mapping, style)
}

func emitStruct(table introspection.Table, structName string, mapping *typemap.Mapping, style Style) Struct {
	s := Struct{
		Name:       structName,
		TableName:  table.Name,
		Doc:        table.Comment,
		Attributes: style.headerAttributes(table.Name),
		Fields:     make([]Field, 0, len(table.Columns)),
	}
	for _, col := range table.Columns {
		s.Fields = append(s.Fields, emitField(col, mapping, style))
	}
	return s
}

func emitField(col introspection.Column, mapping *typemap.Mapping, style Style) Field {
	field := Field{
		OriginalName: col.Name,
		Name:         naming.ToFieldName(col.Name),
		Type:         mapping.Resolve(col.SourceType, col.IsNullable),
		Doc:          fieldDoc(col),
	}
	if field.Name != strings.ToLower(col.Name) || boundName(field.Name) != field.Name {
		field.Rename = style.renameAttribute(col.Name)
	}
	return field
}

// boundName is the key serde and sqlx derive for a rendered field, which is
// the escaped identifier without its r# prefix.
func boundName(name string) string {
	return strings.TrimPrefix(naming.EscapeIdent(name), "r#")
}

// fieldDoc describes the column: optional comment, then name, source type,
// nullability, and default expression.
func fieldDoc(col introspection.Column) string {
	var b strings.Builder
	if col.Comment != "" {
		b.WriteString(col.Comment)
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "Column: %s, type: %s", col.Name, col.SourceType)
	if col.IsNullable {
		b.WriteString(", nullable")
	}
	if col.HasDefault {
		b.WriteString(", default: ")
		b.WriteString(strings.Join(strings.Fields(col.ColumnDefault), " "))
	}
	return b.String()
}

// Emitter emits whole schemas with the configured naming policy.
type Emitter struct {
	mapping *typemap.Mapping
	style   Style
	namer   *naming.Namer
	logger  *slog.Logger
}

// NewEmitter creates an Emitter. A nil namer uses the default naming policy.
func NewEmitter(mapping *typemap.Mapping, style Style, namer *naming.Namer, logger *slog.Logger) *Emitter {
	if namer == nil {
		namer = naming.Default()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Emitter{
		mapping: mapping,
		style:   style,
		namer:   namer,
		logger:  logger,
	}
}

// Style returns the attribute style the emitter was built with.
func (e *Emitter) Style() Style {
	return e.style
}

// EmitAll emits one struct per table in input order. Struct names that
// collide are suffixed (see naming.Namer.StructNames).
func (e *Emitter) EmitAll(tables []introspection.Table) []Struct {
	tableNames := make([]string, len(tables))
	for i, table := range tables {
		tableNames[i] = table.Name
	}
	structNames := e.namer.StructNames(tableNames, e.mapping.SpecialCases)

	structs := make([]Struct, len(tables))
	for i, table := range tables {
		structs[i] = emitStruct(table, structNames[i], e.mapping, e.style)
		e.warnFieldCollisions(structs[i])
		for _, col := range table.Columns {
			if !e.mapping.Known(col.SourceType) {
				e.logger.Debug("no type mapping for column, using fallback",
					slog.String("table", table.Name),
					slog.String("column", col.Name),
					slog.String("source_type", col.SourceType),
					slog.String("rust_type", e.mapping.Resolve(col.SourceType, false)),
				)
			}
		}
	}
	return structs
}

// warnFieldCollisions logs columns that normalize to the same field name.
// Both fields are still emitted; the struct will not compile until one of the
// columns is renamed or filtered out.
func (e *Emitter) warnFieldCollisions(s Struct) {
	seen := make(map[string]string, len(s.Fields))
	for _, field := range s.Fields {
		name := naming.EscapeIdent(field.Name)
		if first, ok := seen[name]; ok {
			e.logger.Warn("field name collision detected",
				slog.String("table", s.TableName),
				slog.String("field", name),
				slog.String("existing_column", first),
				slog.String("new_column", field.OriginalName),
			)
			continue
		}
		seen[name] = field.OriginalName
	}
}
