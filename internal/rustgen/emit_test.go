package rustgen

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rowgen/internal/introspection"
	"rowgen/internal/naming"
	"rowgen/internal/typemap"
)

func TestEmitUsersSerde(t *testing.T) {
	table := introspection.Table{
		Name: "users",
		Columns: []introspection.Column{
			{Name: "id", SourceType: "uuid"},
			{Name: "username", SourceType: "varchar"},
		},
	}

	s := Emit(table, typemap.Default(), StyleSerde)

	assert.Equal(t, "Users", s.Name)
	assert.Equal(t, "users", s.TableName)
	require.Len(t, s.Fields, 2)
	assert.Equal(t, "id", s.Fields[0].Name)
	assert.Equal(t, "uuid::Uuid", s.Fields[0].Type)
	assert.Equal(t, "username", s.Fields[1].Name)
	assert.Equal(t, "String", s.Fields[1].Type)
	for _, f := range s.Fields {
		assert.Empty(t, f.Rename, f.OriginalName)
	}
	assert.Equal(t, []string{
		"#[derive(Debug, Clone, PartialEq, Serialize, Deserialize)]",
		`#[serde(rename_all = "snake_case")]`,
		`#[serde(rename = "users")]`,
	}, s.Attributes)
}

func TestEmitPostsSqlx(t *testing.T) {
	table := introspection.Table{
		Name:    "posts",
		Columns: []introspection.Column{{Name: "user_id", SourceType: "uuid"}},
	}

	s := Emit(table, typemap.Default(), StyleSqlx)

	assert.Contains(t, s.Attributes, `#[sqlx(type_name = "posts")]`)
	assert.Contains(t, s.Attributes, "#[derive(Debug, Clone, PartialEq, FromRow)]")
	require.Len(t, s.Fields, 1)
	assert.Equal(t, "user_id", s.Fields[0].Name)
	assert.Empty(t, s.Fields[0].Rename)
}

func TestEmitBindsOriginalTableName(t *testing.T) {
	s := Emit(introspection.Table{Name: "user_profiles"}, typemap.Default(), StyleSerde)

	assert.Equal(t, "UserProfiles", s.Name)
	assert.Equal(t, `#[serde(rename = "user_profiles")]`, s.Attributes[2])
}

func TestEmitRenameAttribute(t *testing.T) {
	tests := []struct {
		name       string
		column     string
		style      Style
		wantRename string
	}{
		{name: "snake case", column: "created_at", style: StyleSerde},
		{name: "all caps", column: "USERID", style: StyleSerde},
		{name: "mixed case underscore", column: "User_Id", style: StyleSerde},
		{name: "camel case", column: "userName", style: StyleSerde, wantRename: `#[serde(rename = "userName")]`},
		{name: "dashed", column: "user-id", style: StyleSerde, wantRename: `#[serde(rename = "user-id")]`},
		{name: "camel case sqlx", column: "createdAt", style: StyleSqlx, wantRename: `#[sqlx(rename = "createdAt")]`},
		{name: "quote in name", column: `we"ird`, style: StyleSerde, wantRename: `#[serde(rename = "we\"ird")]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table := introspection.Table{
				Name:    "t",
				Columns: []introspection.Column{{Name: tt.column, SourceType: "text"}},
			}
			s := Emit(table, typemap.Default(), tt.style)
			require.Len(t, s.Fields, 1)
			assert.Equal(t, tt.wantRename, s.Fields[0].Rename)
			// Rename is present exactly when normalization changed more than case.
			assert.Equal(t, naming.ToFieldName(tt.column) != strings.ToLower(tt.column), s.Fields[0].Rename != "")
		})
	}
}

func TestEmitPreservesColumnOrder(t *testing.T) {
	names := []string{"zeta", "alpha", "Middle", "beta_2", "aLPHA"}
	table := introspection.Table{Name: "ordered"}
	for _, n := range names {
		table.Columns = append(table.Columns, introspection.Column{Name: n, SourceType: "int4"})
	}

	s := Emit(table, typemap.Default(), StyleSerde)

	got := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		got[i] = f.OriginalName
	}
	assert.Equal(t, names, got)
}

func TestEmitEmptyTable(t *testing.T) {
	s := Emit(introspection.Table{Name: "empty"}, typemap.Default(), StyleSerde)

	assert.Equal(t, "Empty", s.Name)
	assert.NotNil(t, s.Fields)
	assert.Empty(t, s.Fields)
	assert.Equal(t, "#[derive(Debug, Clone, PartialEq, Serialize, Deserialize)]\n"+
		"#[serde(rename_all = \"snake_case\")]\n"+
		"#[serde(rename = \"empty\")]\n"+
		"pub struct Empty {\n}\n", Render(s))
}

func TestEmitSpecialCase(t *testing.T) {
	mapping := typemap.New(map[string]string{"int4": "i32"}, "", map[string]string{"TBL_USR": "Account"})

	s := Emit(introspection.Table{Name: "tbl_usr"}, mapping, StyleSerde)

	assert.Equal(t, "Account", s.Name)
	assert.Equal(t, `#[serde(rename = "tbl_usr")]`, s.Attributes[2])
}

func TestFieldDoc(t *testing.T) {
	tests := []struct {
		name string
		col  introspection.Column
		want string
	}{
		{
			name: "plain",
			col:  introspection.Column{Name: "id", SourceType: "int8"},
			want: "Column: id, type: int8",
		},
		{
			name: "nullable",
			col:  introspection.Column{Name: "bio", SourceType: "text", IsNullable: true},
			want: "Column: bio, type: text, nullable",
		},
		{
			name: "default",
			col:  introspection.Column{Name: "created_at", SourceType: "timestamptz", HasDefault: true, ColumnDefault: "now()"},
			want: "Column: created_at, type: timestamptz, default: now()",
		},
		{
			name: "comment and multiline default",
			col: introspection.Column{
				Name: "state", SourceType: "text", IsNullable: true, Comment: "lifecycle state",
				HasDefault: true, ColumnDefault: "'new'::text\n  ",
			},
			want: "lifecycle state\nColumn: state, type: text, nullable, default: 'new'::text",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, fieldDoc(tt.col))
		})
	}
}

func TestEmitterEmitAll(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	namer := naming.New(naming.Config{SingularStructNames: true}, logger)
	emitter := NewEmitter(typemap.Default(), StyleSerde, namer, logger)

	structs := emitter.EmitAll([]introspection.Table{
		{Name: "users", Columns: []introspection.Column{{Name: "geom", SourceType: "geometry"}}},
		{Name: "user"},
		{Name: "orders"},
	})

	require.Len(t, structs, 3)
	assert.Equal(t, "User", structs[0].Name)
	assert.Equal(t, "User2", structs[1].Name)
	assert.Equal(t, "Order", structs[2].Name)
	assert.Equal(t, "String", structs[0].Fields[0].Type)
	assert.Contains(t, buf.String(), "no type mapping for column")
	assert.Contains(t, buf.String(), "source_type=geometry")
	assert.Equal(t, StyleSerde, emitter.Style())
}

func TestEmitInvalidIdentifiers(t *testing.T) {
	tests := []struct {
		name       string
		table      string
		column     string
		wantStruct string
		wantField  string
		wantRename string
	}{
		{name: "keyword table", table: "self", column: "id", wantStruct: "pub struct Self_ {", wantField: "    pub id: i32,"},
		{name: "leading digit", table: "2fa_codes", column: "1st", wantStruct: "pub struct _2faCodes {", wantField: "    pub _1st: i32,", wantRename: `#[serde(rename = "1st")]`},
		{name: "separators only", table: "___", column: "self", wantStruct: "pub struct Unnamed {", wantField: "    pub self_: i32,", wantRename: `#[serde(rename = "self")]`},
		{name: "raw keyword keeps binding", table: "t", column: "type", wantStruct: "pub struct T {", wantField: "    pub r#type: i32,"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table := introspection.Table{
				Name:    tt.table,
				Columns: []introspection.Column{{Name: tt.column, SourceType: "int4"}},
			}
			s := Emit(table, typemap.Default(), StyleSerde)
			require.Len(t, s.Fields, 1)
			assert.Equal(t, tt.wantRename, s.Fields[0].Rename)

			rendered := Render(s)
			assert.Contains(t, rendered, tt.wantStruct+"\n")
			assert.Contains(t, rendered, tt.wantField+"\n")
		})
	}
}

func TestEmitterWarnsOnFieldCollision(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	emitter := NewEmitter(typemap.Default(), StyleSerde, nil, logger)

	structs := emitter.EmitAll([]introspection.Table{
		{Name: "users", Columns: []introspection.Column{
			{Name: "userId", SourceType: "int4"},
			{Name: "user_id", SourceType: "int4"},
			{Name: "name", SourceType: "text"},
		}},
		{Name: "posts", Columns: []introspection.Column{
			{Name: "id", SourceType: "int4"},
		}},
	})

	require.Len(t, structs, 2)
	require.Len(t, structs[0].Fields, 3)
	assert.Equal(t, "user_id", structs[0].Fields[0].Name)
	assert.Equal(t, "user_id", structs[0].Fields[1].Name)
	out := buf.String()
	assert.Contains(t, out, "field name collision detected")
	assert.Contains(t, out, "table=users")
	assert.Contains(t, out, "existing_column=userId")
	assert.Contains(t, out, "new_column=user_id")
	assert.Equal(t, 1, strings.Count(out, "field name collision detected"))
}

func TestParseStyle(t *testing.T) {
	tests := []struct {
		input   string
		want    Style
		wantErr bool
	}{
		{input: "", want: StyleSerde},
		{input: "serde", want: StyleSerde},
		{input: "Serialization", want: StyleSerde},
		{input: "sqlx", want: StyleSqlx},
		{input: " query ", want: StyleSqlx},
		{input: "diesel", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseStyle(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
	assert.Equal(t, "sqlx", StyleSqlx.String())
	assert.Equal(t, "serde", StyleSerde.String())
}
