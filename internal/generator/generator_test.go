package generator

import (
	"bytes"
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"rowgen/internal/config"
	"rowgen/internal/introspection"
	"rowgen/internal/logging"
	"rowgen/internal/naming"
	"rowgen/internal/observability"
	"rowgen/internal/schemafilter"
	"rowgen/internal/typemap"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		Database: config.DatabaseConfig{Driver: "postgres", Database: "shop"},
		Output:   config.OutputConfig{Path: "models.rs", Style: "serde"},
		Naming:   naming.DefaultConfig(),
		SchemaFilters: schemafilter.Config{
			AllowTables:  []string{"*"},
			AllowColumns: map[string][]string{"*": {"*"}},
		},
	}
}

func testLogger(buf *bytes.Buffer) *logging.Logger {
	return logging.NewLogger(logging.Config{Level: "debug", Output: buf})
}

func expectShopSchema(mock sqlmock.Sqlmock) {
	mock.ExpectQuery(`FROM information_schema.tables`).
		WithArgs("public", "BASE TABLE").
		WillReturnRows(sqlmock.NewRows([]string{"table_name", "table_type", "comment"}).
			AddRow("audit_log", "BASE TABLE", nil).
			AddRow("users", "BASE TABLE", "registered accounts"))
	mock.ExpectQuery(`FROM information_schema.columns c`).
		WithArgs("public", "audit_log").
		WillReturnRows(sqlmock.NewRows([]string{"column_name", "data_type", "udt_name", "is_nullable", "column_default", "comment"}).
			AddRow("id", "bigint", "int8", "NO", nil, nil))
	mock.ExpectQuery(`FROM information_schema.columns c`).
		WithArgs("public", "users").
		WillReturnRows(sqlmock.NewRows([]string{"column_name", "data_type", "udt_name", "is_nullable", "column_default", "comment"}).
			AddRow("id", "uuid", "uuid", "NO", "gen_random_uuid()", nil).
			AddRow("displayName", "text", "text", "YES", nil, nil).
			AddRow("mood", "USER-DEFINED", "mood", "YES", nil, nil))
}

func TestNew_RejectsBadInput(t *testing.T) {
	var buf bytes.Buffer

	_, err := New(testConfig(), nil, testLogger(&buf))
	assert.Error(t, err)

	cfg := testConfig()
	cfg.Output.Style = "diesel"
	_, err = New(cfg, typemap.Default(), testLogger(&buf))
	assert.Error(t, err)
}

func TestGenerate_FiltersAndCounts(t *testing.T) {
	var buf bytes.Buffer
	cfg := testConfig()
	cfg.SchemaFilters.DenyTables = []string{"audit_*"}

	g, err := New(cfg, typemap.Default(), testLogger(&buf))
	require.NoError(t, err)

	schema := &introspection.Schema{
		Name:    "public",
		Dialect: introspection.DialectPostgres,
		Tables: []introspection.Table{
			{Name: "audit_log", Columns: []introspection.Column{{Name: "id", SourceType: "int8"}}},
			{Name: "user_profiles", Columns: []introspection.Column{
				{Name: "id", SourceType: "int4"},
				{Name: "geom", SourceType: "geometry", IsNullable: true},
			}},
		},
	}

	doc, stats := g.Generate(context.Background(), schema)

	assert.Equal(t, Stats{Tables: 1, Fields: 2, FallbackColumns: 1}, stats)
	assert.NotContains(t, doc, "AuditLog")
	assert.Contains(t, doc, "pub struct UserProfiles {")
	assert.Contains(t, doc, "pub id: i32,")
	assert.Contains(t, doc, "pub geom: Option<String>,")
	assert.Contains(t, buf.String(), "no type mapping for column, using fallback")
}

func TestGenerate_EmptySchema(t *testing.T) {
	var buf bytes.Buffer
	g, err := New(testConfig(), typemap.Default(), testLogger(&buf))
	require.NoError(t, err)

	doc, stats := g.Generate(context.Background(), &introspection.Schema{Name: "public"})
	assert.Equal(t, Stats{}, stats)
	assert.Contains(t, doc, "Do not edit by hand.")
	assert.NotContains(t, doc, "pub struct")
}

func TestRun_WritesStdout(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	expectShopSchema(mock)

	cfg := testConfig()
	cfg.Output.Stdout = true

	var logs, out bytes.Buffer
	g, err := New(cfg, typemap.Default(), testLogger(&logs), WithStdout(&out))
	require.NoError(t, err)

	require.NoError(t, g.Run(context.Background(), db))
	require.NoError(t, mock.ExpectationsWereMet())

	doc := out.String()
	assert.Contains(t, doc, "pub struct AuditLog {")
	assert.Contains(t, doc, "/// registered accounts")
	assert.Contains(t, doc, "pub struct Users {")
	assert.Contains(t, doc, "pub id: uuid::Uuid,")
	assert.Contains(t, doc, "#[serde(rename = \"displayName\")]")
	assert.Contains(t, doc, "pub display_name: Option<String>,")
	assert.Less(t, bytes.Index(out.Bytes(), []byte("AuditLog")), bytes.Index(out.Bytes(), []byte("Users")))

	assert.Contains(t, logs.String(), "run_id=")
	assert.Contains(t, logs.String(), "output=stdout")
	assert.Contains(t, logs.String(), "fallback_columns=1")
}

func TestRun_WritesFileAtomically(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	expectShopSchema(mock)

	dir := t.TempDir()
	cfg := testConfig()
	cfg.Output.Path = filepath.Join(dir, "src", "db", "models.rs")
	cfg.Output.Style = "sqlx"

	metrics, err := observability.InitGenerationMetrics()
	require.NoError(t, err)

	var logs bytes.Buffer
	g, err := New(cfg, typemap.Default(), testLogger(&logs), WithMetrics(metrics))
	require.NoError(t, err)
	require.NoError(t, g.Run(context.Background(), db))

	data, err := os.ReadFile(cfg.Output.Path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "#[derive(Debug, Clone, PartialEq, FromRow)]")
	assert.Contains(t, string(data), "#[sqlx(rename = \"displayName\")]")

	entries, err := os.ReadDir(filepath.Dir(cfg.Output.Path))
	require.NoError(t, err)
	require.Len(t, entries, 1, "temp files must not be left behind")
	assert.Equal(t, "models.rs", entries[0].Name())

	info, err := os.Stat(cfg.Output.Path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), info.Mode().Perm())
}

func TestRun_IntrospectionError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	mock.ExpectQuery(`FROM information_schema.tables`).WillReturnError(sql.ErrConnDone)

	dir := t.TempDir()
	cfg := testConfig()
	cfg.Output.Path = filepath.Join(dir, "models.rs")

	var logs bytes.Buffer
	g, err := New(cfg, typemap.Default(), testLogger(&logs))
	require.NoError(t, err)

	err = g.Run(context.Background(), db)
	require.Error(t, err)
	assert.ErrorIs(t, err, sql.ErrConnDone)
	assert.Contains(t, err.Error(), "failed to introspect schema public")

	_, statErr := os.Stat(cfg.Output.Path)
	assert.True(t, os.IsNotExist(statErr), "no output on failure")
}

func TestRun_MySQLRequiresSchema(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	cfg := testConfig()
	cfg.Database = config.DatabaseConfig{Driver: "mysql"}

	var logs bytes.Buffer
	g, err := New(cfg, typemap.Default(), testLogger(&logs))
	require.NoError(t, err)
	assert.Error(t, g.Run(context.Background(), db))
}

func TestWriteFileAtomic_ReplacesExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "models.rs")
	require.NoError(t, os.WriteFile(path, []byte("old"), 0o600))

	require.NoError(t, writeFileAtomic(path, []byte("new")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))
}
