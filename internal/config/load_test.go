package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Load() parses pflag.CommandLine, so these tests drive finish() with a
// viper instance built the same way.
func newTestViper(t *testing.T, yaml string) *viper.Viper {
	t.Helper()
	v := viper.New()
	setDefaults(v)
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(strings.NewReader(yaml)))
	return v
}

func TestFinish_DecodesConfigFile(t *testing.T) {
	v := newTestViper(t, `
database:
  driver: mysql
  host: db.internal
  port: 4000
  database: shop
  connection_timeout: 30s
output:
  path: gen/models.rs
  style: sqlx
type_mapping:
  type_overrides:
    geometry: geo_types::Geometry
  special_cases:
    tbl_usr: Account
naming:
  singular_struct_names: true
schema_filters:
  deny_tables: "tmp_*, audit_*"
observability:
  metrics_enabled: true
  logging:
    level: debug
    exports_enabled: true
  logs:
    endpoint: logs.internal:4317
`)

	cfg, err := finish(v)
	require.NoError(t, err)

	assert.Equal(t, "mysql", cfg.Database.Driver)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 4000, cfg.Database.Port)
	assert.Equal(t, 30*time.Second, cfg.Database.ConnectionTimeout)
	assert.Equal(t, "gen/models.rs", cfg.Output.Path)
	assert.Equal(t, "sqlx", cfg.Output.Style)
	assert.Equal(t, map[string]string{"geometry": "geo_types::Geometry"}, cfg.TypeMapping.TypeOverrides)
	assert.Equal(t, map[string]string{"tbl_usr": "Account"}, cfg.TypeMapping.SpecialCases)
	assert.True(t, cfg.Naming.SingularStructNames)
	assert.Equal(t, []string{"tmp_*", "audit_*"}, cfg.SchemaFilters.DenyTables)
	assert.Equal(t, []string{"*"}, cfg.SchemaFilters.AllowTables)
	assert.Equal(t, "debug", cfg.Observability.Logging.Level)
	assert.Equal(t, "text", cfg.Observability.Logging.Format)
	assert.True(t, cfg.Observability.MetricsEnabled)
	assert.Equal(t, "rowgen.prom", cfg.Observability.MetricsTextfile)
	assert.True(t, cfg.Observability.Logging.ExportsEnabled)
	assert.Equal(t, "logs.internal:4317", cfg.Observability.GetLogsConfig().Endpoint)
	assert.False(t, cfg.Validate().HasErrors(), cfg.Validate().Error())
}

func TestFinish_DefaultsAreValid(t *testing.T) {
	v := newTestViper(t, "database:\n  database: shop\n")

	cfg, err := finish(v)
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "serde", cfg.Output.Style)
	assert.Equal(t, "rowgen.types.json", cfg.TypeMapping.Path)
	assert.Equal(t, 2*time.Second, cfg.Database.ConnectionRetryInterval)
	result := cfg.Validate()
	assert.False(t, result.HasErrors(), result.Error())
}

func TestFinish_RejectsUnknownKeys(t *testing.T) {
	v := newTestViper(t, `
server:
  port: 8080
`)

	_, err := finish(v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server")
}

func TestFinish_ReadsSecretFiles(t *testing.T) {
	dir := t.TempDir()
	dsnPath := filepath.Join(dir, "dsn")
	passwordPath := filepath.Join(dir, "password")
	require.NoError(t, os.WriteFile(dsnPath, []byte("postgres://app@db/shop\n"), 0o600))
	require.NoError(t, os.WriteFile(passwordPath, []byte("hunter2\n"), 0o600))

	v := newTestViper(t, "database:\n  dsn_file: "+dsnPath+"\n  password_file: "+passwordPath+"\n")

	cfg, err := finish(v)
	require.NoError(t, err)
	assert.Equal(t, "postgres://app@db/shop", cfg.Database.ConnectionString)
	assert.Equal(t, "hunter2", cfg.Database.Password)
}

func TestFinish_ExplicitDSNWinsOverFile(t *testing.T) {
	v := newTestViper(t, "database:\n  dsn: postgres://inline@db/shop\n  dsn_file: /does/not/exist\n")

	cfg, err := finish(v)
	require.NoError(t, err)
	assert.Equal(t, "postgres://inline@db/shop", cfg.Database.ConnectionString)
}

func TestFinish_MissingSecretFile(t *testing.T) {
	v := newTestViper(t, "database:\n  password_file: "+filepath.Join(t.TempDir(), "missing")+"\n")

	_, err := finish(v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "password file")
}

func TestValidateSingleStdinFileSource(t *testing.T) {
	t.Run("none", func(t *testing.T) {
		v := viper.New()
		v.Set("database.dsn_file", "/tmp/dsn")
		v.Set("database.password_file", "/tmp/password")

		assert.NoError(t, validateSingleStdinFileSource(v))
	})

	t.Run("one", func(t *testing.T) {
		v := viper.New()
		v.Set("database.dsn_file", "@-")
		v.Set("database.password_file", "/tmp/password")

		assert.NoError(t, validateSingleStdinFileSource(v))
	})

	t.Run("two", func(t *testing.T) {
		v := viper.New()
		v.Set("database.dsn_file", "@-")
		v.Set("database.password_file", " @- ")

		err := validateSingleStdinFileSource(v)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database.dsn_file")
		assert.Contains(t, err.Error(), "database.password_file")
	})
}

func TestStringToStringSliceHook(t *testing.T) {
	v := newTestViper(t, "schema_filters:\n  allow_tables: \"\"\n")

	cfg, err := finish(v)
	require.NoError(t, err)
	assert.Equal(t, []string{}, cfg.SchemaFilters.AllowTables)
}
