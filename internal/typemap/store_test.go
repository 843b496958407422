package typemap

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "type_mapping.json")
	content := `{
	"type_map": {"int4": "i32", "UUID": "uuid::Uuid"},
	"default": "serde_json::Value",
	"special_cases": {"TBL_Users": "User"}
}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	result := Load(path)

	require.NoError(t, result.Reason)
	assert.Equal(t, SourceFile, result.Source)
	assert.Equal(t, "i32", result.Mapping.Resolve("int4", false))
	assert.Equal(t, "uuid::Uuid", result.Mapping.Resolve("UUID", false))
	assert.Equal(t, "serde_json::Value", result.Mapping.Resolve("uuid", false))
	assert.Equal(t, "User", result.Mapping.SpecialCases["tbl_users"])
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "type_mapping.yaml")
	content := "type_map:\n  int8: i64\n  text: String\nspecial_cases:\n  people: Person\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	result := Load(path)

	require.NoError(t, result.Reason)
	assert.Equal(t, SourceFile, result.Source)
	assert.Equal(t, "i64", result.Mapping.Resolve("int8", false))
	assert.Equal(t, "Person", result.Mapping.SpecialCases["people"])
}

func TestLoadFallsBackToDefault(t *testing.T) {
	tests := []struct {
		name    string
		content *string
		check   func(t *testing.T, reason error)
	}{
		{
			name:    "missing file",
			content: nil,
			check: func(t *testing.T, reason error) {
				assert.True(t, errors.Is(reason, fs.ErrNotExist))
			},
		},
		{
			name:    "corrupt file",
			content: ptr(`{"type_map": {"int4": `),
			check: func(t *testing.T, reason error) {
				assert.Error(t, reason)
			},
		},
		{
			name:    "empty type map",
			content: ptr(`{"type_map": {}}`),
			check: func(t *testing.T, reason error) {
				assert.ErrorIs(t, reason, ErrEmptyMapping)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "type_mapping.json")
			if tt.content != nil {
				require.NoError(t, os.WriteFile(path, []byte(*tt.content), 0o644))
			}

			result := Load(path)

			assert.Equal(t, SourceDefault, result.Source)
			require.NotNil(t, result.Mapping)
			assert.Equal(t, Default().TypeMap, result.Mapping.TypeMap)
			tt.check(t, result.Reason)
		})
	}
}

func TestPersistRoundTrip(t *testing.T) {
	for _, name := range []string{"mapping.json", "mapping.yaml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "nested", name)

			require.NoError(t, Persist(path, Default()))

			result := Load(path)
			require.NoError(t, result.Reason)
			assert.Equal(t, SourceFile, result.Source)
			assert.Equal(t, Default().TypeMap, result.Mapping.TypeMap)
		})
	}
}

func TestPersistBacksUpExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "type_mapping.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o644))

	require.NoError(t, Persist(path, Default()))

	backup, err := os.ReadFile(path + ".bak")
	require.NoError(t, err)
	assert.Equal(t, "not json", string(backup))
	assert.Equal(t, SourceFile, Load(path).Source)
}

func TestSourceString(t *testing.T) {
	assert.Equal(t, "file", SourceFile.String())
	assert.Equal(t, "default", SourceDefault.String())
}

func ptr(s string) *string {
	return &s
}
