package typemap

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Source records where a loaded Mapping came from.
type Source int

const (
	// SourceFile means the mapping was read from the configured file.
	SourceFile Source = iota
	// SourceDefault means the built-in mapping was substituted.
	SourceDefault
)

func (s Source) String() string {
	if s == SourceFile {
		return "file"
	}
	return "default"
}

// ErrEmptyMapping is reported when a mapping file parses but has no type_map entries.
var ErrEmptyMapping = errors.New("mapping file has no type_map entries")

// LoadResult is the outcome of Load. Mapping is never nil.
type LoadResult struct {
	Mapping *Mapping
	Source  Source
	Path    string
	// Reason explains why the default mapping was substituted (nil for SourceFile).
	Reason error
}

// Load reads a mapping file: JSON for ".json" paths, YAML otherwise.
// A missing, unreadable, unparsable, or empty file is not an error: the
// built-in Default mapping is returned together with the reason.
func Load(path string) LoadResult {
	data, err := os.ReadFile(path)
	if err != nil {
		return defaulted(path, err)
	}

	var raw Mapping
	if err := decode(path, data, &raw); err != nil {
		return defaulted(path, fmt.Errorf("failed to parse %s: %w", path, err))
	}
	if len(raw.TypeMap) == 0 {
		return defaulted(path, ErrEmptyMapping)
	}

	return LoadResult{
		Mapping: New(raw.TypeMap, raw.Default, raw.SpecialCases),
		Source:  SourceFile,
		Path:    path,
	}
}

func defaulted(path string, reason error) LoadResult {
	return LoadResult{
		Mapping: Default(),
		Source:  SourceDefault,
		Path:    path,
		Reason:  reason,
	}
}

// Persist writes m to path as JSON (".json") or YAML (any other extension).
// An existing file at path is kept as path+".bak" before being replaced.
func Persist(path string, m *Mapping) error {
	data, err := encode(path, m)
	if err != nil {
		return fmt.Errorf("failed to encode type mapping: %w", err)
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory for %s: %w", path, err)
		}
	}

	if _, err := os.Stat(path); err == nil {
		if err := os.Rename(path, path+".bak"); err != nil {
			return fmt.Errorf("failed to back up %s: %w", path, err)
		}
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func encode(path string, m *Mapping) ([]byte, error) {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		data, err := json.MarshalIndent(m, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(data, '\n'), nil
	}
	return yaml.Marshal(m)
}

func decode(path string, data []byte, m *Mapping) error {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return json.Unmarshal(data, m)
	}
	return yaml.Unmarshal(data, m)
}
