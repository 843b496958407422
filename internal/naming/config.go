// Package naming converts SQL schema identifiers into Rust identifiers:
// snake_case field names, PascalCase struct names, keyword escaping, and
// struct name collision handling.
package naming

// Config holds naming customization options
type Config struct {
	// SingularStructNames singularizes the last word of generated struct names.
	// Example: "user_profiles" -> "UserProfile"
	SingularStructNames bool `mapstructure:"singular_struct_names"`

	// SingularOverrides maps plural -> custom singular, consulted before the inflection rules.
	// Example: {"data": "datum"}
	SingularOverrides map[string]string `mapstructure:"singular_overrides"`

	// StructSuffix is appended to every automatically derived struct name.
	// Example: "Row" turns "users" into "UsersRow"
	StructSuffix string `mapstructure:"struct_suffix"`
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		SingularOverrides: make(map[string]string),
	}
}
