package config

import (
	"fmt"
	"net"
	"net/url"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"rowgen/internal/introspection"
	"rowgen/internal/naming"
	"rowgen/internal/rustgen"
	"rowgen/internal/schemafilter"
)

// ValidationError represents a configuration validation error with context.
type ValidationError struct {
	Field   string
	Message string
	Hint    string
}

func (e ValidationError) Error() string {
	if e.Hint != "" {
		return fmt.Sprintf("%s: %s (hint: %s)", e.Field, e.Message, e.Hint)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationWarning represents a non-fatal configuration issue.
type ValidationWarning struct {
	Field   string
	Message string
	Hint    string
}

// ValidationResult contains the results of configuration validation.
type ValidationResult struct {
	Errors   []ValidationError
	Warnings []ValidationWarning
}

// HasErrors returns true if there are any validation errors.
func (r *ValidationResult) HasErrors() bool {
	return len(r.Errors) > 0
}

// Error returns a combined error message if there are validation errors.
func (r *ValidationResult) Error() string {
	if !r.HasErrors() {
		return ""
	}
	var msgs []string
	for _, e := range r.Errors {
		msgs = append(msgs, e.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate checks the configuration for errors and returns validation results.
// It returns both errors (fatal) and warnings (non-fatal issues).
func (c *Config) Validate() *ValidationResult {
	result := &ValidationResult{}

	c.Database.validate(result)
	c.Output.validate(result)
	c.TypeMapping.validate(result)
	validateSchemaFilters(result, c.SchemaFilters)
	validateNamingConfig(result, c.Naming)
	c.Observability.validate(result)

	return result
}

func (d *DatabaseConfig) validate(result *ValidationResult) {
	dialect, err := d.Dialect()
	if err != nil {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "database.driver",
			Message: err.Error(),
			Hint:    "valid values are: postgres, mysql, sqlite",
		})
		return
	}

	if strings.TrimSpace(d.ConnectionString) != "" && strings.TrimSpace(d.ConnectionStringFile) != "" {
		result.Warnings = append(result.Warnings, ValidationWarning{
			Field:   "database.dsn_file",
			Message: "dsn and dsn_file are both set; dsn_file is ignored",
		})
	}

	if d.Port < 0 || d.Port > 65535 {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "database.port",
			Message: fmt.Sprintf("port %d is out of valid range (1-65535)", d.Port),
		})
	}

	if d.ConnectionTimeout < 0 {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "database.connection_timeout",
			Message: "connection_timeout cannot be negative",
		})
	}
	if d.ConnectionTimeout > 0 && d.ConnectionRetryInterval <= 0 {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "database.connection_retry_interval",
			Message: "connection_retry_interval must be positive when connection_timeout is set",
			Hint:    "set connection_timeout to 0 to try the database exactly once",
		})
	}

	if dialect == introspection.DialectSQLite {
		if d.ConnectionString == "" && strings.TrimSpace(d.Database) == "" {
			result.Errors = append(result.Errors, ValidationError{
				Field:   "database.database",
				Message: "sqlite requires a database file path",
				Hint:    "set database.database to the .db file or database.dsn to a file: URI",
			})
		}
		if d.TLS.Mode != "" && d.TLS.Mode != "off" {
			result.Warnings = append(result.Warnings, ValidationWarning{
				Field:   "database.tls.mode",
				Message: "TLS settings are ignored for sqlite",
			})
		}
		return
	}

	if _, err := d.DSN(); err != nil {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "database.dsn",
			Message: err.Error(),
		})
	}

	if _, err := d.EffectiveSchema(); err != nil {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "database.schema",
			Message: err.Error(),
			Hint:    "mysql introspects one database; name it in database.schema or database.database",
		})
	}

	d.TLS.validate(result)
}

func (t *DatabaseTLSConfig) validate(result *ValidationResult) {
	validModes := map[string]bool{"": true, "off": true, "skip-verify": true, "verify-ca": true, "verify-full": true}
	if !validModes[t.Mode] {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "database.tls.mode",
			Message: fmt.Sprintf("invalid TLS mode %q", t.Mode),
			Hint:    "valid values are: off, skip-verify, verify-ca, verify-full",
		})
	}

	if (t.Mode == "verify-ca" || t.Mode == "verify-full") && t.CAFile == "" {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "database.tls.ca_file",
			Message: "CA file is required for verify-ca and verify-full modes",
		})
	}

	if (t.CertFile != "" && t.KeyFile == "") || (t.CertFile == "" && t.KeyFile != "") {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "database.tls.cert_file",
			Message: "both cert_file and key_file must be specified for client certificate authentication",
			Hint:    "provide both cert_file and key_file, or neither",
		})
	}

	if t.Mode == "skip-verify" {
		result.Warnings = append(result.Warnings, ValidationWarning{
			Field:   "database.tls.mode",
			Message: "skip-verify mode does not verify server certificates",
			Hint:    "use verify-ca or verify-full in production",
		})
	}
}

func (o *OutputConfig) validate(result *ValidationResult) {
	if _, err := rustgen.ParseStyle(o.Style); err != nil {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "output.style",
			Message: err.Error(),
			Hint:    "valid values are: serde, sqlx",
		})
	}

	if o.Stdout {
		return
	}
	if strings.TrimSpace(o.Path) == "" {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "output.path",
			Message: "output path is required unless output.stdout is set",
		})
		return
	}
	if filepath.Ext(o.Path) != ".rs" {
		result.Warnings = append(result.Warnings, ValidationWarning{
			Field:   "output.path",
			Message: fmt.Sprintf("output path %q does not end in .rs", o.Path),
		})
	}
}

var rustTypeNamePattern = regexp.MustCompile(`^[A-Z][A-Za-z0-9_]*$`)

func (t *TypeMappingConfig) validate(result *ValidationResult) {
	if strings.TrimSpace(t.Path) == "" && t.PersistDefault {
		result.Warnings = append(result.Warnings, ValidationWarning{
			Field:   "type_mapping.persist_default",
			Message: "persist_default has no effect without type_mapping.path",
		})
	}

	for sourceType, rustType := range t.TypeOverrides {
		if strings.TrimSpace(sourceType) == "" {
			result.Errors = append(result.Errors, ValidationError{
				Field:   "type_mapping.type_overrides",
				Message: "source type cannot be empty",
			})
			continue
		}
		if strings.TrimSpace(rustType) == "" {
			result.Errors = append(result.Errors, ValidationError{
				Field:   "type_mapping.type_overrides",
				Message: fmt.Sprintf("rust type for %q cannot be empty", sourceType),
			})
		}
	}

	for tableName, structName := range t.SpecialCases {
		if strings.TrimSpace(tableName) == "" {
			result.Errors = append(result.Errors, ValidationError{
				Field:   "type_mapping.special_cases",
				Message: "table name cannot be empty",
			})
			continue
		}
		if !rustTypeNamePattern.MatchString(structName) {
			result.Errors = append(result.Errors, ValidationError{
				Field:   "type_mapping.special_cases",
				Message: fmt.Sprintf("struct name %q for table %q must be PascalCase", structName, tableName),
			})
			continue
		}
		if naming.IsKeyword(structName) {
			result.Errors = append(result.Errors, ValidationError{
				Field:   "type_mapping.special_cases",
				Message: fmt.Sprintf("struct name %q for table %q is a Rust keyword", structName, tableName),
			})
		}
	}
}

var structSuffixPattern = regexp.MustCompile(`^[A-Za-z0-9_]*$`)

func validateNamingConfig(result *ValidationResult, cfg naming.Config) {
	if !structSuffixPattern.MatchString(cfg.StructSuffix) {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "naming.struct_suffix",
			Message: fmt.Sprintf("struct suffix %q must contain only letters, digits, and underscores", cfg.StructSuffix),
		})
	}
	for plural, singular := range cfg.SingularOverrides {
		if strings.TrimSpace(plural) == "" || strings.TrimSpace(singular) == "" {
			result.Errors = append(result.Errors, ValidationError{
				Field:   "naming.singular_overrides",
				Message: fmt.Sprintf("singular override %q -> %q cannot have an empty side", plural, singular),
			})
		}
	}
}

func validateSchemaFilters(result *ValidationResult, filters schemafilter.Config) {
	validateGlobList(result, "schema_filters.allow_tables", filters.AllowTables)
	validateGlobList(result, "schema_filters.deny_tables", filters.DenyTables)
	validatePatternMap(result, "schema_filters.allow_columns", filters.AllowColumns)
	validatePatternMap(result, "schema_filters.deny_columns", filters.DenyColumns)
}

func validatePatternMap(result *ValidationResult, field string, patternMap map[string][]string) {
	for tablePattern, columnPatterns := range patternMap {
		if strings.TrimSpace(tablePattern) == "" {
			result.Errors = append(result.Errors, ValidationError{
				Field:   field,
				Message: "table pattern cannot be empty",
			})
			continue
		}
		if _, err := path.Match(strings.ToLower(tablePattern), "probe"); err != nil {
			result.Errors = append(result.Errors, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("invalid table glob pattern %q: %v", tablePattern, err),
			})
		}
		for _, columnPattern := range columnPatterns {
			if strings.TrimSpace(columnPattern) == "" {
				result.Errors = append(result.Errors, ValidationError{
					Field:   field,
					Message: fmt.Sprintf("column pattern for table pattern %q cannot be empty", tablePattern),
				})
				continue
			}
			if _, err := path.Match(strings.ToLower(columnPattern), "probe"); err != nil {
				result.Errors = append(result.Errors, ValidationError{
					Field:   field,
					Message: fmt.Sprintf("invalid column glob pattern %q for table pattern %q: %v", columnPattern, tablePattern, err),
				})
			}
		}
	}
}

func validateGlobList(result *ValidationResult, field string, patterns []string) {
	for _, pattern := range patterns {
		if strings.TrimSpace(pattern) == "" {
			result.Errors = append(result.Errors, ValidationError{
				Field:   field,
				Message: "glob pattern cannot be empty",
			})
			continue
		}
		if _, err := path.Match(strings.ToLower(pattern), "probe"); err != nil {
			result.Errors = append(result.Errors, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("invalid glob pattern %q: %v", pattern, err),
			})
		}
	}
}

func (o *ObservabilityConfig) validate(result *ValidationResult) {
	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[o.Logging.Level] {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "observability.logging.level",
			Message: fmt.Sprintf("invalid log level %q", o.Logging.Level),
			Hint:    "valid values are: debug, info, warn, error",
		})
	}

	validLogFormats := map[string]bool{"json": true, "text": true}
	if !validLogFormats[o.Logging.Format] {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "observability.logging.format",
			Message: fmt.Sprintf("invalid log format %q", o.Logging.Format),
			Hint:    "valid values are: json, text",
		})
	}

	if o.TraceSampleRatio < 0 || o.TraceSampleRatio > 1 {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "observability.trace_sample_ratio",
			Message: fmt.Sprintf("trace_sample_ratio %v must be between 0 and 1", o.TraceSampleRatio),
		})
	}

	if o.MetricsEnabled && strings.TrimSpace(o.MetricsTextfile) == "" {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "observability.metrics_textfile",
			Message: "metrics_textfile is required when metrics are enabled",
		})
	}

	if !o.TracingEnabled && !o.Logging.ExportsEnabled {
		return
	}
	o.OTLP.validate("observability.otlp", result)
	if o.TracingEnabled && o.Traces != nil {
		o.Traces.validate("observability.traces", result)
	}
	if o.Logging.ExportsEnabled && o.Logs != nil {
		o.Logs.validate("observability.logs", result)
	}
}

func (o *OTLPConfig) validate(prefix string, result *ValidationResult) {
	validProtocols := map[string]bool{"": true, "grpc": true, "http/protobuf": true}
	if !validProtocols[o.Protocol] {
		result.Errors = append(result.Errors, ValidationError{
			Field:   prefix + ".protocol",
			Message: fmt.Sprintf("invalid OTLP protocol %q", o.Protocol),
			Hint:    "valid values are: grpc, http/protobuf",
		})
	}

	if o.Protocol == "http/protobuf" {
		if !validOTLPEndpoint(o.Endpoint) {
			result.Errors = append(result.Errors, ValidationError{
				Field:   prefix + ".endpoint",
				Message: fmt.Sprintf("invalid OTLP endpoint %q for http/protobuf", o.Endpoint),
				Hint:    "use host:port or a full URL",
			})
		}
	}

	validCompressions := map[string]bool{"": true, "none": true, "gzip": true}
	if !validCompressions[o.Compression] {
		result.Errors = append(result.Errors, ValidationError{
			Field:   prefix + ".compression",
			Message: fmt.Sprintf("invalid OTLP compression %q", o.Compression),
			Hint:    "valid values are: none, gzip",
		})
	}

	if o.RetryMaxAttempts < 0 {
		result.Errors = append(result.Errors, ValidationError{
			Field:   prefix + ".retry_max_attempts",
			Message: "retry_max_attempts cannot be negative",
		})
	}
}

func validOTLPEndpoint(endpoint string) bool {
	if endpoint == "" {
		return false
	}
	if strings.Contains(endpoint, "://") {
		parsed, err := url.Parse(endpoint)
		if err != nil {
			return false
		}
		return parsed.Host != ""
	}
	_, _, err := net.SplitHostPort(endpoint)
	return err == nil
}
