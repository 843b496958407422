package config

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"

	"rowgen/internal/introspection"
)

// tlsConfigName is the name used to register custom TLS configs with the MySQL driver.
const tlsConfigName = "rowgen-custom"

// Dialect returns the parsed database driver.
func (d *DatabaseConfig) Dialect() (introspection.Dialect, error) {
	return introspection.ParseDialect(d.Driver)
}

// EffectivePort returns the configured port or the driver default.
func (d *DatabaseConfig) EffectivePort() int {
	if d.Port != 0 {
		return d.Port
	}
	dialect, _ := d.Dialect()
	switch dialect {
	case introspection.DialectPostgres:
		return 5432
	case introspection.DialectMySQL:
		return 3306
	default:
		return 0
	}
}

// DSN returns the data source name for the configured driver.
// If ConnectionString is set it is used as the base (with TLS settings applied).
// Otherwise the DSN is built from discrete fields.
func (d *DatabaseConfig) DSN() (string, error) {
	dialect, err := d.Dialect()
	if err != nil {
		return "", err
	}
	switch dialect {
	case introspection.DialectMySQL:
		return d.mysqlDSN()
	case introspection.DialectPostgres:
		return d.postgresDSN()
	default:
		return d.sqliteDSN(), nil
	}
}

func (d *DatabaseConfig) mysqlDSN() (string, error) {
	var cfg *mysql.Config
	if d.ConnectionString != "" {
		parsed, err := mysql.ParseDSN(d.ConnectionString)
		if err != nil {
			return "", fmt.Errorf("database.dsn is invalid: %w", err)
		}
		cfg = parsed
	} else {
		cfg = mysql.NewConfig()
		cfg.User = d.User
		cfg.Passwd = d.Password
		cfg.Net = "tcp"
		cfg.Addr = net.JoinHostPort(d.Host, strconv.Itoa(d.EffectivePort()))
		cfg.DBName = d.Database
	}
	if cfg.TLSConfig == "" {
		cfg.TLSConfig = d.mysqlTLSParam()
	}
	return cfg.FormatDSN(), nil
}

// mysqlTLSParam returns the tls parameter value for the MySQL DSN.
// Returns the registered config name for custom TLS, or empty string if no TLS is configured.
func (d *DatabaseConfig) mysqlTLSParam() string {
	switch d.TLS.Mode {
	case "":
		return ""
	case "off":
		return "false"
	case "skip-verify":
		return "skip-verify"
	case "verify-ca", "verify-full":
		return tlsConfigName
	default:
		// Unknown mode, let the driver handle it
		return d.TLS.Mode
	}
}

func (d *DatabaseConfig) postgresDSN() (string, error) {
	var u *url.URL
	if d.ConnectionString != "" {
		parsed, err := url.Parse(d.ConnectionString)
		if err != nil || (parsed.Scheme != "postgres" && parsed.Scheme != "postgresql") {
			return "", fmt.Errorf("database.dsn is invalid: expected a postgres:// URL")
		}
		u = parsed
	} else {
		u = &url.URL{
			Scheme: "postgres",
			Host:   net.JoinHostPort(d.Host, strconv.Itoa(d.EffectivePort())),
			Path:   "/" + d.Database,
		}
		if d.User != "" {
			if d.Password != "" {
				u.User = url.UserPassword(d.User, d.Password)
			} else {
				u.User = url.User(d.User)
			}
		}
	}

	query := u.Query()
	if query.Get("sslmode") == "" {
		if mode := postgresSSLMode(d.TLS.Mode); mode != "" {
			query.Set("sslmode", mode)
		}
	}
	setIfMissing(query, "sslrootcert", d.TLS.CAFile)
	setIfMissing(query, "sslcert", d.TLS.CertFile)
	setIfMissing(query, "sslkey", d.TLS.KeyFile)
	u.RawQuery = query.Encode()
	return u.String(), nil
}

func postgresSSLMode(mode string) string {
	switch mode {
	case "off":
		return "disable"
	case "skip-verify":
		return "require"
	case "verify-ca", "verify-full":
		return mode
	default:
		return ""
	}
}

func setIfMissing(query url.Values, key, value string) {
	if value != "" && query.Get(key) == "" {
		query.Set(key, value)
	}
}

// sqliteDSN opens the database file read-only so a wrong path fails instead
// of creating an empty database.
func (d *DatabaseConfig) sqliteDSN() string {
	if d.ConnectionString != "" {
		return d.ConnectionString
	}
	return "file:" + d.Database + "?mode=ro"
}

// EffectiveSchema returns the schema scope used for introspection.
func (d *DatabaseConfig) EffectiveSchema() (string, error) {
	if schema := strings.TrimSpace(d.Schema); schema != "" {
		return schema, nil
	}
	dialect, err := d.Dialect()
	if err != nil {
		return "", err
	}
	if dialect != introspection.DialectMySQL {
		return dialect.DefaultSchema(), nil
	}

	if name := strings.TrimSpace(d.Database); name != "" {
		return name, nil
	}
	if dsn := strings.TrimSpace(d.ConnectionString); dsn != "" {
		parsed, err := mysql.ParseDSN(dsn)
		if err != nil {
			return "", fmt.Errorf("database.dsn is invalid: %w", err)
		}
		if parsed.DBName != "" {
			return parsed.DBName, nil
		}
	}
	return "", fmt.Errorf("no schema configured: set database.schema, database.database, or include /<database> in database.dsn")
}

// RegisterTLS registers a custom TLS configuration with the MySQL driver.
// Must be called before opening a MySQL connection when using verify-ca or verify-full modes.
// Returns nil if no custom TLS configuration is needed.
func (d *DatabaseConfig) RegisterTLS() error {
	dialect, err := d.Dialect()
	if err != nil || dialect != introspection.DialectMySQL {
		return nil
	}
	if d.TLS.Mode != "verify-ca" && d.TLS.Mode != "verify-full" {
		return nil
	}

	tlsCfg, err := d.buildTLSConfig()
	if err != nil {
		return fmt.Errorf("failed to build TLS config: %w", err)
	}

	if err := mysql.RegisterTLSConfig(tlsConfigName, tlsCfg); err != nil {
		return fmt.Errorf("failed to register TLS config: %w", err)
	}

	return nil
}

// buildTLSConfig creates a tls.Config based on the DatabaseTLSConfig settings.
func (d *DatabaseConfig) buildTLSConfig() (*tls.Config, error) {
	tlsCfg := &tls.Config{
		MinVersion: tls.VersionTLS12,
	}

	if d.TLS.CAFile != "" {
		caCert, err := os.ReadFile(d.TLS.CAFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA file %q: %w", d.TLS.CAFile, err)
		}

		certPool := x509.NewCertPool()
		if !certPool.AppendCertsFromPEM(caCert) {
			return nil, fmt.Errorf("failed to parse CA certificate from %q", d.TLS.CAFile)
		}
		tlsCfg.RootCAs = certPool
	}

	if d.TLS.CertFile != "" && d.TLS.KeyFile != "" {
		cert, err := tls.LoadX509KeyPair(d.TLS.CertFile, d.TLS.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load client certificate: %w", err)
		}
		tlsCfg.Certificates = []tls.Certificate{cert}
	} else if d.TLS.CertFile != "" || d.TLS.KeyFile != "" {
		return nil, fmt.Errorf("both cert_file and key_file must be specified for client certificate authentication")
	}

	if d.TLS.Mode == "verify-full" {
		tlsCfg.ServerName = d.TLS.ServerName
		if tlsCfg.ServerName == "" {
			tlsCfg.ServerName = d.Host
		}
	}

	return tlsCfg, nil
}
