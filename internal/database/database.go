// Package database opens the introspection connection for each supported dialect.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"rowgen/internal/config"
	"rowgen/internal/introspection"
	"rowgen/internal/logging"

	"github.com/XSAM/otelsql"
	"go.opentelemetry.io/otel/attribute"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	// Drivers registered under introspection.Dialect.DriverName.
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
)

// Options selects the instrumentation wrapped around the connection.
type Options struct {
	Tracing bool
	Metrics bool
}

// Conn is an open database handle plus any instrumentation registered for it.
type Conn struct {
	DB      *sql.DB
	Dialect introspection.Dialect

	statsReg interface{ Unregister() error }
}

// Close unregisters pool metrics and closes the handle.
func (c *Conn) Close() error {
	if c.statsReg != nil {
		if err := c.statsReg.Unregister(); err != nil {
			return fmt.Errorf("failed to unregister DB stats metrics: %w", err)
		}
	}
	return c.DB.Close()
}

// Open connects to the configured database and waits until it answers a ping.
func Open(ctx context.Context, cfg config.DatabaseConfig, opts Options, logger *logging.Logger) (*Conn, error) {
	dialect, err := cfg.Dialect()
	if err != nil {
		return nil, err
	}

	// Register custom TLS configuration if needed (for verify-ca/verify-full modes)
	if err := cfg.RegisterTLS(); err != nil {
		return nil, fmt.Errorf("failed to register database TLS config: %w", err)
	}

	dsn, err := cfg.DSN()
	if err != nil {
		return nil, err
	}

	conn := &Conn{Dialect: dialect}
	if opts.Tracing || opts.Metrics {
		system := dbSystem(dialect)
		otelOpts := []otelsql.Option{otelsql.WithAttributes(system)}
		if opts.Tracing {
			otelOpts = append(otelOpts, otelsql.WithSpanOptions(otelsql.SpanOptions{
				DisableErrSkip: true,
			}))
		}

		conn.DB, err = otelsql.Open(dialect.DriverName(), dsn, otelOpts...)
		if err != nil {
			return nil, err
		}

		if opts.Metrics {
			reg, err := otelsql.RegisterDBStatsMetrics(conn.DB, otelsql.WithAttributes(system))
			if err != nil {
				logger.Warn("failed to register DB stats metrics", slog.String("error", err.Error()))
			} else {
				conn.statsReg = reg
			}
		}

		logger.Debug("database instrumentation enabled",
			slog.Bool("metrics", opts.Metrics),
			slog.Bool("tracing", opts.Tracing),
		)
	} else {
		conn.DB, err = sql.Open(dialect.DriverName(), dsn)
		if err != nil {
			return nil, err
		}
	}

	// Introspection is sequential; one connection is enough.
	conn.DB.SetMaxOpenConns(1)

	if err := waitForDatabase(ctx, conn.DB, cfg.ConnectionTimeout, cfg.ConnectionRetryInterval, logger); err != nil {
		_ = conn.Close()
		return nil, err
	}

	logger.Info("connected to database",
		slog.String("dialect", string(dialect)),
		slog.String("database", cfg.Database),
		slog.Bool("dsn_present", cfg.ConnectionString != ""),
	)
	return conn, nil
}

func dbSystem(dialect introspection.Dialect) attribute.KeyValue {
	switch dialect {
	case introspection.DialectMySQL:
		return semconv.DBSystemMySQL
	case introspection.DialectSQLite:
		return semconv.DBSystemSqlite
	default:
		return semconv.DBSystemPostgreSQL
	}
}

type pinger interface {
	PingContext(ctx context.Context) error
}

// waitForDatabase pings until success or until timeout elapses. A zero
// timeout tries exactly once.
func waitForDatabase(ctx context.Context, db pinger, timeout, interval time.Duration, logger *logging.Logger) error {
	if timeout == 0 {
		return db.PingContext(ctx)
	}

	deadline := time.Now().Add(timeout)
	attempt := 0

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		attempt++

		pingCtx, cancel := context.WithDeadline(ctx, deadline)
		err := db.PingContext(pingCtx)
		cancel()
		if err == nil {
			if attempt > 1 {
				logger.Info("database connection established", slog.Int("attempts", attempt))
			}
			return nil
		}

		if time.Now().Add(interval).After(deadline) {
			return fmt.Errorf("database not available after %v: %w", timeout, err)
		}

		logger.Warn("database not ready, retrying...",
			slog.Int("attempt", attempt),
			slog.Duration("retry_in", interval),
			slog.String("error", err.Error()),
		)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
}
