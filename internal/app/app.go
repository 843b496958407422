// Package app wires configuration, observability, the database connection
// and the generator into one rowgen run.
package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"rowgen/internal/config"
	"rowgen/internal/database"
	"rowgen/internal/generator"
	"rowgen/internal/logging"
	"rowgen/internal/observability"
	"rowgen/internal/typemap"
)

// App owns runtime resources for a single generation run.
type App struct {
	cfg    *config.Config
	logger *logging.Logger
	stdout io.Writer

	loggerProvider *observability.LoggerProvider
	meterProvider  *observability.MeterProvider
	tracerProvider *observability.TracerProvider

	mapping   *typemap.Mapping
	conn      *database.Conn
	generator *generator.Generator

	cleanup cleanupStack

	stateMu     sync.Mutex
	initialized bool

	shutdownOnce sync.Once
}

// New creates an App lifecycle wrapper.
func New(cfg *config.Config, logger *logging.Logger) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &App{
		cfg:    cfg,
		logger: logger,
		stdout: os.Stdout,
	}, nil
}

// AttachLoggerProvider registers an optional logger provider for shutdown cleanup.
func (a *App) AttachLoggerProvider(provider *observability.LoggerProvider) {
	a.stateMu.Lock()
	defer a.stateMu.Unlock()
	a.loggerProvider = provider
}

// SetStdout replaces the writer used when output.stdout is enabled. Call before Init.
func (a *App) SetStdout(w io.Writer) {
	a.stateMu.Lock()
	defer a.stateMu.Unlock()
	a.stdout = w
}

// Run generates the Rust source once. Init must have succeeded.
func (a *App) Run(ctx context.Context) error {
	a.stateMu.Lock()
	initialized := a.initialized
	gen := a.generator
	conn := a.conn
	a.stateMu.Unlock()

	if !initialized {
		return fmt.Errorf("app is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return gen.Run(ctx, conn.DB)
}
