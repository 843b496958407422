package app

import (
	"context"
	"fmt"
	"log/slog"

	"rowgen/internal/database"
	"rowgen/internal/generator"
)

// Init initializes all runtime resources. It is idempotent.
func (a *App) Init(ctx context.Context) error {
	a.stateMu.Lock()
	if a.initialized {
		a.stateMu.Unlock()
		return nil
	}
	a.stateMu.Unlock()

	if ctx == nil {
		ctx = context.Background()
	}

	cleanup := cleanupStack{}
	success := false
	defer func() {
		if !success {
			cleanup.run(context.Background(), a.logger)
		}
	}()

	if a.loggerProvider != nil {
		cleanup.push("logger provider", func(shutdownCtx context.Context) error {
			return a.loggerProvider.Shutdown(shutdownCtx, a.logger.Logger)
		})
	}

	meterProvider, generationMetrics, err := initMetrics(a.cfg, a.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize OpenTelemetry metrics: %w", err)
	}
	if meterProvider != nil {
		textfile := a.cfg.Observability.MetricsTextfile
		cleanup.push("meter provider", func(shutdownCtx context.Context) error {
			// Gather before shutdown; the exporter stops serving afterwards.
			if err := meterProvider.WriteTextfile(textfile); err != nil {
				a.logger.Warn("failed to write metrics textfile", slog.String("error", err.Error()))
			}
			return meterProvider.Shutdown(shutdownCtx, a.logger.Logger)
		})
	}

	tracerProvider, err := initTracing(a.cfg, a.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize OpenTelemetry tracing: %w", err)
	}
	if tracerProvider != nil {
		cleanup.push("tracer provider", func(shutdownCtx context.Context) error {
			return tracerProvider.Shutdown(shutdownCtx, a.logger.Logger)
		})
	}

	dialect, err := a.cfg.Database.Dialect()
	if err != nil {
		return err
	}
	mapping := loadTypeMapping(a.cfg.TypeMapping, dialect, a.logger)

	a.logger.Info("connecting to database",
		slog.String("driver", a.cfg.Database.Driver),
		slog.String("host", a.cfg.Database.Host),
		slog.Int("port", a.cfg.Database.EffectivePort()),
		slog.String("database", a.cfg.Database.Database),
		slog.Bool("dsn_present", a.cfg.Database.ConnectionString != ""),
	)

	conn, err := database.Open(ctx, a.cfg.Database, database.Options{
		Tracing: a.cfg.Observability.TracingEnabled,
		Metrics: a.cfg.Observability.MetricsEnabled,
	}, a.logger)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	cleanup.push("database", func(_ context.Context) error {
		return conn.Close()
	})

	genOpts := []generator.Option{generator.WithStdout(a.stdout)}
	if generationMetrics != nil {
		genOpts = append(genOpts, generator.WithMetrics(generationMetrics))
	}
	gen, err := generator.New(a.cfg, mapping, a.logger, genOpts...)
	if err != nil {
		return fmt.Errorf("failed to initialize generator: %w", err)
	}

	a.stateMu.Lock()
	a.meterProvider = meterProvider
	a.tracerProvider = tracerProvider
	a.mapping = mapping
	a.conn = conn
	a.generator = gen
	a.cleanup = cleanup
	a.initialized = true
	a.stateMu.Unlock()

	success = true
	return nil
}
