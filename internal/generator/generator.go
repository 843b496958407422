// Package generator drives one rowgen run: introspect the database, filter the
// schema, emit a struct per table and write the rendered Rust source.
package generator

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"rowgen/internal/config"
	"rowgen/internal/introspection"
	"rowgen/internal/logging"
	"rowgen/internal/naming"
	"rowgen/internal/observability"
	"rowgen/internal/rustgen"
	"rowgen/internal/schemafilter"
	"rowgen/internal/typemap"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Stats summarizes one generated document.
type Stats struct {
	Tables int
	Fields int
	// FallbackColumns counts columns whose source type had no mapping entry.
	FallbackColumns int
}

// Generator turns an introspected schema into a Rust source document.
type Generator struct {
	cfg     *config.Config
	logger  *logging.Logger
	mapping *typemap.Mapping
	namer   *naming.Namer
	emitter *rustgen.Emitter

	stdout  io.Writer
	metrics *observability.GenerationMetrics
}

// Option customizes a Generator.
type Option func(*Generator)

// WithStdout sets the writer used when output.stdout is enabled.
func WithStdout(w io.Writer) Option {
	return func(g *Generator) {
		g.stdout = w
	}
}

// WithMetrics records every Run on m.
func WithMetrics(m *observability.GenerationMetrics) Option {
	return func(g *Generator) {
		g.metrics = m
	}
}

// New builds a Generator. mapping must be the fully merged mapping.
func New(cfg *config.Config, mapping *typemap.Mapping, logger *logging.Logger, opts ...Option) (*Generator, error) {
	if mapping == nil {
		return nil, fmt.Errorf("type mapping is required")
	}
	style, err := rustgen.ParseStyle(cfg.Output.Style)
	if err != nil {
		return nil, err
	}

	namer := naming.New(cfg.Naming, logger.Logger)
	g := &Generator{
		cfg:     cfg,
		logger:  logger,
		mapping: mapping,
		namer:   namer,
		emitter: rustgen.NewEmitter(mapping, style, namer, logger.Logger),
		stdout:  os.Stdout,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Generate filters schema and renders every remaining table, in order.
func (g *Generator) Generate(ctx context.Context, schema *introspection.Schema) (string, Stats) {
	_, span := startSpan(ctx, "generator.generate")
	defer span.End()

	schemafilter.Apply(schema, g.cfg.SchemaFilters)

	var stats Stats
	structs := g.emitter.EmitAll(schema.Tables)
	for _, table := range schema.Tables {
		stats.Tables++
		for _, col := range table.Columns {
			stats.Fields++
			if !g.mapping.Known(col.SourceType) {
				stats.FallbackColumns++
			}
		}
	}

	span.SetAttributes(
		attribute.Int("rowgen.tables", stats.Tables),
		attribute.Int("rowgen.fields", stats.Fields),
		attribute.Int("rowgen.fallback_columns", stats.FallbackColumns),
	)
	return rustgen.RenderDocument(structs, g.emitter.Style()), stats
}

// Run introspects db, generates the document and writes it to the configured sink.
func (g *Generator) Run(ctx context.Context, db introspection.Queryer) (err error) {
	runID := uuid.NewString()
	logger := g.logger.WithRunID(runID)
	ctx = logging.WithLogger(logging.WithRunIDContext(ctx, runID), logger)

	dialect, err := g.cfg.Database.Dialect()
	if err != nil {
		return err
	}
	schemaName, err := g.cfg.Database.EffectiveSchema()
	if err != nil {
		return err
	}

	ctx, span := startSpan(ctx, "generator.run",
		attribute.String("rowgen.run_id", runID),
		attribute.String("db.system", string(dialect)),
		attribute.String("db.name", schemaName),
		attribute.String("rowgen.style", g.emitter.Style().String()),
	)
	defer span.End()

	start := time.Now()
	var stats Stats
	defer func() {
		if g.metrics != nil {
			g.metrics.RecordRun(ctx, time.Since(start), string(dialect), g.emitter.Style().String(),
				stats.Tables, stats.Fields, stats.FallbackColumns, err == nil)
		}
		if err != nil {
			recordSpanError(span, err)
		}
	}()

	logger.Info("introspecting database",
		slog.String("dialect", string(dialect)),
		slog.String("schema", schemaName),
		slog.Bool("include_views", g.cfg.SchemaFilters.ScanViewsEnabled),
	)
	schema, err := introspection.IntrospectContext(ctx, db, introspection.Options{
		Dialect:      dialect,
		Schema:       schemaName,
		IncludeViews: g.cfg.SchemaFilters.ScanViewsEnabled,
	})
	if err != nil {
		return fmt.Errorf("failed to introspect schema %s: %w", schemaName, err)
	}
	discovered := len(schema.Tables)

	var doc string
	doc, stats = g.Generate(ctx, schema)
	if stats.Tables == 0 {
		logger.Warn("no tables left to generate",
			slog.Int("tables_discovered", discovered),
			slog.String("schema", schemaName),
		)
	}

	destination := "stdout"
	if g.cfg.Output.Stdout {
		if _, err = io.WriteString(g.stdout, doc); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	} else {
		destination = g.cfg.Output.Path
		if err = writeFileAtomic(g.cfg.Output.Path, []byte(doc)); err != nil {
			return err
		}
	}

	logger.Info("generated rust structs",
		slog.String("output", destination),
		slog.Int("tables_discovered", discovered),
		slog.Int("tables", stats.Tables),
		slog.Int("fields", stats.Fields),
		slog.Int("fallback_columns", stats.FallbackColumns),
		slog.Duration("duration", time.Since(start)),
	)
	return nil
}

// writeFileAtomic writes data to a temp file beside path and renames it into
// place, so readers never observe a partially written file.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", path, err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write %s: %w", tmpName, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", tmpName, err)
	}
	if err = os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("failed to set permissions on %s: %w", tmpName, err)
	}
	if err = os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to move output into place at %s: %w", path, err)
	}
	return nil
}

func startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	tracer := otel.Tracer("rowgen/generator")
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func recordSpanError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
