package app

import (
	"log/slog"

	"rowgen/internal/config"
	"rowgen/internal/introspection"
	"rowgen/internal/logging"
	"rowgen/internal/observability"
	"rowgen/internal/typemap"
)

// InitLogger builds the process logger and, when log exports are enabled,
// the OTLP logger provider it also writes to.
func InitLogger(cfg *config.Config) (*logging.Logger, *observability.LoggerProvider, error) {
	loggerCfg := logging.Config{
		Level:  cfg.Observability.Logging.Level,
		Format: cfg.Observability.Logging.Format,
	}
	logger := logging.NewLogger(loggerCfg)
	slog.SetDefault(logger.Logger)

	if !cfg.Observability.Logging.ExportsEnabled {
		return logger, nil, nil
	}

	logsConfig := cfg.Observability.GetLogsConfig()
	logger.Info("initializing OpenTelemetry logging",
		slog.String("service_name", cfg.Observability.ServiceName),
		slog.String("service_version", cfg.Observability.ServiceVersion),
		slog.String("environment", cfg.Observability.Environment),
		slog.String("otlp_endpoint", logsConfig.Endpoint),
		slog.String("otlp_protocol", logsConfig.Protocol),
		slog.Bool("insecure", logsConfig.Insecure),
	)

	loggerProvider, err := observability.InitLoggerProvider(observabilityConfig(cfg, logsConfig))
	if err != nil {
		return nil, nil, err
	}

	loggerCfg.LoggerProvider = loggerProvider.Provider()
	logger = logging.NewLogger(loggerCfg)
	slog.SetDefault(logger.Logger)

	return logger, loggerProvider, nil
}

func initMetrics(cfg *config.Config, logger *logging.Logger) (*observability.MeterProvider, *observability.GenerationMetrics, error) {
	if !cfg.Observability.MetricsEnabled {
		return nil, nil, nil
	}

	logger.Debug("initializing OpenTelemetry metrics",
		slog.String("service_name", cfg.Observability.ServiceName),
		slog.String("textfile", cfg.Observability.MetricsTextfile),
	)

	meterProvider, err := observability.InitMeterProvider(observabilityConfig(cfg, config.OTLPConfig{}))
	if err != nil {
		return nil, nil, err
	}

	generationMetrics, err := observability.InitGenerationMetrics()
	if err != nil {
		return nil, nil, err
	}
	return meterProvider, generationMetrics, nil
}

func initTracing(cfg *config.Config, logger *logging.Logger) (*observability.TracerProvider, error) {
	if !cfg.Observability.TracingEnabled {
		return nil, nil
	}

	tracesConfig := cfg.Observability.GetTracesConfig()
	logger.Info("initializing OpenTelemetry tracing",
		slog.String("service_name", cfg.Observability.ServiceName),
		slog.String("service_version", cfg.Observability.ServiceVersion),
		slog.String("environment", cfg.Observability.Environment),
		slog.String("otlp_endpoint", tracesConfig.Endpoint),
		slog.String("otlp_protocol", tracesConfig.Protocol),
		slog.Bool("insecure", tracesConfig.Insecure),
	)

	tracerProvider, err := observability.InitTracerProvider(observabilityConfig(cfg, tracesConfig))
	if err != nil {
		return nil, err
	}

	logger.Info("OpenTelemetry tracing initialized successfully")
	return tracerProvider, nil
}

func observabilityConfig(cfg *config.Config, otlp config.OTLPConfig) observability.Config {
	return observability.Config{
		ServiceName:      cfg.Observability.ServiceName,
		ServiceVersion:   cfg.Observability.ServiceVersion,
		Environment:      cfg.Observability.Environment,
		TraceSampleRatio: cfg.Observability.TraceSampleRatio,
		OTLPConfig: observability.OTLPExporterConfig{
			Endpoint:          otlp.Endpoint,
			Protocol:          otlp.Protocol,
			Insecure:          otlp.Insecure,
			TLSCertFile:       otlp.TLSCertFile,
			TLSClientCertFile: otlp.TLSClientCertFile,
			TLSClientKeyFile:  otlp.TLSClientKeyFile,
			Headers:           otlp.Headers,
			Timeout:           otlp.Timeout,
			Compression:       otlp.Compression,
			RetryEnabled:      otlp.RetryEnabled,
			RetryMaxAttempts:  otlp.RetryMaxAttempts,
		},
	}
}

// loadTypeMapping loads the mapping file, persists the built-in mapping when
// the file was unusable and persisting is enabled, then layers the config
// overrides on top. The built-in mapping gets SQLite's 64-bit INTEGER and
// REAL when the dialect is SQLite. Persist failures are logged, never fatal.
func loadTypeMapping(cfg config.TypeMappingConfig, dialect introspection.Dialect, logger *logging.Logger) *typemap.Mapping {
	result := typemap.Load(cfg.Path)
	if result.Source == typemap.SourceFile {
		logger.Info("loaded type mapping",
			slog.String("path", result.Path),
			slog.Int("entries", len(result.Mapping.TypeMap)),
		)
	} else {
		logger.Info("using built-in type mapping",
			slog.String("path", cfg.Path),
			slog.String("reason", result.Reason.Error()),
		)
		if cfg.PersistDefault && cfg.Path != "" {
			if err := typemap.Persist(cfg.Path, result.Mapping); err != nil {
				logger.Warn("failed to persist default type mapping",
					slog.String("path", cfg.Path),
					slog.String("error", err.Error()),
				)
			} else {
				logger.Info("wrote default type mapping", slog.String("path", cfg.Path))
			}
		}
		if dialect == introspection.DialectSQLite {
			result.Mapping = result.Mapping.Merge(typemap.SQLiteOverrides(), nil)
		}
	}

	return result.Mapping.Merge(cfg.TypeOverrides, cfg.SpecialCases)
}
