package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/Iron-Ham/codepair/internal/config"
	"github.com/Iron-Ham/codepair/internal/llm"
	"github.com/Iron-Ham/codepair/internal/logging"
	"github.com/Iron-Ham/codepair/internal/pipeline"
	"github.com/Iron-Ham/codepair/internal/tracing"
)

// newResolver builds the provider factory for a configuration. Tests swap
// it for scripted providers.
var newResolver = func(cfg *config.Config) llm.Resolver {
	return llm.NewFactory(cfg.FactoryConfig())
}

// loadConfig loads and validates the active configuration.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("invalid configuration:\n%w", err)
	}
	return cfg, nil
}

// newLogger opens the rotating log file, or logs to stderr when the
// configured directory is "-".
func newLogger(cfg *config.Config, stderr io.Writer) (*logging.Logger, error) {
	dir := cfg.Logging.ResolveDir()
	if dir == "" {
		return logging.NewWriterLogger(stderr, cfg.Logging.Level), nil
	}
	logger, err := logging.NewLoggerWithRotation(dir, cfg.Logging.Level, cfg.Logging.RotationConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to open log: %w", err)
	}
	return logger, nil
}

// setupTracing installs the span exporter when tracing is enabled. The
// returned func is always safe to call.
func setupTracing(cfg *config.Config, w io.Writer) (func(context.Context) error, error) {
	if !cfg.Tracing.Enabled {
		return func(context.Context) error { return nil }, nil
	}
	shutdown, err := tracing.Setup(w)
	if err != nil {
		return nil, fmt.Errorf("failed to set up tracing: %w", err)
	}
	return shutdown, nil
}

// newPipeline wires a pipeline from the configuration.
func newPipeline(cfg *config.Config, logger *logging.Logger) *pipeline.Pipeline {
	opts := append(cfg.PipelineOptions(), pipeline.WithLogger(logger))
	if cfg.Tracing.Enabled {
		opts = append(opts, pipeline.WithTracer(tracing.Tracer()))
	}
	return pipeline.New(newResolver(cfg), opts...)
}
