package cmd

import (
	"context"

	"github.com/conneroisu/assetloader/internal/assets"
	"github.com/conneroisu/assetloader/internal/config"
	"github.com/conneroisu/assetloader/internal/integrity"
	"github.com/conneroisu/assetloader/internal/logging"
	"github.com/conneroisu/assetloader/internal/observability"
	"github.com/conneroisu/assetloader/internal/tags"
	"github.com/conneroisu/assetloader/internal/version"
)

// app is the object graph shared by the commands: configuration, logger,
// tracing, the integrity store and the tag builder.
type app struct {
	cfg      *config.Config
	logger   *logging.AssetLogger
	tracing  *observability.TracerProvider
	storage  *integrity.Storage
	provider *integrity.Provider
	builder  *tags.Builder
	minify   []assets.Option
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := logging.NewLogger(cfg.LoggerConfig())

	tracing, err := observability.InitTracing(ctx, &observability.TracingConfig{
		ServiceName:    cfg.Tracing.ServiceName,
		ServiceVersion: version.GetVersion(),
		OTLPEndpoint:   cfg.Tracing.OTLPEndpoint,
		Insecure:       cfg.Tracing.Insecure,
		SampleRate:     cfg.Tracing.SampleRate,
	})
	if err != nil {
		return nil, err
	}

	storage := integrity.Open(cfg.Integrity.CachePath,
		integrity.WithTTL(cfg.Integrity.TTL),
		integrity.WithLogger(logger),
	)
	provider, err := integrity.NewProvider(storage, cfg.Integrity.Algorithm, logger)
	if err != nil {
		return nil, err
	}

	builderOptions := []tags.Option{
		tags.WithRoot(cfg.Tags.WebRoot),
		tags.WithLogger(logger),
	}
	if cfg.Tags.BaseURL != "" {
		builderOptions = append(builderOptions, tags.WithBaseURL(cfg.Tags.BaseURL))
	}

	minify, err := assets.ConfigOptions(cfg)
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:      cfg,
		logger:   logger,
		tracing:  tracing,
		storage:  storage,
		provider: provider,
		builder:  tags.NewBuilder(provider, builderOptions...),
		minify:   minify,
	}, nil
}

// factory returns an asset factory; adjust may override settings for one
// invocation.
func (a *app) factory(adjust func(*assets.Settings)) *assets.Factory {
	settings := assets.SettingsFromConfig(a.cfg)
	if adjust != nil {
		adjust(&settings)
	}
	options := append([]assets.Option{assets.WithLogger(a.logger)}, a.minify...)
	return assets.NewFactory(settings, a.builder, options...)
}

func (a *app) close(ctx context.Context) {
	if err := a.tracing.Shutdown(ctx); err != nil {
		a.logger.Warn(ctx, err, "Tracing shutdown failed")
	}
}
