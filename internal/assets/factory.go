// Package assets wires a file collection, a compiler and a loader for one
// asset directory so callers get the markup for their bundle in one call.
package assets

import (
	"context"
	"strings"

	"github.com/conneroisu/assetloader/internal/build"
	"github.com/conneroisu/assetloader/internal/collection"
	"github.com/conneroisu/assetloader/internal/config"
	"github.com/conneroisu/assetloader/internal/finder"
	"github.com/conneroisu/assetloader/internal/logging"
	"github.com/conneroisu/assetloader/internal/naming"
	"github.com/conneroisu/assetloader/internal/tags"
	"github.com/conneroisu/assetloader/internal/types"
)

// Settings is the directory layout and rendering policy of a Factory.
type Settings struct {
	CSSDir        string
	JSDir         string
	OutputDir     string
	CSSPatterns   []string
	JSPatterns    []string
	Options       types.BuildOptions
	DynamicLoader bool
	LoaderID      string
	Media         string
}

// DefaultSettings mirrors the configuration defaults.
func DefaultSettings() Settings {
	return SettingsFromConfig(config.Default())
}

// SettingsFromConfig extracts factory settings from a loaded configuration.
func SettingsFromConfig(cfg *config.Config) Settings {
	return Settings{
		CSSDir:        cfg.Assets.CSSDir,
		JSDir:         cfg.Assets.JSDir,
		OutputDir:     cfg.Assets.OutputDir,
		CSSPatterns:   cfg.Assets.CSSPatterns,
		JSPatterns:    cfg.Assets.JSPatterns,
		Options:       cfg.BuildOptions(),
		DynamicLoader: cfg.Tags.DynamicLoader,
		LoaderID:      cfg.Tags.LoaderID,
		Media:         cfg.Tags.Media,
	}
}

// Factory builds per-directory bundles.
type Factory struct {
	settings  Settings
	builder   *tags.Builder
	minifiers map[types.AssetKind]build.Filter
	logger    logging.Logger
}

// Option customizes a Factory.
type Option func(*Factory)

// WithMinifier registers the content filter applied to every bundle of kind.
func WithMinifier(kind types.AssetKind, filter build.Filter) Option {
	return func(f *Factory) {
		if filter != nil {
			f.minifiers[kind] = filter
		}
	}
}

// WithLogger injects a logger.
func WithLogger(logger logging.Logger) Option {
	return func(f *Factory) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// NewFactory creates a factory rendering through builder.
func NewFactory(settings Settings, builder *tags.Builder, options ...Option) *Factory {
	f := &Factory{
		settings:  settings,
		builder:   builder,
		minifiers: make(map[types.AssetKind]build.Filter),
		logger:    logging.NewNopLogger(),
	}
	for _, option := range options {
		option(f)
	}
	return f
}

// Bundle is a wired pipeline for one directory and asset kind.
type Bundle struct {
	Kind       types.AssetKind
	Dir        string
	Collection *collection.FileCollection
	Compiler   *build.Compiler
	Loader     *tags.Loader
}

// New wires a bundle: inputs are resolved against dir, every file matching
// the kind's patterns under dir's css or js directory is watched, and
// outputs go to dir's output directory.
func (f *Factory) New(ctx context.Context, kind types.AssetKind, dir string, files []string) (*Bundle, error) {
	dir = strings.TrimRight(dir, "/")
	files = append([]string(nil), files...)

	sourceDir, patterns, convention := f.settings.JSDir, f.settings.JSPatterns, naming.JS()
	if kind == types.AssetStylesheet {
		sourceDir, patterns, convention = f.settings.CSSDir, f.settings.CSSPatterns, naming.CSS()
	}

	fc := collection.New(dir)
	fc.AddFiles(files)
	if dropped := len(files) - len(fc.Files()); dropped > 0 {
		f.logger.Debug(ctx, "Dropped missing inputs", "dir", dir, "count", dropped)
	}

	watch, err := finder.Find(dir+sourceDir, patterns...)
	if err != nil {
		f.logger.Warn(ctx, err, "Cannot enumerate watch files", "dir", dir+sourceDir)
	}
	fc.AddWatchFiles(watch)

	outputDir := dir + f.settings.OutputDir
	compiler, err := build.NewCompiler(fc, convention, outputDir, f.settings.Options,
		build.WithLogger(f.logger))
	if err != nil {
		return nil, err
	}

	if minifier, ok := f.minifiers[kind]; ok {
		if err := compiler.AddFilter(minifier); err != nil {
			return nil, err
		}
	}

	loader := tags.NewLoader(kind, compiler, outputDir, f.builder,
		tags.WithDynamicLoader(f.settings.DynamicLoader),
		tags.WithLoaderID(f.settings.LoaderID),
		tags.WithStylesheetOptions(tags.StylesheetOptions{Media: f.settings.Media}),
	)

	return &Bundle{
		Kind:       kind,
		Dir:        dir,
		Collection: fc,
		Compiler:   compiler,
		Loader:     loader,
	}, nil
}

// CSS renders the stylesheet markup for files under dir.
func (f *Factory) CSS(ctx context.Context, dir string, files []string) (string, error) {
	return f.render(ctx, types.AssetStylesheet, dir, files)
}

// JS renders the script markup for files under dir.
func (f *Factory) JS(ctx context.Context, dir string, files []string) (string, error) {
	return f.render(ctx, types.AssetJavaScript, dir, files)
}

func (f *Factory) render(ctx context.Context, kind types.AssetKind, dir string, files []string) (string, error) {
	bundle, err := f.New(ctx, kind, dir, files)
	if err != nil {
		return "", err
	}
	return bundle.Loader.Render(ctx)
}

// ConfigOptions returns the minifier options configured in cfg. An invalid
// minifier command fails here rather than at the first build.
func ConfigOptions(cfg *config.Config) ([]Option, error) {
	var options []Option
	for _, kind := range []types.AssetKind{types.AssetJavaScript, types.AssetStylesheet} {
		filterConfig, ok := cfg.MinifierFor(kind)
		if !ok {
			continue
		}
		filter, err := build.NewCommandFilter(filterConfig)
		if err != nil {
			return nil, err
		}
		options = append(options, WithMinifier(kind, filter))
	}
	return options, nil
}
