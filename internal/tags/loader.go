package tags

import (
	"context"
	"io"
	"strings"

	"github.com/a-h/templ"

	"github.com/conneroisu/assetloader/internal/observability"
	"github.com/conneroisu/assetloader/internal/paths"
	"github.com/conneroisu/assetloader/internal/types"
)

// DefaultMedia is the media attribute of loader-rendered stylesheets.
const DefaultMedia = "screen"

// Generator produces the artifacts a Loader references.
type Generator interface {
	Generate(ctx context.Context, ifModified bool) ([]types.GeneratedArtifact, error)
}

// Loader renders the tags for everything a compiler generates.
type Loader struct {
	kind       types.AssetKind
	compiler   Generator
	tempPath   string
	builder    *Builder
	dynamic    bool
	loaderID   string
	stylesheet StylesheetOptions
}

// LoaderOption customizes a Loader.
type LoaderOption func(*Loader)

// WithDynamicLoader switches JavaScript output between the inline runtime
// loader and a plain script tag.
func WithDynamicLoader(dynamic bool) LoaderOption {
	return func(l *Loader) { l.dynamic = dynamic }
}

// WithLoaderID sets the window key of the dynamic loader.
func WithLoaderID(id string) LoaderOption {
	return func(l *Loader) {
		if id != "" {
			l.loaderID = id
		}
	}
}

// WithStylesheetOptions sets the stylesheet attributes.
func WithStylesheetOptions(opts StylesheetOptions) LoaderOption {
	return func(l *Loader) { l.stylesheet = opts }
}

// NewLoader creates a loader. tempPath is the site path the compiler's
// output directory is served under. JavaScript uses the dynamic loader
// unless disabled.
func NewLoader(kind types.AssetKind, compiler Generator, tempPath string, builder *Builder, options ...LoaderOption) *Loader {
	l := &Loader{
		kind:       kind,
		compiler:   compiler,
		tempPath:   tempPath,
		builder:    builder,
		dynamic:    true,
		loaderID:   DefaultLoaderID,
		stylesheet: StylesheetOptions{Media: DefaultMedia},
	}
	for _, option := range options {
		option(l)
	}
	return l
}

// Kind returns the asset kind the loader renders.
func (l *Loader) Kind() types.AssetKind {
	return l.kind
}

// Render generates outputs when stale and returns one tag per artifact,
// newline separated. Nothing is rendered for an empty collection.
func (l *Loader) Render(ctx context.Context) (string, error) {
	ctx, span := observability.StartRenderSpan(ctx, l.kind.String())
	defer span.End()

	artifacts, err := l.compiler.Generate(ctx, true)
	if err != nil {
		observability.RecordError(span, err)
		return "", err
	}

	out := make([]string, 0, len(artifacts))
	for _, artifact := range artifacts {
		out = append(out, l.Element(ctx, artifact))
	}

	return strings.Join(out, "\n"), nil
}

// Element renders the tag for one artifact.
func (l *Loader) Element(ctx context.Context, artifact types.GeneratedArtifact) string {
	src := l.URL(artifact)
	integrity := l.builder.integrityOf(ctx, paths.Canonical(artifact.FullPath()))

	switch l.kind {
	case types.AssetStylesheet:
		return stylesheetTag(src, integrity, l.stylesheet, false).Render()
	default:
		if l.dynamic {
			return dynamicScript(src, integrity, l.loaderID)
		}
		return scriptTag(src, integrity).Render()
	}
}

// URL returns the site URL of an artifact.
func (l *Loader) URL(artifact types.GeneratedArtifact) string {
	path := strings.TrimLeft(l.tempPath, ".") + "/" + artifact.File
	if l.builder.urlBuilder != nil {
		return l.builder.urlBuilder(path)
	}
	return path
}

// Component renders the loader inside a templ layout.
func (l *Loader) Component() templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		markup, err := l.Render(ctx)
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, markup)
		return err
	})
}
