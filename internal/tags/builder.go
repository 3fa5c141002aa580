package tags

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/conneroisu/assetloader/internal/integrity"
	"github.com/conneroisu/assetloader/internal/logging"
	"github.com/conneroisu/assetloader/internal/paths"
)

// DefaultLoaderID is the window key the dynamic loader registers under.
const DefaultLoaderID = "app-loader-js"

// DefaultFontType is the MIME type PreloadFont uses when none is given.
const DefaultFontType = "font/woff2"

const crossOriginAnonymous = "anonymous"

var lower = cases.Lower(language.Und)

// URLBuilder turns a site path into the URL emitted in markup.
type URLBuilder func(path string) string

// StylesheetOptions are the optional attributes of a stylesheet link.
type StylesheetOptions struct {
	Media     string
	Title     string
	Type      string
	Alternate bool
}

// Builder renders tags for local paths and external URLs. Local paths are
// resolved against the web root to find the file whose integrity is
// computed; the emitted URL is baseURL + path unless a URLBuilder is set.
type Builder struct {
	provider   *integrity.Provider
	root       string
	baseURL    string
	urlBuilder URLBuilder
	now        func() time.Time
	logger     logging.Logger
}

// Option customizes a Builder.
type Option func(*Builder)

// WithRoot sets the directory local paths are resolved against.
func WithRoot(root string) Option {
	return func(b *Builder) { b.root = root }
}

// WithBaseURL sets the prefix of emitted local URLs.
func WithBaseURL(baseURL string) Option {
	return func(b *Builder) { b.baseURL = baseURL }
}

// WithURLBuilder sets the URL-building collaborator.
func WithURLBuilder(fn URLBuilder) Option {
	return func(b *Builder) { b.urlBuilder = fn }
}

// WithClock replaces time.Now for version stamps.
func WithClock(now func() time.Time) Option {
	return func(b *Builder) {
		if now != nil {
			b.now = now
		}
	}
}

// WithLogger injects a logger.
func WithLogger(logger logging.Logger) Option {
	return func(b *Builder) {
		if logger != nil {
			b.logger = logger.WithComponent("tags")
		}
	}
}

// NewBuilder creates a builder. A nil provider renders local tags without
// integrity.
func NewBuilder(provider *integrity.Provider, options ...Option) *Builder {
	b := &Builder{
		provider: provider,
		now:      time.Now,
		logger:   logging.NewNopLogger(),
	}
	for _, option := range options {
		option(b)
	}
	if b.root == "" {
		b.root = paths.Resolve(".")
	}
	return b
}

// URL returns the emitted URL for a local site path.
func (b *Builder) URL(path string) string {
	if b.urlBuilder != nil {
		return b.urlBuilder(path)
	}
	return b.baseURL + path
}

// Integrity returns the SRI value of the file behind a local site path, or
// "" when it cannot be hashed.
func (b *Builder) Integrity(ctx context.Context, path string) string {
	return b.integrityOf(ctx, paths.ResolveIn(b.root, path))
}

func (b *Builder) integrityOf(ctx context.Context, file string) string {
	if b.provider == nil {
		return ""
	}
	value := b.provider.Integrity(ctx, file)
	if value == "" {
		b.logger.Debug(ctx, "Rendering without integrity", "file", file)
	}
	return value
}

// ScriptTag builds a script tag for a local path or external URL.
func (b *Builder) ScriptTag(ctx context.Context, path string) Tag {
	if paths.IsExternal(path) {
		return Tag{Kind: KindScript, Attrs: []Attr{
			{"src", AppendVersion(path, WeeklyVersion(b.now()))},
			{"crossorigin", crossOriginAnonymous},
		}}
	}
	return scriptTag(b.URL(path), b.Integrity(ctx, path))
}

// Script renders ScriptTag.
func (b *Builder) Script(ctx context.Context, path string) string {
	return b.ScriptTag(ctx, path).Render()
}

// Scripts renders one script tag per path, newline separated.
func (b *Builder) Scripts(ctx context.Context, list []string) string {
	out := make([]string, 0, len(list))
	for _, p := range list {
		out = append(out, b.Script(ctx, p))
	}
	return strings.Join(out, "\n")
}

// StylesheetTag builds a stylesheet link for a local path or external URL.
func (b *Builder) StylesheetTag(ctx context.Context, path string, opts StylesheetOptions) Tag {
	if paths.IsExternal(path) {
		return stylesheetTag(AppendVersion(path, WeeklyVersion(b.now())), "", opts, true)
	}
	return stylesheetTag(b.URL(path), b.Integrity(ctx, path), opts, false)
}

// Stylesheet renders StylesheetTag.
func (b *Builder) Stylesheet(ctx context.Context, path string, opts StylesheetOptions) string {
	return b.StylesheetTag(ctx, path, opts).Render()
}

// Stylesheets renders one link per path, newline separated.
func (b *Builder) Stylesheets(ctx context.Context, list []string, opts StylesheetOptions) string {
	out := make([]string, 0, len(list))
	for _, p := range list {
		out = append(out, b.Stylesheet(ctx, p, opts))
	}
	return strings.Join(out, "\n")
}

// PreloadTag builds a preload hint. External URLs without a query get the
// current Unix time as version. Extra attributes win over the defaults.
func (b *Builder) PreloadTag(url, as string, extra ...Attr) Tag {
	if paths.IsExternal(url) {
		url = AppendVersion(url, b.now().Unix())
	}

	return Tag{Kind: KindPreload, Attrs: mergeAttrs([]Attr{
		{"rel", "preload"},
		{"href", url},
		{"as", lower.String(as)},
		{"crossorigin", crossOriginAnonymous},
	}, extra)}
}

// Preload renders PreloadTag.
func (b *Builder) Preload(url, as string, extra ...Attr) string {
	return b.PreloadTag(url, as, extra...).Render()
}

// PreloadFont preloads a font, font/woff2 when mimeType is empty.
func (b *Builder) PreloadFont(url, mimeType string) string {
	if mimeType == "" {
		mimeType = DefaultFontType
	}
	return b.Preload(url, "font", Attr{"type", mimeType})
}

// DynamicScript renders an inline script that injects an async script
// element into the document head at runtime.
func (b *Builder) DynamicScript(ctx context.Context, path, id string) string {
	if paths.IsExternal(path) {
		return dynamicScript(AppendVersion(path, WeeklyVersion(b.now())), "", id)
	}
	return dynamicScript(b.URL(path), b.Integrity(ctx, path), id)
}

func scriptTag(src, integrity string) Tag {
	return Tag{Kind: KindScript, Attrs: []Attr{
		{"src", src},
		{"integrity", integrity},
		{"crossorigin", crossOriginFor(integrity)},
	}}
}

func stylesheetTag(href, integrity string, opts StylesheetOptions, external bool) Tag {
	rel := "stylesheet"
	if opts.Alternate {
		rel += " alternate"
	}

	crossOrigin := crossOriginFor(integrity)
	if external {
		crossOrigin = crossOriginAnonymous
	}

	return Tag{Kind: KindStylesheet, Attrs: []Attr{
		{"rel", rel},
		{"media", opts.Media},
		{"title", opts.Title},
		{"type", opts.Type},
		{"href", href},
		{"integrity", integrity},
		{"crossorigin", crossOrigin},
	}}
}

func crossOriginFor(integrity string) string {
	if integrity == "" {
		return ""
	}
	return crossOriginAnonymous
}

func dynamicScript(src, integrity, id string) string {
	if id == "" {
		id = DefaultLoaderID
	}

	var sb strings.Builder
	sb.WriteString("<script>\n")
	sb.WriteString("  (function(w, d, tag, id, src){\n")
	sb.WriteString("    w[id] = w[id] || [];\n")
	sb.WriteString("    const js = d.createElement(tag);\n")
	sb.WriteString("    js.async = true;\n")
	sb.WriteString("    js.src = src;\n")
	if integrity != "" {
		sb.WriteString("    js.integrity = " + jsString(integrity) + ";\n")
		sb.WriteString("    js.crossOrigin = " + jsString(crossOriginAnonymous) + ";\n")
	}
	sb.WriteString("    d.head.appendChild(js);\n")
	sb.WriteString("  })(window, document, \"script\", " + jsString(id) + ", " + jsString(src) + ");\n")
	sb.WriteString("</script>")

	return sb.String()
}

// jsString quotes s as a JavaScript string literal safe inside a script
// element.
func jsString(s string) string {
	quoted, err := json.Marshal(s)
	if err != nil {
		return `""`
	}
	return string(quoted)
}
