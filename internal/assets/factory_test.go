package assets

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/assetloader/internal/config"
	"github.com/conneroisu/assetloader/internal/integrity"
	"github.com/conneroisu/assetloader/internal/tags"
	"github.com/conneroisu/assetloader/internal/testutils"
	"github.com/conneroisu/assetloader/internal/types"
)

func newProject(t *testing.T, files map[string]string) string {
	t.Helper()

	dir := testutils.CreateTempProject(t)
	testutils.WriteAssets(t, dir, files)
	return dir
}

func newBuilder(t *testing.T) *tags.Builder {
	t.Helper()

	store := integrity.Open(filepath.Join(t.TempDir(), "integrity.cache"))
	provider, err := integrity.NewProvider(store, "sha384", nil)
	require.NoError(t, err)
	return tags.NewBuilder(provider)
}

func TestFactory_CSS(t *testing.T) {
	dir := newProject(t, map[string]string{
		"css/a.css": "a{}",
		"css/b.css": "b{}",
	})
	f := NewFactory(DefaultSettings(), newBuilder(t))

	out, err := f.CSS(context.Background(), dir, []string{"css/a.css", "css/b.css"})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out, `<link rel="stylesheet" media="screen" href="`+dir+`/compiled/`), out)
	assert.Contains(t, out, `integrity="sha384-`)
	assert.Contains(t, out, `media="screen"`)
	assert.Equal(t, 1, strings.Count(out, "<link"))

	names := testutils.CompiledFiles(t, dir)
	require.Len(t, names, 1)
	assert.True(t, strings.HasSuffix(names[0], ".css"))

	data, err := os.ReadFile(filepath.Join(dir, "compiled", names[0]))
	require.NoError(t, err)
	assert.Equal(t, "a{}\nb{}", string(data))
}

func TestFactory_JS(t *testing.T) {
	dir := newProject(t, map[string]string{"js/app.js": "alert(1);"})

	t.Run("dynamic loader", func(t *testing.T) {
		f := NewFactory(DefaultSettings(), newBuilder(t))

		out, err := f.JS(context.Background(), dir, []string{"js/app.js"})
		require.NoError(t, err)
		assert.Contains(t, out, `"app-loader-js"`)
		assert.Contains(t, out, "sha384-dnux3uAPxaf+IhCrFG1D/XVNzP1XLDNcn3Pe3jyxouEAoot5kfwC5u8rMwNhE5oi")
	})

	t.Run("plain script tags per file", func(t *testing.T) {
		extra := newProject(t, map[string]string{"js/a.js": "a();", "js/b.js": "b();"})
		settings := DefaultSettings()
		settings.DynamicLoader = false
		settings.Options.JoinFiles = false
		f := NewFactory(settings, newBuilder(t))

		out, err := f.JS(context.Background(), extra+"/", []string{"js/a.js", "js/b.js"})
		require.NoError(t, err)

		lines := strings.Split(out, "\n")
		require.Len(t, lines, 2)
		assert.Contains(t, lines[0], "-a.js\"")
		assert.Contains(t, lines[1], "-b.js\"")
		assert.Len(t, testutils.CompiledFiles(t, extra), 2)
	})
}

func TestFactory_EmptyBundle(t *testing.T) {
	dir := newProject(t, map[string]string{"css/site.css": "x{}"})
	f := NewFactory(DefaultSettings(), newBuilder(t))

	out, err := f.CSS(context.Background(), dir, []string{"css/missing.css"})
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestFactory_WatchFiles(t *testing.T) {
	dir := newProject(t, map[string]string{
		"css/app.css":      "a{}",
		"css/theme.sass":   "$c: red",
		"css/app.css.map":  "{}",
		"css/notes.txt":    "nope",
		"css/nested/x.css": "x{}",
		"js/ignored.js":    "x();",
	})
	f := NewFactory(DefaultSettings(), newBuilder(t))

	bundle, err := f.New(context.Background(), types.AssetStylesheet, dir, []string{"css/app.css"})
	require.NoError(t, err)

	watch := bundle.Collection.WatchFiles()
	assert.Contains(t, watch, filepath.Join(dir, "css", "app.css"))
	assert.Contains(t, watch, filepath.Join(dir, "css", "theme.sass"))
	assert.Contains(t, watch, filepath.Join(dir, "css", "app.css.map"))
	assert.Contains(t, watch, filepath.Join(dir, "css", "nested", "x.css"))
	assert.NotContains(t, watch, filepath.Join(dir, "css", "notes.txt"))
	assert.NotContains(t, watch, filepath.Join(dir, "js", "ignored.js"))
	assert.Equal(t, filepath.Join(dir, "compiled"), bundle.Compiler.OutputDir())
}

func TestFactory_RenderIsIdempotent(t *testing.T) {
	dir := newProject(t, map[string]string{"js/app.js": "alert(1);"})
	f := NewFactory(DefaultSettings(), newBuilder(t))

	bundle, err := f.New(context.Background(), types.AssetJavaScript, dir, []string{"js/app.js"})
	require.NoError(t, err)

	first, err := bundle.Loader.Render(context.Background())
	require.NoError(t, err)
	second, err := bundle.Loader.Render(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int64(1), bundle.Compiler.Metrics().GetRebuilds())
	assert.Equal(t, int64(1), bundle.Compiler.Metrics().GetSkips())
}

func TestFactory_WithMinifier(t *testing.T) {
	dir := newProject(t, map[string]string{"css/a.css": "a { color: red; }"})
	upper := func(content []byte) ([]byte, error) {
		return bytes.ToUpper(content), nil
	}
	f := NewFactory(DefaultSettings(), newBuilder(t),
		WithMinifier(types.AssetStylesheet, upper),
		WithMinifier(types.AssetJavaScript, nil),
	)

	_, err := f.CSS(context.Background(), dir, []string{"css/a.css"})
	require.NoError(t, err)

	names := testutils.CompiledFiles(t, dir)
	require.Len(t, names, 1)
	data, err := os.ReadFile(filepath.Join(dir, "compiled", names[0]))
	require.NoError(t, err)
	assert.Equal(t, "A { COLOR: RED; }", string(data))
}

func TestConfigOptions(t *testing.T) {
	t.Run("no minifiers", func(t *testing.T) {
		options, err := ConfigOptions(config.Default())
		require.NoError(t, err)
		assert.Empty(t, options)
	})

	t.Run("known command", func(t *testing.T) {
		cfg := config.Default()
		cfg.Assets.Minifier.CSS = config.CommandConfig{Command: "esbuild", Args: []string{"--minify", "--loader=css"}}

		options, err := ConfigOptions(cfg)
		require.NoError(t, err)
		assert.Len(t, options, 1)
	})

	t.Run("rejected command", func(t *testing.T) {
		cfg := config.Default()
		cfg.Assets.Minifier.JS = config.CommandConfig{Command: "rm", Args: []string{"-rf", "/"}}

		_, err := ConfigOptions(cfg)
		assert.Error(t, err)
	})
}
