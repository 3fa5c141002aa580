package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/assetloader/internal/assets"
	"github.com/conneroisu/assetloader/internal/notify"
	"github.com/conneroisu/assetloader/internal/tags"
	"github.com/conneroisu/assetloader/internal/testutils"
	"github.com/conneroisu/assetloader/internal/types"
	"github.com/conneroisu/assetloader/internal/watcher"
)

const alertIntegrity = "sha384-dnux3uAPxaf+IhCrFG1D/XVNzP1XLDNcn3Pe3jyxouEAoot5kfwC5u8rMwNhE5oi"

func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// newProject creates an asset project, makes it the working directory and
// points the integrity cache at a temp file.
func newProject(t *testing.T, files map[string]string) string {
	t.Helper()

	dir := testutils.CreateTempProject(t)
	testutils.WriteAssets(t, dir, files)
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	t.Setenv("ASSETLOADER_INTEGRITY_CACHE_PATH", filepath.Join(t.TempDir(), "integrity.json"))
	return dir
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	viper.Reset()
	t.Cleanup(viper.Reset)
	cfgFile = ""
	resetFlags(rootCmd)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)

	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestBuildCommand(t *testing.T) {
	dir := newProject(t, map[string]string{
		"css/a.css": "a{}",
		"css/b.css": "b{}",
	})

	out, err := execute(t, "build", "--dir", dir, "--kind", "css", "css/a.css", "css/b.css")
	require.NoError(t, err)
	assert.Contains(t, out, "FILE")
	assert.Contains(t, out, "1 css artifact(s), 1 rebuilt")

	out, err = execute(t, "build", "--dir", dir, "--kind", "css", "css/a.css", "css/b.css")
	require.NoError(t, err)
	assert.Contains(t, out, "1 css artifact(s), 0 rebuilt")

	out, err = execute(t, "build", "--dir", dir, "--kind", "css", "--force", "css/a.css", "css/b.css")
	require.NoError(t, err)
	assert.Contains(t, out, "1 css artifact(s), 1 rebuilt")

	names := testutils.CompiledFiles(t, dir)
	require.Len(t, names, 1)
	assert.True(t, strings.HasPrefix(names[0], "loader-"))
}

func TestBuildCommand_Formats(t *testing.T) {
	dir := newProject(t, map[string]string{
		"js/a.js": "a();",
		"js/b.js": "b();",
	})

	t.Run("json", func(t *testing.T) {
		out, err := execute(t, "build", "--dir", dir, "--kind", "js", "--format", "json", "js/a.js", "js/b.js")
		require.NoError(t, err)

		var report buildReport
		require.NoError(t, json.Unmarshal([]byte(out), &report))
		assert.Equal(t, "js", report.Kind)
		require.Len(t, report.Artifacts, 1)
		assert.Equal(t, []string{filepath.Join(dir, "js", "a.js"), filepath.Join(dir, "js", "b.js")}, report.Artifacts[0].Source)
	})

	t.Run("yaml", func(t *testing.T) {
		out, err := execute(t, "build", "--dir", dir, "--kind", "js", "-f", "yaml", "js/a.js")
		require.NoError(t, err)
		assert.Contains(t, out, "kind: js")
		assert.Contains(t, out, "artifacts:")
	})

	t.Run("unknown format is rejected by the flag", func(t *testing.T) {
		_, err := execute(t, "build", "--dir", dir, "--format", "xml", "js/a.js")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid output format")
	})
}

func TestBuildCommand_InvalidInput(t *testing.T) {
	dir := newProject(t, nil)

	_, err := execute(t, "build", "--dir", dir, "--kind", "scss")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid kind")

	_, err = execute(t, "build", "--dir", filepath.Join(dir, "missing"), "--kind", "js")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "directory does not exist")
}

func TestTagCommand_Bundle(t *testing.T) {
	dir := newProject(t, map[string]string{"js/app.js": "alert(1);"})

	out, err := execute(t, "tag", "--dir", dir, "--kind", "js", "js/app.js")
	require.NoError(t, err)
	assert.Contains(t, out, `"app-loader-js"`)
	assert.Contains(t, out, alertIntegrity)

	out, err = execute(t, "tag", "--dir", dir, "--kind", "js", "--dynamic=false", "js/app.js")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, `<script src="`+dir+`/compiled/loader-`), out)
	assert.Contains(t, out, `integrity="`+alertIntegrity+`" crossorigin="anonymous"></script>`)
}

func TestTagCommand_Stylesheet(t *testing.T) {
	dir := newProject(t, map[string]string{"css/app.css": "a{}"})

	out, err := execute(t, "tag", "--dir", dir, "--kind", "css", "--media", "print", "css/app.css")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, `<link rel="stylesheet" media="print" href="`), out)
	assert.Equal(t, 1, strings.Count(out, "<link"))
}

func TestTagCommand_URL(t *testing.T) {
	newProject(t, map[string]string{"js/app.js": "alert(1);"})

	t.Run("external script", func(t *testing.T) {
		out, err := execute(t, "tag", "--url", "https://cdn.example.com/lib.js", "--kind", "js", "--dynamic=false")
		require.NoError(t, err)
		assert.Contains(t, out, `src="https://cdn.example.com/lib.js?v=`)
		assert.NotContains(t, out, "integrity")
	})

	t.Run("local script", func(t *testing.T) {
		out, err := execute(t, "tag", "--url", "/js/app.js", "--kind", "js", "--dynamic=false")
		require.NoError(t, err)
		assert.Equal(t, `<script src="/js/app.js" integrity="`+alertIntegrity+`" crossorigin="anonymous"></script>`+"\n", out)
	})

	t.Run("preload", func(t *testing.T) {
		out, err := execute(t, "tag", "--url", "/fonts/inter.woff2", "--kind", "preload", "--as", "font")
		require.NoError(t, err)
		assert.Contains(t, out, `rel="preload"`)
		assert.Contains(t, out, `as="font"`)
	})

	t.Run("unknown kind", func(t *testing.T) {
		_, err := execute(t, "tag", "--url", "/a.txt", "--kind", "text")
		assert.Error(t, err)
	})
}

func TestIntegrityCommands(t *testing.T) {
	dir := newProject(t, map[string]string{"js/app.js": "alert(1);"})
	target := filepath.Join(dir, "js", "app.js")

	_, err := execute(t, "integrity", "get", "js/app.js")
	require.Error(t, err)

	out, err := execute(t, "integrity", "compute", "js/app.js")
	require.NoError(t, err)
	assert.Equal(t, alertIntegrity+"\n", out)

	out, err = execute(t, "integrity", "get", "js/app.js")
	require.NoError(t, err)
	assert.Equal(t, alertIntegrity+"\n", out)

	out, err = execute(t, "integrity", "list")
	require.NoError(t, err)
	assert.Contains(t, out, target)
	assert.Contains(t, out, alertIntegrity)

	_, err = execute(t, "integrity", "delete", "js/app.js")
	require.NoError(t, err)
	_, err = execute(t, "integrity", "get", "js/app.js")
	require.Error(t, err)

	_, err = execute(t, "integrity", "compute", "js/app.js")
	require.NoError(t, err)
	out, err = execute(t, "integrity", "clear")
	require.NoError(t, err)
	assert.Contains(t, out, "Cleared")
	_, err = execute(t, "integrity", "get", "js/app.js")
	require.Error(t, err)

	_, err = execute(t, "integrity", "compute", "js/missing.js")
	require.Error(t, err)
}

func TestInitAndConfigCommands(t *testing.T) {
	newProject(t, nil)

	out, err := execute(t, "init")
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote .assetloader.yml")
	assert.FileExists(t, ".assetloader.yml")

	_, err = execute(t, "init")
	require.Error(t, err)

	_, err = execute(t, "init", "--force")
	require.NoError(t, err)

	out, err = execute(t, "config", "validate")
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration is valid")

	out, err = execute(t, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "assets:")
	assert.Contains(t, out, "output_dir: /compiled")

	require.NoError(t, os.WriteFile("broken.yml", []byte("integrity:\n  algorithm: md5\n"), 0o644))
	out, err = execute(t, "config", "validate", "--file", "broken.yml")
	require.Error(t, err)
	assert.Contains(t, out, "integrity.algorithm")

	_, err = execute(t, "config", "validate", "--file", "absent.yml")
	require.Error(t, err)
}

func TestConfigFileIsUsed(t *testing.T) {
	dir := newProject(t, map[string]string{"css/app.css": "a{}"})
	require.NoError(t, os.WriteFile("custom.yml", []byte("assets:\n  output_dir: /dist\n"), 0o644))

	_, err := execute(t, "build", "--config", "custom.yml", "--dir", dir, "--kind", "css", "css/app.css")
	require.NoError(t, err)

	entries, err := os.ReadDir(filepath.Join(dir, "dist"))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "assetloader "))

	out, err = execute(t, "version", "--format", "json")
	require.NoError(t, err)
	var info map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Contains(t, info, "version")
	assert.Contains(t, info, "is_release")

	out, err = execute(t, "version", "--detailed")
	require.NoError(t, err)
	assert.Contains(t, out, "Build type:")

	_, err = execute(t, "version", "--format", "xml")
	assert.Error(t, err)
}

type recordingHub struct {
	messages []notify.Message
}

func (r *recordingHub) Broadcast(msg notify.Message) error {
	r.messages = append(r.messages, msg)
	return nil
}

func TestRebuildHandler(t *testing.T) {
	dir := testutils.CreateTempProject(t)
	source := testutils.WriteAsset(t, dir, "css/app.css", "a{}")
	testutils.Touch(t, source, time.Unix(1700000000, 0))

	factory := assets.NewFactory(assets.DefaultSettings(), tags.NewBuilder(nil))
	bundle, err := factory.New(context.Background(), types.AssetStylesheet, dir, []string{"css/app.css"})
	require.NoError(t, err)
	_, err = bundle.Compiler.Generate(context.Background(), true)
	require.NoError(t, err)

	hub := &recordingHub{}
	var out bytes.Buffer
	handler := rebuildHandler(bundle, hub, &out, nil)

	t.Run("unchanged sources do not notify", func(t *testing.T) {
		require.NoError(t, handler(context.Background(), []watcher.ChangeEvent{{Path: source}}))
		assert.Empty(t, hub.messages)
	})

	t.Run("new watch file triggers a rebuild", func(t *testing.T) {
		extra := testutils.WriteAsset(t, dir, "css/theme.sass", "$c: red")
		testutils.Touch(t, extra, time.Unix(1800000000, 0))

		require.NoError(t, handler(context.Background(), []watcher.ChangeEvent{{Type: watcher.EventTypeCreated, Path: extra}}))
		require.Len(t, hub.messages, 1)
		assert.Equal(t, notify.TypeRebuild, hub.messages[0].Type)
		assert.Equal(t, "css", hub.messages[0].Kind)
		assert.Equal(t, []string{extra}, hub.messages[0].Changed)
		require.Len(t, hub.messages[0].Files, 1)
		assert.Contains(t, out.String(), "Rebuilt 1 css artifact(s)")
	})
}

func TestFlagValidators(t *testing.T) {
	assert.NoError(t, ValidateKind("js"))
	assert.NoError(t, ValidateKind("stylesheet"))
	assert.Error(t, ValidateKind("preload"))

	assert.NoError(t, ValidateFormat("yaml"))
	assert.Error(t, ValidateFormat("csv"))

	dir := t.TempDir()
	assert.NoError(t, ValidateDirExists(dir))
	file := filepath.Join(dir, "f")
	require.NoError(t, os.WriteFile(file, nil, 0o644))
	assert.Error(t, ValidateDirExists(file))

	flags := &StandardFlags{Dir: "", Kind: "js", Format: "table"}
	assert.NoError(t, flags.ValidateFlags())
	assert.Equal(t, "fallback", flags.AssetDir("fallback"))
}
