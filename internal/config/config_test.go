package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/assetloader/internal/errors"
	"github.com/conneroisu/assetloader/internal/logging"
	"github.com/conneroisu/assetloader/internal/types"
)

func TestLoad_Defaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ".", cfg.Assets.Root)
	assert.Equal(t, "/css", cfg.Assets.CSSDir)
	assert.Equal(t, "/js", cfg.Assets.JSDir)
	assert.Equal(t, "/compiled", cfg.Assets.OutputDir)
	assert.True(t, cfg.Assets.JoinFiles)
	assert.True(t, cfg.Assets.CheckLastModified)
	assert.Equal(t, []string{"*.css", "*.sass", "*.map"}, cfg.Assets.CSSPatterns)
	assert.Equal(t, []string{"*.js"}, cfg.Assets.JSPatterns)

	assert.Equal(t, "application/cache/0/cache/assets_storage_integrity.cache", cfg.Integrity.CachePath)
	assert.Equal(t, 2*time.Hour, cfg.Integrity.TTL)
	assert.Equal(t, "sha384", cfg.Integrity.Algorithm)

	assert.True(t, cfg.Tags.DynamicLoader)
	assert.Equal(t, "app-loader-js", cfg.Tags.LoaderID)
	assert.Equal(t, "screen", cfg.Tags.Media)

	assert.Equal(t, 300*time.Millisecond, cfg.Watch.Debounce)
	assert.Empty(t, cfg.Watch.NotifyAddr)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Empty(t, cfg.Tracing.OTLPEndpoint)

	assert.Equal(t, types.DefaultBuildOptions(), cfg.BuildOptions())
}

func TestLoadFrom_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, DefaultFileName)
	require.NoError(t, os.WriteFile(path, []byte(`
assets:
  root: ./web
  join_files: false
  js_patterns: ["*.js", "*.mjs"]
  minifier:
    js:
      command: esbuild
      args: ["--minify", "--loader=js"]
      timeout: 10s
integrity:
  ttl: 30m
  algorithm: SHA512
tags:
  base_url: https://static.example
  dynamic_loader: false
log:
  level: debug
  format: json
`), 0o644))

	v := viper.New()
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())

	cfg, err := LoadFrom(v)
	require.NoError(t, err)

	assert.Equal(t, "./web", cfg.Assets.Root)
	assert.False(t, cfg.Assets.JoinFiles)
	assert.True(t, cfg.Assets.CheckLastModified)
	assert.Equal(t, []string{"*.js", "*.mjs"}, cfg.Assets.JSPatterns)
	assert.Equal(t, 30*time.Minute, cfg.Integrity.TTL)
	assert.False(t, cfg.Tags.DynamicLoader)
	assert.Equal(t, "https://static.example", cfg.Tags.BaseURL)

	opts := cfg.BuildOptions()
	assert.False(t, opts.JoinFiles)
	assert.Equal(t, "SHA512", opts.HashAlgorithm)

	minifier, ok := cfg.MinifierFor(types.AssetJavaScript)
	require.True(t, ok)
	assert.Equal(t, "esbuild", minifier.Command)
	assert.Equal(t, []string{"--minify", "--loader=js"}, minifier.Args)
	assert.Equal(t, 10*time.Second, minifier.Timeout)

	_, ok = cfg.MinifierFor(types.AssetStylesheet)
	assert.False(t, ok)

	logCfg := cfg.LoggerConfig()
	assert.Equal(t, logging.LevelDebug, logCfg.Level)
	assert.Equal(t, "json", logCfg.Format)
}

func TestLoadFrom_Environment(t *testing.T) {
	t.Setenv("ASSETLOADER_INTEGRITY_ALGORITHM", "sha256")
	t.Setenv("ASSETLOADER_ASSETS_CHECK_LAST_MODIFIED", "false")
	t.Setenv("ASSETLOADER_WATCH_NOTIFY_ADDR", "localhost:35729")

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	cfg, err := LoadFrom(v)
	require.NoError(t, err)

	assert.Equal(t, "sha256", cfg.Integrity.Algorithm)
	assert.False(t, cfg.Assets.CheckLastModified)
	assert.Equal(t, "localhost:35729", cfg.Watch.NotifyAddr)
}

func TestLoadFrom_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value interface{}
		field string
	}{
		{"non-positive ttl", "integrity.ttl", "0s", "integrity.ttl"},
		{"unknown algorithm", "integrity.algorithm", "md5", "integrity.algorithm"},
		{"empty cache path", "integrity.cache_path", "", "integrity.cache_path"},
		{"traversal in output dir", "assets.output_dir", "../../etc", "assets.output_dir"},
		{"dangerous css dir", "assets.css_dir", "/css;rm", "assets.css_dir"},
		{"minifier outside allowlist", "assets.minifier.css.command", "bash", "assets.minifier.css.command"},
		{"bad notify address", "watch.notify_addr", "no-port", "watch.notify_addr"},
		{"unknown log level", "log.level", "loud", "log.level"},
		{"unknown log format", "log.format", "xml", "log.format"},
		{"sample rate out of range", "tracing.sample_rate", 1.5, "tracing.sample_rate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := viper.New()
			v.Set(tt.key, tt.value)

			cfg, err := LoadFrom(v)
			require.Error(t, err)
			assert.Nil(t, cfg)
			assert.True(t, errors.IsConfigError(err))
			assert.True(t, errors.HasCode(err, errors.CodeInvalidConfig))
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestLoadFrom_UndecodableValue(t *testing.T) {
	v := viper.New()
	v.Set("integrity.ttl", "forever")

	_, err := LoadFrom(v)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeInvalidConfig))
}

func TestValidateConfigWithDetails(t *testing.T) {
	cfg := Default()
	cfg.Assets.Root = filepath.Join(t.TempDir(), "missing")
	cfg.Assets.CSSPatterns = nil
	cfg.Assets.JSPatterns = nil
	cfg.Assets.Minifier.JS = CommandConfig{Command: "terser", Args: []string{"--compress;ls"}}

	result := ValidateConfigWithDetails(cfg)
	assert.False(t, result.Valid)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "assets.minifier.js.args", result.Errors[0].Field)
	assert.True(t, result.HasWarnings())

	text := result.String()
	assert.Contains(t, text, "Validation errors:")
	assert.Contains(t, text, "Validation warnings:")
	assert.Contains(t, text, "asset root does not exist")
}

func TestConfig_WriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFileName)
	cfg := Default()
	cfg.Integrity.TTL = 45 * time.Minute

	require.NoError(t, cfg.WriteFile(path, false))

	err := cfg.WriteFile(path, false)
	assert.True(t, errors.HasCode(err, errors.CodeInvalidConfig))
	require.NoError(t, cfg.WriteFile(path, true))

	v := viper.New()
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())

	reloaded, err := LoadFrom(v)
	require.NoError(t, err)
	assert.Equal(t, cfg, reloaded)
}
