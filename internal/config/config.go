// Package config provides configuration management for assetloader using
// Viper for loading from files, environment variables and command-line flags.
//
// The configuration supports YAML files, environment variable overrides with
// the ASSETLOADER_ prefix and validation. It covers the asset directories,
// the integrity cache, tag rendering, watch mode, logging and tracing.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/conneroisu/assetloader/internal/build"
	"github.com/conneroisu/assetloader/internal/errors"
	"github.com/conneroisu/assetloader/internal/integrity"
	"github.com/conneroisu/assetloader/internal/logging"
	"github.com/conneroisu/assetloader/internal/types"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "ASSETLOADER"

// DefaultFileName is the config file looked up in the working directory.
const DefaultFileName = ".assetloader.yml"

type Config struct {
	Assets    AssetsConfig    `mapstructure:"assets" yaml:"assets"`
	Integrity IntegrityConfig `mapstructure:"integrity" yaml:"integrity"`
	Tags      TagsConfig      `mapstructure:"tags" yaml:"tags"`
	Watch     WatchConfig     `mapstructure:"watch" yaml:"watch"`
	Log       LogConfig       `mapstructure:"log" yaml:"log"`
	Tracing   TracingConfig   `mapstructure:"tracing" yaml:"tracing"`
}

type AssetsConfig struct {
	Root              string         `mapstructure:"root" yaml:"root"`
	CSSDir            string         `mapstructure:"css_dir" yaml:"css_dir"`
	JSDir             string         `mapstructure:"js_dir" yaml:"js_dir"`
	OutputDir         string         `mapstructure:"output_dir" yaml:"output_dir"`
	JoinFiles         bool           `mapstructure:"join_files" yaml:"join_files"`
	CheckLastModified bool           `mapstructure:"check_last_modified" yaml:"check_last_modified"`
	CSSPatterns       []string       `mapstructure:"css_patterns" yaml:"css_patterns"`
	JSPatterns        []string       `mapstructure:"js_patterns" yaml:"js_patterns"`
	Minifier          MinifierConfig `mapstructure:"minifier" yaml:"minifier"`
}

type MinifierConfig struct {
	JS  CommandConfig `mapstructure:"js" yaml:"js"`
	CSS CommandConfig `mapstructure:"css" yaml:"css"`
}

// CommandConfig names an external minifier. An empty Command disables it.
type CommandConfig struct {
	Command string        `mapstructure:"command" yaml:"command,omitempty"`
	Args    []string      `mapstructure:"args" yaml:"args,omitempty"`
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout,omitempty"`
}

type IntegrityConfig struct {
	CachePath string        `mapstructure:"cache_path" yaml:"cache_path"`
	TTL       time.Duration `mapstructure:"ttl" yaml:"ttl"`
	Algorithm string        `mapstructure:"algorithm" yaml:"algorithm"`
}

type TagsConfig struct {
	BaseURL       string `mapstructure:"base_url" yaml:"base_url"`
	WebRoot       string `mapstructure:"web_root" yaml:"web_root"`
	DynamicLoader bool   `mapstructure:"dynamic_loader" yaml:"dynamic_loader"`
	LoaderID      string `mapstructure:"loader_id" yaml:"loader_id"`
	Media         string `mapstructure:"media" yaml:"media"`
}

type WatchConfig struct {
	Debounce       time.Duration `mapstructure:"debounce" yaml:"debounce"`
	NotifyAddr     string        `mapstructure:"notify_addr" yaml:"notify_addr"`
	AllowedOrigins []string      `mapstructure:"allowed_origins" yaml:"allowed_origins"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

type TracingConfig struct {
	OTLPEndpoint string  `mapstructure:"otlp_endpoint" yaml:"otlp_endpoint"`
	ServiceName  string  `mapstructure:"service_name" yaml:"service_name"`
	SampleRate   float64 `mapstructure:"sample_rate" yaml:"sample_rate"`
	Insecure     bool    `mapstructure:"insecure" yaml:"insecure"`
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("assets.root", ".")
	v.SetDefault("assets.css_dir", "/css")
	v.SetDefault("assets.js_dir", "/js")
	v.SetDefault("assets.output_dir", "/compiled")
	v.SetDefault("assets.join_files", true)
	v.SetDefault("assets.check_last_modified", true)
	v.SetDefault("assets.css_patterns", []string{"*.css", "*.sass", "*.map"})
	v.SetDefault("assets.js_patterns", []string{"*.js"})

	v.SetDefault("integrity.cache_path", integrity.DefaultStoragePath)
	v.SetDefault("integrity.ttl", types.DefaultTTL)
	v.SetDefault("integrity.algorithm", types.DefaultHashAlgorithm)

	v.SetDefault("tags.base_url", "")
	v.SetDefault("tags.web_root", ".")
	v.SetDefault("tags.dynamic_loader", true)
	v.SetDefault("tags.loader_id", "app-loader-js")
	v.SetDefault("tags.media", "screen")

	v.SetDefault("watch.debounce", 300*time.Millisecond)
	v.SetDefault("watch.notify_addr", "")
	v.SetDefault("watch.allowed_origins", []string{"localhost", "127.0.0.1"})

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("tracing.otlp_endpoint", "")
	v.SetDefault("tracing.service_name", "assetloader")
	v.SetDefault("tracing.sample_rate", 1.0)
	v.SetDefault("tracing.insecure", false)
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	v := viper.New()
	SetDefaults(v)

	cfg, err := decode(v)
	if err != nil {
		panic(fmt.Sprintf("config defaults do not decode: %v", err))
	}
	return cfg
}

// Load decodes and validates the global viper instance.
func Load() (*Config, error) {
	return LoadFrom(viper.GetViper())
}

// LoadFrom decodes and validates v after registering defaults.
func LoadFrom(v *viper.Viper) (*Config, error) {
	SetDefaults(v)

	cfg, err := decode(v)
	if err != nil {
		return nil, errors.WrapConfig(err, errors.CodeInvalidConfig, "cannot decode configuration")
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// BuildOptions returns the immutable options handed to the pipeline.
func (c *Config) BuildOptions() types.BuildOptions {
	return types.BuildOptions{
		JoinFiles:         c.Assets.JoinFiles,
		CheckLastModified: c.Assets.CheckLastModified,
		TTL:               c.Integrity.TTL,
		HashAlgorithm:     c.Integrity.Algorithm,
	}
}

// LoggerConfig returns the logger settings.
func (c *Config) LoggerConfig() *logging.LoggerConfig {
	cfg := logging.DefaultConfig()
	if level, err := logging.ParseLevel(c.Log.Level); err == nil {
		cfg.Level = level
	}
	cfg.Format = c.Log.Format
	return cfg
}

// MinifierFor returns the command filter settings for kind, or false when
// no minifier is configured.
func (c *Config) MinifierFor(kind types.AssetKind) (build.CommandFilterConfig, bool) {
	cmd := c.Assets.Minifier.JS
	if kind == types.AssetStylesheet {
		cmd = c.Assets.Minifier.CSS
	}
	if cmd.Command == "" {
		return build.CommandFilterConfig{}, false
	}
	return build.CommandFilterConfig{Command: cmd.Command, Args: cmd.Args, Timeout: cmd.Timeout}, true
}

// WriteFile writes c as YAML to path, refusing to overwrite unless force.
func (c *Config) WriteFile(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return errors.NewConfigError(errors.CodeInvalidConfig,
			fmt.Sprintf("%s already exists", path))
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return errors.WrapConfig(err, errors.CodeInvalidConfig, "cannot encode configuration")
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.WrapIO(err, errors.CodeOutputWrite, "cannot write configuration").WithPath(path)
	}

	return nil
}
