// Package cmd provides the command-line interface for assetloader with
// configuration drawn from multiple sources.
//
// Configuration System:
//
//	Sources are applied with clear precedence:
//	1. Command-line flags (--config, --log-level, ...) - highest priority
//	2. ASSETLOADER_CONFIG_FILE environment variable - custom config file path
//	3. Individual environment variables (ASSETLOADER_INTEGRITY_TTL, ...)
//	4. Configuration file (.assetloader.yml) - lowest priority
//
// Environment Variables:
//
//	ASSETLOADER_CONFIG_FILE: Path to custom configuration file
//	ASSETLOADER_ASSETS_OUTPUT_DIR: Override the compiled output directory
//	ASSETLOADER_INTEGRITY_CACHE_PATH: Override the integrity cache file
//	And more following the ASSETLOADER_<SECTION>_<OPTION> pattern
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/conneroisu/assetloader/internal/config"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "assetloader",
	Short: "Compile, fingerprint and tag JavaScript and CSS bundles",
	Long: `assetloader merges JavaScript and CSS sources into content-addressed
bundles, rebuilds them only when a watched file changed, and prints the
<script>/<link> markup with Subresource Integrity hashes.

Quick Start:
  assetloader init                                  Write a default .assetloader.yml
  assetloader build --dir public --kind css css/a.css css/b.css
  assetloader tag --dir public --kind js js/app.js
  assetloader watch --dir public --kind css css/app.css --notify-addr :35729
  assetloader integrity list                        Inspect the SRI cache`,
	SilenceUsage:      true,
	PersistentPreRunE: bindPersistentFlags,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default is "+config.DefaultFileName+", can also use "+config.EnvPrefix+"_CONFIG_FILE env var)")
	rootCmd.PersistentFlags().StringP("log-level", "l", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "text", "log format (text, json)")
}

// bindPersistentFlags ties explicitly set global flags to their config
// keys so they outrank the file and environment.
func bindPersistentFlags(cmd *cobra.Command, _ []string) error {
	bindings := map[string]string{
		"log-level":  "log.level",
		"log-format": "log.format",
	}
	for flagName, key := range bindings {
		if flag := cmd.Flags().Lookup(flagName); flag != nil && flag.Changed {
			if err := viper.BindPFlag(key, flag); err != nil {
				return err
			}
		}
	}
	return nil
}

// initConfig initializes the configuration system.
//
// Configuration Loading Priority (highest to lowest):
//  1. --config flag: Explicitly specified config file path
//  2. ASSETLOADER_CONFIG_FILE environment variable: Custom config file path
//  3. Default: .assetloader.yml in current directory
//
// Every key can also be overridden by ASSETLOADER_<SECTION>_<OPTION>.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if envConfigFile := os.Getenv(config.EnvPrefix + "_CONFIG_FILE"); envConfigFile != "" {
		viper.SetConfigFile(envConfigFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(strings.TrimSuffix(config.DefaultFileName, ".yml"))
	}

	viper.SetEnvPrefix(config.EnvPrefix)
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// A missing or unreadable file leaves defaults and environment in charge
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}
