package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/conneroisu/assetloader/internal/types"
)

// StandardFlags provides consistent flag definitions across commands
type StandardFlags struct {
	// Bundle flags
	Dir  string `flag:"dir,d" desc:"Asset directory holding the css, js and compiled folders" default:""`
	Kind string `flag:"kind,k" desc:"Asset kind (js|css)" default:"js"`

	// Output flags
	Format string `flag:"format,f" desc:"Output format (table|json|yaml)" default:"table"`
}

var validFormats = []string{"table", "json", "yaml"}

// AddStandardFlags adds standard flags to a command
func AddStandardFlags(cmd *cobra.Command, flagTypes ...string) *StandardFlags {
	flags := &StandardFlags{}

	for _, flagType := range flagTypes {
		switch flagType {
		case "bundle":
			addBundleFlags(cmd, flags)
		case "output":
			addOutputFlags(cmd, flags)
		}
	}

	return flags
}

func addBundleFlags(cmd *cobra.Command, flags *StandardFlags) {
	cmd.Flags().StringVarP(&flags.Dir, "dir", "d", "", "Asset directory (default assets.root)")
	cmd.Flags().StringVarP(&flags.Kind, "kind", "k", "js", "Asset kind (js|css)")
}

func addOutputFlags(cmd *cobra.Command, flags *StandardFlags) {
	cmd.Flags().StringVarP(&flags.Format, "format", "f", "table", "Output format (table|json|yaml)")
	AddFlagValidation(cmd, "format", ValidateFormat)
}

// AssetKind returns the parsed --kind value.
func (f *StandardFlags) AssetKind() (types.AssetKind, error) {
	if err := ValidateKind(f.Kind); err != nil {
		return 0, err
	}
	kind, _ := types.ParseAssetKind(f.Kind)
	return kind, nil
}

// AssetDir returns --dir, falling back to fallback when unset.
func (f *StandardFlags) AssetDir(fallback string) string {
	if f.Dir != "" {
		return f.Dir
	}
	return fallback
}

// ValidateFlags validates flag combinations and values
func (f *StandardFlags) ValidateFlags() error {
	if _, err := f.AssetKind(); err != nil {
		return err
	}
	if f.Format != "" {
		if err := ValidateFormat(f.Format); err != nil {
			return err
		}
	}
	if f.Dir != "" {
		if err := ValidateDirExists(f.Dir); err != nil {
			return err
		}
	}
	return nil
}

// AddFlagValidation adds validation for a specific flag
func AddFlagValidation(cmd *cobra.Command, flagName string, validator func(string) error) {
	flag := cmd.Flags().Lookup(flagName)
	if flag == nil {
		return
	}

	flag.Value = &validatingValue{
		Value:       flag.Value,
		validator:   validator,
		originalSet: flag.Value.Set,
	}
}

type validatingValue struct {
	pflag.Value
	validator   func(string) error
	originalSet func(string) error
}

func (v *validatingValue) Set(val string) error {
	if v.validator != nil {
		if err := v.validator(val); err != nil {
			return err
		}
	}
	return v.originalSet(val)
}

// ValidateKind accepts the asset kinds a bundle can be built for.
func ValidateKind(kind string) error {
	if _, ok := types.ParseAssetKind(kind); !ok {
		return fmt.Errorf("invalid kind %q, must be js or css", kind)
	}
	return nil
}

// ValidateFormat accepts table, json and yaml.
func ValidateFormat(format string) error {
	for _, valid := range validFormats {
		if format == valid {
			return nil
		}
	}
	return fmt.Errorf("invalid output format %s, must be one of: %s",
		format, strings.Join(validFormats, ", "))
}

// ValidateDirExists checks that dir is an existing directory.
func ValidateDirExists(dir string) error {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return fmt.Errorf("directory does not exist: %s", dir)
	}
	if err != nil {
		return fmt.Errorf("cannot access directory %s: %w", dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("not a directory: %s", dir)
	}
	return nil
}
