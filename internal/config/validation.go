package config

import (
	"fmt"
	"net"
	"os"
	"sort"
	"strings"

	"github.com/conneroisu/assetloader/internal/errors"
	"github.com/conneroisu/assetloader/internal/integrity"
	"github.com/conneroisu/assetloader/internal/logging"
	"github.com/conneroisu/assetloader/internal/validation"
)

// ValidationError represents a configuration validation error with suggestions
type ValidationError struct {
	Field       string
	Value       interface{}
	Message     string
	Suggestions []string
}

func (ve *ValidationError) Error() string {
	return fmt.Sprintf("validation error in %s: %s", ve.Field, ve.Message)
}

// ValidationResult holds the result of configuration validation
type ValidationResult struct {
	Valid    bool
	Errors   []ValidationError
	Warnings []ValidationError
}

// HasErrors returns true if there are any validation errors
func (vr *ValidationResult) HasErrors() bool {
	return len(vr.Errors) > 0
}

// HasWarnings returns true if there are any validation warnings
func (vr *ValidationResult) HasWarnings() bool {
	return len(vr.Warnings) > 0
}

// String returns a formatted string of all validation issues
func (vr *ValidationResult) String() string {
	var builder strings.Builder

	if len(vr.Errors) > 0 {
		builder.WriteString("Validation errors:\n")
		for _, err := range vr.Errors {
			builder.WriteString(fmt.Sprintf("  - %s: %s\n", err.Field, err.Message))
			for _, suggestion := range err.Suggestions {
				builder.WriteString(fmt.Sprintf("      hint: %s\n", suggestion))
			}
		}
		builder.WriteString("\n")
	}

	if len(vr.Warnings) > 0 {
		builder.WriteString("Validation warnings:\n")
		for _, warning := range vr.Warnings {
			builder.WriteString(fmt.Sprintf("  - %s: %s\n", warning.Field, warning.Message))
			for _, suggestion := range warning.Suggestions {
				builder.WriteString(fmt.Sprintf("      hint: %s\n", suggestion))
			}
		}
	}

	return builder.String()
}

// ValidateConfigWithDetails performs comprehensive validation with detailed feedback
func ValidateConfigWithDetails(config *Config) *ValidationResult {
	result := &ValidationResult{
		Valid:    true,
		Errors:   []ValidationError{},
		Warnings: []ValidationError{},
	}

	validateAssetsConfigDetails(&config.Assets, result)
	validateIntegrityConfigDetails(&config.Integrity, result)
	validateTagsConfigDetails(&config.Tags, result)
	validateWatchConfigDetails(&config.Watch, result)
	validateLogConfigDetails(&config.Log, result)
	validateTracingConfigDetails(&config.Tracing, result)

	result.Valid = !result.HasErrors()

	return result
}

// validateConfig returns the first validation error as a config error.
func validateConfig(config *Config) error {
	result := ValidateConfigWithDetails(config)
	if !result.HasErrors() {
		return nil
	}

	first := result.Errors[0]
	return errors.WrapConfig(&first, errors.CodeInvalidConfig, "invalid configuration").
		WithContext("errors", len(result.Errors))
}

func validateAssetsConfigDetails(config *AssetsConfig, result *ValidationResult) {
	for _, p := range []struct{ field, value string }{
		{"assets.root", config.Root},
		{"assets.css_dir", config.CSSDir},
		{"assets.js_dir", config.JSDir},
		{"assets.output_dir", config.OutputDir},
	} {
		field, value := p.field, p.value
		if err := validatePath(value); err != nil {
			result.Errors = append(result.Errors, ValidationError{
				Field:   field,
				Value:   value,
				Message: err.Error(),
				Suggestions: []string{
					"Use a path inside the project such as '/css' or '/compiled'",
					"Avoid parent directory references (..)",
				},
			})
		}
	}

	if len(config.CSSPatterns) == 0 && len(config.JSPatterns) == 0 {
		result.Warnings = append(result.Warnings, ValidationError{
			Field:   "assets.css_patterns",
			Message: "no watch patterns specified - only listed inputs trigger rebuilds",
			Suggestions: []string{
				"Add '*.css' and '*.js' to rebuild when any stylesheet or script changes",
			},
		})
	}

	if config.Root != "" && !pathExists(config.Root) {
		result.Warnings = append(result.Warnings, ValidationError{
			Field:   "assets.root",
			Value:   config.Root,
			Message: "asset root does not exist",
		})
	}

	for _, m := range []struct {
		field string
		cmd   CommandConfig
	}{
		{"assets.minifier.js", config.Minifier.JS},
		{"assets.minifier.css", config.Minifier.CSS},
	} {
		field, cmd := m.field, m.cmd
		if cmd.Command == "" {
			continue
		}
		if err := validation.ValidateCommand(cmd.Command, validation.DefaultMinifierCommands); err != nil {
			result.Errors = append(result.Errors, ValidationError{
				Field:   field + ".command",
				Value:   cmd.Command,
				Message: err.Error(),
				Suggestions: []string{
					"Supported minifiers: " + strings.Join(sortedKeys(validation.DefaultMinifierCommands), ", "),
				},
			})
		}
		for _, arg := range cmd.Args {
			if err := validation.ValidateArgument(arg); err != nil {
				result.Errors = append(result.Errors, ValidationError{
					Field:   field + ".args",
					Value:   arg,
					Message: err.Error(),
					Suggestions: []string{
						"Avoid shell metacharacters in minifier arguments",
					},
				})
			}
		}
	}
}

func validateIntegrityConfigDetails(config *IntegrityConfig, result *ValidationResult) {
	if config.TTL <= 0 {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "integrity.ttl",
			Value:   config.TTL,
			Message: "ttl must be positive",
			Suggestions: []string{
				"The default is 2h",
			},
		})
	}

	if _, err := integrity.ParseAlgorithm(config.Algorithm); err != nil {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "integrity.algorithm",
			Value:   config.Algorithm,
			Message: err.Error(),
			Suggestions: []string{
				"Use sha256, sha384 or sha512",
			},
		})
	}

	if config.CachePath == "" {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "integrity.cache_path",
			Message: "cache path cannot be empty",
			Suggestions: []string{
				"The default is " + integrity.DefaultStoragePath,
			},
		})
	}
}

func validateTagsConfigDetails(config *TagsConfig, result *ValidationResult) {
	if config.BaseURL != "" && strings.Contains(config.BaseURL, "://") {
		if err := validation.ValidateExternalURL(config.BaseURL); err != nil {
			result.Errors = append(result.Errors, ValidationError{
				Field:   "tags.base_url",
				Value:   config.BaseURL,
				Message: err.Error(),
			})
		}
	}

	if config.WebRoot != "" && !pathExists(config.WebRoot) {
		result.Warnings = append(result.Warnings, ValidationError{
			Field:   "tags.web_root",
			Value:   config.WebRoot,
			Message: "web root does not exist - local tags will render without integrity",
		})
	}
}

func validateWatchConfigDetails(config *WatchConfig, result *ValidationResult) {
	if config.Debounce < 0 {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "watch.debounce",
			Value:   config.Debounce,
			Message: "debounce cannot be negative",
		})
	}

	if config.NotifyAddr != "" {
		if _, _, err := net.SplitHostPort(config.NotifyAddr); err != nil {
			result.Errors = append(result.Errors, ValidationError{
				Field:   "watch.notify_addr",
				Value:   config.NotifyAddr,
				Message: err.Error(),
				Suggestions: []string{
					"Use host:port, for example ':35729' or 'localhost:35729'",
				},
			})
		}
	}
}

func validateLogConfigDetails(config *LogConfig, result *ValidationResult) {
	if _, err := logging.ParseLevel(config.Level); err != nil {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "log.level",
			Value:   config.Level,
			Message: err.Error(),
			Suggestions: []string{
				"Use debug, info, warn or error",
			},
		})
	}

	if config.Format != "text" && config.Format != "json" {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "log.format",
			Value:   config.Format,
			Message: "unknown log format",
			Suggestions: []string{
				"Use 'text' for terminals or 'json' for log shippers",
			},
		})
	}
}

func validateTracingConfigDetails(config *TracingConfig, result *ValidationResult) {
	if config.SampleRate < 0 || config.SampleRate > 1 {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "tracing.sample_rate",
			Value:   config.SampleRate,
			Message: "sample rate must be between 0 and 1",
		})
	}

	if config.OTLPEndpoint != "" && config.ServiceName == "" {
		result.Warnings = append(result.Warnings, ValidationError{
			Field:   "tracing.service_name",
			Message: "traces will be exported without a service name",
		})
	}
}

// validatePath validates a file path for security
func validatePath(path string) error {
	if path == "" {
		return fmt.Errorf("empty path")
	}

	if strings.Contains(path, "..") {
		return fmt.Errorf("path contains traversal: %s", path)
	}

	dangerousChars := []string{";", "&", "|", "$", "`", "(", ")", "<", ">", "\"", "'"}
	for _, char := range dangerousChars {
		if strings.Contains(path, char) {
			return fmt.Errorf("path contains dangerous character: %s", char)
		}
	}

	return nil
}

func pathExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
