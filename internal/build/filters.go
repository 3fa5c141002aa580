package build

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"time"

	"github.com/conneroisu/assetloader/internal/errors"
	"github.com/conneroisu/assetloader/internal/validation"
)

// Filter transforms the merged content of an output.
type Filter func(content []byte) ([]byte, error)

// FileFilter transforms the content of one input before merging.
type FileFilter func(content []byte, path string) ([]byte, error)

// AddFilter appends a whole-content filter. Filters run in registration
// order after all file filters.
func (c *Compiler) AddFilter(filter Filter) error {
	if filter == nil {
		return errors.NewConfigError(errors.CodeNilFilter, "filter must not be nil")
	}
	c.filters = append(c.filters, filter)
	return nil
}

// AddFileFilter appends a per-file filter.
func (c *Compiler) AddFileFilter(filter FileFilter) error {
	if filter == nil {
		return errors.NewConfigError(errors.CodeNilFilter, "file filter must not be nil")
	}
	c.fileFilters = append(c.fileFilters, filter)
	return nil
}

// CommandFilterConfig describes an external program that reads content on
// stdin and writes the transformed content to stdout.
type CommandFilterConfig struct {
	Command string
	Args    []string
	// Allowed overrides validation.DefaultMinifierCommands.
	Allowed map[string]bool
	Timeout time.Duration
}

// DefaultCommandTimeout bounds a single command filter invocation.
const DefaultCommandTimeout = 30 * time.Second

// NewCommandFilter validates the command and its arguments and returns a
// Filter running it.
func NewCommandFilter(cfg CommandFilterConfig) (Filter, error) {
	allowed := cfg.Allowed
	if allowed == nil {
		allowed = validation.DefaultMinifierCommands
	}

	if err := validation.ValidateCommand(cfg.Command, allowed); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, errors.CodeCommandInvalid, "command validation failed")
	}
	for _, arg := range cfg.Args {
		if err := validation.ValidateArgument(arg); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeConfig, errors.CodeCommandInvalid,
				fmt.Sprintf("invalid argument '%s'", arg))
		}
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultCommandTimeout
	}
	args := append([]string(nil), cfg.Args...)

	return func(content []byte) ([]byte, error) {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		cmd := exec.CommandContext(ctx, cfg.Command, args...)
		cmd.Stdin = bytes.NewReader(content)

		var stdout, stderr bytes.Buffer
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr

		if err := cmd.Run(); err != nil {
			return nil, fmt.Errorf("%s failed: %w\nOutput: %s", cfg.Command, err, stderr.String())
		}

		return stdout.Bytes(), nil
	}, nil
}
