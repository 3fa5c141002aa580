// Package build merges asset sources into compiled bundles and rebuilds them
// only when a watched input is newer than the existing output.
package build

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/conneroisu/assetloader/internal/errors"
	"github.com/conneroisu/assetloader/internal/interfaces"
	"github.com/conneroisu/assetloader/internal/logging"
	"github.com/conneroisu/assetloader/internal/naming"
	"github.com/conneroisu/assetloader/internal/paths"
	"github.com/conneroisu/assetloader/internal/types"
)

const tracerName = "github.com/conneroisu/assetloader/internal/build"

// Compiler rebuilds the bundle described by a FileCollection into an output
// directory. The directory is validated once at construction.
type Compiler struct {
	outputDir   string
	collection  interfaces.FileCollection
	convention  interfaces.NamingConvention
	options     types.BuildOptions
	filters     []Filter
	fileFilters []FileFilter
	metrics     *BuildMetrics
	warnings    *errors.WarningLog
	logger      logging.Logger
	tracer      trace.Tracer
}

// Option customizes a Compiler.
type Option func(*Compiler)

// WithLogger injects a logger.
func WithLogger(logger logging.Logger) Option {
	return func(c *Compiler) {
		if logger != nil {
			c.logger = logger.WithComponent("compiler")
		}
	}
}

// WithTracer injects a tracer instead of the global provider's.
func WithTracer(tracer trace.Tracer) Option {
	return func(c *Compiler) {
		if tracer != nil {
			c.tracer = tracer
		}
	}
}

// NewCompiler creates a compiler writing into outputDir. The directory is
// created when missing; failure to create it or write to it is returned
// immediately as a configuration error.
func NewCompiler(
	files interfaces.FileCollection,
	convention interfaces.NamingConvention,
	outputDir string,
	opts types.BuildOptions,
	options ...Option,
) (*Compiler, error) {
	dir, err := prepareOutputDir(outputDir)
	if err != nil {
		return nil, err
	}

	c := &Compiler{
		outputDir:  dir,
		collection: files,
		convention: convention,
		options:    opts,
		metrics:    NewBuildMetrics(),
		warnings:   errors.NewWarningLog(0),
		logger:     logging.NewNopLogger(),
		tracer:     otel.Tracer(tracerName),
	}

	for _, option := range options {
		option(c)
	}

	return c, nil
}

// NewJSCompiler creates a compiler using the JavaScript naming convention.
func NewJSCompiler(files interfaces.FileCollection, outputDir string, opts types.BuildOptions, options ...Option) (*Compiler, error) {
	return NewCompiler(files, naming.JS(), outputDir, opts, options...)
}

// NewCSSCompiler creates a compiler using the stylesheet naming convention.
func NewCSSCompiler(files interfaces.FileCollection, outputDir string, opts types.BuildOptions, options ...Option) (*Compiler, error) {
	return NewCompiler(files, naming.CSS(), outputDir, opts, options...)
}

func prepareOutputDir(outputDir string) (string, error) {
	dir := paths.Normalize(outputDir)
	if dir == "" {
		dir = "."
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.WrapConfig(err, errors.CodeOutputDirCreate,
			fmt.Sprintf("cannot create directory '%s'", dir))
	}

	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return "", errors.NewConfigError(errors.CodeOutputDirCreate,
			fmt.Sprintf("'%s' is not a directory", dir))
	}

	check, err := os.CreateTemp(dir, ".assetloader-write-*")
	if err != nil {
		return "", errors.WrapConfig(err, errors.CodeOutputDirNotWritable,
			fmt.Sprintf("directory '%s' is not writeable", dir))
	}
	name := check.Name()
	_ = check.Close()
	_ = os.Remove(name)

	return dir, nil
}

// OutputDir returns the normalized output directory.
func (c *Compiler) OutputDir() string {
	return c.outputDir
}

// Options returns the build options the compiler was created with.
func (c *Compiler) Options() types.BuildOptions {
	return c.options
}

// Collection returns the file collection being compiled.
func (c *Compiler) Collection() interfaces.FileCollection {
	return c.collection
}

// Convention returns the naming convention for outputs.
func (c *Compiler) Convention() interfaces.NamingConvention {
	return c.convention
}

// Metrics returns the write-count instrumentation.
func (c *Compiler) Metrics() *BuildMetrics {
	return c.metrics
}

// Warnings returns degraded conditions recorded by previous builds.
func (c *Compiler) Warnings() *errors.WarningLog {
	return c.warnings
}

// Generate writes every output whose watch set changed and describes all
// outputs, rewritten or not. With ifModified false every output is rebuilt.
// An empty collection yields an empty list.
func (c *Compiler) Generate(ctx context.Context, ifModified bool) ([]types.GeneratedArtifact, error) {
	ctx, span := c.tracer.Start(ctx, "compiler.generate", trace.WithAttributes(
		attribute.String("assets.output_dir", c.outputDir),
		attribute.Bool("assets.join_files", c.options.JoinFiles),
		attribute.Bool("assets.if_modified", ifModified),
	))
	defer span.End()

	files := c.collection.Files()
	if len(files) == 0 {
		return []types.GeneratedArtifact{}, nil
	}

	start := time.Now()
	var artifacts []types.GeneratedArtifact

	if c.options.JoinFiles {
		artifact, err := c.generateFiles(ctx, files, ifModified, c.watchSet(files))
		if err != nil {
			return c.fail(span, start, err)
		}
		artifacts = append(artifacts, artifact)
	} else {
		for _, file := range files {
			single := []string{file}
			artifact, err := c.generateFiles(ctx, single, ifModified, c.watchSet(single))
			if err != nil {
				return c.fail(span, start, err)
			}
			artifacts = append(artifacts, artifact)
		}
	}

	c.metrics.RecordDuration(time.Since(start))
	span.SetAttributes(attribute.Int("assets.artifacts", len(artifacts)))

	return artifacts, nil
}

func (c *Compiler) fail(span trace.Span, start time.Time, err error) ([]types.GeneratedArtifact, error) {
	c.metrics.RecordFailure(time.Since(start))
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return nil, err
}

// watchSet returns files plus the collection's watch files, deduplicated,
// or nil when staleness checks are off.
func (c *Compiler) watchSet(files []string) []string {
	if !c.options.CheckLastModified {
		return nil
	}

	watch := c.collection.WatchFiles()
	seen := make(map[string]struct{}, len(files)+len(watch))
	set := make([]string, 0, len(files)+len(watch))

	for _, f := range append(append([]string{}, files...), watch...) {
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		set = append(set, f)
	}

	return set
}

func (c *Compiler) generateFiles(ctx context.Context, files []string, ifModified bool, watch []string) (types.GeneratedArtifact, error) {
	var lastModified int64
	if c.options.CheckLastModified {
		lastModified = LastModified(watch)
	}

	name := c.convention.Filename(files, lastModified)
	target := c.outputDir + "/" + name

	artifact := types.GeneratedArtifact{
		File:   name,
		Path:   c.outputDir,
		Time:   lastModified,
		Source: append([]string(nil), files...),
	}

	if !c.needsRebuild(target, lastModified, ifModified) {
		c.metrics.RecordSkip()
		c.logger.Debug(ctx, "Output up to date", "file", name)
		return artifact, nil
	}

	content, err := c.Content(ctx, files)
	if err != nil {
		return artifact, err
	}

	if err := writeAtomic(target, content); err != nil {
		return artifact, errors.WrapIO(err, errors.CodeOutputWrite, "cannot write output").WithPath(target)
	}

	c.metrics.RecordRebuild()
	c.logger.Info(ctx, "Output rebuilt", "file", name, "inputs", len(files), "bytes", len(content))
	artifact.Rebuilt = true

	return artifact, nil
}

// needsRebuild is the staleness test: rebuild unless ifModified is set, the
// output exists and no watched file is newer than it.
func (c *Compiler) needsRebuild(target string, lastModified int64, ifModified bool) bool {
	if !ifModified {
		return true
	}

	info, err := os.Stat(target)
	if err != nil {
		return true
	}

	return lastModified > info.ModTime().Unix()
}

// LastModified returns the newest modification time, in Unix seconds,
// across files. Files that cannot be stated are ignored; an empty list
// yields 0.
func LastModified(files []string) int64 {
	var newest int64
	for _, f := range files {
		info, err := os.Stat(f)
		if err != nil {
			continue
		}
		if m := info.ModTime().Unix(); m > newest {
			newest = m
		}
	}
	return newest
}

// Content merges files in order, separated by a newline, and runs the
// result through the registered filters. A file that cannot be read
// contributes empty content.
func (c *Compiler) Content(ctx context.Context, files []string) ([]byte, error) {
	parts := make([][]byte, 0, len(files))

	for _, file := range files {
		part, err := c.loadFile(ctx, file)
		if err != nil {
			return nil, err
		}
		parts = append(parts, part)
	}

	content := bytes.Join(parts, []byte("\n"))

	for i, filter := range c.filters {
		out, err := filter(content)
		if err != nil {
			return nil, errors.NewBuildError(errors.CodeFilterFailed,
				fmt.Sprintf("content filter #%d failed", i+1), err)
		}
		content = out
	}

	return content, nil
}

func (c *Compiler) loadFile(ctx context.Context, file string) ([]byte, error) {
	content, err := os.ReadFile(file)
	if err != nil {
		c.warnings.Warn(file, "input unreadable, using empty content")
		c.logger.Warn(ctx, err, "Input unreadable, using empty content", "file", file)
		content = []byte{}
	}

	for i, filter := range c.fileFilters {
		out, err := filter(content, file)
		if err != nil {
			return nil, errors.WrapBuild(err, errors.CodeFilterFailed,
				fmt.Sprintf("file filter #%d failed", i+1), file)
		}
		content = out
	}

	return content, nil
}

// writeAtomic writes through a temporary file in the same directory and
// renames it into place, so readers never observe a partial bundle.
func writeAtomic(target string, content []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(target), "."+filepath.Base(target)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(content); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		_ = os.Remove(tmpName)
		return err
	}

	return os.Rename(tmpName, target)
}
